package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/bornc/internal/tensor"
	"github.com/born-ml/bornc/internal/wrapper"
)

// ReaderOptions configures Open.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Faster but less safe
	ValidationLevel        ValidationLevel // Header validation strictness
}

// Reader reads a context binary.
type Reader struct {
	file       *os.File
	header     Header
	flags      uint32
	version    uint32
	dataOffset int64 // Start of the data section
	dataSize   int64 // Size recorded in the fixed header
	checksum   Checksum
	closed     bool
}

// Open opens a context binary with strict validation.
func Open(path string) (*Reader, error) {
	return OpenWithOptions(path, ReaderOptions{ValidationLevel: ValidationStrict})
}

// OpenWithOptions opens a context binary with custom options.
func OpenWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	//nolint:gosec // G304: Path comes from the user.
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r := &Reader{file: file}
	if err := r.parseHeader(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if avail := info.Size() - r.dataOffset; avail < r.dataSize {
		_ = file.Close()
		return nil, &ValidationError{
			Type:    "truncated",
			Details: fmt.Sprintf("data section has %d bytes, header declares %d", avail, r.dataSize),
		}
	}

	if err := ValidateHeader(&r.header, r.dataSize, opts.ValidationLevel); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if !opts.SkipChecksumValidation && r.flags&FlagNoChecksum == 0 {
		if err := r.verifyChecksum(); err != nil {
			_ = file.Close()
			return nil, err
		}
	}
	return r, nil
}

func (r *Reader) parseHeader() error {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r.file, fixed); err != nil {
		return fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixed[0:4]) != MagicBytes {
		return ErrInvalidMagic
	}

	r.version = binary.LittleEndian.Uint32(fixed[4:8])
	if r.version != FormatVersion {
		return fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, r.version, FormatVersion)
	}
	r.flags = binary.LittleEndian.Uint32(fixed[8:12])
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	copy(r.checksum[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return ErrHeaderTooLarge
	}
	if dataSize > 1<<62 {
		return &ValidationError{Type: "data_size", Details: fmt.Sprintf("declared data size %d", dataSize)}
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r.file, headerBytes); err != nil {
		return fmt.Errorf("failed to read header JSON: %w", err)
	}
	if err := json.Unmarshal(headerBytes, &r.header); err != nil {
		return fmt.Errorf("failed to parse header JSON: %w", err)
	}

	r.dataOffset = alignUp(int64(FixedHeaderSize) + int64(headerSize)) //nolint:gosec // G115: bounded by MaxHeaderSize.
	r.dataSize = int64(dataSize)                                       //nolint:gosec // G115: bounded above.
	return nil
}

func (r *Reader) verifyChecksum() error {
	if _, err := r.file.Seek(r.dataOffset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to data: %w", err)
	}
	computed, err := ComputeChecksumReader(io.LimitReader(r.file, r.dataSize))
	if err != nil {
		return fmt.Errorf("failed to read data for checksum: %w", err)
	}
	return ValidateChecksum(computed, r.checksum)
}

// Header returns the parsed JSON header.
func (r *Reader) Header() Header {
	return r.header
}

// Flags returns the fixed-header flags.
func (r *Reader) Flags() uint32 {
	return r.flags
}

// Checksum returns the recorded data checksum.
func (r *Reader) Checksum() Checksum {
	return r.checksum
}

// DataSize returns the size of the data section.
func (r *Reader) DataSize() int64 {
	return r.dataSize
}

// Metadata returns the metadata map from the header.
func (r *Reader) Metadata() map[string]string {
	return r.header.Metadata
}

// TensorNames returns all tensor names in declaration order.
func (r *Reader) TensorNames() []string {
	names := make([]string, len(r.header.Tensors))
	for i, meta := range r.header.Tensors {
		names[i] = meta.Name
	}
	return names
}

// TensorInfo returns the declaration of a tensor.
func (r *Reader) TensorInfo(name string) (*TensorMeta, error) {
	for i := range r.header.Tensors {
		if r.header.Tensors[i].Name == name {
			meta := r.header.Tensors[i]
			return &meta, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
}

// ReadTensorData reads the bytes of a static tensor.
func (r *Reader) ReadTensorData(name string) ([]byte, error) {
	if r.closed {
		return nil, ErrClosed
	}
	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}
	if !meta.IsStatic() {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotStatic, name, meta.Type)
	}

	data := make([]byte, meta.Size)
	if _, err := r.file.ReadAt(data, r.dataOffset+meta.Offset); err != nil {
		return nil, fmt.Errorf("failed to read tensor %s: %w", name, err)
	}
	return data, nil
}

// ReadStatic loads a static tensor into host memory.
func (r *Reader) ReadStatic(name string) (*tensor.RawTensor, error) {
	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}
	dt, err := wrapper.ParseDataType(meta.DType)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	hostType, err := dt.HostType()
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	data, err := r.ReadTensorData(name)
	if err != nil {
		return nil, err
	}
	raw, err := tensor.FromBytes(tensor.Shape(meta.Shape), hostType, data)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	return raw, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}
