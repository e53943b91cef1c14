package serialization

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/bornc/internal/lower"
	"github.com/born-ml/bornc/internal/wrapper"
)

// WriterOptions configures how a program is written.
type WriterOptions struct {
	CompilerVersion string            // Recorded in the header
	Metadata        map[string]string // Free-form key/value pairs
	SkipChecksum    bool              // Leave the checksum empty and set FlagNoChecksum
}

// WriteProgram writes prog to w as a context binary and returns the number of bytes written.
func WriteProgram(w io.Writer, prog *lower.Program, opts WriterOptions) (int64, error) {
	version := opts.CompilerVersion
	if version == "" {
		version = "unknown"
	}
	header, static := newHeader(prog, version, opts.Metadata)

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return 0, ErrHeaderTooLarge
	}

	var dataSize int64
	for _, t := range header.Tensors {
		if end := t.Offset + t.Size; end > dataSize {
			dataSize = end
		}
	}

	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if len(header.Skipped) > 0 {
		flags |= FlagPartial
	}
	var checksum Checksum
	if opts.SkipChecksum {
		flags |= FlagNoChecksum
	} else {
		h := sha256.New()
		if _, err := writeData(h, header.Tensors, static); err != nil {
			return 0, err
		}
		checksum = sumOf(h)
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], uint32(FormatVersion))
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(dataSize)) //nolint:gosec // G115: dataSize is non-negative.
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	cw := &countingWriter{w: w}
	if _, err := cw.Write(fixed); err != nil {
		return cw.n, fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := cw.Write(headerJSON); err != nil {
		return cw.n, fmt.Errorf("failed to write header JSON: %w", err)
	}
	if pad := alignUp(cw.n) - cw.n; pad > 0 {
		if _, err := cw.Write(make([]byte, pad)); err != nil {
			return cw.n, fmt.Errorf("failed to write padding: %w", err)
		}
	}
	if _, err := writeData(cw, header.Tensors, static); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// WriteFile writes prog to path, replacing any existing file.
func WriteFile(path string, prog *lower.Program, opts WriterOptions) (int64, error) {
	//nolint:gosec // G304: Output path comes from the user.
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	buf := bufio.NewWriter(file)
	n, err := WriteProgram(buf, prog, opts)
	if err == nil {
		err = buf.Flush()
	}
	if cerr := file.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path) // Best effort: do not leave a truncated artifact behind.
		return 0, err
	}
	return n, nil
}

// writeData writes the data section: static tensors at their recorded
// offsets, with zero padding in between.
func writeData(w io.Writer, metas []TensorMeta, static []*wrapper.TensorWrapper) (int64, error) {
	offsets := make(map[string]int64, len(static))
	for _, m := range metas {
		if m.Size > 0 {
			offsets[m.Name] = m.Offset
		}
	}

	var pos int64
	for _, t := range static {
		off := offsets[t.Name]
		if pad := off - pos; pad > 0 {
			if _, err := w.Write(make([]byte, pad)); err != nil {
				return pos, fmt.Errorf("failed to write padding: %w", err)
			}
			pos = off
		}
		n, err := w.Write(t.Data.Data())
		pos += int64(n)
		if err != nil {
			return pos, fmt.Errorf("failed to write tensor %s: %w", t.Name, err)
		}
	}
	return pos, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
