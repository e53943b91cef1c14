package serialization

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// Checksum is the SHA-256 digest of a data section.
type Checksum [32]byte

// String returns the digest in hex.
func (c Checksum) String() string {
	return hex.EncodeToString(c[:])
}

// IsZero reports whether no checksum was recorded.
func (c Checksum) IsZero() bool {
	return c == Checksum{}
}

// ComputeChecksum computes the SHA-256 checksum of data.
func ComputeChecksum(data []byte) Checksum {
	return sha256.Sum256(data)
}

// ComputeChecksumReader computes the checksum of everything read from r.
func ComputeChecksumReader(r io.Reader) (Checksum, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return Checksum{}, err
	}
	return sumOf(h), nil
}

// ValidateChecksum returns ErrChecksumMismatch if computed differs from stored.
func ValidateChecksum(computed, stored Checksum) error {
	if computed != stored {
		return ErrChecksumMismatch
	}
	return nil
}

func sumOf(h hash.Hash) Checksum {
	var sum Checksum
	copy(sum[:], h.Sum(nil))
	return sum
}
