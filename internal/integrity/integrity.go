// Package integrity verifies downloaded files against the sizes and
// digests recorded in Release metadata.
package integrity

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Digest algorithm names accepted by VerifyFile.
const (
	KindSHA256 = "sha256"
	KindMD5    = "md5"
)

// SizeMismatchError indicates a file whose length differs from the
// recorded size.
type SizeMismatchError struct {
	Path     string
	Expected uint64
	Actual   uint64
}

// Error implements the error interface.
func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch for %s: expected %d bytes, got %d", e.Path, e.Expected, e.Actual)
}

// ChecksumMismatchError indicates a file whose digest differs from the
// recorded value.
type ChecksumMismatchError struct {
	Path     string
	Kind     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%s mismatch for %s: expected %s, got %s", e.Kind, e.Path, e.Expected, e.Actual)
}

func newDigest(kind string) (hash.Hash, error) {
	switch kind {
	case KindSHA256:
		return sha256.New(), nil
	case KindMD5:
		return md5.New(), nil
	default:
		return nil, fmt.Errorf("unsupported digest kind %q", kind)
	}
}

// FileDigest streams the file through the named digest and returns the
// lowercase hex result.
func FileDigest(kind, path string) (string, error) {
	digest, err := newDigest(kind)
	if err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file for checksum: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(digest, file); err != nil {
		return "", fmt.Errorf("reading file for checksum: %w", err)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// VerifyFile checks the file's size first, then its digest. The expected
// digest is compared case-insensitively against lowercase hex.
func VerifyFile(kind, path, expectedHex string, expectedSize uint64) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if uint64(info.Size()) != expectedSize {
		return &SizeMismatchError{Path: path, Expected: expectedSize, Actual: uint64(info.Size())}
	}

	actual, err := FileDigest(kind, path)
	if err != nil {
		return err
	}
	if actual != strings.ToLower(expectedHex) {
		return &ChecksumMismatchError{Path: path, Kind: kind, Expected: strings.ToLower(expectedHex), Actual: actual}
	}
	return nil
}
