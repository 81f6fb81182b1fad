// Package compress selects streaming decompressors by file extension. The
// same registry serves both downloaded index files (Packages.xz and
// friends) and the data.tar members inside .deb archives.
package compress

import (
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	lzip "github.com/sorairolake/lzip-go"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// UnknownCompressionError indicates a file extension with no registered
// decompressor.
type UnknownCompressionError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownCompressionError) Error() string {
	return fmt.Sprintf("unknown compression for %q", e.Name)
}

type reader struct {
	io.Reader
	close func() error
}

func (r *reader) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// Extension returns the compression extension of a file name, or "" when
// the name carries none that the registry knows.
func Extension(name string) string {
	ext := filepath.Ext(name)
	switch ext {
	case ".gz", ".xz", ".bz2", ".lzma", ".zst", ".lz":
		return ext
	}
	return ""
}

// NewReader wraps r with the decompressor selected by the extension of
// name. Names without a compression extension pass through unchanged.
// Unrecognised extensions fail with UnknownCompressionError.
func NewReader(name string, r io.Reader) (io.ReadCloser, error) {
	switch filepath.Ext(name) {
	case ".gz":
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream for %s: %w", name, err)
		}
		return gzr, nil
	case ".xz":
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening xz stream for %s: %w", name, err)
		}
		return &reader{Reader: xzr}, nil
	case ".bz2":
		return &reader{Reader: bzip2.NewReader(r)}, nil
	case ".lzma":
		lzr, err := lzma.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening lzma stream for %s: %w", name, err)
		}
		return &reader{Reader: lzr}, nil
	case ".zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening zstd stream for %s: %w", name, err)
		}
		return zr.IOReadCloser(), nil
	case ".lz":
		lr, err := lzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening lzip stream for %s: %w", name, err)
		}
		return &reader{Reader: lr}, nil
	case "", ".tar":
		return &reader{Reader: r}, nil
	default:
		return nil, &UnknownCompressionError{Name: name}
	}
}

// DecompressFile decompresses path in place: the output keeps the same
// name minus the compression extension, and the compressed original is
// removed. Returns the output path.
func DecompressFile(path string) (string, error) {
	ext := Extension(path)
	if ext == "" {
		return "", &UnknownCompressionError{Name: path}
	}

	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer in.Close()

	decompressed, err := NewReader(path, in)
	if err != nil {
		return "", err
	}
	defer decompressed.Close()

	outPath := strings.TrimSuffix(path, ext)
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", outPath, err)
	}

	if _, err := io.Copy(out, decompressed); err != nil {
		out.Close()
		os.Remove(outPath)
		return "", fmt.Errorf("decompressing %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", outPath, err)
	}

	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("removing %s: %w", path, err)
	}
	return outPath, nil
}
