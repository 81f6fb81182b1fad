// Package deb unpacks Debian binary packages. The ar backend walks
// the .deb container in process; the dpkg-deb backend shells out to a
// host dpkg-deb. Both feed the same tar extraction, which preserves
// directory symlinks so merged-/usr roots stay merged.
package deb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/blakesmith/ar"

	"github.com/debstrap-dev/debstrap/internal/compress"
)

// Backend selects how .deb payloads are unpacked.
type Backend string

const (
	BackendAr      Backend = "ar"
	BackendDpkgDeb Backend = "dpkg-deb"
)

// ExtractionError reports a package that could not be unpacked.
type ExtractionError struct {
	Deb string
	Err error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Deb, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ExtractData unpacks the data tarball of debPath into targetDir. A
// data member with unrecognised compression is skipped without error.
func ExtractData(ctx context.Context, debPath, targetDir string, backend Backend) error {
	if backend == BackendDpkgDeb {
		return extractWithDpkgDeb(ctx, debPath, targetDir)
	}

	file, err := os.Open(debPath)
	if err != nil {
		return &ExtractionError{Deb: debPath, Err: err}
	}
	defer file.Close()

	member, name, err := findMember(file, "data.tar")
	if err != nil {
		return &ExtractionError{Deb: debPath, Err: err}
	}

	payload, err := compress.NewReader(name, member)
	if err != nil {
		var unknown *compress.UnknownCompressionError
		if errors.As(err, &unknown) {
			return nil
		}
		return &ExtractionError{Deb: debPath, Err: err}
	}
	defer payload.Close()

	if err := untar(payload, targetDir); err != nil {
		return &ExtractionError{Deb: debPath, Err: err}
	}
	return nil
}

// ExtractControl returns the control file contents from the control
// tarball of debPath.
func ExtractControl(debPath string) ([]byte, error) {
	file, err := os.Open(debPath)
	if err != nil {
		return nil, &ExtractionError{Deb: debPath, Err: err}
	}
	defer file.Close()

	member, name, err := findMember(file, "control.tar")
	if err != nil {
		return nil, &ExtractionError{Deb: debPath, Err: err}
	}

	payload, err := compress.NewReader(name, member)
	if err != nil {
		return nil, &ExtractionError{Deb: debPath, Err: err}
	}
	defer payload.Close()

	control, err := tarFileContents(payload, "control")
	if err != nil {
		return nil, &ExtractionError{Deb: debPath, Err: err}
	}
	return control, nil
}

// findMember scans the ar container for the first member whose name
// starts with prefix. The returned reader yields that member's data.
func findMember(f *os.File, prefix string) (io.Reader, string, error) {
	reader := ar.NewReader(f)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			return nil, "", fmt.Errorf("no %s member in archive", prefix)
		}
		if err != nil {
			return nil, "", err
		}
		name := strings.TrimSuffix(strings.TrimSpace(header.Name), "/")
		if strings.HasPrefix(name, prefix) {
			return reader, name, nil
		}
	}
}
