package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/debstrap-dev/debstrap/internal/archive"
	"github.com/debstrap-dev/debstrap/internal/integrity"
	"github.com/debstrap-dev/debstrap/internal/message"
	"github.com/debstrap-dev/debstrap/internal/sources"
)

const testPackages = `Package: base-files
Version: 12.4+deb12u5
Architecture: amd64
Essential: yes
Filename: pool/main/b/base-files/base-files_12.4+deb12u5_amd64.deb
Size: 70544

`

func gzipBytes(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(data)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func sha256Hex(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

func md5Hex(data string) string {
	sum := md5.Sum([]byte(data))
	return hex.EncodeToString(sum[:])
}

func releaseWithSHA256(digest string, size int) string {
	return fmt.Sprintf(`Origin: Debian
Suite: stable
Codename: bookworm
Architectures: amd64
Components: main
SHA256:
 %s %d main/binary-amd64/Packages
`, digest, size)
}

func testEntry(t *testing.T, serverURL string) sources.Entry {
	t.Helper()
	uri, err := archive.ParseURI(serverURL + "/debian")
	if err != nil {
		t.Fatalf("parsing server URI: %v", err)
	}
	return sources.Entry{
		URIs:          []archive.URI{uri},
		Suites:        []string{"bookworm"},
		Components:    []string{"main"},
		Architectures: []string{"amd64"},
	}
}

func testFetcher(listsDir string, errOut *bytes.Buffer) *IndexFetcher {
	if errOut == nil {
		errOut = &bytes.Buffer{}
	}
	return &IndexFetcher{
		Client:   NewClient(DefaultOptions()),
		ListsDir: listsDir,
		Printer:  message.NewPrinterTo(&bytes.Buffer{}, errOut, message.Config{}),
		Log:      message.NewNoop(),
	}
}

// The mirror serves only Packages.gz; the fetcher must fall through
// the .xz probe, pick .gz, decompress and verify.
func TestFetchAllCompressionFallback(t *testing.T) {
	release := releaseWithSHA256(sha256Hex(testPackages), len(testPackages))
	compressed := gzipBytes(t, testPackages)

	mux := http.NewServeMux()
	mux.HandleFunc("/debian/dists/bookworm/Release", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(release))
	})
	mux.HandleFunc("/debian/dists/bookworm/main/binary-amd64/Packages.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Write(compressed)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	listsDir := t.TempDir()
	fetcher := testFetcher(listsDir, nil)

	indexes, err := fetcher.FetchAll(context.Background(), []sources.Entry{testEntry(t, srv.URL)})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(indexes) != 1 {
		t.Fatalf("got %d indexes, want 1", len(indexes))
	}

	idx := indexes[0]
	if !strings.HasSuffix(idx.Path, "_dists_bookworm_main_binary-amd64_Packages") {
		t.Errorf("canonical path = %q", idx.Path)
	}
	got, err := os.ReadFile(idx.Path)
	if err != nil {
		t.Fatalf("reading index: %v", err)
	}
	if string(got) != testPackages {
		t.Error("decompressed index does not match the served content")
	}
	if idx.Origin.Suite != "bookworm" || idx.Origin.Component != "main" || idx.Origin.Architecture != "amd64" {
		t.Errorf("origin = %+v", idx.Origin)
	}
}

func TestFetchAllPlainPackages(t *testing.T) {
	release := releaseWithSHA256(sha256Hex(testPackages), len(testPackages))

	mux := http.NewServeMux()
	mux.HandleFunc("/debian/dists/bookworm/Release", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(release))
	})
	mux.HandleFunc("/debian/dists/bookworm/main/binary-amd64/Packages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPackages))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	indexes, err := testFetcher(t.TempDir(), nil).FetchAll(context.Background(), []sources.Entry{testEntry(t, srv.URL)})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(indexes) != 1 {
		t.Fatalf("got %d indexes, want 1", len(indexes))
	}
}

func TestFetchAllReleaseMissing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := testFetcher(t.TempDir(), nil).FetchAll(context.Background(), []sources.Entry{testEntry(t, srv.URL)})
	var missing *ReleaseMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want ReleaseMissingError", err)
	}
	if missing.Suite != "bookworm" {
		t.Errorf("Suite = %q, want bookworm", missing.Suite)
	}
}

func TestFetchAllIndexMissing(t *testing.T) {
	release := releaseWithSHA256(sha256Hex(testPackages), len(testPackages))

	mux := http.NewServeMux()
	mux.HandleFunc("/debian/dists/bookworm/Release", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(release))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := testFetcher(t.TempDir(), nil).FetchAll(context.Background(), []sources.Entry{testEntry(t, srv.URL)})
	var missing *IndexMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want IndexMissingError", err)
	}
	if missing.Component != "main" || missing.Architecture != "amd64" {
		t.Errorf("missing = %+v", missing)
	}
}

// The recorded size matches but the digest does not.
func TestFetchAllChecksumMismatch(t *testing.T) {
	wrong := strings.Repeat("0", 64)
	release := releaseWithSHA256(wrong, len(testPackages))

	mux := http.NewServeMux()
	mux.HandleFunc("/debian/dists/bookworm/Release", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(release))
	})
	mux.HandleFunc("/debian/dists/bookworm/main/binary-amd64/Packages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPackages))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := testFetcher(t.TempDir(), nil).FetchAll(context.Background(), []sources.Entry{testEntry(t, srv.URL)})
	var mismatch *integrity.ChecksumMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("error = %v, want ChecksumMismatchError", err)
	}
	if mismatch.Expected != wrong {
		t.Errorf("Expected = %q", mismatch.Expected)
	}
}

func TestFetchAllSizeMismatch(t *testing.T) {
	release := releaseWithSHA256(sha256Hex(testPackages), len(testPackages)+100)

	mux := http.NewServeMux()
	mux.HandleFunc("/debian/dists/bookworm/Release", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(release))
	})
	mux.HandleFunc("/debian/dists/bookworm/main/binary-amd64/Packages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPackages))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := testFetcher(t.TempDir(), nil).FetchAll(context.Background(), []sources.Entry{testEntry(t, srv.URL)})
	var mismatch *integrity.SizeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("error = %v, want SizeMismatchError", err)
	}
}

// A Release carrying only MD5 sums verifies with a warning.
func TestFetchAllMD5Fallback(t *testing.T) {
	release := fmt.Sprintf(`Origin: Debian
Codename: bookworm
Architectures: amd64
Components: main
MD5Sum:
 %s %d main/binary-amd64/Packages
`, md5Hex(testPackages), len(testPackages))

	mux := http.NewServeMux()
	mux.HandleFunc("/debian/dists/bookworm/Release", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(release))
	})
	mux.HandleFunc("/debian/dists/bookworm/main/binary-amd64/Packages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPackages))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var warnings bytes.Buffer
	indexes, err := testFetcher(t.TempDir(), &warnings).FetchAll(context.Background(), []sources.Entry{testEntry(t, srv.URL)})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(indexes) != 1 {
		t.Fatalf("got %d indexes, want 1", len(indexes))
	}
	if !strings.Contains(warnings.String(), "falling back to MD5") {
		t.Errorf("warnings = %q, want an MD5 fallback warning", warnings.String())
	}
}
