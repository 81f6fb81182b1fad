package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/debstrap-dev/debstrap/internal/archive"
	"github.com/debstrap-dev/debstrap/internal/compress"
	"github.com/debstrap-dev/debstrap/internal/integrity"
	"github.com/debstrap-dev/debstrap/internal/message"
	"github.com/debstrap-dev/debstrap/internal/sources"
)

// ReleaseMissingError indicates a suite without a Release file on the
// probed mirror.
type ReleaseMissingError struct {
	Suite string
	URL   string
}

// Error implements the error interface.
func (e *ReleaseMissingError) Error() string {
	return fmt.Sprintf("no Release file for suite %q at %s", e.Suite, e.URL)
}

// IndexMissingError indicates that no Packages index, compressed or
// plain, exists for a component and architecture.
type IndexMissingError struct {
	Component    string
	Architecture string
	URL          string
}

// Error implements the error interface.
func (e *IndexMissingError) Error() string {
	return fmt.Sprintf("no Packages index for %s/binary-%s under %s", e.Component, e.Architecture, e.URL)
}

// Index locates one verified Packages file and the origin it serves.
type Index struct {
	Path   string
	Origin archive.Origin
}

// IndexFetcher downloads Release and Packages files into the lists
// directory, giving each the canonical flattened name and verifying
// every Packages file against its Release checksums.
type IndexFetcher struct {
	Client   *Client
	ListsDir string
	Printer  *message.Printer
	Log      message.Logger
}

// packagesCandidates is the fixed probe order for index files.
var packagesCandidates = []string{"Packages.xz", "Packages.gz", "Packages.bz2", "Packages.lzma", "Packages"}

// FetchAll walks entries in entry, URI, suite, component, architecture
// order and returns one Index per origin. The first failure aborts.
func (f *IndexFetcher) FetchAll(ctx context.Context, entries []sources.Entry) ([]Index, error) {
	var indexes []Index
	for _, entry := range entries {
		for _, uri := range entry.URIs {
			for _, suite := range entry.Suites {
				release, err := f.fetchRelease(ctx, uri, suite)
				if err != nil {
					return nil, err
				}
				for _, component := range entry.Components {
					for _, arch := range entry.Architectures {
						idx, err := f.fetchPackages(ctx, uri, suite, component, arch, release)
						if err != nil {
							return nil, err
						}
						indexes = append(indexes, idx)
					}
				}
			}
		}
	}
	return indexes, nil
}

func (f *IndexFetcher) fetchRelease(ctx context.Context, uri archive.URI, suite string) (*archive.Release, error) {
	url := uri.URL("dists", suite, "Release")
	ok, err := f.Client.Exists(ctx, url)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ReleaseMissingError{Suite: suite, URL: url}
	}

	dest := filepath.Join(f.ListsDir, uri.FlatName()+"_dists_"+suite+"_Release")
	f.Log.Debug("fetching release", "url", url, "dest", dest)
	if err := f.Client.DownloadFile(ctx, url, dest); err != nil {
		return nil, err
	}

	file, err := os.Open(dest)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dest, err)
	}
	defer file.Close()
	return archive.ParseRelease(file)
}

func (f *IndexFetcher) fetchPackages(ctx context.Context, uri archive.URI, suite, component, arch string, release *archive.Release) (Index, error) {
	canonical := filepath.Join(f.ListsDir,
		uri.FlatName()+"_dists_"+suite+"_"+component+"_binary-"+arch+"_Packages")

	path, err := f.downloadFirstCandidate(ctx, uri, suite, component, arch, canonical)
	if err != nil {
		return Index{}, err
	}

	if path != canonical {
		if path, err = compress.DecompressFile(path); err != nil {
			return Index{}, err
		}
	}

	kind, hash, ok := release.PackagesHash(component, arch)
	if !ok {
		return Index{}, &archive.ParseError{
			Path:   path,
			Reason: fmt.Sprintf("release lists no hash for %s/binary-%s/Packages", component, arch),
		}
	}
	if kind == integrity.KindMD5 {
		f.Printer.Warnf("no SHA256 entry for %s/binary-%s/Packages, falling back to MD5", component, arch)
	}
	if err := integrity.VerifyFile(kind, path, hash.Digest, hash.Size); err != nil {
		return Index{}, err
	}

	return Index{
		Path: path,
		Origin: archive.Origin{
			Suite:        suite,
			Component:    component,
			Architecture: arch,
			URI:          uri,
		},
	}, nil
}

// downloadFirstCandidate probes the candidate names in order and
// downloads the first that exists, keeping its compression extension.
func (f *IndexFetcher) downloadFirstCandidate(ctx context.Context, uri archive.URI, suite, component, arch, canonical string) (string, error) {
	base := []string{"dists", suite, component, "binary-" + arch}
	for _, candidate := range packagesCandidates {
		url := uri.URL(append(base, candidate)...)
		ok, err := f.Client.Exists(ctx, url)
		if err != nil {
			return "", err
		}
		if !ok {
			f.Log.Debug("index candidate absent", "url", url)
			continue
		}
		dest := canonical + compress.Extension(candidate)
		f.Log.Debug("fetching index", "url", url, "dest", dest)
		if err := f.Client.DownloadFile(ctx, url, dest); err != nil {
			return "", err
		}
		return dest, nil
	}
	return "", &IndexMissingError{
		Component:    component,
		Architecture: arch,
		URL:          uri.URL(base...),
	}
}
