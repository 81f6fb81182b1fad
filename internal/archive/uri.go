// Package archive models a Debian-family package archive: mirror URIs,
// suites, architectures, Release and Packages metadata, and the in-memory
// package database built from downloaded indices.
package archive

import (
	"fmt"
	"path"
	"strings"
)

// URI is a mirror location split into scheme and path. Scheme keeps its
// trailing "://" so that Scheme+Path reproduces a fetchable prefix; Path
// carries no leading or trailing slash.
type URI struct {
	Scheme string
	Path   string
}

// InvalidURIError indicates a mirror URI that is not plain http or https.
type InvalidURIError struct {
	URI string
}

// Error implements the error interface.
func (e *InvalidURIError) Error() string {
	return fmt.Sprintf("invalid archive URI %q: only http:// and https:// are supported", e.URI)
}

// ParseURI splits a mirror URI into scheme and path. Consecutive slashes in
// the path collapse to one; leading and trailing slashes are stripped.
func ParseURI(s string) (URI, error) {
	var scheme string
	switch {
	case strings.HasPrefix(s, "http://"):
		scheme = "http://"
	case strings.HasPrefix(s, "https://"):
		scheme = "https://"
	default:
		return URI{}, &InvalidURIError{URI: s}
	}

	rest := strings.TrimPrefix(s, scheme)
	for strings.Contains(rest, "//") {
		rest = strings.ReplaceAll(rest, "//", "/")
	}
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return URI{}, &InvalidURIError{URI: s}
	}
	return URI{Scheme: scheme, Path: rest}, nil
}

// String reassembles the URI in fetchable form.
func (u URI) String() string {
	return u.Scheme + u.Path
}

// URL joins path elements onto the URI.
func (u URI) URL(elem ...string) string {
	return u.Scheme + path.Join(append([]string{u.Path}, elem...)...)
}

// FlatName returns the path with separators replaced by underscores, the
// form used to name downloaded index files in the workspace.
func (u URI) FlatName() string {
	return strings.ReplaceAll(u.Path, "/", "_")
}
