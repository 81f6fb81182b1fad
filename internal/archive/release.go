package archive

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// FileHash is one entry of a Release hash block: the hex digest and size
// recorded for a file relative to the dists/<suite>/ directory.
type FileHash struct {
	Digest string
	Size   uint64
}

// Release is the parsed summary of a dists/<suite>/Release file.
type Release struct {
	Origin      string
	Label       string
	Version     string
	Suite       string
	Codename    string
	Date        string
	ValidUntil  string
	Description string

	Architectures []string
	Components    []string

	SHA256 map[string]FileHash
	MD5    map[string]FileHash
}

// ParseError indicates malformed index metadata.
type ParseError struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse failure: %s", e.Reason)
	}
	return fmt.Sprintf("parse failure in %s: %s", e.Path, e.Reason)
}

// ParseRelease parses a Release file. Scalar and list keys read
// "Key: value" lines; the SHA256: and MD5Sum: blocks are followed by
// continuation lines " <digest> <size> <path>" and end at the first
// non-indented line.
func ParseRelease(r io.Reader) (*Release, error) {
	release := &Release{
		SHA256: make(map[string]FileHash),
		MD5:    make(map[string]FileHash),
	}

	var block map[string]FileHash
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		if line[0] == ' ' || line[0] == '\t' {
			if block == nil {
				continue
			}
			fields := strings.Fields(line)
			if len(fields) != 3 {
				return nil, &ParseError{Reason: fmt.Sprintf("malformed hash line %q", line)}
			}
			size, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return nil, &ParseError{Reason: fmt.Sprintf("malformed hash size in %q", line)}
			}
			block[fields[2]] = FileHash{Digest: fields[0], Size: size}
			continue
		}

		block = nil
		key, value, found := strings.Cut(line, ":")
		if !found {
			return nil, &ParseError{Reason: fmt.Sprintf("malformed line %q", line)}
		}
		value = strings.TrimSpace(value)

		switch key {
		case "Origin":
			release.Origin = value
		case "Label":
			release.Label = value
		case "Version":
			release.Version = value
		case "Suite":
			release.Suite = value
		case "Codename":
			release.Codename = value
		case "Date":
			release.Date = value
		case "Valid-Until":
			release.ValidUntil = value
		case "Description":
			release.Description = value
		case "Architectures":
			release.Architectures = strings.Fields(value)
		case "Components":
			release.Components = strings.Fields(value)
		case "SHA256":
			block = release.SHA256
		case "MD5Sum":
			block = release.MD5
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading release: %w", err)
	}
	return release, nil
}

// PackagesHash looks up the hash entry for a component's Packages index,
// preferring SHA-256 over MD5. The returned kind names the digest
// algorithm, "sha256" or "md5".
func (r *Release) PackagesHash(component, architecture string) (kind string, hash FileHash, ok bool) {
	key := component + "/binary-" + architecture + "/Packages"
	if hash, ok := r.SHA256[key]; ok {
		return "sha256", hash, true
	}
	if hash, ok := r.MD5[key]; ok {
		return "md5", hash, true
	}
	return "", FileHash{}, false
}
