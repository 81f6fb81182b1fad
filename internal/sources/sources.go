// Package sources builds the repository descriptions the pipeline fetches
// from, either by parsing deb822-style .sources files or by synthesising
// an entry from command-line inputs.
package sources

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/debstrap-dev/debstrap/internal/archive"
	"github.com/debstrap-dev/debstrap/internal/message"
)

// Entry is one repository descriptor: the mirrors to fetch from and the
// suites, components, and architectures to fetch for.
type Entry struct {
	URIs          []archive.URI
	Suites        []string
	Components    []string
	Architectures []string
}

// InvalidSourcesFileError indicates a sources description that fails
// validation.
type InvalidSourcesFileError struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *InvalidSourcesFileError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid sources: %s", e.Reason)
	}
	return fmt.Sprintf("invalid sources file %s: %s", e.Path, e.Reason)
}

// dedupe removes duplicates preserving first-occurrence order.
func dedupe(values []string) []string {
	var out []string
	for _, v := range values {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// validate applies the shared entry rules: non-empty URIs, a primary
// first suite, main as the first component, and translatable
// architectures.
func (e *Entry) validate(path string) error {
	if len(e.URIs) == 0 {
		return &InvalidSourcesFileError{Path: path, Reason: "no URIs"}
	}
	if len(e.Suites) == 0 {
		return &InvalidSourcesFileError{Path: path, Reason: "no suites"}
	}
	if !archive.IsPrimarySuite(e.Suites[0]) {
		return &archive.UnrecognisedSuiteError{Suite: e.Suites[0]}
	}
	if len(e.Components) == 0 {
		return &InvalidSourcesFileError{Path: path, Reason: "no components"}
	}
	if e.Components[0] != "main" {
		return &InvalidSourcesFileError{Path: path, Reason: fmt.Sprintf("first component must be main, got %q", e.Components[0])}
	}
	if len(e.Architectures) == 0 {
		return &InvalidSourcesFileError{Path: path, Reason: "no architectures"}
	}

	for i, arch := range e.Architectures {
		debian, err := archive.DebianArchitectureName(arch)
		if err != nil {
			return err
		}
		e.Architectures[i] = debian
	}

	e.Suites = dedupe(e.Suites)
	e.Components = dedupe(e.Components)
	e.Architectures = dedupe(e.Architectures)
	return nil
}

// ParseFile parses a deb822-style .sources stream: records separated by
// blank lines, with URIs, Suites, Components, and Architectures keys
// holding whitespace-separated tokens. Unrecognised keys are ignored.
func ParseFile(r io.Reader, path string) ([]Entry, error) {
	var entries []Entry
	var current *Entry
	sawKey := false

	finish := func() error {
		if current == nil || !sawKey {
			current = nil
			sawKey = false
			return nil
		}
		if current.Architectures == nil {
			host, err := archive.HostArchitecture()
			if err != nil {
				return err
			}
			current.Architectures = []string{host}
		}
		if err := current.validate(path); err != nil {
			return err
		}
		entries = append(entries, *current)
		current = nil
		sawKey = false
		return nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if err := finish(); err != nil {
				return nil, err
			}
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			return nil, &InvalidSourcesFileError{Path: path, Reason: fmt.Sprintf("malformed line %q", line)}
		}
		if current == nil {
			current = &Entry{}
		}
		tokens := strings.Fields(value)

		switch strings.TrimSpace(key) {
		case "URIs":
			for _, token := range tokens {
				uri, err := archive.ParseURI(token)
				if err != nil {
					return nil, err
				}
				current.URIs = append(current.URIs, uri)
			}
			sawKey = true
		case "Suites":
			current.Suites = append(current.Suites, tokens...)
			sawKey = true
		case "Components":
			current.Components = append(current.Components, tokens...)
			sawKey = true
		case "Architectures":
			current.Architectures = append(current.Architectures, tokens...)
			sawKey = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading sources: %w", err)
	}
	if err := finish(); err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, &InvalidSourcesFileError{Path: path, Reason: "no entries"}
	}
	return entries, nil
}

// Load reads sources from a file, or from every .sources file in a
// directory in name order.
func Load(path string) ([]Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("sources path: %w", err)
	}

	if !info.IsDir() {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening sources file: %w", err)
		}
		defer file.Close()
		return ParseFile(file, path)
	}

	names, err := filepath.Glob(filepath.Join(path, "*.sources"))
	if err != nil {
		return nil, fmt.Errorf("scanning sources directory: %w", err)
	}
	slices.Sort(names)

	var entries []Entry
	for _, name := range names {
		file, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("opening sources file: %w", err)
		}
		parsed, err := ParseFile(file, name)
		file.Close()
		if err != nil {
			return nil, err
		}
		entries = append(entries, parsed...)
	}
	if len(entries) == 0 {
		return nil, &InvalidSourcesFileError{Path: path, Reason: "no entries"}
	}
	return entries, nil
}

// Input is the raw command-line description of a single entry.
type Input struct {
	Mirrors       []string
	Suites        []string
	Components    []string
	Architectures []string
}

// FromFlags synthesises one entry from command-line inputs. Components
// default to main, architectures to the host, and mirrors to the default
// for the first suite and architecture. The architecture token "host"
// expands to the host plus everything arch-test reports as natively
// executable.
func FromFlags(ctx context.Context, in Input, log message.Logger) (Entry, error) {
	entry := Entry{
		Suites:     slices.Clone(in.Suites),
		Components: slices.Clone(in.Components),
	}
	if len(entry.Suites) == 0 {
		return Entry{}, &InvalidSourcesFileError{Reason: "no suites"}
	}
	if len(entry.Components) == 0 {
		entry.Components = []string{"main"}
	}

	architectures, err := expandArchitectures(ctx, in.Architectures, log)
	if err != nil {
		return Entry{}, err
	}
	entry.Architectures = architectures

	if len(in.Mirrors) == 0 {
		first, err := archive.DebianArchitectureName(entry.Architectures[0])
		if err != nil {
			return Entry{}, err
		}
		mirrors, err := archive.DefaultMirrors(entry.Suites[0], first)
		if err != nil {
			return Entry{}, err
		}
		entry.URIs = mirrors
	} else {
		for _, mirror := range in.Mirrors {
			uri, err := archive.ParseURI(mirror)
			if err != nil {
				return Entry{}, err
			}
			entry.URIs = append(entry.URIs, uri)
		}
	}

	if err := entry.validate(""); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// expandArchitectures resolves the architecture list: empty defaults to
// the host, and the token "host" expands to the host plus the output of
// arch-test -n, keeping further user-supplied names afterwards.
func expandArchitectures(ctx context.Context, architectures []string, log message.Logger) ([]string, error) {
	host, err := archive.HostArchitecture()
	if err != nil {
		return nil, err
	}
	if len(architectures) == 0 {
		return []string{host}, nil
	}

	var out []string
	for _, arch := range architectures {
		if arch != "host" {
			out = append(out, arch)
			continue
		}
		out = append(out, host)
		for _, native := range nativeArchitectures(ctx, log) {
			if _, err := archive.DebianArchitectureName(native); err != nil {
				log.Debug("skipping arch-test result", "architecture", native)
				continue
			}
			out = append(out, native)
		}
	}
	return out, nil
}

// nativeArchitectures runs arch-test -n and returns one architecture per
// output line. A missing or failing arch-test degrades to nothing with a
// warning.
func nativeArchitectures(ctx context.Context, log message.Logger) []string {
	out, err := exec.CommandContext(ctx, "arch-test", "-n").Output()
	if err != nil {
		log.Warn("arch-test unavailable, using host architecture only", "error", err)
		return nil
	}
	return strings.Fields(string(out))
}
