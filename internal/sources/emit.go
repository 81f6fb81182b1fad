package sources

import (
	"fmt"
	"io"
	"strings"

	"github.com/debstrap-dev/debstrap/internal/archive"
)

// ListFileName returns the file name written under etc/apt/sources.list.d
// (deb822) or etc/apt (one-line) in the target root.
func ListFileName(format archive.SourcesListFormat) string {
	if format == archive.FormatOneLine {
		return "sources.list"
	}
	return "sources.sources"
}

// WriteList emits the sources list for the target root in the chosen
// dialect.
func WriteList(w io.Writer, entries []Entry, format archive.SourcesListFormat) error {
	if format == archive.FormatOneLine {
		return writeOneLine(w, entries)
	}
	return writeDeb822(w, entries)
}

// writeDeb822 writes one stanza per entry, with a Signed-By keyring chosen
// from the entry's first suite and architecture.
func writeDeb822(w io.Writer, entries []Entry) error {
	for i, entry := range entries {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}

		uris := make([]string, len(entry.URIs))
		for j, uri := range entry.URIs {
			uris[j] = uri.String()
		}

		keyring := archive.KeyringPath(entry.Suites[0], entry.Architectures[0])
		_, err := fmt.Fprintf(w, "Types: deb deb-src\nURIs: %s\nSuites: %s\nComponents: %s\nSigned-By: %s\n",
			strings.Join(uris, " "),
			strings.Join(entry.Suites, " "),
			strings.Join(entry.Components, " "),
			keyring)
		if err != nil {
			return err
		}
	}
	return nil
}

// writeOneLine writes a deb-src and a deb line for every entry, uri, and
// suite combination.
func writeOneLine(w io.Writer, entries []Entry) error {
	for _, entry := range entries {
		components := strings.Join(entry.Components, " ")
		for _, uri := range entry.URIs {
			for _, suite := range entry.Suites {
				if _, err := fmt.Fprintf(w, "deb-src %s %s %s\n", uri.String(), suite, components); err != nil {
					return err
				}
				if _, err := fmt.Fprintf(w, "deb %s %s %s\n", uri.String(), suite, components); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
