package archive

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Origin records where a package candidate was advertised: the index it
// was read from and the mirror serving it.
type Origin struct {
	Suite        string
	Component    string
	Architecture string
	URI          URI
}

// Package is one candidate binary package, parsed from a Packages stanza.
// Field declaration order defines the total order used for sort-and-dedup.
type Package struct {
	Name         string
	Version      string
	Architecture string

	Section        string
	Priority       string
	Essential      bool
	BuildEssential bool

	Depends    RelationshipField
	PreDepends RelationshipField
	Recommends RelationshipField
	Suggests   RelationshipField
	Enhances   RelationshipField
	Breaks     RelationshipField
	Conflicts  RelationshipField
	Provides   RelationshipField
	Replaces   RelationshipField

	FileName      string
	Size          uint64
	InstalledSize uint64

	Maintainer  string
	Description string
	Homepage    string

	Origin Origin
}

// ParsePackageStanza parses a single stanza of a Packages index.
// Continuation lines are ignored; Description keeps its first line only,
// with em-dashes normalised to ASCII hyphens.
func ParsePackageStanza(stanza string, origin Origin) (Package, error) {
	pkg := Package{Origin: origin}

	for _, line := range strings.Split(stanza, "\n") {
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			return Package{}, &ParseError{Reason: fmt.Sprintf("malformed stanza line %q", line)}
		}
		value = strings.TrimSpace(value)

		switch key {
		case "Package":
			pkg.Name = value
		case "Version":
			pkg.Version = value
		case "Architecture":
			pkg.Architecture = value
		case "Section":
			pkg.Section = value
		case "Priority":
			pkg.Priority = value
		case "Essential":
			pkg.Essential = value == "yes"
		case "Build-Essential":
			pkg.BuildEssential = value == "yes"
		case "Depends":
			pkg.Depends = ParseRelationshipField(value)
		case "Pre-Depends":
			pkg.PreDepends = ParseRelationshipField(value)
		case "Recommends":
			pkg.Recommends = ParseRelationshipField(value)
		case "Suggests":
			pkg.Suggests = ParseRelationshipField(value)
		case "Enhances":
			pkg.Enhances = ParseRelationshipField(value)
		case "Breaks":
			pkg.Breaks = ParseRelationshipField(value)
		case "Conflicts":
			pkg.Conflicts = ParseRelationshipField(value)
		case "Provides":
			pkg.Provides = ParseRelationshipField(value)
		case "Replaces":
			pkg.Replaces = ParseRelationshipField(value)
		case "Filename":
			pkg.FileName = value
		case "Size":
			size, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return Package{}, &ParseError{Reason: fmt.Sprintf("malformed Size %q", value)}
			}
			pkg.Size = size
		case "Installed-Size":
			size, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return Package{}, &ParseError{Reason: fmt.Sprintf("malformed Installed-Size %q", value)}
			}
			pkg.InstalledSize = size
		case "Maintainer":
			pkg.Maintainer = value
		case "Description":
			pkg.Description = strings.ReplaceAll(value, "—", "-")
		case "Homepage":
			pkg.Homepage = value
		}
	}

	switch {
	case pkg.Name == "":
		return Package{}, &ParseError{Reason: "stanza without Package field"}
	case pkg.Version == "":
		return Package{}, &ParseError{Reason: fmt.Sprintf("package %q without Version field", pkg.Name)}
	case pkg.Architecture == "":
		return Package{}, &ParseError{Reason: fmt.Sprintf("package %q without Architecture field", pkg.Name)}
	case pkg.FileName == "":
		return Package{}, &ParseError{Reason: fmt.Sprintf("package %q without Filename field", pkg.Name)}
	}
	return pkg, nil
}

// ParsePackages parses a whole Packages index: stanzas separated by blank
// lines, each fed through ParsePackageStanza.
func ParsePackages(r io.Reader, origin Origin) ([]Package, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading packages index: %w", err)
	}

	var packages []Package
	for _, stanza := range strings.Split(string(data), "\n\n") {
		if strings.TrimSpace(stanza) == "" {
			continue
		}
		pkg, err := ParsePackageStanza(stanza, origin)
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}
	return packages, nil
}

// Stanza reassembles the package into control key-value form. Parsing the
// result yields an identical record.
func (p Package) Stanza() string {
	var b strings.Builder
	writeField := func(key, value string) {
		if value != "" {
			b.WriteString(key)
			b.WriteString(": ")
			b.WriteString(value)
			b.WriteString("\n")
		}
	}

	writeField("Package", p.Name)
	writeField("Version", p.Version)
	writeField("Architecture", p.Architecture)
	writeField("Section", p.Section)
	writeField("Priority", p.Priority)
	if p.Essential {
		writeField("Essential", "yes")
	}
	if p.BuildEssential {
		writeField("Build-Essential", "yes")
	}
	writeField("Pre-Depends", p.PreDepends.String())
	writeField("Depends", p.Depends.String())
	writeField("Recommends", p.Recommends.String())
	writeField("Suggests", p.Suggests.String())
	writeField("Enhances", p.Enhances.String())
	writeField("Breaks", p.Breaks.String())
	writeField("Conflicts", p.Conflicts.String())
	writeField("Provides", p.Provides.String())
	writeField("Replaces", p.Replaces.String())
	writeField("Filename", p.FileName)
	if p.Size > 0 {
		writeField("Size", strconv.FormatUint(p.Size, 10))
	}
	if p.InstalledSize > 0 {
		writeField("Installed-Size", strconv.FormatUint(p.InstalledSize, 10))
	}
	writeField("Maintainer", p.Maintainer)
	writeField("Description", p.Description)
	writeField("Homepage", p.Homepage)
	return b.String()
}

// Compare orders packages lexicographically over their fields in
// declaration order.
func (p Package) Compare(o Package) int {
	if c := strings.Compare(p.Name, o.Name); c != 0 {
		return c
	}
	if c := strings.Compare(p.Version, o.Version); c != 0 {
		return c
	}
	if c := strings.Compare(p.Architecture, o.Architecture); c != 0 {
		return c
	}
	if c := strings.Compare(p.Section, o.Section); c != 0 {
		return c
	}
	if c := strings.Compare(p.Priority, o.Priority); c != 0 {
		return c
	}
	if c := compareBool(p.Essential, o.Essential); c != 0 {
		return c
	}
	if c := compareBool(p.BuildEssential, o.BuildEssential); c != 0 {
		return c
	}
	relations := [][2]RelationshipField{
		{p.Depends, o.Depends},
		{p.PreDepends, o.PreDepends},
		{p.Recommends, o.Recommends},
		{p.Suggests, o.Suggests},
		{p.Enhances, o.Enhances},
		{p.Breaks, o.Breaks},
		{p.Conflicts, o.Conflicts},
		{p.Provides, o.Provides},
		{p.Replaces, o.Replaces},
	}
	for _, pair := range relations {
		if c := strings.Compare(pair[0].String(), pair[1].String()); c != 0 {
			return c
		}
	}
	if c := strings.Compare(p.FileName, o.FileName); c != 0 {
		return c
	}
	if c := compareUint(p.Size, o.Size); c != 0 {
		return c
	}
	if c := compareUint(p.InstalledSize, o.InstalledSize); c != 0 {
		return c
	}
	if c := strings.Compare(p.Maintainer, o.Maintainer); c != 0 {
		return c
	}
	if c := strings.Compare(p.Description, o.Description); c != 0 {
		return c
	}
	if c := strings.Compare(p.Homepage, o.Homepage); c != 0 {
		return c
	}
	if c := strings.Compare(p.Origin.Suite, o.Origin.Suite); c != 0 {
		return c
	}
	if c := strings.Compare(p.Origin.Component, o.Origin.Component); c != 0 {
		return c
	}
	if c := strings.Compare(p.Origin.Architecture, o.Origin.Architecture); c != 0 {
		return c
	}
	if c := strings.Compare(p.Origin.URI.Scheme, o.Origin.URI.Scheme); c != 0 {
		return c
	}
	return strings.Compare(p.Origin.URI.Path, o.Origin.URI.Path)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
