// Package variant builds the initial package set for each bootstrap
// flavour, from the minimal essential set up to buildd and fully
// custom selections.
package variant

import (
	"fmt"
	"slices"

	"github.com/debstrap-dev/debstrap/internal/archive"
)

// Supported variant labels.
const (
	Essential = "essential"
	Required  = "required"
	Buildd    = "buildd"
	Important = "important"
	Standard  = "standard"
	Custom    = "custom"
)

// Labels lists the supported variants in increasing size order.
var Labels = []string{Essential, Required, Buildd, Important, Standard, Custom}

// IsValid reports whether label names a supported variant.
func IsValid(label string) bool {
	return slices.Contains(Labels, label)
}

// MissingPackageError indicates a requested package absent from every
// ingested index.
type MissingPackageError struct {
	Name string
}

// Error implements the error interface.
func (e *MissingPackageError) Error() string {
	return fmt.Sprintf("package %q not found in any package index", e.Name)
}

// Selection describes which initial set to build.
type Selection struct {
	Variant string
	// Custom lists the exact package names for the custom variant.
	Custom []string
	// Include appends packages to the set, Exclude drops them by name.
	Include []string
	Exclude []string
}

// Select builds the sorted initial set for sel. Priority-driven
// variants scan every first candidate in the database; the custom
// variant takes exactly the named packages and fails on any absence,
// as does Include.
func Select(db *archive.Database, sel Selection) ([]archive.Package, error) {
	var set []archive.Package
	switch sel.Variant {
	case Custom:
		for _, name := range sel.Custom {
			pkg, ok := db.First(name)
			if !ok {
				return nil, &MissingPackageError{Name: name}
			}
			set = append(set, pkg)
		}
	case Essential, Required, Buildd, Important, Standard:
		set = prioritySet(db, sel.Variant)
	default:
		return nil, fmt.Errorf("unknown variant %q", sel.Variant)
	}

	set, err := applyInclude(db, set, sel.Include)
	if err != nil {
		return nil, err
	}
	set = applyExclude(set, sel.Exclude)
	return sortDedup(set), nil
}

// prioritySet collects every matching first candidate, then the
// variant's named companions. A companion missing from the database is
// skipped; every real archive carries them.
func prioritySet(db *archive.Database, label string) []archive.Package {
	var set []archive.Package
	for _, name := range db.Names() {
		pkg, ok := db.First(name)
		if !ok {
			continue
		}
		if selects(label, pkg) {
			set = append(set, pkg)
		}
	}
	for _, companion := range companions(label) {
		if pkg, ok := db.First(companion); ok {
			set = append(set, pkg)
		}
	}
	return set
}

func selects(label string, pkg archive.Package) bool {
	if pkg.Essential {
		return true
	}
	switch label {
	case Required:
		return pkg.Priority == "required"
	case Buildd:
		return pkg.BuildEssential || pkg.Priority == "required"
	case Important:
		return pkg.Priority == "required" || pkg.Priority == "important"
	case Standard:
		return pkg.Priority == "required" || pkg.Priority == "important" || pkg.Priority == "standard"
	}
	return false
}

func companions(label string) []string {
	switch label {
	case Essential:
		return []string{"mawk"}
	case Required:
		return []string{"apt"}
	case Buildd:
		return []string{"apt", "build-essential"}
	}
	return nil
}

func applyInclude(db *archive.Database, set []archive.Package, include []string) ([]archive.Package, error) {
	for _, name := range include {
		if containsName(set, name) {
			continue
		}
		pkg, ok := db.First(name)
		if !ok {
			return nil, &MissingPackageError{Name: name}
		}
		set = append(set, pkg)
	}
	return set, nil
}

func applyExclude(set []archive.Package, exclude []string) []archive.Package {
	if len(exclude) == 0 {
		return set
	}
	drop := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		drop[name] = true
	}
	return slices.DeleteFunc(set, func(p archive.Package) bool { return drop[p.Name] })
}

func containsName(set []archive.Package, name string) bool {
	return slices.ContainsFunc(set, func(p archive.Package) bool { return p.Name == name })
}

func sortDedup(pkgs []archive.Package) []archive.Package {
	slices.SortFunc(pkgs, archive.Package.Compare)
	return slices.CompactFunc(pkgs, func(a, b archive.Package) bool { return a.Compare(b) == 0 })
}
