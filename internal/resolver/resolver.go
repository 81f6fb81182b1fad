// Package resolver computes the transitive dependency closure of a
// seed set over a package database. It resolves names, not versions:
// version constraints are carried through but never enforced, and only
// the first alternative of each dependency clause is considered.
package resolver

import (
	"fmt"
	"slices"

	"github.com/debstrap-dev/debstrap/internal/archive"
)

// UnresolvableError indicates a required name with no real package and
// no provider in the database.
type UnresolvableError struct {
	Name string
}

// Error implements the error interface.
func (e *UnresolvableError) Error() string {
	return fmt.Sprintf("unresolvable dependency %q", e.Name)
}

// EmptyClosureError indicates that resolution finished with nothing to
// install.
type EmptyClosureError struct{}

// Error implements the error interface.
func (e *EmptyClosureError) Error() string {
	return "dependency resolution produced an empty package set"
}

// provider pairs a package with the virtual names it provides.
type provider struct {
	pkg      archive.Package
	provides []string
}

// Resolve grows seed into a sorted, duplicate-free closure. Packages
// named in prohibit are stripped from each frontier before it joins
// the closure, so their dependencies are never followed. When
// considerRecommends is set, Recommends fields are treated like
// Depends.
func Resolve(db *archive.Database, seed []archive.Package, considerRecommends bool, prohibit []string) ([]archive.Package, error) {
	prohibited := make(map[string]bool, len(prohibit))
	for _, name := range prohibit {
		prohibited[name] = true
	}

	providers := buildProviders(db)

	frontier := slices.Clone(seed)
	var closure []archive.Package
	for len(frontier) > 0 {
		frontier = slices.DeleteFunc(frontier, func(p archive.Package) bool { return prohibited[p.Name] })
		frontier = sortDedup(frontier)
		closure = sortDedup(append(closure, frontier...))

		var next []archive.Package
		for _, pkg := range frontier {
			names := pkg.Depends.Names()
			names = append(names, pkg.PreDepends.Names()...)
			if considerRecommends {
				names = append(names, pkg.Recommends.Names()...)
			}
			for _, name := range names {
				if candidate, ok := db.First(name); ok {
					next = append(next, candidate)
					continue
				}
				resolved, ok := resolveVirtual(name, providers, closure)
				if !ok {
					return nil, &UnresolvableError{Name: name}
				}
				if resolved != nil {
					next = append(next, *resolved)
				}
			}
		}
		frontier = difference(sortDedup(next), closure)
	}

	if len(closure) == 0 {
		return nil, &EmptyClosureError{}
	}
	return closure, nil
}

// buildProviders indexes every database name whose first candidate
// provides at least one virtual name, in package sort order.
func buildProviders(db *archive.Database) []provider {
	var providers []provider
	for _, name := range db.Names() {
		pkg, ok := db.First(name)
		if !ok {
			continue
		}
		names := pkg.Provides.AllNames()
		if len(names) == 0 {
			continue
		}
		providers = append(providers, provider{pkg: pkg, provides: names})
	}
	slices.SortFunc(providers, func(a, b provider) int { return a.pkg.Compare(b.pkg) })
	return providers
}

// resolveVirtual satisfies name through the providers index. A
// provider already in the closure satisfies the requirement without
// adding anything; otherwise the first provider in sort order is
// returned. ok is false when no provider exists at all.
func resolveVirtual(name string, providers []provider, closure []archive.Package) (pkg *archive.Package, ok bool) {
	var first *archive.Package
	for i := range providers {
		if !slices.Contains(providers[i].provides, name) {
			continue
		}
		if containsPackage(closure, providers[i].pkg) {
			return nil, true
		}
		if first == nil {
			first = &providers[i].pkg
		}
	}
	if first == nil {
		return nil, false
	}
	return first, true
}

func sortDedup(pkgs []archive.Package) []archive.Package {
	slices.SortFunc(pkgs, archive.Package.Compare)
	return slices.CompactFunc(pkgs, func(a, b archive.Package) bool { return a.Compare(b) == 0 })
}

// difference removes closure members from next. Both slices must be
// sorted.
func difference(next, closure []archive.Package) []archive.Package {
	return slices.DeleteFunc(next, func(p archive.Package) bool { return containsPackage(closure, p) })
}

func containsPackage(sorted []archive.Package, pkg archive.Package) bool {
	_, found := slices.BinarySearchFunc(sorted, pkg, archive.Package.Compare)
	return found
}
