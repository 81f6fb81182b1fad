package archive

import (
	"slices"
)

// Database maps package names to their candidate records in ingestion
// order. The same name gains one candidate per index that advertises it;
// callers that need a single record take the first.
type Database struct {
	packages map[string][]Package
}

// NewDatabase returns an empty database.
func NewDatabase() *Database {
	return &Database{packages: make(map[string][]Package)}
}

// Add appends a candidate record under its name.
func (db *Database) Add(pkg Package) {
	db.packages[pkg.Name] = append(db.packages[pkg.Name], pkg)
}

// AddAll appends every record in order.
func (db *Database) AddAll(packages []Package) {
	for _, pkg := range packages {
		db.Add(pkg)
	}
}

// Get returns the candidate list for a name.
func (db *Database) Get(name string) ([]Package, bool) {
	candidates, ok := db.packages[name]
	return candidates, ok
}

// First returns the first-ingested candidate for a name.
func (db *Database) First(name string) (Package, bool) {
	candidates, ok := db.packages[name]
	if !ok || len(candidates) == 0 {
		return Package{}, false
	}
	return candidates[0], true
}

// Has reports whether the name is a database key.
func (db *Database) Has(name string) bool {
	_, ok := db.packages[name]
	return ok
}

// Len returns the number of distinct names.
func (db *Database) Len() int {
	return len(db.packages)
}

// Names returns every package name in sorted order.
func (db *Database) Names() []string {
	names := make([]string, 0, len(db.packages))
	for name := range db.packages {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
