package deb

import (
	"github.com/debstrap-dev/debstrap/internal/archive"
)

// Bucket names in install order. Packages land in the first bucket
// their priority grants; everything else is remaining.
var Buckets = []string{"essential", "required", "important", "standard", "remaining"}

// Partition groups packages into install buckets by priority.
// markEssential forces packages into the essential bucket by name,
// markNonEssential demotes them to their priority bucket.
func Partition(pkgs []archive.Package, markEssential, markNonEssential []string) map[string][]archive.Package {
	promote := make(map[string]bool, len(markEssential))
	for _, name := range markEssential {
		promote[name] = true
	}
	demote := make(map[string]bool, len(markNonEssential))
	for _, name := range markNonEssential {
		demote[name] = true
	}

	buckets := make(map[string][]archive.Package, len(Buckets))
	for _, pkg := range pkgs {
		bucket := bucketFor(pkg, promote, demote)
		buckets[bucket] = append(buckets[bucket], pkg)
	}
	return buckets
}

func bucketFor(pkg archive.Package, promote, demote map[string]bool) string {
	essential := pkg.Essential
	if promote[pkg.Name] {
		essential = true
	}
	if demote[pkg.Name] {
		essential = false
	}
	if essential {
		return "essential"
	}
	switch pkg.Priority {
	case "required":
		return "required"
	case "important":
		return "important"
	case "standard":
		return "standard"
	}
	return "remaining"
}
