// Package rootfs lays out and finalises the target root filesystem:
// the merged-/usr skeleton, dpkg bookkeeping, seed configuration
// files, install-time shims, and the output tarball.
package rootfs

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
)

// mergedUsrBase is the directory set linked into /usr on every
// architecture.
var mergedUsrBase = []string{"bin", "lib", "sbin"}

// mergedUsrExtra lists the per-architecture multilib directories that
// join the base set.
var mergedUsrExtra = map[string][]string{
	"amd64":    {"lib32", "lib64", "libx32"},
	"i386":     {"lib64", "libx32"},
	"loong64":  {"lib64"},
	"mips64el": {"lib32", "lib64", "libo32"},
	"mipsel":   {"lib32", "lib64"},
	"powerpc":  {"lib64"},
	"ppc64":    {"lib32", "lib64"},
	"ppc64el":  {"lib64"},
	"s390x":    {"lib32"},
	"sparc64":  {"lib32", "lib64"},
	"x32":      {"lib32", "lib64", "libx32"},
}

// MergedUsrDirectories returns the directory names merged into /usr
// for an architecture.
func MergedUsrDirectories(architecture string) []string {
	return append(slices.Clone(mergedUsrBase), mergedUsrExtra[architecture]...)
}

// MergeUsr creates <root>/usr/<name> for each merged directory and
// points <root>/<name> at it with a relative symlink. It must run
// before any package content lands in the root.
func MergeUsr(root, architecture string) error {
	if err := os.MkdirAll(filepath.Join(root, "usr"), 0o755); err != nil {
		return fmt.Errorf("creating usr: %w", err)
	}
	for _, name := range MergedUsrDirectories(architecture) {
		if err := os.MkdirAll(filepath.Join(root, "usr", name), 0o755); err != nil {
			return fmt.Errorf("creating usr/%s: %w", name, err)
		}
		link := filepath.Join(root, name)
		if err := os.Symlink(path.Join("usr", name), link); err != nil {
			if os.IsExist(err) {
				continue
			}
			return fmt.Errorf("linking %s: %w", name, err)
		}
	}
	return nil
}

// WriteSplitUsrWarning marks a root that keeps the split layout on a
// suite whose usrmerge conversion would otherwise run on first boot.
func WriteSplitUsrWarning(root string) error {
	if err := os.MkdirAll(filepath.Join(root, "etc"), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(root, "etc", "unsupported-skip-usrmerge-conversion"), nil, 0o644)
}
