package bootstrap

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is the scratch directory every pipeline stage writes into.
// Layout: lists/ holds the renamed index files, packages/downloaded/
// the fetched .deb files before partitioning, target/ the root tree
// when output is a tarball.
type Workspace struct {
	Root string

	// created records whether the root was made by us rather than
	// supplied through an override, purely for the removal warning.
	created bool
}

// NewWorkspace creates the workspace scratch directory. With an empty
// override a fresh directory with a random suffix is created under the
// system temporary directory; otherwise the override path must already
// exist and be empty.
func NewWorkspace(override string) (*Workspace, error) {
	if override != "" {
		empty, err := isEmptyDir(override)
		if err != nil {
			return nil, fmt.Errorf("workspace directory: %w", err)
		}
		if !empty {
			return nil, fmt.Errorf("workspace directory %s is not empty", override)
		}
		ws := &Workspace{Root: override}
		return ws, ws.scaffold()
	}

	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return nil, fmt.Errorf("generating workspace suffix: %w", err)
	}
	root := filepath.Join(os.TempDir(), "debstrap_"+hex.EncodeToString(suffix))
	if err := os.Mkdir(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	ws := &Workspace{Root: root, created: true}
	if err := ws.scaffold(); err != nil {
		os.RemoveAll(root)
		return nil, err
	}
	return ws, nil
}

func (w *Workspace) scaffold() error {
	for _, dir := range []string{w.ListsDir(), w.DownloadedDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating workspace layout: %w", err)
		}
	}
	return nil
}

// ListsDir holds the downloaded Release and Packages indices.
func (w *Workspace) ListsDir() string {
	return filepath.Join(w.Root, "lists")
}

// PackagesDir holds the per-bucket package directories.
func (w *Workspace) PackagesDir() string {
	return filepath.Join(w.Root, "packages")
}

// DownloadedDir holds fetched .deb files before partitioning.
func (w *Workspace) DownloadedDir() string {
	return filepath.Join(w.Root, "packages", "downloaded")
}

// TargetDir is the root tree assembled when output is a tarball.
func (w *Workspace) TargetDir() string {
	return filepath.Join(w.Root, "target")
}

// Remove deletes the workspace tree.
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.Root)
}

// ignoredTargetEntries lists directory names tolerated in an existing
// output directory: partitioning tools create these before a bootstrap
// runs.
var ignoredTargetEntries = map[string]bool{
	"boot":       true,
	"efi":        true,
	"lost+found": true,
}

// CheckTargetDirectory verifies the output directory is absent or
// contains nothing besides boot, efi and lost+found.
func CheckTargetDirectory(path string) error {
	entries, err := os.ReadDir(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("output directory: %w", err)
	}
	for _, entry := range entries {
		if !ignoredTargetEntries[entry.Name()] {
			return fmt.Errorf("output directory %s is not empty", path)
		}
	}
	return nil
}

func isEmptyDir(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
