// Package bootstrap drives the full pipeline: fetch indices, resolve
// the package closure, download, extract, install inside a chroot and
// finalize the output. It owns the workspace and target directories and
// guarantees every acquired resource is released on every exit path.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/debstrap-dev/debstrap/internal/archive"
	"github.com/debstrap-dev/debstrap/internal/deb"
	"github.com/debstrap-dev/debstrap/internal/hooks"
	"github.com/debstrap-dev/debstrap/internal/message"
	"github.com/debstrap-dev/debstrap/internal/sources"
	"github.com/debstrap-dev/debstrap/internal/variant"
)

// Mode selects how far the pipeline runs before exiting successfully.
type Mode string

const (
	ModeFull             Mode = "full"
	ModePrintInitialSet  Mode = "print_initial_set"
	ModePrintTargetSet   Mode = "print_target_set"
	ModePrintBothSets    Mode = "print_both_sets"
	ModeDownloadPackages Mode = "download_packages"
	ModeExtractPackages  Mode = "extract_packages"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFull, ModePrintInitialSet, ModePrintTargetSet, ModePrintBothSets,
		ModeDownloadPackages, ModeExtractPackages:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// SkipAction names a pre-flight or cleanup action the user can suppress.
type SkipAction string

const (
	SkipArchitectureCheck    SkipAction = "architecture_check"
	SkipOutputDirectoryCheck SkipAction = "output_directory_check"
	SkipPackagesRemoval      SkipAction = "packages_removal"
	SkipWorkspaceRemoval     SkipAction = "workspace_removal"
)

// ParseSkipActions validates a list of skip action names.
func ParseSkipActions(names []string) (map[SkipAction]bool, error) {
	skip := make(map[SkipAction]bool)
	for _, name := range names {
		switch SkipAction(name) {
		case SkipArchitectureCheck, SkipOutputDirectoryCheck,
			SkipPackagesRemoval, SkipWorkspaceRemoval:
			skip[SkipAction(name)] = true
		default:
			return nil, fmt.Errorf("unknown skip action %q", name)
		}
	}
	return skip, nil
}

// OutputFormat selects the shape of the final artifact.
type OutputFormat string

const (
	FormatDirectory OutputFormat = "directory"
	FormatTarball   OutputFormat = "tarball"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatDirectory, FormatTarball:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Options carries everything the command layer resolved from flags,
// environment and defaults file.
type Options struct {
	// Entries are the validated repository descriptors.
	Entries []sources.Entry
	// Selection drives the variant selector.
	Selection variant.Selection
	// Prohibit stops the resolver from ever pulling these names in.
	Prohibit []string
	// ConsiderRecommends widens resolution to Recommends.
	ConsiderRecommends bool

	Mode   Mode
	Format OutputFormat
	// OutputPath is the target directory (directory format) or the
	// tarball path (tarball format; empty selects a generated name in
	// the working directory).
	OutputPath string
	// WorkspaceOverride points the workspace at an existing empty
	// directory instead of a fresh one under /tmp.
	WorkspaceOverride string
	Skip              map[SkipAction]bool

	// ExtractBackend picks between the built-in ar reader and dpkg-deb.
	ExtractBackend deb.Backend
	// ExtractOnlyEssentials defers non-essential buckets to dpkg inside
	// the chroot. The extract_packages mode ignores it and extracts
	// everything.
	ExtractOnlyEssentials bool
	// MergeUsr overrides the per-suite merged-/usr policy when non-nil.
	MergeUsr *bool
	// MarkEssential and MarkNonEssential override bucket assignment by
	// package name.
	MarkEssential    []string
	MarkNonEssential []string

	// Hooks maps each hook point to the shell commands registered for
	// it.
	Hooks map[hooks.Point][]string

	// AssumeYes and AssumeNo answer the proceed prompt without asking.
	AssumeYes bool
	AssumeNo  bool
	// Interactive keeps debconf on the dialog frontend inside the
	// chroot.
	Interactive bool
	// Term is the normalised TERM value exported into the chroot, and
	// Color the colour decision mirrored into DPKG_COLORS.
	Term  string
	Color bool
	// HTTPTimeout caps each index and package download. Zero selects
	// the client default.
	HTTPTimeout time.Duration
	// ShowPackages renders the package listing before the proceed
	// prompt; the command layer supplies the table formatting.
	ShowPackages func(packages []archive.Package)
	// ConfirmInput feeds the proceed prompt. Nil means stdin.
	ConfirmInput io.Reader

	Printer *message.Printer
	Log     message.Logger
}

// Run executes the pipeline described by opts.
func Run(ctx context.Context, opts Options) error {
	if len(opts.Entries) == 0 {
		return fmt.Errorf("no package sources configured")
	}
	if opts.Format == FormatDirectory && opts.OutputPath == "" {
		return fmt.Errorf("directory output needs a target path")
	}
	if opts.Printer == nil {
		opts.Printer = message.NewPrinter(message.Config{})
	}
	if opts.Log == nil {
		opts.Log = message.Default()
	}
	if opts.ConfirmInput == nil {
		opts.ConfirmInput = os.Stdin
	}
	if opts.ExtractBackend == "" {
		opts.ExtractBackend = deb.BackendAr
	}
	if opts.Term == "" {
		opts.Term = message.NormalizeTerm(os.Getenv("TERM"), opts.Color)
	}

	p := &pipeline{
		opts:    opts,
		printer: opts.Printer,
		log:     opts.Log,
	}
	return p.run(ctx)
}
