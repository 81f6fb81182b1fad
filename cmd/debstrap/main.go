// Command debstrap bootstraps a Debian-family root filesystem from
// archive mirrors, producing a directory or an uncompressed tarball.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/debstrap-dev/debstrap/internal/bootstrap"
	"github.com/debstrap-dev/debstrap/internal/config"
	"github.com/debstrap-dev/debstrap/internal/message"
	"github.com/spf13/cobra"
)

var (
	flagSourcesFile      string
	flagVariant          string
	flagInclude          []string
	flagExclude          []string
	flagComponents       []string
	flagArchitectures    []string
	flagMode             string
	flagFormat           string
	flagSkip             []string
	flagMergeUsr         string
	flagExtractor        string
	flagExtractAll       bool
	flagRecommends       bool
	flagMarkEssential    []string
	flagMarkNonEssential []string
	flagHookDownload     []string
	flagHookExtract      []string
	flagHookEssential    []string
	flagHookTarget       []string
	flagHookDone         []string
	flagYes              bool
	flagNo               bool
	flagInteractive      bool
	flagDebug            bool
	flagColor            string
)

// errPrinter reports Execute failures. It starts uncoloured and is
// replaced once the colour decision is known.
var errPrinter = message.NewPrinter(message.Config{})

var rootCmd = &cobra.Command{
	Use:   "debstrap [flags] [SUITE [TARGET [MIRROR...]]]",
	Short: "Bootstrap a Debian-family root filesystem",
	Long: `debstrap creates a Debian or Ubuntu root filesystem from scratch: it
fetches package indices from archive mirrors, resolves the dependency
closure of the chosen variant, downloads and extracts the packages, and
configures them with dpkg inside a chroot.

TARGET names the output. A path ending in .tar produces an uncompressed
tarball, anything else a directory; without TARGET a tarball named after
the suite, architecture, and variant is written to the working directory.
Mirrors default to the standard archive for the suite and architecture.

Examples:
  debstrap unstable
  debstrap bookworm rootfs/
  debstrap --variant=essential trixie trixie.tar http://deb.debian.org/debian
  debstrap --mode=print_target_set --sources-file=my.sources`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBootstrap,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagSourcesFile, "sources-file", "", "read sources from a deb822 .sources file or directory")
	flags.StringVar(&flagVariant, "variant", "required", "package set to bootstrap (essential, required, buildd, important, standard, custom)")
	flags.StringSliceVar(&flagInclude, "include", nil, "extra packages to add to the initial set")
	flags.StringSliceVar(&flagExclude, "exclude", nil, "packages to drop from the initial set and prohibit during resolution")
	flags.StringSliceVar(&flagComponents, "components", nil, "archive components to enable (default main)")
	flags.StringSliceVar(&flagArchitectures, "architectures", nil, "architectures to fetch; host expands via arch-test (default the host)")
	flags.StringVar(&flagMode, "mode", "full", "how far to take the bootstrap (print_initial_set, print_target_set, print_both_sets, download_packages, extract_packages, full)")
	flags.StringVar(&flagFormat, "format", "auto", "output format (auto, directory, tarball)")
	flags.StringSliceVar(&flagSkip, "skip", nil, "pre-flight or cleanup actions to skip (architecture_check, output_directory_check, packages_removal, workspace_removal)")
	flags.StringVar(&flagMergeUsr, "merge-usr", "auto", "merge /bin, /lib, /sbin into /usr (auto, yes, no)")
	flags.StringVar(&flagExtractor, "extractor", "ar", "how to unpack .deb payloads (ar, dpkg-deb)")
	flags.BoolVar(&flagExtractAll, "extract-all", false, "extract every priority bucket up front instead of only the essential one")
	flags.BoolVar(&flagRecommends, "recommends", false, "follow Recommends when resolving dependencies")
	flags.StringSliceVar(&flagMarkEssential, "mark-essential", nil, "treat the named packages as essential when partitioning")
	flags.StringSliceVar(&flagMarkNonEssential, "mark-non-essential", nil, "never treat the named packages as essential when partitioning")
	flags.StringArrayVar(&flagHookDownload, "hook-download", nil, "shell command to run after packages are downloaded")
	flags.StringArrayVar(&flagHookExtract, "hook-extract", nil, "shell command to run after packages are extracted")
	flags.StringArrayVar(&flagHookEssential, "hook-essential", nil, "shell command to run after the essential packages are installed")
	flags.StringArrayVar(&flagHookTarget, "hook-target", nil, "shell command to run once the target system is installed")
	flags.StringArrayVar(&flagHookDone, "hook-done", nil, "shell command to run after everything else")
	flags.BoolVar(&flagYes, "yes", false, "assume yes at the proceed prompt")
	flags.BoolVar(&flagNo, "no", false, "assume no at the proceed prompt")
	flags.BoolVar(&flagInteractive, "interactive", false, "let debconf ask questions inside the chroot")
	flags.BoolVar(&flagDebug, "debug", config.GetDebug(), "print debug output")
	flags.StringVar(&flagColor, "color", config.GetColorMode(), "colour diagnostics (auto, always, never)")
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defaults, err := config.LoadDefaults(config.DefaultsPath())
	if err != nil {
		return err
	}
	applyDefaults(cmd, defaults)

	colorOn := message.ResolveColor(flagColor)
	printer := message.NewPrinterTo(os.Stdout, os.Stderr, message.Config{Color: colorOn, Debug: flagDebug})
	errPrinter = printer
	log := message.New(os.Stderr, flagDebug)
	message.SetDefault(log)

	opts, err := buildOptions(ctx, args, defaults, colorOn, printer, log)
	if err != nil {
		return err
	}

	if opts.Mode == bootstrap.ModeFull || opts.Mode == bootstrap.ModeExtractPackages {
		if err := config.RequireRoot(); err != nil {
			return err
		}
	}

	return bootstrap.Run(ctx, opts)
}

// applyDefaults folds configuration file values into flags the user
// left unset. Flags win over file values, file values over built-ins.
func applyDefaults(cmd *cobra.Command, defaults config.Defaults) {
	if defaults.Variant != "" && !cmd.Flags().Changed("variant") {
		flagVariant = defaults.Variant
	}
	if defaults.Format != "" && !cmd.Flags().Changed("format") {
		flagFormat = defaults.Format
	}
	if defaults.Color != "" && !cmd.Flags().Changed("color") {
		flagColor = defaults.Color
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		errPrinter.Errorf("%v", err)
		os.Exit(1)
	}
}
