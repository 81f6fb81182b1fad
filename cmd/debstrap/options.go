package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/debstrap-dev/debstrap/internal/bootstrap"
	"github.com/debstrap-dev/debstrap/internal/config"
	"github.com/debstrap-dev/debstrap/internal/deb"
	"github.com/debstrap-dev/debstrap/internal/hooks"
	"github.com/debstrap-dev/debstrap/internal/message"
	"github.com/debstrap-dev/debstrap/internal/sources"
	"github.com/debstrap-dev/debstrap/internal/variant"
)

// buildOptions assembles the pipeline options from flags, positional
// arguments, and configuration file defaults.
func buildOptions(ctx context.Context, args []string, defaults config.Defaults, colorOn bool, printer *message.Printer, log message.Logger) (bootstrap.Options, error) {
	mode, err := bootstrap.ParseMode(flagMode)
	if err != nil {
		return bootstrap.Options{}, err
	}
	skip, err := bootstrap.ParseSkipActions(flagSkip)
	if err != nil {
		return bootstrap.Options{}, err
	}
	if !variant.IsValid(flagVariant) {
		return bootstrap.Options{}, fmt.Errorf("unknown variant %q", flagVariant)
	}
	backend, err := parseExtractor(flagExtractor)
	if err != nil {
		return bootstrap.Options{}, err
	}
	mergeUsr, err := parseMergeUsr(flagMergeUsr)
	if err != nil {
		return bootstrap.Options{}, err
	}
	if flagYes && flagNo {
		return bootstrap.Options{}, fmt.Errorf("--yes and --no are mutually exclusive")
	}

	suite, target, mirrors := splitArgs(args)
	entries, err := assembleSources(ctx, suite, mirrors, defaults.Mirrors, log)
	if err != nil {
		return bootstrap.Options{}, err
	}

	format, outputPath, err := resolveOutput(flagFormat, target)
	if err != nil {
		return bootstrap.Options{}, err
	}

	hookCommands, err := assembleHooks(defaults.Hooks)
	if err != nil {
		return bootstrap.Options{}, err
	}

	sel := variant.Selection{Variant: flagVariant, Include: flagInclude, Exclude: flagExclude}
	if flagVariant == variant.Custom {
		sel = variant.Selection{Variant: flagVariant, Custom: flagInclude, Exclude: flagExclude}
	}

	return bootstrap.Options{
		Entries:               entries,
		Selection:             sel,
		Prohibit:              flagExclude,
		ConsiderRecommends:    flagRecommends,
		Mode:                  mode,
		Format:                format,
		OutputPath:            outputPath,
		WorkspaceOverride:     config.GetWorkspaceOverride(),
		Skip:                  skip,
		ExtractBackend:        backend,
		ExtractOnlyEssentials: !flagExtractAll,
		MergeUsr:              mergeUsr,
		MarkEssential:         flagMarkEssential,
		MarkNonEssential:      flagMarkNonEssential,
		Hooks:                 hookCommands,
		AssumeYes:             flagYes,
		AssumeNo:              flagNo,
		Interactive:           flagInteractive,
		Term:                  message.NormalizeTerm(os.Getenv("TERM"), colorOn),
		Color:                 colorOn,
		HTTPTimeout:           config.GetHTTPTimeout(),
		ShowPackages:          packageTable(printer.Out()),
		ConfirmInput:          os.Stdin,
		Printer:               printer,
		Log:                   log,
	}, nil
}

// splitArgs interprets the positional arguments: SUITE, then TARGET,
// then any number of mirrors.
func splitArgs(args []string) (suite, target string, mirrors []string) {
	if len(args) > 0 {
		suite = args[0]
	}
	if len(args) > 1 {
		target = args[1]
	}
	if len(args) > 2 {
		mirrors = args[2:]
	}
	return suite, target, mirrors
}

// assembleSources builds the repository entries, from a sources file or
// from the positional suite and mirrors. An explicit --sources-file and
// a positional suite are mutually exclusive; the DEBSTRAP_SOURCES
// location applies only when no suite is given. The suite argument may
// carry several comma-separated suites, the first being primary.
func assembleSources(ctx context.Context, suite string, mirrors, defaultMirrors []string, log message.Logger) ([]sources.Entry, error) {
	if flagSourcesFile != "" && suite != "" {
		return nil, fmt.Errorf("a sources file and a suite argument are mutually exclusive")
	}

	path := flagSourcesFile
	if path == "" && suite == "" {
		path = config.GetSourcesPath()
	}
	if path != "" {
		return sources.Load(path)
	}
	if suite == "" {
		return nil, fmt.Errorf("nothing to bootstrap: pass a suite or --sources-file")
	}

	if len(mirrors) == 0 {
		mirrors = defaultMirrors
	}
	entry, err := sources.FromFlags(ctx, sources.Input{
		Mirrors:       mirrors,
		Suites:        strings.Split(suite, ","),
		Components:    flagComponents,
		Architectures: flagArchitectures,
	}, log)
	if err != nil {
		return nil, err
	}
	return []sources.Entry{entry}, nil
}

// resolveOutput decides the output format and path. Format auto infers
// a tarball from a .tar suffix and a directory from anything else;
// without a target the output is a tarball named by the pipeline.
func resolveOutput(format, target string) (bootstrap.OutputFormat, string, error) {
	if format == "auto" {
		if target == "" || strings.HasSuffix(target, ".tar") {
			return bootstrap.FormatTarball, target, nil
		}
		return bootstrap.FormatDirectory, target, nil
	}
	parsed, err := bootstrap.ParseFormat(format)
	if err != nil {
		return "", "", err
	}
	return parsed, target, nil
}

func parseExtractor(name string) (deb.Backend, error) {
	switch name {
	case "ar":
		return deb.BackendAr, nil
	case "dpkg-deb":
		return deb.BackendDpkgDeb, nil
	}
	return "", fmt.Errorf("unknown extractor %q, expected ar or dpkg-deb", name)
}

func parseMergeUsr(mode string) (*bool, error) {
	switch mode {
	case "auto":
		return nil, nil
	case "yes", "true", "on":
		on := true
		return &on, nil
	case "no", "false", "off":
		off := false
		return &off, nil
	}
	return nil, fmt.Errorf("unknown merge-usr mode %q, expected auto, yes, or no", mode)
}

// assembleHooks merges hook commands from the configuration file and
// the command line. A hook flag replaces the file value for its point.
func assembleHooks(fileHooks map[string]string) (map[hooks.Point][]string, error) {
	byPoint := map[hooks.Point][]string{
		hooks.Download:  flagHookDownload,
		hooks.Extract:   flagHookExtract,
		hooks.Essential: flagHookEssential,
		hooks.Target:    flagHookTarget,
		hooks.Done:      flagHookDone,
	}

	out := make(map[hooks.Point][]string)
	for point, command := range fileHooks {
		p := hooks.Point(point)
		if _, ok := byPoint[p]; !ok {
			return nil, fmt.Errorf("unknown hook point %q in configuration file", point)
		}
		out[p] = []string{command}
	}
	for point, commands := range byPoint {
		if len(commands) > 0 {
			out[point] = commands
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
