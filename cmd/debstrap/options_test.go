package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/debstrap-dev/debstrap/internal/bootstrap"
	"github.com/debstrap-dev/debstrap/internal/config"
	"github.com/debstrap-dev/debstrap/internal/deb"
	"github.com/debstrap-dev/debstrap/internal/hooks"
	"github.com/debstrap-dev/debstrap/internal/message"
)

// resetFlags restores every flag variable a test may have touched.
func resetFlags(t *testing.T) {
	t.Helper()

	origSourcesFile := flagSourcesFile
	origComponents := flagComponents
	origArchitectures := flagArchitectures
	origHookDownload := flagHookDownload
	origHookTarget := flagHookTarget
	t.Cleanup(func() {
		flagSourcesFile = origSourcesFile
		flagComponents = origComponents
		flagArchitectures = origArchitectures
		flagHookDownload = origHookDownload
		flagHookTarget = origHookTarget
	})
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		suite   string
		target  string
		mirrors []string
	}{
		{name: "empty", args: nil},
		{name: "suite only", args: []string{"bookworm"}, suite: "bookworm"},
		{name: "suite and target", args: []string{"bookworm", "rootfs"}, suite: "bookworm", target: "rootfs"},
		{
			name:    "suite target mirrors",
			args:    []string{"sid", "sid.tar", "http://a.example/debian", "http://b.example/debian"},
			suite:   "sid",
			target:  "sid.tar",
			mirrors: []string{"http://a.example/debian", "http://b.example/debian"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suite, target, mirrors := splitArgs(tt.args)
			if suite != tt.suite || target != tt.target {
				t.Errorf("splitArgs(%v) = %q, %q, want %q, %q", tt.args, suite, target, tt.suite, tt.target)
			}
			if !slices.Equal(mirrors, tt.mirrors) {
				t.Errorf("splitArgs(%v) mirrors = %v, want %v", tt.args, mirrors, tt.mirrors)
			}
		})
	}
}

func TestResolveOutput(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		target  string
		want    bootstrap.OutputFormat
		path    string
		wantErr bool
	}{
		{name: "auto no target", format: "auto", want: bootstrap.FormatTarball},
		{name: "auto tar suffix", format: "auto", target: "out.tar", want: bootstrap.FormatTarball, path: "out.tar"},
		{name: "auto directory", format: "auto", target: "rootfs", want: bootstrap.FormatDirectory, path: "rootfs"},
		{name: "explicit tarball", format: "tarball", target: "rootfs", want: bootstrap.FormatTarball, path: "rootfs"},
		{name: "explicit directory", format: "directory", target: "x.tar", want: bootstrap.FormatDirectory, path: "x.tar"},
		{name: "unknown", format: "cpio", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, path, err := resolveOutput(tt.format, tt.target)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("resolveOutput(%q, %q) succeeded, want error", tt.format, tt.target)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveOutput(%q, %q): %v", tt.format, tt.target, err)
			}
			if format != tt.want || path != tt.path {
				t.Errorf("resolveOutput(%q, %q) = %v, %q, want %v, %q",
					tt.format, tt.target, format, path, tt.want, tt.path)
			}
		})
	}
}

func TestParseExtractor(t *testing.T) {
	if backend, err := parseExtractor("ar"); err != nil || backend != deb.BackendAr {
		t.Errorf("parseExtractor(ar) = %v, %v", backend, err)
	}
	if backend, err := parseExtractor("dpkg-deb"); err != nil || backend != deb.BackendDpkgDeb {
		t.Errorf("parseExtractor(dpkg-deb) = %v, %v", backend, err)
	}
	if _, err := parseExtractor("cpio"); err == nil {
		t.Error("parseExtractor(cpio) succeeded, want error")
	}
}

func TestParseMergeUsr(t *testing.T) {
	tests := []struct {
		mode    string
		want    *bool
		wantErr bool
	}{
		{mode: "auto", want: nil},
		{mode: "yes", want: boolPtr(true)},
		{mode: "on", want: boolPtr(true)},
		{mode: "no", want: boolPtr(false)},
		{mode: "off", want: boolPtr(false)},
		{mode: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			got, err := parseMergeUsr(tt.mode)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseMergeUsr(%q) succeeded, want error", tt.mode)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseMergeUsr(%q): %v", tt.mode, err)
			}
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("parseMergeUsr(%q) = %v, want %v", tt.mode, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("parseMergeUsr(%q) = %v, want %v", tt.mode, *got, *tt.want)
			}
		})
	}
}

func boolPtr(v bool) *bool { return &v }

func TestAssembleHooks(t *testing.T) {
	resetFlags(t)

	flagHookDownload = nil
	flagHookTarget = []string{"echo one", "echo two"}

	got, err := assembleHooks(map[string]string{
		"download": "cp cache/*.deb $WORKSPACE",
		"target":   "echo from-file",
	})
	if err != nil {
		t.Fatalf("assembleHooks: %v", err)
	}

	if !slices.Equal(got[hooks.Download], []string{"cp cache/*.deb $WORKSPACE"}) {
		t.Errorf("download hook = %v, want the file command", got[hooks.Download])
	}
	if !slices.Equal(got[hooks.Target], []string{"echo one", "echo two"}) {
		t.Errorf("target hook = %v, want the flag commands to win", got[hooks.Target])
	}
	if _, ok := got[hooks.Done]; ok {
		t.Error("done hook present with no source")
	}
}

func TestAssembleHooksUnknownPoint(t *testing.T) {
	resetFlags(t)
	flagHookDownload = nil
	flagHookTarget = nil

	if _, err := assembleHooks(map[string]string{"finish": "echo done"}); err == nil {
		t.Fatal("assembleHooks accepted an unknown point")
	}
}

func TestAssembleHooksEmpty(t *testing.T) {
	resetFlags(t)
	flagHookDownload = nil
	flagHookTarget = nil

	got, err := assembleHooks(nil)
	if err != nil {
		t.Fatalf("assembleHooks: %v", err)
	}
	if got != nil {
		t.Errorf("assembleHooks(nil) = %v, want nil", got)
	}
}

func TestAssembleSourcesFromArguments(t *testing.T) {
	resetFlags(t)
	flagSourcesFile = ""
	flagComponents = []string{"main", "contrib"}
	flagArchitectures = []string{"amd64"}
	t.Setenv("DEBSTRAP_SOURCES", "")

	entries, err := assembleSources(context.Background(), "bookworm,bookworm-updates",
		[]string{"http://mirror.example/debian"}, nil, message.NewNoop())
	if err != nil {
		t.Fatalf("assembleSources: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	entry := entries[0]
	if !slices.Equal(entry.Suites, []string{"bookworm", "bookworm-updates"}) {
		t.Errorf("suites = %v", entry.Suites)
	}
	if !slices.Equal(entry.Components, []string{"main", "contrib"}) {
		t.Errorf("components = %v", entry.Components)
	}
	if !slices.Equal(entry.Architectures, []string{"amd64"}) {
		t.Errorf("architectures = %v", entry.Architectures)
	}
	if len(entry.URIs) != 1 || entry.URIs[0].String() != "http://mirror.example/debian" {
		t.Errorf("URIs = %v", entry.URIs)
	}
}

func TestAssembleSourcesDefaultMirrors(t *testing.T) {
	resetFlags(t)
	flagSourcesFile = ""
	flagComponents = nil
	flagArchitectures = []string{"amd64"}
	t.Setenv("DEBSTRAP_SOURCES", "")

	entries, err := assembleSources(context.Background(), "bookworm", nil,
		[]string{"http://cfg.example/debian"}, message.NewNoop())
	if err != nil {
		t.Fatalf("assembleSources: %v", err)
	}
	if len(entries[0].URIs) != 1 || entries[0].URIs[0].String() != "http://cfg.example/debian" {
		t.Errorf("URIs = %v, want the configuration file mirror", entries[0].URIs)
	}
}

func TestAssembleSourcesFile(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "test.sources")
	content := "URIs: http://mirror.example/debian\nSuites: trixie\nComponents: main\nArchitectures: arm64\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	flagSourcesFile = path

	entries, err := assembleSources(context.Background(), "", nil, nil, message.NewNoop())
	if err != nil {
		t.Fatalf("assembleSources: %v", err)
	}
	if len(entries) != 1 || !slices.Equal(entries[0].Suites, []string{"trixie"}) {
		t.Errorf("entries = %+v", entries)
	}
}

func TestAssembleSourcesConflict(t *testing.T) {
	resetFlags(t)
	flagSourcesFile = "some.sources"

	if _, err := assembleSources(context.Background(), "bookworm", nil, nil, message.NewNoop()); err == nil {
		t.Fatal("assembleSources accepted a sources file together with a suite")
	}
}

func TestAssembleSourcesNothing(t *testing.T) {
	resetFlags(t)
	flagSourcesFile = ""
	t.Setenv("DEBSTRAP_SOURCES", "")

	_, err := assembleSources(context.Background(), "", nil, nil, message.NewNoop())
	if err == nil {
		t.Fatal("assembleSources succeeded with nothing to bootstrap")
	}
}

func TestBuildOptionsYesNoConflict(t *testing.T) {
	resetFlags(t)
	origYes, origNo := flagYes, flagNo
	t.Cleanup(func() { flagYes, flagNo = origYes, origNo })
	flagYes, flagNo = true, true

	printer := message.NewPrinterTo(os.Stdout, os.Stderr, message.Config{})
	_, err := buildOptions(context.Background(), []string{"bookworm"}, config.Defaults{}, false, printer, message.NewNoop())
	if err == nil {
		t.Fatal("buildOptions accepted --yes together with --no")
	}
}
