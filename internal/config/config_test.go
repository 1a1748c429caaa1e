// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	// Not parallel: relies on an empty config dir, no package overrides.
	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("loadWithOptions returned error: %v", err)
	}

	if cfg.Registry.APIBase != DefaultAPIBase {
		t.Errorf("APIBase = %q, want %q", cfg.Registry.APIBase, DefaultAPIBase)
	}
	if cfg.Build.MaxExpansionDepth != DefaultMaxExpansionDepth {
		t.Errorf("MaxExpansionDepth = %d, want %d", cfg.Build.MaxExpansionDepth, DefaultMaxExpansionDepth)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("ColorScheme = %q, want %q", cfg.UI.ColorScheme, ColorSchemeAuto)
	}
	if cfg.UI.Verbose {
		t.Error("Verbose should default to false")
	}
}

func TestLoad_CUEFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
build: {
	lib_dir:             "gpc_packages"
	max_expansion_depth: 64
}
ui: {
	verbose: true
}
`
	writeConfig(t, dir, content)

	cfg, resolved, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions returned error: %v", err)
	}

	if cfg.Build.LibDir != "gpc_packages" {
		t.Errorf("LibDir = %q, want %q", cfg.Build.LibDir, "gpc_packages")
	}
	if cfg.Build.MaxExpansionDepth != 64 {
		t.Errorf("MaxExpansionDepth = %d, want 64", cfg.Build.MaxExpansionDepth)
	}
	if !cfg.UI.Verbose {
		t.Error("Verbose should be true")
	}
	// Fields the file omits keep their defaults.
	if cfg.Registry.APIBase != DefaultAPIBase {
		t.Errorf("APIBase = %q, want default %q", cfg.Registry.APIBase, DefaultAPIBase)
	}
	if want := filepath.Join(dir, "config.cue"); resolved != want {
		t.Errorf("resolved path = %q, want %q", resolved, want)
	}
}

func TestLoad_RejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "wrong type", content: `build: { max_expansion_depth: "many" }`},
		{name: "negative depth", content: `build: { max_expansion_depth: -1 }`},
		{name: "unknown color scheme", content: `ui: { color_scheme: "solarized" }`},
		{name: "syntax error", content: `build: {`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)

			_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
			if err == nil {
				t.Fatal("expected error for invalid config")
			}
			if !strings.Contains(err.Error(), "config.cue") {
				t.Errorf("error %q does not name the config file", err)
			}
		})
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, _, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue"),
	})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := loadWithOptions(ctx, LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Build.LibDir = "libs"
	cfg.Build.MaxExpansionDepth = 128
	cfg.UI.Verbose = true

	dir := t.TempDir()
	writeConfig(t, dir, GenerateCUE(cfg))

	loaded, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestPackagesDir(t *testing.T) {
	t.Cleanup(Reset)
	SetDataDirOverride("/data/ersa")

	got, err := PackagesDir(DefaultConfig())
	if err != nil {
		t.Fatalf("PackagesDir returned error: %v", err)
	}
	if want := filepath.Join("/data/ersa", "packages"); got != want {
		t.Errorf("PackagesDir = %q, want %q", got, want)
	}

	cfg := DefaultConfig()
	cfg.Registry.PackagesDir = "/custom/packages"
	got, err = PackagesDir(cfg)
	if err != nil {
		t.Fatalf("PackagesDir returned error: %v", err)
	}
	if got != "/custom/packages" {
		t.Errorf("PackagesDir = %q, want override", got)
	}
}

func TestProvider_Load(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `ui: { verbose: true }`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Provider.Load returned error: %v", err)
	}
	if !cfg.UI.Verbose {
		t.Error("Verbose should be true")
	}
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
