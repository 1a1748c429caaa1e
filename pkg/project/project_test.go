// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParse_ValidManifest(t *testing.T) {
	t.Parallel()
	data := []byte(`{
		"name": "rocket",
		"version": "0.1.0",
		"entry": "src/main.gpc",
		"lib": "gpc_packages"
	}`)

	m, err := Parse(data, "project.json")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if m.Name != "rocket" || m.Version != "0.1.0" || m.Entry != "src/main.gpc" || m.Lib != "gpc_packages" {
		t.Errorf("unexpected manifest: %+v", m)
	}
}

func TestParse_MissingFields(t *testing.T) {
	t.Parallel()
	_, err := Parse([]byte(`{"name": "rocket"}`), "project.json")
	if !errors.Is(err, ErrInvalidManifest) {
		t.Fatalf("expected ErrInvalidManifest, got %v", err)
	}

	var invalid *InvalidManifestError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidManifestError, got %T", err)
	}
	if len(invalid.FieldErrors) != 2 {
		t.Errorf("expected 2 field errors (version, entry), got %v", invalid.FieldErrors)
	}
}

func TestLoad_MissingManifest(t *testing.T) {
	t.Parallel()
	_, err := Load(t.TempDir())
	if !errors.Is(err, ErrManifestNotFound) {
		t.Fatalf("expected ErrManifestNotFound, got %v", err)
	}
}

func TestLoad_ResolvesPaths(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	manifest := `{"name": "rocket", "version": "0.1.0", "entry": "src/main.gpc", "lib": "gpc_packages"}`
	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if !filepath.IsAbs(p.Root) {
		t.Errorf("project root %q is not absolute", p.Root)
	}
	if got, want := p.EntryPath(), filepath.Join(p.Root, "src", "main.gpc"); got != want {
		t.Errorf("EntryPath() = %q, want %q", got, want)
	}
	if got, want := p.LibDir(), filepath.Join(p.Root, "gpc_packages"); got != want {
		t.Errorf("LibDir() = %q, want %q", got, want)
	}
	if got, want := p.OutputPath(), filepath.Join(p.Root, "build", "0.1.0", "rocket.gpc"); got != want {
		t.Errorf("OutputPath() = %q, want %q", got, want)
	}
}

func TestLibDir_Variants(t *testing.T) {
	t.Parallel()
	abs := t.TempDir()
	tests := []struct {
		name string
		lib  string
		want func(root string) string
	}{
		{name: "unset", lib: "", want: func(string) string { return "" }},
		{name: "relative", lib: "libs", want: func(root string) string { return filepath.Join(root, "libs") }},
		{name: "absolute", lib: abs, want: func(string) string { return abs }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &Project{
				Root:     "/projects/rocket",
				Manifest: &Manifest{Name: "rocket", Version: "0.1.0", Entry: "main.gpc", Lib: tt.lib},
			}
			if got, want := p.LibDir(), tt.want(p.Root); got != want {
				t.Errorf("LibDir() = %q, want %q", got, want)
			}
		})
	}
}

func TestGenerateJSON_RoundTrip(t *testing.T) {
	t.Parallel()
	m := &Manifest{Name: "rocket", Version: "0.1.0", Entry: "src/main.gpc"}
	data, err := m.GenerateJSON()
	if err != nil {
		t.Fatalf("GenerateJSON returned error: %v", err)
	}

	parsed, err := Parse(data, "generated")
	if err != nil {
		t.Fatalf("generated manifest does not parse: %v", err)
	}
	if *parsed != *m {
		t.Errorf("round trip mismatch: %+v != %+v", parsed, m)
	}
}
