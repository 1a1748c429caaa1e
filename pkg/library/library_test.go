// SPDX-License-Identifier: MPL-2.0

package library

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParse_ValidManifest(t *testing.T) {
	t.Parallel()
	data := []byte(`{
		"name": "stdlib",
		"url": "gpx-lang/gpx-stdlib",
		"version": "1.2.0",
		"dependencies": ["gpx-lang/gpx-math"]
	}`)

	m, err := Parse(data, "lib.json")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if m.Name != "stdlib" || m.URL != "gpx-lang/gpx-stdlib" || m.Version != "1.2.0" {
		t.Errorf("unexpected manifest: %+v", m)
	}
	if len(m.Dependencies) != 1 || m.Dependencies[0] != "gpx-lang/gpx-math" {
		t.Errorf("unexpected dependencies: %v", m.Dependencies)
	}
}

func TestParse_MissingFields(t *testing.T) {
	t.Parallel()
	_, err := Parse([]byte(`{"name": "stdlib"}`), "lib.json")
	if !errors.Is(err, ErrInvalidManifest) {
		t.Fatalf("expected ErrInvalidManifest, got %v", err)
	}

	var invalid *InvalidManifestError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidManifestError, got %T", err)
	}
	if len(invalid.FieldErrors) != 2 {
		t.Errorf("expected 2 field errors (url, version), got %v", invalid.FieldErrors)
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	t.Parallel()
	if _, err := Parse([]byte(`{"name": "x",`), "lib.json"); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestLoad_MissingManifest(t *testing.T) {
	t.Parallel()
	_, err := Load(t.TempDir())
	if !errors.Is(err, ErrManifestNotFound) {
		t.Fatalf("expected ErrManifestNotFound, got %v", err)
	}
}

func TestValidateName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		pkg     string
		wantErr bool
	}{
		{name: "simple", pkg: "stdlib", wantErr: false},
		{name: "hyphenated", pkg: "gpx-stdlib", wantErr: false},
		{name: "empty", pkg: "", wantErr: true},
		{name: "whitespace only", pkg: "   ", wantErr: true},
		{name: "forward slash", pkg: "a/b", wantErr: true},
		{name: "backslash", pkg: `a\b`, wantErr: true},
		{name: "parent reference", pkg: "..", wantErr: true},
		{name: "embedded parent reference", pkg: "a..b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateName(tt.pkg)
			if gotErr := err != nil; gotErr != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.pkg, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPackageName) {
				t.Errorf("error does not wrap ErrInvalidPackageName: %v", err)
			}
		})
	}
}

func TestListInstalled(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeManifest(t, filepath.Join(dir, "stdlib"),
		`{"name": "stdlib", "url": "gpx-lang/gpx-stdlib", "version": "1.0.0"}`)
	writeManifest(t, filepath.Join(dir, "math"),
		`{"name": "math", "url": "gpx-lang/gpx-math", "version": "0.3.1"}`)
	// A directory without a manifest is not a package and must be skipped.
	if err := os.MkdirAll(filepath.Join(dir, "scratch"), 0o755); err != nil {
		t.Fatal(err)
	}

	installed, err := ListInstalled(dir)
	if err != nil {
		t.Fatalf("ListInstalled returned error: %v", err)
	}
	if len(installed) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(installed))
	}
}

func TestListInstalled_MissingDir(t *testing.T) {
	t.Parallel()
	installed, err := ListInstalled(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("expected nil error for missing dir, got %v", err)
	}
	if installed != nil {
		t.Errorf("expected nil list, got %v", installed)
	}
}

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
