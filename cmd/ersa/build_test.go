// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ersa-cli/internal/config"
	"ersa-cli/internal/issue"
	"ersa-cli/pkg/preprocess"
	"ersa-cli/pkg/project"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExecuteBuild_Project(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "project.json"),
		`{"name": "rocket", "version": "0.1.0", "entry": "src/main.gpc"}`)
	writeFile(t, filepath.Join(root, "src", "util.gpc"), "base = 10;\n")
	writeFile(t, filepath.Join(root, "src", "main.gpc"), `import "src/util.gpc";
define! twice(x) { x * 2 }
thrust = twice(3)! {};
total = 1 + 2 * 3;
`)

	out, err := executeBuild(buildRequest{Dir: root}, config.DefaultConfig())
	if err != nil {
		t.Fatalf("executeBuild: %v", err)
	}

	want := filepath.Join(root, "build", "0.1.0", "rocket.gpc")
	if out != want {
		t.Errorf("output path = %s, want %s", out, want)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	text := string(data)

	for _, want := range []string{"base = 10;", "thrust = 6;", "total = 7;"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	for _, stale := range []string{"define!", "import "} {
		if strings.Contains(text, stale) {
			t.Errorf("output still contains %q:\n%s", stale, text)
		}
	}
}

func TestExecuteBuild_SingleFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "main.gpc")
	writeFile(t, src, "x = 2 + 2;\n")

	out, err := executeBuild(buildRequest{File: src}, config.DefaultConfig())
	if err != nil {
		t.Fatalf("executeBuild: %v", err)
	}

	want := filepath.Join(dir, "build", "build.gpc")
	if out != want {
		t.Errorf("output path = %s, want %s", out, want)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if got := string(data); got != "x = 4;\n" {
		t.Errorf("output = %q, want %q", got, "x = 4;\n")
	}
}

func TestExecuteBuild_OutputOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "main.gpc")
	writeFile(t, src, "x = 1;\n")

	custom := filepath.Join(dir, "out", "custom.gpc")
	out, err := executeBuild(buildRequest{File: src, Output: custom}, config.DefaultConfig())
	if err != nil {
		t.Fatalf("executeBuild: %v", err)
	}
	if out != custom {
		t.Errorf("output path = %s, want %s", out, custom)
	}
	if _, err := os.Stat(custom); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestExecuteBuild_LibraryImport(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "project.json"),
		`{"name": "probe", "version": "1.0.0", "entry": "main.gpc", "lib": "gpc_packages"}`)
	writeFile(t, filepath.Join(root, "gpc_packages", "gpx-math", "gpc", "lib.gpc"), "pi = 3;\n")
	writeFile(t, filepath.Join(root, "main.gpc"), "use gpx-math;\n")

	out, err := executeBuild(buildRequest{Dir: root}, config.DefaultConfig())
	if err != nil {
		t.Fatalf("executeBuild: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(data), "pi = 3;") {
		t.Errorf("library module not inlined:\n%s", data)
	}
}

func TestExecuteBuild_ProjectNotFound(t *testing.T) {
	t.Parallel()

	_, err := executeBuild(buildRequest{Dir: t.TempDir()}, config.DefaultConfig())
	if !errors.Is(err, project.ErrManifestNotFound) {
		t.Fatalf("expected ErrManifestNotFound, got %v", err)
	}
	if got := classifyBuildError(err); got != issue.ProjectNotFoundId {
		t.Errorf("classifyBuildError = %v, want ProjectNotFoundId", got)
	}
}

func TestExecuteBuild_EntryMissing(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "project.json"),
		`{"name": "ghost", "version": "0.1.0", "entry": "missing.gpc"}`)

	_, err := executeBuild(buildRequest{Dir: root}, config.DefaultConfig())
	if !errors.Is(err, errEntryNotFound) {
		t.Fatalf("expected errEntryNotFound, got %v", err)
	}
	if got := classifyBuildError(err); got != issue.EntryNotFoundId {
		t.Errorf("classifyBuildError = %v, want EntryNotFoundId", got)
	}
}

func TestClassifyBuildError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want issue.Id
	}{
		{
			name: "circular import",
			err:  &preprocess.ImportError{Path: "local::a", Err: preprocess.ErrCircularImport},
			want: issue.CircularImportId,
		},
		{
			name: "missing import target",
			err:  &preprocess.ImportError{Path: "util", Err: os.ErrNotExist},
			want: issue.ImportNotFoundId,
		},
		{
			name: "expansion depth",
			err:  &preprocess.MacroError{Macro: "loop", Reason: `expansion of macro "loop" exceeded 500 levels`},
			want: issue.ExpansionDepthExceededId,
		},
		{
			name: "undefined macro",
			err:  &preprocess.MacroError{Macro: "combo", Reason: `call to undefined macro "combo"`},
			want: issue.MacroExpansionFailedId,
		},
		{
			name: "missing manifest",
			err:  project.ErrManifestNotFound,
			want: issue.ProjectNotFoundId,
		},
		{
			name: "anything else",
			err:  errors.New("disk on fire"),
			want: issue.BuildFailedId,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := classifyBuildError(tt.err); got != tt.want {
				t.Errorf("classifyBuildError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
