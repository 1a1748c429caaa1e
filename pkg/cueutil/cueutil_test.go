// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

func TestCheckFileSize(t *testing.T) {
	t.Parallel()
	if err := CheckFileSize([]byte("small"), 10, "config.cue"); err != nil {
		t.Errorf("unexpected error for small file: %v", err)
	}
	err := CheckFileSize([]byte("too large for limit"), 4, "config.cue")
	if err == nil {
		t.Fatal("expected error for oversized file")
	}
	if !strings.Contains(err.Error(), "config.cue") {
		t.Errorf("error %q does not name the file", err)
	}
}

func TestFormatError_Nil(t *testing.T) {
	t.Parallel()
	if err := FormatError(nil, "config.cue"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestFormatError_IncludesPath(t *testing.T) {
	t.Parallel()
	ctx := cuecontext.New()
	schema := ctx.CompileString(`#Config: { build: { max_expansion_depth: int } }`)
	user := ctx.CompileString(`build: { max_expansion_depth: "nope" }`)
	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(user)

	validateErr := unified.Validate(cue.Concrete(false))
	if validateErr == nil {
		t.Fatal("expected validation error")
	}

	err := FormatError(validateErr, "config.cue")
	if err == nil {
		t.Fatal("expected formatted error")
	}
	if !strings.Contains(err.Error(), "config.cue") {
		t.Errorf("error %q does not name the file", err)
	}
	if !strings.Contains(err.Error(), "max_expansion_depth") {
		t.Errorf("error %q does not name the offending field", err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		path []string
		want string
	}{
		{name: "empty", path: nil, want: ""},
		{name: "single", path: []string{"build"}, want: "build"},
		{name: "nested", path: []string{"build", "lib_dir"}, want: "build.lib_dir"},
		{name: "array index", path: []string{"includes", "0", "path"}, want: "includes[0].path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := formatPath(tt.path); got != tt.want {
				t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
