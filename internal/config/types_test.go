// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
)

func TestColorScheme_IsValid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		scheme ColorScheme
		valid  bool
	}{
		{ColorSchemeAuto, true},
		{ColorSchemeDark, true},
		{ColorSchemeLight, true},
		{ColorScheme(""), false},
		{ColorScheme("solarized"), false},
	}
	for _, tt := range tests {
		valid, errs := tt.scheme.IsValid()
		if valid != tt.valid {
			t.Errorf("ColorScheme(%q).IsValid() = %v, want %v", tt.scheme, valid, tt.valid)
		}
		if !tt.valid && !errors.Is(errs[0], ErrInvalidColorScheme) {
			t.Errorf("error for %q does not wrap ErrInvalidColorScheme", tt.scheme)
		}
	}
}

func TestDirPath_IsValid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path  DirPath
		valid bool
	}{
		{DirPath(""), true},
		{DirPath("gpc_packages"), true},
		{DirPath("/abs/path"), true},
		{DirPath("   "), false},
	}
	for _, tt := range tests {
		valid, errs := tt.path.IsValid()
		if valid != tt.valid {
			t.Errorf("DirPath(%q).IsValid() = %v, want %v", tt.path, valid, tt.valid)
		}
		if !tt.valid && !errors.Is(errs[0], ErrInvalidDirPath) {
			t.Errorf("error for %q does not wrap ErrInvalidDirPath", tt.path)
		}
	}
}

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	if valid, errs := DefaultConfig().IsValid(); !valid {
		t.Fatalf("default config invalid: %v", errs)
	}

	bad := DefaultConfig()
	bad.Registry.APIBase = "  "
	bad.Build.MaxExpansionDepth = 0
	valid, errs := bad.IsValid()
	if valid {
		t.Fatal("expected invalid config")
	}
	if !errors.Is(errs[0], ErrInvalidConfig) {
		t.Errorf("error does not wrap ErrInvalidConfig: %v", errs[0])
	}

	var invalid *InvalidConfigError
	if !errors.As(errs[0], &invalid) {
		t.Fatalf("expected *InvalidConfigError, got %T", errs[0])
	}
	if len(invalid.FieldErrors) != 2 {
		t.Errorf("expected 2 field errors, got %v", invalid.FieldErrors)
	}
}
