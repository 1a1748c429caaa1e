// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces the dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces the light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultAPIBase is the GitHub API endpoint packages and language-server
	// releases are fetched through.
	DefaultAPIBase = "https://api.github.com"

	// DefaultMaxExpansionDepth is the macro expansion ceiling applied when
	// the config file does not set one. It mirrors the preprocessor's own
	// default.
	DefaultMaxExpansionDepth = 500
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidDirPath is returned when a DirPath value is whitespace-only.
	ErrInvalidDirPath = errors.New("invalid directory path")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not
	// recognized. It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// DirPath is a filesystem directory path in the config. The zero value
	// ("") is valid and means "use the built-in default location"; non-zero
	// values must not be whitespace-only.
	DirPath string

	// InvalidDirPathError is returned when a DirPath value is non-empty but
	// whitespace-only. It wraps ErrInvalidDirPath for errors.Is() compatibility.
	InvalidDirPathError struct {
		Field string
		Value DirPath
	}

	// InvalidConfigError is returned when a Config has invalid fields. It
	// wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Registry configures where library packages come from.
		Registry RegistryConfig `json:"registry" mapstructure:"registry"`
		// Build configures the preprocessing pipeline.
		Build BuildConfig `json:"build" mapstructure:"build"`
		// UI configures console output.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// RegistryConfig configures package fetching and storage.
	RegistryConfig struct {
		// APIBase is the GitHub API base URL.
		APIBase string `json:"api_base" mapstructure:"api_base"`
		// PackagesDir overrides where installed packages are stored. Empty
		// means <data dir>/packages.
		PackagesDir DirPath `json:"packages_dir" mapstructure:"packages_dir"`
	}

	// BuildConfig configures the preprocessing pipeline.
	BuildConfig struct {
		// LibDir is the library directory used when a project manifest does
		// not name one. Relative values anchor at the project root.
		LibDir DirPath `json:"lib_dir" mapstructure:"lib_dir"`
		// MaxExpansionDepth caps recursive macro expansion.
		MaxExpansionDepth int `json:"max_expansion_depth" mapstructure:"max_expansion_depth"`
	}

	// UIConfig configures console output.
	UIConfig struct {
		// ColorScheme sets the color scheme for rendered output.
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color
// schemes, and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the DirPath.
func (p DirPath) String() string { return string(p) }

// IsValid returns whether the DirPath is valid. The zero value is valid;
// non-zero values must not be whitespace-only.
func (p DirPath) IsValid() (bool, []error) {
	if p == "" {
		return true, nil
	}
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidDirPathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidDirPathError.
func (e *InvalidDirPathError) Error() string {
	return fmt.Sprintf("invalid directory path %q: non-empty value must not be whitespace-only", e.Value)
}

// Unwrap returns ErrInvalidDirPath for errors.Is() compatibility.
func (e *InvalidDirPathError) Unwrap() error { return ErrInvalidDirPath }

// IsValid returns whether the Config has valid fields. It delegates to
// UI.ColorScheme, the directory paths, and the numeric build settings.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Registry.PackagesDir.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Build.LibDir.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if strings.TrimSpace(c.Registry.APIBase) == "" {
		errs = append(errs, errors.New("registry.api_base must not be empty"))
	}
	if c.Build.MaxExpansionDepth <= 0 {
		errs = append(errs, fmt.Errorf("build.max_expansion_depth must be positive, got %d", c.Build.MaxExpansionDepth))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			APIBase:     DefaultAPIBase,
			PackagesDir: "", // Will use <data dir>/packages if empty
		},
		Build: BuildConfig{
			LibDir:            "",
			MaxExpansionDepth: DefaultMaxExpansionDepth,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
