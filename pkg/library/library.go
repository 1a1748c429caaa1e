// SPDX-License-Identifier: MPL-2.0

// Package library models installed GPC library packages and their lib.json
// manifests. A library is a directory under the packages dir whose root
// carries a lib.json describing the package and the GitHub repository it
// came from.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ManifestFileName is the manifest file every library package carries at its
// root.
const ManifestFileName = "lib.json"

var (
	// ErrManifestNotFound is returned when a directory has no lib.json.
	ErrManifestNotFound = errors.New("lib.json not found")
	// ErrInvalidManifest is the sentinel wrapped by InvalidManifestError.
	ErrInvalidManifest = errors.New("invalid library manifest")
	// ErrInvalidPackageName is returned for package names that could escape
	// the packages directory.
	ErrInvalidPackageName = errors.New("invalid package name")
)

type (
	// Manifest is the parsed content of a lib.json file.
	Manifest struct {
		// Name is the package name; it doubles as the install directory name.
		Name string `json:"name"`
		// URL is the GitHub repository the package is fetched from, in
		// "owner/repo" or full https form.
		URL string `json:"url"`
		// Version is the package version, with or without a leading v.
		Version string `json:"version"`
		// Dependencies lists the URLs of packages this one imports.
		Dependencies []string `json:"dependencies,omitempty"`
	}

	// InvalidManifestError collects the field problems found in one manifest.
	InvalidManifestError struct {
		Path        string
		FieldErrors []string
	}

	// Installed pairs an installed package directory with its manifest.
	Installed struct {
		Dir      string
		Manifest *Manifest
	}
)

func (e *InvalidManifestError) Error() string {
	return fmt.Sprintf("invalid library manifest %s: %s", e.Path, strings.Join(e.FieldErrors, "; "))
}

func (e *InvalidManifestError) Unwrap() error { return ErrInvalidManifest }

// Parse decodes and validates a lib.json payload. path is only used in error
// messages.
func Parse(data []byte, path string) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := m.Validate(path); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and parses the lib.json inside dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dir, ErrManifestNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data, path)
}

// Validate checks the manifest's required fields. path is only used in error
// messages.
func (m *Manifest) Validate(path string) error {
	var errs []string
	if strings.TrimSpace(m.Name) == "" {
		errs = append(errs, "name must not be empty")
	}
	if strings.TrimSpace(m.URL) == "" {
		errs = append(errs, "url must not be empty")
	}
	if strings.TrimSpace(m.Version) == "" {
		errs = append(errs, "version must not be empty")
	}
	if len(errs) > 0 {
		return &InvalidManifestError{Path: path, FieldErrors: errs}
	}
	return nil
}

// ValidateName rejects package names that could resolve outside the packages
// directory: separators, parent references, and empty names.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPackageName)
	}
	if strings.ContainsAny(name, `/\`) || name == ".." || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q must not contain path separators or parent references", ErrInvalidPackageName, name)
	}
	return nil
}

// ListInstalled enumerates the packages under packagesDir. Directories
// without a lib.json are skipped; a missing packages dir yields an empty
// list.
func ListInstalled(packagesDir string) ([]Installed, error) {
	entries, err := os.ReadDir(packagesDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading packages dir %s: %w", packagesDir, err)
	}

	var installed []Installed
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(packagesDir, entry.Name())
		m, loadErr := Load(dir)
		if loadErr != nil {
			if errors.Is(loadErr, ErrManifestNotFound) {
				continue
			}
			return nil, loadErr
		}
		installed = append(installed, Installed{Dir: dir, Manifest: m})
	}
	return installed, nil
}
