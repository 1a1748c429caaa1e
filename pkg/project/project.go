// SPDX-License-Identifier: MPL-2.0

// Package project models a GPC project: the project.json manifest at its
// root, the entry source file, and the versioned build output location.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ManifestFileName is the manifest file at every project root.
	ManifestFileName = "project.json"

	// buildDirName is the directory build outputs are written under,
	// relative to the project root.
	buildDirName = "build"
)

var (
	// ErrManifestNotFound is returned when a directory has no project.json.
	ErrManifestNotFound = errors.New("project.json not found")
	// ErrInvalidManifest is the sentinel wrapped by InvalidManifestError.
	ErrInvalidManifest = errors.New("invalid project manifest")
)

type (
	// Manifest is the parsed content of a project.json file.
	Manifest struct {
		// Name is the project name; the built artifact is named after it.
		Name string `json:"name"`
		// Version is the project version; build outputs are grouped by it.
		Version string `json:"version"`
		// Entry is the root source file, relative to the project root.
		Entry string `json:"entry"`
		// Lib optionally names the library directory module imports resolve
		// against, absolute or relative to the project root.
		Lib string `json:"lib,omitempty"`
	}

	// InvalidManifestError collects the field problems found in one manifest.
	InvalidManifestError struct {
		Path        string
		FieldErrors []string
	}

	// Project is a loaded project: its root directory plus its manifest.
	Project struct {
		Root     string
		Manifest *Manifest
	}
)

func (e *InvalidManifestError) Error() string {
	return fmt.Sprintf("invalid project manifest %s: %s", e.Path, strings.Join(e.FieldErrors, "; "))
}

func (e *InvalidManifestError) Unwrap() error { return ErrInvalidManifest }

// Parse decodes and validates a project.json payload. path is only used in
// error messages.
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

// Load reads the project rooted at dir. Returns ErrManifestNotFound when dir
// has no project.json.
func Load(dir string) (*Project, error) {
	path := filepath.Join(dir, ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dir, ErrManifestNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, err := Parse(data, path)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving project root %s: %w", dir, err)
	}
	return &Project{Root: root, Manifest: m}, nil
}

// Validate checks the manifest's required fields. path is only used in error
// messages.
func (m *Manifest) Validate(path string) error {
	var errs []string
	if strings.TrimSpace(m.Name) == "" {
		errs = append(errs, "name must not be empty")
	}
	if strings.TrimSpace(m.Version) == "" {
		errs = append(errs, "version must not be empty")
	}
	if strings.TrimSpace(m.Entry) == "" {
		errs = append(errs, "entry must not be empty")
	}
	if len(errs) > 0 {
		return &InvalidManifestError{Path: path, FieldErrors: errs}
	}
	return nil
}

// GenerateJSON renders the manifest as indented JSON with a trailing
// newline, the form `ersa new` writes to disk.
func (m *Manifest) GenerateJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding project manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// EntryPath is the absolute path of the project's entry source file.
func (p *Project) EntryPath() string {
	return filepath.Join(p.Root, p.Manifest.Entry)
}

// LibDir resolves the manifest's library directory: absolute values pass
// through, relative ones anchor at the project root, and an unset field
// yields the empty string.
func (p *Project) LibDir() string {
	lib := p.Manifest.Lib
	if lib == "" {
		return ""
	}
	if filepath.IsAbs(lib) {
		return lib
	}
	return filepath.Join(p.Root, lib)
}

// OutputPath is where the built artifact goes:
// <root>/build/<version>/<name>.gpc.
func (p *Project) OutputPath() string {
	return filepath.Join(p.Root, buildDirName, p.Manifest.Version, p.Manifest.Name+".gpc")
}
