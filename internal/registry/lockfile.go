// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

// LockfileName is the pinned-dependency file written next to project.json.
const LockfileName = "ersa-lock.toml"

// ErrNoLockfile indicates the project has no lockfile yet.
var ErrNoLockfile = errors.New("lockfile not found")

type (
	// Lockfile pins the resolved dependency closure of a project.
	Lockfile struct {
		Packages []LockedPackage `toml:"package"`
	}

	// LockedPackage records one installed package at a specific version.
	LockedPackage struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
		URL     string `toml:"url,omitempty"`
	}
)

// ReadLockfile loads the lockfile from the given project root. Returns
// ErrNoLockfile when none exists.
func ReadLockfile(projectRoot string) (*Lockfile, error) {
	path := filepath.Join(projectRoot, LockfileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNoLockfile)
		}
		return nil, fmt.Errorf("reading lockfile: %w", err)
	}

	var lf Lockfile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return &lf, nil
}

// WriteLockfile writes the lockfile to the given project root, sorting
// entries by package name for stable diffs.
func WriteLockfile(projectRoot string, lf *Lockfile) error {
	sorted := slices.Clone(lf.Packages)
	slices.SortFunc(sorted, func(a, b LockedPackage) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})

	data, err := toml.Marshal(Lockfile{Packages: sorted})
	if err != nil {
		return fmt.Errorf("encoding lockfile: %w", err)
	}

	path := filepath.Join(projectRoot, LockfileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing lockfile: %w", err)
	}

	return nil
}
