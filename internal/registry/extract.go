// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxPackageFileBytes is the upper bound on a single extracted file (50 MB).
// Prevents decompression bombs when unpacking package archives.
const maxPackageFileBytes = 50 << 20

// extractZipball unpacks a GitHub repository zipball into destDir. GitHub
// archives wrap the repository in a single top-level directory
// ({owner}-{repo}-{sha}/), which is stripped so destDir holds the package
// contents directly.
func extractZipball(zipPath, destDir string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening package archive: %w", err)
	}
	defer func() {
		// Read-only archive handle; close errors are exotic.
		_ = zr.Close()
	}()

	for _, entry := range zr.File {
		rel := stripTopDir(entry.Name)
		if rel == "" {
			continue
		}

		target, err := secureJoin(destDir, rel)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", rel, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", rel, err)
		}

		if err := extractFile(entry, target); err != nil {
			return err
		}
	}

	return nil
}

// extractFile copies a single zip entry to target with a size limit.
func extractFile(entry *zip.File, target string) (err error) {
	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("opening archive entry %s: %w", entry.Name, err)
	}
	defer func() { _ = rc.Close() }() // read-only entry body

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(out, io.LimitReader(rc, maxPackageFileBytes)); err != nil {
		return fmt.Errorf("extracting %s: %w", entry.Name, err)
	}

	return nil
}

// stripTopDir removes the first path component from a zip entry name.
// Returns "" for the top-level directory entry itself.
func stripTopDir(name string) string {
	name = strings.TrimPrefix(name, "/")
	idx := strings.IndexByte(name, '/')
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}

// secureJoin joins rel onto destDir and rejects entries that would escape it
// (zip-slip protection).
func secureJoin(destDir, rel string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(rel))

	cleanDest := filepath.Clean(destDir)
	if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes extraction directory", rel)
	}

	return target, nil
}
