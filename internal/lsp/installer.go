// SPDX-License-Identifier: MPL-2.0

// Package lsp installs and updates the GPC language server (gpc-lsp) from its
// GitHub releases. Release archives are verified against the published
// checksums.txt before the binary is placed under the ersa data directory.
package lsp

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/mod/semver"

	"ersa-cli/internal/config"
	"ersa-cli/internal/github"
)

const (
	// defaultOwner and defaultRepo locate the language server releases.
	defaultOwner = "gpx-lang"
	defaultRepo  = "gpc-lsp"

	// binaryBaseName is the name of the language server executable inside
	// release archives and on disk.
	binaryBaseName = "gpc-lsp"

	// versionFileName records the installed release tag next to the binary.
	versionFileName = "version"

	// checksumsAssetName is the checksum manifest attached to every release.
	checksumsAssetName = "checksums.txt"

	// maxBinaryBytes is the upper bound on extracted binary size (500 MB).
	// Prevents decompression bombs when extracting from a release archive.
	maxBinaryBytes = 500 << 20
)

var (
	// ErrNotInstalled indicates no language server binary is present.
	ErrNotInstalled = errors.New("language server not installed")

	// ErrInvalidVersion indicates the provided version string is not valid semver.
	ErrInvalidVersion = errors.New("invalid semantic version")
)

type (
	// Installer downloads, verifies, and installs gpc-lsp release binaries.
	Installer struct {
		client *github.Client
		dir    string // install directory (binary + version file)
		goos   string
		goarch string
	}

	// InstallerOption configures an Installer during construction.
	InstallerOption func(*Installer)

	// UpdateResult describes the outcome of an Update call.
	UpdateResult struct {
		InstalledVersion string // Version before the update ("" if none)
		LatestVersion    string // Latest stable release tag
		Updated          bool   // True if a new version was installed
	}
)

// WithClient overrides the GitHub client, primarily for test servers.
func WithClient(c *github.Client) InstallerOption {
	return func(i *Installer) {
		i.client = c
	}
}

// WithInstallDir overrides the install directory.
func WithInstallDir(dir string) InstallerOption {
	return func(i *Installer) {
		i.dir = dir
	}
}

// WithPlatform overrides the OS/arch pair used for asset selection.
func WithPlatform(goos, goarch string) InstallerOption {
	return func(i *Installer) {
		i.goos = goos
		i.goarch = goarch
	}
}

// NewInstaller creates an Installer. Without options it targets the official
// gpc-lsp releases and installs under the ersa data directory.
func NewInstaller(opts ...InstallerOption) (*Installer, error) {
	i := &Installer{
		goos:   runtime.GOOS,
		goarch: runtime.GOARCH,
	}
	for _, opt := range opts {
		opt(i)
	}

	if i.client == nil {
		i.client = github.NewClient(defaultOwner, defaultRepo)
	}

	if i.dir == "" {
		dataDir, err := config.DataDir()
		if err != nil {
			return nil, fmt.Errorf("resolving data directory: %w", err)
		}
		i.dir = filepath.Join(dataDir, "lsp")
	}

	return i, nil
}

// BinaryPath returns the path where the language server binary is (or will
// be) installed.
func (i *Installer) BinaryPath() string {
	return filepath.Join(i.dir, i.binaryName())
}

// InstalledVersion returns the release tag of the installed language server.
// Returns ErrNotInstalled when no binary is present.
func (i *Installer) InstalledVersion() (string, error) {
	if _, err := os.Stat(i.BinaryPath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotInstalled
		}
		return "", fmt.Errorf("checking language server binary: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(i.dir, versionFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Binary present but version record missing (e.g., manual copy).
			return "", nil
		}
		return "", fmt.Errorf("reading language server version: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}

// Install downloads and installs the given version ("" selects the latest
// stable release). It returns the installed release tag.
func (i *Installer) Install(ctx context.Context, version string) (_ string, err error) {
	release, err := i.resolveRelease(ctx, version)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating install directory: %w", err)
	}

	archiveName := i.archiveName(release.TagName)

	archiveAsset, err := findAsset(release.Assets, archiveName)
	if err != nil {
		return "", fmt.Errorf("finding archive asset: %w", err)
	}

	checksumsAsset, err := findAsset(release.Assets, checksumsAssetName)
	if err != nil {
		return "", fmt.Errorf("finding checksums asset: %w", err)
	}

	// Download and parse checksums.txt to obtain the expected hash for the
	// archive before downloading the (much larger) archive itself.
	checksumsBody, err := i.client.DownloadAsset(ctx, checksumsAsset.BrowserDownloadURL)
	if err != nil {
		return "", fmt.Errorf("downloading checksums: %w", err)
	}
	defer func() { _ = checksumsBody.Close() }() // read-only HTTP response body

	entries, err := ParseChecksums(checksumsBody)
	if err != nil {
		return "", fmt.Errorf("parsing checksums: %w", err)
	}

	expectedHash, err := FindChecksum(entries, archiveName)
	if err != nil {
		return "", fmt.Errorf("finding checksum for %s: %w", archiveName, err)
	}

	// Download the archive to a temp file in the install directory so the
	// final os.Rename is an atomic same-filesystem move.
	archivePath, err := i.downloadToTempFile(ctx, archiveAsset.BrowserDownloadURL)
	if err != nil {
		return "", fmt.Errorf("downloading archive: %w", err)
	}
	defer func() { _ = os.Remove(archivePath) }()

	if err := VerifyFile(archivePath, expectedHash); err != nil {
		return "", fmt.Errorf("verifying archive checksum: %w", err)
	}

	tempBinaryPath, err := i.extractBinary(archivePath)
	if err != nil {
		return "", fmt.Errorf("extracting binary from archive: %w", err)
	}

	// Track whether the rename succeeded so the deferred cleanup knows
	// whether to remove the temp binary.
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tempBinaryPath)
		}
	}()

	if err := os.Chmod(tempBinaryPath, 0o755); err != nil {
		return "", fmt.Errorf("setting binary permissions: %w", err)
	}

	if err := os.Rename(tempBinaryPath, i.BinaryPath()); err != nil {
		return "", fmt.Errorf("installing binary: %w", err)
	}
	renamed = true

	if err := os.WriteFile(filepath.Join(i.dir, versionFileName), []byte(release.TagName+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("recording installed version: %w", err)
	}

	return release.TagName, nil
}

// Update installs the latest stable release when it is newer than the
// installed version. A missing installation is treated as a fresh install.
func (i *Installer) Update(ctx context.Context) (*UpdateResult, error) {
	installed, err := i.InstalledVersion()
	if err != nil && !errors.Is(err, ErrNotInstalled) {
		return nil, err
	}

	release, err := i.resolveRelease(ctx, "")
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{
		InstalledVersion: installed,
		LatestVersion:    release.TagName,
	}

	if installed != "" {
		installedNorm, normErr := normalizeVersion(installed)
		latestNorm, latestErr := normalizeVersion(release.TagName)
		if normErr == nil && latestErr == nil && semver.Compare(installedNorm, latestNorm) >= 0 {
			return result, nil
		}
	}

	if _, err := i.Install(ctx, release.TagName); err != nil {
		return nil, err
	}
	result.Updated = true

	return result, nil
}

// resolveRelease fetches the release for the given version, or the latest
// stable release when version is empty.
func (i *Installer) resolveRelease(ctx context.Context, version string) (*github.Release, error) {
	if version != "" {
		tag, err := normalizeVersion(version)
		if err != nil {
			return nil, err
		}
		release, err := i.client.GetReleaseByTag(ctx, tag)
		if err != nil {
			return nil, fmt.Errorf("fetching release %s: %w", tag, err)
		}
		return release, nil
	}

	releases, err := i.client.ListReleases(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing releases: %w", err)
	}
	if len(releases) == 0 {
		return nil, fmt.Errorf("no stable gpc-lsp releases found")
	}
	// ListReleases returns results sorted by semver descending; the first
	// entry is the highest stable version.
	return &releases[0], nil
}

// binaryName returns the platform-specific executable name.
func (i *Installer) binaryName() string {
	if i.goos == "windows" {
		return binaryBaseName + ".exe"
	}
	return binaryBaseName
}

// archiveName builds the expected release asset filename. Release tooling
// strips the "v" prefix from the version in filenames (e.g.,
// gpc-lsp_1.0.0_linux_amd64.tar.gz) and ships zip archives on Windows.
func (i *Installer) archiveName(tag string) string {
	version := strings.TrimPrefix(tag, "v")
	ext := "tar.gz"
	if i.goos == "windows" {
		ext = "zip"
	}
	return fmt.Sprintf("%s_%s_%s_%s.%s", binaryBaseName, version, i.goos, i.goarch, ext)
}

// downloadToTempFile downloads the asset at url into a temporary file in the
// install directory and returns its path. The caller removes the file.
func (i *Installer) downloadToTempFile(ctx context.Context, url string) (_ string, err error) {
	body, err := i.client.DownloadAsset(ctx, url)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }() // read-only HTTP response body

	tmp, err := os.CreateTemp(i.dir, "gpc-lsp-download-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if closeErr := tmp.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		// Best-effort removal of partially written temp file.
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("writing to temp file: %w", err)
	}

	return tmp.Name(), nil
}

// extractBinary extracts the language server binary from the archive at
// archivePath into a temp file in the install directory and returns its path.
func (i *Installer) extractBinary(archivePath string) (string, error) {
	if strings.HasSuffix(archivePath, ".zip") || i.goos == "windows" {
		return i.extractBinaryFromZip(archivePath)
	}
	return i.extractBinaryFromTarGz(archivePath)
}

// extractBinaryFromTarGz extracts the binary from a tar.gz archive. Entries
// are matched by base filename, so both flat archives (gpc-lsp at the root)
// and nested layouts (gpc-lsp_1.0.0_linux_amd64/gpc-lsp) are handled.
func (i *Installer) extractBinaryFromTarGz(archivePath string) (_ string, err error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer func() {
		// Read-only file handle; close errors are exotic.
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("creating gzip reader: %w", err)
	}
	defer func() {
		// Gzip reader wraps the underlying file; close errors are not
		// actionable here since we only read from it.
		_ = gz.Close()
	}()

	binaryName := i.binaryName()

	tr := tar.NewReader(gz)
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return "", fmt.Errorf("reading tar entry: %w", nextErr)
		}

		if filepath.Base(hdr.Name) != binaryName {
			continue
		}

		return i.writeTempBinary(io.LimitReader(tr, maxBinaryBytes))
	}

	return "", fmt.Errorf("binary %q not found in archive %s", binaryName, archivePath)
}

// extractBinaryFromZip extracts the binary from a zip archive, matching
// entries by base filename as in extractBinaryFromTarGz.
func (i *Installer) extractBinaryFromZip(archivePath string) (_ string, err error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer func() {
		// Read-only archive handle; close errors are exotic.
		_ = zr.Close()
	}()

	binaryName := i.binaryName()

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() || filepath.Base(entry.Name) != binaryName {
			continue
		}

		rc, openErr := entry.Open()
		if openErr != nil {
			return "", fmt.Errorf("opening zip entry %s: %w", entry.Name, openErr)
		}

		path, writeErr := i.writeTempBinary(io.LimitReader(rc, maxBinaryBytes))
		_ = rc.Close() // read-only entry body
		if writeErr != nil {
			return "", writeErr
		}
		return path, nil
	}

	return "", fmt.Errorf("binary %q not found in archive %s", binaryName, archivePath)
}

// writeTempBinary copies r into a fresh temp file in the install directory
// and returns the temp file path.
func (i *Installer) writeTempBinary(r io.Reader) (_ string, err error) {
	tmp, err := os.CreateTemp(i.dir, "gpc-lsp-install-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file for binary: %w", err)
	}
	defer func() {
		if closeErr := tmp.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		// Best-effort removal of partially written temp file.
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("extracting binary: %w", err)
	}

	return tmp.Name(), nil
}

// findAsset scans the release assets for one with the given name.
func findAsset(assets []github.Asset, name string) (*github.Asset, error) {
	for i := range assets {
		if assets[i].Name == name {
			return &assets[i], nil
		}
	}
	return nil, fmt.Errorf("asset %q not found in release: %w", name, ErrAssetNotFound)
}

// normalizeVersion ensures the version string has a "v" prefix as required by
// the semver package, and validates that the result is a well-formed semantic
// version. Returns ErrInvalidVersion if the input cannot be normalized to
// valid semver.
func normalizeVersion(v string) (string, error) {
	norm := v
	if !strings.HasPrefix(norm, "v") {
		norm = "v" + norm
	}
	if !semver.IsValid(norm) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	return norm, nil
}
