// SPDX-License-Identifier: MPL-2.0

// Package registry installs GPC library packages from GitHub repositories
// into the packages directory. Packages are plain repositories carrying a
// lib.json manifest; install fetches the manifest via the contents API, then
// downloads and unpacks the repository archive. sync resolves the dependency
// closure of the installed packages and pins it in ersa-lock.toml.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"

	"ersa-cli/internal/dag"
	"ersa-cli/internal/github"
	"ersa-cli/pkg/library"
)

const (
	// defaultOwner is the GitHub organization packages resolve under when a
	// bare name is given.
	defaultOwner = "gpx-lang"

	// coreAlias and corePackage map `ersa pkg install core` to the standard
	// library bundle.
	coreAlias   = "core"
	corePackage = "gpx-stdlib"
)

// ErrPackageNotFound indicates the package repository or its lib.json does
// not exist in the registry.
var ErrPackageNotFound = errors.New("package not found in registry")

type (
	// Registry installs, lists, updates, and removes library packages.
	Registry struct {
		packagesDir string
		owner       string
		apiBase     string
		token       string
		httpClient  *http.Client
	}

	// Option configures a Registry during construction.
	Option func(*Registry)

	// UpdateResult describes the outcome of an Update call.
	UpdateResult struct {
		Name          string
		LocalVersion  string
		RemoteVersion string
		Updated       bool
	}

	// SyncResult describes the outcome of a Sync call.
	SyncResult struct {
		// Order is the full dependency closure in install order.
		Order []string
		// Installed lists the packages sync had to install.
		Installed []string
		// Lockfile is the pinned closure written to ersa-lock.toml.
		Lockfile *Lockfile
	}
)

// WithAPIBase overrides the GitHub API base URL, primarily for test servers.
func WithAPIBase(base string) Option {
	return func(r *Registry) {
		r.apiBase = base
	}
}

// WithToken sets a GitHub token forwarded to API requests.
func WithToken(token string) Option {
	return func(r *Registry) {
		r.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Registry) {
		r.httpClient = c
	}
}

// WithOwner overrides the default GitHub organization for bare package names.
func WithOwner(owner string) Option {
	return func(r *Registry) {
		r.owner = owner
	}
}

// New creates a Registry that installs packages under packagesDir.
func New(packagesDir string, opts ...Option) *Registry {
	r := &Registry{
		packagesDir: packagesDir,
		owner:       defaultOwner,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Install fetches and unpacks the named package into the packages directory.
// name may be a bare package name (resolved under the default organization),
// an "owner/repo" pair, or a full GitHub URL. The "core" alias installs the
// standard library bundle. Returns the installed manifest.
func (r *Registry) Install(ctx context.Context, name string) (*library.Manifest, error) {
	owner, repo, err := r.resolveSource(name)
	if err != nil {
		return nil, err
	}
	return r.installRepo(ctx, owner, repo)
}

// List enumerates the installed packages and their manifests.
func (r *Registry) List() ([]library.Installed, error) {
	return library.ListInstalled(r.packagesDir)
}

// Remove deletes the named package from the packages directory.
func (r *Registry) Remove(name string) error {
	if err := library.ValidateName(name); err != nil {
		return err
	}

	dir := filepath.Join(r.packagesDir, name)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", name, library.ErrManifestNotFound)
		}
		return fmt.Errorf("checking package %s: %w", name, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing package %s: %w", name, err)
	}
	return nil
}

// Update compares the installed package version against the registry and
// reinstalls when the remote version is newer.
func (r *Registry) Update(ctx context.Context, name string) (*UpdateResult, error) {
	name = r.resolveAlias(name)
	if err := library.ValidateName(name); err != nil {
		return nil, err
	}

	local, err := library.Load(filepath.Join(r.packagesDir, name))
	if err != nil {
		return nil, err
	}

	remote, err := r.FetchManifest(ctx, name)
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{
		Name:          name,
		LocalVersion:  local.Version,
		RemoteVersion: remote.Version,
	}

	if semver.Compare(normalizeVersion(remote.Version), normalizeVersion(local.Version)) <= 0 {
		return result, nil
	}

	if _, err := r.Install(ctx, name); err != nil {
		return nil, err
	}
	result.Updated = true

	return result, nil
}

// FetchManifest downloads the lib.json of the named package without
// installing it.
func (r *Registry) FetchManifest(ctx context.Context, name string) (*library.Manifest, error) {
	owner, repo, err := r.resolveSource(name)
	if err != nil {
		return nil, err
	}
	return r.fetchRepoManifest(ctx, owner, repo)
}

// Sync resolves the dependency closure of all installed packages, installs
// the missing ones in dependency order, and writes the lockfile into
// projectRoot. Dependency cycles surface as a *dag.CycleError.
func (r *Registry) Sync(ctx context.Context, projectRoot string) (*SyncResult, error) {
	installed, err := r.List()
	if err != nil {
		return nil, err
	}

	// Walk the dependency graph breadth-first, fetching manifests for
	// packages that are not installed locally.
	manifests := make(map[string]*library.Manifest)
	graph := dag.New()

	var queue []string
	for _, pkg := range installed {
		manifests[pkg.Manifest.Name] = pkg.Manifest
		queue = append(queue, pkg.Manifest.Name)
		graph.AddNode(pkg.Manifest.Name)
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		m := manifests[name]
		for _, dep := range m.Dependencies {
			depOwner, depRepo, srcErr := parseRepoRef(dep)
			if srcErr != nil {
				return nil, fmt.Errorf("package %s: %w", name, srcErr)
			}

			depName := depRepo
			// Dependencies install before the packages that require them.
			graph.AddEdge(depName, name)

			if _, seen := manifests[depName]; seen {
				continue
			}

			depManifest, fetchErr := r.fetchRepoManifest(ctx, depOwner, depRepo)
			if fetchErr != nil {
				return nil, fmt.Errorf("resolving dependency %s of %s: %w", depName, name, fetchErr)
			}
			manifests[depName] = depManifest
			queue = append(queue, depName)
		}
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Order: order, Lockfile: &Lockfile{}}

	for _, name := range order {
		m := manifests[name]

		if _, statErr := os.Stat(filepath.Join(r.packagesDir, name, library.ManifestFileName)); statErr != nil {
			owner, repo, srcErr := parseRepoRef(m.URL)
			if srcErr != nil {
				return nil, fmt.Errorf("package %s: %w", name, srcErr)
			}
			installedManifest, installErr := r.installRepo(ctx, owner, repo)
			if installErr != nil {
				return nil, fmt.Errorf("installing dependency %s: %w", name, installErr)
			}
			m = installedManifest
			result.Installed = append(result.Installed, name)
		}

		result.Lockfile.Packages = append(result.Lockfile.Packages, LockedPackage{
			Name:    m.Name,
			Version: m.Version,
			URL:     m.URL,
		})
	}

	if err := WriteLockfile(projectRoot, result.Lockfile); err != nil {
		return nil, err
	}

	return result, nil
}

// installRepo downloads the repository archive and unpacks it into the
// packages directory under the manifest's package name.
func (r *Registry) installRepo(ctx context.Context, owner, repo string) (_ *library.Manifest, err error) {
	client := r.clientFor(owner, repo)

	archivePath, err := r.downloadArchive(ctx, client, owner, repo)
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(archivePath) }()

	// Unpack into a staging directory first so a failed extraction never
	// leaves a half-written package behind.
	if err := os.MkdirAll(r.packagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating packages directory: %w", err)
	}

	staging, err := os.MkdirTemp(r.packagesDir, ".install-*")
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	if err := extractZipball(archivePath, staging); err != nil {
		return nil, err
	}

	manifest, err := library.Load(staging)
	if err != nil {
		if errors.Is(err, library.ErrManifestNotFound) {
			return nil, fmt.Errorf("%s/%s has no %s: %w", owner, repo, library.ManifestFileName, ErrPackageNotFound)
		}
		return nil, err
	}

	if err := library.ValidateName(manifest.Name); err != nil {
		return nil, err
	}

	target := filepath.Join(r.packagesDir, manifest.Name)
	if err := os.RemoveAll(target); err != nil {
		return nil, fmt.Errorf("replacing package %s: %w", manifest.Name, err)
	}
	if err := os.Rename(staging, target); err != nil {
		return nil, fmt.Errorf("installing package %s: %w", manifest.Name, err)
	}

	return manifest, nil
}

// downloadArchive fetches the repository zipball into a temp file, trying the
// main branch first and falling back to master for older repositories.
func (r *Registry) downloadArchive(ctx context.Context, client *github.Client, owner, repo string) (string, error) {
	for _, ref := range []string{"main", "master"} {
		body, err := client.DownloadZipball(ctx, ref)
		if err != nil {
			if errors.Is(err, github.ErrRepoNotFound) {
				continue
			}
			return "", err
		}

		path, writeErr := writeTempArchive(body)
		_ = body.Close() // read-only HTTP response body
		if writeErr != nil {
			return "", writeErr
		}
		return path, nil
	}

	return "", fmt.Errorf("%s/%s: %w", owner, repo, ErrPackageNotFound)
}

// fetchRepoManifest downloads and parses lib.json from the repository's
// default branch.
func (r *Registry) fetchRepoManifest(ctx context.Context, owner, repo string) (*library.Manifest, error) {
	client := r.clientFor(owner, repo)

	data, err := client.GetFileContents(ctx, library.ManifestFileName)
	if err != nil {
		if errors.Is(err, github.ErrFileNotFound) {
			return nil, fmt.Errorf("%s/%s: %w", owner, repo, ErrPackageNotFound)
		}
		return nil, err
	}

	return library.Parse(data, owner+"/"+repo+"/"+library.ManifestFileName)
}

// clientFor builds a GitHub client for the given repository, honoring the
// registry's API base and token.
func (r *Registry) clientFor(owner, repo string) *github.Client {
	opts := []github.ClientOption{}
	if r.apiBase != "" {
		opts = append(opts, github.WithBaseURL(r.apiBase))
	}
	if r.token != "" {
		opts = append(opts, github.WithToken(r.token))
	}
	if r.httpClient != nil {
		opts = append(opts, github.WithHTTPClient(r.httpClient))
	}
	return github.NewClient(owner, repo, opts...)
}

// resolveSource maps a user-supplied package reference to an owner/repo pair.
func (r *Registry) resolveSource(name string) (owner, repo string, err error) {
	name = r.resolveAlias(name)

	if strings.Contains(name, "/") {
		return parseRepoRef(name)
	}

	if err := library.ValidateName(name); err != nil {
		return "", "", err
	}
	return r.owner, name, nil
}

// resolveAlias expands well-known package aliases.
func (r *Registry) resolveAlias(name string) string {
	if name == coreAlias {
		return corePackage
	}
	return name
}

// parseRepoRef parses an "owner/repo" pair or a GitHub URL into its parts.
func parseRepoRef(ref string) (owner, repo string, err error) {
	s := strings.TrimSuffix(strings.TrimSpace(ref), ".git")
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "github.com/")
	s = strings.Trim(s, "/")

	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q is not an owner/repo reference", library.ErrInvalidPackageName, ref)
	}
	return parts[0], parts[1], nil
}

// writeTempArchive copies the archive stream into a temp file and returns
// its path. The caller removes the file.
func writeTempArchive(body io.Reader) (_ string, err error) {
	tmp, err := os.CreateTemp("", "ersa-pkg-*.zip")
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
		return "", fmt.Errorf("writing archive to temp file: %w", err)
	}

	return tmp.Name(), nil
}

// normalizeVersion adds the leading v the semver package requires. Invalid
// versions compare as equal, which leaves packages untouched.
func normalizeVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
