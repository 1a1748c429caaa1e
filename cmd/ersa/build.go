// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ersa-cli/internal/config"
	"ersa-cli/internal/console"
	"ersa-cli/internal/issue"
	"ersa-cli/internal/watch"
	"ersa-cli/pkg/preprocess"
	"ersa-cli/pkg/project"

	"github.com/spf13/cobra"
)

// singleFileOutput is where single-file builds land when -o is not given,
// relative to the source file's directory.
var singleFileOutput = filepath.Join("build", "build.gpc")

// errEntryNotFound marks a manifest whose entry file does not exist on disk.
var errEntryNotFound = errors.New("entry file not found")

var (
	buildFile     string
	buildManifest string
	buildOutput   string
	buildWatch    bool

	// buildCmd runs the preprocessing pipeline
	buildCmd = &cobra.Command{
		Use:   "build [dir]",
		Short: "Build a GPC project or a single source file",
		Long: `Build a GPC project or a single source file.

In project mode (the default) the manifest is read from project.json in
the given directory (or the current one), the entry file is preprocessed
with imports anchored at the project root, and the result is written to
build/<version>/<name>.gpc.

With --file a single source file is built instead: imports resolve
relative to the file and the output defaults to build/build.gpc next
to it.

With --watch the build re-runs whenever a .gpc file under the project
changes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBuild,
	}
)

func init() {
	buildCmd.Flags().StringVarP(&buildFile, "file", "f", "", "build a single source file instead of a project")
	buildCmd.Flags().StringVarP(&buildManifest, "project", "p", "", "path to a project.json manifest")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "output file path")
	buildCmd.Flags().BoolVarP(&buildWatch, "watch", "w", false, "rebuild whenever a .gpc file changes")
}

type buildRequest struct {
	// File selects single-file mode when non-empty.
	File string
	// Dir is the project directory; ignored in single-file mode.
	Dir string
	// Output overrides the default output location.
	Output string
}

func runBuild(cmd *cobra.Command, args []string) error {
	req := buildRequest{
		File:   buildFile,
		Dir:    ".",
		Output: buildOutput,
	}
	if len(args) > 0 {
		req.Dir = args[0]
	}
	if buildManifest != "" {
		req.Dir = filepath.Dir(buildManifest)
	}

	cfg := currentConfig()
	logger := console.New(console.Options{Out: os.Stderr, Verbose: verbose})

	if !buildWatch {
		return buildOnce(req, cfg, logger)
	}

	// Watch mode: a failed build reports and keeps watching.
	if err := buildOnce(req, cfg, logger); err != nil {
		logger.Error("build failed", "error", err)
	}

	root := req.Dir
	if req.File != "" {
		root = filepath.Dir(req.File)
	}
	logger.Info("watching for changes", "dir", root)

	w, err := watch.New(watch.Config{
		BaseDir:  root,
		Patterns: []string{"**/*.gpc"},
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		OnChange: func(ctx context.Context, changed []string) error {
			logger.Info("change detected", "files", strings.Join(changed, ", "))
			if err := buildOnce(req, cfg, logger); err != nil {
				logger.Error("build failed", "error", err)
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	return w.Run(cmd.Context())
}

// buildOnce runs one build and reports the outcome on the logger, rendering
// the matching issue catalog entry on failure.
func buildOnce(req buildRequest, cfg *config.Config, logger *console.Logger) error {
	start := time.Now()
	out, err := executeBuild(req, cfg)
	if err != nil {
		printIssue(classifyBuildError(err))
		return err
	}
	logger.Success("build complete", "output", out, "took", time.Since(start).Round(time.Millisecond))
	return nil
}

// executeBuild resolves the build inputs, runs the preprocessing pipeline,
// and writes the output file. Returns the output path.
func executeBuild(req buildRequest, cfg *config.Config) (string, error) {
	if req.File != "" {
		return buildSingleFile(req, cfg)
	}
	return buildProject(req, cfg)
}

func buildSingleFile(req buildRequest, cfg *config.Config) (string, error) {
	src, err := filepath.Abs(req.File)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", req.File, err)
	}
	source, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", req.File, err)
	}

	baseDir := filepath.Dir(src)
	out := req.Output
	if out == "" {
		out = filepath.Join(baseDir, singleFileOutput)
	}

	text, err := preprocess.Preprocess(string(source), baseDir, pipelineOptions(cfg, "")...)
	if err != nil {
		return "", err
	}
	return out, writeOutput(out, text)
}

func buildProject(req buildRequest, cfg *config.Config) (string, error) {
	p, err := project.Load(req.Dir)
	if err != nil {
		return "", err
	}

	source, err := os.ReadFile(p.EntryPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", p.EntryPath(), errEntryNotFound)
		}
		return "", fmt.Errorf("reading %s: %w", p.EntryPath(), err)
	}

	out := req.Output
	if out == "" {
		out = p.OutputPath()
	}

	text, err := preprocess.Preprocess(string(source), p.Root, pipelineOptions(cfg, projectLibDir(p, cfg))...)
	if err != nil {
		return "", err
	}
	return out, writeOutput(out, text)
}

// projectLibDir picks the library directory for a project build: the
// manifest's lib field wins, then the configured default, anchored at the
// project root when relative.
func projectLibDir(p *project.Project, cfg *config.Config) string {
	if dir := p.LibDir(); dir != "" {
		return dir
	}
	lib := string(cfg.Build.LibDir)
	if lib == "" {
		return ""
	}
	if filepath.IsAbs(lib) {
		return lib
	}
	return filepath.Join(p.Root, lib)
}

func pipelineOptions(cfg *config.Config, libDir string) []preprocess.Option {
	opts := []preprocess.Option{
		preprocess.WithMaxExpansionDepth(cfg.Build.MaxExpansionDepth),
	}
	if libDir != "" {
		opts = append(opts, preprocess.WithLibraryDir(libDir))
	}
	return opts
}

func writeOutput(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// classifyBuildError maps a build failure onto the issue catalog entry
// whose guidance fits it.
func classifyBuildError(err error) issue.Id {
	var (
		importErr *preprocess.ImportError
		macroErr  *preprocess.MacroError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, project.ErrManifestNotFound):
		return issue.ProjectNotFoundId
	case errors.Is(err, project.ErrInvalidManifest),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr):
		return issue.ManifestParseErrorId
	case errors.Is(err, errEntryNotFound):
		return issue.EntryNotFoundId
	case errors.Is(err, preprocess.ErrCircularImport):
		return issue.CircularImportId
	case errors.As(err, &importErr):
		return issue.ImportNotFoundId
	case errors.As(err, &macroErr):
		if strings.Contains(macroErr.Reason, "exceeded") {
			return issue.ExpansionDepthExceededId
		}
		return issue.MacroExpansionFailedId
	default:
		return issue.BuildFailedId
	}
}
