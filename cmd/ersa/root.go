// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for ersa.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"ersa-cli/internal/config"
	"ersa-cli/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// Verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCfg is the configuration loaded during initRootConfig. Commands
	// read it through currentConfig, which falls back to defaults when
	// loading failed.
	rootCfg *config.Config

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "ersa",
		Short: "A build tool for the GPC language",
		Long: TitleStyle.Render("ersa") + SubtitleStyle.Render(" - A build tool for the GPC language") + `

ersa preprocesses GPC source files into a single distributable file:
imports are resolved and inlined, define! macros are expanded, and
constant expressions are folded at build time.

Around the core pipeline it manages projects (project.json manifests),
library packages fetched from GitHub, and the GPC language server.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Scaffold a project with: ersa new my-project
  2. Edit src/main.gpc
  3. Build it with: ersa build

` + SubtitleStyle.Render("Examples:") + `
  ersa build                Build the project in the current directory
  ersa build --watch        Rebuild whenever a .gpc file changes
  ersa new my-lib --lib     Scaffold a library package
  ersa pkg install core     Install the standard library bundle
  ersa lsp install          Install the GPC language server
  ersa explain build-failed Explain a reported issue in detail`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/ersa/config.cue)")

	// Add subcommands
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(pkgCmd)
	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(completionCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig reads in config file and ENV variables if set.
func initRootConfig() {
	// Set custom config file path if provided via --config flag
	if cfgFile != "" {
		config.SetConfigFilePathOverride(cfgFile)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Always surface config loading errors to the user
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
	}
	rootCfg = cfg

	// Apply verbose from config if not set via flag
	if cfg != nil && !verbose {
		verbose = cfg.UI.Verbose
	}
}

// currentConfig returns the loaded configuration, or the defaults when the
// config file could not be loaded.
func currentConfig() *config.Config {
	if rootCfg != nil {
		return rootCfg
	}
	return config.DefaultConfig()
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}

// glamourStyle maps the configured color scheme onto a glamour style name.
func glamourStyle(cfg *config.Config) string {
	if cfg != nil && cfg.UI.ColorScheme == config.ColorSchemeLight {
		return "light"
	}
	return "dark"
}

// printIssue renders an issue catalog entry to stderr. Rendering failures
// fall back to the raw markdown so the guidance is never lost.
func printIssue(id issue.Id) {
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render(glamourStyle(currentConfig()))
	if err != nil {
		rendered = string(entry.MarkdownMsg())
	}
	fmt.Fprint(os.Stderr, rendered)
}
