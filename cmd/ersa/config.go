// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"ersa-cli/internal/config"
	"ersa-cli/internal/issue"

	"github.com/spf13/cobra"
)

var (
	// configCmd groups the configuration subcommands
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage ersa configuration",
		Long: `Manage ersa configuration.

Configuration is stored in:
  - Linux: ~/.config/ersa/config.cue
  - macOS: ~/Library/Application Support/ersa/config.cue
  - Windows: %APPDATA%\ersa\config.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig()
		},
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath()
		},
	}

	configDumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print(config.GenerateCUE(currentConfig()))
			return nil
		},
	}
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configDumpCmd)
}

func showConfig() error {
	cfg, err := config.Load()
	if err != nil {
		printIssue(issue.ConfigLoadFailedId)
		return err
	}

	// Style definitions using shared color palette
	headerStyle := TitleStyle
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Println(headerStyle.Render("Current Configuration"))
	fmt.Println()

	cfgDir, dirErr := config.ConfigDir()
	if dirErr == nil {
		cfgPath := filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt)
		if fileExistsCheck(cfgPath) {
			fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), cfgPath)
		} else {
			fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
		}
	} else {
		fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Println()

	fmt.Printf("%s:\n", keyStyle.Render("registry"))
	fmt.Printf("  api_base: %s\n", valueStyle.Render(cfg.Registry.APIBase))
	if cfg.Registry.PackagesDir != "" {
		fmt.Printf("  packages_dir: %s\n", valueStyle.Render(string(cfg.Registry.PackagesDir)))
	} else if packagesDir, pkgErr := config.PackagesDir(cfg); pkgErr == nil {
		fmt.Printf("  packages_dir: %s %s\n", valueStyle.Render(packagesDir), SubtitleStyle.Render("(default)"))
	}

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("build"))
	if cfg.Build.LibDir != "" {
		fmt.Printf("  lib_dir: %s\n", valueStyle.Render(string(cfg.Build.LibDir)))
	} else {
		fmt.Printf("  lib_dir: %s\n", SubtitleStyle.Render("(project manifest)"))
	}
	fmt.Printf("  max_expansion_depth: %s\n", valueStyle.Render(fmt.Sprintf("%d", cfg.Build.MaxExpansionDepth)))

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("ui"))
	fmt.Printf("  color_scheme: %s\n", valueStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Printf("  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	return nil
}

func initConfig() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	if err = config.CreateDefaultConfig(); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	fmt.Printf("%s Created default configuration at %s\n",
		SuccessStyle.Render("✓"),
		filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))

	return nil
}

func showConfigPath() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Printf("Config directory: %s\n", cfgDir)
	fmt.Printf("Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))

	if dataDir, dataErr := config.DataDir(); dataErr == nil {
		fmt.Printf("Data directory: %s\n", dataDir)
	}

	return nil
}

// fileExistsCheck checks if a file exists and is not a directory.
func fileExistsCheck(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
