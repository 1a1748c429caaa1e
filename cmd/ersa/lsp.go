// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"runtime"

	"ersa-cli/internal/issue"
	"ersa-cli/internal/lsp"

	"github.com/spf13/cobra"
)

var (
	lspVersion string

	// lspCmd groups the language server subcommands
	lspCmd = &cobra.Command{
		Use:   "lsp",
		Short: "Manage the GPC language server",
		Long: `Manage the GPC language server.

The language server ships separately from ersa. These commands download
verified release builds from GitHub and install them under the ersa data
directory, where editors can be pointed at the binary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	lspInstallCmd = &cobra.Command{
		Use:   "install",
		Short: "Install the language server",
		Long: `Install the language server.

Downloads the release archive for this platform, verifies its sha256
checksum against the release's checksums file, and installs the binary.
By default the latest stable release is used.`,
		RunE: runLspInstall,
	}

	lspUpdateCmd = &cobra.Command{
		Use:   "update",
		Short: "Update the language server to the latest release",
		RunE:  runLspUpdate,
	}

	lspPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the installed language server binary path",
		RunE:  runLspPath,
	}

	lspStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the installed language server and platform",
		RunE:  runLspStatus,
	}
)

func init() {
	lspInstallCmd.Flags().StringVar(&lspVersion, "version", "", "release version to install (default: latest)")

	lspCmd.AddCommand(lspInstallCmd)
	lspCmd.AddCommand(lspUpdateCmd)
	lspCmd.AddCommand(lspPathCmd)
	lspCmd.AddCommand(lspStatusCmd)
}

func runLspInstall(cmd *cobra.Command, args []string) error {
	installer, err := lsp.NewInstaller()
	if err != nil {
		return err
	}

	tag, err := installer.Install(cmd.Context(), lspVersion)
	if err != nil {
		printIssue(issue.LspDownloadFailedId)
		return err
	}

	fmt.Printf("%s Installed language server %s\n", SuccessStyle.Render("✓"), tag)
	fmt.Printf("  %s\n", SubtitleStyle.Render(installer.BinaryPath()))
	return nil
}

func runLspUpdate(cmd *cobra.Command, args []string) error {
	installer, err := lsp.NewInstaller()
	if err != nil {
		return err
	}

	res, err := installer.Update(cmd.Context())
	if err != nil {
		printIssue(issue.LspDownloadFailedId)
		return err
	}
	if !res.Updated {
		fmt.Printf("Language server is already up to date (%s)\n", res.InstalledVersion)
		return nil
	}
	if res.InstalledVersion == "" {
		fmt.Printf("%s Installed language server %s\n", SuccessStyle.Render("✓"), res.LatestVersion)
		return nil
	}
	fmt.Printf("%s Updated language server %s -> %s\n", SuccessStyle.Render("✓"), res.InstalledVersion, res.LatestVersion)
	return nil
}

func runLspStatus(cmd *cobra.Command, args []string) error {
	installer, err := lsp.NewInstaller()
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s/%s\n", CmdStyle.Render("Platform"), runtime.GOOS, runtime.GOARCH)
	version, err := installer.InstalledVersion()
	switch {
	case errors.Is(err, lsp.ErrNotInstalled):
		fmt.Printf("%s: %s\n", CmdStyle.Render("Installed"), SubtitleStyle.Render("(not installed)"))
	case err != nil:
		return err
	default:
		if version == "" {
			version = "unknown"
		}
		fmt.Printf("%s: %s\n", CmdStyle.Render("Installed"), version)
		fmt.Printf("%s: %s\n", CmdStyle.Render("Binary"), installer.BinaryPath())
	}
	return nil
}

func runLspPath(cmd *cobra.Command, args []string) error {
	installer, err := lsp.NewInstaller()
	if err != nil {
		return err
	}

	if _, err := installer.InstalledVersion(); err != nil {
		if errors.Is(err, lsp.ErrNotInstalled) {
			printIssue(issue.LspNotInstalledId)
		}
		return err
	}

	fmt.Println(installer.BinaryPath())
	return nil
}
