// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"

	"ersa-cli/internal/config"
	"ersa-cli/internal/dag"
	"ersa-cli/internal/issue"
	"ersa-cli/internal/registry"

	"github.com/spf13/cobra"
)

var (
	// pkgCmd groups the package manager subcommands
	pkgCmd = &cobra.Command{
		Use:   "pkg",
		Short: "Manage installed GPC library packages",
		Long: `Manage installed GPC library packages.

Packages are GitHub repositories carrying a lib.json manifest. They are
installed into the packages directory (see 'ersa config show') and
resolved by 'use <package>::<module>;' imports at build time.

The special name 'core' installs the standard library bundle.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pkgInstallCmd = &cobra.Command{
		Use:   "install <package>...",
		Short: "Install one or more packages",
		Long: `Install one or more packages from GitHub.

A package may be named three ways: a bare name resolved under the
default organization, an owner/repo pair, or a full repository URL.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runPkgInstall,
	}

	pkgListCmd = &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		RunE:  runPkgList,
	}

	pkgUpdateCmd = &cobra.Command{
		Use:   "update <package>",
		Short: "Update a package to the latest published version",
		Args:  cobra.ExactArgs(1),
		RunE:  runPkgUpdate,
	}

	pkgRemoveCmd = &cobra.Command{
		Use:   "remove <package>",
		Short: "Remove an installed package",
		Args:  cobra.ExactArgs(1),
		RunE:  runPkgRemove,
	}

	pkgSyncCmd = &cobra.Command{
		Use:   "sync [dir]",
		Short: "Install missing dependencies and write the lockfile",
		Long: `Install missing dependencies and write the lockfile.

sync walks the dependency manifests of every installed package, installs
anything missing in dependency order, and pins the resolved closure in
` + registry.LockfileName + ` at the project root.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPkgSync,
	}
)

func init() {
	pkgCmd.AddCommand(pkgInstallCmd)
	pkgCmd.AddCommand(pkgListCmd)
	pkgCmd.AddCommand(pkgUpdateCmd)
	pkgCmd.AddCommand(pkgRemoveCmd)
	pkgCmd.AddCommand(pkgSyncCmd)
}

// newRegistry builds a Registry from the loaded configuration. A GITHUB_TOKEN
// environment variable is forwarded so private packages and higher rate
// limits work without extra flags.
func newRegistry(cfg *config.Config) (*registry.Registry, error) {
	packagesDir, err := config.PackagesDir(cfg)
	if err != nil {
		return nil, err
	}
	opts := []registry.Option{
		registry.WithToken(os.Getenv("GITHUB_TOKEN")),
	}
	if cfg.Registry.APIBase != "" {
		opts = append(opts, registry.WithAPIBase(cfg.Registry.APIBase))
	}
	return registry.New(packagesDir, opts...), nil
}

func runPkgInstall(cmd *cobra.Command, args []string) error {
	reg, err := newRegistry(currentConfig())
	if err != nil {
		return err
	}

	for _, name := range args {
		manifest, err := reg.Install(cmd.Context(), name)
		if err != nil {
			if errors.Is(err, registry.ErrPackageNotFound) {
				printIssue(issue.PackageNotFoundId)
			} else {
				printIssue(issue.PackageInstallFailedId)
			}
			return err
		}
		fmt.Printf("%s Installed %s %s\n", SuccessStyle.Render("✓"), manifest.Name, manifest.Version)
	}
	return nil
}

func runPkgList(cmd *cobra.Command, args []string) error {
	reg, err := newRegistry(currentConfig())
	if err != nil {
		return err
	}

	installed, err := reg.List()
	if err != nil {
		return err
	}
	if len(installed) == 0 {
		fmt.Println(SubtitleStyle.Render("No packages installed."))
		return nil
	}

	fmt.Println(TitleStyle.Render("Installed packages"))
	fmt.Println()
	for _, pkg := range installed {
		fmt.Printf("  %s %s\n", CmdStyle.Render(pkg.Manifest.Name), SubtitleStyle.Render(pkg.Manifest.Version))
	}
	return nil
}

func runPkgUpdate(cmd *cobra.Command, args []string) error {
	reg, err := newRegistry(currentConfig())
	if err != nil {
		return err
	}

	res, err := reg.Update(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, registry.ErrPackageNotFound) {
			printIssue(issue.PackageNotFoundId)
		}
		return err
	}
	if !res.Updated {
		fmt.Printf("%s is already up to date (%s)\n", res.Name, res.LocalVersion)
		return nil
	}
	fmt.Printf("%s Updated %s %s -> %s\n", SuccessStyle.Render("✓"), res.Name, res.LocalVersion, res.RemoteVersion)
	return nil
}

func runPkgRemove(cmd *cobra.Command, args []string) error {
	reg, err := newRegistry(currentConfig())
	if err != nil {
		return err
	}

	if err := reg.Remove(args[0]); err != nil {
		return err
	}
	fmt.Printf("%s Removed %s\n", SuccessStyle.Render("✓"), args[0])
	return nil
}

func runPkgSync(cmd *cobra.Command, args []string) error {
	projectRoot := "."
	if len(args) > 0 {
		projectRoot = args[0]
	}

	reg, err := newRegistry(currentConfig())
	if err != nil {
		return err
	}

	res, err := reg.Sync(cmd.Context(), projectRoot)
	if err != nil {
		// Dependency cycles come back as *dag.CycleError with the full
		// cycle in the message; anything else is an install failure.
		var cycleErr *dag.CycleError
		if !errors.As(err, &cycleErr) {
			printIssue(issue.PackageInstallFailedId)
		}
		return err
	}

	for _, name := range res.Installed {
		fmt.Printf("%s Installed %s\n", SuccessStyle.Render("✓"), name)
	}
	if len(res.Installed) == 0 {
		fmt.Println("All dependencies already installed.")
	}
	fmt.Printf("%s Wrote %s (%d packages)\n", SuccessStyle.Render("✓"), registry.LockfileName, len(res.Lockfile.Packages))
	return nil
}
