// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"sort"

	"ersa-cli/internal/issue"

	"github.com/spf13/cobra"
)

// issueSlugs maps the stable command-line names onto issue catalog entries.
// These names appear in error output ("run 'ersa explain ...'") and must not
// change once published.
var issueSlugs = map[string]issue.Id{
	"project-not-found":        issue.ProjectNotFoundId,
	"manifest-parse-error":     issue.ManifestParseErrorId,
	"entry-not-found":          issue.EntryNotFoundId,
	"import-not-found":         issue.ImportNotFoundId,
	"circular-import":          issue.CircularImportId,
	"macro-expansion-failed":   issue.MacroExpansionFailedId,
	"expansion-depth-exceeded": issue.ExpansionDepthExceededId,
	"package-not-found":        issue.PackageNotFoundId,
	"package-install-failed":   issue.PackageInstallFailedId,
	"lockfile-out-of-sync":     issue.LockfileOutOfSyncId,
	"lsp-not-installed":        issue.LspNotInstalledId,
	"lsp-download-failed":      issue.LspDownloadFailedId,
	"config-load-failed":       issue.ConfigLoadFailedId,
	"build-failed":             issue.BuildFailedId,
}

// explainCmd renders an issue catalog entry
var explainCmd = &cobra.Command{
	Use:   "explain [issue-id]",
	Short: "Explain a reported issue in detail",
	Long: `Explain a reported issue in detail.

Error output often names an issue id. This command renders the full
catalog entry for it: what went wrong, common causes, and what to try.
Run without arguments to list the known issue ids.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: issueSlugList(),
	RunE:      runExplain,
}

func runExplain(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Println(TitleStyle.Render("Known issues"))
		fmt.Println()
		for _, slug := range issueSlugList() {
			fmt.Printf("  %s\n", CmdStyle.Render(slug))
		}
		fmt.Println()
		fmt.Println(SubtitleStyle.Render("Run 'ersa explain <issue-id>' for details."))
		return nil
	}

	id, ok := issueSlugs[args[0]]
	if !ok {
		return fmt.Errorf("unknown issue id '%s' (run 'ersa explain' for the list)", args[0])
	}

	rendered, err := issue.Get(id).Render(glamourStyle(currentConfig()))
	if err != nil {
		return fmt.Errorf("rendering issue: %w", err)
	}
	fmt.Print(rendered)
	return nil
}

func issueSlugList() []string {
	slugs := make([]string, 0, len(issueSlugs))
	for slug := range issueSlugs {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}
