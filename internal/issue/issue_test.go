// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func allIds() []Id {
	return []Id{
		ProjectNotFoundId,
		ManifestParseErrorId,
		EntryNotFoundId,
		ImportNotFoundId,
		CircularImportId,
		MacroExpansionFailedId,
		ExpansionDepthExceededId,
		PackageNotFoundId,
		PackageInstallFailedId,
		LockfileOutOfSyncId,
		LspNotInstalledId,
		LspDownloadFailedId,
		ConfigLoadFailedId,
		BuildFailedId,
	}
}

func TestId_Constants(t *testing.T) {
	// Verify all IDs are unique
	seen := make(map[Id]bool)
	for _, id := range allIds() {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	// Verify IDs start at 1 (iota + 1)
	if ProjectNotFoundId != 1 {
		t.Errorf("ProjectNotFoundId = %d, want 1", ProjectNotFoundId)
	}
}

func TestIssue_Id(t *testing.T) {
	issue := Get(ProjectNotFoundId)
	if issue == nil {
		t.Fatal("Get(ProjectNotFoundId) returned nil")
	}

	if issue.Id() != ProjectNotFoundId {
		t.Errorf("issue.Id() = %d, want %d", issue.Id(), ProjectNotFoundId)
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{ProjectNotFoundId, false, "No GPC project found"},
		{ManifestParseErrorId, false, "Failed to parse project.json"},
		{EntryNotFoundId, false, "Entry file not found"},
		{ImportNotFoundId, false, "Import target not found"},
		{CircularImportId, false, "Circular import detected"},
		{MacroExpansionFailedId, false, "Macro expansion failed"},
		{ExpansionDepthExceededId, false, "Macro expansion too deep"},
		{PackageNotFoundId, false, "Package not found"},
		{PackageInstallFailedId, false, "Package installation failed"},
		{LockfileOutOfSyncId, false, "Lockfile out of sync"},
		{LspNotInstalledId, false, "Language server not installed"},
		{LspDownloadFailedId, false, "Language server download failed"},
		{ConfigLoadFailedId, false, "Failed to load configuration"},
		{BuildFailedId, false, "Build failed"},
		{Id(9999), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			issue := Get(tt.id)

			if tt.wantNil {
				if issue != nil {
					t.Errorf("Get(%d) should return nil", tt.id)
				}
				return
			}

			if issue == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}

			if tt.contains != "" && !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain '%s'", tt.id, tt.contains)
			}
		})
	}
}

func TestValues(t *testing.T) {
	issues := Values()

	if len(issues) != len(allIds()) {
		t.Errorf("Values() returned %d issues, want %d", len(issues), len(allIds()))
	}

	// Verify all issues have valid IDs
	for _, issue := range issues {
		if issue.Id() == 0 {
			t.Error("found issue with ID 0")
		}
	}
}

func TestIssue_DocLinks_ReturnsClone(t *testing.T) {
	testIssue := &Issue{
		id:       Id(9999),
		mdMsg:    "# Test",
		docLinks: []HttpLink{"https://docs.example.com"},
	}

	links := testIssue.DocLinks()
	links[0] = "modified"

	if testIssue.DocLinks()[0] != "https://docs.example.com" {
		t.Error("DocLinks() should return a clone")
	}
}

func TestIssue_Render_WithLinks(t *testing.T) {
	// Mock the render function for testing
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	testIssue := &Issue{
		id:       Id(9999),
		mdMsg:    "# Test Issue\n\nThis is a test.",
		docLinks: []HttpLink{"https://docs.example.com"},
		extLinks: []HttpLink{"https://external.example.com"},
	}

	rendered, err := testIssue.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}

	// The rendered output should include the "See also" section
	if !strings.Contains(rendered, "See also") {
		t.Error("Render() with links should contain 'See also'")
	}
}

func TestIssue_Render_NoLinks(t *testing.T) {
	// Mock the render function for testing
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	testIssue := &Issue{
		id:    Id(9998),
		mdMsg: "# Test Issue\n\nNo links here.",
	}

	rendered, err := testIssue.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}

	if strings.Contains(rendered, "See also") {
		t.Error("Render() without links should not contain 'See also'")
	}
}

func TestAllIssuesHaveContent(t *testing.T) {
	for _, issue := range Values() {
		if issue.MarkdownMsg() == "" {
			t.Errorf("Issue %d has empty MarkdownMsg", issue.Id())
		}
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	// Mock the render function for testing
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	for _, issue := range Values() {
		rendered, err := issue.Render("")
		if err != nil {
			t.Errorf("Issue %d failed to render: %v", issue.Id(), err)
		}
		if rendered == "" {
			t.Errorf("Issue %d rendered to empty string", issue.Id())
		}
	}
}
