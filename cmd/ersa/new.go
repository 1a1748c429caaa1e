// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"ersa-cli/pkg/library"
	"ersa-cli/pkg/project"

	"github.com/spf13/cobra"
)

const starterMain = `// Entry point for your GPC program.

define! greet(name) {
	print("Hello, " + name + "!")
}

greet("world")! {};
`

const starterLib = `// Public surface of your library.
// Projects import it with: use <name>::lib;

define! version_banner {
	print("powered by %0")
}
`

var (
	newLib bool

	// newCmd scaffolds a new project or library
	newCmd = &cobra.Command{
		Use:   "new <name>",
		Short: "Scaffold a new GPC project or library",
		Long: `Scaffold a new GPC project or library in a directory named after it.

Projects get a project.json manifest and a src/main.gpc entry file.
With --lib a library layout is created instead: a lib.json manifest
and a src/lib.gpc starter module.`,
		Args: cobra.ExactArgs(1),
		RunE: runNew,
	}
)

func init() {
	newCmd.Flags().BoolVar(&newLib, "lib", false, "scaffold a library package instead of a project")
}

func runNew(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := library.ValidateName(name); err != nil {
		return err
	}

	// Refuse to touch anything that already exists.
	if _, err := os.Stat(name); err == nil {
		return fmt.Errorf("directory '%s' already exists", name)
	}

	var err error
	if newLib {
		err = scaffoldLibrary(name)
	} else {
		err = scaffoldProject(name)
	}
	if err != nil {
		return err
	}

	absPath, _ := filepath.Abs(name)
	fmt.Printf("%s Created %s\n", SuccessStyle.Render("✓"), absPath)
	fmt.Println()
	fmt.Println(SubtitleStyle.Render("Next steps:"))
	if newLib {
		fmt.Println("  1. Edit src/lib.gpc to add your macros and definitions")
		fmt.Println("  2. Fill in the url field of lib.json before publishing")
		fmt.Println("  3. Push the directory to GitHub to make it installable")
	} else {
		fmt.Printf("  1. cd %s\n", name)
		fmt.Println("  2. Edit src/main.gpc")
		fmt.Println("  3. Run 'ersa build' to produce the built output")
	}

	return nil
}

// scaffoldProject writes the binary-project layout: project.json plus a
// src/main.gpc entry file.
func scaffoldProject(name string) error {
	m := &project.Manifest{
		Name:    name,
		Version: "0.1.0",
		Entry:   filepath.Join("src", "main.gpc"),
	}
	manifest, err := m.GenerateJSON()
	if err != nil {
		return err
	}
	return writeTree(name, map[string][]byte{
		project.ManifestFileName:         manifest,
		filepath.Join("src", "main.gpc"): []byte(starterMain),
	})
}

// scaffoldLibrary writes the library layout: lib.json plus a src/lib.gpc
// starter module.
func scaffoldLibrary(name string) error {
	// The url placeholder keeps the manifest valid; publishing needs the
	// real repository URL filled in.
	manifest := fmt.Sprintf(`{
  "name": %q,
  "url": "https://github.com/example/%s",
  "version": "0.1.0",
  "dependencies": []
}
`, name, name)
	return writeTree(name, map[string][]byte{
		library.ManifestFileName:        []byte(manifest),
		filepath.Join("src", "lib.gpc"): []byte(starterLib),
	})
}

func writeTree(root string, files map[string][]byte) error {
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}
