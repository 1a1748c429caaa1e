// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ProjectNotFoundId Id = iota + 1
	ManifestParseErrorId
	EntryNotFoundId
	ImportNotFoundId
	CircularImportId
	MacroExpansionFailedId
	ExpansionDepthExceededId
	PackageNotFoundId
	PackageInstallFailedId
	LockfileOutOfSyncId
	LspNotInstalledId
	LspDownloadFailedId
	ConfigLoadFailedId
	BuildFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	projectNotFoundIssue = &Issue{
		id: ProjectNotFoundId,
		mdMsg: `
# No GPC project found!

We searched for a project manifest but couldn't find one.

## Search locations:
1. The directory you passed on the command line
2. The current directory

## Things you can try:
- Scaffold a new project here:
~~~
$ ersa new my-project
~~~

- Or run from inside an existing project:
~~~
$ cd /path/to/your/project
$ ersa build
~~~`,
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# Failed to parse project.json!

Your project manifest contains syntax errors or invalid fields.

## Common issues:
- Trailing commas (JSON does not allow them)
- Missing quotes around keys or values
- Missing required fields (name, version, entry)

## Things you can try:
- Check the error message above for the offending line
- Compare against a freshly scaffolded manifest:
~~~
$ ersa new reference-project
$ cat reference-project/project.json
~~~

## Example of a valid manifest:
~~~json
{
  "name": "my-project",
  "version": "0.1.0",
  "entry": "main.gpc",
  "lib": "gpc_packages"
}
~~~`,
	}

	entryNotFoundIssue = &Issue{
		id: EntryNotFoundId,
		mdMsg: `
# Entry file not found!

The entry file named in your project.json does not exist.

## Things you can try:
- Check the "entry" field in project.json for typos
- Create the missing file:
~~~
$ touch main.gpc
~~~

- Entry paths are relative to the project root, not to where you run ersa`,
	}

	importNotFoundIssue = &Issue{
		id: ImportNotFoundId,
		mdMsg: `
# Import target not found!

One of your source files imports a file or module that does not exist.

## How imports resolve:
- ` + "`import path;`" + ` is relative to the file containing the statement
- ` + "`use local::a::b;`" + ` is relative to the project root
- ` + "`use pkg::mod;`" + ` looks inside your library directory

## Things you can try:
- Check the import path for typos (the .gpc extension is optional)
- Install the missing package:
~~~
$ ersa pkg install <package>
~~~

- List what is already installed:
~~~
$ ersa pkg list
~~~`,
	}

	circularImportIssue = &Issue{
		id: CircularImportId,
		mdMsg: `
# Circular import detected!

Two or more files import each other, directly or through intermediaries.

## Example of a cycle:
~~~
a.gpc:  use local::b;
b.gpc:  use local::a;   // Cycle: a -> b -> a
~~~

## Things you can try:
- Move the shared definitions into a third file both can import
- Each file is only ever inlined once per build, so importing the same
  module from two places also reports a cycle — import it once at the top
  of your entry file instead`,
	}

	macroExpansionFailedIssue = &Issue{
		id: MacroExpansionFailedId,
		mdMsg: `
# Macro expansion failed!

A macro call in your source could not be expanded.

## Common causes:
- Calling a macro that was never defined (or defined after a failed import)
- Wrong number of arguments for the macro's parameter list
- Missing the trailing block: every call needs one, even if empty
- Unbalanced braces in a definition or call block

## Things you can try:
- Check the call matches the definition:
~~~
define! combo(a, b) { a + b }

result = combo(2, 3)! {};
~~~

- Remember ` + "`!`" + ` starts a macro call. A stray ` + "`!=`" + ` where the
  left side looks like a macro name will be read as a call`,
	}

	expansionDepthExceededIssue = &Issue{
		id: ExpansionDepthExceededId,
		mdMsg: `
# Macro expansion too deep!

Expanding your macros did not terminate within the configured depth limit.
This almost always means a macro produces a call to itself.

## Example of runaway expansion:
~~~
define! loop { loop! {} }

loop! {};   // expands forever
~~~

## Things you can try:
- Review macro bodies for calls back to the macro being defined
- If you legitimately nest very deeply, raise the limit in your config:
~~~cue
build: {
  max_expansion_depth: 1000
}
~~~`,
	}

	packageNotFoundIssue = &Issue{
		id: PackageNotFoundId,
		mdMsg: `
# Package not found!

The package you asked for does not exist in the registry.

## Things you can try:
- Check the package name for typos
- Bare names resolve under the default organization; for anything else
  give the full location:
~~~
$ ersa pkg install owner/repo
$ ersa pkg install https://github.com/owner/repo
~~~

- If your packages live behind a GitHub Enterprise host, point ersa at
  its API:
~~~cue
registry: {
  api_base: "https://github.example.com/api/v3"
}
~~~`,
	}

	packageInstallFailedIssue = &Issue{
		id: PackageInstallFailedId,
		mdMsg: `
# Package installation failed!

The package was found but could not be downloaded or unpacked.

## Common causes:
- Network problems reaching the registry
- A corrupt or truncated download
- No write permission on the library directory

## Things you can try:
- Retry the install; transient network errors are common
- Check you can write to the library directory (default: gpc_packages/)
- Run with verbose mode for the full error chain:
~~~
$ ersa --verbose pkg install <package>
~~~`,
	}

	lockfileOutOfSyncIssue = &Issue{
		id: LockfileOutOfSyncId,
		mdMsg: `
# Lockfile out of sync!

The packages on disk do not match what ersa-lock.toml records.

## Common causes:
- Files under the library directory were edited or deleted by hand
- The lockfile was merged badly in version control

## Things you can try:
- Re-resolve the dependency closure and rewrite the lockfile:
~~~
$ ersa pkg sync
~~~

- Reinstall a package the lockfile names but the disk is missing:
~~~
$ ersa pkg install <package>
~~~`,
	}

	lspNotInstalledIssue = &Issue{
		id: LspNotInstalledId,
		mdMsg: `
# Language server not installed!

Editor support needs the GPC language server, which is shipped separately.

## Things you can try:
- Install the latest release:
~~~
$ ersa lsp install
~~~

- Check what would be installed first:
~~~
$ ersa lsp status
~~~`,
	}

	lspDownloadFailedIssue = &Issue{
		id: LspDownloadFailedId,
		mdMsg: `
# Language server download failed!

The language server release could not be fetched or verified.

## Common causes:
- Network problems reaching the release host
- A checksum mismatch on the downloaded archive
- No published build for your platform

## Things you can try:
- Retry; transient network errors are common
- Check your platform is supported:
~~~
$ ersa lsp status
~~~

- Download the release manually and place the binary on your PATH`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the ersa configuration file.

## Configuration file locations:
- Linux: ~/.config/ersa/config.cue
- macOS: ~/Library/Application Support/ersa/config.cue
- Windows: %APPDATA%\ersa\config.cue

## Things you can try:
- Create a default configuration:
~~~
$ ersa config init
~~~

- Check the configuration syntax
- Remove the config file to use defaults:
~~~
$ rm ~/.config/ersa/config.cue
~~~

## Example configuration:
~~~cue
registry: {
  api_base: "https://api.github.com"
}

build: {
  max_expansion_depth: 500
}

ui: {
  color_scheme: "auto"
  verbose: false
}
~~~`,
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# Build failed!

One or more errors stopped the build. Every broken module import found in
the run is listed above, so fix them in one pass.

## Things you can try:
- Work through the reported errors top to bottom
- Run with verbose mode for the full error chains:
~~~
$ ersa --verbose build
~~~

- Constant expressions that cannot be evaluated (division by zero, shift
  counts past 63) are left as written rather than failing the build; look
  for them in the output if the built file surprises you`,
	}

	issues = map[Id]*Issue{
		projectNotFoundIssue.Id():         projectNotFoundIssue,
		manifestParseErrorIssue.Id():      manifestParseErrorIssue,
		entryNotFoundIssue.Id():           entryNotFoundIssue,
		importNotFoundIssue.Id():          importNotFoundIssue,
		circularImportIssue.Id():          circularImportIssue,
		macroExpansionFailedIssue.Id():    macroExpansionFailedIssue,
		expansionDepthExceededIssue.Id():  expansionDepthExceededIssue,
		packageNotFoundIssue.Id():         packageNotFoundIssue,
		packageInstallFailedIssue.Id():    packageInstallFailedIssue,
		lockfileOutOfSyncIssue.Id():       lockfileOutOfSyncIssue,
		lspNotInstalledIssue.Id():         lspNotInstalledIssue,
		lspDownloadFailedIssue.Id():       lspDownloadFailedIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		buildFailedIssue.Id():             buildFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
