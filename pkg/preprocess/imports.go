// SPDX-License-Identifier: MPL-2.0

package preprocess

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// SourceExt is the extension of GPC source files, appended to import paths
// that do not already carry it.
const SourceExt = ".gpc"

// localPrefix marks module paths that resolve from the project root rather
// than the library directory.
const localPrefix = "local::"

// ErrCircularImport is reported when an import names a file that is already
// part of the build. Files enter the visited set before their content is
// read, so a file importing itself trips this as well.
var ErrCircularImport = errors.New("circular import detected")

type (
	// ImportError describes one import statement that could not be inlined.
	ImportError struct {
		// Path is the import path exactly as written in the source.
		Path string
		// File is the file the path resolved to, as far as resolution got.
		File string
		// Err is the cause: ErrCircularImport or the underlying lookup error.
		Err error
	}

	// resolver inlines import statements. One resolver serves one build: the
	// visited set spans every file touched, so no file is inlined twice no
	// matter which statement form or import chain reaches it.
	resolver struct {
		// root is the project root. Module (use) paths resolve against it.
		root string
		// libDir locates installed libraries for module paths without the
		// local:: prefix. Empty means no library lookup.
		libDir string
		// visited holds the canonical path of every file already inlined.
		visited map[string]bool
		// broken accumulates module-import failures; they are reported
		// together once the whole tree has been scanned.
		broken []error
	}
)

func (e *ImportError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("import %q: %v (%s)", e.Path, e.Err, e.File)
	}
	return fmt.Sprintf("import %q: %v", e.Path, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// ResolveImports replaces every import statement in source with the content
// of the file it names, recursively. baseDir is the project root; file
// imports additionally resolve relative to the file that contains them.
//
// The two statement forms fail differently, matching how each is used. File
// imports (`import p;`) name concrete files and abort on the first failure.
// Module imports (`use a::b;`) are scanned to the end so one build reports
// every broken path at once: failures accumulate and come back joined, and a
// circular target is replaced by a skip comment so scanning can continue.
func ResolveImports(source, baseDir string, opts ...Option) (string, error) {
	o := buildOptions(opts)
	return resolveImports(source, baseDir, o.LibraryDir)
}

func resolveImports(source, baseDir, libDir string) (string, error) {
	r := &resolver{
		root:    baseDir,
		libDir:  libDir,
		visited: make(map[string]bool),
	}
	out, err := r.scan(source, baseDir)
	if err != nil {
		return "", err
	}
	if len(r.broken) > 0 {
		return "", errors.Join(r.broken...)
	}
	return out, nil
}

// scan walks text once, splicing in replacements for the statements it
// finds. dir is the directory file imports in this text resolve from: the
// project root for the entry text, the containing file's directory for
// imported files. Spliced content is not rescanned by this level; it was
// fully resolved by the recursive call that produced it.
func (r *resolver) scan(text, dir string) (string, error) {
	c := newCursor(text)
	var out strings.Builder
	out.Grow(len(text))

	for !c.eof() {
		start := c.pos
		switch {
		case c.statement("import"):
			repl, ok, err := r.fileImport(c, dir)
			if err != nil {
				return "", err
			}
			if !ok {
				c.pos = start
				out.WriteRune(c.next())
				continue
			}
			out.WriteString(repl)
		case c.statement("use"):
			repl, ok, err := r.moduleImport(c, start)
			if err != nil {
				return "", err
			}
			if !ok {
				c.pos = start
				out.WriteRune(c.next())
				continue
			}
			out.WriteString(repl)
		default:
			out.WriteRune(c.next())
		}
	}
	return out.String(), nil
}

// fileImport handles `import path;`: path is read relative to dir, gets the
// source extension if missing, and the trailing semicolon is optional. Any
// failure aborts the whole pass.
func (r *resolver) fileImport(c *cursor, dir string) (string, bool, error) {
	path := c.importPath()
	if path == "" {
		return "", false, nil
	}
	// Trailing whitespace and an optional semicolon belong to the statement.
	c.skipSpace()
	if c.peek() == ';' {
		c.next()
	}

	target := path
	if !strings.HasSuffix(target, SourceExt) {
		target += SourceExt
	}
	full := filepath.Join(dir, target)
	canonical, err := canonicalPath(full)
	if err != nil {
		return "", false, &ImportError{Path: path, File: full, Err: err}
	}
	if r.visited[canonical] {
		return "", false, &ImportError{Path: path, File: canonical, Err: ErrCircularImport}
	}
	r.visited[canonical] = true

	content, err := os.ReadFile(canonical)
	if err != nil {
		return "", false, &ImportError{Path: path, File: canonical, Err: err}
	}
	resolved, err := r.scan(string(content), filepath.Dir(canonical))
	if err != nil {
		return "", false, err
	}
	return resolved + "\n", true, nil
}

// moduleImport handles `use path::to::mod;`. An unresolvable path is
// recorded and the statement is left in place so the scan can flag every
// broken import in one run; a circular target is replaced by a comment. The
// error return only carries failures escalated from nested file imports.
func (r *resolver) moduleImport(c *cursor, start int) (string, bool, error) {
	pathStart := c.pos
	for !c.eof() && c.peek() != ';' {
		c.pos++
	}
	if c.eof() {
		return "", false, nil
	}
	path := c.slice(pathStart, c.pos)
	c.next() // ';'
	if path == "" {
		return "", false, nil
	}
	stmt := c.slice(start, c.pos)

	file := r.modulePath(path)
	canonical, err := canonicalPath(file)
	if err != nil {
		r.broken = append(r.broken, &ImportError{Path: path, File: file, Err: err})
		return stmt, true, nil
	}
	if r.visited[canonical] {
		r.broken = append(r.broken, &ImportError{Path: path, File: canonical, Err: ErrCircularImport})
		return "// Circular import skipped: " + path, true, nil
	}
	r.visited[canonical] = true

	content, err := os.ReadFile(canonical)
	if err != nil {
		r.broken = append(r.broken, &ImportError{Path: path, File: canonical, Err: err})
		return stmt, true, nil
	}
	resolved, err := r.scan(string(content), filepath.Dir(canonical))
	if err != nil {
		return "", false, err
	}
	return resolved + "\n", true, nil
}

// modulePath maps a module path to a file path. local:: paths live under
// the project root. Anything else is an installed library reached through
// its packaged entry file when a library directory is configured, with the
// project root as fallback when none is.
func (r *resolver) modulePath(path string) string {
	if rest, ok := strings.CutPrefix(path, localPrefix); ok {
		return filepath.Join(r.root, moduleFile(rest))
	}
	if r.libDir != "" {
		lib := r.libDir
		if !filepath.IsAbs(lib) {
			lib = filepath.Join(r.root, lib)
		}
		rel := strings.ReplaceAll(path, "::", string(filepath.Separator))
		return filepath.Join(lib, rel, "gpc", "lib"+SourceExt)
	}
	return filepath.Join(r.root, moduleFile(path))
}

// moduleFile converts path separators (:: to /) and ensures the source
// extension.
func moduleFile(path string) string {
	rel := strings.ReplaceAll(path, "::", string(filepath.Separator))
	if !strings.HasSuffix(rel, SourceExt) {
		rel += SourceExt
	}
	return rel
}

// canonicalPath makes p absolute and resolves symlinks so visited-set
// entries compare equal no matter how a file was reached. Fails when the
// file does not exist.
func canonicalPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// importPath reads the path of a file import: a quoted span, or a bare
// token running to the next whitespace or semicolon. An empty or
// unterminated quoted span falls back to the bare reading.
func (c *cursor) importPath() string {
	if c.peek() == '"' {
		if inner, ok := c.quotedSpan(); ok {
			return inner
		}
	}
	start := c.pos
	for !c.eof() && !unicode.IsSpace(c.peek()) && c.peek() != ';' {
		c.pos++
	}
	return c.slice(start, c.pos)
}

// quotedSpan consumes a double-quoted span and returns its contents. It
// declines, restoring the cursor, when the span is empty or unterminated.
func (c *cursor) quotedSpan() (string, bool) {
	open := c.pos
	c.pos++
	from := c.pos
	for !c.eof() && c.peek() != '"' {
		c.pos++
	}
	if c.eof() || c.pos == from {
		c.pos = open
		return "", false
	}
	inner := c.slice(from, c.pos)
	c.pos++
	return inner, true
}
