// SPDX-License-Identifier: MPL-2.0

package preprocess

// DefaultMaxExpansionDepth bounds recursive macro expansion. Legitimate
// nesting stays far below this; a chain that reaches it is a macro that
// keeps producing itself.
const DefaultMaxExpansionDepth = 500

type (
	// Options configure a preprocessing run.
	Options struct {
		// LibraryDir is the directory holding installed library packages.
		// Module imports without the local:: prefix resolve against it; a
		// relative value is taken from the project root. When empty, module
		// imports fall back to the project root.
		LibraryDir string

		// MaxExpansionDepth overrides DefaultMaxExpansionDepth when positive.
		MaxExpansionDepth int
	}

	// Option adjusts Options.
	Option func(*Options)
)

// WithLibraryDir sets the directory module imports resolve against.
func WithLibraryDir(dir string) Option {
	return func(o *Options) { o.LibraryDir = dir }
}

// WithMaxExpansionDepth caps recursive macro expansion at depth levels.
func WithMaxExpansionDepth(depth int) Option {
	return func(o *Options) { o.MaxExpansionDepth = depth }
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxExpansionDepth <= 0 {
		o.MaxExpansionDepth = DefaultMaxExpansionDepth
	}
	return o
}

// Preprocess runs the full pipeline on source, reading imported files
// relative to baseDir. The returned text has every import inlined, every
// macro definition removed and every call expanded, and every foldable
// constant expression replaced by its value.
//
// The passes also stand alone as ResolveImports, Expand, and Fold for
// callers that need one transformation without the others.
func Preprocess(source, baseDir string, opts ...Option) (string, error) {
	o := buildOptions(opts)

	text, err := resolveImports(source, baseDir, o.LibraryDir)
	if err != nil {
		return "", err
	}
	text, err = expandWithLimit(text, o.MaxExpansionDepth)
	if err != nil {
		return "", err
	}
	return Fold(text)
}
