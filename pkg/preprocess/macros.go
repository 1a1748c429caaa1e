// SPDX-License-Identifier: MPL-2.0

package preprocess

import (
	"fmt"
	"strings"
)

// defineWord introduces a macro definition. Recognition is positional, so
// the sequence is picked up wherever it appears.
const defineWord = "define!"

type (
	// macro is one define! rewrite rule.
	macro struct {
		name string
		// params substitute positionally, in declaration order, by plain
		// textual replacement inside body.
		params []string
		// body is the replacement template, stored trimmed. %0 stands for
		// the call's brace block.
		body string
	}

	// MacroError reports a malformed definition or call, or an expansion
	// that cannot complete.
	MacroError struct {
		// Macro is the macro involved, when one is known.
		Macro string
		// Reason is the complete human-readable message.
		Reason string
	}
)

func (e *MacroError) Error() string { return e.Reason }

// Expand strips every define! block from text and rewrites every macro
// call, re-expanding results until no calls remain. Expansion depth is
// capped at DefaultMaxExpansionDepth.
func Expand(text string) (string, error) {
	return expandWithLimit(text, DefaultMaxExpansionDepth)
}

func expandWithLimit(text string, limit int) (string, error) {
	stripped, macros, err := extractMacros(text)
	if err != nil {
		return "", err
	}
	return expandText(stripped, macros, limit, 0)
}

// extractMacros removes every define! block from text and returns the macro
// table alongside the remaining source. A name defined twice keeps the
// later definition.
func extractMacros(text string) (string, map[string]macro, error) {
	c := newCursor(text)
	macros := make(map[string]macro)
	var out strings.Builder
	out.Grow(len(text))

	for !c.eof() {
		if !c.literal(defineWord) {
			out.WriteRune(c.next())
			continue
		}
		def, err := readDefinition(c)
		if err != nil {
			return "", nil, err
		}
		macros[def.name] = def
	}
	return out.String(), macros, nil
}

// readDefinition parses the remainder of a definition once define! has been
// consumed: name, optional parameter list, then a brace-balanced body.
func readDefinition(c *cursor) (macro, error) {
	c.skipSpace()
	name := c.nameChars()
	if name == "" {
		return macro{}, &MacroError{Reason: "macro definition missing name after define!"}
	}

	c.skipSpace()
	var params []string
	if c.peek() == '(' {
		c.next()
		var err error
		params, err = readParams(c)
		if err != nil {
			return macro{}, err
		}
		c.skipSpace()
	}

	if c.peek() != '{' {
		return macro{}, &MacroError{Macro: name, Reason: fmt.Sprintf("expected '{' after macro definition %q", name)}
	}
	c.next()
	body, ok := c.braceBlock()
	if !ok {
		return macro{}, &MacroError{Macro: name, Reason: fmt.Sprintf("unmatched braces in macro definition %q", name)}
	}
	return macro{name: name, params: params, body: strings.TrimSpace(body)}, nil
}

// readParams parses a parameter list after its opening parenthesis. Only
// name runes, commas, and whitespace may appear. Whitespace separates
// nothing: it is skipped, so runs of name runes split by spaces fuse into
// one parameter.
func readParams(c *cursor) ([]string, error) {
	var params []string
	var current strings.Builder
	for {
		c.skipSpace()
		if c.eof() {
			return nil, &MacroError{Reason: "unexpected end of input in macro parameter list"}
		}
		switch r := c.peek(); {
		case r == ')':
			c.next()
			if current.Len() > 0 {
				params = append(params, current.String())
			}
			return params, nil
		case r == ',':
			c.next()
			if current.Len() > 0 {
				params = append(params, current.String())
				current.Reset()
			}
		case isNameRune(r):
			current.WriteRune(c.next())
		default:
			return nil, &MacroError{Reason: fmt.Sprintf("unexpected character %q in macro parameter list", r)}
		}
	}
}

// expandText rewrites every macro call in text. depth counts substitution
// nesting: each time a call's replacement is rescanned the counter grows, so
// a macro that keeps producing itself hits the limit instead of hanging the
// build. Identifiers that do not form a call pass through byte for byte,
// though an attached argument list is still expanded in place.
func expandText(text string, macros map[string]macro, limit, depth int) (string, error) {
	c := newCursor(text)
	var out strings.Builder
	out.Grow(len(text))

	for !c.eof() {
		if !isIdentStart(c.peek()) {
			out.WriteRune(c.next())
			continue
		}

		identStart := c.pos
		name := c.identifier()
		identEnd := c.pos

		c.skipSpace()
		hasArgs := false
		var rawArgs string
		argsOpen, argsEnd := 0, 0
		if c.peek() == '(' {
			argsOpen = c.pos
			c.next()
			inner, ok := c.parenBlock()
			if !ok {
				return "", &MacroError{Macro: name, Reason: "unmatched parentheses in macro arguments"}
			}
			hasArgs = true
			rawArgs = inner
			argsEnd = c.pos
			c.skipSpace()
		}

		if c.peek() != '!' {
			if hasArgs {
				expanded, err := expandText(rawArgs, macros, limit, depth)
				if err != nil {
					return "", err
				}
				out.WriteString(c.slice(identStart, argsOpen))
				out.WriteByte('(')
				out.WriteString(expanded)
				out.WriteByte(')')
				c.pos = argsEnd
			} else {
				out.WriteString(name)
				c.pos = identEnd
			}
			continue
		}

		c.next() // '!'
		c.skipSpace()
		if c.peek() != '{' {
			return "", &MacroError{Macro: name, Reason: fmt.Sprintf("expected '{' after macro call %q", name+"!")}
		}
		c.next()
		block, ok := c.braceBlock()
		if !ok {
			return "", &MacroError{Macro: name, Reason: fmt.Sprintf("unmatched braces in macro call %q", name+"!")}
		}

		def, defined := macros[name]
		if !defined {
			return "", &MacroError{Macro: name, Reason: fmt.Sprintf("undefined macro %q", name)}
		}
		replaced, err := substitute(def, hasArgs, rawArgs, block)
		if err != nil {
			return "", err
		}
		if depth >= limit {
			return "", &MacroError{Macro: name, Reason: fmt.Sprintf("expansion of macro %q exceeded %d levels", name, limit)}
		}
		expanded, err := expandText(replaced, macros, limit, depth+1)
		if err != nil {
			return "", err
		}
		out.WriteString(expanded)
	}
	return out.String(), nil
}

// substitute renders one call: positional arguments replace parameters in
// declaration order, then %0 takes the call's trimmed brace block.
// Parameter replacement is plain substring replacement inside the body; a
// parameter name that happens to occur inside a longer word is replaced
// there too.
func substitute(def macro, hasArgs bool, rawArgs, block string) (string, error) {
	var values []string
	if hasArgs {
		values = splitArgs(rawArgs)
	}
	switch {
	case len(def.params) > 0 && !hasArgs:
		return "", &MacroError{Macro: def.name, Reason: fmt.Sprintf(
			"macro %q expects %d arguments, but none were provided", def.name, len(def.params))}
	case len(values) != len(def.params):
		return "", &MacroError{Macro: def.name, Reason: fmt.Sprintf(
			"macro %q expects %d arguments, but %d were provided", def.name, len(def.params), len(values))}
	}

	body := def.body
	for i, p := range def.params {
		body = strings.ReplaceAll(body, p, values[i])
	}
	return strings.ReplaceAll(body, "%0", strings.TrimSpace(block)), nil
}

// splitArgs splits a raw argument span on top-level commas. Commas nested
// inside parentheses, braces, or brackets belong to their argument. Each
// comma yields a value even when the segment is blank; only a blank final
// segment is dropped.
func splitArgs(raw string) []string {
	var values []string
	var current strings.Builder
	depth := 0

	for _, r := range raw {
		switch r {
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
		case ',':
			if depth == 0 {
				values = append(values, strings.TrimSpace(current.String()))
				current.Reset()
				continue
			}
		}
		current.WriteRune(r)
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		values = append(values, s)
	}
	return values
}
