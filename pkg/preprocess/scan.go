// SPDX-License-Identifier: MPL-2.0

package preprocess

import "unicode"

// cursor is a position-indexed scanner over a rune slice. All three passes
// walk source text rune by rune; an explicit index makes lookahead trivial
// to roll back (save the position, restore it on a failed match).
type cursor struct {
	src []rune
	pos int
}

func newCursor(text string) *cursor {
	return &cursor{src: []rune(text)}
}

func (c *cursor) eof() bool { return c.pos >= len(c.src) }

// peek returns the rune at the current position without consuming it, or 0
// at end of input.
func (c *cursor) peek() rune {
	if c.eof() {
		return 0
	}
	return c.src[c.pos]
}

// next consumes and returns the current rune, or 0 at end of input.
func (c *cursor) next() rune {
	if c.eof() {
		return 0
	}
	r := c.src[c.pos]
	c.pos++
	return r
}

// skipSpace advances past consecutive whitespace.
func (c *cursor) skipSpace() {
	for !c.eof() && unicode.IsSpace(c.src[c.pos]) {
		c.pos++
	}
}

// slice returns the text between two positions.
func (c *cursor) slice(from, to int) string {
	return string(c.src[from:to])
}

// lookingAt reports whether the ASCII literal starts at the current
// position. Matching is positional, not token-aware: a literal embedded in
// a longer word still matches.
func (c *cursor) lookingAt(lit string) bool {
	if c.pos+len(lit) > len(c.src) {
		return false
	}
	for i := 0; i < len(lit); i++ {
		if c.src[c.pos+i] != rune(lit[i]) {
			return false
		}
	}
	return true
}

// literal consumes the ASCII literal when it starts at the current position.
func (c *cursor) literal(lit string) bool {
	if !c.lookingAt(lit) {
		return false
	}
	c.pos += len(lit)
	return true
}

// statement reports whether the ASCII keyword followed by at least one
// whitespace rune starts at the current position, consuming both when it
// does.
func (c *cursor) statement(keyword string) bool {
	if !c.lookingAt(keyword) {
		return false
	}
	after := c.pos + len(keyword)
	if after >= len(c.src) || !unicode.IsSpace(c.src[after]) {
		return false
	}
	c.pos = after
	c.skipSpace()
	return true
}

// identifier consumes an identifier starting at the current position. The
// caller must have checked isIdentStart.
func (c *cursor) identifier() string {
	start := c.pos
	c.pos++
	for !c.eof() && isNameRune(c.peek()) {
		c.pos++
	}
	return c.slice(start, c.pos)
}

// nameChars consumes a run of name runes, which may be empty. Unlike
// identifier it has no constraint on the first rune, so purely numeric
// names are possible.
func (c *cursor) nameChars() string {
	start := c.pos
	for !c.eof() && isNameRune(c.peek()) {
		c.pos++
	}
	return c.slice(start, c.pos)
}

// braceBlock consumes a brace-balanced block, assuming the opening '{' was
// already consumed. Returns the contents without the closing '}', or false
// when input ends before the braces balance.
func (c *cursor) braceBlock() (string, bool) {
	start := c.pos
	depth := 1
	for !c.eof() {
		switch c.next() {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return c.slice(start, c.pos-1), true
			}
		}
	}
	return "", false
}

// parenBlock consumes a parenthesis-balanced span, assuming the opening '('
// was already consumed. Returns the span without the closing ')', or false
// when input ends before the parentheses balance.
func (c *cursor) parenBlock() (string, bool) {
	start := c.pos
	depth := 1
	for !c.eof() {
		switch c.next() {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return c.slice(start, c.pos-1), true
			}
		}
	}
	return "", false
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}
