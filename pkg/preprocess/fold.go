// SPDX-License-Identifier: MPL-2.0

package preprocess

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Fold replaces every foldable integer expression in text with its computed
// value, using 64-bit wrapping arithmetic. A span that fails to evaluate
// (division by zero, a shift count outside 0..63) is left exactly as
// written; folding never fails a build. The error return exists for parity
// with the other passes and is always nil today.
//
// Folding is idempotent: a folded result contains no operator spans left to
// rewrite, so running the pass again returns the text unchanged.
func Fold(text string) (string, error) {
	src := []rune(text)
	var out strings.Builder
	out.Grow(len(text))

	i := 0
	for i < len(src) {
		start, end, ok := foldableSpan(src, i)
		if !ok {
			out.WriteRune(src[i])
			i++
			continue
		}
		out.WriteString(string(src[i:start])) // whitespace ahead of the span
		span := string(src[start:end])
		if v, err := evalSpan(span); err == nil {
			out.WriteString(strconv.FormatInt(v, 10))
		} else {
			out.WriteString(span)
		}
		i = end
	}
	return out.String(), nil
}

// foldableSpan scans forward from pos for a maximal span that looks like an
// integer expression: it must open with a digit, '(' or '-', and contain at
// least one operator. Spaces and tabs are part of a span; statement
// delimiters (',', ';', braces, '=', '!', newline), a lone '<' or '>', a ')'
// with no matching '(' in the span, and any rune with no role in an
// expression all end it. A span that ends inside unclosed parentheses
// without a trailing number is rejected.
func foldableSpan(src []rune, pos int) (start, end int, ok bool) {
	i := pos
	for i < len(src) && unicode.IsSpace(src[i]) {
		i++
	}
	if i >= len(src) {
		return 0, 0, false
	}
	if !isDigit(src[i]) && src[i] != '(' && src[i] != '-' {
		return 0, 0, false
	}

	start = i
	depth := 0
	hasOperator := false
	lastWasNumber := false

scan:
	for i < len(src) {
		switch r := src[i]; {
		case isDigit(r):
			lastWasNumber = true
			i++
		case r == '+' || r == '-' || r == '*' || r == '/' || r == '%' || r == '&' || r == '|' || r == '^':
			hasOperator = true
			lastWasNumber = false
			i++
		case r == '<' || r == '>':
			if i+1 < len(src) && src[i+1] == r {
				hasOperator = true
				lastWasNumber = false
				i += 2
			} else {
				break scan
			}
		case r == '(':
			depth++
			lastWasNumber = false
			i++
		case r == ')':
			if depth == 0 {
				break scan
			}
			depth--
			lastWasNumber = true
			i++
		case r == ' ' || r == '\t':
			i++
		default:
			break scan
		}
	}

	if hasOperator && (lastWasNumber || depth == 0) && i > start {
		return start, i, true
	}
	return 0, 0, false
}

// evalSpan tokenizes and evaluates one candidate span. Tokens past the first
// complete expression are ignored, mirroring how spans are matched
// greedily.
func evalSpan(span string) (int64, error) {
	tokens, err := tokenize(span)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, errors.New("empty expression")
	}
	v, _, err := parseBinary(tokens, 0, 0)
	return v, err
}

// tokenKind enumerates the tokens of a constant expression.
type tokenKind int

const (
	tokNumber tokenKind = iota
	tokPlus
	tokMinus
	tokMul
	tokDiv
	tokMod
	tokBitAnd
	tokBitOr
	tokBitXor
	tokShiftLeft
	tokShiftRight
	tokAnd
	tokOr
	tokXor
	tokLParen
	tokRParen
)

type exprToken struct {
	kind tokenKind
	num  int64
}

// tokenize splits a span into expression tokens. A '-' becomes part of a
// number literal when nothing it could subtract from precedes it (start of
// the span, after '(' or after an arithmetic operator); otherwise it is
// subtraction. Lone '<' and '>' are rejected outright: comparisons are not
// constant expressions.
func tokenize(span string) ([]exprToken, error) {
	src := []rune(strings.TrimSpace(span))
	var tokens []exprToken

	i := 0
	for i < len(src) {
		r := src[i]
		switch {
		case r == ' ' || r == '\t':
			i++
		case isDigit(r):
			start := i
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			n, err := strconv.ParseInt(string(src[start:i]), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", string(src[start:i]))
			}
			tokens = append(tokens, exprToken{kind: tokNumber, num: n})
		case r == '+':
			tokens = append(tokens, exprToken{kind: tokPlus})
			i++
		case r == '-':
			i++
			if startsNegativeLiteral(tokens) {
				start := i
				for i < len(src) && isDigit(src[i]) {
					i++
				}
				lit := "-" + string(src[start:i])
				n, err := strconv.ParseInt(lit, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("invalid number %q", lit)
				}
				tokens = append(tokens, exprToken{kind: tokNumber, num: n})
			} else {
				tokens = append(tokens, exprToken{kind: tokMinus})
			}
		case r == '*':
			tokens = append(tokens, exprToken{kind: tokMul})
			i++
		case r == '/':
			tokens = append(tokens, exprToken{kind: tokDiv})
			i++
		case r == '%':
			tokens = append(tokens, exprToken{kind: tokMod})
			i++
		case r == '&':
			i++
			if i < len(src) && src[i] == '&' {
				tokens = append(tokens, exprToken{kind: tokAnd})
				i++
			} else {
				tokens = append(tokens, exprToken{kind: tokBitAnd})
			}
		case r == '|':
			i++
			if i < len(src) && src[i] == '|' {
				tokens = append(tokens, exprToken{kind: tokOr})
				i++
			} else {
				tokens = append(tokens, exprToken{kind: tokBitOr})
			}
		case r == '^':
			i++
			if i < len(src) && src[i] == '^' {
				tokens = append(tokens, exprToken{kind: tokXor})
				i++
			} else {
				tokens = append(tokens, exprToken{kind: tokBitXor})
			}
		case r == '<':
			i++
			if i < len(src) && src[i] == '<' {
				tokens = append(tokens, exprToken{kind: tokShiftLeft})
				i++
			} else {
				return nil, errors.New("comparison operators are not constant expressions")
			}
		case r == '>':
			i++
			if i < len(src) && src[i] == '>' {
				tokens = append(tokens, exprToken{kind: tokShiftRight})
				i++
			} else {
				return nil, errors.New("comparison operators are not constant expressions")
			}
		case r == '(':
			tokens = append(tokens, exprToken{kind: tokLParen})
			i++
		case r == ')':
			tokens = append(tokens, exprToken{kind: tokRParen})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q in expression", r)
		}
	}
	return tokens, nil
}

// startsNegativeLiteral reports whether a '-' at the current token boundary
// begins a negative literal rather than a subtraction.
func startsNegativeLiteral(tokens []exprToken) bool {
	if len(tokens) == 0 {
		return true
	}
	switch tokens[len(tokens)-1].kind {
	case tokLParen, tokPlus, tokMinus, tokMul, tokDiv, tokMod:
		return true
	}
	return false
}

// precedence ranks binary operators; higher binds tighter. Logical
// operators sit below bitwise ones, bitwise below shifts, and shifts below
// arithmetic, so `1 << 2 + 3` shifts by 5.
func precedence(k tokenKind) int {
	switch k {
	case tokOr:
		return 1
	case tokXor:
		return 2
	case tokAnd:
		return 3
	case tokBitOr:
		return 4
	case tokBitXor:
		return 5
	case tokBitAnd:
		return 6
	case tokShiftLeft, tokShiftRight:
		return 9
	case tokPlus, tokMinus:
		return 10
	case tokMul, tokDiv, tokMod:
		return 11
	default:
		return 0
	}
}

// parseBinary is precedence climbing over tokens starting at pos: it folds
// operators of at least minPrec, recursing with prec+1 so every operator
// associates left. A ')' always ends the current expression.
func parseBinary(tokens []exprToken, pos, minPrec int) (int64, int, error) {
	left, pos, err := parsePrimary(tokens, pos)
	if err != nil {
		return 0, 0, err
	}

	for pos < len(tokens) {
		op := tokens[pos]
		prec := precedence(op.kind)
		if prec < minPrec || op.kind == tokRParen {
			break
		}
		pos++

		var right int64
		right, pos, err = parseBinary(tokens, pos, prec+1)
		if err != nil {
			return 0, 0, err
		}
		left, err = apply(left, op.kind, right)
		if err != nil {
			return 0, 0, err
		}
	}
	return left, pos, nil
}

// parsePrimary handles number literals, parenthesized groups, and unary
// minus.
func parsePrimary(tokens []exprToken, pos int) (int64, int, error) {
	if pos >= len(tokens) {
		return 0, 0, errors.New("unexpected end of expression")
	}
	switch t := tokens[pos]; t.kind {
	case tokNumber:
		return t.num, pos + 1, nil
	case tokLParen:
		v, next, err := parseBinary(tokens, pos+1, 0)
		if err != nil {
			return 0, 0, err
		}
		if next >= len(tokens) || tokens[next].kind != tokRParen {
			return 0, 0, errors.New("missing closing parenthesis")
		}
		return v, next + 1, nil
	case tokMinus:
		v, next, err := parsePrimary(tokens, pos+1)
		if err != nil {
			return 0, 0, err
		}
		return -v, next, nil
	default:
		return 0, 0, errors.New("unexpected token in expression")
	}
}

// apply evaluates one binary operation. Addition, subtraction, and
// multiplication wrap on overflow. Logical operators treat nonzero as true
// and yield 1 or 0.
func apply(left int64, op tokenKind, right int64) (int64, error) {
	switch op {
	case tokPlus:
		return left + right, nil
	case tokMinus:
		return left - right, nil
	case tokMul:
		return left * right, nil
	case tokDiv:
		if right == 0 {
			return 0, errors.New("division by zero")
		}
		return left / right, nil
	case tokMod:
		if right == 0 {
			return 0, errors.New("modulo by zero")
		}
		return left % right, nil
	case tokBitAnd:
		return left & right, nil
	case tokBitOr:
		return left | right, nil
	case tokBitXor:
		return left ^ right, nil
	case tokShiftLeft:
		if right < 0 || right > 63 {
			return 0, fmt.Errorf("shift count %d out of range", right)
		}
		return left << right, nil
	case tokShiftRight:
		if right < 0 || right > 63 {
			return 0, fmt.Errorf("shift count %d out of range", right)
		}
		return left >> right, nil
	case tokAnd:
		return boolToInt(left != 0 && right != 0), nil
	case tokOr:
		return boolToInt(left != 0 || right != 0), nil
	case tokXor:
		return boolToInt((left != 0) != (right != 0)), nil
	default:
		return 0, errors.New("invalid operator in expression")
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
