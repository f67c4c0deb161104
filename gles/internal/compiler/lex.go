// SPDX-License-Identifier: Unlicense OR MIT

package compiler

import (
	"fmt"
	"strings"
)

type tokenKind uint8

const (
	tokIdent tokenKind = iota
	tokNumber
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	line int
	// space is set when whitespace precedes the token on its line.
	space bool
}

func (t token) is(text string) bool {
	return t.kind == tokPunct && t.text == text
}

var punctuators = []string{
	"<<=", ">>=",
	"++", "--", "<=", ">=", "==", "!=", "&&", "||", "^^",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", ">>",
}

const singlePunct = "()[]{}.,;:?+-*/%<>=!~&|^#"

// stripComments replaces comments with a space, keeping every newline so
// that line numbers survive.
func stripComments(src string) (string, error) {
	var b strings.Builder
	b.Grow(len(src))
	for i := 0; i < len(src); i++ {
		switch {
		case strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}
			if i < len(src) {
				b.WriteByte('\n')
			}
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return "", fmt.Errorf("unterminated comment")
			}
			body := src[i+2 : i+2+end]
			b.WriteByte(' ')
			b.WriteString(strings.Repeat("\n", strings.Count(body, "\n")))
			i += end + 3
		default:
			b.WriteByte(src[i])
		}
	}
	return b.String(), nil
}

func isIdentStart(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

// lexLine tokenizes one source line.
func lexLine(s string, line int) ([]token, error) {
	var toks []token
	space := false
	for i := 0; i < len(s); {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v' {
			space = true
			i++
			continue
		}
		n := len(toks)
		switch {
		case isIdentStart(c):
			j := i + 1
			for j < len(s) && isIdentChar(s[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: s[i:j], line: line})
			i = j
		case isDigit(c) || c == '.' && i+1 < len(s) && isDigit(s[i+1]):
			j := i + 1
			hex := c == '0' && j < len(s) && (s[j] == 'x' || s[j] == 'X')
			for j < len(s) {
				d := s[j]
				if isIdentChar(d) || d == '.' {
					j++
					continue
				}
				if (d == '+' || d == '-') && !hex && (s[j-1] == 'e' || s[j-1] == 'E') {
					j++
					continue
				}
				break
			}
			toks = append(toks, token{kind: tokNumber, text: s[i:j], line: line})
			i = j
		default:
			p := ""
			for _, op := range punctuators {
				if strings.HasPrefix(s[i:], op) {
					p = op
					break
				}
			}
			if p == "" && strings.IndexByte(singlePunct, c) >= 0 {
				p = s[i : i+1]
			}
			if p == "" {
				return nil, fmt.Errorf("invalid character %q", c)
			}
			toks = append(toks, token{kind: tokPunct, text: p, line: line})
			i += len(p)
		}
		toks[n].space = space
		space = false
	}
	return toks, nil
}
