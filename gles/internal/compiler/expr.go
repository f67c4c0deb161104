// SPDX-License-Identifier: Unlicense OR MIT

package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// exprParser evaluates integer constant expressions, as found in #if
// directives and array sizes.
type exprParser struct {
	toks  []token
	pos   int
	ident func(name string) (int64, error)
}

// evalExpr evaluates toks. ident resolves identifiers; nil treats them as
// errors.
func evalExpr(toks []token, ident func(string) (int64, error)) (int64, error) {
	if len(toks) == 0 {
		return 0, fmt.Errorf("missing expression")
	}
	p := &exprParser{toks: toks, ident: ident}
	v, err := p.binary(0)
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.toks) {
		return 0, fmt.Errorf("unexpected %q in expression", p.toks[p.pos].text)
	}
	return v, nil
}

var precedence = map[string]int{
	"||": 1,
	"^^": 2,
	"&&": 3,
	"|":  4,
	"^":  5,
	"&":  6,
	"==": 7,
	"!=": 7,
	"<":  8,
	">":  8,
	"<=": 8,
	">=": 8,
	"<<": 9,
	">>": 9,
	"+":  10,
	"-":  10,
	"*":  11,
	"/":  11,
	"%":  11,
}

func (p *exprParser) peek() (token, bool) {
	if p.pos < len(p.toks) {
		return p.toks[p.pos], true
	}
	return token{}, false
}

func (p *exprParser) binary(minPrec int) (int64, error) {
	lhs, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokPunct {
			return lhs, nil
		}
		prec, ok := precedence[t.text]
		if !ok || prec <= minPrec {
			return lhs, nil
		}
		p.pos++
		rhs, err := p.binary(prec)
		if err != nil {
			return 0, err
		}
		if lhs, err = apply(t.text, lhs, rhs); err != nil {
			return 0, err
		}
	}
}

func apply(op string, a, b int64) (int64, error) {
	truth := func(v bool) int64 {
		if v {
			return 1
		}
		return 0
	}
	switch op {
	case "||":
		return truth(a != 0 || b != 0), nil
	case "^^":
		return truth((a != 0) != (b != 0)), nil
	case "&&":
		return truth(a != 0 && b != 0), nil
	case "|":
		return a | b, nil
	case "^":
		return a ^ b, nil
	case "&":
		return a & b, nil
	case "==":
		return truth(a == b), nil
	case "!=":
		return truth(a != b), nil
	case "<":
		return truth(a < b), nil
	case ">":
		return truth(a > b), nil
	case "<=":
		return truth(a <= b), nil
	case ">=":
		return truth(a >= b), nil
	case "<<":
		return a << uint64(b), nil
	case ">>":
		return a >> uint64(b), nil
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/", "%":
		if b == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		if op == "/" {
			return a / b, nil
		}
		return a % b, nil
	}
	return 0, fmt.Errorf("unsupported operator %q", op)
}

func (p *exprParser) unary() (int64, error) {
	t, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	p.pos++
	switch {
	case t.is("+"), t.is("-"), t.is("~"), t.is("!"):
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		switch t.text {
		case "-":
			return -v, nil
		case "~":
			return ^v, nil
		case "!":
			if v == 0 {
				return 1, nil
			}
			return 0, nil
		}
		return v, nil
	case t.is("("):
		v, err := p.binary(0)
		if err != nil {
			return 0, err
		}
		if c, ok := p.peek(); !ok || !c.is(")") {
			return 0, fmt.Errorf("missing ')' in expression")
		}
		p.pos++
		return v, nil
	case t.kind == tokNumber:
		return parseInt(t.text)
	case t.kind == tokIdent:
		if p.ident == nil {
			return 0, fmt.Errorf("undefined identifier %q in expression", t.text)
		}
		return p.ident(t.text)
	}
	return 0, fmt.Errorf("unexpected %q in expression", t.text)
}

// parseInt parses a decimal, octal or hexadecimal integer literal.
func parseInt(s string) (int64, error) {
	if strings.ContainsAny(s, ".eE") && !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return 0, fmt.Errorf("%q is not an integer constant", s)
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer constant", s)
	}
	return v, nil
}
