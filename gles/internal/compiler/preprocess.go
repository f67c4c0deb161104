// SPDX-License-Identifier: Unlicense OR MIT

package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"

	"glove.dev/internal/driver"
)

type macro struct {
	function bool
	params   []string
	body     []token
}

type cond struct {
	// active is whether the current branch is being compiled.
	active bool
	// taken is set once any branch of the group was active.
	taken   bool
	parent  bool
	sawElse bool
}

// supportedExtensions are the ESSL extensions the translated shaders
// provide.
var supportedExtensions = map[string]bool{
	"GL_OES_standard_derivatives": true,
}

type preprocessor struct {
	stage   driver.ShaderStage
	macros  map[string]*macro
	conds   []cond
	pending []token
	out     []token
	log     diagnostics
	// sawCode is set by the first token that is not a #version directive.
	sawCode bool
}

// preprocess runs the ESSL 1.00 preprocessor over src.
func preprocess(stage driver.ShaderStage, src string) ([]token, diagnostics) {
	p := &preprocessor{
		stage:  stage,
		macros: make(map[string]*macro),
	}
	p.define("GL_ES", "1")
	p.define("__VERSION__", "100")
	if stage == driver.StageFragment {
		p.define("GL_FRAGMENT_PRECISION_HIGH", "1")
	}
	for ext := range supportedExtensions {
		p.define(ext, "1")
	}
	clean, err := stripComments(src)
	if err != nil {
		p.log.errorf(strings.Count(src, "\n")+1, "%v", err)
		return nil, p.log
	}
	for i, line := range strings.Split(clean, "\n") {
		p.line(i+1, line)
	}
	if len(p.conds) > 0 {
		p.log.errorf(strings.Count(clean, "\n")+1, "unterminated #if")
	}
	p.flush()
	return p.out, p.log
}

func (p *preprocessor) define(name, value string) {
	toks, _ := lexLine(value, 0)
	p.macros[name] = &macro{body: toks}
}

func (p *preprocessor) active() bool {
	return len(p.conds) == 0 || p.conds[len(p.conds)-1].active
}

func (p *preprocessor) line(n int, text string) {
	trimmed := strings.TrimLeft(text, " \t")
	if strings.HasPrefix(trimmed, "#") {
		p.flush()
		toks, err := lexLine(trimmed[1:], n)
		if err != nil {
			if p.active() {
				p.log.errorf(n, "%v", err)
			}
			return
		}
		p.directive(n, toks)
		return
	}
	if !p.active() {
		return
	}
	toks, err := lexLine(text, n)
	if err != nil {
		p.log.errorf(n, "%v", err)
		return
	}
	if len(toks) > 0 {
		p.sawCode = true
	}
	p.pending = append(p.pending, toks...)
}

// flush macro-expands the text lines collected since the last directive.
func (p *preprocessor) flush() {
	if len(p.pending) == 0 {
		return
	}
	p.out = append(p.out, p.expand(p.pending, nil)...)
	p.pending = p.pending[:0]
}

func (p *preprocessor) directive(n int, toks []token) {
	if len(toks) == 0 {
		return
	}
	name := toks[0].text
	args := toks[1:]
	switch name {
	case "if", "ifdef", "ifndef":
		parent := p.active()
		c := cond{parent: parent}
		if parent {
			c.active = p.condition(n, name, args)
			c.taken = c.active
		}
		p.conds = append(p.conds, c)
		return
	case "elif", "else", "endif":
		if len(p.conds) == 0 {
			p.log.errorf(n, "#%s without #if", name)
			return
		}
		c := &p.conds[len(p.conds)-1]
		switch name {
		case "elif":
			if c.sawElse {
				p.log.errorf(n, "#elif after #else")
				return
			}
			c.active = false
			if c.parent && !c.taken {
				c.active = p.condition(n, "if", args)
				c.taken = c.active
			}
		case "else":
			if c.sawElse {
				p.log.errorf(n, "#else after #else")
				return
			}
			c.sawElse = true
			c.active = c.parent && !c.taken
			c.taken = true
		case "endif":
			p.conds = p.conds[:len(p.conds)-1]
		}
		return
	}
	if !p.active() {
		return
	}
	switch name {
	case "version":
		if p.sawCode {
			p.log.errorf(n, "#version must occur before anything else")
			return
		}
		if len(args) != 1 || args[0].text != "100" {
			p.log.errorf(n, "unsupported #version, only 100 is accepted")
		}
	case "define":
		p.defineDirective(n, args)
	case "undef":
		if len(args) != 1 || args[0].kind != tokIdent {
			p.log.errorf(n, "#undef expects a macro name")
			return
		}
		delete(p.macros, args[0].text)
	case "extension":
		p.extension(n, args)
	case "error":
		p.log.errorf(n, "#error %s", joinTokens(args))
	case "pragma", "line":
	default:
		p.log.errorf(n, "invalid directive #%s", name)
	}
	if name != "version" {
		p.sawCode = true
	}
}

func (p *preprocessor) defineDirective(n int, args []token) {
	if len(args) == 0 || args[0].kind != tokIdent {
		p.log.errorf(n, "#define expects a macro name")
		return
	}
	name := args[0].text
	if strings.HasPrefix(name, "GL_") || strings.Contains(name, "__") {
		p.log.errorf(n, "macro name %q is reserved", name)
		return
	}
	m := &macro{}
	body := args[1:]
	// A parameter list must follow the name without whitespace.
	if len(body) > 0 && body[0].is("(") && !body[0].space {
		m.function = true
		i := 1
		for ; i < len(body) && !body[i].is(")"); i++ {
			t := body[i]
			switch {
			case t.is(","):
			case t.kind == tokIdent:
				m.params = append(m.params, t.text)
			default:
				p.log.errorf(n, "invalid macro parameter %q", t.text)
				return
			}
		}
		if i == len(body) {
			p.log.errorf(n, "missing ')' in macro parameter list")
			return
		}
		body = body[i+1:]
	}
	m.body = append([]token(nil), body...)
	p.macros[name] = m
}

func (p *preprocessor) extension(n int, args []token) {
	if len(args) != 3 || !args[1].is(":") {
		p.log.errorf(n, "malformed #extension directive")
		return
	}
	name, behavior := args[0].text, args[2].text
	switch behavior {
	case "require", "enable", "warn", "disable":
	default:
		p.log.errorf(n, "unknown extension behavior %q", behavior)
		return
	}
	if name == "all" {
		if behavior == "require" || behavior == "enable" {
			p.log.errorf(n, "extension 'all' cannot have '%s' behavior", behavior)
		}
		return
	}
	if supportedExtensions[name] {
		return
	}
	if behavior == "require" {
		p.log.errorf(n, "extension %q is not supported", name)
		return
	}
	if behavior != "disable" {
		p.log.warnf(n, "extension %q is not supported", name)
	}
}

// condition evaluates the argument of #if, #ifdef or #ifndef.
func (p *preprocessor) condition(n int, kind string, args []token) bool {
	switch kind {
	case "ifdef", "ifndef":
		if len(args) != 1 || args[0].kind != tokIdent {
			p.log.errorf(n, "#%s expects a macro name", kind)
			return false
		}
		_, ok := p.macros[args[0].text]
		return ok == (kind == "ifdef")
	}
	var resolved []token
	for i := 0; i < len(args); i++ {
		t := args[i]
		if t.kind != tokIdent || t.text != "defined" {
			resolved = append(resolved, t)
			continue
		}
		var name string
		switch {
		case i+1 < len(args) && args[i+1].kind == tokIdent:
			name = args[i+1].text
			i++
		case i+3 < len(args) && args[i+1].is("(") && args[i+2].kind == tokIdent && args[i+3].is(")"):
			name = args[i+2].text
			i += 3
		default:
			p.log.errorf(n, "malformed 'defined' operator")
			return false
		}
		v := "0"
		if _, ok := p.macros[name]; ok {
			v = "1"
		}
		resolved = append(resolved, token{kind: tokNumber, text: v, line: n})
	}
	v, err := evalExpr(p.expand(resolved, nil), nil)
	if err != nil {
		p.log.errorf(n, "%v", err)
		return false
	}
	return v != 0
}

// expand replaces macro invocations in toks. disabled holds the macros
// being expanded, which are not expanded again.
func (p *preprocessor) expand(toks []token, disabled map[string]bool) []token {
	var out []token
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.kind != tokIdent || disabled[t.text] {
			out = append(out, t)
			continue
		}
		switch t.text {
		case "__LINE__":
			out = append(out, token{kind: tokNumber, text: strconv.Itoa(t.line), line: t.line})
			continue
		case "__FILE__":
			out = append(out, token{kind: tokNumber, text: "0", line: t.line})
			continue
		}
		m, ok := p.macros[t.text]
		if !ok {
			out = append(out, t)
			continue
		}
		inner := map[string]bool{t.text: true}
		maps.Copy(inner, disabled)
		if !m.function {
			out = append(out, reline(p.expand(m.body, inner), t.line)...)
			continue
		}
		if i+1 >= len(toks) || !toks[i+1].is("(") {
			out = append(out, t)
			continue
		}
		args, end, ok := collectArgs(toks, i+1)
		if !ok {
			p.log.errorf(t.line, "unterminated invocation of macro %q", t.text)
			return out
		}
		if len(m.params) == 0 && len(args) == 1 && len(args[0]) == 0 {
			args = nil
		}
		if len(args) != len(m.params) {
			p.log.errorf(t.line, "macro %q expects %d arguments, got %d", t.text, len(m.params), len(args))
			i = end
			continue
		}
		for j := range args {
			args[j] = p.expand(args[j], disabled)
		}
		var body []token
		for _, bt := range m.body {
			idx := -1
			if bt.kind == tokIdent {
				for j, param := range m.params {
					if param == bt.text {
						idx = j
						break
					}
				}
			}
			if idx >= 0 {
				body = append(body, args[idx]...)
			} else {
				body = append(body, bt)
			}
		}
		out = append(out, reline(p.expand(body, inner), t.line)...)
		i = end
	}
	return out
}

// collectArgs splits the parenthesized argument list starting at
// toks[open]. It returns the index of the closing parenthesis.
func collectArgs(toks []token, open int) ([][]token, int, bool) {
	var (
		args  [][]token
		cur   []token
		depth int
	)
	for i := open; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.is("("):
			depth++
			if depth == 1 {
				continue
			}
		case t.is(")"):
			depth--
			if depth == 0 {
				return append(args, cur), i, true
			}
		case t.is(",") && depth == 1:
			args = append(args, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	return nil, 0, false
}

func reline(toks []token, line int) []token {
	out := make([]token, len(toks))
	for i, t := range toks {
		t.line = line
		out[i] = t
	}
	return out
}

func joinTokens(toks []token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.text
	}
	return strings.Join(parts, " ")
}

type diagnostic struct {
	line int
	msg  string
	warn bool
}

type diagnostics []diagnostic

func (d *diagnostics) errorf(line int, format string, args ...interface{}) {
	*d = append(*d, diagnostic{line: line, msg: fmt.Sprintf(format, args...)})
}

func (d *diagnostics) warnf(line int, format string, args ...interface{}) {
	*d = append(*d, diagnostic{line: line, msg: fmt.Sprintf(format, args...), warn: true})
}

func (d diagnostics) failed() bool {
	for _, e := range d {
		if !e.warn {
			return true
		}
	}
	return false
}

// String formats the diagnostics the way glslang does.
func (d diagnostics) String() string {
	var b strings.Builder
	errs := 0
	for _, e := range d {
		kind := "WARNING"
		if !e.warn {
			kind = "ERROR"
			errs++
		}
		fmt.Fprintf(&b, "%s: 0:%d: %s\n", kind, e.line, e.msg)
	}
	if errs > 0 {
		fmt.Fprintf(&b, "ERROR: %d compilation errors.  No code generated.\n", errs)
	}
	return b.String()
}
