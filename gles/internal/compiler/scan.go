// SPDX-License-Identifier: Unlicense OR MIT

package compiler

import (
	"fmt"

	"glove.dev/internal/gl"
)

type storage uint8

const (
	storageNone storage = iota
	storageConst
	storageAttribute
	storageUniform
	storageVarying
)

// typeRef names a basic GLSL type or a struct.
type typeRef struct {
	basic gl.Enum
	str   *structDef
}

func (t typeRef) String() string {
	if t.str != nil {
		return t.str.name
	}
	return gl.TypeName(t.basic)
}

func (t typeRef) equal(o typeRef) bool {
	if t.str == nil || o.str == nil {
		return t.str == nil && o.str == nil && t.basic == o.basic
	}
	return t.str.equal(o.str)
}

type field struct {
	name string
	typ  typeRef
	// array is the element count, 0 for non-arrays.
	array int
}

type structDef struct {
	name   string
	fields []field
	// start and end delimit the definition in the token stream,
	// from the "struct" keyword through the closing brace.
	start, end int
	// anonymous structs get a generated name.
	anonymous bool
}

func (s *structDef) equal(o *structDef) bool {
	if s.name != o.name || len(s.fields) != len(o.fields) {
		return false
	}
	for i, f := range s.fields {
		g := o.fields[i]
		if f.name != g.name || f.array != g.array || !f.typ.equal(g.typ) {
			return false
		}
	}
	return true
}

// variable is a global attribute, uniform or varying.
type variable struct {
	name      string
	typ       typeRef
	array     int
	storage   storage
	invariant bool
	decl      *declaration
	// used is set when the name is referenced outside its declaration.
	used bool
}

// declaration is a global storage-qualified declaration statement,
// spanning toks[start:end] including the semicolon.
type declaration struct {
	start, end int
	storage    storage
	vars       []*variable
	inline     *structDef
}

type scanner struct {
	toks      []token
	pos       int
	structs   map[string]*structDef
	consts    map[string]int64
	decls     []*declaration
	vars      []*variable
	functions map[string]bool
	anonymous int
}

type scanError struct {
	line int
	msg  string
}

func (e *scanError) Error() string {
	return e.msg
}

func (s *scanner) fail(t token, format string, args ...interface{}) {
	panic(&scanError{line: t.line, msg: fmt.Sprintf(format, args...)})
}

// scan records the global declarations of a preprocessed shader.
func scan(toks []token, log *diagnostics) *scanner {
	s := &scanner{
		toks:      toks,
		structs:   make(map[string]*structDef),
		consts:    make(map[string]int64),
		functions: make(map[string]bool),
	}
	defer func() {
		if err := recover(); err != nil {
			serr, ok := err.(*scanError)
			if !ok {
				panic(err)
			}
			log.errorf(serr.line, "%s", serr.msg)
		}
	}()
	for s.pos < len(s.toks) {
		s.statement()
	}
	s.markUsage()
	return s
}

func (s *scanner) peek() token {
	if s.pos < len(s.toks) {
		return s.toks[s.pos]
	}
	last := 0
	if len(s.toks) > 0 {
		last = s.toks[len(s.toks)-1].line
	}
	s.fail(token{line: last}, "unexpected end of shader")
	panic("unreachable")
}

func (s *scanner) next() token {
	t := s.peek()
	s.pos++
	return t
}

func (s *scanner) expect(text string) token {
	t := s.next()
	if !t.is(text) {
		s.fail(t, "expected %q, found %q", text, t.text)
	}
	return t
}

func (s *scanner) ident() token {
	t := s.next()
	if t.kind != tokIdent {
		s.fail(t, "expected identifier, found %q", t.text)
	}
	return t
}

func isPrecision(text string) bool {
	return text == "lowp" || text == "mediump" || text == "highp"
}

// statement consumes one global statement.
func (s *scanner) statement() {
	start := s.pos
	t := s.peek()
	switch {
	case t.is(";"):
		s.pos++
		return
	case t.kind == tokIdent && t.text == "precision":
		s.skipTo(";")
		return
	}
	st := storageNone
	invariant := false
quals:
	for {
		t := s.peek()
		if t.kind != tokIdent {
			break
		}
		switch {
		case t.text == "invariant":
			invariant = true
		case t.text == "const":
			st = storageConst
		case t.text == "attribute":
			st = storageAttribute
		case t.text == "uniform":
			st = storageUniform
		case t.text == "varying":
			st = storageVarying
		case isPrecision(t.text):
		default:
			break quals
		}
		s.pos++
	}
	if invariant && st == storageNone {
		// invariant gl_Position, v;
		s.skipTo(";")
		return
	}
	var inline *structDef
	typ := s.typeName()
	if typ.str != nil && typ.str.start >= start {
		inline = typ.str
	}
	if s.peek().is(";") {
		s.pos++
		return
	}
	name := s.ident()
	if s.peek().is("(") {
		if st != storageNone {
			s.fail(name, "function %q cannot have a storage qualifier", name.text)
		}
		s.function(name)
		return
	}
	d := &declaration{start: start, storage: st, inline: inline}
	for {
		v := &variable{name: name.text, typ: typ, storage: st, invariant: invariant, decl: d}
		if s.peek().is("[") {
			v.array = s.arraySize()
		}
		if s.peek().is("=") {
			s.pos++
			init := s.initializer()
			if st == storageConst && typ.basic == gl.INT && v.array == 0 {
				if val, err := evalExpr(init, s.constIdent); err == nil {
					s.consts[v.name] = val
				}
			}
		}
		switch st {
		case storageAttribute, storageVarying, storageUniform:
			s.checkType(name, v)
			d.vars = append(d.vars, v)
			s.vars = append(s.vars, v)
		}
		if s.peek().is(",") {
			s.pos++
			name = s.ident()
			continue
		}
		s.expect(";")
		break
	}
	d.end = s.pos
	if len(d.vars) > 0 {
		s.decls = append(s.decls, d)
	}
}

func (s *scanner) checkType(name token, v *variable) {
	switch v.storage {
	case storageAttribute:
		if v.typ.str != nil || gl.TypeBase(v.typ.basic) != gl.FLOAT || v.array > 0 {
			s.fail(name, "attribute %q must be a float, vector or matrix, not %s", v.name, v.typ)
		}
	case storageVarying:
		if v.typ.str != nil || gl.TypeBase(v.typ.basic) != gl.FLOAT {
			s.fail(name, "varying %q must be a float, vector or matrix, not %s", v.name, v.typ)
		}
	}
}

// typeName parses a basic type, a struct name or a struct definition.
func (s *scanner) typeName() typeRef {
	t := s.ident()
	if t.text == "struct" {
		return typeRef{str: s.structBody(s.pos - 1)}
	}
	if t.text == "void" {
		return typeRef{}
	}
	if typ, ok := gl.TypeFromName(t.text); ok {
		return typeRef{basic: typ}
	}
	if str, ok := s.structs[t.text]; ok {
		return typeRef{str: str}
	}
	s.fail(t, "unknown type %q", t.text)
	panic("unreachable")
}

func (s *scanner) structBody(start int) *structDef {
	def := &structDef{start: start}
	if t := s.peek(); t.kind == tokIdent {
		def.name = t.text
		s.pos++
	} else {
		s.anonymous++
		def.name = fmt.Sprintf("glove_struct_%d", s.anonymous)
		def.anonymous = true
	}
	s.expect("{")
	for !s.peek().is("}") {
		for isPrecision(s.peek().text) {
			s.pos++
		}
		typ := s.typeName()
		for {
			name := s.ident()
			f := field{name: name.text, typ: typ}
			if s.peek().is("[") {
				f.array = s.arraySize()
			}
			if f.typ.basic != 0 && gl.IsSampler(f.typ.basic) {
				s.fail(name, "samplers are not supported in structs")
			}
			def.fields = append(def.fields, f)
			if s.peek().is(",") {
				s.pos++
				continue
			}
			s.expect(";")
			break
		}
	}
	s.pos++
	def.end = s.pos
	if len(def.fields) == 0 {
		s.fail(s.toks[start], "struct %s has no members", def.name)
	}
	if _, dup := s.structs[def.name]; dup {
		s.fail(s.toks[start], "struct %s redefined", def.name)
	}
	s.structs[def.name] = def
	return def
}

func (s *scanner) arraySize() int {
	open := s.expect("[")
	depth := 1
	begin := s.pos
	for depth > 0 {
		t := s.next()
		switch {
		case t.is("["):
			depth++
		case t.is("]"):
			depth--
		}
	}
	n, err := evalExpr(s.toks[begin:s.pos-1], s.constIdent)
	if err != nil {
		s.fail(open, "array size must be a constant integer expression: %v", err)
	}
	if n <= 0 {
		s.fail(open, "array size must be greater than zero")
	}
	return int(n)
}

func (s *scanner) constIdent(name string) (int64, error) {
	if v, ok := s.consts[name]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("%q is not a constant integer", name)
}

// initializer consumes an initializer up to the next top-level comma or
// semicolon.
func (s *scanner) initializer() []token {
	begin := s.pos
	depth := 0
	for {
		t := s.peek()
		switch {
		case t.is("(") || t.is("["):
			depth++
		case t.is(")") || t.is("]"):
			depth--
		case depth == 0 && (t.is(",") || t.is(";")):
			return s.toks[begin:s.pos]
		}
		s.pos++
	}
}

func (s *scanner) function(name token) {
	depth := 0
	for {
		t := s.next()
		if t.is("(") {
			depth++
		} else if t.is(")") {
			depth--
			if depth == 0 {
				break
			}
		}
	}
	if s.peek().is(";") {
		s.pos++
		return
	}
	s.expect("{")
	depth = 1
	for depth > 0 {
		t := s.next()
		switch {
		case t.is("{"):
			depth++
		case t.is("}"):
			depth--
		}
	}
	if s.functions[name.text] && name.text == "main" {
		s.fail(name, "function main redefined")
	}
	s.functions[name.text] = true
}

func (s *scanner) skipTo(text string) {
	for !s.next().is(text) {
	}
}

// markUsage flags the variables whose names appear outside their
// declaration statements.
func (s *scanner) markUsage() {
	byName := make(map[string][]*variable)
	for _, v := range s.vars {
		byName[v.name] = append(byName[v.name], v)
	}
	inDecl := make([]bool, len(s.toks))
	for _, d := range s.decls {
		for i := d.start; i < d.end; i++ {
			inDecl[i] = true
		}
	}
	for i, t := range s.toks {
		if t.kind != tokIdent || inDecl[i] {
			continue
		}
		// Struct member selections are not references.
		if i > 0 && s.toks[i-1].is(".") {
			continue
		}
		for _, v := range byName[t.text] {
			v.used = true
		}
	}
}

func (s *scanner) variables(st storage) []*variable {
	var vars []*variable
	for _, v := range s.vars {
		if v.storage == st {
			vars = append(vars, v)
		}
	}
	return vars
}
