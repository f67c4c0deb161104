// SPDX-License-Identifier: Unlicense OR MIT

// Package compiler turns ESSL 1.00 shader pairs into Vulkan SPIR-V.
//
// The front end preprocesses each stage and scans its global declarations,
// which is enough to reflect the active attributes, uniforms and varyings.
// Linked programs are rewritten to GLSL 4.00 with explicit locations and
// uniform block bindings taken from a shaderres.Interface, and handed to a
// SPIRVGenerator.
package compiler

import (
	"fmt"
	"log/slog"
	"strings"

	"gioui.org/shader"
	"github.com/pkg/errors"

	"glove.dev/gles/internal/shaderres"
	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

// SPIRVGenerator compiles GLSL 4.00 to SPIR-V.
type SPIRVGenerator interface {
	Generate(stage driver.ShaderStage, glsl string) ([]byte, error)
}

// Validator is implemented by generators that can check ESSL 1.00 source
// at compile time.
type Validator interface {
	Validate(stage driver.ShaderStage, essl string) error
}

// ErrUnavailable is returned by generators whose backend is missing.
var ErrUnavailable = errors.New("compiler: shader backend unavailable")

// Compiler compiles and links shaders. It is not safe for concurrent
// use.
type Compiler struct {
	gen         SPIRVGenerator
	log         *slog.Logger
	maxVaryings int
}

// Shader is the result of compiling one stage. Failed compilations
// still produce a Shader carrying the info log.
type Shader struct {
	Stage  driver.ShaderStage
	Source string

	toks  []token
	scan  *scanner
	diags diagnostics
	// backendLog is the output of the validator.
	backendLog string
	ok         bool
}

// Program is a linked vertex and fragment shader pair.
type Program struct {
	Vertex, Fragment *Shader
	Reflection       shaderres.Reflection

	varyings map[string]int
}

// LinkError carries the program info log of a failed link.
type LinkError struct {
	Log string
}

func (e *LinkError) Error() string {
	return e.Log
}

func New(gen SPIRVGenerator, logger *slog.Logger, maxVaryingVectors int) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{gen: gen, log: logger, maxVaryings: maxVaryingVectors}
}

// Compile preprocesses and scans src. The returned shader reports the
// compile status through OK.
func (c *Compiler) Compile(stage driver.ShaderStage, src string) *Shader {
	sh := &Shader{Stage: stage, Source: src}
	sh.toks, sh.diags = preprocess(stage, src)
	if !sh.diags.failed() {
		sh.scan = scan(sh.toks, &sh.diags)
	}
	if !sh.diags.failed() && !sh.scan.functions["main"] {
		sh.diags.errorf(0, "Missing entry point: Each stage requires one entry point")
	}
	if !sh.diags.failed() {
		if v, ok := c.gen.(Validator); ok {
			if err := v.Validate(stage, src); err != nil {
				if errors.Is(err, ErrUnavailable) {
					c.log.Warn("shader validation skipped", "err", err)
				} else {
					sh.backendLog = err.Error()
				}
			}
		}
	}
	sh.ok = !sh.diags.failed() && sh.backendLog == ""
	c.log.Debug("compiled shader", "stage", stageName(stage), "ok", sh.ok)
	return sh
}

// OK reports whether the shader compiled.
func (s *Shader) OK() bool {
	return s.ok
}

func (s *Shader) InfoLog() string {
	log := s.diags.String()
	if s.backendLog != "" {
		log += s.backendLog
		if !strings.HasSuffix(log, "\n") {
			log += "\n"
		}
	}
	return log
}

// Preprocessed returns the token stream left by the preprocessor, one
// source line per output line where possible.
func (s *Shader) Preprocessed() string {
	w := &writer{bol: true}
	for _, t := range s.toks {
		w.token(t, t.text)
	}
	if !w.bol {
		w.b.WriteByte('\n')
	}
	return w.b.String()
}

func stageName(s driver.ShaderStage) string {
	if s == driver.StageVertex {
		return "vertex"
	}
	return "fragment"
}

// Link checks the interface between vs and fs, reflects the active
// resources and assigns varying locations.
func (c *Compiler) Link(vs, fs *Shader) (*Program, error) {
	switch {
	case vs == nil || fs == nil:
		return nil, &LinkError{Log: "ERROR: Linking requires a vertex and a fragment shader.\n"}
	case !vs.ok || !fs.ok:
		return nil, &LinkError{Log: "ERROR: Attached shaders have not been compiled successfully.\n"}
	case vs.Stage != driver.StageVertex || fs.Stage != driver.StageFragment:
		return nil, &LinkError{Log: "ERROR: Shader stages do not match their attachment points.\n"}
	}
	var errs []string
	fail := func(format string, args ...interface{}) {
		errs = append(errs, "ERROR: Linking: "+fmt.Sprintf(format, args...))
	}
	p := &Program{Vertex: vs, Fragment: fs, varyings: make(map[string]int)}

	written := make(map[string]*variable)
	slots := 0
	for _, v := range vs.scan.variables(storageVarying) {
		written[v.name] = v
		p.varyings[v.name] = slots
		slots += gl.LocationSlots(v.typ.basic) * arrayLen(v.array)
	}
	if slots > c.maxVaryings {
		fail("too many varyings: %d vectors used, MAX_VARYING_VECTORS is %d", slots, c.maxVaryings)
	}
	for _, v := range fs.scan.variables(storageVarying) {
		w, ok := written[v.name]
		switch {
		case !ok && v.used:
			fail("varying %q is read by the fragment shader but not declared by the vertex shader", v.name)
		case ok && (!w.typ.equal(v.typ) || w.array != v.array):
			fail("varying %q has different types in the vertex and fragment shaders", v.name)
		}
	}

	for _, v := range vs.scan.variables(storageAttribute) {
		if v.used {
			p.Reflection.Attributes = append(p.Reflection.Attributes, shaderres.ReflectedAttribute{
				Name: v.name,
				Type: v.typ.basic,
			})
		}
	}

	type uniform struct {
		v      *variable
		stages driver.ShaderStage
	}
	var order []*uniform
	byName := make(map[string]*uniform)
	for _, sh := range []*Shader{vs, fs} {
		for _, v := range sh.scan.variables(storageUniform) {
			u, ok := byName[v.name]
			if !ok {
				u = &uniform{v: v}
				byName[v.name] = u
				order = append(order, u)
			} else if !u.v.typ.equal(v.typ) || u.v.array != v.array {
				fail("uniform %q has different types in the vertex and fragment shaders", v.name)
				continue
			}
			if v.used {
				u.stages |= sh.Stage
			}
		}
	}
	for _, u := range order {
		if u.stages != 0 {
			p.Reflection.Uniforms = expandUniform(p.Reflection.Uniforms, u.v.name, u.v.typ, u.v.array, u.stages)
		}
	}
	if len(errs) > 0 {
		return nil, &LinkError{Log: strings.Join(errs, "\n") + "\n"}
	}
	c.log.Debug("linked program", "attributes", len(p.Reflection.Attributes), "uniforms", len(p.Reflection.Uniforms))
	return p, nil
}

func arrayLen(n int) int {
	if n == 0 {
		return 1
	}
	return n
}

// expandUniform flattens structs and arrays of structs into the names
// glGetActiveUniform reports.
func expandUniform(out []shaderres.ReflectedUniform, name string, typ typeRef, array int, stages driver.ShaderStage) []shaderres.ReflectedUniform {
	if typ.str == nil {
		u := shaderres.ReflectedUniform{Name: name, Type: typ.basic, ArraySize: 1, Stages: stages}
		if array > 0 {
			u.Name += "[0]"
			u.ArraySize = array
		}
		return append(out, u)
	}
	prefixes := []string{name}
	if array > 0 {
		prefixes = prefixes[:0]
		for i := 0; i < array; i++ {
			prefixes = append(prefixes, fmt.Sprintf("%s[%d]", name, i))
		}
	}
	for _, prefix := range prefixes {
		for _, f := range typ.str.fields {
			out = expandUniform(out, prefix+"."+f.name, f.typ, f.array, stages)
		}
	}
	return out
}

// Generate translates both stages for the linked interface in and
// compiles them to SPIR-V.
func (c *Compiler) Generate(p *Program, in *shaderres.Interface) (vert, frag shader.Sources, err error) {
	for _, sh := range []*Shader{p.Vertex, p.Fragment} {
		glsl, err := p.Translate(sh.Stage, in)
		if err != nil {
			return vert, frag, err
		}
		spirv, err := c.gen.Generate(sh.Stage, glsl)
		if err != nil {
			return vert, frag, errors.Wrapf(err, "compiler: %s shader", stageName(sh.Stage))
		}
		src := Sources(sh.Stage, spirv, in)
		src.GLSL100ES = sh.Source
		if sh.Stage == driver.StageVertex {
			vert = src
		} else {
			frag = src
		}
	}
	c.log.Debug("generated SPIR-V", "vertex", len(vert.SPIRV), "fragment", len(frag.SPIRV))
	return vert, frag, nil
}

// Sources describes the SPIR-V of stage together with the resources it
// binds according to in.
func Sources(stage driver.ShaderStage, spirv []byte, in *shaderres.Interface) shader.Sources {
	src := shader.Sources{
		Name:  "glove." + stageExt(stage),
		SPIRV: string(spirv),
	}
	for _, idx := range in.Samplers() {
		u := in.Uniforms()[idx]
		if u.Stages.Has(stage) {
			src.Textures = append(src.Textures, shader.TextureBinding{
				Name:    u.Name,
				Binding: in.Blocks()[u.Block].Binding,
			})
		}
	}
	if stage == driver.StageVertex {
		for _, a := range in.Attributes() {
			src.Inputs = append(src.Inputs, shader.InputLocation{
				Name:     a.Name,
				Location: a.Location,
				Type:     shader.DataTypeFloat,
				Size:     gl.TypeComponents(a.Type),
			})
		}
	}
	return src
}

func stageExt(s driver.ShaderStage) string {
	if s == driver.StageVertex {
		return "vert"
	}
	return "frag"
}
