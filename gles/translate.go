// SPDX-License-Identifier: Unlicense OR MIT

package gles

import (
	"log/slog"

	"github.com/pkg/errors"

	"glove.dev/gles/internal/compiler"
	"glove.dev/gles/internal/shaderres"
	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

// TranslateOptions configure TranslateProgram.
type TranslateOptions struct {
	// Config supplies the limits checked at link time. The zero value
	// uses DefaultConfig.
	Config *Config
	// Bindings are attribute locations as set by glBindAttribLocation.
	Bindings map[string]int
	// Generator compiles the translated stages to SPIR-V. No SPIR-V is
	// produced when it is nil.
	Generator SPIRVGenerator
	Logger    *slog.Logger
}

// NewGlslang returns the generator that runs the glslangValidator
// executable bin.
func NewGlslang(bin string) SPIRVGenerator {
	return compiler.NewGlslang(bin)
}

// ProgramVariable is an active attribute or uniform of a translated
// program.
type ProgramVariable struct {
	Name string
	Type Enum
	// TypeName is the GLSL name of Type.
	TypeName string
	Size     int
	Location int
	// Block and Offset locate uniforms in their uniform block.
	Block  int
	Offset int
}

// ProgramBlock is a uniform block of a translated program.
type ProgramBlock struct {
	Name    string
	Binding int
	Size    int
	Opaque  bool
}

// Translation is a shader pair rewritten for Vulkan.
type Translation struct {
	Attributes []ProgramVariable
	Uniforms   []ProgramVariable
	Blocks     []ProgramBlock
	// VertexGLSL and FragmentGLSL are the GLSL 4.00 stages.
	VertexGLSL, FragmentGLSL string
	// VertexSPIRV and FragmentSPIRV are set when a generator is given.
	VertexSPIRV, FragmentSPIRV []byte
}

// ShaderError is returned for shaders that fail to compile or link. Log
// is the info log glGetShaderInfoLog or glGetProgramInfoLog would return.
type ShaderError struct {
	Stage string
	Log   string
}

func (e *ShaderError) Error() string {
	return e.Stage + ": " + e.Log
}

// PreprocessShader runs the ESSL 1.00 preprocessor over src, a shader of
// type VERTEX_SHADER or FRAGMENT_SHADER.
func PreprocessShader(typ Enum, src string) (string, error) {
	stage, err := shaderStage(typ)
	if err != nil {
		return "", err
	}
	c := compiler.New(nil, Logger(), DefaultConfig().Limits.MaxVaryingVectors)
	sh := c.Compile(stage, src)
	if !sh.OK() {
		return "", &ShaderError{Stage: stageLabel(stage), Log: sh.InfoLog()}
	}
	return sh.Preprocessed(), nil
}

// TranslateProgram compiles and links a vertex and fragment shader pair
// the way glLinkProgram does, and returns the program interface together
// with the translated stages.
func TranslateProgram(vertex, fragment string, opts TranslateOptions) (*Translation, error) {
	cfg := DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	log := opts.Logger
	if log == nil {
		log = Logger()
	}
	comp := compiler.New(opts.Generator, log, cfg.Limits.MaxVaryingVectors)
	vs := comp.Compile(driver.StageVertex, vertex)
	if !vs.OK() {
		return nil, &ShaderError{Stage: "vertex", Log: vs.InfoLog()}
	}
	fs := comp.Compile(driver.StageFragment, fragment)
	if !fs.OK() {
		return nil, &ShaderError{Stage: "fragment", Log: fs.InfoLog()}
	}
	prog, err := comp.Link(vs, fs)
	if err != nil {
		return nil, linkFailure(err)
	}
	in, err := shaderres.Link(prog.Reflection, opts.Bindings, shaderres.Limits{
		MaxVertexAttribs:             cfg.Limits.MaxVertexAttribs,
		MaxVertexUniformVectors:      cfg.Limits.MaxVertexUniformVectors,
		MaxFragmentUniformVectors:    cfg.Limits.MaxFragmentUniformVectors,
		MaxCombinedTextureImageUnits: cfg.Limits.MaxCombinedTextureImageUnits,
	})
	if err != nil {
		return nil, linkFailure(err)
	}
	tr := &Translation{}
	for _, a := range in.Attributes() {
		tr.Attributes = append(tr.Attributes, ProgramVariable{
			Name:     a.Name,
			Type:     a.Type,
			TypeName: gl.TypeName(a.Type),
			Size:     1,
			Location: a.Location,
		})
	}
	for _, u := range in.Uniforms() {
		tr.Uniforms = append(tr.Uniforms, ProgramVariable{
			Name:     u.Name,
			Type:     u.Type,
			TypeName: gl.TypeName(u.Type),
			Size:     u.ArraySize,
			Location: u.Location,
			Block:    u.Block,
			Offset:   u.Offset,
		})
	}
	for _, b := range in.Blocks() {
		tr.Blocks = append(tr.Blocks, ProgramBlock{
			Name:    b.Name,
			Binding: b.Binding,
			Size:    b.Size,
			Opaque:  b.Opaque,
		})
	}
	if tr.VertexGLSL, err = prog.Translate(driver.StageVertex, in); err != nil {
		return nil, err
	}
	if tr.FragmentGLSL, err = prog.Translate(driver.StageFragment, in); err != nil {
		return nil, err
	}
	if opts.Generator != nil {
		vert, frag, err := comp.Generate(prog, in)
		if err != nil {
			return nil, err
		}
		tr.VertexSPIRV = []byte(vert.SPIRV)
		tr.FragmentSPIRV = []byte(frag.SPIRV)
	}
	return tr, nil
}

func linkFailure(err error) error {
	var le *compiler.LinkError
	if errors.As(err, &le) {
		return &ShaderError{Stage: "link", Log: le.Log}
	}
	var se *shaderres.LinkError
	if errors.As(err, &se) {
		return &ShaderError{Stage: "link", Log: "ERROR: " + se.Msg + "\n"}
	}
	return err
}

func shaderStage(typ Enum) (driver.ShaderStage, error) {
	switch typ {
	case gl.VERTEX_SHADER:
		return driver.StageVertex, nil
	case gl.FRAGMENT_SHADER:
		return driver.StageFragment, nil
	}
	return 0, errors.Errorf("gles: invalid shader type %v", typ)
}

func stageLabel(s driver.ShaderStage) string {
	if s == driver.StageVertex {
		return "vertex"
	}
	return "fragment"
}
