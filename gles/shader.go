// SPDX-License-Identifier: Unlicense OR MIT

package gles

import (
	"glove.dev/gles/internal/resource"
	"glove.dev/gles/internal/state"
	"glove.dev/internal/gl"
)

func (c *Context) CreateShader(typ gl.Enum) uint32 {
	if typ != gl.VERTEX_SHADER && typ != gl.FRAGMENT_SHADER {
		c.setError("glCreateShader", gl.INVALID_ENUM)
		return 0
	}
	return c.res.CreateShader(typ)
}

func (c *Context) shader(call string, h uint32) *resource.Shader {
	s, err := c.res.Shader(h)
	if !c.check(call, err) {
		return nil
	}
	return s
}

// DeleteShader deletes a shader. A shader attached to a program is only
// marked for deletion until it is detached.
func (c *Context) DeleteShader(h uint32) {
	if h == 0 {
		return
	}
	c.check("glDeleteShader", c.res.DeleteShader(h))
}

func (c *Context) IsShader(h uint32) bool {
	return c.res.IsShader(h)
}

func (c *Context) ShaderSource(h uint32, source string) {
	if s := c.shader("glShaderSource", h); s != nil {
		s.Source = source
	}
}

func (c *Context) GetShaderSource(h uint32) string {
	if s := c.shader("glGetShaderSource", h); s != nil {
		return s.Source
	}
	return ""
}

func (c *Context) CompileShader(h uint32) {
	if s := c.shader("glCompileShader", h); s != nil {
		c.res.CompileShader(s)
	}
}

func (c *Context) GetShaderInfoLog(h uint32) string {
	if s := c.shader("glGetShaderInfoLog", h); s != nil {
		return s.InfoLog
	}
	return ""
}

// logLength is the length GL reports for a string, including the
// terminating NUL of non-empty strings.
func logLength(s string) int32 {
	if s == "" {
		return 0
	}
	return int32(len(s) + 1)
}

func glBool(b bool) int32 {
	if b {
		return gl.TRUE
	}
	return gl.FALSE
}

func (c *Context) GetShaderiv(h uint32, pname gl.Enum, params []int32) {
	const call = "glGetShaderiv"
	s := c.shader(call, h)
	if s == nil {
		return
	}
	var v int32
	switch pname {
	case gl.SHADER_TYPE:
		v = int32(s.Type)
	case gl.DELETE_STATUS:
		v = glBool(s.Lifecycle == resource.PendingDeletion)
	case gl.COMPILE_STATUS:
		v = glBool(s.CompileStatus)
	case gl.INFO_LOG_LENGTH:
		v = logLength(s.InfoLog)
	case gl.SHADER_SOURCE_LENGTH:
		v = logLength(s.Source)
	default:
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	if len(params) > 0 {
		params[0] = v
	}
}

// ShaderBinary is not supported: no shader binary formats are
// advertised.
func (c *Context) ShaderBinary(shaders []uint32, format gl.Enum, binary []byte) {
	c.log.Warn("shader binaries are not supported", "call", "glShaderBinary", "format", format)
	c.setError("glShaderBinary", gl.INVALID_ENUM)
}

// ReleaseShaderCompiler is a hint that is ignored.
func (c *Context) ReleaseShaderCompiler() {
	c.log.Warn("ignored", "call", "glReleaseShaderCompiler")
}

func (c *Context) CreateProgram() uint32 {
	return c.res.CreateProgram()
}

func (c *Context) programObject(call string, h uint32) *resource.Program {
	p, err := c.res.Program(h)
	if !c.check(call, err) {
		return nil
	}
	return p
}

// program returns the current program, nil if there is none.
func (c *Context) program() *resource.Program {
	if c.state.Program == 0 {
		return nil
	}
	return c.res.Programs.Lookup(c.state.Program)
}

// DeleteProgram deletes a program. The current program is only marked
// for deletion until another program replaces it.
func (c *Context) DeleteProgram(h uint32) {
	const call = "glDeleteProgram"
	if h == 0 {
		return
	}
	p := c.programObject(call, h)
	if p == nil {
		return
	}
	current := c.state.Program == h
	if e := p.Executable(); e != nil && !current {
		c.pipe.Forget(e.ID)
	}
	c.check(call, c.res.DeleteProgram(h, current))
}

func (c *Context) IsProgram(h uint32) bool {
	return c.res.IsProgram(h)
}

func (c *Context) AttachShader(program, shader uint32) {
	const call = "glAttachShader"
	p := c.programObject(call, program)
	if p == nil {
		return
	}
	s := c.shader(call, shader)
	if s == nil {
		return
	}
	c.check(call, c.res.AttachShader(p, s))
}

func (c *Context) DetachShader(program, shader uint32) {
	const call = "glDetachShader"
	p := c.programObject(call, program)
	if p == nil {
		return
	}
	s := c.shader(call, shader)
	if s == nil {
		return
	}
	c.check(call, c.res.DetachShader(p, s))
}

func (c *Context) GetAttachedShaders(program uint32) []uint32 {
	if p := c.programObject("glGetAttachedShaders", program); p != nil {
		return c.res.AttachedShaders(p)
	}
	return nil
}

func (c *Context) BindAttribLocation(program uint32, index int, name string) {
	const call = "glBindAttribLocation"
	if p := c.programObject(call, program); p != nil {
		c.check(call, c.res.BindAttribLocation(p, index, name))
	}
}

// LinkProgram links the attached shaders. A failed link keeps the
// previous executable in use when the program is current.
func (c *Context) LinkProgram(h uint32) {
	const call = "glLinkProgram"
	p := c.programObject(call, h)
	if p == nil {
		return
	}
	old := p.Executable()
	if !c.check(call, c.res.LinkProgram(p)) {
		return
	}
	c.linked(p, old)
}

// linked retires the pipelines of the executable a link replaced.
func (c *Context) linked(p *resource.Program, old *resource.Executable) {
	if old != nil && p.Executable() != old {
		c.pipe.Forget(old.ID)
	}
	if c.state.Program == p.Name {
		c.state.MarkDirty(state.DirtyPipeline | state.DirtyVertexAttribs | state.DirtyDescriptors)
	}
}

func (c *Context) UseProgram(h uint32) {
	const call = "glUseProgram"
	if h != 0 {
		p := c.programObject(call, h)
		if p == nil {
			return
		}
		if !p.LinkStatus {
			c.setError(call, gl.INVALID_OPERATION)
			return
		}
	}
	old := c.program()
	if !c.state.UseProgram(h) {
		return
	}
	if old != nil && old.Lifecycle == resource.PendingDeletion {
		if e := old.Executable(); e != nil {
			c.pipe.Forget(e.ID)
		}
	}
	c.res.Unuse(old)
}

func (c *Context) ValidateProgram(h uint32) {
	if p := c.programObject("glValidateProgram", h); p != nil {
		c.res.ValidateProgram(p)
	}
}

func (c *Context) GetProgramInfoLog(h uint32) string {
	if p := c.programObject("glGetProgramInfoLog", h); p != nil {
		return p.InfoLog
	}
	return ""
}

func (c *Context) GetProgramiv(h uint32, pname gl.Enum, params []int32) {
	const call = "glGetProgramiv"
	p := c.programObject(call, h)
	if p == nil {
		return
	}
	in := p.Interface()
	var v int32
	switch pname {
	case gl.DELETE_STATUS:
		v = glBool(p.Lifecycle == resource.PendingDeletion)
	case gl.LINK_STATUS:
		v = glBool(p.LinkStatus)
	case gl.VALIDATE_STATUS:
		v = glBool(p.ValidateStatus)
	case gl.INFO_LOG_LENGTH:
		v = logLength(p.InfoLog)
	case gl.ATTACHED_SHADERS:
		v = int32(len(c.res.AttachedShaders(p)))
	case gl.ACTIVE_ATTRIBUTES:
		if in != nil {
			v = int32(len(in.Attributes()))
		}
	case gl.ACTIVE_ATTRIBUTE_MAX_LENGTH:
		if in != nil {
			v = int32(in.ActiveAttributeMaxLength())
		}
	case gl.ACTIVE_UNIFORMS:
		if in != nil {
			v = int32(len(in.Uniforms()))
		}
	case gl.ACTIVE_UNIFORM_MAX_LENGTH:
		if in != nil {
			v = int32(in.ActiveUniformMaxLength())
		}
	case gl.PROGRAM_BINARY_LENGTH_OES:
		if in != nil {
			b, err := c.programBinary(p)
			if !c.check(call, err) {
				return
			}
			v = int32(len(b))
		}
	default:
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	if len(params) > 0 {
		params[0] = v
	}
}

// GetActiveAttrib returns the name, size and type of the active
// attribute at index.
func (c *Context) GetActiveAttrib(h uint32, index int) (name string, size int, typ gl.Enum) {
	const call = "glGetActiveAttrib"
	p := c.programObject(call, h)
	if p == nil {
		return "", 0, 0
	}
	in := p.Interface()
	if in == nil || index < 0 || index >= len(in.Attributes()) {
		c.setError(call, gl.INVALID_VALUE)
		return "", 0, 0
	}
	a := in.Attributes()[index]
	return a.Name, 1, a.Type
}

// GetActiveUniform returns the name, array size and type of the active
// uniform at index. Arrays are reported with a "[0]" suffix.
func (c *Context) GetActiveUniform(h uint32, index int) (name string, size int, typ gl.Enum) {
	const call = "glGetActiveUniform"
	p := c.programObject(call, h)
	if p == nil {
		return "", 0, 0
	}
	in := p.Interface()
	if in == nil || index < 0 || index >= len(in.Uniforms()) {
		c.setError(call, gl.INVALID_VALUE)
		return "", 0, 0
	}
	u := in.Uniforms()[index]
	return u.Name, u.ArraySize, u.Type
}

func (c *Context) GetAttribLocation(h uint32, name string) int {
	const call = "glGetAttribLocation"
	p := c.programObject(call, h)
	if p == nil {
		return -1
	}
	in := p.Interface()
	if in == nil {
		c.setError(call, gl.INVALID_OPERATION)
		return -1
	}
	return in.AttributeLocation(name)
}
