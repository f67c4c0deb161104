// SPDX-License-Identifier: Unlicense OR MIT

package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glove.dev/internal/driver"
	"glove.dev/internal/driver/drivertest"
	"glove.dev/internal/gl"
)

const (
	scaleVS   = "attribute vec4 pos;\nuniform float u;\nvoid main() { gl_Position = pos * u; }\n"
	textureFS = "precision mediump float;\nuniform sampler2D tex;\nvoid main() { gl_FragColor = texture2D(tex, vec2(0.5)); }\n"
)

func compiled(t *testing.T, m *Manager, typ gl.Enum, src string) *Shader {
	t.Helper()
	s, err := m.Shader(m.CreateShader(typ))
	require.NoError(t, err)
	s.Source = src
	m.CompileShader(s)
	require.True(t, s.CompileStatus, s.InfoLog)
	return s
}

// linked returns a linked program with its shaders attached.
func linked(t *testing.T, m *Manager, vs, fs string) *Program {
	t.Helper()
	p, err := m.Program(m.CreateProgram())
	require.NoError(t, err)
	require.NoError(t, m.AttachShader(p, compiled(t, m, gl.VERTEX_SHADER, vs)))
	require.NoError(t, m.AttachShader(p, compiled(t, m, gl.FRAGMENT_SHADER, fs)))
	require.NoError(t, m.LinkProgram(p))
	require.True(t, p.LinkStatus, p.InfoLog)
	return p
}

func TestLinkProgram(t *testing.T) {
	m, dev, _ := newManager(t)
	p := linked(t, m, scaleVS, textureFS)
	in := p.Interface()
	require.NotNil(t, in)
	assert.Equal(t, 0, in.AttributeLocation("pos"))
	assert.GreaterOrEqual(t, in.UniformLocation("u"), 0)
	assert.GreaterOrEqual(t, in.UniformLocation("tex"), 0)
	assert.Equal(t, -1, in.UniformLocation("missing"))

	e := p.Executable()
	require.NotNil(t, e)
	assert.Equal(t, "attribute vec4 pos;", e.Sources[0].GLSL100ES[:len("attribute vec4 pos;")])
	assert.Len(t, e.Sources[1].Textures, 1)
	for _, kind := range []string{"shader", "descriptorsetlayout", "pipelinelayout", "pipelinecache", "descriptorset"} {
		assert.Positive(t, dev.Created(kind), kind)
	}
	assert.Equal(t, 1, dev.Created("buffer"))
	assert.Len(t, m.AttachedShaders(p), 2)

	m.ValidateProgram(p)
	assert.True(t, p.ValidateStatus)
}

func TestBindAttribLocation(t *testing.T) {
	m, _, _ := newManager(t)
	p, err := m.Program(m.CreateProgram())
	require.NoError(t, err)
	assert.ErrorIs(t, m.BindAttribLocation(p, 16, "pos"), ErrInvalidValue)
	assert.ErrorIs(t, m.BindAttribLocation(p, 0, "gl_Vertex"), ErrInvalidOperation)
	require.NoError(t, m.BindAttribLocation(p, 3, "pos"))

	require.NoError(t, m.AttachShader(p, compiled(t, m, gl.VERTEX_SHADER, scaleVS)))
	require.NoError(t, m.AttachShader(p, compiled(t, m, gl.FRAGMENT_SHADER, textureFS)))
	require.NoError(t, m.LinkProgram(p))
	require.True(t, p.LinkStatus, p.InfoLog)
	assert.Equal(t, 3, p.Interface().AttributeLocation("pos"))
	assert.Equal(t, 3, p.Executable().Sources[0].Inputs[0].Location)
}

func TestCompileFailure(t *testing.T) {
	m, _, _ := newManager(t)
	s, err := m.Shader(m.CreateShader(gl.VERTEX_SHADER))
	require.NoError(t, err)
	s.Source = "uniform Unknown u;\nvoid main() {}\n"
	m.CompileShader(s)
	assert.False(t, s.CompileStatus)
	assert.Contains(t, s.InfoLog, "unknown type")

	p, err := m.Program(m.CreateProgram())
	require.NoError(t, err)
	require.NoError(t, m.AttachShader(p, s))
	require.NoError(t, m.AttachShader(p, compiled(t, m, gl.FRAGMENT_SHADER, textureFS)))
	require.NoError(t, m.LinkProgram(p))
	assert.False(t, p.LinkStatus)
	assert.Contains(t, p.InfoLog, "have not been compiled successfully")
	assert.Nil(t, p.Interface())
}

func TestAttachShader(t *testing.T) {
	m, _, _ := newManager(t)
	p, err := m.Program(m.CreateProgram())
	require.NoError(t, err)
	vs := compiled(t, m, gl.VERTEX_SHADER, scaleVS)
	other := compiled(t, m, gl.VERTEX_SHADER, scaleVS)

	require.NoError(t, m.AttachShader(p, vs))
	assert.ErrorIs(t, m.AttachShader(p, other), ErrInvalidOperation)
	assert.ErrorIs(t, m.DetachShader(p, other), ErrInvalidOperation)

	require.NoError(t, m.LinkProgram(p))
	assert.False(t, p.LinkStatus)
	assert.Contains(t, p.InfoLog, "requires a vertex and a fragment shader")
	assert.Equal(t, []uint32{vs.Name}, m.AttachedShaders(p))
}

func TestDeferredShaderDeletion(t *testing.T) {
	m, _, _ := newManager(t)
	p, err := m.Program(m.CreateProgram())
	require.NoError(t, err)
	vs := compiled(t, m, gl.VERTEX_SHADER, scaleVS)
	require.NoError(t, m.AttachShader(p, vs))

	require.NoError(t, m.DeleteShader(vs.Name))
	assert.True(t, m.IsShader(vs.Name))
	assert.Equal(t, PendingDeletion, vs.Lifecycle)

	require.NoError(t, m.DetachShader(p, vs))
	assert.False(t, m.IsShader(vs.Name))
	_, err = m.Shader(vs.Name)
	assert.ErrorIs(t, err, ErrInvalidValue)

	fs := compiled(t, m, gl.FRAGMENT_SHADER, textureFS)
	require.NoError(t, m.DeleteShader(fs.Name))
	assert.False(t, m.IsShader(fs.Name))
}

func TestDeferredProgramDeletion(t *testing.T) {
	m, dev, _ := newManager(t)
	p := linked(t, m, scaleVS, textureFS)
	vs := m.Shaders.Resolve(p.Vertex)
	require.NotNil(t, vs)
	require.NoError(t, m.DeleteShader(vs.Name))

	require.NoError(t, m.DeleteProgram(p.Name, true))
	assert.True(t, m.IsProgram(p.Name))
	assert.NotNil(t, p.Executable())
	assert.True(t, m.IsShader(vs.Name))

	m.Unuse(p)
	assert.False(t, m.IsProgram(p.Name))
	assert.False(t, m.IsShader(vs.Name))
	assert.Zero(t, dev.Live())

	_, err := m.Program(p.Name)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestFailedRelinkKeepsExecutable(t *testing.T) {
	m, _, _ := newManager(t)
	p := linked(t, m, scaleVS, textureFS)
	e := p.Executable()
	fs := m.Shaders.Resolve(p.Fragment)
	require.NoError(t, m.DetachShader(p, fs))

	require.NoError(t, m.LinkProgram(p))
	assert.False(t, p.LinkStatus)
	assert.Nil(t, p.Interface())
	assert.Same(t, e, p.Executable())

	m.ValidateProgram(p)
	assert.False(t, p.ValidateStatus)
	assert.Contains(t, p.InfoLog, "not linked")
}

func TestLinkOutOfMemory(t *testing.T) {
	m, dev, _ := newManager(t)
	p := linked(t, m, scaleVS, textureFS)
	e := p.Executable()
	live := dev.Live()

	dev.FailOn("pipelinelayout")
	err := m.LinkProgram(p)
	assert.ErrorIs(t, err, driver.ErrOutOfMemory)
	assert.Equal(t, live, dev.Live())
	assert.Same(t, e, p.Executable())
	assert.True(t, p.LinkStatus)
}

func TestCheckSamplers(t *testing.T) {
	m, _, _ := newManager(t)
	p := linked(t, m, scaleVS, "precision mediump float;\nuniform sampler2D a;\nuniform samplerCube b;\n"+
		"void main() { gl_FragColor = texture2D(a, vec2(0.0)) + textureCube(b, vec3(1.0)); }\n")
	in := p.Interface()
	assert.Error(t, CheckSamplers(in, 16))
	m.ValidateProgram(p)
	assert.False(t, p.ValidateStatus)
	assert.Contains(t, p.InfoLog, "different types")

	_, err := in.SetUniform(in.UniformLocation("b"), []byte{1, 0, 0, 0})
	require.NoError(t, err)
	assert.NoError(t, CheckSamplers(in, 16))
	assert.Error(t, CheckSamplers(in, 1))
}

func TestDescriptors(t *testing.T) {
	m, dev, tr := newManager(t)
	p := linked(t, m, scaleVS, textureFS)
	e := p.Executable()
	in := e.Interface
	u := in.UniformLocation("u")
	ublock := in.Blocks()[in.Uniforms()[0].Block]
	tblock := in.Blocks()[in.Uniforms()[1].Block]
	require.False(t, ublock.Opaque)
	require.True(t, tblock.Opaque)

	_, err := in.SetUniform(u, floats(2))
	require.NoError(t, err)
	set, err := m.Descriptors(e, nil)
	require.NoError(t, err)
	ds := set.(*drivertest.DescriptorSet)
	buf := ds.Buffers[ublock.Binding].(*drivertest.Buffer)
	assert.Equal(t, floats(2, 0, 0, 0), buf.Data)
	black := ds.Textures[[2]int{tblock.Binding, 0}].(*drivertest.Image)
	assert.Equal(t, []byte{0, 0, 0, 0xff}, black.Pixels[[2]int{0, 0}])
	assert.Equal(t, 1, dev.Created("descriptorset"))

	// The set and buffer are referenced by work not yet completed.
	_, err = in.SetUniform(u, floats(3))
	require.NoError(t, err)
	renamed, err := m.Descriptors(e, nil)
	require.NoError(t, err)
	assert.NotSame(t, set, renamed)
	assert.Equal(t, 1, dev.Destroyed("descriptorset"))
	assert.Equal(t, 1, dev.Destroyed("buffer"))
	rds := renamed.(*drivertest.DescriptorSet)
	assert.Equal(t, floats(3, 0, 0, 0), rds.Buffers[ublock.Binding].(*drivertest.Buffer).Data)
	assert.Same(t, black, rds.Textures[[2]int{tblock.Binding, 0}])

	require.NoError(t, tr.Finish())
	_, err = in.SetUniform(u, floats(4))
	require.NoError(t, err)
	again, err := m.Descriptors(e, nil)
	require.NoError(t, err)
	assert.Same(t, renamed, again)
	assert.Equal(t, 2, dev.Created("buffer"))
	assert.Equal(t, floats(4, 0, 0, 0), rds.Buffers[ublock.Binding].(*drivertest.Buffer).Data)

	// Unchanged state reuses everything.
	same, err := m.Descriptors(e, nil)
	require.NoError(t, err)
	assert.Same(t, renamed, same)
	assert.Equal(t, 2, dev.Created("descriptorset"))

	require.NoError(t, tr.Finish())
	tex := newTexture2D(t, m)
	require.NoError(t, m.TexImage2D(tex, gl.TEXTURE_2D, 0, gl.RGBA, 1, 1, gl.RGBA, gl.UNSIGNED_BYTE, []byte{1, 2, 3, 4}, 4))
	lookup := func(unit int, target gl.Enum) *Texture {
		if unit == 0 && target == gl.TEXTURE_2D {
			return tex
		}
		return nil
	}
	set, err = m.Descriptors(e, lookup)
	require.NoError(t, err)
	assert.Same(t, renamed, set)
	assert.Same(t, tex.img, rds.Textures[[2]int{tblock.Binding, 0}])
	assert.True(t, tex.Busy(tr))
}
