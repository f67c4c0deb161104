// SPDX-License-Identifier: Unlicense OR MIT

package gles

import (
	"encoding/binary"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glove.dev/internal/driver"
	"glove.dev/internal/driver/drivertest"
	"glove.dev/internal/gl"
)

// fakeGenerator returns a SPIR-V header for every stage.
type fakeGenerator struct{}

func (fakeGenerator) Generate(stage driver.ShaderStage, glsl string) ([]byte, error) {
	return []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0}, nil
}

const (
	colorVertex = `
attribute vec4 pos;
uniform vec4 color;
uniform float u;
varying vec4 v;

void main() {
	v = color * u;
	gl_Position = pos;
}
`
	colorFragment = `
precision mediump float;
varying vec4 v;

void main() {
	gl_FragColor = v;
}
`
	scalarVertex = `
uniform float u;

void main() {
	gl_Position = vec4(u);
}
`
	scalarFragment = `
precision mediump float;

void main() {
	gl_FragColor = vec4(1.0);
}
`
)

func newContext(t *testing.T) (*Context, *drivertest.Device) {
	t.Helper()
	dev := drivertest.NewDevice()
	cfg := DefaultConfig()
	c, err := NewContext(dev, Options{
		Config:    &cfg,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Generator: fakeGenerator{},
	})
	require.NoError(t, err)
	t.Cleanup(c.Destroy)
	return c, dev
}

// newSurfaceContext returns a context drawing to a w×h surface.
func newSurfaceContext(t *testing.T, w, h int) (*Context, *drivertest.Device) {
	t.Helper()
	c, dev := newContext(t)
	img, err := dev.NewImage(driver.ImageDesc{
		Format: driver.FormatRGBA8,
		Width:  w,
		Height: h,
		Levels: 1,
		Layers: 1,
		Usage:  driver.ImageUsageColorAttachment,
	})
	require.NoError(t, err)
	s := &Surface{Images: []driver.Image{img}, Width: w, Height: h, DepthFormat: gl.DEPTH_COMPONENT16}
	require.NoError(t, c.SetWriteSurface(s))
	require.NoError(t, c.SetReadSurface(s))
	return c, dev
}

func noError(t *testing.T, c *Context) {
	t.Helper()
	assert.Equal(t, gl.Enum(gl.NO_ERROR), c.GetError())
}

func buildProgram(t *testing.T, c *Context, vsrc, fsrc string) uint32 {
	t.Helper()
	vs := c.CreateShader(gl.VERTEX_SHADER)
	c.ShaderSource(vs, vsrc)
	c.CompileShader(vs)
	fs := c.CreateShader(gl.FRAGMENT_SHADER)
	c.ShaderSource(fs, fsrc)
	c.CompileShader(fs)
	status := make([]int32, 1)
	c.GetShaderiv(vs, gl.COMPILE_STATUS, status)
	require.Equal(t, int32(gl.TRUE), status[0], c.GetShaderInfoLog(vs))
	c.GetShaderiv(fs, gl.COMPILE_STATUS, status)
	require.Equal(t, int32(gl.TRUE), status[0], c.GetShaderInfoLog(fs))
	p := c.CreateProgram()
	c.AttachShader(p, vs)
	c.AttachShader(p, fs)
	c.LinkProgram(p)
	c.GetProgramiv(p, gl.LINK_STATUS, status)
	require.Equal(t, int32(gl.TRUE), status[0], c.GetProgramInfoLog(p))
	c.DeleteShader(vs)
	c.DeleteShader(fs)
	noError(t, c)
	return p
}

// setupTriangle binds a program and a vertex buffer holding one
// triangle.
func setupTriangle(t *testing.T, c *Context) (program, buffer uint32) {
	t.Helper()
	program = buildProgram(t, c, colorVertex, colorFragment)
	c.UseProgram(program)
	buffer = c.GenBuffers(1)[0]
	c.BindBuffer(gl.ARRAY_BUFFER, buffer)
	c.BufferData(gl.ARRAY_BUFFER, 36, floatBytes(-1, -1, 0, 1, -1, 0, 0, 1, 0), gl.STATIC_DRAW)
	pos := c.GetAttribLocation(program, "pos")
	require.GreaterOrEqual(t, pos, 0)
	c.EnableVertexAttribArray(pos)
	c.VertexAttribPointer(pos, 3, gl.FLOAT, false, 0, 0, nil)
	noError(t, c)
	return program, buffer
}

func floatBytes(v ...float32) []byte {
	b := make([]byte, 0, len(v)*4)
	for _, f := range v {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return b
}

func TestErrorRegisterKeepsFirstError(t *testing.T) {
	c, _ := newContext(t)
	c.Enable(0xdead)
	c.LineWidth(-1)
	c.BindBuffer(gl.ARRAY_BUFFER, 1234)
	assert.Equal(t, gl.Enum(gl.INVALID_ENUM), c.GetError())
	assert.Equal(t, gl.Enum(gl.NO_ERROR), c.GetError())
}

func TestErrorCodes(t *testing.T) {
	c, _ := newContext(t)
	tests := []struct {
		name string
		call func()
		want gl.Enum
	}{
		{"bad capability", func() { c.Enable(gl.TEXTURE_2D) }, gl.INVALID_ENUM},
		{"negative viewport", func() { c.Viewport(0, 0, -1, 4) }, gl.INVALID_VALUE},
		{"unknown buffer name", func() { c.BindBuffer(gl.ARRAY_BUFFER, 99) }, gl.INVALID_OPERATION},
		{"bad buffer target", func() { c.BindBuffer(gl.TEXTURE_2D, 0) }, gl.INVALID_ENUM},
		{"unknown program", func() { c.UseProgram(42) }, gl.INVALID_VALUE},
		{"bad shader type", func() { c.CreateShader(gl.FLOAT) }, gl.INVALID_ENUM},
		{"bad pixel store", func() { c.PixelStorei(gl.PACK_ALIGNMENT, 3) }, gl.INVALID_VALUE},
		{"texture unit out of range", func() { c.ActiveTexture(gl.TEXTURE0 + 1000) }, gl.INVALID_ENUM},
		{"attrib out of range", func() { c.EnableVertexAttribArray(1000) }, gl.INVALID_VALUE},
		{"unknown query", func() { c.GetIntegerv(gl.FLOAT, make([]int32, 4)) }, gl.INVALID_ENUM},
		{"unknown string", func() { c.GetString(gl.FLOAT) }, gl.INVALID_ENUM},
		{"fixed vertex data", func() { c.VertexAttribPointer(0, 2, gl.FIXED, false, 0, 0, nil) }, gl.INVALID_ENUM},
		{"draw mode", func() { c.DrawArrays(gl.FLOAT, 0, 3) }, gl.INVALID_ENUM},
		{"draw count", func() { c.DrawArrays(gl.TRIANGLES, 0, -1) }, gl.INVALID_VALUE},
		{"modify default framebuffer", func() {
			c.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.RENDERBUFFER, 0)
		}, gl.INVALID_OPERATION},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.call()
			assert.Equal(t, test.want, c.GetError())
			assert.Equal(t, gl.Enum(gl.NO_ERROR), c.GetError())
		})
	}
}

func TestBufferSize(t *testing.T) {
	c, _ := newContext(t)
	b := c.GenBuffers(1)[0]
	c.BindBuffer(gl.ARRAY_BUFFER, b)
	assert.True(t, c.IsBuffer(b))
	c.BufferData(gl.ARRAY_BUFFER, 48, make([]byte, 48), gl.STATIC_DRAW)
	params := make([]int32, 1)
	c.GetBufferParameteriv(gl.ARRAY_BUFFER, gl.BUFFER_SIZE, params)
	assert.Equal(t, int32(48), params[0])
	c.GetBufferParameteriv(gl.ARRAY_BUFFER, gl.BUFFER_USAGE, params)
	assert.Equal(t, int32(gl.STATIC_DRAW), params[0])
	c.GetIntegerv(gl.ARRAY_BUFFER_BINDING, params)
	assert.Equal(t, int32(b), params[0])
	noError(t, c)

	c.BufferSubData(gl.ARRAY_BUFFER, 40, make([]byte, 16))
	assert.Equal(t, gl.Enum(gl.INVALID_VALUE), c.GetError())

	c.DeleteBuffers([]uint32{b})
	assert.False(t, c.IsBuffer(b))
	c.GetIntegerv(gl.ARRAY_BUFFER_BINDING, params)
	assert.Equal(t, int32(0), params[0])
}

func TestActiveUniform(t *testing.T) {
	c, _ := newContext(t)
	p := buildProgram(t, c, scalarVertex, scalarFragment)
	params := make([]int32, 1)
	c.GetProgramiv(p, gl.ACTIVE_UNIFORMS, params)
	assert.Equal(t, int32(1), params[0])
	name, size, typ := c.GetActiveUniform(p, 0)
	assert.Equal(t, "u", name)
	assert.Equal(t, 1, size)
	assert.Equal(t, gl.Enum(gl.FLOAT), typ)
	c.GetProgramiv(p, gl.ACTIVE_UNIFORM_MAX_LENGTH, params)
	assert.Equal(t, int32(2), params[0])
	noError(t, c)

	c.GetActiveUniform(p, 1)
	assert.Equal(t, gl.Enum(gl.INVALID_VALUE), c.GetError())
}

func TestFramebufferCompleteness(t *testing.T) {
	c, _ := newContext(t)
	fb := c.GenFramebuffers(1)[0]
	c.BindFramebuffer(gl.FRAMEBUFFER, fb)
	assert.NotEqual(t, gl.Enum(gl.FRAMEBUFFER_COMPLETE), c.CheckFramebufferStatus(gl.FRAMEBUFFER))

	tex := c.GenTextures(1)[0]
	c.BindTexture(gl.TEXTURE_2D, tex)
	c.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, 64, 64, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	c.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex, 0)
	assert.Equal(t, gl.Enum(gl.FRAMEBUFFER_COMPLETE), c.CheckFramebufferStatus(gl.FRAMEBUFFER))

	params := make([]int32, 1)
	c.GetFramebufferAttachmentParameteriv(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.FRAMEBUFFER_ATTACHMENT_OBJECT_TYPE, params)
	assert.Equal(t, int32(gl.TEXTURE), params[0])
	c.GetFramebufferAttachmentParameteriv(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.FRAMEBUFFER_ATTACHMENT_OBJECT_NAME, params)
	assert.Equal(t, int32(tex), params[0])
	c.GetIntegerv(gl.RED_BITS, params)
	assert.Equal(t, int32(8), params[0])
	noError(t, c)

	c.DeleteTextures([]uint32{tex})
	assert.NotEqual(t, gl.Enum(gl.FRAMEBUFFER_COMPLETE), c.CheckFramebufferStatus(gl.FRAMEBUFFER))
	c.DeleteFramebuffers([]uint32{fb})
	c.GetIntegerv(gl.FRAMEBUFFER_BINDING, params)
	assert.Equal(t, int32(0), params[0])
	noError(t, c)
}

func TestRenderToTexture(t *testing.T) {
	c, dev := newContext(t)
	tex := c.GenTextures(1)[0]
	c.BindTexture(gl.TEXTURE_2D, tex)
	c.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, 64, 64, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	fb := c.GenFramebuffers(1)[0]
	c.BindFramebuffer(gl.FRAMEBUFFER, fb)
	c.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex, 0)
	require.Equal(t, gl.Enum(gl.FRAMEBUFFER_COMPLETE), c.CheckFramebufferStatus(gl.FRAMEBUFFER))

	c.ClearColor(0, 1, 0, 1)
	c.Clear(gl.COLOR_BUFFER_BIT)
	noError(t, c)
	setupTriangle(t, c)
	c.DrawArrays(gl.TRIANGLES, 0, 3)
	noError(t, c)
	assert.Equal(t, 1, dev.Count("BeginRenderPass"))
	assert.Equal(t, 1, dev.Count("Draw 3 0"))
	assert.Equal(t, 1, dev.Created("framebuffer"))

	c.Finish()
	noError(t, c)
	assert.Equal(t, 1, dev.Count("EndRenderPass"))
	assert.Empty(t, dev.Violations)
}

func TestReadPixelsFromTexture(t *testing.T) {
	c, _ := newContext(t)
	const w, h = 4, 2
	pixels := make([]byte, w*h*4)
	for i := 0; i < len(pixels); i += 4 {
		copy(pixels[i:], []byte{10, 20, 30, 255})
	}
	tex := c.GenTextures(1)[0]
	c.BindTexture(gl.TEXTURE_2D, tex)
	c.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, w, h, 0, gl.RGBA, gl.UNSIGNED_BYTE, pixels)
	fb := c.GenFramebuffers(1)[0]
	c.BindFramebuffer(gl.FRAMEBUFFER, fb)
	c.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex, 0)
	noError(t, c)

	got := make([]byte, len(pixels))
	c.ReadPixels(0, 0, w, h, gl.RGBA, gl.UNSIGNED_BYTE, got)
	noError(t, c)
	assert.Equal(t, pixels, got)

	c.ReadPixels(0, 0, w, h, gl.RGBA, gl.UNSIGNED_BYTE, got[:4])
	assert.Equal(t, gl.Enum(gl.INVALID_VALUE), c.GetError())
	c.ReadPixels(0, 0, w, h, gl.RGB, gl.UNSIGNED_BYTE, got)
	assert.Equal(t, gl.Enum(gl.INVALID_OPERATION), c.GetError())
}

func TestDrawWithoutFramebuffer(t *testing.T) {
	c, _ := newContext(t)
	setupTriangle(t, c)
	c.DrawArrays(gl.TRIANGLES, 0, 3)
	assert.Equal(t, gl.Enum(gl.INVALID_FRAMEBUFFER_OPERATION), c.GetError())
}

func TestDrawArrays(t *testing.T) {
	c, dev := newSurfaceContext(t, 16, 16)
	setupTriangle(t, c)
	c.DrawArrays(gl.TRIANGLES, 0, 3)
	noError(t, c)
	assert.Equal(t, 1, dev.Count("BeginRenderPass"))
	assert.Equal(t, 1, dev.Count("BindPipeline"))
	assert.Equal(t, 1, dev.Count("Draw 3 0"))

	// A second draw with unchanged state reuses everything bound.
	c.DrawArrays(gl.TRIANGLES, 0, 3)
	assert.Equal(t, 1, dev.Count("BeginRenderPass"))
	assert.Equal(t, 1, dev.Count("BindPipeline"))
	assert.Equal(t, 2, dev.Count("Draw 3 0"))

	c.DrawArrays(gl.LINE_LOOP, 0, 3)
	noError(t, c)
	assert.Equal(t, 1, dev.Count("DrawIndexed 4 0 0"))

	c.Finish()
	noError(t, c)
	assert.Equal(t, 1, dev.Count("EndRenderPass"))
	assert.Empty(t, dev.Violations)
}

func TestDrawElementsClientIndices(t *testing.T) {
	c, dev := newSurfaceContext(t, 16, 16)
	setupTriangle(t, c)
	c.DrawElements(gl.TRIANGLES, 3, gl.UNSIGNED_SHORT, 0, []byte{0, 0, 1, 0, 2, 0})
	noError(t, c)
	assert.Equal(t, 1, dev.Count("DrawIndexed 3 0 0"))

	c.DrawElements(gl.TRIANGLES, 3, gl.FLOAT, 0, nil)
	assert.Equal(t, gl.Enum(gl.INVALID_ENUM), c.GetError())
}

func TestClearFoldsIntoRenderPass(t *testing.T) {
	c, dev := newSurfaceContext(t, 16, 16)
	setupTriangle(t, c)
	c.ClearColor(1, 0, 0, 1)
	c.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	noError(t, c)
	assert.Equal(t, 0, dev.Count("BeginRenderPass"))
	c.DrawArrays(gl.TRIANGLES, 0, 3)
	assert.Equal(t, 1, dev.Count("BeginRenderPass"))
	assert.Equal(t, 0, dev.Count("ClearAttachments"))

	// Inside the render pass, clears are recorded as commands.
	c.Clear(gl.COLOR_BUFFER_BIT)
	assert.Equal(t, 1, dev.Count("ClearAttachments"))
	noError(t, c)

	c.Clear(0x1)
	assert.Equal(t, gl.Enum(gl.INVALID_VALUE), c.GetError())
}

func TestRedundantStateKeepsPipeline(t *testing.T) {
	c, _ := newSurfaceContext(t, 16, 16)
	setupTriangle(t, c)
	c.DrawArrays(gl.TRIANGLES, 0, 3)
	require.Equal(t, 1, c.pipe.Builds())

	for i := 0; i < 2; i++ {
		c.BlendFunc(gl.ONE, gl.ZERO)
		c.DepthFunc(gl.LESS)
		c.CullFace(gl.BACK)
		c.DrawArrays(gl.TRIANGLES, 0, 3)
	}
	noError(t, c)
	assert.Equal(t, 1, c.pipe.Builds())

	c.Enable(gl.CULL_FACE)
	c.CullFace(gl.FRONT)
	c.DrawArrays(gl.TRIANGLES, 0, 3)
	c.CullFace(gl.FRONT)
	c.DrawArrays(gl.TRIANGLES, 0, 3)
	assert.Equal(t, 2, c.pipe.Builds())

	// Returning to the first state hits the pipeline cache.
	c.Disable(gl.CULL_FACE)
	c.CullFace(gl.BACK)
	c.DrawArrays(gl.TRIANGLES, 0, 3)
	assert.Equal(t, 2, c.pipe.Builds())
	noError(t, c)
}

func TestDeleteBufferInFlight(t *testing.T) {
	c, dev := newSurfaceContext(t, 16, 16)
	_, buf := setupTriangle(t, c)
	c.DrawArrays(gl.TRIANGLES, 0, 3)
	noError(t, c)

	destroyed := dev.Destroyed("buffer")
	c.DeleteBuffers([]uint32{buf})
	assert.False(t, c.IsBuffer(buf))
	assert.Equal(t, destroyed, dev.Destroyed("buffer"))
	c.Flush()
	assert.Equal(t, destroyed, dev.Destroyed("buffer"))
	c.Finish()
	noError(t, c)
	assert.Greater(t, dev.Destroyed("buffer"), destroyed)
	assert.Empty(t, dev.Violations)
}

func TestDeleteCurrentProgram(t *testing.T) {
	c, _ := newSurfaceContext(t, 16, 16)
	p, _ := setupTriangle(t, c)
	c.DeleteProgram(p)
	noError(t, c)

	params := make([]int32, 1)
	c.GetProgramiv(p, gl.DELETE_STATUS, params)
	assert.Equal(t, int32(gl.TRUE), params[0])
	assert.True(t, c.IsProgram(p))

	// The program stays usable until it is replaced.
	c.DrawArrays(gl.TRIANGLES, 0, 3)
	noError(t, c)

	c.UseProgram(0)
	assert.False(t, c.IsProgram(p))
	c.GetIntegerv(gl.CURRENT_PROGRAM, params)
	assert.Equal(t, int32(0), params[0])
	c.Finish()
	noError(t, c)
}

func TestDeleteProgramReleasesPipelines(t *testing.T) {
	c, dev := newSurfaceContext(t, 16, 16)
	p, _ := setupTriangle(t, c)
	c.DrawArrays(gl.TRIANGLES, 0, 3)
	c.Enable(gl.CULL_FACE)
	c.DrawArrays(gl.TRIANGLES, 0, 3)
	noError(t, c)
	require.Equal(t, 2, dev.Created("pipeline"))

	c.UseProgram(0)
	c.DeleteProgram(p)
	c.Finish()
	c.Finish()
	noError(t, c)
	assert.Equal(t, 2, dev.Destroyed("pipeline"))
	assert.Equal(t, dev.Created("shader"), dev.Destroyed("shader"))
	assert.Equal(t, dev.Created("pipelinelayout"), dev.Destroyed("pipelinelayout"))
	assert.Empty(t, dev.Violations)
}

func TestRecoversFromFailedSubmit(t *testing.T) {
	c, dev := newSurfaceContext(t, 16, 16)
	setupTriangle(t, c)
	c.DrawArrays(gl.TRIANGLES, 0, 3)
	noError(t, c)

	dev.FailOn("submit")
	c.Flush()
	assert.Equal(t, gl.Enum(gl.OUT_OF_MEMORY), c.GetError())
	assert.Empty(t, dev.Submitted)

	dev.Fail = nil
	c.DrawArrays(gl.TRIANGLES, 0, 3)
	noError(t, c)
	c.Finish()
	noError(t, c)
	require.Len(t, dev.Submitted, 1)
	cb := dev.Submitted[0].CommandBuffer.(*drivertest.CommandBuffer)
	assert.Equal(t, 1, cb.Count("BindPipeline"))
	assert.Equal(t, 1, cb.Count("Draw 3 0"))
}

func TestUniforms(t *testing.T) {
	c, _ := newContext(t)
	p := buildProgram(t, c, colorVertex, colorFragment)
	c.UseProgram(p)
	color := c.GetUniformLocation(p, "color")
	u := c.GetUniformLocation(p, "u")
	require.GreaterOrEqual(t, color, 0)
	require.GreaterOrEqual(t, u, 0)
	assert.Equal(t, -1, c.GetUniformLocation(p, "missing"))

	c.Uniform4f(color, 0.25, 0.5, 0.75, 1)
	c.Uniform1f(u, 2.5)
	noError(t, c)

	got := make([]float32, 4)
	c.GetUniformfv(p, color, got)
	assert.Equal(t, []float32{0.25, 0.5, 0.75, 1}, got)
	c.GetUniformfv(p, u, got[:1])
	assert.Equal(t, float32(2.5), got[0])
	ints := make([]int32, 1)
	c.GetUniformiv(p, u, ints)
	assert.Equal(t, int32(2), ints[0])

	c.Uniform1i(u, 1)
	assert.Equal(t, gl.Enum(gl.INVALID_OPERATION), c.GetError())
	c.Uniform1fv(u, []float32{1, 2})
	assert.Equal(t, gl.Enum(gl.INVALID_OPERATION), c.GetError())
	c.UniformMatrix2fv(u, true, make([]float32, 4))
	assert.Equal(t, gl.Enum(gl.INVALID_VALUE), c.GetError())

	// Location -1 is silently ignored.
	c.Uniform1f(-1, 3)
	noError(t, c)

	c.UseProgram(0)
	c.Uniform1f(u, 3)
	assert.Equal(t, gl.Enum(gl.INVALID_OPERATION), c.GetError())
}

func TestRelinkKeepsOldExecutableOnFailure(t *testing.T) {
	c, _ := newContext(t)
	p := buildProgram(t, c, colorVertex, colorFragment)
	c.UseProgram(p)
	u := c.GetUniformLocation(p, "u")
	require.GreaterOrEqual(t, u, 0)

	params := make([]int32, 1)
	broken := c.CreateShader(gl.VERTEX_SHADER)
	c.ShaderSource(broken, "void notmain() {}")
	c.CompileShader(broken)
	c.GetShaderiv(broken, gl.COMPILE_STATUS, params)
	assert.Equal(t, int32(gl.FALSE), params[0])
	c.GetShaderiv(broken, gl.INFO_LOG_LENGTH, params)
	assert.Greater(t, params[0], int32(0))

	// The varying v is a vec4 in the fragment shader.
	mismatch := c.CreateShader(gl.VERTEX_SHADER)
	c.ShaderSource(mismatch, `
attribute vec4 pos;
varying vec3 v;

void main() {
	v = pos.xyz;
	gl_Position = pos;
}
`)
	c.CompileShader(mismatch)
	c.GetShaderiv(mismatch, gl.COMPILE_STATUS, params)
	require.Equal(t, int32(gl.TRUE), params[0], c.GetShaderInfoLog(mismatch))

	for _, s := range c.GetAttachedShaders(p) {
		c.GetShaderiv(s, gl.SHADER_TYPE, params)
		if params[0] == gl.VERTEX_SHADER {
			c.DetachShader(p, s)
		}
	}
	c.AttachShader(p, mismatch)
	c.LinkProgram(p)
	noError(t, c)
	c.GetProgramiv(p, gl.LINK_STATUS, params)
	assert.Equal(t, int32(gl.FALSE), params[0])
	assert.NotEmpty(t, c.GetProgramInfoLog(p))

	// Uniforms of the executable in use remain loadable.
	c.Uniform1f(u, 1)
	noError(t, c)
}

func TestQueries(t *testing.T) {
	c, _ := newSurfaceContext(t, 32, 16)
	ints := make([]int32, 4)
	c.GetIntegerv(gl.VIEWPORT, ints)
	assert.Equal(t, []int32{0, 0, 32, 16}, ints)
	c.GetIntegerv(gl.SCISSOR_BOX, ints)
	assert.Equal(t, []int32{0, 0, 32, 16}, ints)

	c.GetIntegerv(gl.MAX_VERTEX_ATTRIBS, ints)
	assert.Equal(t, int32(16), ints[0])
	c.GetIntegerv(gl.NUM_COMPRESSED_TEXTURE_FORMATS, ints)
	assert.Equal(t, int32(0), ints[0])
	c.GetIntegerv(gl.NUM_PROGRAM_BINARY_FORMATS_OES, ints)
	assert.Equal(t, int32(1), ints[0])
	c.GetIntegerv(gl.PROGRAM_BINARY_FORMATS_OES, ints)
	assert.Equal(t, int32(BinaryFormat()), ints[0])
	c.GetIntegerv(gl.DEPTH_BITS, ints)
	assert.Equal(t, int32(16), ints[0])

	c.ClearColor(1, 0, 0.5, 0)
	c.GetIntegerv(gl.COLOR_CLEAR_VALUE, ints)
	assert.Equal(t, int32(math.MaxInt32), ints[0])
	assert.Equal(t, int32(0), ints[1])
	floats := make([]float32, 4)
	c.GetFloatv(gl.COLOR_CLEAR_VALUE, floats)
	assert.Equal(t, []float32{1, 0, 0.5, 0}, floats)

	bools := make([]bool, 4)
	c.ColorMask(true, false, true, false)
	c.GetBooleanv(gl.COLOR_WRITEMASK, bools)
	assert.Equal(t, []bool{true, false, true, false}, bools)

	c.Enable(gl.BLEND)
	c.GetBooleanv(gl.BLEND, bools)
	assert.True(t, bools[0])
	assert.True(t, c.IsEnabled(gl.BLEND))

	c.LineWidth(2.6)
	c.GetIntegerv(gl.LINE_WIDTH, ints)
	assert.Equal(t, int32(3), ints[0])

	c.ActiveTexture(gl.TEXTURE0 + 3)
	c.GetIntegerv(gl.ACTIVE_TEXTURE, ints)
	assert.Equal(t, int32(gl.TEXTURE0+3), ints[0])
	noError(t, c)
}

func TestStrings(t *testing.T) {
	c, _ := newContext(t)
	assert.Equal(t, "glove.dev", c.GetString(gl.VENDOR))
	assert.Equal(t, "OpenGL ES 2.0 GLOVE", c.GetString(gl.VERSION))
	assert.Equal(t, "OpenGL ES GLSL ES 1.00", c.GetString(gl.SHADING_LANGUAGE_VERSION))
	assert.Contains(t, c.GetString(gl.EXTENSIONS), "GL_OES_get_program_binary")
	noError(t, c)

	lo, hi, prec := c.GetShaderPrecisionFormat(gl.FRAGMENT_SHADER, gl.MEDIUM_FLOAT)
	assert.Equal(t, [3]int32{127, 127, 23}, [3]int32{lo, hi, prec})
	lo, hi, prec = c.GetShaderPrecisionFormat(gl.VERTEX_SHADER, gl.LOW_INT)
	assert.Equal(t, [3]int32{31, 30, 0}, [3]int32{lo, hi, prec})
	c.GetShaderPrecisionFormat(gl.PROGRAM_BINARY_LENGTH_OES, gl.LOW_INT)
	assert.Equal(t, gl.Enum(gl.INVALID_ENUM), c.GetError())
}
