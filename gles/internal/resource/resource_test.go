// SPDX-License-Identifier: Unlicense OR MIT

package resource

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glove.dev/gles/internal/compiler"
	"glove.dev/gles/internal/shaderres"
	"glove.dev/internal/driver"
	"glove.dev/internal/driver/drivertest"
	"glove.dev/internal/gl"
)

// tracker completes work only when Finish is called.
type tracker struct {
	serial    uint64
	completed uint64
	finishes  int
}

func (t *tracker) Release(r driver.Resource) { r.Release() }
func (t *tracker) Serial() uint64            { return t.serial + 1 }
func (t *tracker) Completed() uint64         { return t.completed }

func (t *tracker) Finish() error {
	t.finishes++
	t.submit()
	t.completed = t.serial
	return nil
}

func (t *tracker) submit() {
	t.serial++
}

type spirvStub struct{}

func (spirvStub) Generate(driver.ShaderStage, string) ([]byte, error) {
	return []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0}, nil
}

var testLimits = Limits{
	MaxTextureSize:        4096,
	MaxCubeMapTextureSize: 4096,
	MaxRenderbufferSize:   4096,
	Program: shaderres.Limits{
		MaxVertexAttribs:             16,
		MaxVertexUniformVectors:      128,
		MaxFragmentUniformVectors:    64,
		MaxCombinedTextureImageUnits: 16,
	},
}

func newManager(t *testing.T) (*Manager, *drivertest.Device, *tracker) {
	t.Helper()
	dev := drivertest.NewDevice()
	tr := new(tracker)
	m := NewManager(dev, tr, Options{
		Limits:   testLimits,
		Compiler: compiler.New(spirvStub{}, nil, 15),
	})
	return m, dev, tr
}

func floats(v ...float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		shaderres.NativeOrder.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

func TestShadingNamespace(t *testing.T) {
	m, _, _ := newManager(t)
	sh := m.CreateShader(gl.VERTEX_SHADER)
	prog := m.CreateProgram()
	assert.Greater(t, prog, sh)

	k, ok := m.ShadingKind(sh)
	require.True(t, ok)
	assert.Equal(t, KindShader, k)

	_, err := m.Program(sh)
	assert.ErrorIs(t, err, ErrInvalidOperation)
	_, err = m.Shader(prog)
	assert.ErrorIs(t, err, ErrInvalidOperation)
	_, err = m.Shader(prog + 100)
	assert.ErrorIs(t, err, ErrInvalidValue)

	s, err := m.Shader(sh)
	require.NoError(t, err)
	assert.Equal(t, gl.Enum(gl.VERTEX_SHADER), s.Type)
	assert.Equal(t, driver.StageVertex, s.Stage())
}

func TestRenderPassCache(t *testing.T) {
	m, dev, _ := newManager(t)
	desc := driver.RenderPassDesc{Color: driver.AttachmentDesc{Format: driver.FormatRGBA8}}
	a, err := m.RenderPass(desc)
	require.NoError(t, err)
	b, err := m.RenderPass(desc)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, dev.Created("renderpass"))

	m.Destroy()
	assert.Equal(t, 1, dev.Destroyed("renderpass"))
}

func TestBufferData(t *testing.T) {
	m, dev, _ := newManager(t)
	b := m.Buffers.Object(m.Buffers.Allocate())
	data := floats(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)

	require.NoError(t, m.BufferData(b, gl.STATIC_DRAW, len(data), data))
	assert.Equal(t, 48, b.Size())
	assert.Equal(t, gl.Enum(gl.STATIC_DRAW), b.Usage)
	assert.Equal(t, data, b.Driver().(*drivertest.Buffer).Data)

	assert.ErrorIs(t, m.BufferData(b, gl.STATIC_DRAW, -1, nil), ErrInvalidValue)
	assert.ErrorIs(t, m.BufferData(b, gl.STATIC_DRAW, 64, data), ErrInvalidValue)

	require.NoError(t, m.BufferData(b, gl.DYNAMIC_DRAW, 0, nil))
	assert.Nil(t, b.Driver())
	assert.Equal(t, 1, dev.Destroyed("buffer"))
}

func TestBufferDataOutOfMemory(t *testing.T) {
	m, dev, _ := newManager(t)
	b := m.Buffers.Object(m.Buffers.Allocate())
	require.NoError(t, m.BufferData(b, gl.STATIC_DRAW, 8, nil))
	old := b.Driver()

	dev.FailOn("buffer")
	err := m.BufferData(b, gl.STREAM_DRAW, 16, nil)
	assert.ErrorIs(t, err, driver.ErrOutOfMemory)
	assert.Same(t, old, b.Driver())
	assert.Equal(t, 8, b.Size())
	assert.Equal(t, gl.Enum(gl.STATIC_DRAW), b.Usage)
}

func TestBufferSubDataCopyOnWrite(t *testing.T) {
	m, dev, tr := newManager(t)
	b := m.Buffers.Object(m.Buffers.Allocate())
	require.NoError(t, m.BufferData(b, gl.STATIC_DRAW, 8, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	first := b.Driver()

	require.NoError(t, m.BufferSubData(b, 2, []byte{9, 9}))
	assert.Same(t, first, b.Driver())
	assert.Equal(t, []byte{1, 2, 9, 9, 5, 6, 7, 8}, first.(*drivertest.Buffer).Data)

	b.MarkUsed(tr)
	tr.submit()
	require.NoError(t, m.BufferSubData(b, 0, []byte{0}))
	second := b.Driver()
	assert.NotSame(t, first, second)
	assert.Equal(t, 1, dev.Destroyed("buffer"))
	assert.Equal(t, []byte{0, 2, 9, 9, 5, 6, 7, 8}, second.(*drivertest.Buffer).Data)

	b.MarkUsed(tr)
	require.NoError(t, tr.Finish())
	require.NoError(t, m.BufferSubData(b, 7, []byte{7}))
	assert.Same(t, second, b.Driver())

	assert.ErrorIs(t, m.BufferSubData(b, 6, []byte{1, 2, 3}), ErrInvalidValue)
	assert.ErrorIs(t, m.BufferSubData(b, -1, nil), ErrInvalidValue)
}

func TestDeleteBuffer(t *testing.T) {
	m, dev, _ := newManager(t)
	h := m.Buffers.Allocate()
	require.NoError(t, m.BufferData(m.Buffers.Object(h), gl.STATIC_DRAW, 4, nil))
	m.DeleteBuffer(h)
	assert.False(t, m.Buffers.Allocated(h))
	assert.Equal(t, 1, dev.Destroyed("buffer"))
	assert.Zero(t, dev.Live())
}

func TestRenderbufferStorage(t *testing.T) {
	m, dev, _ := newManager(t)
	r := m.Renderbuffers.Object(m.Renderbuffers.Allocate())
	assert.Equal(t, gl.Enum(gl.RGBA4), r.Format)

	require.NoError(t, m.RenderbufferStorage(r, gl.DEPTH24_STENCIL8_OES, 32, 16))
	desc := r.Image().Desc()
	assert.Equal(t, driver.FormatD24S8, desc.Format)
	assert.Equal(t, driver.ImageUsageDepthStencilAttachment, desc.Usage)
	assert.Equal(t, 32, r.Width)

	bits, ok := FormatBits(r.Format)
	require.True(t, ok)
	assert.Equal(t, Bits{Depth: 24, Stencil: 8}, bits)

	assert.ErrorIs(t, m.RenderbufferStorage(r, gl.RGBA, 1, 1), ErrInvalidEnum)
	assert.ErrorIs(t, m.RenderbufferStorage(r, gl.RGB565, 8192, 1), ErrInvalidValue)
	assert.Equal(t, gl.Enum(gl.DEPTH24_STENCIL8_OES), r.Format)

	require.NoError(t, m.RenderbufferStorage(r, gl.RGB565, 4, 4))
	assert.Equal(t, driver.FormatR5G6B5, r.Image().Desc().Format)
	assert.Equal(t, 1, dev.Destroyed("image"))
}
