// SPDX-License-Identifier: Unlicense OR MIT

package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glove.dev/internal/gl"
)

func clean() *State {
	s := New(8, 4)
	s.Clean(DirtyAll)
	return s
}

func TestDefaults(t *testing.T) {
	s := New(8, 4)
	assert.Equal(t, DirtyAll, s.Dirty())
	assert.Equal(t, 4, s.Input.PackAlignment)
	assert.Equal(t, 4, s.Input.UnpackAlignment)
	assert.True(t, s.Fragment.Dither)
	assert.Equal(t, gl.Enum(gl.BACK), s.Rasterization.CullMode)
	assert.Equal(t, gl.Enum(gl.CCW), s.Rasterization.FrontFace)
	assert.Equal(t, float32(1), s.Viewport.Far)
	assert.Equal(t, [4]bool{true, true, true, true}, s.Color.Mask)
	assert.Equal(t, gl.Enum(gl.LESS), s.Depth.Func)
	assert.True(t, s.Depth.Mask)
	assert.Equal(t, s.Stencil.Front, s.Stencil.Back)
	assert.Equal(t, ^uint32(0), s.Stencil.Front.WriteMask)
	assert.Equal(t, gl.Enum(gl.ALWAYS), s.Stencil.Front.Func)
	assert.Equal(t, gl.Enum(gl.ONE), s.Blend.SrcRGB)
	assert.Equal(t, gl.Enum(gl.ZERO), s.Blend.DstAlpha)
	assert.Equal(t, float32(1), s.Multisample.CoverageValue)
	assert.Equal(t, float32(1), s.Clear.Depth)
	require.Len(t, s.Attribs, 8)
	require.Len(t, s.Textures.Units, 4)
	for _, a := range s.Attribs {
		assert.False(t, a.Enabled)
		assert.Equal(t, 4, a.Size)
		assert.Equal(t, [4]float32{0, 0, 0, 1}, a.Generic)
	}
	for _, c := range []gl.Enum{gl.CULL_FACE, gl.BLEND, gl.DEPTH_TEST, gl.STENCIL_TEST, gl.SCISSOR_TEST} {
		on, known := s.Enabled(c)
		assert.True(t, known)
		assert.False(t, on, c.String())
	}
}

func TestDirtyBits(t *testing.T) {
	tests := []struct {
		name  string
		set   func(s *State) bool
		dirty Dirty
	}{
		{"cull face", func(s *State) bool { return s.SetCullFace(gl.FRONT) }, DirtyPipeline},
		{"front face", func(s *State) bool { return s.SetFrontFace(gl.CW) }, DirtyPipeline},
		{"line width", func(s *State) bool { return s.SetLineWidth(2) }, DirtyPipeline},
		{"polygon offset", func(s *State) bool { return s.SetPolygonOffset(1, 2) }, DirtyPipeline},
		{"color mask", func(s *State) bool { return s.SetColorMask(true, false, true, true) }, DirtyPipeline},
		{"depth func", func(s *State) bool { return s.SetDepthFunc(gl.GEQUAL) }, DirtyPipeline},
		{"depth mask", func(s *State) bool { return s.SetDepthMask(false) }, DirtyPipeline},
		{"blend func", func(s *State) bool {
			return s.SetBlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, gl.ONE, gl.ONE)
		}, DirtyPipeline},
		{"blend equation", func(s *State) bool { return s.SetBlendEquation(gl.FUNC_SUBTRACT, gl.FUNC_ADD) }, DirtyPipeline},
		{"blend color", func(s *State) bool { return s.SetBlendColor([4]float32{1, 0, 0, 1}) }, DirtyPipeline},
		{"sample coverage", func(s *State) bool { return s.SetSampleCoverage(0.5, true) }, DirtyPipeline},
		{"viewport", func(s *State) bool { return s.SetViewport(Box{Width: 10, Height: 10}) }, DirtyViewport},
		{"depth range", func(s *State) bool { return s.SetDepthRange(0.25, 0.75) }, DirtyViewport},
		{"scissor", func(s *State) bool { return s.SetScissor(Box{X: 1, Width: 2, Height: 2}) }, DirtyViewport},
		{"scissor test", func(s *State) bool { changed, _ := s.Enable(gl.SCISSOR_TEST, true); return changed }, DirtyViewport},
		{"blend enable", func(s *State) bool { changed, _ := s.Enable(gl.BLEND, true); return changed }, DirtyPipeline},
		{"bind texture", func(s *State) bool { return s.BindTexture(gl.TEXTURE_2D, 3) }, DirtyDescriptors},
		{"use program", func(s *State) bool { return s.UseProgram(1) }, DirtyPipeline | DirtyVertexAttribs | DirtyDescriptors},
		{"bind framebuffer", func(s *State) bool { return s.BindFramebuffer(2) }, DirtyPipeline | DirtyViewport},
		{"enable attrib", func(s *State) bool { return s.EnableAttrib(1, true) }, DirtyVertexAttribs},
		{"generic of disabled", func(s *State) bool { return s.SetGeneric(0, [4]float32{1, 2, 3, 4}) }, DirtyVertexAttribs},
		{"bind buffer", func(s *State) bool { return s.BindBuffer(gl.ARRAY_BUFFER, 5) }, 0},
		{"active texture", func(s *State) bool { return s.SetActiveTexture(2) }, 0},
		{"bind renderbuffer", func(s *State) bool { return s.BindRenderbuffer(4) }, 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := clean()
			assert.True(t, test.set(s))
			assert.Equal(t, test.dirty, s.Dirty())

			// Setting the same value again is a no-op.
			s.Clean(DirtyAll)
			assert.False(t, test.set(s))
			assert.Zero(t, s.Dirty())
		})
	}
}

func TestEnable(t *testing.T) {
	s := clean()
	changed, known := s.Enable(gl.TEXTURE_2D, true)
	assert.False(t, changed)
	assert.False(t, known)
	_, known = s.Enabled(gl.TEXTURE_2D)
	assert.False(t, known)
	assert.Zero(t, s.Dirty())

	changed, known = s.Enable(gl.DITHER, false)
	assert.True(t, changed)
	assert.True(t, known)
	assert.Zero(t, s.Dirty())
	on, known := s.Enabled(gl.DITHER)
	assert.True(t, known)
	assert.False(t, on)

	changed, known = s.Enable(gl.CULL_FACE, false)
	assert.False(t, changed, "culling is disabled initially")
	assert.True(t, known)
	assert.Zero(t, s.Dirty())
}

func TestStencilFaces(t *testing.T) {
	s := clean()
	assert.True(t, s.SetStencilFunc(gl.FRONT, gl.EQUAL, 1, 0xff))
	assert.Equal(t, gl.Enum(gl.EQUAL), s.Stencil.Front.Func)
	assert.Equal(t, 1, s.Stencil.Front.Ref)
	assert.Equal(t, gl.Enum(gl.ALWAYS), s.Stencil.Back.Func)

	assert.True(t, s.SetStencilOp(gl.BACK, gl.ZERO, gl.INCR, gl.DECR_WRAP))
	assert.Equal(t, gl.Enum(gl.KEEP), s.Stencil.Front.Fail)
	assert.Equal(t, gl.Enum(gl.DECR_WRAP), s.Stencil.Back.DepthPass)

	assert.True(t, s.SetStencilMask(gl.FRONT_AND_BACK, 0x0f))
	assert.Equal(t, uint32(0x0f), s.Stencil.Front.WriteMask)
	assert.Equal(t, uint32(0x0f), s.Stencil.Back.WriteMask)
	assert.Equal(t, DirtyPipeline, s.Dirty())

	s.Clean(DirtyAll)
	// Only the back face changes.
	assert.True(t, s.SetStencilFunc(gl.FRONT_AND_BACK, gl.EQUAL, 1, 0xff))
	assert.Equal(t, s.Stencil.Front.Func, s.Stencil.Back.Func)
	s.Clean(DirtyAll)
	assert.False(t, s.SetStencilMask(gl.FRONT_AND_BACK, 0x0f))
	assert.Zero(t, s.Dirty())
}

func TestClamping(t *testing.T) {
	s := clean()
	s.SetDepthRange(-1, 2)
	assert.Equal(t, float32(0), s.Viewport.Near)
	assert.Equal(t, float32(1), s.Viewport.Far)

	s.SetBlendColor([4]float32{-0.5, 0.5, 1.5, 1})
	assert.Equal(t, [4]float32{0, 0.5, 1, 1}, s.Blend.Color)

	s.SetSampleCoverage(3, false)
	assert.Equal(t, float32(1), s.Multisample.CoverageValue)

	s.Clean(DirtyAll)
	s.SetClearColor([4]float32{2, -1, 0.25, 1})
	assert.Equal(t, [4]float32{1, 0, 0.25, 1}, s.Clear.Color)
	s.SetClearDepth(-3)
	assert.Equal(t, float32(0), s.Clear.Depth)
	s.SetClearStencil(7)
	assert.Equal(t, 7, s.Clear.Stencil)
	assert.Zero(t, s.Dirty())
}

func TestHintsAndPixelStore(t *testing.T) {
	s := clean()
	assert.True(t, s.SetHint(gl.GENERATE_MIPMAP_HINT, gl.NICEST))
	assert.Equal(t, gl.Enum(gl.NICEST), s.Hints.GenerateMipmap)
	assert.False(t, s.SetHint(gl.DEPTH_TEST, gl.NICEST))

	assert.True(t, s.SetPixelStore(gl.UNPACK_ALIGNMENT, 1))
	assert.Equal(t, 1, s.Input.UnpackAlignment)
	assert.Equal(t, 4, s.Input.PackAlignment)
	assert.False(t, s.SetPixelStore(gl.TEXTURE_2D, 1))
}

func TestAttribPointer(t *testing.T) {
	s := clean()
	client := []byte{1, 2, 3, 4}
	s.AttribPointer(0, 2, gl.SHORT, false, 0, 0, client)
	a := s.Attribs[0]
	assert.Zero(t, a.Buffer)
	assert.Equal(t, client, a.Client)
	assert.Equal(t, 4, a.EffectiveStride())
	assert.True(t, s.Has(DirtyVertexAttribs))

	s.Clean(DirtyAll)
	s.BindBuffer(gl.ARRAY_BUFFER, 7)
	s.AttribPointer(0, 3, gl.FLOAT, false, 20, 8, client)
	a = s.Attribs[0]
	assert.Equal(t, uint32(7), a.Buffer)
	assert.Nil(t, a.Client)
	assert.Equal(t, 8, a.Offset)
	assert.Equal(t, 20, a.EffectiveStride())
	assert.True(t, s.Has(DirtyVertexAttribs))

	// Rebinding the array buffer leaves the captured binding alone.
	s.BindBuffer(gl.ARRAY_BUFFER, 9)
	assert.Equal(t, uint32(7), s.Attribs[0].Buffer)
}

func TestGenericOfEnabledArray(t *testing.T) {
	s := clean()
	s.EnableAttrib(2, true)
	s.Clean(DirtyAll)
	assert.True(t, s.SetGeneric(2, [4]float32{1, 1, 1, 1}))
	assert.Zero(t, s.Dirty())
	assert.Equal(t, [4]float32{1, 1, 1, 1}, s.Attribs[2].Generic)
}

func TestForgetBuffer(t *testing.T) {
	s := clean()
	s.BindBuffer(gl.ARRAY_BUFFER, 3)
	s.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 3)
	s.AttribPointer(1, 4, gl.FLOAT, false, 0, 0, nil)
	s.Clean(DirtyAll)

	s.ForgetBuffer(4)
	assert.Zero(t, s.Dirty())
	assert.Equal(t, uint32(3), s.Buffer(gl.ARRAY_BUFFER))

	s.ForgetBuffer(3)
	assert.Zero(t, s.Buffer(gl.ARRAY_BUFFER))
	assert.Zero(t, s.Buffer(gl.ELEMENT_ARRAY_BUFFER))
	assert.Zero(t, s.Attribs[1].Buffer)
	assert.Equal(t, DirtyVertexAttribs, s.Dirty())

	s.Clean(DirtyAll)
	s.ForgetBuffer(0)
	assert.Zero(t, s.Dirty())
}

func TestForgetTexture(t *testing.T) {
	s := clean()
	s.SetActiveTexture(1)
	s.BindTexture(gl.TEXTURE_2D, 5)
	s.BindTexture(gl.TEXTURE_CUBE_MAP, 6)
	assert.Equal(t, uint32(5), s.Texture(1, gl.TEXTURE_2D))
	assert.Equal(t, uint32(6), s.Texture(1, gl.TEXTURE_CUBE_MAP))
	assert.Zero(t, s.Texture(0, gl.TEXTURE_2D))
	assert.Zero(t, s.Texture(9, gl.TEXTURE_2D))
	s.Clean(DirtyAll)

	s.ForgetTexture(6)
	assert.Equal(t, uint32(5), s.Texture(1, gl.TEXTURE_2D))
	assert.Zero(t, s.Texture(1, gl.TEXTURE_CUBE_MAP))
	assert.Equal(t, DirtyDescriptors, s.Dirty())
}

func TestMarkDirty(t *testing.T) {
	s := clean()
	s.MarkDirty(DirtyPipeline | DirtyDescriptors)
	assert.True(t, s.Has(DirtyPipeline))
	assert.False(t, s.Has(DirtyViewport))
	s.Clean(DirtyPipeline)
	assert.Equal(t, DirtyDescriptors, s.Dirty())
}
