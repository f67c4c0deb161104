// SPDX-License-Identifier: Unlicense OR MIT

package pipeline

import (
	"image"
	"math"
	"testing"

	"gioui.org/shader/gio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glove.dev/gles/internal/shaderres"
	"glove.dev/internal/driver"
	"glove.dev/internal/driver/drivertest"
)

func TestClearLoadOps(t *testing.T) {
	full := Clear{
		Color: true, Depth: true, Stencil: true,
		ColorMask:   allColors,
		StencilMask: 0xff,
		Rect:        image.Rect(0, 0, 4, 4),
		Full:        true,
	}
	tests := []struct {
		name                  string
		clear                 func(c *Clear)
		color, depth, stencil driver.LoadOp
		rest                  [3]bool
	}{
		{"full", func(c *Clear) {}, driver.LoadOpClear, driver.LoadOpClear, driver.LoadOpClear, [3]bool{}},
		{"scissored", func(c *Clear) { c.Full = false }, driver.LoadOpLoad, driver.LoadOpLoad, driver.LoadOpLoad, [3]bool{true, true, true}},
		{"color masked", func(c *Clear) { c.ColorMask[3] = false }, driver.LoadOpLoad, driver.LoadOpClear, driver.LoadOpClear, [3]bool{true, false, false}},
		{"stencil masked", func(c *Clear) { c.StencilMask = 0x0f }, driver.LoadOpClear, driver.LoadOpClear, driver.LoadOpLoad, [3]bool{false, false, true}},
		{"depth only", func(c *Clear) { c.Color, c.Stencil = false, false }, driver.LoadOpLoad, driver.LoadOpClear, driver.LoadOpLoad, [3]bool{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := full
			test.clear(&c)
			color, depth, stencil, rest := c.LoadOps()
			assert.Equal(t, test.color, color)
			assert.Equal(t, test.depth, depth)
			assert.Equal(t, test.stencil, stencil)
			assert.Equal(t, test.rest, [3]bool{rest.Color, rest.Depth, rest.Stencil})
			assert.Equal(t, !test.rest[0] && !test.rest[1] && !test.rest[2], rest.Empty())
		})
	}
}

func newClearEnv(t *testing.T) (*ClearPass, *drivertest.Device, *drivertest.CommandBuffer, driver.RenderPass) {
	t.Helper()
	dev := drivertest.NewDevice()
	cp := NewClearPass(dev, new(tracker), nil)
	rp := newRenderPass(t, dev, driver.FormatRGBA8, driver.FormatD24S8)
	cb, err := dev.NewCommandBuffer()
	require.NoError(t, err)
	require.NoError(t, cb.Begin())
	return cp, dev, cb.(*drivertest.CommandBuffer), rp
}

func TestClearAttachments(t *testing.T) {
	cp, dev, cb, rp := newClearEnv(t)
	rebound, err := cp.Record(cb, rp, image.Pt(8, 8), Clear{
		Color:       true,
		Depth:       true,
		Values:      driver.ClearValues{Color: [4]float32{1, 0, 0, 1}, Depth: 1},
		ColorMask:   allColors,
		StencilMask: 0xff,
		Rect:        image.Rect(2, 2, 6, 6),
	})
	require.NoError(t, err)
	assert.False(t, rebound)
	assert.Equal(t, []string{
		"ClearAttachments 1 [1 0 0 1] (2,2)-(6,6)",
		"ClearAttachments 2 [1 0 0 1] (2,2)-(6,6)",
	}, cb.Commands)
	assert.Zero(t, dev.Created("pipeline"))

	// An empty area clears nothing.
	_, err = cp.Record(cb, rp, image.Pt(8, 8), Clear{Color: true, ColorMask: allColors})
	require.NoError(t, err)
	assert.Len(t, cb.Commands, 2)
}

func TestMaskedClear(t *testing.T) {
	cp, dev, cb, rp := newClearEnv(t)
	c := Clear{
		Color:       true,
		Stencil:     true,
		Values:      driver.ClearValues{Color: [4]float32{0, 1, 0, 1}, Stencil: 0x1ff},
		ColorMask:   [4]bool{true, true, true, false},
		StencilMask: 0x03,
		Rect:        image.Rect(0, 0, 8, 8),
		Full:        true,
	}
	rebound, err := cp.Record(cb, rp, image.Pt(8, 8), c)
	require.NoError(t, err)
	assert.True(t, rebound)
	assert.Zero(t, cb.Count("ClearAttachments"))
	assert.Equal(t, 1, cb.Count("BindPipeline"))
	assert.Equal(t, 1, cb.Count("PushConstants 0 128"))
	assert.Equal(t, 1, cb.Count("Draw 4 0"))
	assert.Equal(t, 1, cb.Count("SetScissor (0,0)-(8,8)"))

	require.Equal(t, 1, dev.Created("pipeline"))
	var pl *drivertest.Pipeline
	for _, r := range cb.Refs {
		if p, ok := r.(*drivertest.Pipeline); ok {
			pl = p
		}
	}
	require.NotNil(t, pl)
	assert.Equal(t, driver.ColorMaskR|driver.ColorMaskG|driver.ColorMaskB, pl.Desc.Blend.WriteMask)
	assert.True(t, pl.Desc.DepthStencil.StencilTest)
	assert.Equal(t, uint32(0x03), pl.Desc.DepthStencil.Front.WriteMask)
	assert.Equal(t, uint32(0xff), pl.Desc.DepthStencil.Front.Reference)
	assert.Equal(t, driver.StencilReplace, pl.Desc.DepthStencil.Back.Pass)

	// The quad pipeline and its shared objects are reused.
	_, err = cp.Record(cb, rp, image.Pt(8, 8), c)
	require.NoError(t, err)
	assert.Equal(t, 1, dev.Created("pipeline"))
	assert.Equal(t, 2, dev.Created("shader"))
	assert.Equal(t, 1, dev.Created("buffer"))

	// Only the masked part goes through the quad.
	c.ColorMask = allColors
	_, err = cp.Record(cb, rp, image.Pt(8, 8), c)
	require.NoError(t, err)
	assert.Equal(t, 1, cb.Count("ClearAttachments 1 "))
	assert.Equal(t, 2, dev.Created("pipeline"))

	cp.Release()
	assert.Empty(t, cp.pipelines)
	assert.Nil(t, cp.quad)
}

func TestMaskedClearFailure(t *testing.T) {
	cp, dev, cb, rp := newClearEnv(t)
	dev.FailOn("pipeline")
	_, err := cp.Record(cb, rp, image.Pt(8, 8), Clear{
		Color:     true,
		ColorMask: [4]bool{true},
		Rect:      image.Rect(0, 0, 8, 8),
	})
	assert.ErrorIs(t, err, driver.ErrOutOfMemory)
	assert.Zero(t, cb.Count("Draw"))
}

func TestMaskedClearPushConstants(t *testing.T) {
	vert := gio.Shader_blit_vert.Uniforms
	require.Equal(t, pushVertexSize, vert.Size)
	for _, l := range vert.Locations {
		require.Less(t, l.Offset, pushVertexSize, l.Name)
	}
	frag := gio.Shader_blit_frag[0].Uniforms
	require.Len(t, frag.Locations, 1)
	require.Equal(t, "_color.color", frag.Locations[0].Name)
	require.Equal(t, pushColorOffset, frag.Locations[0].Offset)
	require.Equal(t, pushSize, frag.Locations[0].Offset+4*frag.Locations[0].Size)

	cp, _, cb, rp := newClearEnv(t)
	c := Clear{
		Color:     true,
		Values:    driver.ClearValues{Color: [4]float32{0.25, 0.5, 0.75, 1}},
		ColorMask: [4]bool{true, false, true, true},
		Rect:      image.Rect(2, 2, 6, 6),
	}
	_, err := cp.Record(cb, rp, image.Pt(8, 8), c)
	require.NoError(t, err)
	require.Len(t, cb.Pushed, pushSize)
	floats := make([]float32, pushSize/4)
	for i := range floats {
		floats[i] = math.Float32frombits(shaderres.NativeOrder.Uint32(cb.Pushed[i*4:]))
	}
	// An identity transform covers the viewport with the quad; the scissor
	// limits it to the cleared rectangle.
	assert.Equal(t, []float32{1, 1, 0, 0}, floats[0:4], "transform")
	assert.Equal(t, []float32{1, 0, 0, 0}, floats[4:8], "uvTransformR1")
	assert.Equal(t, []float32{0, 1, 0, 0}, floats[8:12], "uvTransformR2")
	assert.Equal(t, []float32{0.25, 0.5, 0.75, 1}, floats[pushColorOffset/4:], "color")
	assert.Equal(t, 1, cb.Count("SetScissor (2,2)-(6,6)"))
}
