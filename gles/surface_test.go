// SPDX-License-Identifier: Unlicense OR MIT

package gles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

func TestSurfaceImages(t *testing.T) {
	c, dev := newContext(t)
	var images []driver.Image
	for i := 0; i < 2; i++ {
		img, err := dev.NewImage(driver.ImageDesc{
			Format: driver.FormatBGRA8,
			Width:  8,
			Height: 4,
			Levels: 1,
			Layers: 1,
			Usage:  driver.ImageUsageColorAttachment,
		})
		require.NoError(t, err)
		images = append(images, img)
	}
	acquire, err := dev.NewSemaphore()
	require.NoError(t, err)
	s := &Surface{Images: images, Width: 8, Height: 4, StencilFormat: gl.STENCIL_INDEX8, Acquire: acquire}
	require.NoError(t, c.SetWriteSurface(s))
	require.NoError(t, c.SetReadSurface(s))
	assert.Equal(t, gl.Enum(gl.FRAMEBUFFER_COMPLETE), c.CheckFramebufferStatus(gl.FRAMEBUFFER))
	params := make([]int32, 1)
	c.GetIntegerv(gl.STENCIL_BITS, params)
	assert.Equal(t, int32(8), params[0])

	_, ok := c.PresentSemaphore()
	assert.False(t, ok)

	c.ClearColor(0, 1, 0, 1)
	c.Clear(gl.COLOR_BUFFER_BIT)
	c.Flush()
	noError(t, c)
	sem, ok := c.PresentSemaphore()
	assert.True(t, ok)
	assert.NotNil(t, sem)
	require.NotEmpty(t, dev.Submitted)
	assert.Contains(t, dev.Submitted[0].Wait, acquire)

	require.NoError(t, c.SetNextImageIndex(1))
	assert.Error(t, c.SetNextImageIndex(2))
	c.Clear(gl.COLOR_BUFFER_BIT)
	c.Finish()
	noError(t, c)
	assert.Equal(t, 2, dev.Count("BeginRenderPass"))
	assert.Empty(t, dev.Violations)
}

func TestSurfaceWithoutImages(t *testing.T) {
	c, _ := newContext(t)
	assert.Error(t, c.SetWriteSurface(&Surface{}))
	assert.Equal(t, gl.Enum(gl.FRAMEBUFFER_UNSUPPORTED), c.CheckFramebufferStatus(gl.FRAMEBUFFER))
	c.Clear(gl.COLOR_BUFFER_BIT)
	assert.Equal(t, gl.Enum(gl.INVALID_FRAMEBUFFER_OPERATION), c.GetError())
}
