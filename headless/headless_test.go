// SPDX-License-Identifier: Unlicense OR MIT

package headless

import (
	"flag"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"glove.dev/gles"
)

var dumpImages = flag.Bool("saveimages", false, "save test images")

func newTestWindow(t *testing.T, opts Options) *Window {
	t.Helper()
	w, err := NewWindow(64, 48, opts)
	if err != nil {
		t.Skipf("headless windows are not supported: %v", err)
	}
	t.Cleanup(w.Release)
	return w
}

func TestHeadless(t *testing.T) {
	w := newTestWindow(t, Options{})
	c := w.Context()
	c.ClearColor(1, 0, 0, 1)
	c.Clear(gles.COLOR_BUFFER_BIT)

	img, err := w.Screenshot()
	require.NoError(t, err)
	require.Equal(t, w.Size(), img.Bounds().Size())
	require.Equal(t, color.RGBA{R: 0xff, A: 0xff}, img.RGBAAt(0, 0))
	require.Equal(t, color.RGBA{R: 0xff, A: 0xff}, img.RGBAAt(63, 47))
}

func TestScissorOrientation(t *testing.T) {
	w := newTestWindow(t, Options{})
	c := w.Context()
	c.ClearColor(0, 0, 0, 1)
	c.Clear(gles.COLOR_BUFFER_BIT)
	// The bottom left quadrant in GL coordinates.
	c.Enable(gles.SCISSOR_TEST)
	c.Scissor(0, 0, 32, 24)
	c.ClearColor(0, 1, 0, 1)
	c.Clear(gles.COLOR_BUFFER_BIT)

	img, err := w.Screenshot()
	require.NoError(t, err)
	if *dumpImages {
		require.NoError(t, saveImage(t.Name()+".png", img))
	}
	green := color.RGBA{G: 0xff, A: 0xff}
	black := color.RGBA{A: 0xff}
	require.Equal(t, green, img.RGBAAt(0, 47))
	require.Equal(t, black, img.RGBAAt(0, 0))
	require.Equal(t, black, img.RGBAAt(63, 47))
}

func TestDepthSurface(t *testing.T) {
	w := newTestWindow(t, Options{
		DepthFormat:   gles.DEPTH24_STENCIL8_OES,
		StencilFormat: gles.STENCIL_INDEX8,
	})
	c := w.Context()
	c.ClearColor(0, 0, 1, 1)
	c.Clear(gles.COLOR_BUFFER_BIT | gles.DEPTH_BUFFER_BIT | gles.STENCIL_BUFFER_BIT)
	require.Equal(t, gles.Enum(gles.NO_ERROR), c.GetError())

	img, err := w.Screenshot()
	require.NoError(t, err)
	require.Equal(t, color.RGBA{B: 0xff, A: 0xff}, img.RGBAAt(10, 10))
}

func TestInvalidSize(t *testing.T) {
	_, err := NewWindow(0, 10, Options{})
	require.Error(t, err)
}

func saveImage(file string, img image.Image) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
