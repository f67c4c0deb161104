// SPDX-License-Identifier: Unlicense OR MIT

// Package headless implements offscreen windows for rendering GLES
// commands to an image.
package headless

import (
	"image"

	"github.com/pkg/errors"

	"glove.dev/gles"
	"glove.dev/internal/driver"
)

// Window is a headless window: a context drawing to an offscreen color
// image.
type Window struct {
	size image.Point
	dev  driver.Device
	ctx  *gles.Context
	img  driver.Image
	surf *gles.Surface
}

// Options configure a Window.
type Options struct {
	// Context is passed to gles.NewContext.
	Context gles.Options
	// DepthFormat is DEPTH_COMPONENT16, DEPTH24_STENCIL8_OES or 0.
	DepthFormat gles.Enum
	// StencilFormat is STENCIL_INDEX8 or 0.
	StencilFormat gles.Enum
}

// NewWindow creates a headless window of the given size on a new
// headless Vulkan device.
func NewWindow(width, height int, opts Options) (*Window, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("headless: invalid size %dx%d", width, height)
	}
	dev, err := gles.NewDevice(gles.Headless{Logger: opts.Context.Logger})
	if err != nil {
		return nil, errors.Wrap(err, "headless")
	}
	w := &Window{
		size: image.Point{X: width, Y: height},
		dev:  dev,
	}
	if err := w.init(opts); err != nil {
		w.Release()
		return nil, err
	}
	return w, nil
}

func (w *Window) init(opts Options) error {
	img, err := w.dev.NewImage(driver.ImageDesc{
		Format: driver.FormatRGBA8,
		Width:  w.size.X,
		Height: w.size.Y,
		Levels: 1,
		Layers: 1,
		Usage:  driver.ImageUsageColorAttachment | driver.ImageUsageTransfer,
	})
	if err != nil {
		return errors.Wrap(err, "headless: color image")
	}
	w.img = img
	ctx, err := gles.NewContext(w.dev, opts.Context)
	if err != nil {
		return errors.Wrap(err, "headless")
	}
	w.ctx = ctx
	w.surf = &gles.Surface{
		Images:        []driver.Image{img},
		Width:         w.size.X,
		Height:        w.size.Y,
		ColorFormat:   gles.RGBA8_OES,
		DepthFormat:   opts.DepthFormat,
		StencilFormat: opts.StencilFormat,
	}
	if err := ctx.SetWriteSurface(w.surf); err != nil {
		return err
	}
	if err := ctx.SetReadSurface(w.surf); err != nil {
		return err
	}
	gles.MakeCurrent(ctx)
	return nil
}

// Context returns the context drawing to the window. It is current on
// the calling goroutine after NewWindow.
func (w *Window) Context() *gles.Context {
	return w.ctx
}

// Size returns the window size.
func (w *Window) Size() image.Point {
	return w.size
}

// Screenshot waits for the pending commands and returns the window
// content, top row first.
func (w *Window) Screenshot() (*image.RGBA, error) {
	c := w.ctx
	c.Finish()
	if e := c.GetError(); e != gles.NO_ERROR {
		return nil, errors.Errorf("headless: finish: %v", e)
	}
	var fbo [1]int32
	c.GetIntegerv(gles.FRAMEBUFFER_BINDING, fbo[:])
	c.BindFramebuffer(gles.FRAMEBUFFER, 0)
	defer c.BindFramebuffer(gles.FRAMEBUFFER, uint32(fbo[0]))
	stride := w.size.X * 4
	pixels := make([]byte, stride*w.size.Y)
	c.ReadPixels(0, 0, w.size.X, w.size.Y, gles.RGBA, gles.UNSIGNED_BYTE, pixels)
	if e := c.GetError(); e != gles.NO_ERROR {
		return nil, errors.Errorf("headless: read pixels: %v", e)
	}
	img := image.NewRGBA(image.Rectangle{Max: w.size})
	// GL rows run bottom to top.
	for y := 0; y < w.size.Y; y++ {
		src := pixels[(w.size.Y-1-y)*stride:]
		copy(img.Pix[y*img.Stride:], src[:stride])
	}
	return img, nil
}

// Release destroys the context and its device.
func (w *Window) Release() {
	if w.ctx != nil {
		w.ctx.Destroy()
		w.ctx = nil
	}
	if w.img != nil {
		w.img.Release()
		w.img = nil
	}
	if w.dev != nil {
		w.dev.Release()
		w.dev = nil
	}
}
