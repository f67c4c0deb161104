// SPDX-License-Identifier: Unlicense OR MIT

package resource

import (
	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

// Renderbuffer is a render target that can't be sampled.
type Renderbuffer struct {
	Use

	Name          uint32
	Format        gl.Enum
	Width, Height int

	img driver.Image
}

// Bits is the size in bits of the components of a renderbuffer format.
type Bits struct {
	Red, Green, Blue, Alpha, Depth, Stencil int
}

var renderbufferFormats = map[gl.Enum]Bits{
	gl.RGBA4:                {Red: 4, Green: 4, Blue: 4, Alpha: 4},
	gl.RGB5_A1:              {Red: 5, Green: 5, Blue: 5, Alpha: 1},
	gl.RGB565:               {Red: 5, Green: 6, Blue: 5},
	gl.RGBA8_OES:            {Red: 8, Green: 8, Blue: 8, Alpha: 8},
	gl.RGB8_OES:             {Red: 8, Green: 8, Blue: 8},
	gl.DEPTH_COMPONENT16:    {Depth: 16},
	gl.STENCIL_INDEX8:       {Stencil: 8},
	gl.DEPTH24_STENCIL8_OES: {Depth: 24, Stencil: 8},
}

// FormatBits returns the component sizes of a renderbuffer format.
func FormatBits(f gl.Enum) (Bits, bool) {
	b, ok := renderbufferFormats[f]
	return b, ok
}

// driverFormat maps a renderbuffer format to the image format storing
// it. The smaller color formats are stored with 8 bits per component.
func (m *Manager) driverFormat(f gl.Enum) driver.Format {
	switch f {
	case gl.RGB565:
		return driver.FormatR5G6B5
	case gl.DEPTH_COMPONENT16:
		return driver.FormatD16
	case gl.STENCIL_INDEX8:
		return driver.FormatS8
	case gl.DEPTH24_STENCIL8_OES:
		return m.dev.Caps().DepthStencilFormat
	}
	return driver.FormatRGBA8
}

// RenderbufferStorage allocates the image of r.
func (m *Manager) RenderbufferStorage(r *Renderbuffer, format gl.Enum, w, h int) error {
	if _, ok := renderbufferFormats[format]; !ok {
		return ErrInvalidEnum
	}
	if w < 0 || h < 0 || w > m.limits.MaxRenderbufferSize || h > m.limits.MaxRenderbufferSize {
		return ErrInvalidValue
	}
	var img driver.Image
	if w > 0 && h > 0 {
		f := m.driverFormat(format)
		usage := driver.ImageUsageColorAttachment | driver.ImageUsageTransfer
		if f.HasDepth() || f.HasStencil() {
			usage = driver.ImageUsageDepthStencilAttachment
		}
		var err error
		img, err = m.dev.NewImage(driver.ImageDesc{
			Format: f,
			Width:  w,
			Height: h,
			Levels: 1,
			Layers: 1,
			Usage:  usage,
		})
		if err != nil {
			return wrapDriver(err, "renderbuffer storage")
		}
		m.log.Debug("created renderbuffer image", "renderbuffer", r.Name, "width", w, "height", h)
	}
	r.release(m.track)
	r.img = img
	r.Format = format
	r.Width, r.Height = w, h
	r.Use = Use{}
	return nil
}

// Image returns the driver image of r, nil before storage is allocated.
func (r *Renderbuffer) Image() driver.Image {
	return r.img
}

func (r *Renderbuffer) release(t Tracker) {
	if r.img != nil {
		t.Release(r.img)
		r.img = nil
	}
}

// DeleteRenderbuffer forgets the renderbuffer named h.
func (m *Manager) DeleteRenderbuffer(h uint32) {
	if r := m.Renderbuffers.Lookup(h); r != nil {
		r.release(m.track)
	}
	m.Renderbuffers.Deallocate(h)
}
