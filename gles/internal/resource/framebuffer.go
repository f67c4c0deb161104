// SPDX-License-Identifier: Unlicense OR MIT

package resource

import (
	"image"

	"github.com/pkg/errors"

	"glove.dev/gles/internal/handle"
	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

// ErrIncompleteFramebuffer is returned when rendering to or reading from
// a framebuffer that is not complete.
var ErrIncompleteFramebuffer = errors.New("resource: incomplete framebuffer")

// Attachment is one attachment point of a framebuffer object.
type Attachment struct {
	// Type is NONE, TEXTURE or RENDERBUFFER.
	Type  gl.Enum
	Name  uint32
	Level int
	// Face is the image target of texture attachments.
	Face gl.Enum

	ref handle.Ref
}

// Framebuffer is a framebuffer object, or the default framebuffer when
// Name is 0.
type Framebuffer struct {
	Name uint32

	Color   Attachment
	Depth   Attachment
	Stencil Attachment

	fb driver.Framebuffer
	// images are the color and depth/stencil attachments fb was built
	// for.
	images [2]driver.Attachment
}

// Surface is a set of presentable images rendered to through the default
// framebuffer, with an optional depth/stencil image shared by all of
// them.
type Surface struct {
	Images []driver.Image
	// Index selects the image rendered to.
	Index int

	bits  Bits
	depth driver.Image
	fbs   []driver.Framebuffer
}

// Target is what draws and clears render into.
type Target struct {
	Framebuffer  driver.Framebuffer
	Color        driver.Format
	DepthStencil driver.Format
	Size         image.Point
	// Texture is the texture attached as color buffer, if any.
	Texture *Texture
	// Depth and Stencil report the presence of the buffers.
	Depth, Stencil bool
}

// PassDesc returns the render pass description for rendering to t with
// the given load operations.
func (t Target) PassDesc(color, depth, stencil driver.LoadOp) driver.RenderPassDesc {
	d := driver.RenderPassDesc{
		Color: driver.AttachmentDesc{Format: t.Color, Load: color, StencilLoad: driver.LoadOpDontCare},
	}
	if t.DepthStencil != driver.FormatUndefined {
		d.DepthStencil = driver.AttachmentDesc{Format: t.DepthStencil, Load: depth, StencilLoad: stencil}
	}
	return d
}

// bound is a resolved attachment.
type bound struct {
	tex    *Texture
	rb     *Renderbuffer
	size   image.Point
	format gl.Enum
	level  int
	layer  int
}

func (m *Manager) resolve(a Attachment) (bound, bool) {
	switch a.Type {
	case gl.TEXTURE:
		t := m.Textures.Resolve(a.ref)
		if t == nil {
			return bound{}, false
		}
		face, _ := Face(a.Face)
		l := t.Level(face, a.Level)
		return bound{tex: t, size: image.Pt(l.Width, l.Height), format: l.Format, level: a.Level, layer: face}, true
	case gl.RENDERBUFFER:
		r := m.Renderbuffers.Resolve(a.ref)
		if r == nil {
			return bound{}, false
		}
		return bound{rb: r, size: image.Pt(r.Width, r.Height), format: r.Format}, true
	}
	return bound{}, false
}

func (m *Manager) point(f *Framebuffer, attachment gl.Enum) (*Attachment, error) {
	switch attachment {
	case gl.COLOR_ATTACHMENT0:
		return &f.Color, nil
	case gl.DEPTH_ATTACHMENT:
		return &f.Depth, nil
	case gl.STENCIL_ATTACHMENT:
		return &f.Stencil, nil
	}
	return nil, ErrInvalidEnum
}

// FramebufferTexture2D attaches level of the texture named h, or
// detaches the attachment point if h is 0.
func (m *Manager) FramebufferTexture2D(f *Framebuffer, attachment, textarget gl.Enum, h uint32, level int) error {
	p, err := m.point(f, attachment)
	if err != nil {
		return err
	}
	if h == 0 {
		*p = Attachment{}
		return nil
	}
	if _, ok := Face(textarget); !ok {
		return ErrInvalidEnum
	}
	if level != 0 {
		return ErrInvalidValue
	}
	t := m.Textures.Lookup(h)
	if t == nil {
		return ErrInvalidOperation
	}
	want := gl.Enum(gl.TEXTURE_CUBE_MAP)
	if textarget == gl.TEXTURE_2D {
		want = gl.TEXTURE_2D
	}
	if t.Target != want {
		return ErrInvalidOperation
	}
	ref, _ := m.Textures.Ref(h)
	*p = Attachment{Type: gl.TEXTURE, Name: h, Level: level, Face: textarget, ref: ref}
	return nil
}

// FramebufferRenderbuffer attaches the renderbuffer named h, or detaches
// the attachment point if h is 0.
func (m *Manager) FramebufferRenderbuffer(f *Framebuffer, attachment gl.Enum, h uint32) error {
	p, err := m.point(f, attachment)
	if err != nil {
		return err
	}
	if h == 0 {
		*p = Attachment{}
		return nil
	}
	ref, ok := m.Renderbuffers.Ref(h)
	if !ok {
		return ErrInvalidOperation
	}
	*p = Attachment{Type: gl.RENDERBUFFER, Name: h, ref: ref}
	return nil
}

// Attachment returns the attachment at attachment, reporting deleted
// objects as NONE.
func (m *Manager) Attachment(f *Framebuffer, attachment gl.Enum) (Attachment, error) {
	p, err := m.point(f, attachment)
	if err != nil {
		return Attachment{}, err
	}
	if _, ok := m.resolve(*p); !ok {
		return Attachment{}, nil
	}
	return *p, nil
}

// Detach removes every attachment of f naming the object h of type typ.
func (m *Manager) Detach(f *Framebuffer, typ gl.Enum, h uint32) {
	for _, p := range []*Attachment{&f.Color, &f.Depth, &f.Stencil} {
		if p.Type == typ && p.Name == h {
			*p = Attachment{}
		}
	}
}

func colorRenderable(b bound) bool {
	if b.tex != nil {
		return b.format == gl.RGB || b.format == gl.RGBA
	}
	switch b.format {
	case gl.RGBA4, gl.RGB5_A1, gl.RGB565, gl.RGBA8_OES, gl.RGB8_OES:
		return true
	}
	return false
}

func depthRenderable(b bound) bool {
	return b.rb != nil && (b.format == gl.DEPTH_COMPONENT16 || b.format == gl.DEPTH24_STENCIL8_OES)
}

func stencilRenderable(b bound) bool {
	return b.rb != nil && (b.format == gl.STENCIL_INDEX8 || b.format == gl.DEPTH24_STENCIL8_OES)
}

// Status returns the completeness status of f.
func (m *Manager) Status(f *Framebuffer) gl.Enum {
	if f.Name == 0 {
		if m.draw == nil || len(m.draw.Images) == 0 {
			return gl.FRAMEBUFFER_UNSUPPORTED
		}
		return gl.FRAMEBUFFER_COMPLETE
	}
	points := []struct {
		a          Attachment
		renderable func(bound) bool
	}{
		{f.Color, colorRenderable},
		{f.Depth, depthRenderable},
		{f.Stencil, stencilRenderable},
	}
	var (
		attached []bound
		size     image.Point
	)
	for _, p := range points {
		b, ok := m.resolve(p.a)
		if !ok {
			continue
		}
		if b.format == 0 || b.size.X == 0 || b.size.Y == 0 || !p.renderable(b) {
			return gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT
		}
		attached = append(attached, b)
	}
	if len(attached) == 0 {
		return gl.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT
	}
	size = attached[0].size
	for _, b := range attached[1:] {
		if b.size != size {
			return gl.FRAMEBUFFER_INCOMPLETE_DIMENSIONS
		}
	}
	for _, b := range attached {
		if b.tex != nil {
			if base := b.tex.base(); base.Width != b.size.X || base.Height != b.size.Y {
				return gl.FRAMEBUFFER_UNSUPPORTED
			}
		}
	}
	depth, dok := m.resolve(f.Depth)
	stencil, sok := m.resolve(f.Stencil)
	if dok && sok && depth.rb != stencil.rb {
		// Vulkan has a single depth/stencil attachment.
		return gl.FRAMEBUFFER_UNSUPPORTED
	}
	return gl.FRAMEBUFFER_COMPLETE
}

// Bits returns the component sizes of the buffers of f.
func (m *Manager) Bits(f *Framebuffer) Bits {
	if f.Name == 0 {
		if m.draw == nil {
			return Bits{}
		}
		return m.draw.bits
	}
	var bits Bits
	if b, ok := m.resolve(f.Color); ok {
		if b.tex != nil {
			bits.Red, bits.Green, bits.Blue = 8, 8, 8
			if b.format == gl.RGBA {
				bits.Alpha = 8
			}
		} else {
			c, _ := FormatBits(b.format)
			bits.Red, bits.Green, bits.Blue, bits.Alpha = c.Red, c.Green, c.Blue, c.Alpha
		}
	}
	if b, ok := m.resolve(f.Depth); ok {
		d, _ := FormatBits(b.format)
		bits.Depth = d.Depth
	}
	if b, ok := m.resolve(f.Stencil); ok {
		s, _ := FormatBits(b.format)
		bits.Stencil = s.Stencil
	}
	return bits
}

// ReadBits is like Bits for the framebuffer pixels are read from.
func (m *Manager) ReadBits(f *Framebuffer) Bits {
	if f.Name == 0 {
		if m.read == nil {
			return Bits{}
		}
		return m.read.bits
	}
	return m.Bits(f)
}

// Target returns the render target of f, rebuilding the driver
// framebuffer when the attached images changed.
func (m *Manager) Target(f *Framebuffer) (Target, error) {
	if f.Name == 0 {
		return m.surfaceTarget(m.draw)
	}
	if m.Status(f) != gl.FRAMEBUFFER_COMPLETE {
		return Target{}, ErrIncompleteFramebuffer
	}
	var (
		tg     Target
		atts   []driver.Attachment
		images [2]driver.Attachment
	)
	if b, ok := m.resolve(f.Color); ok {
		a, err := m.attachment(b)
		if err != nil {
			return Target{}, err
		}
		tg.Size = b.size
		tg.Color = a.Image.Desc().Format
		tg.Texture = b.tex
		images[0] = a
		atts = append(atts, a)
	}
	ds, ok := m.resolve(f.Depth)
	if !ok {
		ds, ok = m.resolve(f.Stencil)
	}
	if ok {
		a, err := m.attachment(ds)
		if err != nil {
			return Target{}, err
		}
		tg.Size = ds.size
		tg.DepthStencil = a.Image.Desc().Format
		tg.Depth = tg.DepthStencil.HasDepth()
		tg.Stencil = tg.DepthStencil.HasStencil()
		images[1] = a
		atts = append(atts, a)
	}
	if f.fb == nil || f.images != images {
		rp, err := m.RenderPass(tg.PassDesc(driver.LoadOpLoad, driver.LoadOpLoad, driver.LoadOpLoad))
		if err != nil {
			return Target{}, err
		}
		fb, err := m.dev.NewFramebuffer(rp, atts, tg.Size.X, tg.Size.Y)
		if err != nil {
			return Target{}, wrapDriver(err, "framebuffer")
		}
		m.log.Debug("created framebuffer", "framebuffer", f.Name, "size", tg.Size)
		f.release(m.track)
		f.fb = fb
		f.images = images
	}
	tg.Framebuffer = f.fb
	return tg, nil
}

// attachment returns the driver image view of an attached texture level
// or renderbuffer.
func (m *Manager) attachment(b bound) (driver.Attachment, error) {
	if b.tex == nil {
		return driver.Attachment{Image: b.rb.Image()}, nil
	}
	img, err := m.Image(b.tex)
	if err != nil {
		return driver.Attachment{}, err
	}
	return driver.Attachment{Image: img, Level: b.level, Layer: b.layer}, nil
}

// NewSurface wraps presentable images for the default framebuffer. depth
// and stencil are renderbuffer formats, or 0 for none.
func (m *Manager) NewSurface(images []driver.Image, depth, stencil gl.Enum) (*Surface, error) {
	s := &Surface{Images: images, fbs: make([]driver.Framebuffer, len(images))}
	if len(images) == 0 {
		return s, nil
	}
	desc := images[0].Desc()
	switch desc.Format {
	case driver.FormatR5G6B5:
		s.bits = Bits{Red: 5, Green: 6, Blue: 5}
	default:
		s.bits = Bits{Red: 8, Green: 8, Blue: 8, Alpha: 8}
	}
	var f driver.Format
	switch {
	case stencil != 0:
		f = m.dev.Caps().DepthStencilFormat
		s.bits.Stencil = 8
		if depth != 0 {
			s.bits.Depth = 24
		}
	case depth == gl.DEPTH_COMPONENT16:
		f = driver.FormatD16
		s.bits.Depth = 16
	case depth != 0:
		f = m.dev.Caps().DepthStencilFormat
		s.bits.Depth = 24
	}
	if f != driver.FormatUndefined {
		img, err := m.dev.NewImage(driver.ImageDesc{
			Format: f,
			Width:  desc.Width,
			Height: desc.Height,
			Levels: 1,
			Layers: 1,
			Usage:  driver.ImageUsageDepthStencilAttachment,
		})
		if err != nil {
			return nil, wrapDriver(err, "surface depth buffer")
		}
		s.depth = img
	}
	return s, nil
}

// SetSurfaces selects the surfaces the default framebuffer draws to
// and reads from. Surfaces no longer used are released.
func (m *Manager) SetSurfaces(draw, read *Surface) {
	for _, old := range []*Surface{m.draw, m.read} {
		if old != nil && old != draw && old != read {
			old.release(m.track)
		}
	}
	m.draw, m.read = draw, read
}

// DrawSurface returns the surface the default framebuffer renders to.
func (m *Manager) DrawSurface() *Surface {
	return m.draw
}

func (m *Manager) surfaceTarget(s *Surface) (Target, error) {
	if s == nil || len(s.Images) == 0 {
		return Target{}, ErrIncompleteFramebuffer
	}
	img := s.Images[s.Index]
	desc := img.Desc()
	tg := Target{
		Color: desc.Format,
		Size:  image.Pt(desc.Width, desc.Height),
	}
	atts := []driver.Attachment{{Image: img}}
	if s.depth != nil {
		tg.DepthStencil = s.depth.Desc().Format
		tg.Depth = s.bits.Depth > 0
		tg.Stencil = s.bits.Stencil > 0
		atts = append(atts, driver.Attachment{Image: s.depth})
	}
	if s.fbs[s.Index] == nil {
		rp, err := m.RenderPass(tg.PassDesc(driver.LoadOpLoad, driver.LoadOpLoad, driver.LoadOpLoad))
		if err != nil {
			return Target{}, err
		}
		fb, err := m.dev.NewFramebuffer(rp, atts, tg.Size.X, tg.Size.Y)
		if err != nil {
			return Target{}, wrapDriver(err, "surface framebuffer")
		}
		m.log.Debug("created surface framebuffer", "image", s.Index, "size", tg.Size)
		s.fbs[s.Index] = fb
	}
	tg.Framebuffer = s.fbs[s.Index]
	return tg, nil
}

// ReadPixels returns the color buffer pixels of f inside r as RGBA8,
// bottom row first. Pixels outside the buffer are zero.
func (m *Manager) ReadPixels(f *Framebuffer, r image.Rectangle) ([]byte, error) {
	var (
		img    driver.Image
		layer  int
		size   image.Point
		reduce gl.Enum
	)
	if f.Name == 0 {
		s := m.read
		if s == nil || len(s.Images) == 0 {
			return nil, ErrIncompleteFramebuffer
		}
		img = s.Images[s.Index]
		size = image.Pt(img.Desc().Width, img.Desc().Height)
	} else {
		if m.Status(f) != gl.FRAMEBUFFER_COMPLETE {
			return nil, ErrIncompleteFramebuffer
		}
		b, ok := m.resolve(f.Color)
		if !ok {
			return nil, ErrInvalidOperation
		}
		size, layer = b.size, b.layer
		if b.tex != nil {
			var err error
			if img, err = m.Image(b.tex); err != nil {
				return nil, err
			}
			reduce = b.format
		} else {
			img = b.rb.Image()
		}
	}
	out := make([]byte, r.Dx()*r.Dy()*4)
	src := r.Intersect(image.Rectangle{Max: size})
	if src.Empty() {
		return out, nil
	}
	if err := m.track.Finish(); err != nil {
		return nil, err
	}
	f0 := img.Desc().Format
	raw := make([]byte, src.Dx()*src.Dy()*f0.BytesPerPixel())
	if err := img.Download(layer, 0, src, raw); err != nil {
		return nil, wrapDriver(err, "read pixels")
	}
	rgba := decode(f0, raw)
	if reduce != 0 {
		Reduce(reduce, rgba)
	}
	w := src.Dx() * 4
	for y := 0; y < src.Dy(); y++ {
		dst := ((src.Min.Y-r.Min.Y+y)*r.Dx() + src.Min.X - r.Min.X) * 4
		copy(out[dst:dst+w], rgba[y*w:])
	}
	return out, nil
}

func (f *Framebuffer) release(t Tracker) {
	if f.fb != nil {
		t.Release(f.fb)
		f.fb = nil
	}
	f.images = [2]driver.Attachment{}
}

func (s *Surface) release(t Tracker) {
	for i, fb := range s.fbs {
		if fb != nil {
			t.Release(fb)
			s.fbs[i] = nil
		}
	}
	if s.depth != nil {
		t.Release(s.depth)
		s.depth = nil
	}
}

// DeleteFramebuffer forgets the framebuffer named h.
func (m *Manager) DeleteFramebuffer(h uint32) {
	if f := m.Framebuffers.Lookup(h); f != nil {
		f.release(m.track)
	}
	m.Framebuffers.Deallocate(h)
}
