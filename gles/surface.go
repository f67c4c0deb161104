// SPDX-License-Identifier: Unlicense OR MIT

package gles

import (
	"github.com/pkg/errors"

	"glove.dev/gles/internal/resource"
	"glove.dev/gles/internal/state"
	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

// Surface describes the presentable images the default framebuffer
// renders into. The images are owned by the caller; the depth and
// stencil buffers are created by the context.
type Surface struct {
	Images []driver.Image
	// Index selects the image rendered to.
	Index         int
	Width, Height int
	// ColorFormat is informational; the format of Images is used.
	ColorFormat gl.Enum
	// DepthFormat is DEPTH_COMPONENT16, DEPTH24_STENCIL8_OES or 0.
	DepthFormat gl.Enum
	// StencilFormat is STENCIL_INDEX8 or 0.
	StencilFormat gl.Enum
	// Acquire, if not nil, is signaled when the image at Index is ready
	// to be rendered to.
	Acquire driver.Semaphore
}

// SetWriteSurface makes s the surface the default framebuffer draws to.
func (c *Context) SetWriteSurface(s *Surface) error {
	return c.setSurfaces(s, c.read)
}

// SetReadSurface makes s the surface ReadPixels and the copy operations
// read from when the default framebuffer is bound.
func (c *Context) SetReadSurface(s *Surface) error {
	return c.setSurfaces(c.write, s)
}

func (c *Context) surface(s *Surface) (*resource.Surface, error) {
	if s == nil {
		return nil, nil
	}
	if rs, ok := c.surfaces[s]; ok {
		return rs, nil
	}
	if len(s.Images) == 0 {
		return nil, errors.New("gles: surface has no images")
	}
	if s.Index < 0 || s.Index >= len(s.Images) {
		return nil, errors.Errorf("gles: surface image index %d out of range", s.Index)
	}
	rs, err := c.res.NewSurface(s.Images, s.DepthFormat, s.StencilFormat)
	if err != nil {
		return nil, err
	}
	c.surfaces[s] = rs
	return rs, nil
}

func (c *Context) setSurfaces(write, read *Surface) error {
	w, err := c.surface(write)
	if err != nil {
		return err
	}
	r, err := c.surface(read)
	if err != nil {
		return err
	}
	if err := c.endPass(); err != nil {
		return err
	}
	if w != nil {
		w.Index = write.Index
	}
	if r != nil {
		r.Index = read.Index
	}
	c.res.SetSurfaces(w, r)
	c.write, c.read = write, read
	for s := range c.surfaces {
		if s != write && s != read {
			delete(c.surfaces, s)
		}
	}
	if write != nil && !c.sized {
		desc := write.Images[0].Desc()
		box := state.Box{Width: desc.Width, Height: desc.Height}
		c.state.SetViewport(box)
		c.state.SetScissor(box)
		c.sized = true
	}
	if write != nil {
		c.cmds.SetAcquire(write.Acquire)
	}
	return nil
}

// SetNextImageIndex selects the image of the write surface the next
// frame renders to.
func (c *Context) SetNextImageIndex(i int) error {
	s := c.write
	if s == nil {
		return errors.New("gles: no write surface")
	}
	if i < 0 || i >= len(s.Images) {
		return errors.Errorf("gles: surface image index %d out of range", i)
	}
	if err := c.endPass(); err != nil {
		return err
	}
	s.Index = i
	c.surfaces[s].Index = i
	c.cmds.SetAcquire(s.Acquire)
	return nil
}

// PresentSemaphore returns the semaphore signaled by the last
// submission, for a presentation engine to wait on. It returns false if
// nothing was submitted since the previous call.
func (c *Context) PresentSemaphore() (driver.Semaphore, bool) {
	return c.cmds.ConsumeDraw()
}
