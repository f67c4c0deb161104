// SPDX-License-Identifier: Unlicense OR MIT

package gles

import (
	"glove.dev/gles/internal/resource"
	"glove.dev/internal/gl"
)

func (c *Context) GenFramebuffers(n int) []uint32 {
	if n < 0 {
		c.setError("glGenFramebuffers", gl.INVALID_VALUE)
		return nil
	}
	names := make([]uint32, n)
	for i := range names {
		names[i] = c.res.Framebuffers.Allocate()
	}
	return names
}

// DeleteFramebuffers deletes the named framebuffers. Deleting the bound
// framebuffer binds the default framebuffer.
func (c *Context) DeleteFramebuffers(names []uint32) {
	for _, h := range names {
		if h == 0 || !c.res.Framebuffers.Allocated(h) {
			continue
		}
		if c.state.Framebuffer == h {
			c.state.BindFramebuffer(0)
		}
		c.res.DeleteFramebuffer(h)
	}
}

func (c *Context) IsFramebuffer(h uint32) bool {
	return h != 0 && c.res.Framebuffers.Realized(h)
}

func (c *Context) BindFramebuffer(target gl.Enum, h uint32) {
	const call = "glBindFramebuffer"
	if target != gl.FRAMEBUFFER {
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	if h != 0 {
		if !c.res.Framebuffers.Allocated(h) {
			c.setError(call, gl.INVALID_OPERATION)
			return
		}
		c.res.Framebuffers.Object(h)
	}
	c.state.BindFramebuffer(h)
}

func (c *Context) CheckFramebufferStatus(target gl.Enum) gl.Enum {
	if target != gl.FRAMEBUFFER {
		c.setError("glCheckFramebufferStatus", gl.INVALID_ENUM)
		return 0
	}
	return c.res.Status(c.framebuffer())
}

// boundFramebuffer returns the bound framebuffer object. The default
// framebuffer can't be modified.
func (c *Context) boundFramebuffer(call string, target gl.Enum) *resource.Framebuffer {
	if target != gl.FRAMEBUFFER {
		c.setError(call, gl.INVALID_ENUM)
		return nil
	}
	if c.state.Framebuffer == 0 {
		c.setError(call, gl.INVALID_OPERATION)
		return nil
	}
	return c.framebuffer()
}

func (c *Context) FramebufferTexture2D(target, attachment, textarget gl.Enum, texture uint32, level int) {
	const call = "glFramebufferTexture2D"
	fb := c.boundFramebuffer(call, target)
	if fb == nil {
		return
	}
	c.check(call, c.res.FramebufferTexture2D(fb, attachment, textarget, texture, level))
}

func (c *Context) FramebufferRenderbuffer(target, attachment, rbtarget gl.Enum, rb uint32) {
	const call = "glFramebufferRenderbuffer"
	fb := c.boundFramebuffer(call, target)
	if fb == nil {
		return
	}
	if rbtarget != gl.RENDERBUFFER {
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	c.check(call, c.res.FramebufferRenderbuffer(fb, attachment, rb))
}

func (c *Context) GetFramebufferAttachmentParameteriv(target, attachment, pname gl.Enum, params []int32) {
	const call = "glGetFramebufferAttachmentParameteriv"
	fb := c.boundFramebuffer(call, target)
	if fb == nil {
		return
	}
	a, err := c.res.Attachment(fb, attachment)
	if !c.check(call, err) {
		return
	}
	var v int32
	switch {
	case pname == gl.FRAMEBUFFER_ATTACHMENT_OBJECT_TYPE:
		v = int32(a.Type)
		if a.Type == 0 {
			v = gl.NONE
		}
	case pname == gl.FRAMEBUFFER_ATTACHMENT_OBJECT_NAME && a.Type != 0:
		v = int32(a.Name)
	case pname == gl.FRAMEBUFFER_ATTACHMENT_TEXTURE_LEVEL && a.Type == gl.TEXTURE:
		v = int32(a.Level)
	case pname == gl.FRAMEBUFFER_ATTACHMENT_TEXTURE_CUBE_MAP_FACE && a.Type == gl.TEXTURE:
		if a.Face != gl.TEXTURE_2D {
			v = int32(a.Face)
		}
	default:
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	if len(params) > 0 {
		params[0] = v
	}
}

func (c *Context) GenRenderbuffers(n int) []uint32 {
	if n < 0 {
		c.setError("glGenRenderbuffers", gl.INVALID_VALUE)
		return nil
	}
	names := make([]uint32, n)
	for i := range names {
		names[i] = c.res.Renderbuffers.Allocate()
	}
	return names
}

// DeleteRenderbuffers deletes the named renderbuffers, unbinding them
// and detaching them from the bound framebuffer.
func (c *Context) DeleteRenderbuffers(names []uint32) {
	for _, h := range names {
		if h == 0 || !c.res.Renderbuffers.Allocated(h) {
			continue
		}
		if c.state.Renderbuffer == h {
			c.state.BindRenderbuffer(0)
		}
		if fb := c.res.Framebuffers.Lookup(c.state.Framebuffer); fb != nil {
			c.res.Detach(fb, gl.RENDERBUFFER, h)
		}
		c.res.DeleteRenderbuffer(h)
	}
}

func (c *Context) IsRenderbuffer(h uint32) bool {
	return h != 0 && c.res.Renderbuffers.Realized(h)
}

func (c *Context) BindRenderbuffer(target gl.Enum, h uint32) {
	const call = "glBindRenderbuffer"
	if target != gl.RENDERBUFFER {
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	if h != 0 {
		if !c.res.Renderbuffers.Allocated(h) {
			c.setError(call, gl.INVALID_OPERATION)
			return
		}
		c.res.Renderbuffers.Object(h)
	}
	c.state.BindRenderbuffer(h)
}

func (c *Context) boundRenderbuffer(call string, target gl.Enum) *resource.Renderbuffer {
	if target != gl.RENDERBUFFER {
		c.setError(call, gl.INVALID_ENUM)
		return nil
	}
	r := c.res.Renderbuffers.Lookup(c.state.Renderbuffer)
	if r == nil {
		c.setError(call, gl.INVALID_OPERATION)
	}
	return r
}

func (c *Context) RenderbufferStorage(target, internalFormat gl.Enum, width, height int) {
	const call = "glRenderbufferStorage"
	r := c.boundRenderbuffer(call, target)
	if r == nil {
		return
	}
	c.check(call, c.res.RenderbufferStorage(r, internalFormat, width, height))
}

func (c *Context) GetRenderbufferParameteriv(target, pname gl.Enum, params []int32) {
	const call = "glGetRenderbufferParameteriv"
	r := c.boundRenderbuffer(call, target)
	if r == nil {
		return
	}
	var bits resource.Bits
	if r.Width > 0 && r.Height > 0 {
		bits, _ = resource.FormatBits(r.Format)
	}
	var v int
	switch pname {
	case gl.RENDERBUFFER_WIDTH:
		v = r.Width
	case gl.RENDERBUFFER_HEIGHT:
		v = r.Height
	case gl.RENDERBUFFER_INTERNAL_FORMAT:
		v = int(r.Format)
	case gl.RENDERBUFFER_RED_SIZE:
		v = bits.Red
	case gl.RENDERBUFFER_GREEN_SIZE:
		v = bits.Green
	case gl.RENDERBUFFER_BLUE_SIZE:
		v = bits.Blue
	case gl.RENDERBUFFER_ALPHA_SIZE:
		v = bits.Alpha
	case gl.RENDERBUFFER_DEPTH_SIZE:
		v = bits.Depth
	case gl.RENDERBUFFER_STENCIL_SIZE:
		v = bits.Stencil
	default:
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	if len(params) > 0 {
		params[0] = int32(v)
	}
}
