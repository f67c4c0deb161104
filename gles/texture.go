// SPDX-License-Identifier: Unlicense OR MIT

package gles

import (
	"image"

	"glove.dev/gles/internal/resource"
	"glove.dev/internal/gl"
)

func (c *Context) GenTextures(n int) []uint32 {
	if n < 0 {
		c.setError("glGenTextures", gl.INVALID_VALUE)
		return nil
	}
	names := make([]uint32, n)
	for i := range names {
		names[i] = c.res.Textures.Allocate()
	}
	return names
}

// DeleteTextures deletes the named textures. Bindings to them revert to
// 0 and they are detached from the bound framebuffer.
func (c *Context) DeleteTextures(names []uint32) {
	for _, h := range names {
		if h == 0 || !c.res.Textures.Allocated(h) {
			continue
		}
		c.state.ForgetTexture(h)
		if fb := c.res.Framebuffers.Lookup(c.state.Framebuffer); fb != nil {
			c.res.Detach(fb, gl.TEXTURE, h)
		}
		c.res.DeleteTexture(h)
	}
}

func (c *Context) IsTexture(h uint32) bool {
	return h != 0 && c.res.Textures.Realized(h) && c.res.Textures.Lookup(h).Target != 0
}

func (c *Context) BindTexture(target gl.Enum, h uint32) {
	const call = "glBindTexture"
	if target != gl.TEXTURE_2D && target != gl.TEXTURE_CUBE_MAP {
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	if h != 0 {
		if !c.res.Textures.Allocated(h) {
			c.setError(call, gl.INVALID_OPERATION)
			return
		}
		if !c.check(call, c.res.Textures.Object(h).Bind(target)) {
			return
		}
	}
	c.state.BindTexture(target, h)
}

// boundTexture returns the texture of the active unit bound to the
// binding point of target. Image targets of cube map faces select the
// cube map binding. Texture 0 has no image storage.
func (c *Context) boundTexture(call string, target gl.Enum, faces bool) *resource.Texture {
	binding := target
	switch {
	case target == gl.TEXTURE_2D || target == gl.TEXTURE_CUBE_MAP && !faces:
	case faces && target >= gl.TEXTURE_CUBE_MAP_POSITIVE_X && target <= gl.TEXTURE_CUBE_MAP_NEGATIVE_Z:
		binding = gl.TEXTURE_CUBE_MAP
	default:
		c.setError(call, gl.INVALID_ENUM)
		return nil
	}
	t := c.res.Textures.Lookup(c.state.Texture(c.state.Textures.Active, binding))
	if t == nil {
		c.setError(call, gl.INVALID_OPERATION)
	}
	return t
}

// TexImage2D specifies a level of the bound texture. The target selects
// TEXTURE_2D or one cube map face.
func (c *Context) TexImage2D(target gl.Enum, level int, internalFormat gl.Enum, width, height, border int, format, typ gl.Enum, pixels []byte) {
	const call = "glTexImage2D"
	t := c.boundTexture(call, target, true)
	if t == nil {
		return
	}
	if border != 0 {
		c.setError(call, gl.INVALID_VALUE)
		return
	}
	c.check(call, c.res.TexImage2D(t, target, level, internalFormat, width, height, format, typ, pixels, c.state.Input.UnpackAlignment))
}

func (c *Context) TexSubImage2D(target gl.Enum, level, x, y, width, height int, format, typ gl.Enum, pixels []byte) {
	const call = "glTexSubImage2D"
	t := c.boundTexture(call, target, true)
	if t == nil {
		return
	}
	c.check(call, c.res.TexSubImage2D(t, target, level, x, y, width, height, format, typ, pixels, c.state.Input.UnpackAlignment))
}

// readFramebuffer reads a rectangle of the color buffer of the bound
// framebuffer for the copy commands, checking that it can supply the
// components of internalFormat.
func (c *Context) readFramebuffer(call string, internalFormat gl.Enum, r image.Rectangle) ([]byte, bool) {
	fb := c.framebuffer()
	if fb == nil {
		c.setError(call, gl.INVALID_OPERATION)
		return nil, false
	}
	if fb.Name != 0 && c.res.Status(fb) != gl.FRAMEBUFFER_COMPLETE {
		c.setError(call, gl.INVALID_FRAMEBUFFER_OPERATION)
		return nil, false
	}
	if !resource.CopyCompatible(internalFormat, c.res.ReadBits(fb)) {
		c.setError(call, gl.INVALID_OPERATION)
		return nil, false
	}
	rgba, err := c.res.ReadPixels(fb, r)
	if !c.check(call, err) {
		return nil, false
	}
	return rgba, true
}

func (c *Context) CopyTexImage2D(target gl.Enum, level int, internalFormat gl.Enum, x, y, width, height, border int) {
	const call = "glCopyTexImage2D"
	t := c.boundTexture(call, target, true)
	if t == nil {
		return
	}
	if border != 0 || width < 0 || height < 0 {
		c.setError(call, gl.INVALID_VALUE)
		return
	}
	switch internalFormat {
	case gl.RGBA, gl.RGB, gl.ALPHA, gl.LUMINANCE, gl.LUMINANCE_ALPHA:
	default:
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	rgba, ok := c.readFramebuffer(call, internalFormat, image.Rect(x, y, x+width, y+height))
	if !ok {
		return
	}
	c.check(call, c.res.CopyTexImage2D(t, target, level, internalFormat, width, height, rgba))
}

func (c *Context) CopyTexSubImage2D(target gl.Enum, level, xoffset, yoffset, x, y, width, height int) {
	const call = "glCopyTexSubImage2D"
	t := c.boundTexture(call, target, true)
	if t == nil {
		return
	}
	if level < 0 {
		c.setError(call, gl.INVALID_VALUE)
		return
	}
	face, _ := resource.Face(target)
	l := t.Level(face, level)
	if l.Format == 0 {
		c.setError(call, gl.INVALID_OPERATION)
		return
	}
	if width < 0 || height < 0 {
		c.setError(call, gl.INVALID_VALUE)
		return
	}
	rgba, ok := c.readFramebuffer(call, l.Format, image.Rect(x, y, x+width, y+height))
	if !ok {
		return
	}
	c.check(call, c.res.CopyTexSubImage2D(t, target, level, xoffset, yoffset, width, height, rgba))
}

// CompressedTexImage2D is not supported: no compressed formats are
// advertised, so every format is an invalid enum.
func (c *Context) CompressedTexImage2D(target gl.Enum, level int, internalFormat gl.Enum, width, height, border int, data []byte) {
	c.log.Warn("compressed textures are not supported", "call", "glCompressedTexImage2D", "format", internalFormat)
	c.setError("glCompressedTexImage2D", gl.INVALID_ENUM)
}

func (c *Context) CompressedTexSubImage2D(target gl.Enum, level, x, y, width, height int, format gl.Enum, data []byte) {
	c.log.Warn("compressed textures are not supported", "call", "glCompressedTexSubImage2D", "format", format)
	c.setError("glCompressedTexSubImage2D", gl.INVALID_ENUM)
}

func (c *Context) GenerateMipmap(target gl.Enum) {
	const call = "glGenerateMipmap"
	t := c.boundTexture(call, target, false)
	if t == nil {
		return
	}
	c.check(call, c.res.GenerateMipmap(t))
}

func (c *Context) TexParameteri(target, pname gl.Enum, param int32) {
	const call = "glTexParameteri"
	t := c.boundTexture(call, target, false)
	if t == nil {
		return
	}
	_, err := t.SetParameter(pname, gl.Enum(param))
	c.check(call, err)
}

func (c *Context) TexParameterf(target, pname gl.Enum, param float32) {
	c.TexParameteri(target, pname, int32(param))
}

func (c *Context) TexParameteriv(target, pname gl.Enum, params []int32) {
	if len(params) == 0 {
		c.setError("glTexParameteriv", gl.INVALID_VALUE)
		return
	}
	c.TexParameteri(target, pname, params[0])
}

func (c *Context) TexParameterfv(target, pname gl.Enum, params []float32) {
	if len(params) == 0 {
		c.setError("glTexParameterfv", gl.INVALID_VALUE)
		return
	}
	c.TexParameteri(target, pname, int32(params[0]))
}

func (c *Context) GetTexParameteriv(target, pname gl.Enum, params []int32) {
	const call = "glGetTexParameteriv"
	t := c.boundTexture(call, target, false)
	if t == nil {
		return
	}
	v, err := t.Parameter(pname)
	if !c.check(call, err) || len(params) == 0 {
		return
	}
	params[0] = int32(v)
}

func (c *Context) GetTexParameterfv(target, pname gl.Enum, params []float32) {
	var v [1]int32
	c.GetTexParameteriv(target, pname, v[:])
	if len(params) > 0 && v[0] != 0 {
		params[0] = float32(v[0])
	}
}
