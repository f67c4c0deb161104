// SPDX-License-Identifier: Unlicense OR MIT

package gles

import (
	"glove.dev/gles/internal/state"
	"glove.dev/internal/gl"
)

func validFace(face gl.Enum) bool {
	return face == gl.FRONT || face == gl.BACK || face == gl.FRONT_AND_BACK
}

func validCompare(f gl.Enum) bool {
	switch f {
	case gl.NEVER, gl.LESS, gl.EQUAL, gl.LEQUAL, gl.GREATER, gl.NOTEQUAL, gl.GEQUAL, gl.ALWAYS:
		return true
	}
	return false
}

func validStencilOp(op gl.Enum) bool {
	switch op {
	case gl.KEEP, gl.ZERO, gl.REPLACE, gl.INCR, gl.DECR, gl.INVERT, gl.INCR_WRAP, gl.DECR_WRAP:
		return true
	}
	return false
}

// validBlendFactor reports whether f is a blend factor. SRC_ALPHA_SATURATE
// is only a source factor.
func validBlendFactor(f gl.Enum, src bool) bool {
	switch f {
	case gl.ZERO, gl.ONE, gl.SRC_COLOR, gl.ONE_MINUS_SRC_COLOR, gl.DST_COLOR, gl.ONE_MINUS_DST_COLOR,
		gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, gl.DST_ALPHA, gl.ONE_MINUS_DST_ALPHA,
		gl.CONSTANT_COLOR, gl.ONE_MINUS_CONSTANT_COLOR, gl.CONSTANT_ALPHA, gl.ONE_MINUS_CONSTANT_ALPHA:
		return true
	case gl.SRC_ALPHA_SATURATE:
		return src
	}
	return false
}

func validBlendEquation(eq gl.Enum) bool {
	return eq == gl.FUNC_ADD || eq == gl.FUNC_SUBTRACT || eq == gl.FUNC_REVERSE_SUBTRACT
}

func (c *Context) Enable(capability gl.Enum) {
	if _, known := c.state.Enable(capability, true); !known {
		c.setError("glEnable", gl.INVALID_ENUM)
	}
}

func (c *Context) Disable(capability gl.Enum) {
	if _, known := c.state.Enable(capability, false); !known {
		c.setError("glDisable", gl.INVALID_ENUM)
	}
}

func (c *Context) IsEnabled(capability gl.Enum) bool {
	on, known := c.state.Enabled(capability)
	if !known {
		c.setError("glIsEnabled", gl.INVALID_ENUM)
	}
	return on
}

func (c *Context) CullFace(mode gl.Enum) {
	if !validFace(mode) {
		c.setError("glCullFace", gl.INVALID_ENUM)
		return
	}
	c.state.SetCullFace(mode)
}

func (c *Context) FrontFace(mode gl.Enum) {
	if mode != gl.CW && mode != gl.CCW {
		c.setError("glFrontFace", gl.INVALID_ENUM)
		return
	}
	c.state.SetFrontFace(mode)
}

func (c *Context) LineWidth(w float32) {
	if !(w > 0) {
		c.setError("glLineWidth", gl.INVALID_VALUE)
		return
	}
	c.state.SetLineWidth(w)
}

func (c *Context) PolygonOffset(factor, units float32) {
	c.state.SetPolygonOffset(factor, units)
}

// Viewport sets the viewport. Sizes are clamped to MAX_VIEWPORT_DIMS.
func (c *Context) Viewport(x, y, width, height int) {
	if width < 0 || height < 0 {
		c.setError("glViewport", gl.INVALID_VALUE)
		return
	}
	width = min(width, c.limits.MaxViewportDims)
	height = min(height, c.limits.MaxViewportDims)
	c.state.SetViewport(state.Box{X: x, Y: y, Width: width, Height: height})
}

func (c *Context) DepthRangef(near, far float32) {
	c.state.SetDepthRange(near, far)
}

func (c *Context) Scissor(x, y, width, height int) {
	if width < 0 || height < 0 {
		c.setError("glScissor", gl.INVALID_VALUE)
		return
	}
	c.state.SetScissor(state.Box{X: x, Y: y, Width: width, Height: height})
}

func (c *Context) ColorMask(r, g, b, a bool) {
	c.state.SetColorMask(r, g, b, a)
}

func (c *Context) DepthFunc(f gl.Enum) {
	if !validCompare(f) {
		c.setError("glDepthFunc", gl.INVALID_ENUM)
		return
	}
	c.state.SetDepthFunc(f)
}

func (c *Context) DepthMask(m bool) {
	c.state.SetDepthMask(m)
}

func (c *Context) StencilFunc(fn gl.Enum, ref int, mask uint32) {
	c.StencilFuncSeparate(gl.FRONT_AND_BACK, fn, ref, mask)
}

func (c *Context) StencilFuncSeparate(face, fn gl.Enum, ref int, mask uint32) {
	if !validFace(face) || !validCompare(fn) {
		c.setError("glStencilFuncSeparate", gl.INVALID_ENUM)
		return
	}
	c.state.SetStencilFunc(face, fn, ref, mask)
}

func (c *Context) StencilOp(fail, zfail, zpass gl.Enum) {
	c.StencilOpSeparate(gl.FRONT_AND_BACK, fail, zfail, zpass)
}

func (c *Context) StencilOpSeparate(face, fail, zfail, zpass gl.Enum) {
	if !validFace(face) || !validStencilOp(fail) || !validStencilOp(zfail) || !validStencilOp(zpass) {
		c.setError("glStencilOpSeparate", gl.INVALID_ENUM)
		return
	}
	c.state.SetStencilOp(face, fail, zfail, zpass)
}

func (c *Context) StencilMask(mask uint32) {
	c.StencilMaskSeparate(gl.FRONT_AND_BACK, mask)
}

func (c *Context) StencilMaskSeparate(face gl.Enum, mask uint32) {
	if !validFace(face) {
		c.setError("glStencilMaskSeparate", gl.INVALID_ENUM)
		return
	}
	c.state.SetStencilMask(face, mask)
}

func (c *Context) BlendFunc(src, dst gl.Enum) {
	c.BlendFuncSeparate(src, dst, src, dst)
}

func (c *Context) BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha gl.Enum) {
	if !validBlendFactor(srcRGB, true) || !validBlendFactor(dstRGB, false) ||
		!validBlendFactor(srcAlpha, true) || !validBlendFactor(dstAlpha, false) {
		c.setError("glBlendFuncSeparate", gl.INVALID_ENUM)
		return
	}
	c.state.SetBlendFunc(srcRGB, dstRGB, srcAlpha, dstAlpha)
}

func (c *Context) BlendEquation(mode gl.Enum) {
	c.BlendEquationSeparate(mode, mode)
}

func (c *Context) BlendEquationSeparate(rgb, alpha gl.Enum) {
	if !validBlendEquation(rgb) || !validBlendEquation(alpha) {
		c.setError("glBlendEquationSeparate", gl.INVALID_ENUM)
		return
	}
	c.state.SetBlendEquation(rgb, alpha)
}

func (c *Context) BlendColor(r, g, b, a float32) {
	c.state.SetBlendColor([4]float32{r, g, b, a})
}

func (c *Context) SampleCoverage(value float32, invert bool) {
	c.state.SetSampleCoverage(value, invert)
}

func (c *Context) ClearColor(r, g, b, a float32) {
	c.state.SetClearColor([4]float32{r, g, b, a})
}

func (c *Context) ClearDepthf(d float32) {
	c.state.SetClearDepth(d)
}

func (c *Context) ClearStencil(s int) {
	c.state.SetClearStencil(s)
}

func (c *Context) Hint(target, mode gl.Enum) {
	if mode != gl.FASTEST && mode != gl.NICEST && mode != gl.DONT_CARE {
		c.setError("glHint", gl.INVALID_ENUM)
		return
	}
	if !c.state.SetHint(target, mode) {
		c.setError("glHint", gl.INVALID_ENUM)
	}
}

func (c *Context) PixelStorei(pname gl.Enum, param int) {
	if pname != gl.PACK_ALIGNMENT && pname != gl.UNPACK_ALIGNMENT {
		c.setError("glPixelStorei", gl.INVALID_ENUM)
		return
	}
	switch param {
	case 1, 2, 4, 8:
	default:
		c.setError("glPixelStorei", gl.INVALID_VALUE)
		return
	}
	c.state.SetPixelStore(pname, param)
}

func (c *Context) ActiveTexture(texture gl.Enum) {
	unit := int(texture) - int(gl.TEXTURE0)
	if unit < 0 || unit >= len(c.state.Textures.Units) {
		c.setError("glActiveTexture", gl.INVALID_ENUM)
		return
	}
	c.state.SetActiveTexture(unit)
}
