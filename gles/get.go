// SPDX-License-Identifier: Unlicense OR MIT

package gles

import (
	"math"

	"glove.dev/internal/gl"
)

// Strings reported by GetString.
const (
	Vendor                 = "glove.dev"
	Renderer               = "GLOVE (Vulkan 1.0)"
	Version                = "OpenGL ES 2.0 GLOVE"
	ShadingLanguageVersion = "OpenGL ES GLSL ES 1.00"
	Extensions             = "GL_OES_get_program_binary GL_OES_rgb8_rgba8 GL_OES_packed_depth_stencil GL_OES_element_index_uint GL_OES_texture_npot"
)

// value is the result of a state query in its native type. Normalized
// floats convert to integers by linear mapping instead of rounding.
type value struct {
	b          []bool
	i          []int32
	f          []float32
	normalized bool
}

func ints(v ...int32) value     { return value{i: v} }
func floats(v ...float32) value { return value{f: v} }
func bools(v ...bool) value     { return value{b: v} }

func normalized(v ...float32) value {
	return value{f: v, normalized: true}
}

func (v value) len() int {
	return len(v.b) + len(v.i) + len(v.f)
}

func (v value) asInts(dst []int32) {
	for k := 0; k < v.len() && k < len(dst); k++ {
		switch {
		case v.b != nil:
			dst[k] = glBool(v.b[k])
		case v.i != nil:
			dst[k] = v.i[k]
		case v.normalized:
			f := math.Max(-1, math.Min(1, float64(v.f[k])))
			dst[k] = int32(math.Round(f * math.MaxInt32))
		default:
			dst[k] = int32(math.Round(float64(v.f[k])))
		}
	}
}

func (v value) asFloats(dst []float32) {
	for k := 0; k < v.len() && k < len(dst); k++ {
		switch {
		case v.b != nil:
			dst[k] = float32(glBool(v.b[k]))
		case v.i != nil:
			dst[k] = float32(v.i[k])
		default:
			dst[k] = v.f[k]
		}
	}
}

func (v value) asBools(dst []bool) {
	for k := 0; k < v.len() && k < len(dst); k++ {
		switch {
		case v.b != nil:
			dst[k] = v.b[k]
		case v.i != nil:
			dst[k] = v.i[k] != 0
		default:
			dst[k] = v.f[k] != 0
		}
	}
}

func (c *Context) query(pname gl.Enum) (value, bool) {
	s := c.state
	if on, known := s.Enabled(pname); known {
		return bools(on), true
	}
	l := &c.limits
	switch pname {
	case gl.ACTIVE_TEXTURE:
		return ints(int32(gl.TEXTURE0 + s.Textures.Active)), true
	case gl.ALIASED_LINE_WIDTH_RANGE:
		return floats(1, c.maxLineWidth()), true
	case gl.ALIASED_POINT_SIZE_RANGE:
		return floats(1, 1), true
	case gl.RED_BITS, gl.GREEN_BITS, gl.BLUE_BITS, gl.ALPHA_BITS, gl.DEPTH_BITS, gl.STENCIL_BITS:
		bits := c.res.Bits(c.framebuffer())
		n := map[gl.Enum]int{
			gl.RED_BITS:     bits.Red,
			gl.GREEN_BITS:   bits.Green,
			gl.BLUE_BITS:    bits.Blue,
			gl.ALPHA_BITS:   bits.Alpha,
			gl.DEPTH_BITS:   bits.Depth,
			gl.STENCIL_BITS: bits.Stencil,
		}[pname]
		return ints(int32(n)), true
	case gl.SUBPIXEL_BITS:
		return ints(4), true
	case gl.SAMPLE_BUFFERS, gl.SAMPLES:
		return ints(0), true
	case gl.ARRAY_BUFFER_BINDING:
		return ints(int32(s.Input.ArrayBuffer)), true
	case gl.ELEMENT_ARRAY_BUFFER_BINDING:
		return ints(int32(s.Input.ElementBuffer)), true
	case gl.FRAMEBUFFER_BINDING:
		return ints(int32(s.Framebuffer)), true
	case gl.RENDERBUFFER_BINDING:
		return ints(int32(s.Renderbuffer)), true
	case gl.CURRENT_PROGRAM:
		return ints(int32(s.Program)), true
	case gl.TEXTURE_BINDING_2D:
		return ints(int32(s.Texture(s.Textures.Active, gl.TEXTURE_2D))), true
	case gl.TEXTURE_BINDING_CUBE_MAP:
		return ints(int32(s.Texture(s.Textures.Active, gl.TEXTURE_CUBE_MAP))), true
	case gl.BLEND_COLOR:
		col := s.Blend.Color
		return normalized(col[:]...), true
	case gl.BLEND_SRC_RGB:
		return ints(int32(s.Blend.SrcRGB)), true
	case gl.BLEND_DST_RGB:
		return ints(int32(s.Blend.DstRGB)), true
	case gl.BLEND_SRC_ALPHA:
		return ints(int32(s.Blend.SrcAlpha)), true
	case gl.BLEND_DST_ALPHA:
		return ints(int32(s.Blend.DstAlpha)), true
	case gl.BLEND_EQUATION_RGB:
		return ints(int32(s.Blend.EquationRGB)), true
	case gl.BLEND_EQUATION_ALPHA:
		return ints(int32(s.Blend.EquationAlpha)), true
	case gl.COLOR_CLEAR_VALUE:
		col := s.Clear.Color
		return normalized(col[:]...), true
	case gl.COLOR_WRITEMASK:
		m := s.Color.Mask
		return bools(m[:]...), true
	case gl.DEPTH_CLEAR_VALUE:
		return normalized(s.Clear.Depth), true
	case gl.DEPTH_FUNC:
		return ints(int32(s.Depth.Func)), true
	case gl.DEPTH_RANGE:
		return normalized(s.Viewport.Near, s.Viewport.Far), true
	case gl.DEPTH_WRITEMASK:
		return bools(s.Depth.Mask), true
	case gl.CULL_FACE_MODE:
		return ints(int32(s.Rasterization.CullMode)), true
	case gl.FRONT_FACE:
		return ints(int32(s.Rasterization.FrontFace)), true
	case gl.LINE_WIDTH:
		return floats(s.Rasterization.LineWidth), true
	case gl.POLYGON_OFFSET_FACTOR:
		return floats(s.Rasterization.OffsetFactor), true
	case gl.POLYGON_OFFSET_UNITS:
		return floats(s.Rasterization.OffsetUnits), true
	case gl.SAMPLE_COVERAGE_VALUE:
		return normalized(s.Multisample.CoverageValue), true
	case gl.SAMPLE_COVERAGE_INVERT:
		return bools(s.Multisample.CoverageInvert), true
	case gl.SCISSOR_BOX:
		b := s.Fragment.Scissor
		return ints(int32(b.X), int32(b.Y), int32(b.Width), int32(b.Height)), true
	case gl.VIEWPORT:
		b := s.Viewport.Box
		return ints(int32(b.X), int32(b.Y), int32(b.Width), int32(b.Height)), true
	case gl.STENCIL_CLEAR_VALUE:
		return ints(int32(s.Clear.Stencil)), true
	case gl.STENCIL_FUNC:
		return ints(int32(s.Stencil.Front.Func)), true
	case gl.STENCIL_REF:
		return ints(int32(s.Stencil.Front.Ref)), true
	case gl.STENCIL_VALUE_MASK:
		return ints(int32(s.Stencil.Front.ValueMask)), true
	case gl.STENCIL_WRITEMASK:
		return ints(int32(s.Stencil.Front.WriteMask)), true
	case gl.STENCIL_FAIL:
		return ints(int32(s.Stencil.Front.Fail)), true
	case gl.STENCIL_PASS_DEPTH_FAIL:
		return ints(int32(s.Stencil.Front.DepthFail)), true
	case gl.STENCIL_PASS_DEPTH_PASS:
		return ints(int32(s.Stencil.Front.DepthPass)), true
	case gl.STENCIL_BACK_FUNC:
		return ints(int32(s.Stencil.Back.Func)), true
	case gl.STENCIL_BACK_REF:
		return ints(int32(s.Stencil.Back.Ref)), true
	case gl.STENCIL_BACK_VALUE_MASK:
		return ints(int32(s.Stencil.Back.ValueMask)), true
	case gl.STENCIL_BACK_WRITEMASK:
		return ints(int32(s.Stencil.Back.WriteMask)), true
	case gl.STENCIL_BACK_FAIL:
		return ints(int32(s.Stencil.Back.Fail)), true
	case gl.STENCIL_BACK_PASS_DEPTH_FAIL:
		return ints(int32(s.Stencil.Back.DepthFail)), true
	case gl.STENCIL_BACK_PASS_DEPTH_PASS:
		return ints(int32(s.Stencil.Back.DepthPass)), true
	case gl.PACK_ALIGNMENT:
		return ints(int32(s.Input.PackAlignment)), true
	case gl.UNPACK_ALIGNMENT:
		return ints(int32(s.Input.UnpackAlignment)), true
	case gl.GENERATE_MIPMAP_HINT:
		return ints(int32(s.Hints.GenerateMipmap)), true
	case gl.FRAGMENT_SHADER_DERIVATIVE_HINT:
		return ints(int32(s.Hints.FragmentDerivative)), true
	case gl.IMPLEMENTATION_COLOR_READ_FORMAT:
		return ints(gl.RGBA), true
	case gl.IMPLEMENTATION_COLOR_READ_TYPE:
		return ints(gl.UNSIGNED_BYTE), true
	case gl.SHADER_COMPILER:
		return bools(true), true
	case gl.NUM_SHADER_BINARY_FORMATS, gl.NUM_COMPRESSED_TEXTURE_FORMATS:
		return ints(0), true
	case gl.SHADER_BINARY_FORMATS, gl.COMPRESSED_TEXTURE_FORMATS:
		return value{i: []int32{}}, true
	case gl.NUM_PROGRAM_BINARY_FORMATS_OES:
		return ints(1), true
	case gl.PROGRAM_BINARY_FORMATS_OES:
		return ints(int32(BinaryFormat())), true
	case gl.MAX_VERTEX_ATTRIBS:
		return ints(int32(l.MaxVertexAttribs)), true
	case gl.MAX_VERTEX_UNIFORM_VECTORS:
		return ints(int32(l.MaxVertexUniformVectors)), true
	case gl.MAX_FRAGMENT_UNIFORM_VECTORS:
		return ints(int32(l.MaxFragmentUniformVectors)), true
	case gl.MAX_VARYING_VECTORS:
		return ints(int32(l.MaxVaryingVectors)), true
	case gl.MAX_TEXTURE_IMAGE_UNITS:
		return ints(int32(l.MaxTextureImageUnits)), true
	case gl.MAX_VERTEX_TEXTURE_IMAGE_UNITS:
		return ints(int32(l.MaxCombinedTextureImageUnits - l.MaxTextureImageUnits)), true
	case gl.MAX_COMBINED_TEXTURE_IMAGE_UNITS:
		return ints(int32(l.MaxCombinedTextureImageUnits)), true
	case gl.MAX_TEXTURE_SIZE:
		return ints(int32(l.MaxTextureSize)), true
	case gl.MAX_CUBE_MAP_TEXTURE_SIZE:
		return ints(int32(l.MaxCubeMapTextureSize)), true
	case gl.MAX_RENDERBUFFER_SIZE:
		return ints(int32(l.MaxRenderbufferSize)), true
	case gl.MAX_VIEWPORT_DIMS:
		return ints(int32(l.MaxViewportDims), int32(l.MaxViewportDims)), true
	}
	return value{}, false
}

func (c *Context) maxLineWidth() float32 {
	if w := c.dev.Caps().MaxLineWidth; w > 1 {
		return w
	}
	return 1
}

// GetIntegerv stores the value of pname in params, which must be large
// enough for all its components.
func (c *Context) GetIntegerv(pname gl.Enum, params []int32) {
	v, ok := c.query(pname)
	if !ok {
		c.setError("glGetIntegerv", gl.INVALID_ENUM)
		return
	}
	v.asInts(params)
}

func (c *Context) GetFloatv(pname gl.Enum, params []float32) {
	v, ok := c.query(pname)
	if !ok {
		c.setError("glGetFloatv", gl.INVALID_ENUM)
		return
	}
	v.asFloats(params)
}

func (c *Context) GetBooleanv(pname gl.Enum, params []bool) {
	v, ok := c.query(pname)
	if !ok {
		c.setError("glGetBooleanv", gl.INVALID_ENUM)
		return
	}
	v.asBools(params)
}

// GetString returns an implementation string. Unknown names raise
// INVALID_ENUM and return "".
func (c *Context) GetString(name gl.Enum) string {
	switch name {
	case gl.VENDOR:
		return Vendor
	case gl.RENDERER:
		return Renderer
	case gl.VERSION:
		return Version
	case gl.SHADING_LANGUAGE_VERSION:
		return ShadingLanguageVersion
	case gl.EXTENSIONS:
		return Extensions
	}
	c.setError("glGetString", gl.INVALID_ENUM)
	return ""
}

// GetShaderPrecisionFormat returns the range and precision of a shader
// precision. Every precision maps to 32-bit IEEE floats and integers.
func (c *Context) GetShaderPrecisionFormat(shaderType, precisionType gl.Enum) (rangeMin, rangeMax, precision int32) {
	const call = "glGetShaderPrecisionFormat"
	if shaderType != gl.VERTEX_SHADER && shaderType != gl.FRAGMENT_SHADER {
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	switch precisionType {
	case gl.LOW_FLOAT, gl.MEDIUM_FLOAT, gl.HIGH_FLOAT:
		return 127, 127, 23
	case gl.LOW_INT, gl.MEDIUM_INT, gl.HIGH_INT:
		return 31, 30, 0
	}
	c.setError(call, gl.INVALID_ENUM)
	return
}
