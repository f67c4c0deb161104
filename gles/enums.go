// SPDX-License-Identifier: Unlicense OR MIT

package gles

import "glove.dev/internal/gl"

// Enum is a GLenum.
type Enum = gl.Enum

// The OpenGL ES 2.0 enumerants accepted and returned by Context.
const (
	// Errors.
	NO_ERROR                      = gl.NO_ERROR
	INVALID_ENUM                  = gl.INVALID_ENUM
	INVALID_VALUE                 = gl.INVALID_VALUE
	INVALID_OPERATION             = gl.INVALID_OPERATION
	OUT_OF_MEMORY                 = gl.OUT_OF_MEMORY
	INVALID_FRAMEBUFFER_OPERATION = gl.INVALID_FRAMEBUFFER_OPERATION

	FALSE = gl.FALSE
	TRUE  = gl.TRUE

	// Clear masks.
	DEPTH_BUFFER_BIT   = gl.DEPTH_BUFFER_BIT
	STENCIL_BUFFER_BIT = gl.STENCIL_BUFFER_BIT
	COLOR_BUFFER_BIT   = gl.COLOR_BUFFER_BIT

	// Primitives.
	POINTS         = gl.POINTS
	LINES          = gl.LINES
	LINE_LOOP      = gl.LINE_LOOP
	LINE_STRIP     = gl.LINE_STRIP
	TRIANGLES      = gl.TRIANGLES
	TRIANGLE_STRIP = gl.TRIANGLE_STRIP
	TRIANGLE_FAN   = gl.TRIANGLE_FAN

	// Blending.
	ZERO                     = gl.ZERO
	ONE                      = gl.ONE
	SRC_COLOR                = gl.SRC_COLOR
	ONE_MINUS_SRC_COLOR      = gl.ONE_MINUS_SRC_COLOR
	SRC_ALPHA                = gl.SRC_ALPHA
	ONE_MINUS_SRC_ALPHA      = gl.ONE_MINUS_SRC_ALPHA
	DST_ALPHA                = gl.DST_ALPHA
	ONE_MINUS_DST_ALPHA      = gl.ONE_MINUS_DST_ALPHA
	DST_COLOR                = gl.DST_COLOR
	ONE_MINUS_DST_COLOR      = gl.ONE_MINUS_DST_COLOR
	SRC_ALPHA_SATURATE       = gl.SRC_ALPHA_SATURATE
	FUNC_ADD                 = gl.FUNC_ADD
	BLEND_EQUATION           = gl.BLEND_EQUATION
	BLEND_EQUATION_RGB       = gl.BLEND_EQUATION_RGB
	BLEND_EQUATION_ALPHA     = gl.BLEND_EQUATION_ALPHA
	FUNC_SUBTRACT            = gl.FUNC_SUBTRACT
	FUNC_REVERSE_SUBTRACT    = gl.FUNC_REVERSE_SUBTRACT
	BLEND_DST_RGB            = gl.BLEND_DST_RGB
	BLEND_SRC_RGB            = gl.BLEND_SRC_RGB
	BLEND_DST_ALPHA          = gl.BLEND_DST_ALPHA
	BLEND_SRC_ALPHA          = gl.BLEND_SRC_ALPHA
	CONSTANT_COLOR           = gl.CONSTANT_COLOR
	ONE_MINUS_CONSTANT_COLOR = gl.ONE_MINUS_CONSTANT_COLOR
	CONSTANT_ALPHA           = gl.CONSTANT_ALPHA
	ONE_MINUS_CONSTANT_ALPHA = gl.ONE_MINUS_CONSTANT_ALPHA
	BLEND_COLOR              = gl.BLEND_COLOR

	// Buffers.
	ARRAY_BUFFER                 = gl.ARRAY_BUFFER
	ELEMENT_ARRAY_BUFFER         = gl.ELEMENT_ARRAY_BUFFER
	ARRAY_BUFFER_BINDING         = gl.ARRAY_BUFFER_BINDING
	ELEMENT_ARRAY_BUFFER_BINDING = gl.ELEMENT_ARRAY_BUFFER_BINDING
	STREAM_DRAW                  = gl.STREAM_DRAW
	STATIC_DRAW                  = gl.STATIC_DRAW
	DYNAMIC_DRAW                 = gl.DYNAMIC_DRAW
	BUFFER_SIZE                  = gl.BUFFER_SIZE
	BUFFER_USAGE                 = gl.BUFFER_USAGE
	CURRENT_VERTEX_ATTRIB        = gl.CURRENT_VERTEX_ATTRIB

	// Culling.
	FRONT          = gl.FRONT
	BACK           = gl.BACK
	FRONT_AND_BACK = gl.FRONT_AND_BACK
	CW             = gl.CW
	CCW            = gl.CCW

	// Capabilities.
	TEXTURE_2D               = gl.TEXTURE_2D
	CULL_FACE                = gl.CULL_FACE
	BLEND                    = gl.BLEND
	DITHER                   = gl.DITHER
	STENCIL_TEST             = gl.STENCIL_TEST
	DEPTH_TEST               = gl.DEPTH_TEST
	SCISSOR_TEST             = gl.SCISSOR_TEST
	POLYGON_OFFSET_FILL      = gl.POLYGON_OFFSET_FILL
	SAMPLE_ALPHA_TO_COVERAGE = gl.SAMPLE_ALPHA_TO_COVERAGE
	SAMPLE_COVERAGE          = gl.SAMPLE_COVERAGE

	// State queries.
	LINE_WIDTH                       = gl.LINE_WIDTH
	ALIASED_POINT_SIZE_RANGE         = gl.ALIASED_POINT_SIZE_RANGE
	ALIASED_LINE_WIDTH_RANGE         = gl.ALIASED_LINE_WIDTH_RANGE
	CULL_FACE_MODE                   = gl.CULL_FACE_MODE
	FRONT_FACE                       = gl.FRONT_FACE
	DEPTH_RANGE                      = gl.DEPTH_RANGE
	DEPTH_WRITEMASK                  = gl.DEPTH_WRITEMASK
	DEPTH_CLEAR_VALUE                = gl.DEPTH_CLEAR_VALUE
	DEPTH_FUNC                       = gl.DEPTH_FUNC
	STENCIL_CLEAR_VALUE              = gl.STENCIL_CLEAR_VALUE
	STENCIL_FUNC                     = gl.STENCIL_FUNC
	STENCIL_FAIL                     = gl.STENCIL_FAIL
	STENCIL_PASS_DEPTH_FAIL          = gl.STENCIL_PASS_DEPTH_FAIL
	STENCIL_PASS_DEPTH_PASS          = gl.STENCIL_PASS_DEPTH_PASS
	STENCIL_REF                      = gl.STENCIL_REF
	STENCIL_VALUE_MASK               = gl.STENCIL_VALUE_MASK
	STENCIL_WRITEMASK                = gl.STENCIL_WRITEMASK
	STENCIL_BACK_FUNC                = gl.STENCIL_BACK_FUNC
	STENCIL_BACK_FAIL                = gl.STENCIL_BACK_FAIL
	STENCIL_BACK_PASS_DEPTH_FAIL     = gl.STENCIL_BACK_PASS_DEPTH_FAIL
	STENCIL_BACK_PASS_DEPTH_PASS     = gl.STENCIL_BACK_PASS_DEPTH_PASS
	STENCIL_BACK_REF                 = gl.STENCIL_BACK_REF
	STENCIL_BACK_VALUE_MASK          = gl.STENCIL_BACK_VALUE_MASK
	STENCIL_BACK_WRITEMASK           = gl.STENCIL_BACK_WRITEMASK
	VIEWPORT                         = gl.VIEWPORT
	SCISSOR_BOX                      = gl.SCISSOR_BOX
	COLOR_CLEAR_VALUE                = gl.COLOR_CLEAR_VALUE
	COLOR_WRITEMASK                  = gl.COLOR_WRITEMASK
	UNPACK_ALIGNMENT                 = gl.UNPACK_ALIGNMENT
	PACK_ALIGNMENT                   = gl.PACK_ALIGNMENT
	MAX_TEXTURE_SIZE                 = gl.MAX_TEXTURE_SIZE
	MAX_VIEWPORT_DIMS                = gl.MAX_VIEWPORT_DIMS
	SUBPIXEL_BITS                    = gl.SUBPIXEL_BITS
	RED_BITS                         = gl.RED_BITS
	GREEN_BITS                       = gl.GREEN_BITS
	BLUE_BITS                        = gl.BLUE_BITS
	ALPHA_BITS                       = gl.ALPHA_BITS
	DEPTH_BITS                       = gl.DEPTH_BITS
	STENCIL_BITS                     = gl.STENCIL_BITS
	POLYGON_OFFSET_UNITS             = gl.POLYGON_OFFSET_UNITS
	POLYGON_OFFSET_FACTOR            = gl.POLYGON_OFFSET_FACTOR
	TEXTURE_BINDING_2D               = gl.TEXTURE_BINDING_2D
	SAMPLE_BUFFERS                   = gl.SAMPLE_BUFFERS
	SAMPLES                          = gl.SAMPLES
	SAMPLE_COVERAGE_VALUE            = gl.SAMPLE_COVERAGE_VALUE
	SAMPLE_COVERAGE_INVERT           = gl.SAMPLE_COVERAGE_INVERT
	NUM_COMPRESSED_TEXTURE_FORMATS   = gl.NUM_COMPRESSED_TEXTURE_FORMATS
	COMPRESSED_TEXTURE_FORMATS       = gl.COMPRESSED_TEXTURE_FORMATS
	GENERATE_MIPMAP_HINT             = gl.GENERATE_MIPMAP_HINT
	DONT_CARE                        = gl.DONT_CARE
	FASTEST                          = gl.FASTEST
	NICEST                           = gl.NICEST
	FRAGMENT_SHADER_DERIVATIVE_HINT  = gl.FRAGMENT_SHADER_DERIVATIVE_HINT
	IMPLEMENTATION_COLOR_READ_TYPE   = gl.IMPLEMENTATION_COLOR_READ_TYPE
	IMPLEMENTATION_COLOR_READ_FORMAT = gl.IMPLEMENTATION_COLOR_READ_FORMAT

	// Data types.
	BYTE           = gl.BYTE
	UNSIGNED_BYTE  = gl.UNSIGNED_BYTE
	SHORT          = gl.SHORT
	UNSIGNED_SHORT = gl.UNSIGNED_SHORT
	INT            = gl.INT
	UNSIGNED_INT   = gl.UNSIGNED_INT
	FLOAT          = gl.FLOAT
	FIXED          = gl.FIXED

	// Pixel formats.
	DEPTH_COMPONENT = gl.DEPTH_COMPONENT
	ALPHA           = gl.ALPHA
	RGB             = gl.RGB
	RGBA            = gl.RGBA
	LUMINANCE       = gl.LUMINANCE
	LUMINANCE_ALPHA = gl.LUMINANCE_ALPHA

	// Packed pixel types.
	UNSIGNED_SHORT_4_4_4_4 = gl.UNSIGNED_SHORT_4_4_4_4
	UNSIGNED_SHORT_5_5_5_1 = gl.UNSIGNED_SHORT_5_5_5_1
	UNSIGNED_SHORT_5_6_5   = gl.UNSIGNED_SHORT_5_6_5

	// Shaders.
	FRAGMENT_SHADER                  = gl.FRAGMENT_SHADER
	VERTEX_SHADER                    = gl.VERTEX_SHADER
	MAX_VERTEX_ATTRIBS               = gl.MAX_VERTEX_ATTRIBS
	MAX_VERTEX_UNIFORM_VECTORS       = gl.MAX_VERTEX_UNIFORM_VECTORS
	MAX_VARYING_VECTORS              = gl.MAX_VARYING_VECTORS
	MAX_COMBINED_TEXTURE_IMAGE_UNITS = gl.MAX_COMBINED_TEXTURE_IMAGE_UNITS
	MAX_VERTEX_TEXTURE_IMAGE_UNITS   = gl.MAX_VERTEX_TEXTURE_IMAGE_UNITS
	MAX_TEXTURE_IMAGE_UNITS          = gl.MAX_TEXTURE_IMAGE_UNITS
	MAX_FRAGMENT_UNIFORM_VECTORS     = gl.MAX_FRAGMENT_UNIFORM_VECTORS
	SHADER_TYPE                      = gl.SHADER_TYPE
	DELETE_STATUS                    = gl.DELETE_STATUS
	LINK_STATUS                      = gl.LINK_STATUS
	VALIDATE_STATUS                  = gl.VALIDATE_STATUS
	ATTACHED_SHADERS                 = gl.ATTACHED_SHADERS
	ACTIVE_UNIFORMS                  = gl.ACTIVE_UNIFORMS
	ACTIVE_UNIFORM_MAX_LENGTH        = gl.ACTIVE_UNIFORM_MAX_LENGTH
	ACTIVE_ATTRIBUTES                = gl.ACTIVE_ATTRIBUTES
	ACTIVE_ATTRIBUTE_MAX_LENGTH      = gl.ACTIVE_ATTRIBUTE_MAX_LENGTH
	SHADING_LANGUAGE_VERSION         = gl.SHADING_LANGUAGE_VERSION
	CURRENT_PROGRAM                  = gl.CURRENT_PROGRAM

	// Stencil functions and operations.
	NEVER     = gl.NEVER
	LESS      = gl.LESS
	EQUAL     = gl.EQUAL
	LEQUAL    = gl.LEQUAL
	GREATER   = gl.GREATER
	NOTEQUAL  = gl.NOTEQUAL
	GEQUAL    = gl.GEQUAL
	ALWAYS    = gl.ALWAYS
	KEEP      = gl.KEEP
	REPLACE   = gl.REPLACE
	INCR      = gl.INCR
	DECR      = gl.DECR
	INVERT    = gl.INVERT
	INCR_WRAP = gl.INCR_WRAP
	DECR_WRAP = gl.DECR_WRAP

	// Strings.
	VENDOR     = gl.VENDOR
	RENDERER   = gl.RENDERER
	VERSION    = gl.VERSION
	EXTENSIONS = gl.EXTENSIONS

	// Texture parameters.
	NEAREST                = gl.NEAREST
	LINEAR                 = gl.LINEAR
	NEAREST_MIPMAP_NEAREST = gl.NEAREST_MIPMAP_NEAREST
	LINEAR_MIPMAP_NEAREST  = gl.LINEAR_MIPMAP_NEAREST
	NEAREST_MIPMAP_LINEAR  = gl.NEAREST_MIPMAP_LINEAR
	LINEAR_MIPMAP_LINEAR   = gl.LINEAR_MIPMAP_LINEAR
	TEXTURE_MAG_FILTER     = gl.TEXTURE_MAG_FILTER
	TEXTURE_MIN_FILTER     = gl.TEXTURE_MIN_FILTER
	TEXTURE_WRAP_S         = gl.TEXTURE_WRAP_S
	TEXTURE_WRAP_T         = gl.TEXTURE_WRAP_T
	TEXTURE                = gl.TEXTURE

	TEXTURE_CUBE_MAP            = gl.TEXTURE_CUBE_MAP
	TEXTURE_BINDING_CUBE_MAP    = gl.TEXTURE_BINDING_CUBE_MAP
	TEXTURE_CUBE_MAP_POSITIVE_X = gl.TEXTURE_CUBE_MAP_POSITIVE_X
	TEXTURE_CUBE_MAP_NEGATIVE_X = gl.TEXTURE_CUBE_MAP_NEGATIVE_X
	TEXTURE_CUBE_MAP_POSITIVE_Y = gl.TEXTURE_CUBE_MAP_POSITIVE_Y
	TEXTURE_CUBE_MAP_NEGATIVE_Y = gl.TEXTURE_CUBE_MAP_NEGATIVE_Y
	TEXTURE_CUBE_MAP_POSITIVE_Z = gl.TEXTURE_CUBE_MAP_POSITIVE_Z
	TEXTURE_CUBE_MAP_NEGATIVE_Z = gl.TEXTURE_CUBE_MAP_NEGATIVE_Z
	MAX_CUBE_MAP_TEXTURE_SIZE   = gl.MAX_CUBE_MAP_TEXTURE_SIZE
	TEXTURE0                    = gl.TEXTURE0
	ACTIVE_TEXTURE              = gl.ACTIVE_TEXTURE
	REPEAT                      = gl.REPEAT
	CLAMP_TO_EDGE               = gl.CLAMP_TO_EDGE
	MIRRORED_REPEAT             = gl.MIRRORED_REPEAT

	// Uniform types.
	FLOAT_VEC2   = gl.FLOAT_VEC2
	FLOAT_VEC3   = gl.FLOAT_VEC3
	FLOAT_VEC4   = gl.FLOAT_VEC4
	INT_VEC2     = gl.INT_VEC2
	INT_VEC3     = gl.INT_VEC3
	INT_VEC4     = gl.INT_VEC4
	BOOL         = gl.BOOL
	BOOL_VEC2    = gl.BOOL_VEC2
	BOOL_VEC3    = gl.BOOL_VEC3
	BOOL_VEC4    = gl.BOOL_VEC4
	FLOAT_MAT2   = gl.FLOAT_MAT2
	FLOAT_MAT3   = gl.FLOAT_MAT3
	FLOAT_MAT4   = gl.FLOAT_MAT4
	SAMPLER_2D   = gl.SAMPLER_2D
	SAMPLER_CUBE = gl.SAMPLER_CUBE

	// Vertex arrays.
	VERTEX_ATTRIB_ARRAY_ENABLED        = gl.VERTEX_ATTRIB_ARRAY_ENABLED
	VERTEX_ATTRIB_ARRAY_SIZE           = gl.VERTEX_ATTRIB_ARRAY_SIZE
	VERTEX_ATTRIB_ARRAY_STRIDE         = gl.VERTEX_ATTRIB_ARRAY_STRIDE
	VERTEX_ATTRIB_ARRAY_TYPE           = gl.VERTEX_ATTRIB_ARRAY_TYPE
	VERTEX_ATTRIB_ARRAY_NORMALIZED     = gl.VERTEX_ATTRIB_ARRAY_NORMALIZED
	VERTEX_ATTRIB_ARRAY_POINTER        = gl.VERTEX_ATTRIB_ARRAY_POINTER
	VERTEX_ATTRIB_ARRAY_BUFFER_BINDING = gl.VERTEX_ATTRIB_ARRAY_BUFFER_BINDING

	// Shader queries.
	COMPILE_STATUS            = gl.COMPILE_STATUS
	INFO_LOG_LENGTH           = gl.INFO_LOG_LENGTH
	SHADER_SOURCE_LENGTH      = gl.SHADER_SOURCE_LENGTH
	SHADER_COMPILER           = gl.SHADER_COMPILER
	SHADER_BINARY_FORMATS     = gl.SHADER_BINARY_FORMATS
	NUM_SHADER_BINARY_FORMATS = gl.NUM_SHADER_BINARY_FORMATS
	LOW_FLOAT                 = gl.LOW_FLOAT
	MEDIUM_FLOAT              = gl.MEDIUM_FLOAT
	HIGH_FLOAT                = gl.HIGH_FLOAT
	LOW_INT                   = gl.LOW_INT
	MEDIUM_INT                = gl.MEDIUM_INT
	HIGH_INT                  = gl.HIGH_INT

	// Framebuffer objects.
	FRAMEBUFFER                                  = gl.FRAMEBUFFER
	RENDERBUFFER                                 = gl.RENDERBUFFER
	RGBA4                                        = gl.RGBA4
	RGB5_A1                                      = gl.RGB5_A1
	RGB565                                       = gl.RGB565
	DEPTH_COMPONENT16                            = gl.DEPTH_COMPONENT16
	STENCIL_INDEX8                               = gl.STENCIL_INDEX8
	RENDERBUFFER_WIDTH                           = gl.RENDERBUFFER_WIDTH
	RENDERBUFFER_HEIGHT                          = gl.RENDERBUFFER_HEIGHT
	RENDERBUFFER_INTERNAL_FORMAT                 = gl.RENDERBUFFER_INTERNAL_FORMAT
	RENDERBUFFER_RED_SIZE                        = gl.RENDERBUFFER_RED_SIZE
	RENDERBUFFER_GREEN_SIZE                      = gl.RENDERBUFFER_GREEN_SIZE
	RENDERBUFFER_BLUE_SIZE                       = gl.RENDERBUFFER_BLUE_SIZE
	RENDERBUFFER_ALPHA_SIZE                      = gl.RENDERBUFFER_ALPHA_SIZE
	RENDERBUFFER_DEPTH_SIZE                      = gl.RENDERBUFFER_DEPTH_SIZE
	RENDERBUFFER_STENCIL_SIZE                    = gl.RENDERBUFFER_STENCIL_SIZE
	FRAMEBUFFER_ATTACHMENT_OBJECT_TYPE           = gl.FRAMEBUFFER_ATTACHMENT_OBJECT_TYPE
	FRAMEBUFFER_ATTACHMENT_OBJECT_NAME           = gl.FRAMEBUFFER_ATTACHMENT_OBJECT_NAME
	FRAMEBUFFER_ATTACHMENT_TEXTURE_LEVEL         = gl.FRAMEBUFFER_ATTACHMENT_TEXTURE_LEVEL
	FRAMEBUFFER_ATTACHMENT_TEXTURE_CUBE_MAP_FACE = gl.FRAMEBUFFER_ATTACHMENT_TEXTURE_CUBE_MAP_FACE
	COLOR_ATTACHMENT0                            = gl.COLOR_ATTACHMENT0
	DEPTH_ATTACHMENT                             = gl.DEPTH_ATTACHMENT
	STENCIL_ATTACHMENT                           = gl.STENCIL_ATTACHMENT
	NONE                                         = gl.NONE
	FRAMEBUFFER_COMPLETE                         = gl.FRAMEBUFFER_COMPLETE
	FRAMEBUFFER_INCOMPLETE_ATTACHMENT            = gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT
	FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT    = gl.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT
	FRAMEBUFFER_INCOMPLETE_DIMENSIONS            = gl.FRAMEBUFFER_INCOMPLETE_DIMENSIONS
	FRAMEBUFFER_UNSUPPORTED                      = gl.FRAMEBUFFER_UNSUPPORTED
	FRAMEBUFFER_BINDING                          = gl.FRAMEBUFFER_BINDING
	RENDERBUFFER_BINDING                         = gl.RENDERBUFFER_BINDING
	MAX_RENDERBUFFER_SIZE                        = gl.MAX_RENDERBUFFER_SIZE

	// OES_rgb8_rgba8, OES_packed_depth_stencil.
	RGB8_OES              = gl.RGB8_OES
	RGBA8_OES             = gl.RGBA8_OES
	DEPTH_STENCIL_OES     = gl.DEPTH_STENCIL_OES
	UNSIGNED_INT_24_8_OES = gl.UNSIGNED_INT_24_8_OES
	DEPTH24_STENCIL8_OES  = gl.DEPTH24_STENCIL8_OES
	DEPTH_COMPONENT24_OES = gl.DEPTH_COMPONENT24_OES

	// OES_get_program_binary.
	PROGRAM_BINARY_LENGTH_OES      = gl.PROGRAM_BINARY_LENGTH_OES
	NUM_PROGRAM_BINARY_FORMATS_OES = gl.NUM_PROGRAM_BINARY_FORMATS_OES
	PROGRAM_BINARY_FORMATS_OES     = gl.PROGRAM_BINARY_FORMATS_OES

	// Program binary formats produced by this implementation.
	GLOVE_BINARY_X86 = gl.GLOVE_BINARY_X86
	GLOVE_BINARY_ARM = gl.GLOVE_BINARY_ARM
	GLOVE_BINARY_DEV = gl.GLOVE_BINARY_DEV
)
