// SPDX-License-Identifier: Unlicense OR MIT

package pipeline

import (
	"fmt"

	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

// Topology converts a GL primitive mode. LINE_LOOP is drawn as a line
// strip closed by an extra index.
func Topology(mode gl.Enum) (driver.Topology, bool) {
	switch mode {
	case gl.POINTS:
		return driver.TopologyPointList, true
	case gl.LINES:
		return driver.TopologyLineList, true
	case gl.LINE_STRIP, gl.LINE_LOOP:
		return driver.TopologyLineStrip, true
	case gl.TRIANGLES:
		return driver.TopologyTriangleList, true
	case gl.TRIANGLE_STRIP:
		return driver.TopologyTriangleStrip, true
	case gl.TRIANGLE_FAN:
		return driver.TopologyTriangleFan, true
	}
	return 0, false
}

func toCullMode(enabled bool, mode gl.Enum) driver.CullMode {
	if !enabled {
		return driver.CullNone
	}
	switch mode {
	case gl.FRONT:
		return driver.CullFront
	case gl.BACK:
		return driver.CullBack
	case gl.FRONT_AND_BACK:
		return driver.CullFrontAndBack
	default:
		panic(fmt.Errorf("unsupported cull mode %v", mode))
	}
}

// toFrontFace converts the GL winding. Rendering keeps GL's bottom-up
// row order, so Vulkan sees every primitive mirrored vertically and the
// winding is inverted.
func toFrontFace(mode gl.Enum) driver.FrontFace {
	if mode == gl.CW {
		return driver.FrontFaceCounterClockwise
	}
	return driver.FrontFaceClockwise
}

func toCompareOp(f gl.Enum) driver.CompareOp {
	switch f {
	case gl.NEVER:
		return driver.CompareNever
	case gl.LESS:
		return driver.CompareLess
	case gl.EQUAL:
		return driver.CompareEqual
	case gl.LEQUAL:
		return driver.CompareLessOrEqual
	case gl.GREATER:
		return driver.CompareGreater
	case gl.NOTEQUAL:
		return driver.CompareNotEqual
	case gl.GEQUAL:
		return driver.CompareGreaterOrEqual
	case gl.ALWAYS:
		return driver.CompareAlways
	default:
		panic(fmt.Errorf("unsupported compare function %v", f))
	}
}

func toStencilOp(op gl.Enum) driver.StencilOp {
	switch op {
	case gl.KEEP:
		return driver.StencilKeep
	case gl.ZERO:
		return driver.StencilZero
	case gl.REPLACE:
		return driver.StencilReplace
	case gl.INCR:
		return driver.StencilIncrementClamp
	case gl.DECR:
		return driver.StencilDecrementClamp
	case gl.INVERT:
		return driver.StencilInvert
	case gl.INCR_WRAP:
		return driver.StencilIncrementWrap
	case gl.DECR_WRAP:
		return driver.StencilDecrementWrap
	default:
		panic(fmt.Errorf("unsupported stencil operation %v", op))
	}
}

func toBlendFactor(f gl.Enum) driver.BlendFactor {
	switch f {
	case gl.ZERO:
		return driver.BlendZero
	case gl.ONE:
		return driver.BlendOne
	case gl.SRC_COLOR:
		return driver.BlendSrcColor
	case gl.ONE_MINUS_SRC_COLOR:
		return driver.BlendOneMinusSrcColor
	case gl.DST_COLOR:
		return driver.BlendDstColor
	case gl.ONE_MINUS_DST_COLOR:
		return driver.BlendOneMinusDstColor
	case gl.SRC_ALPHA:
		return driver.BlendSrcAlpha
	case gl.ONE_MINUS_SRC_ALPHA:
		return driver.BlendOneMinusSrcAlpha
	case gl.DST_ALPHA:
		return driver.BlendDstAlpha
	case gl.ONE_MINUS_DST_ALPHA:
		return driver.BlendOneMinusDstAlpha
	case gl.CONSTANT_COLOR:
		return driver.BlendConstantColor
	case gl.ONE_MINUS_CONSTANT_COLOR:
		return driver.BlendOneMinusConstantColor
	case gl.CONSTANT_ALPHA:
		return driver.BlendConstantAlpha
	case gl.ONE_MINUS_CONSTANT_ALPHA:
		return driver.BlendOneMinusConstantAlpha
	case gl.SRC_ALPHA_SATURATE:
		return driver.BlendSrcAlphaSaturate
	default:
		panic(fmt.Errorf("unsupported blend factor %v", f))
	}
}

func toBlendOp(eq gl.Enum) driver.BlendOp {
	switch eq {
	case gl.FUNC_ADD:
		return driver.BlendOpAdd
	case gl.FUNC_SUBTRACT:
		return driver.BlendOpSubtract
	case gl.FUNC_REVERSE_SUBTRACT:
		return driver.BlendOpReverseSubtract
	default:
		panic(fmt.Errorf("unsupported blend equation %v", eq))
	}
}

func toColorMask(m [4]bool) driver.ColorMask {
	var c driver.ColorMask
	for i, bit := range []driver.ColorMask{driver.ColorMaskR, driver.ColorMaskG, driver.ColorMaskB, driver.ColorMaskA} {
		if m[i] {
			c |= bit
		}
	}
	return c
}

// VertexType converts a GL vertex attribute component type.
func VertexType(t gl.Enum) (driver.VertexType, bool) {
	switch t {
	case gl.FLOAT:
		return driver.VertexFloat, true
	case gl.BYTE:
		return driver.VertexByte, true
	case gl.UNSIGNED_BYTE:
		return driver.VertexUnsignedByte, true
	case gl.SHORT:
		return driver.VertexShort, true
	case gl.UNSIGNED_SHORT:
		return driver.VertexUnsignedShort, true
	}
	return 0, false
}
