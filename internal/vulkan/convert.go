// SPDX-License-Identifier: Unlicense OR MIT

//go:build cgo && !novulkan

package vulkan

import (
	"fmt"
	"image"

	vk "github.com/goki/vulkan"

	"glove.dev/internal/driver"
)

func formatFor(f driver.Format) vk.Format {
	switch f {
	case driver.FormatRGBA8:
		return vk.FormatR8g8b8a8Unorm
	case driver.FormatBGRA8:
		return vk.FormatB8g8r8a8Unorm
	case driver.FormatR5G6B5:
		return vk.FormatR5g6b5UnormPack16
	case driver.FormatD16:
		return vk.FormatD16Unorm
	case driver.FormatD24S8:
		return vk.FormatD24UnormS8Uint
	case driver.FormatD32S8:
		return vk.FormatD32SfloatS8Uint
	case driver.FormatS8:
		return vk.FormatS8Uint
	}
	panic(fmt.Errorf("vulkan: unsupported format %d", f))
}

func aspectFor(f driver.Format) vk.ImageAspectFlagBits {
	var a vk.ImageAspectFlagBits
	if f.HasDepth() {
		a |= vk.ImageAspectDepthBit
	}
	if f.HasStencil() {
		a |= vk.ImageAspectStencilBit
	}
	if a == 0 {
		a = vk.ImageAspectColorBit
	}
	return a
}

func bufferUsage(u driver.BufferUsage) vk.BufferUsageFlagBits {
	var flags vk.BufferUsageFlagBits
	if u&driver.BufferUsageVertex != 0 {
		flags |= vk.BufferUsageVertexBufferBit
	}
	if u&driver.BufferUsageIndex != 0 {
		flags |= vk.BufferUsageIndexBufferBit
	}
	if u&driver.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageUniformBufferBit
	}
	if u&driver.BufferUsageTransferSrc != 0 {
		flags |= vk.BufferUsageTransferSrcBit
	}
	if u&driver.BufferUsageTransferDst != 0 {
		flags |= vk.BufferUsageTransferDstBit
	}
	return flags
}

func imageUsage(desc driver.ImageDesc) vk.ImageUsageFlagBits {
	var flags vk.ImageUsageFlagBits
	u := desc.Usage
	if u&driver.ImageUsageSampled != 0 {
		flags |= vk.ImageUsageSampledBit
	}
	if u&driver.ImageUsageColorAttachment != 0 {
		flags |= vk.ImageUsageColorAttachmentBit
	}
	if u&driver.ImageUsageDepthStencilAttachment != 0 {
		flags |= vk.ImageUsageDepthStencilAttachmentBit
	}
	// Color images are always copyable for Upload and Download.
	if u&driver.ImageUsageTransfer != 0 || !desc.Format.HasDepth() && !desc.Format.HasStencil() {
		flags |= vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit
	}
	return flags
}

func filterFor(f driver.Filter) vk.Filter {
	if f == driver.FilterLinear {
		return vk.FilterLinear
	}
	return vk.FilterNearest
}

func wrapFor(w driver.Wrap) vk.SamplerAddressMode {
	switch w {
	case driver.WrapClampToEdge:
		return vk.SamplerAddressModeClampToEdge
	case driver.WrapMirroredRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	default:
		return vk.SamplerAddressModeRepeat
	}
}

func loadOpFor(op driver.LoadOp) vk.AttachmentLoadOp {
	switch op {
	case driver.LoadOpClear:
		return vk.AttachmentLoadOpClear
	case driver.LoadOpDontCare:
		return vk.AttachmentLoadOpDontCare
	default:
		return vk.AttachmentLoadOpLoad
	}
}

func stagesFor(s driver.ShaderStage) vk.ShaderStageFlagBits {
	var flags vk.ShaderStageFlagBits
	if s.Has(driver.StageVertex) {
		flags |= vk.ShaderStageVertexBit
	}
	if s.Has(driver.StageFragment) {
		flags |= vk.ShaderStageFragmentBit
	}
	return flags
}

func descriptorTypeFor(t driver.DescriptorType) vk.DescriptorType {
	if t == driver.DescriptorCombinedImageSampler {
		return vk.DescriptorTypeCombinedImageSampler
	}
	return vk.DescriptorTypeUniformBuffer
}

var vertexFormats = map[driver.VertexType][2][4]vk.Format{
	// Unnormalized, then normalized, by component count.
	driver.VertexFloat: {
		{vk.FormatR32Sfloat, vk.FormatR32g32Sfloat, vk.FormatR32g32b32Sfloat, vk.FormatR32g32b32a32Sfloat},
		{vk.FormatR32Sfloat, vk.FormatR32g32Sfloat, vk.FormatR32g32b32Sfloat, vk.FormatR32g32b32a32Sfloat},
	},
	driver.VertexByte: {
		{vk.FormatR8Sscaled, vk.FormatR8g8Sscaled, vk.FormatR8g8b8Sscaled, vk.FormatR8g8b8a8Sscaled},
		{vk.FormatR8Snorm, vk.FormatR8g8Snorm, vk.FormatR8g8b8Snorm, vk.FormatR8g8b8a8Snorm},
	},
	driver.VertexUnsignedByte: {
		{vk.FormatR8Uscaled, vk.FormatR8g8Uscaled, vk.FormatR8g8b8Uscaled, vk.FormatR8g8b8a8Uscaled},
		{vk.FormatR8Unorm, vk.FormatR8g8Unorm, vk.FormatR8g8b8Unorm, vk.FormatR8g8b8a8Unorm},
	},
	driver.VertexShort: {
		{vk.FormatR16Sscaled, vk.FormatR16g16Sscaled, vk.FormatR16g16b16Sscaled, vk.FormatR16g16b16a16Sscaled},
		{vk.FormatR16Snorm, vk.FormatR16g16Snorm, vk.FormatR16g16b16Snorm, vk.FormatR16g16b16a16Snorm},
	},
	driver.VertexUnsignedShort: {
		{vk.FormatR16Uscaled, vk.FormatR16g16Uscaled, vk.FormatR16g16b16Uscaled, vk.FormatR16g16b16a16Uscaled},
		{vk.FormatR16Unorm, vk.FormatR16g16Unorm, vk.FormatR16g16b16Unorm, vk.FormatR16g16b16a16Unorm},
	},
}

func vertexFormatFor(f driver.VertexFormat) vk.Format {
	norm := 0
	if f.Normalized {
		norm = 1
	}
	return vertexFormats[f.Type][norm][f.Size-1]
}

// The topology, compare, stencil and blend enums of the driver package
// share the numbering of their Vulkan counterparts.

func topologyFor(t driver.Topology) vk.PrimitiveTopology {
	return vk.PrimitiveTopology(t)
}

func compareFor(op driver.CompareOp) vk.CompareOp {
	return vk.CompareOp(op)
}

func blendFactorFor(f driver.BlendFactor) vk.BlendFactor {
	return vk.BlendFactor(f)
}

func blendOpFor(op driver.BlendOp) vk.BlendOp {
	return vk.BlendOp(op)
}

func stencilStateFor(s driver.StencilOpState) vk.StencilOpState {
	return vk.StencilOpState{
		FailOp:      vk.StencilOp(s.Fail),
		PassOp:      vk.StencilOp(s.Pass),
		DepthFailOp: vk.StencilOp(s.DepthFail),
		CompareOp:   compareFor(s.Compare),
		CompareMask: s.CompareMask,
		WriteMask:   s.WriteMask,
		Reference:   s.Reference,
	}
}

func cullModeFor(m driver.CullMode) vk.CullModeFlagBits {
	switch m {
	case driver.CullFront:
		return vk.CullModeFrontBit
	case driver.CullBack:
		return vk.CullModeBackBit
	case driver.CullFrontAndBack:
		return vk.CullModeFrontAndBack
	default:
		return vk.CullModeNone
	}
}

func frontFaceFor(f driver.FrontFace) vk.FrontFace {
	if f == driver.FrontFaceClockwise {
		return vk.FrontFaceClockwise
	}
	return vk.FrontFaceCounterClockwise
}

func rect2D(r image.Rectangle) vk.Rect2D {
	return vk.Rect2D{
		Offset: vk.Offset2D{X: int32(r.Min.X), Y: int32(r.Min.Y)},
		Extent: vk.Extent2D{Width: uint32(r.Dx()), Height: uint32(r.Dy())},
	}
}

func clearColor(v driver.ClearValues) vk.ClearValue {
	return vk.NewClearValue(v.Color[:])
}

func clearDepthStencil(v driver.ClearValues) vk.ClearValue {
	return vk.NewClearDepthStencil(v.Depth, v.Stencil)
}
