// SPDX-License-Identifier: Unlicense OR MIT

// Package driver abstracts the explicit GPU objects the GLES state
// tracker translates into: buffers, images, render passes, descriptor
// sets, pipelines, command buffers and synchronization primitives.
package driver

import (
	"image"

	"gioui.org/shader"
	"github.com/pkg/errors"
)

// Device represents the abstraction of an explicit GPU API such as Vulkan.
// Object creation is synchronous; recording happens through CommandBuffer
// and execution through Submit.
type Device interface {
	Caps() Caps
	NewBuffer(usage BufferUsage, size int) (Buffer, error)
	NewImage(desc ImageDesc) (Image, error)
	NewSampler(desc SamplerDesc) (Sampler, error)
	NewShaderModule(stage ShaderStage, src shader.Sources) (ShaderModule, error)
	NewRenderPass(desc RenderPassDesc) (RenderPass, error)
	NewFramebuffer(rp RenderPass, attachments []Attachment, width, height int) (Framebuffer, error)
	NewDescriptorSetLayout(bindings []DescriptorBinding) (DescriptorSetLayout, error)
	NewDescriptorSet(layout DescriptorSetLayout) (DescriptorSet, error)
	NewPipelineLayout(set DescriptorSetLayout, pushConstantSize int) (PipelineLayout, error)
	NewPipelineCache(initial []byte) (PipelineCache, error)
	NewPipeline(desc PipelineDesc) (Pipeline, error)
	NewCommandBuffer() (CommandBuffer, error)
	NewFence() (Fence, error)
	NewSemaphore() (Semaphore, error)

	// Submit queues a recorded command buffer for execution.
	Submit(s Submission) error
	// WaitIdle blocks until the device has finished all submitted work.
	WaitIdle() error

	Release()
}

// Resource is any object owned by a Device.
type Resource interface {
	Release()
}

type Buffer interface {
	Resource
	Size() int
	// Upload copies data into the buffer at offset. Buffers are host
	// visible; the caller must not write to a buffer in use by the GPU.
	Upload(offset int, data []byte)
	Download(offset int, data []byte) error
}

type Image interface {
	Resource
	Desc() ImageDesc
	// Upload replaces rect of the given cube face (or 0) and mip level
	// with tightly packed pixels in the image format.
	Upload(layer, level int, rect image.Rectangle, pixels []byte) error
	Download(layer, level int, rect image.Rectangle, pixels []byte) error
}

type Sampler interface {
	Resource
}

type ShaderModule interface {
	Resource
	Stage() ShaderStage
}

type RenderPass interface {
	Resource
	Desc() RenderPassDesc
}

type Framebuffer interface {
	Resource
	Size() image.Point
}

type DescriptorSetLayout interface {
	Resource
	Bindings() []DescriptorBinding
}

// DescriptorSet is a set of resource bindings. Updates take effect
// immediately and must not target a set in use by the GPU.
type DescriptorSet interface {
	Resource
	SetBuffer(binding int, buf Buffer, offset, size int)
	SetTexture(binding, elem int, img Image, s Sampler)
}

type PipelineLayout interface {
	Resource
}

type PipelineCache interface {
	Resource
	// Data returns the opaque, driver specific cache contents.
	Data() ([]byte, error)
}

type Pipeline interface {
	Resource
}

// CommandBuffer records GPU commands. Commands are only valid between
// Begin and End.
type CommandBuffer interface {
	Resource
	Begin() error
	End() error
	Reset() error

	BeginRenderPass(rp RenderPass, fb Framebuffer, area image.Rectangle, clear ClearValues)
	EndRenderPass()
	BindPipeline(p Pipeline)
	BindVertexBuffers(first int, bufs []Buffer, offsets []int)
	BindIndexBuffer(buf Buffer, offset int, typ IndexType)
	BindDescriptorSet(layout PipelineLayout, set DescriptorSet)
	PushConstants(layout PipelineLayout, stages ShaderStage, offset int, data []byte)
	SetViewport(v Viewport)
	SetScissor(r image.Rectangle)
	Draw(vertexCount, firstVertex int)
	DrawIndexed(indexCount, firstIndex, vertexOffset int)
	ClearAttachments(clears []ClearAttachment, rect image.Rectangle)
}

type Fence interface {
	Resource
	// Wait blocks until the fence is signaled or timeout nanoseconds
	// elapse. A zero timeout waits forever.
	Wait(timeout uint64) error
	Reset() error
}

type Semaphore interface {
	Resource
}

type Submission struct {
	CommandBuffer CommandBuffer
	Wait          []Semaphore
	Signal        []Semaphore
	Fence         Fence
}

type Caps struct {
	MaxImageDimension2D      int
	MaxImageDimensionCube    int
	MaxVertexInputBindings   int
	MaxVertexInputAttributes int
	MaxLineWidth             float32
	// DepthStencilFormat is the combined depth/stencil format supported
	// as an attachment.
	DepthStencilFormat Format
	// MinUniformBufferOffsetAlignment is the alignment required by
	// DescriptorSet.SetBuffer offsets.
	MinUniformBufferOffsetAlignment int
}

type ImageDesc struct {
	Format Format
	Width  int
	Height int
	Levels int
	// Layers is 6 for cube images, 1 otherwise.
	Layers int
	Usage  ImageUsage
}

type Attachment struct {
	Image Image
	Level int
	Layer int
}

type SamplerDesc struct {
	MinFilter Filter
	MagFilter Filter
	Mipmap    MipmapMode
	WrapS     Wrap
	WrapT     Wrap
	MaxLod    float32
}

type AttachmentDesc struct {
	// Format is FormatUndefined for absent attachments.
	Format      Format
	Load        LoadOp
	StencilLoad LoadOp
}

type RenderPassDesc struct {
	Color        AttachmentDesc
	DepthStencil AttachmentDesc
}

type DescriptorBinding struct {
	Binding int
	Type    DescriptorType
	Stages  ShaderStage
	// Count is the number of array elements; 0 means 1.
	Count int
}

type VertexBinding struct {
	Binding int
	Stride  int
}

type VertexAttribute struct {
	Location int
	Binding  int
	Format   VertexFormat
	Offset   int
}

// VertexFormat describes the in-memory layout of one vertex attribute.
type VertexFormat struct {
	Type       VertexType
	Size       int
	Normalized bool
}

type StencilOpState struct {
	Fail        StencilOp
	Pass        StencilOp
	DepthFail   StencilOp
	Compare     CompareOp
	CompareMask uint32
	WriteMask   uint32
	Reference   uint32
}

type RasterizationDesc struct {
	CullMode          CullMode
	FrontFace         FrontFace
	DepthBias         bool
	DepthBiasConstant float32
	DepthBiasSlope    float32
	LineWidth         float32
}

type DepthStencilDesc struct {
	DepthTest    bool
	DepthWrite   bool
	DepthCompare CompareOp
	StencilTest  bool
	Front        StencilOpState
	Back         StencilOpState
}

type BlendDesc struct {
	Enable    bool
	SrcColor  BlendFactor
	DstColor  BlendFactor
	SrcAlpha  BlendFactor
	DstAlpha  BlendFactor
	ColorOp   BlendOp
	AlphaOp   BlendOp
	WriteMask ColorMask
	Constant  [4]float32
}

type MultisampleDesc struct {
	AlphaToCoverage bool
	SampleCoverage  bool
	CoverageValue   float32
	CoverageInvert  bool
}

// PipelineDesc is the complete fixed-function and shader state of a
// graphics pipeline. Viewport and scissor are always dynamic.
type PipelineDesc struct {
	VertexShader   ShaderModule
	FragmentShader ShaderModule
	Layout         PipelineLayout
	RenderPass     RenderPass
	Cache          PipelineCache

	VertexBindings   []VertexBinding
	VertexAttributes []VertexAttribute
	Topology         Topology

	Rasterization RasterizationDesc
	DepthStencil  DepthStencilDesc
	Blend         BlendDesc
	Multisample   MultisampleDesc
}

type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

type ClearValues struct {
	Color   [4]float32
	Depth   float32
	Stencil uint32
}

type ClearAttachment struct {
	Aspect Aspect
	Value  ClearValues
}

type BufferUsage uint8

type ImageUsage uint8

type Format uint8

type Filter uint8

type MipmapMode uint8

type Wrap uint8

type LoadOp uint8

type DescriptorType uint8

type ShaderStage uint8

type VertexType uint8

type Topology uint8

type CullMode uint8

type FrontFace uint8

type CompareOp uint8

type StencilOp uint8

type BlendFactor uint8

type BlendOp uint8

type ColorMask uint8

type IndexType uint8

type Aspect uint8

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageTransferSrc
	BufferUsageTransferDst
)

const (
	ImageUsageSampled ImageUsage = 1 << iota
	ImageUsageColorAttachment
	ImageUsageDepthStencilAttachment
	ImageUsageTransfer
)

const (
	FormatUndefined Format = iota
	FormatRGBA8
	FormatBGRA8
	FormatR5G6B5
	FormatD16
	FormatD24S8
	FormatD32S8
	FormatS8
)

const (
	FilterNearest Filter = iota
	FilterLinear
)

const (
	MipmapNone MipmapMode = iota
	MipmapNearest
	MipmapLinear
)

const (
	WrapRepeat Wrap = iota
	WrapClampToEdge
	WrapMirroredRepeat
)

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

const (
	DescriptorUniformBuffer DescriptorType = iota
	DescriptorCombinedImageSampler
)

const (
	StageVertex ShaderStage = 1 << iota
	StageFragment
)

const (
	VertexFloat VertexType = iota
	VertexByte
	VertexUnsignedByte
	VertexShort
	VertexUnsignedShort
)

const (
	TopologyPointList Topology = iota
	TopologyLineList
	TopologyLineStrip
	TopologyTriangleList
	TopologyTriangleStrip
	TopologyTriangleFan
)

const (
	CullNone CullMode = iota
	CullFront
	CullBack
	CullFrontAndBack
)

const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

const (
	CompareNever CompareOp = iota
	CompareLess
	CompareEqual
	CompareLessOrEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterOrEqual
	CompareAlways
)

const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilIncrementClamp
	StencilDecrementClamp
	StencilInvert
	StencilIncrementWrap
	StencilDecrementWrap
)

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcColor
	BlendOneMinusSrcColor
	BlendDstColor
	BlendOneMinusDstColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstAlpha
	BlendOneMinusDstAlpha
	BlendConstantColor
	BlendOneMinusConstantColor
	BlendConstantAlpha
	BlendOneMinusConstantAlpha
	BlendSrcAlphaSaturate
)

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
)

const (
	ColorMaskR ColorMask = 1 << iota
	ColorMaskG
	ColorMaskB
	ColorMaskA

	ColorMaskAll = ColorMaskR | ColorMaskG | ColorMaskB | ColorMaskA
)

const (
	IndexUint16 IndexType = iota
	IndexUint32
)

const (
	AspectColor Aspect = 1 << iota
	AspectDepth
	AspectStencil
)

var (
	// ErrOutOfMemory is returned when host or device memory is exhausted.
	ErrOutOfMemory = errors.New("driver: out of memory")
	ErrTimeout     = errors.New("driver: timeout")
	ErrDeviceLost  = errors.New("driver: device lost")
)

func (f Format) HasDepth() bool {
	switch f {
	case FormatD16, FormatD24S8, FormatD32S8:
		return true
	}
	return false
}

func (f Format) HasStencil() bool {
	switch f {
	case FormatD24S8, FormatD32S8, FormatS8:
		return true
	}
	return false
}

// BytesPerPixel returns the texel size of color formats and the packed
// size of depth/stencil formats as seen by Image.Upload and Download.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatR5G6B5, FormatD16:
		return 2
	case FormatS8:
		return 1
	case FormatD32S8:
		return 8
	default:
		return 4
	}
}

// ByteSize returns the size in bytes of one attribute of format f.
func (f VertexFormat) ByteSize() int {
	switch f.Type {
	case VertexByte, VertexUnsignedByte:
		return f.Size
	case VertexShort, VertexUnsignedShort:
		return 2 * f.Size
	default:
		return 4 * f.Size
	}
}

func (m ColorMask) Has(c ColorMask) bool {
	return m&c == c
}

func (s ShaderStage) Has(st ShaderStage) bool {
	return s&st == st
}
