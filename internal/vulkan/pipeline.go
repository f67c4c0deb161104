// SPDX-License-Identifier: Unlicense OR MIT

//go:build cgo && !novulkan

package vulkan

import (
	"image"
	"unsafe"

	"gioui.org/shader"
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"glove.dev/internal/driver"
)

type ShaderModule struct {
	backend *Backend
	stage   driver.ShaderStage
	mod     vk.ShaderModule
}

type RenderPass struct {
	backend *Backend
	desc    driver.RenderPassDesc
	pass    vk.RenderPass
}

type Framebuffer struct {
	backend *Backend
	fbo     vk.Framebuffer
	size    image.Point
}

type DescriptorSetLayout struct {
	backend  *Backend
	bindings []driver.DescriptorBinding
	layout   vk.DescriptorSetLayout
	sizes    []vk.DescriptorPoolSize
	// pools are allocated from in order; a new pool is added when the
	// last one is exhausted.
	pools []*descPool
}

type descPool struct {
	pool vk.DescriptorPool
	live bool
}

type DescriptorSet struct {
	backend *Backend
	pool    *descPool
	set     vk.DescriptorSet
}

type PipelineLayout struct {
	backend *Backend
	layout  vk.PipelineLayout
}

type PipelineCache struct {
	backend *Backend
	cache   vk.PipelineCache
}

type Pipeline struct {
	backend *Backend
	pipe    vk.Pipeline
}

// descPoolSets is the number of sets of each pool.
const descPoolSets = 64

func (b *Backend) NewShaderModule(stage driver.ShaderStage, src shader.Sources) (driver.ShaderModule, error) {
	if len(src.SPIRV) == 0 || len(src.SPIRV)%4 != 0 {
		return nil, errors.Errorf("vulkan: invalid SPIR-V for %s", src.Name)
	}
	code := []byte(src.SPIRV)
	m := &ShaderModule{backend: b, stage: stage}
	err := vkErr(vk.CreateShaderModule(b.dev, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    unsafe.Slice((*uint32)(unsafe.Pointer(&code[0])), len(code)/4),
	}, nil, &m.mod), "vkCreateShaderModule")
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ShaderModule) Stage() driver.ShaderStage {
	return m.stage
}

func (m *ShaderModule) Release() {
	vk.DestroyShaderModule(m.backend.dev, m.mod, nil)
	*m = ShaderModule{}
}

func (b *Backend) NewRenderPass(desc driver.RenderPassDesc) (driver.RenderPass, error) {
	var (
		atts    []vk.AttachmentDescription
		colors  []vk.AttachmentReference
		depthSt *vk.AttachmentReference
	)
	if f := desc.Color.Format; f != driver.FormatUndefined {
		colors = append(colors, vk.AttachmentReference{
			Attachment: uint32(len(atts)),
			Layout:     vk.ImageLayoutGeneral,
		})
		atts = append(atts, vk.AttachmentDescription{
			Format:         formatFor(f),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOpFor(desc.Color.Load),
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutGeneral,
			FinalLayout:    vk.ImageLayoutGeneral,
		})
	}
	if f := desc.DepthStencil.Format; f != driver.FormatUndefined {
		depthSt = &vk.AttachmentReference{
			Attachment: uint32(len(atts)),
			Layout:     vk.ImageLayoutGeneral,
		}
		atts = append(atts, vk.AttachmentDescription{
			Format:         formatFor(f),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOpFor(desc.DepthStencil.Load),
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  loadOpFor(desc.DepthStencil.StencilLoad),
			StencilStoreOp: vk.AttachmentStoreOpStore,
			InitialLayout:  vk.ImageLayoutGeneral,
			FinalLayout:    vk.ImageLayoutGeneral,
		})
	}
	// Order the pass against all work before and after it.
	stages := vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	access := vk.AccessFlags(vk.AccessMemoryReadBit | vk.AccessMemoryWriteBit)
	deps := []vk.SubpassDependency{
		{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  stages,
			DstStageMask:  stages,
			SrcAccessMask: access,
			DstAccessMask: access,
		},
		{
			SrcSubpass:    0,
			DstSubpass:    vk.SubpassExternal,
			SrcStageMask:  stages,
			DstStageMask:  stages,
			SrcAccessMask: access,
			DstAccessMask: access,
		},
	}
	rp := &RenderPass{backend: b, desc: desc}
	err := vkErr(vk.CreateRenderPass(b.dev, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(atts)),
		PAttachments:    atts,
		SubpassCount:    1,
		PSubpasses: []vk.SubpassDescription{{
			PipelineBindPoint:       vk.PipelineBindPointGraphics,
			ColorAttachmentCount:    uint32(len(colors)),
			PColorAttachments:       colors,
			PDepthStencilAttachment: depthSt,
		}},
		DependencyCount: uint32(len(deps)),
		PDependencies:   deps,
	}, nil, &rp.pass), "vkCreateRenderPass")
	if err != nil {
		return nil, err
	}
	b.log.Debug("vulkan render pass", "color", desc.Color.Format, "depthStencil", desc.DepthStencil.Format)
	return rp, nil
}

func (rp *RenderPass) Desc() driver.RenderPassDesc {
	return rp.desc
}

func (rp *RenderPass) Release() {
	vk.DestroyRenderPass(rp.backend.dev, rp.pass, nil)
	*rp = RenderPass{}
}

func (b *Backend) NewFramebuffer(rp driver.RenderPass, attachments []driver.Attachment, width, height int) (driver.Framebuffer, error) {
	views := make([]vk.ImageView, len(attachments))
	for i, a := range attachments {
		v, err := a.Image.(*Image).attachmentView(a.Level, a.Layer)
		if err != nil {
			return nil, err
		}
		views[i] = v
	}
	fb := &Framebuffer{backend: b, size: image.Pt(width, height)}
	err := vkErr(vk.CreateFramebuffer(b.dev, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp.(*RenderPass).pass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           uint32(width),
		Height:          uint32(height),
		Layers:          1,
	}, nil, &fb.fbo), "vkCreateFramebuffer")
	if err != nil {
		return nil, err
	}
	return fb, nil
}

func (fb *Framebuffer) Size() image.Point {
	return fb.size
}

func (fb *Framebuffer) Release() {
	vk.DestroyFramebuffer(fb.backend.dev, fb.fbo, nil)
	*fb = Framebuffer{}
}

func (b *Backend) NewDescriptorSetLayout(bindings []driver.DescriptorBinding) (driver.DescriptorSetLayout, error) {
	vkb := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	counts := make(map[vk.DescriptorType]uint32)
	for i, bnd := range bindings {
		n := uint32(bnd.Count)
		if n == 0 {
			n = 1
		}
		typ := descriptorTypeFor(bnd.Type)
		vkb[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(bnd.Binding),
			DescriptorType:  typ,
			DescriptorCount: n,
			StageFlags:      vk.ShaderStageFlags(stagesFor(bnd.Stages)),
		}
		counts[typ] += n
	}
	l := &DescriptorSetLayout{
		backend:  b,
		bindings: append([]driver.DescriptorBinding(nil), bindings...),
	}
	for _, typ := range []vk.DescriptorType{vk.DescriptorTypeUniformBuffer, vk.DescriptorTypeCombinedImageSampler} {
		if n := counts[typ]; n > 0 {
			l.sizes = append(l.sizes, vk.DescriptorPoolSize{Type: typ, DescriptorCount: n * descPoolSets})
		}
	}
	err := vkErr(vk.CreateDescriptorSetLayout(b.dev, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkb)),
		PBindings:    vkb,
	}, nil, &l.layout), "vkCreateDescriptorSetLayout")
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (l *DescriptorSetLayout) Bindings() []driver.DescriptorBinding {
	return l.bindings
}

func (l *DescriptorSetLayout) newPool() (*descPool, error) {
	p := &descPool{live: true}
	err := vkErr(vk.CreateDescriptorPool(l.backend.dev, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       descPoolSets,
		PoolSizeCount: uint32(len(l.sizes)),
		PPoolSizes:    l.sizes,
	}, nil, &p.pool), "vkCreateDescriptorPool")
	if err != nil {
		return nil, err
	}
	l.pools = append(l.pools, p)
	l.backend.log.Debug("vulkan descriptor pool", "pools", len(l.pools))
	return p, nil
}

func (l *DescriptorSetLayout) Release() {
	for _, p := range l.pools {
		vk.DestroyDescriptorPool(l.backend.dev, p.pool, nil)
		p.live = false
	}
	vk.DestroyDescriptorSetLayout(l.backend.dev, l.layout, nil)
	*l = DescriptorSetLayout{}
}

func (b *Backend) NewDescriptorSet(layout driver.DescriptorSetLayout) (driver.DescriptorSet, error) {
	l := layout.(*DescriptorSetLayout)
	alloc := func(p *descPool) (vk.DescriptorSet, vk.Result) {
		var set vk.DescriptorSet
		res := vk.AllocateDescriptorSets(b.dev, &vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     p.pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{l.layout},
		}, &set)
		return set, res
	}
	if n := len(l.pools); n > 0 {
		p := l.pools[n-1]
		if set, res := alloc(p); res == vk.Success {
			return &DescriptorSet{backend: b, pool: p, set: set}, nil
		}
	}
	p, err := l.newPool()
	if err != nil {
		return nil, err
	}
	set, res := alloc(p)
	if err := vkErr(res, "vkAllocateDescriptorSets"); err != nil {
		return nil, err
	}
	return &DescriptorSet{backend: b, pool: p, set: set}, nil
}

func (s *DescriptorSet) SetBuffer(binding int, buf driver.Buffer, offset, size int) {
	vk.UpdateDescriptorSets(s.backend.dev, 1, []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          s.set,
		DstBinding:      uint32(binding),
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buf.(*Buffer).buf,
			Offset: vk.DeviceSize(offset),
			Range:  vk.DeviceSize(size),
		}},
	}}, 0, nil)
}

func (s *DescriptorSet) SetTexture(binding, elem int, img driver.Image, smp driver.Sampler) {
	vk.UpdateDescriptorSets(s.backend.dev, 1, []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          s.set,
		DstBinding:      uint32(binding),
		DstArrayElement: uint32(elem),
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler:     smp.(*Sampler).smp,
			ImageView:   img.(*Image).view,
			ImageLayout: vk.ImageLayoutGeneral,
		}},
	}}, 0, nil)
}

func (s *DescriptorSet) Release() {
	// Sets of a destroyed pool were freed with it.
	if s.pool != nil && s.pool.live {
		set := s.set
		vk.FreeDescriptorSets(s.backend.dev, s.pool.pool, 1, &set)
	}
	*s = DescriptorSet{}
}

func (b *Backend) NewPipelineLayout(set driver.DescriptorSetLayout, pushConstantSize int) (driver.PipelineLayout, error) {
	info := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}
	if set != nil {
		info.SetLayoutCount = 1
		info.PSetLayouts = []vk.DescriptorSetLayout{set.(*DescriptorSetLayout).layout}
	}
	if pushConstantSize > 0 {
		info.PushConstantRangeCount = 1
		info.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit),
			Size:       uint32(pushConstantSize),
		}}
	}
	l := &PipelineLayout{backend: b}
	if err := vkErr(vk.CreatePipelineLayout(b.dev, &info, nil, &l.layout), "vkCreatePipelineLayout"); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *PipelineLayout) Release() {
	vk.DestroyPipelineLayout(l.backend.dev, l.layout, nil)
	*l = PipelineLayout{}
}

func (b *Backend) NewPipelineCache(initial []byte) (driver.PipelineCache, error) {
	info := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	if len(initial) > 0 {
		info.InitialDataSize = uint64(len(initial))
		info.PInitialData = unsafe.Pointer(&initial[0])
	}
	c := &PipelineCache{backend: b}
	if err := vkErr(vk.CreatePipelineCache(b.dev, &info, nil, &c.cache), "vkCreatePipelineCache"); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *PipelineCache) Data() ([]byte, error) {
	var n uint64
	if err := vkErr(vk.GetPipelineCacheData(c.backend.dev, c.cache, &n, nil), "vkGetPipelineCacheData"); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	data := make([]byte, n)
	if err := vkErr(vk.GetPipelineCacheData(c.backend.dev, c.cache, &n, unsafe.Pointer(&data[0])), "vkGetPipelineCacheData"); err != nil {
		return nil, err
	}
	return data[:n], nil
}

func (c *PipelineCache) Release() {
	vk.DestroyPipelineCache(c.backend.dev, c.cache, nil)
	*c = PipelineCache{}
}

func (b *Backend) NewPipeline(desc driver.PipelineDesc) (driver.Pipeline, error) {
	bindings := make([]vk.VertexInputBindingDescription, len(desc.VertexBindings))
	for i, vb := range desc.VertexBindings {
		bindings[i] = vk.VertexInputBindingDescription{
			Binding:   uint32(vb.Binding),
			Stride:    uint32(vb.Stride),
			InputRate: vk.VertexInputRateVertex,
		}
	}
	attrs := make([]vk.VertexInputAttributeDescription, len(desc.VertexAttributes))
	for i, a := range desc.VertexAttributes {
		attrs[i] = vk.VertexInputAttributeDescription{
			Location: uint32(a.Location),
			Binding:  uint32(a.Binding),
			Format:   vertexFormatFor(a.Format),
			Offset:   uint32(a.Offset),
		}
	}
	r := desc.Rasterization
	lineWidth := r.LineWidth
	if lineWidth <= 0 {
		lineWidth = 1
	}
	if lineWidth > b.caps.MaxLineWidth {
		lineWidth = b.caps.MaxLineWidth
	}
	raster := &vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(cullModeFor(r.CullMode)),
		FrontFace:   frontFaceFor(r.FrontFace),
		LineWidth:   lineWidth,
	}
	if r.DepthBias {
		raster.DepthBiasEnable = vk.True
		raster.DepthBiasConstantFactor = r.DepthBiasConstant
		raster.DepthBiasSlopeFactor = r.DepthBiasSlope
	}
	ds := desc.DepthStencil
	depth := &vk.PipelineDepthStencilStateCreateInfo{
		SType:          vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthCompareOp: compareFor(ds.DepthCompare),
		Front:          stencilStateFor(ds.Front),
		Back:           stencilStateFor(ds.Back),
		MaxDepthBounds: 1,
	}
	if ds.DepthTest {
		depth.DepthTestEnable = vk.True
	}
	if ds.DepthWrite {
		depth.DepthWriteEnable = vk.True
	}
	if ds.StencilTest {
		depth.StencilTestEnable = vk.True
	}
	bl := desc.Blend
	att := vk.PipelineColorBlendAttachmentState{
		SrcColorBlendFactor: blendFactorFor(bl.SrcColor),
		DstColorBlendFactor: blendFactorFor(bl.DstColor),
		ColorBlendOp:        blendOpFor(bl.ColorOp),
		SrcAlphaBlendFactor: blendFactorFor(bl.SrcAlpha),
		DstAlphaBlendFactor: blendFactorFor(bl.DstAlpha),
		AlphaBlendOp:        blendOpFor(bl.AlphaOp),
		// ColorMask bits match VkColorComponentFlagBits.
		ColorWriteMask: vk.ColorComponentFlags(bl.WriteMask),
	}
	if bl.Enable {
		att.BlendEnable = vk.True
	}
	blend := &vk.PipelineColorBlendStateCreateInfo{
		SType:          vk.StructureTypePipelineColorBlendStateCreateInfo,
		BlendConstants: bl.Constant,
	}
	if desc.RenderPass.Desc().Color.Format != driver.FormatUndefined {
		blend.AttachmentCount = 1
		blend.PAttachments = []vk.PipelineColorBlendAttachmentState{att}
	}
	ms := &vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}
	if desc.Multisample.AlphaToCoverage {
		ms.AlphaToCoverageEnable = vk.True
	}
	var cache vk.PipelineCache
	if desc.Cache != nil {
		cache = desc.Cache.(*PipelineCache).cache
	}
	info := vk.GraphicsPipelineCreateInfo{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: 2,
		PStages: []vk.PipelineShaderStageCreateInfo{
			{
				SType:  vk.StructureTypePipelineShaderStageCreateInfo,
				Stage:  vk.ShaderStageVertexBit,
				Module: desc.VertexShader.(*ShaderModule).mod,
				PName:  "main\x00",
			},
			{
				SType:  vk.StructureTypePipelineShaderStageCreateInfo,
				Stage:  vk.ShaderStageFragmentBit,
				Module: desc.FragmentShader.(*ShaderModule).mod,
				PName:  "main\x00",
			},
		},
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(bindings)),
			PVertexBindingDescriptions:      bindings,
			VertexAttributeDescriptionCount: uint32(len(attrs)),
			PVertexAttributeDescriptions:    attrs,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: topologyFor(desc.Topology),
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: raster,
		PMultisampleState:   ms,
		PDepthStencilState:  depth,
		PColorBlendState:    blend,
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates:    []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor},
		},
		Layout:     desc.Layout.(*PipelineLayout).layout,
		RenderPass: desc.RenderPass.(*RenderPass).pass,
	}
	pipes := make([]vk.Pipeline, 1)
	if err := vkErr(vk.CreateGraphicsPipelines(b.dev, cache, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipes), "vkCreateGraphicsPipelines"); err != nil {
		return nil, err
	}
	return &Pipeline{backend: b, pipe: pipes[0]}, nil
}

func (p *Pipeline) Release() {
	vk.DestroyPipeline(p.backend.dev, p.pipe, nil)
	*p = Pipeline{}
}
