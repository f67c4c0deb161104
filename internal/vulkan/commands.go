// SPDX-License-Identifier: Unlicense OR MIT

//go:build cgo && !novulkan

package vulkan

import (
	"image"
	"unsafe"

	vk "github.com/goki/vulkan"

	"glove.dev/internal/driver"
)

type CommandBuffer struct {
	backend *Backend
	cmd     vk.CommandBuffer
}

type Fence struct {
	backend *Backend
	fence   vk.Fence
}

type Semaphore struct {
	backend *Backend
	sem     vk.Semaphore
}

func (b *Backend) NewCommandBuffer() (driver.CommandBuffer, error) {
	return b.newCommandBuffer()
}

func (b *Backend) newCommandBuffer() (*CommandBuffer, error) {
	cmds := make([]vk.CommandBuffer, 1)
	b.mu.Lock()
	res := vk.AllocateCommandBuffers(b.dev, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        b.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, cmds)
	b.mu.Unlock()
	if err := vkErr(res, "vkAllocateCommandBuffers"); err != nil {
		return nil, err
	}
	return &CommandBuffer{backend: b, cmd: cmds[0]}, nil
}

func (c *CommandBuffer) Begin() error {
	return vkErr(vk.BeginCommandBuffer(c.cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}), "vkBeginCommandBuffer")
}

func (c *CommandBuffer) End() error {
	return vkErr(vk.EndCommandBuffer(c.cmd), "vkEndCommandBuffer")
}

func (c *CommandBuffer) Reset() error {
	return vkErr(vk.ResetCommandBuffer(c.cmd, 0), "vkResetCommandBuffer")
}

func (c *CommandBuffer) BeginRenderPass(rp driver.RenderPass, fb driver.Framebuffer, area image.Rectangle, clear driver.ClearValues) {
	pass := rp.(*RenderPass)
	var clears []vk.ClearValue
	if pass.desc.Color.Format != driver.FormatUndefined {
		clears = append(clears, clearColor(clear))
	}
	if pass.desc.DepthStencil.Format != driver.FormatUndefined {
		clears = append(clears, clearDepthStencil(clear))
	}
	vk.CmdBeginRenderPass(c.cmd, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      pass.pass,
		Framebuffer:     fb.(*Framebuffer).fbo,
		RenderArea:      rect2D(area),
		ClearValueCount: uint32(len(clears)),
		PClearValues:    clears,
	}, vk.SubpassContentsInline)
}

func (c *CommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(c.cmd)
}

func (c *CommandBuffer) BindPipeline(p driver.Pipeline) {
	vk.CmdBindPipeline(c.cmd, vk.PipelineBindPointGraphics, p.(*Pipeline).pipe)
}

func (c *CommandBuffer) BindVertexBuffers(first int, bufs []driver.Buffer, offsets []int) {
	if len(bufs) == 0 {
		return
	}
	vbufs := make([]vk.Buffer, len(bufs))
	voffs := make([]vk.DeviceSize, len(bufs))
	for i, b := range bufs {
		vbufs[i] = b.(*Buffer).buf
		voffs[i] = vk.DeviceSize(offsets[i])
	}
	vk.CmdBindVertexBuffers(c.cmd, uint32(first), uint32(len(vbufs)), vbufs, voffs)
}

func (c *CommandBuffer) BindIndexBuffer(buf driver.Buffer, offset int, typ driver.IndexType) {
	t := vk.IndexTypeUint16
	if typ == driver.IndexUint32 {
		t = vk.IndexTypeUint32
	}
	vk.CmdBindIndexBuffer(c.cmd, buf.(*Buffer).buf, vk.DeviceSize(offset), t)
}

func (c *CommandBuffer) BindDescriptorSet(layout driver.PipelineLayout, set driver.DescriptorSet) {
	vk.CmdBindDescriptorSets(c.cmd, vk.PipelineBindPointGraphics, layout.(*PipelineLayout).layout,
		0, 1, []vk.DescriptorSet{set.(*DescriptorSet).set}, 0, nil)
}

func (c *CommandBuffer) PushConstants(layout driver.PipelineLayout, stages driver.ShaderStage, offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(c.cmd, layout.(*PipelineLayout).layout, vk.ShaderStageFlags(stagesFor(stages)),
		uint32(offset), uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (c *CommandBuffer) SetViewport(v driver.Viewport) {
	vk.CmdSetViewport(c.cmd, 0, 1, []vk.Viewport{{
		X:        v.X,
		Y:        v.Y,
		Width:    v.Width,
		Height:   v.Height,
		MinDepth: v.MinDepth,
		MaxDepth: v.MaxDepth,
	}})
}

func (c *CommandBuffer) SetScissor(r image.Rectangle) {
	vk.CmdSetScissor(c.cmd, 0, 1, []vk.Rect2D{rect2D(r)})
}

func (c *CommandBuffer) Draw(vertexCount, firstVertex int) {
	vk.CmdDraw(c.cmd, uint32(vertexCount), 1, uint32(firstVertex), 0)
}

func (c *CommandBuffer) DrawIndexed(indexCount, firstIndex, vertexOffset int) {
	vk.CmdDrawIndexed(c.cmd, uint32(indexCount), 1, uint32(firstIndex), int32(vertexOffset), 0)
}

func (c *CommandBuffer) ClearAttachments(clears []driver.ClearAttachment, rect image.Rectangle) {
	if len(clears) == 0 || rect.Empty() {
		return
	}
	atts := make([]vk.ClearAttachment, 0, len(clears))
	for _, cl := range clears {
		var aspect vk.ImageAspectFlagBits
		if cl.Aspect&driver.AspectColor != 0 {
			atts = append(atts, vk.ClearAttachment{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				ClearValue: clearColor(cl.Value),
			})
		}
		if cl.Aspect&driver.AspectDepth != 0 {
			aspect |= vk.ImageAspectDepthBit
		}
		if cl.Aspect&driver.AspectStencil != 0 {
			aspect |= vk.ImageAspectStencilBit
		}
		if aspect != 0 {
			atts = append(atts, vk.ClearAttachment{
				AspectMask: vk.ImageAspectFlags(aspect),
				ClearValue: clearDepthStencil(cl.Value),
			})
		}
	}
	vk.CmdClearAttachments(c.cmd, uint32(len(atts)), atts, 1, []vk.ClearRect{{
		Rect:       rect2D(rect),
		LayerCount: 1,
	}})
}

func (c *CommandBuffer) Release() {
	b := c.backend
	b.mu.Lock()
	vk.FreeCommandBuffers(b.dev, b.pool, 1, []vk.CommandBuffer{c.cmd})
	b.mu.Unlock()
	*c = CommandBuffer{}
}

func (b *Backend) NewFence() (driver.Fence, error) {
	f := &Fence{backend: b}
	err := vkErr(vk.CreateFence(b.dev, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}, nil, &f.fence), "vkCreateFence")
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Fence) Wait(ns uint64) error {
	return vkErr(vk.WaitForFences(f.backend.dev, 1, []vk.Fence{f.fence}, vk.True, timeout(ns)), "vkWaitForFences")
}

func (f *Fence) Reset() error {
	return vkErr(vk.ResetFences(f.backend.dev, 1, []vk.Fence{f.fence}), "vkResetFences")
}

func (f *Fence) Release() {
	vk.DestroyFence(f.backend.dev, f.fence, nil)
	*f = Fence{}
}

func (b *Backend) NewSemaphore() (driver.Semaphore, error) {
	s := &Semaphore{backend: b}
	err := vkErr(vk.CreateSemaphore(b.dev, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &s.sem), "vkCreateSemaphore")
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Semaphore) Release() {
	vk.DestroySemaphore(s.backend.dev, s.sem, nil)
	*s = Semaphore{}
}
