// SPDX-License-Identifier: Unlicense OR MIT

// Package drivertest implements an in-memory driver.Device that records
// every object and command for inspection by tests.
package drivertest

import (
	"fmt"
	"image"

	"gioui.org/shader"
	"github.com/pkg/errors"

	"glove.dev/internal/driver"
)

// Device is a driver.Device without a GPU. Submitted work completes when
// its fence is waited on.
type Device struct {
	// Fail is consulted before every object creation with the kind of
	// object about to be created, and with "submit" before every
	// submission. A non-nil error aborts the operation.
	Fail func(kind string) error

	caps      driver.Caps
	created   map[string]int
	released  map[string]int
	live      map[*Object]struct{}
	Submitted []driver.Submission
	Released  bool
	// Log holds every command recorded by any command buffer.
	Log []string
	// Violations lists objects released while referenced by submitted
	// work whose fence was not yet waited on.
	Violations []string
}

// Object is the common part of every object created by Device.
type Object struct {
	dev  *Device
	Kind string
	ID   int
	// Freed is set by Release.
	Freed bool
}

type Buffer struct {
	Object
	Usage driver.BufferUsage
	Data  []byte
}

type Image struct {
	Object
	desc driver.ImageDesc
	// Pixels holds the contents of every layer and level, keyed by
	// [2]int{layer, level}.
	Pixels map[[2]int][]byte
}

type Sampler struct {
	Object
	Desc driver.SamplerDesc
}

type ShaderModule struct {
	Object
	stage  driver.ShaderStage
	Source shader.Sources
}

type RenderPass struct {
	Object
	desc driver.RenderPassDesc
}

type Framebuffer struct {
	Object
	RenderPass  driver.RenderPass
	Attachments []driver.Attachment
	size        image.Point
}

type DescriptorSetLayout struct {
	Object
	bindings []driver.DescriptorBinding
}

type DescriptorSet struct {
	Object
	Layout   driver.DescriptorSetLayout
	Buffers  map[int]driver.Buffer
	// Textures and Samplers are keyed by binding and array element.
	Textures map[[2]int]driver.Image
	Samplers map[[2]int]driver.Sampler
}

type PipelineLayout struct {
	Object
	Set          driver.DescriptorSetLayout
	PushConstant int
}

type PipelineCache struct {
	Object
	Initial []byte
}

type Pipeline struct {
	Object
	Desc driver.PipelineDesc
}

type Fence struct {
	Object
	// Pending is set while a submission signaling the fence has not been
	// waited on.
	Pending bool
	Waits   int
}

type Semaphore struct {
	Object
}

// CommandBuffer records commands as human readable strings.
type CommandBuffer struct {
	Object
	Recording bool
	Commands  []string
	// Refs holds every driver object referenced by recorded commands.
	Refs []driver.Resource
	// Pushed holds the data of the last PushConstants.
	Pushed []byte
}

func NewDevice() *Device {
	return &Device{
		caps: driver.Caps{
			MaxImageDimension2D:             4096,
			MaxImageDimensionCube:           4096,
			MaxVertexInputBindings:          16,
			MaxVertexInputAttributes:        16,
			MaxLineWidth:                    8,
			DepthStencilFormat:              driver.FormatD24S8,
			MinUniformBufferOffsetAlignment: 256,
		},
		created:  make(map[string]int),
		released: make(map[string]int),
		live:     make(map[*Object]struct{}),
	}
}

// Created returns the number of objects of kind created so far.
func (d *Device) Created(kind string) int {
	return d.created[kind]
}

// Destroyed returns the number of objects of kind released so far.
func (d *Device) Destroyed(kind string) int {
	return d.released[kind]
}

// Live returns the number of objects not yet released.
func (d *Device) Live() int {
	return len(d.live)
}

// FailOn makes every creation of kind fail with driver.ErrOutOfMemory.
func (d *Device) FailOn(kind string) {
	d.Fail = func(k string) error {
		if k == kind {
			return driver.ErrOutOfMemory
		}
		return nil
	}
}

func (d *Device) create(kind string) (Object, error) {
	if d.Fail != nil {
		if err := d.Fail(kind); err != nil {
			return Object{}, errors.Wrapf(err, "drivertest: create %s", kind)
		}
	}
	d.created[kind]++
	return Object{dev: d, Kind: kind, ID: d.created[kind]}, nil
}

func (d *Device) track(o *Object) {
	d.live[o] = struct{}{}
}

func (o *Object) Release() {
	if o.Freed {
		panic(fmt.Errorf("drivertest: %s %d released twice", o.Kind, o.ID))
	}
	o.Freed = true
	o.dev.released[o.Kind]++
	delete(o.dev.live, o)
	o.dev.checkInFlight(o)
}

func (d *Device) checkInFlight(o *Object) {
	for _, s := range d.Submitted {
		f, ok := s.Fence.(*Fence)
		if !ok || !f.Pending {
			continue
		}
		for _, r := range s.CommandBuffer.(*CommandBuffer).Refs {
			if object(r) == o {
				d.Violations = append(d.Violations, fmt.Sprintf("%v released while in flight", o))
				return
			}
		}
	}
}

func (o *Object) String() string {
	return fmt.Sprintf("%s#%d", o.Kind, o.ID)
}

func (d *Device) Caps() driver.Caps {
	return d.caps
}

func (d *Device) NewBuffer(usage driver.BufferUsage, size int) (driver.Buffer, error) {
	o, err := d.create("buffer")
	if err != nil {
		return nil, err
	}
	b := &Buffer{Object: o, Usage: usage, Data: make([]byte, size)}
	d.track(&b.Object)
	return b, nil
}

func (d *Device) NewImage(desc driver.ImageDesc) (driver.Image, error) {
	o, err := d.create("image")
	if err != nil {
		return nil, err
	}
	img := &Image{Object: o, desc: desc, Pixels: make(map[[2]int][]byte)}
	d.track(&img.Object)
	return img, nil
}

func (d *Device) NewSampler(desc driver.SamplerDesc) (driver.Sampler, error) {
	o, err := d.create("sampler")
	if err != nil {
		return nil, err
	}
	s := &Sampler{Object: o, Desc: desc}
	d.track(&s.Object)
	return s, nil
}

func (d *Device) NewShaderModule(stage driver.ShaderStage, src shader.Sources) (driver.ShaderModule, error) {
	if len(src.SPIRV) == 0 {
		return nil, errors.New("drivertest: empty SPIR-V")
	}
	o, err := d.create("shader")
	if err != nil {
		return nil, err
	}
	m := &ShaderModule{Object: o, stage: stage, Source: src}
	d.track(&m.Object)
	return m, nil
}

func (d *Device) NewRenderPass(desc driver.RenderPassDesc) (driver.RenderPass, error) {
	o, err := d.create("renderpass")
	if err != nil {
		return nil, err
	}
	rp := &RenderPass{Object: o, desc: desc}
	d.track(&rp.Object)
	return rp, nil
}

func (d *Device) NewFramebuffer(rp driver.RenderPass, attachments []driver.Attachment, width, height int) (driver.Framebuffer, error) {
	o, err := d.create("framebuffer")
	if err != nil {
		return nil, err
	}
	fb := &Framebuffer{Object: o, RenderPass: rp, Attachments: attachments, size: image.Pt(width, height)}
	d.track(&fb.Object)
	return fb, nil
}

func (d *Device) NewDescriptorSetLayout(bindings []driver.DescriptorBinding) (driver.DescriptorSetLayout, error) {
	o, err := d.create("descriptorsetlayout")
	if err != nil {
		return nil, err
	}
	l := &DescriptorSetLayout{Object: o, bindings: append([]driver.DescriptorBinding(nil), bindings...)}
	d.track(&l.Object)
	return l, nil
}

func (d *Device) NewDescriptorSet(layout driver.DescriptorSetLayout) (driver.DescriptorSet, error) {
	o, err := d.create("descriptorset")
	if err != nil {
		return nil, err
	}
	s := &DescriptorSet{
		Object:   o,
		Layout:   layout,
		Buffers:  make(map[int]driver.Buffer),
		Textures: make(map[[2]int]driver.Image),
		Samplers: make(map[[2]int]driver.Sampler),
	}
	d.track(&s.Object)
	return s, nil
}

func (d *Device) NewPipelineLayout(set driver.DescriptorSetLayout, pushConstantSize int) (driver.PipelineLayout, error) {
	o, err := d.create("pipelinelayout")
	if err != nil {
		return nil, err
	}
	l := &PipelineLayout{Object: o, Set: set, PushConstant: pushConstantSize}
	d.track(&l.Object)
	return l, nil
}

func (d *Device) NewPipelineCache(initial []byte) (driver.PipelineCache, error) {
	o, err := d.create("pipelinecache")
	if err != nil {
		return nil, err
	}
	c := &PipelineCache{Object: o, Initial: append([]byte(nil), initial...)}
	d.track(&c.Object)
	return c, nil
}

func (d *Device) NewPipeline(desc driver.PipelineDesc) (driver.Pipeline, error) {
	o, err := d.create("pipeline")
	if err != nil {
		return nil, err
	}
	if desc.VertexShader == nil || desc.FragmentShader == nil || desc.RenderPass == nil || desc.Layout == nil {
		return nil, errors.New("drivertest: incomplete pipeline description")
	}
	p := &Pipeline{Object: o, Desc: desc}
	d.track(&p.Object)
	return p, nil
}

func (d *Device) NewCommandBuffer() (driver.CommandBuffer, error) {
	o, err := d.create("commandbuffer")
	if err != nil {
		return nil, err
	}
	cb := &CommandBuffer{Object: o}
	d.track(&cb.Object)
	return cb, nil
}

func (d *Device) NewFence() (driver.Fence, error) {
	o, err := d.create("fence")
	if err != nil {
		return nil, err
	}
	f := &Fence{Object: o}
	d.track(&f.Object)
	return f, nil
}

func (d *Device) NewSemaphore() (driver.Semaphore, error) {
	o, err := d.create("semaphore")
	if err != nil {
		return nil, err
	}
	s := &Semaphore{Object: o}
	d.track(&s.Object)
	return s, nil
}

func (d *Device) Submit(s driver.Submission) error {
	cb := s.CommandBuffer.(*CommandBuffer)
	if cb.Recording {
		return errors.Errorf("drivertest: submitting %v while recording", cb)
	}
	if d.Fail != nil {
		if err := d.Fail("submit"); err != nil {
			return errors.Wrap(err, "drivertest: submit")
		}
	}
	for _, r := range cb.Refs {
		if o := object(r); o != nil && o.Freed {
			return errors.Errorf("drivertest: %v references released %v", cb, o)
		}
	}
	if s.Fence != nil {
		f := s.Fence.(*Fence)
		if f.Pending {
			return errors.Errorf("drivertest: %v already pending", f)
		}
		f.Pending = true
	}
	d.Submitted = append(d.Submitted, s)
	return nil
}

func (d *Device) WaitIdle() error {
	for _, s := range d.Submitted {
		if s.Fence != nil {
			s.Fence.(*Fence).Pending = false
		}
	}
	return nil
}

func (d *Device) Release() {
	d.Released = true
}

func object(r driver.Resource) *Object {
	switch r := r.(type) {
	case *Buffer:
		return &r.Object
	case *Image:
		return &r.Object
	case *Sampler:
		return &r.Object
	case *ShaderModule:
		return &r.Object
	case *RenderPass:
		return &r.Object
	case *Framebuffer:
		return &r.Object
	case *DescriptorSet:
		return &r.Object
	case *PipelineLayout:
		return &r.Object
	case *Pipeline:
		return &r.Object
	}
	return nil
}

func (b *Buffer) Size() int { return len(b.Data) }

func (b *Buffer) Upload(offset int, data []byte) {
	copy(b.Data[offset:], data)
}

func (b *Buffer) Download(offset int, data []byte) error {
	if offset+len(data) > len(b.Data) {
		return errors.New("drivertest: download out of range")
	}
	copy(data, b.Data[offset:])
	return nil
}

func (img *Image) Desc() driver.ImageDesc { return img.desc }

func (img *Image) levelSize(level int) image.Point {
	w, h := img.desc.Width>>level, img.desc.Height>>level
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.Pt(w, h)
}

func (img *Image) level(layer, level int) []byte {
	k := [2]int{layer, level}
	p, ok := img.Pixels[k]
	if !ok {
		sz := img.levelSize(level)
		p = make([]byte, sz.X*sz.Y*img.desc.Format.BytesPerPixel())
		img.Pixels[k] = p
	}
	return p
}

func (img *Image) Upload(layer, level int, rect image.Rectangle, pixels []byte) error {
	if level >= img.desc.Levels || layer >= img.desc.Layers {
		return errors.Errorf("drivertest: upload to missing layer %d level %d", layer, level)
	}
	sz := img.levelSize(level)
	if !rect.In(image.Rectangle{Max: sz}) {
		return errors.Errorf("drivertest: upload rect %v outside %v", rect, sz)
	}
	bpp := img.desc.Format.BytesPerPixel()
	dst := img.level(layer, level)
	row := rect.Dx() * bpp
	for y := 0; y < rect.Dy(); y++ {
		copy(dst[((rect.Min.Y+y)*sz.X+rect.Min.X)*bpp:], pixels[y*row:(y+1)*row])
	}
	return nil
}

func (img *Image) Download(layer, level int, rect image.Rectangle, pixels []byte) error {
	sz := img.levelSize(level)
	if !rect.In(image.Rectangle{Max: sz}) {
		return errors.Errorf("drivertest: download rect %v outside %v", rect, sz)
	}
	bpp := img.desc.Format.BytesPerPixel()
	src := img.level(layer, level)
	row := rect.Dx() * bpp
	for y := 0; y < rect.Dy(); y++ {
		copy(pixels[y*row:(y+1)*row], src[((rect.Min.Y+y)*sz.X+rect.Min.X)*bpp:])
	}
	return nil
}

func (m *ShaderModule) Stage() driver.ShaderStage { return m.stage }

func (rp *RenderPass) Desc() driver.RenderPassDesc { return rp.desc }

func (fb *Framebuffer) Size() image.Point { return fb.size }

func (l *DescriptorSetLayout) Bindings() []driver.DescriptorBinding { return l.bindings }

func (s *DescriptorSet) SetBuffer(binding int, buf driver.Buffer, offset, size int) {
	s.Buffers[binding] = buf
}

func (s *DescriptorSet) SetTexture(binding, elem int, img driver.Image, smp driver.Sampler) {
	s.Textures[[2]int{binding, elem}] = img
	s.Samplers[[2]int{binding, elem}] = smp
}

func (c *PipelineCache) Data() ([]byte, error) {
	return append([]byte("drivertest-cache:"), c.Initial...), nil
}

func (f *Fence) Wait(timeout uint64) error {
	f.Waits++
	f.Pending = false
	return nil
}

func (f *Fence) Reset() error {
	if f.Pending {
		return errors.Errorf("drivertest: reset of pending %v", f)
	}
	return nil
}

func (cb *CommandBuffer) record(format string, args ...interface{}) {
	if !cb.Recording {
		panic(fmt.Errorf("drivertest: %v: %s outside Begin/End", cb, fmt.Sprintf(format, args...)))
	}
	c := fmt.Sprintf(format, args...)
	cb.Commands = append(cb.Commands, c)
	cb.dev.Log = append(cb.dev.Log, c)
}

func (cb *CommandBuffer) ref(rs ...driver.Resource) {
	cb.Refs = append(cb.Refs, rs...)
}

func (cb *CommandBuffer) Begin() error {
	if cb.Recording {
		return errors.Errorf("drivertest: %v already recording", cb)
	}
	cb.Recording = true
	cb.Commands = cb.Commands[:0]
	cb.Refs = cb.Refs[:0]
	cb.Pushed = nil
	return nil
}

func (cb *CommandBuffer) End() error {
	if !cb.Recording {
		return errors.Errorf("drivertest: %v not recording", cb)
	}
	cb.Recording = false
	return nil
}

func (cb *CommandBuffer) Reset() error {
	cb.Recording = false
	cb.Commands = cb.Commands[:0]
	cb.Refs = cb.Refs[:0]
	cb.Pushed = nil
	return nil
}

func (cb *CommandBuffer) BeginRenderPass(rp driver.RenderPass, fb driver.Framebuffer, area image.Rectangle, clear driver.ClearValues) {
	cb.ref(rp, fb)
	d := rp.Desc()
	cb.record("BeginRenderPass %v %v %v load=%d/%d/%d", rp, fb, area, d.Color.Load, d.DepthStencil.Load, d.DepthStencil.StencilLoad)
}

func (cb *CommandBuffer) EndRenderPass() {
	cb.record("EndRenderPass")
}

func (cb *CommandBuffer) BindPipeline(p driver.Pipeline) {
	cb.ref(p)
	cb.record("BindPipeline %v", p)
}

func (cb *CommandBuffer) BindVertexBuffers(first int, bufs []driver.Buffer, offsets []int) {
	for _, b := range bufs {
		cb.ref(b)
	}
	cb.record("BindVertexBuffers %d %d", first, len(bufs))
}

func (cb *CommandBuffer) BindIndexBuffer(buf driver.Buffer, offset int, typ driver.IndexType) {
	cb.ref(buf)
	cb.record("BindIndexBuffer %v %d %d", buf, offset, typ)
}

func (cb *CommandBuffer) BindDescriptorSet(layout driver.PipelineLayout, set driver.DescriptorSet) {
	cb.ref(layout, set)
	cb.record("BindDescriptorSet %v", set)
}

func (cb *CommandBuffer) PushConstants(layout driver.PipelineLayout, stages driver.ShaderStage, offset int, data []byte) {
	cb.ref(layout)
	cb.record("PushConstants %d %d", offset, len(data))
	cb.Pushed = append([]byte(nil), data...)
}

func (cb *CommandBuffer) SetViewport(v driver.Viewport) {
	cb.record("SetViewport %g %g %g %g", v.X, v.Y, v.Width, v.Height)
}

func (cb *CommandBuffer) SetScissor(r image.Rectangle) {
	cb.record("SetScissor %v", r)
}

func (cb *CommandBuffer) Draw(vertexCount, firstVertex int) {
	cb.record("Draw %d %d", vertexCount, firstVertex)
}

func (cb *CommandBuffer) DrawIndexed(indexCount, firstIndex, vertexOffset int) {
	cb.record("DrawIndexed %d %d %d", indexCount, firstIndex, vertexOffset)
}

func (cb *CommandBuffer) ClearAttachments(clears []driver.ClearAttachment, rect image.Rectangle) {
	for _, c := range clears {
		cb.record("ClearAttachments %d %v %v", c.Aspect, c.Value.Color, rect)
	}
}

// Count returns the number of commands recorded by cb starting with prefix.
func (cb *CommandBuffer) Count(prefix string) int {
	return count(cb.Commands, prefix)
}

// Count returns the number of commands recorded on d starting with prefix.
func (d *Device) Count(prefix string) int {
	return count(d.Log, prefix)
}

func count(cmds []string, prefix string) int {
	n := 0
	for _, c := range cmds {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}
