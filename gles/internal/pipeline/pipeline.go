// SPDX-License-Identifier: Unlicense OR MIT

// Package pipeline derives graphics pipelines from the GL state of a
// context and caches them, and implements the vertex input mapping and
// clears that go with them.
package pipeline

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/pkg/errors"

	"glove.dev/gles/internal/resource"
	"glove.dev/gles/internal/state"
	"glove.dev/internal/driver"
)

// Tracker defers destruction of driver objects. Ref and Unref keep
// objects shared with cached pipelines alive after their owner releases
// them.
type Tracker interface {
	resource.Tracker
	Ref(r driver.Resource)
	Unref(r driver.Resource)
}

type Options struct {
	// CacheEntries bounds the number of pipelines kept alive.
	CacheEntries int
	Logger       *slog.Logger
}

// Pipeline tracks the graphics pipeline matching the current state.
// Pipelines are looked up by a hash of their description in an LRU
// cache and built only on a miss.
type Pipeline struct {
	dev   driver.Device
	track Tracker
	log   *slog.Logger
	// cache calls evicted synchronously on eviction, removal and purge.
	cache *simplelru.LRU

	maxLineWidth float32

	current  driver.Pipeline
	exec     uint64
	pass     passKey
	layout   Layout
	topology driver.Topology

	builds int
}

// passKey is the part of a render pass description that determines
// pipeline compatibility.
type passKey struct {
	color, depthStencil driver.Format
}

func passKeyOf(d driver.RenderPassDesc) passKey {
	return passKey{color: d.Color.Format, depthStencil: d.DepthStencil.Format}
}

type entry struct {
	key      []byte
	exec     uint64
	pipeline driver.Pipeline
	// shared are the executable objects the pipeline was built from.
	shared []driver.Resource
}

func New(dev driver.Device, track Tracker, opts Options) (*Pipeline, error) {
	if opts.CacheEntries <= 0 {
		opts.CacheEntries = 64
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	p := &Pipeline{
		dev:          dev,
		track:        track,
		log:          opts.Logger,
		maxLineWidth: dev.Caps().MaxLineWidth,
	}
	cache, err := simplelru.NewLRU(opts.CacheEntries, p.evicted)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: cache")
	}
	p.cache = cache
	return p, nil
}

func (p *Pipeline) evicted(_, value interface{}) {
	p.drop(value.(*entry))
}

// drop releases the pipeline of e and its references to the executable.
func (p *Pipeline) drop(e *entry) {
	if e.pipeline == p.current {
		p.current = nil
	}
	p.track.Release(e.pipeline)
	for _, r := range e.shared {
		p.track.Unref(r)
	}
}

func sharedObjects(e *resource.Executable) []driver.Resource {
	var rs []driver.Resource
	if e.Vertex != nil {
		rs = append(rs, e.Vertex)
	}
	if e.Fragment != nil {
		rs = append(rs, e.Fragment)
	}
	if e.Layout != nil {
		rs = append(rs, e.Layout)
	}
	if e.Cache != nil {
		rs = append(rs, e.Cache)
	}
	return rs
}

// Builds returns the number of driver pipelines created.
func (p *Pipeline) Builds() int {
	return p.builds
}

// Current returns the pipeline returned by the last successful Prepare.
func (p *Pipeline) Current() driver.Pipeline {
	return p.current
}

// Prepare returns the pipeline for drawing topology with the executable
// e into render passes compatible with rp. The previous pipeline is
// reused unless state.DirtyPipeline is set or one of the other inputs
// changed. A failed build leaves the previous pipeline current.
func (p *Pipeline) Prepare(s *state.State, e *resource.Executable, rp driver.RenderPass, layout Layout, topology driver.Topology) (driver.Pipeline, error) {
	pass := passKeyOf(rp.Desc())
	if p.current != nil && !s.Has(state.DirtyPipeline) && e.ID == p.exec && pass == p.pass &&
		topology == p.topology && layout.equal(p.layout) {
		return p.current, nil
	}
	desc := Describe(s, e, rp, layout, topology, p.maxLineWidth)
	key := appendKey(nil, e.ID, pass, &desc)
	h := xxhash.Sum64(key)
	var pl driver.Pipeline
	if v, ok := p.cache.Get(h); ok && bytes.Equal(v.(*entry).key, key) {
		pl = v.(*entry).pipeline
	} else {
		if ok {
			p.cache.Remove(h)
		}
		var err error
		pl, err = p.dev.NewPipeline(desc)
		if err != nil {
			p.log.Error("pipeline build failed", "program", e.ID, "err", err)
			return nil, errors.Wrap(err, "pipeline: build")
		}
		p.builds++
		p.log.Debug("built pipeline", "program", e.ID, "key", h, "cached", p.cache.Len())
		shared := sharedObjects(e)
		for _, r := range shared {
			p.track.Ref(r)
		}
		p.cache.Add(h, &entry{key: key, exec: e.ID, pipeline: pl, shared: shared})
	}
	p.current = pl
	p.exec = e.ID
	p.pass = pass
	p.layout = layout
	p.topology = topology
	s.Clean(state.DirtyPipeline)
	return pl, nil
}

// Forget releases every cached pipeline built for the executable id.
func (p *Pipeline) Forget(id uint64) {
	for _, k := range p.cache.Keys() {
		if v, ok := p.cache.Peek(k); ok && v.(*entry).exec == id {
			p.cache.Remove(k)
		}
	}
	if p.exec == id {
		p.current = nil
	}
}

// Release releases every cached pipeline.
func (p *Pipeline) Release() {
	p.cache.Purge()
	p.current = nil
}

// Describe derives the pipeline description for drawing with e into
// render passes compatible with rp.
func Describe(s *state.State, e *resource.Executable, rp driver.RenderPass, layout Layout, topology driver.Topology, maxLineWidth float32) driver.PipelineDesc {
	pass := rp.Desc()
	ds := pass.DepthStencil.Format
	r := &s.Rasterization
	d := driver.PipelineDesc{
		VertexShader:     e.Vertex,
		FragmentShader:   e.Fragment,
		Layout:           e.Layout,
		RenderPass:       rp,
		Cache:            e.Cache,
		VertexBindings:   layout.Bindings,
		VertexAttributes: layout.Attributes,
		Topology:         topology,
		Rasterization: driver.RasterizationDesc{
			CullMode:  toCullMode(r.CullFace, r.CullMode),
			FrontFace: toFrontFace(r.FrontFace),
			LineWidth: clampLineWidth(r.LineWidth, maxLineWidth),
		},
		Multisample: driver.MultisampleDesc{
			AlphaToCoverage: s.Multisample.AlphaToCoverage,
			SampleCoverage:  s.Multisample.SampleCoverage,
			CoverageValue:   s.Multisample.CoverageValue,
			CoverageInvert:  s.Multisample.CoverageInvert,
		},
	}
	if r.PolygonOffsetFill {
		d.Rasterization.DepthBias = true
		d.Rasterization.DepthBiasConstant = r.OffsetUnits
		d.Rasterization.DepthBiasSlope = r.OffsetFactor
	}
	if s.Depth.Test && ds.HasDepth() {
		d.DepthStencil.DepthTest = true
		d.DepthStencil.DepthWrite = s.Depth.Mask
		d.DepthStencil.DepthCompare = toCompareOp(s.Depth.Func)
	}
	if s.Stencil.Test && ds.HasStencil() {
		d.DepthStencil.StencilTest = true
		d.DepthStencil.Front = toStencilState(s.Stencil.Front)
		d.DepthStencil.Back = toStencilState(s.Stencil.Back)
	}
	b := &s.Blend
	d.Blend = driver.BlendDesc{
		Enable:    b.Enable,
		WriteMask: toColorMask(s.Color.Mask),
	}
	if b.Enable {
		d.Blend.SrcColor = toBlendFactor(b.SrcRGB)
		d.Blend.DstColor = toBlendFactor(b.DstRGB)
		d.Blend.SrcAlpha = toBlendFactor(b.SrcAlpha)
		d.Blend.DstAlpha = toBlendFactor(b.DstAlpha)
		d.Blend.ColorOp = toBlendOp(b.EquationRGB)
		d.Blend.AlphaOp = toBlendOp(b.EquationAlpha)
		d.Blend.Constant = b.Color
	}
	return d
}

func toStencilState(f state.StencilFace) driver.StencilOpState {
	ref := f.Ref
	switch {
	case ref < 0:
		ref = 0
	case ref > 0xff:
		ref = 0xff
	}
	return driver.StencilOpState{
		Fail:        toStencilOp(f.Fail),
		Pass:        toStencilOp(f.DepthPass),
		DepthFail:   toStencilOp(f.DepthFail),
		Compare:     toCompareOp(f.Func),
		CompareMask: f.ValueMask,
		WriteMask:   f.WriteMask,
		Reference:   uint32(ref),
	}
}

func clampLineWidth(w, max float32) float32 {
	if max < 1 {
		max = 1
	}
	switch {
	case w < 1:
		return 1
	case w > max:
		return max
	}
	return w
}

// appendKey appends a serialization of everything in d that is not a
// driver object. The executable and pass identify the objects.
func appendKey(b []byte, exec uint64, pass passKey, d *driver.PipelineDesc) []byte {
	le := binary.LittleEndian
	f32 := func(f float32) { b = le.AppendUint32(b, math.Float32bits(f)) }
	u32 := func(v uint32) { b = le.AppendUint32(b, v) }
	bit := func(v bool) {
		if v {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
	}
	b = le.AppendUint64(b, exec)
	b = append(b, byte(pass.color), byte(pass.depthStencil), byte(d.Topology))
	u32(uint32(len(d.VertexBindings)))
	for _, vb := range d.VertexBindings {
		u32(uint32(vb.Binding))
		u32(uint32(vb.Stride))
	}
	u32(uint32(len(d.VertexAttributes)))
	for _, a := range d.VertexAttributes {
		u32(uint32(a.Location))
		u32(uint32(a.Binding))
		u32(uint32(a.Offset))
		b = append(b, byte(a.Format.Type), byte(a.Format.Size))
		bit(a.Format.Normalized)
	}
	r := &d.Rasterization
	b = append(b, byte(r.CullMode), byte(r.FrontFace))
	bit(r.DepthBias)
	f32(r.DepthBiasConstant)
	f32(r.DepthBiasSlope)
	f32(r.LineWidth)
	z := &d.DepthStencil
	bit(z.DepthTest)
	bit(z.DepthWrite)
	b = append(b, byte(z.DepthCompare))
	bit(z.StencilTest)
	for _, st := range [2]driver.StencilOpState{z.Front, z.Back} {
		b = append(b, byte(st.Fail), byte(st.Pass), byte(st.DepthFail), byte(st.Compare))
		u32(st.CompareMask)
		u32(st.WriteMask)
		u32(st.Reference)
	}
	bl := &d.Blend
	bit(bl.Enable)
	b = append(b, byte(bl.SrcColor), byte(bl.DstColor), byte(bl.SrcAlpha), byte(bl.DstAlpha), byte(bl.ColorOp), byte(bl.AlphaOp), byte(bl.WriteMask))
	for _, c := range bl.Constant {
		f32(c)
	}
	m := &d.Multisample
	bit(m.AlphaToCoverage)
	bit(m.SampleCoverage)
	f32(m.CoverageValue)
	bit(m.CoverageInvert)
	return b
}
