// SPDX-License-Identifier: Unlicense OR MIT

package resource

import (
	"fmt"
	"image"
	"strings"

	"gioui.org/shader"
	"github.com/pkg/errors"

	"glove.dev/gles/internal/compiler"
	"glove.dev/gles/internal/handle"
	"glove.dev/gles/internal/shaderres"
	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

// Program is a program object. A program current in a context stays
// alive after deletion until another program replaces it.
type Program struct {
	Name             uint32
	Vertex, Fragment handle.Ref

	LinkStatus     bool
	ValidateStatus bool
	InfoLog        string
	Lifecycle      Lifecycle

	// bindings are the attribute locations requested for the next link.
	bindings map[string]int
	exec     *Executable
}

// Executable is the result of a successful link: the linked interface
// and the driver objects drawing with it needs.
type Executable struct {
	// ID is unique among the executables of a Manager.
	ID        uint64
	Interface *shaderres.Interface
	// Sources are the vertex and fragment stages.
	Sources   [2]shader.Sources
	Vertex    driver.ShaderModule
	Fragment  driver.ShaderModule
	SetLayout driver.DescriptorSetLayout
	Layout    driver.PipelineLayout
	Cache     driver.PipelineCache

	// buffers back the non-opaque blocks, indexed like the blocks.
	buffers []driver.Buffer
	bufUse  []Use
	set     driver.DescriptorSet
	setUse  Use
	// textures are the images and samplers written to set.
	textures map[[2]int]samplerBinding
}

type samplerBinding struct {
	img driver.Image
	smp driver.Sampler
}

// Executable returns the executable of the last successful link, nil if
// p was never linked.
func (p *Program) Executable() *Executable {
	return p.exec
}

// Interface returns the linked interface, nil unless the last link
// succeeded.
func (p *Program) Interface() *shaderres.Interface {
	if !p.LinkStatus || p.exec == nil {
		return nil
	}
	return p.exec.Interface
}

// BindAttribLocation requests location for the attribute name at the
// next link.
func (m *Manager) BindAttribLocation(p *Program, location int, name string) error {
	if location < 0 || location >= m.limits.Program.MaxVertexAttribs {
		return ErrInvalidValue
	}
	if strings.HasPrefix(name, "gl_") {
		return ErrInvalidOperation
	}
	if p.bindings == nil {
		p.bindings = make(map[string]int)
	}
	p.bindings[name] = location
	return nil
}

// LinkProgram links the attached shaders. Link failures are reported
// through LinkStatus and InfoLog; the returned error is a driver failure,
// which leaves p unchanged.
func (m *Manager) LinkProgram(p *Program) error {
	var vs, fs *compiler.Shader
	if s := m.Shaders.Resolve(p.Vertex); s != nil {
		vs = s.Compiled
	}
	if s := m.Shaders.Resolve(p.Fragment); s != nil {
		fs = s.Compiled
	}
	linked, err := m.comp.Link(vs, fs)
	if err != nil {
		m.failLink(p, err)
		return nil
	}
	in, err := shaderres.Link(linked.Reflection, p.bindings, m.limits.Program)
	if err != nil {
		m.failLink(p, err)
		return nil
	}
	vert, frag, err := m.comp.Generate(linked, in)
	if err != nil {
		m.failLink(p, err)
		return nil
	}
	return m.LinkBinary(p, in, vert, frag, nil)
}

// LinkBinary links p from a previously generated interface and stages,
// seeding its pipeline cache with cache.
func (m *Manager) LinkBinary(p *Program, in *shaderres.Interface, vert, frag shader.Sources, cache []byte) error {
	e, err := m.newExecutable(in, vert, frag, cache)
	if err != nil {
		return err
	}
	if p.exec != nil {
		p.exec.release(m.track)
	}
	p.exec = e
	p.LinkStatus = true
	p.ValidateStatus = false
	p.InfoLog = ""
	m.log.Debug("linked program", "program", p.Name, "executable", e.ID)
	return nil
}

// FailLink marks the last link of p as failed with log. The previous
// executable stays available to a context using p.
func (m *Manager) FailLink(p *Program, log string) {
	p.LinkStatus = false
	p.ValidateStatus = false
	p.InfoLog = log
	m.log.Debug("program link failed", "program", p.Name, "log", log)
}

func (m *Manager) failLink(p *Program, err error) {
	var (
		cerr *compiler.LinkError
		rerr *shaderres.LinkError
		log  string
	)
	switch {
	case errors.As(err, &cerr):
		log = cerr.Log
	case errors.As(err, &rerr):
		log = "ERROR: Linking: " + rerr.Msg + "\n"
	default:
		log = "ERROR: " + err.Error() + "\n"
	}
	m.FailLink(p, log)
}

func (m *Manager) newExecutable(in *shaderres.Interface, vert, frag shader.Sources, cache []byte) (e *Executable, err error) {
	m.execs++
	e = &Executable{
		ID:        m.execs,
		Interface: in,
		Sources:   [2]shader.Sources{vert, frag},
		textures:  make(map[[2]int]samplerBinding),
	}
	defer func() {
		if err != nil {
			e.destroy()
			e = nil
		}
	}()
	if e.Vertex, err = m.dev.NewShaderModule(driver.StageVertex, vert); err != nil {
		return e, wrapDriver(err, "vertex shader module")
	}
	if e.Fragment, err = m.dev.NewShaderModule(driver.StageFragment, frag); err != nil {
		return e, wrapDriver(err, "fragment shader module")
	}
	blocks := in.Blocks()
	bindings := make([]driver.DescriptorBinding, len(blocks))
	for i, b := range blocks {
		bindings[i] = driver.DescriptorBinding{Binding: b.Binding, Type: driver.DescriptorUniformBuffer, Stages: b.Stages}
		if b.Opaque {
			bindings[i].Type = driver.DescriptorCombinedImageSampler
			bindings[i].Count = in.Uniforms()[b.Uniforms[0]].ArraySize
		}
	}
	if e.SetLayout, err = m.dev.NewDescriptorSetLayout(bindings); err != nil {
		return e, wrapDriver(err, "descriptor set layout")
	}
	if e.Layout, err = m.dev.NewPipelineLayout(e.SetLayout, 0); err != nil {
		return e, wrapDriver(err, "pipeline layout")
	}
	if e.Cache, err = m.dev.NewPipelineCache(cache); err != nil {
		return e, wrapDriver(err, "pipeline cache")
	}
	e.buffers = make([]driver.Buffer, len(blocks))
	e.bufUse = make([]Use, len(blocks))
	for i, b := range blocks {
		if b.Opaque {
			continue
		}
		if e.buffers[i], err = m.dev.NewBuffer(driver.BufferUsageUniform, b.Size); err != nil {
			return e, wrapDriver(err, "uniform buffer")
		}
	}
	if e.set, err = m.dev.NewDescriptorSet(e.SetLayout); err != nil {
		return e, wrapDriver(err, "descriptor set")
	}
	e.writeBuffers(in)
	return e, nil
}

func (e *Executable) writeBuffers(in *shaderres.Interface) {
	for i, b := range in.Blocks() {
		if buf := e.buffers[i]; buf != nil {
			e.set.SetBuffer(b.Binding, buf, 0, b.Size)
		}
	}
}

// TextureLookup returns the texture bound to unit for target, or nil.
type TextureLookup func(unit int, target gl.Enum) *Texture

// Descriptors flushes dirty uniforms and binds the textures selected by
// the sampler uniforms, returning the descriptor set to draw with. Buffers
// and sets still in use by the GPU are replaced rather than rewritten.
func (m *Manager) Descriptors(e *Executable, lookup TextureLookup) (driver.DescriptorSet, error) {
	in := e.Interface
	blocks := in.Blocks()
	dirty := in.Flush()

	type texWrite struct {
		binding, elem int
		b             samplerBinding
	}
	var (
		writes  []texWrite
		used    []*Texture
		renamed []int
	)
	for _, idx := range in.Samplers() {
		u := in.Uniforms()[idx]
		target := gl.Enum(gl.TEXTURE_2D)
		if u.Type == gl.SAMPLER_CUBE {
			target = gl.TEXTURE_CUBE_MAP
		}
		binding := blocks[u.Block].Binding
		for elem, unit := range in.SamplerUnits(idx) {
			var t *Texture
			if lookup != nil {
				t = lookup(unit, target)
			}
			b, err := m.sampled(t, target)
			if err != nil {
				return nil, err
			}
			if b.img != nil && t != nil && b.img == t.img {
				used = append(used, t)
			}
			if e.textures[[2]int{binding, elem}] != b {
				writes = append(writes, texWrite{binding, elem, b})
			}
		}
	}
	for _, i := range dirty {
		if !e.bufUse[i].Busy(m.track) {
			continue
		}
		buf, err := m.dev.NewBuffer(driver.BufferUsageUniform, blocks[i].Size)
		if err != nil {
			return nil, wrapDriver(err, "uniform buffer")
		}
		m.track.Release(e.buffers[i])
		e.buffers[i] = buf
		e.bufUse[i] = Use{}
		renamed = append(renamed, i)
	}
	if (len(writes) > 0 || len(renamed) > 0) && e.setUse.Busy(m.track) {
		set, err := m.dev.NewDescriptorSet(e.SetLayout)
		if err != nil {
			return nil, wrapDriver(err, "descriptor set")
		}
		m.log.Debug("descriptor set renamed", "executable", e.ID)
		m.track.Release(e.set)
		e.set = set
		e.setUse = Use{}
		e.writeBuffers(in)
		for k, b := range e.textures {
			set.SetTexture(k[0], k[1], b.img, b.smp)
		}
	} else {
		for _, i := range renamed {
			e.set.SetBuffer(blocks[i].Binding, e.buffers[i], 0, blocks[i].Size)
		}
	}
	for _, w := range writes {
		e.set.SetTexture(w.binding, w.elem, w.b.img, w.b.smp)
		e.textures[[2]int{w.binding, w.elem}] = w.b
	}
	for _, i := range dirty {
		e.buffers[i].Upload(0, in.BlockData(i))
	}
	for i, buf := range e.buffers {
		if buf != nil {
			e.bufUse[i].MarkUsed(m.track)
		}
	}
	e.setUse.MarkUsed(m.track)
	for _, t := range used {
		t.MarkUsed(m.track)
	}
	return e.set, nil
}

// sampled returns the image and sampler for t, or the placeholder when
// t is missing or incomplete.
func (m *Manager) sampled(t *Texture, target gl.Enum) (samplerBinding, error) {
	if t != nil && t.Target == target {
		img, smp, ok, err := m.Prepare(t)
		if err != nil {
			return samplerBinding{}, err
		}
		if ok {
			return samplerBinding{img, smp}, nil
		}
	}
	return m.placeholder(target == gl.TEXTURE_CUBE_MAP)
}

// placeholder returns an opaque black texture, as sampled from
// incomplete textures.
func (m *Manager) placeholder(cube bool) (samplerBinding, error) {
	i := 0
	if cube {
		i = 1
	}
	if p := m.black[i]; p.img != nil {
		return p, nil
	}
	layers := 1
	if cube {
		layers = 6
	}
	img, err := m.dev.NewImage(driver.ImageDesc{
		Format: driver.FormatRGBA8,
		Width:  1,
		Height: 1,
		Levels: 1,
		Layers: layers,
		Usage:  driver.ImageUsageSampled | driver.ImageUsageTransfer,
	})
	if err != nil {
		return samplerBinding{}, wrapDriver(err, "placeholder texture")
	}
	for l := 0; l < layers; l++ {
		if err := img.Upload(l, 0, image.Rect(0, 0, 1, 1), []byte{0, 0, 0, 0xff}); err != nil {
			img.Release()
			return samplerBinding{}, wrapDriver(err, "placeholder texture")
		}
	}
	smp, err := m.dev.NewSampler(driver.SamplerDesc{MaxLod: 0.25})
	if err != nil {
		img.Release()
		return samplerBinding{}, wrapDriver(err, "placeholder sampler")
	}
	m.black[i] = samplerBinding{img, smp}
	return m.black[i], nil
}

// CheckSamplers reports an error if samplers of different types use the
// same texture unit, or a unit is out of range.
func CheckSamplers(in *shaderres.Interface, units int) error {
	types := make(map[int]gl.Enum)
	for _, idx := range in.Samplers() {
		u := in.Uniforms()[idx]
		for _, unit := range in.SamplerUnits(idx) {
			if unit < 0 || unit >= units {
				return errors.Errorf("sampler %s uses texture unit %d, beyond MAX_COMBINED_TEXTURE_IMAGE_UNITS", u.Name, unit)
			}
			if t, ok := types[unit]; ok && t != u.Type {
				return errors.Errorf("samplers of different types use texture unit %d", unit)
			}
			types[unit] = u.Type
		}
	}
	return nil
}

// ValidateProgram updates the validate status and info log of p.
func (m *Manager) ValidateProgram(p *Program) {
	in := p.Interface()
	if in == nil {
		p.ValidateStatus = false
		p.InfoLog = "ERROR: program is not linked\n"
		return
	}
	if err := CheckSamplers(in, m.limits.Program.MaxCombinedTextureImageUnits); err != nil {
		p.ValidateStatus = false
		p.InfoLog = fmt.Sprintf("ERROR: Validation: %v\n", err)
		return
	}
	p.ValidateStatus = true
}

// DeleteProgram deletes the program named h. A program current in the
// context is only marked for deletion; Unuse erases it.
func (m *Manager) DeleteProgram(h uint32, current bool) error {
	p, err := m.Program(h)
	if err != nil {
		return err
	}
	if current {
		p.Lifecycle = PendingDeletion
		return nil
	}
	m.eraseProgram(p)
	return nil
}

// Unuse is called when p stops being the current program.
func (m *Manager) Unuse(p *Program) {
	if p != nil && p.Lifecycle == PendingDeletion {
		m.eraseProgram(p)
	}
}

func (m *Manager) eraseProgram(p *Program) {
	m.log.Debug("erasing program", "program", p.Name)
	for _, r := range []handle.Ref{p.Vertex, p.Fragment} {
		if s := m.Shaders.Resolve(r); s != nil {
			m.unattach(s)
		}
	}
	p.Vertex, p.Fragment = handle.Ref{}, handle.Ref{}
	p.release(m.track)
	m.Programs.Deallocate(p.Name)
	delete(m.kinds, p.Name)
}

func (p *Program) release(t Tracker) {
	if p.exec != nil {
		p.exec.release(t)
		p.exec = nil
	}
}

func (e *Executable) release(t Tracker) {
	for _, r := range e.resources() {
		t.Release(r)
	}
}

// destroy releases the objects of an executable the GPU never saw.
func (e *Executable) destroy() {
	for _, r := range e.resources() {
		r.Release()
	}
}

func (e *Executable) resources() []driver.Resource {
	var rs []driver.Resource
	add := func(r driver.Resource, ok bool) {
		if ok {
			rs = append(rs, r)
		}
	}
	add(e.set, e.set != nil)
	for _, b := range e.buffers {
		add(b, b != nil)
	}
	add(e.Cache, e.Cache != nil)
	add(e.Layout, e.Layout != nil)
	add(e.SetLayout, e.SetLayout != nil)
	add(e.Fragment, e.Fragment != nil)
	add(e.Vertex, e.Vertex != nil)
	return rs
}
