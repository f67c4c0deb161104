// SPDX-License-Identifier: Unlicense OR MIT

// Package state tracks the current GL state of a context. Setters compare
// against the current value and only record a change, together with the
// dirty bits the change invalidates, when the value differs.
package state

import (
	"glove.dev/internal/gl"
)

// Dirty is a set of derived objects invalidated by state changes.
type Dirty uint8

const (
	// DirtyPipeline means the graphics pipeline must be looked up again.
	DirtyPipeline Dirty = 1 << iota
	// DirtyViewport means the dynamic viewport and scissor must be set
	// again.
	DirtyViewport
	// DirtyVertexAttribs means the vertex input bindings must be
	// recomputed.
	DirtyVertexAttribs
	// DirtyDescriptors means sampler bindings must be written again.
	DirtyDescriptors

	DirtyAll = DirtyPipeline | DirtyViewport | DirtyVertexAttribs | DirtyDescriptors
)

// Box is a window rectangle in GL coordinates.
type Box struct {
	X, Y, Width, Height int
}

type Input struct {
	PackAlignment   int
	UnpackAlignment int
	ArrayBuffer     uint32
	ElementBuffer   uint32
}

type Fragment struct {
	ScissorTest bool
	Scissor     Box
	Dither      bool
}

type Rasterization struct {
	CullFace          bool
	CullMode          gl.Enum
	FrontFace         gl.Enum
	LineWidth         float32
	PolygonOffsetFill bool
	OffsetFactor      float32
	OffsetUnits       float32
}

type Viewport struct {
	Box
	Near, Far float32
}

type Color struct {
	// Mask is the red, green, blue and alpha write mask.
	Mask [4]bool
}

type Depth struct {
	Test bool
	Func gl.Enum
	Mask bool
}

// StencilFace is the stencil state of one polygon facing.
type StencilFace struct {
	Func      gl.Enum
	Ref       int
	ValueMask uint32
	WriteMask uint32
	Fail      gl.Enum
	DepthFail gl.Enum
	DepthPass gl.Enum
}

type Stencil struct {
	Test  bool
	Front StencilFace
	Back  StencilFace
}

type Blend struct {
	Enable         bool
	SrcRGB, DstRGB gl.Enum
	SrcAlpha       gl.Enum
	DstAlpha       gl.Enum
	EquationRGB    gl.Enum
	EquationAlpha  gl.Enum
	Color          [4]float32
}

type Multisample struct {
	AlphaToCoverage bool
	SampleCoverage  bool
	CoverageValue   float32
	CoverageInvert  bool
}

type Hints struct {
	GenerateMipmap     gl.Enum
	FragmentDerivative gl.Enum
}

// Unit is the pair of texture bindings of one texture image unit.
type Unit struct {
	Texture2D uint32
	Cube      uint32
}

type Textures struct {
	// Active is the index of the active texture unit.
	Active int
	Units  []Unit
}

// Attrib is the configuration of one generic vertex attribute.
type Attrib struct {
	Enabled    bool
	Size       int
	Type       gl.Enum
	Normalized bool
	Stride     int
	// Buffer is the buffer bound when the pointer was specified, or 0
	// for client arrays.
	Buffer uint32
	Offset int
	// Client holds the client array when Buffer is 0.
	Client []byte
	// Generic is the current value used while the array is disabled.
	Generic [4]float32
}

// EffectiveStride returns the distance between consecutive elements.
func (a *Attrib) EffectiveStride() int {
	if a.Stride != 0 {
		return a.Stride
	}
	return a.ElementSize()
}

// ElementSize returns the size in bytes of one element of the array.
func (a *Attrib) ElementSize() int {
	return a.Size * typeSize(a.Type)
}

func typeSize(t gl.Enum) int {
	switch t {
	case gl.BYTE, gl.UNSIGNED_BYTE:
		return 1
	case gl.SHORT, gl.UNSIGNED_SHORT:
		return 2
	default:
		return 4
	}
}

type Clear struct {
	Color   [4]float32
	Depth   float32
	Stencil int
}

// State is the current state of a context.
type State struct {
	dirty Dirty

	Input         Input
	Fragment      Fragment
	Rasterization Rasterization
	Viewport      Viewport
	Color         Color
	Depth         Depth
	Stencil       Stencil
	Blend         Blend
	Multisample   Multisample
	Hints         Hints
	Textures      Textures
	Attribs       []Attrib
	Clear         Clear

	Program      uint32
	Framebuffer  uint32
	Renderbuffer uint32
}

// New returns the initial GL state for a context with the given number
// of vertex attributes and texture units. Everything starts dirty.
func New(attribs, units int) *State {
	face := StencilFace{
		Func:      gl.ALWAYS,
		ValueMask: ^uint32(0),
		WriteMask: ^uint32(0),
		Fail:      gl.KEEP,
		DepthFail: gl.KEEP,
		DepthPass: gl.KEEP,
	}
	s := &State{
		dirty: DirtyAll,
		Input: Input{PackAlignment: 4, UnpackAlignment: 4},
		Fragment: Fragment{
			Dither: true,
		},
		Rasterization: Rasterization{
			CullMode:  gl.BACK,
			FrontFace: gl.CCW,
			LineWidth: 1,
		},
		Viewport: Viewport{Far: 1},
		Color:    Color{Mask: [4]bool{true, true, true, true}},
		Depth:    Depth{Func: gl.LESS, Mask: true},
		Stencil:  Stencil{Front: face, Back: face},
		Blend: Blend{
			SrcRGB:        gl.ONE,
			DstRGB:        gl.ZERO,
			SrcAlpha:      gl.ONE,
			DstAlpha:      gl.ZERO,
			EquationRGB:   gl.FUNC_ADD,
			EquationAlpha: gl.FUNC_ADD,
		},
		Multisample: Multisample{CoverageValue: 1},
		Hints:       Hints{GenerateMipmap: gl.DONT_CARE, FragmentDerivative: gl.DONT_CARE},
		Textures:    Textures{Units: make([]Unit, units)},
		Attribs:     make([]Attrib, attribs),
		Clear:       Clear{Depth: 1},
	}
	for i := range s.Attribs {
		s.Attribs[i] = Attrib{Size: 4, Type: gl.FLOAT, Generic: [4]float32{0, 0, 0, 1}}
	}
	return s
}

// Dirty returns the accumulated dirty bits.
func (s *State) Dirty() Dirty {
	return s.dirty
}

// Has reports whether any of the bits in d are dirty.
func (s *State) Has(d Dirty) bool {
	return s.dirty&d != 0
}

// MarkDirty sets d, for changes made outside the state, such as a
// relinked program.
func (s *State) MarkDirty(d Dirty) {
	s.dirty |= d
}

// Clean clears d after the derived objects were brought up to date.
func (s *State) Clean(d Dirty) {
	s.dirty &^= d
}

// set assigns v to *dst and marks d if the value changed.
func set[T comparable](s *State, dst *T, v T, d Dirty) bool {
	if *dst == v {
		return false
	}
	*dst = v
	s.dirty |= d
	return true
}

// Enable sets the capability and reports whether its value changed.
// known is false for unknown capabilities.
func (s *State) Enable(capability gl.Enum, on bool) (changed, known bool) {
	switch capability {
	case gl.CULL_FACE:
		changed = set(s, &s.Rasterization.CullFace, on, DirtyPipeline)
	case gl.POLYGON_OFFSET_FILL:
		changed = set(s, &s.Rasterization.PolygonOffsetFill, on, DirtyPipeline)
	case gl.SCISSOR_TEST:
		changed = set(s, &s.Fragment.ScissorTest, on, DirtyViewport)
	case gl.DITHER:
		changed = s.Fragment.Dither != on
		s.Fragment.Dither = on
	case gl.DEPTH_TEST:
		changed = set(s, &s.Depth.Test, on, DirtyPipeline)
	case gl.STENCIL_TEST:
		changed = set(s, &s.Stencil.Test, on, DirtyPipeline)
	case gl.BLEND:
		changed = set(s, &s.Blend.Enable, on, DirtyPipeline)
	case gl.SAMPLE_ALPHA_TO_COVERAGE:
		changed = set(s, &s.Multisample.AlphaToCoverage, on, DirtyPipeline)
	case gl.SAMPLE_COVERAGE:
		changed = set(s, &s.Multisample.SampleCoverage, on, DirtyPipeline)
	default:
		return false, false
	}
	return changed, true
}

// Enabled returns the value of the capability.
func (s *State) Enabled(capability gl.Enum) (on, known bool) {
	switch capability {
	case gl.CULL_FACE:
		return s.Rasterization.CullFace, true
	case gl.POLYGON_OFFSET_FILL:
		return s.Rasterization.PolygonOffsetFill, true
	case gl.SCISSOR_TEST:
		return s.Fragment.ScissorTest, true
	case gl.DITHER:
		return s.Fragment.Dither, true
	case gl.DEPTH_TEST:
		return s.Depth.Test, true
	case gl.STENCIL_TEST:
		return s.Stencil.Test, true
	case gl.BLEND:
		return s.Blend.Enable, true
	case gl.SAMPLE_ALPHA_TO_COVERAGE:
		return s.Multisample.AlphaToCoverage, true
	case gl.SAMPLE_COVERAGE:
		return s.Multisample.SampleCoverage, true
	}
	return false, false
}

func (s *State) SetCullFace(mode gl.Enum) bool {
	return set(s, &s.Rasterization.CullMode, mode, DirtyPipeline)
}

func (s *State) SetFrontFace(mode gl.Enum) bool {
	return set(s, &s.Rasterization.FrontFace, mode, DirtyPipeline)
}

func (s *State) SetLineWidth(w float32) bool {
	return set(s, &s.Rasterization.LineWidth, w, DirtyPipeline)
}

func (s *State) SetPolygonOffset(factor, units float32) bool {
	a := set(s, &s.Rasterization.OffsetFactor, factor, DirtyPipeline)
	b := set(s, &s.Rasterization.OffsetUnits, units, DirtyPipeline)
	return a || b
}

func (s *State) SetViewport(b Box) bool {
	return set(s, &s.Viewport.Box, b, DirtyViewport)
}

// SetDepthRange sets the depth range, clamped to [0, 1].
func (s *State) SetDepthRange(near, far float32) bool {
	near, far = clamp01(near), clamp01(far)
	a := set(s, &s.Viewport.Near, near, DirtyViewport)
	b := set(s, &s.Viewport.Far, far, DirtyViewport)
	return a || b
}

func (s *State) SetScissor(b Box) bool {
	return set(s, &s.Fragment.Scissor, b, DirtyViewport)
}

func (s *State) SetColorMask(r, g, b, a bool) bool {
	return set(s, &s.Color.Mask, [4]bool{r, g, b, a}, DirtyPipeline)
}

func (s *State) SetDepthFunc(f gl.Enum) bool {
	return set(s, &s.Depth.Func, f, DirtyPipeline)
}

func (s *State) SetDepthMask(m bool) bool {
	return set(s, &s.Depth.Mask, m, DirtyPipeline)
}

// faces returns the stencil faces selected by face, one of FRONT, BACK
// or FRONT_AND_BACK.
func (s *State) faces(face gl.Enum) []*StencilFace {
	switch face {
	case gl.FRONT:
		return []*StencilFace{&s.Stencil.Front}
	case gl.BACK:
		return []*StencilFace{&s.Stencil.Back}
	default:
		return []*StencilFace{&s.Stencil.Front, &s.Stencil.Back}
	}
}

func (s *State) SetStencilFunc(face, fn gl.Enum, ref int, mask uint32) bool {
	changed := false
	for _, f := range s.faces(face) {
		changed = set(s, &f.Func, fn, DirtyPipeline) || changed
		changed = set(s, &f.Ref, ref, DirtyPipeline) || changed
		changed = set(s, &f.ValueMask, mask, DirtyPipeline) || changed
	}
	return changed
}

func (s *State) SetStencilOp(face, fail, zfail, zpass gl.Enum) bool {
	changed := false
	for _, f := range s.faces(face) {
		changed = set(s, &f.Fail, fail, DirtyPipeline) || changed
		changed = set(s, &f.DepthFail, zfail, DirtyPipeline) || changed
		changed = set(s, &f.DepthPass, zpass, DirtyPipeline) || changed
	}
	return changed
}

func (s *State) SetStencilMask(face gl.Enum, mask uint32) bool {
	changed := false
	for _, f := range s.faces(face) {
		changed = set(s, &f.WriteMask, mask, DirtyPipeline) || changed
	}
	return changed
}

func (s *State) SetBlendFunc(srcRGB, dstRGB, srcAlpha, dstAlpha gl.Enum) bool {
	changed := set(s, &s.Blend.SrcRGB, srcRGB, DirtyPipeline)
	changed = set(s, &s.Blend.DstRGB, dstRGB, DirtyPipeline) || changed
	changed = set(s, &s.Blend.SrcAlpha, srcAlpha, DirtyPipeline) || changed
	changed = set(s, &s.Blend.DstAlpha, dstAlpha, DirtyPipeline) || changed
	return changed
}

func (s *State) SetBlendEquation(rgb, alpha gl.Enum) bool {
	a := set(s, &s.Blend.EquationRGB, rgb, DirtyPipeline)
	b := set(s, &s.Blend.EquationAlpha, alpha, DirtyPipeline)
	return a || b
}

// SetBlendColor sets the constant blend color, clamped to [0, 1].
func (s *State) SetBlendColor(c [4]float32) bool {
	for i := range c {
		c[i] = clamp01(c[i])
	}
	return set(s, &s.Blend.Color, c, DirtyPipeline)
}

// SetSampleCoverage sets the coverage value, clamped to [0, 1].
func (s *State) SetSampleCoverage(value float32, invert bool) bool {
	a := set(s, &s.Multisample.CoverageValue, clamp01(value), DirtyPipeline)
	b := set(s, &s.Multisample.CoverageInvert, invert, DirtyPipeline)
	return a || b
}

// SetClearColor sets the clear color, clamped to [0, 1].
func (s *State) SetClearColor(c [4]float32) {
	for i := range c {
		c[i] = clamp01(c[i])
	}
	s.Clear.Color = c
}

func (s *State) SetClearDepth(d float32) {
	s.Clear.Depth = clamp01(d)
}

func (s *State) SetClearStencil(v int) {
	s.Clear.Stencil = v
}

// SetHint sets target to mode. It reports false for unknown targets.
func (s *State) SetHint(target, mode gl.Enum) bool {
	switch target {
	case gl.GENERATE_MIPMAP_HINT:
		s.Hints.GenerateMipmap = mode
	case gl.FRAGMENT_SHADER_DERIVATIVE_HINT:
		s.Hints.FragmentDerivative = mode
	default:
		return false
	}
	return true
}

// SetPixelStore sets the pack or unpack alignment. It reports false for
// unknown parameters.
func (s *State) SetPixelStore(pname gl.Enum, align int) bool {
	switch pname {
	case gl.PACK_ALIGNMENT:
		s.Input.PackAlignment = align
	case gl.UNPACK_ALIGNMENT:
		s.Input.UnpackAlignment = align
	default:
		return false
	}
	return true
}

// BindBuffer binds h to target, ARRAY_BUFFER or ELEMENT_ARRAY_BUFFER.
func (s *State) BindBuffer(target gl.Enum, h uint32) bool {
	if target == gl.ARRAY_BUFFER {
		return set(s, &s.Input.ArrayBuffer, h, 0)
	}
	return set(s, &s.Input.ElementBuffer, h, 0)
}

// Buffer returns the buffer bound to target.
func (s *State) Buffer(target gl.Enum) uint32 {
	if target == gl.ARRAY_BUFFER {
		return s.Input.ArrayBuffer
	}
	return s.Input.ElementBuffer
}

func (s *State) SetActiveTexture(unit int) bool {
	return set(s, &s.Textures.Active, unit, 0)
}

// BindTexture binds h to target of the active unit.
func (s *State) BindTexture(target gl.Enum, h uint32) bool {
	u := &s.Textures.Units[s.Textures.Active]
	if target == gl.TEXTURE_CUBE_MAP {
		return set(s, &u.Cube, h, DirtyDescriptors)
	}
	return set(s, &u.Texture2D, h, DirtyDescriptors)
}

// Texture returns the texture bound to target of unit.
func (s *State) Texture(unit int, target gl.Enum) uint32 {
	if unit < 0 || unit >= len(s.Textures.Units) {
		return 0
	}
	u := s.Textures.Units[unit]
	if target == gl.TEXTURE_CUBE_MAP {
		return u.Cube
	}
	return u.Texture2D
}

// UseProgram makes the program named h current.
func (s *State) UseProgram(h uint32) bool {
	return set(s, &s.Program, h, DirtyPipeline|DirtyVertexAttribs|DirtyDescriptors)
}

// BindFramebuffer makes the framebuffer named h the render target. The
// render pass may change with it.
func (s *State) BindFramebuffer(h uint32) bool {
	return set(s, &s.Framebuffer, h, DirtyPipeline|DirtyViewport)
}

func (s *State) BindRenderbuffer(h uint32) bool {
	return set(s, &s.Renderbuffer, h, 0)
}

// EnableAttrib enables or disables the array of attribute index.
func (s *State) EnableAttrib(index int, on bool) bool {
	return set(s, &s.Attribs[index].Enabled, on, DirtyVertexAttribs)
}

// AttribPointer specifies the array of attribute index. The array is
// sourced from the bound array buffer at offset, or from client when no
// buffer is bound.
func (s *State) AttribPointer(index, size int, typ gl.Enum, normalized bool, stride, offset int, client []byte) {
	a := &s.Attribs[index]
	a.Size = size
	a.Type = typ
	a.Normalized = normalized
	a.Stride = stride
	a.Buffer = s.Input.ArrayBuffer
	a.Offset = offset
	a.Client = nil
	if a.Buffer == 0 {
		a.Client = client
	}
	s.dirty |= DirtyVertexAttribs
}

// SetGeneric sets the current value of attribute index. Only disabled
// arrays source it.
func (s *State) SetGeneric(index int, v [4]float32) bool {
	a := &s.Attribs[index]
	d := DirtyVertexAttribs
	if a.Enabled {
		d = 0
	}
	return set(s, &a.Generic, v, d)
}

// ForgetBuffer reverts every binding of the deleted buffer h to 0.
func (s *State) ForgetBuffer(h uint32) {
	if h == 0 {
		return
	}
	if s.Input.ArrayBuffer == h {
		s.Input.ArrayBuffer = 0
	}
	if s.Input.ElementBuffer == h {
		s.Input.ElementBuffer = 0
	}
	for i := range s.Attribs {
		if a := &s.Attribs[i]; a.Buffer == h {
			a.Buffer = 0
			s.dirty |= DirtyVertexAttribs
		}
	}
}

// ForgetTexture reverts every unit binding of the deleted texture h to 0.
func (s *State) ForgetTexture(h uint32) {
	if h == 0 {
		return
	}
	for i := range s.Textures.Units {
		u := &s.Textures.Units[i]
		if u.Texture2D == h {
			u.Texture2D = 0
			s.dirty |= DirtyDescriptors
		}
		if u.Cube == h {
			u.Cube = 0
			s.dirty |= DirtyDescriptors
		}
	}
}

func clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
