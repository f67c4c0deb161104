// SPDX-License-Identifier: Unlicense OR MIT

package pipeline

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"glove.dev/gles/internal/resource"
	"glove.dev/gles/internal/shaderres"
	"glove.dev/gles/internal/state"
	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

// maxAttributeOffset is the largest attribute offset within a binding
// every Vulkan implementation supports.
const maxAttributeOffset = 2047

// Layout is the vertex input state baked into a pipeline.
type Layout struct {
	Bindings   []driver.VertexBinding
	Attributes []driver.VertexAttribute
}

func (l Layout) equal(o Layout) bool {
	return slices.Equal(l.Bindings, o.Bindings) && slices.Equal(l.Attributes, o.Attributes)
}

// BufferLookup resolves a buffer name to its object, nil if the name
// does not denote a buffer.
type BufferLookup func(h uint32) *resource.Buffer

// source is where the elements of one vertex binding come from.
type source struct {
	// buffer is the GL buffer name, 0 for client arrays and generic
	// values.
	buffer uint32
	offset int
	stride int
	// client is the client array of the single attribute in the binding.
	client []byte
	// extent is the size of one element of client.
	extent  int
	generic bool
}

// VertexInput maps the vertex attributes of the current program to
// vertex buffer bindings. Attributes sourcing the same buffer with the
// same stride share one binding.
type VertexInput struct {
	dev   driver.Device
	track resource.Tracker

	in      *shaderres.Interface
	layout  Layout
	sources []source

	// generic holds the current values of the disabled attributes, all
	// read through one binding with stride 0.
	generic     driver.Buffer
	genericData []byte

	buffers []driver.Buffer
	offsets []int
}

func NewVertexInput(dev driver.Device, track resource.Tracker) *VertexInput {
	return &VertexInput{dev: dev, track: track}
}

// Layout returns the layout computed by the last Prepare.
func (v *VertexInput) Layout() Layout {
	return v.layout
}

// Prepare resolves the vertex buffers for drawing vertices [0, end) of
// the program interface in. It reports whether the layout changed since
// the previous call.
func (v *VertexInput) Prepare(s *state.State, in *shaderres.Interface, lookup BufferLookup, end int) (changed bool, err error) {
	if s.Has(state.DirtyVertexAttribs) || in != v.in {
		old := v.layout
		if err := v.compute(s, in); err != nil {
			return false, err
		}
		v.in = in
		s.Clean(state.DirtyVertexAttribs)
		changed = !v.layout.equal(old)
	}
	v.buffers = v.buffers[:0]
	v.offsets = v.offsets[:0]
	for _, src := range v.sources {
		switch {
		case src.generic:
			v.buffers = append(v.buffers, v.generic)
			v.offsets = append(v.offsets, 0)
		case src.buffer == 0:
			buf, err := v.uploadClient(src, end)
			if err != nil {
				return changed, err
			}
			v.buffers = append(v.buffers, buf)
			v.offsets = append(v.offsets, 0)
		default:
			b := lookup(src.buffer)
			if b == nil || b.Driver() == nil {
				return changed, errors.Wrapf(resource.ErrInvalidOperation, "pipeline: attribute buffer %d has no data store", src.buffer)
			}
			b.MarkUsed(v.track)
			v.buffers = append(v.buffers, b.Driver())
			v.offsets = append(v.offsets, src.offset)
		}
	}
	return changed, nil
}

// ClientArrays reports whether the prepared layout sources client
// memory, in which case draws must know the vertex range.
func (v *VertexInput) ClientArrays() bool {
	for _, src := range v.sources {
		if src.buffer == 0 && !src.generic {
			return true
		}
	}
	return false
}

// Bind records the vertex buffer bindings of the last Prepare.
func (v *VertexInput) Bind(cb driver.CommandBuffer) {
	if len(v.buffers) > 0 {
		cb.BindVertexBuffers(0, v.buffers, v.offsets)
	}
}

func (v *VertexInput) compute(s *state.State, in *shaderres.Interface) error {
	v.layout = Layout{}
	v.sources = v.sources[:0]
	var generics []int
	if in != nil {
		for _, a := range in.Attributes() {
			for slot := 0; slot < gl.LocationSlots(a.Type); slot++ {
				loc := a.Location + slot
				if loc >= len(s.Attribs) {
					continue
				}
				at := &s.Attribs[loc]
				switch {
				case !at.Enabled:
					generics = append(generics, loc)
				case at.Buffer == 0:
					v.addClient(loc, at)
				default:
					v.addBuffered(loc, at)
				}
			}
		}
	}
	if len(generics) > 0 {
		if err := v.setGeneric(s, generics); err != nil {
			return err
		}
	}
	return nil
}

func format(at *state.Attrib) driver.VertexFormat {
	typ, ok := VertexType(at.Type)
	if !ok {
		typ = driver.VertexFloat
	}
	return driver.VertexFormat{Type: typ, Size: at.Size, Normalized: at.Normalized}
}

func (v *VertexInput) addBinding(stride int, src source) int {
	b := len(v.layout.Bindings)
	v.layout.Bindings = append(v.layout.Bindings, driver.VertexBinding{Binding: b, Stride: stride})
	v.sources = append(v.sources, src)
	return b
}

func (v *VertexInput) addClient(loc int, at *state.Attrib) {
	stride := at.EffectiveStride()
	b := v.addBinding(stride, source{client: at.Client, stride: stride, extent: at.ElementSize()})
	v.layout.Attributes = append(v.layout.Attributes, driver.VertexAttribute{
		Location: loc,
		Binding:  b,
		Format:   format(at),
	})
}

func (v *VertexInput) addBuffered(loc int, at *state.Attrib) {
	stride := at.EffectiveStride()
	for i, src := range v.sources {
		if src.generic || src.buffer != at.Buffer || src.stride != stride {
			continue
		}
		if off := at.Offset - src.offset; off >= 0 && off <= maxAttributeOffset {
			v.layout.Attributes = append(v.layout.Attributes, driver.VertexAttribute{
				Location: loc,
				Binding:  i,
				Format:   format(at),
				Offset:   off,
			})
			return
		}
	}
	b := v.addBinding(stride, source{buffer: at.Buffer, offset: at.Offset, stride: stride})
	v.layout.Attributes = append(v.layout.Attributes, driver.VertexAttribute{
		Location: loc,
		Binding:  b,
		Format:   format(at),
	})
}

// setGeneric uploads the current values of the locations into a new
// generic buffer if they changed.
func (v *VertexInput) setGeneric(s *state.State, locs []int) error {
	data := make([]byte, 16*len(locs))
	for i, loc := range locs {
		for j, f := range s.Attribs[loc].Generic {
			shaderres.NativeOrder.PutUint32(data[i*16+j*4:], math.Float32bits(f))
		}
	}
	if v.generic == nil || !slices.Equal(data, v.genericData) {
		buf, err := v.dev.NewBuffer(driver.BufferUsageVertex, len(data))
		if err != nil {
			return errors.Wrap(err, "pipeline: generic attributes")
		}
		buf.Upload(0, data)
		if v.generic != nil {
			v.track.Release(v.generic)
		}
		v.generic = buf
		v.genericData = data
	}
	b := v.addBinding(0, source{generic: true})
	for i, loc := range locs {
		v.layout.Attributes = append(v.layout.Attributes, driver.VertexAttribute{
			Location: loc,
			Binding:  b,
			Format:   driver.VertexFormat{Type: driver.VertexFloat, Size: 4},
			Offset:   i * 16,
		})
	}
	return nil
}

// uploadClient copies the elements [0, end) of a client array into a
// buffer released as soon as the recorded work completes.
func (v *VertexInput) uploadClient(src source, end int) (driver.Buffer, error) {
	size := src.extent
	if end > 1 {
		size += (end - 1) * src.stride
	}
	data := make([]byte, size)
	copy(data, src.client)
	return v.transient(driver.BufferUsageVertex, data)
}

func (v *VertexInput) transient(usage driver.BufferUsage, data []byte) (driver.Buffer, error) {
	buf, err := v.dev.NewBuffer(usage, len(data))
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: transient buffer")
	}
	buf.Upload(0, data)
	v.track.Release(buf)
	return buf, nil
}

// Release frees the generic value buffer.
func (v *VertexInput) Release() {
	if v.generic != nil {
		v.track.Release(v.generic)
		v.generic = nil
	}
	v.genericData = nil
	v.in = nil
	v.layout = Layout{}
	v.sources = nil
}

// Indices is an index buffer ready for DrawIndexed.
type Indices struct {
	Buffer driver.Buffer
	Offset int
	Type   driver.IndexType
	Count  int
	// Min and Max are the smallest and largest index.
	Min, Max int
}

// Bind records the index buffer binding.
func (i Indices) Bind(cb driver.CommandBuffer) {
	cb.BindIndexBuffer(i.Buffer, i.Offset, i.Type)
}

// IndexSize returns the size of one index of type typ, 0 for invalid
// types.
func IndexSize(typ gl.Enum) int {
	switch typ {
	case gl.UNSIGNED_BYTE:
		return 1
	case gl.UNSIGNED_SHORT:
		return 2
	case gl.UNSIGNED_INT:
		return 4
	}
	return 0
}

func index(typ gl.Enum, data []byte, i int) uint32 {
	switch typ {
	case gl.UNSIGNED_BYTE:
		return uint32(data[i])
	case gl.UNSIGNED_SHORT:
		return uint32(shaderres.NativeOrder.Uint16(data[i*2:]))
	default:
		return shaderres.NativeOrder.Uint32(data[i*4:])
	}
}

// IndexRange returns the smallest and largest of the first count indices
// in data.
func IndexRange(typ gl.Enum, data []byte, count int) (min, max int) {
	if count == 0 {
		return 0, 0
	}
	lo, hi := uint32(math.MaxUint32), uint32(0)
	for i := 0; i < count; i++ {
		x := index(typ, data, i)
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return int(lo), int(hi)
}

// PrepareIndices returns the index buffer for drawing count indices of
// type typ read from elements at offset, or from client when elements is
// nil. Byte indices, misaligned offsets and line loops go through a
// transient buffer; loop appends the first index to close the strip.
func (v *VertexInput) PrepareIndices(typ gl.Enum, count int, elements *resource.Buffer, offset int, client []byte, loop bool) (Indices, error) {
	size := IndexSize(typ)
	data := client
	if elements != nil {
		if offset < 0 || offset > elements.Size() {
			return Indices{}, errors.Wrap(resource.ErrInvalidOperation, "pipeline: index offset out of range")
		}
		data = elements.Data()[offset:]
	}
	if len(data) < count*size {
		return Indices{}, errors.Wrap(resource.ErrInvalidOperation, "pipeline: index data too short")
	}
	ind := Indices{Count: count}
	ind.Min, ind.Max = IndexRange(typ, data, count)
	if elements != nil && typ != gl.UNSIGNED_BYTE && offset%size == 0 && !loop {
		elements.MarkUsed(v.track)
		ind.Buffer = elements.Driver()
		ind.Offset = offset
		ind.Type = driver.IndexUint16
		if typ == gl.UNSIGNED_INT {
			ind.Type = driver.IndexUint32
		}
		return ind, nil
	}
	n := count
	if loop && count > 0 {
		n++
	}
	var out []byte
	if typ == gl.UNSIGNED_INT {
		ind.Type = driver.IndexUint32
		out = make([]byte, n*4)
		for i := 0; i < count; i++ {
			shaderres.NativeOrder.PutUint32(out[i*4:], index(typ, data, i))
		}
		if n > count {
			shaderres.NativeOrder.PutUint32(out[count*4:], index(typ, data, 0))
		}
	} else {
		ind.Type = driver.IndexUint16
		out = make([]byte, n*2)
		for i := 0; i < count; i++ {
			shaderres.NativeOrder.PutUint16(out[i*2:], uint16(index(typ, data, i)))
		}
		if n > count {
			shaderres.NativeOrder.PutUint16(out[count*2:], uint16(index(typ, data, 0)))
		}
	}
	ind.Count = n
	if n == 0 {
		return ind, nil
	}
	buf, err := v.transient(driver.BufferUsageIndex, out)
	if err != nil {
		return Indices{}, err
	}
	ind.Buffer = buf
	return ind, nil
}

// LoopIndices returns indices drawing the vertices [first, first+count)
// of DrawArrays as a closed line loop.
func (v *VertexInput) LoopIndices(first, count int) (Indices, error) {
	out := make([]byte, (count+1)*4)
	for i := 0; i < count; i++ {
		shaderres.NativeOrder.PutUint32(out[i*4:], uint32(first+i))
	}
	shaderres.NativeOrder.PutUint32(out[count*4:], uint32(first))
	buf, err := v.transient(driver.BufferUsageIndex, out)
	if err != nil {
		return Indices{}, err
	}
	return Indices{Buffer: buf, Type: driver.IndexUint32, Count: count + 1, Min: first, Max: first + count - 1}, nil
}
