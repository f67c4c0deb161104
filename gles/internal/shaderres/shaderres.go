// SPDX-License-Identifier: Unlicense OR MIT

// Package shaderres binds the reflection of a linked shader pair to GL
// locations and Vulkan uniform blocks, and shadows uniform values on the
// client until a draw needs them.
package shaderres

import (
	"fmt"

	"github.com/pkg/errors"

	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

// Reflection is the compiler's view of the active interface of a
// vertex and fragment shader pair.
type Reflection struct {
	Attributes []ReflectedAttribute
	Uniforms   []ReflectedUniform
}

type ReflectedAttribute struct {
	Name string
	Type gl.Enum
}

// ReflectedUniform is one active uniform. Array uniforms are named with
// a "[0]" suffix, struct members with dot notation, and elements of
// arrays of structs with their index, as in "lights[2].color".
type ReflectedUniform struct {
	Name      string
	Type      gl.Enum
	ArraySize int
	Stages    driver.ShaderStage
}

type Attribute struct {
	Name     string
	Type     gl.Enum
	Location int
}

type Uniform struct {
	// Name is the reflection name reported by glGetActiveUniform.
	Name      string
	Type      gl.Enum
	ArraySize int
	Location  int
	// Block indexes Interface.Blocks.
	Block int
	// Offset is the std140 offset of element 0 within the block.
	Offset int
	// Stride is the std140 distance between array elements.
	Stride int
	Stages driver.ShaderStage

	data  []byte
	dirty bool
}

// Block is a uniform block of the translated shaders. Opaque blocks hold
// a single sampler and have no backing buffer.
type Block struct {
	// Name is the aggregate or uniform name the block was created for.
	Name    string
	Binding int
	// Size is the std140 size of the block in bytes, 0 for opaque blocks.
	Size   int
	Stages driver.ShaderStage
	Opaque bool
	// ArraySize is the element count of an aggregate array, 1 otherwise.
	ArraySize int
	// Aggregate is set for struct and struct array blocks.
	Aggregate bool
	// Uniforms indexes Interface.Uniforms in location order.
	Uniforms []int

	data  []byte
	dirty bool
}

// Limits bounds the resources a program may use.
type Limits struct {
	MaxVertexAttribs             int
	MaxVertexUniformVectors      int
	MaxFragmentUniformVectors    int
	MaxCombinedTextureImageUnits int
}

// Interface is the linked resource interface of a program.
type Interface struct {
	attributes []Attribute
	uniforms   []Uniform
	blocks     []Block
}

// LinkError describes why resources could not be bound.
type LinkError struct {
	Msg string
}

func (e *LinkError) Error() string {
	return e.Msg
}

func linkErrorf(format string, args ...interface{}) error {
	return errors.WithStack(&LinkError{Msg: fmt.Sprintf(format, args...)})
}

// Link assigns attribute locations, groups uniforms into blocks and lays
// the blocks out. bindings holds locations requested with
// glBindAttribLocation.
func Link(refl Reflection, bindings map[string]int, limits Limits) (*Interface, error) {
	attrs, err := assignAttributes(refl.Attributes, bindings, limits.MaxVertexAttribs)
	if err != nil {
		return nil, err
	}
	if err := checkUniformBudget(refl.Uniforms, limits); err != nil {
		return nil, err
	}
	uniforms, blocks, err := groupUniforms(refl.Uniforms)
	if err != nil {
		return nil, err
	}
	in := &Interface{
		attributes: attrs,
		uniforms:   uniforms,
		blocks:     blocks,
	}
	in.allocClientData()
	return in, nil
}

// assignAttributes honors custom bindings and packs the remaining
// attributes into the lowest free slots.
func assignAttributes(reflected []ReflectedAttribute, bindings map[string]int, max int) ([]Attribute, error) {
	used := make([]bool, max)
	attrs := make([]Attribute, len(reflected))
	claim := func(loc, slots int) {
		for s := loc; s < loc+slots; s++ {
			used[s] = true
		}
	}
	for i, a := range reflected {
		attrs[i] = Attribute{Name: a.Name, Type: a.Type, Location: -1}
		loc, ok := bindings[a.Name]
		if !ok {
			continue
		}
		slots := gl.LocationSlots(a.Type)
		if loc < 0 || loc+slots > max {
			return nil, linkErrorf("attribute %q bound to location %d exceeds MAX_VERTEX_ATTRIBS (%d)", a.Name, loc, max)
		}
		attrs[i].Location = loc
		claim(loc, slots)
	}
	for i := range attrs {
		a := &attrs[i]
		if a.Location != -1 {
			continue
		}
		slots := gl.LocationSlots(a.Type)
		loc := 0
	search:
		for {
			if loc+slots > max {
				return nil, linkErrorf("too many vertex attributes: no room for %q (MAX_VERTEX_ATTRIBS %d)", a.Name, max)
			}
			// Rescan the candidate range from its first slot every time
			// the candidate moves.
			for s := loc; s < loc+slots; s++ {
				if used[s] {
					loc++
					continue search
				}
			}
			break
		}
		a.Location = loc
		claim(loc, slots)
	}
	return attrs, nil
}

func checkUniformBudget(uniforms []ReflectedUniform, limits Limits) error {
	var vertex, fragment, samplers int
	for _, u := range uniforms {
		n := arraySize(u.ArraySize)
		if gl.IsSampler(u.Type) {
			samplers += n
			continue
		}
		vecs := gl.UniformVectors(u.Type) * n
		if u.Stages.Has(driver.StageVertex) {
			vertex += vecs
		}
		if u.Stages.Has(driver.StageFragment) {
			fragment += vecs
		}
	}
	switch {
	case vertex > limits.MaxVertexUniformVectors:
		return linkErrorf("vertex shader uses %d uniform vectors, MAX_VERTEX_UNIFORM_VECTORS is %d", vertex, limits.MaxVertexUniformVectors)
	case fragment > limits.MaxFragmentUniformVectors:
		return linkErrorf("fragment shader uses %d uniform vectors, MAX_FRAGMENT_UNIFORM_VECTORS is %d", fragment, limits.MaxFragmentUniformVectors)
	case samplers > limits.MaxCombinedTextureImageUnits:
		return linkErrorf("program uses %d samplers, MAX_COMBINED_TEXTURE_IMAGE_UNITS is %d", samplers, limits.MaxCombinedTextureImageUnits)
	}
	return nil
}

func arraySize(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// aggregate collects the reflected members of one struct or struct array.
type aggregate struct {
	name      string
	arraySize int
	isArray   bool
	// members in first-seen order, keyed by the path after the element.
	members []string
	types   map[string]ReflectedUniform
}

// groupUniforms implements the block grouping and location assignment.
func groupUniforms(reflected []ReflectedUniform) ([]Uniform, []Block, error) {
	type pending struct {
		single *ReflectedUniform
		agg    *aggregate
	}
	var order []pending
	aggs := make(map[string]*aggregate)
	for i := range reflected {
		r := &reflected[i]
		dot := indexDot(r.Name)
		if dot < 0 {
			order = append(order, pending{single: r})
			continue
		}
		base, idx, isArray, err := splitIndex(r.Name[:dot])
		if err != nil {
			return nil, nil, linkErrorf("uniform %q: %v", r.Name, err)
		}
		member := r.Name[dot+1:]
		a, ok := aggs[base]
		if !ok {
			a = &aggregate{name: base, types: make(map[string]ReflectedUniform)}
			aggs[base] = a
			order = append(order, pending{agg: a})
		}
		if isArray {
			a.isArray = true
		}
		if idx+1 > a.arraySize {
			a.arraySize = idx + 1
		}
		prev, seen := a.types[member]
		if !seen {
			a.members = append(a.members, member)
			a.types[member] = *r
		} else {
			if prev.Type != r.Type {
				return nil, nil, linkErrorf("uniform %q: member type differs between elements", r.Name)
			}
			merged := prev
			merged.Stages |= r.Stages
			a.types[member] = merged
		}
	}
	var (
		uniforms []Uniform
		blocks   []Block
		location int
	)
	for _, p := range order {
		binding := len(blocks)
		if r := p.single; r != nil {
			n := arraySize(r.ArraySize)
			b := Block{
				Name:      trimArraySuffix(r.Name),
				Binding:   binding,
				Stages:    r.Stages,
				Opaque:    gl.IsSampler(r.Type),
				ArraySize: 1,
			}
			u := Uniform{
				Name:      r.Name,
				Type:      r.Type,
				ArraySize: n,
				Location:  location,
				Block:     binding,
				Stages:    r.Stages,
			}
			if !b.Opaque {
				l := leafLayout(r.Type, n, n > 1 || hasArraySuffix(r.Name))
				u.Stride = l.stride
				b.Size = roundUp(l.size, 16)
			}
			b.Uniforms = []int{len(uniforms)}
			uniforms = append(uniforms, u)
			blocks = append(blocks, b)
			location += n
			continue
		}
		a := p.agg
		for _, m := range a.members {
			if gl.IsSampler(a.types[m].Type) {
				return nil, nil, linkErrorf("uniform %s.%s: samplers inside structs are not supported", a.name, m)
			}
		}
		root, err := buildTree(a)
		if err != nil {
			return nil, nil, linkErrorf("uniform %s: %v", a.name, err)
		}
		elem := root.layout()
		b := Block{
			Name:      a.name,
			Binding:   binding,
			Size:      elem.size * a.arraySize,
			ArraySize: a.arraySize,
			Aggregate: true,
		}
		for i := 0; i < a.arraySize; i++ {
			prefix := a.name
			if a.isArray {
				prefix = fmt.Sprintf("%s[%d]", a.name, i)
			}
			for _, m := range a.members {
				r := a.types[m]
				off, stride := root.memberOffset(m)
				n := arraySize(r.ArraySize)
				u := Uniform{
					Name:      prefix + "." + m,
					Type:      r.Type,
					ArraySize: n,
					Location:  location,
					Block:     binding,
					Offset:    i*elem.size + off,
					Stride:    stride,
					Stages:    r.Stages,
				}
				b.Stages |= r.Stages
				b.Uniforms = append(b.Uniforms, len(uniforms))
				uniforms = append(uniforms, u)
				location += n
			}
		}
		blocks = append(blocks, b)
	}
	return uniforms, blocks, nil
}

func (in *Interface) allocClientData() {
	for i := range in.uniforms {
		u := &in.uniforms[i]
		u.data = make([]byte, u.ArraySize*gl.TypeSize(u.Type))
		u.dirty = false
	}
	for i := range in.blocks {
		b := &in.blocks[i]
		b.data = make([]byte, b.Size)
		b.dirty = b.Size > 0
	}
}

func (in *Interface) Attributes() []Attribute {
	return in.attributes
}

func (in *Interface) Uniforms() []Uniform {
	return in.uniforms
}

func (in *Interface) Blocks() []Block {
	return in.blocks
}

// AttributeLocation returns the location of the named active attribute,
// or -1.
func (in *Interface) AttributeLocation(name string) int {
	for _, a := range in.attributes {
		if a.Name == name {
			return a.Location
		}
	}
	return -1
}

// Attribute returns the active attribute bound to location.
func (in *Interface) Attribute(location int) (Attribute, bool) {
	for _, a := range in.attributes {
		if location >= a.Location && location < a.Location+gl.LocationSlots(a.Type) {
			return a, true
		}
	}
	return Attribute{}, false
}

// ActiveAttributeMaxLength includes the terminating NUL, as GL reports it.
func (in *Interface) ActiveAttributeMaxLength() int {
	n := 0
	for _, a := range in.attributes {
		if l := len(a.Name) + 1; l > n {
			n = l
		}
	}
	return n
}

func (in *Interface) ActiveUniformMaxLength() int {
	n := 0
	for _, u := range in.uniforms {
		if l := len(u.Name) + 1; l > n {
			n = l
		}
	}
	return n
}

// Samplers returns the indices of the sampler uniforms.
func (in *Interface) Samplers() []int {
	var s []int
	for i, u := range in.uniforms {
		if gl.IsSampler(u.Type) {
			s = append(s, i)
		}
	}
	return s
}

// UniformVectors returns the number of uniform vectors stage uses.
func (in *Interface) UniformVectors(stage driver.ShaderStage) int {
	n := 0
	for _, u := range in.uniforms {
		if !gl.IsSampler(u.Type) && u.Stages.Has(stage) {
			n += gl.UniformVectors(u.Type) * u.ArraySize
		}
	}
	return n
}
