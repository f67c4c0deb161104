// SPDX-License-Identifier: Unlicense OR MIT

package shaderres

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/cpu"

	"glove.dev/internal/gl"
)

// NativeOrder is the byte order of client uniform data and of the
// uniform buffers the GPU reads.
var NativeOrder binary.ByteOrder = binary.LittleEndian

func init() {
	if cpu.IsBigEndian {
		NativeOrder = binary.BigEndian
	}
}

var errLocation = errors.New("shaderres: invalid uniform location")

// UniformLocation resolves name as glGetUniformLocation does. Array
// elements may be addressed with a subscript; the bare array name and
// "[0]" address element 0. It returns -1 for unknown names.
func (in *Interface) UniformLocation(name string) int {
	if name == "" || strings.HasPrefix(name, "gl_") {
		return -1
	}
	for i := range in.uniforms {
		u := &in.uniforms[i]
		if u.Name == name {
			return u.Location
		}
	}
	base, idx, isArray, err := splitIndex(name)
	if err != nil {
		return -1
	}
	if !isArray {
		base = name
	}
	for i := range in.uniforms {
		u := &in.uniforms[i]
		if !hasArraySuffix(u.Name) || trimArraySuffix(u.Name) != base {
			continue
		}
		if idx < u.ArraySize {
			return u.Location + idx
		}
		return -1
	}
	return -1
}

// Lookup returns the uniform index and array element addressed by
// location.
func (in *Interface) Lookup(location int) (index, elem int, ok bool) {
	for i := range in.uniforms {
		u := &in.uniforms[i]
		if location >= u.Location && location < u.Location+u.ArraySize {
			return i, location - u.Location, true
		}
	}
	return 0, 0, false
}

// SetUniform stores count tightly packed elements, starting at the
// element addressed by location. Elements past the end of the array are
// dropped. It returns the number of elements stored.
func (in *Interface) SetUniform(location int, data []byte) (int, error) {
	i, elem, ok := in.Lookup(location)
	if !ok {
		return 0, errLocation
	}
	u := &in.uniforms[i]
	size := gl.TypeSize(u.Type)
	n := len(data) / size
	if elem+n > u.ArraySize {
		n = u.ArraySize - elem
	}
	copy(u.data[elem*size:], data[:n*size])
	u.dirty = true
	return n, nil
}

// GetUniform returns the client value of the element at location.
func (in *Interface) GetUniform(location int) ([]byte, error) {
	i, elem, ok := in.Lookup(location)
	if !ok {
		return nil, errLocation
	}
	u := &in.uniforms[i]
	size := gl.TypeSize(u.Type)
	v := make([]byte, size)
	copy(v, u.data[elem*size:])
	return v, nil
}

// SamplerUnits returns the texture units assigned to the elements of
// sampler uniform i.
func (in *Interface) SamplerUnits(i int) []int {
	u := &in.uniforms[i]
	units := make([]int, u.ArraySize)
	for e := range units {
		units[e] = int(int32(NativeOrder.Uint32(u.data[e*4:])))
	}
	return units
}

// Dirty reports whether any uniform changed since the last Flush.
func (in *Interface) Dirty() bool {
	for i := range in.uniforms {
		if in.uniforms[i].dirty {
			return true
		}
	}
	for i := range in.blocks {
		if in.blocks[i].dirty {
			return true
		}
	}
	return false
}

// Flush copies dirty client data into the std140 images of their blocks
// and returns the indices of the blocks whose buffers must be updated.
func (in *Interface) Flush() []int {
	for i := range in.uniforms {
		u := &in.uniforms[i]
		if !u.dirty {
			continue
		}
		u.dirty = false
		b := &in.blocks[u.Block]
		if b.Opaque {
			continue
		}
		writeStd140(b.data, u)
		b.dirty = true
	}
	var dirty []int
	for i := range in.blocks {
		b := &in.blocks[i]
		if b.dirty {
			b.dirty = false
			if !b.Opaque {
				dirty = append(dirty, i)
			}
		}
	}
	return dirty
}

// writeStd140 scatters the packed client data of u into block data.
func writeStd140(dst []byte, u *Uniform) {
	rows, cols := gl.TypeRows(u.Type), gl.TypeColumns(u.Type)
	col := rows * 4
	src := u.data
	for e := 0; e < u.ArraySize; e++ {
		base := u.Offset + e*u.Stride
		for c := 0; c < cols; c++ {
			copy(dst[base+c*16:base+c*16+col], src[:col])
			src = src[col:]
		}
	}
}

// BlockData returns the std140 image of block i.
func (in *Interface) BlockData(i int) []byte {
	return in.blocks[i].data
}

// Reset zeroes every uniform, as a successful link does.
func (in *Interface) Reset() {
	in.allocClientData()
}
