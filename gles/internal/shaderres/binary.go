// SPDX-License-Identifier: Unlicense OR MIT

package shaderres

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

const (
	flagOpaque = 1 << iota
	flagAggregate
)

var errCorrupt = errors.New("shaderres: corrupt interface data")

// MarshalBinary encodes the linked tables. Uniform values are not
// included.
func (in *Interface) MarshalBinary() ([]byte, error) {
	var w encoder
	w.u32(uint32(len(in.attributes)))
	for _, a := range in.attributes {
		w.str(a.Name)
		w.u32(uint32(a.Type))
		w.u32(uint32(a.Location))
	}
	w.u32(uint32(len(in.uniforms)))
	for _, u := range in.uniforms {
		w.str(u.Name)
		w.u32(uint32(u.Type))
		w.u32(uint32(u.ArraySize))
		w.u32(uint32(u.Location))
		w.u32(uint32(u.Block))
		w.u32(uint32(u.Offset))
		w.u32(uint32(u.Stride))
		w.u32(uint32(u.Stages))
	}
	w.u32(uint32(len(in.blocks)))
	for _, b := range in.blocks {
		w.str(b.Name)
		w.u32(uint32(b.Binding))
		w.u32(uint32(b.Size))
		w.u32(uint32(b.Stages))
		var flags uint32
		if b.Opaque {
			flags |= flagOpaque
		}
		if b.Aggregate {
			flags |= flagAggregate
		}
		w.u32(flags)
		w.u32(uint32(b.ArraySize))
		w.u32(uint32(len(b.Uniforms)))
		for _, idx := range b.Uniforms {
			w.u32(uint32(idx))
		}
	}
	return w.buf, nil
}

// UnmarshalBinary restores tables written by MarshalBinary and resets
// every uniform to zero.
func (in *Interface) UnmarshalBinary(data []byte) error {
	r := decoder{buf: data}
	var out Interface
	out.attributes = make([]Attribute, r.count())
	for i := range out.attributes {
		out.attributes[i] = Attribute{
			Name:     r.str(),
			Type:     gl.Enum(r.u32()),
			Location: int(int32(r.u32())),
		}
	}
	out.uniforms = make([]Uniform, r.count())
	for i := range out.uniforms {
		out.uniforms[i] = Uniform{
			Name:      r.str(),
			Type:      gl.Enum(r.u32()),
			ArraySize: int(r.u32()),
			Location:  int(r.u32()),
			Block:     int(r.u32()),
			Offset:    int(r.u32()),
			Stride:    int(r.u32()),
			Stages:    driver.ShaderStage(r.u32()),
		}
	}
	out.blocks = make([]Block, r.count())
	for i := range out.blocks {
		b := &out.blocks[i]
		b.Name = r.str()
		b.Binding = int(r.u32())
		b.Size = int(r.u32())
		b.Stages = driver.ShaderStage(r.u32())
		flags := r.u32()
		b.Opaque = flags&flagOpaque != 0
		b.Aggregate = flags&flagAggregate != 0
		b.ArraySize = int(r.u32())
		b.Uniforms = make([]int, r.count())
		for j := range b.Uniforms {
			b.Uniforms[j] = int(r.u32())
		}
	}
	if r.err != nil {
		return r.err
	}
	if len(r.buf) != 0 {
		return errors.Wrap(errCorrupt, "trailing data")
	}
	if err := out.validate(); err != nil {
		return err
	}
	out.allocClientData()
	*in = out
	return nil
}

// validate rejects tables that would index out of range.
func (in *Interface) validate() error {
	for _, u := range in.uniforms {
		if !gl.IsType(u.Type) || u.ArraySize < 1 || u.Block < 0 || u.Block >= len(in.blocks) {
			return errors.Wrapf(errCorrupt, "uniform %q", u.Name)
		}
		b := in.blocks[u.Block]
		if b.Opaque {
			continue
		}
		span := u.Offset + (u.ArraySize-1)*u.Stride + gl.TypeColumns(u.Type)*16
		if gl.TypeColumns(u.Type) == 1 {
			span = u.Offset + (u.ArraySize-1)*u.Stride + gl.TypeSize(u.Type)
		}
		if span > b.Size {
			return errors.Wrapf(errCorrupt, "uniform %q exceeds its block", u.Name)
		}
	}
	for _, b := range in.blocks {
		for _, idx := range b.Uniforms {
			if idx < 0 || idx >= len(in.uniforms) {
				return errors.Wrapf(errCorrupt, "block %q", b.Name)
			}
		}
	}
	for _, a := range in.attributes {
		if !gl.IsType(a.Type) {
			return errors.Wrapf(errCorrupt, "attribute %q", a.Name)
		}
	}
	return nil
}

type encoder struct {
	buf []byte
}

func (w *encoder) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *encoder) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

type decoder struct {
	buf []byte
	err error
}

func (r *decoder) u32() uint32 {
	if r.err != nil {
		return 0
	}
	if len(r.buf) < 4 {
		r.err = errors.Wrap(errCorrupt, "short read")
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf)
	r.buf = r.buf[4:]
	return v
}

// count reads a table length, bounded by the remaining input.
func (r *decoder) count() int {
	n := r.u32()
	if int(n) > len(r.buf) {
		if r.err == nil {
			r.err = errors.Wrap(errCorrupt, "table length")
		}
		return 0
	}
	return int(n)
}

func (r *decoder) str() string {
	n := r.count()
	if r.err != nil {
		return ""
	}
	s := string(r.buf[:n])
	r.buf = r.buf[n:]
	return s
}
