// SPDX-License-Identifier: Unlicense OR MIT

package gles

import (
	"bytes"
	"encoding/binary"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sys/cpu"

	"glove.dev/gles/internal/compiler"
	"glove.dev/gles/internal/resource"
	"glove.dev/gles/internal/shaderres"
	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

// Program binaries start with binaryMagic followed by binaryVersion.
const (
	binaryMagic   = "GLVB"
	binaryVersion = 1
)

var errBinary = errors.New("gles: invalid program binary")

// BinaryFormat returns the program binary format of this host.
func BinaryFormat() gl.Enum {
	switch runtime.GOARCH {
	case "386", "amd64":
		return gl.GLOVE_BINARY_X86
	case "arm", "arm64":
		return gl.GLOVE_BINARY_ARM
	}
	return gl.GLOVE_BINARY_DEV
}

// encodeBinary serializes a linked executable: the interface tables, the
// vertex and fragment SPIR-V and the pipeline cache contents, each
// prefixed by its length.
func encodeBinary(e *resource.Executable) ([]byte, error) {
	tables, err := e.Interface.MarshalBinary()
	if err != nil {
		return nil, err
	}
	var cache []byte
	if e.Cache != nil {
		if cache, err = e.Cache.Data(); err != nil {
			return nil, errors.Wrap(err, "gles: pipeline cache data")
		}
	}
	var b bytes.Buffer
	b.WriteString(binaryMagic)
	le := binary.LittleEndian
	b.Write(le.AppendUint32(nil, binaryVersion))
	b.Write(le.AppendUint32(nil, uint32(BinaryFormat())))
	var big byte
	if cpu.IsBigEndian {
		big = 1
	}
	b.WriteByte(big)
	for _, blob := range [][]byte{tables, []byte(e.Sources[0].SPIRV), []byte(e.Sources[1].SPIRV), cache} {
		b.Write(le.AppendUint32(nil, uint32(len(blob))))
		b.Write(blob)
	}
	return b.Bytes(), nil
}

type decodedBinary struct {
	in         *shaderres.Interface
	vert, frag []byte
	cache      []byte
}

func decodeBinary(format gl.Enum, data []byte) (decodedBinary, error) {
	var d decodedBinary
	if format != BinaryFormat() {
		return d, errors.Wrapf(errBinary, "format %#x", uint(format))
	}
	const header = len(binaryMagic) + 4 + 4 + 1
	if len(data) < header || string(data[:len(binaryMagic)]) != binaryMagic {
		return d, errors.Wrap(errBinary, "bad header")
	}
	le := binary.LittleEndian
	data = data[len(binaryMagic):]
	if v := le.Uint32(data); v != binaryVersion {
		return d, errors.Wrapf(errBinary, "version %d", v)
	}
	if f := gl.Enum(le.Uint32(data[4:])); f != format {
		return d, errors.Wrapf(errBinary, "stored format %#x", uint(f))
	}
	if big := data[8] == 1; big != cpu.IsBigEndian {
		return d, errors.Wrap(errBinary, "byte order")
	}
	data = data[9:]
	var blobs [4][]byte
	for i := range blobs {
		if len(data) < 4 {
			return d, errors.Wrap(errBinary, "truncated")
		}
		n := le.Uint32(data)
		data = data[4:]
		if uint64(n) > uint64(len(data)) {
			return d, errors.Wrap(errBinary, "truncated")
		}
		blobs[i], data = data[:n], data[n:]
	}
	if len(data) != 0 {
		return d, errors.Wrap(errBinary, "trailing data")
	}
	d.in = new(shaderres.Interface)
	if err := d.in.UnmarshalBinary(blobs[0]); err != nil {
		return d, errors.Wrap(errBinary, err.Error())
	}
	d.vert, d.frag, d.cache = blobs[1], blobs[2], blobs[3]
	if len(d.vert) == 0 || len(d.frag) == 0 {
		return d, errors.Wrap(errBinary, "missing stage")
	}
	return d, nil
}

func (c *Context) programBinary(p *resource.Program) ([]byte, error) {
	return encodeBinary(p.Executable())
}

// GetProgramBinaryOES returns the binary of a linked program and its
// format.
func (c *Context) GetProgramBinaryOES(program uint32) ([]byte, gl.Enum) {
	const call = "glGetProgramBinaryOES"
	p := c.programObject(call, program)
	if p == nil {
		return nil, 0
	}
	if p.Interface() == nil {
		c.setError(call, gl.INVALID_OPERATION)
		return nil, 0
	}
	b, err := c.programBinary(p)
	if !c.check(call, err) {
		return nil, 0
	}
	return b, BinaryFormat()
}

// ProgramBinaryOES links program from a binary returned by
// GetProgramBinaryOES. Binaries of another format or build fail the link
// without raising an error.
func (c *Context) ProgramBinaryOES(program uint32, format gl.Enum, data []byte) {
	const call = "glProgramBinaryOES"
	p := c.programObject(call, program)
	if p == nil {
		return
	}
	old := p.Executable()
	d, err := decodeBinary(format, data)
	if err != nil {
		c.log.Debug("program binary rejected", "program", program, "err", err)
		c.res.FailLink(p, "ERROR: "+err.Error()+"\n")
		c.linked(p, old)
		return
	}
	vert := compiler.Sources(driver.StageVertex, d.vert, d.in)
	frag := compiler.Sources(driver.StageFragment, d.frag, d.in)
	if !c.check(call, c.res.LinkBinary(p, d.in, vert, frag, d.cache)) {
		return
	}
	c.linked(p, old)
}
