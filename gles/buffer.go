// SPDX-License-Identifier: Unlicense OR MIT

package gles

import (
	"glove.dev/gles/internal/resource"
	"glove.dev/internal/gl"
)

func validBufferTarget(target gl.Enum) bool {
	return target == gl.ARRAY_BUFFER || target == gl.ELEMENT_ARRAY_BUFFER
}

func (c *Context) GenBuffers(n int) []uint32 {
	if n < 0 {
		c.setError("glGenBuffers", gl.INVALID_VALUE)
		return nil
	}
	names := make([]uint32, n)
	for i := range names {
		names[i] = c.res.Buffers.Allocate()
	}
	return names
}

// DeleteBuffers deletes the named buffers, unbinding them first. Zero and
// unknown names are ignored.
func (c *Context) DeleteBuffers(names []uint32) {
	for _, h := range names {
		if h == 0 || !c.res.Buffers.Allocated(h) {
			continue
		}
		c.state.ForgetBuffer(h)
		c.res.DeleteBuffer(h)
	}
}

func (c *Context) IsBuffer(h uint32) bool {
	return h != 0 && c.res.Buffers.Realized(h)
}

func (c *Context) BindBuffer(target gl.Enum, h uint32) {
	const call = "glBindBuffer"
	if !validBufferTarget(target) {
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	if h != 0 {
		if !c.res.Buffers.Allocated(h) {
			c.setError(call, gl.INVALID_OPERATION)
			return
		}
		c.res.Buffers.Object(h)
	}
	c.state.BindBuffer(target, h)
}

// boundBuffer returns the buffer bound to target, raising the matching
// error when there is none.
func (c *Context) boundBuffer(call string, target gl.Enum) *resource.Buffer {
	if !validBufferTarget(target) {
		c.setError(call, gl.INVALID_ENUM)
		return nil
	}
	b := c.res.Buffers.Lookup(c.state.Buffer(target))
	if b == nil {
		c.setError(call, gl.INVALID_OPERATION)
	}
	return b
}

// BufferData creates the data store of the buffer bound to target with
// size bytes copied from data, or left zeroed when data is nil.
func (c *Context) BufferData(target gl.Enum, size int, data []byte, usage gl.Enum) {
	const call = "glBufferData"
	if !validBufferTarget(target) {
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	switch usage {
	case gl.STREAM_DRAW, gl.STATIC_DRAW, gl.DYNAMIC_DRAW:
	default:
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	if size < 0 {
		c.setError(call, gl.INVALID_VALUE)
		return
	}
	b := c.boundBuffer(call, target)
	if b == nil {
		return
	}
	c.check(call, c.res.BufferData(b, usage, size, data))
}

func (c *Context) BufferSubData(target gl.Enum, offset int, data []byte) {
	const call = "glBufferSubData"
	b := c.boundBuffer(call, target)
	if b == nil {
		return
	}
	c.check(call, c.res.BufferSubData(b, offset, data))
}

func (c *Context) GetBufferParameteriv(target, pname gl.Enum, params []int32) {
	const call = "glGetBufferParameteriv"
	if !validBufferTarget(target) {
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	if pname != gl.BUFFER_SIZE && pname != gl.BUFFER_USAGE {
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	b := c.boundBuffer(call, target)
	if b == nil || len(params) == 0 {
		return
	}
	if pname == gl.BUFFER_SIZE {
		params[0] = int32(b.Size())
	} else {
		params[0] = int32(b.Usage)
	}
}
