// SPDX-License-Identifier: Unlicense OR MIT

package gles

import (
	"glove.dev/gles/internal/pipeline"
	"glove.dev/internal/gl"
)

func (c *Context) attribIndex(call string, index int) bool {
	if index < 0 || index >= len(c.state.Attribs) {
		c.setError(call, gl.INVALID_VALUE)
		return false
	}
	return true
}

func (c *Context) EnableVertexAttribArray(index int) {
	if c.attribIndex("glEnableVertexAttribArray", index) {
		c.state.EnableAttrib(index, true)
	}
}

func (c *Context) DisableVertexAttribArray(index int) {
	if c.attribIndex("glDisableVertexAttribArray", index) {
		c.state.EnableAttrib(index, false)
	}
}

// VertexAttribPointer specifies the array of attribute index. With a
// buffer bound to ARRAY_BUFFER the array starts at byte offset of the
// buffer, otherwise at byte offset of client. FIXED data is not
// supported.
func (c *Context) VertexAttribPointer(index, size int, typ gl.Enum, normalized bool, stride, offset int, client []byte) {
	const call = "glVertexAttribPointer"
	if !c.attribIndex(call, index) {
		return
	}
	if size < 1 || size > 4 || stride < 0 || offset < 0 {
		c.setError(call, gl.INVALID_VALUE)
		return
	}
	if _, ok := pipeline.VertexType(typ); !ok {
		if typ == gl.FIXED {
			c.log.Warn("FIXED vertex data is not supported", "call", call, "index", index)
		}
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	if c.state.Input.ArrayBuffer == 0 && client != nil {
		if offset > len(client) {
			c.setError(call, gl.INVALID_VALUE)
			return
		}
		client = client[offset:]
	}
	c.state.AttribPointer(index, size, typ, normalized, stride, offset, client)
}

func (c *Context) vertexAttrib(call string, index int, v [4]float32) {
	if c.attribIndex(call, index) {
		c.state.SetGeneric(index, v)
	}
}

func (c *Context) VertexAttrib1f(index int, x float32) {
	c.vertexAttrib("glVertexAttrib1f", index, [4]float32{x, 0, 0, 1})
}

func (c *Context) VertexAttrib2f(index int, x, y float32) {
	c.vertexAttrib("glVertexAttrib2f", index, [4]float32{x, y, 0, 1})
}

func (c *Context) VertexAttrib3f(index int, x, y, z float32) {
	c.vertexAttrib("glVertexAttrib3f", index, [4]float32{x, y, z, 1})
}

func (c *Context) VertexAttrib4f(index int, x, y, z, w float32) {
	c.vertexAttrib("glVertexAttrib4f", index, [4]float32{x, y, z, w})
}

// vertexAttribv sets the first n components from v, raising
// INVALID_VALUE when v is too short.
func (c *Context) vertexAttribv(call string, index, n int, v []float32) {
	if len(v) < n {
		c.setError(call, gl.INVALID_VALUE)
		return
	}
	val := [4]float32{0, 0, 0, 1}
	copy(val[:n], v)
	c.vertexAttrib(call, index, val)
}

func (c *Context) VertexAttrib1fv(index int, v []float32) {
	c.vertexAttribv("glVertexAttrib1fv", index, 1, v)
}

func (c *Context) VertexAttrib2fv(index int, v []float32) {
	c.vertexAttribv("glVertexAttrib2fv", index, 2, v)
}

func (c *Context) VertexAttrib3fv(index int, v []float32) {
	c.vertexAttribv("glVertexAttrib3fv", index, 3, v)
}

func (c *Context) VertexAttrib4fv(index int, v []float32) {
	c.vertexAttribv("glVertexAttrib4fv", index, 4, v)
}

// GetVertexAttribfv returns a parameter of attribute index. All
// parameters but CURRENT_VERTEX_ATTRIB fill params[0].
func (c *Context) GetVertexAttribfv(index int, pname gl.Enum, params []float32) {
	const call = "glGetVertexAttribfv"
	if !c.attribIndex(call, index) {
		return
	}
	if pname == gl.CURRENT_VERTEX_ATTRIB {
		copy(params, c.state.Attribs[index].Generic[:])
		return
	}
	v, ok := c.attribParam(index, pname)
	if !ok {
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	if len(params) > 0 {
		params[0] = float32(v)
	}
}

func (c *Context) GetVertexAttribiv(index int, pname gl.Enum, params []int32) {
	const call = "glGetVertexAttribiv"
	if !c.attribIndex(call, index) {
		return
	}
	if pname == gl.CURRENT_VERTEX_ATTRIB {
		for i, f := range c.state.Attribs[index].Generic {
			if i < len(params) {
				params[i] = int32(f)
			}
		}
		return
	}
	v, ok := c.attribParam(index, pname)
	if !ok {
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	if len(params) > 0 {
		params[0] = v
	}
}

func (c *Context) attribParam(index int, pname gl.Enum) (int32, bool) {
	a := &c.state.Attribs[index]
	switch pname {
	case gl.VERTEX_ATTRIB_ARRAY_ENABLED:
		return glBool(a.Enabled), true
	case gl.VERTEX_ATTRIB_ARRAY_SIZE:
		return int32(a.Size), true
	case gl.VERTEX_ATTRIB_ARRAY_STRIDE:
		return int32(a.Stride), true
	case gl.VERTEX_ATTRIB_ARRAY_TYPE:
		return int32(a.Type), true
	case gl.VERTEX_ATTRIB_ARRAY_NORMALIZED:
		return glBool(a.Normalized), true
	case gl.VERTEX_ATTRIB_ARRAY_BUFFER_BINDING:
		return int32(a.Buffer), true
	}
	return 0, false
}

// GetVertexAttribPointerv returns the array pointer of attribute index:
// the buffer offset, and the client slice when no buffer was bound.
func (c *Context) GetVertexAttribPointerv(index int, pname gl.Enum) (offset int, client []byte) {
	const call = "glGetVertexAttribPointerv"
	if !c.attribIndex(call, index) {
		return 0, nil
	}
	if pname != gl.VERTEX_ATTRIB_ARRAY_POINTER {
		c.setError(call, gl.INVALID_ENUM)
		return 0, nil
	}
	a := &c.state.Attribs[index]
	return a.Offset, a.Client
}
