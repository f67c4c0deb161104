// SPDX-License-Identifier: Unlicense OR MIT

package gles

import (
	"math"
	"strings"

	"glove.dev/gles/internal/shaderres"
	"glove.dev/internal/gl"
)

type uniformKind uint8

const (
	uniformFloat uniformKind = iota
	uniformInt
	uniformMatrix
)

// compatible reports whether a glUniform* call of kind with n
// components per element may load a uniform of type t.
func (k uniformKind) compatible(t gl.Enum, n int) bool {
	base := gl.TypeBase(t)
	switch k {
	case uniformMatrix:
		return gl.IsMatrix(t) && gl.TypeComponents(t) == n
	case uniformFloat:
		return !gl.IsMatrix(t) && (base == gl.FLOAT || base == gl.BOOL) && gl.TypeRows(t) == n
	default:
		if gl.IsSampler(t) {
			return n == 1
		}
		return (base == gl.INT || base == gl.BOOL) && gl.TypeRows(t) == n
	}
}

func (c *Context) GetUniformLocation(program uint32, name string) int {
	const call = "glGetUniformLocation"
	p := c.programObject(call, program)
	if p == nil {
		return -1
	}
	in := p.Interface()
	if in == nil {
		c.setError(call, gl.INVALID_OPERATION)
		return -1
	}
	return in.UniformLocation(name)
}

// uniform loads count elements of n components into the uniform at
// location of the current program. Exactly one of f and i holds the
// values.
func (c *Context) uniform(call string, location int, kind uniformKind, n int, f []float32, i []int32) {
	p := c.program()
	if p == nil || p.Executable() == nil {
		c.setError(call, gl.INVALID_OPERATION)
		return
	}
	if location == -1 {
		return
	}
	in := p.Executable().Interface
	idx, _, ok := in.Lookup(location)
	if !ok {
		c.setError(call, gl.INVALID_OPERATION)
		return
	}
	u := in.Uniforms()[idx]
	if !kind.compatible(u.Type, n) {
		c.setError(call, gl.INVALID_OPERATION)
		return
	}
	vals := max(len(f), len(i))
	count := vals / n
	if count > 1 && !strings.HasSuffix(u.Name, "]") {
		c.setError(call, gl.INVALID_OPERATION)
		return
	}
	if gl.IsSampler(u.Type) {
		for _, unit := range i {
			if unit < 0 || int(unit) >= len(c.state.Textures.Units) {
				c.setError(call, gl.INVALID_VALUE)
				return
			}
		}
	}
	boolean := gl.TypeBase(u.Type) == gl.BOOL
	data := make([]byte, count*n*4)
	for k := 0; k < count*n; k++ {
		var w uint32
		switch {
		case f != nil && boolean:
			w = uint32(glBool(f[k] != 0))
		case f != nil:
			w = math.Float32bits(f[k])
		case boolean:
			w = uint32(glBool(i[k] != 0))
		default:
			w = uint32(i[k])
		}
		shaderres.NativeOrder.PutUint32(data[k*4:], w)
	}
	if _, err := in.SetUniform(location, data); err != nil {
		c.setError(call, gl.INVALID_OPERATION)
	}
}

// uniformv checks the count of a vector form before loading.
func (c *Context) uniformv(call string, location int, kind uniformKind, n int, f []float32, i []int32) {
	if len(f)%n != 0 || len(i)%n != 0 {
		c.setError(call, gl.INVALID_VALUE)
		return
	}
	if len(f)+len(i) == 0 {
		return
	}
	c.uniform(call, location, kind, n, f, i)
}

func (c *Context) Uniform1f(location int, x float32) {
	c.uniform("glUniform1f", location, uniformFloat, 1, []float32{x}, nil)
}

func (c *Context) Uniform2f(location int, x, y float32) {
	c.uniform("glUniform2f", location, uniformFloat, 2, []float32{x, y}, nil)
}

func (c *Context) Uniform3f(location int, x, y, z float32) {
	c.uniform("glUniform3f", location, uniformFloat, 3, []float32{x, y, z}, nil)
}

func (c *Context) Uniform4f(location int, x, y, z, w float32) {
	c.uniform("glUniform4f", location, uniformFloat, 4, []float32{x, y, z, w}, nil)
}

func (c *Context) Uniform1i(location int, x int32) {
	c.uniform("glUniform1i", location, uniformInt, 1, nil, []int32{x})
}

func (c *Context) Uniform2i(location int, x, y int32) {
	c.uniform("glUniform2i", location, uniformInt, 2, nil, []int32{x, y})
}

func (c *Context) Uniform3i(location int, x, y, z int32) {
	c.uniform("glUniform3i", location, uniformInt, 3, nil, []int32{x, y, z})
}

func (c *Context) Uniform4i(location int, x, y, z, w int32) {
	c.uniform("glUniform4i", location, uniformInt, 4, nil, []int32{x, y, z, w})
}

// Uniform1fv loads len(v) consecutive elements starting at location.
func (c *Context) Uniform1fv(location int, v []float32) {
	c.uniformv("glUniform1fv", location, uniformFloat, 1, v, nil)
}

func (c *Context) Uniform2fv(location int, v []float32) {
	c.uniformv("glUniform2fv", location, uniformFloat, 2, v, nil)
}

func (c *Context) Uniform3fv(location int, v []float32) {
	c.uniformv("glUniform3fv", location, uniformFloat, 3, v, nil)
}

func (c *Context) Uniform4fv(location int, v []float32) {
	c.uniformv("glUniform4fv", location, uniformFloat, 4, v, nil)
}

func (c *Context) Uniform1iv(location int, v []int32) {
	c.uniformv("glUniform1iv", location, uniformInt, 1, nil, v)
}

func (c *Context) Uniform2iv(location int, v []int32) {
	c.uniformv("glUniform2iv", location, uniformInt, 2, nil, v)
}

func (c *Context) Uniform3iv(location int, v []int32) {
	c.uniformv("glUniform3iv", location, uniformInt, 3, nil, v)
}

func (c *Context) Uniform4iv(location int, v []int32) {
	c.uniformv("glUniform4iv", location, uniformInt, 4, nil, v)
}

func (c *Context) uniformMatrix(call string, location int, n int, transpose bool, v []float32) {
	if transpose {
		c.setError(call, gl.INVALID_VALUE)
		return
	}
	c.uniformv(call, location, uniformMatrix, n, v, nil)
}

// UniformMatrix2fv loads column-major 2×2 matrices. transpose must be
// false.
func (c *Context) UniformMatrix2fv(location int, transpose bool, v []float32) {
	c.uniformMatrix("glUniformMatrix2fv", location, 4, transpose, v)
}

func (c *Context) UniformMatrix3fv(location int, transpose bool, v []float32) {
	c.uniformMatrix("glUniformMatrix3fv", location, 9, transpose, v)
}

func (c *Context) UniformMatrix4fv(location int, transpose bool, v []float32) {
	c.uniformMatrix("glUniformMatrix4fv", location, 16, transpose, v)
}

// uniformValue returns the type and client words of the uniform element
// at location of a linked program.
func (c *Context) uniformValue(call string, program uint32, location int) (gl.Enum, []uint32, bool) {
	p := c.programObject(call, program)
	if p == nil {
		return 0, nil, false
	}
	in := p.Interface()
	if in == nil {
		c.setError(call, gl.INVALID_OPERATION)
		return 0, nil, false
	}
	idx, _, ok := in.Lookup(location)
	if !ok {
		c.setError(call, gl.INVALID_OPERATION)
		return 0, nil, false
	}
	data, err := in.GetUniform(location)
	if err != nil {
		c.setError(call, gl.INVALID_OPERATION)
		return 0, nil, false
	}
	words := make([]uint32, len(data)/4)
	for k := range words {
		words[k] = shaderres.NativeOrder.Uint32(data[k*4:])
	}
	return in.Uniforms()[idx].Type, words, true
}

// GetUniformfv returns the value of the uniform element at location.
// params must hold all its components.
func (c *Context) GetUniformfv(program uint32, location int, params []float32) {
	typ, words, ok := c.uniformValue("glGetUniformfv", program, location)
	if !ok {
		return
	}
	base := gl.TypeBase(typ)
	for k, w := range words {
		if k >= len(params) {
			break
		}
		switch base {
		case gl.FLOAT:
			params[k] = math.Float32frombits(w)
		default:
			params[k] = float32(int32(w))
		}
	}
}

func (c *Context) GetUniformiv(program uint32, location int, params []int32) {
	typ, words, ok := c.uniformValue("glGetUniformiv", program, location)
	if !ok {
		return
	}
	base := gl.TypeBase(typ)
	for k, w := range words {
		if k >= len(params) {
			break
		}
		switch base {
		case gl.FLOAT:
			params[k] = int32(math.Float32frombits(w))
		default:
			params[k] = int32(w)
		}
	}
}
