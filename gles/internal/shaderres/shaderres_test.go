// SPDX-License-Identifier: Unlicense OR MIT

package shaderres

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

var testLimits = Limits{
	MaxVertexAttribs:             16,
	MaxVertexUniformVectors:      128,
	MaxFragmentUniformVectors:    64,
	MaxCombinedTextureImageUnits: 16,
}

const (
	vs = driver.StageVertex
	fs = driver.StageFragment
)

func floats(v ...float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		NativeOrder.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

func floatAt(b []byte, off int) float32 {
	return math.Float32frombits(NativeOrder.Uint32(b[off:]))
}

func sceneReflection() Reflection {
	return Reflection{
		Uniforms: []ReflectedUniform{
			{Name: "mvp", Type: gl.FLOAT_MAT4, ArraySize: 1, Stages: vs},
			{Name: "weights[0]", Type: gl.FLOAT, ArraySize: 3, Stages: fs},
			{Name: "tex", Type: gl.SAMPLER_2D, ArraySize: 1, Stages: fs},
			{Name: "lights[0].color", Type: gl.FLOAT_VEC3, ArraySize: 1, Stages: fs},
			{Name: "lights[0].intensity", Type: gl.FLOAT, ArraySize: 1, Stages: fs},
			{Name: "lights[3].color", Type: gl.FLOAT_VEC3, ArraySize: 1, Stages: fs},
			{Name: "lights[3].intensity", Type: gl.FLOAT, ArraySize: 1, Stages: fs},
		},
	}
}

func link(t *testing.T, refl Reflection) *Interface {
	t.Helper()
	in, err := Link(refl, nil, testLimits)
	require.NoError(t, err)
	return in
}

func TestAttributeLocations(t *testing.T) {
	refl := Reflection{Attributes: []ReflectedAttribute{
		{Name: "transform", Type: gl.FLOAT_MAT2},
		{Name: "pos", Type: gl.FLOAT_VEC4},
		{Name: "color", Type: gl.FLOAT_VEC4},
	}}
	in, err := Link(refl, map[string]int{"pos": 1, "unused": 7}, testLimits)
	require.NoError(t, err)
	// The matrix needs two free slots; slot 1 is taken by the binding.
	assert.Equal(t, 2, in.AttributeLocation("transform"))
	assert.Equal(t, 1, in.AttributeLocation("pos"))
	assert.Equal(t, 0, in.AttributeLocation("color"))
	assert.Equal(t, -1, in.AttributeLocation("unused"))

	a, ok := in.Attribute(3)
	require.True(t, ok)
	assert.Equal(t, "transform", a.Name)
	assert.Equal(t, len("transform")+1, in.ActiveAttributeMaxLength())
}

func TestAttributeLimits(t *testing.T) {
	refl := Reflection{Attributes: []ReflectedAttribute{{Name: "m", Type: gl.FLOAT_MAT4}}}
	_, err := Link(refl, map[string]int{"m": 14}, testLimits)
	var lerr *LinkError
	require.True(t, errors.As(err, &lerr), "got %v", err)
	assert.Contains(t, lerr.Msg, "MAX_VERTEX_ATTRIBS")

	var many []ReflectedAttribute
	for i := 0; i < 5; i++ {
		many = append(many, ReflectedAttribute{Name: string(rune('a' + i)), Type: gl.FLOAT_MAT4})
	}
	_, err = Link(Reflection{Attributes: many}, nil, testLimits)
	require.True(t, errors.As(err, &lerr))
}

func TestUniformBudget(t *testing.T) {
	refl := Reflection{Uniforms: []ReflectedUniform{
		{Name: "bones[0]", Type: gl.FLOAT_MAT4, ArraySize: 33, Stages: vs},
	}}
	_, err := Link(refl, nil, testLimits)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_VERTEX_UNIFORM_VECTORS")

	refl.Uniforms[0].ArraySize = 32
	in := link(t, refl)
	assert.Equal(t, 128, in.UniformVectors(vs))
	assert.Zero(t, in.UniformVectors(fs))
}

func TestBlockGrouping(t *testing.T) {
	in := link(t, sceneReflection())
	blocks := in.Blocks()
	require.Len(t, blocks, 4)

	assert.Equal(t, "mvp", blocks[0].Name)
	assert.Equal(t, 64, blocks[0].Size)

	assert.Equal(t, "weights", blocks[1].Name)
	assert.Equal(t, 48, blocks[1].Size, "float arrays have a 16 byte stride")

	assert.Equal(t, "tex", blocks[2].Name)
	assert.True(t, blocks[2].Opaque)
	assert.Zero(t, blocks[2].Size)

	lights := blocks[3]
	assert.Equal(t, "lights", lights.Name)
	assert.True(t, lights.Aggregate)
	assert.Equal(t, 4, lights.ArraySize)
	assert.Equal(t, 64, lights.Size)
	assert.Len(t, lights.Uniforms, 8)

	for i, b := range blocks {
		assert.Equal(t, i, b.Binding)
	}
	assert.Equal(t, []int{2}, in.Samplers())
}

func TestAggregateLayoutDeterministic(t *testing.T) {
	a := link(t, sceneReflection())
	b := link(t, sceneReflection())
	assert.Equal(t, a.Uniforms(), b.Uniforms())
	assert.Equal(t, a.Blocks(), b.Blocks())

	want := []string{
		"lights[0].color", "lights[0].intensity",
		"lights[1].color", "lights[1].intensity",
		"lights[2].color", "lights[2].intensity",
		"lights[3].color", "lights[3].intensity",
	}
	var got []string
	for _, idx := range a.Blocks()[3].Uniforms {
		got = append(got, a.Uniforms()[idx].Name)
	}
	assert.Equal(t, want, got)

	i, _, ok := a.Lookup(a.UniformLocation("lights[2].intensity"))
	require.True(t, ok)
	u := a.Uniforms()[i]
	assert.Equal(t, 10, u.Location)
	assert.Equal(t, 2*16+12, u.Offset)
}

func TestUniformLocation(t *testing.T) {
	in := link(t, sceneReflection())
	for name, want := range map[string]int{
		"mvp":                 0,
		"weights":             1,
		"weights[0]":          1,
		"weights[2]":          3,
		"weights[3]":          -1,
		"tex":                 4,
		"lights[0].color":     5,
		"lights[1].intensity": 8,
		"lights[1]":           -1,
		"lights":              -1,
		"gl_FragCoord":        -1,
		"weights[x]":          -1,
		"":                    -1,
	} {
		assert.Equal(t, want, in.UniformLocation(name), name)
	}
}

func TestUniformRoundTrip(t *testing.T) {
	in := link(t, sceneReflection())
	assert.Equal(t, []int{0, 1, 3}, in.Flush(), "new buffers need their initial contents")
	assert.False(t, in.Dirty())

	n, err := in.SetUniform(in.UniformLocation("weights[1]"), floats(2.5, 3.5, 4.5))
	require.NoError(t, err)
	assert.Equal(t, 2, n, "elements past the array end are dropped")

	v, err := in.GetUniform(3)
	require.NoError(t, err)
	assert.Equal(t, floats(3.5), v)

	assert.True(t, in.Dirty())
	assert.Equal(t, []int{1}, in.Flush())
	data := in.BlockData(1)
	assert.Equal(t, float32(0), floatAt(data, 0))
	assert.Equal(t, float32(2.5), floatAt(data, 16))
	assert.Equal(t, float32(3.5), floatAt(data, 32))

	_, err = in.SetUniform(99, floats(1))
	assert.Error(t, err)
	_, err = in.GetUniform(-1)
	assert.Error(t, err)
}

func TestMatrixColumns(t *testing.T) {
	in := link(t, Reflection{Uniforms: []ReflectedUniform{
		{Name: "normal", Type: gl.FLOAT_MAT3, ArraySize: 1, Stages: vs},
	}})
	require.Equal(t, 48, in.Blocks()[0].Size)
	_, err := in.SetUniform(0, floats(1, 2, 3, 4, 5, 6, 7, 8, 9))
	require.NoError(t, err)
	in.Flush()
	data := in.BlockData(0)
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			assert.Equal(t, float32(c*3+r+1), floatAt(data, c*16+r*4))
		}
		assert.Zero(t, floatAt(data, c*16+12), "column padding")
	}
}

func TestNestedStructLayout(t *testing.T) {
	in := link(t, Reflection{Uniforms: []ReflectedUniform{
		{Name: "m.scale", Type: gl.FLOAT, ArraySize: 1, Stages: fs},
		{Name: "m.offset", Type: gl.FLOAT_VEC2, ArraySize: 1, Stages: fs},
		{Name: "m.inner.tint", Type: gl.FLOAT_VEC4, ArraySize: 1, Stages: fs},
		{Name: "m.taps[0]", Type: gl.FLOAT_VEC2, ArraySize: 2, Stages: fs},
	}})
	offsets := make(map[string]int)
	for _, u := range in.Uniforms() {
		offsets[u.Name] = u.Offset
	}
	assert.Equal(t, map[string]int{
		"m.scale":      0,
		"m.offset":     8,
		"m.inner.tint": 16,
		"m.taps[0]":    32,
	}, offsets)
	assert.Equal(t, 64, in.Blocks()[0].Size)
	assert.Equal(t, in.UniformLocation("m.taps")+1, in.UniformLocation("m.taps[1]"))
}

func TestSamplerUnits(t *testing.T) {
	in := link(t, sceneReflection())
	unit := make([]byte, 4)
	NativeOrder.PutUint32(unit, 3)
	_, err := in.SetUniform(in.UniformLocation("tex"), unit)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, in.SamplerUnits(2))
	assert.NotContains(t, in.Flush(), 2)
}

func TestBinaryRoundTrip(t *testing.T) {
	in := link(t, sceneReflection())
	_, err := in.SetUniform(0, floats(make([]float32, 16)...))
	require.NoError(t, err)
	data, err := in.MarshalBinary()
	require.NoError(t, err)

	var out Interface
	require.NoError(t, out.UnmarshalBinary(data))
	assert.Equal(t, in.Attributes(), out.Attributes())
	assert.Equal(t, len(in.Uniforms()), len(out.Uniforms()))
	for i := range in.Uniforms() {
		a, b := in.Uniforms()[i], out.Uniforms()[i]
		assert.Equal(t, a.Name, b.Name)
		assert.Equal(t, a.Location, b.Location)
		assert.Equal(t, a.Offset, b.Offset)
		assert.Equal(t, a.Stride, b.Stride)
	}
	assert.Equal(t, 5, out.UniformLocation("lights[0].color"))

	require.Error(t, out.UnmarshalBinary(data[:len(data)-3]))
	require.Error(t, out.UnmarshalBinary(append(data, 0)))
	assert.Equal(t, 5, out.UniformLocation("lights[0].color"), "failed loads leave the interface intact")
}
