// SPDX-License-Identifier: Unlicense OR MIT

package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glove.dev/gles/internal/shaderres"
	"glove.dev/internal/driver"
	"glove.dev/internal/driver/drivertest"
	"glove.dev/internal/gl"
)

func newTexture2D(t *testing.T, m *Manager) *Texture {
	t.Helper()
	tex := m.Textures.Object(m.Textures.Allocate())
	require.NoError(t, tex.Bind(gl.TEXTURE_2D))
	return tex
}

func packed(v uint16) []byte {
	b := make([]byte, 2)
	shaderres.NativeOrder.PutUint16(b, v)
	return b
}

func TestTexImageConversion(t *testing.T) {
	tests := []struct {
		name   string
		format gl.Enum
		typ    gl.Enum
		src    []byte
		want   []byte
	}{
		{"rgba", gl.RGBA, gl.UNSIGNED_BYTE, []byte{1, 2, 3, 4}, []byte{1, 2, 3, 4}},
		{"rgb", gl.RGB, gl.UNSIGNED_BYTE, []byte{1, 2, 3}, []byte{1, 2, 3, 255}},
		{"luminance", gl.LUMINANCE, gl.UNSIGNED_BYTE, []byte{0x80}, []byte{0x80, 0x80, 0x80, 255}},
		{"luminance alpha", gl.LUMINANCE_ALPHA, gl.UNSIGNED_BYTE, []byte{7, 9}, []byte{7, 7, 7, 9}},
		{"alpha", gl.ALPHA, gl.UNSIGNED_BYTE, []byte{42}, []byte{0, 0, 0, 42}},
		{"565", gl.RGB, gl.UNSIGNED_SHORT_5_6_5, packed(0xf800), []byte{255, 0, 0, 255}},
		{"4444", gl.RGBA, gl.UNSIGNED_SHORT_4_4_4_4, packed(0x0f0f), []byte{0, 255, 0, 255}},
		{"5551", gl.RGBA, gl.UNSIGNED_SHORT_5_5_5_1, packed(0x0001), []byte{0, 0, 0, 255}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m, _, _ := newManager(t)
			tex := newTexture2D(t, m)
			require.NoError(t, m.TexImage2D(tex, gl.TEXTURE_2D, 0, test.format, 1, 1, test.format, test.typ, test.src, 4))
			l := tex.Level(0, 0)
			assert.Equal(t, test.want, l.Pixels)
			assert.Equal(t, test.format, l.Format)
		})
	}
}

func TestTexImageUnpackAlignment(t *testing.T) {
	m, _, _ := newManager(t)
	tex := newTexture2D(t, m)
	// Two RGB rows padded to 4 bytes.
	src := []byte{1, 2, 3, 0, 4, 5, 6}
	require.NoError(t, m.TexImage2D(tex, gl.TEXTURE_2D, 0, gl.RGB, 1, 2, gl.RGB, gl.UNSIGNED_BYTE, src, 4))
	assert.Equal(t, []byte{1, 2, 3, 255, 4, 5, 6, 255}, tex.Level(0, 0).Pixels)

	err := m.TexImage2D(tex, gl.TEXTURE_2D, 0, gl.RGB, 1, 2, gl.RGB, gl.UNSIGNED_BYTE, src[:6], 4)
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, 7, ClientSize(gl.RGB, gl.UNSIGNED_BYTE, 1, 2, 4))
	assert.Equal(t, 6, ClientSize(gl.RGB, gl.UNSIGNED_BYTE, 1, 2, 1))
}

func TestTexImageErrors(t *testing.T) {
	m, _, _ := newManager(t)
	tex := newTexture2D(t, m)
	tests := []struct {
		name   string
		target gl.Enum
		level  int
		w, h   int
		intern gl.Enum
		format gl.Enum
		typ    gl.Enum
		err    error
	}{
		{"bad target", gl.TEXTURE_CUBE_MAP, 0, 1, 1, gl.RGBA, gl.RGBA, gl.UNSIGNED_BYTE, ErrInvalidEnum},
		{"bad format", gl.TEXTURE_2D, 0, 1, 1, gl.RGBA, gl.DEPTH_COMPONENT, gl.UNSIGNED_BYTE, ErrInvalidEnum},
		{"bad type", gl.TEXTURE_2D, 0, 1, 1, gl.RGBA, gl.RGBA, gl.FLOAT, ErrInvalidEnum},
		{"packed mismatch", gl.TEXTURE_2D, 0, 1, 1, gl.RGBA, gl.RGBA, gl.UNSIGNED_SHORT_5_6_5, ErrInvalidOperation},
		{"format mismatch", gl.TEXTURE_2D, 0, 1, 1, gl.RGBA, gl.RGB, gl.UNSIGNED_BYTE, ErrInvalidOperation},
		{"bad internal", gl.TEXTURE_2D, 0, 1, 1, gl.RGBA4, gl.RGBA, gl.UNSIGNED_BYTE, ErrInvalidValue},
		{"negative level", gl.TEXTURE_2D, -1, 1, 1, gl.RGBA, gl.RGBA, gl.UNSIGNED_BYTE, ErrInvalidValue},
		{"level too big", gl.TEXTURE_2D, 13, 1, 1, gl.RGBA, gl.RGBA, gl.UNSIGNED_BYTE, ErrInvalidValue},
		{"too wide", gl.TEXTURE_2D, 1, 4096, 1, gl.RGBA, gl.RGBA, gl.UNSIGNED_BYTE, ErrInvalidValue},
		{"non-square face", gl.TEXTURE_CUBE_MAP_POSITIVE_X, 0, 2, 1, gl.RGBA, gl.RGBA, gl.UNSIGNED_BYTE, ErrInvalidValue},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := m.TexImage2D(tex, test.target, test.level, test.intern, test.w, test.h, test.format, test.typ, nil, 4)
			assert.ErrorIs(t, err, test.err)
			assert.Zero(t, tex.Level(0, 0).Format)
		})
	}
}

func TestTexSubImage(t *testing.T) {
	m, _, _ := newManager(t)
	tex := newTexture2D(t, m)
	assert.ErrorIs(t, m.TexSubImage2D(tex, gl.TEXTURE_2D, 0, 0, 0, 1, 1, gl.RGBA, gl.UNSIGNED_BYTE, []byte{1, 2, 3, 4}, 4), ErrInvalidOperation)

	require.NoError(t, m.TexImage2D(tex, gl.TEXTURE_2D, 0, gl.RGBA, 2, 2, gl.RGBA, gl.UNSIGNED_BYTE, nil, 4))
	require.NoError(t, m.TexSubImage2D(tex, gl.TEXTURE_2D, 0, 1, 1, 1, 1, gl.RGBA, gl.UNSIGNED_BYTE, []byte{1, 2, 3, 4}, 4))
	assert.Equal(t, []byte{
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 1, 2, 3, 4,
	}, tex.Level(0, 0).Pixels)

	assert.ErrorIs(t, m.TexSubImage2D(tex, gl.TEXTURE_2D, 0, 1, 1, 2, 1, gl.RGBA, gl.UNSIGNED_BYTE, make([]byte, 8), 4), ErrInvalidValue)
	assert.ErrorIs(t, m.TexSubImage2D(tex, gl.TEXTURE_2D, 0, 0, 0, 1, 1, gl.RGB, gl.UNSIGNED_BYTE, make([]byte, 3), 4), ErrInvalidOperation)
}

func TestTextureBindTarget(t *testing.T) {
	m, _, _ := newManager(t)
	tex := m.Textures.Object(m.Textures.Allocate())
	require.NoError(t, tex.Bind(gl.TEXTURE_CUBE_MAP))
	require.NoError(t, tex.Bind(gl.TEXTURE_CUBE_MAP))
	assert.ErrorIs(t, tex.Bind(gl.TEXTURE_2D), ErrInvalidOperation)
}

func TestTextureCompleteness(t *testing.T) {
	m, _, _ := newManager(t)
	tex := newTexture2D(t, m)
	assert.False(t, tex.Complete())

	require.NoError(t, m.TexImage2D(tex, gl.TEXTURE_2D, 0, gl.RGBA, 4, 4, gl.RGBA, gl.UNSIGNED_BYTE, nil, 4))
	// The default minification filter needs mipmaps.
	assert.False(t, tex.Complete())

	changed, err := tex.SetParameter(gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, tex.Complete())
	changed, err = tex.SetParameter(gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = tex.SetParameter(gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	require.NoError(t, err)
	require.NoError(t, m.TexImage2D(tex, gl.TEXTURE_2D, 1, gl.RGBA, 2, 2, gl.RGBA, gl.UNSIGNED_BYTE, nil, 4))
	assert.False(t, tex.Complete())
	require.NoError(t, m.TexImage2D(tex, gl.TEXTURE_2D, 2, gl.RGBA, 1, 1, gl.RGBA, gl.UNSIGNED_BYTE, nil, 4))
	assert.True(t, tex.Complete())

	// A level with a mismatched format breaks the chain.
	require.NoError(t, m.TexImage2D(tex, gl.TEXTURE_2D, 1, gl.RGB, 2, 2, gl.RGB, gl.UNSIGNED_BYTE, nil, 4))
	assert.False(t, tex.Complete())

	npot := newTexture2D(t, m)
	require.NoError(t, m.TexImage2D(npot, gl.TEXTURE_2D, 0, gl.RGB, 3, 5, gl.RGB, gl.UNSIGNED_BYTE, nil, 1))
	_, err = npot.SetParameter(gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	require.NoError(t, err)
	assert.True(t, npot.Complete())

	_, err = npot.SetParameter(gl.TEXTURE_WRAP_S, gl.LINEAR)
	assert.ErrorIs(t, err, ErrInvalidEnum)
	v, err := npot.Parameter(gl.TEXTURE_WRAP_S)
	require.NoError(t, err)
	assert.Equal(t, gl.Enum(gl.REPEAT), v)
}

func TestCubeCompleteness(t *testing.T) {
	m, _, _ := newManager(t)
	tex := m.Textures.Object(m.Textures.Allocate())
	require.NoError(t, tex.Bind(gl.TEXTURE_CUBE_MAP))
	_, err := tex.SetParameter(gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	require.NoError(t, err)
	for f := 0; f < 5; f++ {
		require.NoError(t, m.TexImage2D(tex, gl.TEXTURE_CUBE_MAP_POSITIVE_X+gl.Enum(f), 0, gl.RGBA, 2, 2, gl.RGBA, gl.UNSIGNED_BYTE, nil, 4))
	}
	assert.False(t, tex.Complete())
	assert.ErrorIs(t, m.GenerateMipmap(tex), ErrInvalidOperation)

	require.NoError(t, m.TexImage2D(tex, gl.TEXTURE_CUBE_MAP_NEGATIVE_Z, 0, gl.RGBA, 2, 2, gl.RGBA, gl.UNSIGNED_BYTE, nil, 4))
	assert.True(t, tex.Complete())

	img, err := m.Image(tex)
	require.NoError(t, err)
	assert.Equal(t, 6, img.Desc().Layers)
	assert.Equal(t, 1, img.Desc().Levels)
}

func TestGenerateMipmap(t *testing.T) {
	m, _, _ := newManager(t)
	tex := newTexture2D(t, m)
	assert.ErrorIs(t, m.GenerateMipmap(tex), ErrInvalidOperation)

	red := make([]byte, 4*2*4)
	for i := 0; i < len(red); i += 4 {
		red[i], red[i+3] = 255, 255
	}
	require.NoError(t, m.TexImage2D(tex, gl.TEXTURE_2D, 0, gl.RGBA, 4, 2, gl.RGBA, gl.UNSIGNED_BYTE, red, 4))
	require.NoError(t, m.GenerateMipmap(tex))
	assert.True(t, tex.Complete())

	sizes := [][2]int{{4, 2}, {2, 1}, {1, 1}}
	for lvl, sz := range sizes {
		l := tex.Level(0, lvl)
		assert.Equal(t, sz[0], l.Width, "level %d", lvl)
		assert.Equal(t, sz[1], l.Height, "level %d", lvl)
	}
	px := tex.Level(0, 2).Pixels
	assert.InDelta(t, 255, px[0], 1)
	assert.InDelta(t, 0, px[1], 1)
	assert.InDelta(t, 255, px[3], 1)

	img, err := m.Image(tex)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Desc().Levels)
	assert.Equal(t, px, img.(*drivertest.Image).Pixels[[2]int{0, 2}])
}

func TestTextureImageCopyOnWrite(t *testing.T) {
	m, dev, tr := newManager(t)
	tex := newTexture2D(t, m)
	require.NoError(t, m.TexImage2D(tex, gl.TEXTURE_2D, 0, gl.RGBA, 1, 1, gl.RGBA, gl.UNSIGNED_BYTE, []byte{1, 2, 3, 4}, 4))
	first, err := m.Image(tex)
	require.NoError(t, err)
	again, err := m.Image(tex)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, []byte{1, 2, 3, 4}, first.(*drivertest.Image).Pixels[[2]int{0, 0}])

	tex.MarkUsed(tr)
	require.NoError(t, m.TexSubImage2D(tex, gl.TEXTURE_2D, 0, 0, 0, 1, 1, gl.RGBA, gl.UNSIGNED_BYTE, []byte{5, 6, 7, 8}, 4))
	second, err := m.Image(tex)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 1, dev.Destroyed("image"))
	assert.Equal(t, []byte{1, 2, 3, 4}, first.(*drivertest.Image).Pixels[[2]int{0, 0}])
	assert.Equal(t, []byte{5, 6, 7, 8}, second.(*drivertest.Image).Pixels[[2]int{0, 0}])

	require.NoError(t, tr.Finish())
	require.NoError(t, m.TexSubImage2D(tex, gl.TEXTURE_2D, 0, 0, 0, 1, 1, gl.RGBA, gl.UNSIGNED_BYTE, []byte{9, 9, 9, 9}, 4))
	third, err := m.Image(tex)
	require.NoError(t, err)
	assert.Same(t, second, third)
}

func TestRenderedTextureReadback(t *testing.T) {
	m, _, tr := newManager(t)
	tex := newTexture2D(t, m)
	require.NoError(t, m.TexImage2D(tex, gl.TEXTURE_2D, 0, gl.RGB, 1, 1, gl.RGB, gl.UNSIGNED_BYTE, []byte{1, 2, 3}, 1))
	img, err := m.Image(tex)
	require.NoError(t, err)

	// Simulate a draw writing to the image.
	tex.MarkRendered(tr)
	img.(*drivertest.Image).Pixels[[2]int{0, 0}] = []byte{10, 20, 30, 40}
	require.NoError(t, m.GenerateMipmap(tex))
	assert.Equal(t, 1, tr.finishes)
	assert.Equal(t, []byte{10, 20, 30, 255}, tex.Level(0, 0).Pixels)
}

func TestPrepareSampler(t *testing.T) {
	m, dev, _ := newManager(t)
	tex := newTexture2D(t, m)
	_, _, ok, err := m.Prepare(tex)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.TexImage2D(tex, gl.TEXTURE_2D, 0, gl.RGBA, 2, 2, gl.RGBA, gl.UNSIGNED_BYTE, nil, 4))
	_, err = tex.SetParameter(gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	require.NoError(t, err)
	_, err = tex.SetParameter(gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	require.NoError(t, err)
	img, smp, ok, err := m.Prepare(tex)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotNil(t, img)
	desc := smp.(*drivertest.Sampler).Desc
	assert.Equal(t, driver.FilterNearest, desc.MinFilter)
	assert.Equal(t, driver.FilterLinear, desc.MagFilter)
	assert.Equal(t, driver.WrapClampToEdge, desc.WrapT)
	assert.Equal(t, driver.MipmapNone, desc.Mipmap)
	assert.InDelta(t, 0.25, desc.MaxLod, 1e-6)

	_, again, _, err := m.Prepare(tex)
	require.NoError(t, err)
	assert.Same(t, smp, again)

	_, err = tex.SetParameter(gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	require.NoError(t, err)
	_, next, _, err := m.Prepare(tex)
	require.NoError(t, err)
	assert.NotSame(t, smp, next)
	assert.Equal(t, 1, dev.Destroyed("sampler"))
}

func TestCopyTexImage(t *testing.T) {
	m, _, _ := newManager(t)
	tex := newTexture2D(t, m)
	rgba := []byte{10, 20, 30, 40, 50, 60, 70, 80}
	require.NoError(t, m.CopyTexImage2D(tex, gl.TEXTURE_2D, 0, gl.LUMINANCE, 2, 1, rgba))
	assert.Equal(t, []byte{10, 10, 10, 255, 50, 50, 50, 255}, tex.Level(0, 0).Pixels)

	require.NoError(t, m.CopyTexSubImage2D(tex, gl.TEXTURE_2D, 0, 1, 0, 1, 1, []byte{90, 91, 92, 93}))
	assert.Equal(t, []byte{10, 10, 10, 255, 90, 90, 90, 255}, tex.Level(0, 0).Pixels)
	assert.ErrorIs(t, m.CopyTexSubImage2D(tex, gl.TEXTURE_2D, 1, 0, 0, 1, 1, nil), ErrInvalidOperation)

	assert.True(t, CopyCompatible(gl.RGB, Bits{Red: 5, Green: 6, Blue: 5}))
	assert.False(t, CopyCompatible(gl.ALPHA, Bits{Red: 5, Green: 6, Blue: 5}))
	assert.True(t, CopyCompatible(gl.LUMINANCE_ALPHA, Bits{Red: 8, Green: 8, Blue: 8, Alpha: 8}))
}

func TestDeleteTexture(t *testing.T) {
	m, dev, _ := newManager(t)
	tex := newTexture2D(t, m)
	require.NoError(t, m.TexImage2D(tex, gl.TEXTURE_2D, 0, gl.RGBA, 1, 1, gl.RGBA, gl.UNSIGNED_BYTE, nil, 4))
	_, err := tex.SetParameter(gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	require.NoError(t, err)
	_, _, ok, err := m.Prepare(tex)
	require.NoError(t, err)
	require.True(t, ok)

	m.DeleteTexture(tex.Name)
	assert.Nil(t, m.Textures.Lookup(tex.Name))
	assert.Zero(t, dev.Live())
}
