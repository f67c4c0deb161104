// SPDX-License-Identifier: Unlicense OR MIT

package resource

import (
	"glove.dev/gles/internal/shaderres"
	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

// Texture levels are shadowed as tightly packed RGBA8 rows, bottom row
// first, with unused channels filled the way GL expands them when
// sampling: luminance replicated into RGB, missing alpha as 1 and
// missing color as 0.

// CheckPixelFormat validates a client format and type pair.
func CheckPixelFormat(format, typ gl.Enum) error {
	switch format {
	case gl.RGBA, gl.RGB, gl.ALPHA, gl.LUMINANCE, gl.LUMINANCE_ALPHA:
	default:
		return ErrInvalidEnum
	}
	switch typ {
	case gl.UNSIGNED_BYTE:
		return nil
	case gl.UNSIGNED_SHORT_5_6_5:
		if format != gl.RGB {
			return ErrInvalidOperation
		}
	case gl.UNSIGNED_SHORT_4_4_4_4, gl.UNSIGNED_SHORT_5_5_5_1:
		if format != gl.RGBA {
			return ErrInvalidOperation
		}
	default:
		return ErrInvalidEnum
	}
	return nil
}

// pixelSize returns the client size of one pixel.
func pixelSize(format, typ gl.Enum) int {
	if typ != gl.UNSIGNED_BYTE {
		return 2
	}
	switch format {
	case gl.RGBA:
		return 4
	case gl.RGB:
		return 3
	case gl.LUMINANCE_ALPHA:
		return 2
	default:
		return 1
	}
}

// rowPitch rounds a row of w pixels up to the pack or unpack alignment.
func rowPitch(w, bpp, align int) int {
	row := w * bpp
	return (row + align - 1) / align * align
}

// ClientSize returns the number of bytes a w×h client image occupies.
func ClientSize(format, typ gl.Enum, w, h, align int) int {
	if w == 0 || h == 0 {
		return 0
	}
	bpp := pixelSize(format, typ)
	return rowPitch(w, bpp, align)*(h-1) + w*bpp
}

// unpack converts client pixels to the RGBA8 shadow format.
func unpack(format, typ gl.Enum, w, h, align int, src []byte) ([]byte, error) {
	dst := make([]byte, w*h*4)
	if src == nil {
		return dst, nil
	}
	if len(src) < ClientSize(format, typ, w, h, align) {
		return nil, ErrInvalidValue
	}
	bpp := pixelSize(format, typ)
	pitch := rowPitch(w, bpp, align)
	for y := 0; y < h; y++ {
		row := src[y*pitch:]
		for x := 0; x < w; x++ {
			p := row[x*bpp:]
			d := dst[(y*w+x)*4 : (y*w+x)*4+4]
			switch typ {
			case gl.UNSIGNED_BYTE:
				switch format {
				case gl.RGBA:
					copy(d, p[:4])
				case gl.RGB:
					d[0], d[1], d[2], d[3] = p[0], p[1], p[2], 0xff
				case gl.LUMINANCE:
					d[0], d[1], d[2], d[3] = p[0], p[0], p[0], 0xff
				case gl.LUMINANCE_ALPHA:
					d[0], d[1], d[2], d[3] = p[0], p[0], p[0], p[1]
				case gl.ALPHA:
					d[0], d[1], d[2], d[3] = 0, 0, 0, p[0]
				}
			case gl.UNSIGNED_SHORT_5_6_5:
				v := packed16(p)
				d[0], d[1], d[2], d[3] = expand(v>>11, 5), expand(v>>5&0x3f, 6), expand(v&0x1f, 5), 0xff
			case gl.UNSIGNED_SHORT_4_4_4_4:
				v := packed16(p)
				d[0], d[1], d[2], d[3] = expand(v>>12, 4), expand(v>>8&0xf, 4), expand(v>>4&0xf, 4), expand(v&0xf, 4)
			case gl.UNSIGNED_SHORT_5_5_5_1:
				v := packed16(p)
				d[0], d[1], d[2], d[3] = expand(v>>11, 5), expand(v>>6&0x1f, 5), expand(v>>1&0x1f, 5), expand(v&1, 1)
			}
		}
	}
	return dst, nil
}

// packed16 reads a packed pixel in host order.
func packed16(p []byte) uint16 {
	return shaderres.NativeOrder.Uint16(p)
}

// expand scales an n bit channel to 8 bits.
func expand(v uint16, bits uint) byte {
	top := uint32(1)<<bits - 1
	return byte((uint32(v)&top*255 + top/2) / top)
}

// Reduce applies the channel expansion of the base internal format to
// RGBA8 pixels read from a framebuffer, as glCopyTexImage2D does.
func Reduce(internal gl.Enum, rgba []byte) {
	for i := 0; i+3 < len(rgba); i += 4 {
		p := rgba[i : i+4]
		switch internal {
		case gl.RGB:
			p[3] = 0xff
		case gl.LUMINANCE:
			p[1], p[2], p[3] = p[0], p[0], 0xff
		case gl.LUMINANCE_ALPHA:
			p[1], p[2] = p[0], p[0]
		case gl.ALPHA:
			p[0], p[1], p[2] = 0, 0, 0
		}
	}
}

// decode converts driver image data to RGBA8.
func decode(f driver.Format, src []byte) []byte {
	switch f {
	case driver.FormatRGBA8:
		return src
	case driver.FormatBGRA8:
		dst := make([]byte, len(src))
		for i := 0; i+3 < len(src); i += 4 {
			dst[i], dst[i+1], dst[i+2], dst[i+3] = src[i+2], src[i+1], src[i], src[i+3]
		}
		return dst
	case driver.FormatR5G6B5:
		dst := make([]byte, len(src)*2)
		for i := 0; i+1 < len(src); i += 2 {
			v := packed16(src[i:])
			d := dst[i*2:]
			d[0], d[1], d[2], d[3] = expand(v>>11, 5), expand(v>>5&0x3f, 6), expand(v&0x1f, 5), 0xff
		}
		return dst
	}
	return make([]byte, len(src)/f.BytesPerPixel()*4)
}

// Pack writes RGBA8 pixels to a client buffer laid out with the given
// pack alignment. Only RGBA/UNSIGNED_BYTE is supported for reading.
func Pack(w, h, align int, rgba, dst []byte) error {
	if len(dst) < ClientSize(gl.RGBA, gl.UNSIGNED_BYTE, w, h, align) {
		return ErrInvalidValue
	}
	pitch := rowPitch(w, 4, align)
	for y := 0; y < h; y++ {
		copy(dst[y*pitch:y*pitch+w*4], rgba[y*w*4:])
	}
	return nil
}
