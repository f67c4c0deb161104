// SPDX-License-Identifier: Unlicense OR MIT

package resource

import (
	"image"

	"golang.org/x/image/draw"

	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

// Level is one mipmap level of a texture face.
type Level struct {
	Width, Height int
	// Format is the base internal format, 0 for undefined levels.
	Format gl.Enum
	Type   gl.Enum
	// Pixels is the RGBA8 shadow of the level.
	Pixels []byte
}

// Texture is a 2D or cube map texture. All levels are shadowed on the
// client; the driver image is rebuilt from the shadow when it changes.
type Texture struct {
	Use

	Name uint32
	// Target is TEXTURE_2D or TEXTURE_CUBE_MAP once the texture has been
	// bound, 0 before.
	Target gl.Enum

	MinFilter gl.Enum
	MagFilter gl.Enum
	WrapS     gl.Enum
	WrapT     gl.Enum

	faces [6][]Level

	img     driver.Image
	sampler driver.Sampler
	// dirty is set when the shadow changed since the last upload.
	dirty        bool
	samplerDirty bool
	// rendered is set when the GPU wrote the image after the last
	// upload, leaving the shadow of level 0 stale.
	rendered bool
}

const imageUsage = driver.ImageUsageSampled | driver.ImageUsageColorAttachment | driver.ImageUsageTransfer

func newTexture(h uint32) *Texture {
	return &Texture{
		Name:      h,
		MinFilter: gl.NEAREST_MIPMAP_LINEAR,
		MagFilter: gl.LINEAR,
		WrapS:     gl.REPEAT,
		WrapT:     gl.REPEAT,
	}
}

// Bind fixes the target of t on first use. Binding to another target
// later is an error.
func (t *Texture) Bind(target gl.Enum) error {
	switch t.Target {
	case 0:
		t.Target = target
	case target:
	default:
		return ErrInvalidOperation
	}
	return nil
}

// Face maps an image target to a face index.
func Face(target gl.Enum) (int, bool) {
	switch {
	case target == gl.TEXTURE_2D:
		return 0, true
	case target >= gl.TEXTURE_CUBE_MAP_POSITIVE_X && target <= gl.TEXTURE_CUBE_MAP_NEGATIVE_Z:
		return int(target - gl.TEXTURE_CUBE_MAP_POSITIVE_X), true
	}
	return 0, false
}

// Level returns level of face, the zero Level if undefined.
func (t *Texture) Level(face, level int) Level {
	if level < 0 || level >= len(t.faces[face]) {
		return Level{}
	}
	return t.faces[face][level]
}

func (t *Texture) layers() int {
	if t.Target == gl.TEXTURE_CUBE_MAP {
		return 6
	}
	return 1
}

func (t *Texture) setLevel(face, level int, l Level) {
	for len(t.faces[face]) <= level {
		t.faces[face] = append(t.faces[face], Level{})
	}
	t.faces[face][level] = l
	t.dirty = true
}

func (m *Manager) maxSize(target gl.Enum) int {
	if target == gl.TEXTURE_2D {
		return m.limits.MaxTextureSize
	}
	return m.limits.MaxCubeMapTextureSize
}

func isBaseFormat(f gl.Enum) bool {
	switch f {
	case gl.RGBA, gl.RGB, gl.ALPHA, gl.LUMINANCE, gl.LUMINANCE_ALPHA:
		return true
	}
	return false
}

// checkLevel validates the level and size arguments of TexImage2D and
// CopyTexImage2D.
func (m *Manager) checkLevel(target gl.Enum, level, w, h int) error {
	limit := m.maxSize(target)
	if level < 0 || limit>>level == 0 {
		return ErrInvalidValue
	}
	if w < 0 || h < 0 || w > limit>>level || h > limit>>level {
		return ErrInvalidValue
	}
	if target != gl.TEXTURE_2D && w != h {
		return ErrInvalidValue
	}
	return nil
}

// TexImage2D specifies level of the face named by target.
func (m *Manager) TexImage2D(t *Texture, target gl.Enum, level int, internal gl.Enum, w, h int, format, typ gl.Enum, pixels []byte, align int) error {
	face, ok := Face(target)
	if !ok {
		return ErrInvalidEnum
	}
	if err := CheckPixelFormat(format, typ); err != nil {
		return err
	}
	if !isBaseFormat(internal) {
		return ErrInvalidValue
	}
	if err := m.checkLevel(target, level, w, h); err != nil {
		return err
	}
	if internal != format {
		return ErrInvalidOperation
	}
	rgba, err := unpack(format, typ, w, h, align, pixels)
	if err != nil {
		return err
	}
	if err := m.syncShadow(t); err != nil {
		return err
	}
	t.setLevel(face, level, Level{Width: w, Height: h, Format: internal, Type: typ, Pixels: rgba})
	return nil
}

// TexSubImage2D replaces a rectangle of a defined level.
func (m *Manager) TexSubImage2D(t *Texture, target gl.Enum, level, x, y, w, h int, format, typ gl.Enum, pixels []byte, align int) error {
	face, ok := Face(target)
	if !ok {
		return ErrInvalidEnum
	}
	if err := CheckPixelFormat(format, typ); err != nil {
		return err
	}
	if err := m.checkLevel(target, level, 0, 0); err != nil {
		return err
	}
	l := t.Level(face, level)
	if l.Format == 0 {
		return ErrInvalidOperation
	}
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > l.Width || y+h > l.Height {
		return ErrInvalidValue
	}
	if l.Format != format {
		return ErrInvalidOperation
	}
	rgba, err := unpack(format, typ, w, h, align, pixels)
	if err != nil {
		return err
	}
	if err := m.syncShadow(t); err != nil {
		return err
	}
	t.blit(face, level, x, y, w, h, rgba)
	return nil
}

func (t *Texture) blit(face, level, x, y, w, h int, rgba []byte) {
	l := t.faces[face][level]
	for row := 0; row < h; row++ {
		copy(l.Pixels[((y+row)*l.Width+x)*4:], rgba[row*w*4:(row+1)*w*4])
	}
	t.dirty = true
}

// CopyCompatible reports whether a texture of base format internal can
// be copied from a color buffer with the component sizes src.
func CopyCompatible(internal gl.Enum, src Bits) bool {
	switch internal {
	case gl.ALPHA, gl.LUMINANCE_ALPHA, gl.RGBA:
		return src.Alpha > 0
	}
	return src.Red > 0
}

// CopyTexImage2D defines a level from RGBA8 pixels read from the
// framebuffer.
func (m *Manager) CopyTexImage2D(t *Texture, target gl.Enum, level int, internal gl.Enum, w, h int, rgba []byte) error {
	face, ok := Face(target)
	if !ok {
		return ErrInvalidEnum
	}
	if !isBaseFormat(internal) {
		return ErrInvalidEnum
	}
	if err := m.checkLevel(target, level, w, h); err != nil {
		return err
	}
	if err := m.syncShadow(t); err != nil {
		return err
	}
	px := make([]byte, w*h*4)
	copy(px, rgba)
	Reduce(internal, px)
	t.setLevel(face, level, Level{Width: w, Height: h, Format: internal, Type: gl.UNSIGNED_BYTE, Pixels: px})
	return nil
}

// CopyTexSubImage2D replaces a rectangle of a level with RGBA8 pixels
// read from the framebuffer.
func (m *Manager) CopyTexSubImage2D(t *Texture, target gl.Enum, level, x, y, w, h int, rgba []byte) error {
	face, ok := Face(target)
	if !ok {
		return ErrInvalidEnum
	}
	if err := m.checkLevel(target, level, 0, 0); err != nil {
		return err
	}
	l := t.Level(face, level)
	if l.Format == 0 {
		return ErrInvalidOperation
	}
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > l.Width || y+h > l.Height {
		return ErrInvalidValue
	}
	if err := m.syncShadow(t); err != nil {
		return err
	}
	px := make([]byte, w*h*4)
	copy(px, rgba)
	Reduce(l.Format, px)
	t.blit(face, level, x, y, w, h, px)
	return nil
}

// GenerateMipmap rebuilds every level below level 0 by repeated 2×
// downsampling.
func (m *Manager) GenerateMipmap(t *Texture) error {
	if t.Target == gl.TEXTURE_CUBE_MAP && !t.cubeComplete() {
		return ErrInvalidOperation
	}
	if t.Level(0, 0).Format == 0 {
		return ErrInvalidOperation
	}
	if err := m.syncShadow(t); err != nil {
		return err
	}
	for f := 0; f < t.layers(); f++ {
		l := t.faces[f][0]
		levels := []Level{l}
		for l.Width > 1 || l.Height > 1 {
			l = downsample(l)
			levels = append(levels, l)
		}
		t.faces[f] = levels
	}
	t.dirty = true
	m.log.Debug("generated mipmaps", "texture", t.Name, "levels", len(t.faces[0]))
	return nil
}

func downsample(src Level) Level {
	w, h := max(1, src.Width/2), max(1, src.Height/2)
	s := &image.NRGBA{Pix: src.Pixels, Stride: src.Width * 4, Rect: image.Rect(0, 0, src.Width, src.Height)}
	d := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(d, d.Bounds(), s, s.Bounds(), draw.Src, nil)
	return Level{Width: w, Height: h, Format: src.Format, Type: src.Type, Pixels: d.Pix}
}

// SetParameter sets a sampler parameter. It reports whether the value
// changed.
func (t *Texture) SetParameter(pname gl.Enum, v gl.Enum) (bool, error) {
	var dst *gl.Enum
	switch pname {
	case gl.TEXTURE_MIN_FILTER:
		switch v {
		case gl.NEAREST, gl.LINEAR, gl.NEAREST_MIPMAP_NEAREST, gl.LINEAR_MIPMAP_NEAREST,
			gl.NEAREST_MIPMAP_LINEAR, gl.LINEAR_MIPMAP_LINEAR:
		default:
			return false, ErrInvalidEnum
		}
		dst = &t.MinFilter
	case gl.TEXTURE_MAG_FILTER:
		if v != gl.NEAREST && v != gl.LINEAR {
			return false, ErrInvalidEnum
		}
		dst = &t.MagFilter
	case gl.TEXTURE_WRAP_S, gl.TEXTURE_WRAP_T:
		switch v {
		case gl.REPEAT, gl.CLAMP_TO_EDGE, gl.MIRRORED_REPEAT:
		default:
			return false, ErrInvalidEnum
		}
		dst = &t.WrapS
		if pname == gl.TEXTURE_WRAP_T {
			dst = &t.WrapT
		}
	default:
		return false, ErrInvalidEnum
	}
	if *dst == v {
		return false, nil
	}
	*dst = v
	t.samplerDirty = true
	return true, nil
}

// Parameter returns a sampler parameter.
func (t *Texture) Parameter(pname gl.Enum) (gl.Enum, error) {
	switch pname {
	case gl.TEXTURE_MIN_FILTER:
		return t.MinFilter, nil
	case gl.TEXTURE_MAG_FILTER:
		return t.MagFilter, nil
	case gl.TEXTURE_WRAP_S:
		return t.WrapS, nil
	case gl.TEXTURE_WRAP_T:
		return t.WrapT, nil
	}
	return 0, ErrInvalidEnum
}

func mipmapped(minFilter gl.Enum) bool {
	return minFilter != gl.NEAREST && minFilter != gl.LINEAR
}

func (t *Texture) cubeComplete() bool {
	base := t.Level(0, 0)
	if base.Format == 0 || base.Width != base.Height || base.Width == 0 {
		return false
	}
	for f := 1; f < 6; f++ {
		l := t.Level(f, 0)
		if l.Width != base.Width || l.Height != base.Height || l.Format != base.Format {
			return false
		}
	}
	return true
}

// base returns the first defined level 0 of any face.
func (t *Texture) base() Level {
	for f := 0; f < t.layers(); f++ {
		if l := t.Level(f, 0); l.Format != 0 && l.Width > 0 && l.Height > 0 {
			return l
		}
	}
	return Level{}
}

// chain returns the number of consecutive levels, starting at 0, whose
// sizes and formats form a mipmap chain across every face.
func (t *Texture) chain() int {
	base := t.base()
	if base.Format == 0 {
		return 0
	}
	n := 0
	for {
		w, h := max(1, base.Width>>n), max(1, base.Height>>n)
		for f := 0; f < t.layers(); f++ {
			l := t.Level(f, n)
			if l.Width != w || l.Height != h || l.Format != base.Format {
				return n
			}
		}
		n++
		if w == 1 && h == 1 {
			return n
		}
	}
}

// Complete reports whether t can be sampled with its current filters.
// Non power of two sizes are complete, as with OES_texture_npot.
func (t *Texture) Complete() bool {
	if t.Target == gl.TEXTURE_CUBE_MAP && !t.cubeComplete() {
		return false
	}
	n := t.chain()
	if n == 0 {
		return false
	}
	if !mipmapped(t.MinFilter) {
		return true
	}
	base := t.Level(0, 0)
	full := 1
	for s := max(base.Width, base.Height); s > 1; s >>= 1 {
		full++
	}
	return n == full
}

// MarkRendered records that the GPU is writing to the image of t.
func (t *Texture) MarkRendered(tr Tracker) {
	t.rendered = true
	t.MarkUsed(tr)
}

// syncShadow reads back level 0 after rendering so that the shadow is
// authoritative again.
func (m *Manager) syncShadow(t *Texture) error {
	if !t.rendered || t.img == nil {
		return nil
	}
	if err := m.track.Finish(); err != nil {
		return err
	}
	for f := 0; f < t.layers(); f++ {
		l := t.Level(f, 0)
		if l.Format == 0 {
			continue
		}
		err := t.img.Download(f, 0, image.Rect(0, 0, l.Width, l.Height), l.Pixels)
		if err != nil {
			return wrapDriver(err, "texture readback")
		}
		Reduce(l.Format, l.Pixels)
	}
	t.rendered = false
	return nil
}

// Image returns the driver image of t, creating or refreshing it from
// the shadow. Textures without a defined level 0 have no image.
func (m *Manager) Image(t *Texture) (driver.Image, error) {
	base := t.base()
	if base.Format == 0 {
		return nil, nil
	}
	desc := driver.ImageDesc{
		Format: driver.FormatRGBA8,
		Width:  base.Width,
		Height: base.Height,
		Levels: max(1, t.chain()),
		Layers: t.layers(),
		Usage:  imageUsage,
	}
	if t.img != nil && t.img.Desc() == desc && !t.dirty {
		return t.img, nil
	}
	if err := m.syncShadow(t); err != nil {
		return nil, err
	}
	img := t.img
	if img == nil || img.Desc() != desc || t.Busy(m.track) {
		var err error
		img, err = m.dev.NewImage(desc)
		if err != nil {
			return nil, wrapDriver(err, "texture image")
		}
		m.log.Debug("created texture image", "texture", t.Name, "size", image.Pt(desc.Width, desc.Height), "levels", desc.Levels)
	}
	for f := 0; f < desc.Layers; f++ {
		for lvl := 0; lvl < desc.Levels; lvl++ {
			l := t.Level(f, lvl)
			if l.Format == 0 || l.Width != max(1, desc.Width>>lvl) || l.Height != max(1, desc.Height>>lvl) {
				continue
			}
			if err := img.Upload(f, lvl, image.Rect(0, 0, l.Width, l.Height), l.Pixels); err != nil {
				if img != t.img {
					img.Release()
				}
				return nil, wrapDriver(err, "texture upload")
			}
		}
	}
	if img != t.img {
		if t.img != nil {
			m.track.Release(t.img)
		}
		t.img = img
		t.Use = Use{}
	}
	t.dirty = false
	return img, nil
}

// Prepare returns the image and sampler to bind t with. ok is false if
// t is incomplete and must be sampled as black.
func (m *Manager) Prepare(t *Texture) (img driver.Image, s driver.Sampler, ok bool, err error) {
	if !t.Complete() {
		return nil, nil, false, nil
	}
	img, err = m.Image(t)
	if err != nil {
		return nil, nil, false, err
	}
	if t.sampler == nil || t.samplerDirty {
		smp, err := m.dev.NewSampler(t.samplerDesc())
		if err != nil {
			return nil, nil, false, wrapDriver(err, "sampler")
		}
		if t.sampler != nil {
			m.track.Release(t.sampler)
		}
		t.sampler = smp
		t.samplerDirty = false
	}
	return img, t.sampler, true, nil
}

func (t *Texture) samplerDesc() driver.SamplerDesc {
	d := driver.SamplerDesc{
		MinFilter: filter(t.MinFilter),
		MagFilter: filter(t.MagFilter),
		WrapS:     wrap(t.WrapS),
		WrapT:     wrap(t.WrapT),
		// Without mipmapping only level 0 is sampled.
		MaxLod: 0.25,
	}
	switch t.MinFilter {
	case gl.NEAREST_MIPMAP_NEAREST, gl.LINEAR_MIPMAP_NEAREST:
		d.Mipmap = driver.MipmapNearest
	case gl.NEAREST_MIPMAP_LINEAR, gl.LINEAR_MIPMAP_LINEAR:
		d.Mipmap = driver.MipmapLinear
	}
	if d.Mipmap != driver.MipmapNone {
		d.MaxLod = float32(t.chain())
	}
	return d
}

func filter(f gl.Enum) driver.Filter {
	switch f {
	case gl.LINEAR, gl.LINEAR_MIPMAP_NEAREST, gl.LINEAR_MIPMAP_LINEAR:
		return driver.FilterLinear
	}
	return driver.FilterNearest
}

func wrap(w gl.Enum) driver.Wrap {
	switch w {
	case gl.CLAMP_TO_EDGE:
		return driver.WrapClampToEdge
	case gl.MIRRORED_REPEAT:
		return driver.WrapMirroredRepeat
	}
	return driver.WrapRepeat
}

func (t *Texture) release(tr Tracker) {
	if t.img != nil {
		tr.Release(t.img)
		t.img = nil
	}
	if t.sampler != nil {
		tr.Release(t.sampler)
		t.sampler = nil
	}
}

// DeleteTexture forgets the texture named h.
func (m *Manager) DeleteTexture(h uint32) {
	if t := m.Textures.Lookup(h); t != nil {
		t.release(m.track)
	}
	m.Textures.Deallocate(h)
}
