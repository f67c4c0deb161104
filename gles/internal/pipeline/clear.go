// SPDX-License-Identifier: Unlicense OR MIT

package pipeline

import (
	"image"
	"log/slog"
	"math"

	"gioui.org/shader/gio"
	"github.com/pkg/errors"

	"glove.dev/gles/internal/resource"
	"glove.dev/gles/internal/shaderres"
	"glove.dev/internal/driver"
)

// Clear describes one glClear. The context drops the buffers that are
// absent from the target or fully write-masked.
type Clear struct {
	Color, Depth, Stencil bool
	Values                driver.ClearValues
	ColorMask             [4]bool
	// StencilMask is the front face stencil write mask.
	StencilMask uint32
	// Rect is the area to clear in target coordinates.
	Rect image.Rectangle
	// Full is set when Rect covers the whole target.
	Full bool
}

var allColors = [4]bool{true, true, true, true}

func (c Clear) colorMasked() bool {
	return c.Color && c.ColorMask != allColors
}

func (c Clear) stencilMasked() bool {
	return c.Stencil && c.StencilMask&0xff != 0xff
}

// Empty reports whether c clears nothing.
func (c Clear) Empty() bool {
	return !c.Color && !c.Depth && !c.Stencil
}

// LoadOps folds the parts of c that cover the whole target without
// masking into render pass load operations. The remainder must be
// recorded inside the render pass.
func (c Clear) LoadOps() (color, depth, stencil driver.LoadOp, rest Clear) {
	color, depth, stencil = driver.LoadOpLoad, driver.LoadOpLoad, driver.LoadOpLoad
	rest = c
	if !c.Full {
		return
	}
	if c.Color && !c.colorMasked() {
		color = driver.LoadOpClear
		rest.Color = false
	}
	if c.Depth {
		depth = driver.LoadOpClear
		rest.Depth = false
	}
	if c.Stencil && !c.stencilMasked() {
		stencil = driver.LoadOpClear
		rest.Stencil = false
	}
	return
}

// ClearPass records clears inside a render pass. Unmasked buffers are
// cleared with ClearAttachments; write-masked color and stencil clears
// draw a full screen quad.
type ClearPass struct {
	dev   driver.Device
	track resource.Tracker
	log   *slog.Logger

	vert, frag driver.ShaderModule
	layout     driver.PipelineLayout
	quad       driver.Buffer
	pipelines  map[quadKey]driver.Pipeline
}

type quadKey struct {
	pass        passKey
	colorMask   driver.ColorMask
	stencil     bool
	stencilMask uint32
	reference   uint32
}

// Push constant layout of gio's solid color blit shaders: the vertex block
// (transform, uvTransformR1, uvTransformR2) at offset 0 and the fragment
// color vec4 at pushColorOffset, both in one range visible to both stages.
const (
	pushVertexSize  = 48
	pushColorOffset = 112
	pushSize        = pushColorOffset + 16
)

func NewClearPass(dev driver.Device, track resource.Tracker, logger *slog.Logger) *ClearPass {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClearPass{dev: dev, track: track, log: logger, pipelines: make(map[quadKey]driver.Pipeline)}
}

// Record records the clear c into cb, which must be inside a render pass
// instance of rp covering size. It reports whether it bound a pipeline,
// vertex buffers or dynamic state the caller must restore.
func (c *ClearPass) Record(cb driver.CommandBuffer, rp driver.RenderPass, size image.Point, cl Clear) (rebound bool, err error) {
	if cl.Rect.Empty() {
		return false, nil
	}
	var atts []driver.ClearAttachment
	if cl.Color && !cl.colorMasked() {
		atts = append(atts, driver.ClearAttachment{Aspect: driver.AspectColor, Value: cl.Values})
	}
	var ds driver.Aspect
	if cl.Depth {
		ds |= driver.AspectDepth
	}
	if cl.Stencil && !cl.stencilMasked() {
		ds |= driver.AspectStencil
	}
	if ds != 0 {
		atts = append(atts, driver.ClearAttachment{Aspect: ds, Value: cl.Values})
	}
	if len(atts) > 0 {
		cb.ClearAttachments(atts, cl.Rect)
	}
	if !cl.colorMasked() && !cl.stencilMasked() {
		return false, nil
	}
	k := quadKey{pass: passKeyOf(rp.Desc())}
	if cl.colorMasked() {
		k.colorMask = toColorMask(cl.ColorMask)
	}
	if cl.stencilMasked() {
		k.stencil = true
		k.stencilMask = cl.StencilMask & 0xff
		k.reference = cl.Values.Stencil & 0xff
	}
	pl, err := c.pipeline(rp, k)
	if err != nil {
		return false, err
	}
	cb.BindPipeline(pl)
	cb.SetViewport(driver.Viewport{Width: float32(size.X), Height: float32(size.Y), MaxDepth: 1})
	cb.SetScissor(cl.Rect)
	cb.BindVertexBuffers(0, []driver.Buffer{c.quad}, []int{0})
	// Shader_blit_frag[0] is the solid color variant; see pushConstants.
	cb.PushConstants(c.layout, driver.StageVertex|driver.StageFragment, 0, pushConstants(cl.Values.Color))
	cb.Draw(4, 0)
	return true, nil
}

// pushConstants returns the blit parameters for an untransformed quad of
// the solid color col.
func pushConstants(col [4]float32) []byte {
	v := [pushSize / 4]float32{
		1, 1, 0, 0, // transform: scale xy, offset zw
		1, 0, 0, 0, // uvTransformR1
		0, 1, 0, 0, // uvTransformR2
	}
	copy(v[pushColorOffset/4:], col[:])
	b := make([]byte, pushSize)
	for i, f := range v {
		shaderres.NativeOrder.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

func (c *ClearPass) pipeline(rp driver.RenderPass, k quadKey) (driver.Pipeline, error) {
	if p, ok := c.pipelines[k]; ok {
		return p, nil
	}
	if err := c.setup(); err != nil {
		return nil, err
	}
	d := driver.PipelineDesc{
		VertexShader:   c.vert,
		FragmentShader: c.frag,
		Layout:         c.layout,
		RenderPass:     rp,
		VertexBindings: []driver.VertexBinding{{Binding: 0, Stride: 16}},
		VertexAttributes: []driver.VertexAttribute{
			{Location: 0, Format: driver.VertexFormat{Type: driver.VertexFloat, Size: 2}},
			{Location: 1, Format: driver.VertexFormat{Type: driver.VertexFloat, Size: 2}, Offset: 8},
		},
		Topology:      driver.TopologyTriangleStrip,
		Rasterization: driver.RasterizationDesc{LineWidth: 1},
		Blend:         driver.BlendDesc{WriteMask: k.colorMask},
		Multisample:   driver.MultisampleDesc{CoverageValue: 1},
	}
	if k.stencil {
		st := driver.StencilOpState{
			Fail:        driver.StencilReplace,
			Pass:        driver.StencilReplace,
			DepthFail:   driver.StencilReplace,
			Compare:     driver.CompareAlways,
			CompareMask: 0xff,
			WriteMask:   k.stencilMask,
			Reference:   k.reference,
		}
		d.DepthStencil = driver.DepthStencilDesc{StencilTest: true, Front: st, Back: st}
	}
	p, err := c.dev.NewPipeline(d)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: clear")
	}
	c.log.Debug("built clear pipeline", "colormask", k.colorMask, "stencil", k.stencil)
	c.pipelines[k] = p
	return p, nil
}

// setup creates the objects shared by every quad pipeline.
func (c *ClearPass) setup() error {
	if c.quad != nil {
		return nil
	}
	vert, err := c.dev.NewShaderModule(driver.StageVertex, gio.Shader_blit_vert)
	if err != nil {
		return errors.Wrap(err, "pipeline: clear vertex shader")
	}
	frag, err := c.dev.NewShaderModule(driver.StageFragment, gio.Shader_blit_frag[0])
	if err != nil {
		vert.Release()
		return errors.Wrap(err, "pipeline: clear fragment shader")
	}
	layout, err := c.dev.NewPipelineLayout(nil, pushSize)
	if err != nil {
		vert.Release()
		frag.Release()
		return errors.Wrap(err, "pipeline: clear layout")
	}
	quad, err := c.dev.NewBuffer(driver.BufferUsageVertex, 4*16)
	if err != nil {
		vert.Release()
		frag.Release()
		layout.Release()
		return errors.Wrap(err, "pipeline: clear quad")
	}
	verts := []float32{
		-1, -1, 0, 0,
		+1, -1, 1, 0,
		-1, +1, 0, 1,
		+1, +1, 1, 1,
	}
	data := make([]byte, len(verts)*4)
	for i, f := range verts {
		shaderres.NativeOrder.PutUint32(data[i*4:], math.Float32bits(f))
	}
	quad.Upload(0, data)
	c.vert, c.frag, c.layout, c.quad = vert, frag, layout, quad
	return nil
}

// Release releases the quad pipelines and their shared objects.
func (c *ClearPass) Release() {
	for k, p := range c.pipelines {
		c.track.Release(p)
		delete(c.pipelines, k)
	}
	if c.quad == nil {
		return
	}
	for _, r := range []driver.Resource{c.vert, c.frag, c.layout, c.quad} {
		c.track.Release(r)
	}
	c.vert, c.frag, c.layout, c.quad = nil, nil, nil, nil
}
