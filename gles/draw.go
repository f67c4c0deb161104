// SPDX-License-Identifier: Unlicense OR MIT

package gles

import (
	"image"

	"glove.dev/gles/internal/cmdbuf"
	"glove.dev/gles/internal/pipeline"
	"glove.dev/gles/internal/resource"
	"glove.dev/gles/internal/state"
	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

// renderPass tracks the render pass instance of the recording command
// buffer. Clears issued before the first draw into a target are folded
// into the load operations of the next instance.
type renderPass struct {
	active bool
	target resource.Target
	rp     driver.RenderPass
	// cleared is set when load holds clears of target not yet begun.
	cleared bool
	load    [3]driver.LoadOp
	values  driver.ClearValues
}

func (p *renderPass) merge(color, depth, stencil driver.LoadOp, v driver.ClearValues) {
	if color == driver.LoadOpClear {
		p.load[0] = color
		p.values.Color = v.Color
		p.cleared = true
	}
	if depth == driver.LoadOpClear {
		p.load[1] = depth
		p.values.Depth = v.Depth
		p.cleared = true
	}
	if stencil == driver.LoadOpClear {
		p.load[2] = stencil
		p.values.Stencil = v.Stencil
		p.cleared = true
	}
}

// recording returns the active command buffer, beginning it if needed.
func (c *Context) recording() (driver.CommandBuffer, error) {
	if c.cmds.State() != cmdbuf.Recording {
		if err := c.cmds.Begin(); err != nil {
			return nil, err
		}
		c.bound = nil
		c.state.MarkDirty(state.DirtyViewport)
	}
	return c.cmds.Active(), nil
}

func (c *Context) framebuffer() *resource.Framebuffer {
	if c.state.Framebuffer == 0 {
		return c.res.Default
	}
	return c.res.Framebuffers.Lookup(c.state.Framebuffer)
}

// beginPass makes sure a render pass instance targeting tg is active.
func (c *Context) beginPass(tg resource.Target) (driver.CommandBuffer, error) {
	if c.pass.active && c.pass.target.Framebuffer == tg.Framebuffer {
		return c.cmds.Active(), nil
	}
	if c.pass.active || (c.pass.cleared && c.pass.target.Framebuffer != tg.Framebuffer) {
		if err := c.endPass(); err != nil {
			return nil, err
		}
	}
	cb, err := c.recording()
	if err != nil {
		return nil, err
	}
	var (
		load   [3]driver.LoadOp
		values driver.ClearValues
	)
	if c.pass.cleared {
		load, values = c.pass.load, c.pass.values
	}
	rp, err := c.res.RenderPass(tg.PassDesc(load[0], load[1], load[2]))
	if err != nil {
		return nil, err
	}
	cb.BeginRenderPass(rp, tg.Framebuffer, image.Rectangle{Max: tg.Size}, values)
	if tg.Texture != nil {
		tg.Texture.MarkRendered(tracker{c})
	}
	c.pass = renderPass{active: true, target: tg, rp: rp}
	c.bound = nil
	c.state.MarkDirty(state.DirtyViewport)
	return cb, nil
}

// endPass ends the active render pass instance, first recording the
// pending load operation clears.
func (c *Context) endPass() error {
	if !c.pass.active && c.pass.cleared {
		if _, err := c.beginPass(c.pass.target); err != nil {
			c.pass = renderPass{}
			return err
		}
	}
	if c.pass.active {
		c.cmds.Active().EndRenderPass()
	}
	c.pass = renderPass{}
	return nil
}

func (c *Context) flush() error {
	if err := c.endPass(); err != nil {
		return err
	}
	if err := c.cmds.End(); err != nil {
		return err
	}
	return c.cmds.Submit()
}

func (c *Context) finish() error {
	if err := c.flush(); err != nil {
		return err
	}
	return c.cmds.WaitLastSubmission()
}

// Flush submits the recorded commands without waiting for them.
func (c *Context) Flush() {
	c.check("glFlush", c.flush())
}

// Finish submits the recorded commands and blocks until the GPU has
// executed them.
func (c *Context) Finish() {
	c.check("glFinish", c.finish())
}

func (c *Context) scissorRect(size image.Point) image.Rectangle {
	b := c.state.Fragment.Scissor
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height).Intersect(image.Rectangle{Max: size})
}

// clearOp describes a glClear of mask into tg. Buffers absent from the
// target or fully write-masked are dropped.
func (c *Context) clearOp(mask gl.Enum, tg resource.Target) pipeline.Clear {
	s := c.state
	cl := pipeline.Clear{
		Color:   mask&gl.COLOR_BUFFER_BIT != 0 && tg.Color != driver.FormatUndefined && s.Color.Mask != [4]bool{},
		Depth:   mask&gl.DEPTH_BUFFER_BIT != 0 && tg.Depth && s.Depth.Mask,
		Stencil: mask&gl.STENCIL_BUFFER_BIT != 0 && tg.Stencil && s.Stencil.Front.WriteMask&0xff != 0,
		Values: driver.ClearValues{
			Color:   s.Clear.Color,
			Depth:   s.Clear.Depth,
			Stencil: uint32(s.Clear.Stencil) & 0xff,
		},
		ColorMask:   s.Color.Mask,
		StencilMask: s.Stencil.Front.WriteMask,
	}
	full := image.Rectangle{Max: tg.Size}
	cl.Rect = full
	if s.Fragment.ScissorTest {
		cl.Rect = c.scissorRect(tg.Size)
	}
	cl.Full = cl.Rect == full
	return cl
}

func (c *Context) Clear(mask gl.Enum) {
	const call = "glClear"
	if mask&^(gl.COLOR_BUFFER_BIT|gl.DEPTH_BUFFER_BIT|gl.STENCIL_BUFFER_BIT) != 0 {
		c.setError(call, gl.INVALID_VALUE)
		return
	}
	tg, err := c.res.Target(c.framebuffer())
	if !c.check(call, err) {
		return
	}
	cl := c.clearOp(mask, tg)
	if cl.Empty() || cl.Rect.Empty() {
		return
	}
	if !c.pass.active {
		if c.pass.cleared && c.pass.target.Framebuffer != tg.Framebuffer {
			if !c.check(call, c.endPass()) {
				return
			}
		}
		// Recording keeps objects released from now on alive until
		// the pending clear executed.
		if _, err := c.recording(); !c.check(call, err) {
			return
		}
		color, depth, stencil, rest := cl.LoadOps()
		c.pass.target = tg
		c.pass.merge(color, depth, stencil, cl.Values)
		if cl = rest; cl.Empty() {
			return
		}
	}
	cb, err := c.beginPass(tg)
	if !c.check(call, err) {
		return
	}
	rebound, err := c.clears.Record(cb, c.pass.rp, tg.Size, cl)
	if rebound {
		c.bound = nil
		c.state.MarkDirty(state.DirtyViewport)
	}
	c.check(call, err)
}

// drawSetup is the part of a draw common to DrawArrays and
// DrawElements.
type drawSetup struct {
	exec     *resource.Executable
	target   resource.Target
	topology driver.Topology
}

// setupDraw validates the state for drawing in mode. It reports false
// when nothing must be drawn.
func (c *Context) setupDraw(call string, mode gl.Enum, count int) (drawSetup, bool) {
	topo, ok := pipeline.Topology(mode)
	if !ok {
		c.setError(call, gl.INVALID_ENUM)
		return drawSetup{}, false
	}
	if count < 0 {
		c.setError(call, gl.INVALID_VALUE)
		return drawSetup{}, false
	}
	tg, err := c.res.Target(c.framebuffer())
	if !c.check(call, err) {
		return drawSetup{}, false
	}
	p := c.program()
	if p == nil || p.Executable() == nil || count == 0 {
		return drawSetup{}, false
	}
	e := p.Executable()
	if err := resource.CheckSamplers(e.Interface, len(c.state.Textures.Units)); err != nil {
		c.log.Debug("draw rejected", "call", call, "err", err)
		c.setError(call, gl.INVALID_OPERATION)
		return drawSetup{}, false
	}
	vp := c.state.Viewport
	if vp.Width == 0 || vp.Height == 0 {
		return drawSetup{}, false
	}
	if c.state.Fragment.ScissorTest && c.scissorRect(tg.Size).Empty() {
		return drawSetup{}, false
	}
	return drawSetup{exec: e, target: tg, topology: topo}, true
}

// prepareDraw brings the descriptors, vertex input and pipeline up to
// date for drawing vertices [0, end) and returns the command buffer to
// record the draw into, with everything bound.
func (c *Context) prepareDraw(d drawSetup, end int) (driver.CommandBuffer, error) {
	e, tg := d.exec, d.target
	compat, err := c.res.RenderPass(tg.PassDesc(driver.LoadOpLoad, driver.LoadOpLoad, driver.LoadOpLoad))
	if err != nil {
		return nil, err
	}
	// Descriptors may finish the command buffer to read back a texture,
	// so it runs before the render pass begins.
	set, err := c.res.Descriptors(e, c.lookupTexture)
	if err != nil {
		return nil, err
	}
	if _, err := c.input.Prepare(c.state, e.Interface, c.res.Buffers.Lookup, end); err != nil {
		return nil, err
	}
	pl, err := c.pipe.Prepare(c.state, e, compat, c.input.Layout(), d.topology)
	if err != nil {
		return nil, err
	}
	cb, err := c.beginPass(tg)
	if err != nil {
		return nil, err
	}
	if pl != c.bound {
		cb.BindPipeline(pl)
		c.bound = pl
	}
	if set != nil {
		cb.BindDescriptorSet(e.Layout, set)
	}
	c.input.Bind(cb)
	c.setDynamic(cb, tg.Size)
	return cb, nil
}

// setDynamic records the viewport and scissor when they changed.
func (c *Context) setDynamic(cb driver.CommandBuffer, size image.Point) {
	if !c.state.Has(state.DirtyViewport) {
		return
	}
	vp := c.state.Viewport
	cb.SetViewport(driver.Viewport{
		X:        float32(vp.X),
		Y:        float32(vp.Y),
		Width:    float32(vp.Width),
		Height:   float32(vp.Height),
		MinDepth: vp.Near,
		MaxDepth: vp.Far,
	})
	sc := image.Rectangle{Max: size}
	if c.state.Fragment.ScissorTest {
		sc = c.scissorRect(size)
	}
	cb.SetScissor(sc)
	c.state.Clean(state.DirtyViewport)
}

func (c *Context) lookupTexture(unit int, target gl.Enum) *resource.Texture {
	return c.res.Textures.Lookup(c.state.Texture(unit, target))
}

func (c *Context) DrawArrays(mode gl.Enum, first, count int) {
	const call = "glDrawArrays"
	if first < 0 {
		c.setError(call, gl.INVALID_VALUE)
		return
	}
	d, ok := c.setupDraw(call, mode, count)
	if !ok {
		return
	}
	var loop pipeline.Indices
	if mode == gl.LINE_LOOP {
		var err error
		if loop, err = c.input.LoopIndices(first, count); !c.check(call, err) {
			return
		}
	}
	cb, err := c.prepareDraw(d, first+count)
	if !c.check(call, err) {
		return
	}
	if mode == gl.LINE_LOOP {
		loop.Bind(cb)
		cb.DrawIndexed(loop.Count, 0, 0)
		return
	}
	cb.Draw(count, first)
}

// DrawElements draws count indices of type typ. The indices are read
// from the bound ELEMENT_ARRAY_BUFFER at byte offset, or from indices
// when no buffer is bound.
func (c *Context) DrawElements(mode gl.Enum, count int, typ gl.Enum, offset int, indices []byte) {
	const call = "glDrawElements"
	if pipeline.IndexSize(typ) == 0 {
		c.setError(call, gl.INVALID_ENUM)
		return
	}
	d, ok := c.setupDraw(call, mode, count)
	if !ok {
		return
	}
	var elements *resource.Buffer
	if h := c.state.Input.ElementBuffer; h != 0 {
		elements = c.res.Buffers.Lookup(h)
	}
	ind, err := c.input.PrepareIndices(typ, count, elements, offset, indices, mode == gl.LINE_LOOP)
	if !c.check(call, err) {
		return
	}
	cb, err := c.prepareDraw(d, ind.Max+1)
	if !c.check(call, err) {
		return
	}
	ind.Bind(cb)
	cb.DrawIndexed(ind.Count, 0, 0)
}

// ReadPixels reads the rectangle of the color buffer of the bound
// framebuffer into pixels, bottom row first. Only RGBA and
// UNSIGNED_BYTE are supported.
func (c *Context) ReadPixels(x, y, width, height int, format, typ gl.Enum, pixels []byte) {
	const call = "glReadPixels"
	if err := resource.CheckPixelFormat(format, typ); !c.check(call, err) {
		return
	}
	if format != gl.RGBA || typ != gl.UNSIGNED_BYTE {
		c.setError(call, gl.INVALID_OPERATION)
		return
	}
	if width < 0 || height < 0 {
		c.setError(call, gl.INVALID_VALUE)
		return
	}
	align := c.state.Input.PackAlignment
	if len(pixels) < resource.ClientSize(format, typ, width, height, align) {
		c.setError(call, gl.INVALID_VALUE)
		return
	}
	rgba, err := c.res.ReadPixels(c.framebuffer(), image.Rect(x, y, x+width, y+height))
	if !c.check(call, err) {
		return
	}
	c.check(call, resource.Pack(width, height, align, rgba, pixels))
}
