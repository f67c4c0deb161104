// SPDX-License-Identifier: Unlicense OR MIT

/*
Package gles implements the OpenGL ES 2.0 API on top of an explicit GPU
device such as Vulkan.

A Context holds the complete GL state of one rendering context. Its
methods are the GL entry points: they validate their arguments, record
at most one error in the error register read by GetError, and otherwise
update the state or the GL objects. Driver objects such as pipelines,
descriptor sets and render passes are derived lazily, when a draw or
clear needs them, and only when the state they depend on changed.

Contexts are not safe for concurrent use.
*/
package gles

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"glove.dev/gles/internal/cmdbuf"
	"glove.dev/gles/internal/compiler"
	"glove.dev/gles/internal/pipeline"
	"glove.dev/gles/internal/resource"
	"glove.dev/gles/internal/shaderres"
	"glove.dev/gles/internal/state"
	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

// Context is an OpenGL ES 2.0 context rendering with a driver.Device.
type Context struct {
	cfg    Config
	limits Limits
	log    *slog.Logger

	dev    driver.Device
	cmds   *cmdbuf.Manager
	comp   *compiler.Compiler
	res    *resource.Manager
	state  *state.State
	pipe   *pipeline.Pipeline
	input  *pipeline.VertexInput
	clears *pipeline.ClearPass

	// err is the sticky error register.
	err gl.Enum

	pass renderPass
	// bound is the pipeline bound in the recording command buffer.
	bound driver.Pipeline

	surfaces    map[*Surface]*resource.Surface
	write, read *Surface
	// sized is set once the viewport and scissor were initialized from
	// the first write surface.
	sized bool
}

// Options configure NewContext.
type Options struct {
	// Config replaces the configuration loaded by Init.
	Config *Config
	// Logger replaces the package logger.
	Logger *slog.Logger
	// Generator replaces the glslangValidator SPIR-V backend.
	Generator compiler.SPIRVGenerator
}

// SPIRVGenerator turns translated GLSL into SPIR-V.
type SPIRVGenerator = compiler.SPIRVGenerator

// NewContext creates a context rendering with dev. The caller keeps
// ownership of dev.
func NewContext(dev driver.Device, opts Options) (*Context, error) {
	cfg, gen := processConfig()
	if opts.Config != nil {
		cfg = *opts.Config
		gen = nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = Logger()
	}
	if opts.Generator != nil {
		gen = opts.Generator
	}
	if gen == nil {
		gen = compiler.NewGlslang(cfg.Compiler.Glslang)
	}
	c := &Context{
		cfg:      cfg,
		limits:   deviceLimits(cfg.Limits, dev.Caps()),
		log:      log,
		dev:      dev,
		surfaces: make(map[*Surface]*resource.Surface),
	}
	cmds, err := cmdbuf.New(dev, cmdbuf.Options{
		Buffers:      cfg.Submission.CommandBuffers,
		FenceTimeout: cfg.fenceTimeout(),
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}
	c.cmds = cmds
	track := tracker{c}
	c.comp = compiler.New(gen, log, c.limits.MaxVaryingVectors)
	c.res = resource.NewManager(dev, track, resource.Options{
		Limits: resource.Limits{
			MaxTextureSize:        c.limits.MaxTextureSize,
			MaxCubeMapTextureSize: c.limits.MaxCubeMapTextureSize,
			MaxRenderbufferSize:   c.limits.MaxRenderbufferSize,
			Program: shaderres.Limits{
				MaxVertexAttribs:             c.limits.MaxVertexAttribs,
				MaxVertexUniformVectors:      c.limits.MaxVertexUniformVectors,
				MaxFragmentUniformVectors:    c.limits.MaxFragmentUniformVectors,
				MaxCombinedTextureImageUnits: c.limits.MaxCombinedTextureImageUnits,
			},
		},
		Compiler: c.comp,
		Logger:   log,
	})
	c.state = state.New(c.limits.MaxVertexAttribs, c.limits.MaxCombinedTextureImageUnits)
	c.pipe, err = pipeline.New(dev, track, pipeline.Options{
		CacheEntries: cfg.Pipeline.CacheEntries,
		Logger:       log,
	})
	if err != nil {
		c.cmds.Destroy()
		return nil, err
	}
	c.input = pipeline.NewVertexInput(dev, track)
	c.clears = pipeline.NewClearPass(dev, track, log)
	log.Info("created context",
		"attribs", c.limits.MaxVertexAttribs,
		"units", c.limits.MaxCombinedTextureImageUnits,
		"ring", cfg.Submission.CommandBuffers)
	return c, nil
}

// deviceLimits clamps the configured limits to what the device supports.
func deviceLimits(l Limits, caps driver.Caps) Limits {
	clamp := func(v *int, max int) {
		if max > 0 && *v > max {
			*v = max
		}
	}
	clamp(&l.MaxVertexAttribs, caps.MaxVertexInputAttributes)
	clamp(&l.MaxTextureSize, caps.MaxImageDimension2D)
	clamp(&l.MaxRenderbufferSize, caps.MaxImageDimension2D)
	clamp(&l.MaxViewportDims, caps.MaxImageDimension2D)
	clamp(&l.MaxCubeMapTextureSize, caps.MaxImageDimensionCube)
	return l
}

// Destroy waits for the device to finish the work of the context and
// releases every object it owns. The context must not be used
// afterwards.
func (c *Context) Destroy() {
	if c.cmds == nil {
		return
	}
	if err := c.flush(); err != nil {
		c.log.Error("flush on destroy", "err", err)
	}
	c.clears.Release()
	c.input.Release()
	c.pipe.Release()
	c.res.Destroy()
	c.surfaces = nil
	c.cmds.Destroy()
	c.cmds = nil
	releaseCurrent(c)
	c.log.Info("destroyed context")
}

// GetError returns and clears the oldest recorded error.
func (c *Context) GetError() gl.Enum {
	e := c.err
	c.err = gl.NO_ERROR
	return e
}

// setError records code unless an error is already pending.
func (c *Context) setError(call string, code gl.Enum) {
	c.log.Debug("gl error", "call", call, "error", code)
	if c.err == gl.NO_ERROR {
		c.err = code
	}
}

// check records the GL error matching err and reports whether err is
// nil.
func (c *Context) check(call string, err error) bool {
	if err == nil {
		return true
	}
	var code gl.Enum
	switch {
	case errors.Is(err, resource.ErrInvalidEnum):
		code = gl.INVALID_ENUM
	case errors.Is(err, resource.ErrInvalidValue):
		code = gl.INVALID_VALUE
	case errors.Is(err, resource.ErrInvalidOperation):
		code = gl.INVALID_OPERATION
	case errors.Is(err, resource.ErrIncompleteFramebuffer):
		code = gl.INVALID_FRAMEBUFFER_OPERATION
	case errors.Is(err, driver.ErrOutOfMemory):
		c.log.Error("out of memory", "call", call, "err", err)
		code = gl.OUT_OF_MEMORY
	default:
		c.log.Error("driver failure", "call", call, "err", fmt.Sprintf("%+v", err))
		code = gl.OUT_OF_MEMORY
	}
	c.setError(call, code)
	return false
}

// tracker adapts the command buffer ring to pipeline.Tracker.
type tracker struct {
	c *Context
}

func (t tracker) Release(r driver.Resource) { t.c.cmds.Release(r) }
func (t tracker) Ref(r driver.Resource)     { t.c.cmds.Ref(r) }
func (t tracker) Unref(r driver.Resource)   { t.c.cmds.Unref(r) }
func (t tracker) Serial() uint64            { return t.c.cmds.Serial() }
func (t tracker) Completed() uint64         { return t.c.cmds.Completed() }
func (t tracker) Finish() error             { return t.c.finish() }
