// SPDX-License-Identifier: Unlicense OR MIT

// Package resource implements the GL objects of a context: buffers,
// textures, renderbuffers, framebuffers, shaders and programs, each
// backed by the driver objects it owns.
package resource

import (
	"log/slog"

	"github.com/pkg/errors"

	"glove.dev/gles/internal/compiler"
	"glove.dev/gles/internal/handle"
	"glove.dev/gles/internal/shaderres"
	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

// Errors mapped to GL error codes by the context.
var (
	ErrInvalidEnum      = errors.New("resource: invalid enum")
	ErrInvalidValue     = errors.New("resource: invalid value")
	ErrInvalidOperation = errors.New("resource: invalid operation")
)

// Kind discriminates the objects of the shared shader and program
// namespace.
type Kind uint8

const (
	KindShader Kind = iota + 1
	KindProgram
)

// Lifecycle tracks deferred deletion of shaders and programs.
type Lifecycle uint8

const (
	Alive Lifecycle = iota
	// PendingDeletion objects are deleted by GL but still referenced,
	// by a program or as the current program.
	PendingDeletion
)

// Tracker reports GPU progress and defers destruction of driver objects
// until the GPU is done with them.
type Tracker interface {
	Release(r driver.Resource)
	// Serial returns the serial of the submission currently recorded.
	Serial() uint64
	// Completed returns the latest serial that finished executing.
	Completed() uint64
	// Finish submits recorded work and waits for the GPU to idle.
	Finish() error
}

// Use remembers the last submission that referenced an object.
type Use struct {
	serial uint64
}

// MarkUsed records that work referencing the object is being recorded.
func (u *Use) MarkUsed(t Tracker) {
	u.serial = t.Serial()
}

// Busy reports whether the GPU may still access the object.
func (u *Use) Busy(t Tracker) bool {
	return u.serial > t.Completed()
}

// Limits are the implementation limits enforced by the objects.
type Limits struct {
	MaxTextureSize        int
	MaxCubeMapTextureSize int
	MaxRenderbufferSize   int
	Program               shaderres.Limits
}

type Options struct {
	Limits   Limits
	Compiler *compiler.Compiler
	Logger   *slog.Logger
}

// Manager owns the five GL namespaces of a context and the driver objects
// shared between framebuffers.
type Manager struct {
	dev    driver.Device
	track  Tracker
	log    *slog.Logger
	limits Limits
	comp   *compiler.Compiler

	Buffers       *handle.Table[Buffer]
	Textures      *handle.Table[Texture]
	Renderbuffers *handle.Table[Renderbuffer]
	Framebuffers  *handle.Table[Framebuffer]
	Shaders       *handle.Table[Shader]
	Programs      *handle.Table[Program]

	shading handle.Names
	kinds   map[uint32]Kind

	passes map[driver.RenderPassDesc]driver.RenderPass
	execs  uint64
	// black holds the 2D and cube placeholders for incomplete textures.
	black [2]samplerBinding

	// Default is the framebuffer named 0.
	Default    *Framebuffer
	draw, read *Surface
}

func NewManager(dev driver.Device, track Tracker, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	m := &Manager{
		dev:     dev,
		track:   track,
		log:     opts.Logger,
		limits:  opts.Limits,
		comp:    opts.Compiler,
		kinds:   make(map[uint32]Kind),
		passes:  make(map[driver.RenderPassDesc]driver.RenderPass),
		Default: &Framebuffer{},
	}
	m.Buffers = handle.NewTable(func(h uint32) *Buffer {
		return &Buffer{Name: h, Usage: gl.STATIC_DRAW}
	})
	m.Textures = handle.NewTable(newTexture)
	m.Renderbuffers = handle.NewTable(func(h uint32) *Renderbuffer {
		return &Renderbuffer{Name: h, Format: gl.RGBA4}
	})
	m.Framebuffers = handle.NewTable(func(h uint32) *Framebuffer {
		return &Framebuffer{Name: h}
	})
	m.Shaders = handle.NewSharedTable(&m.shading, func(h uint32) *Shader {
		return &Shader{Name: h}
	})
	m.Programs = handle.NewSharedTable(&m.shading, func(h uint32) *Program {
		return &Program{Name: h}
	})
	return m
}

// Device returns the driver device objects are created on.
func (m *Manager) Device() driver.Device {
	return m.dev
}

// ShadingKind reports whether h names a shader or a program.
func (m *Manager) ShadingKind(h uint32) (Kind, bool) {
	k, ok := m.kinds[h]
	return k, ok
}

// CreateShader allocates and realizes a shader of type typ.
func (m *Manager) CreateShader(typ gl.Enum) uint32 {
	h := m.Shaders.Allocate()
	m.kinds[h] = KindShader
	m.Shaders.Object(h).Type = typ
	return h
}

func (m *Manager) CreateProgram() uint32 {
	h := m.Programs.Allocate()
	m.kinds[h] = KindProgram
	m.Programs.Object(h)
	return h
}

// Shader returns the shader named h. It returns ErrInvalidValue for
// unknown names and ErrInvalidOperation for program names.
func (m *Manager) Shader(h uint32) (*Shader, error) {
	switch k, ok := m.kinds[h]; {
	case !ok:
		return nil, ErrInvalidValue
	case k != KindShader:
		return nil, ErrInvalidOperation
	}
	return m.Shaders.Object(h), nil
}

// Program is like Shader for programs.
func (m *Manager) Program(h uint32) (*Program, error) {
	switch k, ok := m.kinds[h]; {
	case !ok:
		return nil, ErrInvalidValue
	case k != KindProgram:
		return nil, ErrInvalidOperation
	}
	return m.Programs.Object(h), nil
}

// RenderPass returns a cached render pass for desc.
func (m *Manager) RenderPass(desc driver.RenderPassDesc) (driver.RenderPass, error) {
	if rp, ok := m.passes[desc]; ok {
		return rp, nil
	}
	rp, err := m.dev.NewRenderPass(desc)
	if err != nil {
		return nil, errors.Wrap(err, "resource: render pass")
	}
	m.log.Debug("created render pass", "color", desc.Color.Format, "depthstencil", desc.DepthStencil.Format, "load", desc.Color.Load)
	m.passes[desc] = rp
	return rp, nil
}

// Destroy releases every driver object owned by the namespaces.
func (m *Manager) Destroy() {
	m.Buffers.Each(func(_ uint32, b *Buffer) { b.release(m.track) })
	m.Textures.Each(func(_ uint32, t *Texture) { t.release(m.track) })
	m.Renderbuffers.Each(func(_ uint32, r *Renderbuffer) { r.release(m.track) })
	m.Framebuffers.Each(func(_ uint32, f *Framebuffer) { f.release(m.track) })
	m.Programs.Each(func(_ uint32, p *Program) { p.release(m.track) })
	m.Default.release(m.track)
	m.SetSurfaces(nil, nil)
	for _, rp := range m.passes {
		m.track.Release(rp)
	}
	m.passes = nil
	for i, b := range m.black {
		if b.img != nil {
			m.track.Release(b.img)
			m.track.Release(b.smp)
		}
		m.black[i] = samplerBinding{}
	}
}

// wrapDriver annotates a driver failure, keeping driver.ErrOutOfMemory
// visible to errors.Is.
func wrapDriver(err error, what string) error {
	return errors.Wrapf(err, "resource: %s", what)
}
