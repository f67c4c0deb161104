// SPDX-License-Identifier: Unlicense OR MIT

package resource

import (
	"glove.dev/gles/internal/compiler"
	"glove.dev/gles/internal/handle"
	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

// Shader is a shader object. It stays alive after deletion for as long
// as a program has it attached.
type Shader struct {
	Name   uint32
	Type   gl.Enum
	Source string

	Compiled      *compiler.Shader
	CompileStatus bool
	InfoLog       string
	Lifecycle     Lifecycle

	attached int
}

// Stage returns the pipeline stage of the shader type.
func (s *Shader) Stage() driver.ShaderStage {
	if s.Type == gl.VERTEX_SHADER {
		return driver.StageVertex
	}
	return driver.StageFragment
}

// CompileShader compiles the current source of s. The result replaces
// the previous compilation even when it fails.
func (m *Manager) CompileShader(s *Shader) {
	c := m.comp.Compile(s.Stage(), s.Source)
	s.Compiled = c
	s.CompileStatus = c.OK()
	s.InfoLog = c.InfoLog()
	if !s.CompileStatus {
		m.log.Debug("shader compilation failed", "shader", s.Name, "log", s.InfoLog)
	}
}

// DeleteShader deletes the shader named h, or marks it for deletion if
// it is attached to a program.
func (m *Manager) DeleteShader(h uint32) error {
	s, err := m.Shader(h)
	if err != nil {
		return err
	}
	if s.attached > 0 {
		s.Lifecycle = PendingDeletion
		return nil
	}
	m.eraseShader(h)
	return nil
}

func (m *Manager) eraseShader(h uint32) {
	m.Shaders.Deallocate(h)
	delete(m.kinds, h)
}

// IsShader reports whether h names a shader that has not been erased.
func (m *Manager) IsShader(h uint32) bool {
	k, ok := m.kinds[h]
	return ok && k == KindShader
}

// IsProgram reports whether h names a program that has not been erased.
func (m *Manager) IsProgram(h uint32) bool {
	k, ok := m.kinds[h]
	return ok && k == KindProgram
}

// AttachShader attaches s to p. A program holds at most one shader of
// each type.
func (m *Manager) AttachShader(p *Program, s *Shader) error {
	slot := &p.Fragment
	if s.Type == gl.VERTEX_SHADER {
		slot = &p.Vertex
	}
	if m.Shaders.Resolve(*slot) != nil {
		return ErrInvalidOperation
	}
	ref, _ := m.Shaders.Ref(s.Name)
	*slot = ref
	s.attached++
	return nil
}

// DetachShader detaches s from p, erasing s if it was marked for
// deletion and p held the last reference.
func (m *Manager) DetachShader(p *Program, s *Shader) error {
	slot := &p.Fragment
	if s.Type == gl.VERTEX_SHADER {
		slot = &p.Vertex
	}
	if m.Shaders.Resolve(*slot) != s {
		return ErrInvalidOperation
	}
	*slot = handle.Ref{}
	m.unattach(s)
	return nil
}

func (m *Manager) unattach(s *Shader) {
	s.attached--
	if s.attached == 0 && s.Lifecycle == PendingDeletion {
		m.log.Debug("erasing deleted shader", "shader", s.Name)
		m.eraseShader(s.Name)
	}
}

// AttachedShaders returns the names of the shaders attached to p.
func (m *Manager) AttachedShaders(p *Program) []uint32 {
	var names []uint32
	for _, r := range []handle.Ref{p.Vertex, p.Fragment} {
		if h := m.Shaders.Name(r); h != 0 {
			names = append(names, h)
		}
	}
	return names
}
