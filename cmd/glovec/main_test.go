// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glove.dev/gles"
)

const (
	vertexSrc = `#define SCALE 0.5
attribute vec4 pos;
uniform mat4 mvp;
varying vec4 col;

void main() {
	col = pos * SCALE;
	gl_Position = mvp * pos;
}
`
	fragmentSrc = `precision mediump float;
uniform sampler2D tex;
varying vec4 col;

void main() {
	gl_FragColor = texture2D(tex, col.xy);
}
`
)

func writeShaders(t *testing.T) (dir, vert, frag string) {
	t.Helper()
	dir = t.TempDir()
	vert = filepath.Join(dir, "quad.vert")
	frag = filepath.Join(dir, "quad.frag")
	require.NoError(t, os.WriteFile(vert, []byte(vertexSrc), 0o644))
	require.NoError(t, os.WriteFile(frag, []byte(fragmentSrc), 0o644))
	return dir, vert, frag
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"glovec"}, args...))
	return out.String(), err
}

func TestPreprocess(t *testing.T) {
	_, vert, _ := writeShaders(t)
	out, err := run(t, "preprocess", vert)
	require.NoError(t, err)
	assert.Contains(t, out, "col = pos * 0.5 ;")
	assert.NotContains(t, out, "SCALE")
}

func TestReflect(t *testing.T) {
	_, vert, frag := writeShaders(t)
	out, err := run(t, "reflect", "--bind", "pos=3", vert, frag)
	require.NoError(t, err)
	assert.Contains(t, out, "mvp")
	assert.Contains(t, out, "tex")
	assert.Regexp(t, `pos\s+vec4\s+3`, out)
}

func TestTranslate(t *testing.T) {
	dir, vert, frag := writeShaders(t)
	_, err := run(t, "translate", "--out", dir, vert, frag)
	require.NoError(t, err)
	glsl, err := os.ReadFile(filepath.Join(dir, "quad.vert.glsl"))
	require.NoError(t, err)
	assert.Contains(t, string(glsl), "#version 400")
	_, err = os.Stat(filepath.Join(dir, "quad.frag.glsl"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "quad.vert.spv"))
	assert.True(t, os.IsNotExist(err))
}

func TestArgumentErrors(t *testing.T) {
	_, vert, _ := writeShaders(t)
	_, err := run(t, "reflect", vert)
	require.Error(t, err)
	_, err = run(t, "reflect", "--bind", "pos", vert, vert)
	require.Error(t, err)
	_, err = run(t, "preprocess", "--type", "geometry", vert)
	require.Error(t, err)
}

func TestShaderType(t *testing.T) {
	typ, err := shaderType("a.vs", "")
	require.NoError(t, err)
	assert.Equal(t, gles.Enum(gles.VERTEX_SHADER), typ)
	typ, err = shaderType("a.glsl", "fragment")
	require.NoError(t, err)
	assert.Equal(t, gles.Enum(gles.FRAGMENT_SHADER), typ)
	_, err = shaderType("a.glsl", "")
	require.Error(t, err)
}
