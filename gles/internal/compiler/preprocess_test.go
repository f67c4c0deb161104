// SPDX-License-Identifier: Unlicense OR MIT

package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glove.dev/internal/driver"
)

func preprocessText(t *testing.T, src string) string {
	t.Helper()
	toks, log := preprocess(driver.StageVertex, src)
	require.False(t, log.failed(), log.String())
	return joinTokens(toks)
}

func TestMacroExpansion(t *testing.T) {
	src := `#define SCALE 2.0
#define MUL(a, b) ((a) * (b))
#define F (x)
#define SELF SELF + 1
float v = MUL(SCALE, 3.0);
float w = F;
int s = SELF;
`
	assert.Equal(t,
		"float v = ( ( 2.0 ) * ( 3.0 ) ) ; float w = ( x ) ; int s = SELF + 1 ;",
		preprocessText(t, src))
}

func TestConditionals(t *testing.T) {
	src := `#if defined(GL_ES) && __VERSION__ >= 100
a
#elif 1
b
#else
c
#endif
#ifdef NOPE
#if garbage ((
#endif
d
#else
e
#endif
#ifndef NOPE
f
#endif
#define X 3
#if X * 2 == 6 && !defined NOPE
g
#endif
#undef X
#ifdef X
h
#endif
`
	assert.Equal(t, "a e f g", preprocessText(t, src))
}

func TestLineMacro(t *testing.T) {
	assert.Equal(t, "int l = 3 ;", preprocessText(t, "// one\n/* two\n*/ int l = __LINE__;"))
}

func TestFragmentPrecisionMacro(t *testing.T) {
	src := "#ifdef GL_FRAGMENT_PRECISION_HIGH\nhigh\n#endif\n"
	toks, _ := preprocess(driver.StageFragment, src)
	assert.Equal(t, "high", joinTokens(toks))
	toks, _ = preprocess(driver.StageVertex, src)
	assert.Empty(t, toks)
}

func TestPreprocessorErrors(t *testing.T) {
	for _, tc := range []struct {
		src, want string
	}{
		{"#if 1\n", "unterminated #if"},
		{"#endif\n", "#endif without #if"},
		{"#if 1\n#else\n#else\n#endif\n", "#else after #else"},
		{"#error boom\n", "#error boom"},
		{"#version 300 es\n", "unsupported #version"},
		{"float x;\n#version 100\n", "#version must occur"},
		{"#define GL_FOO 1\n", "reserved"},
		{"#if UNDEFINED\n#endif\n", "undefined identifier"},
		{"#if 1 / 0\n#endif\n", "division by zero"},
		{"#extension GL_FOO : require\n", "not supported"},
		{"/* open", "unterminated comment"},
		{"#define M(a) a\nM(1, 2)\n", "expects 1 arguments"},
		{"float x = 1 @ 2;\n", "invalid character"},
		{"#bogus\n", "invalid directive"},
	} {
		_, log := preprocess(driver.StageVertex, tc.src)
		assert.True(t, log.failed(), tc.src)
		assert.Contains(t, log.String(), tc.want, tc.src)
	}
}

func TestExtensionWarning(t *testing.T) {
	_, log := preprocess(driver.StageFragment, "#extension GL_EXT_frag_depth : enable\n#extension GL_OES_standard_derivatives : require\n")
	assert.False(t, log.failed())
	assert.Contains(t, log.String(), "WARNING: 0:1:")
}

func TestEvalExpr(t *testing.T) {
	for src, want := range map[string]int64{
		"1 + 2 * 3":       7,
		"(1 + 2) * 3":     9,
		"0x10 | 010":      24,
		"-3 % 2":          -1,
		"1 << 4 >> 2":     4,
		"2 > 1 ^^ 1 == 1": 0,
		"!0 && ~0 == -1":  1,
		"10 - 2 - 3":      5,
		"5 >= 5 || 1 / 1": 1,
	} {
		toks, err := lexLine(src, 1)
		require.NoError(t, err)
		got, err := evalExpr(toks, nil)
		require.NoError(t, err, src)
		assert.Equal(t, want, got, src)
	}
	toks, _ := lexLine("1.5", 1)
	_, err := evalExpr(toks, nil)
	assert.Error(t, err)
}

func TestPreprocessedLines(t *testing.T) {
	c, _ := newCompiler()
	sh := c.Compile(driver.StageVertex, `#define ONE 1.0
attribute vec4 pos;
void main() {
	gl_Position = pos * ONE;
}
`)
	require.True(t, sh.OK(), sh.InfoLog())
	assert.Equal(t,
		"attribute vec4 pos ;\nvoid main ( ) {\ngl_Position = pos * 1.0 ;\n}\n",
		sh.Preprocessed())
}
