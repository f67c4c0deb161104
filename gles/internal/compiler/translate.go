// SPDX-License-Identifier: Unlicense OR MIT

package compiler

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"glove.dev/gles/internal/shaderres"
	"glove.dev/internal/driver"
)

const header = `#version 400
#extension GL_ARB_separate_shader_objects : enable
#extension GL_ARB_shading_language_420pack : enable
`

const fragColor = "glove_FragColor"

// reserved400 lists identifiers that are free in ESSL 1.00 but reserved or
// built in by GLSL 4.00.
var reserved400 = map[string]bool{
	"texture": true, "textureProj": true, "textureLod": true, "textureProjLod": true,
	"textureGrad": true, "textureSize": true, "textureOffset": true, "texelFetch": true,
	"centroid": true, "flat": true, "smooth": true, "noperspective": true, "patch": true,
	"sample": true, "subroutine": true, "layout": true, "uint": true,
	"uvec2": true, "uvec3": true, "uvec4": true, "isampler2D": true, "usampler2D": true,
}

var textureFuncs = map[string]string{
	"texture2D":        "texture",
	"texture2DProj":    "textureProj",
	"texture2DLod":     "textureLod",
	"texture2DProjLod": "textureProjLod",
	"textureCube":      "texture",
	"textureCubeLod":   "textureLod",
}

func rename(name string) string {
	if reserved400[name] {
		return name + "_glove"
	}
	return name
}

// writer joins tokens, starting a new line whenever the source line
// changes.
type writer struct {
	b    strings.Builder
	line int
	bol  bool
}

func (w *writer) token(t token, text string) {
	if t.line != w.line && !w.bol {
		w.b.WriteByte('\n')
		w.bol = true
	}
	w.line = t.line
	if !w.bol {
		w.b.WriteByte(' ')
	}
	w.b.WriteString(text)
	w.bol = false
}

func (w *writer) text(s string) {
	if !w.bol {
		w.b.WriteByte('\n')
	}
	w.b.WriteString(s)
	w.bol = strings.HasSuffix(s, "\n")
}

// Translate rewrites one stage of p to Vulkan GLSL 4.00, using the
// locations and bindings of in.
func (p *Program) Translate(stage driver.ShaderStage, in *shaderres.Interface) (string, error) {
	sh := p.Vertex
	if stage == driver.StageFragment {
		sh = p.Fragment
	}
	blocks := make(map[string]shaderres.Block)
	for _, b := range in.Blocks() {
		blocks[b.Name] = b
	}
	decls := make(map[int]*declaration)
	for _, d := range sh.scan.decls {
		decls[d.start] = d
	}
	w := &writer{bol: true}
	usesFragColor := false
	toks := sh.toks
	for i := 0; i < len(toks); i++ {
		if d, ok := decls[i]; ok {
			p.declaration(w, stage, d, in, blocks)
			i = d.end - 1
			continue
		}
		t := toks[i]
		if t.kind != tokIdent {
			w.token(t, t.text)
			continue
		}
		switch {
		case t.text == "gl_FragColor" && stage == driver.StageFragment:
			usesFragColor = true
			w.token(t, fragColor)
		case t.text == "gl_FragData" && stage == driver.StageFragment:
			if i+3 >= len(toks) || !toks[i+1].is("[") || !toks[i+3].is("]") {
				return "", errors.Errorf("compiler: line %d: gl_FragData must be indexed with a constant", t.line)
			}
			if idx, err := parseInt(toks[i+2].text); err != nil || idx != 0 {
				return "", errors.Errorf("compiler: line %d: gl_FragData index must be 0", t.line)
			}
			usesFragColor = true
			w.token(t, fragColor)
			i += 3
		case t.text == "main" && stage == driver.StageVertex:
			w.token(t, "glove_main")
		default:
			if fn, ok := textureFuncs[t.text]; ok {
				w.token(t, fn)
				continue
			}
			w.token(t, rename(t.text))
		}
	}
	body := w.b.String()
	var out strings.Builder
	out.WriteString(header)
	if usesFragColor {
		fmt.Fprintf(&out, "layout(location = 0) out vec4 %s;\n", fragColor)
	}
	out.WriteString(body)
	out.WriteByte('\n')
	if stage == driver.StageVertex {
		out.WriteString(`void main() {
	glove_main();
	gl_Position.z = (gl_Position.z + gl_Position.w) * 0.5;
}
`)
	}
	return out.String(), nil
}

// declaration replaces an attribute, varying or uniform declaration.
func (p *Program) declaration(w *writer, stage driver.ShaderStage, d *declaration, in *shaderres.Interface, blocks map[string]shaderres.Block) {
	if d.inline != nil {
		w.text(structText(d.inline))
	}
	var b strings.Builder
	for _, v := range d.vars {
		name := rename(v.name) + arraySuffix(v.array)
		typ := rename(v.typ.String())
		switch d.storage {
		case storageAttribute:
			loc := in.AttributeLocation(v.name)
			if loc < 0 {
				continue
			}
			fmt.Fprintf(&b, "layout(location = %d) in %s %s;\n", loc, typ, name)
		case storageVarying:
			loc, ok := p.varyings[v.name]
			if !ok {
				continue
			}
			dir := "out"
			if stage == driver.StageFragment {
				dir = "in"
			}
			inv := ""
			if v.invariant {
				inv = "invariant "
			}
			fmt.Fprintf(&b, "layout(location = %d) %s%s %s %s;\n", loc, inv, dir, typ, name)
		case storageUniform:
			blk, ok := blocks[v.name]
			if !ok {
				continue
			}
			if blk.Opaque {
				fmt.Fprintf(&b, "layout(binding = %d) uniform %s %s;\n", blk.Binding, typ, name)
				continue
			}
			fmt.Fprintf(&b, "layout(std140, binding = %d) uniform %s {\n\t%s %s;\n};\n", blk.Binding, blockName(blk), typ, name)
		}
	}
	if b.Len() > 0 {
		w.text(b.String())
	}
}

// blockName names the GLSL interface block backing blk.
func blockName(blk shaderres.Block) string {
	return fmt.Sprintf("uniform_buffer_%d", blk.Binding)
}

func arraySuffix(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("[%d]", n)
}

// structText reproduces a struct definition, naming anonymous structs.
func structText(def *structDef) string {
	var b strings.Builder
	b.WriteString("struct " + def.name + " {\n")
	for _, f := range def.fields {
		fmt.Fprintf(&b, "\t%s %s%s;\n", rename(f.typ.String()), rename(f.name), arraySuffix(f.array))
	}
	b.WriteString("};\n")
	return b.String()
}
