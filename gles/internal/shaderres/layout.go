// SPDX-License-Identifier: Unlicense OR MIT

package shaderres

import (
	"fmt"
	"strconv"
	"strings"

	"glove.dev/internal/gl"
)

// layout is the std140 placement of a block member.
type layout struct {
	align int
	// size covers every array element.
	size int
	// stride is the distance between array elements, or the element
	// size for non-arrays.
	stride int
}

// node is a member of an aggregate, reconstructed from the dotted
// reflection names of its leaves.
type node struct {
	name     string
	children []*node
	byName   map[string]*node
	leaf     bool
	typ      gl.Enum
	// count is the array length, 0 for non-arrays.
	count int

	offset int
	lay    layout
}

func roundUp(n, align int) int {
	return (n + align - 1) / align * align
}

// leafLayout applies the std140 rules to a basic type or an array of
// them. Matrices are column-major with a vec4 column stride.
func leafLayout(t gl.Enum, n int, isArray bool) layout {
	rows, cols := gl.TypeRows(t), gl.TypeColumns(t)
	if cols > 1 {
		stride := cols * 16
		if isArray {
			return layout{align: 16, size: stride * n, stride: stride}
		}
		return layout{align: 16, size: stride, stride: stride}
	}
	size := 4 * rows
	if isArray {
		stride := roundUp(size, 16)
		return layout{align: 16, size: stride * n, stride: stride}
	}
	align := 16
	switch rows {
	case 1:
		align = 4
	case 2:
		align = 8
	}
	return layout{align: align, size: size, stride: size}
}

func buildTree(a *aggregate) (*node, error) {
	root := &node{name: a.name, byName: make(map[string]*node)}
	for _, m := range a.members {
		r := a.types[m]
		cur := root
		segs := strings.Split(m, ".")
		for i, seg := range segs {
			base, idx, isArray, err := splitIndex(seg)
			if err != nil {
				return nil, err
			}
			last := i == len(segs)-1
			child, ok := cur.byName[base]
			if !ok {
				child = &node{name: base, byName: make(map[string]*node)}
				cur.byName[base] = child
				cur.children = append(cur.children, child)
			}
			if last {
				if len(child.children) > 0 {
					return nil, fmt.Errorf("member %q is both a struct and a %s", base, gl.TypeName(r.Type))
				}
				child.leaf = true
				child.typ = r.Type
				if isArray || r.ArraySize > 1 {
					if n := arraySize(r.ArraySize); n > child.count {
						child.count = n
					}
				}
				continue
			}
			if child.leaf {
				return nil, fmt.Errorf("member %q is both a struct and a %s", base, gl.TypeName(child.typ))
			}
			if isArray && idx+1 > child.count {
				child.count = idx + 1
			}
			cur = child
		}
	}
	return root, nil
}

// layout computes the placement of n and its children. Structs align to
// 16 bytes and are padded to a multiple of 16.
func (n *node) layout() layout {
	if n.leaf {
		n.lay = leafLayout(n.typ, arraySize(n.count), n.count > 0)
		return n.lay
	}
	off := 0
	for _, c := range n.children {
		l := c.layout()
		off = roundUp(off, l.align)
		c.offset = off
		off += l.size
	}
	elem := roundUp(off, 16)
	n.lay = layout{align: 16, size: elem, stride: elem}
	if n.count > 0 {
		n.lay.size = elem * n.count
	}
	return n.lay
}

// memberOffset returns the offset of the leaf addressed by path relative to
// the start of n, and the leaf's array stride. n must be laid out.
func (n *node) memberOffset(path string) (int, int) {
	cur := n
	off := 0
	segs := strings.Split(path, ".")
	for i, seg := range segs {
		base, idx, _, _ := splitIndex(seg)
		child := cur.byName[base]
		off += child.offset
		if i == len(segs)-1 {
			return off, child.lay.stride
		}
		off += idx * child.lay.stride
		cur = child
	}
	return off, 0
}

func indexDot(name string) int {
	return strings.IndexByte(name, '.')
}

// splitIndex splits "name[3]" into its base name and index.
func splitIndex(s string) (string, int, bool, error) {
	if !strings.HasSuffix(s, "]") {
		return s, 0, false, nil
	}
	open := strings.LastIndexByte(s, '[')
	if open <= 0 {
		return "", 0, false, fmt.Errorf("malformed array subscript in %q", s)
	}
	idx, err := strconv.Atoi(s[open+1 : len(s)-1])
	if err != nil || idx < 0 {
		return "", 0, false, fmt.Errorf("malformed array subscript in %q", s)
	}
	return s[:open], idx, true, nil
}

func hasArraySuffix(name string) bool {
	return strings.HasSuffix(name, "]")
}

func trimArraySuffix(name string) string {
	return strings.TrimSuffix(name, "[0]")
}
