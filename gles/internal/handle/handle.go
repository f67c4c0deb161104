// SPDX-License-Identifier: Unlicense OR MIT

// Package handle maps GL object names to objects.
//
// Names are handed out by a monotonic counter and are never reused. The
// objects themselves live in an arena of slots; a Ref names a slot and
// the generation it was taken at, so a Ref held across the deletion of
// its object resolves to nil instead of to a stranger.
package handle

import (
	"golang.org/x/exp/slices"
)

// Names is a monotonic name counter. Tables sharing a Names share one
// namespace, as GL shaders and programs do.
type Names struct {
	last uint32
}

// Next returns a fresh, non-zero name.
func (n *Names) Next() uint32 {
	n.last++
	return n.last
}

// Ref is a generation checked reference to an object in a Table. The
// zero Ref references nothing.
type Ref struct {
	index int32
	gen   uint32
}

type slot[T any] struct {
	gen  uint32
	name uint32
	obj  *T
}

const unrealized = -1

// Table maps names to lazily realized objects of type T.
type Table[T any] struct {
	names *Names
	// New constructs the object of a name on first use.
	New func(name uint32) *T

	index map[uint32]int32
	slots []slot[T]
	free  []int32
}

// NewTable returns a table with its own namespace.
func NewTable[T any](newObj func(name uint32) *T) *Table[T] {
	return NewSharedTable(new(Names), newObj)
}

// NewSharedTable returns a table allocating names from names.
func NewSharedTable[T any](names *Names, newObj func(name uint32) *T) *Table[T] {
	if newObj == nil {
		newObj = func(uint32) *T { return new(T) }
	}
	return &Table[T]{
		names: names,
		New:   newObj,
		index: make(map[uint32]int32),
	}
}

// Allocate reserves a fresh name without realizing its object.
func (t *Table[T]) Allocate() uint32 {
	h := t.names.Next()
	t.index[h] = unrealized
	return h
}

// Allocated reports whether h was allocated from t and not deallocated.
func (t *Table[T]) Allocated(h uint32) bool {
	_, ok := t.index[h]
	return ok
}

// Realized reports whether an object is associated with h.
func (t *Table[T]) Realized(h uint32) bool {
	i, ok := t.index[h]
	return ok && i != unrealized
}

// Object returns the object named h, constructing it if the name is
// allocated but not yet realized. It returns nil for names never
// allocated from t.
func (t *Table[T]) Object(h uint32) *T {
	i, ok := t.index[h]
	if !ok {
		return nil
	}
	if i == unrealized {
		i = t.realize(h)
	}
	return t.slots[i].obj
}

// Lookup returns the object named h without realizing it.
func (t *Table[T]) Lookup(h uint32) *T {
	i, ok := t.index[h]
	if !ok || i == unrealized {
		return nil
	}
	return t.slots[i].obj
}

func (t *Table[T]) realize(h uint32) int32 {
	obj := t.New(h)
	var i int32
	if n := len(t.free); n > 0 {
		i = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		i = int32(len(t.slots))
		t.slots = append(t.slots, slot[T]{gen: 1})
	}
	s := &t.slots[i]
	s.obj = obj
	s.name = h
	t.index[h] = i
	return i
}

// Deallocate forgets h and its object. It reports false if h was not
// allocated.
func (t *Table[T]) Deallocate(h uint32) bool {
	i, ok := t.index[h]
	if !ok {
		return false
	}
	delete(t.index, h)
	if i != unrealized {
		s := &t.slots[i]
		s.obj = nil
		s.name = 0
		s.gen++
		t.free = append(t.free, i)
	}
	return true
}

// ID returns the name of obj, or 0 if obj is not in t.
func (t *Table[T]) ID(obj *T) uint32 {
	if obj == nil {
		return 0
	}
	for _, s := range t.slots {
		if s.obj == obj {
			return s.name
		}
	}
	return 0
}

// Ref returns a reference to the realized object named h.
func (t *Table[T]) Ref(h uint32) (Ref, bool) {
	i, ok := t.index[h]
	if !ok || i == unrealized {
		return Ref{}, false
	}
	return Ref{index: i, gen: t.slots[i].gen}, true
}

// Resolve returns the object referenced by r, or nil if it has been
// deallocated since r was taken.
func (t *Table[T]) Resolve(r Ref) *T {
	if r.index < 0 || int(r.index) >= len(t.slots) {
		return nil
	}
	s := t.slots[r.index]
	if s.gen != r.gen || s.obj == nil {
		return nil
	}
	return s.obj
}

// Name returns the name of the object referenced by r, or 0.
func (t *Table[T]) Name(r Ref) uint32 {
	if t.Resolve(r) == nil {
		return 0
	}
	return t.slots[r.index].name
}

// Len returns the number of allocated names.
func (t *Table[T]) Len() int {
	return len(t.index)
}

// Each calls f for every realized object in ascending name order. Objects
// deallocated by f before their turn are skipped.
func (t *Table[T]) Each(f func(h uint32, obj *T)) {
	names := make([]uint32, 0, len(t.index))
	for h, i := range t.index {
		if i != unrealized {
			names = append(names, h)
		}
	}
	slices.Sort(names)
	for _, h := range names {
		i, ok := t.index[h]
		if !ok || i == unrealized {
			continue
		}
		f(h, t.slots[i].obj)
	}
}
