// SPDX-License-Identifier: Unlicense OR MIT

package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type object struct {
	name  uint32
	value int
}

func newObject(h uint32) *object { return &object{name: h} }

func TestAllocateMonotonic(t *testing.T) {
	tab := NewTable(newObject)
	var last uint32
	for i := 0; i < 100; i++ {
		h := tab.Allocate()
		require.NotZero(t, h)
		require.Greater(t, h, last)
		last = h
		if i%3 == 0 {
			// Freed names must never come back.
			require.True(t, tab.Deallocate(h))
		}
	}
}

func TestLazyRealization(t *testing.T) {
	tab := NewTable(newObject)
	h := tab.Allocate()
	assert.True(t, tab.Allocated(h))
	assert.False(t, tab.Realized(h))
	assert.Nil(t, tab.Lookup(h))

	obj := tab.Object(h)
	require.NotNil(t, obj)
	assert.Equal(t, h, obj.name)
	assert.True(t, tab.Realized(h))
	assert.Same(t, obj, tab.Object(h), "Object must be idempotent")
	assert.Equal(t, h, tab.ID(obj))
}

func TestUnknownHandles(t *testing.T) {
	tab := NewTable(newObject)
	assert.Nil(t, tab.Object(42))
	assert.False(t, tab.Deallocate(42))
	assert.False(t, tab.Allocated(0))
	assert.Zero(t, tab.ID(&object{}))
	assert.Zero(t, tab.ID(nil))
}

func TestRefGeneration(t *testing.T) {
	tab := NewTable(newObject)
	h1 := tab.Allocate()
	obj1 := tab.Object(h1)
	ref, ok := tab.Ref(h1)
	require.True(t, ok)
	assert.Same(t, obj1, tab.Resolve(ref))
	assert.Equal(t, h1, tab.Name(ref))

	require.True(t, tab.Deallocate(h1))
	assert.Nil(t, tab.Resolve(ref))

	// The freed slot is reused by the next realized object; the stale
	// reference must not resolve to it.
	h2 := tab.Allocate()
	obj2 := tab.Object(h2)
	assert.NotNil(t, obj2)
	assert.Nil(t, tab.Resolve(ref))
	assert.Zero(t, tab.Name(ref))

	assert.Nil(t, tab.Resolve(Ref{}))
}

func TestSharedNamespace(t *testing.T) {
	var names Names
	a := NewSharedTable(&names, newObject)
	b := NewSharedTable(&names, func(h uint32) *object { return &object{name: h, value: 1} })
	ha := a.Allocate()
	hb := b.Allocate()
	assert.NotEqual(t, ha, hb)
	assert.True(t, a.Allocated(ha))
	assert.False(t, a.Allocated(hb))
	assert.Nil(t, a.Object(hb))
	assert.Equal(t, 1, b.Object(hb).value)
}

func TestEachOrdered(t *testing.T) {
	tab := NewTable(newObject)
	var want []uint32
	for i := 0; i < 10; i++ {
		h := tab.Allocate()
		if i%2 == 0 {
			tab.Object(h)
			want = append(want, h)
		}
	}
	var got []uint32
	tab.Each(func(h uint32, obj *object) {
		assert.Equal(t, h, obj.name)
		got = append(got, h)
	})
	assert.Equal(t, want, got)
	assert.Equal(t, 10, tab.Len())
}

func TestEachSkipsDeallocated(t *testing.T) {
	tab := NewTable(newObject)
	var names []uint32
	for i := 0; i < 4; i++ {
		h := tab.Allocate()
		tab.Object(h)
		names = append(names, h)
	}
	var got []uint32
	tab.Each(func(h uint32, obj *object) {
		require.NotNil(t, obj)
		assert.Equal(t, h, obj.name)
		got = append(got, h)
		if h == names[0] {
			require.True(t, tab.Deallocate(names[2]))
		}
	})
	assert.Equal(t, []uint32{names[0], names[1], names[3]}, got)
	assert.Equal(t, 3, tab.Len())
}
