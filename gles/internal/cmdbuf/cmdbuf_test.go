// SPDX-License-Identifier: Unlicense OR MIT

package cmdbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glove.dev/internal/driver"
	"glove.dev/internal/driver/drivertest"
)

func newManager(t *testing.T) (*Manager, *drivertest.Device) {
	t.Helper()
	dev := drivertest.NewDevice()
	m, err := New(dev, Options{Buffers: 2})
	require.NoError(t, err)
	t.Cleanup(m.Destroy)
	return m, dev
}

func record(t *testing.T, m *Manager) {
	t.Helper()
	require.NoError(t, m.Begin())
	m.Active().Draw(3, 0)
	require.NoError(t, m.End())
}

func TestStateTransitions(t *testing.T) {
	m, dev := newManager(t)
	assert.Equal(t, Initial, m.State())

	// End and Submit without recording are no-ops.
	require.NoError(t, m.End())
	require.NoError(t, m.Submit())
	assert.Empty(t, dev.Submitted)

	require.NoError(t, m.Begin())
	assert.Equal(t, Recording, m.State())
	require.NoError(t, m.Begin(), "Begin while recording is a no-op")
	require.NoError(t, m.End())
	assert.Equal(t, Executable, m.State())
	require.NoError(t, m.End(), "End while executable is a no-op")

	first := m.Active()
	require.NoError(t, m.Submit())
	require.Len(t, dev.Submitted, 1)
	assert.Same(t, first, dev.Submitted[0].CommandBuffer)
	assert.Equal(t, 1, m.Index())
	assert.Equal(t, Initial, m.State())
}

func TestSemaphores(t *testing.T) {
	m, dev := newManager(t)
	acquire, err := dev.NewSemaphore()
	require.NoError(t, err)
	defer acquire.Release()

	m.SetAcquire(acquire)
	record(t, m)
	require.NoError(t, m.Submit())
	require.Len(t, dev.Submitted, 1)
	assert.Equal(t, []driver.Semaphore{acquire}, dev.Submitted[0].Wait)
	assert.Len(t, dev.Submitted[0].Signal, 1)
	draw := dev.Submitted[0].Signal[0]

	aux := m.SignalAux()
	record(t, m)
	require.NoError(t, m.Submit())
	require.Len(t, dev.Submitted, 2)
	// The acquire semaphore is consumed; the next submission waits on the
	// auxiliary and the previous draw semaphore.
	assert.Equal(t, []driver.Semaphore{aux, draw}, dev.Submitted[1].Wait)

	s, ok := m.ConsumeDraw()
	assert.True(t, ok)
	assert.Same(t, draw, s)
	_, ok = m.ConsumeDraw()
	assert.False(t, ok)
}

func TestRingReuseWaitsFence(t *testing.T) {
	m, dev := newManager(t)
	record(t, m)
	require.NoError(t, m.Submit())
	fence0 := dev.Submitted[0].Fence.(*drivertest.Fence)
	assert.True(t, fence0.Pending)

	// Advancing back onto the first buffer retires its submission.
	record(t, m)
	require.NoError(t, m.Submit())
	assert.False(t, fence0.Pending)
	assert.Equal(t, 1, fence0.Waits)
	assert.Equal(t, 0, m.Index())
	assert.Equal(t, Initial, m.State())
}

func TestDeferredDestruction(t *testing.T) {
	m, dev := newManager(t)
	buf, err := dev.NewBuffer(driver.BufferUsageVertex, 16)
	require.NoError(t, err)

	require.NoError(t, m.Begin())
	m.Active().BindVertexBuffers(0, []driver.Buffer{buf}, []int{0})
	m.Active().Draw(3, 0)
	require.NoError(t, m.End())
	require.NoError(t, m.Submit())

	m.Release(buf)
	assert.Equal(t, 1, m.Pending())
	assert.False(t, buf.(*drivertest.Buffer).Freed, "released while submitted")

	require.NoError(t, m.WaitLastSubmission())
	assert.True(t, buf.(*drivertest.Buffer).Freed)
	assert.Zero(t, m.Pending())
	assert.Empty(t, dev.Violations)
}

func TestReleaseDuringRecording(t *testing.T) {
	m, dev := newManager(t)
	record(t, m)
	require.NoError(t, m.Submit())

	buf, err := dev.NewBuffer(driver.BufferUsageVertex, 16)
	require.NoError(t, err)
	require.NoError(t, m.Begin())
	m.Active().BindVertexBuffers(0, []driver.Buffer{buf}, []int{0})
	m.Release(buf)

	// Waiting on the previous submission must not free a resource the
	// recording buffer references.
	require.NoError(t, m.WaitLastSubmission())
	assert.False(t, buf.(*drivertest.Buffer).Freed)

	require.NoError(t, m.End())
	require.NoError(t, m.Submit())
	require.NoError(t, m.WaitLastSubmission())
	assert.True(t, buf.(*drivertest.Buffer).Freed)
	assert.Empty(t, dev.Violations)
}

func TestRefCounting(t *testing.T) {
	m, dev := newManager(t)
	mod, err := dev.NewBuffer(driver.BufferUsageUniform, 64)
	require.NoError(t, err)
	m.Ref(mod)
	m.Ref(mod)
	m.Unref(mod)
	m.Release(mod)
	require.NoError(t, m.WaitLastSubmission())
	assert.False(t, mod.(*drivertest.Buffer).Freed)

	m.Unref(mod)
	assert.Equal(t, 1, m.Pending())
	require.NoError(t, m.WaitLastSubmission())
	assert.True(t, mod.(*drivertest.Buffer).Freed)

	assert.Panics(t, func() { m.Unref(mod) })
}

func TestDestroyReleasesEverything(t *testing.T) {
	dev := drivertest.NewDevice()
	m, err := New(dev, Options{Buffers: 3})
	require.NoError(t, err)
	buf, err := dev.NewBuffer(driver.BufferUsageVertex, 4)
	require.NoError(t, err)
	m.Ref(buf)
	record(t, m)
	require.NoError(t, m.Submit())
	m.Destroy()
	m.Destroy()
	assert.Zero(t, dev.Live())
}

func TestNewFailure(t *testing.T) {
	dev := drivertest.NewDevice()
	dev.FailOn("fence")
	_, err := New(dev, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrOutOfMemory)
	assert.Zero(t, dev.Live())
}

func TestSerials(t *testing.T) {
	m, _ := newManager(t)
	assert.Equal(t, uint64(1), m.Serial())
	assert.Equal(t, uint64(0), m.Completed())

	record(t, m)
	require.NoError(t, m.Submit())
	assert.Equal(t, uint64(2), m.Serial())
	assert.Equal(t, uint64(0), m.Completed(), "nothing waited on yet")

	require.NoError(t, m.WaitLastSubmission())
	assert.Equal(t, uint64(1), m.Completed())
}

func TestFailedSubmitDiscardsCommands(t *testing.T) {
	m, dev := newManager(t)
	dev.FailOn("submit")
	record(t, m)
	err := m.Submit()
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrOutOfMemory)
	assert.Equal(t, Initial, m.State())
	assert.Equal(t, 0, m.Index(), "ring does not advance")
	assert.Empty(t, dev.Submitted)

	dev.Fail = nil
	require.NoError(t, m.Begin())
	m.Active().Draw(3, 0)
	require.NoError(t, m.End())
	require.NoError(t, m.Submit())
	require.Len(t, dev.Submitted, 1)
	assert.Equal(t, []string{"Draw 3 0"}, dev.Submitted[0].CommandBuffer.(*drivertest.CommandBuffer).Commands)
}

func TestUnrefBeforeRelease(t *testing.T) {
	m, dev := newManager(t)
	mod, err := dev.NewBuffer(driver.BufferUsageUniform, 64)
	require.NoError(t, err)
	m.Ref(mod)
	assert.Equal(t, 1, m.Refs(mod))

	// Dropping the last reference leaves r to its owner.
	m.Unref(mod)
	assert.Zero(t, m.Refs(mod))
	assert.Zero(t, m.Pending())
	require.NoError(t, m.WaitLastSubmission())
	assert.False(t, mod.(*drivertest.Buffer).Freed)

	m.Release(mod)
	assert.Equal(t, 1, m.Pending())
	require.NoError(t, m.WaitLastSubmission())
	assert.True(t, mod.(*drivertest.Buffer).Freed)
}
