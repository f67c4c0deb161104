// SPDX-License-Identifier: Unlicense OR MIT

// Package cmdbuf serializes GPU work through a small ring of command
// buffers and defers the destruction of resources the GPU may still use.
package cmdbuf

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"glove.dev/internal/driver"
)

// State is the lifecycle state of one command buffer in the ring.
type State uint8

const (
	Initial State = iota
	Recording
	Executable
	Submitted
)

// Manager owns the command buffer ring of one context.
type Manager struct {
	dev     driver.Device
	log     *slog.Logger
	timeout uint64

	frames []*frame
	active int
	// last is the ring index of the most recent submission, or -1.
	last int

	acquire, aux, draw                      driver.Semaphore
	acquirePending, auxPending, drawPending bool

	// serial counts submissions; completed is the serial of the most
	// recent submission known to have finished executing.
	serial    uint64
	completed uint64

	refs    map[driver.Resource]*refCount
	garbage []garbage
}

type refCount struct {
	n int
	// released is set when the owner released the resource while
	// references remained.
	released bool
}

type frame struct {
	cb     driver.CommandBuffer
	fence  driver.Fence
	state  State
	serial uint64
	// waited is set once the fence of the last submission of this frame
	// has been waited on.
	waited bool
}

type garbage struct {
	res driver.Resource
	// serial is the last submission that may reference res.
	serial uint64
}

type Options struct {
	// Buffers is the size of the ring, at least 2.
	Buffers int
	// FenceTimeout is the fence wait timeout in nanoseconds; zero waits
	// forever.
	FenceTimeout uint64
	Logger       *slog.Logger
}

func (s State) String() string {
	switch s {
	case Initial:
		return "Initial"
	case Recording:
		return "Recording"
	case Executable:
		return "Executable"
	case Submitted:
		return "Submitted"
	default:
		panic("invalid state")
	}
}

// New creates the ring, its fences and the draw and auxiliary semaphores.
func New(dev driver.Device, opts Options) (*Manager, error) {
	if opts.Buffers < 2 {
		opts.Buffers = 2
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	m := &Manager{
		dev:     dev,
		log:     opts.Logger,
		timeout: opts.FenceTimeout,
		last:    -1,
		refs:    make(map[driver.Resource]*refCount),
	}
	for i := 0; i < opts.Buffers; i++ {
		cb, err := dev.NewCommandBuffer()
		if err != nil {
			m.Destroy()
			return nil, errors.Wrap(err, "cmdbuf: command buffer")
		}
		f := &frame{cb: cb, waited: true}
		m.frames = append(m.frames, f)
		f.fence, err = dev.NewFence()
		if err != nil {
			m.Destroy()
			return nil, errors.Wrap(err, "cmdbuf: fence")
		}
	}
	var err error
	if m.aux, err = dev.NewSemaphore(); err != nil {
		m.Destroy()
		return nil, errors.Wrap(err, "cmdbuf: semaphore")
	}
	if m.draw, err = dev.NewSemaphore(); err != nil {
		m.Destroy()
		return nil, errors.Wrap(err, "cmdbuf: semaphore")
	}
	return m, nil
}

// Active returns the command buffer currently selected by the ring.
func (m *Manager) Active() driver.CommandBuffer {
	return m.frames[m.active].cb
}

// State returns the state of the active command buffer.
func (m *Manager) State() State {
	return m.frames[m.active].state
}

// Index returns the ring position of the active command buffer.
func (m *Manager) Index() int {
	return m.active
}

// Begin starts recording into the active command buffer. It is a no-op
// if the buffer is already recording. An executable buffer left behind by
// a failed submission is reset and its commands discarded.
func (m *Manager) Begin() error {
	f := m.frames[m.active]
	switch f.state {
	case Recording:
		return nil
	case Executable:
		m.log.Warn("discarding unsubmitted commands")
	}
	if err := m.retire(f); err != nil {
		return err
	}
	if err := f.cb.Reset(); err != nil {
		return errors.Wrap(err, "cmdbuf: reset")
	}
	if err := f.cb.Begin(); err != nil {
		return errors.Wrap(err, "cmdbuf: begin")
	}
	f.state = Recording
	return nil
}

// End finishes recording. It is a no-op unless the active buffer is
// recording.
func (m *Manager) End() error {
	f := m.frames[m.active]
	switch f.state {
	case Executable, Initial, Submitted:
		return nil
	}
	if err := f.cb.End(); err != nil {
		return errors.Wrap(err, "cmdbuf: end")
	}
	f.state = Executable
	return nil
}

// Submit queues the active command buffer, waiting on every pending
// semaphore and signaling the draw semaphore, then advances the ring. It
// is a no-op if nothing was recorded.
func (m *Manager) Submit() error {
	f := m.frames[m.active]
	switch f.state {
	case Initial, Submitted:
		return nil
	case Recording:
		panic("cmdbuf: Submit while recording")
	}
	var wait []driver.Semaphore
	if m.acquirePending {
		wait = append(wait, m.acquire)
	}
	if m.auxPending {
		wait = append(wait, m.aux)
	}
	if m.drawPending {
		wait = append(wait, m.draw)
	}
	if err := f.fence.Reset(); err != nil {
		m.discard(f)
		return errors.Wrap(err, "cmdbuf: reset fence")
	}
	err := m.dev.Submit(driver.Submission{
		CommandBuffer: f.cb,
		Wait:          wait,
		Signal:        []driver.Semaphore{m.draw},
		Fence:         f.fence,
	})
	if err != nil {
		m.discard(f)
		return errors.Wrap(err, "cmdbuf: submit")
	}
	m.acquirePending, m.auxPending = false, false
	m.drawPending = true
	m.serial++
	f.serial = m.serial
	f.state = Submitted
	f.waited = false
	m.last = m.active
	m.active = (m.active + 1) % len(m.frames)
	next := m.frames[m.active]
	if err := m.retire(next); err != nil {
		return err
	}
	next.state = Initial
	return nil
}

// discard drops the commands of a buffer that could not be submitted and
// returns it to the initial state. Pending semaphore waits carry over to
// the next submission.
func (m *Manager) discard(f *frame) {
	if err := f.cb.Reset(); err != nil {
		m.log.Error("reset after failed submit", "err", err)
	}
	f.state = Initial
}

// retire waits for the outstanding submission of f, if any.
func (m *Manager) retire(f *frame) error {
	if f.waited {
		return nil
	}
	if err := f.fence.Wait(m.timeout); err != nil {
		return errors.Wrap(err, "cmdbuf: wait")
	}
	f.waited = true
	if f.serial > m.completed {
		m.completed = f.serial
	}
	m.FreeResources()
	return nil
}

// WaitLastSubmission blocks until the most recently submitted command
// buffer has executed and frees every resource released before it.
func (m *Manager) WaitLastSubmission() error {
	if m.last < 0 {
		m.FreeResources()
		return nil
	}
	f := m.frames[m.last]
	if err := m.retire(f); err != nil {
		return err
	}
	m.FreeResources()
	return nil
}

// Ref takes a reference on r on behalf of an object sharing it with its
// owner. A resource the owner releases while references remain is
// destroyed after the last Unref.
func (m *Manager) Ref(r driver.Resource) {
	rc, ok := m.refs[r]
	if !ok {
		rc = new(refCount)
		m.refs[r] = rc
	}
	rc.n++
}

// Unref drops a reference taken by Ref. When the count reaches zero
// and the owner has released r, r is scheduled for destruction.
func (m *Manager) Unref(r driver.Resource) {
	rc, ok := m.refs[r]
	if !ok {
		panic(fmt.Errorf("cmdbuf: unref of unreferenced %v", r))
	}
	if rc.n--; rc.n > 0 {
		return
	}
	delete(m.refs, r)
	if rc.released {
		m.schedule(r)
	}
}

// Refs returns the number of references held on r.
func (m *Manager) Refs(r driver.Resource) int {
	if rc, ok := m.refs[r]; ok {
		return rc.n
	}
	return 0
}

// Release schedules r for destruction once every submission that could
// reference it has completed and every reference is dropped.
func (m *Manager) Release(r driver.Resource) {
	if r == nil {
		return
	}
	if rc, ok := m.refs[r]; ok {
		rc.released = true
		return
	}
	m.schedule(r)
}

func (m *Manager) schedule(r driver.Resource) {
	serial := m.serial
	if st := m.frames[m.active].state; st == Recording || st == Executable {
		serial++
	}
	m.garbage = append(m.garbage, garbage{res: r, serial: serial})
}

// FreeResources destroys every released resource whose last possible
// use has completed on the GPU.
func (m *Manager) FreeResources() {
	keep := m.garbage[:0]
	freed := 0
	for _, g := range m.garbage {
		if g.serial <= m.completed {
			g.res.Release()
			freed++
			continue
		}
		keep = append(keep, g)
	}
	for i := len(keep); i < len(m.garbage); i++ {
		m.garbage[i] = garbage{}
	}
	m.garbage = keep
	if freed > 0 {
		m.log.Debug("freed deferred resources", "count", freed, "pending", len(keep))
	}
}

// Serial returns the serial the next submission will carry. Work recorded
// now executes as part of it.
func (m *Manager) Serial() uint64 {
	return m.serial + 1
}

// Completed returns the serial of the most recent submission known to
// have finished executing.
func (m *Manager) Completed() uint64 {
	return m.completed
}

// Pending returns the number of resources awaiting destruction.
func (m *Manager) Pending() int {
	return len(m.garbage)
}

// SetAcquire makes the next submission wait on s, typically the
// semaphore signaled by a swapchain image acquisition.
func (m *Manager) SetAcquire(s driver.Semaphore) {
	m.acquire = s
	m.acquirePending = s != nil
}

// SignalAux returns the auxiliary semaphore for a side submission to
// signal; the next draw submission waits on it.
func (m *Manager) SignalAux() driver.Semaphore {
	m.auxPending = true
	return m.aux
}

// ConsumeDraw returns the draw semaphore if the last submission signaled
// it and no later submission waited on it. A presentation engine waiting
// on the result takes over the wait.
func (m *Manager) ConsumeDraw() (driver.Semaphore, bool) {
	if !m.drawPending {
		return nil, false
	}
	m.drawPending = false
	return m.draw, true
}

// Destroy waits for the device to go idle and releases every resource.
func (m *Manager) Destroy() {
	if m.dev == nil {
		return
	}
	if err := m.dev.WaitIdle(); err != nil {
		m.log.Error("wait idle", "err", err)
	}
	m.completed = m.serial + 1
	for r := range m.refs {
		delete(m.refs, r)
		m.garbage = append(m.garbage, garbage{res: r})
	}
	m.FreeResources()
	for _, f := range m.frames {
		if f.fence != nil {
			f.fence.Release()
		}
		f.cb.Release()
	}
	m.frames = nil
	for _, s := range []driver.Semaphore{m.aux, m.draw} {
		if s != nil {
			s.Release()
		}
	}
	m.dev = nil
}
