// SPDX-License-Identifier: Unlicense OR MIT

package resource

import (
	"glove.dev/internal/driver"
	"glove.dev/internal/gl"
)

// Buffer is a GL buffer object. Its contents are shadowed on the client
// so that writes to a buffer in use by the GPU can be redirected to a
// fresh driver buffer.
type Buffer struct {
	Use

	Name uint32
	// Usage is the usage hint given to BufferData.
	Usage gl.Enum

	data []byte
	buf  driver.Buffer
}

const bufferUsage = driver.BufferUsageVertex | driver.BufferUsageIndex | driver.BufferUsageTransferSrc | driver.BufferUsageTransferDst

// Size returns the size of the data store in bytes.
func (b *Buffer) Size() int {
	return len(b.data)
}

// Data returns the client shadow of the data store.
func (b *Buffer) Data() []byte {
	return b.data
}

// Driver returns the driver buffer backing b, nil for an empty store.
func (b *Buffer) Driver() driver.Buffer {
	return b.buf
}

// BufferData replaces the data store of b with size bytes initialized
// from data, or zeroed if data is nil.
func (m *Manager) BufferData(b *Buffer, usage gl.Enum, size int, data []byte) error {
	if size < 0 || (data != nil && len(data) < size) {
		return ErrInvalidValue
	}
	var buf driver.Buffer
	if size > 0 {
		var err error
		buf, err = m.dev.NewBuffer(bufferUsage, size)
		if err != nil {
			return wrapDriver(err, "buffer data")
		}
	}
	shadow := make([]byte, size)
	if data != nil {
		copy(shadow, data)
		if buf != nil {
			buf.Upload(0, shadow)
		}
	}
	b.release(m.track)
	b.buf = buf
	b.data = shadow
	b.Usage = usage
	b.Use = Use{}
	return nil
}

// BufferSubData writes data at offset. A buffer still referenced by
// recorded or in-flight work is copied to a new driver buffer first.
func (m *Manager) BufferSubData(b *Buffer, offset int, data []byte) error {
	if offset < 0 || offset+len(data) > len(b.data) {
		return ErrInvalidValue
	}
	if len(data) == 0 {
		return nil
	}
	if b.Busy(m.track) {
		buf, err := m.dev.NewBuffer(bufferUsage, len(b.data))
		if err != nil {
			return wrapDriver(err, "buffer copy")
		}
		m.log.Debug("buffer renamed", "buffer", b.Name, "size", len(b.data))
		m.track.Release(b.buf)
		b.buf = buf
		b.Use = Use{}
		copy(b.data[offset:], data)
		buf.Upload(0, b.data)
		return nil
	}
	copy(b.data[offset:], data)
	b.buf.Upload(offset, data)
	return nil
}

func (b *Buffer) release(t Tracker) {
	if b.buf != nil {
		t.Release(b.buf)
		b.buf = nil
	}
}

// DeleteBuffer forgets the buffer named h.
func (m *Manager) DeleteBuffer(h uint32) {
	if b := m.Buffers.Lookup(h); b != nil {
		b.release(m.track)
	}
	m.Buffers.Deallocate(h)
}
