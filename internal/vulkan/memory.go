// SPDX-License-Identifier: Unlicense OR MIT

//go:build cgo && !novulkan

package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"glove.dev/internal/driver"
)

// Buffer is a host visible, persistently mapped VkBuffer.
type Buffer struct {
	backend *Backend
	buf     vk.Buffer
	mem     vk.DeviceMemory
	mapped  []byte
}

// findMemoryType returns the first memory type allowed by typeBits that
// has all the props flags.
func (b *Backend) findMemoryType(typeBits uint32, props vk.MemoryPropertyFlagBits) (uint32, bool) {
	for i := uint32(0); i < b.memProps.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		b.memProps.MemoryTypes[i].Deref()
		flags := b.memProps.MemoryTypes[i].PropertyFlags
		if flags&vk.MemoryPropertyFlags(props) == vk.MemoryPropertyFlags(props) {
			return i, true
		}
	}
	return 0, false
}

func (b *Backend) allocMemory(reqs vk.MemoryRequirements, props vk.MemoryPropertyFlagBits) (vk.DeviceMemory, error) {
	memType, ok := b.findMemoryType(reqs.MemoryTypeBits, props)
	if !ok {
		return vk.NullDeviceMemory, errors.Wrap(driver.ErrOutOfMemory, "vulkan: no suitable memory type")
	}
	var mem vk.DeviceMemory
	err := vkErr(vk.AllocateMemory(b.dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: memType,
	}, nil, &mem), "vkAllocateMemory")
	return mem, err
}

func (b *Backend) NewBuffer(usage driver.BufferUsage, size int) (driver.Buffer, error) {
	return b.newBuffer(bufferUsage(usage), size)
}

func (b *Backend) newBuffer(usage vk.BufferUsageFlagBits, size int) (*Buffer, error) {
	if size <= 0 {
		return nil, errors.Errorf("vulkan: invalid buffer size %d", size)
	}
	buf := &Buffer{backend: b}
	err := vkErr(vk.CreateBuffer(b.dev, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buf.buf), "vkCreateBuffer")
	if err != nil {
		return nil, err
	}
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(b.dev, buf.buf, &reqs)
	reqs.Deref()
	buf.mem, err = b.allocMemory(reqs, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		buf.Release()
		return nil, err
	}
	if err := vkErr(vk.BindBufferMemory(b.dev, buf.buf, buf.mem, 0), "vkBindBufferMemory"); err != nil {
		buf.Release()
		return nil, err
	}
	var p unsafe.Pointer
	if err := vkErr(vk.MapMemory(b.dev, buf.mem, 0, vk.DeviceSize(size), 0, &p), "vkMapMemory"); err != nil {
		buf.Release()
		return nil, err
	}
	buf.mapped = bytesAt(p, size)
	return buf, nil
}

func (b *Buffer) Size() int {
	return len(b.mapped)
}

func (b *Buffer) Upload(offset int, data []byte) {
	copy(b.mapped[offset:], data)
}

func (b *Buffer) Download(offset int, data []byte) error {
	if offset < 0 || offset+len(data) > len(b.mapped) {
		return errors.Errorf("vulkan: download [%d,%d) out of buffer bounds %d", offset, offset+len(data), len(b.mapped))
	}
	copy(data, b.mapped[offset:])
	return nil
}

func (b *Buffer) Release() {
	dev := b.backend.dev
	if b.mapped != nil {
		vk.UnmapMemory(dev, b.mem)
	}
	if b.buf != vk.NullBuffer {
		vk.DestroyBuffer(dev, b.buf, nil)
	}
	if b.mem != vk.NullDeviceMemory {
		vk.FreeMemory(dev, b.mem, nil)
	}
	*b = Buffer{}
}
