// SPDX-License-Identifier: Unlicense OR MIT

//go:build cgo && !novulkan

// Package vulkan implements driver.Device with Vulkan through
// github.com/goki/vulkan. Importing it registers the Vulkan and Headless
// device constructors with the driver package.
package vulkan

import (
	"log/slog"
	"math"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"glove.dev/internal/driver"
)

// Backend is a driver.Device backed by a VkDevice.
type Backend struct {
	// inst and ownDevice are set when the backend created its own
	// instance and device.
	inst      vk.Instance
	ownDevice bool

	physDev  vk.PhysicalDevice
	dev      vk.Device
	queueFam uint32

	// mu guards queue and pool, which Vulkan requires to be externally
	// synchronized.
	mu    sync.Mutex
	queue vk.Queue
	pool  vk.CommandPool

	memProps vk.PhysicalDeviceMemoryProperties
	caps     driver.Caps
	log      *slog.Logger
}

var loadOnce struct {
	sync.Once
	err error
}

func init() {
	driver.NewVulkanDevice = newVulkanDevice
	driver.NewHeadlessDevice = newHeadlessDevice
}

// load initializes the global Vulkan entry points from the system
// loader.
func load() error {
	loadOnce.Do(func() {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			loadOnce.err = errors.Wrap(err, "vulkan: loader not found")
			return
		}
		if err := vk.Init(); err != nil {
			loadOnce.err = errors.Wrap(err, "vulkan: init")
		}
	})
	return loadOnce.err
}

// newVulkanDevice wraps a device created by the windowing layer. The
// windowing layer must have initialized goki/vulkan with its instance.
func newVulkanDevice(api driver.Vulkan) (driver.Device, error) {
	b := &Backend{
		physDev:  vk.PhysicalDevice(api.PhysDevice),
		dev:      vk.Device(api.Device),
		queueFam: uint32(api.QueueFamily),
		log:      logger(api.Logger),
	}
	var queue vk.Queue
	vk.GetDeviceQueue(b.dev, b.queueFam, uint32(api.QueueIndex), &queue)
	b.queue = queue
	// The enabled features of a foreign device are unknown; assume no
	// wide lines.
	if err := b.init(false); err != nil {
		return nil, err
	}
	return b, nil
}

func newHeadlessDevice(api driver.Headless) (driver.Device, error) {
	if err := load(); err != nil {
		return nil, err
	}
	inst, err := createInstance()
	if err != nil {
		return nil, err
	}
	physDev, qFam, err := choosePhysicalDevice(inst)
	if err != nil {
		vk.DestroyInstance(inst, nil)
		return nil, err
	}
	var feats vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(physDev, &feats)
	feats.Deref()
	wide := feats.WideLines == vk.True
	dev, err := createDevice(physDev, qFam, wide)
	if err != nil {
		vk.DestroyInstance(inst, nil)
		return nil, err
	}
	b := &Backend{
		inst:      inst,
		ownDevice: true,
		physDev:   physDev,
		dev:       dev,
		queueFam:  qFam,
		log:       logger(api.Logger),
	}
	var queue vk.Queue
	vk.GetDeviceQueue(dev, qFam, 0, &queue)
	b.queue = queue
	if err := b.init(wide); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

func createInstance() (vk.Instance, error) {
	var inst vk.Instance
	err := vkErr(vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:            vk.StructureTypeApplicationInfo,
			ApiVersion:       uint32(vk.MakeVersion(1, 0, 0)),
			PApplicationName: "glove\x00",
			PEngineName:      "glove\x00",
		},
	}, nil, &inst), "vkCreateInstance")
	if err != nil {
		return nil, err
	}
	if err := vk.InitInstance(inst); err != nil {
		vk.DestroyInstance(inst, nil)
		return nil, errors.Wrap(err, "vulkan: init instance")
	}
	return inst, nil
}

// choosePhysicalDevice returns the first device with a graphics queue.
func choosePhysicalDevice(inst vk.Instance) (vk.PhysicalDevice, uint32, error) {
	var count uint32
	if err := vkErr(vk.EnumeratePhysicalDevices(inst, &count, nil), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, 0, err
	}
	if count == 0 {
		return nil, 0, errors.New("vulkan: no devices found")
	}
	devs := make([]vk.PhysicalDevice, count)
	if err := vkErr(vk.EnumeratePhysicalDevices(inst, &count, devs), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, 0, err
	}
	for _, pd := range devs[:count] {
		var n uint32
		vk.GetPhysicalDeviceQueueFamilyProperties(pd, &n, nil)
		props := make([]vk.QueueFamilyProperties, n)
		vk.GetPhysicalDeviceQueueFamilyProperties(pd, &n, props)
		for i := range props[:n] {
			props[i].Deref()
			if props[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
				return pd, uint32(i), nil
			}
		}
	}
	return nil, 0, errors.New("vulkan: no device with a graphics queue")
}

func createDevice(pd vk.PhysicalDevice, qFam uint32, wideLines bool) (vk.Device, error) {
	feats := vk.PhysicalDeviceFeatures{}
	if wideLines {
		feats.WideLines = vk.True
	}
	var dev vk.Device
	err := vkErr(vk.CreateDevice(pd, &vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: qFam,
			QueueCount:       1,
			PQueuePriorities: []float32{1},
		}},
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{feats},
	}, nil, &dev), "vkCreateDevice")
	return dev, err
}

func (b *Backend) init(wideLines bool) error {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(b.physDev, &props)
	props.Deref()
	props.Limits.Deref()
	vk.GetPhysicalDeviceMemoryProperties(b.physDev, &b.memProps)
	b.memProps.Deref()

	lim := props.Limits
	b.caps = driver.Caps{
		MaxImageDimension2D:             int(lim.MaxImageDimension2D),
		MaxImageDimensionCube:           int(lim.MaxImageDimensionCube),
		MaxVertexInputBindings:          int(lim.MaxVertexInputBindings),
		MaxVertexInputAttributes:        int(lim.MaxVertexInputAttributes),
		MaxLineWidth:                    1,
		MinUniformBufferOffsetAlignment: int(lim.MinUniformBufferOffsetAlignment),
	}
	if wideLines {
		b.caps.MaxLineWidth = lim.LineWidthRange[1]
	}
	b.caps.DepthStencilFormat = driver.FormatD32S8
	if b.supportsAttachment(vk.FormatD24UnormS8Uint, vk.FormatFeatureDepthStencilAttachmentBit) {
		b.caps.DepthStencilFormat = driver.FormatD24S8
	}

	var pool vk.CommandPool
	err := vkErr(vk.CreateCommandPool(b.dev, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: b.queueFam,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool), "vkCreateCommandPool")
	if err != nil {
		return err
	}
	b.pool = pool
	b.log.Debug("vulkan device",
		"device", vk.ToString(props.DeviceName[:]),
		"maxImageDimension2D", b.caps.MaxImageDimension2D,
		"depthStencil", b.caps.DepthStencilFormat,
	)
	return nil
}

func (b *Backend) supportsAttachment(f vk.Format, feature vk.FormatFeatureFlagBits) bool {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(b.physDev, f, &props)
	props.Deref()
	return props.OptimalTilingFeatures&vk.FormatFeatureFlags(feature) != 0
}

func (b *Backend) Caps() driver.Caps {
	return b.caps
}

func (b *Backend) Submit(s driver.Submission) error {
	cmd := s.CommandBuffer.(*CommandBuffer)
	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd.cmd},
	}
	if n := len(s.Wait); n > 0 {
		waits := make([]vk.Semaphore, n)
		stages := make([]vk.PipelineStageFlags, n)
		for i, w := range s.Wait {
			waits[i] = w.(*Semaphore).sem
			stages[i] = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageTransferBit)
		}
		info.WaitSemaphoreCount = uint32(n)
		info.PWaitSemaphores = waits
		info.PWaitDstStageMask = stages
	}
	if n := len(s.Signal); n > 0 {
		sigs := make([]vk.Semaphore, n)
		for i, sg := range s.Signal {
			sigs[i] = sg.(*Semaphore).sem
		}
		info.SignalSemaphoreCount = uint32(n)
		info.PSignalSemaphores = sigs
	}
	fence := vk.NullFence
	if s.Fence != nil {
		fence = s.Fence.(*Fence).fence
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return vkErr(vk.QueueSubmit(b.queue, 1, []vk.SubmitInfo{info}, fence), "vkQueueSubmit")
}

func (b *Backend) WaitIdle() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return vkErr(vk.QueueWaitIdle(b.queue), "vkQueueWaitIdle")
}

func (b *Backend) Release() {
	vk.DeviceWaitIdle(b.dev)
	if b.pool != vk.NullCommandPool {
		vk.DestroyCommandPool(b.dev, b.pool, nil)
	}
	if b.ownDevice {
		vk.DestroyDevice(b.dev, nil)
		vk.DestroyInstance(b.inst, nil)
	}
	*b = Backend{}
}

// oneShot records commands with do and waits for their execution.
func (b *Backend) oneShot(do func(cmd vk.CommandBuffer)) error {
	cb, err := b.newCommandBuffer()
	if err != nil {
		return err
	}
	defer cb.Release()
	f, err := b.NewFence()
	if err != nil {
		return err
	}
	defer f.Release()
	err = vkErr(vk.BeginCommandBuffer(cb.cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}), "vkBeginCommandBuffer")
	if err != nil {
		return err
	}
	do(cb.cmd)
	if err := cb.End(); err != nil {
		return err
	}
	if err := b.Submit(driver.Submission{CommandBuffer: cb, Fence: f}); err != nil {
		return err
	}
	return f.Wait(0)
}

// vkErr maps a Vulkan result to the driver errors.
func vkErr(res vk.Result, op string) error {
	switch res {
	case vk.Success:
		return nil
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory:
		return errors.Wrap(driver.ErrOutOfMemory, op)
	case vk.ErrorDeviceLost:
		return errors.Wrap(driver.ErrDeviceLost, op)
	case vk.Timeout:
		return errors.Wrap(driver.ErrTimeout, op)
	}
	return errors.Wrapf(vk.Error(res), "vulkan: %s", op)
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// timeout converts a driver timeout, where 0 means forever.
func timeout(ns uint64) uint64 {
	if ns == 0 {
		return math.MaxUint64
	}
	return ns
}

// bytesAt returns the n bytes at p.
func bytesAt(p unsafe.Pointer, n int) []byte {
	return unsafe.Slice((*byte)(p), n)
}

var _ driver.Device = (*Backend)(nil)
