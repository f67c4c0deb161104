// SPDX-License-Identifier: Unlicense OR MIT

package driver

import (
	"fmt"
	"log/slog"
	"unsafe"
)

// See gles/api.go for documentation for the API types.

type API interface {
	implementsAPI()
}

// Vulkan describes a Vulkan device created by the windowing layer.
type Vulkan struct {
	// PhysDevice is a VkPhysicalDevice.
	PhysDevice unsafe.Pointer
	// Device is a VkDevice.
	Device unsafe.Pointer
	// QueueFamily is the queue family index used for graphics and
	// presentation.
	QueueFamily int
	// QueueIndex is the index of the queue within QueueFamily.
	QueueIndex int
	// Logger receives driver diagnostics. Nil means slog.Default.
	Logger *slog.Logger
}

// Headless requests a device without any presentation support.
type Headless struct {
	Logger *slog.Logger
}

// API specific device constructors.
var (
	NewVulkanDevice   func(api Vulkan) (Device, error)
	NewHeadlessDevice func(api Headless) (Device, error)
)

// NewDevice creates a new Device given the api.
//
// Note that the device does not assume ownership of the resources contained in
// api; the caller must ensure the resources are valid until the device is
// released.
func NewDevice(api API) (Device, error) {
	switch api := api.(type) {
	case Vulkan:
		if NewVulkanDevice != nil {
			return NewVulkanDevice(api)
		}
	case Headless:
		if NewHeadlessDevice != nil {
			return NewHeadlessDevice(api)
		}
	}
	return nil, fmt.Errorf("driver: no driver available for the API %T", api)
}

func (Vulkan) implementsAPI()   {}
func (Headless) implementsAPI() {}
