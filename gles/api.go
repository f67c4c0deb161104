// SPDX-License-Identifier: Unlicense OR MIT

package gles

import "glove.dev/internal/driver"

// A DeviceAPI selects the GPU API a device is created with, Vulkan or
// Headless.
type DeviceAPI = driver.API

// Vulkan wraps a VkDevice created by a windowing layer, along with the
// queue contexts submit to.
type Vulkan = driver.Vulkan

// Headless requests a device without presentation support, for
// offscreen rendering.
type Headless = driver.Headless

// NewDevice creates a device for api. It fails unless a driver for
// api is linked into the program.
func NewDevice(api DeviceAPI) (driver.Device, error) {
	return driver.NewDevice(api)
}

// RenderingAPI is the interface a windowing layer such as EGL drives
// contexts through.
type RenderingAPI interface {
	CreateContext(dev driver.Device) (*Context, error)
	DeleteContext(c *Context)
	MakeCurrent(c *Context)
	SetWriteSurface(c *Context, s *Surface) error
	SetReadSurface(c *Context, s *Surface) error
	SetNextImageIndex(c *Context, i int) error
	Finish(c *Context) error
}

// API implements RenderingAPI with the contexts of this package.
type API struct {
	// Options are passed to every context created.
	Options Options
}

var _ RenderingAPI = API{}

func (a API) CreateContext(dev driver.Device) (*Context, error) {
	return NewContext(dev, a.Options)
}

func (API) DeleteContext(c *Context) {
	c.Destroy()
}

func (API) MakeCurrent(c *Context) {
	MakeCurrent(c)
}

func (API) SetWriteSurface(c *Context, s *Surface) error {
	return c.SetWriteSurface(s)
}

func (API) SetReadSurface(c *Context, s *Surface) error {
	return c.SetReadSurface(s)
}

func (API) SetNextImageIndex(c *Context, i int) error {
	return c.SetNextImageIndex(i)
}

// Finish submits the recorded work of c and waits for it to complete.
func (API) Finish(c *Context) error {
	return c.finish()
}
