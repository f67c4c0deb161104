// SPDX-License-Identifier: Unlicense OR MIT

//go:build cgo && !novulkan

package vulkan

import (
	"image"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"glove.dev/internal/driver"
)

// Image is a VkImage kept in the general layout between commands, so
// sampling, attachment and transfer use need no tracked transitions.
type Image struct {
	backend *Backend
	desc    driver.ImageDesc
	img     vk.Image
	mem     vk.DeviceMemory
	format  vk.Format
	aspect  vk.ImageAspectFlagBits

	// view covers every level and layer for sampling.
	view vk.ImageView
	// attachments holds single level, single layer views.
	attachments map[attachmentKey]vk.ImageView
}

type attachmentKey struct {
	level, layer int
}

type Sampler struct {
	backend *Backend
	smp     vk.Sampler
}

func (b *Backend) NewImage(desc driver.ImageDesc) (driver.Image, error) {
	if desc.Levels == 0 {
		desc.Levels = 1
	}
	if desc.Layers == 0 {
		desc.Layers = 1
	}
	img := &Image{
		backend: b,
		desc:    desc,
		format:  formatFor(desc.Format),
		aspect:  aspectFor(desc.Format),
	}
	var flags vk.ImageCreateFlagBits
	if desc.Layers == 6 {
		flags |= vk.ImageCreateCubeCompatibleBit
	}
	err := vkErr(vk.CreateImage(b.dev, &vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		Flags:         vk.ImageCreateFlags(flags),
		ImageType:     vk.ImageType2d,
		Format:        img.format,
		Extent:        vk.Extent3D{Width: uint32(desc.Width), Height: uint32(desc.Height), Depth: 1},
		MipLevels:     uint32(desc.Levels),
		ArrayLayers:   uint32(desc.Layers),
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(imageUsage(desc)),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &img.img), "vkCreateImage")
	if err != nil {
		return nil, err
	}
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(b.dev, img.img, &reqs)
	reqs.Deref()
	if img.mem, err = b.allocMemory(reqs, vk.MemoryPropertyDeviceLocalBit); err != nil {
		img.Release()
		return nil, err
	}
	if err := vkErr(vk.BindImageMemory(b.dev, img.img, img.mem, 0), "vkBindImageMemory"); err != nil {
		img.Release()
		return nil, err
	}
	if desc.Usage&driver.ImageUsageSampled != 0 {
		viewType := vk.ImageViewType2d
		if desc.Layers == 6 {
			viewType = vk.ImageViewTypeCube
		}
		// Sampling reads the depth aspect of depth/stencil formats.
		aspect := img.aspect
		if aspect&vk.ImageAspectDepthBit != 0 {
			aspect = vk.ImageAspectDepthBit
		}
		img.view, err = b.newView(img.img, img.format, viewType, aspect, 0, desc.Levels, 0, desc.Layers)
		if err != nil {
			img.Release()
			return nil, err
		}
	}
	// Move the whole image to the general layout once.
	err = b.oneShot(func(cmd vk.CommandBuffer) {
		img.barrier(cmd, vk.ImageLayoutUndefined, vk.ImageLayoutGeneral)
	})
	if err != nil {
		img.Release()
		return nil, err
	}
	return img, nil
}

func (b *Backend) newView(img vk.Image, format vk.Format, typ vk.ImageViewType, aspect vk.ImageAspectFlagBits, level, levels, layer, layers int) (vk.ImageView, error) {
	var view vk.ImageView
	err := vkErr(vk.CreateImageView(b.dev, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: typ,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(aspect),
			BaseMipLevel:   uint32(level),
			LevelCount:     uint32(levels),
			BaseArrayLayer: uint32(layer),
			LayerCount:     uint32(layers),
		},
	}, nil, &view), "vkCreateImageView")
	return view, err
}

// attachmentView returns the view of a single level and layer for use in
// a framebuffer.
func (img *Image) attachmentView(level, layer int) (vk.ImageView, error) {
	k := attachmentKey{level, layer}
	if v, ok := img.attachments[k]; ok {
		return v, nil
	}
	v, err := img.backend.newView(img.img, img.format, vk.ImageViewType2d, img.aspect, level, 1, layer, 1)
	if err != nil {
		return vk.NullImageView, err
	}
	if img.attachments == nil {
		img.attachments = make(map[attachmentKey]vk.ImageView)
	}
	img.attachments[k] = v
	return v, nil
}

// barrier orders all earlier work on the image before all later work,
// transitioning it between layouts.
func (img *Image) barrier(cmd vk.CommandBuffer, from, to vk.ImageLayout) {
	access := vk.AccessFlags(vk.AccessMemoryReadBit | vk.AccessMemoryWriteBit)
	vk.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       access,
			DstAccessMask:       access,
			OldLayout:           from,
			NewLayout:           to,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               img.img,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(img.aspect),
				LevelCount: uint32(img.desc.Levels),
				LayerCount: uint32(img.desc.Layers),
			},
		}})
}

func (img *Image) Desc() driver.ImageDesc {
	return img.desc
}

func (img *Image) copyRegion(layer, level int, rect image.Rectangle) vk.BufferImageCopy {
	return vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(img.aspect),
			MipLevel:       uint32(level),
			BaseArrayLayer: uint32(layer),
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: int32(rect.Min.X), Y: int32(rect.Min.Y)},
		ImageExtent: vk.Extent3D{Width: uint32(rect.Dx()), Height: uint32(rect.Dy()), Depth: 1},
	}
}

func (img *Image) checkTransfer(layer, level int, rect image.Rectangle, pixels []byte) error {
	if img.aspect != vk.ImageAspectColorBit {
		return errors.New("vulkan: transfers of depth and stencil images are not supported")
	}
	if level < 0 || level >= img.desc.Levels || layer < 0 || layer >= img.desc.Layers {
		return errors.Errorf("vulkan: level %d layer %d out of range", level, layer)
	}
	if want := rect.Dx() * rect.Dy() * img.desc.Format.BytesPerPixel(); len(pixels) < want {
		return errors.Errorf("vulkan: %d bytes of pixels for %d", len(pixels), want)
	}
	return nil
}

func (img *Image) Upload(layer, level int, rect image.Rectangle, pixels []byte) error {
	if rect.Empty() {
		return nil
	}
	if err := img.checkTransfer(layer, level, rect, pixels); err != nil {
		return err
	}
	b := img.backend
	staging, err := b.newBuffer(vk.BufferUsageTransferSrcBit, len(pixels))
	if err != nil {
		return err
	}
	defer staging.Release()
	staging.Upload(0, pixels)
	return b.oneShot(func(cmd vk.CommandBuffer) {
		img.barrier(cmd, vk.ImageLayoutGeneral, vk.ImageLayoutGeneral)
		vk.CmdCopyBufferToImage(cmd, staging.buf, img.img, vk.ImageLayoutGeneral, 1,
			[]vk.BufferImageCopy{img.copyRegion(layer, level, rect)})
		img.barrier(cmd, vk.ImageLayoutGeneral, vk.ImageLayoutGeneral)
	})
}

func (img *Image) Download(layer, level int, rect image.Rectangle, pixels []byte) error {
	if rect.Empty() {
		return nil
	}
	if err := img.checkTransfer(layer, level, rect, pixels); err != nil {
		return err
	}
	b := img.backend
	n := rect.Dx() * rect.Dy() * img.desc.Format.BytesPerPixel()
	staging, err := b.newBuffer(vk.BufferUsageTransferDstBit, n)
	if err != nil {
		return err
	}
	defer staging.Release()
	err = b.oneShot(func(cmd vk.CommandBuffer) {
		img.barrier(cmd, vk.ImageLayoutGeneral, vk.ImageLayoutGeneral)
		vk.CmdCopyImageToBuffer(cmd, img.img, vk.ImageLayoutGeneral, staging.buf, 1,
			[]vk.BufferImageCopy{img.copyRegion(layer, level, rect)})
	})
	if err != nil {
		return err
	}
	return staging.Download(0, pixels[:n])
}

func (img *Image) Release() {
	dev := img.backend.dev
	for _, v := range img.attachments {
		vk.DestroyImageView(dev, v, nil)
	}
	if img.view != vk.NullImageView {
		vk.DestroyImageView(dev, img.view, nil)
	}
	if img.img != vk.NullImage {
		vk.DestroyImage(dev, img.img, nil)
	}
	if img.mem != vk.NullDeviceMemory {
		vk.FreeMemory(dev, img.mem, nil)
	}
	*img = Image{}
}

func (b *Backend) NewSampler(desc driver.SamplerDesc) (driver.Sampler, error) {
	info := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    filterFor(desc.MagFilter),
		MinFilter:    filterFor(desc.MinFilter),
		AddressModeU: wrapFor(desc.WrapS),
		AddressModeV: wrapFor(desc.WrapT),
		AddressModeW: vk.SamplerAddressModeClampToEdge,
		MipmapMode:   vk.SamplerMipmapModeNearest,
		MaxLod:       desc.MaxLod,
		BorderColor:  vk.BorderColorFloatTransparentBlack,
	}
	switch desc.Mipmap {
	case driver.MipmapNone:
		// Clamping the level of detail to 0.25 samples the base level
		// while still selecting between the minification and
		// magnification filters.
		info.MaxLod = 0.25
	case driver.MipmapLinear:
		info.MipmapMode = vk.SamplerMipmapModeLinear
	}
	s := &Sampler{backend: b}
	if err := vkErr(vk.CreateSampler(b.dev, &info, nil, &s.smp), "vkCreateSampler"); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sampler) Release() {
	vk.DestroySampler(s.backend.dev, s.smp, nil)
	*s = Sampler{}
}
