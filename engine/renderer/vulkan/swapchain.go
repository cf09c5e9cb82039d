package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	emath "github.com/spaghettifunk/anima-gpu/engine/math"
)

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	Handle      vk.Swapchain
	Extent      vk.Extent2D
	// Images wrap the swapchain images. Their views are owned here, the
	// images themselves by the swapchain.
	Images []*VulkanImage
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func SwapchainCreate(context *VulkanContext, width uint32, height uint32) (*VulkanSwapchain, error) {
	return createSwapchain(context, width, height, nil)
}

// SwapchainRecreate builds a replacement chain and destroys the old one.
// The caller must make sure the device is idle.
func (vs *VulkanSwapchain) SwapchainRecreate(context *VulkanContext, width uint32, height uint32) (*VulkanSwapchain, error) {
	support, err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface)
	if err != nil {
		return nil, err
	}
	context.Device.SwapchainSupport = support

	sc, err := createSwapchain(context, width, height, vs.Handle)
	vs.SwapchainDestroy(context)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (vs *VulkanSwapchain) SwapchainDestroy(context *VulkanContext) {
	for _, image := range vs.Images {
		image.ImageDestroy(context)
	}
	vs.Images = nil
	if vs.Handle != nil {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = nil
	}
}

// SwapchainAcquireNextImageIndex returns false when the chain is out of
// date. The caller recreates it and skips the frame.
func (vs *VulkanSwapchain) SwapchainAcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore) (uint32, bool, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailableSemaphore, nil, &imageIndex)
	switch result {
	case vk.Success:
		return imageIndex, true, nil
	case vk.Suboptimal:
		context.SwapchainDirty = true
		return imageIndex, true, nil
	case vk.ErrorOutOfDate:
		context.SwapchainDirty = true
		return 0, false, nil
	}
	return 0, false, vulkanError("vkAcquireNextImageKHR", result)
}

func (vs *VulkanSwapchain) SwapchainPresent(context *VulkanContext, renderCompleteSemaphore vk.Semaphore, presentImageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{presentImageIndex},
	}

	var result vk.Result
	context.Locks.SafeQueueCall(context.Device.PresentQueueIndex, func() error {
		result = vk.QueuePresent(context.Device.PresentQueue, &presentInfo)
		return nil
	})
	switch result {
	case vk.Success:
	case vk.ErrorOutOfDate, vk.Suboptimal:
		context.SwapchainDirty = true
	default:
		return vulkanError("vkQueuePresentKHR", result)
	}
	return nil
}

func createSwapchain(context *VulkanContext, width, height uint32, old vk.Swapchain) (*VulkanSwapchain, error) {
	support := context.Device.SwapchainSupport
	if len(support.Formats) == 0 {
		return nil, fmt.Errorf("surface reports no formats: %w", core.ErrDevice)
	}
	swapchain := &VulkanSwapchain{ImageFormat: support.Formats[0]}

	for _, format := range support.Formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			swapchain.ImageFormat = format
			break
		}
	}

	presentMode := vk.PresentModeFifo
	for _, mode := range support.PresentModes {
		if mode == vk.PresentModeMailbox {
			presentMode = mode
			break
		}
	}

	capabilities := support.Capabilities
	extent := vk.Extent2D{Width: width, Height: height}
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		extent = capabilities.CurrentExtent
	}
	extent.Width = emath.Clamp(extent.Width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width)
	extent.Height = emath.Clamp(extent.Height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height)
	if extent.Width == 0 || extent.Height == 0 {
		return nil, fmt.Errorf("surface has no area: %w", core.ErrSwapchainBooting)
	}
	swapchain.Extent = extent

	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		// Frames arrive by blitting the back-buffer.
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{context.Device.GraphicsQueueIndex, context.Device.PresentQueueIndex}
	}

	device := context.Device.LogicalDevice
	var handle vk.Swapchain
	if res := vk.CreateSwapchain(device, &createInfo, context.Allocator, &handle); res != vk.Success {
		err := vulkanError("vkCreateSwapchainKHR", res)
		core.LogError(err.Error())
		return nil, err
	}
	swapchain.Handle = handle

	var count uint32
	if res := vk.GetSwapchainImages(device, handle, &count, nil); res != vk.Success {
		swapchain.SwapchainDestroy(context)
		return nil, vulkanError("vkGetSwapchainImagesKHR", res)
	}
	images := make([]vk.Image, count)
	if res := vk.GetSwapchainImages(device, handle, &count, images); res != vk.Success {
		swapchain.SwapchainDestroy(context)
		return nil, vulkanError("vkGetSwapchainImagesKHR", res)
	}

	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	for _, img := range images {
		view, err := imageViewCreate(context, img, swapchain.ImageFormat.Format, aspect)
		if err != nil {
			swapchain.SwapchainDestroy(context)
			return nil, err
		}
		swapchain.Images = append(swapchain.Images, &VulkanImage{
			Handle:  img,
			View:    view,
			Width:   extent.Width,
			Height:  extent.Height,
			Format:  swapchain.ImageFormat.Format,
			Aspect:  aspect,
			Layout:  vk.ImageLayoutUndefined,
			resting: vk.ImageLayoutPresentSrc,
		})
	}

	core.LogInfo("Swapchain created: %dx%d, %d images.", extent.Width, extent.Height, len(swapchain.Images))
	return swapchain, nil
}
