package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
}

func FramebufferCreate(context *VulkanContext, renderpass *VulkanRenderpass, width uint32, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	framebuffer := &VulkanFramebuffer{
		Attachments: append([]vk.ImageView(nil), attachments...),
		Renderpass:  renderpass,
	}

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(framebuffer.Attachments)),
		PAttachments:    framebuffer.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var handle vk.Framebuffer
	if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		err := vulkanError("vkCreateFramebuffer", res)
		core.LogError(err.Error())
		return nil, err
	}
	framebuffer.Handle = handle
	return framebuffer, nil
}

func (vfb *VulkanFramebuffer) Destroy(context *VulkanContext) {
	if vfb.Handle != nil {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, vfb.Handle, context.Allocator)
	}
	vfb.Handle = nil
	vfb.Attachments = nil
	vfb.Renderpass = nil
}

type framebufferKey struct {
	renderpass    vk.RenderPass
	views         [maxColorTargets + 1]vk.ImageView
	width, height uint32
}

// framebufferCache keeps framebuffers until one of their views goes away.
type framebufferCache struct {
	framebuffers map[framebufferKey]*VulkanFramebuffer
}

func newFramebufferCache() *framebufferCache {
	return &framebufferCache{framebuffers: make(map[framebufferKey]*VulkanFramebuffer)}
}

func (c *framebufferCache) fetch(context *VulkanContext, rp *VulkanRenderpass, views []vk.ImageView, width, height uint32) (*VulkanFramebuffer, error) {
	key := framebufferKey{renderpass: rp.Handle, width: width, height: height}
	copy(key.views[:], views)
	if fb, ok := c.framebuffers[key]; ok {
		return fb, nil
	}
	fb, err := FramebufferCreate(context, rp, width, height, views)
	if err != nil {
		return nil, err
	}
	c.framebuffers[key] = fb
	return fb, nil
}

// purge destroys every framebuffer that references view.
func (c *framebufferCache) purge(context *VulkanContext, view vk.ImageView) {
	for key, fb := range c.framebuffers {
		for _, v := range fb.Attachments {
			if v == view {
				fb.Destroy(context)
				delete(c.framebuffers, key)
				break
			}
		}
	}
}

func (c *framebufferCache) destroy(context *VulkanContext) {
	for key, fb := range c.framebuffers {
		fb.Destroy(context)
		delete(c.framebuffers, key)
	}
}
