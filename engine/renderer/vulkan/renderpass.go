package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

const maxColorTargets = 8

type renderpassAttachment struct {
	Format  vk.Format
	LoadOp  vk.AttachmentLoadOp
	StoreOp vk.AttachmentStoreOp
}

// renderpassKey identifies a cached render pass. Attachments enter and
// leave the pass in their resting layouts, so formats and ops are enough.
type renderpassKey struct {
	ColorCount     int
	Colors         [maxColorTargets]renderpassAttachment
	Depth          renderpassAttachment
	StencilLoadOp  vk.AttachmentLoadOp
	StencilStoreOp vk.AttachmentStoreOp
}

type VulkanRenderpass struct {
	Handle vk.RenderPass
	key    renderpassKey
}

func RenderpassCreate(context *VulkanContext, key renderpassKey) (*VulkanRenderpass, error) {
	var descriptions []vk.AttachmentDescription
	colorReferences := make([]vk.AttachmentReference, 0, key.ColorCount)
	for i := 0; i < key.ColorCount; i++ {
		c := key.Colors[i]
		descriptions = append(descriptions, vk.AttachmentDescription{
			Format:         c.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         c.LoadOp,
			StoreOp:        c.StoreOp,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		})
		colorReferences = append(colorReferences, vk.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorReferences)),
		PColorAttachments:    colorReferences,
	}

	if key.Depth.Format != vk.FormatUndefined {
		descriptions = append(descriptions, vk.AttachmentDescription{
			Format:         key.Depth.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         key.Depth.LoadOp,
			StoreOp:        key.Depth.StoreOp,
			StencilLoadOp:  key.StencilLoadOp,
			StencilStoreOp: key.StencilStoreOp,
			InitialLayout:  vk.ImageLayoutDepthStencilAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(len(descriptions) - 1),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	// Earlier copies and passes finish writing before this pass touches
	// the attachments.
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		SrcAccessMask: vk.AccessFlags(vk.AccessMemoryWriteBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		DstAccessMask: vk.AccessFlags(vk.AccessMemoryReadBit | vk.AccessMemoryWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(descriptions)),
		PAttachments:    descriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var handle vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		err := vulkanError("vkCreateRenderPass", res)
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanRenderpass{Handle: handle, key: key}, nil
}

func (vr *VulkanRenderpass) RenderpassDestroy(context *VulkanContext) {
	if vr.Handle != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = nil
	}
}

// renderpassCache keeps one render pass per attachment configuration for
// the device's lifetime.
type renderpassCache struct {
	passes map[renderpassKey]*VulkanRenderpass
}

func newRenderpassCache() *renderpassCache {
	return &renderpassCache{passes: make(map[renderpassKey]*VulkanRenderpass)}
}

func (c *renderpassCache) fetch(context *VulkanContext, key renderpassKey) (*VulkanRenderpass, error) {
	if key.ColorCount > maxColorTargets {
		return nil, fmt.Errorf("render pass with %d colour targets exceeds %d", key.ColorCount, maxColorTargets)
	}
	if rp, ok := c.passes[key]; ok {
		return rp, nil
	}
	var rp *VulkanRenderpass
	err := context.Locks.SafeCall(PipelineManagement, func() (err error) {
		rp, err = RenderpassCreate(context, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.passes[key] = rp
	return rp, nil
}

func (c *renderpassCache) destroy(context *VulkanContext) {
	for key, rp := range c.passes {
		rp.RenderpassDestroy(context)
		delete(c.passes, key)
	}
}
