package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint32
	// Host pointer of persistently mapped buffers, nil otherwise.
	mapped unsafe.Pointer
}

func allocateMemory(context *VulkanContext, requirements vk.MemoryRequirements, properties vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	index := context.FindMemoryIndex(requirements.MemoryTypeBits, properties)
	if index < 0 {
		return nil, fmt.Errorf("no memory type with properties %#x", uint32(properties))
	}
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(index),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		return nil, vulkanError("vkAllocateMemory", res)
	}
	return memory, nil
}

// BufferCreate creates a buffer with its own memory. Host visible buffers
// are mapped for their whole lifetime.
func BufferCreate(context *VulkanContext, size uint32, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("cannot create a zero sized buffer")
	}
	device := context.Device.LogicalDevice
	buffer := &VulkanBuffer{Size: size}

	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if res := vk.CreateBuffer(device, &createInfo, context.Allocator, &handle); res != vk.Success {
		return nil, vulkanError("vkCreateBuffer", res)
	}
	buffer.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, handle, &requirements)
	requirements.Deref()

	memory, err := allocateMemory(context, requirements, properties)
	if err != nil {
		buffer.BufferDestroy(context)
		return nil, err
	}
	buffer.Memory = memory
	if res := vk.BindBufferMemory(device, handle, memory, 0); res != vk.Success {
		buffer.BufferDestroy(context)
		return nil, vulkanError("vkBindBufferMemory", res)
	}

	if properties&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0 {
		var data unsafe.Pointer
		if res := vk.MapMemory(device, memory, 0, vk.DeviceSize(size), 0, &data); res != vk.Success {
			buffer.BufferDestroy(context)
			return nil, vulkanError("vkMapMemory", res)
		}
		buffer.mapped = data
	}
	return buffer, nil
}

// Bytes is the mapped memory of a host visible buffer.
func (vb *VulkanBuffer) Bytes() []byte {
	if vb.mapped == nil {
		return nil
	}
	return unsafe.Slice((*byte)(vb.mapped), vb.Size)
}

func (vb *VulkanBuffer) BufferDestroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if vb.mapped != nil {
		vk.UnmapMemory(device, vb.Memory)
		vb.mapped = nil
	}
	if vb.Handle != nil {
		vk.DestroyBuffer(device, vb.Handle, context.Allocator)
		vb.Handle = nil
	}
	if vb.Memory != nil {
		vk.FreeMemory(device, vb.Memory, context.Allocator)
		vb.Memory = nil
	}
}

// transferAllocation is one backing of a transfer buffer. refs counts the
// command buffers that still read or write it.
type transferAllocation struct {
	buffer *VulkanBuffer
	refs   int
}

// VulkanTransferBuffer is host visible staging memory. Cycling swaps in a
// backing no in-flight command buffer references.
type VulkanTransferBuffer struct {
	size        uint32
	download    bool
	active      *transferAllocation
	allocations []*transferAllocation
}

func transferBufferCreate(context *VulkanContext, size uint32, download bool) (*VulkanTransferBuffer, error) {
	tb := &VulkanTransferBuffer{size: size, download: download}
	if _, err := tb.allocate(context); err != nil {
		return nil, err
	}
	return tb, nil
}

func (tb *VulkanTransferBuffer) allocate(context *VulkanContext) (*transferAllocation, error) {
	usage := vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
	properties := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	if tb.download {
		usage = vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	}
	buffer, err := BufferCreate(context, tb.size, usage, properties)
	if err != nil {
		return nil, err
	}
	a := &transferAllocation{buffer: buffer}
	tb.allocations = append(tb.allocations, a)
	tb.active = a
	return a, nil
}

// cycle makes an unreferenced backing active, allocating one when needed.
func (tb *VulkanTransferBuffer) cycle(context *VulkanContext) error {
	if tb.active.refs == 0 {
		return nil
	}
	for _, a := range tb.allocations {
		if a.refs == 0 {
			tb.active = a
			return nil
		}
	}
	_, err := tb.allocate(context)
	if err == nil {
		core.LogDebug("transfer buffer cycled to a new %d byte backing (%d total)", tb.size, len(tb.allocations))
	}
	return err
}

func (tb *VulkanTransferBuffer) destroy(context *VulkanContext) {
	for _, a := range tb.allocations {
		a.buffer.BufferDestroy(context)
	}
	tb.allocations = nil
	tb.active = nil
}
