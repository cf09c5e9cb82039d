package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

const (
	// Uniform slots per stage. Vertex and fragment slots together stay
	// within the guaranteed limit of 8 dynamic uniform buffers.
	uniformSlotsPerStage = 4
	// Largest block a single push may carry.
	uniformSlotSize = 1024
	uniformRingSize = 256 * 1024

	vertexUniformSet   = 1
	fragmentUniformSet = 3
)

/**
 * @brief The layouts every pipeline shares. Vertex uniforms live in set 1
 * and fragment uniforms in set 3, each a run of dynamic uniform buffers.
 */
type VulkanUniformLayout struct {
	emptySet       vk.DescriptorSetLayout
	vertexSet      vk.DescriptorSetLayout
	fragmentSet    vk.DescriptorSetLayout
	PipelineLayout vk.PipelineLayout
}

func descriptorSetLayoutCreate(context *VulkanContext, stage vk.ShaderStageFlagBits, count uint32) (vk.DescriptorSetLayout, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, count)
	for i := range bindings {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(stage),
		}
	}
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: count,
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &layout); res != vk.Success {
		return nil, vulkanError("vkCreateDescriptorSetLayout", res)
	}
	return layout, nil
}

func UniformLayoutCreate(context *VulkanContext) (*VulkanUniformLayout, error) {
	ul := &VulkanUniformLayout{}
	var err error
	if ul.emptySet, err = descriptorSetLayoutCreate(context, vk.ShaderStageVertexBit, 0); err != nil {
		return nil, err
	}
	if ul.vertexSet, err = descriptorSetLayoutCreate(context, vk.ShaderStageVertexBit, uniformSlotsPerStage); err != nil {
		ul.Destroy(context)
		return nil, err
	}
	if ul.fragmentSet, err = descriptorSetLayoutCreate(context, vk.ShaderStageFragmentBit, uniformSlotsPerStage); err != nil {
		ul.Destroy(context)
		return nil, err
	}

	setLayouts := []vk.DescriptorSetLayout{ul.emptySet, ul.vertexSet, ul.emptySet, ul.fragmentSet}
	createInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}
	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &layout); res != vk.Success {
		ul.Destroy(context)
		err := vulkanError("vkCreatePipelineLayout", res)
		core.LogError(err.Error())
		return nil, err
	}
	ul.PipelineLayout = layout
	return ul, nil
}

func (ul *VulkanUniformLayout) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if ul.PipelineLayout != nil {
		vk.DestroyPipelineLayout(device, ul.PipelineLayout, context.Allocator)
		ul.PipelineLayout = nil
	}
	for _, l := range []*vk.DescriptorSetLayout{&ul.emptySet, &ul.vertexSet, &ul.fragmentSet} {
		if *l != nil {
			vk.DestroyDescriptorSetLayout(device, *l, context.Allocator)
			*l = nil
		}
	}
}

/**
 * @brief Per command buffer uniform storage. Every push appends the data to
 * a host visible ring and records its offset; draws bind the stage's sets
 * with the latest offsets.
 */
type VulkanUniformRing struct {
	buffer    *VulkanBuffer
	pool      vk.DescriptorPool
	vertex    vk.DescriptorSet
	fragment  vk.DescriptorSet
	alignment uint32
	head      uint32

	vertexOffsets   [uniformSlotsPerStage]uint32
	fragmentOffsets [uniformSlotsPerStage]uint32
}

func UniformRingCreate(context *VulkanContext, layout *VulkanUniformLayout) (*VulkanUniformRing, error) {
	alignment := uint32(context.Device.Properties.Limits.MinUniformBufferOffsetAlignment)
	if alignment == 0 {
		alignment = 256
	}
	buffer, err := BufferCreate(context, uniformRingSize,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	ring := &VulkanUniformRing{buffer: buffer, alignment: alignment}

	device := context.Device.LogicalDevice
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       2,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeUniformBufferDynamic,
			DescriptorCount: 2 * uniformSlotsPerStage,
		}},
	}
	if res := vk.CreateDescriptorPool(device, &poolInfo, context.Allocator, &ring.pool); res != vk.Success {
		ring.Destroy(context)
		return nil, vulkanError("vkCreateDescriptorPool", res)
	}

	sets := make([]vk.DescriptorSet, 2)
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     ring.pool,
		DescriptorSetCount: 2,
		PSetLayouts:        []vk.DescriptorSetLayout{layout.vertexSet, layout.fragmentSet},
	}
	if res := vk.AllocateDescriptorSets(device, &allocateInfo, &sets[0]); res != vk.Success {
		ring.Destroy(context)
		return nil, vulkanError("vkAllocateDescriptorSets", res)
	}
	ring.vertex, ring.fragment = sets[0], sets[1]

	var writes []vk.WriteDescriptorSet
	for _, set := range sets {
		for slot := uint32(0); slot < uniformSlotsPerStage; slot++ {
			writes = append(writes, vk.WriteDescriptorSet{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          set,
				DstBinding:      slot,
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
				PBufferInfo: []vk.DescriptorBufferInfo{{
					Buffer: buffer.Handle,
					Offset: 0,
					Range:  uniformSlotSize,
				}},
			})
		}
	}
	vk.UpdateDescriptorSets(device, uint32(len(writes)), writes, 0, nil)
	return ring, nil
}

// push copies data into the ring. A full ring wraps around, which is safe
// because a command buffer holds at most one frame of draws.
func (ur *VulkanUniformRing) push(data []byte) (uint32, error) {
	if len(data) > uniformSlotSize {
		return 0, fmt.Errorf("uniform block of %d bytes exceeds %d", len(data), uniformSlotSize)
	}
	if ur.head+uniformSlotSize > ur.buffer.Size {
		core.LogWarn("uniform ring of %d bytes wrapped", ur.buffer.Size)
		ur.head = 0
	}
	offset := ur.head
	copy(ur.buffer.Bytes()[offset:], data)
	ur.head += uint32(metadata.GetAligned(uniformSlotSize, uint64(ur.alignment)))
	return offset, nil
}

func (ur *VulkanUniformRing) pushStage(fragment bool, slot uint32, data []byte) {
	if slot >= uniformSlotsPerStage {
		core.LogWarn("uniform slot %d ignored, %d slots per stage are supported", slot, uniformSlotsPerStage)
		return
	}
	offset, err := ur.push(data)
	if err != nil {
		core.LogWarn(err.Error())
		return
	}
	if fragment {
		ur.fragmentOffsets[slot] = offset
	} else {
		ur.vertexOffsets[slot] = offset
	}
}

func (ur *VulkanUniformRing) bind(command vk.CommandBuffer, layout vk.PipelineLayout) {
	vk.CmdBindDescriptorSets(command, vk.PipelineBindPointGraphics, layout, vertexUniformSet, 1,
		[]vk.DescriptorSet{ur.vertex}, uniformSlotsPerStage, ur.vertexOffsets[:])
	vk.CmdBindDescriptorSets(command, vk.PipelineBindPointGraphics, layout, fragmentUniformSet, 1,
		[]vk.DescriptorSet{ur.fragment}, uniformSlotsPerStage, ur.fragmentOffsets[:])
}

func (ur *VulkanUniformRing) reset() {
	ur.head = 0
	ur.vertexOffsets = [uniformSlotsPerStage]uint32{}
	ur.fragmentOffsets = [uniformSlotsPerStage]uint32{}
}

func (ur *VulkanUniformRing) Destroy(context *VulkanContext) {
	if ur.pool != nil {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, ur.pool, context.Allocator)
		ur.pool = nil
	}
	if ur.buffer != nil {
		ur.buffer.BufferDestroy(context)
		ur.buffer = nil
	}
}
