package vulkan

import (
	"encoding/binary"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

const spirvMagic = 0x07230203

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The internal shader module Handle. */
	Handle     vk.ShaderModule
	Stage      metadata.ShaderStage
	EntryPoint string
	// Uniform slots the stage reads, checked against the pipeline layout.
	NumUniformBuffers uint32
}

// spirvWords validates a SPIR-V binary and returns it as host words.
func spirvWords(code []byte) ([]uint32, error) {
	if len(code) < 20 || len(code)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V binary of %d bytes is not a whole number of words", len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("not a SPIR-V binary (magic %#08x)", words[0])
	}
	return words, nil
}

func NewShaderModule(context *VulkanContext, info *metadata.ShaderCreateInfo) (*VulkanShaderStage, error) {
	words, err := spirvWords(info.Code)
	if err != nil {
		return nil, fmt.Errorf("%s shader: %w", info.Stage, err)
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(info.Code)),
		PCode:    words,
	}
	stage := &VulkanShaderStage{
		Stage:             info.Stage,
		EntryPoint:        info.EntryPoint,
		NumUniformBuffers: info.NumUniformBuffers,
	}
	if stage.EntryPoint == "" {
		stage.EntryPoint = "main"
	}
	var handle vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		err := vulkanError("vkCreateShaderModule", res)
		core.LogError(err.Error())
		return nil, err
	}
	stage.Handle = handle
	return stage, nil
}

func (vs *VulkanShaderStage) Destroy(context *VulkanContext) {
	if vs.Handle != nil {
		vk.DestroyShaderModule(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = nil
	}
}

func (vs *VulkanShaderStage) stageInfo() vk.PipelineShaderStageCreateInfo {
	flag := vk.ShaderStageVertexBit
	if vs.Stage == metadata.ShaderStageFragment {
		flag = vk.ShaderStageFragmentBit
	}
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  flag,
		Module: vs.Handle,
		PName:  VulkanSafeString(vs.EntryPoint),
	}
}
