package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

/**
 * @brief Holds a Vulkan pipeline. The layout is shared by every pipeline.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	Layout vk.PipelineLayout
}

type VulkanPipelineConfig struct {
	/** @brief Any render pass compatible with the pipeline's targets. */
	Renderpass *VulkanRenderpass
	Layout     vk.PipelineLayout
	Stages     []vk.PipelineShaderStageCreateInfo
	Info       *metadata.PipelineCreateInfo
}

func NewGraphicsPipeline(context *VulkanContext, config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	info := config.Info

	// Viewport and scissor are set per draw.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		LineWidth:   1.0,
		CullMode:    cullMode(info.RasterizerState.CullMode),
		FrontFace:   vk.FrontFaceCounterClockwise,
	}
	if info.RasterizerState.FillMode == metadata.FillModeLine {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
	}
	if info.RasterizerState.FrontFace == metadata.FrontFaceClockwise {
		rasterizerCreateInfo.FrontFace = vk.FrontFaceClockwise
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	ds := info.DepthStencilState
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vkBool(ds.EnableDepthTest),
		DepthWriteEnable:  vkBool(ds.EnableDepthWrite),
		DepthCompareOp:    compareOp(ds.CompareOp),
		StencilTestEnable: vkBool(ds.EnableStencilTest),
		MaxDepthBounds:    1.0,
	}
	stencil := vk.StencilOpState{
		FailOp:      vk.StencilOpKeep,
		PassOp:      vk.StencilOpKeep,
		DepthFailOp: vk.StencilOpKeep,
		CompareOp:   vk.CompareOpAlways,
		CompareMask: uint32(ds.CompareMask),
		WriteMask:   uint32(ds.WriteMask),
	}
	depthStencil.Front = stencil
	depthStencil.Back = stencil

	attachments := make([]vk.PipelineColorBlendAttachmentState, len(info.ColorTargets))
	for i, ct := range info.ColorTargets {
		b := ct.BlendState
		attachments[i] = vk.PipelineColorBlendAttachmentState{
			BlendEnable:         vkBool(b.EnableBlend),
			SrcColorBlendFactor: blendFactor(b.SrcColorFactor),
			DstColorBlendFactor: blendFactor(b.DstColorFactor),
			ColorBlendOp:        blendOp(b.ColorOperation),
			SrcAlphaBlendFactor: blendFactor(b.SrcAlphaFactor),
			DstAlphaBlendFactor: blendFactor(b.DstAlphaFactor),
			AlphaBlendOp:        blendOp(b.AlphaOperation),
			ColorWriteMask:      colorWriteMask(b.ColorWriteMask),
		}
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	bindings := make([]vk.VertexInputBindingDescription, len(info.VertexBuffers))
	for i, vb := range info.VertexBuffers {
		bindings[i] = vk.VertexInputBindingDescription{
			Binding:   vb.Slot,
			Stride:    vb.Pitch,
			InputRate: vk.VertexInputRateVertex,
		}
		if vb.InputRate == metadata.VertexInputRateInstance {
			bindings[i].InputRate = vk.VertexInputRateInstance
		}
	}
	attributes := make([]vk.VertexInputAttributeDescription, len(info.VertexAttributes))
	for i, a := range info.VertexAttributes {
		attributes[i] = vk.VertexInputAttributeDescription{
			Location: a.Location,
			Binding:  a.BufferSlot,
			Format:   vertexFormat(a.Format),
			Offset:   a.Offset,
		}
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: primitiveTopology(info.PrimitiveType),
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(config.Stages)),
		PStages:             config.Stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              config.Layout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             0,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := context.Locks.SafeCall(PipelineManagement, func() error {
		result := vk.CreateGraphicsPipelines(context.Device.LogicalDevice, nil, 1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, context.Allocator, pipelines)
		if !VulkanResultIsSuccess(result) {
			return vulkanError("vkCreateGraphicsPipelines", result)
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	if pipelines[0] == nil {
		return nil, fmt.Errorf("vulkan pipeline handle is nil")
	}

	core.LogDebug("Graphics pipeline created!")
	return &VulkanPipeline{Handle: pipelines[0], Layout: config.Layout}, nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	if pipeline.Handle == nil {
		return
	}
	context.Locks.SafeCall(PipelineManagement, func() error {
		vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
		pipeline.Handle = nil
		return nil
	})
}

func (pipeline *VulkanPipeline) Bind(command vk.CommandBuffer) {
	vk.CmdBindPipeline(command, vk.PipelineBindPointGraphics, pipeline.Handle)
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
