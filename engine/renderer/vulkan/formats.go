package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

func textureFormat(f metadata.TextureFormat) vk.Format {
	switch f {
	case metadata.TextureFormatR8G8B8A8:
		return vk.FormatR8g8b8a8Unorm
	case metadata.TextureFormatR8:
		return vk.FormatR8Unorm
	case metadata.TextureFormatR8G8:
		return vk.FormatR8g8Unorm
	case metadata.TextureFormatDepth16:
		return vk.FormatD16Unorm
	case metadata.TextureFormatDepth24:
		return vk.FormatX8D24UnormPack32
	case metadata.TextureFormatDepth32:
		return vk.FormatD32Sfloat
	case metadata.TextureFormatDepth24Stencil8:
		return vk.FormatD24UnormS8Uint
	case metadata.TextureFormatDepth32Stencil8:
		return vk.FormatD32SfloatS8Uint
	}
	return vk.FormatUndefined
}

func textureAspect(f metadata.TextureFormat) vk.ImageAspectFlags {
	switch {
	case f.HasStencil():
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
	case f.IsDepth():
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

func textureUsage(u metadata.TextureUsage) vk.ImageUsageFlags {
	// Every texture can be filled and read back through copies.
	flags := vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit
	if u.Has(metadata.TextureUsageSampler) {
		flags |= vk.ImageUsageSampledBit
	}
	if u.Has(metadata.TextureUsageColorTarget) {
		flags |= vk.ImageUsageColorAttachmentBit
	}
	if u.Has(metadata.TextureUsageDepthStencilTarget) {
		flags |= vk.ImageUsageDepthStencilAttachmentBit
	}
	return vk.ImageUsageFlags(flags)
}

func restingLayout(f metadata.TextureFormat, u metadata.TextureUsage) vk.ImageLayout {
	switch {
	case f.IsDepth():
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case u.Has(metadata.TextureUsageColorTarget):
		return vk.ImageLayoutColorAttachmentOptimal
	}
	return vk.ImageLayoutShaderReadOnlyOptimal
}

func bufferUsage(u metadata.BufferUsage) vk.BufferUsageFlags {
	flags := vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit
	if u&metadata.BufferUsageVertex != 0 {
		flags |= vk.BufferUsageVertexBufferBit
	}
	if u&metadata.BufferUsageIndex != 0 {
		flags |= vk.BufferUsageIndexBufferBit
	}
	if u&metadata.BufferUsageGeneric != 0 {
		flags |= vk.BufferUsageStorageBufferBit
	}
	return vk.BufferUsageFlags(flags)
}

func vertexFormat(f metadata.VertexElementFormat) vk.Format {
	switch f.Type {
	case metadata.VertexTypeFloat:
		return vk.FormatR32Sfloat
	case metadata.VertexTypeFloat2:
		return vk.FormatR32g32Sfloat
	case metadata.VertexTypeFloat3:
		return vk.FormatR32g32b32Sfloat
	case metadata.VertexTypeFloat4:
		return vk.FormatR32g32b32a32Sfloat
	case metadata.VertexTypeByte4:
		if f.Normalized {
			return vk.FormatR8g8b8a8Snorm
		}
		return vk.FormatR8g8b8a8Sint
	case metadata.VertexTypeUByte4:
		if f.Normalized {
			return vk.FormatR8g8b8a8Unorm
		}
		return vk.FormatR8g8b8a8Uint
	case metadata.VertexTypeShort2:
		if f.Normalized {
			return vk.FormatR16g16Snorm
		}
		return vk.FormatR16g16Sint
	case metadata.VertexTypeUShort2:
		if f.Normalized {
			return vk.FormatR16g16Unorm
		}
		return vk.FormatR16g16Uint
	case metadata.VertexTypeShort4:
		if f.Normalized {
			return vk.FormatR16g16b16a16Snorm
		}
		return vk.FormatR16g16b16a16Sint
	case metadata.VertexTypeUShort4:
		if f.Normalized {
			return vk.FormatR16g16b16a16Unorm
		}
		return vk.FormatR16g16b16a16Uint
	}
	return vk.FormatUndefined
}

func indexType(f metadata.IndexFormat) vk.IndexType {
	if f == metadata.IndexFormatThirtyTwo {
		return vk.IndexTypeUint32
	}
	return vk.IndexTypeUint16
}

func loadOp(op metadata.LoadOp) vk.AttachmentLoadOp {
	switch op {
	case metadata.LoadOpClear:
		return vk.AttachmentLoadOpClear
	case metadata.LoadOpDontCare:
		return vk.AttachmentLoadOpDontCare
	}
	return vk.AttachmentLoadOpLoad
}

func storeOp(op metadata.StoreOp) vk.AttachmentStoreOp {
	if op == metadata.StoreOpDontCare {
		return vk.AttachmentStoreOpDontCare
	}
	return vk.AttachmentStoreOpStore
}

func compareOp(c metadata.DepthCompare) vk.CompareOp {
	switch c {
	case metadata.DepthCompareNever:
		return vk.CompareOpNever
	case metadata.DepthCompareLess:
		return vk.CompareOpLess
	case metadata.DepthCompareEqual:
		return vk.CompareOpEqual
	case metadata.DepthCompareLessOrEqual:
		return vk.CompareOpLessOrEqual
	case metadata.DepthCompareGreater:
		return vk.CompareOpGreater
	case metadata.DepthCompareNotEqual:
		return vk.CompareOpNotEqual
	case metadata.DepthCompareGreaterOrEqual:
		return vk.CompareOpGreaterOrEqual
	}
	return vk.CompareOpAlways
}

func cullMode(c metadata.CullMode) vk.CullModeFlags {
	switch c {
	case metadata.CullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.CullModeBack:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
	return vk.CullModeFlags(vk.CullModeNone)
}

func blendFactor(f metadata.BlendFactor) vk.BlendFactor {
	switch f {
	case metadata.BlendFactorOne:
		return vk.BlendFactorOne
	case metadata.BlendFactorSrcColor:
		return vk.BlendFactorSrcColor
	case metadata.BlendFactorOneMinusSrcColor:
		return vk.BlendFactorOneMinusSrcColor
	case metadata.BlendFactorDstColor:
		return vk.BlendFactorDstColor
	case metadata.BlendFactorOneMinusDstColor:
		return vk.BlendFactorOneMinusDstColor
	case metadata.BlendFactorSrcAlpha:
		return vk.BlendFactorSrcAlpha
	case metadata.BlendFactorOneMinusSrcAlpha:
		return vk.BlendFactorOneMinusSrcAlpha
	case metadata.BlendFactorDstAlpha:
		return vk.BlendFactorDstAlpha
	case metadata.BlendFactorOneMinusDstAlpha:
		return vk.BlendFactorOneMinusDstAlpha
	case metadata.BlendFactorConstantColor:
		return vk.BlendFactorConstantColor
	case metadata.BlendFactorOneMinusConstantColor:
		return vk.BlendFactorOneMinusConstantColor
	case metadata.BlendFactorSrcAlphaSaturate:
		return vk.BlendFactorSrcAlphaSaturate
	}
	return vk.BlendFactorZero
}

func blendOp(op metadata.BlendOp) vk.BlendOp {
	switch op {
	case metadata.BlendOpSubtract:
		return vk.BlendOpSubtract
	case metadata.BlendOpReverseSubtract:
		return vk.BlendOpReverseSubtract
	case metadata.BlendOpMin:
		return vk.BlendOpMin
	case metadata.BlendOpMax:
		return vk.BlendOpMax
	}
	return vk.BlendOpAdd
}

func colorWriteMask(m metadata.BlendMask) vk.ColorComponentFlags {
	var flags vk.ColorComponentFlagBits
	if m&metadata.BlendMaskR != 0 {
		flags |= vk.ColorComponentRBit
	}
	if m&metadata.BlendMaskG != 0 {
		flags |= vk.ColorComponentGBit
	}
	if m&metadata.BlendMaskB != 0 {
		flags |= vk.ColorComponentBBit
	}
	if m&metadata.BlendMaskA != 0 {
		flags |= vk.ColorComponentABit
	}
	return vk.ColorComponentFlags(flags)
}

func primitiveTopology(p metadata.PrimitiveType) vk.PrimitiveTopology {
	switch p {
	case metadata.PrimitiveTypeTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case metadata.PrimitiveTypeLineList:
		return vk.PrimitiveTopologyLineList
	case metadata.PrimitiveTypePointList:
		return vk.PrimitiveTopologyPointList
	}
	return vk.PrimitiveTopologyTriangleList
}
