package metadata

import "fmt"

// TextureFormat is the pixel layout of a texture.
type TextureFormat uint8

const (
	TextureFormatInvalid TextureFormat = iota
	TextureFormatR8G8B8A8
	TextureFormatR8
	TextureFormatR8G8
	TextureFormatDepth16
	TextureFormatDepth24
	TextureFormatDepth32
	TextureFormatDepth24Stencil8
	TextureFormatDepth32Stencil8

	// TextureFormatColor is the format used for back-buffers.
	TextureFormatColor = TextureFormatR8G8B8A8
)

// IsDepth reports whether the format is a depth or depth/stencil format.
func (f TextureFormat) IsDepth() bool {
	switch f {
	case TextureFormatDepth16, TextureFormatDepth24, TextureFormatDepth32,
		TextureFormatDepth24Stencil8, TextureFormatDepth32Stencil8:
		return true
	}
	return false
}

func (f TextureFormat) HasStencil() bool {
	return f == TextureFormatDepth24Stencil8 || f == TextureFormatDepth32Stencil8
}

// BytesPerPixel is the size of one texel as uploaded through a transfer buffer.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatR8:
		return 1
	case TextureFormatR8G8, TextureFormatDepth16:
		return 2
	case TextureFormatR8G8B8A8, TextureFormatDepth24, TextureFormatDepth32, TextureFormatDepth24Stencil8:
		return 4
	case TextureFormatDepth32Stencil8:
		return 8
	}
	return 0
}

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatR8G8B8A8:
		return "R8G8B8A8"
	case TextureFormatR8:
		return "R8"
	case TextureFormatR8G8:
		return "R8G8"
	case TextureFormatDepth16:
		return "Depth16"
	case TextureFormatDepth24:
		return "Depth24"
	case TextureFormatDepth32:
		return "Depth32"
	case TextureFormatDepth24Stencil8:
		return "Depth24Stencil8"
	case TextureFormatDepth32Stencil8:
		return "Depth32Stencil8"
	}
	return fmt.Sprintf("TextureFormat(%d)", uint8(f))
}

// TextureUsage flags tell the backend how a texture will be accessed.
type TextureUsage uint32

const (
	TextureUsageSampler TextureUsage = 1 << iota
	TextureUsageColorTarget
	TextureUsageDepthStencilTarget
	TextureUsageTransferSrc
	TextureUsageTransferDst
)

func (u TextureUsage) Has(flag TextureUsage) bool {
	return u&flag == flag
}

type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	// BufferUsageGeneric is for storage buffers read by shaders.
	BufferUsageGeneric
)

func (u BufferUsage) String() string {
	switch u {
	case BufferUsageVertex:
		return "vertex"
	case BufferUsageIndex:
		return "index"
	case BufferUsageGeneric:
		return "generic"
	}
	return fmt.Sprintf("BufferUsage(%d)", uint32(u))
}

type TransferBufferUsage uint8

const (
	TransferBufferUsageUpload TransferBufferUsage = iota
	TransferBufferUsageDownload
)

type IndexFormat uint8

const (
	IndexFormatSixteen IndexFormat = iota
	IndexFormatThirtyTwo
)

// Size returns the size of one index in bytes.
func (f IndexFormat) Size() int {
	if f == IndexFormatThirtyTwo {
		return 4
	}
	return 2
}

type TextureFilter uint8

const (
	TextureFilterNearest TextureFilter = iota
	TextureFilterLinear
)

// VertexType is the component layout of one vertex attribute.
type VertexType uint8

const (
	VertexTypeFloat VertexType = iota
	VertexTypeFloat2
	VertexTypeFloat3
	VertexTypeFloat4
	VertexTypeByte4
	VertexTypeUByte4
	VertexTypeShort2
	VertexTypeUShort2
	VertexTypeShort4
	VertexTypeUShort4
)

// SizeInBytes of one attribute of this type.
func (t VertexType) SizeInBytes() uint32 {
	switch t {
	case VertexTypeFloat:
		return 4
	case VertexTypeFloat2:
		return 8
	case VertexTypeFloat3:
		return 12
	case VertexTypeFloat4:
		return 16
	case VertexTypeByte4, VertexTypeUByte4, VertexTypeShort2, VertexTypeUShort2:
		return 4
	case VertexTypeShort4, VertexTypeUShort4:
		return 8
	}
	return 0
}

// VertexElementFormat is a VertexType together with its normalisation flag,
// which is how backends describe attributes. Floats ignore normalisation.
type VertexElementFormat struct {
	Type       VertexType
	Normalized bool
}

func NewVertexElementFormat(t VertexType, normalized bool) VertexElementFormat {
	switch t {
	case VertexTypeFloat, VertexTypeFloat2, VertexTypeFloat3, VertexTypeFloat4:
		normalized = false
	}
	return VertexElementFormat{Type: t, Normalized: normalized}
}
