package metadata

type VertexInputRate uint8

const (
	VertexInputRateVertex VertexInputRate = iota
	VertexInputRateInstance
)

type VertexBufferDescription struct {
	Slot      uint32
	Pitch     uint32
	InputRate VertexInputRate
}

type VertexAttributeDescription struct {
	Location   uint32
	BufferSlot uint32
	Format     VertexElementFormat
	Offset     uint32
}

type ColorTargetBlendState struct {
	EnableBlend    bool
	ColorOperation BlendOp
	SrcColorFactor BlendFactor
	DstColorFactor BlendFactor
	AlphaOperation BlendOp
	SrcAlphaFactor BlendFactor
	DstAlphaFactor BlendFactor
	ColorWriteMask BlendMask
}

type ColorTargetDescription struct {
	Format     TextureFormat
	BlendState ColorTargetBlendState
}

type FillMode uint8

const (
	FillModeFill FillMode = iota
	FillModeLine
)

type FrontFace uint8

const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

type PrimitiveType uint8

const (
	PrimitiveTypeTriangleList PrimitiveType = iota
	PrimitiveTypeTriangleStrip
	PrimitiveTypeLineList
	PrimitiveTypePointList
)

type RasterizerState struct {
	FillMode  FillMode
	CullMode  CullMode
	FrontFace FrontFace
}

type DepthStencilState struct {
	CompareOp         DepthCompare
	CompareMask       uint8
	WriteMask         uint8
	EnableDepthTest   bool
	EnableDepthWrite  bool
	EnableStencilTest bool
}

/** @brief Everything a backend needs to build one graphics pipeline. */
type PipelineCreateInfo struct {
	VertexShader       ShaderHandle
	FragmentShader     ShaderHandle
	VertexBuffers      []VertexBufferDescription
	VertexAttributes   []VertexAttributeDescription
	PrimitiveType      PrimitiveType
	RasterizerState    RasterizerState
	SampleCount        uint32
	DepthStencilState  DepthStencilState
	ColorTargets       []ColorTargetDescription
	HasDepthStencil    bool
	DepthStencilFormat TextureFormat
	// Uniform slot counts per stage, used to size push constants / descriptor layouts.
	VertexUniformBuffers   uint32
	FragmentUniformBuffers uint32
}
