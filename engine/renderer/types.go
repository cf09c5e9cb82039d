package renderer

import (
	"github.com/spaghettifunk/anima-gpu/engine/math"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

const defaultEntryPoint = "main"

// ShaderInfo holds the sources of a vertex/fragment pair.
type ShaderInfo struct {
	IncludeDir         string
	VertexSource       []byte
	FragmentSource     []byte
	VertexEntryPoint   string
	FragmentEntryPoint string
	// Uniform slot and sampler counts per stage.
	VertexUniformBuffers   uint32
	FragmentUniformBuffers uint32
	VertexSamplers         uint32
	FragmentSamplers       uint32
}

// ShaderInfoFromSource builds a ShaderInfo where both stages live in one
// source, with entry points named prefix+"Vertex" and prefix+"Fragment".
func ShaderInfoFromSource(source []byte, includeDir, prefix string) ShaderInfo {
	if prefix == "" {
		prefix = defaultEntryPoint
	}
	return ShaderInfo{
		IncludeDir:         includeDir,
		VertexSource:       source,
		FragmentSource:     source,
		VertexEntryPoint:   prefix + "Vertex",
		FragmentEntryPoint: prefix + "Fragment",
	}
}

func (si ShaderInfo) withDefaults() ShaderInfo {
	if si.VertexEntryPoint == "" {
		si.VertexEntryPoint = defaultEntryPoint
	}
	if si.FragmentEntryPoint == "" {
		si.FragmentEntryPoint = defaultEntryPoint
	}
	return si
}

func (si ShaderInfo) stageInfo(stage metadata.ShaderStage) *metadata.ShaderCreateInfo {
	if stage == metadata.ShaderStageFragment {
		return &metadata.ShaderCreateInfo{
			Stage:             stage,
			Code:              si.FragmentSource,
			EntryPoint:        si.FragmentEntryPoint,
			IncludeDir:        si.IncludeDir,
			NumUniformBuffers: si.FragmentUniformBuffers,
			NumSamplers:       si.FragmentSamplers,
		}
	}
	return &metadata.ShaderCreateInfo{
		Stage:             stage,
		Code:              si.VertexSource,
		EntryPoint:        si.VertexEntryPoint,
		IncludeDir:        si.IncludeDir,
		NumUniformBuffers: si.VertexUniformBuffers,
		NumSamplers:       si.VertexSamplers,
	}
}

// VertexAttribute is one element of a vertex. Index is the shader location.
type VertexAttribute struct {
	Index      uint32
	Type       metadata.VertexType
	Normalized bool
}

// VertexLayout describes the elements of one vertex buffer. Attributes are
// tightly packed in declaration order.
type VertexLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

// NewVertexLayout computes the stride from the attribute sizes.
func NewVertexLayout(attributes ...VertexAttribute) *VertexLayout {
	var stride uint32
	for _, a := range attributes {
		stride += a.Type.SizeInBytes()
	}
	return &VertexLayout{Stride: stride, Attributes: attributes}
}

// MaterialProperties are the uniform slots of one shader stage.
type MaterialProperties struct {
	UniformData [metadata.MaxUniformBuffers][]byte
}

// SetUniformData copies data into slot, growing the slot when needed.
func (mp *MaterialProperties) SetUniformData(slot int, data []byte) {
	if slot < 0 || slot >= metadata.MaxUniformBuffers {
		return
	}
	if len(data) > cap(mp.UniformData[slot]) {
		mp.UniformData[slot] = make([]byte, len(data))
	}
	mp.UniformData[slot] = mp.UniformData[slot][:len(data)]
	copy(mp.UniformData[slot], data)
}

/** @brief The shader plus the per-stage uniform data used by a draw. */
type Material struct {
	Shader             *Shader
	VertexProperties   MaterialProperties
	FragmentProperties MaterialProperties
}

func NewMaterial(shader *Shader) *Material {
	return &Material{Shader: shader}
}

/** @brief A single draw call. Built per draw and consumed synchronously. */
type DrawCommand struct {
	RenderTarget  *RenderTarget
	Material      *Material
	VertexBuffers []*Buffer
	// InstanceInputRates marks, per vertex buffer, whether it advances per
	// instance. Missing entries mean per vertex.
	InstanceInputRates []bool
	IndexBuffer        *Buffer
	InstanceCount      uint32
	// IndexOffset is counted in indices, not bytes. The index buffer is bound
	// IndexOffset*indexSize bytes in and drawing starts at its first index.
	IndexOffset  uint32
	VertexOffset int32
	VertexCount  uint32
	IndexCount   uint32
	BlendMode    metadata.BlendMode
	CullMode     metadata.CullMode
	DepthCompare metadata.DepthCompare
	DepthTest    bool
	DepthWrite   bool
	ScissorTest  bool
	ScissorRect  math.Rect
	// Optional clears applied when the pass opens. Nil loads existing contents.
	ClearColour  *metadata.Colour
	ClearDepth   *float32
	ClearStencil *uint8
}

func (dc *DrawCommand) instanceRate(slot int) bool {
	return slot < len(dc.InstanceInputRates) && dc.InstanceInputRates[slot]
}
