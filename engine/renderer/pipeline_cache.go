package renderer

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

type pipelineEntry struct {
	key      string
	pipeline metadata.PipelineHandle
}

// PipelineCache maps draw state to compiled pipelines. Entries are bucketed
// by an FNV-1a hash of the key and the full key is compared on lookup, so
// colliding states never share a pipeline. The cache only grows.
type PipelineCache struct {
	buckets map[uint64][]pipelineEntry
	count   int
	hits    uint64
	misses  uint64
}

func newPipelineCache() *PipelineCache {
	return &PipelineCache{buckets: make(map[uint64][]pipelineEntry)}
}

func (pc *PipelineCache) lookup(hash uint64, key string) (metadata.PipelineHandle, bool) {
	for _, e := range pc.buckets[hash] {
		if e.key == key {
			return e.pipeline, true
		}
	}
	return metadata.NullHandle, false
}

func (pc *PipelineCache) insert(hash uint64, key string, p metadata.PipelineHandle) {
	pc.buckets[hash] = append(pc.buckets[hash], pipelineEntry{key: key, pipeline: p})
	pc.count++
}

func (pc *PipelineCache) release(backend metadata.RendererBackend) {
	for _, bucket := range pc.buckets {
		for _, e := range bucket {
			backend.GraphicsPipelineRelease(e.pipeline)
		}
	}
	pc.buckets = make(map[uint64][]pipelineEntry)
	pc.count = 0
}

// Len is the number of cached pipelines.
func (pc *PipelineCache) Len() int { return pc.count }

// Stats returns the number of lookups served from the cache and the number
// that required a build.
func (pc *PipelineCache) Stats() (hits, misses uint64) { return pc.hits, pc.misses }

// pipelineKey encodes every piece of draw state that affects the pipeline.
func pipelineKey(cmd *DrawCommand) string {
	k := make([]byte, 0, 128)
	k = binary.LittleEndian.AppendUint64(k, cmd.Material.Shader.serial)
	k = append(k, byte(cmd.CullMode), byte(cmd.DepthCompare), boolByte(cmd.DepthTest), boolByte(cmd.DepthWrite))
	bm := cmd.BlendMode
	k = append(k,
		byte(bm.ColorOperation), byte(bm.ColorSource), byte(bm.ColorDestination),
		byte(bm.AlphaOperation), byte(bm.AlphaSource), byte(bm.AlphaDestination),
		byte(bm.Mask),
	)
	if cmd.IndexBuffer != nil {
		k = append(k, 1, byte(cmd.IndexBuffer.indexFormat))
	} else {
		k = append(k, 0)
	}
	k = binary.LittleEndian.AppendUint32(k, uint32(len(cmd.VertexBuffers)))
	for slot, vb := range cmd.VertexBuffers {
		k = binary.LittleEndian.AppendUint32(k, vb.layout.Stride)
		k = binary.LittleEndian.AppendUint32(k, uint32(len(vb.layout.Attributes)))
		for _, a := range vb.layout.Attributes {
			k = binary.LittleEndian.AppendUint32(k, a.Index)
			k = append(k, byte(a.Type), boolByte(a.Normalized))
		}
		k = append(k, boolByte(cmd.instanceRate(slot)))
	}
	for _, f := range cmd.RenderTarget.Formats() {
		k = append(k, byte(f))
	}
	return string(k)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func hashKey(key string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return h.Sum64()
}

// resolvePipeline returns the cached pipeline for cmd, building it on a miss.
// Failed builds are not cached.
func (r *Renderer) resolvePipeline(cmd *DrawCommand) (metadata.PipelineHandle, error) {
	key := pipelineKey(cmd)
	hash := hashKey(key)
	if p, ok := r.pipelines.lookup(hash, key); ok {
		r.pipelines.hits++
		return p, nil
	}
	r.pipelines.misses++

	p, err := r.backend.GraphicsPipelineCreate(buildPipelineInfo(cmd))
	if err != nil {
		err = fmt.Errorf("failed to create graphics pipeline for shader `%s`: %s: %w", cmd.Material.Shader.name, err, core.ErrDevice)
		core.LogError(err.Error())
		return metadata.NullHandle, err
	}
	r.pipelines.insert(hash, key, p)
	core.LogDebug("pipeline cache miss for shader `%s`, %d pipelines cached", cmd.Material.Shader.name, r.pipelines.Len())
	return p, nil
}

func buildPipelineInfo(cmd *DrawCommand) *metadata.PipelineCreateInfo {
	shader := cmd.Material.Shader
	info := &metadata.PipelineCreateInfo{
		VertexShader:   shader.vertex,
		FragmentShader: shader.fragment,
		PrimitiveType:  metadata.PrimitiveTypeTriangleList,
		RasterizerState: metadata.RasterizerState{
			FillMode:  metadata.FillModeFill,
			CullMode:  cmd.CullMode,
			FrontFace: metadata.FrontFaceClockwise,
		},
		SampleCount: 1,
		DepthStencilState: metadata.DepthStencilState{
			CompareOp:        cmd.DepthCompare,
			CompareMask:      0xFF,
			WriteMask:        0xFF,
			EnableDepthTest:  cmd.DepthTest,
			EnableDepthWrite: cmd.DepthWrite,
		},
		VertexUniformBuffers:   shader.Info.VertexUniformBuffers,
		FragmentUniformBuffers: shader.Info.FragmentUniformBuffers,
	}

	for slot, vb := range cmd.VertexBuffers {
		rate := metadata.VertexInputRateVertex
		if cmd.instanceRate(slot) {
			rate = metadata.VertexInputRateInstance
		}
		info.VertexBuffers = append(info.VertexBuffers, metadata.VertexBufferDescription{
			Slot:      uint32(slot),
			Pitch:     vb.layout.Stride,
			InputRate: rate,
		})
		var offset uint32
		for _, el := range vb.layout.Attributes {
			info.VertexAttributes = append(info.VertexAttributes, metadata.VertexAttributeDescription{
				Location:   el.Index,
				BufferSlot: uint32(slot),
				Format:     metadata.NewVertexElementFormat(el.Type, el.Normalized),
				Offset:     offset,
			})
			offset += el.Type.SizeInBytes()
		}
	}

	blend := blendState(cmd.BlendMode)
	for _, f := range cmd.RenderTarget.Formats() {
		if f.IsDepth() {
			info.HasDepthStencil = true
			info.DepthStencilFormat = f
			continue
		}
		info.ColorTargets = append(info.ColorTargets, metadata.ColorTargetDescription{Format: f, BlendState: blend})
	}
	return info
}

func blendState(bm metadata.BlendMode) metadata.ColorTargetBlendState {
	return metadata.ColorTargetBlendState{
		EnableBlend:    true,
		ColorOperation: bm.ColorOperation,
		SrcColorFactor: bm.ColorSource,
		DstColorFactor: bm.ColorDestination,
		AlphaOperation: bm.AlphaOperation,
		SrcAlphaFactor: bm.AlphaSource,
		DstAlphaFactor: bm.AlphaDestination,
		ColorWriteMask: bm.Mask,
	}
}

// PipelineCache exposes the cache for diagnostics.
func (r *Renderer) PipelineCache() *PipelineCache {
	return r.pipelines
}
