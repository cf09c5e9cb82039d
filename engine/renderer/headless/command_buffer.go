package headless

import (
	"encoding/binary"
	"fmt"
	stdmath "math"

	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/math"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

type commandBufferState uint8

const (
	commandBufferStateRecording commandBufferState = iota
	commandBufferStateInCopyPass
	commandBufferStateInRenderPass
	commandBufferStateSubmitted
)

// HeadlessCommandBuffer records work as closures and runs them on submit.
type HeadlessCommandBuffer struct {
	renderer  *HeadlessRenderer
	state     commandBufferState
	ops       []func()
	presents  bool
	swapchain metadata.SwapchainTexture
}

func (cb *HeadlessCommandBuffer) record(op func()) {
	cb.ops = append(cb.ops, op)
}

func (cb *HeadlessCommandBuffer) BeginCopyPass() (metadata.CopyPass, error) {
	if cb.state != commandBufferStateRecording {
		return nil, fmt.Errorf("cannot begin a copy pass in state %d", cb.state)
	}
	cb.state = commandBufferStateInCopyPass
	return &copyPass{cb: cb}, nil
}

func (cb *HeadlessCommandBuffer) BeginRenderPass(colorTargets []metadata.ColorTargetInfo, depthStencil *metadata.DepthStencilTargetInfo) (metadata.RenderPass, error) {
	if cb.state != commandBufferStateRecording {
		return nil, fmt.Errorf("cannot begin a render pass in state %d", cb.state)
	}
	hr := cb.renderer
	if hr.FailRenderPass {
		return nil, fmt.Errorf("render pass refused")
	}
	if len(colorTargets) == 0 && depthStencil == nil {
		return nil, fmt.Errorf("render pass has no attachments")
	}
	colors := make([]*texture, len(colorTargets))
	for i, ct := range colorTargets {
		t, ok := hr.textures[ct.Texture]
		if !ok {
			return nil, fmt.Errorf("unknown colour target %d", ct.Texture)
		}
		colors[i] = t
	}
	var depth *texture
	if depthStencil != nil {
		t, ok := hr.textures[depthStencil.Texture]
		if !ok {
			return nil, fmt.Errorf("unknown depth target %d", depthStencil.Texture)
		}
		depth = t
	}

	rec := PassRecord{ColorTargets: append([]metadata.ColorTargetInfo(nil), colorTargets...)}
	if depthStencil != nil {
		ds := *depthStencil
		rec.DepthStencil = &ds
	}
	hr.Passes = append(hr.Passes, rec)

	for i, ct := range colorTargets {
		if ct.LoadOp == metadata.LoadOpClear {
			t, c := colors[i], ct.ClearColor
			cb.record(func() { clearColor(t, c) })
		}
	}
	if depth != nil {
		ds := *depthStencil
		if ds.LoadOp == metadata.LoadOpClear || ds.StencilLoadOp == metadata.LoadOpClear {
			cb.record(func() { clearDepthStencil(depth, &ds) })
		}
	}

	cb.state = commandBufferStateInRenderPass
	return &renderPass{cb: cb, viewport: metadata.Viewport{W: float32(colorOrDepthWidth(colors, depth)), H: float32(colorOrDepthHeight(colors, depth)), MaxDepth: 1}}, nil
}

func colorOrDepthWidth(colors []*texture, depth *texture) uint32 {
	if len(colors) > 0 {
		return colors[0].info.Width
	}
	return depth.info.Width
}

func colorOrDepthHeight(colors []*texture, depth *texture) uint32 {
	if len(colors) > 0 {
		return colors[0].info.Height
	}
	return depth.info.Height
}

func (cb *HeadlessCommandBuffer) PushVertexUniformData(slot uint32, data []byte) {
	cb.renderer.Uniforms = append(cb.renderer.Uniforms, UniformRecord{Stage: metadata.ShaderStageVertex, Slot: slot, Data: append([]byte(nil), data...)})
}

func (cb *HeadlessCommandBuffer) PushFragmentUniformData(slot uint32, data []byte) {
	cb.renderer.Uniforms = append(cb.renderer.Uniforms, UniformRecord{Stage: metadata.ShaderStageFragment, Slot: slot, Data: append([]byte(nil), data...)})
}

func (cb *HeadlessCommandBuffer) WaitAndAcquireSwapchainTexture() (metadata.SwapchainTexture, error) {
	sc, err := cb.renderer.acquireSwapchain()
	if err != nil {
		return sc, err
	}
	if sc.Handle != metadata.NullHandle {
		cb.presents = true
		cb.swapchain = sc
	}
	return sc, nil
}

func (cb *HeadlessCommandBuffer) Blit(info *metadata.BlitInfo) {
	hr := cb.renderer
	src, okSrc := hr.textures[info.Source.Texture]
	dst, okDst := hr.textures[info.Destination.Texture]
	if !okSrc || !okDst {
		core.LogError("blit between unknown textures %d -> %d", info.Source.Texture, info.Destination.Texture)
		return
	}
	bi := *info
	hr.Blits = append(hr.Blits, bi)
	cb.record(func() {
		if bi.LoadOp == metadata.LoadOpClear {
			clearColor(dst, bi.ClearColor)
		}
		blit(src, dst, &bi)
	})
}

func (cb *HeadlessCommandBuffer) SubmitAndAcquireFence() (metadata.FenceHandle, error) {
	switch cb.state {
	case commandBufferStateSubmitted:
		return metadata.NullHandle, fmt.Errorf("command buffer already submitted")
	case commandBufferStateInCopyPass, commandBufferStateInRenderPass:
		return metadata.NullHandle, fmt.Errorf("command buffer submitted with an open pass")
	}
	for _, op := range cb.ops {
		op()
	}
	cb.ops = nil
	cb.state = commandBufferStateSubmitted

	hr := cb.renderer
	hr.Submits++
	if cb.presents {
		hr.Presents++
	}
	f := metadata.FenceHandle(hr.handle())
	hr.fences[f] = true
	return f, nil
}

type copyPass struct {
	cb *HeadlessCommandBuffer
}

func (cp *copyPass) UploadToBuffer(source metadata.TransferBufferLocation, destination metadata.BufferRegion, cycle bool) {
	hr := cp.cb.renderer
	tb, okSrc := hr.transferBuffers[source.TransferBuffer]
	b, okDst := hr.buffers[destination.Buffer]
	if !okSrc || !okDst {
		core.LogError("upload between unknown objects %d -> %d", source.TransferBuffer, destination.Buffer)
		return
	}
	backing := tb.backing
	tb.pending++
	cp.cb.record(func() {
		copy(b.data[destination.Offset:destination.Offset+destination.Size], backing[source.Offset:source.Offset+destination.Size])
		tb.retire(backing)
	})
}

func (cp *copyPass) UploadToTexture(source metadata.TransferBufferLocation, destination metadata.TextureRegion, cycle bool) {
	hr := cp.cb.renderer
	tb, okSrc := hr.transferBuffers[source.TransferBuffer]
	t, okDst := hr.textures[destination.Texture]
	if !okSrc || !okDst {
		core.LogError("upload between unknown objects %d -> %d", source.TransferBuffer, destination.Texture)
		return
	}
	backing := tb.backing
	tb.pending++
	cp.cb.record(func() {
		bpp := t.info.Format.BytesPerPixel()
		rowBytes := int(destination.W) * bpp
		for y := 0; y < int(destination.H); y++ {
			srcOff := int(source.Offset) + y*rowBytes
			dstOff := ((int(destination.Y)+y)*int(t.info.Width) + int(destination.X)) * bpp
			copy(t.pixels[dstOff:dstOff+rowBytes], backing[srcOff:srcOff+rowBytes])
		}
		tb.retire(backing)
	})
}

func (cp *copyPass) CopyBufferToBuffer(source metadata.BufferRegion, destination metadata.BufferRegion) {
	hr := cp.cb.renderer
	src, okSrc := hr.buffers[source.Buffer]
	dst, okDst := hr.buffers[destination.Buffer]
	if !okSrc || !okDst {
		core.LogError("copy between unknown buffers %d -> %d", source.Buffer, destination.Buffer)
		return
	}
	cp.cb.record(func() {
		copy(dst.data[destination.Offset:destination.Offset+source.Size], src.data[source.Offset:source.Offset+source.Size])
	})
}

func (cp *copyPass) DownloadFromBuffer(source metadata.BufferRegion, destination metadata.TransferBufferLocation) {
	hr := cp.cb.renderer
	src, okSrc := hr.buffers[source.Buffer]
	tb, okDst := hr.transferBuffers[destination.TransferBuffer]
	if !okSrc || !okDst {
		core.LogError("download between unknown objects %d -> %d", source.Buffer, destination.TransferBuffer)
		return
	}
	cp.cb.record(func() {
		copy(tb.backing[destination.Offset:destination.Offset+source.Size], src.data[source.Offset:source.Offset+source.Size])
	})
}

func (cp *copyPass) End() {
	cp.cb.state = commandBufferStateRecording
}

type renderPass struct {
	cb          *HeadlessCommandBuffer
	pipeline    metadata.PipelineHandle
	viewport    metadata.Viewport
	scissor     *math.Rect
	vertex      []metadata.BufferBinding
	index       *metadata.BufferBinding
	indexFormat metadata.IndexFormat
	ended       bool
}

func (rp *renderPass) BindGraphicsPipeline(p metadata.PipelineHandle) {
	rp.pipeline = p
}

func (rp *renderPass) SetViewport(v metadata.Viewport) {
	rp.viewport = v
}

func (rp *renderPass) SetScissor(r math.Rect) {
	rp.scissor = &r
}

func (rp *renderPass) BindVertexBuffers(firstSlot uint32, bindings []metadata.BufferBinding) {
	need := int(firstSlot) + len(bindings)
	for len(rp.vertex) < need {
		rp.vertex = append(rp.vertex, metadata.BufferBinding{})
	}
	copy(rp.vertex[firstSlot:], bindings)
}

func (rp *renderPass) BindIndexBuffer(binding metadata.BufferBinding, format metadata.IndexFormat) {
	b := binding
	rp.index = &b
	rp.indexFormat = format
}

func (rp *renderPass) draw(rec DrawRecord) {
	rec.Pipeline = rp.pipeline
	rec.VertexBuffers = append([]metadata.BufferBinding(nil), rp.vertex...)
	rec.Viewport = rp.viewport
	rec.InPass = !rp.ended
	if rp.scissor != nil {
		s := *rp.scissor
		rec.Scissor = &s
	}
	if rec.Indexed && rp.index != nil {
		ib := *rp.index
		rec.IndexBuffer = &ib
		rec.IndexFormat = rp.indexFormat
	}
	if rp.pipeline == metadata.NullHandle {
		core.LogWarn("draw recorded without a bound pipeline")
	}
	rp.cb.renderer.Draws = append(rp.cb.renderer.Draws, rec)
}

func (rp *renderPass) DrawPrimitives(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	rp.draw(DrawRecord{Count: vertexCount, Instances: instanceCount, First: firstVertex})
}

func (rp *renderPass) DrawIndexedPrimitives(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	rp.draw(DrawRecord{Indexed: true, Count: indexCount, Instances: instanceCount, First: firstIndex, VertexOffset: vertexOffset})
}

func (rp *renderPass) End() {
	rp.ended = true
	rp.cb.state = commandBufferStateRecording
}

func clearColor(t *texture, c metadata.Colour) {
	rgba := c.RGBA8()
	bpp := t.info.Format.BytesPerPixel()
	if t.info.Format.IsDepth() {
		return
	}
	for i := 0; i+bpp <= len(t.pixels); i += bpp {
		copy(t.pixels[i:i+bpp], rgba[:bpp])
	}
}

// clearDepthStencil stores depth as a little-endian float32 in the first four
// bytes of every texel and stencil in the byte after it, when present.
func clearDepthStencil(t *texture, ds *metadata.DepthStencilTargetInfo) {
	bpp := t.info.Format.BytesPerPixel()
	bits := stdmath.Float32bits(ds.ClearDepth)
	for i := 0; i+bpp <= len(t.pixels); i += bpp {
		if ds.LoadOp == metadata.LoadOpClear && bpp >= 4 {
			binary.LittleEndian.PutUint32(t.pixels[i:], bits)
		} else if ds.LoadOp == metadata.LoadOpClear && bpp == 2 {
			binary.LittleEndian.PutUint16(t.pixels[i:], uint16(ds.ClearDepth*stdmath.MaxUint16))
		}
		if ds.StencilLoadOp == metadata.LoadOpClear && t.info.Format.HasStencil() {
			t.pixels[i+bpp-1] = ds.ClearStencil
		}
	}
}

// blit copies with nearest sampling.
func blit(src, dst *texture, info *metadata.BlitInfo) {
	bpp := src.info.Format.BytesPerPixel()
	if bpp != dst.info.Format.BytesPerPixel() {
		core.LogError("blit between incompatible formats %s -> %s", src.info.Format, dst.info.Format)
		return
	}
	s, d := info.Source, info.Destination
	if d.W == 0 || d.H == 0 || s.W == 0 || s.H == 0 {
		return
	}
	for y := uint32(0); y < d.H; y++ {
		sy := y * s.H / d.H
		if info.FlipY {
			sy = s.H - 1 - sy
		}
		for x := uint32(0); x < d.W; x++ {
			sx := x * s.W / d.W
			if info.FlipX {
				sx = s.W - 1 - sx
			}
			so := (int(s.Y+sy)*int(src.info.Width) + int(s.X+sx)) * bpp
			do := (int(d.Y+y)*int(dst.info.Width) + int(d.X+x)) * bpp
			copy(dst.pixels[do:do+bpp], src.pixels[so:so+bpp])
		}
	}
}
