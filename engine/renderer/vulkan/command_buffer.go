package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	emath "github.com/spaghettifunk/anima-gpu/engine/math"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_COPY_PASS
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	commandBuffer := &VulkanCommandBuffer{
		State: COMMAND_BUFFER_STATE_NOT_ALLOCATED,
	}

	level := vk.CommandBufferLevelSecondary
	if isPrimary {
		level = vk.CommandBufferLevelPrimary
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	err := context.Locks.SafeCall(ResourceManagement, func() error {
		if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
			return vulkanError("vkAllocateCommandBuffers", res)
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	commandBuffer.Handle = handles[0]
	commandBuffer.State = COMMAND_BUFFER_STATE_READY
	return commandBuffer, nil
}

func (v *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	if v.Handle == nil {
		return
	}
	context.Locks.SafeCall(ResourceManagement, func() error {
		vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{v.Handle})
		return nil
	})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if res := vk.BeginCommandBuffer(v.Handle, &beginInfo); res != vk.Success {
		err := vulkanError("vkBeginCommandBuffer", res)
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		err := vulkanError("vkEndCommandBuffer", res)
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (v *VulkanCommandBuffer) Reset() error {
	if res := vk.ResetCommandBuffer(v.Handle, 0); res != vk.Success {
		return vulkanError("vkResetCommandBuffer", res)
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

/**
 * Allocates and begins recording a one-off command buffer.
 */
func AllocateAndBeginSingleUse(context *VulkanContext, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(context, pool, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		cb.Free(context, pool)
		return nil, err
	}
	return cb, nil
}

/**
 * Ends recording, submits, waits for the queue to drain and frees the command buffer.
 */
func (v *VulkanCommandBuffer) EndSingleUse(context *VulkanContext, pool vk.CommandPool, queue vk.Queue) error {
	defer v.Free(context, pool)
	if err := v.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.Handle},
	}
	return context.Locks.SafeQueueCall(context.Device.GraphicsQueueIndex, func() error {
		if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, nil); res != vk.Success {
			return vulkanError("vkQueueSubmit", res)
		}
		if res := vk.QueueWaitIdle(queue); res != vk.Success {
			return vulkanError("vkQueueWaitIdle", res)
		}
		return nil
	})
}

// frameCommandBuffer is the recording handed out by AcquireCommandBuffer.
// It is pooled together with its fence, semaphores and uniform ring.
type frameCommandBuffer struct {
	vr       *VulkanRenderer
	cmd      *VulkanCommandBuffer
	fence    *VulkanFence
	uniforms *VulkanUniformRing

	imageAvailable vk.Semaphore
	renderComplete vk.Semaphore

	// Transfer allocations read or written by this command buffer.
	retained []*transferAllocation

	swapchainImage *VulkanImage
	swapchainIndex uint32
}

func newFrameCommandBuffer(vr *VulkanRenderer) (*frameCommandBuffer, error) {
	context := vr.context
	fcb := &frameCommandBuffer{vr: vr}
	var err error
	if fcb.cmd, err = NewVulkanCommandBuffer(context, context.Device.GraphicsCommandPool, true); err != nil {
		return nil, err
	}
	if fcb.fence, err = NewFence(context, false); err != nil {
		fcb.destroy()
		return nil, err
	}
	if fcb.uniforms, err = UniformRingCreate(context, vr.uniformLayout); err != nil {
		fcb.destroy()
		return nil, err
	}
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for _, s := range []*vk.Semaphore{&fcb.imageAvailable, &fcb.renderComplete} {
		if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, s); res != vk.Success {
			fcb.destroy()
			return nil, vulkanError("vkCreateSemaphore", res)
		}
	}
	return fcb, nil
}

func (fcb *frameCommandBuffer) destroy() {
	context := fcb.vr.context
	device := context.Device.LogicalDevice
	for _, s := range []*vk.Semaphore{&fcb.imageAvailable, &fcb.renderComplete} {
		if *s != nil {
			vk.DestroySemaphore(device, *s, context.Allocator)
			*s = nil
		}
	}
	if fcb.uniforms != nil {
		fcb.uniforms.Destroy(context)
	}
	if fcb.fence != nil {
		fcb.fence.FenceDestroy(context)
	}
	if fcb.cmd != nil {
		fcb.cmd.Free(context, context.Device.GraphicsCommandPool)
	}
}

func (fcb *frameCommandBuffer) begin() error {
	if err := fcb.cmd.Reset(); err != nil {
		return err
	}
	if err := fcb.fence.FenceReset(fcb.vr.context); err != nil {
		return err
	}
	fcb.uniforms.reset()
	fcb.swapchainImage = nil
	return fcb.cmd.Begin(true, false, false)
}

func (fcb *frameCommandBuffer) retain(a *transferAllocation) {
	a.refs++
	fcb.retained = append(fcb.retained, a)
}

// release drops the command buffer's claims once its fence has signalled.
func (fcb *frameCommandBuffer) release() {
	for _, a := range fcb.retained {
		a.refs--
	}
	fcb.retained = fcb.retained[:0]
	fcb.cmd.State = COMMAND_BUFFER_STATE_READY
}

func (fcb *frameCommandBuffer) BeginCopyPass() (metadata.CopyPass, error) {
	if fcb.cmd.State != COMMAND_BUFFER_STATE_RECORDING {
		return nil, fmt.Errorf("cannot begin a copy pass in state %d", fcb.cmd.State)
	}
	fcb.cmd.State = COMMAND_BUFFER_STATE_IN_COPY_PASS
	memoryBarrier(fcb.cmd.Handle)
	return &copyPass{fcb: fcb}, nil
}

func (fcb *frameCommandBuffer) BeginRenderPass(colorTargets []metadata.ColorTargetInfo, depthStencil *metadata.DepthStencilTargetInfo) (metadata.RenderPass, error) {
	if fcb.cmd.State != COMMAND_BUFFER_STATE_RECORDING {
		return nil, fmt.Errorf("cannot begin a render pass in state %d", fcb.cmd.State)
	}
	if len(colorTargets) == 0 && depthStencil == nil {
		return nil, fmt.Errorf("render pass has no attachments")
	}
	if len(colorTargets) > maxColorTargets {
		return nil, fmt.Errorf("render pass with %d colour targets exceeds %d", len(colorTargets), maxColorTargets)
	}
	vr := fcb.vr

	var key renderpassKey
	var views []vk.ImageView
	var clears []vk.ClearValue
	width, height := uint32(math.MaxUint32), uint32(math.MaxUint32)
	for i, ct := range colorTargets {
		image, ok := vr.textures[ct.Texture]
		if !ok {
			return nil, fmt.Errorf("unknown colour target %d", ct.Texture)
		}
		key.Colors[i] = renderpassAttachment{Format: image.Format, LoadOp: loadOp(ct.LoadOp), StoreOp: storeOp(ct.StoreOp)}
		views = append(views, image.View)
		clears = append(clears, vk.NewClearValue([]float32{ct.ClearColor.R, ct.ClearColor.G, ct.ClearColor.B, ct.ClearColor.A}))
		width, height = emath.Min(width, image.Width), emath.Min(height, image.Height)
	}
	key.ColorCount = len(colorTargets)
	if depthStencil != nil {
		image, ok := vr.textures[depthStencil.Texture]
		if !ok {
			return nil, fmt.Errorf("unknown depth target %d", depthStencil.Texture)
		}
		key.Depth = renderpassAttachment{Format: image.Format, LoadOp: loadOp(depthStencil.LoadOp), StoreOp: storeOp(depthStencil.StoreOp)}
		key.StencilLoadOp = loadOp(depthStencil.StencilLoadOp)
		key.StencilStoreOp = storeOp(depthStencil.StencilStoreOp)
		views = append(views, image.View)
		clears = append(clears, vk.NewClearDepthStencil(depthStencil.ClearDepth, uint32(depthStencil.ClearStencil)))
		width, height = emath.Min(width, image.Width), emath.Min(height, image.Height)
	}

	rp, err := vr.renderpasses.fetch(vr.context, key)
	if err != nil {
		return nil, err
	}
	fb, err := vr.framebuffers.fetch(vr.context, rp, views, width, height)
	if err != nil {
		return nil, err
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.Handle,
		Framebuffer: fb.Handle,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: width, Height: height},
		},
		ClearValueCount: uint32(len(clears)),
		PClearValues:    clears,
	}
	vk.CmdBeginRenderPass(fcb.cmd.Handle, &beginInfo, vk.SubpassContentsInline)
	fcb.cmd.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
	return &renderPass{fcb: fcb, width: width, height: height}, nil
}

func (fcb *frameCommandBuffer) PushVertexUniformData(slot uint32, data []byte) {
	fcb.uniforms.pushStage(false, slot, data)
}

func (fcb *frameCommandBuffer) PushFragmentUniformData(slot uint32, data []byte) {
	fcb.uniforms.pushStage(true, slot, data)
}

func (fcb *frameCommandBuffer) WaitAndAcquireSwapchainTexture() (metadata.SwapchainTexture, error) {
	if fcb.swapchainImage != nil {
		return metadata.SwapchainTexture{}, fmt.Errorf("swapchain texture already acquired by this command buffer")
	}
	vr := fcb.vr
	if err := vr.ensureSwapchain(); err != nil {
		return metadata.SwapchainTexture{}, err
	}
	if vr.context.Swapchain == nil {
		return metadata.SwapchainTexture{}, nil
	}
	sc := vr.context.Swapchain
	index, ok, err := sc.SwapchainAcquireNextImageIndex(vr.context, math.MaxUint64, fcb.imageAvailable)
	if err != nil {
		return metadata.SwapchainTexture{}, err
	}
	if !ok {
		// Out of date. The next frame recreates the chain.
		return metadata.SwapchainTexture{}, nil
	}
	fcb.swapchainImage = sc.Images[index]
	fcb.swapchainIndex = index
	return metadata.SwapchainTexture{
		Handle: vr.swapchainHandles[index],
		Width:  sc.Extent.Width,
		Height: sc.Extent.Height,
	}, nil
}

func (fcb *frameCommandBuffer) Blit(info *metadata.BlitInfo) {
	if fcb.cmd.State != COMMAND_BUFFER_STATE_RECORDING {
		core.LogWarn("blit ignored in command buffer state %d", fcb.cmd.State)
		return
	}
	vr := fcb.vr
	src, ok := vr.textures[info.Source.Texture]
	dst, ok2 := vr.textures[info.Destination.Texture]
	if !ok || !ok2 {
		core.LogWarn("blit between unknown textures %d and %d ignored", info.Source.Texture, info.Destination.Texture)
		return
	}
	if info.LoadOp == metadata.LoadOpClear {
		core.LogDebug("blit clear is not supported, the destination region is overwritten")
	}

	srcOffsets := [2]vk.Offset3D{
		{X: int32(info.Source.X), Y: int32(info.Source.Y), Z: 0},
		{X: int32(info.Source.X + info.Source.W), Y: int32(info.Source.Y + info.Source.H), Z: 1},
	}
	if info.FlipX {
		srcOffsets[0].X, srcOffsets[1].X = srcOffsets[1].X, srcOffsets[0].X
	}
	if info.FlipY {
		srcOffsets[0].Y, srcOffsets[1].Y = srcOffsets[1].Y, srcOffsets[0].Y
	}
	region := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{AspectMask: src.Aspect, LayerCount: 1},
		SrcOffsets:     srcOffsets,
		DstSubresource: vk.ImageSubresourceLayers{AspectMask: dst.Aspect, LayerCount: 1},
		DstOffsets: [2]vk.Offset3D{
			{X: int32(info.Destination.X), Y: int32(info.Destination.Y), Z: 0},
			{X: int32(info.Destination.X + info.Destination.W), Y: int32(info.Destination.Y + info.Destination.H), Z: 1},
		},
	}
	filter := vk.FilterNearest
	if info.Filter == metadata.TextureFilterLinear {
		filter = vk.FilterLinear
	}

	command := fcb.cmd.Handle
	src.TransitionTo(command, vk.ImageLayoutTransferSrcOptimal)
	dst.TransitionTo(command, vk.ImageLayoutTransferDstOptimal)
	vk.CmdBlitImage(command, src.Handle, vk.ImageLayoutTransferSrcOptimal, dst.Handle, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{region}, filter)
	src.Restore(command)
	dst.Restore(command)
}

func (fcb *frameCommandBuffer) SubmitAndAcquireFence() (metadata.FenceHandle, error) {
	if fcb.cmd.State != COMMAND_BUFFER_STATE_RECORDING {
		return metadata.NullHandle, fmt.Errorf("cannot submit a command buffer in state %d", fcb.cmd.State)
	}
	vr := fcb.vr
	context := vr.context
	presenting := fcb.swapchainImage != nil
	if presenting {
		fcb.swapchainImage.Restore(fcb.cmd.Handle)
	}
	if err := fcb.cmd.End(); err != nil {
		return metadata.NullHandle, err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{fcb.cmd.Handle},
	}
	if presenting {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{fcb.imageAvailable}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)}
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{fcb.renderComplete}
	}
	err := context.Locks.SafeQueueCall(context.Device.GraphicsQueueIndex, func() error {
		if res := vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fcb.fence.Handle); res != vk.Success {
			return vulkanError("vkQueueSubmit", res)
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return metadata.NullHandle, err
	}
	fcb.cmd.UpdateSubmitted()

	if presenting {
		if err := context.Swapchain.SwapchainPresent(context, fcb.renderComplete, fcb.swapchainIndex); err != nil {
			core.LogError(err.Error())
		}
	}

	handle := metadata.FenceHandle(vr.handle())
	vr.fences[handle] = fcb
	return handle, nil
}

type copyPass struct {
	fcb *frameCommandBuffer
}

func (cp *copyPass) transfer(h metadata.TransferBufferHandle) *transferAllocation {
	tb, ok := cp.fcb.vr.transferBuffers[h]
	if !ok {
		core.LogWarn("copy from unknown transfer buffer %d ignored", h)
		return nil
	}
	cp.fcb.retain(tb.active)
	return tb.active
}

func (cp *copyPass) buffer(h metadata.BufferHandle) *VulkanBuffer {
	b, ok := cp.fcb.vr.buffers[h]
	if !ok {
		core.LogWarn("copy with unknown buffer %d ignored", h)
	}
	return b
}

// UploadToBuffer ignores cycle. CopyBufferToBuffer ends with a barrier, so an
// upload into freshly grown storage lands after the preserved contents.
func (cp *copyPass) UploadToBuffer(source metadata.TransferBufferLocation, destination metadata.BufferRegion, cycle bool) {
	dst := cp.buffer(destination.Buffer)
	if dst == nil {
		return
	}
	src := cp.transfer(source.TransferBuffer)
	if src == nil {
		return
	}
	vk.CmdCopyBuffer(cp.fcb.cmd.Handle, src.buffer.Handle, dst.Handle, 1, []vk.BufferCopy{{
		SrcOffset: vk.DeviceSize(source.Offset),
		DstOffset: vk.DeviceSize(destination.Offset),
		Size:      vk.DeviceSize(destination.Size),
	}})
}

func (cp *copyPass) UploadToTexture(source metadata.TransferBufferLocation, destination metadata.TextureRegion, cycle bool) {
	image, ok := cp.fcb.vr.textures[destination.Texture]
	if !ok {
		core.LogWarn("upload into unknown texture %d ignored", destination.Texture)
		return
	}
	src := cp.transfer(source.TransferBuffer)
	if src == nil {
		return
	}
	command := cp.fcb.cmd.Handle
	image.TransitionTo(command, vk.ImageLayoutTransferDstOptimal)
	vk.CmdCopyBufferToImage(command, src.buffer.Handle, image.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
		BufferOffset:     vk.DeviceSize(source.Offset),
		ImageSubresource: vk.ImageSubresourceLayers{AspectMask: image.Aspect, LayerCount: 1},
		ImageOffset:      vk.Offset3D{X: int32(destination.X), Y: int32(destination.Y)},
		ImageExtent:      vk.Extent3D{Width: destination.W, Height: destination.H, Depth: 1},
	}})
	image.Restore(command)
}

func (cp *copyPass) CopyBufferToBuffer(source metadata.BufferRegion, destination metadata.BufferRegion) {
	src, dst := cp.buffer(source.Buffer), cp.buffer(destination.Buffer)
	if src == nil || dst == nil {
		return
	}
	vk.CmdCopyBuffer(cp.fcb.cmd.Handle, src.Handle, dst.Handle, 1, []vk.BufferCopy{{
		SrcOffset: vk.DeviceSize(source.Offset),
		DstOffset: vk.DeviceSize(destination.Offset),
		Size:      vk.DeviceSize(emath.Min(source.Size, destination.Size)),
	}})
	// Later copies in this pass may overwrite part of the destination.
	memoryBarrier(cp.fcb.cmd.Handle)
}

func (cp *copyPass) DownloadFromBuffer(source metadata.BufferRegion, destination metadata.TransferBufferLocation) {
	src := cp.buffer(source.Buffer)
	if src == nil {
		return
	}
	dst := cp.transfer(destination.TransferBuffer)
	if dst == nil {
		return
	}
	vk.CmdCopyBuffer(cp.fcb.cmd.Handle, src.Handle, dst.buffer.Handle, 1, []vk.BufferCopy{{
		SrcOffset: vk.DeviceSize(source.Offset),
		DstOffset: vk.DeviceSize(destination.Offset),
		Size:      vk.DeviceSize(source.Size),
	}})
}

func (cp *copyPass) End() {
	if cp.fcb.cmd.State != COMMAND_BUFFER_STATE_IN_COPY_PASS {
		return
	}
	memoryBarrier(cp.fcb.cmd.Handle)
	cp.fcb.cmd.State = COMMAND_BUFFER_STATE_RECORDING
}

type renderPass struct {
	fcb           *frameCommandBuffer
	width, height uint32
	pipeline      *VulkanPipeline
}

func (rp *renderPass) BindGraphicsPipeline(h metadata.PipelineHandle) {
	p, ok := rp.fcb.vr.pipelines[h]
	if !ok {
		core.LogWarn("bind of unknown pipeline %d ignored", h)
		return
	}
	p.Bind(rp.fcb.cmd.Handle)
	rp.pipeline = p
}

func (rp *renderPass) SetViewport(v metadata.Viewport) {
	vk.CmdSetViewport(rp.fcb.cmd.Handle, 0, 1, []vk.Viewport{{
		X: v.X, Y: v.Y, Width: v.W, Height: v.H,
		MinDepth: v.MinDepth, MaxDepth: v.MaxDepth,
	}})
}

func (rp *renderPass) SetScissor(r emath.Rect) {
	r = metadata.ScissorRect(r)
	vk.CmdSetScissor(rp.fcb.cmd.Handle, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: emath.Max(r.X, 0), Y: emath.Max(r.Y, 0)},
		Extent: vk.Extent2D{Width: uint32(r.Width), Height: uint32(r.Height)},
	}})
}

func (rp *renderPass) BindVertexBuffers(firstSlot uint32, bindings []metadata.BufferBinding) {
	handles := make([]vk.Buffer, 0, len(bindings))
	offsets := make([]vk.DeviceSize, 0, len(bindings))
	for _, b := range bindings {
		buf, ok := rp.fcb.vr.buffers[b.Buffer]
		if !ok {
			core.LogWarn("bind of unknown vertex buffer %d ignored", b.Buffer)
			return
		}
		handles = append(handles, buf.Handle)
		offsets = append(offsets, vk.DeviceSize(b.Offset))
	}
	vk.CmdBindVertexBuffers(rp.fcb.cmd.Handle, firstSlot, uint32(len(handles)), handles, offsets)
}

func (rp *renderPass) BindIndexBuffer(binding metadata.BufferBinding, format metadata.IndexFormat) {
	buf, ok := rp.fcb.vr.buffers[binding.Buffer]
	if !ok {
		core.LogWarn("bind of unknown index buffer %d ignored", binding.Buffer)
		return
	}
	vk.CmdBindIndexBuffer(rp.fcb.cmd.Handle, buf.Handle, vk.DeviceSize(binding.Offset), indexType(format))
}

func (rp *renderPass) bindUniforms() bool {
	if rp.pipeline == nil {
		core.LogWarn("draw without a bound pipeline ignored")
		return false
	}
	rp.fcb.uniforms.bind(rp.fcb.cmd.Handle, rp.pipeline.Layout)
	return true
}

func (rp *renderPass) DrawPrimitives(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if rp.bindUniforms() {
		vk.CmdDraw(rp.fcb.cmd.Handle, vertexCount, instanceCount, firstVertex, firstInstance)
	}
}

func (rp *renderPass) DrawIndexedPrimitives(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	if rp.bindUniforms() {
		vk.CmdDrawIndexed(rp.fcb.cmd.Handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	}
}

func (rp *renderPass) End() {
	if rp.fcb.cmd.State != COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		return
	}
	vk.CmdEndRenderPass(rp.fcb.cmd.Handle)
	rp.fcb.cmd.State = COMMAND_BUFFER_STATE_RECORDING
}
