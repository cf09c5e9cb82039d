package metadata

import "github.com/spaghettifunk/anima-gpu/engine/math"

// Opaque backend object handles. The zero value is the null handle.
type (
	TextureHandle        uint64
	BufferHandle         uint64
	TransferBufferHandle uint64
	ShaderHandle         uint64
	PipelineHandle       uint64
	FenceHandle          uint64
)

const NullHandle = 0

type TextureCreateInfo struct {
	Width  uint32
	Height uint32
	Format TextureFormat
	Usage  TextureUsage
}

type BufferCreateInfo struct {
	Size  uint32
	Usage BufferUsage
}

type TransferBufferCreateInfo struct {
	Size  uint32
	Usage TransferBufferUsage
}

type RendererBackendType string

const (
	RendererBackendVulkan   RendererBackendType = "vulkan"
	RendererBackendHeadless RendererBackendType = "headless"
)

type RendererBackendConfig struct {
	/** @brief The name of the application */
	ApplicationName string
	/** @brief Enables validation layers and debug callbacks, where supported. */
	Debug bool
	/** @brief Size of the offscreen swapchain when there is no window. */
	Width, Height uint32
}

// Window is what the backends need from the platform layer.
type Window interface {
	FramebufferSize() (uint32, uint32)
}

// SurfaceProvider is implemented by windows that can host a Vulkan surface.
type SurfaceProvider interface {
	Window
	GetRequiredExtensionNames() []string
	CreateWindowSurface(instance interface{}) (uintptr, error)
}

/** @brief The device a Renderer drives. Implementations are not safe for concurrent use. */
type RendererBackend interface {
	Initialize(config *RendererBackendConfig, window Window) error
	Shutdown() error

	IsTextureFormatSupported(format TextureFormat, usage TextureUsage) bool

	TextureCreate(info *TextureCreateInfo) (TextureHandle, error)
	TextureRelease(texture TextureHandle)
	BufferCreate(info *BufferCreateInfo) (BufferHandle, error)
	BufferRelease(buffer BufferHandle)
	TransferBufferCreate(info *TransferBufferCreateInfo) (TransferBufferHandle, error)
	TransferBufferRelease(buffer TransferBufferHandle)
	// TransferBufferMap returns writable memory of the transfer buffer. When
	// cycle is true and the buffer is still referenced by in-flight work, the
	// backend swaps in fresh memory instead of stalling.
	TransferBufferMap(buffer TransferBufferHandle, cycle bool) ([]byte, error)
	TransferBufferUnmap(buffer TransferBufferHandle)
	ShaderCreate(info *ShaderCreateInfo) (ShaderHandle, error)
	ShaderRelease(shader ShaderHandle)
	GraphicsPipelineCreate(info *PipelineCreateInfo) (PipelineHandle, error)
	GraphicsPipelineRelease(pipeline PipelineHandle)

	AcquireCommandBuffer() (CommandBuffer, error)
	WaitForFences(waitAll bool, fences ...FenceHandle) error
	ReleaseFence(fence FenceHandle)
}

type CommandBuffer interface {
	BeginCopyPass() (CopyPass, error)
	BeginRenderPass(colorTargets []ColorTargetInfo, depthStencil *DepthStencilTargetInfo) (RenderPass, error)
	PushVertexUniformData(slot uint32, data []byte)
	PushFragmentUniformData(slot uint32, data []byte)
	// WaitAndAcquireSwapchainTexture blocks until the presentation engine hands
	// out an image. The image is presented when the command buffer is submitted.
	WaitAndAcquireSwapchainTexture() (SwapchainTexture, error)
	Blit(info *BlitInfo)
	SubmitAndAcquireFence() (FenceHandle, error)
}

type CopyPass interface {
	UploadToBuffer(source TransferBufferLocation, destination BufferRegion, cycle bool)
	UploadToTexture(source TransferBufferLocation, destination TextureRegion, cycle bool)
	CopyBufferToBuffer(source BufferRegion, destination BufferRegion)
	DownloadFromBuffer(source BufferRegion, destination TransferBufferLocation)
	End()
}

type RenderPass interface {
	BindGraphicsPipeline(pipeline PipelineHandle)
	SetViewport(viewport Viewport)
	SetScissor(scissor math.Rect)
	BindVertexBuffers(firstSlot uint32, bindings []BufferBinding)
	BindIndexBuffer(binding BufferBinding, format IndexFormat)
	DrawPrimitives(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexedPrimitives(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	End()
}
