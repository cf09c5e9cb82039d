// Package headless implements an in-memory renderer backend. Copies, clears
// and blits are executed on byte slices so results can be inspected; draws
// are recorded but not rasterised.
package headless

import (
	"fmt"

	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/math"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

const (
	defaultSwapchainWidth  = 800
	defaultSwapchainHeight = 600
)

type texture struct {
	info   metadata.TextureCreateInfo
	pixels []byte
}

type buffer struct {
	info metadata.BufferCreateInfo
	data []byte
}

type transferBuffer struct {
	info    metadata.TransferBufferCreateInfo
	backing []byte
	mapped  bool
	// pending counts recorded copies that still reference the current backing.
	pending int
}

// PassRecord describes one render pass as it was opened.
type PassRecord struct {
	ColorTargets []metadata.ColorTargetInfo
	DepthStencil *metadata.DepthStencilTargetInfo
}

// DrawRecord describes one recorded draw call and the state bound at that time.
type DrawRecord struct {
	Pipeline      metadata.PipelineHandle
	VertexBuffers []metadata.BufferBinding
	IndexBuffer   *metadata.BufferBinding
	IndexFormat   metadata.IndexFormat
	Indexed       bool
	Count         uint32
	Instances     uint32
	First         uint32
	VertexOffset  int32
	Scissor       *math.Rect
	Viewport      metadata.Viewport
	InPass        bool
}

// UniformRecord is one uniform push.
type UniformRecord struct {
	Stage metadata.ShaderStage
	Slot  uint32
	Data  []byte
}

// HeadlessRenderer is a metadata.RendererBackend that never touches a GPU.
type HeadlessRenderer struct {
	config *metadata.RendererBackendConfig
	window metadata.Window

	nextHandle      uint64
	textures        map[metadata.TextureHandle]*texture
	buffers         map[metadata.BufferHandle]*buffer
	transferBuffers map[metadata.TransferBufferHandle]*transferBuffer
	shaders         map[metadata.ShaderHandle]metadata.ShaderCreateInfo
	pipelines       map[metadata.PipelineHandle]metadata.PipelineCreateInfo
	fences          map[metadata.FenceHandle]bool

	swapchain       metadata.TextureHandle
	swapchainWidth  uint32
	swapchainHeight uint32

	// Failure injection.
	FailPipelineCreate   bool
	FailRenderPass       bool
	FailSwapchainAcquire bool
	FailShaderStage      map[metadata.ShaderStage]bool
	FailBufferCreate     bool

	// Diagnostics.
	PipelinesCreated       int
	TransferBuffersCreated int
	TransferCycles         int
	Submits                int
	Presents               int
	Passes                 []PassRecord
	Draws                  []DrawRecord
	Blits                  []metadata.BlitInfo
	Uniforms               []UniformRecord
}

func New() *HeadlessRenderer {
	return &HeadlessRenderer{
		textures:        make(map[metadata.TextureHandle]*texture),
		buffers:         make(map[metadata.BufferHandle]*buffer),
		transferBuffers: make(map[metadata.TransferBufferHandle]*transferBuffer),
		shaders:         make(map[metadata.ShaderHandle]metadata.ShaderCreateInfo),
		pipelines:       make(map[metadata.PipelineHandle]metadata.PipelineCreateInfo),
		fences:          make(map[metadata.FenceHandle]bool),
		FailShaderStage: make(map[metadata.ShaderStage]bool),
	}
}

func (hr *HeadlessRenderer) handle() uint64 {
	hr.nextHandle++
	return hr.nextHandle
}

func (hr *HeadlessRenderer) Initialize(config *metadata.RendererBackendConfig, window metadata.Window) error {
	if config == nil {
		config = &metadata.RendererBackendConfig{}
	}
	hr.config = config
	hr.window = window
	hr.swapchainWidth, hr.swapchainHeight = config.Width, config.Height
	if hr.swapchainWidth == 0 || hr.swapchainHeight == 0 {
		hr.swapchainWidth, hr.swapchainHeight = defaultSwapchainWidth, defaultSwapchainHeight
	}
	core.LogInfo("Headless renderer initialized for `%s` (%dx%d).", config.ApplicationName, hr.swapchainWidth, hr.swapchainHeight)
	return nil
}

func (hr *HeadlessRenderer) Shutdown() error {
	if hr.swapchain != metadata.NullHandle {
		delete(hr.textures, hr.swapchain)
		hr.swapchain = metadata.NullHandle
	}
	if n := hr.liveObjects(); n > 0 {
		core.LogWarn("Headless renderer shut down with %d live objects.", n)
	}
	return nil
}

func (hr *HeadlessRenderer) liveObjects() int {
	return len(hr.textures) + len(hr.buffers) + len(hr.transferBuffers) + len(hr.shaders) + len(hr.pipelines)
}

// SetSwapchainSize overrides the size of the offscreen swapchain. It is only
// used when no window was given at initialization.
func (hr *HeadlessRenderer) SetSwapchainSize(width, height uint32) {
	hr.swapchainWidth, hr.swapchainHeight = width, height
}

func (hr *HeadlessRenderer) IsTextureFormatSupported(format metadata.TextureFormat, usage metadata.TextureUsage) bool {
	if format == metadata.TextureFormatInvalid || format.BytesPerPixel() == 0 {
		return false
	}
	if format.IsDepth() && usage.Has(metadata.TextureUsageColorTarget) {
		return false
	}
	if !format.IsDepth() && usage.Has(metadata.TextureUsageDepthStencilTarget) {
		return false
	}
	return true
}

func (hr *HeadlessRenderer) TextureCreate(info *metadata.TextureCreateInfo) (metadata.TextureHandle, error) {
	if info.Width == 0 || info.Height == 0 {
		return metadata.NullHandle, fmt.Errorf("texture size %dx%d is empty", info.Width, info.Height)
	}
	if !hr.IsTextureFormatSupported(info.Format, info.Usage) {
		return metadata.NullHandle, fmt.Errorf("texture format %s unsupported for usage %#x", info.Format, uint32(info.Usage))
	}
	h := metadata.TextureHandle(hr.handle())
	hr.textures[h] = &texture{
		info:   *info,
		pixels: make([]byte, int(info.Width)*int(info.Height)*info.Format.BytesPerPixel()),
	}
	return h, nil
}

func (hr *HeadlessRenderer) TextureRelease(h metadata.TextureHandle) {
	delete(hr.textures, h)
}

func (hr *HeadlessRenderer) BufferCreate(info *metadata.BufferCreateInfo) (metadata.BufferHandle, error) {
	if hr.FailBufferCreate {
		return metadata.NullHandle, fmt.Errorf("buffer allocation of %d bytes failed", info.Size)
	}
	if info.Size == 0 {
		return metadata.NullHandle, fmt.Errorf("buffer size is zero")
	}
	h := metadata.BufferHandle(hr.handle())
	hr.buffers[h] = &buffer{info: *info, data: make([]byte, info.Size)}
	return h, nil
}

func (hr *HeadlessRenderer) BufferRelease(h metadata.BufferHandle) {
	delete(hr.buffers, h)
}

func (hr *HeadlessRenderer) TransferBufferCreate(info *metadata.TransferBufferCreateInfo) (metadata.TransferBufferHandle, error) {
	if info.Size == 0 {
		return metadata.NullHandle, fmt.Errorf("transfer buffer size is zero")
	}
	h := metadata.TransferBufferHandle(hr.handle())
	hr.transferBuffers[h] = &transferBuffer{info: *info, backing: make([]byte, info.Size)}
	hr.TransferBuffersCreated++
	return h, nil
}

// retire drops one pending reference if backing is still the current memory.
func (tb *transferBuffer) retire(backing []byte) {
	if len(backing) > 0 && len(tb.backing) > 0 && &backing[0] == &tb.backing[0] && tb.pending > 0 {
		tb.pending--
	}
}

func (hr *HeadlessRenderer) TransferBufferRelease(h metadata.TransferBufferHandle) {
	delete(hr.transferBuffers, h)
}

func (hr *HeadlessRenderer) TransferBufferMap(h metadata.TransferBufferHandle, cycle bool) ([]byte, error) {
	tb, ok := hr.transferBuffers[h]
	if !ok {
		return nil, fmt.Errorf("unknown transfer buffer %d", h)
	}
	if tb.mapped {
		return nil, fmt.Errorf("transfer buffer %d is already mapped", h)
	}
	// Recorded copies keep reading the old backing.
	if cycle && tb.pending > 0 {
		tb.backing = make([]byte, tb.info.Size)
		tb.pending = 0
		hr.TransferCycles++
	}
	tb.mapped = true
	return tb.backing, nil
}

func (hr *HeadlessRenderer) TransferBufferUnmap(h metadata.TransferBufferHandle) {
	if tb, ok := hr.transferBuffers[h]; ok {
		tb.mapped = false
	}
}

func (hr *HeadlessRenderer) ShaderCreate(info *metadata.ShaderCreateInfo) (metadata.ShaderHandle, error) {
	if hr.FailShaderStage[info.Stage] {
		return metadata.NullHandle, fmt.Errorf("%s shader compilation failed", info.Stage)
	}
	if len(info.Code) == 0 {
		return metadata.NullHandle, fmt.Errorf("%s shader has no code", info.Stage)
	}
	h := metadata.ShaderHandle(hr.handle())
	hr.shaders[h] = *info
	return h, nil
}

func (hr *HeadlessRenderer) ShaderRelease(h metadata.ShaderHandle) {
	delete(hr.shaders, h)
}

func (hr *HeadlessRenderer) GraphicsPipelineCreate(info *metadata.PipelineCreateInfo) (metadata.PipelineHandle, error) {
	if hr.FailPipelineCreate {
		return metadata.NullHandle, fmt.Errorf("pipeline creation failed")
	}
	if _, ok := hr.shaders[info.VertexShader]; !ok {
		return metadata.NullHandle, fmt.Errorf("unknown vertex shader %d", info.VertexShader)
	}
	if _, ok := hr.shaders[info.FragmentShader]; !ok {
		return metadata.NullHandle, fmt.Errorf("unknown fragment shader %d", info.FragmentShader)
	}
	h := metadata.PipelineHandle(hr.handle())
	hr.pipelines[h] = *info
	hr.PipelinesCreated++
	return h, nil
}

func (hr *HeadlessRenderer) GraphicsPipelineRelease(h metadata.PipelineHandle) {
	delete(hr.pipelines, h)
}

func (hr *HeadlessRenderer) AcquireCommandBuffer() (metadata.CommandBuffer, error) {
	return &HeadlessCommandBuffer{renderer: hr, state: commandBufferStateRecording}, nil
}

func (hr *HeadlessRenderer) WaitForFences(waitAll bool, fences ...metadata.FenceHandle) error {
	for _, f := range fences {
		signaled, ok := hr.fences[f]
		if !ok {
			return fmt.Errorf("unknown fence %d", f)
		}
		if !signaled && waitAll {
			return fmt.Errorf("fence %d never signals", f)
		}
	}
	return nil
}

func (hr *HeadlessRenderer) ReleaseFence(f metadata.FenceHandle) {
	delete(hr.fences, f)
}

// TextureData returns the live pixel storage of a texture, or nil.
func (hr *HeadlessRenderer) TextureData(h metadata.TextureHandle) []byte {
	if t, ok := hr.textures[h]; ok {
		return t.pixels
	}
	return nil
}

// TextureInfo returns the creation info of a texture.
func (hr *HeadlessRenderer) TextureInfo(h metadata.TextureHandle) (metadata.TextureCreateInfo, bool) {
	t, ok := hr.textures[h]
	if !ok {
		return metadata.TextureCreateInfo{}, false
	}
	return t.info, true
}

// BufferData returns the live storage of a buffer, or nil.
func (hr *HeadlessRenderer) BufferData(h metadata.BufferHandle) []byte {
	if b, ok := hr.buffers[h]; ok {
		return b.data
	}
	return nil
}

// PipelineInfo returns the description a pipeline was built from.
func (hr *HeadlessRenderer) PipelineInfo(h metadata.PipelineHandle) (metadata.PipelineCreateInfo, bool) {
	p, ok := hr.pipelines[h]
	return p, ok
}

// LiveTextures does not count the swapchain image.
func (hr *HeadlessRenderer) LiveTextures() int {
	if _, ok := hr.textures[hr.swapchain]; ok {
		return len(hr.textures) - 1
	}
	return len(hr.textures)
}

func (hr *HeadlessRenderer) LiveBuffers() int         { return len(hr.buffers) }
func (hr *HeadlessRenderer) LiveTransferBuffers() int { return len(hr.transferBuffers) }
func (hr *HeadlessRenderer) LiveShaders() int         { return len(hr.shaders) }
func (hr *HeadlessRenderer) LivePipelines() int       { return len(hr.pipelines) }
func (hr *HeadlessRenderer) PendingFences() int       { return len(hr.fences) }

// Swapchain returns the current swapchain image, if one was ever acquired.
func (hr *HeadlessRenderer) Swapchain() metadata.TextureHandle {
	return hr.swapchain
}

func (hr *HeadlessRenderer) acquireSwapchain() (metadata.SwapchainTexture, error) {
	if hr.FailSwapchainAcquire {
		return metadata.SwapchainTexture{}, fmt.Errorf("swapchain acquisition failed")
	}
	w, h := hr.swapchainWidth, hr.swapchainHeight
	if hr.window != nil {
		w, h = hr.window.FramebufferSize()
	}
	if w == 0 || h == 0 {
		return metadata.SwapchainTexture{}, nil
	}
	if sc, ok := hr.textures[hr.swapchain]; !ok || sc.info.Width != w || sc.info.Height != h {
		delete(hr.textures, hr.swapchain)
		handle, err := hr.TextureCreate(&metadata.TextureCreateInfo{
			Width:  w,
			Height: h,
			Format: metadata.TextureFormatColor,
			Usage:  metadata.TextureUsageColorTarget | metadata.TextureUsageTransferDst,
		})
		if err != nil {
			return metadata.SwapchainTexture{}, err
		}
		hr.swapchain = handle
	}
	return metadata.SwapchainTexture{Handle: hr.swapchain, Width: w, Height: h}, nil
}
