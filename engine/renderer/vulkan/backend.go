package vulkan

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

/** @brief Vulkan implementation of metadata.RendererBackend. */
type VulkanRenderer struct {
	context *VulkanContext
	window  metadata.SurfaceProvider
	debug   bool

	nextHandle uint64

	textures        map[metadata.TextureHandle]*VulkanImage
	buffers         map[metadata.BufferHandle]*VulkanBuffer
	transferBuffers map[metadata.TransferBufferHandle]*VulkanTransferBuffer
	shaders         map[metadata.ShaderHandle]*VulkanShaderStage
	pipelines       map[metadata.PipelineHandle]*VulkanPipeline
	fences          map[metadata.FenceHandle]*frameCommandBuffer

	swapchainHandles []metadata.TextureHandle

	uniformLayout *VulkanUniformLayout
	renderpasses  *renderpassCache
	framebuffers  *framebufferCache

	commandBuffers []*frameCommandBuffer
	// Command buffers acquired and not yet released through their fence.
	active int
	// Destroys waiting for the GPU to finish with the object.
	deferred []func()
}

func New() *VulkanRenderer {
	return &VulkanRenderer{
		context: &VulkanContext{
			Allocator: nil,
			Locks:     NewVulkanLockPool(),
		},
		textures:        make(map[metadata.TextureHandle]*VulkanImage),
		buffers:         make(map[metadata.BufferHandle]*VulkanBuffer),
		transferBuffers: make(map[metadata.TransferBufferHandle]*VulkanTransferBuffer),
		shaders:         make(map[metadata.ShaderHandle]*VulkanShaderStage),
		pipelines:       make(map[metadata.PipelineHandle]*VulkanPipeline),
		fences:          make(map[metadata.FenceHandle]*frameCommandBuffer),
		renderpasses:    newRenderpassCache(),
		framebuffers:    newFramebufferCache(),
	}
}

func (vr *VulkanRenderer) handle() uint64 {
	vr.nextHandle++
	return vr.nextHandle
}

func (vr *VulkanRenderer) Initialize(config *metadata.RendererBackendConfig, window metadata.Window) error {
	provider, ok := window.(metadata.SurfaceProvider)
	if !ok {
		return fmt.Errorf("the vulkan backend needs a window that can host a surface: %w", core.ErrInvalidArgument)
	}
	vr.window = provider
	vr.debug = config.Debug

	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("GetInstanceProcAddress is nil: %w", core.ErrDevice)
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return fmt.Errorf("%w: %s", core.ErrDevice, err)
	}

	if err := vr.createInstance(config.ApplicationName); err != nil {
		return err
	}

	if vr.debug {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			// Validation is a convenience, carry on without it.
			core.LogWarn("vk.CreateDebugReportCallback failed with %s", err)
		} else {
			vr.context.debugMessenger = dbg
			core.LogDebug("Vulkan debugger created.")
		}
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := provider.CreateWindowSurface(vr.context.Instance)
	if err != nil || surface == 0 {
		err = fmt.Errorf("vulkan surface creation failed: %v: %w", err, core.ErrDevice)
		core.LogError(err.Error())
		return err
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vr.context); err != nil {
		core.LogError("Failed to create device!")
		return fmt.Errorf("%w: %s", core.ErrDevice, err)
	}

	width, height := provider.FramebufferSize()
	sc, err := SwapchainCreate(vr.context, width, height)
	if err != nil {
		return fmt.Errorf("%w: %s", core.ErrDevice, err)
	}
	vr.setSwapchain(sc)

	if vr.uniformLayout, err = UniformLayoutCreate(vr.context); err != nil {
		return fmt.Errorf("%w: %s", core.ErrDevice, err)
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createInstance(appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Anima GPU"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := vr.window.GetRequiredExtensionNames()
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}
	var layers []string
	if vr.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		if instanceHasLayer("VK_LAYER_KHRONOS_validation") {
			layers = append(layers, "VK_LAYER_KHRONOS_validation")
			core.LogInfo("Validation layers enabled.")
		} else {
			core.LogWarn("Validation layer VK_LAYER_KHRONOS_validation is not installed.")
		}
	}
	for _, e := range requiredExtensions {
		core.LogDebug("Required extension: %s", e)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan Instance with error `%s`: %w", VulkanResultString(res), core.ErrDevice)
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return fmt.Errorf("%w: %s", core.ErrDevice, err)
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func instanceHasLayer(name string) bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		end := FindFirstZeroInByteArray(available[i].LayerName[:])
		if string(available[i].LayerName[:end]) == name {
			return true
		}
	}
	return false
}

func (vr *VulkanRenderer) Shutdown() error {
	if vr.context.Device == nil {
		return nil
	}
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	for h, fcb := range vr.fences {
		fcb.release()
		vr.commandBuffers = append(vr.commandBuffers, fcb)
		delete(vr.fences, h)
	}
	vr.active = 0
	vr.runDeferred()

	for h := range vr.pipelines {
		vr.pipelines[h].Destroy(vr.context)
	}
	for h := range vr.shaders {
		vr.shaders[h].Destroy(vr.context)
	}
	for h := range vr.transferBuffers {
		vr.transferBuffers[h].destroy(vr.context)
	}
	for h := range vr.buffers {
		vr.buffers[h].BufferDestroy(vr.context)
	}
	vr.framebuffers.destroy(vr.context)
	for h, image := range vr.textures {
		if image.owned {
			image.ImageDestroy(vr.context)
		}
		delete(vr.textures, h)
	}
	clear(vr.pipelines)
	clear(vr.shaders)
	clear(vr.transferBuffers)
	clear(vr.buffers)

	for _, fcb := range vr.commandBuffers {
		fcb.destroy()
	}
	vr.commandBuffers = nil

	vr.renderpasses.destroy(vr.context)
	if vr.uniformLayout != nil {
		vr.uniformLayout.Destroy(vr.context)
		vr.uniformLayout = nil
	}
	if vr.context.Swapchain != nil {
		vr.context.Swapchain.SwapchainDestroy(vr.context)
		vr.context.Swapchain = nil
	}

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(vr.context)
	vr.context.Device = nil

	core.LogDebug("Destroying Vulkan surface...")
	if vr.context.Surface != nil {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = nil
	}
	if vr.context.debugMessenger != nil {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		vr.context.debugMessenger = nil
	}
	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
	vr.context.Instance = nil
	return nil
}

// later runs destroy now when the GPU is idle with respect to our work,
// otherwise once every outstanding command buffer has been released.
func (vr *VulkanRenderer) later(destroy func()) {
	if vr.active == 0 {
		destroy()
		return
	}
	vr.deferred = append(vr.deferred, destroy)
}

func (vr *VulkanRenderer) runDeferred() {
	pending := vr.deferred
	vr.deferred = nil
	for _, destroy := range pending {
		destroy()
	}
}

func (vr *VulkanRenderer) IsTextureFormatSupported(format metadata.TextureFormat, usage metadata.TextureUsage) bool {
	vkFormat := textureFormat(format)
	if vkFormat == vk.FormatUndefined || vr.context.Device == nil {
		return false
	}
	var properties vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(vr.context.Device.PhysicalDevice, vkFormat, &properties)
	properties.Deref()

	features := properties.OptimalTilingFeatures
	var required vk.FormatFeatureFlagBits = vk.FormatFeatureTransferSrcBit | vk.FormatFeatureTransferDstBit
	if usage.Has(metadata.TextureUsageSampler) {
		required |= vk.FormatFeatureSampledImageBit
	}
	if usage.Has(metadata.TextureUsageColorTarget) {
		required |= vk.FormatFeatureColorAttachmentBit | vk.FormatFeatureBlitSrcBit
	}
	if usage.Has(metadata.TextureUsageDepthStencilTarget) {
		required |= vk.FormatFeatureDepthStencilAttachmentBit
	}
	return features&vk.FormatFeatureFlags(required) == vk.FormatFeatureFlags(required)
}

func (vr *VulkanRenderer) TextureCreate(info *metadata.TextureCreateInfo) (metadata.TextureHandle, error) {
	format := textureFormat(info.Format)
	if format == vk.FormatUndefined {
		return metadata.NullHandle, fmt.Errorf("unsupported texture format %s", info.Format)
	}
	image, err := ImageCreate(vr.context, info.Width, info.Height, format,
		textureUsage(info.Usage), textureAspect(info.Format), restingLayout(info.Format, info.Usage))
	if err != nil {
		return metadata.NullHandle, err
	}

	// Move the image into its resting layout so every later command can
	// rely on it.
	pool := vr.context.Device.GraphicsCommandPool
	cb, err := AllocateAndBeginSingleUse(vr.context, pool)
	if err == nil {
		image.Restore(cb.Handle)
		err = cb.EndSingleUse(vr.context, pool, vr.context.Device.GraphicsQueue)
	}
	if err != nil {
		image.ImageDestroy(vr.context)
		return metadata.NullHandle, err
	}

	h := metadata.TextureHandle(vr.handle())
	vr.textures[h] = image
	return h, nil
}

func (vr *VulkanRenderer) TextureRelease(h metadata.TextureHandle) {
	image, ok := vr.textures[h]
	if !ok || !image.owned {
		return
	}
	delete(vr.textures, h)
	vr.later(func() {
		vr.framebuffers.purge(vr.context, image.View)
		image.ImageDestroy(vr.context)
	})
}

func (vr *VulkanRenderer) BufferCreate(info *metadata.BufferCreateInfo) (metadata.BufferHandle, error) {
	buffer, err := BufferCreate(vr.context, info.Size, bufferUsage(info.Usage), vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return metadata.NullHandle, err
	}
	h := metadata.BufferHandle(vr.handle())
	vr.buffers[h] = buffer
	return h, nil
}

func (vr *VulkanRenderer) BufferRelease(h metadata.BufferHandle) {
	buffer, ok := vr.buffers[h]
	if !ok {
		return
	}
	delete(vr.buffers, h)
	vr.later(func() { buffer.BufferDestroy(vr.context) })
}

func (vr *VulkanRenderer) TransferBufferCreate(info *metadata.TransferBufferCreateInfo) (metadata.TransferBufferHandle, error) {
	tb, err := transferBufferCreate(vr.context, info.Size, info.Usage == metadata.TransferBufferUsageDownload)
	if err != nil {
		return metadata.NullHandle, err
	}
	h := metadata.TransferBufferHandle(vr.handle())
	vr.transferBuffers[h] = tb
	return h, nil
}

func (vr *VulkanRenderer) TransferBufferRelease(h metadata.TransferBufferHandle) {
	tb, ok := vr.transferBuffers[h]
	if !ok {
		return
	}
	delete(vr.transferBuffers, h)
	vr.later(func() { tb.destroy(vr.context) })
}

func (vr *VulkanRenderer) TransferBufferMap(h metadata.TransferBufferHandle, cycle bool) ([]byte, error) {
	tb, ok := vr.transferBuffers[h]
	if !ok {
		return nil, fmt.Errorf("unknown transfer buffer %d", h)
	}
	if cycle {
		if err := tb.cycle(vr.context); err != nil {
			return nil, err
		}
	}
	return tb.active.buffer.Bytes(), nil
}

// TransferBufferUnmap is a no-op. Transfer memory is coherent and stays mapped.
func (vr *VulkanRenderer) TransferBufferUnmap(h metadata.TransferBufferHandle) {}

func (vr *VulkanRenderer) ShaderCreate(info *metadata.ShaderCreateInfo) (metadata.ShaderHandle, error) {
	if info.NumUniformBuffers > uniformSlotsPerStage {
		core.LogWarn("%s shader declares %d uniform buffers, only %d are bound", info.Stage, info.NumUniformBuffers, uniformSlotsPerStage)
	}
	stage, err := NewShaderModule(vr.context, info)
	if err != nil {
		return metadata.NullHandle, err
	}
	h := metadata.ShaderHandle(vr.handle())
	vr.shaders[h] = stage
	return h, nil
}

func (vr *VulkanRenderer) ShaderRelease(h metadata.ShaderHandle) {
	stage, ok := vr.shaders[h]
	if !ok {
		return
	}
	delete(vr.shaders, h)
	// Modules are only read during pipeline creation.
	stage.Destroy(vr.context)
}

func (vr *VulkanRenderer) GraphicsPipelineCreate(info *metadata.PipelineCreateInfo) (metadata.PipelineHandle, error) {
	vs, ok := vr.shaders[info.VertexShader]
	if !ok {
		return metadata.NullHandle, fmt.Errorf("unknown vertex shader %d", info.VertexShader)
	}
	fs, ok := vr.shaders[info.FragmentShader]
	if !ok {
		return metadata.NullHandle, fmt.Errorf("unknown fragment shader %d", info.FragmentShader)
	}
	if len(info.ColorTargets) > maxColorTargets {
		return metadata.NullHandle, fmt.Errorf("pipeline with %d colour targets exceeds %d", len(info.ColorTargets), maxColorTargets)
	}

	// Any render pass with matching formats is compatible.
	key := renderpassKey{ColorCount: len(info.ColorTargets)}
	for i, ct := range info.ColorTargets {
		key.Colors[i] = renderpassAttachment{Format: textureFormat(ct.Format), LoadOp: vk.AttachmentLoadOpLoad, StoreOp: vk.AttachmentStoreOpStore}
	}
	if info.HasDepthStencil {
		key.Depth = renderpassAttachment{Format: textureFormat(info.DepthStencilFormat), LoadOp: vk.AttachmentLoadOpLoad, StoreOp: vk.AttachmentStoreOpStore}
		key.StencilLoadOp = vk.AttachmentLoadOpLoad
		key.StencilStoreOp = vk.AttachmentStoreOpStore
	}
	rp, err := vr.renderpasses.fetch(vr.context, key)
	if err != nil {
		return metadata.NullHandle, err
	}

	pipeline, err := NewGraphicsPipeline(vr.context, &VulkanPipelineConfig{
		Renderpass: rp,
		Layout:     vr.uniformLayout.PipelineLayout,
		Stages:     []vk.PipelineShaderStageCreateInfo{vs.stageInfo(), fs.stageInfo()},
		Info:       info,
	})
	if err != nil {
		return metadata.NullHandle, err
	}
	h := metadata.PipelineHandle(vr.handle())
	vr.pipelines[h] = pipeline
	return h, nil
}

func (vr *VulkanRenderer) GraphicsPipelineRelease(h metadata.PipelineHandle) {
	pipeline, ok := vr.pipelines[h]
	if !ok {
		return
	}
	delete(vr.pipelines, h)
	vr.later(func() { pipeline.Destroy(vr.context) })
}

func (vr *VulkanRenderer) AcquireCommandBuffer() (metadata.CommandBuffer, error) {
	var fcb *frameCommandBuffer
	if n := len(vr.commandBuffers); n > 0 {
		fcb = vr.commandBuffers[n-1]
		vr.commandBuffers = vr.commandBuffers[:n-1]
	} else {
		var err error
		if fcb, err = newFrameCommandBuffer(vr); err != nil {
			return nil, fmt.Errorf("%w: %s", core.ErrDevice, err)
		}
	}
	if err := fcb.begin(); err != nil {
		vr.commandBuffers = append(vr.commandBuffers, fcb)
		return nil, fmt.Errorf("%w: %s", core.ErrDevice, err)
	}
	vr.active++
	return fcb, nil
}

func (vr *VulkanRenderer) WaitForFences(waitAll bool, fences ...metadata.FenceHandle) error {
	var pending []*frameCommandBuffer
	for _, h := range fences {
		if fcb, ok := vr.fences[h]; ok {
			pending = append(pending, fcb)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	if waitAll {
		for _, fcb := range pending {
			if err := fcb.fence.FenceWait(vr.context, math.MaxUint64); err != nil {
				return err
			}
		}
		return nil
	}
	handles := make([]vk.Fence, len(pending))
	for i, fcb := range pending {
		handles[i] = fcb.fence.Handle
	}
	if res := vk.WaitForFences(vr.context.Device.LogicalDevice, uint32(len(handles)), handles, vk.False, math.MaxUint64); res != vk.Success {
		return fmt.Errorf("%w: %s", core.ErrDevice, vulkanError("vkWaitForFences", res))
	}
	return nil
}

func (vr *VulkanRenderer) ReleaseFence(h metadata.FenceHandle) {
	fcb, ok := vr.fences[h]
	if !ok {
		return
	}
	if err := fcb.fence.FenceWait(vr.context, math.MaxUint64); err != nil {
		core.LogError("releasing fence %d: %s", h, err)
	}
	delete(vr.fences, h)
	fcb.release()
	vr.commandBuffers = append(vr.commandBuffers, fcb)
	vr.active--
	if vr.active == 0 {
		vr.runDeferred()
	}
}

func (vr *VulkanRenderer) setSwapchain(sc *VulkanSwapchain) {
	for _, h := range vr.swapchainHandles {
		delete(vr.textures, h)
	}
	vr.swapchainHandles = vr.swapchainHandles[:0]
	vr.context.Swapchain = sc
	vr.context.SwapchainDirty = false
	if sc == nil {
		return
	}
	for _, image := range sc.Images {
		h := metadata.TextureHandle(vr.handle())
		vr.textures[h] = image
		vr.swapchainHandles = append(vr.swapchainHandles, h)
	}
}

// ensureSwapchain recreates the swapchain when presentation flagged it or
// the window changed size. A minimised window leaves no swapchain.
func (vr *VulkanRenderer) ensureSwapchain() error {
	width, height := vr.window.FramebufferSize()
	sc := vr.context.Swapchain
	if sc != nil && !vr.context.SwapchainDirty && sc.Extent.Width == width && sc.Extent.Height == height {
		return nil
	}
	if width == 0 || height == 0 {
		return nil
	}

	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
	if sc != nil {
		for _, image := range sc.Images {
			vr.framebuffers.purge(vr.context, image.View)
		}
	}

	var next *VulkanSwapchain
	var err error
	if sc != nil {
		next, err = sc.SwapchainRecreate(vr.context, width, height)
	} else {
		next, err = SwapchainCreate(vr.context, width, height)
	}
	if err != nil {
		vr.setSwapchain(nil)
		core.LogWarn("swapchain recreation failed: %s", err)
		return fmt.Errorf("%w: %s", core.ErrDevice, err)
	}
	vr.setSwapchain(next)
	core.LogInfo("Swapchain recreated at %dx%d.", next.Extent.Width, next.Extent.Height)
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
