package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

// Renderer owns every GPU resource, the pipeline cache, the staging buffers
// and the two command buffers recorded each frame: uploads go to the upload
// command buffer and passes to the render command buffer. It must be used
// from a single goroutine.
type Renderer struct {
	backend metadata.RendererBackend
	window  metadata.Window

	ids    *core.IDPool
	serial uint64

	pipelines *PipelineCache
	staging   *transferManager

	uploadCmd metadata.CommandBuffer
	renderCmd metadata.CommandBuffer

	backBuffer  *RenderTarget
	initialized bool
}

func New(backend metadata.RendererBackend) *Renderer {
	return &Renderer{
		backend:   backend,
		ids:       core.NewIDPool(256),
		pipelines: newPipelineCache(),
	}
}

// Initialize brings up the backend, the staging buffers and the first pair of
// command buffers. window may be nil for backends that render offscreen.
func (r *Renderer) Initialize(config *metadata.RendererBackendConfig, window metadata.Window) error {
	if r.initialized {
		return fmt.Errorf("renderer already initialized: %w", core.ErrInvalidOperation)
	}
	if err := r.backend.Initialize(config, window); err != nil {
		err = fmt.Errorf("failed to initialize the renderer backend: %s: %w", err, core.ErrDevice)
		core.LogError(err.Error())
		return err
	}
	r.window = window

	staging, err := newTransferManager(r.backend)
	if err != nil {
		r.backend.Shutdown()
		return err
	}
	r.staging = staging

	if err := r.acquireCommandBuffers(); err != nil {
		r.staging.release(r.backend)
		r.backend.Shutdown()
		return err
	}
	r.initialized = true
	core.LogInfo("Renderer initialized.")
	return nil
}

func (r *Renderer) acquireCommandBuffers() error {
	upload, err := r.backend.AcquireCommandBuffer()
	if err != nil {
		err = fmt.Errorf("failed to acquire the upload command buffer: %s: %w", err, core.ErrDevice)
		core.LogError(err.Error())
		return err
	}
	render, err := r.backend.AcquireCommandBuffer()
	if err != nil {
		err = fmt.Errorf("failed to acquire the render command buffer: %s: %w", err, core.ErrDevice)
		core.LogError(err.Error())
		return err
	}
	r.uploadCmd, r.renderCmd = upload, render
	return nil
}

// Flush submits the upload command buffer and then the render command buffer,
// blocks until both finished executing and starts a fresh pair.
func (r *Renderer) Flush() error {
	if !r.initialized {
		return fmt.Errorf("renderer not initialized: %w", core.ErrInvalidOperation)
	}
	uploadFence, err := r.uploadCmd.SubmitAndAcquireFence()
	if err != nil {
		err = fmt.Errorf("failed to submit the upload command buffer: %s: %w", err, core.ErrDevice)
		core.LogError(err.Error())
		return err
	}
	renderFence, err := r.renderCmd.SubmitAndAcquireFence()
	if err != nil {
		r.backend.WaitForFences(true, uploadFence)
		r.backend.ReleaseFence(uploadFence)
		err = fmt.Errorf("failed to submit the render command buffer: %s: %w", err, core.ErrDevice)
		core.LogError(err.Error())
		return err
	}

	waitErr := r.backend.WaitForFences(true, uploadFence, renderFence)
	r.backend.ReleaseFence(uploadFence)
	r.backend.ReleaseFence(renderFence)
	acquireErr := r.acquireCommandBuffers()
	if waitErr != nil {
		waitErr = fmt.Errorf("failed waiting for submitted work: %s: %w", waitErr, core.ErrDevice)
		core.LogError(waitErr.Error())
	}
	return errors.Join(waitErr, acquireErr)
}

// Shutdown flushes outstanding work and releases everything the renderer
// still owns, then the backend itself.
func (r *Renderer) Shutdown() error {
	if !r.initialized {
		return nil
	}
	var errs []error
	if err := r.Flush(); err != nil {
		errs = append(errs, err)
	}
	r.pipelines.release(r.backend)
	r.staging.release(r.backend)
	r.backBuffer = nil

	var live []Resource
	r.ids.Each(func(_ uint32, owner interface{}) {
		if res, ok := owner.(Resource); ok {
			live = append(live, res)
		}
	})
	for _, res := range live {
		switch v := res.(type) {
		case *Texture:
			// Attachments go with their render target.
			if v.target != nil && !v.target.destroyed {
				continue
			}
		}
		if err := r.Destroy(res); err != nil {
			errs = append(errs, err)
		}
	}

	// Submitted command buffers are dropped; fresh ones are never submitted.
	r.uploadCmd, r.renderCmd = nil, nil
	r.initialized = false
	if err := r.backend.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("backend shutdown: %s: %w", err, core.ErrDevice))
	}
	core.LogInfo("Renderer shut down.")
	return errors.Join(errs...)
}

// Backend exposes the device the renderer drives.
func (r *Renderer) Backend() metadata.RendererBackend {
	return r.backend
}

func (r *Renderer) ensureInitialized(op string) error {
	if !r.initialized {
		err := fmt.Errorf("%s called before Initialize: %w", op, core.ErrInvalidOperation)
		core.LogError(err.Error())
		return err
	}
	return nil
}
