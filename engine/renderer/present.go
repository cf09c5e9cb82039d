package renderer

import (
	"fmt"

	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/math"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

const (
	// backBufferPadding is added to the swapchain size when the back-buffer grows.
	backBufferPadding = 64
	// backBufferShrinkMargin is how much larger than the swapchain the
	// back-buffer may get before it is shrunk.
	backBufferShrinkMargin = 128
)

// BackBuffer is the render target presented by Present. It is nil until the
// first Present and may be replaced by any later one.
func (r *Renderer) BackBuffer() *RenderTarget {
	return r.backBuffer
}

// backBufferSize decides the back-buffer size for a swapchain of width x
// height. ok is false when the current back-buffer should be kept.
func backBufferSize(current *RenderTarget, width, height uint32) (w, h uint32, ok bool) {
	if current == nil || current.destroyed || current.Width < width || current.Height < height {
		return width + backBufferPadding, height + backBufferPadding, true
	}
	if current.Width > width+backBufferShrinkMargin || current.Height > height+backBufferShrinkMargin {
		return width, height, true
	}
	return 0, 0, false
}

// Present blits the back-buffer onto the swapchain image, flushes, and then
// resizes the back-buffer to follow the swapchain.
func (r *Renderer) Present() error {
	if err := r.ensureInitialized("Present"); err != nil {
		return err
	}
	swapchain, err := r.renderCmd.WaitAndAcquireSwapchainTexture()
	if err != nil {
		err = fmt.Errorf("failed to acquire the swapchain texture: %s: %w", err, core.ErrDevice)
		core.LogError(err.Error())
		return err
	}

	if swapchain.Handle != metadata.NullHandle && swapchain.Width > 0 && swapchain.Height > 0 &&
		r.backBuffer != nil && !r.backBuffer.destroyed && len(r.backBuffer.attachments) > 0 {
		src := r.backBuffer.attachments[0]
		w := math.Min(swapchain.Width, src.Width)
		h := math.Min(swapchain.Height, src.Height)
		r.renderCmd.Blit(&metadata.BlitInfo{
			Source:      metadata.BlitRegion{Texture: src.handle, W: w, H: h},
			Destination: metadata.BlitRegion{Texture: swapchain.Handle, W: w, H: h},
			LoadOp:      metadata.LoadOpDontCare,
			Filter:      metadata.TextureFilterNearest,
		})
	}

	if err := r.Flush(); err != nil {
		return err
	}

	if swapchain.Width == 0 || swapchain.Height == 0 {
		return nil
	}
	w, h, resize := backBufferSize(r.backBuffer, swapchain.Width, swapchain.Height)
	if !resize {
		return nil
	}
	if r.backBuffer != nil {
		if err := r.Destroy(r.backBuffer); err != nil {
			return err
		}
	}
	bb, err := r.CreateRenderTarget(int(w), int(h), metadata.TextureFormatColor)
	if err != nil {
		r.backBuffer = nil
		return err
	}
	core.LogDebug("back-buffer resized to %dx%d for a %dx%d swapchain", w, h, swapchain.Width, swapchain.Height)
	r.backBuffer = bb
	return nil
}
