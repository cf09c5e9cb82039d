package renderer

import (
	"fmt"

	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

// RenderPassClear holds the optional clears of a pass. A nil field keeps the
// existing contents of the matching attachments.
type RenderPassClear struct {
	Colour  *metadata.Colour
	Depth   *float32
	Stencil *uint8
}

// BeginRenderPass opens a pass on the render command buffer targeting every
// attachment of target. It returns false, without error, when the backend
// refuses to open the pass; the caller should skip its draw. Attachments that
// are destroyed or unrealised are a programming error.
func (r *Renderer) BeginRenderPass(target *RenderTarget, clear RenderPassClear) (metadata.RenderPass, bool, error) {
	if err := r.ensureInitialized("BeginRenderPass"); err != nil {
		return nil, false, err
	}
	if target == nil || target.destroyed {
		err := fmt.Errorf("render pass on a destroyed or missing render target: %w", core.ErrInvalidOperation)
		core.LogError(err.Error())
		return nil, false, err
	}

	var colours []*Texture
	var depth *Texture
	for _, a := range target.attachments {
		if a.destroyed || a.handle == metadata.NullHandle {
			err := fmt.Errorf("attachment `%s` of render target `%s` has no device texture: %w", a.name, target.name, core.ErrInvalidOperation)
			core.LogError(err.Error())
			return nil, false, err
		}
		if a.Format.IsDepth() {
			depth = a
		} else {
			colours = append(colours, a)
		}
	}

	colourTargets := make([]metadata.ColorTargetInfo, len(colours))
	for i, c := range colours {
		colourTargets[i] = metadata.ColorTargetInfo{
			Texture:    c.handle,
			ClearColor: metadata.ColourBlack,
			LoadOp:     metadata.LoadOpLoad,
			StoreOp:    metadata.StoreOpStore,
		}
		if clear.Colour != nil {
			colourTargets[i].ClearColor = *clear.Colour
			colourTargets[i].LoadOp = metadata.LoadOpClear
		}
	}

	var depthTarget *metadata.DepthStencilTargetInfo
	if depth != nil {
		depthTarget = &metadata.DepthStencilTargetInfo{
			Texture:        depth.handle,
			ClearDepth:     1,
			LoadOp:         metadata.LoadOpLoad,
			StoreOp:        metadata.StoreOpStore,
			StencilLoadOp:  metadata.LoadOpLoad,
			StencilStoreOp: metadata.StoreOpStore,
		}
		if clear.Depth != nil {
			depthTarget.ClearDepth = *clear.Depth
			depthTarget.LoadOp = metadata.LoadOpClear
		}
		if clear.Stencil != nil {
			depthTarget.ClearStencil = *clear.Stencil
			depthTarget.StencilLoadOp = metadata.LoadOpClear
		}
	}

	pass, err := r.renderCmd.BeginRenderPass(colourTargets, depthTarget)
	if err != nil || pass == nil {
		core.LogWarn("render pass on `%s` could not be opened: %v", target.name, err)
		return nil, false, nil
	}
	return pass, true, nil
}

// Clear clears every colour attachment of target to colour, and depth to 1
// and stencil to 0 when present. The clear runs on the next Flush.
func (r *Renderer) Clear(target *RenderTarget, colour metadata.Colour) error {
	depth, stencil := float32(1), uint8(0)
	pass, ok, err := r.BeginRenderPass(target, RenderPassClear{Colour: &colour, Depth: &depth, Stencil: &stencil})
	if err != nil || !ok {
		return err
	}
	pass.End()
	return nil
}
