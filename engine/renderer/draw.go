package renderer

import (
	"fmt"

	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

func (r *Renderer) validateDraw(cmd *DrawCommand) error {
	if cmd == nil || cmd.RenderTarget == nil {
		return fmt.Errorf("draw command has no render target: %w", core.ErrInvalidArgument)
	}
	if cmd.Material == nil || cmd.Material.Shader == nil || cmd.Material.Shader.destroyed {
		return fmt.Errorf("draw command has no usable shader: %w", core.ErrInvalidArgument)
	}
	if cmd.RenderTarget.destroyed {
		return fmt.Errorf("render target `%s` is destroyed: %w", cmd.RenderTarget.name, core.ErrInvalidOperation)
	}
	if len(cmd.InstanceInputRates) > len(cmd.VertexBuffers) {
		return fmt.Errorf("%d instance rates for %d vertex buffers: %w", len(cmd.InstanceInputRates), len(cmd.VertexBuffers), core.ErrInvalidArgument)
	}
	for slot, vb := range cmd.VertexBuffers {
		if vb == nil || vb.layout == nil {
			return fmt.Errorf("vertex buffer in slot %d has no layout: %w", slot, core.ErrInvalidArgument)
		}
		if vb.destroyed || vb.handle == metadata.NullHandle {
			return fmt.Errorf("vertex buffer `%s` in slot %d has no device storage: %w", vb.name, slot, core.ErrInvalidOperation)
		}
	}
	if ib := cmd.IndexBuffer; ib != nil && (ib.destroyed || ib.handle == metadata.NullHandle) {
		return fmt.Errorf("index buffer `%s` has no device storage: %w", ib.name, core.ErrInvalidOperation)
	}
	return nil
}

// Draw records cmd into a render pass on its target and flushes, so the draw
// has executed when Draw returns. A pass that cannot be opened skips the draw
// silently.
func (r *Renderer) Draw(cmd *DrawCommand) error {
	if err := r.ensureInitialized("Draw"); err != nil {
		return err
	}
	if err := r.validateDraw(cmd); err != nil {
		core.LogError(err.Error())
		return err
	}

	pass, ok, err := r.BeginRenderPass(cmd.RenderTarget, RenderPassClear{
		Colour:  cmd.ClearColour,
		Depth:   cmd.ClearDepth,
		Stencil: cmd.ClearStencil,
	})
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	pipeline, err := r.resolvePipeline(cmd)
	if err != nil {
		pass.End()
		return err
	}
	pass.BindGraphicsPipeline(pipeline)

	target := cmd.RenderTarget
	pass.SetViewport(metadata.Viewport{W: float32(target.Width), H: float32(target.Height), MaxDepth: 1})
	if cmd.ScissorTest {
		pass.SetScissor(metadata.ScissorRect(cmd.ScissorRect))
	}

	r.pushUniforms(cmd.Material)

	if len(cmd.VertexBuffers) > 0 {
		bindings := make([]metadata.BufferBinding, len(cmd.VertexBuffers))
		for i, vb := range cmd.VertexBuffers {
			bindings[i] = metadata.BufferBinding{Buffer: vb.handle}
		}
		pass.BindVertexBuffers(0, bindings)
	}

	instances := cmd.InstanceCount
	if instances < 1 {
		instances = 1
	}
	if ib := cmd.IndexBuffer; ib != nil {
		pass.BindIndexBuffer(metadata.BufferBinding{Buffer: ib.handle, Offset: cmd.IndexOffset * uint32(ib.indexFormat.Size())}, ib.indexFormat)
		pass.DrawIndexedPrimitives(cmd.IndexCount, instances, 0, cmd.VertexOffset, 0)
	} else {
		firstVertex := uint32(0)
		if cmd.VertexOffset > 0 {
			firstVertex = uint32(cmd.VertexOffset)
		}
		pass.DrawPrimitives(cmd.VertexCount, instances, firstVertex, 0)
	}
	pass.End()

	return r.Flush()
}

func (r *Renderer) pushUniforms(m *Material) {
	for slot, data := range m.VertexProperties.UniformData {
		if len(data) > 0 {
			r.renderCmd.PushVertexUniformData(uint32(slot), data)
		}
	}
	for slot, data := range m.FragmentProperties.UniformData {
		if len(data) > 0 {
			r.renderCmd.PushFragmentUniformData(uint32(slot), data)
		}
	}
}
