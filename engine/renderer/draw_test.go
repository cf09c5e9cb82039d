package renderer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/math"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

func TestDrawValidation(t *testing.T) {
	r, _ := newTestRenderer(t)
	f := newDrawFixture(t, r)

	destroyedShader := NewMaterial(testShader(t, r))
	r.Destroy(destroyedShader.Shader)
	bare := r.CreateBuffer(metadata.BufferUsageVertex)
	empty, _ := r.CreateVertexBuffer(NewVertexLayout(VertexAttribute{Type: metadata.VertexTypeFloat}))
	deadTarget, _ := r.CreateRenderTarget(4, 4, metadata.TextureFormatR8G8B8A8)
	r.Destroy(deadTarget)

	tests := []struct {
		name   string
		modify func(cmd *DrawCommand) *DrawCommand
		want   error
	}{
		{"nil command", func(cmd *DrawCommand) *DrawCommand { return nil }, core.ErrInvalidArgument},
		{"no target", func(cmd *DrawCommand) *DrawCommand { cmd.RenderTarget = nil; return cmd }, core.ErrInvalidArgument},
		{"no material", func(cmd *DrawCommand) *DrawCommand { cmd.Material = nil; return cmd }, core.ErrInvalidArgument},
		{"destroyed shader", func(cmd *DrawCommand) *DrawCommand { cmd.Material = destroyedShader; return cmd }, core.ErrInvalidArgument},
		{"destroyed target", func(cmd *DrawCommand) *DrawCommand { cmd.RenderTarget = deadTarget; return cmd }, core.ErrInvalidOperation},
		{"too many instance rates", func(cmd *DrawCommand) *DrawCommand {
			cmd.InstanceInputRates = []bool{false, true}
			return cmd
		}, core.ErrInvalidArgument},
		{"vertex buffer without layout", func(cmd *DrawCommand) *DrawCommand {
			cmd.VertexBuffers = []*Buffer{bare}
			return cmd
		}, core.ErrInvalidArgument},
		{"unallocated vertex buffer", func(cmd *DrawCommand) *DrawCommand {
			cmd.VertexBuffers = []*Buffer{empty}
			return cmd
		}, core.ErrInvalidOperation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := r.Draw(tc.modify(f.command())); !errors.Is(err, tc.want) {
				t.Fatalf("Draw:\nhave %v\nwant %v", err, tc.want)
			}
		})
	}
}

func TestDrawIsRecordedInsideThePass(t *testing.T) {
	r, hr := newTestRenderer(t)
	f := newDrawFixture(t, r)
	submits := hr.Submits

	cmd := f.command()
	cmd.IndexOffset = 2
	cmd.VertexOffset = 1
	cmd.ScissorTest = true
	cmd.ScissorRect = math.Rect{X: 2, Y: 3, Width: 8, Height: -1}
	f.material.VertexProperties.SetUniformData(0, []byte{1, 2, 3, 4})
	f.material.FragmentProperties.SetUniformData(2, []byte{9})
	if err := r.Draw(cmd); err != nil {
		t.Fatal(err)
	}

	if len(hr.Draws) != 1 {
		t.Fatalf("draws:\nhave %d\nwant 1", len(hr.Draws))
	}
	d := hr.Draws[0]
	if !d.InPass {
		t.Fatal("draw recorded after the pass ended")
	}
	if !d.Indexed || d.Count != 6 || d.Instances != 1 || d.First != 0 || d.VertexOffset != 1 {
		t.Fatalf("draw record: %+v", d)
	}
	if d.IndexBuffer == nil || d.IndexBuffer.Offset != 4 || d.IndexFormat != metadata.IndexFormatSixteen {
		t.Fatalf("index binding: %+v", d.IndexBuffer)
	}
	if d.Scissor == nil || *d.Scissor != (math.Rect{X: 2, Y: 3, Width: 8, Height: 0}) {
		t.Fatalf("scissor: %+v", d.Scissor)
	}
	if d.Viewport.W != 16 || d.Viewport.H != 16 {
		t.Fatalf("viewport: %+v", d.Viewport)
	}
	if len(hr.Uniforms) != 2 || hr.Uniforms[0].Stage != metadata.ShaderStageVertex || hr.Uniforms[1].Slot != 2 {
		t.Fatalf("uniforms: %+v", hr.Uniforms)
	}
	if hr.Submits <= submits {
		t.Fatal("draw was not flushed")
	}
}

func TestDrawWithoutIndices(t *testing.T) {
	r, hr := newTestRenderer(t)
	f := newDrawFixture(t, r)
	cmd := f.command()
	cmd.IndexBuffer = nil
	cmd.VertexCount = 3
	cmd.VertexOffset = -2
	cmd.InstanceCount = 4
	if err := r.Draw(cmd); err != nil {
		t.Fatal(err)
	}
	d := hr.Draws[0]
	if d.Indexed || d.Count != 3 || d.First != 0 || d.Instances != 4 || d.Scissor != nil {
		t.Fatalf("draw record: %+v", d)
	}
}

func TestDrawSkippedWhenPassRefused(t *testing.T) {
	r, hr := newTestRenderer(t)
	f := newDrawFixture(t, r)
	hr.FailRenderPass = true
	if err := r.Draw(f.command()); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if len(hr.Draws) != 0 || r.PipelineCache().Len() != 0 {
		t.Fatalf("refused pass still drew: draws=%d pipelines=%d", len(hr.Draws), r.PipelineCache().Len())
	}
}

func TestRenderPassLoadAndClear(t *testing.T) {
	r, hr := newTestRenderer(t)
	rt, err := r.CreateRenderTarget(4, 4, metadata.TextureFormatR8G8B8A8, metadata.TextureFormatR8G8B8A8, metadata.TextureFormatDepth16)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Clear(rt, metadata.ColourRed); err != nil {
		t.Fatal(err)
	}
	if err := r.Flush(); err != nil {
		t.Fatal(err)
	}
	red := bytes.Repeat([]byte{255, 0, 0, 255}, 16)
	for _, a := range rt.Attachments()[:2] {
		if !bytes.Equal(hr.TextureData(a.Handle()), red) {
			t.Fatalf("attachment %s was not cleared", a.Name())
		}
	}
	clearPass := hr.Passes[len(hr.Passes)-1]
	if len(clearPass.ColorTargets) != 2 || clearPass.DepthStencil == nil {
		t.Fatalf("pass targets: %+v", clearPass)
	}
	if clearPass.DepthStencil.LoadOp != metadata.LoadOpClear || clearPass.DepthStencil.ClearDepth != 1 {
		t.Fatalf("depth clear: %+v", clearPass.DepthStencil)
	}

	pass, ok, err := r.BeginRenderPass(rt, RenderPassClear{})
	if err != nil || !ok {
		t.Fatalf("BeginRenderPass: %v %v", ok, err)
	}
	pass.End()
	r.Flush()
	loadPass := hr.Passes[len(hr.Passes)-1]
	for _, ct := range loadPass.ColorTargets {
		if ct.LoadOp != metadata.LoadOpLoad {
			t.Fatalf("LoadOp:\nhave %v\nwant %v", ct.LoadOp, metadata.LoadOpLoad)
		}
	}
	if loadPass.DepthStencil.LoadOp != metadata.LoadOpLoad || loadPass.DepthStencil.StencilLoadOp != metadata.LoadOpLoad {
		t.Fatalf("depth load ops: %+v", loadPass.DepthStencil)
	}
	if !bytes.Equal(hr.TextureData(rt.Attachments()[0].Handle()), red) {
		t.Fatal("loading pass lost the previous contents")
	}
}

func TestBeginRenderPassOnDestroyedTarget(t *testing.T) {
	r, _ := newTestRenderer(t)
	rt, _ := r.CreateRenderTarget(4, 4, metadata.TextureFormatR8G8B8A8)
	r.Destroy(rt)
	if _, _, err := r.BeginRenderPass(rt, RenderPassClear{}); !errors.Is(err, core.ErrInvalidOperation) {
		t.Fatalf("BeginRenderPass:\nhave %v\nwant %v", err, core.ErrInvalidOperation)
	}
}
