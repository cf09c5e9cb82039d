package renderer

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

type drawFixture struct {
	r        *Renderer
	target   *RenderTarget
	material *Material
	vertices *Buffer
	indices  *Buffer
}

func newDrawFixture(t *testing.T, r *Renderer) *drawFixture {
	t.Helper()
	target, err := r.CreateRenderTarget(16, 16, metadata.TextureFormatR8G8B8A8, metadata.TextureFormatDepth24Stencil8)
	if err != nil {
		t.Fatal(err)
	}
	vertices, err := r.CreateVertexBuffer(NewVertexLayout(
		VertexAttribute{Index: 0, Type: metadata.VertexTypeFloat3},
		VertexAttribute{Index: 1, Type: metadata.VertexTypeFloat2},
	))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.UploadBufferData(vertices, make([]byte, 4*20), 0); err != nil {
		t.Fatal(err)
	}
	indices := r.CreateIndexBuffer(metadata.IndexFormatSixteen)
	if err := r.UploadBufferData(indices, []byte{0, 0, 1, 0, 2, 0, 2, 0, 3, 0, 0, 0}, 0); err != nil {
		t.Fatal(err)
	}
	return &drawFixture{
		r:        r,
		target:   target,
		material: NewMaterial(testShader(t, r)),
		vertices: vertices,
		indices:  indices,
	}
}

func (f *drawFixture) command() *DrawCommand {
	return &DrawCommand{
		RenderTarget:  f.target,
		Material:      f.material,
		VertexBuffers: []*Buffer{f.vertices},
		IndexBuffer:   f.indices,
		IndexCount:    6,
		BlendMode:     metadata.BlendModeOpaque,
		CullMode:      metadata.CullModeBack,
		DepthCompare:  metadata.DepthCompareLess,
		DepthTest:     true,
		DepthWrite:    true,
	}
}

func TestPipelineCacheReusesIdenticalState(t *testing.T) {
	r, hr := newTestRenderer(t)
	f := newDrawFixture(t, r)
	for i := 0; i < 3; i++ {
		if err := r.Draw(f.command()); err != nil {
			t.Fatalf("Draw #%d: %v", i, err)
		}
	}
	if hr.PipelinesCreated != 1 {
		t.Fatalf("PipelinesCreated:\nhave %d\nwant 1", hr.PipelinesCreated)
	}
	hits, misses := r.PipelineCache().Stats()
	if hits != 2 || misses != 1 {
		t.Fatalf("Stats:\nhave %d hits %d misses\nwant 2 hits 1 miss", hits, misses)
	}
}

func TestPipelineCacheDistinguishesState(t *testing.T) {
	tests := []struct {
		name   string
		modify func(t *testing.T, f *drawFixture, cmd *DrawCommand)
	}{
		{"cull mode", func(t *testing.T, f *drawFixture, cmd *DrawCommand) { cmd.CullMode = metadata.CullModeNone }},
		{"depth compare", func(t *testing.T, f *drawFixture, cmd *DrawCommand) { cmd.DepthCompare = metadata.DepthCompareGreater }},
		{"depth test", func(t *testing.T, f *drawFixture, cmd *DrawCommand) { cmd.DepthTest = false }},
		{"depth write", func(t *testing.T, f *drawFixture, cmd *DrawCommand) { cmd.DepthWrite = false }},
		{"blend mode", func(t *testing.T, f *drawFixture, cmd *DrawCommand) { cmd.BlendMode = metadata.BlendModeAdditive }},
		{"blend mask", func(t *testing.T, f *drawFixture, cmd *DrawCommand) { cmd.BlendMode.Mask = metadata.BlendMaskRGB }},
		{"no index buffer", func(t *testing.T, f *drawFixture, cmd *DrawCommand) {
			cmd.IndexBuffer, cmd.VertexCount = nil, 4
		}},
		{"index format", func(t *testing.T, f *drawFixture, cmd *DrawCommand) {
			ib := f.r.CreateIndexBuffer(metadata.IndexFormatThirtyTwo)
			if err := f.r.UploadBufferData(ib, make([]byte, 24), 0); err != nil {
				t.Fatal(err)
			}
			cmd.IndexBuffer = ib
		}},
		{"instance rate", func(t *testing.T, f *drawFixture, cmd *DrawCommand) { cmd.InstanceInputRates = []bool{true} }},
		{"vertex layout", func(t *testing.T, f *drawFixture, cmd *DrawCommand) {
			vb, _ := f.r.CreateVertexBuffer(NewVertexLayout(
				VertexAttribute{Index: 0, Type: metadata.VertexTypeFloat3},
				VertexAttribute{Index: 1, Type: metadata.VertexTypeUByte4, Normalized: true},
			))
			if err := f.r.UploadBufferData(vb, make([]byte, 64), 0); err != nil {
				t.Fatal(err)
			}
			cmd.VertexBuffers = []*Buffer{vb}
		}},
		{"target formats", func(t *testing.T, f *drawFixture, cmd *DrawCommand) {
			rt, err := f.r.CreateRenderTarget(16, 16, metadata.TextureFormatR8G8B8A8, metadata.TextureFormatDepth32)
			if err != nil {
				t.Fatal(err)
			}
			cmd.RenderTarget = rt
		}},
		{"shader", func(t *testing.T, f *drawFixture, cmd *DrawCommand) { cmd.Material = NewMaterial(testShader(t, f.r)) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, hr := newTestRenderer(t)
			f := newDrawFixture(t, r)
			if err := r.Draw(f.command()); err != nil {
				t.Fatal(err)
			}
			cmd := f.command()
			tc.modify(t, f, cmd)
			if err := r.Draw(cmd); err != nil {
				t.Fatal(err)
			}
			if hr.PipelinesCreated != 2 {
				t.Fatalf("PipelinesCreated after a %s change:\nhave %d\nwant 2", tc.name, hr.PipelinesCreated)
			}
			if err := r.Draw(f.command()); err != nil {
				t.Fatal(err)
			}
			if hr.PipelinesCreated != 2 {
				t.Fatalf("original state was rebuilt: %d pipelines", hr.PipelinesCreated)
			}
		})
	}
}

func TestPipelineCacheSameLayoutValue(t *testing.T) {
	r, hr := newTestRenderer(t)
	f := newDrawFixture(t, r)
	other, _ := r.CreateVertexBuffer(NewVertexLayout(
		VertexAttribute{Index: 0, Type: metadata.VertexTypeFloat3},
		VertexAttribute{Index: 1, Type: metadata.VertexTypeFloat2},
	))
	r.UploadBufferData(other, make([]byte, 80), 0)

	r.Draw(f.command())
	cmd := f.command()
	cmd.VertexBuffers = []*Buffer{other}
	if err := r.Draw(cmd); err != nil {
		t.Fatal(err)
	}
	if hr.PipelinesCreated != 1 {
		t.Fatalf("equal layouts built separate pipelines: %d", hr.PipelinesCreated)
	}
}

func TestPipelineCreateFailureIsNotCached(t *testing.T) {
	r, hr := newTestRenderer(t)
	f := newDrawFixture(t, r)
	hr.FailPipelineCreate = true
	if err := r.Draw(f.command()); !errors.Is(err, core.ErrDevice) {
		t.Fatalf("Draw:\nhave %v\nwant %v", err, core.ErrDevice)
	}
	if r.PipelineCache().Len() != 0 {
		t.Fatalf("failed pipeline was cached")
	}
	hr.FailPipelineCreate = false
	if err := r.Draw(f.command()); err != nil {
		t.Fatal(err)
	}
	if r.PipelineCache().Len() != 1 {
		t.Fatalf("Len:\nhave %d\nwant 1", r.PipelineCache().Len())
	}
}

func TestPipelineInfoVertexInput(t *testing.T) {
	r, hr := newTestRenderer(t)
	f := newDrawFixture(t, r)
	instances, _ := r.CreateVertexBuffer(NewVertexLayout(
		VertexAttribute{Index: 2, Type: metadata.VertexTypeFloat4},
		VertexAttribute{Index: 3, Type: metadata.VertexTypeUByte4, Normalized: true},
	))
	r.UploadBufferData(instances, make([]byte, 40), 0)

	cmd := f.command()
	cmd.VertexBuffers = append(cmd.VertexBuffers, instances)
	cmd.InstanceInputRates = []bool{false, true}
	cmd.InstanceCount = 2
	if err := r.Draw(cmd); err != nil {
		t.Fatal(err)
	}
	info, ok := hr.PipelineInfo(hr.Draws[0].Pipeline)
	if !ok {
		t.Fatal("drawn pipeline unknown to the backend")
	}
	if len(info.VertexBuffers) != 2 || info.VertexBuffers[0].Pitch != 20 || info.VertexBuffers[1].Pitch != 20 {
		t.Fatalf("vertex buffers: %+v", info.VertexBuffers)
	}
	if info.VertexBuffers[0].InputRate != metadata.VertexInputRateVertex || info.VertexBuffers[1].InputRate != metadata.VertexInputRateInstance {
		t.Fatalf("input rates: %+v", info.VertexBuffers)
	}
	want := []metadata.VertexAttributeDescription{
		{Location: 0, BufferSlot: 0, Format: metadata.NewVertexElementFormat(metadata.VertexTypeFloat3, false), Offset: 0},
		{Location: 1, BufferSlot: 0, Format: metadata.NewVertexElementFormat(metadata.VertexTypeFloat2, false), Offset: 12},
		{Location: 2, BufferSlot: 1, Format: metadata.NewVertexElementFormat(metadata.VertexTypeFloat4, false), Offset: 0},
		{Location: 3, BufferSlot: 1, Format: metadata.NewVertexElementFormat(metadata.VertexTypeUByte4, true), Offset: 16},
	}
	if len(info.VertexAttributes) != len(want) {
		t.Fatalf("attributes:\nhave %+v\nwant %+v", info.VertexAttributes, want)
	}
	for i := range want {
		if info.VertexAttributes[i] != want[i] {
			t.Fatalf("attribute %d:\nhave %+v\nwant %+v", i, info.VertexAttributes[i], want[i])
		}
	}
	if !info.HasDepthStencil || info.DepthStencilFormat != metadata.TextureFormatDepth24Stencil8 {
		t.Fatalf("depth stencil: %v %v", info.HasDepthStencil, info.DepthStencilFormat)
	}
	if len(info.ColorTargets) != 1 || !info.ColorTargets[0].BlendState.EnableBlend {
		t.Fatalf("colour targets: %+v", info.ColorTargets)
	}
}
