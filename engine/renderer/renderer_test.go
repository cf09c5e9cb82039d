package renderer

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/headless"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

func init() {
	core.SetLogOutput(io.Discard)
}

func newTestRenderer(t *testing.T) (*Renderer, *headless.HeadlessRenderer) {
	t.Helper()
	hr := headless.New()
	r := New(hr)
	if err := r.Initialize(&metadata.RendererBackendConfig{ApplicationName: t.Name(), Width: 800, Height: 600}, nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return r, hr
}

func testShader(t *testing.T, r *Renderer) *Shader {
	t.Helper()
	s, err := r.CreateShader(ShaderInfo{VertexSource: []byte("vs"), FragmentSource: []byte("fs")})
	if err != nil {
		t.Fatalf("CreateShader: %v", err)
	}
	return s
}

func TestCreateTextureRejectsEmptySizes(t *testing.T) {
	r, _ := newTestRenderer(t)
	for _, size := range [][2]int{{0, 10}, {10, 0}, {-1, 10}, {10, -5}} {
		if _, err := r.CreateTexture(size[0], size[1], metadata.TextureFormatR8G8B8A8, nil); !errors.Is(err, core.ErrInvalidArgument) {
			t.Fatalf("CreateTexture(%d, %d):\nhave %v\nwant %v", size[0], size[1], err, core.ErrInvalidArgument)
		}
	}
	tex, err := r.CreateTexture(4, 4, metadata.TextureFormatR8G8B8A8, nil)
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	if tex.Disposed() || tex.Handle() == metadata.NullHandle {
		t.Fatal("new texture should be live")
	}
	if !tex.Usage.Has(metadata.TextureUsageSampler) || tex.Usage.Has(metadata.TextureUsageColorTarget) {
		t.Fatalf("free-standing texture usage: %#x", uint32(tex.Usage))
	}
}

func TestRenderTargetAttachmentUsage(t *testing.T) {
	r, _ := newTestRenderer(t)
	rt, err := r.CreateRenderTarget(8, 8, metadata.TextureFormatR8G8B8A8, metadata.TextureFormatDepth24Stencil8)
	if err != nil {
		t.Fatalf("CreateRenderTarget: %v", err)
	}
	colour, depth := rt.Attachments()[0], rt.Attachments()[1]
	if !colour.Usage.Has(metadata.TextureUsageColorTarget | metadata.TextureUsageSampler) {
		t.Fatalf("colour attachment usage: %#x", uint32(colour.Usage))
	}
	if !depth.Usage.Has(metadata.TextureUsageDepthStencilTarget|metadata.TextureUsageSampler) || depth.Usage.Has(metadata.TextureUsageColorTarget) {
		t.Fatalf("depth attachment usage: %#x", uint32(depth.Usage))
	}
	if colour.RenderTarget() != rt {
		t.Fatal("attachment does not point back at its render target")
	}
	if _, err := r.CreateRenderTarget(8, 8, metadata.TextureFormatDepth16, metadata.TextureFormatDepth32); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("two depth attachments:\nhave %v\nwant %v", err, core.ErrInvalidArgument)
	}
}

func TestDestroyIsIdempotentAndCascades(t *testing.T) {
	r, hr := newTestRenderer(t)
	tex, _ := r.CreateTexture(2, 2, metadata.TextureFormatR8, nil)
	rt, _ := r.CreateRenderTarget(4, 4, metadata.TextureFormatR8G8B8A8, metadata.TextureFormatDepth16)
	shader := testShader(t, r)
	buf := r.CreateIndexBuffer(metadata.IndexFormatSixteen)
	if err := r.UploadBufferData(buf, []byte{1, 2}, 0); err != nil {
		t.Fatal(err)
	}

	if err := r.Destroy(rt.Attachments()[0]); !errors.Is(err, core.ErrInvalidOperation) {
		t.Fatalf("destroying an owned attachment:\nhave %v\nwant %v", err, core.ErrInvalidOperation)
	}

	for _, res := range []Resource{tex, rt, shader, buf} {
		for i := 0; i < 2; i++ {
			if err := r.Destroy(res); err != nil {
				t.Fatalf("Destroy(%s) #%d: %v", res.Name(), i, err)
			}
			if !res.Disposed() {
				t.Fatalf("%s not disposed", res.Name())
			}
		}
	}
	for _, a := range rt.Attachments() {
		if !a.Disposed() {
			t.Fatalf("attachment %s survived its render target", a.Name())
		}
	}
	if hr.LiveTextures() != 0 || hr.LiveShaders() != 0 || hr.LiveBuffers() != 0 {
		t.Fatalf("leaked objects: textures=%d shaders=%d buffers=%d", hr.LiveTextures(), hr.LiveShaders(), hr.LiveBuffers())
	}
	if r.LiveResources() != 0 {
		t.Fatalf("LiveResources:\nhave %d\nwant 0", r.LiveResources())
	}
	if err := r.Destroy(nil); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("Destroy(nil):\nhave %v\nwant %v", err, core.ErrInvalidArgument)
	}
}

func TestCreateShaderFragmentFailureReleasesVertex(t *testing.T) {
	r, hr := newTestRenderer(t)
	hr.FailShaderStage[metadata.ShaderStageFragment] = true
	if _, err := r.CreateShader(ShaderInfo{VertexSource: []byte("vs"), FragmentSource: []byte("fs")}); !errors.Is(err, core.ErrDevice) {
		t.Fatalf("CreateShader:\nhave %v\nwant %v", err, core.ErrDevice)
	}
	if hr.LiveShaders() != 0 {
		t.Fatalf("LiveShaders:\nhave %d\nwant 0", hr.LiveShaders())
	}
}

func TestShaderInfoDefaults(t *testing.T) {
	info := ShaderInfoFromSource([]byte("src"), "inc", "")
	if info.VertexEntryPoint != "mainVertex" || info.FragmentEntryPoint != "mainFragment" {
		t.Fatalf("entry points:\nhave %s %s\nwant mainVertex mainFragment", info.VertexEntryPoint, info.FragmentEntryPoint)
	}
	d := ShaderInfo{}.withDefaults()
	if d.VertexEntryPoint != "main" || d.FragmentEntryPoint != "main" {
		t.Fatalf("default entry points:\nhave %s %s", d.VertexEntryPoint, d.FragmentEntryPoint)
	}
}

func TestUploadIntoDestroyedBuffer(t *testing.T) {
	r, _ := newTestRenderer(t)
	buf := r.CreateBuffer(metadata.BufferUsageVertex)
	r.Destroy(buf)
	if err := r.UploadBufferData(buf, []byte{1}, 0); !errors.Is(err, core.ErrInvalidOperation) {
		t.Fatalf("UploadBufferData:\nhave %v\nwant %v", err, core.ErrInvalidOperation)
	}
	if err := r.UploadBufferData(nil, []byte{1}, 0); !errors.Is(err, core.ErrInvalidOperation) {
		t.Fatalf("UploadBufferData(nil):\nhave %v\nwant %v", err, core.ErrInvalidOperation)
	}
}

func TestBufferGrowthKeepsContents(t *testing.T) {
	r, _ := newTestRenderer(t)
	buf := r.CreateBuffer(metadata.BufferUsageVertex)

	p1 := bytes.Repeat([]byte{0xAA}, 100)
	p2 := bytes.Repeat([]byte{0xBB}, 50)
	p3 := bytes.Repeat([]byte{0xCC}, 10)
	if err := r.UploadBufferData(buf, p1, 0); err != nil {
		t.Fatal(err)
	}
	if buf.Size() != 100 {
		t.Fatalf("size after first upload:\nhave %d\nwant 100", buf.Size())
	}
	if err := r.UploadBufferData(buf, p2, 100); err != nil {
		t.Fatal(err)
	}
	if buf.Size() < 150 {
		t.Fatalf("size after second upload:\nhave %d\nwant >= 150", buf.Size())
	}
	got, err := r.DownloadBufferData(buf, 0, 150)
	if err != nil {
		t.Fatalf("DownloadBufferData: %v", err)
	}
	if !bytes.Equal(got[:100], p1) || !bytes.Equal(got[100:], p2) {
		t.Fatal("payloads not readable at their offsets")
	}

	if err := r.UploadBufferData(buf, p3, 0); err != nil {
		t.Fatal(err)
	}
	if buf.Size() < 150 {
		t.Fatalf("buffer shrank to %d", buf.Size())
	}
	got, err = r.DownloadBufferData(buf, 0, 150)
	if err != nil {
		t.Fatal(err)
	}
	want := append(append(append([]byte{}, p3...), p1[10:]...), p2...)
	if !bytes.Equal(got, want) {
		t.Fatal("contents after overwrite mismatch")
	}
}

func TestBufferGrowthOverlappingUpload(t *testing.T) {
	r, _ := newTestRenderer(t)
	buf := r.CreateBuffer(metadata.BufferUsageVertex)

	old := bytes.Repeat([]byte{0xAA}, 100)
	if err := r.UploadBufferData(buf, old, 0); err != nil {
		t.Fatal(err)
	}
	if err := r.Flush(); err != nil {
		t.Fatal(err)
	}
	// Grows the buffer; the preserved range is fully covered by the new payload.
	payload := bytes.Repeat([]byte{0xDD}, 150)
	if err := r.UploadBufferData(buf, payload, 0); err != nil {
		t.Fatal(err)
	}
	got, err := r.DownloadBufferData(buf, 0, 150)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("old contents landed over the new payload:\nhave % x\nwant % x", got[:8], payload[:8])
	}
}

func TestUploadBeyondAddressableRange(t *testing.T) {
	r, _ := newTestRenderer(t)
	buf := r.CreateBuffer(metadata.BufferUsageGeneric)
	var limit uint32 = math.MaxUint32
	if err := r.UploadBufferData(buf, []byte{1}, int(limit)); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("UploadBufferData:\nhave %v\nwant %v", err, core.ErrInvalidArgument)
	}
	if buf.Handle() != metadata.NullHandle {
		t.Fatal("rejected upload allocated storage")
	}
}

func TestBufferCapacityIsHonoured(t *testing.T) {
	r, _ := newTestRenderer(t)
	buf := r.CreateBuffer(metadata.BufferUsageGeneric)
	buf.Capacity = 1024
	if err := r.UploadBufferData(buf, []byte{1, 2, 3}, 0); err != nil {
		t.Fatal(err)
	}
	if buf.Size() != 1024 {
		t.Fatalf("size:\nhave %d\nwant 1024", buf.Size())
	}
}

func TestStagingBoundary(t *testing.T) {
	for _, tc := range []struct {
		name    string
		offset  int
		size    int
		oneShot bool
	}{
		{"persistent", 0, StagingBufferSize, false},
		{"one-shot", 0, StagingBufferSize + 1, true},
		{"persistent at offset", 16, StagingBufferSize - 16, false},
		{"one-shot at offset", 16, StagingBufferSize - 15, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r, hr := newTestRenderer(t)
			before := hr.TransferBuffersCreated
			data := make([]byte, tc.size)
			for i := range data {
				data[i] = byte(i * 7)
			}
			buf := r.CreateBuffer(metadata.BufferUsageVertex)
			if err := r.UploadBufferData(buf, data, tc.offset); err != nil {
				t.Fatal(err)
			}
			if err := r.Flush(); err != nil {
				t.Fatal(err)
			}
			created := hr.TransferBuffersCreated - before
			if tc.oneShot && created != 1 || !tc.oneShot && created != 0 {
				t.Fatalf("transfer buffers created:\nhave %d\nwant one-shot=%v", created, tc.oneShot)
			}
			if hr.LiveTransferBuffers() != 2 {
				t.Fatalf("one-shot staging buffer leaked: %d live", hr.LiveTransferBuffers())
			}
			if !bytes.Equal(hr.BufferData(buf.Handle())[tc.offset:tc.offset+tc.size], data) {
				t.Fatal("destination contents differ from the payload")
			}
		})
	}
}

func TestUploadTextureData(t *testing.T) {
	r, hr := newTestRenderer(t)
	tex, _ := r.CreateTexture(2, 2, metadata.TextureFormatR8G8, nil)
	if err := r.UploadTextureData(tex, []byte{1, 2, 3}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("short upload:\nhave %v\nwant %v", err, core.ErrInvalidArgument)
	}
	pixels := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := r.UploadTextureData(tex, pixels); err != nil {
		t.Fatal(err)
	}
	r.Flush()
	if !bytes.Equal(hr.TextureData(tex.Handle()), pixels) {
		t.Fatalf("texture contents:\nhave %v\nwant %v", hr.TextureData(tex.Handle()), pixels)
	}
}
