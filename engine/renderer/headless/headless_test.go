package headless

import (
	"bytes"
	"testing"

	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

func newTestRenderer(t *testing.T) *HeadlessRenderer {
	t.Helper()
	hr := New()
	if err := hr.Initialize(&metadata.RendererBackendConfig{ApplicationName: "test", Width: 4, Height: 4}, nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return hr
}

func submit(t *testing.T, hr *HeadlessRenderer, cb metadata.CommandBuffer) {
	t.Helper()
	f, err := cb.SubmitAndAcquireFence()
	if err != nil {
		t.Fatalf("SubmitAndAcquireFence: %v", err)
	}
	if err := hr.WaitForFences(true, f); err != nil {
		t.Fatalf("WaitForFences: %v", err)
	}
	hr.ReleaseFence(f)
}

func TestUploadCyclesInFlightTransferBuffer(t *testing.T) {
	hr := newTestRenderer(t)
	tb, _ := hr.TransferBufferCreate(&metadata.TransferBufferCreateInfo{Size: 4})
	buf, _ := hr.BufferCreate(&metadata.BufferCreateInfo{Size: 8, Usage: metadata.BufferUsageVertex})

	cb, _ := hr.AcquireCommandBuffer()
	for i, payload := range [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8}} {
		mem, err := hr.TransferBufferMap(tb, true)
		if err != nil {
			t.Fatalf("TransferBufferMap: %v", err)
		}
		copy(mem, payload)
		hr.TransferBufferUnmap(tb)
		cp, _ := cb.BeginCopyPass()
		cp.UploadToBuffer(metadata.TransferBufferLocation{TransferBuffer: tb}, metadata.BufferRegion{Buffer: buf, Offset: uint32(i * 4), Size: 4}, true)
		cp.End()
	}
	submit(t, hr, cb)

	if have, want := hr.BufferData(buf), []byte{1, 2, 3, 4, 5, 6, 7, 8}; !bytes.Equal(have, want) {
		t.Fatalf("buffer contents:\nhave %v\nwant %v", have, want)
	}
	if hr.TransferCycles != 1 {
		t.Fatalf("TransferCycles:\nhave %d\nwant 1", hr.TransferCycles)
	}

	// Nothing references the backing anymore.
	hr.TransferBufferMap(tb, true)
	hr.TransferBufferUnmap(tb)
	if hr.TransferCycles != 1 {
		t.Fatalf("TransferCycles after completion:\nhave %d\nwant 1", hr.TransferCycles)
	}
}

func TestRenderPassClearAndLoad(t *testing.T) {
	hr := newTestRenderer(t)
	tex, err := hr.TextureCreate(&metadata.TextureCreateInfo{Width: 2, Height: 2, Format: metadata.TextureFormatR8G8B8A8, Usage: metadata.TextureUsageColorTarget})
	if err != nil {
		t.Fatalf("TextureCreate: %v", err)
	}

	cb, _ := hr.AcquireCommandBuffer()
	rp, err := cb.BeginRenderPass([]metadata.ColorTargetInfo{{Texture: tex, LoadOp: metadata.LoadOpClear, ClearColor: metadata.ColourRed}}, nil)
	if err != nil {
		t.Fatalf("BeginRenderPass: %v", err)
	}
	rp.End()
	submit(t, hr, cb)

	cb, _ = hr.AcquireCommandBuffer()
	rp, _ = cb.BeginRenderPass([]metadata.ColorTargetInfo{{Texture: tex, LoadOp: metadata.LoadOpLoad}}, nil)
	rp.End()
	submit(t, hr, cb)

	px := hr.TextureData(tex)
	for i := 0; i < len(px); i += 4 {
		if !bytes.Equal(px[i:i+4], []byte{255, 0, 0, 255}) {
			t.Fatalf("pixel %d:\nhave %v\nwant [255 0 0 255]", i/4, px[i:i+4])
		}
	}
	if len(hr.Passes) != 2 || hr.Passes[1].ColorTargets[0].LoadOp != metadata.LoadOpLoad {
		t.Fatalf("pass log mismatch: %+v", hr.Passes)
	}
}

func TestBlitNearest(t *testing.T) {
	hr := newTestRenderer(t)
	src, _ := hr.TextureCreate(&metadata.TextureCreateInfo{Width: 2, Height: 1, Format: metadata.TextureFormatR8, Usage: metadata.TextureUsageSampler})
	dst, _ := hr.TextureCreate(&metadata.TextureCreateInfo{Width: 4, Height: 1, Format: metadata.TextureFormatR8, Usage: metadata.TextureUsageSampler})
	copy(hr.TextureData(src), []byte{10, 20})

	cb, _ := hr.AcquireCommandBuffer()
	cb.Blit(&metadata.BlitInfo{
		Source:      metadata.BlitRegion{Texture: src, W: 2, H: 1},
		Destination: metadata.BlitRegion{Texture: dst, W: 4, H: 1},
		Filter:      metadata.TextureFilterNearest,
	})
	submit(t, hr, cb)

	if have, want := hr.TextureData(dst), []byte{10, 10, 20, 20}; !bytes.Equal(have, want) {
		t.Fatalf("blit:\nhave %v\nwant %v", have, want)
	}
}

func TestSubmitWithOpenPassFails(t *testing.T) {
	hr := newTestRenderer(t)
	cb, _ := hr.AcquireCommandBuffer()
	if _, err := cb.BeginCopyPass(); err != nil {
		t.Fatal(err)
	}
	if _, err := cb.SubmitAndAcquireFence(); err == nil {
		t.Fatal("SubmitAndAcquireFence with open copy pass: expected error")
	}
	if err := hr.WaitForFences(true, metadata.FenceHandle(999)); err == nil {
		t.Fatal("WaitForFences on unknown fence: expected error")
	}
}

func TestSwapchainFollowsConfiguredSize(t *testing.T) {
	hr := newTestRenderer(t)
	hr.SetSwapchainSize(16, 8)
	cb, _ := hr.AcquireCommandBuffer()
	sc, err := cb.WaitAndAcquireSwapchainTexture()
	if err != nil {
		t.Fatal(err)
	}
	if sc.Width != 16 || sc.Height != 8 || sc.Handle == metadata.NullHandle {
		t.Fatalf("swapchain:\nhave %+v\nwant 16x8", sc)
	}
	submit(t, hr, cb)
	if hr.Presents != 1 {
		t.Fatalf("Presents:\nhave %d\nwant 1", hr.Presents)
	}
	if hr.LiveTextures() != 0 {
		t.Fatalf("LiveTextures should not count the swapchain: %d", hr.LiveTextures())
	}
}
