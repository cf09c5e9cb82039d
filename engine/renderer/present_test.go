package renderer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

func TestBackBufferSize(t *testing.T) {
	tests := []struct {
		name           string
		current        [2]uint32
		swapchain      [2]uint32
		wantW, wantH   uint32
		wantReallocate bool
	}{
		{"grow", [2]uint32{864, 664}, [2]uint32{1000, 800}, 1064, 864, true},
		{"within margin", [2]uint32{864, 664}, [2]uint32{820, 610}, 0, 0, false},
		{"exact margin", [2]uint32{928, 728}, [2]uint32{800, 600}, 0, 0, false},
		{"shrink width", [2]uint32{1064, 864}, [2]uint32{800, 740}, 800, 740, true},
		{"shrink height", [2]uint32{864, 1000}, [2]uint32{800, 600}, 800, 600, true},
		{"one axis smaller", [2]uint32{864, 600}, [2]uint32{800, 601}, 864, 665, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			current := &RenderTarget{Width: tc.current[0], Height: tc.current[1]}
			w, h, ok := backBufferSize(current, tc.swapchain[0], tc.swapchain[1])
			if ok != tc.wantReallocate || w != tc.wantW || h != tc.wantH {
				t.Fatalf("backBufferSize:\nhave %dx%d %v\nwant %dx%d %v", w, h, ok, tc.wantW, tc.wantH, tc.wantReallocate)
			}
		})
	}
	if w, h, ok := backBufferSize(nil, 800, 600); !ok || w != 864 || h != 664 {
		t.Fatalf("nil back-buffer:\nhave %dx%d %v\nwant 864x664 true", w, h, ok)
	}
}

func TestPresentHysteresis(t *testing.T) {
	r, hr := newTestRenderer(t)
	if r.BackBuffer() != nil {
		t.Fatal("back-buffer exists before the first present")
	}
	if err := r.Present(); err != nil {
		t.Fatal(err)
	}
	first := r.BackBuffer()
	if first == nil || first.Width != 864 || first.Height != 664 {
		t.Fatalf("first back-buffer: %+v", first)
	}

	hr.SetSwapchainSize(820, 610)
	if err := r.Present(); err != nil {
		t.Fatal(err)
	}
	if r.BackBuffer() != first {
		t.Fatal("back-buffer reallocated within the hysteresis band")
	}

	hr.SetSwapchainSize(1000, 800)
	if err := r.Present(); err != nil {
		t.Fatal(err)
	}
	bb := r.BackBuffer()
	if bb == first || bb.Width != 1064 || bb.Height != 864 {
		t.Fatalf("grown back-buffer: %dx%d", bb.Width, bb.Height)
	}
	if !first.Disposed() {
		t.Fatal("old back-buffer was not destroyed")
	}
	if hr.Presents != 3 {
		t.Fatalf("Presents:\nhave %d\nwant 3", hr.Presents)
	}
}

func TestPresentBlitsBackBuffer(t *testing.T) {
	r, hr := newTestRenderer(t)
	hr.SetSwapchainSize(4, 4)
	if err := r.Present(); err != nil {
		t.Fatal(err)
	}
	if len(hr.Blits) != 0 {
		t.Fatal("first present blitted without a back-buffer")
	}
	if err := r.Clear(r.BackBuffer(), metadata.ColourGreen); err != nil {
		t.Fatal(err)
	}
	if err := r.Present(); err != nil {
		t.Fatal(err)
	}
	if len(hr.Blits) != 1 {
		t.Fatalf("blits:\nhave %d\nwant 1", len(hr.Blits))
	}
	b := hr.Blits[0]
	if b.Source.W != 4 || b.Source.H != 4 || b.Filter != metadata.TextureFilterNearest || b.LoadOp != metadata.LoadOpDontCare {
		t.Fatalf("blit: %+v", b)
	}
	green := bytes.Repeat([]byte{0, 255, 0, 255}, 16)
	if !bytes.Equal(hr.TextureData(hr.Swapchain()), green) {
		t.Fatal("swapchain image does not show the back-buffer")
	}
}

func TestPresentSwapchainFailure(t *testing.T) {
	r, hr := newTestRenderer(t)
	hr.FailSwapchainAcquire = true
	if err := r.Present(); !errors.Is(err, core.ErrDevice) {
		t.Fatalf("Present:\nhave %v\nwant %v", err, core.ErrDevice)
	}
}

func TestShutdownReleasesEverything(t *testing.T) {
	r, hr := newTestRenderer(t)
	f := newDrawFixture(t, r)
	if err := r.Draw(f.command()); err != nil {
		t.Fatal(err)
	}
	if err := r.Present(); err != nil {
		t.Fatal(err)
	}
	if err := r.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if n := hr.LiveTextures() + hr.LiveBuffers() + hr.LiveTransferBuffers() + hr.LiveShaders() + hr.LivePipelines(); n != 0 {
		t.Fatalf("%d device objects left after shutdown", n)
	}
	if err := r.Draw(f.command()); !errors.Is(err, core.ErrInvalidOperation) {
		t.Fatalf("Draw after shutdown:\nhave %v\nwant %v", err, core.ErrInvalidOperation)
	}
}
