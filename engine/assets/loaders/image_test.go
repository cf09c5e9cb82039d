package loaders

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/anima-gpu/engine/core"
	"golang.org/x/image/bmp"
)

func twoRowImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{R: 255, A: 255})
	img.Set(0, 1, color.NRGBA{B: 255, A: 255})
	img.Set(1, 1, color.NRGBA{B: 255, A: 255})
	return img
}

func TestDecodePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, twoRowImage()); err != nil {
		t.Fatal(err)
	}
	img, err := (&ImageLoader{}).Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if have := len(img.Pix); have != 2*2*4 {
		t.Fatalf("have %d bytes, want 16", have)
	}
	if have, want := img.RGBAAt(0, 0), (color.RGBA{R: 255, A: 255}); have != want {
		t.Errorf("have %v at (0,0), want %v", have, want)
	}
}

func TestDecodeBMPFlipped(t *testing.T) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, twoRowImage()); err != nil {
		t.Fatal(err)
	}
	img, err := (&ImageLoader{FlipY: true}).Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := img.RGBAAt(0, 0), (color.RGBA{B: 255, A: 255}); have != want {
		t.Errorf("have %v at (0,0), want %v", have, want)
	}
	if have, want := img.RGBAAt(1, 1), (color.RGBA{R: 255, A: 255}); have != want {
		t.Errorf("have %v at (1,1), want %v", have, want)
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, err := (&ImageLoader{}).Decode(bytes.NewReader([]byte("not an image")))
	if !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("have %v, want ErrInvalidArgument", err)
	}
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	var buf bytes.Buffer
	if err := png.Encode(&buf, twoRowImage()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	img, err := (&ImageLoader{}).Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if img.Rect.Dx() != 2 || img.Rect.Dy() != 2 {
		t.Errorf("have %v, want 2x2", img.Rect)
	}
}

func TestToRGBAOffsetBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(4, 4, 6, 6))
	src.SetRGBA(4, 4, color.RGBA{G: 255, A: 255})
	dst := ToRGBA(src)
	if dst.Rect.Min != (image.Point{}) {
		t.Fatalf("have origin %v, want (0,0)", dst.Rect.Min)
	}
	if have, want := dst.RGBAAt(0, 0), (color.RGBA{G: 255, A: 255}); have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestCheckerboard(t *testing.T) {
	white := color.RGBA{255, 255, 255, 255}
	magenta := color.RGBA{255, 0, 255, 255}
	img := Checkerboard(8, 2, white, magenta)
	tests := []struct {
		x, y int
		want color.RGBA
	}{
		{0, 0, white},
		{1, 1, white},
		{2, 0, magenta},
		{0, 2, magenta},
		{2, 2, white},
		{7, 7, white},
	}
	for _, tt := range tests {
		if have := img.RGBAAt(tt.x, tt.y); have != tt.want {
			t.Errorf("(%d,%d): have %v, want %v", tt.x, tt.y, have, tt.want)
		}
	}
}

func TestShaderLoaderRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.vert")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := (&ShaderLoader{}).Load(path)
	if !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("have %v, want ErrInvalidArgument", err)
	}
}
