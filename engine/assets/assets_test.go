package assets

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/spaghettifunk/anima-gpu/engine/assets/loaders"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

func newManager(t *testing.T, dir string) *AssetManager {
	t.Helper()
	am, err := NewAssetManager()
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Initialize(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { am.Shutdown() })
	return am
}

func TestDetermineAssetType(t *testing.T) {
	tests := []struct {
		path string
		want AssetType
	}{
		{"shaders/quad.vert", AssetTypeShader},
		{"shaders/quad.FRAG", AssetTypeShader},
		{"shaders/quad.vert.spv", AssetTypeShader},
		{"textures/a.png", AssetTypeImage},
		{"textures/a.webp", AssetTypeImage},
		{"readme.md", AssetTypeNone},
	}
	for _, tt := range tests {
		if have := determineAssetType(tt.path); have != tt.want {
			t.Errorf("%s: have %s, want %s", tt.path, have, tt.want)
		}
	}
}

func TestInitializeIndexesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "shaders"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "shaders", "quad.vert"), []byte("void main(){}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	am := newManager(t, dir)
	if have := am.Count(); have != 1 {
		t.Fatalf("have %d assets, want 1", have)
	}
	info, ok := am.Lookup("shaders/quad.vert")
	if !ok || info.Type != AssetTypeShader {
		t.Fatalf("have %+v %v, want indexed shader", info, ok)
	}
	src, err := am.LoadShader("shaders/quad.vert")
	if err != nil {
		t.Fatal(err)
	}
	if string(src) != "void main(){}" {
		t.Errorf("have %q", src)
	}
}

func TestLoadWrongType(t *testing.T) {
	am := newManager(t, t.TempDir())
	if _, err := am.LoadImage("shaders/quad.vert"); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("have %v, want ErrInvalidArgument", err)
	}
}

func TestMissingDirectory(t *testing.T) {
	am := newManager(t, filepath.Join(t.TempDir(), "nope"))
	if have := am.Count(); have != 0 {
		t.Errorf("have %d assets, want 0", have)
	}
	if have := am.PollChanges(); len(have) != 0 {
		t.Errorf("have %v, want no changes", have)
	}
}

func TestShaderChangeIsQueued(t *testing.T) {
	dir := t.TempDir()
	am := newManager(t, dir)

	path := filepath.Join(am.root, "quad.frag")
	if err := os.WriteFile(path, []byte("void main(){}"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if changed := am.PollChanges(); slices.Contains(changed, path) {
			if _, ok := am.Lookup("quad.frag"); !ok {
				t.Error("have changed shader missing from the index")
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no change reported for %s", path)
}

func TestShutdownWithoutInitialize(t *testing.T) {
	am, err := NewAssetManager()
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if err := am.Shutdown(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadImagesInParallel(t *testing.T) {
	dir := t.TempDir()
	names := []string{"a.png", "b.png", "c.png"}
	for i, name := range names {
		img := loaders.Checkerboard(4+i, 1, color.RGBA{A: 255}, color.RGBA{R: 255, A: 255})
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	am := newManager(t, dir)
	images, err := am.LoadImages(names)
	if err != nil {
		t.Fatal(err)
	}
	for i, name := range names {
		img, ok := images[name]
		if !ok {
			t.Fatalf("%s missing", name)
		}
		if have, want := img.Rect.Dx(), 4+i; have != want {
			t.Errorf("%s: have width %d, want %d", name, have, want)
		}
	}

	if _, err := am.LoadImages([]string{"a.png", "missing.png"}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("have %v, want os.ErrNotExist", err)
	}
}

func TestLoadAfterShutdown(t *testing.T) {
	am, err := NewAssetManager()
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Initialize(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if err := am.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if _, err := am.LoadImages([]string{"a.png"}); !errors.Is(err, core.ErrInvalidOperation) {
		t.Errorf("LoadImages: have %v, want ErrInvalidOperation", err)
	}
	if _, err := am.LoadImage("a.png"); !errors.Is(err, core.ErrInvalidOperation) {
		t.Errorf("LoadImage: have %v, want ErrInvalidOperation", err)
	}
}
