package engine

import (
	"github.com/spaghettifunk/anima-gpu/engine/assets"
	"github.com/spaghettifunk/anima-gpu/engine/renderer"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	// Set by the engine before FnInitialize runs.
	Assets            *assets.AssetManager
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnShutdown        Shutdown
	FnOnShaderChanged OnShaderChanged
}

// Initialize runs once the renderer is up; it is where GPU resources are created.
type Initialize func(r *renderer.Renderer) error

// Update is called once per frame in variable mode, or once per elapsed
// period in fixed mode.
type Update func(deltaTime float64) error

// Render records the frame into the renderer's back-buffer. The engine presents
// afterwards.
type Render func(r *renderer.Renderer, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func(r *renderer.Renderer) error
type OnShaderChanged func(r *renderer.Renderer, path string) error
