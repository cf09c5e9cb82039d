package testbed

import (
	"encoding/binary"
	"fmt"
	"image/color"
	gomath "math"
	"strings"

	"github.com/spaghettifunk/anima-gpu/engine"
	"github.com/spaghettifunk/anima-gpu/engine/assets/loaders"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

// headlessFrames is how many frames the testbed renders without a window
// before quitting.
const headlessFrames = 120

type TestGame struct {
	*engine.Game
}

type gameState struct {
	time   float64
	frames int
	width  uint32
	height uint32

	shader   *renderer.Shader
	material *renderer.Material
	vertices *renderer.Buffer
	indices  *renderer.Buffer
	missing  *renderer.Texture
}

func NewTestGame(cfg *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: cfg,
			State:             &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown
	tg.FnOnShaderChanged = tg.OnShaderChanged

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize(r *renderer.Renderer) error {
	core.LogInfo("initializing testbed...")
	s := g.state()

	shader, err := g.loadShader(r)
	if err != nil {
		return err
	}
	s.shader = shader
	s.material = renderer.NewMaterial(shader)

	layout := renderer.NewVertexLayout(
		renderer.VertexAttribute{Index: 0, Type: metadata.VertexTypeFloat2},
		renderer.VertexAttribute{Index: 1, Type: metadata.VertexTypeFloat4},
	)
	if s.vertices, err = r.CreateVertexBuffer(layout); err != nil {
		return err
	}
	quad := []float32{
		// x, y, r, g, b, a
		-0.5, -0.5, 1, 0, 0, 1,
		0.5, -0.5, 0, 1, 0, 1,
		0.5, 0.5, 0, 0, 1, 1,
		-0.5, 0.5, 1, 1, 0, 1,
	}
	if err := r.UploadBufferData(s.vertices, float32Bytes(quad), 0); err != nil {
		return err
	}

	s.indices = r.CreateIndexBuffer(metadata.IndexFormatSixteen)
	indices := make([]byte, 0, 12)
	for _, i := range []uint16{0, 1, 2, 2, 3, 0} {
		indices = binary.LittleEndian.AppendUint16(indices, i)
	}
	if err := r.UploadBufferData(s.indices, indices, 0); err != nil {
		return err
	}

	// Not sampled yet; exercises the texture upload path.
	checker := loaders.Checkerboard(64, 8, color.RGBA{255, 255, 255, 255}, color.RGBA{255, 0, 255, 255})
	if s.missing, err = r.CreateTexture(64, 64, metadata.TextureFormatR8G8B8A8, nil); err != nil {
		return err
	}
	return r.UploadTextureData(s.missing, checker.Pix)
}

// loadShader picks SPIR-V for Vulkan and the GLSL source otherwise.
func (g *TestGame) loadShader(r *renderer.Renderer) (*renderer.Shader, error) {
	ext := ""
	if g.ApplicationConfig.Backend == metadata.RendererBackendVulkan {
		ext = ".spv"
	}
	vs, err := g.Assets.LoadShader("shaders/quad.vert" + ext)
	if err != nil {
		return nil, err
	}
	fs, err := g.Assets.LoadShader("shaders/quad.frag" + ext)
	if err != nil {
		return nil, err
	}
	return r.CreateShader(renderer.ShaderInfo{
		VertexSource:           vs,
		FragmentSource:         fs,
		VertexEntryPoint:       "main",
		FragmentEntryPoint:     "main",
		VertexUniformBuffers:   1,
		FragmentUniformBuffers: 1,
	})
}

func (g *TestGame) Update(deltaTime float64) error {
	s := g.state()
	s.time += deltaTime

	offset := []float32{float32(0.25 * gomath.Sin(s.time)), 0, 0, 0}
	s.material.VertexProperties.SetUniformData(0, float32Bytes(offset))

	pulse := float32(0.5 + 0.5*gomath.Sin(2*s.time))
	tint := []float32{pulse, pulse, pulse, 1}
	s.material.FragmentProperties.SetUniformData(0, float32Bytes(tint))
	return nil
}

func (g *TestGame) Render(r *renderer.Renderer, deltaTime float64) error {
	s := g.state()
	s.frames++
	if g.ApplicationConfig.Backend == metadata.RendererBackendHeadless && s.frames >= headlessFrames {
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	}

	target := r.BackBuffer()
	if target == nil {
		// Created by the first Present.
		return nil
	}
	background := metadata.ColourBlack
	return r.Draw(&renderer.DrawCommand{
		RenderTarget:  target,
		Material:      s.material,
		VertexBuffers: []*renderer.Buffer{s.vertices},
		IndexBuffer:   s.indices,
		IndexCount:    6,
		BlendMode:     metadata.BlendModeOpaque,
		CullMode:      metadata.CullModeNone,
		ClearColour:   &background,
	})
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	s := g.state()
	s.width = width
	s.height = height
	return nil
}

func (g *TestGame) OnShaderChanged(r *renderer.Renderer, path string) error {
	s := g.state()
	if !strings.Contains(path, "quad.") {
		return nil
	}
	shader, err := g.loadShader(r)
	if err != nil {
		return fmt.Errorf("keeping the previous shader: %w", err)
	}
	if err := r.Destroy(s.shader); err != nil {
		return err
	}
	s.shader = shader
	s.material.Shader = shader
	core.LogInfo("reloaded shader after change to %s", path)
	return nil
}

func (g *TestGame) Shutdown(r *renderer.Renderer) error {
	core.LogInfo("shutting down testbed after %d frames", g.state().frames)
	// The renderer releases anything still alive on its own shutdown.
	return nil
}

func float32Bytes(values []float32) []byte {
	b := make([]byte, 0, 4*len(values))
	for _, v := range values {
		b = binary.LittleEndian.AppendUint32(b, gomath.Float32bits(v))
	}
	return b
}
