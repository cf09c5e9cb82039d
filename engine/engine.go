package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/spaghettifunk/anima-gpu/engine/assets"
	"github.com/spaghettifunk/anima-gpu/engine/config"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/platform"
	"github.com/spaghettifunk/anima-gpu/engine/renderer"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// maxFixedSteps bounds the fixed updates run in a single frame.
const maxFixedSteps = 8

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *ApplicationConfig
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *renderer.Renderer
	width        uint32
	height       uint32
	clock        *core.Clock
	metrics      *core.Metrics
	fixed        *core.FixedStep
	lastTime     float64
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, fmt.Errorf("game and application config are required: %w", core.ErrInvalidArgument)
	}
	cfg := g.ApplicationConfig
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := core.SetLogLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	backend, err := newBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		assetManager: am,
		renderer:     renderer.New(backend),
		width:        cfg.StartWidth,
		height:       cfg.StartHeight,
	}
	g.Assets = am
	if cfg.UpdateMode == config.UpdateModeFixed {
		e.fixed = core.NewFixedStep(cfg.FixedUpdatePeriod.Duration().Seconds(), maxFixedSteps)
	}
	// The headless backend renders offscreen and needs no window.
	if cfg.Backend != metadata.RendererBackendHeadless {
		e.platform = platform.New()
	}
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if err := core.InputInitialize(); err != nil {
		return err
	}
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system: %w", core.ErrInvalidOperation)
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	core.EventRegister(core.EVENT_CODE_WINDOW_CLOSE_REQUESTED, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)
	core.EventRegister(core.EVENT_CODE_WINDOW_MINIMIZED, e.onWindowState)
	core.EventRegister(core.EVENT_CODE_WINDOW_RESTORED, e.onWindowState)

	var window metadata.Window
	if e.platform != nil {
		if err := e.platform.Startup(e.config.Name,
			e.config.StartPosX,
			e.config.StartPosY,
			e.config.StartWidth,
			e.config.StartHeight); err != nil {
			return err
		}
		window = e.platform
	}

	if err := e.assetManager.Initialize(e.config.AssetsDir); err != nil {
		return err
	}

	if err := e.renderer.Initialize(backendConfig(e.config), window); err != nil {
		return err
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.renderer); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives the frame loop until the window closes, an APPLICATION_QUIT
// event fires or ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine is not initialized: %w", core.ErrInvalidOperation)
	}
	e.currentStage = EngineStageRunning
	e.isRunning = true

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var targetFrameSeconds float64
	if e.config.FrameCap > 0 {
		targetFrameSeconds = 1.0 / float64(e.config.FrameCap)
	}

	for e.isRunning {
		if ctx.Err() != nil {
			core.LogInfo("Context cancelled, shutting down.")
			break
		}
		if e.platform != nil && !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}
		e.reloadChangedShaders()

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		e.lastTime = currentTime

		if e.isSuspended {
			// Nothing to present to; avoid spinning while minimized.
			e.sleep(100)
			continue
		}
		frameStartTime := e.now()

		if err := e.update(delta); err != nil {
			core.LogError("Game update failed, shutting down: %s", err)
			return err
		}

		if e.gameInstance.FnRender != nil {
			if err := e.gameInstance.FnRender(e.renderer, delta); err != nil {
				core.LogError("Game render failed, shutting down: %s", err)
				return err
			}
		}
		if err := e.renderer.Present(); err != nil {
			core.LogError("Present failed, shutting down: %s", err)
			return err
		}

		frameElapsedTime := e.now() - frameStartTime
		e.metrics.Update(frameElapsedTime)

		// Give the rest of the frame back to the OS.
		if remaining := targetFrameSeconds - frameElapsedTime; remaining > 0 {
			e.sleep(remaining * 1000)
		}

		// NOTE: Input update/state copying should always be handled
		// after any input should be recorded; I.E. before this line.
		// As a safety, input is the last thing to be updated before
		// this frame ends.
		core.InputUpdate(delta)
	}
	core.LogInfo("Average frame time %.3fms (%.0f fps).", e.metrics.FrameTime(), e.metrics.FPS())
	return nil
}

func (e *Engine) update(delta float64) error {
	if e.gameInstance.FnUpdate == nil {
		return nil
	}
	if e.fixed == nil {
		return e.gameInstance.FnUpdate(delta)
	}
	for i := e.fixed.Advance(delta); i > 0; i-- {
		if err := e.gameInstance.FnUpdate(e.fixed.Period); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) reloadChangedShaders() {
	for _, path := range e.assetManager.PollChanges() {
		core.EventFire(core.EventContext{
			Type: core.EVENT_CODE_ASSET_SHADER_CHANGED,
			Data: &core.AssetEvent{Path: path},
		})
		if e.gameInstance.FnOnShaderChanged == nil {
			continue
		}
		if err := e.gameInstance.FnOnShaderChanged(e.renderer, path); err != nil {
			core.LogError("failed to reload shader %s: %s", path, err)
		}
	}
}

func (e *Engine) now() float64 {
	if e.platform != nil {
		return platform.GetAbsoluteTime()
	}
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

func (e *Engine) sleep(ms float64) {
	if e.platform != nil {
		e.platform.Sleep(ms)
		return
	}
	time.Sleep(time.Duration(ms * float64(time.Millisecond)))
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(e.renderer); err != nil {
			core.LogError("game shutdown failed: %s", err)
		}
	}
	if err := e.renderer.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if err := e.assetManager.Shutdown(); err != nil {
		return err
	}
	if err := core.EventSystemShutdown(); err != nil {
		return err
	}
	if err := core.InputShutdown(); err != nil {
		return err
	}
	if e.platform != nil {
		if err := e.platform.Shutdown(); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageUninitialized
	return nil
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

func (e *Engine) onEvent(context core.EventContext) {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
	case core.EVENT_CODE_WINDOW_CLOSE_REQUESTED:
		core.LogInfo("Window close requested, shutting down.")
		e.isRunning = false
	}
}

func (e *Engine) onKey(context core.EventContext) {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}
	if ke.KeyCode == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	}
}

func (e *Engine) onWindowState(context core.EventContext) {
	switch context.Type {
	case core.EVENT_CODE_WINDOW_MINIMIZED:
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
	case core.EVENT_CODE_WINDOW_RESTORED:
		if e.isSuspended && e.width != 0 && e.height != 0 {
			core.LogInfo("Window restored, resuming application.")
			e.isSuspended = false
			if e.fixed != nil {
				e.fixed.Reset()
			}
		}
	}
}

func (e *Engine) onResized(context core.EventContext) {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}

	width := se.WindowWidth
	height := se.WindowHeight
	if width == e.width && height == e.height {
		return
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return
	}
	if e.isSuspended && (e.platform == nil || !e.platform.Minimized) {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
}
