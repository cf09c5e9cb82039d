package platform

import (
	"fmt"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/anima-gpu/engine/containers"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

// Window events buffered between two PumpMessages calls.
const eventQueueSize = 256

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

/** @brief A glfw window able to host a Vulkan surface. */
type Platform struct {
	Window *glfw.Window
	events *containers.RingQueue[windowEvent]
	// Set while the window is iconified. The engine skips frames meanwhile.
	Minimized bool
}

func New() *Platform {
	return &Platform{
		Window: nil,
		events: containers.NewRingQueue[windowEvent](eventQueueSize),
	}
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return fmt.Errorf("%w: %s", core.ErrDevice, err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return fmt.Errorf("no Vulkan loader found: %w", core.ErrDevice)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		glfw.Terminate()
		core.LogError("failed to create window: %s", err)
		return fmt.Errorf("%w: %s", core.ErrDevice, err)
	}
	p.Window = window

	window.SetKeyCallback(p.keyCallback)
	window.SetMouseButtonCallback(p.mouseButtonCallback)
	window.SetCursorPosCallback(p.cursorPosCallback)
	window.SetScrollCallback(p.scrollCallback)
	window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	window.SetFocusCallback(p.focusCallback)
	window.SetCursorEnterCallback(p.cursorEnterCallback)
	window.SetIconifyCallback(p.iconifyCallback)
	window.SetMaximizeCallback(p.maximizeCallback)
	window.SetCloseCallback(p.closeCallback)
	window.SetPos(int(x), int(y))
	window.Show()
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages polls the window system and dispatches what arrived. It
// returns false once the window should close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	for !p.events.IsEmpty() {
		ev, err := p.events.Dequeue()
		if err != nil {
			break
		}
		p.dispatch(ev)
	}
	return !p.Window.ShouldClose()
}

func (p *Platform) enqueue(ev windowEvent) {
	if err := p.events.Enqueue(ev); err != nil {
		core.LogWarn("window event %d dropped: %s", ev.kind, err)
	}
}

// FramebufferSize is the drawable size in pixels.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	if p.Window == nil {
		return 0, 0
	}
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) CreateWindowSurface(instance interface{}) (uintptr, error) {
	return p.Window.CreateWindowSurface(instance, nil)
}

// GetAbsoluteTime is the glfw timer in seconds.
func GetAbsoluteTime() float64 {
	return glfw.GetTime()
}

func (p *Platform) Sleep(ms float64) {
	time.Sleep(time.Duration(ms * float64(time.Millisecond)))
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Repeat {
		return
	}
	p.enqueue(windowEvent{kind: windowEventKey, key: translateKey(key), pressed: action == glfw.Press})
}

func (p *Platform) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	var b core.Button
	switch button {
	case glfw.MouseButtonLeft:
		b = core.BUTTON_LEFT
	case glfw.MouseButtonRight:
		b = core.BUTTON_RIGHT
	case glfw.MouseButtonMiddle:
		b = core.BUTTON_MIDDLE
	default:
		return
	}
	p.enqueue(windowEvent{kind: windowEventButton, button: b, pressed: action == glfw.Press})
}

func (p *Platform) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	p.enqueue(windowEvent{kind: windowEventMouseMove, x: clampUint16(xpos), y: clampUint16(ypos)})
}

func (p *Platform) scrollCallback(w *glfw.Window, xoff, yoff float64) {
	var delta int8
	switch {
	case yoff > 0:
		delta = 1
	case yoff < 0:
		delta = -1
	default:
		return
	}
	p.enqueue(windowEvent{kind: windowEventWheel, wheel: delta})
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.enqueue(windowEvent{kind: windowEventResized, width: uint32(width), height: uint32(height)})
}

func (p *Platform) focusCallback(w *glfw.Window, focused bool) {
	p.enqueue(windowEvent{kind: windowEventFocus, on: focused})
}

func (p *Platform) cursorEnterCallback(w *glfw.Window, entered bool) {
	p.enqueue(windowEvent{kind: windowEventEnter, on: entered})
}

func (p *Platform) iconifyCallback(w *glfw.Window, iconified bool) {
	p.enqueue(windowEvent{kind: windowEventIconify, on: iconified})
}

func (p *Platform) maximizeCallback(w *glfw.Window, maximized bool) {
	p.enqueue(windowEvent{kind: windowEventMaximize, on: maximized})
}

func (p *Platform) closeCallback(w *glfw.Window) {
	// Closing is decided by whoever handles the request.
	w.SetShouldClose(false)
	p.enqueue(windowEvent{kind: windowEventClose})
}

func (p *Platform) RequestClose() {
	if p.Window != nil {
		p.Window.SetShouldClose(true)
	}
}

func translateKey(key glfw.Key) core.KeyCode {
	switch {
	case key >= glfw.KeyA && key <= glfw.KeyZ:
		return core.KEY_A + core.KeyCode(key-glfw.KeyA)
	case key >= glfw.Key0 && key <= glfw.Key9:
		return core.KEY_0 + core.KeyCode(key-glfw.Key0)
	case key >= glfw.KeyF1 && key <= glfw.KeyF12:
		return core.KEY_F1 + core.KeyCode(key-glfw.KeyF1)
	}
	switch key {
	case glfw.KeyBackspace:
		return core.KEY_BACKSPACE
	case glfw.KeyTab:
		return core.KEY_TAB
	case glfw.KeyEnter:
		return core.KEY_ENTER
	case glfw.KeyEscape:
		return core.KEY_ESCAPE
	case glfw.KeySpace:
		return core.KEY_SPACE
	case glfw.KeyLeft:
		return core.KEY_LEFT
	case glfw.KeyUp:
		return core.KEY_UP
	case glfw.KeyRight:
		return core.KEY_RIGHT
	case glfw.KeyDown:
		return core.KEY_DOWN
	}
	return core.KEY_UNKNOWN
}
