package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01
	// Keyboard key pressed. Data: *KeyEvent.
	EVENT_CODE_KEY_PRESSED EventCode = 0x02
	// Keyboard key released. Data: *KeyEvent.
	EVENT_CODE_KEY_RELEASED EventCode = 0x03
	// Mouse button pressed. Data: *MouseEvent.
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04
	// Mouse button released. Data: *MouseEvent.
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05
	// Mouse moved. Data: *MouseEvent.
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06
	// Mouse wheel. Data: *MouseEvent.
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07
	// Resized/resolution changed from the OS. Data: *SystemEvent.
	EVENT_CODE_RESIZED EventCode = 0x08

	// Window state changes. Data: *SystemEvent when sizes are relevant.
	EVENT_CODE_WINDOW_FOCUS_GAINED     EventCode = 0x09
	EVENT_CODE_WINDOW_FOCUS_LOST       EventCode = 0x0A
	EVENT_CODE_WINDOW_MOUSE_ENTER      EventCode = 0x0B
	EVENT_CODE_WINDOW_MOUSE_LEAVE      EventCode = 0x0C
	EVENT_CODE_WINDOW_RESTORED         EventCode = 0x0D
	EVENT_CODE_WINDOW_MAXIMIZED        EventCode = 0x0E
	EVENT_CODE_WINDOW_MINIMIZED        EventCode = 0x0F
	EVENT_CODE_WINDOW_FULLSCREEN_ENTER EventCode = 0x10
	EVENT_CODE_WINDOW_FULLSCREEN_LEAVE EventCode = 0x11
	EVENT_CODE_WINDOW_CLOSE_REQUESTED  EventCode = 0x12
	EVENT_CODE_ASSET_SHADER_CHANGED    EventCode = 0x13

	MAX_EVENT_CODE EventCode = 0xFF
)

type EventContext struct {
	Type EventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	Button Button
	PosX   uint16
	PosY   uint16
	Scroll int8
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

// AssetEvent carries the path of an asset that changed on disk.
type AssetEvent struct {
	Path string
}

type FnOnEvent func(context EventContext)

type eventSystemState struct {
	mu         sync.RWMutex
	registered map[EventCode][]FnOnEvent
}

var eventState *eventSystemState = nil

func EventSystemInitialize() bool {
	if eventState != nil {
		return false
	}
	eventState = &eventSystemState{
		registered: make(map[EventCode][]FnOnEvent),
	}
	return true
}

func EventSystemShutdown() error {
	eventState = nil
	return nil
}

// EventRegister adds a listener for the given code. Listeners are invoked in
// registration order.
func EventRegister(code EventCode, onEvent FnOnEvent) bool {
	if eventState == nil || onEvent == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	eventState.registered[code] = append(eventState.registered[code], onEvent)
	return true
}

// EventUnregisterAll drops every listener of a code.
func EventUnregisterAll(code EventCode) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	if len(eventState.registered[code]) == 0 {
		return false
	}
	delete(eventState.registered, code)
	return true
}

// EventFire dispatches synchronously and reports whether anyone listened.
func EventFire(context EventContext) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.RLock()
	listeners := append([]FnOnEvent(nil), eventState.registered[context.Type]...)
	eventState.mu.RUnlock()
	if len(listeners) == 0 {
		return false
	}
	for _, l := range listeners {
		l(context)
	}
	return true
}
