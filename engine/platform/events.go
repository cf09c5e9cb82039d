package platform

import (
	"math"

	"github.com/spaghettifunk/anima-gpu/engine/core"
)

type windowEventKind uint8

const (
	windowEventKey windowEventKind = iota
	windowEventButton
	windowEventMouseMove
	windowEventWheel
	windowEventResized
	windowEventFocus
	windowEventEnter
	windowEventIconify
	windowEventMaximize
	windowEventClose
)

// windowEvent is what glfw callbacks record. They run inside PollEvents and
// are replayed afterwards so listeners never run re-entrantly.
type windowEvent struct {
	kind          windowEventKind
	key           core.KeyCode
	button        core.Button
	pressed       bool
	on            bool
	x, y          uint16
	wheel         int8
	width, height uint32
}

func (p *Platform) dispatch(ev windowEvent) {
	switch ev.kind {
	case windowEventKey:
		if ev.key != core.KEY_UNKNOWN {
			core.InputProcessKey(ev.key, ev.pressed)
		}
	case windowEventButton:
		core.InputProcessButton(ev.button, ev.pressed)
	case windowEventMouseMove:
		core.InputProcessMouseMove(ev.x, ev.y)
	case windowEventWheel:
		core.InputProcessMouseWheel(ev.wheel)
	case windowEventResized:
		core.EventFire(core.EventContext{
			Type: core.EVENT_CODE_RESIZED,
			Data: &core.SystemEvent{WindowWidth: ev.width, WindowHeight: ev.height},
		})
	case windowEventFocus:
		fire(ev.on, core.EVENT_CODE_WINDOW_FOCUS_GAINED, core.EVENT_CODE_WINDOW_FOCUS_LOST)
	case windowEventEnter:
		fire(ev.on, core.EVENT_CODE_WINDOW_MOUSE_ENTER, core.EVENT_CODE_WINDOW_MOUSE_LEAVE)
	case windowEventIconify:
		p.Minimized = ev.on
		fire(ev.on, core.EVENT_CODE_WINDOW_MINIMIZED, core.EVENT_CODE_WINDOW_RESTORED)
	case windowEventMaximize:
		fire(ev.on, core.EVENT_CODE_WINDOW_MAXIMIZED, core.EVENT_CODE_WINDOW_RESTORED)
	case windowEventClose:
		// Nobody listening means nobody objects.
		if !core.EventFire(core.EventContext{Type: core.EVENT_CODE_WINDOW_CLOSE_REQUESTED}) {
			p.RequestClose()
		}
	}
}

func fire(on bool, whenOn, whenOff core.EventCode) {
	code := whenOff
	if on {
		code = whenOn
	}
	core.EventFire(core.EventContext{Type: code})
}

func clampUint16(v float64) uint16 {
	switch {
	case v <= 0:
		return 0
	case v >= math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(v)
}
