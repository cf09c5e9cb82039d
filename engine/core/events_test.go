package core

import "testing"

func TestEventFireOrderAndData(t *testing.T) {
	EventSystemShutdown()
	if !EventSystemInitialize() {
		t.Fatal("EventSystemInitialize: want true")
	}
	defer EventSystemShutdown()

	var order []int
	EventRegister(EVENT_CODE_RESIZED, func(ctx EventContext) {
		se := ctx.Data.(*SystemEvent)
		if se.WindowWidth != 640 || se.WindowHeight != 480 {
			t.Errorf("SystemEvent:\nhave %dx%d\nwant 640x480", se.WindowWidth, se.WindowHeight)
		}
		order = append(order, 1)
	})
	EventRegister(EVENT_CODE_RESIZED, func(EventContext) { order = append(order, 2) })

	if !EventFire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 640, WindowHeight: 480}}) {
		t.Fatal("EventFire: want true")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("listener order:\nhave %v\nwant [1 2]", order)
	}
	if EventFire(EventContext{Type: EVENT_CODE_WINDOW_FOCUS_LOST}) {
		t.Fatal("EventFire without listeners: want false")
	}
	if !EventUnregisterAll(EVENT_CODE_RESIZED) {
		t.Fatal("EventUnregisterAll: want true")
	}
	if EventFire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{}}) {
		t.Fatal("EventFire after unregister: want false")
	}
}

func TestInputProcessKeyFiresOnChangeOnly(t *testing.T) {
	EventSystemShutdown()
	EventSystemInitialize()
	defer EventSystemShutdown()
	InputInitialize()
	defer InputShutdown()

	pressed := 0
	EventRegister(EVENT_CODE_KEY_PRESSED, func(EventContext) { pressed++ })
	InputProcessKey(KEY_SPACE, true)
	InputProcessKey(KEY_SPACE, true)
	if pressed != 1 {
		t.Fatalf("pressed events:\nhave %d\nwant 1", pressed)
	}
	if !InputIsKeyDown(KEY_SPACE) || InputWasKeyDown(KEY_SPACE) {
		t.Fatal("key state before update is wrong")
	}
	InputUpdate(0)
	if !InputWasKeyDown(KEY_SPACE) {
		t.Fatal("InputWasKeyDown after update: want true")
	}
}
