package core

import (
	"testing"
	"time"
)

func TestMetricsAverageAndFPS(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.010)
	}
	if ft := m.FrameTime(); ft < 9.999 || ft > 10.001 {
		t.Fatalf("FrameTime:\nhave %f\nwant 10", ft)
	}
	for i := 0; i < 100; i++ {
		m.Update(0.010)
	}
	if fps := m.FPS(); fps < 99 || fps > 101 {
		t.Fatalf("FPS:\nhave %f\nwant ~100", fps)
	}
}

func TestClockElapsed(t *testing.T) {
	now := time.Unix(100, 0)
	c := NewClock()
	c.Now = func() time.Time { return now }
	c.Update()
	if c.Elapsed() != 0 {
		t.Fatal("Elapsed before Start: want 0")
	}
	c.Start()
	now = now.Add(1500 * time.Millisecond)
	c.Update()
	if e := c.Elapsed(); e != 1.5 {
		t.Fatalf("Elapsed:\nhave %f\nwant 1.5", e)
	}
	c.Stop()
	now = now.Add(time.Second)
	c.Update()
	if e := c.Elapsed(); e != 1.5 {
		t.Fatalf("Elapsed after Stop:\nhave %f\nwant 1.5", e)
	}
}
