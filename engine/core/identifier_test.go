package core

import "testing"

func TestIDPoolReusesReleasedSlots(t *testing.T) {
	p := NewIDPool(2)
	a := p.Acquire("a")
	b := p.Acquire("b")
	c := p.Acquire("c")
	if a != 1 || b != 2 || c != 3 {
		t.Fatalf("Acquire:\nhave %d %d %d\nwant 1 2 3", a, b, c)
	}
	if err := p.Release(b); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if n := p.Live(); n != 2 {
		t.Fatalf("Live:\nhave %d\nwant 2", n)
	}
	if d := p.Acquire("d"); d != b {
		t.Fatalf("Acquire after release:\nhave %d\nwant %d", d, b)
	}
	if o := p.Owner(b); o != "d" {
		t.Fatalf("Owner:\nhave %v\nwant d", o)
	}
}

func TestIDPoolReleaseOutOfRange(t *testing.T) {
	p := NewIDPool(1)
	if err := p.Release(0); err == nil {
		t.Fatal("Release(0): expected error")
	}
	if err := p.Release(42); err == nil {
		t.Fatal("Release(42): expected error")
	}
}

func TestIDPoolEach(t *testing.T) {
	p := NewIDPool(4)
	p.Acquire(1)
	id := p.Acquire(2)
	p.Acquire(3)
	p.Release(id)
	var seen []interface{}
	p.Each(func(_ uint32, o interface{}) { seen = append(seen, o) })
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 3 {
		t.Fatalf("Each:\nhave %v\nwant [1 3]", seen)
	}
}
