package core

import "testing"

func TestFixedStepAdvance(t *testing.T) {
	fs := NewFixedStep(0.25, 0)
	tests := []struct {
		delta float64
		want  int
	}{
		{0.1, 0},
		{0.1, 0},
		{0.1, 1},
		{0.5, 2},
		{0, 0},
		{-1, 0},
	}
	for i, tt := range tests {
		if have := fs.Advance(tt.delta); have != tt.want {
			t.Fatalf("step %d:\nhave %d\nwant %d", i, have, tt.want)
		}
	}
	if a := fs.Alpha(); a < 0.199 || a > 0.201 {
		t.Fatalf("Alpha:\nhave %f\nwant 0.2", a)
	}
}

func TestFixedStepMaxSteps(t *testing.T) {
	fs := NewFixedStep(0.25, 3)
	if have := fs.Advance(10); have != 3 {
		t.Fatalf("have %d\nwant 3", have)
	}
	if fs.Alpha() != 0 {
		t.Fatalf("Alpha after drop:\nhave %f\nwant 0", fs.Alpha())
	}
	fs.Advance(0.1)
	fs.Reset()
	if fs.Alpha() != 0 {
		t.Fatal("Alpha after Reset: want 0")
	}
}
