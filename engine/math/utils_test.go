package math

import "testing"

func TestClamp(t *testing.T) {
	cases := []struct {
		v, lo, hi, want int
	}{
		{5, 0, 10, 5},
		{-3, 0, 10, 0},
		{42, 0, 10, 10},
	}
	for _, c := range cases {
		if have := Clamp(c.v, c.lo, c.hi); have != c.want {
			t.Fatalf("Clamp(%d, %d, %d):\nhave %d\nwant %d", c.v, c.lo, c.hi, have, c.want)
		}
	}
	if have := Clamp(1.5, 0.0, 1.0); have != 1.0 {
		t.Fatalf("Clamp float:\nhave %f\nwant 1", have)
	}
}

func TestRectIntersect(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: -5, Width: 10, Height: 10}
	want := Rect{X: 5, Y: 0, Width: 5, Height: 5}
	if have := a.Intersect(b); have != want {
		t.Fatalf("Intersect:\nhave %+v\nwant %+v", have, want)
	}
	if have := a.Intersect(Rect{X: 20, Y: 20, Width: 1, Height: 1}); have != (Rect{}) {
		t.Fatalf("Intersect disjoint:\nhave %+v\nwant zero", have)
	}
}
