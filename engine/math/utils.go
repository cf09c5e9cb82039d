package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Extent2D is a width/height pair in pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

func (e Extent2D) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// Rect is an integer rectangle with its origin at the top-left corner.
type Rect struct {
	X, Y          int32
	Width, Height int32
}

// Intersect returns the overlap of r and o. Disjoint rectangles yield an
// empty rectangle.
func (r Rect) Intersect(o Rect) Rect {
	x0 := Max(r.X, o.X)
	y0 := Max(r.Y, o.Y)
	x1 := Min(r.X+r.Width, o.X+o.Width)
	y1 := Min(r.Y+r.Height, o.Y+o.Height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}
