package render

import (
	"math"

	"github.com/junsooki/laserview/internal/dac"
)

// Point is a position in render space: origin at the centre, y up.
type Point struct {
	X, Y float32
}

// Color is an RGB triple in [0, 1].
type Color struct {
	R, G, B float32
}

// Viewport carries the half-extents of the drawable area.
type Viewport struct {
	HalfWidth  float32
	HalfHeight float32
}

// Normalize maps a raw sample into render space scaled by the viewport
// half-extents. Pure and total.
func Normalize(s dac.Sample, scaleX, scaleY float32) (Point, Color) {
	return Point{
			X: float32(s.X) / math.MaxInt16 * scaleX,
			Y: float32(s.Y) / math.MaxInt16 * scaleY,
		}, Color{
			R: float32(s.R) / math.MaxUint16,
			G: float32(s.G) / math.MaxUint16,
			B: float32(s.B) / math.MaxUint16,
		}
}

// ToScreen converts a render-space point to screen pixels for a
// top-left-origin surface of the given size.
func ToScreen(p Point, v Viewport) (x, y float32) {
	return v.HalfWidth + p.X, v.HalfHeight - p.Y
}
