// Package pattern generates test frames for exercising a visualiser.
package pattern

import (
	"fmt"
	"math"

	"github.com/junsooki/laserview/internal/dac"
)

// Shape selects the generated path.
type Shape string

const (
	ShapeCircle    Shape = "circle"
	ShapeSquare    Shape = "square"
	ShapeLissajous Shape = "lissajous"
)

// ParseShape validates a shape name.
func ParseShape(s string) (Shape, error) {
	switch Shape(s) {
	case ShapeCircle, ShapeSquare, ShapeLissajous:
		return Shape(s), nil
	default:
		return "", fmt.Errorf("unknown shape %q (want circle, square or lissajous)", s)
	}
}

// Render builds one closed path of n samples. phase shifts the hue sweep
// and, for lissajous, the curve itself.
func Render(shape Shape, n int, phase float64) dac.Frame {
	if n < 2 {
		n = 2
	}
	frame := make(dac.Frame, n)
	for i := range frame {
		t := float64(i) / float64(n-1)
		x, y := position(shape, t, phase)
		r, g, b := hue(t + phase/(2*math.Pi))
		frame[i] = dac.Sample{
			X: toPos(x),
			Y: toPos(y),
			R: toColor(r),
			G: toColor(g),
			B: toColor(b),
		}
	}
	return frame
}

// position returns x, y in [-1, 1] for t in [0, 1].
func position(shape Shape, t, phase float64) (float64, float64) {
	a := 2 * math.Pi * t
	switch shape {
	case ShapeSquare:
		side := t * 4
		f := side - math.Floor(side)
		switch int(side) % 4 {
		case 0:
			return -1 + 2*f, -1
		case 1:
			return 1, -1 + 2*f
		case 2:
			return 1 - 2*f, 1
		default:
			return -1, 1 - 2*f
		}
	case ShapeLissajous:
		return math.Sin(3*a + phase), math.Sin(2 * a)
	default:
		return math.Cos(a), math.Sin(a)
	}
}

// hue maps h (any real, wrapped into [0, 1)) to a fully saturated colour.
func hue(h float64) (r, g, b float64) {
	h -= math.Floor(h)
	h6 := h * 6
	x := 1 - math.Abs(math.Mod(h6, 2)-1)
	switch int(h6) {
	case 0:
		return 1, x, 0
	case 1:
		return x, 1, 0
	case 2:
		return 0, 1, x
	case 3:
		return 0, x, 1
	case 4:
		return x, 0, 1
	default:
		return 1, 0, x
	}
}

func toPos(v float64) int16 {
	v = math.Max(-1, math.Min(1, v))
	return int16(math.Round(v * math.MaxInt16))
}

func toColor(v float64) uint16 {
	v = math.Max(0, math.Min(1, v))
	return uint16(math.Round(v * math.MaxUint16))
}
