// Package render turns the latest DAC frame into line segments once per
// tick.
package render

import (
	"github.com/junsooki/laserview/internal/dac"
)

// Segment is one line between consecutive samples, coloured by the first.
type Segment struct {
	A, B  Point
	Color Color
}

// Ticker advances the stream lifecycle by one step.
type Ticker interface {
	Tick()
}

// FrameSource yields the newest frame at most once.
type FrameSource interface {
	TakeLatest() (dac.Frame, bool)
}

// Driver composes one render cycle: lifecycle tick, buffer drain, and
// segment generation. The displayed frame persists until a newer one
// arrives.
type Driver struct {
	lifecycle Ticker
	frames    FrameSource
	onNew     func()

	current  dac.Frame
	segments []Segment
}

// NewDriver wires a driver. onNewFrame, if non-nil, runs each time the
// displayed frame is replaced.
func NewDriver(lifecycle Ticker, frames FrameSource, onNewFrame func()) *Driver {
	return &Driver{lifecycle: lifecycle, frames: frames, onNew: onNewFrame}
}

// Tick runs one cycle and returns the segments to draw. The returned
// slice is reused by the next Tick.
func (d *Driver) Tick(v Viewport) []Segment {
	if d.lifecycle != nil {
		d.lifecycle.Tick()
	}
	if f, ok := d.frames.TakeLatest(); ok {
		d.current = f
		if d.onNew != nil {
			d.onNew()
		}
	}
	d.segments = AppendSegments(d.segments[:0], d.current, v)
	return d.segments
}

// Current is the frame being displayed.
func (d *Driver) Current() dac.Frame {
	return d.current
}

// AppendSegments appends one segment per consecutive sample pair.
func AppendSegments(dst []Segment, frame dac.Frame, v Viewport) []Segment {
	if len(frame) < 2 {
		return dst
	}
	a, ac := Normalize(frame[0], v.HalfWidth, v.HalfHeight)
	for _, s := range frame[1:] {
		b, bc := Normalize(s, v.HalfWidth, v.HalfHeight)
		dst = append(dst, Segment{A: a, B: b, Color: ac})
		a, ac = b, bc
	}
	return dst
}
