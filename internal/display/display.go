package display

import "github.com/junsooki/laserview/internal/render"

// Display renders frames until the window closes.
type Display interface {
	Run() error
}

// CycleDriver produces the segments for one render tick.
type CycleDriver interface {
	Tick(v render.Viewport) []render.Segment
}
