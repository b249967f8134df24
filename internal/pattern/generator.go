package pattern

import (
	"fmt"
	"math"
	"time"

	"github.com/junsooki/laserview/internal/dac"
)

// Generator emits frames at a fixed rate. A slow consumer misses frames
// rather than queueing them.
type Generator struct {
	shape  Shape
	points int
	fps    int

	frameCh chan dac.Frame
	stopCh  chan struct{}
	running bool
}

// NewGenerator creates a stopped generator.
func NewGenerator(shape Shape, points, fps int) (*Generator, error) {
	if points < 2 {
		return nil, fmt.Errorf("points must be at least 2, got %d", points)
	}
	if fps < 1 {
		return nil, fmt.Errorf("fps must be at least 1, got %d", fps)
	}
	return &Generator{
		shape:   shape,
		points:  points,
		fps:     fps,
		frameCh: make(chan dac.Frame, 2),
		stopCh:  make(chan struct{}),
	}, nil
}

func (g *Generator) Start() error {
	if g.running {
		return fmt.Errorf("already running")
	}
	g.running = true
	go g.loop()
	return nil
}

func (g *Generator) Stop() {
	if !g.running {
		return
	}
	g.running = false
	close(g.stopCh)
}

// Frames is closed after Stop.
func (g *Generator) Frames() <-chan dac.Frame {
	return g.frameCh
}

func (g *Generator) loop() {
	ticker := time.NewTicker(time.Second / time.Duration(g.fps))
	defer ticker.Stop()
	defer close(g.frameCh)

	// One full hue rotation every two seconds.
	step := 2 * math.Pi / float64(2*g.fps)
	phase := 0.0
	for {
		select {
		case <-g.stopCh:
			return
		case <-ticker.C:
			f := Render(g.shape, g.points, phase)
			phase += step
			select {
			case g.frameCh <- f:
			default:
			}
		}
	}
}
