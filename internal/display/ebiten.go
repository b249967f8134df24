package display

import (
	"errors"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/junsooki/laserview/internal/render"
)

// Options configures the window and loop rate.
type Options struct {
	Title     string
	Width     int
	Height    int
	TPS       int
	LineWidth float32
	// Status, if set, is printed in the top-left corner every frame.
	Status func() string
	// Quit, if set, ends the loop once it reports true.
	Quit func() bool
}

// EbitenDisplay draws DAC frames as coloured line paths.
// Update and Draw both run on the main goroutine.
type EbitenDisplay struct {
	driver CycleDriver
	opts   Options

	viewport render.Viewport
	segments []render.Segment
}

// NewEbitenDisplay creates an Ebitengine-based display.
func NewEbitenDisplay(driver CycleDriver, opts Options) *EbitenDisplay {
	if opts.Title == "" {
		opts.Title = "laserview"
	}
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 720
	}
	if opts.TPS <= 0 {
		opts.TPS = ebiten.DefaultTPS
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = 1
	}
	return &EbitenDisplay{
		driver: driver,
		opts:   opts,
		viewport: render.Viewport{
			HalfWidth:  float32(opts.Width) / 2,
			HalfHeight: float32(opts.Height) / 2,
		},
	}
}

// Run starts the Ebitengine game loop. Must be called from the main goroutine.
func (d *EbitenDisplay) Run() error {
	ebiten.SetWindowSize(d.opts.Width, d.opts.Height)
	ebiten.SetWindowTitle(d.opts.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(d.opts.TPS)
	err := ebiten.RunGame(d)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// --- ebiten.Game interface ---

func (d *EbitenDisplay) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if d.opts.Quit != nil && d.opts.Quit() {
		return ebiten.Termination
	}
	d.segments = d.driver.Tick(d.viewport)
	return nil
}

func (d *EbitenDisplay) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)

	for _, seg := range d.segments {
		x0, y0 := render.ToScreen(seg.A, d.viewport)
		x1, y1 := render.ToScreen(seg.B, d.viewport)
		vector.StrokeLine(screen, x0, y0, x1, y1, d.opts.LineWidth, toRGBA(seg.Color), true)
	}

	if d.opts.Status != nil {
		ebitenutil.DebugPrint(screen, d.opts.Status())
	}
}

func (d *EbitenDisplay) Layout(outsideWidth, outsideHeight int) (int, int) {
	d.viewport = render.Viewport{
		HalfWidth:  float32(outsideWidth) / 2,
		HalfHeight: float32(outsideHeight) / 2,
	}
	return outsideWidth, outsideHeight
}

func toRGBA(c render.Color) color.RGBA {
	return color.RGBA{
		R: uint8(c.R*255 + 0.5),
		G: uint8(c.G*255 + 0.5),
		B: uint8(c.B*255 + 0.5),
		A: 0xff,
	}
}
