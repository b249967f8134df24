package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ViewerConfig holds configuration for the visualiser binary.
type ViewerConfig struct {
	Transport       string  `toml:"transport"`
	ListenAddr      string  `toml:"listen_addr"`
	StreamPath      string  `toml:"stream_path"`
	SignalingURL    string  `toml:"signaling_url"`
	ViewerID        string  `toml:"viewer_id"`
	HandoffCapacity int     `toml:"handoff_capacity"`
	InboxFrames     int     `toml:"inbox_frames"`
	MaxDrainPerTick int     `toml:"max_drain_per_tick"`
	TPS             int     `toml:"tps"`
	WindowWidth     int     `toml:"window_width"`
	WindowHeight    int     `toml:"window_height"`
	LineWidth       float64 `toml:"line_width"`
	LogLevel        string  `toml:"log_level"`
	MQTTBroker      string  `toml:"mqtt_broker"`
	MQTTTopic       string  `toml:"mqtt_topic"`
}

// PatternConfig holds configuration for the test-pattern source.
type PatternConfig struct {
	Transport    string `toml:"transport"`
	URL          string `toml:"url"`
	SignalingURL string `toml:"signaling_url"`
	SourceID     string `toml:"source_id"`
	ViewerID     string `toml:"viewer_id"`
	FPS          int    `toml:"fps"`
	Points       int    `toml:"points"`
	Shape        string `toml:"shape"`
	LogLevel     string `toml:"log_level"`
}

func DefaultViewerConfig() *ViewerConfig {
	return &ViewerConfig{
		Transport:       "ws",
		ListenAddr:      ":8090",
		StreamPath:      "/stream",
		SignalingURL:    "ws://localhost:8080",
		HandoffCapacity: 1,
		InboxFrames:     8,
		MaxDrainPerTick: 256,
		TPS:             60,
		WindowWidth:     1280,
		WindowHeight:    720,
		LineWidth:       1.5,
		LogLevel:        "info",
		MQTTTopic:       "laserview",
	}
}

func DefaultPatternConfig() *PatternConfig {
	return &PatternConfig{
		Transport:    "ws",
		URL:          "ws://localhost:8090/stream",
		SignalingURL: "ws://localhost:8080",
		FPS:          30,
		Points:       512,
		Shape:        "circle",
		LogLevel:     "info",
	}
}

func bindViewer(fs *flag.FlagSet, cfg *ViewerConfig) {
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Stream transport: ws or webrtc")
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP listen address (stream route, /metrics, /healthz)")
	fs.StringVar(&cfg.StreamPath, "path", cfg.StreamPath, "WebSocket stream route")
	fs.StringVar(&cfg.SignalingURL, "signaling", cfg.SignalingURL, "Signaling server WebSocket URL (webrtc transport)")
	fs.StringVar(&cfg.ViewerID, "id", cfg.ViewerID, "Viewer ID (auto-generated if empty)")
	fs.IntVar(&cfg.HandoffCapacity, "handoff", cfg.HandoffCapacity, "Pending connections held before the acceptor blocks")
	fs.IntVar(&cfg.InboxFrames, "inbox", cfg.InboxFrames, "Frames queued per stream")
	fs.IntVar(&cfg.MaxDrainPerTick, "max-drain", cfg.MaxDrainPerTick, "Frames drained from a stream per tick")
	fs.IntVar(&cfg.TPS, "tps", cfg.TPS, "Render ticks per second")
	fs.IntVar(&cfg.WindowWidth, "width", cfg.WindowWidth, "Initial window width")
	fs.IntVar(&cfg.WindowHeight, "height", cfg.WindowHeight, "Initial window height")
	fs.Float64Var(&cfg.LineWidth, "line-width", cfg.LineWidth, "Stroke width in pixels")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: trace, debug, info, warn, error, off")
	fs.StringVar(&cfg.MQTTBroker, "mqtt", cfg.MQTTBroker, "MQTT broker host:port for lifecycle events (disabled if empty)")
	fs.StringVar(&cfg.MQTTTopic, "mqtt-topic", cfg.MQTTTopic, "MQTT topic prefix")
}

func bindPattern(fs *flag.FlagSet, cfg *PatternConfig) {
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Stream transport: ws or webrtc")
	fs.StringVar(&cfg.URL, "url", cfg.URL, "Visualiser stream URL (ws transport)")
	fs.StringVar(&cfg.SignalingURL, "signaling", cfg.SignalingURL, "Signaling server WebSocket URL (webrtc transport)")
	fs.StringVar(&cfg.SourceID, "id", cfg.SourceID, "Source ID (auto-generated if empty)")
	fs.StringVar(&cfg.ViewerID, "viewer", cfg.ViewerID, "Viewer ID to stream to (webrtc transport)")
	fs.IntVar(&cfg.FPS, "fps", cfg.FPS, "Frames per second")
	fs.IntVar(&cfg.Points, "points", cfg.Points, "Samples per frame")
	fs.StringVar(&cfg.Shape, "shape", cfg.Shape, "Pattern: circle, square or lissajous")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: trace, debug, info, warn, error, off")
}

// ParseViewerFlags parses flags for the visualiser binary. Values from
// -config are applied first, explicit flags win.
func ParseViewerFlags(args []string) (*ViewerConfig, error) {
	cfg := DefaultViewerConfig()
	if err := parse("laserview", args, cfg, bindViewer, DefaultViewerConfig); err != nil {
		return nil, err
	}
	if cfg.ViewerID == "" {
		cfg.ViewerID = fmt.Sprintf("viewer-%s", randomID())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParsePatternFlags parses flags for the test-pattern binary.
func ParsePatternFlags(args []string) (*PatternConfig, error) {
	cfg := DefaultPatternConfig()
	if err := parse("laserview-pattern", args, cfg, bindPattern, DefaultPatternConfig); err != nil {
		return nil, err
	}
	if cfg.SourceID == "" {
		cfg.SourceID = fmt.Sprintf("source-%s", randomID())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse binds flags onto cfg. With -config, the file is decoded over
// fresh defaults and every flag the user set is replayed on top.
func parse[T any](name string, args []string, cfg *T, bind func(*flag.FlagSet, *T), defaults func() *T) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var file string
	fs.StringVar(&file, "config", "", "TOML config file")
	bind(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if file == "" {
		return nil
	}

	fromFile := defaults()
	if err := loadToml(file, fromFile); err != nil {
		return err
	}
	replay := flag.NewFlagSet(name, flag.ContinueOnError)
	bind(replay, fromFile)
	var replayErr error
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" || replayErr != nil {
			return
		}
		replayErr = replay.Set(f.Name, f.Value.String())
	})
	if replayErr != nil {
		return replayErr
	}
	*cfg = *fromFile
	return nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if _, err := toml.Decode(string(data), out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func validTransport(t string) error {
	switch t {
	case "ws", "webrtc":
		return nil
	default:
		return fmt.Errorf("transport must be ws or webrtc, got %q", t)
	}
}

func (c *ViewerConfig) Validate() error {
	var errs []error
	if err := validTransport(c.Transport); err != nil {
		errs = append(errs, err)
	}
	if c.HandoffCapacity < 1 {
		errs = append(errs, fmt.Errorf("handoff_capacity must be >= 1, got %d", c.HandoffCapacity))
	}
	if c.InboxFrames < 1 {
		errs = append(errs, fmt.Errorf("inbox_frames must be >= 1, got %d", c.InboxFrames))
	}
	if c.MaxDrainPerTick < 1 {
		errs = append(errs, fmt.Errorf("max_drain_per_tick must be >= 1, got %d", c.MaxDrainPerTick))
	}
	if c.TPS < 1 || c.TPS > 240 {
		errs = append(errs, fmt.Errorf("tps must be in 1..240, got %d", c.TPS))
	}
	if c.Transport == "ws" && (c.StreamPath == "" || c.StreamPath[0] != '/') {
		errs = append(errs, fmt.Errorf("stream_path must start with /, got %q", c.StreamPath))
	}
	if c.Transport == "webrtc" && c.SignalingURL == "" {
		errs = append(errs, errors.New("signaling_url is required for webrtc"))
	}
	return errors.Join(errs...)
}

func (c *PatternConfig) Validate() error {
	var errs []error
	if err := validTransport(c.Transport); err != nil {
		errs = append(errs, err)
	}
	if c.FPS < 1 {
		errs = append(errs, fmt.Errorf("fps must be >= 1, got %d", c.FPS))
	}
	if c.Points < 2 {
		errs = append(errs, fmt.Errorf("points must be >= 2, got %d", c.Points))
	}
	if c.Transport == "webrtc" && c.ViewerID == "" {
		errs = append(errs, errors.New("viewer id is required for webrtc"))
	}
	return errors.Join(errs...)
}

func randomID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}
