package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/junsooki/laserview/internal/codec"
	"github.com/junsooki/laserview/internal/config"
	"github.com/junsooki/laserview/internal/dac"
	"github.com/junsooki/laserview/internal/logging"
	"github.com/junsooki/laserview/internal/pattern"
	"github.com/junsooki/laserview/internal/transport"
)

const readyTimeout = 30 * time.Second

func main() {
	cfg, err := config.ParsePatternFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "laserview-pattern: %v\n", err)
		os.Exit(2)
	}

	log := logging.New("laserview-pattern", cfg.LogLevel)
	log.Info().
		Str("transport", cfg.Transport).
		Str("shape", cfg.Shape).
		Int("fps", cfg.FPS).
		Int("points", cfg.Points).
		Msg("pattern source starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("pattern source failed")
	}
	log.Info().Msg("pattern source stopped")
}

func run(ctx context.Context, cfg *config.PatternConfig, log zerolog.Logger) error {
	shape, err := pattern.ParseShape(cfg.Shape)
	if err != nil {
		return err
	}
	gen, err := pattern.NewGenerator(shape, cfg.Points, cfg.FPS)
	if err != nil {
		return err
	}

	sender, done, err := dial(ctx, cfg, log)
	if err != nil {
		return err
	}
	if sender == nil {
		return nil
	}
	defer sender.Close()

	if err := gen.Start(); err != nil {
		return err
	}
	defer gen.Stop()

	return streamFrames(ctx, gen.Frames(), done, codec.NewBinary(), sender, log)
}

// dial returns a sender whose frames channel is ready. done is closed when
// the remote end goes away; it is nil for WebSocket, where a failed write
// reports the same thing.
func dial(ctx context.Context, cfg *config.PatternConfig, log zerolog.Logger) (transport.FrameSender, <-chan struct{}, error) {
	if cfg.Transport != transport.NameWebRTC {
		s, err := transport.DialWebSocket(cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("url", cfg.URL).Msg("connected to visualiser")
		return s, nil, nil
	}

	s, err := transport.DialWebRTC(cfg.SignalingURL, cfg.SourceID, cfg.ViewerID, nil, log)
	if err != nil {
		return nil, nil, err
	}
	select {
	case <-s.Ready():
		log.Info().Str("viewer_id", cfg.ViewerID).Msg("frames channel open")
		return s, s.Done(), nil
	case <-s.Done():
		_ = s.Close()
		return nil, nil, errors.New("peer connection closed before the frames channel opened")
	case <-time.After(readyTimeout):
		_ = s.Close()
		return nil, nil, fmt.Errorf("frames channel not open after %s", readyTimeout)
	case <-ctx.Done():
		_ = s.Close()
		return nil, nil, nil
	}
}

func streamFrames(ctx context.Context, frames <-chan dac.Frame, done <-chan struct{}, enc codec.Encoder, out transport.FrameSender, log zerolog.Logger) error {
	var sent uint64
	for {
		select {
		case <-ctx.Done():
			log.Info().Uint64("frames", sent).Msg("interrupted")
			return nil
		case <-done:
			return errors.New("visualiser went away")
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			data, err := enc.Encode(frame)
			if err != nil {
				log.Warn().Err(err).Msg("encode frame")
				continue
			}
			if err := out.SendFrame(data); err != nil {
				return fmt.Errorf("send frame: %w", err)
			}
			sent++
			if sent%300 == 0 {
				log.Debug().Uint64("frames", sent).Msg("streaming")
			}
		}
	}
}
