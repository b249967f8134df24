package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/junsooki/laserview/internal/acceptor"
	"github.com/junsooki/laserview/internal/config"
	"github.com/junsooki/laserview/internal/display"
	"github.com/junsooki/laserview/internal/framebuf"
	"github.com/junsooki/laserview/internal/lifecycle"
	"github.com/junsooki/laserview/internal/logging"
	"github.com/junsooki/laserview/internal/metrics"
	"github.com/junsooki/laserview/internal/notify"
	"github.com/junsooki/laserview/internal/render"
	"github.com/junsooki/laserview/internal/server"
	"github.com/junsooki/laserview/internal/stream"
	"github.com/junsooki/laserview/internal/transport"
)

func main() {
	cfg, err := config.ParseViewerFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "laserview: %v\n", err)
		os.Exit(2)
	}

	log := logging.New("laserview", cfg.LogLevel)
	log.Info().
		Str("transport", cfg.Transport).
		Str("listen", cfg.ListenAddr).
		Str("viewer_id", cfg.ViewerID).
		Int("tps", cfg.TPS).
		Msg("laserview starting")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("laserview failed")
	}
}

func run(cfg *config.ViewerConfig, log zerolog.Logger) error {
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier, closeNotifier := buildNotifier(cfg, log)
	defer closeNotifier()

	var state atomic.Value
	state.Store(lifecycle.Name(lifecycle.Idle{}))
	srv := server.New(cfg.ListenAddr, func() string { return state.Load().(string) }, log)

	listener, err := buildListener(cfg, srv, log)
	if err != nil {
		return err
	}

	acc := acceptor.New(listener, cfg.HandoffCapacity, log)
	buf := framebuf.New()
	mgr := lifecycle.New(acc.Connections(), buf, lifecycle.Options{
		MaxDrainPerTick: cfg.MaxDrainPerTick,
		Notifier:        notifier,
		Logger:          log,
	})
	defer mgr.Shutdown()

	tracked := &trackedLifecycle{Manager: mgr, state: &state}
	driver := render.NewDriver(tracked, buf, metrics.RecordDisplayed)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The window stays up without an acceptor; it just never connects again.
		if err := acc.Run(gctx); err != nil {
			log.Error().Err(err).Msg("acceptor stopped, running without new connections")
		}
		return nil
	})
	g.Go(func() error {
		return srv.Run(gctx)
	})

	disp := display.NewEbitenDisplay(driver, display.Options{
		Title:     "laserview",
		Width:     cfg.WindowWidth,
		Height:    cfg.WindowHeight,
		TPS:       cfg.TPS,
		LineWidth: float32(cfg.LineWidth),
		Status:    tracked.status,
		Quit:      tracked.quit.Load,
	})

	// Close the window when the background group fails or a signal arrives.
	go func() {
		<-gctx.Done()
		tracked.quit.Store(true)
	}()

	// The window must own the main goroutine.
	dispErr := disp.Run()
	stop()
	groupErr := g.Wait()
	log.Info().Msg("laserview stopped")
	return errors.Join(dispErr, groupErr)
}

func buildNotifier(cfg *config.ViewerConfig, log zerolog.Logger) (lifecycle.Notifier, func()) {
	logNotifier := notify.NewLog(log)
	if cfg.MQTTBroker == "" {
		return logNotifier, func() {}
	}
	mq, client, err := notify.DialMQTT(notify.MQTTConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.ViewerID,
		Topic:    cfg.MQTTTopic,
	}, log)
	if err != nil {
		log.Warn().Err(err).Msg("mqtt disabled")
		return logNotifier, func() {}
	}
	return notify.Multi{logNotifier, mq}, func() {
		mq.Close()
		client.Disconnect(250)
	}
}

func buildListener(cfg *config.ViewerConfig, srv *server.Server, log zerolog.Logger) (stream.Listener, error) {
	switch cfg.Transport {
	case transport.NameWebRTC:
		l := transport.NewWebRTCListener(transport.WebRTCOptions{
			SignalingURL: cfg.SignalingURL,
			ViewerID:     cfg.ViewerID,
			InboxFrames:  cfg.InboxFrames,
			Logger:       log,
		})
		if err := l.Start(); err != nil {
			return nil, fmt.Errorf("webrtc listener: %w", err)
		}
		return l, nil
	default:
		l := transport.NewWebSocketListener(transport.WebSocketOptions{
			InboxFrames: cfg.InboxFrames,
			Logger:      log,
		})
		srv.Router().GET(cfg.StreamPath, l.Handler())
		log.Info().Str("path", cfg.StreamPath).Msg("websocket stream route mounted")
		return l, nil
	}
}
