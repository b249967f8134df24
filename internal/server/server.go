// Package server hosts the visualiser's HTTP surface: health, metrics and
// the WebSocket stream route.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// StatusFunc reports the current lifecycle state for /healthz.
type StatusFunc func() string

type Server struct {
	addr    string
	router  *gin.Engine
	log     zerolog.Logger
	started time.Time
	status  StatusFunc
}

// New builds the engine with /healthz and /metrics mounted.
func New(addr string, status StatusFunc, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		addr:    addr,
		router:  gin.New(),
		log:     log.With().Str("component", "http").Logger(),
		started: time.Now(),
		status:  status,
	}
	s.router.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

// Router exposes the engine so transports can mount their routes.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		body := gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.started).String(),
			"component": "laserview",
		}
		if s.status != nil {
			body["stream"] = s.status()
		}
		c.JSON(http.StatusOK, body)
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
