// Package acceptor runs the blocking accept loop and hands each new
// stream to the lifecycle manager through a bounded channel.
package acceptor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/junsooki/laserview/internal/metrics"
	"github.com/junsooki/laserview/internal/stream"
)

// Acceptor owns the hand-off channel and closes it when Run returns.
type Acceptor struct {
	listener stream.Listener
	out      chan stream.Connection
	log      zerolog.Logger
}

// New creates an acceptor whose hand-off channel holds capacity pending
// connections. Capacity below 1 is raised to 1.
func New(l stream.Listener, capacity int, log zerolog.Logger) *Acceptor {
	if capacity < 1 {
		capacity = 1
	}
	return &Acceptor{
		listener: l,
		out:      make(chan stream.Connection, capacity),
		log:      log.With().Str("component", "acceptor").Logger(),
	}
}

// Connections is the receive side of the hand-off channel.
func (a *Acceptor) Connections() <-chan stream.Connection {
	return a.out
}

// Run accepts until ctx is cancelled or Accept fails. A full hand-off
// channel blocks the loop until the consumer catches up.
//
// Cancellation closes the listener to unblock Accept and returns nil.
// Any other Accept error is fatal and returned; there is no retry.
func (a *Acceptor) Run(ctx context.Context) error {
	defer close(a.out)

	stop := context.AfterFunc(ctx, func() {
		_ = a.listener.Close()
	})
	defer stop()

	for {
		s, addr, err := a.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, stream.ErrListenerClosed) {
				a.log.Debug().Msg("acceptor stopped")
				return nil
			}
			a.log.Error().Err(err).Msg("accept failed, no further connections")
			return fmt.Errorf("accept: %w", err)
		}

		conn := stream.Connection{
			ID:         uuid.New().String(),
			Stream:     s,
			Peer:       addr,
			AcceptedAt: time.Now(),
		}
		metrics.RecordAccepted()
		a.log.Debug().
			Str("connection_id", conn.ID).
			Str("peer", conn.PeerString()).
			Msg("accepted stream")

		select {
		case a.out <- conn:
		case <-ctx.Done():
			_ = s.Close()
			return nil
		}
	}
}
