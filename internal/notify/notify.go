// Package notify reports stream lifecycle transitions to operators.
//
// Notifiers are called from the render loop and must not block.
package notify

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/junsooki/laserview/internal/stream"
)

// Event types.
const (
	EventStreamOpened = "stream_opened"
	EventStreamClosed = "stream_closed"
)

// Event is the serialised form of a lifecycle transition.
type Event struct {
	Type         string    `json:"type"`
	ConnectionID string    `json:"connection_id"`
	Peer         string    `json:"peer"`
	Reason       string    `json:"reason,omitempty"`
	At           time.Time `json:"at"`
}

// Reason classifies why a stream ended.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, stream.ErrEndOfStream):
		return "end_of_stream"
	default:
		return "error"
	}
}

func newEvent(typ string, conn stream.Connection, err error) Event {
	return Event{
		Type:         typ,
		ConnectionID: conn.ID,
		Peer:         conn.PeerString(),
		Reason:       Reason(err),
		At:           time.Now().UTC(),
	}
}

// Log writes transitions to a zerolog logger.
type Log struct {
	log zerolog.Logger
}

// NewLog creates a notifier that writes info-level log lines.
func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log.With().Str("component", "notify").Logger()}
}

func (l *Log) StreamOpened(conn stream.Connection) {
	l.log.Info().
		Str("connection_id", conn.ID).
		Str("peer", conn.PeerString()).
		Msgf("Connected to %s", conn.PeerString())
}

func (l *Log) StreamClosed(conn stream.Connection, err error) {
	ev := l.log.Info()
	if Reason(err) == "error" {
		ev = l.log.Warn().Err(err)
	}
	ev.Str("connection_id", conn.ID).
		Str("peer", conn.PeerString()).
		Str("reason", Reason(err)).
		Msg("stream closed")
}

// Notifier is the common shape of Log, MQTT and Multi.
type Notifier interface {
	StreamOpened(conn stream.Connection)
	StreamClosed(conn stream.Connection, err error)
}

// Multi fans a transition out to several notifiers in order.
type Multi []Notifier

func (m Multi) StreamOpened(conn stream.Connection) {
	for _, n := range m {
		n.StreamOpened(conn)
	}
}

func (m Multi) StreamClosed(conn stream.Connection, err error) {
	for _, n := range m {
		n.StreamClosed(conn, err)
	}
}
