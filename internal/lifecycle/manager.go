// Package lifecycle owns the active DAC stream and moves its frames into
// the frame buffer once per render tick.
//
//	Idle --(connection received)--> Connected --(end of stream | error)--> Idle
//
// A connection that arrives while another is active replaces it.
package lifecycle

import (
	"github.com/rs/zerolog"

	"github.com/junsooki/laserview/internal/dac"
	"github.com/junsooki/laserview/internal/metrics"
	"github.com/junsooki/laserview/internal/notify"
	"github.com/junsooki/laserview/internal/stream"
)

// DefaultMaxDrainPerTick bounds the poll loop so a producer that refills
// the stream as fast as it is drained cannot stall a tick.
const DefaultMaxDrainPerTick = 256

// Publisher receives the latest frame of each tick.
type Publisher interface {
	Publish(frame dac.Frame) (superseded bool)
}

// Notifier is told about lifecycle transitions.
type Notifier interface {
	StreamOpened(conn stream.Connection)
	StreamClosed(conn stream.Connection, err error)
}

// Options tunes a Manager. Zero values take the defaults.
type Options struct {
	MaxDrainPerTick int
	Notifier        Notifier
	Logger          zerolog.Logger
}

// Manager is not safe for concurrent use; Tick is called from the render
// loop only.
type Manager struct {
	incoming <-chan stream.Connection
	out      Publisher
	notifier Notifier
	log      zerolog.Logger
	maxDrain int

	state State
}

// New creates an idle manager that adopts connections from incoming.
func New(incoming <-chan stream.Connection, out Publisher, opts Options) *Manager {
	if opts.MaxDrainPerTick <= 0 {
		opts.MaxDrainPerTick = DefaultMaxDrainPerTick
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLog(opts.Logger)
	}
	return &Manager{
		incoming: incoming,
		out:      out,
		notifier: opts.Notifier,
		log:      opts.Logger.With().Str("component", "lifecycle").Logger(),
		maxDrain: opts.MaxDrainPerTick,
		state:    Idle{},
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return m.state
}

// Tick adopts a pending connection, drains the active stream, and
// publishes the last frame drained. Never blocks.
func (m *Manager) Tick() {
	m.adopt()

	conn, ok := m.state.(Connected)
	if !ok {
		return
	}

	latest, drained, err := m.drain(conn.Conn.Stream)
	metrics.RecordReceived(drained)
	if drained > 0 {
		metrics.RecordSuperseded(metrics.StageTick, drained-1)
		if m.out.Publish(latest) {
			metrics.RecordSuperseded(metrics.StageBuffer, 1)
		}
	}
	if err != nil {
		m.release(conn.Conn)
		m.state = Idle{}
		metrics.RecordClosed(notify.Reason(err))
		m.notifier.StreamClosed(conn.Conn, err)
	}
}

// Shutdown releases the active stream, if any.
func (m *Manager) Shutdown() {
	if conn, ok := m.state.(Connected); ok {
		m.release(conn.Conn)
		m.state = Idle{}
		metrics.RecordClosed("shutdown")
	}
}

func (m *Manager) adopt() {
	if m.incoming == nil {
		return
	}
	var next stream.Connection
	select {
	case c, ok := <-m.incoming:
		if !ok {
			// Acceptor has shut down; keep serving the current stream.
			m.log.Debug().Msg("hand-off channel closed")
			m.incoming = nil
			return
		}
		next = c
	default:
		return
	}

	replaced := false
	switch cur := m.state.(type) {
	case Connected:
		m.log.Debug().
			Str("old", cur.Conn.ID).
			Str("new", next.ID).
			Msg("replacing active stream")
		m.supersede(cur.Conn)
		replaced = true
	case Idle:
	}
	m.state = Connected{Conn: next}
	metrics.RecordConnected(replaced)
	m.notifier.StreamOpened(next)
}

// drain polls until the stream has nothing more, fails, or the per-tick
// limit is hit. Frames drained before an error are still returned.
func (m *Manager) drain(s stream.Stream) (latest dac.Frame, n int, err error) {
	for n < m.maxDrain {
		f, ok, err := s.TryNextFrame()
		if err != nil {
			return latest, n, err
		}
		if !ok {
			break
		}
		latest = f
		n++
	}
	return latest, n, nil
}

func (m *Manager) supersede(conn stream.Connection) {
	if conn.Stream == nil {
		return
	}
	if err := stream.Supersede(conn.Stream); err != nil {
		m.log.Debug().Err(err).Str("connection_id", conn.ID).Msg("stream close")
	}
}

func (m *Manager) release(conn stream.Connection) {
	if conn.Stream == nil {
		return
	}
	if err := conn.Stream.Close(); err != nil {
		m.log.Debug().Err(err).Str("connection_id", conn.ID).Msg("stream close")
	}
}
