// Package stream defines the contract between DAC stream transports and
// the rest of the visualiser.
package stream

import (
	"errors"
	"net"
	"time"

	"github.com/junsooki/laserview/internal/dac"
)

var (
	// ErrEndOfStream is returned by TryNextFrame once the peer has
	// finished and every queued frame was delivered.
	ErrEndOfStream = errors.New("stream: end of stream")
	// ErrListenerClosed is returned by Accept after Close.
	ErrListenerClosed = errors.New("stream: listener closed")
)

// Stream delivers complete frames from one peer.
type Stream interface {
	// TryNextFrame never blocks. ok=false with a nil error means no new
	// frame yet; any error terminates the stream.
	TryNextFrame() (frame dac.Frame, ok bool, err error)
	// Close releases the underlying transport. Safe to call more than once.
	Close() error
}

// Superseder is implemented by streams that can tell the peer a newer
// connection took its place.
type Superseder interface {
	Supersede() error
}

// Supersede closes s as replaced, falling back to Close.
func Supersede(s Stream) error {
	if sup, ok := s.(Superseder); ok {
		return sup.Supersede()
	}
	return s.Close()
}

// Listener accepts new streams. Accept blocks.
type Listener interface {
	Accept() (Stream, net.Addr, error)
	Close() error
}

// Connection is an accepted stream plus its peer. It is owned by exactly
// one component at a time.
type Connection struct {
	ID         string
	Stream     Stream
	Peer       net.Addr
	AcceptedAt time.Time
}

// PeerString renders the peer address, tolerating a nil address.
func (c Connection) PeerString() string {
	if c.Peer == nil {
		return "unknown"
	}
	return c.Peer.String()
}
