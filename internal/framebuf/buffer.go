// Package framebuf holds the latest complete frame between the stream
// poller and the render loop.
//
// The buffer is a single-slot mailbox: Publish overwrites, TakeLatest
// consumes. Frames published between two reads are dropped, so memory
// stays bounded no matter how far the producer outruns the 60 Hz reader.
package framebuf

import (
	"sync"
	"sync/atomic"

	"github.com/junsooki/laserview/internal/dac"
)

// Buffer is safe for one writer and one reader on different goroutines.
type Buffer struct {
	mu     sync.Mutex
	frame  dac.Frame
	unread bool

	published  atomic.Uint64
	superseded atomic.Uint64
	taken      atomic.Uint64
}

// Stats is a point-in-time view of the buffer counters.
type Stats struct {
	Published  uint64
	Superseded uint64 // published frames overwritten before anyone read them
	Taken      uint64
}

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// Publish replaces any unconsumed frame. It reports whether an unread
// frame was overwritten. Never blocks.
func (b *Buffer) Publish(frame dac.Frame) (superseded bool) {
	b.mu.Lock()
	superseded = b.unread
	b.frame = frame
	b.unread = true
	b.mu.Unlock()

	b.published.Add(1)
	if superseded {
		b.superseded.Add(1)
	}
	return superseded
}

// TakeLatest returns and clears the most recently published frame.
// ok is false if nothing was published since the previous call.
func (b *Buffer) TakeLatest() (frame dac.Frame, ok bool) {
	b.mu.Lock()
	if !b.unread {
		b.mu.Unlock()
		return nil, false
	}
	frame = b.frame
	b.frame = nil
	b.unread = false
	b.mu.Unlock()

	b.taken.Add(1)
	return frame, true
}

func (b *Buffer) Stats() Stats {
	return Stats{
		Published:  b.published.Load(),
		Superseded: b.superseded.Load(),
		Taken:      b.taken.Load(),
	}
}
