package transport

import (
	"sync"
	"sync/atomic"

	"github.com/junsooki/laserview/internal/dac"
	"github.com/junsooki/laserview/internal/stream"
)

// inbox is a bounded frame queue implementing stream.Stream.
//
// push and finish must be called from the same goroutine. offer and
// finish may be called from any goroutine.
type inbox struct {
	frames chan dac.Frame
	quit   chan struct{}

	mu       sync.Mutex
	finished bool
	err      error

	quitOnce   sync.Once
	closeErr   error
	closeFn    func() error
	superseded atomic.Bool
}

func newInbox(capacity int, closeFn func() error) *inbox {
	if capacity < 1 {
		capacity = DefaultInboxFrames
	}
	return &inbox{
		frames:  make(chan dac.Frame, capacity),
		quit:    make(chan struct{}),
		closeFn: closeFn,
	}
}

// push blocks until the frame is queued or the stream is closed.
func (in *inbox) push(f dac.Frame) bool {
	select {
	case in.frames <- f:
		return true
	case <-in.quit:
		return false
	}
}

// offer queues the frame if there is room.
func (in *inbox) offer(f dac.Frame) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.finished {
		return false
	}
	select {
	case in.frames <- f:
		return true
	default:
		return false
	}
}

// finish records the terminal error. Queued frames are still delivered
// before it is reported.
func (in *inbox) finish(err error) {
	if err == nil {
		err = stream.ErrEndOfStream
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.finished {
		return
	}
	in.finished = true
	in.err = err
	close(in.frames)
}

func (in *inbox) TryNextFrame() (dac.Frame, bool, error) {
	select {
	case f, ok := <-in.frames:
		if !ok {
			in.mu.Lock()
			err := in.err
			in.mu.Unlock()
			return nil, false, err
		}
		return f, true, nil
	default:
		return nil, false, nil
	}
}

func (in *inbox) Close() error {
	in.quitOnce.Do(func() {
		close(in.quit)
		if in.closeFn != nil {
			in.closeErr = in.closeFn()
		}
	})
	return in.closeErr
}

// Supersede is Close for a stream replaced by a newer connection.
func (in *inbox) Supersede() error {
	in.superseded.Store(true)
	return in.Close()
}

// closing reports whether Close has been called.
func (in *inbox) closing() bool {
	select {
	case <-in.quit:
		return true
	default:
		return false
	}
}
