package transport

import (
	"errors"
	"testing"

	"github.com/junsooki/laserview/internal/dac"
	"github.com/junsooki/laserview/internal/stream"
)

func TestInboxDeliversQueuedFramesBeforeTermination(t *testing.T) {
	in := newInbox(4, nil)
	in.offer(dac.Frame{{X: 1}})
	in.offer(dac.Frame{{X: 2}})
	in.finish(nil)

	for _, want := range []int16{1, 2} {
		f, ok, err := in.TryNextFrame()
		if err != nil || !ok || f[0].X != want {
			t.Fatalf("want frame %d, got %v ok=%v err=%v", want, f, ok, err)
		}
	}
	if _, _, err := in.TryNextFrame(); !errors.Is(err, stream.ErrEndOfStream) {
		t.Fatalf("expected end of stream, got %v", err)
	}
}

func TestInboxEmptyIsWouldBlock(t *testing.T) {
	in := newInbox(1, nil)
	f, ok, err := in.TryNextFrame()
	if f != nil || ok || err != nil {
		t.Fatalf("expected no frame and no error, got %v %v %v", f, ok, err)
	}
}

func TestInboxOfferDropsWhenFull(t *testing.T) {
	in := newInbox(1, nil)
	if !in.offer(dac.Frame{}) {
		t.Fatalf("first offer should fit")
	}
	if in.offer(dac.Frame{}) {
		t.Fatalf("second offer should be dropped")
	}
}

func TestInboxFinishKeepsFirstError(t *testing.T) {
	in := newInbox(1, nil)
	boom := errors.New("boom")
	in.finish(boom)
	in.finish(stream.ErrEndOfStream)
	if in.offer(dac.Frame{}) {
		t.Fatalf("offer after finish should fail")
	}
	if _, _, err := in.TryNextFrame(); !errors.Is(err, boom) {
		t.Fatalf("expected first error, got %v", err)
	}
}

func TestInboxCloseIsIdempotentAndUnblocksPush(t *testing.T) {
	calls := 0
	in := newInbox(1, func() error { calls++; return nil })
	in.push(dac.Frame{})

	done := make(chan bool)
	go func() { done <- in.push(dac.Frame{}) }()

	_ = in.Close()
	_ = in.Close()
	if <-done {
		t.Fatalf("push should fail once closed")
	}
	if calls != 1 {
		t.Fatalf("close func called %d times", calls)
	}
}
