package notify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/junsooki/laserview/internal/stream"
)

func testConn() stream.Connection {
	return stream.Connection{
		ID:   "c1",
		Peer: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 7765},
	}
}

func TestReasonClassifiesErrors(t *testing.T) {
	if Reason(nil) != "" {
		t.Fatalf("nil error should have no reason")
	}
	if got := Reason(fmt.Errorf("ws: %w", stream.ErrEndOfStream)); got != "end_of_stream" {
		t.Fatalf("wrapped EOS: got=%q", got)
	}
	if got := Reason(errors.New("boom")); got != "error" {
		t.Fatalf("generic error: got=%q", got)
	}
}

func TestLogNotifierWritesTransitions(t *testing.T) {
	var buf bytes.Buffer
	n := NewLog(zerolog.New(&buf))

	n.StreamOpened(testConn())
	n.StreamClosed(testConn(), stream.ErrEndOfStream)

	out := buf.String()
	if !strings.Contains(out, "Connected to 127.0.0.1:7765") {
		t.Fatalf("missing connect line: %s", out)
	}
	if !strings.Contains(out, "stream closed") || !strings.Contains(out, "end_of_stream") {
		t.Fatalf("missing close line: %s", out)
	}
}

type recordingNotifier struct {
	opened, closed int
}

func (r *recordingNotifier) StreamOpened(stream.Connection)        { r.opened++ }
func (r *recordingNotifier) StreamClosed(stream.Connection, error) { r.closed++ }

func TestMultiFansOut(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	m := Multi{a, b}
	m.StreamOpened(testConn())
	m.StreamClosed(testConn(), nil)
	if a.opened != 1 || b.opened != 1 || a.closed != 1 || b.closed != 1 {
		t.Fatalf("unexpected counts: a=%+v b=%+v", a, b)
	}
}

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	got      chan struct{}
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload.([]byte))
	p.mu.Unlock()
	p.got <- struct{}{}
	return doneToken{}
}

func TestMQTTPublishesJSONEvents(t *testing.T) {
	pub := &fakePublisher{got: make(chan struct{}, 4)}
	m := NewMQTT(pub, "laserview/viewer-1", zerolog.Nop())
	defer m.Close()

	m.StreamOpened(testConn())
	m.StreamClosed(testConn(), errors.New("reset"))

	for i := 0; i < 2; i++ {
		select {
		case <-pub.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for publish %d", i)
		}
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.topics[0] != "laserview/viewer-1/events" {
		t.Fatalf("topic: got=%q", pub.topics[0])
	}
	var ev Event
	if err := json.Unmarshal(pub.payloads[1], &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Type != EventStreamClosed || ev.Reason != "error" || ev.ConnectionID != "c1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestMQTTDropsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	pub := &blockingPublisher{release: block}
	m := NewMQTT(pub, "t", zerolog.Nop())
	defer func() {
		close(block)
		m.Close()
	}()

	for i := 0; i < mqttQueueSize+10; i++ {
		m.StreamOpened(testConn())
	}
	if m.Dropped() == 0 {
		t.Fatalf("expected drops once the queue filled")
	}
}

type blockingPublisher struct {
	release chan struct{}
}

func (p *blockingPublisher) Publish(string, byte, bool, interface{}) mqtt.Token {
	<-p.release
	return doneToken{}
}
