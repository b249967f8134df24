package transport

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/junsooki/laserview/internal/codec"
	"github.com/junsooki/laserview/internal/dac"
	"github.com/junsooki/laserview/internal/stream"
)

func newWSServer(t *testing.T, l *WebSocketListener) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/stream", l.Handler())
	return httptest.NewServer(r)
}

func streamURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
}

func acceptAsync(l *WebSocketListener) <-chan stream.Stream {
	out := make(chan stream.Stream, 1)
	go func() {
		s, _, err := l.Accept()
		if err == nil {
			out <- s
		}
		close(out)
	}()
	return out
}

// pollFrame spins on TryNextFrame until a frame or error shows up.
func pollFrame(t *testing.T, s stream.Stream) (dac.Frame, error) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f, ok, err := s.TryNextFrame()
		if err != nil {
			return nil, err
		}
		if ok {
			return f, nil
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out polling stream")
	return nil, nil
}

func TestWebSocketListenerDeliversFramesThenEnd(t *testing.T) {
	l := NewWebSocketListener(WebSocketOptions{InboxFrames: 4, Logger: zerolog.Nop()})
	defer l.Close()
	srv := newWSServer(t, l)
	defer srv.Close()

	accepted := acceptAsync(l)
	sender, err := DialWebSocket(streamURL(srv))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	var s stream.Stream
	select {
	case s = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatalf("accept timed out")
	}
	if s == nil {
		t.Fatalf("accept failed")
	}

	data, _ := codec.NewBinary().Encode(dac.Frame{{X: 100, R: 65535}, {X: -100, G: 65535}})
	if err := sender.SendFrame(data); err != nil {
		t.Fatalf("send: %v", err)
	}
	f, err := pollFrame(t, s)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(f) != 2 || f[0].X != 100 || f[1].G != 65535 {
		t.Fatalf("unexpected frame: %+v", f)
	}

	_ = sender.Close()
	if _, err := pollFrame(t, s); !errors.Is(err, stream.ErrEndOfStream) {
		t.Fatalf("expected end of stream after close, got %v", err)
	}
	_ = s.Close()
}

func TestWebSocketListenerDecodeErrorTerminatesStream(t *testing.T) {
	l := NewWebSocketListener(WebSocketOptions{Logger: zerolog.Nop()})
	defer l.Close()
	srv := newWSServer(t, l)
	defer srv.Close()

	accepted := acceptAsync(l)
	conn, _, err := websocket.DefaultDialer.Dial(streamURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	s := <-accepted

	// Text messages are ignored, malformed binary ends the stream.
	_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
	_ = conn.WriteMessage(websocket.BinaryMessage, []byte{0, 0, 0, 3})

	_, err = pollFrame(t, s)
	if !errors.Is(err, codec.ErrPointCount) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestWebSocketListenerCloseUnblocksAccept(t *testing.T) {
	l := NewWebSocketListener(WebSocketOptions{Logger: zerolog.Nop()})
	errc := make(chan error, 1)
	go func() {
		_, _, err := l.Accept()
		errc <- err
	}()
	_ = l.Close()
	select {
	case err := <-errc:
		if !errors.Is(err, stream.ErrListenerClosed) {
			t.Fatalf("expected ErrListenerClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("accept did not return")
	}
}

func TestStreamCloseEndsServerSide(t *testing.T) {
	l := NewWebSocketListener(WebSocketOptions{Logger: zerolog.Nop()})
	defer l.Close()
	srv := newWSServer(t, l)
	defer srv.Close()

	accepted := acceptAsync(l)
	conn, _, err := websocket.DefaultDialer.Dial(streamURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	s := <-accepted

	_ = s.Close()
	ce := readClose(t, conn)
	if ce.Code != websocket.CloseNormalClosure || ce.Text == "replaced" {
		t.Fatalf("plain close should not report replacement: %d %q", ce.Code, ce.Text)
	}
}

func TestSupersedeTellsClientItWasReplaced(t *testing.T) {
	l := NewWebSocketListener(WebSocketOptions{Logger: zerolog.Nop()})
	defer l.Close()
	srv := newWSServer(t, l)
	defer srv.Close()

	accepted := acceptAsync(l)
	conn, _, err := websocket.DefaultDialer.Dial(streamURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	s := <-accepted

	if err := stream.Supersede(s); err != nil {
		t.Fatalf("supersede: %v", err)
	}
	ce := readClose(t, conn)
	if ce.Code != websocket.CloseGoingAway || ce.Text != "replaced" {
		t.Fatalf("expected going-away \"replaced\", got %d %q", ce.Code, ce.Text)
	}
}

// readClose reads until the server's close frame arrives.
func readClose(t *testing.T, conn *websocket.Conn) *websocket.CloseError {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var ce *websocket.CloseError
		if !errors.As(err, &ce) {
			t.Fatalf("expected a close frame, got %v", err)
		}
		return ce
	}
}
