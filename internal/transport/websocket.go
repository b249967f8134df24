package transport

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/junsooki/laserview/internal/codec"
	"github.com/junsooki/laserview/internal/stream"
)

// WebSocketOptions configures the WebSocket listener.
type WebSocketOptions struct {
	InboxFrames int
	// ReadLimit caps one message; zero derives it from the codec limit.
	ReadLimit int64
	Decoder   codec.Decoder
	Logger    zerolog.Logger
}

type accepted struct {
	s    stream.Stream
	addr net.Addr
}

// WebSocketListener turns each upgraded connection on its route into a
// stream. Mount Handler on a gin engine.
type WebSocketListener struct {
	upgrader  websocket.Upgrader
	dec       codec.Decoder
	inboxSize int
	readLimit int64
	log       zerolog.Logger

	pending chan accepted
	closed  chan struct{}
	once    sync.Once
}

// NewWebSocketListener creates a listener with no route mounted yet.
func NewWebSocketListener(opts WebSocketOptions) *WebSocketListener {
	if opts.Decoder == nil {
		opts.Decoder = codec.NewBinary()
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = codec.HeaderLen + codec.DefaultMaxPoints*codec.PointLen
	}
	return &WebSocketListener{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		dec:       opts.Decoder,
		inboxSize: opts.InboxFrames,
		readLimit: opts.ReadLimit,
		log:       opts.Logger.With().Str("component", "ws").Logger(),
		pending:   make(chan accepted),
		closed:    make(chan struct{}),
	}
}

// Accept blocks until a client has upgraded or the listener is closed.
func (l *WebSocketListener) Accept() (stream.Stream, net.Addr, error) {
	select {
	case a := <-l.pending:
		return a.s, a.addr, nil
	case <-l.closed:
		return nil, nil, stream.ErrListenerClosed
	}
}

// Close stops accepting. Streams already handed out stay open.
func (l *WebSocketListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

// Handler upgrades the request and serves the stream until it ends.
func (l *WebSocketListener) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		select {
		case <-l.closed:
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		default:
		}

		conn, err := l.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade has already written the HTTP error.
			l.log.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}
		conn.SetReadLimit(l.readLimit)

		var in *inbox
		in = newInbox(l.inboxSize, func() error {
			code, text := websocket.CloseNormalClosure, ""
			if in.superseded.Load() {
				code, text = websocket.CloseGoingAway, "replaced"
			}
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, text),
				time.Now().Add(time.Second))
			return conn.Close()
		})

		select {
		case l.pending <- accepted{s: in, addr: conn.RemoteAddr()}:
		case <-l.closed:
			conn.Close()
			return
		}
		l.serve(conn, in)
	}
}

func (l *WebSocketListener) serve(conn *websocket.Conn, in *inbox) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			in.finish(l.readError(err, in))
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		frame, err := l.dec.Decode(data)
		if err != nil {
			in.finish(fmt.Errorf("ws decode: %w", err))
			conn.Close()
			return
		}
		if !in.push(frame) {
			in.finish(stream.ErrEndOfStream)
			return
		}
	}
}

func (l *WebSocketListener) readError(err error, in *inbox) error {
	if in.closing() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return stream.ErrEndOfStream
	}
	if errors.Is(err, net.ErrClosed) {
		return stream.ErrEndOfStream
	}
	return fmt.Errorf("ws read: %w", err)
}

// WebSocketSender writes frames to a visualiser's stream route.
type WebSocketSender struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// DialWebSocket connects to url, e.g. ws://localhost:8090/stream.
func DialWebSocket(url string) (*WebSocketSender, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("ws dial %s: %w", url, err)
	}
	return &WebSocketSender{conn: conn}, nil
}

func (s *WebSocketSender) SendFrame(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Close sends a normal close and closes the socket.
func (s *WebSocketSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return s.conn.Close()
}
