package signaling

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	pingInterval     = 25 * time.Second
	handshakeTimeout = 10 * time.Second
)

var ErrNotConnected = errors.New("signaling: not connected")

// Handler receives server messages. Every callback runs on the read
// goroutine and may be nil.
type Handler struct {
	OnRegistered   func()
	OnOffer        func(from string, payload json.RawMessage)
	OnAnswer       func(from string, payload json.RawMessage)
	OnICECandidate func(from string, payload json.RawMessage)
	OnPeerLeft     func(peerID string)
	OnError        func(msg string)
	// OnDisconnect runs once when the read loop ends. err is nil after Close.
	OnDisconnect func(err error)
}

func (h Handler) relay(typ string) func(string, json.RawMessage) {
	switch typ {
	case TypeOffer:
		return h.OnOffer
	case TypeAnswer:
		return h.OnAnswer
	case TypeICECandidate:
		return h.OnICECandidate
	}
	return nil
}

// Client registers one identity with the signaling server and relays
// session descriptions to other peers.
type Client struct {
	url     string
	self    Message
	handler Handler
	log     zerolog.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a signaling client. Nothing is dialed until Connect.
func NewClient(url, clientID, clientType string, handler Handler, log zerolog.Logger) *Client {
	return &Client{
		url:     url,
		self:    Message{Type: TypeRegister, ID: clientID, ClientType: clientType},
		handler: handler,
		log:     log.With().Str("component", "signaling").Str("client_id", clientID).Logger(),
		done:    make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.self.ID
}

// Connect dials, registers, and starts the read and keepalive goroutines.
func (c *Client) Connect() error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("signaling dial %s: %w", c.url, err)
	}

	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()

	if err := c.send(c.self); err != nil {
		_ = conn.Close()
		return fmt.Errorf("signaling register: %w", err)
	}
	c.log.Debug().Str("url", c.url).Msg("signaling connected")

	go c.readLoop(conn)
	go c.keepalive()
	return nil
}

// Done is closed once the client has shut down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close is safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) SendOffer(target string, payload json.RawMessage) error {
	return c.relayTo(TypeOffer, target, payload)
}

func (c *Client) SendAnswer(target string, payload json.RawMessage) error {
	return c.relayTo(TypeAnswer, target, payload)
}

func (c *Client) SendICECandidate(target string, payload json.RawMessage) error {
	return c.relayTo(TypeICECandidate, target, payload)
}

func (c *Client) relayTo(typ, target string, payload json.RawMessage) error {
	return c.send(Message{Type: typ, Target: target, Payload: payload})
}

func (c *Client) send(msg Message) error {
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	err := c.consume(conn)
	select {
	case <-c.done:
		err = nil
	default:
		c.log.Warn().Err(err).Msg("signaling connection lost")
	}
	c.Close()
	if c.handler.OnDisconnect != nil {
		c.handler.OnDisconnect(err)
	}
}

func (c *Client) consume(conn *websocket.Conn) error {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Message) {
	h := c.handler
	switch msg.Type {
	case TypeOffer, TypeAnswer, TypeICECandidate:
		if fn := h.relay(msg.Type); fn != nil {
			fn(msg.From, msg.Payload)
		}
	case TypeRegistered:
		if h.OnRegistered != nil {
			h.OnRegistered()
		}
	case TypePeerLeft:
		if h.OnPeerLeft != nil {
			h.OnPeerLeft(msg.PeerID)
		}
	case TypeError:
		if h.OnError != nil {
			h.OnError(msg.Msg)
		}
	case TypePong:
	default:
		c.log.Debug().Str("type", msg.Type).Msg("ignoring signaling message")
	}
}

// keepalive sends JSON pings so idle proxies keep the socket open.
func (c *Client) keepalive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.send(Message{Type: TypePing}); err != nil {
				c.log.Debug().Err(err).Msg("signaling ping")
			}
		}
	}
}
