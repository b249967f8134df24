package transport

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/junsooki/laserview/internal/codec"
	"github.com/junsooki/laserview/internal/metrics"
	"github.com/junsooki/laserview/internal/peer"
	"github.com/junsooki/laserview/internal/signaling"
	"github.com/junsooki/laserview/internal/stream"
)

// WebRTCOptions configures the WebRTC listener.
type WebRTCOptions struct {
	SignalingURL string
	ViewerID     string
	ICEServers   []webrtc.ICEServer
	InboxFrames  int
	Decoder      codec.Decoder
	Logger       zerolog.Logger
}

// WebRTCListener registers as a viewer on a signaling server and accepts
// one stream per source whose frames datachannel opens.
type WebRTCListener struct {
	sig       *signaling.Client
	ice       []webrtc.ICEServer
	dec       codec.Decoder
	inboxSize int
	log       zerolog.Logger

	mu    sync.Mutex
	peers map[string]*peer.Viewer

	pending chan accepted
	closed  chan struct{}
	once    sync.Once
	fatal   error
}

// NewWebRTCListener creates a listener. Start connects it to signaling.
func NewWebRTCListener(opts WebRTCOptions) *WebRTCListener {
	if opts.Decoder == nil {
		opts.Decoder = codec.NewBinary()
	}
	l := &WebRTCListener{
		ice:       opts.ICEServers,
		dec:       opts.Decoder,
		inboxSize: opts.InboxFrames,
		log:       opts.Logger.With().Str("component", "webrtc").Logger(),
		peers:     make(map[string]*peer.Viewer),
		pending:   make(chan accepted),
		closed:    make(chan struct{}),
	}
	l.sig = signaling.NewClient(opts.SignalingURL, opts.ViewerID, signaling.ClientTypeViewer, signaling.Handler{
		OnRegistered: func() {
			l.log.Info().Str("viewer_id", opts.ViewerID).Msg("registered with signaling server")
		},
		OnOffer:        l.handleOffer,
		OnICECandidate: l.handleCandidate,
		OnPeerLeft:     l.dropPeer,
		OnError: func(msg string) {
			l.log.Warn().Str("message", msg).Msg("signaling error")
		},
		OnDisconnect: func(err error) {
			if err != nil {
				l.shutdown(fmt.Errorf("signaling: %w", err))
			}
		},
	}, opts.Logger)
	return l
}

// Start connects to the signaling server.
func (l *WebRTCListener) Start() error {
	return l.sig.Connect()
}

// Accept blocks until a source's frames channel opens. Losing the
// signaling connection is reported as a fatal error.
func (l *WebRTCListener) Accept() (stream.Stream, net.Addr, error) {
	select {
	case a := <-l.pending:
		return a.s, a.addr, nil
	case <-l.closed:
		if l.fatal != nil {
			return nil, nil, l.fatal
		}
		return nil, nil, stream.ErrListenerClosed
	}
}

// Close stops accepting and leaves the signaling server. Streams already
// handed out stay open.
func (l *WebRTCListener) Close() error {
	l.shutdown(nil)
	return nil
}

func (l *WebRTCListener) shutdown(err error) {
	l.once.Do(func() {
		l.fatal = err
		close(l.closed)
		l.sig.Close()
	})
}

func (l *WebRTCListener) handleOffer(from string, payload json.RawMessage) {
	log := l.log.With().Str("remote", from).Logger()
	log.Debug().Msg("received offer")

	var v *peer.Viewer
	var in *inbox
	var inMu sync.Mutex
	v, err := peer.NewViewer(l.sig, from, peer.ViewerOptions{
		ICEServers: l.ice,
		Logger:     l.log,
		OnFrames: func(dc *webrtc.DataChannel) {
			s := l.attach(v, dc, log)
			inMu.Lock()
			in = s
			inMu.Unlock()
		},
		OnTerminal: func(state webrtc.PeerConnectionState) {
			inMu.Lock()
			s := in
			inMu.Unlock()
			if s != nil {
				s.finish(fmt.Errorf("webrtc: peer connection %s", state))
			}
			l.forget(from, v)
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("create viewer peer")
		return
	}

	l.mu.Lock()
	old := l.peers[from]
	l.peers[from] = v
	l.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	if err := v.HandleOffer(payload); err != nil {
		log.Warn().Err(err).Msg("handle offer")
		l.forget(from, v)
		_ = v.Close()
	}
}

// attach binds the frames datachannel to a new inbox and queues it for
// Accept once the channel opens.
func (l *WebRTCListener) attach(v *peer.Viewer, dc *webrtc.DataChannel, log zerolog.Logger) *inbox {
	in := newInbox(l.inboxSize, v.Close)

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if msg.IsString {
			return
		}
		frame, err := l.dec.Decode(msg.Data)
		if err != nil {
			in.finish(fmt.Errorf("webrtc decode: %w", err))
			return
		}
		if !in.offer(frame) {
			metrics.RecordInboxDropped(NameWebRTC)
		}
	})
	dc.OnClose(func() {
		in.finish(stream.ErrEndOfStream)
	})
	dc.OnOpen(func() {
		log.Debug().Msg("frames data channel open")
		go func() {
			select {
			case l.pending <- accepted{s: in, addr: peerID(v.RemoteID())}:
			case <-l.closed:
				_ = in.Close()
			case <-in.quit:
			}
		}()
	})
	return in
}

func (l *WebRTCListener) handleCandidate(from string, payload json.RawMessage) {
	l.mu.Lock()
	v := l.peers[from]
	l.mu.Unlock()
	if v == nil {
		return
	}
	if err := v.HandleICECandidate(payload); err != nil {
		l.log.Debug().Err(err).Str("remote", from).Msg("add ICE candidate")
	}
}

func (l *WebRTCListener) dropPeer(id string) {
	l.mu.Lock()
	v := l.peers[id]
	delete(l.peers, id)
	l.mu.Unlock()
	if v != nil {
		_ = v.Close()
	}
}

func (l *WebRTCListener) forget(id string, v *peer.Viewer) {
	l.mu.Lock()
	if l.peers[id] == v {
		delete(l.peers, id)
	}
	l.mu.Unlock()
}

// WebRTCSender streams frames to a viewer over a datachannel.
type WebRTCSender struct {
	sig  *signaling.Client
	src  *peer.Source
	open chan struct{}
	done chan struct{}
	once sync.Once
}

// DialWebRTC registers sourceID on the signaling server, offers a frames
// channel to viewerID, and returns once signaling is connected. Use
// Ready to wait for the channel to open.
func DialWebRTC(signalingURL, sourceID, viewerID string, ice []webrtc.ICEServer, log zerolog.Logger) (*WebRTCSender, error) {
	s := &WebRTCSender{open: make(chan struct{}), done: make(chan struct{})}
	var src *peer.Source

	s.sig = signaling.NewClient(signalingURL, sourceID, signaling.ClientTypeSource, signaling.Handler{
		OnRegistered: func() {
			if err := src.Connect(); err != nil {
				log.Warn().Err(err).Msg("send offer")
			}
		},
		OnAnswer: func(from string, payload json.RawMessage) {
			if err := src.HandleAnswer(payload); err != nil {
				log.Warn().Err(err).Msg("handle answer")
			}
		},
		OnICECandidate: func(from string, payload json.RawMessage) {
			if err := src.HandleICECandidate(payload); err != nil {
				log.Debug().Err(err).Msg("add ICE candidate")
			}
		},
		OnError: func(msg string) {
			log.Warn().Str("message", msg).Msg("signaling error")
		},
	}, log)

	src, err := peer.NewSource(s.sig, viewerID, ice, log, func(state webrtc.PeerConnectionState) {
		if peer.IsTerminal(state) {
			s.finish()
		}
	})
	if err != nil {
		return nil, err
	}
	s.src = src
	src.OnOpen(func() { close(s.open) })
	src.OnClose(s.finish)

	if err := s.sig.Connect(); err != nil {
		_ = src.Close()
		return nil, err
	}
	return s, nil
}

// Ready is closed once the frames channel is open.
func (s *WebRTCSender) Ready() <-chan struct{} {
	return s.open
}

// Done is closed when the channel or peer connection ends.
func (s *WebRTCSender) Done() <-chan struct{} {
	return s.done
}

func (s *WebRTCSender) SendFrame(data []byte) error {
	return s.src.SendFrame(data)
}

func (s *WebRTCSender) Close() error {
	s.finish()
	s.sig.Close()
	return s.src.Close()
}

func (s *WebRTCSender) finish() {
	s.once.Do(func() { close(s.done) })
}
