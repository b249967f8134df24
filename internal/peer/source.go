package peer

import (
	"encoding/json"
	"errors"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

var ErrChannelNotOpen = errors.New("peer: frames channel not open")

// Source offers a frames datachannel to a viewer.
type Source struct {
	pc       *webrtc.PeerConnection
	sig      Signaler
	frames   *webrtc.DataChannel
	viewerID string
	log      zerolog.Logger
}

// NewSource creates the offering peer. onState may be nil.
func NewSource(sig Signaler, viewerID string, ice []webrtc.ICEServer, log zerolog.Logger, onState func(webrtc.PeerConnectionState)) (*Source, error) {
	log = log.With().Str("component", "peer").Str("remote", viewerID).Logger()
	pc, err := NewPeerConnection(ice, log, onState)
	if err != nil {
		return nil, err
	}

	// Frames are superseded quickly; a late retransmit is worthless.
	ordered := false
	maxRetransmits := uint16(0)
	dc, err := pc.CreateDataChannel(FramesLabel, &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &maxRetransmits,
	})
	if err != nil {
		pc.Close()
		return nil, err
	}

	trickle(pc, sig, viewerID, log)
	return &Source{pc: pc, sig: sig, frames: dc, viewerID: viewerID, log: log}, nil
}

// OnOpen runs f once the frames channel is open.
func (s *Source) OnOpen(f func()) {
	s.frames.OnOpen(f)
}

// OnClose runs f when the frames channel closes.
func (s *Source) OnClose(f func()) {
	s.frames.OnClose(f)
}

// Connect creates and sends the offer.
func (s *Source) Connect() error {
	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return err
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return err
	}
	offerJSON, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	return s.sig.SendOffer(s.viewerID, offerJSON)
}

// HandleAnswer processes an incoming SDP answer.
func (s *Source) HandleAnswer(payload json.RawMessage) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		return err
	}
	return s.pc.SetRemoteDescription(answer)
}

// HandleICECandidate adds a remote ICE candidate.
func (s *Source) HandleICECandidate(payload json.RawMessage) error {
	return addCandidate(s.pc, payload)
}

// SendFrame sends one encoded frame.
func (s *Source) SendFrame(data []byte) error {
	if s.frames.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	return s.frames.Send(data)
}

// Close shuts down the peer connection.
func (s *Source) Close() error {
	return s.pc.Close()
}
