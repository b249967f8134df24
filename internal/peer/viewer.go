package peer

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// ViewerOptions configures the answering side.
type ViewerOptions struct {
	ICEServers []webrtc.ICEServer
	Logger     zerolog.Logger
	// OnFrames receives the remote frames datachannel.
	OnFrames func(dc *webrtc.DataChannel)
	// OnTerminal runs when the connection fails or closes.
	OnTerminal func(state webrtc.PeerConnectionState)
}

// Viewer answers an offer from one stream source.
type Viewer struct {
	pc       *webrtc.PeerConnection
	sig      Signaler
	remoteID string
	log      zerolog.Logger
}

// NewViewer creates the peer connection for remoteID.
func NewViewer(sig Signaler, remoteID string, opts ViewerOptions) (*Viewer, error) {
	log := opts.Logger.With().Str("component", "peer").Str("remote", remoteID).Logger()
	pc, err := NewPeerConnection(opts.ICEServers, log, func(state webrtc.PeerConnectionState) {
		if IsTerminal(state) && opts.OnTerminal != nil {
			opts.OnTerminal(state)
		}
	})
	if err != nil {
		return nil, err
	}

	v := &Viewer{pc: pc, sig: sig, remoteID: remoteID, log: log}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != FramesLabel {
			log.Debug().Str("label", dc.Label()).Msg("ignoring data channel")
			return
		}
		log.Debug().Msg("frames data channel received")
		if opts.OnFrames != nil {
			opts.OnFrames(dc)
		}
	})
	trickle(pc, sig, remoteID, log)
	return v, nil
}

// RemoteID is the signaling id of the source.
func (v *Viewer) RemoteID() string {
	return v.remoteID
}

// HandleOffer applies the remote offer and sends back an answer.
func (v *Viewer) HandleOffer(payload json.RawMessage) error {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		return err
	}
	if err := v.pc.SetRemoteDescription(offer); err != nil {
		return err
	}
	answer, err := v.pc.CreateAnswer(nil)
	if err != nil {
		return err
	}
	if err := v.pc.SetLocalDescription(answer); err != nil {
		return err
	}
	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return err
	}
	return v.sig.SendAnswer(v.remoteID, answerJSON)
}

// HandleICECandidate adds a remote ICE candidate.
func (v *Viewer) HandleICECandidate(payload json.RawMessage) error {
	return addCandidate(v.pc, payload)
}

// Close shuts down the peer connection.
func (v *Viewer) Close() error {
	return v.pc.Close()
}
