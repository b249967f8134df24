package peer

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// FramesLabel is the datachannel that carries encoded DAC frames.
const FramesLabel = "frames"

// DefaultICEServers is the default ICE server configuration.
var DefaultICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}},
}

// Signaler relays session descriptions and candidates to a remote peer.
// *signaling.Client satisfies it.
type Signaler interface {
	SendOffer(target string, payload json.RawMessage) error
	SendAnswer(target string, payload json.RawMessage) error
	SendICECandidate(target string, payload json.RawMessage) error
}

// NewPeerConnection creates a configured PeerConnection. onState, if
// non-nil, sees every connection state change.
func NewPeerConnection(ice []webrtc.ICEServer, log zerolog.Logger, onState func(webrtc.PeerConnectionState)) (*webrtc.PeerConnection, error) {
	if ice == nil {
		ice = DefaultICEServers
	}
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: ice})
	if err != nil {
		return nil, err
	}
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug().Str("state", state.String()).Msg("peer connection state")
		if onState != nil {
			onState(state)
		}
	})
	return pc, nil
}

// trickle forwards local ICE candidates to target.
func trickle(pc *webrtc.PeerConnection, sig Signaler, target string, log zerolog.Logger) {
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			log.Warn().Err(err).Msg("marshal ICE candidate")
			return
		}
		_ = sig.SendICECandidate(target, data)
	})
}

func addCandidate(pc *webrtc.PeerConnection, payload json.RawMessage) error {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &candidate); err != nil {
		return err
	}
	return pc.AddICECandidate(candidate)
}

// IsTerminal reports whether a connection state can no longer carry data.
func IsTerminal(state webrtc.PeerConnectionState) bool {
	switch state {
	case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
		return true
	default:
		return false
	}
}
