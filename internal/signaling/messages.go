// Package signaling is the WebSocket client used to exchange WebRTC
// session descriptions between a viewer and its stream sources.
package signaling

import "encoding/json"

// Envelope types. Offer, answer and ice-candidate are relayed verbatim
// between peers by the server.
const (
	TypeRegister     = "register"
	TypeRegistered   = "registered"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypePeerLeft     = "peer-left"
	TypePing         = "ping"
	TypePong         = "pong"
	TypeError        = "error"
)

// Roles a client registers as.
const (
	ClientTypeViewer = "viewer"
	ClientTypeSource = "source"
)

// Message is the single JSON envelope on the signaling socket. Target is
// set on outgoing relays, From on incoming ones.
type Message struct {
	Type       string          `json:"type"`
	ID         string          `json:"id,omitempty"`
	ClientType string          `json:"clientType,omitempty"`
	Target     string          `json:"target,omitempty"`
	From       string          `json:"from,omitempty"`
	PeerID     string          `json:"peerId,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Msg        string          `json:"message,omitempty"`
}
