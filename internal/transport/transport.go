// Package transport implements DAC stream listeners over WebSocket and
// WebRTC datachannels, plus the matching senders used by stream sources.
package transport

// FrameSender sends encoded DAC frames to a visualiser.
type FrameSender interface {
	SendFrame(data []byte) error
	Close() error
}

// Transport names used in config and metrics labels.
const (
	NameWebSocket = "ws"
	NameWebRTC    = "webrtc"
)

// DefaultInboxFrames is the per-stream queue length.
const DefaultInboxFrames = 8

// peerID is a signaling identity presented as a net.Addr.
type peerID string

func (p peerID) Network() string { return NameWebRTC }
func (p peerID) String() string  { return string(p) }
