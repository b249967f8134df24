package lifecycle

import "github.com/junsooki/laserview/internal/stream"

// State is either Idle or Connected. Switch on the concrete type.
type State interface {
	isState()
}

// Idle has no connection.
type Idle struct{}

// Connected owns exactly one connection.
type Connected struct {
	Conn stream.Connection
}

func (Idle) isState()      {}
func (Connected) isState() {}

// Name is used for logs and metrics.
func Name(s State) string {
	switch s.(type) {
	case Connected:
		return "connected"
	default:
		return "idle"
	}
}
