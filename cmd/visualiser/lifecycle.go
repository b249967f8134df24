package main

import (
	"fmt"
	"sync/atomic"

	"github.com/junsooki/laserview/internal/lifecycle"
)

// trackedLifecycle publishes the state name after each tick so the HTTP
// side can read it without touching the manager.
type trackedLifecycle struct {
	*lifecycle.Manager
	state *atomic.Value
	quit  atomic.Bool
}

func (t *trackedLifecycle) Tick() {
	t.Manager.Tick()
	t.state.Store(lifecycle.Name(t.Manager.State()))
}

func (t *trackedLifecycle) status() string {
	switch s := t.Manager.State().(type) {
	case lifecycle.Connected:
		return fmt.Sprintf("connected: %s", s.Conn.PeerString())
	default:
		return "waiting for stream"
	}
}
