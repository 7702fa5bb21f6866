package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonny/askuser-bot/internal/domain/port/outbound"
)

// GateState tracks the chat connection lifecycle.
type GateState int

const (
	StateDisconnected GateState = iota
	StateConnecting
	StateReady
	StateFailed
)

func (s GateState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

// Gate is the process-wide readiness flag plus the resolved channel handle.
// Only the chat adapter mutates it; capabilities read it before any I/O.
type Gate struct {
	mu           sync.RWMutex
	state        GateState
	channel      outbound.ChatChannel
	err          error
	onDisconnect []func()
}

func NewGate() *Gate {
	return &Gate{}
}

// BeginConnect moves the gate to Connecting. It fails while a connection is
// in progress or established.
func (g *Gate) BeginConnect() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateConnecting || g.state == StateReady {
		return fmt.Errorf("gate already %s", g.state)
	}
	g.state = StateConnecting
	g.channel = nil
	g.err = nil
	return nil
}

// MarkReady publishes the resolved channel. Valid only while Connecting.
func (g *Gate) MarkReady(ch outbound.ChatChannel) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateConnecting {
		return fmt.Errorf("cannot mark ready from state %s", g.state)
	}
	g.state = StateReady
	g.channel = ch
	return nil
}

func (g *Gate) MarkFailed(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = StateFailed
	g.channel = nil
	g.err = err
}

// Disconnect clears the gate and runs the registered hooks.
func (g *Gate) Disconnect() {
	g.mu.Lock()
	g.state = StateDisconnected
	g.channel = nil
	hooks := make([]func(), len(g.onDisconnect))
	copy(hooks, g.onDisconnect)
	g.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// OnDisconnect registers fn to run on every Disconnect.
func (g *Gate) OnDisconnect(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onDisconnect = append(g.onDisconnect, fn)
}

// Channel returns the ready channel handle; ok is false unless Ready.
func (g *Gate) Channel() (outbound.ChatChannel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.state != StateReady || g.channel == nil {
		return nil, false
	}
	return g.channel, true
}

func (g *Gate) Ready() bool {
	_, ok := g.Channel()
	return ok
}

func (g *Gate) State() GateState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Err is the failure recorded by MarkFailed, if any.
func (g *Gate) Err() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.err
}

// HealthCheck satisfies health.CheckFunc.
func (g *Gate) HealthCheck(_ context.Context) error {
	if g.Ready() {
		return nil
	}
	if err := g.Err(); err != nil {
		return fmt.Errorf("%s: %w", g.State(), err)
	}
	return fmt.Errorf("%w (state %s)", ErrNotConnected, g.State())
}
