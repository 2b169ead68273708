// Package session tracks per-connection protocol lifecycle: the initialize
// handshake, protocol version selection and capability negotiation. Each
// connection owns exactly one Session; all sessions share the one backend
// instance and capability registry.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mcpserve/mcpserve/pkg/protocol"
)

// State is the lifecycle state of a session.
type State int

const (
	// StateUninitialized is the state of a fresh connection.
	StateUninitialized State = iota
	// StateInitializing means the initialize request was accepted and the
	// server is waiting for the initialized notification.
	StateInitializing
	// StateReady means the handshake completed; all methods are available.
	StateReady
	// StateClosed means the transport disconnected. Terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Event is a handshake-relevant occurrence on the connection.
type Event int

const (
	// EventInitialize is the arrival of an initialize request.
	EventInitialize Event = iota
	// EventInitialized is the arrival of the initialized notification.
	EventInitialized
	// EventDisconnect is the transport signalling connection loss.
	EventDisconnect
)

var (
	// ErrNotInitialized reports a request before the handshake completed.
	ErrNotInitialized = errors.New("server not initialized")
	// ErrAlreadyInitialized reports a second initialize attempt.
	ErrAlreadyInitialized = errors.New("session already initialized")
	// ErrClosed reports an event on a closed session.
	ErrClosed = errors.New("session closed")
)

// Transition is the pure state-machine step: given a state and an event it
// returns the next state or an error. It holds no session data and is
// testable in isolation from any transport.
func Transition(s State, e Event) (State, error) {
	if e == EventDisconnect {
		return StateClosed, nil
	}
	switch s {
	case StateUninitialized:
		if e == EventInitialize {
			return StateInitializing, nil
		}
		return s, ErrNotInitialized
	case StateInitializing:
		switch e {
		case EventInitialize:
			return s, ErrAlreadyInitialized
		case EventInitialized:
			return StateReady, nil
		}
	case StateReady:
		if e == EventInitialize {
			return s, ErrAlreadyInitialized
		}
		// A stray initialized notification after Ready is harmless.
		return s, nil
	case StateClosed:
		return s, ErrClosed
	}
	return s, fmt.Errorf("invalid transition: %v in %v", e, s)
}

// Session is the per-connection handshake and negotiation record. Methods
// are safe for concurrent use; the router may handle requests from the same
// connection on separate goroutines.
type Session struct {
	id string

	mu              sync.RWMutex
	state           State
	protocolVersion string
	clientInfo      protocol.Implementation
	capabilities    protocol.ServerCapabilities
	initAttempts    int
}

// New creates a session in StateUninitialized with a fresh identifier.
func New() *Session {
	return &Session{id: uuid.NewString()}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// NegotiatedVersion returns the protocol version agreed at initialize time,
// or the empty string before then.
func (s *Session) NegotiatedVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.protocolVersion
}

// Capabilities returns the negotiated capability intersection.
func (s *Session) Capabilities() protocol.ServerCapabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capabilities
}

// ClientInfo returns the peer identification from the initialize request.
func (s *Session) ClientInfo() protocol.Implementation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientInfo
}

// InitAttempts returns how many initialize requests this session has seen.
// Values above one indicate duplicate or overlapping handshake attempts.
func (s *Session) InitAttempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initAttempts
}

// Initialize applies an initialize request: it negotiates the protocol
// version and the capability intersection and moves the session to
// StateInitializing. A repeated initialize is rejected with
// ErrAlreadyInitialized and leaves the previously negotiated state intact.
func (s *Session) Initialize(params protocol.InitializeParams, server protocol.ServerCapabilities) (protocol.ServerCapabilities, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initAttempts++
	next, err := Transition(s.state, EventInitialize)
	if err != nil {
		return protocol.ServerCapabilities{}, "", err
	}

	s.state = next
	s.protocolVersion = protocol.NegotiateVersion(params.ProtocolVersion)
	s.clientInfo = params.ClientInfo
	s.capabilities = intersectCapabilities(server, params.Capabilities)
	return s.capabilities, s.protocolVersion, nil
}

// Initialized applies the initialized notification, completing the
// handshake.
func (s *Session) Initialized() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Transition(s.state, EventInitialized)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// Close moves the session to StateClosed. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}

// intersectCapabilities computes the negotiated capability set. A client
// that declares no interest at all places no constraint and receives the
// full server set; otherwise a family survives only when both sides
// declare it.
func intersectCapabilities(server protocol.ServerCapabilities, client protocol.ClientCapabilities) protocol.ServerCapabilities {
	if client.IsEmpty() {
		return server
	}
	var out protocol.ServerCapabilities
	if server.Tools != nil && client.Tools != nil {
		out.Tools = server.Tools
	}
	if server.Resources != nil && client.Resources != nil {
		out.Resources = server.Resources
	}
	if server.Prompts != nil && client.Prompts != nil {
		out.Prompts = server.Prompts
	}
	if server.Logging != nil && client.Logging != nil {
		out.Logging = server.Logging
	}
	return out
}
