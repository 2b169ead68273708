// Package transport adapts byte-oriented channels to the router. Each
// adapter owns framing and connection lifecycle only; message semantics
// live entirely in the router, so every transport exposes identical
// protocol behavior.
package transport

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/mcpserve/mcpserve/pkg/router"
)

var (
	// ErrClosed reports an operation on a closed stream.
	ErrClosed = errors.New("transport: stream closed")
	// ErrSessionNotFound reports a request naming an unknown session.
	ErrSessionNotFound = errors.New("transport: session not found")
	// ErrSessionTerminated reports a send on a terminated session.
	ErrSessionTerminated = errors.New("transport: session terminated")
)

// MaxMessageSize bounds a single inbound envelope across all adapters.
const MaxMessageSize = 4 * 1024 * 1024

// Stream is the adapter-facing contract: Receive blocks until the next
// complete inbound envelope is available, Send writes exactly one envelope.
// Send must be safe for the router's writer goroutine; Receive is called
// from a single loop and never concurrently.
type Stream interface {
	Receive(ctx context.Context) ([]byte, error)
	Send(ctx context.Context, data []byte) error
	Close() error
}

// Serve pumps a stream through the router until the peer disconnects.
// io.EOF and ErrClosed from Receive end the session cleanly; any other
// receive failure is returned after teardown.
func Serve(ctx context.Context, r *router.Router, s Stream) error {
	conn := r.Open(s.Send)
	defer conn.Close()

	for {
		data, err := s.Receive(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, ErrClosed):
			return nil
		default:
			return err
		}
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		conn.Handle(ctx, data)
	}
}
