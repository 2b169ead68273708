package router

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/mcpserve/mcpserve/pkg/logging"
	"github.com/mcpserve/mcpserve/pkg/protocol"
	"github.com/mcpserve/mcpserve/pkg/session"
)

// ErrConnClosed reports a send on a closed connection.
var ErrConnClosed = errors.New("router: connection closed")

// SendFunc delivers one marshalled envelope to the peer. The router calls
// it from a single writer goroutine per connection, so implementations need
// no locking of their own.
type SendFunc func(ctx context.Context, data []byte) error

// Conn binds one transport connection to the router: it owns the session,
// the outbound queue and the writer goroutine. Transports call Handle for
// every inbound message and Close on disconnect.
type Conn struct {
	r      *Router
	sess   *session.Session
	send   SendFunc
	logger logging.Logger

	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Open creates a connection and starts its writer goroutine.
func (r *Router) Open(send SendFunc) *Conn {
	sess := session.New()
	c := &Conn{
		r:      r,
		sess:   sess,
		send:   send,
		logger: r.logger.With(logging.String("session_id", sess.ID())),
		queue:  make(chan []byte, r.queueSize),
		done:   make(chan struct{}),
	}
	r.obs.OnSessionOpened(sess.ID())
	go c.writeLoop()
	return c
}

// Session exposes the connection's handshake state.
func (c *Conn) Session() *session.Session { return c.sess }

// Handle processes one inbound wire message. Notifications are applied
// synchronously so the initialized notification is ordered against the
// requests that follow it on the same connection; requests run on their own
// goroutine so a slow tool call never stalls the transport's read loop.
// Malformed input produces an error envelope and leaves the connection up.
func (c *Conn) Handle(ctx context.Context, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		c.enqueue(ctx, c.r.parseFailure(err))
		return
	}

	switch m := msg.(type) {
	case *protocol.Request:
		go func() {
			c.enqueue(ctx, c.r.dispatchRequest(ctx, c.sess, m))
		}()
	case *protocol.Notification:
		c.r.dispatchNotification(ctx, c.sess, m)
	case *protocol.Response:
		// Servers do not issue requests over this path yet, so a response
		// envelope from the peer has nothing to correlate with.
		c.logger.Debug("dropping unexpected response envelope")
	}
}

// HandleSync processes one inbound message and returns the marshalled
// response, or nil when the message produces none. This is the entry point
// for request-response transports such as HTTP POST.
func (c *Conn) HandleSync(ctx context.Context, data []byte) []byte {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return c.marshal(c.r.parseFailure(err))
	}

	switch m := msg.(type) {
	case *protocol.Request:
		return c.marshal(c.r.dispatchRequest(ctx, c.sess, m))
	case *protocol.Notification:
		c.r.dispatchNotification(ctx, c.sess, m)
		return nil
	default:
		return nil
	}
}

// Notify queues a server-initiated notification, such as a list_changed
// announcement. Notifications keep their order relative to each other and
// to responses queued before them.
func (c *Conn) Notify(ctx context.Context, method string, params any) error {
	n, err := protocol.NewNotification(method, params)
	if err != nil {
		return err
	}
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.queue <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the connection down: the session transitions to closed and
// the writer goroutine stops after draining nothing further. Idempotent.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.sess.Close()
		close(c.done)
		c.r.obs.OnSessionClosed(c.sess.ID())
		c.logger.Debug("connection closed")
	})
}

func (c *Conn) enqueue(ctx context.Context, resp *protocol.Response) {
	data := c.marshal(resp)
	if data == nil {
		return
	}
	select {
	case c.queue <- data:
	case <-c.done:
	case <-ctx.Done():
	}
}

func (c *Conn) marshal(resp *protocol.Response) []byte {
	if resp == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("marshal response failed", logging.Err(err))
		return nil
	}
	return data
}

// writeLoop is the single writer for the connection. Serializing all sends
// through one goroutine keeps envelopes from interleaving on stream
// transports. Once the connection is closed, queued envelopes are dropped
// rather than written to a dead transport.
func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}
		select {
		case data := <-c.queue:
			if err := c.send(context.Background(), data); err != nil {
				c.logger.Warn("send failed", logging.Err(err))
			}
		case <-c.done:
			return
		}
	}
}

// parseFailure maps a decode failure to the mandated wire shape: a null-id
// error envelope, parse-error for broken JSON and invalid-request for JSON
// that is not an envelope.
func (r *Router) parseFailure(err error) *protocol.Response {
	code := protocol.ParseError
	if errors.Is(err, protocol.ErrNotJSONRPC) {
		code = protocol.InvalidRequest
	}
	r.logger.Debug("rejecting malformed message", logging.Err(err))
	return protocol.NewErrorResponse(nil, code, err.Error(), nil)
}
