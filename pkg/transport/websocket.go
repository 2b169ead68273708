package transport

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mcpserve/mcpserve/pkg/logging"
	"github.com/mcpserve/mcpserve/pkg/router"
)

// WebSocketHandler serves framed-socket connections: one text frame per
// envelope in each direction, with the socket's own framing replacing
// newline delimiters. Each accepted socket gets its own session.
type WebSocketHandler struct {
	r        *router.Router
	logger   logging.Logger
	upgrader websocket.Upgrader
}

// WebSocketOption configures the websocket handler.
type WebSocketOption func(*WebSocketHandler)

// WithWebSocketLogger sets the logger.
func WithWebSocketLogger(l logging.Logger) WebSocketOption {
	return func(h *WebSocketHandler) { h.logger = l }
}

// WithCheckOrigin overrides the upgrade origin check.
func WithCheckOrigin(fn func(*http.Request) bool) WebSocketOption {
	return func(h *WebSocketHandler) { h.upgrader.CheckOrigin = fn }
}

// NewWebSocketHandler creates a websocket transport for the router.
func NewWebSocketHandler(r *router.Router, opts ...WebSocketOption) *WebSocketHandler {
	h := &WebSocketHandler{
		r:      r,
		logger: logging.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and runs the connection's read loop until
// the peer disconnects.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", logging.Err(err))
		return
	}
	defer func() {
		if err := ws.Close(); err != nil {
			h.logger.Debug("websocket close failed", logging.Err(err))
		}
	}()
	ws.SetReadLimit(MaxMessageSize)

	// Gorilla allows one concurrent writer. Responses go through the
	// connection's writer goroutine, but control-frame replies come from
	// the read loop, so sends still take the mutex.
	var wmu sync.Mutex
	conn := h.r.Open(func(_ context.Context, data []byte) error {
		wmu.Lock()
		defer wmu.Unlock()
		return ws.WriteMessage(websocket.TextMessage, data)
	})
	defer conn.Close()

	h.logger.Info("websocket session opened",
		logging.String("session_id", conn.Session().ID()),
		logging.String("remote", r.RemoteAddr),
	)

	for {
		kind, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read failed", logging.Err(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		conn.Handle(r.Context(), data)
	}
}
