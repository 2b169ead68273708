package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tmaxmax/go-sse"
	"golang.org/x/sync/errgroup"

	"github.com/mcpserve/mcpserve/pkg/logging"
	"github.com/mcpserve/mcpserve/pkg/router"
)

// SessionHeader carries the session identifier between HTTP requests.
const SessionHeader = "Mcp-Session-Id"

// HTTPHandler serves the streamable HTTP transport on a single endpoint:
// POST carries one envelope per request and returns its response in the
// body, GET upgrades to a server-sent event stream for server-initiated
// notifications, DELETE terminates the session. The first POST without a
// session header creates the session and returns its identifier in the
// response header.
type HTTPHandler struct {
	r           *router.Router
	logger      logging.Logger
	maxBodySize int64

	mu       sync.RWMutex
	sessions map[string]*httpSession
}

type httpSession struct {
	conn   *router.Conn
	events chan []byte
	done   chan struct{}
	once   sync.Once
}

func (s *httpSession) terminate() {
	s.once.Do(func() {
		s.conn.Close()
		close(s.done)
	})
}

// HTTPOption configures the HTTP handler.
type HTTPOption func(*HTTPHandler)

// WithHTTPLogger sets the logger.
func WithHTTPLogger(l logging.Logger) HTTPOption {
	return func(h *HTTPHandler) { h.logger = l }
}

// WithMaxBodySize bounds the accepted POST body.
func WithMaxBodySize(n int64) HTTPOption {
	return func(h *HTTPHandler) {
		if n > 0 {
			h.maxBodySize = n
		}
	}
}

// NewHTTPHandler creates the streamable HTTP handler for the router.
func NewHTTPHandler(r *router.Router, opts ...HTTPOption) *HTTPHandler {
	h := &HTTPHandler{
		r:           r,
		logger:      logging.Default(),
		maxBodySize: MaxMessageSize,
		sessions:    make(map[string]*httpSession),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodGet:
		h.handleStream(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "POST, GET, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	sess, created := h.sessionFor(r.Header.Get(SessionHeader))
	if sess == nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	if created {
		h.logger.Info("http session created",
			logging.String("session_id", sess.conn.Session().ID()))
	}
	w.Header().Set(SessionHeader, sess.conn.Session().ID())

	resp := sess.conn.HandleSync(r.Context(), body)
	if resp == nil {
		// Notifications produce no response envelope.
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		h.logger.Warn("write response failed", logging.Err(err))
	}
}

// handleStream upgrades the request to an SSE stream and forwards queued
// server-initiated messages until either side disconnects.
func (h *HTTPHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	sess := h.lookup(r.Header.Get(SessionHeader))
	if sess == nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	stream, err := sse.Upgrade(w, r)
	if err != nil {
		http.Error(w, "stream upgrade failed", http.StatusBadRequest)
		return
	}

	for {
		select {
		case data := <-sess.events:
			msg := sse.Message{Type: sse.Type("message")}
			msg.AppendData(string(data))
			if err := stream.Send(&msg); err != nil {
				h.logger.Warn("sse send failed", logging.Err(err))
				return
			}
			if err := stream.Flush(); err != nil {
				return
			}
		case <-sess.done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *HTTPHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(SessionHeader)
	h.mu.Lock()
	sess, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	h.mu.Unlock()
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	sess.terminate()
	h.logger.Info("http session terminated", logging.String("session_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// sessionFor resolves the session for a POST. An empty id creates a fresh
// session; an unknown id resolves to nil.
func (h *HTTPHandler) sessionFor(id string) (*httpSession, bool) {
	if id != "" {
		return h.lookup(id), false
	}

	sess := &httpSession{
		events: make(chan []byte, 8),
		done:   make(chan struct{}),
	}
	sess.conn = h.r.Open(func(ctx context.Context, data []byte) error {
		// Server-initiated traffic waits for an attached event stream.
		select {
		case sess.events <- data:
			return nil
		case <-sess.done:
			return ErrSessionTerminated
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	h.mu.Lock()
	h.sessions[sess.conn.Session().ID()] = sess
	h.mu.Unlock()
	return sess, true
}

// Conn returns the router connection behind a session, giving the hosting
// application a handle for server-initiated notifications. Pushed envelopes
// wait for an attached event stream; they are never silently dropped.
func (h *HTTPHandler) Conn(sessionID string) (*router.Conn, bool) {
	sess := h.lookup(sessionID)
	if sess == nil {
		return nil, false
	}
	return sess.conn, true
}

func (h *HTTPHandler) lookup(id string) *httpSession {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[id]
}

// Close terminates every live session.
func (h *HTTPHandler) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*httpSession)
	h.mu.Unlock()
	for _, sess := range sessions {
		sess.terminate()
	}
}

// Server wraps the handler in an http.Server with coordinated shutdown.
type Server struct {
	handler *HTTPHandler
	srv     *http.Server
	logger  logging.Logger
}

// NewServer creates an HTTP server for the router listening on addr.
func NewServer(r *router.Router, addr string, opts ...HTTPOption) *Server {
	handler := NewHTTPHandler(r, opts...)
	return &Server{
		handler: handler,
		logger:  handler.logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run serves until the context is cancelled, then drains connections and
// terminates sessions.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("http transport listening", logging.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := s.srv.Shutdown(shutdownCtx)
		s.handler.Close()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
