// Package router implements the protocol dispatcher: it turns decoded wire
// envelopes into validated calls against a backend, drives the per-session
// handshake state machine, and converts results and failures back into wire
// envelopes. Transports feed it bytes; everything protocol-shaped happens
// here.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mcpserve/mcpserve/pkg/backend"
	mcperrors "github.com/mcpserve/mcpserve/pkg/errors"
	"github.com/mcpserve/mcpserve/pkg/logging"
	"github.com/mcpserve/mcpserve/pkg/pagination"
	"github.com/mcpserve/mcpserve/pkg/protocol"
	"github.com/mcpserve/mcpserve/pkg/registry"
	"github.com/mcpserve/mcpserve/pkg/session"
)

// DefaultQueueSize bounds the per-connection outbound queue. When the queue
// is full the producer blocks until the writer drains it; slow readers
// create backpressure instead of unbounded memory growth.
const DefaultQueueSize = 64

// Router dispatches protocol traffic to one shared backend instance. It is
// safe for concurrent use by any number of connections.
type Router struct {
	backend    backend.Backend
	registry   *registry.Registry
	harmonizer *mcperrors.Harmonizer
	obs        Observer
	logger     logging.Logger
	info       backend.Info
	queueSize  int
	pageSize   int
}

// Option configures a Router.
type Option func(*Router)

// WithRegistry lets the router validate tool/resource/prompt lookups before
// invoking the backend. Backends built on backend.Static get this wired
// automatically.
func WithRegistry(reg *registry.Registry) Option {
	return func(r *Router) { r.registry = reg }
}

// WithObserver sets the observability sink.
func WithObserver(obs Observer) Option {
	return func(r *Router) { r.obs = obs }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithHarmonizer sets the error harmonizer, carrying any backend-specific
// error converters.
func WithHarmonizer(h *mcperrors.Harmonizer) Option {
	return func(r *Router) { r.harmonizer = h }
}

// WithQueueSize bounds the per-connection outbound queue.
func WithQueueSize(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// WithPageSize sets the page bound passed to backend listing calls.
func WithPageSize(n int) Option {
	return func(r *Router) { r.pageSize = pagination.ClampLimit(n) }
}

// New creates a router for the given backend. Server metadata is read once
// here, never per-request.
func New(b backend.Backend, opts ...Option) *Router {
	r := &Router{
		backend:    b,
		harmonizer: mcperrors.NewHarmonizer(),
		obs:        NopObserver{},
		logger:     logging.Default(),
		info:       b.Info(),
		queueSize:  DefaultQueueSize,
		pageSize:   pagination.DefaultLimit,
	}
	if static, ok := b.(*backend.Static); ok {
		r.registry = static.Registry()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Info returns the server metadata the router advertises.
func (r *Router) Info() backend.Info { return r.info }

// dispatchRequest produces exactly one response for a request.
func (r *Router) dispatchRequest(ctx context.Context, sess *session.Session, req *protocol.Request) *protocol.Response {
	start := time.Now()
	r.obs.OnRequest(req.Method)

	resp := r.dispatch(ctx, sess, req)

	var code protocol.ErrorCode
	if resp.Error != nil {
		code = resp.Error.Code
	}
	r.obs.OnResponse(req.Method, code, time.Since(start))
	return resp
}

func (r *Router) dispatch(ctx context.Context, sess *session.Session, req *protocol.Request) *protocol.Response {
	if req.Method == protocol.MethodInitialize {
		return r.handleInitialize(sess, req)
	}

	if sess.State() != session.StateReady {
		return protocol.NewErrorResponse(req.ID, protocol.InvalidRequest, "server not initialized", nil)
	}

	switch req.Method {
	case protocol.MethodPing:
		return r.respond(req, protocol.PingResult{})

	case protocol.MethodListTools:
		var params protocol.ListToolsParams
		if resp := r.unmarshalParams(req, &params); resp != nil {
			return resp
		}
		result, err := r.backend.ListTools(ctx, r.pageRequest(params.Cursor))
		if err != nil {
			return r.errorResponse(req, err)
		}
		return r.respond(req, result)

	case protocol.MethodCallTool:
		return r.handleCallTool(ctx, req)

	case protocol.MethodListResources:
		var params protocol.ListResourcesParams
		if resp := r.unmarshalParams(req, &params); resp != nil {
			return resp
		}
		result, err := r.backend.ListResources(ctx, r.pageRequest(params.Cursor))
		if err != nil {
			return r.errorResponse(req, err)
		}
		return r.respond(req, result)

	case protocol.MethodReadResource:
		return r.handleReadResource(ctx, req)

	case protocol.MethodListResourceTemplates:
		var params protocol.ListResourceTemplatesParams
		if resp := r.unmarshalParams(req, &params); resp != nil {
			return resp
		}
		result, err := r.backend.ListResourceTemplates(ctx, r.pageRequest(params.Cursor))
		if err != nil {
			return r.errorResponse(req, err)
		}
		return r.respond(req, result)

	case protocol.MethodListPrompts:
		var params protocol.ListPromptsParams
		if resp := r.unmarshalParams(req, &params); resp != nil {
			return resp
		}
		result, err := r.backend.ListPrompts(ctx, r.pageRequest(params.Cursor))
		if err != nil {
			return r.errorResponse(req, err)
		}
		return r.respond(req, result)

	case protocol.MethodGetPrompt:
		return r.handleGetPrompt(ctx, req)

	default:
		return r.handleCustomMethod(ctx, req)
	}
}

func (r *Router) handleInitialize(sess *session.Session, req *protocol.Request) *protocol.Response {
	var params protocol.InitializeParams
	if resp := r.unmarshalParams(req, &params); resp != nil {
		return resp
	}

	caps, version, err := sess.Initialize(params, r.info.Capabilities)
	if err != nil {
		// A repeated initialize is a protocol violation; negotiated state
		// is left untouched by the session.
		return protocol.NewErrorResponse(req.ID, protocol.InvalidRequest, err.Error(), nil)
	}

	r.logger.Info("session initializing",
		logging.String("session_id", sess.ID()),
		logging.String("client", params.ClientInfo.Name),
		logging.String("protocol_version", version),
	)

	return r.respond(req, protocol.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    caps,
		ServerInfo:      protocol.Implementation{Name: r.info.Name, Version: r.info.Version},
		Instructions:    r.info.Instructions,
	})
}

func (r *Router) handleCallTool(ctx context.Context, req *protocol.Request) *protocol.Response {
	var params protocol.CallToolParams
	if resp := r.unmarshalParams(req, &params); resp != nil {
		return resp
	}
	if params.Name == "" {
		return protocol.NewErrorResponse(req.ID, protocol.InvalidParams, "tool name is required", nil)
	}

	if r.registry != nil {
		if _, ok := r.registry.Tool(params.Name); !ok {
			return protocol.NewErrorResponse(req.ID, protocol.ToolNotFound, "tool not found: "+params.Name, nil)
		}
	}

	result, err := r.backend.CallTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return r.toolErrorResponse(req, err)
	}
	return r.respond(req, result)
}

func (r *Router) handleReadResource(ctx context.Context, req *protocol.Request) *protocol.Response {
	var params protocol.ReadResourceParams
	if resp := r.unmarshalParams(req, &params); resp != nil {
		return resp
	}
	if params.URI == "" {
		return protocol.NewErrorResponse(req.ID, protocol.InvalidParams, "resource uri is required", nil)
	}

	// Exact-match resources can be rejected up front; URIs that only match
	// a template are the backend's to resolve.
	if r.registry != nil && r.registry.Len(registry.KindResourceTemplate) == 0 {
		if _, ok := r.registry.Resource(params.URI); !ok {
			return protocol.NewErrorResponse(req.ID, protocol.ResourceNotFound, "resource not found: "+params.URI, nil)
		}
	}

	result, err := r.backend.ReadResource(ctx, params.URI)
	if err != nil {
		return r.errorResponse(req, err)
	}
	return r.respond(req, result)
}

func (r *Router) handleGetPrompt(ctx context.Context, req *protocol.Request) *protocol.Response {
	var params protocol.GetPromptParams
	if resp := r.unmarshalParams(req, &params); resp != nil {
		return resp
	}
	if params.Name == "" {
		return protocol.NewErrorResponse(req.ID, protocol.InvalidParams, "prompt name is required", nil)
	}

	if r.registry != nil {
		if _, ok := r.registry.Prompt(params.Name); !ok {
			return protocol.NewErrorResponse(req.ID, protocol.ResourceNotFound, "prompt not found: "+params.Name, nil)
		}
	}

	result, err := r.backend.GetPrompt(ctx, params.Name, params.Arguments)
	if err != nil {
		return r.errorResponse(req, err)
	}
	return r.respond(req, result)
}

// handleCustomMethod serves methods outside the fixed set. Optional
// extensions the backend does not implement answer method-not-found, never
// a crash.
func (r *Router) handleCustomMethod(ctx context.Context, req *protocol.Request) *protocol.Response {
	handler, ok := r.backend.(backend.CustomMethodHandler)
	if !ok {
		return protocol.NewErrorResponse(req.ID, protocol.MethodNotFound, "method not found: "+req.Method, nil)
	}

	result, err := handler.HandleCustomMethod(ctx, req.Method, req.Params)
	if err != nil {
		if errors.Is(err, backend.ErrUnknownMethod) {
			return protocol.NewErrorResponse(req.ID, protocol.MethodNotFound, "method not found: "+req.Method, nil)
		}
		return r.errorResponse(req, err)
	}
	return r.respond(req, result)
}

// dispatchNotification applies a notification. Failures surface only
// through the observer; no wire traffic is ever produced.
func (r *Router) dispatchNotification(ctx context.Context, sess *session.Session, n *protocol.Notification) {
	switch n.Method {
	case protocol.MethodInitialized:
		if err := sess.Initialized(); err != nil {
			r.obs.OnNotificationError(n.Method, err)
			r.logger.Warn("initialized notification rejected",
				logging.String("session_id", sess.ID()),
				logging.Err(err),
			)
			return
		}
		r.logger.Info("session ready", logging.String("session_id", sess.ID()))
	default:
		r.logger.Debug("ignoring notification", logging.String("method", n.Method))
	}
}

func (r *Router) pageRequest(cursor string) backend.PageRequest {
	return backend.PageRequest{Cursor: cursor, Limit: r.pageSize}
}

// unmarshalParams decodes request params into target. Absent params leave
// the target at its zero value; malformed params yield an invalid-params
// response.
func (r *Router) unmarshalParams(req *protocol.Request, target any) *protocol.Response {
	if len(req.Params) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params, target); err != nil {
		return protocol.NewErrorResponse(req.ID, protocol.InvalidParams, "malformed params: "+err.Error(), nil)
	}
	return nil
}

func (r *Router) respond(req *protocol.Request, result any) *protocol.Response {
	resp, err := protocol.NewResponse(req.ID, result)
	if err != nil {
		r.logger.Error("marshal result failed",
			logging.String("method", req.Method),
			logging.Err(err),
		)
		return protocol.NewErrorResponse(req.ID, protocol.InternalError, "failed to encode result", nil)
	}
	return resp
}

// errorResponse harmonizes a backend failure into a wire error. Raw backend
// error types never reach the wire.
func (r *Router) errorResponse(req *protocol.Request, err error) *protocol.Response {
	se := r.harmonizer.Harmonize(err)
	return protocol.NewErrorResponse(req.ID, se.Kind.Code(), se.Message(), se.Data)
}

// toolErrorResponse is errorResponse with the tool-specific not-found code.
func (r *Router) toolErrorResponse(req *protocol.Request, err error) *protocol.Response {
	se := r.harmonizer.Harmonize(err)
	code := se.Kind.Code()
	if se.Kind == mcperrors.KindNotFound {
		code = protocol.ToolNotFound
	}
	return protocol.NewErrorResponse(req.ID, code, se.Message(), se.Data)
}
