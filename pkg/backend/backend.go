// Package backend defines the contract a domain implementation must satisfy
// to be served over the protocol, plus an in-memory implementation suitable
// for static tool sets and tests.
//
// One backend instance serves the whole process and is shared by reference
// across concurrently active sessions; implementations must tolerate
// concurrent invocation and manage their own synchronization.
package backend

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mcpserve/mcpserve/pkg/protocol"
)

// ErrUnknownMethod is returned by a CustomMethodHandler that does not
// recognize the requested method.
var ErrUnknownMethod = errors.New("unknown method")

// PageRequest carries pagination inputs to listing methods. Cursor is the
// opaque token from the previous page (empty for the first page); Limit is
// the server-configured page bound.
type PageRequest struct {
	Cursor string
	Limit  int
}

// Info is the server metadata answered at initialize time. It is read once
// at router construction, never per-request.
type Info struct {
	Name         string
	Version      string
	Instructions string
	Capabilities protocol.ServerCapabilities
}

// Backend is the polymorphic contract a domain implements: one method per
// protocol method family. The router holds only this interface and never a
// concrete type. Methods must be safe for concurrent calls from unrelated
// sessions; the router never serializes backend calls or holds a lock
// across them.
type Backend interface {
	// Info returns server identity and declared capabilities.
	Info() Info

	ListTools(ctx context.Context, page PageRequest) (*protocol.ListToolsResult, error)
	CallTool(ctx context.Context, name string, args json.RawMessage) (*protocol.CallToolResult, error)

	ListResources(ctx context.Context, page PageRequest) (*protocol.ListResourcesResult, error)
	ReadResource(ctx context.Context, uri string) (*protocol.ReadResourceResult, error)
	ListResourceTemplates(ctx context.Context, page PageRequest) (*protocol.ListResourceTemplatesResult, error)

	ListPrompts(ctx context.Context, page PageRequest) (*protocol.ListPromptsResult, error)
	GetPrompt(ctx context.Context, name string, args map[string]string) (*protocol.GetPromptResult, error)
}

// HealthChecker is an optional backend capability. Hosting processes may
// probe it from their health endpoints; the protocol core does not call it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CustomMethodHandler is an optional backend capability for methods outside
// the fixed set. The router consults it before answering method-not-found.
type CustomMethodHandler interface {
	// HandleCustomMethod serves a non-standard method. Returning
	// (nil, ErrUnknownMethod) lets the router answer method-not-found.
	HandleCustomMethod(ctx context.Context, method string, params json.RawMessage) (any, error)
}
