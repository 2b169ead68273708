package backend

import (
	"context"
	"encoding/json"
	"sync"

	mcperrors "github.com/mcpserve/mcpserve/pkg/errors"
	"github.com/mcpserve/mcpserve/pkg/pagination"
	"github.com/mcpserve/mcpserve/pkg/protocol"
	"github.com/mcpserve/mcpserve/pkg/registry"
)

// ToolFunc executes one tool call.
type ToolFunc func(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error)

// ResourceFunc reads one resource.
type ResourceFunc func(ctx context.Context, uri string) ([]protocol.ResourceContents, error)

// PromptFunc renders one prompt.
type PromptFunc func(ctx context.Context, args map[string]string) (*protocol.GetPromptResult, error)

// Static is an in-memory backend: descriptors live in a capability registry
// and behavior is supplied as per-name handler functions. Registration
// happens once before serving; afterwards the backend is read-mostly and
// safe for concurrent calls.
type Static struct {
	info Info
	reg  *registry.Registry

	mu        sync.RWMutex
	tools     map[string]ToolFunc
	resources map[string]ResourceFunc
	prompts   map[string]PromptFunc
}

// NewStatic creates an empty static backend with its own registry. The
// registry cap is set to the pagination ceiling so the router's configured
// page size governs listing, up to that ceiling.
func NewStatic(info Info) *Static {
	return &Static{
		info:      info,
		reg:       registry.New(registry.Config{MaxPageSize: pagination.MaxLimit}),
		tools:     make(map[string]ToolFunc),
		resources: make(map[string]ResourceFunc),
		prompts:   make(map[string]PromptFunc),
	}
}

// Registry exposes the backend's capability catalog, letting the router
// validate lookups before dispatching.
func (b *Static) Registry() *registry.Registry { return b.reg }

// RegisterTool declares a tool and its handler.
func (b *Static) RegisterTool(tool protocol.Tool, fn ToolFunc) error {
	if err := b.reg.RegisterTool(tool); err != nil {
		return err
	}
	b.mu.Lock()
	b.tools[tool.Name] = fn
	b.mu.Unlock()
	return nil
}

// RegisterResource declares a resource and its reader.
func (b *Static) RegisterResource(res protocol.Resource, fn ResourceFunc) error {
	if err := b.reg.RegisterResource(res); err != nil {
		return err
	}
	b.mu.Lock()
	b.resources[res.URI] = fn
	b.mu.Unlock()
	return nil
}

// RegisterResourceTemplate declares a resource template.
func (b *Static) RegisterResourceTemplate(t protocol.ResourceTemplate) error {
	return b.reg.RegisterResourceTemplate(t)
}

// RegisterPrompt declares a prompt and its renderer.
func (b *Static) RegisterPrompt(p protocol.Prompt, fn PromptFunc) error {
	if err := b.reg.RegisterPrompt(p); err != nil {
		return err
	}
	b.mu.Lock()
	b.prompts[p.Name] = fn
	b.mu.Unlock()
	return nil
}

// Info merges the configured identity with capabilities derived from what
// was registered: a family is advertised when it has at least one entry.
func (b *Static) Info() Info {
	info := b.info
	caps := info.Capabilities
	if caps.Tools == nil && b.reg.Len(registry.KindTool) > 0 {
		caps.Tools = &protocol.Capability{ListChanged: true}
	}
	if caps.Resources == nil && (b.reg.Len(registry.KindResource) > 0 || b.reg.Len(registry.KindResourceTemplate) > 0) {
		caps.Resources = &protocol.Capability{ListChanged: true}
	}
	if caps.Prompts == nil && b.reg.Len(registry.KindPrompt) > 0 {
		caps.Prompts = &protocol.Capability{ListChanged: true}
	}
	info.Capabilities = caps
	return info
}

// ListTools implements Backend.
func (b *Static) ListTools(ctx context.Context, page PageRequest) (*protocol.ListToolsResult, error) {
	tools, next, err := b.reg.Tools(page.Cursor, page.Limit)
	if err != nil {
		return nil, mcperrors.Wrap(mcperrors.KindValidation, "bad cursor", err)
	}
	if tools == nil {
		tools = []protocol.Tool{}
	}
	return &protocol.ListToolsResult{Tools: tools, NextCursor: next}, nil
}

// CallTool implements Backend.
func (b *Static) CallTool(ctx context.Context, name string, args json.RawMessage) (*protocol.CallToolResult, error) {
	b.mu.RLock()
	fn, ok := b.tools[name]
	b.mu.RUnlock()
	if !ok {
		return nil, mcperrors.NotFound("tool", name)
	}
	return fn(ctx, args)
}

// ListResources implements Backend.
func (b *Static) ListResources(ctx context.Context, page PageRequest) (*protocol.ListResourcesResult, error) {
	resources, next, err := b.reg.Resources(page.Cursor, page.Limit)
	if err != nil {
		return nil, mcperrors.Wrap(mcperrors.KindValidation, "bad cursor", err)
	}
	if resources == nil {
		resources = []protocol.Resource{}
	}
	return &protocol.ListResourcesResult{Resources: resources, NextCursor: next}, nil
}

// ReadResource implements Backend.
func (b *Static) ReadResource(ctx context.Context, uri string) (*protocol.ReadResourceResult, error) {
	b.mu.RLock()
	fn, ok := b.resources[uri]
	b.mu.RUnlock()
	if !ok {
		return nil, mcperrors.NotFound("resource", uri)
	}
	contents, err := fn(ctx, uri)
	if err != nil {
		return nil, err
	}
	return &protocol.ReadResourceResult{Contents: contents}, nil
}

// ListResourceTemplates implements Backend.
func (b *Static) ListResourceTemplates(ctx context.Context, page PageRequest) (*protocol.ListResourceTemplatesResult, error) {
	templates, next, err := b.reg.ResourceTemplates(page.Cursor, page.Limit)
	if err != nil {
		return nil, mcperrors.Wrap(mcperrors.KindValidation, "bad cursor", err)
	}
	if templates == nil {
		templates = []protocol.ResourceTemplate{}
	}
	return &protocol.ListResourceTemplatesResult{ResourceTemplates: templates, NextCursor: next}, nil
}

// ListPrompts implements Backend.
func (b *Static) ListPrompts(ctx context.Context, page PageRequest) (*protocol.ListPromptsResult, error) {
	prompts, next, err := b.reg.Prompts(page.Cursor, page.Limit)
	if err != nil {
		return nil, mcperrors.Wrap(mcperrors.KindValidation, "bad cursor", err)
	}
	if prompts == nil {
		prompts = []protocol.Prompt{}
	}
	return &protocol.ListPromptsResult{Prompts: prompts, NextCursor: next}, nil
}

// GetPrompt implements Backend.
func (b *Static) GetPrompt(ctx context.Context, name string, args map[string]string) (*protocol.GetPromptResult, error) {
	b.mu.RLock()
	fn, ok := b.prompts[name]
	b.mu.RUnlock()
	if !ok {
		return nil, mcperrors.NotFound("prompt", name)
	}
	return fn(ctx, args)
}
