// Package registry holds the capability catalog a backend declares at
// initialization time: tools, resources, resource templates and prompts.
// The registry is read-mostly after initialization and safe for concurrent
// reads from any number of sessions.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mcpserve/mcpserve/pkg/pagination"
	"github.com/mcpserve/mcpserve/pkg/protocol"
)

// Kind names one descriptor namespace. Namespaces are independent: a tool
// may share a name with a resource without conflict.
type Kind string

const (
	KindTool             Kind = "tool"
	KindResource         Kind = "resource"
	KindResourceTemplate Kind = "resource_template"
	KindPrompt           Kind = "prompt"
)

// ErrDuplicateName is returned when a name is registered twice within the
// same kind.
var ErrDuplicateName = errors.New("duplicate name")

// Config controls registry behavior.
type Config struct {
	// MaxPageSize bounds the number of descriptors returned per List call.
	// Zero means pagination.DefaultLimit.
	MaxPageSize int
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() Config {
	return Config{MaxPageSize: pagination.DefaultLimit}
}

type store struct {
	byName  map[string]int
	entries []any
}

// Registry is the capability catalog. The zero value is not usable; create
// instances with New.
type Registry struct {
	mu     sync.RWMutex
	cfg    Config
	stores map[Kind]*store
}

// New creates an empty registry.
func New(cfg Config) *Registry {
	cfg.MaxPageSize = pagination.ClampLimit(cfg.MaxPageSize)
	return &Registry{
		cfg: cfg,
		stores: map[Kind]*store{
			KindTool:             {byName: make(map[string]int)},
			KindResource:         {byName: make(map[string]int)},
			KindResourceTemplate: {byName: make(map[string]int)},
			KindPrompt:           {byName: make(map[string]int)},
		},
	}
}

// Register adds a descriptor under the given kind and name. Names are
// case-sensitive and immutable once registered.
func (r *Registry) Register(kind Kind, name string, descriptor any) error {
	if name == "" {
		return fmt.Errorf("register %s: empty name", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[kind]
	if !ok {
		return fmt.Errorf("register: unknown kind %q", kind)
	}
	if _, exists := s.byName[name]; exists {
		return fmt.Errorf("register %s %q: %w", kind, name, ErrDuplicateName)
	}
	s.byName[name] = len(s.entries)
	s.entries = append(s.entries, descriptor)
	return nil
}

// Get looks up a descriptor by kind and name.
func (r *Registry) Get(kind Kind, name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stores[kind]
	if !ok {
		return nil, false
	}
	idx, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.entries[idx], true
}

// List returns one page of descriptors in registration order. The empty
// cursor starts from the beginning; an empty next cursor ends the listing.
// A limit of zero means the registry's configured maximum; positive limits
// are still capped by it.
func (r *Registry) List(kind Kind, cursor string, limit int) ([]any, string, error) {
	offset, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stores[kind]
	if !ok {
		return nil, "", fmt.Errorf("list: unknown kind %q", kind)
	}
	if limit <= 0 || limit > r.cfg.MaxPageSize {
		limit = r.cfg.MaxPageSize
	}
	start, end, next := pagination.Page(len(s.entries), offset, limit)
	page := make([]any, end-start)
	copy(page, s.entries[start:end])
	return page, next, nil
}

// Snapshot returns every descriptor of a kind in registration order,
// unpaginated. Intended for tests and diagnostics.
func (r *Registry) Snapshot(kind Kind) []any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[kind]
	if !ok {
		return nil
	}
	out := make([]any, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len reports the number of descriptors registered under a kind.
func (r *Registry) Len(kind Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.stores[kind]; ok {
		return len(s.entries)
	}
	return 0
}

// Typed wrappers over the generic store.

// RegisterTool registers a tool descriptor.
func (r *Registry) RegisterTool(t protocol.Tool) error {
	return r.Register(KindTool, t.Name, t)
}

// Tool looks up a tool by name.
func (r *Registry) Tool(name string) (protocol.Tool, bool) {
	v, ok := r.Get(KindTool, name)
	if !ok {
		return protocol.Tool{}, false
	}
	return v.(protocol.Tool), true
}

// Tools returns one page of tools.
func (r *Registry) Tools(cursor string, limit int) ([]protocol.Tool, string, error) {
	page, next, err := r.List(KindTool, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	out := make([]protocol.Tool, len(page))
	for i, v := range page {
		out[i] = v.(protocol.Tool)
	}
	return out, next, nil
}

// RegisterResource registers a resource descriptor keyed by URI.
func (r *Registry) RegisterResource(res protocol.Resource) error {
	return r.Register(KindResource, res.URI, res)
}

// Resource looks up a resource by URI.
func (r *Registry) Resource(uri string) (protocol.Resource, bool) {
	v, ok := r.Get(KindResource, uri)
	if !ok {
		return protocol.Resource{}, false
	}
	return v.(protocol.Resource), true
}

// Resources returns one page of resources.
func (r *Registry) Resources(cursor string, limit int) ([]protocol.Resource, string, error) {
	page, next, err := r.List(KindResource, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	out := make([]protocol.Resource, len(page))
	for i, v := range page {
		out[i] = v.(protocol.Resource)
	}
	return out, next, nil
}

// RegisterResourceTemplate registers a resource template keyed by its URI
// template.
func (r *Registry) RegisterResourceTemplate(t protocol.ResourceTemplate) error {
	return r.Register(KindResourceTemplate, t.URITemplate, t)
}

// ResourceTemplates returns one page of resource templates.
func (r *Registry) ResourceTemplates(cursor string, limit int) ([]protocol.ResourceTemplate, string, error) {
	page, next, err := r.List(KindResourceTemplate, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	out := make([]protocol.ResourceTemplate, len(page))
	for i, v := range page {
		out[i] = v.(protocol.ResourceTemplate)
	}
	return out, next, nil
}

// RegisterPrompt registers a prompt descriptor.
func (r *Registry) RegisterPrompt(p protocol.Prompt) error {
	return r.Register(KindPrompt, p.Name, p)
}

// Prompt looks up a prompt by name.
func (r *Registry) Prompt(name string) (protocol.Prompt, bool) {
	v, ok := r.Get(KindPrompt, name)
	if !ok {
		return protocol.Prompt{}, false
	}
	return v.(protocol.Prompt), true
}

// Prompts returns one page of prompts.
func (r *Registry) Prompts(cursor string, limit int) ([]protocol.Prompt, string, error) {
	page, next, err := r.List(KindPrompt, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	out := make([]protocol.Prompt, len(page))
	for i, v := range page {
		out[i] = v.(protocol.Prompt)
	}
	return out, next, nil
}
