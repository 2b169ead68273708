package observability

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcpserve/mcpserve/pkg/backend"
	"github.com/mcpserve/mcpserve/pkg/protocol"
)

// NewTracerProvider creates an OTLP/HTTP tracer provider for the given
// service. The returned shutdown function flushes pending spans; call it on
// exit.
func NewTracerProvider(ctx context.Context, serviceName, endpoint string) (*sdktrace.TracerProvider, func(context.Context) error, error) {
	opts := []otlptracehttp.Option{}
	if endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return tp, tp.Shutdown, nil
}

// TracedBackend wraps a backend so every operation runs inside a span.
type TracedBackend struct {
	next   backend.Backend
	tracer trace.Tracer
}

// TraceBackend wraps b with spans from the provider.
func TraceBackend(b backend.Backend, tp trace.TracerProvider) *TracedBackend {
	return &TracedBackend{
		next:   b,
		tracer: tp.Tracer("mcpserve/backend"),
	}
}

// Info implements backend.Backend.
func (t *TracedBackend) Info() backend.Info { return t.next.Info() }

func (t *TracedBackend) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// ListTools implements backend.Backend.
func (t *TracedBackend) ListTools(ctx context.Context, page backend.PageRequest) (*protocol.ListToolsResult, error) {
	ctx, span := t.span(ctx, "backend.ListTools")
	result, err := t.next.ListTools(ctx, page)
	finish(span, err)
	return result, err
}

// CallTool implements backend.Backend.
func (t *TracedBackend) CallTool(ctx context.Context, name string, args json.RawMessage) (*protocol.CallToolResult, error) {
	ctx, span := t.span(ctx, "backend.CallTool", attribute.String("tool.name", name))
	result, err := t.next.CallTool(ctx, name, args)
	finish(span, err)
	return result, err
}

// ListResources implements backend.Backend.
func (t *TracedBackend) ListResources(ctx context.Context, page backend.PageRequest) (*protocol.ListResourcesResult, error) {
	ctx, span := t.span(ctx, "backend.ListResources")
	result, err := t.next.ListResources(ctx, page)
	finish(span, err)
	return result, err
}

// ReadResource implements backend.Backend.
func (t *TracedBackend) ReadResource(ctx context.Context, uri string) (*protocol.ReadResourceResult, error) {
	ctx, span := t.span(ctx, "backend.ReadResource", attribute.String("resource.uri", uri))
	result, err := t.next.ReadResource(ctx, uri)
	finish(span, err)
	return result, err
}

// ListResourceTemplates implements backend.Backend.
func (t *TracedBackend) ListResourceTemplates(ctx context.Context, page backend.PageRequest) (*protocol.ListResourceTemplatesResult, error) {
	ctx, span := t.span(ctx, "backend.ListResourceTemplates")
	result, err := t.next.ListResourceTemplates(ctx, page)
	finish(span, err)
	return result, err
}

// ListPrompts implements backend.Backend.
func (t *TracedBackend) ListPrompts(ctx context.Context, page backend.PageRequest) (*protocol.ListPromptsResult, error) {
	ctx, span := t.span(ctx, "backend.ListPrompts")
	result, err := t.next.ListPrompts(ctx, page)
	finish(span, err)
	return result, err
}

// GetPrompt implements backend.Backend.
func (t *TracedBackend) GetPrompt(ctx context.Context, name string, args map[string]string) (*protocol.GetPromptResult, error) {
	ctx, span := t.span(ctx, "backend.GetPrompt", attribute.String("prompt.name", name))
	result, err := t.next.GetPrompt(ctx, name, args)
	finish(span, err)
	return result, err
}

// HandleCustomMethod forwards extension methods when the wrapped backend
// supports them.
func (t *TracedBackend) HandleCustomMethod(ctx context.Context, method string, params json.RawMessage) (any, error) {
	handler, ok := t.next.(backend.CustomMethodHandler)
	if !ok {
		return nil, backend.ErrUnknownMethod
	}
	ctx, span := t.span(ctx, "backend.HandleCustomMethod", attribute.String("rpc.method", method))
	result, err := handler.HandleCustomMethod(ctx, method, params)
	finish(span, err)
	return result, err
}

// HealthCheck forwards health probes when the wrapped backend supports
// them.
func (t *TracedBackend) HealthCheck(ctx context.Context) error {
	checker, ok := t.next.(backend.HealthChecker)
	if !ok {
		return nil
	}
	ctx, span := t.span(ctx, "backend.HealthCheck")
	err := checker.HealthCheck(ctx)
	finish(span, err)
	return err
}
