package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/treestore/pkg/store"
)

// Default tracer name for treestore spans.
const defaultTracerName = "treestore"

// TracingConfig configures the OpenTelemetry observer.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "treestore").
	TracerName string

	// StoreName is recorded as the treestore.store attribute on every span.
	StoreName string

	// TraceWrites also emits a span for every write. Disabled by default.
	TraceWrites bool

	// Parent is the context spans are started from (default: context.Background()).
	Parent context.Context
}

// TracingOption configures the OpenTelemetry observer.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithStoreName sets the store name attribute.
func WithStoreName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.StoreName = name
	}
}

// WithTraceWrites enables one span per write.
func WithTraceWrites(enabled bool) TracingOption {
	return func(c *TracingConfig) {
		c.TraceWrites = enabled
	}
}

// WithParent sets the parent context for spans.
func WithParent(ctx context.Context) TracingOption {
	return func(c *TracingConfig) {
		c.Parent = ctx
	}
}

// Tracing is a store.Observer that emits one span per notification pass.
// The tracer comes from the global OpenTelemetry provider.
type Tracing struct {
	config TracingConfig
	tracer trace.Tracer
}

// NewTracing creates the tracing observer.
func NewTracing(opts ...TracingOption) *Tracing {
	config := TracingConfig{
		TracerName: defaultTracerName,
		Parent:     context.Background(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Tracing{
		config: config,
		tracer: otel.Tracer(config.TracerName),
	}
}

// ObservePass implements store.Observer. The span is backdated to the pass
// start so its duration matches the pass.
func (t *Tracing) ObservePass(s store.PassStats) {
	_, span := t.tracer.Start(t.config.Parent, "treestore.pass",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(s.Start),
		trace.WithAttributes(t.attrs(
			attribute.Int("treestore.entries", s.Entries),
			attribute.Int("treestore.changed", s.Changed),
			attribute.Int("treestore.dropped", s.Dropped),
			attribute.Int("treestore.notified", s.Notified),
		)...),
	)
	if s.Dropped > 0 {
		span.AddEvent("stale paths dropped", trace.WithAttributes(attribute.Int("count", s.Dropped)))
	}
	span.SetStatus(codes.Ok, "")
	span.End(trace.WithTimestamp(s.End))
}

// ObserveWrite implements store.Observer.
func (t *Tracing) ObserveWrite(s store.WriteStats) {
	if !t.config.TraceWrites {
		return
	}
	_, span := t.tracer.Start(t.config.Parent, "treestore.write",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(t.attrs(
			attribute.String("treestore.path", s.Path),
			attribute.Bool("treestore.noop", s.NoOp),
			attribute.Bool("treestore.deferred", s.Deferred),
		)...),
	)
	span.End()
}

func (t *Tracing) attrs(kv ...attribute.KeyValue) []attribute.KeyValue {
	if t.config.StoreName != "" {
		kv = append(kv, attribute.String("treestore.store", t.config.StoreName))
	}
	return kv
}

var _ store.Observer = (*Tracing)(nil)
