package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// Default tracer name for the reactive engine.
const defaultTracerName = "github.com/vango-dev/reactive"

// Config configures the OpenTelemetry observer.
type Config struct {
	// TracerName is the name of the tracer.
	TracerName string

	// TracerProvider supplies the tracer. Default: the global provider.
	TracerProvider trace.TracerProvider

	// Context is the parent context of every span.
	// Default: context.Background().
	Context context.Context

	// IncludeSignalWrites records a zero-length span per signal write.
	// Disabled by default; writes are frequent.
	IncludeSignalWrites bool

	// Filter determines which nodes to trace.
	// Return true to trace the node, false to skip.
	// If nil, all nodes are traced.
	Filter func(node reactive.NodeInfo) bool

	// AttributeExtractor adds custom attributes to node spans.
	AttributeExtractor func(node reactive.NodeInfo) []attribute.KeyValue

	tracer trace.Tracer
}

// Option configures the OpenTelemetry observer.
type Option func(*Config)

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

// WithContext sets the parent context for spans.
func WithContext(ctx context.Context) Option {
	return func(c *Config) {
		c.Context = ctx
	}
}

// WithSignalWrites enables spans for signal writes.
func WithSignalWrites(include bool) Option {
	return func(c *Config) {
		c.IncludeSignalWrites = include
	}
}

// WithNodeFilter sets a filter function for nodes.
func WithNodeFilter(filter func(node reactive.NodeInfo) bool) Option {
	return func(c *Config) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(node reactive.NodeInfo) []attribute.KeyValue) Option {
	return func(c *Config) {
		c.AttributeExtractor = extractor
	}
}

// Observer is a reactive.Observer that turns engine events into spans.
//
// Engine events are reported after the fact, so each span is started with a
// timestamp backdated by the reported duration and ended at report time.
//
// Spans:
//   - reactive.computed: one per compute run
//   - reactive.effect: one per effect run
//   - reactive.flush: one per outermost flush
//   - reactive.scope.dispose: one per disposed scope
//   - reactive.signal.write: one per write, when enabled
type Observer struct {
	config Config
}

var _ reactive.Observer = (*Observer)(nil)

// New creates the observer.
//
// Without WithTracerProvider the global OpenTelemetry provider is used.
// Configure it in main() before building graphs:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func New(opts ...Option) *Observer {
	config := Config{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Context == nil {
		config.Context = context.Background()
	}
	if config.TracerProvider != nil {
		config.tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		config.tracer = otel.Tracer(config.TracerName)
	}
	return &Observer{config: config}
}

// Install creates an observer and adds it to the engine.
func Install(opts ...Option) (o *Observer, remove func()) {
	o = New(opts...)
	return o, reactive.AddObserver(o)
}

// SignalWritten implements reactive.Observer.
func (o *Observer) SignalWritten(node reactive.NodeInfo) {
	if !o.config.IncludeSignalWrites {
		return
	}
	o.record(node, "reactive.signal.write", 0, nil)
}

// ComputedEvaluated implements reactive.Observer.
func (o *Observer) ComputedEvaluated(node reactive.NodeInfo, d time.Duration, err error) {
	o.record(node, "reactive.computed", d, err)
}

// EffectRan implements reactive.Observer.
func (o *Observer) EffectRan(node reactive.NodeInfo, d time.Duration, err error) {
	o.record(node, "reactive.effect", d, err)
}

// FlushCompleted implements reactive.Observer.
func (o *Observer) FlushCompleted(runs int, d time.Duration) {
	end := time.Now()
	_, span := o.config.tracer.Start(o.config.Context, "reactive.flush",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("reactive.flush.runs", runs)),
		trace.WithTimestamp(end.Add(-d)),
	)
	span.SetStatus(codes.Ok, "")
	span.End(trace.WithTimestamp(end))
}

// ScopeDisposed implements reactive.Observer.
func (o *Observer) ScopeDisposed(node reactive.NodeInfo) {
	o.record(node, "reactive.scope.dispose", 0, nil)
}

func (o *Observer) record(node reactive.NodeInfo, name string, d time.Duration, err error) {
	if o.config.Filter != nil && !o.config.Filter(node) {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.Int64("reactive.node.id", int64(node.ID)),
		attribute.String("reactive.node.kind", node.KindName),
	}
	if node.Name != "" {
		attrs = append(attrs, attribute.String("reactive.node.name", node.Name))
	}
	if node.Kind != reactive.KindSignal {
		attrs = append(attrs, attribute.Int("reactive.node.deps", node.Deps))
	}
	if o.config.AttributeExtractor != nil {
		attrs = append(attrs, o.config.AttributeExtractor(node)...)
	}

	end := time.Now()
	_, span := o.config.tracer.Start(o.config.Context, spanName(name, node),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
		trace.WithTimestamp(end.Add(-d)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(end))
}

// spanName appends the node name so traces group runs of the same node.
func spanName(base string, node reactive.NodeInfo) string {
	if node.Name == "" {
		return base
	}
	return fmt.Sprintf("%s %s", base, node.Name)
}
