package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/ripple/pkg/scheduler"
)

// Default tracer name.
const defaultTracerName = "ripple"

// FlushSpanName is the name of the span opened for each flush.
const FlushSpanName = "ripple.flush"

// TracerConfig configures Tracer.
type TracerConfig struct {
	// TracerName is the name of the tracer (default: "ripple").
	TracerName string

	// Provider supplies the tracer. Default: the global provider.
	Provider trace.TracerProvider

	// Context is the parent context of every flush span.
	// Default: context.Background()
	Context context.Context
}

// TracerOption configures Tracer.
type TracerOption func(*TracerConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(p trace.TracerProvider) TracerOption {
	return func(c *TracerConfig) {
		c.Provider = p
	}
}

// WithParentContext sets the parent context of flush spans.
func WithParentContext(ctx context.Context) TracerOption {
	return func(c *TracerConfig) {
		c.Context = ctx
	}
}

// Tracer opens one span per flush. Each unit run is added to it as an event,
// and a failing unit records its error and marks the span as failed.
//
// The tracer uses the global OpenTelemetry provider unless one is given.
// Configure it in main() before creating the runtime:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
type Tracer struct {
	tracer trace.Tracer
	parent context.Context
	span   trace.Span
}

var _ scheduler.Observer = (*Tracer)(nil)

// NewTracer creates a Tracer.
func NewTracer(opts ...TracerOption) *Tracer {
	config := TracerConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Provider == nil {
		config.Provider = otel.GetTracerProvider()
	}
	if config.Context == nil {
		config.Context = context.Background()
	}
	return &Tracer{
		tracer: config.Provider.Tracer(config.TracerName),
		parent: config.Context,
	}
}

// FlushStarted opens the flush span.
func (t *Tracer) FlushStarted(pending int) {
	if t.span != nil {
		t.span.End()
	}
	_, t.span = t.tracer.Start(t.parent, FlushSpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("ripple.pending", pending)),
		trace.WithTimestamp(time.Now()),
	)
}

// JobFinished adds a "unit" event to the open span.
func (t *Tracer) JobFinished(job scheduler.Job, d time.Duration, err error) {
	if t.span == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.Int64("ripple.unit.id", int64(job.ID())),
		attribute.Int64("ripple.unit.duration_us", d.Microseconds()),
	}
	if n, ok := job.(scheduler.Named); ok {
		attrs = append(attrs, attribute.String("ripple.unit.name", n.Name()))
	}
	t.span.AddEvent("unit", trace.WithAttributes(attrs...))
	if err != nil {
		t.span.RecordError(err, trace.WithAttributes(attrs...))
		t.span.SetStatus(codes.Error, err.Error())
	}
}

// FlushFinished closes the flush span.
func (t *Tracer) FlushFinished(ran int, d time.Duration) {
	if t.span == nil {
		return
	}
	t.span.SetAttributes(
		attribute.Int("ripple.ran", ran),
		attribute.Int64("ripple.duration_us", d.Microseconds()),
	)
	t.span.End()
	t.span = nil
}
