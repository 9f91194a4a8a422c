package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/inventory-tracker/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "inventory-tracker"

type tracer struct{ t trace.Tracer }

// New returns a Tracer backed by the global OTel TracerProvider. Until a
// provider is installed with otel.SetTracerProvider the spans are no-ops.
func New(name string) observability.Tracer {
	if name == "" {
		name = defaultTracerName
	}
	return &tracer{t: otel.Tracer(name)}
}

// FromProvider is New for an explicit provider, used by tests.
func FromProvider(tp trace.TracerProvider, name string) observability.Tracer {
	if name == "" {
		name = defaultTracerName
	}
	return &tracer{t: tp.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}
