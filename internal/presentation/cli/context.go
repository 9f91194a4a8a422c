package cli

import (
	"context"

	"github.com/Zhima-Mochi/inventory-tracker/internal/observability"
	"github.com/Zhima-Mochi/inventory-tracker/internal/observability/logctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// WithRunContext injects a logger scoped to one command invocation, extending
// the logger already on ctx when there is one.
// Dynamic fields only: run_id (generated if empty), trace_id/span_id (if valid)
// and the low-cardinality command name.
func WithRunContext(ctx context.Context, base observability.Logger, command, runID string) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}
	if runID == "" {
		runID = uuid.NewString()
	}

	fields := make([]observability.Field, 0, 4)
	fields = append(fields, observability.F("run_id", runID))
	if command != "" {
		fields = append(fields, observability.F("command", command))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}

	return logctx.Enrich(ctx, base, fields...)
}
