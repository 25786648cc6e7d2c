// Package tracing emits one span per user-callback invocation through
// whatever global OpenTelemetry TracerProvider the embedding process has
// installed. It never configures an exporter, an SDK TracerProvider, or a
// collector connection — that wiring belongs to the embedder, not the
// library. If the host process never calls otel.SetTracerProvider,
// otel.Tracer returns a no-op tracer and StartCallback is a cheap no-op.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/wyndhq/wynd")

// StartCallback opens a span named "wynd.callback.<kind>" for the duration
// of a single user-callback invocation and returns the function to end it.
func StartCallback(ctx context.Context, kind string) (context.Context, func()) {
	ctx, span := tracer.Start(ctx, "wynd.callback."+kind, trace.WithAttributes())
	return ctx, func() { span.End() }
}
