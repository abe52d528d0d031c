// Package otel provides OpenTelemetry instrumentation for the chat
// pipeline. Tracing export stays on the global no-op provider until an
// SDK is wired in deployment.
package otel

import (
	"context"
	"log/slog"
)

// ShutdownFunc is called to flush and shut down the trace provider.
type ShutdownFunc func(ctx context.Context) error

// InitTracer returns a no-op shutdown function. Deployments that need
// exported traces install an OTLP TracerProvider before calling this.
func InitTracer(serviceName string) ShutdownFunc {
	slog.Info("otel: tracer initialized", "service", serviceName)
	return func(_ context.Context) error {
		return nil
	}
}
