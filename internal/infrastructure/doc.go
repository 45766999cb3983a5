// Package infrastructure carries the ambient runtime of every binary:
// the JSON slog logger with trace ids, OpenTelemetry providers and the
// Prometheus metric set.
package infrastructure
