// Package instrumentation provides OpenTelemetry instrumentation for the
// bookshelf server.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, route and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - active_sessions: Gauge of signed-in browser sessions
//
// Storage Metrics:
//   - storage_operations_total: Counter of storage statements by table, operation, status
//   - storage_operation_duration_seconds: Histogram of storage statement durations
//
// Authentication and catalog Metrics:
//   - oauth_auth_total: Counter of sign-in attempts by result
//   - catalog_mutations_total: Counter of book create/update/delete attempts by action and result
//
// # Tracing
//
// Spans are created for storage statements (storage.<table>.<operation>) and
// for each call to the identity provider (oauth.<step>).
//
// # Configuration
//
// LoadConfig reads the settings from the environment:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: bookshelf)
//   - AUDIT_LOGGING_ENABLED / AUDIT_LOGGING_INCLUDE_PII: audit log switches
//
// # Example Usage
//
//	cfg, err := instrumentation.LoadConfig()
//	if err != nil {
//		return err
//	}
//	provider, err := instrumentation.NewProvider(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordHTTPRequest(ctx, "GET", "/{id}", 200, time.Since(start))
//	provider.Audit().LogEvent(instrumentation.NewAuditEvent(instrumentation.OperationLogin).WithUser(id, email))
package instrumentation
