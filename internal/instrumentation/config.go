package instrumentation

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/samber/lo"
)

// Config selects the telemetry exporters. It is read from the environment by
// LoadConfig.
type Config struct {
	ServiceName    string `env:"OTEL_SERVICE_NAME" envDefault:"bookshelf"`
	ServiceVersion string `env:"-"`

	// ServiceInstanceID defaults to the hostname.
	ServiceInstanceID string `env:"OTEL_SERVICE_INSTANCE_ID"`

	// Enabled turns metrics and tracing on. The audit log is independent of it.
	Enabled bool `env:"INSTRUMENTATION_ENABLED" envDefault:"true"`

	// MetricsExporter is one of prometheus, otlp or stdout.
	MetricsExporter string `env:"METRICS_EXPORTER" envDefault:"prometheus"`

	// TracingExporter is one of otlp, stdout or none.
	TracingExporter string `env:"TRACING_EXPORTER" envDefault:"none"`

	// OTLPEndpoint is host:port without a scheme, e.g. localhost:4318.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// OTLPInsecure disables TLS towards the collector. Local use only.
	OTLPInsecure bool `env:"OTEL_EXPORTER_OTLP_INSECURE"`

	TraceSamplingRate float64 `env:"OTEL_TRACES_SAMPLER_ARG" envDefault:"0.1"`

	// PrometheusEndpoint is the scrape path of the metrics server.
	PrometheusEndpoint string `env:"PROMETHEUS_ENDPOINT" envDefault:"/metrics"`

	// DetailedLabels adds the acting user's email domain to catalog
	// mutation metrics.
	DetailedLabels bool `env:"METRICS_DETAILED_LABELS"`

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	Enabled bool `env:"AUDIT_LOGGING_ENABLED" envDefault:"true"`

	// IncludePII logs full email addresses instead of hashes.
	IncludePII bool `env:"AUDIT_LOGGING_INCLUDE_PII"`
}

// LoadConfig parses the instrumentation settings from the environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse instrumentation env: %w", err)
	}
	cfg.ServiceVersion = "unknown"
	return cfg, nil
}

var (
	metricsExporters = []string{ExporterPrometheus, ExporterOTLP, ExporterStdout}
	tracingExporters = []string{ExporterOTLP, ExporterStdout, ExporterNone}
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}
	if c.MetricsExporter != "" && !lo.Contains(metricsExporters, c.MetricsExporter) {
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}
	if c.TracingExporter != "" && !lo.Contains(tracingExporters, c.TracingExporter) {
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}
	if c.OTLPEndpoint == "" && (c.TracingExporter == ExporterOTLP || c.MetricsExporter == ExporterOTLP) {
		return fmt.Errorf("OTLP endpoint is required when an OTLP exporter is selected")
	}
	return nil
}

// Label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	// Catalog mutation results
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"

	OAuthResultSuccess    = "success"
	OAuthResultFailure    = "failure"
	OAuthResultUnverified = "unverified"

	OAuthStepDiscover = "discover"
	OAuthStepExchange = "exchange"
	OAuthStepUserInfo = "userinfo"

	TableBooks = "books"
	TableUsers = "users"
)

// Exporter types.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// DefaultMetricInterval is the push interval of the OTLP and stdout readers.
const DefaultMetricInterval = 10 * time.Second
