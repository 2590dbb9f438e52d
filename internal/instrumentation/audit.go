package instrumentation

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// AuditEvent captures a sign-in, sign-out or book change for audit logging.
//
// # Privacy Considerations
//
// UserEmail contains PII. Unless the logger is configured with IncludePII,
// only the email domain is written.
type AuditEvent struct {
	// Action is one of the Operation* constants (login, logout, create, update, delete).
	Action string

	// User identity (from the identity provider)
	UserID    string
	UserEmail string

	// Target book, when the action touches one
	BookID    int64
	BookTitle string

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// NewAuditEvent creates an AuditEvent with timing started.
// Call Complete() when the action finishes.
func NewAuditEvent(action string) *AuditEvent {
	return &AuditEvent{
		Action:    action,
		StartTime: time.Now(),
	}
}

// WithUser sets the acting user.
func (e *AuditEvent) WithUser(id, email string) *AuditEvent {
	e.UserID = id
	e.UserEmail = email
	return e
}

// WithBook sets the book the action applies to.
func (e *AuditEvent) WithBook(id int64, title string) *AuditEvent {
	e.BookID = id
	e.BookTitle = title
	return e
}

// WithSpanContext extracts trace context from the current span.
func (e *AuditEvent) WithSpanContext(ctx context.Context) *AuditEvent {
	e.TraceID = GetTraceID(ctx)
	e.SpanID = GetSpanID(ctx)
	return e
}

// Complete marks the event as finished and calculates duration.
func (e *AuditEvent) Complete(err error) *AuditEvent {
	e.Duration = time.Since(e.StartTime)
	e.Success = err == nil
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// UserDomain returns the domain portion of the user's email.
func (e *AuditEvent) UserDomain() string {
	return ExtractUserDomain(e.UserEmail)
}

// Status returns "success" or "error" based on the Success field.
func (e *AuditEvent) Status() string {
	if e.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for structured logging. When includePII is
// false the email is reduced to its domain.
func (e *AuditEvent) LogAttrs(includePII bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("action", e.Action),
		slog.Duration("duration", e.Duration),
		slog.Bool("success", e.Success),
	}

	if includePII {
		if e.UserEmail != "" {
			attrs = append(attrs, slog.String("user", e.UserEmail))
		}
		if e.UserID != "" {
			attrs = append(attrs, slog.String("user_id", e.UserID))
		}
	} else if e.UserEmail != "" {
		attrs = append(attrs, slog.String("user_domain", e.UserDomain()))
	}

	if e.BookID != 0 {
		attrs = append(attrs, slog.String("book_id", strconv.FormatInt(e.BookID, 10)))
	}
	if e.BookTitle != "" {
		attrs = append(attrs, slog.String("book_title", e.BookTitle))
	}
	if e.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", e.TraceID))
	}
	if e.SpanID != "" && includePII {
		attrs = append(attrs, slog.String("span_id", e.SpanID))
	}
	if e.Error != "" {
		attrs = append(attrs, slog.String("error", e.Error))
	}

	return attrs
}

// AuditLogger provides structured audit logging for sign-ins and book changes.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With("component", "audit"),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogEvent writes e at info level when it succeeded and warn level otherwise.
// A nil receiver is a no-op.
func (al *AuditLogger) LogEvent(e *AuditEvent) {
	if al == nil || !al.enabled || e == nil {
		return
	}

	attrs := e.LogAttrs(al.includePII)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if e.Success {
		al.logger.Info("audit_"+e.Action, args...)
	} else {
		al.logger.Warn("audit_"+e.Action+"_failed", args...)
	}
}
