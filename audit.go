package accounts

import (
	"context"
	"time"
)

// LogLevel classifies an audit entry.
type LogLevel string

const (
	LogLevelInformation LogLevel = "information"
	LogLevelWarning     LogLevel = "warning"
	LogLevelError       LogLevel = "error"
)

// LogFunction names the operation family an audit entry belongs to.
type LogFunction string

const (
	LogFunctionCreate   LogFunction = "create"
	LogFunctionRead     LogFunction = "read"
	LogFunctionUpdate   LogFunction = "update"
	LogFunctionDelete   LogFunction = "delete"
	LogFunctionSecurity LogFunction = "security"
)

// AuditEntry is one record of a lifecycle outcome. Entries are emitted on
// every branch of every Manager operation, success or failure.
type AuditEntry struct {
	SiteID     int
	Level      LogLevel
	Function   LogFunction
	Template   string
	Args       []any
	OccurredAt time.Time
}

// AuditLogger consumes audit entries. Sinks run best-effort: a failing
// auditor is reported to the package logger but never fails the operation
// being audited.
type AuditLogger interface {
	Log(ctx context.Context, entry AuditEntry) error
}

// AuditLoggerFunc adapts a function to the AuditLogger interface.
type AuditLoggerFunc func(ctx context.Context, entry AuditEntry) error

func (f AuditLoggerFunc) Log(ctx context.Context, entry AuditEntry) error {
	if f == nil {
		return nil
	}
	return f(ctx, entry)
}

type noopAuditLogger struct{}

func (noopAuditLogger) Log(context.Context, AuditEntry) error { return nil }

func normalizeAuditLogger(a AuditLogger) AuditLogger {
	if a == nil {
		return noopAuditLogger{}
	}
	return a
}

// LoggerAudit forwards audit entries to a Logger, mapping entry level to
// log level. It is the default auditor when none is configured explicitly.
type LoggerAudit struct {
	Logger Logger
}

func (l LoggerAudit) Log(_ context.Context, entry AuditEntry) error {
	logger := l.Logger
	if logger == nil {
		logger = defLogger{}
	}

	args := append([]any{}, entry.Args...)
	args = append(args, entry.SiteID, string(entry.Function))
	format := entry.Template + " site=%d function=%s"

	switch entry.Level {
	case LogLevelError:
		logger.Error(format, args...)
	case LogLevelWarning:
		logger.Info(format, args...)
	default:
		logger.Info(format, args...)
	}

	return nil
}
