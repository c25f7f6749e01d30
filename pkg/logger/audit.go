package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditLogger emits structured security events for authentication and
// two-factor enrollment, separate from request logging.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogAuthAttempt logs a login attempt. accountID may be empty when the
// identifier did not resolve; the reason never names which check failed
// beyond what the caller is told.
func (al *AuditLogger) LogAuthAttempt(eventType, accountID string, success bool, failureReason string) {
	al.emit("auth", eventType, accountID, success, failureReason)
}

// LogEnrollment logs a two-factor enrollment event (setup or confirm).
func (al *AuditLogger) LogEnrollment(eventType, accountID string, success bool, failureReason string) {
	al.emit("enrollment", eventType, accountID, success, failureReason)
}

func (al *AuditLogger) emit(auditType, eventType, accountID string, success bool, failureReason string) {
	attrs := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", eventType),
		slog.Bool("success", success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if accountID != "" {
		attrs = append(attrs, slog.String("account_id", accountID))
	}
	if failureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", failureReason))
	}

	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}
