package api

import (
	"log/slog"
	"net/http"

	"github.com/dverhagen/doorman/internal/httpinfo"
)

// Audit event names.
const (
	AuditLoginSuccess   = "auth.login.success"
	AuditLoginFailure   = "auth.login.failure"
	AuditLogout         = "auth.logout"
	AuditRememberUsed   = "auth.remember.resolved"
	AuditSessionRestore = "auth.session.restored"
)

type auditLogger struct {
	logger *slog.Logger
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{logger: logger}
}

func (l *auditLogger) logEvent(event string, r *http.Request, accountID string, attrs ...any) {
	base := []any{
		slog.String("event", event),
		slog.String("client_ip", httpinfo.ClientIP(r)),
	}
	if accountID != "" {
		base = append(base, slog.String("account_id", accountID))
	}
	l.logger.Info(event, append(base, attrs...)...)
}

func (l *auditLogger) logFailure(event string, r *http.Request, reason string, attrs ...any) {
	base := []any{
		slog.String("event", event),
		slog.String("client_ip", httpinfo.ClientIP(r)),
		slog.String("reason", reason),
	}
	l.logger.Warn(event, append(base, attrs...)...)
}
