package shared

import (
	"context"
	"log/slog"
	"net/http"

	"staffeval/internal/domain/auth"
	"staffeval/internal/platform/requestctx"
)

// Auditor records an audit event for a mutation.
type Auditor interface {
	Record(ctx context.Context, tenantID, actorID, action, entityType, entityID, requestID, ip string, before, after any) error
}

// Notifier raises an in-app notification for one user.
type Notifier interface {
	Create(ctx context.Context, tenantID, userID, ntype, title, body string) error
}

// StaffResolver maps a login user to the staff record linked to it.
type StaffResolver interface {
	IDByUserID(ctx context.Context, tenantID, userID string) (string, error)
}

// RecordAudit writes an audit event for the caller. Failures are logged and
// never fail the request.
func RecordAudit(r *http.Request, auditor Auditor, user auth.UserContext, action, entityType, entityID string, before, after any) {
	if auditor == nil {
		return
	}
	ctx := r.Context()
	if err := auditor.Record(ctx, user.TenantID, user.UserID, action, entityType, entityID, requestctx.GetRequestID(ctx), ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "entityId", entityID, "err", err)
	}
}

// Notify sends a notification when both the notifier and the recipient are
// known. Failures are logged.
func Notify(ctx context.Context, notifier Notifier, tenantID, userID, ntype, title, body string) {
	if notifier == nil || userID == "" {
		return
	}
	if err := notifier.Create(ctx, tenantID, userID, ntype, title, body); err != nil {
		slog.Warn("notification failed", "type", ntype, "userId", userID, "err", err)
	}
}
