// Package audit writes the best-effort audit trail of portal mutations.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/metrics"
)

// Entity types recorded in the trail.
const (
	EntityToolRequest    = "tool_request"
	EntityLeaveRequest   = "leave_request"
	EntityTool           = "tool"
	EntityUser           = "user"
	EntityToolPayment    = "tool_payment"
	EntityExpense        = "expense"
	EntitySalaryTransfer = "salary_transfer"
	EntitySystem         = "system"
)

type Writer interface {
	WriteAuditLog(ctx context.Context, e domain.AuditEntry) error
}

type Recorder struct {
	w       Writer
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewRecorder(w Writer, m *metrics.Metrics, logger *slog.Logger) *Recorder {
	return &Recorder{w: w, metrics: m, logger: logger, now: time.Now}
}

// Record writes one entry. Failures are logged and swallowed; the caller's
// operation has already committed.
func (r *Recorder) Record(ctx context.Context, actor *domain.User, action, entityType, entityID string, details any) {
	if r == nil || r.w == nil {
		return
	}

	entry := domain.AuditEntry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Timestamp:  r.now().UTC(),
	}
	if actor != nil {
		entry.PerformedBy = actor.UserID
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			r.logger.WarnContext(ctx, "audit details not encodable", "action", action, "error", err)
		} else {
			entry.Details = raw
		}
	}

	if err := r.w.WriteAuditLog(ctx, entry); err != nil {
		r.logger.WarnContext(ctx, "audit write failed",
			"action", action,
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err)
		r.metrics.StoreError("write_audit_log", err)
	}
}
