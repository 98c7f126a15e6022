// Package admin holds the maintenance operations of the admin console.
package admin

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/audit"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/core/events"
	"github.com/frahmantamala/ops-portal/internal/rbac"
	"github.com/frahmantamala/ops-portal/internal/store"
)

const (
	defaultAuditLimit = 200
	maxAuditLimit     = 1000

	testNotificationID = "TEST_ID"
)

type Store interface {
	Variant() store.Variant
	ListAuditLogs(ctx context.Context) ([]domain.AuditLog, error)
	ResetDemoData(ctx context.Context) error
}

type Auditor interface {
	Record(ctx context.Context, actor *domain.User, action, entityType, entityID string, details any)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event)
}

type AuditLogPage struct {
	Logs  []domain.AuditLog `json:"logs"`
	Total int               `json:"total"`
}

type Service struct {
	store  Store
	audit  Auditor
	bus    Publisher
	logger *slog.Logger
	now    func() time.Time
}

func NewService(s Store, auditor Auditor, bus Publisher, logger *slog.Logger) *Service {
	return &Service{store: s, audit: auditor, bus: bus, logger: logger, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// AuditLogs returns the newest entries first. A limit of zero or less uses
// the default page size.
func (s *Service) AuditLogs(ctx context.Context, principal *domain.User, limit int) (*AuditLogPage, error) {
	if err := rbac.Authorize(principal, rbac.ActionViewAuditLog); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = defaultAuditLimit
	case limit > maxAuditLimit:
		limit = maxAuditLimit
	}

	logs, err := s.store.ListAuditLogs(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list audit logs", "error", err)
		return nil, err
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Timestamp.After(logs[j].Timestamp) })

	page := &AuditLogPage{Total: len(logs), Logs: logs}
	if len(logs) > limit {
		page.Logs = logs[:limit]
	}
	if page.Logs == nil {
		page.Logs = []domain.AuditLog{}
	}
	return page, nil
}

// ResetDemoData reloads the demo fixtures. Only the SQL store supports it;
// other stores fail before any I/O.
func (s *Service) ResetDemoData(ctx context.Context, principal *domain.User) error {
	if err := rbac.Authorize(principal, rbac.ActionResetDemoData); err != nil {
		return err
	}
	if v := s.store.Variant(); v != store.VariantSQL {
		return internal.ErrNotImplemented.Clone().WithDetails(map[string]string{"store": string(v)})
	}

	if err := s.store.ResetDemoData(ctx); err != nil {
		s.logger.ErrorContext(ctx, "failed to reset demo data", "error", err)
		return err
	}

	s.logger.WarnContext(ctx, "demo data reset", "user_id", principal.UserID)
	s.audit.Record(ctx, principal, "system.reset_demo", audit.EntitySystem, "demo", nil)
	return nil
}

// SendTestNotification pushes a FINANCE_EVENT through the normal delivery
// path so webhook wiring can be checked end to end.
func (s *Service) SendTestNotification(ctx context.Context, principal *domain.User) (*events.PortalEvent, error) {
	if err := rbac.Authorize(principal, rbac.ActionSendTestNotification); err != nil {
		return nil, err
	}

	p := principal.Person()
	evt := events.NewPortalEvent(events.EventTypeFinanceEvent, events.Notification{
		RequestType: "System",
		Event:       "test",
		ID:          testNotificationID,
		Requester:   events.Party{UserID: p.UserID, Name: p.Name, Email: p.Email},
		Fields:      map[string]any{"message": "Test notification from Ops Portal"},
		Status:      "active",
		Timestamp:   s.now().UTC(),
		DeepLink:    "/admin",
	})
	s.bus.Publish(ctx, evt)

	s.logger.InfoContext(ctx, "test notification queued", "event_id", evt.ID, "user_id", principal.UserID)
	s.audit.Record(ctx, principal, "system.test_notification", audit.EntitySystem, evt.ID, nil)
	return evt, nil
}
