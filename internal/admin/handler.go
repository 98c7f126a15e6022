package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/core/events"
	"github.com/frahmantamala/ops-portal/internal/transport"
)

type ServiceAPI interface {
	AuditLogs(ctx context.Context, principal *domain.User, limit int) (*AuditLogPage, error)
	ResetDemoData(ctx context.Context, principal *domain.User) error
	SendTestNotification(ctx context.Context, principal *domain.User) (*events.PortalEvent, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Service:     service,
	}
}

func (h *Handler) GetAuditLogs(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.HandleServiceError(w, r, internal.NewValidationFieldError("limit", "limit must be a positive integer", internal.ErrCodeValidationFailed))
			return
		}
		limit = n
	}

	page, err := h.Service.AuditLogs(r.Context(), p, limit)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) ResetDemoData(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	if err := h.Service.ResetDemoData(r.Context(), p); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	evt, err := h.Service.SendTestNotification(r.Context(), p)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":     "queued",
		"event_id":   evt.ID,
		"event_type": evt.Type,
	})
}
