package user

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/transport"
	"github.com/frahmantamala/ops-portal/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Directory(ctx context.Context, principal *domain.User) (*Directory, error)
	Accounts(ctx context.Context, principal *domain.User) ([]Account, error)
	Invite(ctx context.Context, principal *domain.User, dto InviteRequest) (*Invitation, error)
	UpdateRole(ctx context.Context, principal *domain.User, userID string, dto UpdateRoleRequest) (*Account, error)
	ToggleStatus(ctx context.Context, principal *domain.User, userID string) (*Account, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// GetDirectory handles GET /people
func (h *Handler) GetDirectory(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	dir, err := h.Service.Directory(r.Context(), p)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, dir)
}

// GetAccounts handles GET /people/accounts
func (h *Handler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	accounts, err := h.Service.Accounts(r.Context(), p)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]any{"users": accounts})
}

// Invite handles POST /people/invite
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	var dto InviteRequest
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	inv, err := h.Service.Invite(r.Context(), p, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	h.WriteJSON(w, http.StatusCreated, inv)
}

// UpdateRole handles PATCH /people/{userId}/role
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	var dto UpdateRoleRequest
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	acc, err := h.Service.UpdateRole(r.Context(), p, chi.URLParam(r, "userId"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, acc)
}

// ToggleStatus handles POST /people/{userId}/toggle-status
func (h *Handler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	acc, err := h.Service.ToggleStatus(r.Context(), p, chi.URLParam(r, "userId"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, acc)
}
