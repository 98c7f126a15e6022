package workflow

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListToolRequests(ctx context.Context, principal *domain.User, filter Filter) (*ToolRequestList, error)
	SubmitToolRequest(ctx context.Context, principal *domain.User, dto SubmitToolRequest) (*ToolRequestView, error)
	TransitionToolRequest(ctx context.Context, principal *domain.User, requestID string, in TransitionInput) (*ToolRequestOutcome, error)
	ListLeaveRequests(ctx context.Context, principal *domain.User, filter Filter) (*LeaveRequestList, error)
	SubmitLeaveRequest(ctx context.Context, principal *domain.User, dto SubmitLeaveRequest) (*LeaveRequestView, error)
	TransitionLeave(ctx context.Context, principal *domain.User, leaveID string, in TransitionInput) (*LeaveRequestOutcome, error)
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

func (h *Handler) ListToolRequests(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())
	filter, err := ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	list, err := h.Service.ListToolRequests(r.Context(), p, filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) SubmitToolRequest(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	var dto SubmitToolRequest
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	view, err := h.Service.SubmitToolRequest(r.Context(), p, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) TransitionToolRequest(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	in, ok := h.transitionInput(w, r)
	if !ok {
		return
	}

	outcome, err := h.Service.TransitionToolRequest(r.Context(), p, chi.URLParam(r, "id"), in)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, outcome)
}

func (h *Handler) ListLeaveRequests(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())
	filter, err := ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	list, err := h.Service.ListLeaveRequests(r.Context(), p, filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) SubmitLeaveRequest(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	var dto SubmitLeaveRequest
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	view, err := h.Service.SubmitLeaveRequest(r.Context(), p, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) TransitionLeave(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	in, ok := h.transitionInput(w, r)
	if !ok {
		return
	}

	outcome, err := h.Service.TransitionLeave(r.Context(), p, chi.URLParam(r, "id"), in)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, outcome)
}

func (h *Handler) transitionInput(w http.ResponseWriter, r *http.Request) (TransitionInput, bool) {
	var dto TransitionRequest
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return TransitionInput{}, false
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, r, err)
		return TransitionInput{}, false
	}
	in, err := dto.Input()
	if err != nil {
		h.HandleServiceError(w, r, err)
		return TransitionInput{}, false
	}
	return in, true
}
