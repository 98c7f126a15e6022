package finance

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/transport"
)

type ServiceAPI interface {
	Summary(ctx context.Context, principal *domain.User) (*Summary, error)
	ExportCSV(ctx context.Context, principal *domain.User, w io.Writer) error
	ReportName() string
	LogToolPayment(ctx context.Context, principal *domain.User, dto LogToolPaymentRequest) (*domain.ToolPayment, error)
	LogSalaryTransfer(ctx context.Context, principal *domain.User, dto LogSalaryTransferRequest) (*domain.SalaryTransfer, error)
	LogExpense(ctx context.Context, principal *domain.User, dto LogExpenseRequest) (*domain.Expense, error)
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

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	sum, err := h.Service.Summary(r.Context(), p)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, sum)
}

// ExportLedger buffers the CSV so a failed read still produces a JSON error.
func (h *Handler) ExportLedger(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	var buf bytes.Buffer
	if err := h.Service.ExportCSV(r.Context(), p, &buf); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+h.Service.ReportName()+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Logger.Error("failed to write ledger export", "error", err)
	}
}

func (h *Handler) LogToolPayment(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	var dto LogToolPaymentRequest
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	created, err := h.Service.LogToolPayment(r.Context(), p, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) LogSalaryTransfer(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	var dto LogSalaryTransferRequest
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	created, err := h.Service.LogSalaryTransfer(r.Context(), p, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) LogExpense(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	var dto LogExpenseRequest
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	created, err := h.Service.LogExpense(r.Context(), p, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, created)
}
