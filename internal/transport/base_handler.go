package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/store"
	"github.com/frahmantamala/ops-portal/pkg/logger"
	"github.com/go-chi/chi/middleware"
)

const maxBodyBytes = 1 << 20

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an AppError as the standard error envelope.
func (h *BaseHandler) WriteError(w http.ResponseWriter, appErr *internal.AppError) {
	status, body := appErr.ToHTTPResponse()
	h.WriteJSON(w, status, body)
}

// DecodeJSON reads a bounded JSON body into dst and rejects unknown fields.
func (h *BaseHandler) DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) *internal.AppError {
	if r.Body == nil {
		return internal.NewValidationError("Request body is required", internal.ErrCodeValidationFailed)
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return internal.NewValidationError("Request body is required", internal.ErrCodeValidationFailed)
		}
		return internal.NewValidationError(fmt.Sprintf("Invalid request body: %v", err), internal.ErrCodeValidationFailed)
	}
	return nil
}

// HandleServiceError maps any service error onto the HTTP error envelope.
// Errors that are not recognised are logged and hidden behind a generic 500.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := ToAppError(err)
	lg := h.requestLogger(r)

	switch {
	case appErr.StatusCode >= 500:
		lg.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "code", appErr.Code, "error", err)
	case appErr.StatusCode == http.StatusUnauthorized || appErr.StatusCode == http.StatusForbidden:
		lg.WarnContext(r.Context(), "request denied", "path", r.URL.Path, "code", appErr.Code)
	default:
		lg.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "code", appErr.Code, "detail", appErr.GetDetailedMessage(), "error", err)
	}

	h.WriteError(w, appErr)
}

// requestLogger prefers the logger scoped by the request id and auth
// middleware, which already carries request_id and user_id.
func (h *BaseHandler) requestLogger(r *http.Request) *slog.Logger {
	if lg, ok := logger.Scoped(r.Context()); ok {
		return lg
	}
	return h.Logger.With("request_id", middleware.GetReqID(r.Context()))
}

// ToAppError converts store errors and plain errors into AppErrors.
func ToAppError(err error) *internal.AppError {
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr
	}
	switch {
	case errors.Is(err, store.ErrNotImplemented):
		return internal.ErrNotImplemented.Clone().WithCause(err)
	case errors.Is(err, store.ErrUnavailable):
		return internal.ErrStoreUnavailable.Clone().WithCause(err)
	case errors.Is(err, store.ErrRejected):
		return internal.ErrStoreRejected.Clone().WithCause(err)
	case errors.Is(err, store.ErrNotFound):
		return internal.NewNotFoundError("Record not found", internal.ErrCodeRequestNotFound).WithCause(err)
	}
	return internal.NewInternalError("Internal server error", err)
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}
