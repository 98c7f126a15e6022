package middleware

import (
	"net/http"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/rbac"
	"github.com/frahmantamala/ops-portal/internal/transport"
)

// RequireAction lets the request through only when the principal attached by
// Authenticate may perform action.
func RequireAction(action rbac.Action, base *transport.BaseHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := internal.PrincipalFromContext(r.Context())
			if err := rbac.Authorize(principal, action); err != nil {
				if principal != nil {
					base.Logger.WarnContext(r.Context(), "access denied",
						"user_id", principal.UserID,
						"role", string(principal.Role),
						"action", string(action),
						"path", r.URL.Path)
				}
				base.HandleServiceError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
