package middleware

import (
	"context"
	"net/http"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/transport"
	"github.com/frahmantamala/ops-portal/pkg/logger"
)

// PrincipalResolver turns a bearer token into the current stored user.
type PrincipalResolver interface {
	ResolveToken(ctx context.Context, token string) (*domain.User, error)
}

// Authenticate rejects requests without a valid bearer token and attaches
// the resolved principal to the request context and its logger.
func Authenticate(resolver PrincipalResolver, base *transport.BaseHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := base.ExtractTokenFromHeader(r)
			if token == "" {
				base.HandleServiceError(w, r, internal.ErrAuthenticationRequired)
				return
			}

			principal, err := resolver.ResolveToken(r.Context(), token)
			if err != nil {
				base.HandleServiceError(w, r, err)
				return
			}

			ctx := internal.ContextWithPrincipal(r.Context(), principal)
			ctx = logger.With(ctx, "user_id", principal.UserID, "role", string(principal.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
