package internal

import (
	"context"
	"time"

	"github.com/frahmantamala/ops-portal/internal/core/domain"
)

type ctxKey string

const ContextPrincipalKey ctxKey = "principal"

// PrincipalFromContext returns the signed-in user attached by the auth middleware.
func PrincipalFromContext(ctx context.Context) (*domain.User, bool) {
	if ctx == nil {
		return nil, false
	}
	u, ok := ctx.Value(ContextPrincipalKey).(*domain.User)
	if !ok || u == nil {
		return nil, false
	}
	return u, true
}

func ContextWithPrincipal(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, ContextPrincipalKey, u)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
