// Package identity signs principals in and resolves them on later requests.
package identity

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/metrics"
)

const (
	MethodPassword  = "password"
	MethodDelegated = "oidc"
)

// UserStore is the slice of the data adapter identity needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, userID string, patch domain.UserPatch) error
	UpdateUserLastLogin(ctx context.Context, userID string, at time.Time) error
}

type Config struct {
	AllowedDomains []string
	BCryptCost     int
}

type Service struct {
	users      UserStore
	tokens     *TokenIssuer
	verifier   IDTokenVerifier
	allowed    map[string]struct{}
	bcryptCost int
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewService wires the sign-in paths. verifier may be nil when delegated
// sign-in is not configured.
func NewService(users UserStore, tokens *TokenIssuer, verifier IDTokenVerifier, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Service {
	allowed := make(map[string]struct{}, len(cfg.AllowedDomains))
	for _, d := range cfg.AllowedDomains {
		allowed[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return &Service{
		users:      users,
		tokens:     tokens,
		verifier:   verifier,
		allowed:    allowed,
		bcryptCost: cfg.BCryptCost,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// DomainAllowed reports whether email belongs to an allow-listed domain.
func (s *Service) DomainAllowed(email string) bool {
	d := domain.EmailDomain(email)
	if d == "" {
		return false
	}
	_, ok := s.allowed[d]
	return ok
}

// Login signs a user in with email and password. Unknown email, inactive
// user and wrong secret all fail with the same error.
func (s *Service) Login(ctx context.Context, dto LoginRequest) (*LoginResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	email := domain.NormalizeEmail(dto.Email)
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		s.metrics.Login(MethodPassword, "error")
		return nil, err
	}

	switch {
	case u == nil:
		return nil, s.deny(ctx, MethodPassword, email, "unknown email")
	case !u.IsActive():
		return nil, s.deny(ctx, MethodPassword, email, "inactive user")
	case !VerifyPassword(u.PasswordHash, dto.Password):
		return nil, s.deny(ctx, MethodPassword, email, "secret mismatch")
	}

	return s.complete(ctx, MethodPassword, u)
}

// LoginDelegated signs in the holder of a verified identity-provider ID
// token. It never creates users.
func (s *Service) LoginDelegated(ctx context.Context, dto DelegatedLoginRequest) (*LoginResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if s.verifier == nil {
		return nil, internal.NewNotImplementedError("Delegated sign-in is not configured")
	}

	ident, err := s.verifier.VerifyIDToken(ctx, dto.IDToken)
	if err != nil {
		s.logger.WarnContext(ctx, "id token rejected", "error", err)
		s.metrics.Login(MethodDelegated, "failure")
		return nil, internal.ErrAuthenticationFailed
	}

	email := domain.NormalizeEmail(ident.Email)
	if !s.DomainAllowed(email) {
		return nil, s.deny(ctx, MethodDelegated, email, "domain not allowed")
	}
	if !ident.EmailVerified {
		return nil, s.deny(ctx, MethodDelegated, email, "email not verified")
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		s.metrics.Login(MethodDelegated, "error")
		return nil, err
	}
	switch {
	case u == nil:
		return nil, s.deny(ctx, MethodDelegated, email, "unknown email")
	case !u.IsActive():
		return nil, s.deny(ctx, MethodDelegated, email, "inactive user")
	}

	return s.complete(ctx, MethodDelegated, u)
}

func (s *Service) deny(ctx context.Context, method, email, reason string) error {
	s.logger.WarnContext(ctx, "sign-in denied", "method", method, "email", email, "reason", reason)
	s.metrics.Login(method, "failure")
	return internal.ErrAuthenticationFailed
}

func (s *Service) complete(ctx context.Context, method string, u *domain.User) (*LoginResult, error) {
	now := s.now().UTC()
	if err := s.users.UpdateUserLastLogin(ctx, u.UserID, now); err != nil {
		s.logger.WarnContext(ctx, "failed to stamp last login", "user_id", u.UserID, "error", err)
		s.metrics.StoreError("update_user_last_login", err)
	} else {
		u.LastLoginAt = &now
	}

	token, expiresAt, err := s.tokens.Issue(u)
	if err != nil {
		s.metrics.Login(method, "error")
		return nil, internal.NewInternalError("Failed to issue session", err)
	}

	s.logger.InfoContext(ctx, "signed in", "method", method, "user_id", u.UserID, "role", string(u.Role))
	s.metrics.Login(method, "success")
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// ResolveToken parses a session token and loads the current stored user
// behind it, so role and status changes apply without re-login.
func (s *Service) ResolveToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetUserByEmail(ctx, claims.Email)
	if err != nil {
		return nil, err
	}
	if u == nil || u.UserID != claims.Subject || !u.IsActive() {
		return nil, internal.ErrInvalidToken
	}
	return u, nil
}

// ParseToken returns the sign-in snapshot without touching the store.
func (s *Service) ParseToken(token string) (*domain.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	return claims.Snapshot(), nil
}

// ChangePassword replaces the principal's secret with a bcrypt hash and
// clears the temporary-password status. It returns the updated user and a
// fresh token carrying the new snapshot.
func (s *Service) ChangePassword(ctx context.Context, principal *domain.User, dto ChangePasswordRequest) (*LoginResult, error) {
	if principal == nil {
		return nil, internal.ErrAuthenticationRequired
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	current, err := s.users.GetUserByEmail(ctx, principal.Email)
	if err != nil {
		return nil, err
	}
	if current == nil || !current.IsActive() || !VerifyPassword(current.PasswordHash, dto.CurrentPassword) {
		return nil, internal.ErrAuthenticationFailed
	}

	hash, err := HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("Failed to update password", err)
	}
	active := domain.UserStatusActive
	if err := s.users.UpdateUser(ctx, current.UserID, domain.UserPatch{PasswordHash: &hash, Status: &active}); err != nil {
		return nil, err
	}

	updated := *current
	updated.PasswordHash = hash
	updated.Status = active

	token, expiresAt, err := s.tokens.Issue(&updated)
	if err != nil {
		return nil, internal.NewInternalError("Failed to issue session", err)
	}
	s.logger.InfoContext(ctx, "password changed", "user_id", updated.UserID)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: &updated}, nil
}
