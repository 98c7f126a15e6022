package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
)

// TokenStore persists the session token between CLI invocations.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileTokenStore keeps the token in a single file readable only by its owner.
type FileTokenStore struct {
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Load returns "" when no token has been saved.
func (f *FileTokenStore) Load() (string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read session file: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func (f *FileTokenStore) Save(token string) error {
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (f *FileTokenStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// Session owns the signed-in principal of a CLI process. All mutation goes
// through its methods.
type Session struct {
	svc   *Service
	store TokenStore

	mu        sync.Mutex
	principal *domain.User
}

func NewSession(svc *Service, store TokenStore) *Session {
	return &Session{svc: svc, store: store}
}

// Principal returns a copy of the signed-in user, or nil.
func (s *Session) Principal() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal == nil {
		return nil
	}
	u := *s.principal
	return &u
}

// Restore loads the persisted token and re-resolves its user. A token that
// is invalid, expired, or points at a user who can no longer sign in is
// discarded and the session stays signed out.
func (s *Session) Restore(ctx context.Context) (*domain.User, error) {
	token, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	u, err := s.svc.ResolveToken(ctx, token)
	if err != nil {
		if isCredentialError(err) {
			s.mu.Lock()
			s.principal = nil
			s.mu.Unlock()
			return nil, s.store.Clear()
		}
		return nil, err
	}

	s.mu.Lock()
	s.principal = u
	s.mu.Unlock()
	return u, nil
}

// Snapshot returns the user recorded in the persisted token without a store
// round trip.
func (s *Session) Snapshot() (*domain.User, error) {
	token, err := s.store.Load()
	if err != nil || token == "" {
		return nil, err
	}
	u, err := s.svc.ParseToken(token)
	if err != nil {
		if isCredentialError(err) {
			return nil, s.store.Clear()
		}
		return nil, err
	}
	return u, nil
}

func (s *Session) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	res, err := s.svc.Login(ctx, LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return s.adopt(res)
}

func (s *Session) SignInDelegated(ctx context.Context, rawIDToken string) (*domain.User, error) {
	res, err := s.svc.LoginDelegated(ctx, DelegatedLoginRequest{IDToken: rawIDToken})
	if err != nil {
		return nil, err
	}
	return s.adopt(res)
}

func (s *Session) ChangePassword(ctx context.Context, current, next string) (*domain.User, error) {
	res, err := s.svc.ChangePassword(ctx, s.Principal(), ChangePasswordRequest{CurrentPassword: current, NewPassword: next})
	if err != nil {
		return nil, err
	}
	return s.adopt(res)
}

func (s *Session) SignOut() error {
	s.mu.Lock()
	s.principal = nil
	s.mu.Unlock()
	return s.store.Clear()
}

func (s *Session) adopt(res *LoginResult) (*domain.User, error) {
	if err := s.store.Save(res.Token); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.principal = res.User
	s.mu.Unlock()
	return s.Principal(), nil
}

func isCredentialError(err error) bool {
	return errors.Is(err, internal.ErrInvalidToken) ||
		errors.Is(err, internal.ErrTokenExpired) ||
		errors.Is(err, internal.ErrAuthenticationFailed)
}
