package identity_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/identity"
	"github.com/frahmantamala/ops-portal/internal/store"
	"github.com/frahmantamala/ops-portal/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestIdentity(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Identity Suite")
}

const secret = "0123456789abcdef0123456789abcdef"

type fakeUsers struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	calls     int
	lookupErr error
	stampErr  error
}

func newFakeUsers(users ...domain.User) *fakeUsers {
	f := &fakeUsers{users: map[string]*domain.User{}}
	for i := range users {
		u := users[i]
		f.users[domain.NormalizeEmail(u.Email)] = &u
	}
	return f
}

func (f *fakeUsers) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	u, ok := f.users[domain.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) UpdateUser(ctx context.Context, userID string, patch domain.UserPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, u := range f.users {
		if u.UserID != userID {
			continue
		}
		if patch.PasswordHash != nil {
			u.PasswordHash = *patch.PasswordHash
		}
		if patch.Status != nil {
			u.Status = *patch.Status
		}
		if patch.Role != nil {
			u.Role = *patch.Role
		}
		return nil
	}
	return store.NotFound("update_user", "users", userID)
}

func (f *fakeUsers) UpdateUserLastLogin(ctx context.Context, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.stampErr != nil {
		return f.stampErr
	}
	for _, u := range f.users {
		if u.UserID == userID {
			t := at
			u.LastLoginAt = &t
		}
	}
	return nil
}

func (f *fakeUsers) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeUsers) get(email string) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[email]
}

type fakeVerifier struct {
	ident *domain.Person
	err   error
}

func (v *fakeVerifier) VerifyIDToken(ctx context.Context, raw string) (*identity.DelegatedIdentity, error) {
	if v.err != nil {
		return nil, v.err
	}
	return &identity.DelegatedIdentity{Subject: "sub", Email: v.ident.Email, EmailVerified: true, Name: v.ident.Name}, nil
}

func hash(p string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.MinCost)
	Expect(err).NotTo(HaveOccurred())
	return string(h)
}

var _ = Describe("Service", func() {
	var (
		users    *fakeUsers
		verifier *fakeVerifier
		svc      *identity.Service
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		users = newFakeUsers(
			domain.User{UserID: "u-admin", Name: "Ayu", Email: "admin@creoo.co", PasswordHash: hash("password"), Role: domain.RoleAdmin, Status: domain.UserStatusActive},
			domain.User{UserID: "u-legacy", Name: "Lee", Email: "legacy@creoo.co", PasswordHash: "plain-secret", Role: domain.RoleEmployee, Status: domain.UserStatusActive},
			domain.User{UserID: "u-gone", Name: "Gone", Email: "gone@creoo.co", PasswordHash: hash("password"), Role: domain.RoleEmployee, Status: domain.UserStatusInactive},
			domain.User{UserID: "u-temp", Name: "Tia", Email: "temp@gmail.com", PasswordHash: hash("TempPass1234"), Role: domain.RoleIntern, Status: domain.UserStatusActiveTempPassword},
		)
		verifier = &fakeVerifier{ident: &domain.Person{Email: "admin@creoo.co"}}
		svc = identity.NewService(users, identity.NewTokenIssuer(secret, time.Hour), verifier,
			identity.Config{AllowedDomains: internal.DefaultAllowedDomains, BCryptCost: bcrypt.MinCost},
			nil, logger.Discard())
	})

	Describe("password sign-in", func() {
		It("should sign in with a bcrypt secret regardless of email case", func() {
			res, err := svc.Login(ctx, identity.LoginRequest{Email: "  ADMIN@Creoo.co ", Password: "password"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Token).NotTo(BeEmpty())
			Expect(res.User.UserID).To(Equal("u-admin"))
			Expect(users.get("admin@creoo.co").LastLoginAt).NotTo(BeNil())
		})

		It("should accept a legacy plain secret", func() {
			_, err := svc.Login(ctx, identity.LoginRequest{Email: "legacy@creoo.co", Password: "plain-secret"})
			Expect(err).NotTo(HaveOccurred())
		})

		DescribeTable("should fail identically",
			func(email, password string) {
				_, err := svc.Login(ctx, identity.LoginRequest{Email: email, Password: password})
				Expect(err).To(MatchError(internal.ErrAuthenticationFailed))
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Message).To(Equal("Invalid credentials"))
			},
			Entry("unknown email", "nobody@creoo.co", "password"),
			Entry("wrong secret", "admin@creoo.co", "Password"),
			Entry("inactive user", "gone@creoo.co", "password"),
			Entry("legacy secret prefix", "legacy@creoo.co", "plain"),
		)

		It("should reject malformed input before touching the store", func() {
			_, err := svc.Login(ctx, identity.LoginRequest{Email: "not-an-email"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(users.callCount()).To(Equal(0))
		})

		It("should still sign in when the last-login stamp fails", func() {
			users.stampErr = store.Unavailable("update", "Users", errors.New("timeout"))
			res, err := svc.Login(ctx, identity.LoginRequest{Email: "admin@creoo.co", Password: "password"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.User.LastLoginAt).To(BeNil())
		})

		It("should surface an unavailable store", func() {
			users.lookupErr = store.Unavailable("list", "Users", errors.New("502"))
			_, err := svc.Login(ctx, identity.LoginRequest{Email: "admin@creoo.co", Password: "password"})
			Expect(errors.Is(err, store.ErrUnavailable)).To(BeTrue())
		})
	})

	Describe("delegated sign-in", func() {
		It("should deny an unlisted domain without any store call", func() {
			verifier.ident = &domain.Person{Email: "someone@evil.example"}
			_, err := svc.LoginDelegated(ctx, identity.DelegatedLoginRequest{IDToken: "raw"})
			Expect(err).To(MatchError(internal.ErrAuthenticationFailed))
			Expect(users.callCount()).To(Equal(0))
		})

		It("should deny an allowed domain with no matching user", func() {
			verifier.ident = &domain.Person{Email: "stranger@gmail.com"}
			_, err := svc.LoginDelegated(ctx, identity.DelegatedLoginRequest{IDToken: "raw"})
			Expect(err).To(MatchError(internal.ErrAuthenticationFailed))
			Expect(users.get("stranger@gmail.com")).To(BeNil())
		})

		It("should sign in a known user from an allowed domain", func() {
			verifier.ident = &domain.Person{Email: "Admin@creoo.co"}
			res, err := svc.LoginDelegated(ctx, identity.DelegatedLoginRequest{IDToken: "raw"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.User.Role).To(Equal(domain.RoleAdmin))
		})

		It("should fail when the token does not verify", func() {
			verifier.err = errors.New("bad signature")
			_, err := svc.LoginDelegated(ctx, identity.DelegatedLoginRequest{IDToken: "raw"})
			Expect(err).To(MatchError(internal.ErrAuthenticationFailed))
			Expect(users.callCount()).To(Equal(0))
		})

		It("should report delegated sign-in as unavailable without a verifier", func() {
			bare := identity.NewService(users, identity.NewTokenIssuer(secret, time.Hour), nil, identity.Config{}, nil, logger.Discard())
			_, err := bare.LoginDelegated(ctx, identity.DelegatedLoginRequest{IDToken: "raw"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusNotImplemented))
		})
	})

	Describe("token resolution", func() {
		It("should pick up role changes without signing in again", func() {
			res, err := svc.Login(ctx, identity.LoginRequest{Email: "admin@creoo.co", Password: "password"})
			Expect(err).NotTo(HaveOccurred())

			role := domain.RoleEmployee
			Expect(users.UpdateUser(ctx, "u-admin", domain.UserPatch{Role: &role})).To(Succeed())

			u, err := svc.ResolveToken(ctx, res.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Role).To(Equal(domain.RoleEmployee))
		})

		It("should reject the token of a deactivated user", func() {
			res, err := svc.Login(ctx, identity.LoginRequest{Email: "admin@creoo.co", Password: "password"})
			Expect(err).NotTo(HaveOccurred())

			inactive := domain.UserStatusInactive
			Expect(users.UpdateUser(ctx, "u-admin", domain.UserPatch{Status: &inactive})).To(Succeed())

			_, err = svc.ResolveToken(ctx, res.Token)
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})

		It("should report expired tokens", func() {
			past := time.Now().Add(-2 * time.Hour)
			issuer := identity.NewTokenIssuer(secret, time.Hour).WithClock(func() time.Time { return past })
			token, _, err := issuer.Issue(&domain.User{UserID: "u-admin", Email: "admin@creoo.co", Role: domain.RoleAdmin})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.ResolveToken(ctx, token)
			Expect(err).To(MatchError(internal.ErrTokenExpired))
		})

		It("should reject tokens signed with another secret", func() {
			other := identity.NewTokenIssuer(strings.Repeat("x", 32), time.Hour)
			token, _, err := other.Issue(&domain.User{UserID: "u-admin", Email: "admin@creoo.co"})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.ResolveToken(ctx, token)
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})
	})

	Describe("password change", func() {
		It("should store a bcrypt hash and clear the temporary status", func() {
			res, err := svc.ChangePassword(ctx, &domain.User{UserID: "u-temp", Email: "temp@gmail.com"},
				identity.ChangePasswordRequest{CurrentPassword: "TempPass1234", NewPassword: "a-much-better-one"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.User.Status).To(Equal(domain.UserStatusActive))

			stored := users.get("temp@gmail.com")
			Expect(stored.Status).To(Equal(domain.UserStatusActive))
			Expect(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("a-much-better-one"))).To(Succeed())
		})

		It("should require the current secret", func() {
			_, err := svc.ChangePassword(ctx, &domain.User{UserID: "u-temp", Email: "temp@gmail.com"},
				identity.ChangePasswordRequest{CurrentPassword: "guess", NewPassword: "a-much-better-one"})
			Expect(err).To(MatchError(internal.ErrAuthenticationFailed))
		})
	})
})

var _ = Describe("Passwords", func() {
	It("should generate distinct temporary passwords of fixed length", func() {
		a, err := identity.GenerateTempPassword()
		Expect(err).NotTo(HaveOccurred())
		b, err := identity.GenerateTempPassword()
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(HaveLen(identity.TempPasswordLength))
		Expect(a).NotTo(Equal(b))
	})

	It("should never match an empty stored secret", func() {
		Expect(identity.VerifyPassword("", "")).To(BeFalse())
	})
})

var _ = Describe("Session", func() {
	var (
		users   *fakeUsers
		svc     *identity.Service
		path    string
		session *identity.Session
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		users = newFakeUsers(domain.User{UserID: "u-ops", Name: "Citra", Email: "ops@creoo.co", PasswordHash: hash("password"), Role: domain.RoleOpsHR, Status: domain.UserStatusActive})
		svc = identity.NewService(users, identity.NewTokenIssuer(secret, time.Hour), nil, identity.Config{BCryptCost: bcrypt.MinCost}, nil, logger.Discard())
		path = filepath.Join(GinkgoT().TempDir(), "nested", "session")
		session = identity.NewSession(svc, identity.NewFileTokenStore(path))
	})

	It("should persist the token owner-only and restore it in a new process", func() {
		u, err := session.SignIn(ctx, "ops@creoo.co", "password")
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Role).To(Equal(domain.RoleOpsHR))

		info, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

		fresh := identity.NewSession(svc, identity.NewFileTokenStore(path))
		Expect(fresh.Principal()).To(BeNil())
		restored, err := fresh.Restore(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(restored.UserID).To(Equal("u-ops"))
		Expect(fresh.Principal().Email).To(Equal("ops@creoo.co"))
	})

	It("should discard a corrupt token on restore", func() {
		Expect(os.MkdirAll(filepath.Dir(path), 0o700)).To(Succeed())
		Expect(os.WriteFile(path, []byte("garbage"), 0o600)).To(Succeed())

		u, err := session.Restore(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(BeNil())
		_, err = os.Stat(path)
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("should keep the token when the store is unreachable", func() {
		_, err := session.SignIn(ctx, "ops@creoo.co", "password")
		Expect(err).NotTo(HaveOccurred())

		users.lookupErr = store.Unavailable("list", "Users", errors.New("down"))
		_, err = identity.NewSession(svc, identity.NewFileTokenStore(path)).Restore(ctx)
		Expect(errors.Is(err, store.ErrUnavailable)).To(BeTrue())
		_, statErr := os.Stat(path)
		Expect(statErr).NotTo(HaveOccurred())
	})

	It("should clear everything on sign-out", func() {
		_, err := session.SignIn(ctx, "ops@creoo.co", "password")
		Expect(err).NotTo(HaveOccurred())

		Expect(session.SignOut()).To(Succeed())
		Expect(session.Principal()).To(BeNil())
		snap, err := session.Snapshot()
		Expect(err).NotTo(HaveOccurred())
		Expect(snap).To(BeNil())
	})

	It("should return the snapshot without a store call", func() {
		_, err := session.SignIn(ctx, "ops@creoo.co", "password")
		Expect(err).NotTo(HaveOccurred())
		before := users.callCount()

		snap, err := session.Snapshot()
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Name).To(Equal("Citra"))
		Expect(users.callCount()).To(Equal(before))
	})
})

var _ = Describe("Handler", func() {
	var h *identity.Handler

	BeforeEach(func() {
		users := newFakeUsers(domain.User{UserID: "u-fin", Name: "Budi", Email: "finance@creoo.co", PasswordHash: hash("password"), Role: domain.RoleFinance, Status: domain.UserStatusActive})
		svc := identity.NewService(users, identity.NewTokenIssuer(secret, time.Hour), nil, identity.Config{BCryptCost: bcrypt.MinCost}, nil, logger.Discard())
		h = identity.NewHandler(svc, nil, logger.Discard())
	})

	It("should answer a failed login with the standard 401 envelope", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"finance@creoo.co","password":"nope"}`))
		h.Login(rec, req)

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		var body map[string]map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["error"]).To(HaveKeyWithValue("code", "AUTHENTICATION_FAILED"))
	})

	It("should return a token and then check navigation with it", func() {
		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"finance@creoo.co","password":"password"}`)))
		Expect(rec.Code).To(Equal(http.StatusOK))

		var res struct {
			Token string `json:"token"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &res)).To(Succeed())

		rec = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/navigation/check?route=/finance", nil)
		req.Header.Set("Authorization", "Bearer "+res.Token)
		h.NavigationCheck(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{"route":"/finance","allowed":false,"redirect":"/dashboard"}`))
	})

	It("should treat a missing token as signed out on navigation checks", func() {
		rec := httptest.NewRecorder()
		h.NavigationCheck(rec, httptest.NewRequest(http.MethodGet, "/api/v1/navigation/check?route=/tools", nil))
		Expect(rec.Body.String()).To(MatchJSON(`{"route":"/tools","allowed":false,"redirect":"/login"}`))
	})

	It("should report delegated redirect login as unavailable when not configured", func() {
		rec := httptest.NewRecorder()
		h.OIDCLogin(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/oidc/login", nil))
		Expect(rec.Code).To(Equal(http.StatusNotImplemented))
	})
})
