package user

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/audit"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/identity"
	"github.com/frahmantamala/ops-portal/internal/rbac"
	"golang.org/x/sync/errgroup"
)

const directoryRoute = "/hr"

type Repository interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	CreateUser(ctx context.Context, u domain.User) (*domain.User, error)
	UpdateUser(ctx context.Context, userID string, patch domain.UserPatch) error
	ListEmployees(ctx context.Context) ([]domain.Employee, error)
	CreateEmployee(ctx context.Context, e domain.Employee) (*domain.Employee, error)
}

type Auditor interface {
	Record(ctx context.Context, actor *domain.User, action, entityType, entityID string, details any)
}

type Service struct {
	repo       Repository
	audit      Auditor
	logger     *slog.Logger
	bcryptCost int
	now        func() time.Time
}

func NewService(repo Repository, auditor Auditor, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		audit:      auditor,
		logger:     logger,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Directory lists employees joined with their accounts, ordered by name.
// It is open to every role that may open the HR page.
func (s *Service) Directory(ctx context.Context, principal *domain.User) (*Directory, error) {
	if principal == nil || !principal.IsActive() {
		return nil, internal.ErrAuthenticationRequired
	}
	if !rbac.Navigate(principal, directoryRoute).Allowed {
		return nil, internal.ErrAuthorizationDenied
	}

	var (
		employees []domain.Employee
		users     []domain.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		employees, err = s.repo.ListEmployees(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.repo.ListUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "failed to load directory", "error", err)
		return nil, err
	}

	byID := make(map[string]domain.User, len(users))
	for _, u := range users {
		byID[u.UserID] = u
	}

	entries := make([]DirectoryEntry, 0, len(employees))
	for _, e := range employees {
		entries = append(entries, joinEntry(e, byID))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return &Directory{Entries: entries}, nil
}

// Accounts lists every user account for the admin screen.
func (s *Service) Accounts(ctx context.Context, principal *domain.User) ([]Account, error) {
	if err := rbac.Authorize(principal, rbac.ActionUpdateUserRole); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Account, 0, len(users))
	for _, u := range users {
		out = append(out, accountOf(u))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// Invite creates the account with a temporary password plus its employee
// row. The temporary password is only ever returned here.
func (s *Service) Invite(ctx context.Context, principal *domain.User, dto InviteRequest) (*Invitation, error) {
	if err := rbac.Authorize(principal, rbac.ActionInviteUser); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u := dto.User()
	existing, err := s.repo.GetUserByEmail(ctx, u.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, internal.ErrEmailTaken
	}

	temp, err := identity.GenerateTempPassword()
	if err != nil {
		return nil, internal.NewInternalError("could not generate a temporary password", err)
	}
	u.PasswordHash, err = identity.HashPassword(temp, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("could not hash the temporary password", err)
	}

	created, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create invited user", "email", u.Email, "error", err)
		return nil, err
	}

	emp, err := s.repo.CreateEmployee(ctx, dto.Employee(created.UserID, s.now().UTC()))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create employee for invited user", "user_id", created.UserID, "error", err)
		s.disableOrphan(ctx, created.UserID)
		return nil, err
	}

	s.logger.InfoContext(ctx, "user invited", "user_id", created.UserID, "role", created.Role, "by", principal.UserID)
	s.audit.Record(ctx, principal, "user.invite", audit.EntityUser, created.UserID, map[string]any{
		"email":      created.Email,
		"role":       string(created.Role),
		"department": emp.Department,
	})

	return &Invitation{User: accountOf(*created), Employee: *emp, TempPassword: temp}, nil
}

// disableOrphan deactivates an invited account whose employee row could not
// be written, so the half-finished invite cannot sign in.
func (s *Service) disableOrphan(ctx context.Context, userID string) {
	inactive := domain.UserStatusInactive
	if err := s.repo.UpdateUser(ctx, userID, domain.UserPatch{Status: &inactive}); err != nil {
		s.logger.ErrorContext(ctx, "failed to deactivate invited user without employee row", "user_id", userID, "error", err)
	}
}

func (s *Service) UpdateRole(ctx context.Context, principal *domain.User, userID string, dto UpdateRoleRequest) (*Account, error) {
	if err := rbac.Authorize(principal, rbac.ActionUpdateUserRole); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	role, _ := domain.ParseRole(dto.Role)

	target, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.Role == role {
		acc := accountOf(*target)
		return &acc, nil
	}

	if err := s.repo.UpdateUser(ctx, userID, domain.UserPatch{Role: &role}); err != nil {
		s.logger.ErrorContext(ctx, "failed to update user role", "user_id", userID, "error", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "user role changed", "user_id", userID, "from", target.Role, "to", role, "by", principal.UserID)
	s.audit.Record(ctx, principal, "user.role_update", audit.EntityUser, userID, map[string]any{
		"from": string(target.Role),
		"to":   string(role),
	})

	target.Role = role
	acc := accountOf(*target)
	return &acc, nil
}

// ToggleStatus deactivates an active account (temporary password included)
// and reactivates an inactive one.
func (s *Service) ToggleStatus(ctx context.Context, principal *domain.User, userID string) (*Account, error) {
	if err := rbac.Authorize(principal, rbac.ActionToggleUserStatus); err != nil {
		return nil, err
	}

	target, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	next := domain.UserStatusInactive
	if !target.IsActive() {
		next = domain.UserStatusActive
	}
	if err := s.repo.UpdateUser(ctx, userID, domain.UserPatch{Status: &next}); err != nil {
		s.logger.ErrorContext(ctx, "failed to toggle user status", "user_id", userID, "error", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "user status changed", "user_id", userID, "from", target.Status, "to", next, "by", principal.UserID)
	s.audit.Record(ctx, principal, "user.status_toggle", audit.EntityUser, userID, map[string]any{
		"from": string(target.Status),
		"to":   string(next),
	})

	target.Status = next
	acc := accountOf(*target)
	return &acc, nil
}

func (s *Service) find(ctx context.Context, userID string) (*domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, internal.NewValidationFieldError("user_id", "user_id is required", internal.ErrCodeValidationFailed)
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].UserID == userID {
			return &users[i], nil
		}
	}
	return nil, internal.ErrUserNotFound
}
