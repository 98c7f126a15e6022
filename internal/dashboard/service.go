// Package dashboard assembles the landing page figures.
package dashboard

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/finance"
	"github.com/frahmantamala/ops-portal/internal/rbac"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	birthdayWindowDays = 30
	birthdayLimit      = 5
)

type Store interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	ListEmployees(ctx context.Context) ([]domain.Employee, error)
	ListTools(ctx context.Context) ([]domain.Tool, error)
	ListToolRequests(ctx context.Context) ([]domain.ToolRequest, error)
	ListToolPayments(ctx context.Context) ([]domain.ToolPayment, error)
	ListExpenses(ctx context.Context, r domain.DateRange) ([]domain.Expense, error)
	ListSalaryTransfers(ctx context.Context) ([]domain.SalaryTransfer, error)
}

type Birthday struct {
	Name       string    `json:"name"`
	Department string    `json:"department"`
	Date       time.Time `json:"date"`
	Label      string    `json:"label"`
	DaysUntil  int       `json:"days_until"`
}

// Overview is the dashboard payload. MonthlyBurn is only present for roles
// allowed to see the finance summary.
type Overview struct {
	Greeting          string           `json:"greeting"`
	TotalEmployees    int              `json:"total_employees"`
	ActiveTools       int              `json:"active_tools"`
	MonthlyBurn       *decimal.Decimal `json:"monthly_burn,omitempty"`
	PendingRequests   int              `json:"pending_requests"`
	UpcomingBirthdays []Birthday       `json:"upcoming_birthdays"`
}

type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Overview(ctx context.Context, principal *domain.User) (*Overview, error) {
	if principal == nil || !principal.IsActive() {
		return nil, internal.ErrAuthenticationRequired
	}
	now := s.now().UTC()
	withBurn := rbac.Can(principal.Role, rbac.ActionViewFinanceSummary)

	var (
		users     []domain.User
		employees []domain.Employee
		tools     []domain.Tool
		requests  []domain.ToolRequest
		payments  []domain.ToolPayment
		expenses  []domain.Expense
		salaries  []domain.SalaryTransfer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { users, err = s.store.ListUsers(gctx); return })
	g.Go(func() (err error) { employees, err = s.store.ListEmployees(gctx); return })
	g.Go(func() (err error) { tools, err = s.store.ListTools(gctx); return })
	g.Go(func() (err error) { requests, err = s.store.ListToolRequests(gctx); return })
	if withBurn {
		g.Go(func() (err error) { payments, err = s.store.ListToolPayments(gctx); return })
		g.Go(func() (err error) { expenses, err = s.store.ListExpenses(gctx, domain.MonthRange(now)); return })
		g.Go(func() (err error) { salaries, err = s.store.ListSalaryTransfers(gctx); return })
	}
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "failed to load dashboard", "user_id", principal.UserID, "error", err)
		return nil, err
	}

	out := &Overview{
		Greeting:          "Welcome back, " + principal.Name,
		TotalEmployees:    len(employees),
		UpcomingBirthdays: UpcomingBirthdays(employees, users, now),
	}
	for _, t := range rbac.VisibleTools(principal.Role, tools) {
		if t.Status == domain.ToolStatusActive {
			out.ActiveTools++
		}
	}
	for _, r := range rbac.ScopeToolRequests(principal, requests) {
		if r.Status.IsPending() {
			out.PendingRequests++
		}
	}
	if withBurn {
		burn, _ := finance.MonthlyBurn(now.Format("2006-01"), expenses, salaries, payments)
		out.MonthlyBurn = &burn
	}
	return out, nil
}

// UpcomingBirthdays returns the soonest birthdays within the next 30 days,
// today included.
func UpcomingBirthdays(employees []domain.Employee, users []domain.User, now time.Time) []Birthday {
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.UserID] = u.Name
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	out := []Birthday{}
	for i := range employees {
		next, ok := employees[i].NextBirthday(today)
		if !ok {
			continue
		}
		days := int(next.Sub(today).Hours() / 24)
		if days > birthdayWindowDays {
			continue
		}
		name, ok := names[employees[i].UserID]
		if !ok {
			name = "Unknown"
		}
		out = append(out, Birthday{
			Name:       name,
			Department: employees[i].Department,
			Date:       next,
			Label:      next.Format("January 2"),
			DaysUntil:  days,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysUntil < out[j].DaysUntil })
	if len(out) > birthdayLimit {
		out = out[:birthdayLimit]
	}
	return out
}
