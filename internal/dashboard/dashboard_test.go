package dashboard_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/dashboard"
	"github.com/frahmantamala/ops-portal/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func TestDashboard(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Dashboard Suite")
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type fakeStore struct {
	users       []domain.User
	employees   []domain.Employee
	tools       []domain.Tool
	requests    []domain.ToolRequest
	payments    []domain.ToolPayment
	expenses    []domain.Expense
	salaries    []domain.SalaryTransfer
	ledgerReads atomic.Int32
	err         error
}

func (f *fakeStore) ListUsers(ctx context.Context) ([]domain.User, error) { return f.users, f.err }
func (f *fakeStore) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	return f.employees, nil
}
func (f *fakeStore) ListTools(ctx context.Context) ([]domain.Tool, error) { return f.tools, nil }
func (f *fakeStore) ListToolRequests(ctx context.Context) ([]domain.ToolRequest, error) {
	return f.requests, nil
}
func (f *fakeStore) ListToolPayments(ctx context.Context) ([]domain.ToolPayment, error) {
	f.ledgerReads.Add(1)
	return f.payments, nil
}
func (f *fakeStore) ListExpenses(ctx context.Context, r domain.DateRange) ([]domain.Expense, error) {
	f.ledgerReads.Add(1)
	var out []domain.Expense
	for _, e := range f.expenses {
		if r.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out, nil
}
func (f *fakeStore) ListSalaryTransfers(ctx context.Context) ([]domain.SalaryTransfer, error) {
	f.ledgerReads.Add(1)
	return f.salaries, nil
}

var _ = Describe("Dashboard", func() {
	var (
		store *fakeStore
		svc   *dashboard.Service
		now   time.Time
		admin = &domain.User{UserID: "a", Name: "Ayu", Role: domain.RoleAdmin, Status: domain.UserStatusActive}
		dewi  = &domain.User{UserID: "d", Name: "Dewi", Role: domain.RoleEmployee, Status: domain.UserStatusActive}
	)

	BeforeEach(func() {
		now = time.Date(2026, 12, 20, 16, 0, 0, 0, time.UTC)
		store = &fakeStore{
			users: []domain.User{*admin, *dewi, {UserID: "c", Name: "Citra"}, {UserID: "e", Name: "Eko"}},
			employees: []domain.Employee{
				{UserID: "a", Department: "Ops", Birthday: date(1990, 1, 5)},
				{UserID: "d", Department: "Eng", Birthday: date(1995, 12, 20)},
				{UserID: "c", Department: "HR", Birthday: date(1992, 12, 1)},
				{UserID: "e", Department: "Eng", Birthday: date(2001, 1, 25)},
				{UserID: "x", Department: "Eng", Birthday: date(1999, 12, 31)},
				{UserID: "n", Department: "Eng"},
			},
			tools: []domain.Tool{
				{Name: "Figma", Status: domain.ToolStatusActive, VisibilityLevel: domain.VisibilityCompanyShared},
				{Name: "Vault", Status: domain.ToolStatusActive, VisibilityLevel: domain.VisibilityPrivateAdmin},
				{Name: "Old", Status: domain.ToolStatusCancelled, VisibilityLevel: domain.VisibilityCompanyShared},
			},
			requests: []domain.ToolRequest{
				{UserID: "d", Status: domain.ToolRequestRequested},
				{UserID: "c", Status: domain.ToolRequestNeedInfo},
				{UserID: "c", Status: domain.ToolRequestApproved},
			},
			expenses: []domain.Expense{
				{Amount: decimal.RequireFromString("100"), Date: time.Date(2026, 12, 3, 0, 0, 0, 0, time.UTC)},
				{Amount: decimal.RequireFromString("999"), Date: time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)},
			},
			salaries: []domain.SalaryTransfer{{Amount: decimal.RequireFromString("50"), MonthFor: "2026-12"}},
			payments: []domain.ToolPayment{{Amount: decimal.RequireFromString("7.5"), MonthFor: "2026-11"}},
		}
		svc = dashboard.NewService(store, logger.Discard()).WithClock(func() time.Time { return now })
	})

	It("gives admins the full picture", func() {
		o, err := svc.Overview(context.Background(), admin)
		Expect(err).NotTo(HaveOccurred())
		Expect(o.Greeting).To(Equal("Welcome back, Ayu"))
		Expect(o.TotalEmployees).To(Equal(6))
		Expect(o.ActiveTools).To(Equal(2))
		Expect(o.PendingRequests).To(Equal(2))
		Expect(o.MonthlyBurn).NotTo(BeNil())
		Expect(o.MonthlyBurn.Equal(decimal.RequireFromString("150"))).To(BeTrue())
	})

	It("scopes employees to their own requests, visible tools and no burn", func() {
		o, err := svc.Overview(context.Background(), dewi)
		Expect(err).NotTo(HaveOccurred())
		Expect(o.ActiveTools).To(Equal(1))
		Expect(o.PendingRequests).To(Equal(1))
		Expect(o.MonthlyBurn).To(BeNil())
		Expect(store.ledgerReads.Load()).To(BeZero())
	})

	It("lists birthdays within 30 days, soonest first, across the year end", func() {
		o, err := svc.Overview(context.Background(), admin)
		Expect(err).NotTo(HaveOccurred())

		var names []string
		var days []int
		for _, b := range o.UpcomingBirthdays {
			names = append(names, b.Name)
			days = append(days, b.DaysUntil)
		}
		Expect(names).To(Equal([]string{"Dewi", "Unknown", "Ayu"}))
		Expect(days).To(Equal([]int{0, 11, 16}))
		Expect(o.UpcomingBirthdays[2].Label).To(Equal("January 5"))
		Expect(o.UpcomingBirthdays[2].Date.Year()).To(Equal(2027))
	})

	It("caps the birthday list at five", func() {
		var emps []domain.Employee
		for i := 1; i <= 8; i++ {
			emps = append(emps, domain.Employee{UserID: "a", Birthday: date(1990, 12, 20+i)})
		}
		Expect(dashboard.UpcomingBirthdays(emps, nil, now)).To(HaveLen(5))
	})

	It("surfaces store failures", func() {
		store.err = errors.New("unavailable")
		_, err := svc.Overview(context.Background(), admin)
		Expect(err).To(MatchError("unavailable"))
	})

	It("requires a principal over HTTP", func() {
		h := dashboard.NewHandler(svc, logger.Discard())
		rec := httptest.NewRecorder()
		h.GetOverview(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))

		rec = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		h.GetOverview(rec, req.WithContext(internal.ContextWithPrincipal(req.Context(), dewi)))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).NotTo(ContainSubstring("monthly_burn"))
	})
})
