package finance_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/core/events"
	"github.com/frahmantamala/ops-portal/internal/finance"
	"github.com/frahmantamala/ops-portal/internal/metrics"
	"github.com/frahmantamala/ops-portal/internal/store/postgres"
	"github.com/frahmantamala/ops-portal/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestFinance(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Finance Suite")
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	Expect(err).NotTo(HaveOccurred())
	return t
}

type recordingBus struct {
	mu     sync.Mutex
	events []*events.PortalEvent
}

func (b *recordingBus) Publish(ctx context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e.(*events.PortalEvent))
}

type recordingAuditor struct {
	mu      sync.Mutex
	actions []string
}

func (a *recordingAuditor) Record(ctx context.Context, actor *domain.User, action, entityType, entityID string, details any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
}

var _ = Describe("Ledger", func() {
	var l finance.Ledger

	BeforeEach(func() {
		l = finance.Ledger{
			Expenses: []domain.Expense{
				{Vendor: "WeWork", Category: domain.ExpenseOffice, Amount: d("400"), Currency: "USD", Date: day("2026-05-02"), Notes: `desk, "hot"`},
				{Vendor: "Airline", Category: domain.ExpenseTravel, Amount: d("250.50"), Currency: "USD", Date: day("2026-04-28")},
				{Vendor: "Printer", Category: domain.ExpenseOffice, Amount: d("100"), Currency: "USD", Date: day("2026-03-10")},
			},
			Payments: []domain.ToolPayment{
				{ToolID: "t-1", MonthFor: "2026-05", Amount: d("30"), Currency: "USD", PaymentDate: day("2026-05-01")},
				{ToolID: "t-gone", MonthFor: "2026-04", Amount: d("15"), Currency: "USD", PaymentDate: day("2026-04-01")},
			},
			Salaries: []domain.SalaryTransfer{
				{PaidToName: "Dewi", MonthFor: "2026-05", Amount: d("2000"), Currency: "IDR", Date: day("2026-04-30")},
			},
			ToolNames: map[string]string{"t-1": "Figma"},
		}
	})

	It("totals the month's burn from dates and booking months", func() {
		sum := l.Summarize(time.Date(2026, 5, 20, 8, 0, 0, 0, time.UTC))
		Expect(sum.Month).To(Equal("2026-05"))
		Expect(sum.MonthlyBurn.Equal(d("2430"))).To(BeTrue())
		Expect(sum.BurnByCurrency["USD"].Equal(d("430"))).To(BeTrue())
		Expect(sum.BurnByCurrency["IDR"].Equal(d("2000"))).To(BeTrue())
	})

	It("breaks expenses down by category in the fixed order", func() {
		sum := l.Summarize(time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC))
		Expect(sum.Categories).To(HaveLen(2))
		Expect(sum.Categories[0].Category).To(Equal(domain.ExpenseTravel))
		Expect(sum.Categories[1].Category).To(Equal(domain.ExpenseOffice))
		Expect(sum.Categories[1].Total.Equal(d("500"))).To(BeTrue())
	})

	It("merges the feed newest first and names payments by tool", func() {
		sum := l.Summarize(time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC))
		var names []string
		for _, a := range sum.Activity {
			names = append(names, a.Name)
		}
		Expect(names).To(Equal([]string{"WeWork", "Figma", "Dewi", "Airline", "Tool", "Printer"}))
		Expect(sum.Activity[2].Category).To(Equal("Salaries"))
	})

	It("keeps only the ten newest entries", func() {
		for i := 0; i < 12; i++ {
			l.Expenses = append(l.Expenses, domain.Expense{Vendor: fmt.Sprintf("v%d", i), Category: domain.ExpenseMisc, Amount: d("1"), Date: day("2026-06-01").AddDate(0, 0, i)})
		}
		sum := l.Summarize(time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC))
		Expect(sum.Activity).To(HaveLen(10))
		Expect(sum.Activity[0].Name).To(Equal("v11"))
	})

	It("exports every row as quoted CSV", func() {
		var buf bytes.Buffer
		Expect(l.WriteCSV(&buf)).To(Succeed())

		records, err := csv.NewReader(&buf).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(7))
		Expect(records[0]).To(Equal([]string{"Type", "Date", "Entity/Vendor", "Amount", "Currency", "Notes"}))
		Expect(records[1]).To(Equal([]string{"Expense", "2026-05-02", "WeWork", "400.00", "USD", `desk, "hot"`}))
		Expect(records[4]).To(Equal([]string{"Tool Payment", "2026-05-01", "Figma", "30.00", "USD", ""}))
		Expect(records[6][0]).To(Equal("Salary Transfer"))
	})
})

var _ = Describe("Finance Service", func() {
	var (
		adapter *postgres.Adapter
		bus     *recordingBus
		auditor *recordingAuditor
		m       *metrics.Metrics
		svc     *finance.Service
		ctx     context.Context
		admin   *domain.User
		dewi    *domain.User
		toolID  string
		now     time.Time
	)

	BeforeEach(func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(postgres.AutoMigrate(db)).To(Succeed())

		ctx = context.Background()
		now = time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)
		adapter = postgres.NewAdapter(db, logger.Discard(), postgres.WithClock(func() time.Time { return now }))

		admin, err = adapter.CreateUser(ctx, domain.User{Name: "Ayu", Email: "ayu@creoo.co", Role: domain.RoleAdmin, Status: domain.UserStatusActive})
		Expect(err).NotTo(HaveOccurred())
		dewi, err = adapter.CreateUser(ctx, domain.User{Name: "Dewi", Email: "dewi@creoo.co", Role: domain.RoleEmployee, Status: domain.UserStatusActive})
		Expect(err).NotTo(HaveOccurred())
		tool, err := adapter.CreateTool(ctx, domain.Tool{Name: "Figma", Category: "Design", BillingCycle: domain.BillingMonthly, Cost: d("30"), Currency: "USD", OwnerRole: domain.RoleAdmin, VisibilityLevel: domain.VisibilityCompanyShared, Status: domain.ToolStatusActive})
		Expect(err).NotTo(HaveOccurred())
		toolID = tool.ToolID

		bus = &recordingBus{}
		auditor = &recordingAuditor{}
		m = metrics.New()
		svc = finance.NewService(adapter, auditor, bus, m, logger.Discard()).
			WithClock(func() time.Time { return now })
	})

	It("logs all three entry kinds, audits and emits finance events", func() {
		_, err := svc.LogToolPayment(ctx, admin, finance.LogToolPaymentRequest{
			ToolID: toolID, PaymentDate: "2026-05-01", MonthFor: "2026-05", Amount: d("30"), Currency: "usd",
		})
		Expect(err).NotTo(HaveOccurred())

		transfer, err := svc.LogSalaryTransfer(ctx, admin, finance.LogSalaryTransferRequest{
			PaidToUserID: dewi.UserID, Date: "2026-05-19", MonthFor: "2026-05", Amount: d("1500"), Currency: "USD",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(transfer.PaidToName).To(Equal("Dewi"))
		Expect(transfer.CreatedByUserID).To(Equal(admin.UserID))

		expense, err := svc.LogExpense(ctx, admin, finance.LogExpenseRequest{
			Date: "2026-05-10", Vendor: "Figma Inc", Category: "Tools", Amount: d("12.5"), Currency: "USD", LinkedToolID: &toolID,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(*expense.LinkedToolID).To(Equal(toolID))

		Expect(auditor.actions).To(Equal([]string{"finance.tool_payment", "finance.salary_transfer", "finance.expense"}))
		Expect(bus.events).To(HaveLen(3))
		for _, e := range bus.events {
			Expect(e.Type).To(Equal(events.EventTypeFinanceEvent))
			Expect(e.Notification.Requester.UserID).To(Equal(admin.UserID))
			Expect(e.Notification.DeepLink).To(Equal("/finance"))
		}
		Expect(bus.events[1].Notification.Fields).To(HaveKeyWithValue("paidTo", "Dewi"))

		sum, err := svc.Summary(ctx, admin)
		Expect(err).NotTo(HaveOccurred())
		Expect(sum.MonthlyBurn.Equal(d("1542.5"))).To(BeTrue())
		Expect(sum.Activity).To(HaveLen(3))
		Expect(sum.Activity[0].Type).To(Equal(finance.EntrySalaryTransfer))
	})

	It("refuses unknown tools and recipients before writing", func() {
		_, err := svc.LogToolPayment(ctx, admin, finance.LogToolPaymentRequest{
			ToolID: "missing", PaymentDate: "2026-05-01", MonthFor: "2026-05", Amount: d("1"), Currency: "USD",
		})
		Expect(err).To(MatchError(internal.ErrToolNotFound))

		_, err = svc.LogSalaryTransfer(ctx, admin, finance.LogSalaryTransferRequest{
			PaidToUserID: "ghost", Date: "2026-05-01", MonthFor: "2026-05", Amount: d("1"), Currency: "USD",
		})
		Expect(err).To(MatchError(internal.ErrUserNotFound))

		payments, err := adapter.ListToolPayments(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(payments).To(BeEmpty())
		Expect(bus.events).To(BeEmpty())
	})

	DescribeTable("rejects invalid entries",
		func(dto finance.LogExpenseRequest) {
			_, err := svc.LogExpense(ctx, admin, dto)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusBadRequest))
		},
		Entry("zero amount", finance.LogExpenseRequest{Date: "2026-05-01", Vendor: "x", Category: "Misc", Amount: d("0"), Currency: "USD"}),
		Entry("negative amount", finance.LogExpenseRequest{Date: "2026-05-01", Vendor: "x", Category: "Misc", Amount: d("-3"), Currency: "USD"}),
		Entry("unknown category", finance.LogExpenseRequest{Date: "2026-05-01", Vendor: "x", Category: "Snacks", Amount: d("3"), Currency: "USD"}),
		Entry("bad date", finance.LogExpenseRequest{Date: "05/01/2026", Vendor: "x", Category: "Misc", Amount: d("3"), Currency: "USD"}),
	)

	It("keeps the ledger away from non-admins", func() {
		_, err := svc.Summary(ctx, dewi)
		Expect(err).To(MatchError(internal.ErrAuthorizationDenied))
		_, err = svc.LogExpense(ctx, dewi, finance.LogExpenseRequest{Date: "2026-05-01", Vendor: "x", Category: "Misc", Amount: d("3"), Currency: "USD"})
		Expect(err).To(MatchError(internal.ErrAuthorizationDenied))
	})

	Describe("Handler", func() {
		var router chi.Router

		BeforeEach(func() {
			h := finance.NewHandler(svc, logger.Discard())
			router = chi.NewRouter()
			router.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					p := admin
					if r.Header.Get("X-Test-User") == "dewi" {
						p = dewi
					}
					next.ServeHTTP(w, r.WithContext(internal.ContextWithPrincipal(r.Context(), p)))
				})
			})
			router.Get("/finance/summary", h.GetSummary)
			router.Get("/finance/ledger.csv", h.ExportLedger)
			router.Post("/finance/expenses", h.LogExpense)
		})

		It("serves the ledger as a CSV download", func() {
			body := `{"date":"2026-05-02","vendor":"WeWork","category":"Office","amount":"400","currency":"USD"}`
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/finance/expenses", strings.NewReader(body)))
			Expect(rec.Code).To(Equal(http.StatusCreated))

			rec = httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/finance/ledger.csv", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(HavePrefix("text/csv"))
			Expect(rec.Header().Get("Content-Disposition")).To(ContainSubstring("finance_report_2026-05-20.csv"))
			Expect(rec.Body.String()).To(ContainSubstring("Expense,2026-05-02,WeWork,400.00,USD,"))
		})

		It("returns a JSON 403 instead of a partial file", func() {
			req := httptest.NewRequest(http.MethodGet, "/finance/ledger.csv", nil)
			req.Header.Set("X-Test-User", "dewi")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(rec.Header().Get("Content-Type")).To(ContainSubstring("application/json"))
		})
	})
})
