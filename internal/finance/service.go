// Package finance records tool payments, salary transfers and expenses and
// summarizes the ledger for admins.
package finance

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/audit"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/core/events"
	"github.com/frahmantamala/ops-portal/internal/metrics"
	"github.com/frahmantamala/ops-portal/internal/rbac"
	"golang.org/x/sync/errgroup"
)

const deepLink = "/finance"

type Store interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	ListTools(ctx context.Context) ([]domain.Tool, error)
	GetToolByID(ctx context.Context, toolID string) (*domain.Tool, error)

	ListToolPayments(ctx context.Context) ([]domain.ToolPayment, error)
	CreateToolPayment(ctx context.Context, p domain.ToolPayment) (*domain.ToolPayment, error)
	ListExpenses(ctx context.Context, r domain.DateRange) ([]domain.Expense, error)
	CreateExpense(ctx context.Context, e domain.Expense) (*domain.Expense, error)
	ListSalaryTransfers(ctx context.Context) ([]domain.SalaryTransfer, error)
	CreateSalaryTransfer(ctx context.Context, t domain.SalaryTransfer) (*domain.SalaryTransfer, error)
}

type Auditor interface {
	Record(ctx context.Context, actor *domain.User, action, entityType, entityID string, details any)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event)
}

type Service struct {
	store   Store
	audit   Auditor
	bus     Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(store Store, auditor Auditor, bus Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		audit:   auditor,
		bus:     bus,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Ledger loads every finance row in parallel.
func (s *Service) Ledger(ctx context.Context, principal *domain.User) (*Ledger, error) {
	if err := rbac.Authorize(principal, rbac.ActionViewFinanceSummary); err != nil {
		return nil, err
	}

	var (
		l     Ledger
		tools []domain.Tool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		l.Expenses, err = s.store.ListExpenses(gctx, domain.DateRange{})
		return err
	})
	g.Go(func() error {
		var err error
		l.Payments, err = s.store.ListToolPayments(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		l.Salaries, err = s.store.ListSalaryTransfers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		tools, err = s.store.ListTools(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "failed to load ledger", "error", err)
		return nil, err
	}

	l.ToolNames = make(map[string]string, len(tools))
	for _, t := range tools {
		l.ToolNames[t.ToolID] = t.Name
	}
	return &l, nil
}

func (s *Service) Summary(ctx context.Context, principal *domain.User) (*Summary, error) {
	l, err := s.Ledger(ctx, principal)
	if err != nil {
		return nil, err
	}
	sum := l.Summarize(s.now().UTC())
	return &sum, nil
}

// ExportCSV writes the ledger report to w.
func (s *Service) ExportCSV(ctx context.Context, principal *domain.User, w io.Writer) error {
	l, err := s.Ledger(ctx, principal)
	if err != nil {
		return err
	}
	if err := l.WriteCSV(w); err != nil {
		return internal.NewInternalError("could not write the ledger export", err)
	}
	return nil
}

// ReportName is the download name of the ledger export for the current day.
func (s *Service) ReportName() string {
	return "finance_report_" + s.now().UTC().Format(dateLayout) + ".csv"
}

func (s *Service) LogToolPayment(ctx context.Context, principal *domain.User, dto LogToolPaymentRequest) (*domain.ToolPayment, error) {
	if err := rbac.Authorize(principal, rbac.ActionLogFinance); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	tool, err := s.store.GetToolByID(ctx, dto.ToolID)
	if err != nil {
		return nil, err
	}
	if tool == nil {
		return nil, internal.ErrToolNotFound
	}

	created, err := s.store.CreateToolPayment(ctx, dto.ToDomain(principal.UserID, s.now().UTC()))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to log tool payment", "tool_id", dto.ToolID, "error", err)
		s.metrics.StoreError("create_tool_payment", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "tool payment logged", "payment_id", created.PaymentID, "tool_id", tool.ToolID, "amount", created.Amount.String())
	s.audit.Record(ctx, principal, "finance.tool_payment", audit.EntityToolPayment, created.PaymentID, map[string]any{
		"tool_id":   tool.ToolID,
		"month_for": created.MonthFor,
		"amount":    created.Amount.String(),
		"currency":  created.Currency,
	})
	s.emit(ctx, principal, "tool_payment", created.PaymentID, map[string]any{
		"toolName": tool.Name,
		"monthFor": created.MonthFor,
		"amount":   created.Amount.StringFixed(2),
		"currency": created.Currency,
	})
	return created, nil
}

// LogSalaryTransfer resolves the recipient's name from the user list before
// writing the transfer.
func (s *Service) LogSalaryTransfer(ctx context.Context, principal *domain.User, dto LogSalaryTransferRequest) (*domain.SalaryTransfer, error) {
	if err := rbac.Authorize(principal, rbac.ActionLogFinance); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	var recipient *domain.User
	for i := range users {
		if users[i].UserID == dto.PaidToUserID {
			recipient = &users[i]
			break
		}
	}
	if recipient == nil {
		return nil, internal.ErrUserNotFound
	}

	created, err := s.store.CreateSalaryTransfer(ctx, dto.ToDomain(recipient.Person(), principal.UserID, s.now().UTC()))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to log salary transfer", "paid_to", dto.PaidToUserID, "error", err)
		s.metrics.StoreError("create_salary_transfer", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "salary transfer logged", "transfer_id", created.TransferID, "paid_to", created.PaidToUserID)
	s.audit.Record(ctx, principal, "finance.salary_transfer", audit.EntitySalaryTransfer, created.TransferID, map[string]any{
		"paid_to_user_id": created.PaidToUserID,
		"month_for":       created.MonthFor,
		"amount":          created.Amount.String(),
		"currency":        created.Currency,
	})
	s.emit(ctx, principal, "salary_transfer", created.TransferID, map[string]any{
		"paidTo":   created.PaidToName,
		"monthFor": created.MonthFor,
		"amount":   created.Amount.StringFixed(2),
		"currency": created.Currency,
	})
	return created, nil
}

func (s *Service) LogExpense(ctx context.Context, principal *domain.User, dto LogExpenseRequest) (*domain.Expense, error) {
	if err := rbac.Authorize(principal, rbac.ActionLogFinance); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if id := dto.linkedTool(); id != "" {
		tool, err := s.store.GetToolByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if tool == nil {
			return nil, internal.ErrToolNotFound
		}
	}

	created, err := s.store.CreateExpense(ctx, dto.ToDomain(s.now().UTC()))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to log expense", "vendor", dto.Vendor, "error", err)
		s.metrics.StoreError("create_expense", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "expense logged", "expense_id", created.ExpenseID, "category", created.Category)
	s.audit.Record(ctx, principal, "finance.expense", audit.EntityExpense, created.ExpenseID, map[string]any{
		"vendor":   created.Vendor,
		"category": string(created.Category),
		"amount":   created.Amount.String(),
		"currency": created.Currency,
	})
	s.emit(ctx, principal, "expense", created.ExpenseID, map[string]any{
		"vendor":    created.Vendor,
		"category":  string(created.Category),
		"amount":    created.Amount.StringFixed(2),
		"currency":  created.Currency,
		"recurring": created.Recurring,
	})
	return created, nil
}

func (s *Service) emit(ctx context.Context, principal *domain.User, kind, id string, fields map[string]any) {
	p := principal.Person()
	s.bus.Publish(ctx, events.NewPortalEvent(events.EventTypeFinanceEvent, events.Notification{
		RequestType: kind,
		Event:       "logged",
		ID:          id,
		Requester:   events.Party{UserID: p.UserID, Name: p.Name, Email: p.Email},
		Fields:      fields,
		Timestamp:   s.now().UTC(),
		DeepLink:    deepLink,
	}))
}
