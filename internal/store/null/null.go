// Package null provides the adapter used when no store is configured:
// reads come back empty and writes fail with store.ErrNotImplemented.
package null

import (
	"context"
	"time"

	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/store"
)

type Adapter struct{}

var _ store.Adapter = (*Adapter)(nil)

func NewAdapter() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Variant() store.Variant { return store.VariantNull }

func (a *Adapter) GetUserByEmail(context.Context, string) (*domain.User, error) {
	return nil, nil
}

func (a *Adapter) ListUsers(context.Context) ([]domain.User, error) {
	return []domain.User{}, nil
}

func (a *Adapter) CreateUser(context.Context, domain.User) (*domain.User, error) {
	return nil, store.NotImplemented("create", "user")
}

func (a *Adapter) UpdateUser(context.Context, string, domain.UserPatch) error {
	return store.NotImplemented("update", "user")
}

func (a *Adapter) UpdateUserLastLogin(context.Context, string, time.Time) error {
	return store.NotImplemented("update_last_login", "user")
}

func (a *Adapter) ListEmployees(context.Context) ([]domain.Employee, error) {
	return []domain.Employee{}, nil
}

func (a *Adapter) CreateEmployee(context.Context, domain.Employee) (*domain.Employee, error) {
	return nil, store.NotImplemented("create", "employee")
}

func (a *Adapter) ListTools(context.Context) ([]domain.Tool, error) {
	return []domain.Tool{}, nil
}

func (a *Adapter) GetToolByID(context.Context, string) (*domain.Tool, error) {
	return nil, nil
}

func (a *Adapter) CreateTool(context.Context, domain.Tool) (*domain.Tool, error) {
	return nil, store.NotImplemented("create", "tool")
}

func (a *Adapter) ListToolRequests(context.Context) ([]domain.ToolRequest, error) {
	return []domain.ToolRequest{}, nil
}

func (a *Adapter) CreateToolRequest(context.Context, domain.ToolRequest) (*domain.ToolRequest, error) {
	return nil, store.NotImplemented("create", "tool_request")
}

func (a *Adapter) UpdateToolRequestStatus(context.Context, string, domain.ToolRequestUpdate) error {
	return store.NotImplemented("update_status", "tool_request")
}

func (a *Adapter) ListToolPayments(context.Context) ([]domain.ToolPayment, error) {
	return []domain.ToolPayment{}, nil
}

func (a *Adapter) CreateToolPayment(context.Context, domain.ToolPayment) (*domain.ToolPayment, error) {
	return nil, store.NotImplemented("create", "tool_payment")
}

func (a *Adapter) ListLeaveRequests(context.Context) ([]domain.LeaveRequest, error) {
	return []domain.LeaveRequest{}, nil
}

func (a *Adapter) CreateLeaveRequest(context.Context, domain.LeaveRequest) (*domain.LeaveRequest, error) {
	return nil, store.NotImplemented("create", "leave_request")
}

func (a *Adapter) UpdateLeaveRequestStatus(context.Context, string, domain.LeaveRequestUpdate) error {
	return store.NotImplemented("update_status", "leave_request")
}

func (a *Adapter) ListExpenses(context.Context, domain.DateRange) ([]domain.Expense, error) {
	return []domain.Expense{}, nil
}

func (a *Adapter) CreateExpense(context.Context, domain.Expense) (*domain.Expense, error) {
	return nil, store.NotImplemented("create", "expense")
}

func (a *Adapter) CreateSalaryTransfer(context.Context, domain.SalaryTransfer) (*domain.SalaryTransfer, error) {
	return nil, store.NotImplemented("create", "salary_transfer")
}

func (a *Adapter) ListSalaryTransfers(context.Context) ([]domain.SalaryTransfer, error) {
	return []domain.SalaryTransfer{}, nil
}

func (a *Adapter) ListAuditLogs(context.Context) ([]domain.AuditLog, error) {
	return []domain.AuditLog{}, nil
}

func (a *Adapter) WriteAuditLog(context.Context, domain.AuditEntry) error {
	return store.NotImplemented("write", "audit_log")
}

func (a *Adapter) ResetDemoData(context.Context) error {
	return store.NotImplemented("reset_demo_data", "all")
}
