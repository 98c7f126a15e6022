// Package store defines the data-access contract every backing store implements.
package store

import (
	"context"
	"time"

	"github.com/frahmantamala/ops-portal/internal/core/domain"
)

type Variant string

const (
	VariantRemote Variant = "remote"
	VariantSQL    Variant = "sql"
	VariantNull   Variant = "null"
)

// Adapter is the full capability set over portal entities. Consumers should
// depend on the narrow subset they use; implementations provide all of it.
//
// Lookups by key return (nil, nil) when nothing matches. Status updates and
// patches addressed to an unknown id return ErrNotFound.
type Adapter interface {
	Variant() Variant

	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	CreateUser(ctx context.Context, u domain.User) (*domain.User, error)
	UpdateUser(ctx context.Context, userID string, patch domain.UserPatch) error
	UpdateUserLastLogin(ctx context.Context, userID string, at time.Time) error

	ListEmployees(ctx context.Context) ([]domain.Employee, error)
	CreateEmployee(ctx context.Context, e domain.Employee) (*domain.Employee, error)

	ListTools(ctx context.Context) ([]domain.Tool, error)
	GetToolByID(ctx context.Context, toolID string) (*domain.Tool, error)
	CreateTool(ctx context.Context, t domain.Tool) (*domain.Tool, error)

	ListToolRequests(ctx context.Context) ([]domain.ToolRequest, error)
	CreateToolRequest(ctx context.Context, r domain.ToolRequest) (*domain.ToolRequest, error)
	UpdateToolRequestStatus(ctx context.Context, requestID string, u domain.ToolRequestUpdate) error

	ListToolPayments(ctx context.Context) ([]domain.ToolPayment, error)
	CreateToolPayment(ctx context.Context, p domain.ToolPayment) (*domain.ToolPayment, error)

	ListLeaveRequests(ctx context.Context) ([]domain.LeaveRequest, error)
	CreateLeaveRequest(ctx context.Context, l domain.LeaveRequest) (*domain.LeaveRequest, error)
	UpdateLeaveRequestStatus(ctx context.Context, leaveID string, u domain.LeaveRequestUpdate) error

	ListExpenses(ctx context.Context, r domain.DateRange) ([]domain.Expense, error)
	CreateExpense(ctx context.Context, e domain.Expense) (*domain.Expense, error)

	CreateSalaryTransfer(ctx context.Context, t domain.SalaryTransfer) (*domain.SalaryTransfer, error)
	ListSalaryTransfers(ctx context.Context) ([]domain.SalaryTransfer, error)

	ListAuditLogs(ctx context.Context) ([]domain.AuditLog, error)
	WriteAuditLog(ctx context.Context, e domain.AuditEntry) error

	ResetDemoData(ctx context.Context) error
}

// Credentials is the subset of configuration that decides which variant runs.
type Credentials struct {
	RemoteBaseID   string
	RemoteToken    string
	DatabaseSource string
}

// Select picks the variant once at startup: the remote store when both of its
// credentials are present, then a configured database, otherwise the null store.
func Select(c Credentials) Variant {
	switch {
	case c.RemoteBaseID != "" && c.RemoteToken != "":
		return VariantRemote
	case c.DatabaseSource != "":
		return VariantSQL
	default:
		return VariantNull
	}
}
