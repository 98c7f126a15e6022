// Package postgres implements the store adapter on a relational database
// through gorm. Production runs on Postgres; tests and local setups run the
// same code on SQLite.
package postgres

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/ops-portal/internal/core/datamodel/ledger"
	"github.com/frahmantamala/ops-portal/internal/core/datamodel/request"
	"github.com/frahmantamala/ops-portal/internal/core/datamodel/tool"
	"github.com/frahmantamala/ops-portal/internal/core/datamodel/user"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Adapter struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
	hash   func(secret string) (string, error)
}

var _ store.Adapter = (*Adapter)(nil)

type Option func(*Adapter)

func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(a *Adapter) { a.newID = newID }
}

// WithBCryptCost sets the cost used when fixtures are hashed.
func WithBCryptCost(cost int) Option {
	return func(a *Adapter) {
		a.hash = func(secret string) (string, error) {
			h, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
			return string(h), err
		}
	}
}

func NewAdapter(db *gorm.DB, logger *slog.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		db:     db,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	WithBCryptCost(bcrypt.DefaultCost)(a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Models lists every row type the adapter persists, in dependency order.
func Models() []any {
	return []any{
		&user.User{},
		&user.Employee{},
		&tool.Tool{},
		&request.ToolRequest{},
		&request.LeaveRequest{},
		&ledger.ToolPayment{},
		&ledger.Expense{},
		&ledger.SalaryTransfer{},
		&ledger.AuditLog{},
	}
}

// AutoMigrate creates the schema from the row types. Postgres deployments use
// the goose migrations instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func (a *Adapter) Variant() store.Variant { return store.VariantSQL }

func (a *Adapter) conn(ctx context.Context) *gorm.DB {
	return a.db.WithContext(ctx)
}

// classify folds driver errors into the store taxonomy. gorm must be opened
// with TranslateError so constraint failures arrive as gorm sentinels.
func classify(op, entity string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return store.Rejected(op, entity, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.NotFound(op, entity, "")
	case isConstraintOrDataError(err):
		return store.Rejected(op, entity, err)
	default:
		return store.Unavailable(op, entity, err)
	}
}

// isConstraintOrDataError matches Postgres SQLSTATE classes 22 (data exception)
// and 23 (integrity constraint violation).
func isConstraintOrDataError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")
}

func (a *Adapter) updateByKey(ctx context.Context, op, entity string, model any, keyColumn, key string, fields map[string]any) error {
	res := a.conn(ctx).Model(model).Where(keyColumn+" = ?", key).Updates(fields)
	if res.Error != nil {
		return classify(op, entity, res.Error)
	}
	if res.RowsAffected == 0 {
		return store.NotFound(op, entity, key)
	}
	return nil
}

func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var rows []user.User
	err := a.conn(ctx).
		Where("LOWER(email) = ?", domain.NormalizeEmail(email)).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, classify("get_by_email", "user", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	u := userFromModel(rows[0])
	return &u, nil
}

func (a *Adapter) ListUsers(ctx context.Context) ([]domain.User, error) {
	var rows []user.User
	if err := a.conn(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, classify("list", "user", err)
	}
	return mapSlice(rows, userFromModel), nil
}

func (a *Adapter) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	u.UserID = a.newID()
	row := userToModel(u)
	if err := a.conn(ctx).Create(&row).Error; err != nil {
		return nil, classify("create", "user", err)
	}
	created := userFromModel(row)
	return &created, nil
}

func (a *Adapter) UpdateUser(ctx context.Context, userID string, patch domain.UserPatch) error {
	fields := map[string]any{}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.Email != nil {
		fields["email"] = domain.NormalizeEmail(*patch.Email)
	}
	if patch.PasswordHash != nil {
		fields["password_hash"] = *patch.PasswordHash
	}
	if patch.Role != nil {
		fields["role"] = string(*patch.Role)
	}
	if patch.Status != nil {
		fields["status"] = string(*patch.Status)
	}
	if len(fields) == 0 {
		return nil
	}
	return a.updateByKey(ctx, "update", "user", &user.User{}, "user_id", userID, fields)
}

func (a *Adapter) UpdateUserLastLogin(ctx context.Context, userID string, at time.Time) error {
	return a.updateByKey(ctx, "update_last_login", "user", &user.User{}, "user_id", userID, map[string]any{
		"last_login_at": at,
	})
}

func (a *Adapter) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	var rows []user.Employee
	if err := a.conn(ctx).Find(&rows).Error; err != nil {
		return nil, classify("list", "employee", err)
	}
	return mapSlice(rows, employeeFromModel), nil
}

func (a *Adapter) CreateEmployee(ctx context.Context, e domain.Employee) (*domain.Employee, error) {
	e.EmployeeID = a.newID()
	row := employeeToModel(e)
	if err := a.conn(ctx).Create(&row).Error; err != nil {
		return nil, classify("create", "employee", err)
	}
	created := employeeFromModel(row)
	return &created, nil
}

func (a *Adapter) ListTools(ctx context.Context) ([]domain.Tool, error) {
	var rows []tool.Tool
	if err := a.conn(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, classify("list", "tool", err)
	}
	return mapSlice(rows, toolFromModel), nil
}

func (a *Adapter) GetToolByID(ctx context.Context, toolID string) (*domain.Tool, error) {
	var rows []tool.Tool
	if err := a.conn(ctx).Where("tool_id = ?", toolID).Limit(1).Find(&rows).Error; err != nil {
		return nil, classify("get", "tool", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	t := toolFromModel(rows[0])
	return &t, nil
}

func (a *Adapter) CreateTool(ctx context.Context, t domain.Tool) (*domain.Tool, error) {
	t.ToolID = a.newID()
	row := toolToModel(t)
	if err := a.conn(ctx).Create(&row).Error; err != nil {
		return nil, classify("create", "tool", err)
	}
	created := toolFromModel(row)
	return &created, nil
}

func (a *Adapter) ListToolRequests(ctx context.Context) ([]domain.ToolRequest, error) {
	var rows []request.ToolRequest
	if err := a.conn(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, classify("list", "tool_request", err)
	}
	return mapSlice(rows, toolRequestFromModel), nil
}

func (a *Adapter) CreateToolRequest(ctx context.Context, r domain.ToolRequest) (*domain.ToolRequest, error) {
	r.RequestID = a.newID()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = a.now()
	}
	row := toolRequestToModel(r)
	if err := a.conn(ctx).Create(&row).Error; err != nil {
		return nil, classify("create", "tool_request", err)
	}
	created := toolRequestFromModel(row)
	return &created, nil
}

func (a *Adapter) UpdateToolRequestStatus(ctx context.Context, requestID string, u domain.ToolRequestUpdate) error {
	return a.updateByKey(ctx, "update_status", "tool_request", &request.ToolRequest{}, "request_id", requestID, map[string]any{
		"status":      string(u.Status),
		"approver_id": u.ApproverID,
		"notes":       u.Notes,
		"actioned_at": u.ActionedAt,
	})
}

func (a *Adapter) ListToolPayments(ctx context.Context) ([]domain.ToolPayment, error) {
	var rows []ledger.ToolPayment
	if err := a.conn(ctx).Order("payment_date DESC").Find(&rows).Error; err != nil {
		return nil, classify("list", "tool_payment", err)
	}
	return mapSlice(rows, paymentFromModel), nil
}

func (a *Adapter) CreateToolPayment(ctx context.Context, p domain.ToolPayment) (*domain.ToolPayment, error) {
	p.PaymentID = a.newID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = a.now()
	}
	row := paymentToModel(p)
	if err := a.conn(ctx).Create(&row).Error; err != nil {
		return nil, classify("create", "tool_payment", err)
	}
	created := paymentFromModel(row)
	return &created, nil
}

func (a *Adapter) ListLeaveRequests(ctx context.Context) ([]domain.LeaveRequest, error) {
	var rows []request.LeaveRequest
	if err := a.conn(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, classify("list", "leave_request", err)
	}
	return mapSlice(rows, leaveFromModel), nil
}

func (a *Adapter) CreateLeaveRequest(ctx context.Context, l domain.LeaveRequest) (*domain.LeaveRequest, error) {
	l.LeaveID = a.newID()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = a.now()
	}
	row := leaveToModel(l)
	if err := a.conn(ctx).Create(&row).Error; err != nil {
		return nil, classify("create", "leave_request", err)
	}
	created := leaveFromModel(row)
	return &created, nil
}

func (a *Adapter) UpdateLeaveRequestStatus(ctx context.Context, leaveID string, u domain.LeaveRequestUpdate) error {
	return a.updateByKey(ctx, "update_status", "leave_request", &request.LeaveRequest{}, "leave_id", leaveID, map[string]any{
		"status":      string(u.Status),
		"approver_id": u.ApproverID,
		"notes":       u.Notes,
		"actioned_at": u.ActionedAt,
	})
}

func (a *Adapter) ListExpenses(ctx context.Context, r domain.DateRange) ([]domain.Expense, error) {
	q := a.conn(ctx).Order("date DESC")
	if !r.From.IsZero() {
		q = q.Where("date >= ?", r.From)
	}
	if !r.To.IsZero() {
		q = q.Where("date <= ?", r.To)
	}
	var rows []ledger.Expense
	if err := q.Find(&rows).Error; err != nil {
		return nil, classify("list", "expense", err)
	}
	return mapSlice(rows, expenseFromModel), nil
}

func (a *Adapter) CreateExpense(ctx context.Context, e domain.Expense) (*domain.Expense, error) {
	e.ExpenseID = a.newID()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = a.now()
	}
	row := expenseToModel(e)
	if err := a.conn(ctx).Create(&row).Error; err != nil {
		return nil, classify("create", "expense", err)
	}
	created := expenseFromModel(row)
	return &created, nil
}

func (a *Adapter) CreateSalaryTransfer(ctx context.Context, t domain.SalaryTransfer) (*domain.SalaryTransfer, error) {
	t.TransferID = a.newID()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = a.now()
	}
	row := transferToModel(t)
	if err := a.conn(ctx).Create(&row).Error; err != nil {
		return nil, classify("create", "salary_transfer", err)
	}
	created := transferFromModel(row)
	return &created, nil
}

func (a *Adapter) ListSalaryTransfers(ctx context.Context) ([]domain.SalaryTransfer, error) {
	var rows []ledger.SalaryTransfer
	if err := a.conn(ctx).Order("date DESC").Find(&rows).Error; err != nil {
		return nil, classify("list", "salary_transfer", err)
	}
	return mapSlice(rows, transferFromModel), nil
}

func (a *Adapter) ListAuditLogs(ctx context.Context) ([]domain.AuditLog, error) {
	var rows []ledger.AuditLog
	if err := a.conn(ctx).Order("timestamp DESC").Find(&rows).Error; err != nil {
		return nil, classify("list", "audit_log", err)
	}
	return mapSlice(rows, auditFromModel), nil
}

func (a *Adapter) WriteAuditLog(ctx context.Context, e domain.AuditEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = a.now()
	}
	row := auditToModel(a.newID(), e)
	return classify("write", "audit_log", a.conn(ctx).Create(&row).Error)
}

// ResetDemoData wipes every table and reloads the demo fixtures in one transaction.
func (a *Adapter) ResetDemoData(ctx context.Context) error {
	fx, err := DemoFixtures(a.now(), a.newID, a.hash)
	if err != nil {
		return store.Rejected("reset_demo_data", "all", err)
	}

	err = a.conn(ctx).Transaction(func(tx *gorm.DB) error {
		models := Models()
		for i := len(models) - 1; i >= 0; i-- {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(models[i]).Error; err != nil {
				return err
			}
		}
		return fx.insert(tx)
	})
	if err != nil {
		return classify("reset_demo_data", "all", err)
	}

	a.logger.InfoContext(ctx, "demo data reset",
		"users", len(fx.Users),
		"tools", len(fx.Tools),
		"tool_requests", len(fx.ToolRequests))
	return nil
}

// SeedDemoData loads the fixtures into an empty database and leaves existing data untouched.
func (a *Adapter) SeedDemoData(ctx context.Context) (bool, error) {
	var count int64
	if err := a.conn(ctx).Model(&user.User{}).Count(&count).Error; err != nil {
		return false, classify("seed", "user", err)
	}
	if count > 0 {
		return false, nil
	}

	fx, err := DemoFixtures(a.now(), a.newID, a.hash)
	if err != nil {
		return false, store.Rejected("seed", "all", err)
	}
	if err := a.conn(ctx).Transaction(fx.insert); err != nil {
		return false, classify("seed", "all", err)
	}
	return true, nil
}
