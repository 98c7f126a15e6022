package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/store"
)

func decodeRecords[F any, D any](op, table string, recs []record, conv func(F) D) ([]D, error) {
	out := make([]D, 0, len(recs))
	for _, rec := range recs {
		var f F
		if err := json.Unmarshal(rec.Fields, &f); err != nil {
			return nil, store.Unavailable(op, table, fmt.Errorf("decode record %s: %w", rec.ID, err))
		}
		out = append(out, conv(f))
	}
	return out, nil
}

func decodeOne[F any, D any](op, table string, rec *record, conv func(F) D) (*D, error) {
	items, err := decodeRecords(op, table, []record{*rec}, conv)
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	q := url.Values{}
	q.Set("filterByFormula", fmt.Sprintf("LOWER({email})='%s'", escapeFormula(domain.NormalizeEmail(email))))
	q.Set("maxRecords", "1")

	recs, err := a.list(ctx, "get_by_email", tableUsers, q)
	if err != nil {
		return nil, err
	}
	users, err := decodeRecords("get_by_email", tableUsers, recs, userFields.toDomain)
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return &users[0], nil
}

func (a *Adapter) ListUsers(ctx context.Context) ([]domain.User, error) {
	recs, err := a.list(ctx, "list", tableUsers, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecords("list", tableUsers, recs, userFields.toDomain)
}

func (a *Adapter) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	u.UserID = a.newID()
	u.Email = domain.NormalizeEmail(u.Email)
	rec, err := a.create(ctx, "create", tableUsers, userFieldsFrom(u))
	if err != nil {
		return nil, err
	}
	return decodeOne("create", tableUsers, rec, userFields.toDomain)
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
		fields["passwordHash"] = *patch.PasswordHash
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
	return a.patch(ctx, "update", tableUsers, "userId", userID, fields)
}

func (a *Adapter) UpdateUserLastLogin(ctx context.Context, userID string, at time.Time) error {
	return a.patch(ctx, "update_last_login", tableUsers, "userId", userID, map[string]any{
		"lastLoginAt": formatTime(at),
	})
}

func (a *Adapter) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	recs, err := a.list(ctx, "list", tableEmployees, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecords("list", tableEmployees, recs, employeeFields.toDomain)
}

func (a *Adapter) CreateEmployee(ctx context.Context, e domain.Employee) (*domain.Employee, error) {
	e.EmployeeID = a.newID()
	rec, err := a.create(ctx, "create", tableEmployees, employeeFieldsFrom(e))
	if err != nil {
		return nil, err
	}
	return decodeOne("create", tableEmployees, rec, employeeFields.toDomain)
}

func (a *Adapter) ListTools(ctx context.Context) ([]domain.Tool, error) {
	recs, err := a.list(ctx, "list", tableTools, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecords("list", tableTools, recs, toolFields.toDomain)
}

func (a *Adapter) GetToolByID(ctx context.Context, toolID string) (*domain.Tool, error) {
	recs, err := a.list(ctx, "get", tableTools, byField("toolId", toolID))
	if err != nil {
		return nil, err
	}
	tools, err := decodeRecords("get", tableTools, recs, toolFields.toDomain)
	if err != nil || len(tools) == 0 {
		return nil, err
	}
	return &tools[0], nil
}

func (a *Adapter) CreateTool(ctx context.Context, t domain.Tool) (*domain.Tool, error) {
	t.ToolID = a.newID()
	rec, err := a.create(ctx, "create", tableTools, toolFieldsFrom(t))
	if err != nil {
		return nil, err
	}
	return decodeOne("create", tableTools, rec, toolFields.toDomain)
}

func (a *Adapter) ListToolRequests(ctx context.Context) ([]domain.ToolRequest, error) {
	recs, err := a.list(ctx, "list", tableToolRequests, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecords("list", tableToolRequests, recs, toolRequestFields.toDomain)
}

func (a *Adapter) CreateToolRequest(ctx context.Context, r domain.ToolRequest) (*domain.ToolRequest, error) {
	r.RequestID = a.newID()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = a.now()
	}
	rec, err := a.create(ctx, "create", tableToolRequests, toolRequestFieldsFrom(r))
	if err != nil {
		return nil, err
	}
	return decodeOne("create", tableToolRequests, rec, toolRequestFields.toDomain)
}

func (a *Adapter) UpdateToolRequestStatus(ctx context.Context, requestID string, u domain.ToolRequestUpdate) error {
	return a.patch(ctx, "update_status", tableToolRequests, "requestId", requestID, map[string]any{
		"status":     string(u.Status),
		"approverId": u.ApproverID,
		"notes":      u.Notes,
		"actionedAt": formatTime(u.ActionedAt),
	})
}

func (a *Adapter) ListToolPayments(ctx context.Context) ([]domain.ToolPayment, error) {
	recs, err := a.list(ctx, "list", tableToolPayments, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecords("list", tableToolPayments, recs, toolPaymentFields.toDomain)
}

func (a *Adapter) CreateToolPayment(ctx context.Context, p domain.ToolPayment) (*domain.ToolPayment, error) {
	p.PaymentID = a.newID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = a.now()
	}
	rec, err := a.create(ctx, "create", tableToolPayments, toolPaymentFieldsFrom(p))
	if err != nil {
		return nil, err
	}
	return decodeOne("create", tableToolPayments, rec, toolPaymentFields.toDomain)
}

func (a *Adapter) ListLeaveRequests(ctx context.Context) ([]domain.LeaveRequest, error) {
	recs, err := a.list(ctx, "list", tableLeaveRequests, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecords("list", tableLeaveRequests, recs, leaveFields.toDomain)
}

func (a *Adapter) CreateLeaveRequest(ctx context.Context, l domain.LeaveRequest) (*domain.LeaveRequest, error) {
	l.LeaveID = a.newID()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = a.now()
	}
	rec, err := a.create(ctx, "create", tableLeaveRequests, leaveFieldsFrom(l))
	if err != nil {
		return nil, err
	}
	return decodeOne("create", tableLeaveRequests, rec, leaveFields.toDomain)
}

func (a *Adapter) UpdateLeaveRequestStatus(ctx context.Context, leaveID string, u domain.LeaveRequestUpdate) error {
	return a.patch(ctx, "update_status", tableLeaveRequests, "leaveId", leaveID, map[string]any{
		"status":     string(u.Status),
		"approverId": u.ApproverID,
		"notes":      u.Notes,
		"actionedAt": formatTime(u.ActionedAt),
	})
}

func (a *Adapter) ListExpenses(ctx context.Context, r domain.DateRange) ([]domain.Expense, error) {
	q := url.Values{}
	if formula := dateRangeFormula("date", r); formula != "" {
		q.Set("filterByFormula", formula)
	}
	recs, err := a.list(ctx, "list", tableExpenses, q)
	if err != nil {
		return nil, err
	}
	return decodeRecords("list", tableExpenses, recs, expenseFields.toDomain)
}

func dateRangeFormula(field string, r domain.DateRange) string {
	var conds []string
	if !r.From.IsZero() {
		conds = append(conds, fmt.Sprintf("NOT(IS_BEFORE({%s},'%s'))", field, formatDate(r.From)))
	}
	if !r.To.IsZero() {
		conds = append(conds, fmt.Sprintf("NOT(IS_AFTER({%s},'%s'))", field, formatDate(r.To)))
	}
	switch len(conds) {
	case 0:
		return ""
	case 1:
		return conds[0]
	default:
		return fmt.Sprintf("AND(%s,%s)", conds[0], conds[1])
	}
}

func (a *Adapter) CreateExpense(ctx context.Context, e domain.Expense) (*domain.Expense, error) {
	e.ExpenseID = a.newID()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = a.now()
	}
	rec, err := a.create(ctx, "create", tableExpenses, expenseFieldsFrom(e))
	if err != nil {
		return nil, err
	}
	return decodeOne("create", tableExpenses, rec, expenseFields.toDomain)
}

func (a *Adapter) CreateSalaryTransfer(ctx context.Context, t domain.SalaryTransfer) (*domain.SalaryTransfer, error) {
	t.TransferID = a.newID()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = a.now()
	}
	rec, err := a.create(ctx, "create", tableSalaryTransfers, salaryTransferFieldsFrom(t))
	if err != nil {
		return nil, err
	}
	return decodeOne("create", tableSalaryTransfers, rec, salaryTransferFields.toDomain)
}

func (a *Adapter) ListSalaryTransfers(ctx context.Context) ([]domain.SalaryTransfer, error) {
	recs, err := a.list(ctx, "list", tableSalaryTransfers, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecords("list", tableSalaryTransfers, recs, salaryTransferFields.toDomain)
}

func (a *Adapter) ListAuditLogs(ctx context.Context) ([]domain.AuditLog, error) {
	q := url.Values{}
	q.Set("sort[0][field]", "timestamp")
	q.Set("sort[0][direction]", "desc")
	recs, err := a.list(ctx, "list", tableAuditLogs, q)
	if err != nil {
		return nil, err
	}
	return decodeRecords("list", tableAuditLogs, recs, auditFields.toDomain)
}

func (a *Adapter) WriteAuditLog(ctx context.Context, e domain.AuditEntry) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = a.now()
	}
	_, err := a.create(ctx, "write", tableAuditLogs, auditFields{
		LogID:       a.newID(),
		Action:      e.Action,
		PerformedBy: e.PerformedBy,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Timestamp:   formatTime(ts),
		DetailsJSON: string(e.Details),
	})
	return err
}

// ResetDemoData is never offered against a live store.
func (a *Adapter) ResetDemoData(context.Context) error {
	return store.NotImplemented("reset_demo_data", "all")
}
