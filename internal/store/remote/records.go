package remote

import (
	"encoding/json"
	"time"

	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/shopspring/decimal"
)

// linkedID accepts either a plain string or a linked-record array, which is
// how the store returns reference fields once they are linked to another table.
type linkedID string

func (l *linkedID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*l = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = linkedID(s)
		return nil
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	*l = ""
	if len(ids) > 0 {
		*l = linkedID(ids[0])
	}
	return nil
}

func (l linkedID) ptr() *string {
	if l == "" {
		return nil
	}
	s := string(l)
	return &s
}

func deref(s *string) linkedID {
	if s == nil {
		return ""
	}
	return linkedID(*s)
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func parseDate(s string) time.Time {
	if t := parseTime(s); t != nil {
		return *t
	}
	return time.Time{}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDate(*t)
}

type userFields struct {
	UserID       string `json:"userId"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Role         string `json:"role,omitempty"`
	Status       string `json:"status,omitempty"`
	LastLoginAt  string `json:"lastLoginAt,omitempty"`
}

func (f userFields) toDomain() domain.User {
	role, err := domain.ParseRole(f.Role)
	if err != nil {
		role = domain.RoleEmployee
	}
	status := domain.UserStatus(f.Status)
	if !status.IsValid() {
		status = domain.UserStatusActive
	}
	return domain.User{
		UserID:       f.UserID,
		Name:         f.Name,
		Email:        f.Email,
		PasswordHash: f.PasswordHash,
		Role:         role,
		Status:       status,
		LastLoginAt:  parseTime(f.LastLoginAt),
	}
}

func userFieldsFrom(u domain.User) userFields {
	return userFields{
		UserID:       u.UserID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Status:       string(u.Status),
		LastLoginAt:  formatTimePtr(u.LastLoginAt),
	}
}

type employeeFields struct {
	EmployeeID     string   `json:"employeeId"`
	UserID         linkedID `json:"userId"`
	Department     string   `json:"department,omitempty"`
	ManagerID      linkedID `json:"managerId,omitempty"`
	JoiningDate    string   `json:"joiningDate,omitempty"`
	EmploymentType string   `json:"employmentType,omitempty"`
	WorkLocation   string   `json:"workLocation,omitempty"`
	Timezone       string   `json:"timezone,omitempty"`
	Birthday       string   `json:"birthday,omitempty"`
}

func (f employeeFields) toDomain() domain.Employee {
	return domain.Employee{
		EmployeeID:     f.EmployeeID,
		UserID:         string(f.UserID),
		Department:     f.Department,
		ManagerID:      f.ManagerID.ptr(),
		JoiningDate:    parseTime(f.JoiningDate),
		EmploymentType: domain.EmploymentType(f.EmploymentType),
		WorkLocation:   f.WorkLocation,
		Timezone:       f.Timezone,
		Birthday:       parseTime(f.Birthday),
	}
}

func employeeFieldsFrom(e domain.Employee) employeeFields {
	return employeeFields{
		EmployeeID:     e.EmployeeID,
		UserID:         linkedID(e.UserID),
		Department:     e.Department,
		ManagerID:      deref(e.ManagerID),
		JoiningDate:    formatDatePtr(e.JoiningDate),
		EmploymentType: string(e.EmploymentType),
		WorkLocation:   e.WorkLocation,
		Timezone:       e.Timezone,
		Birthday:       formatDatePtr(e.Birthday),
	}
}

type toolFields struct {
	ToolID          string          `json:"toolId"`
	Name            string          `json:"name"`
	Category        string          `json:"category,omitempty"`
	BillingCycle    string          `json:"billingCycle,omitempty"`
	Cost            decimal.Decimal `json:"cost"`
	Currency        string          `json:"currency,omitempty"`
	RenewalDate     string          `json:"renewalDate,omitempty"`
	OwnerRole       string          `json:"ownerRole,omitempty"`
	VisibilityLevel string          `json:"visibilityLevel,omitempty"`
	SeatsTotal      int             `json:"seatsTotal,omitempty"`
	Status          string          `json:"status,omitempty"`
	Vendor          string          `json:"vendor,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

func (f toolFields) toDomain() domain.Tool {
	owner, _ := domain.ParseRole(f.OwnerRole)
	visibility := domain.Visibility(f.VisibilityLevel)
	if !visibility.IsValid() {
		visibility = domain.VisibilityCompanyShared
	}
	return domain.Tool{
		ToolID:          f.ToolID,
		Name:            f.Name,
		Category:        f.Category,
		BillingCycle:    domain.BillingCycle(f.BillingCycle),
		Cost:            f.Cost,
		Currency:        f.Currency,
		RenewalDate:     parseTime(f.RenewalDate),
		OwnerRole:       owner,
		VisibilityLevel: visibility,
		SeatsTotal:      f.SeatsTotal,
		Status:          domain.ToolStatus(f.Status),
		Vendor:          f.Vendor,
		Notes:           f.Notes,
	}
}

func toolFieldsFrom(t domain.Tool) toolFields {
	return toolFields{
		ToolID:          t.ToolID,
		Name:            t.Name,
		Category:        t.Category,
		BillingCycle:    string(t.BillingCycle),
		Cost:            t.Cost,
		Currency:        t.Currency,
		RenewalDate:     formatDatePtr(t.RenewalDate),
		OwnerRole:       string(t.OwnerRole),
		VisibilityLevel: string(t.VisibilityLevel),
		SeatsTotal:      t.SeatsTotal,
		Status:          string(t.Status),
		Vendor:          t.Vendor,
		Notes:           t.Notes,
	}
}

type toolRequestFields struct {
	RequestID     string   `json:"requestId"`
	UserID        linkedID `json:"userId"`
	ToolName      string   `json:"toolName"`
	Justification string   `json:"justification,omitempty"`
	ExpectedUsers int      `json:"expectedUsers,omitempty"`
	Urgency       string   `json:"urgency,omitempty"`
	Status        string   `json:"status"`
	ApproverID    linkedID `json:"approverId,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	CreatedAt     string   `json:"createdAt,omitempty"`
	ActionedAt    string   `json:"actionedAt,omitempty"`
}

func (f toolRequestFields) toDomain() domain.ToolRequest {
	status, err := domain.ParseToolRequestStatus(f.Status)
	if err != nil {
		status = domain.ToolRequestRequested
	}
	return domain.ToolRequest{
		RequestID:     f.RequestID,
		UserID:        string(f.UserID),
		ToolName:      f.ToolName,
		Justification: f.Justification,
		ExpectedUsers: f.ExpectedUsers,
		Urgency:       domain.Urgency(f.Urgency),
		Status:        status,
		ApproverID:    f.ApproverID.ptr(),
		Notes:         f.Notes,
		CreatedAt:     parseDate(f.CreatedAt),
		ActionedAt:    parseTime(f.ActionedAt),
	}
}

func toolRequestFieldsFrom(r domain.ToolRequest) toolRequestFields {
	return toolRequestFields{
		RequestID:     r.RequestID,
		UserID:        linkedID(r.UserID),
		ToolName:      r.ToolName,
		Justification: r.Justification,
		ExpectedUsers: r.ExpectedUsers,
		Urgency:       string(r.Urgency),
		Status:        string(r.Status),
		ApproverID:    deref(r.ApproverID),
		Notes:         r.Notes,
		CreatedAt:     formatTime(r.CreatedAt),
		ActionedAt:    formatTimePtr(r.ActionedAt),
	}
}

type toolPaymentFields struct {
	PaymentID    string          `json:"paymentId"`
	ToolID       linkedID        `json:"toolId"`
	PaymentDate  string          `json:"paymentDate,omitempty"`
	MonthFor     string          `json:"monthFor,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
	PaidByUserID linkedID        `json:"paidByUserId,omitempty"`
	Method       string          `json:"method,omitempty"`
	ReferenceID  string          `json:"referenceId,omitempty"`
	InvoiceLink  string          `json:"invoiceLink,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
}

func (f toolPaymentFields) toDomain() domain.ToolPayment {
	return domain.ToolPayment{
		PaymentID:    f.PaymentID,
		ToolID:       string(f.ToolID),
		PaymentDate:  parseDate(f.PaymentDate),
		MonthFor:     f.MonthFor,
		Amount:       f.Amount,
		Currency:     f.Currency,
		PaidByUserID: string(f.PaidByUserID),
		Method:       f.Method,
		ReferenceID:  f.ReferenceID,
		InvoiceLink:  f.InvoiceLink,
		Notes:        f.Notes,
		CreatedAt:    parseDate(f.CreatedAt),
	}
}

func toolPaymentFieldsFrom(p domain.ToolPayment) toolPaymentFields {
	return toolPaymentFields{
		PaymentID:    p.PaymentID,
		ToolID:       linkedID(p.ToolID),
		PaymentDate:  formatDate(p.PaymentDate),
		MonthFor:     p.MonthFor,
		Amount:       p.Amount,
		Currency:     p.Currency,
		PaidByUserID: linkedID(p.PaidByUserID),
		Method:       p.Method,
		ReferenceID:  p.ReferenceID,
		InvoiceLink:  p.InvoiceLink,
		Notes:        p.Notes,
		CreatedAt:    formatTime(p.CreatedAt),
	}
}

type leaveFields struct {
	LeaveID    string   `json:"leaveId"`
	UserID     linkedID `json:"userId"`
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	LeaveType  string   `json:"leaveType,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Status     string   `json:"status"`
	ApproverID linkedID `json:"approverId,omitempty"`
	Notes      string   `json:"notes,omitempty"`
	CreatedAt  string   `json:"createdAt,omitempty"`
	ActionedAt string   `json:"actionedAt,omitempty"`
}

func (f leaveFields) toDomain() domain.LeaveRequest {
	status, err := domain.ParseLeaveStatus(f.Status)
	if err != nil {
		status = domain.LeaveRequested
	}
	return domain.LeaveRequest{
		LeaveID:    f.LeaveID,
		UserID:     string(f.UserID),
		StartDate:  parseDate(f.StartDate),
		EndDate:    parseDate(f.EndDate),
		LeaveType:  f.LeaveType,
		Reason:     f.Reason,
		Status:     status,
		ApproverID: f.ApproverID.ptr(),
		Notes:      f.Notes,
		CreatedAt:  parseDate(f.CreatedAt),
		ActionedAt: parseTime(f.ActionedAt),
	}
}

func leaveFieldsFrom(l domain.LeaveRequest) leaveFields {
	return leaveFields{
		LeaveID:    l.LeaveID,
		UserID:     linkedID(l.UserID),
		StartDate:  formatDate(l.StartDate),
		EndDate:    formatDate(l.EndDate),
		LeaveType:  l.LeaveType,
		Reason:     l.Reason,
		Status:     string(l.Status),
		ApproverID: deref(l.ApproverID),
		Notes:      l.Notes,
		CreatedAt:  formatTime(l.CreatedAt),
		ActionedAt: formatTimePtr(l.ActionedAt),
	}
}

type expenseFields struct {
	ExpenseID    string          `json:"expenseId"`
	Date         string          `json:"date"`
	Vendor       string          `json:"vendor,omitempty"`
	Category     string          `json:"category,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
	Recurring    string          `json:"recurring,omitempty"`
	LinkedToolID linkedID        `json:"linkedToolId,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
}

func (f expenseFields) toDomain() domain.Expense {
	return domain.Expense{
		ExpenseID:    f.ExpenseID,
		Date:         parseDate(f.Date),
		Vendor:       f.Vendor,
		Category:     domain.ExpenseCategory(f.Category),
		Amount:       f.Amount,
		Currency:     f.Currency,
		Recurring:    f.Recurring == "Y",
		LinkedToolID: f.LinkedToolID.ptr(),
		Notes:        f.Notes,
		CreatedAt:    parseDate(f.CreatedAt),
	}
}

func expenseFieldsFrom(e domain.Expense) expenseFields {
	recurring := "N"
	if e.Recurring {
		recurring = "Y"
	}
	return expenseFields{
		ExpenseID:    e.ExpenseID,
		Date:         formatDate(e.Date),
		Vendor:       e.Vendor,
		Category:     string(e.Category),
		Amount:       e.Amount,
		Currency:     e.Currency,
		Recurring:    recurring,
		LinkedToolID: deref(e.LinkedToolID),
		Notes:        e.Notes,
		CreatedAt:    formatTime(e.CreatedAt),
	}
}

type salaryTransferFields struct {
	TransferID      string          `json:"transferId"`
	Date            string          `json:"date"`
	PaidToUserID    linkedID        `json:"paidToUserId"`
	PaidToName      string          `json:"paidToName,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency,omitempty"`
	MonthFor        string          `json:"monthFor,omitempty"`
	Method          string          `json:"method,omitempty"`
	ReferenceID     string          `json:"referenceId,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedByUserID linkedID        `json:"createdByUserId,omitempty"`
	CreatedAt       string          `json:"createdAt,omitempty"`
}

func (f salaryTransferFields) toDomain() domain.SalaryTransfer {
	return domain.SalaryTransfer{
		TransferID:      f.TransferID,
		Date:            parseDate(f.Date),
		PaidToUserID:    string(f.PaidToUserID),
		PaidToName:      f.PaidToName,
		Amount:          f.Amount,
		Currency:        f.Currency,
		MonthFor:        f.MonthFor,
		Method:          f.Method,
		ReferenceID:     f.ReferenceID,
		Notes:           f.Notes,
		CreatedByUserID: string(f.CreatedByUserID),
		CreatedAt:       parseDate(f.CreatedAt),
	}
}

func salaryTransferFieldsFrom(t domain.SalaryTransfer) salaryTransferFields {
	return salaryTransferFields{
		TransferID:      t.TransferID,
		Date:            formatDate(t.Date),
		PaidToUserID:    linkedID(t.PaidToUserID),
		PaidToName:      t.PaidToName,
		Amount:          t.Amount,
		Currency:        t.Currency,
		MonthFor:        t.MonthFor,
		Method:          t.Method,
		ReferenceID:     t.ReferenceID,
		Notes:           t.Notes,
		CreatedByUserID: linkedID(t.CreatedByUserID),
		CreatedAt:       formatTime(t.CreatedAt),
	}
}

type auditFields struct {
	LogID       string `json:"logId"`
	Action      string `json:"action"`
	PerformedBy string `json:"performedBy"`
	EntityType  string `json:"entityType"`
	EntityID    string `json:"entityId"`
	Timestamp   string `json:"timestamp"`
	DetailsJSON string `json:"detailsJson,omitempty"`
}

func (f auditFields) toDomain() domain.AuditLog {
	var details json.RawMessage
	if f.DetailsJSON != "" && json.Valid([]byte(f.DetailsJSON)) {
		details = json.RawMessage(f.DetailsJSON)
	}
	return domain.AuditLog{
		LogID:       f.LogID,
		Action:      f.Action,
		PerformedBy: f.PerformedBy,
		EntityType:  f.EntityType,
		EntityID:    f.EntityID,
		Timestamp:   parseDate(f.Timestamp),
		Details:     details,
	}
}
