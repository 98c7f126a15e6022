package postgres

import (
	"encoding/json"

	"github.com/frahmantamala/ops-portal/internal/core/datamodel/ledger"
	"github.com/frahmantamala/ops-portal/internal/core/datamodel/request"
	"github.com/frahmantamala/ops-portal/internal/core/datamodel/tool"
	"github.com/frahmantamala/ops-portal/internal/core/datamodel/user"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"gorm.io/datatypes"
)

func userFromModel(m user.User) domain.User {
	role, err := domain.ParseRole(m.Role)
	if err != nil {
		role = domain.RoleEmployee
	}
	return domain.User{
		UserID:       m.UserID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         role,
		Status:       domain.UserStatus(m.Status),
		LastLoginAt:  m.LastLoginAt,
	}
}

func userToModel(u domain.User) user.User {
	return user.User{
		UserID:       u.UserID,
		Name:         u.Name,
		Email:        domain.NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Status:       string(u.Status),
		LastLoginAt:  u.LastLoginAt,
	}
}

func employeeFromModel(m user.Employee) domain.Employee {
	return domain.Employee{
		EmployeeID:     m.EmployeeID,
		UserID:         m.UserID,
		Department:     m.Department,
		ManagerID:      m.ManagerID,
		JoiningDate:    m.JoiningDate,
		EmploymentType: domain.EmploymentType(m.EmploymentType),
		WorkLocation:   m.WorkLocation,
		Timezone:       m.Timezone,
		Birthday:       m.Birthday,
	}
}

func employeeToModel(e domain.Employee) user.Employee {
	return user.Employee{
		EmployeeID:     e.EmployeeID,
		UserID:         e.UserID,
		Department:     e.Department,
		ManagerID:      e.ManagerID,
		JoiningDate:    e.JoiningDate,
		EmploymentType: string(e.EmploymentType),
		WorkLocation:   e.WorkLocation,
		Timezone:       e.Timezone,
		Birthday:       e.Birthday,
	}
}

func toolFromModel(m tool.Tool) domain.Tool {
	owner, _ := domain.ParseRole(m.OwnerRole)
	return domain.Tool{
		ToolID:          m.ToolID,
		Name:            m.Name,
		Category:        m.Category,
		BillingCycle:    domain.BillingCycle(m.BillingCycle),
		Cost:            m.Cost,
		Currency:        m.Currency,
		RenewalDate:     m.RenewalDate,
		OwnerRole:       owner,
		VisibilityLevel: domain.Visibility(m.VisibilityLevel),
		SeatsTotal:      m.SeatsTotal,
		Status:          domain.ToolStatus(m.Status),
		Vendor:          m.Vendor,
		Notes:           m.Notes,
	}
}

func toolToModel(t domain.Tool) tool.Tool {
	return tool.Tool{
		ToolID:          t.ToolID,
		Name:            t.Name,
		Category:        t.Category,
		BillingCycle:    string(t.BillingCycle),
		Cost:            t.Cost,
		Currency:        t.Currency,
		RenewalDate:     t.RenewalDate,
		OwnerRole:       string(t.OwnerRole),
		VisibilityLevel: string(t.VisibilityLevel),
		SeatsTotal:      t.SeatsTotal,
		Status:          string(t.Status),
		Vendor:          t.Vendor,
		Notes:           t.Notes,
	}
}

func toolRequestFromModel(m request.ToolRequest) domain.ToolRequest {
	return domain.ToolRequest{
		RequestID:     m.RequestID,
		UserID:        m.UserID,
		ToolName:      m.ToolName,
		Justification: m.Justification,
		ExpectedUsers: m.ExpectedUsers,
		Urgency:       domain.Urgency(m.Urgency),
		Status:        domain.ToolRequestStatus(m.Status),
		ApproverID:    m.ApproverID,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt,
		ActionedAt:    m.ActionedAt,
	}
}

func toolRequestToModel(r domain.ToolRequest) request.ToolRequest {
	return request.ToolRequest{
		RequestID:     r.RequestID,
		UserID:        r.UserID,
		ToolName:      r.ToolName,
		Justification: r.Justification,
		ExpectedUsers: r.ExpectedUsers,
		Urgency:       string(r.Urgency),
		Status:        string(r.Status),
		ApproverID:    r.ApproverID,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
		ActionedAt:    r.ActionedAt,
	}
}

func leaveFromModel(m request.LeaveRequest) domain.LeaveRequest {
	return domain.LeaveRequest{
		LeaveID:    m.LeaveID,
		UserID:     m.UserID,
		StartDate:  m.StartDate,
		EndDate:    m.EndDate,
		LeaveType:  m.LeaveType,
		Reason:     m.Reason,
		Status:     domain.LeaveStatus(m.Status),
		ApproverID: m.ApproverID,
		Notes:      m.Notes,
		CreatedAt:  m.CreatedAt,
		ActionedAt: m.ActionedAt,
	}
}

func leaveToModel(l domain.LeaveRequest) request.LeaveRequest {
	return request.LeaveRequest{
		LeaveID:    l.LeaveID,
		UserID:     l.UserID,
		StartDate:  l.StartDate,
		EndDate:    l.EndDate,
		LeaveType:  l.LeaveType,
		Reason:     l.Reason,
		Status:     string(l.Status),
		ApproverID: l.ApproverID,
		Notes:      l.Notes,
		CreatedAt:  l.CreatedAt,
		ActionedAt: l.ActionedAt,
	}
}

func paymentFromModel(m ledger.ToolPayment) domain.ToolPayment {
	return domain.ToolPayment{
		PaymentID:    m.PaymentID,
		ToolID:       m.ToolID,
		PaymentDate:  m.PaymentDate,
		MonthFor:     m.MonthFor,
		Amount:       m.Amount,
		Currency:     m.Currency,
		PaidByUserID: m.PaidByUserID,
		Method:       m.Method,
		ReferenceID:  m.ReferenceID,
		InvoiceLink:  m.InvoiceLink,
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
	}
}

func paymentToModel(p domain.ToolPayment) ledger.ToolPayment {
	return ledger.ToolPayment{
		PaymentID:    p.PaymentID,
		ToolID:       p.ToolID,
		PaymentDate:  p.PaymentDate,
		MonthFor:     p.MonthFor,
		Amount:       p.Amount,
		Currency:     p.Currency,
		PaidByUserID: p.PaidByUserID,
		Method:       p.Method,
		ReferenceID:  p.ReferenceID,
		InvoiceLink:  p.InvoiceLink,
		Notes:        p.Notes,
		CreatedAt:    p.CreatedAt,
	}
}

func expenseFromModel(m ledger.Expense) domain.Expense {
	return domain.Expense{
		ExpenseID:    m.ExpenseID,
		Date:         m.Date,
		Vendor:       m.Vendor,
		Category:     domain.ExpenseCategory(m.Category),
		Amount:       m.Amount,
		Currency:     m.Currency,
		Recurring:    m.Recurring,
		LinkedToolID: m.LinkedToolID,
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
	}
}

func expenseToModel(e domain.Expense) ledger.Expense {
	return ledger.Expense{
		ExpenseID:    e.ExpenseID,
		Date:         e.Date,
		Vendor:       e.Vendor,
		Category:     string(e.Category),
		Amount:       e.Amount,
		Currency:     e.Currency,
		Recurring:    e.Recurring,
		LinkedToolID: e.LinkedToolID,
		Notes:        e.Notes,
		CreatedAt:    e.CreatedAt,
	}
}

func transferFromModel(m ledger.SalaryTransfer) domain.SalaryTransfer {
	return domain.SalaryTransfer{
		TransferID:      m.TransferID,
		Date:            m.Date,
		PaidToUserID:    m.PaidToUserID,
		PaidToName:      m.PaidToName,
		Amount:          m.Amount,
		Currency:        m.Currency,
		MonthFor:        m.MonthFor,
		Method:          m.Method,
		ReferenceID:     m.ReferenceID,
		Notes:           m.Notes,
		CreatedByUserID: m.CreatedByUserID,
		CreatedAt:       m.CreatedAt,
	}
}

func transferToModel(t domain.SalaryTransfer) ledger.SalaryTransfer {
	return ledger.SalaryTransfer{
		TransferID:      t.TransferID,
		Date:            t.Date,
		PaidToUserID:    t.PaidToUserID,
		PaidToName:      t.PaidToName,
		Amount:          t.Amount,
		Currency:        t.Currency,
		MonthFor:        t.MonthFor,
		Method:          t.Method,
		ReferenceID:     t.ReferenceID,
		Notes:           t.Notes,
		CreatedByUserID: t.CreatedByUserID,
		CreatedAt:       t.CreatedAt,
	}
}

func auditFromModel(m ledger.AuditLog) domain.AuditLog {
	var details json.RawMessage
	if len(m.Details) > 0 {
		details = json.RawMessage(m.Details)
	}
	return domain.AuditLog{
		LogID:       m.LogID,
		Action:      m.Action,
		PerformedBy: m.PerformedBy,
		EntityType:  m.EntityType,
		EntityID:    m.EntityID,
		Timestamp:   m.Timestamp,
		Details:     details,
	}
}

func auditToModel(id string, e domain.AuditEntry) ledger.AuditLog {
	var details datatypes.JSON
	if len(e.Details) > 0 {
		details = datatypes.JSON(e.Details)
	}
	return ledger.AuditLog{
		LogID:       id,
		Action:      e.Action,
		PerformedBy: e.PerformedBy,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Timestamp:   e.Timestamp,
		Details:     details,
	}
}

// mapSlice converts a page of rows in order.
func mapSlice[M any, D any](rows []M, conv func(M) D) []D {
	out := make([]D, 0, len(rows))
	for _, r := range rows {
		out = append(out, conv(r))
	}
	return out
}
