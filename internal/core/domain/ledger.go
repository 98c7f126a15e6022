package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger rows are append-only: nothing in the system updates them after creation.

type ToolPayment struct {
	PaymentID    string          `json:"payment_id"`
	ToolID       string          `json:"tool_id"`
	PaymentDate  time.Time       `json:"payment_date"`
	MonthFor     string          `json:"month_for"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	PaidByUserID string          `json:"paid_by_user_id"`
	Method       string          `json:"method"`
	ReferenceID  string          `json:"reference_id"`
	InvoiceLink  string          `json:"invoice_link"`
	Notes        string          `json:"notes"`
	CreatedAt    time.Time       `json:"created_at"`
}

type ExpenseCategory string

const (
	ExpenseSalaries    ExpenseCategory = "Salaries"
	ExpenseTools       ExpenseCategory = "Tools"
	ExpenseMarketing   ExpenseCategory = "Marketing"
	ExpenseTravel      ExpenseCategory = "Travel"
	ExpenseOffice      ExpenseCategory = "Office"
	ExpenseContractors ExpenseCategory = "Contractors"
	ExpenseMisc        ExpenseCategory = "Misc"
)

func ExpenseCategories() []ExpenseCategory {
	return []ExpenseCategory{
		ExpenseSalaries, ExpenseTools, ExpenseMarketing, ExpenseTravel,
		ExpenseOffice, ExpenseContractors, ExpenseMisc,
	}
}

func (c ExpenseCategory) IsValid() bool {
	for _, cat := range ExpenseCategories() {
		if c == cat {
			return true
		}
	}
	return false
}

type Expense struct {
	ExpenseID    string          `json:"expense_id"`
	Date         time.Time       `json:"date"`
	Vendor       string          `json:"vendor"`
	Category     ExpenseCategory `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Recurring    bool            `json:"recurring"`
	LinkedToolID *string         `json:"linked_tool_id"`
	Notes        string          `json:"notes"`
	CreatedAt    time.Time       `json:"created_at"`
}

type SalaryTransfer struct {
	TransferID      string          `json:"transfer_id"`
	Date            time.Time       `json:"date"`
	PaidToUserID    string          `json:"paid_to_user_id"`
	PaidToName      string          `json:"paid_to_name"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	MonthFor        string          `json:"month_for"`
	Method          string          `json:"method"`
	ReferenceID     string          `json:"reference_id"`
	Notes           string          `json:"notes"`
	CreatedByUserID string          `json:"created_by_user_id"`
	CreatedAt       time.Time       `json:"created_at"`
}

// DateRange bounds a ledger query; a zero From or To leaves that side open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// MonthRange covers the calendar month containing t.
func MonthRange(t time.Time) DateRange {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return DateRange{From: start, To: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

type AuditLog struct {
	LogID       string          `json:"log_id"`
	Action      string          `json:"action"`
	PerformedBy string          `json:"performed_by"`
	EntityType  string          `json:"entity_type"`
	EntityID    string          `json:"entity_id"`
	Timestamp   time.Time       `json:"timestamp"`
	Details     json.RawMessage `json:"details,omitempty"`
}

// AuditEntry is the write-side shape of an audit log row.
type AuditEntry struct {
	Action      string
	PerformedBy string
	EntityType  string
	EntityID    string
	Timestamp   time.Time
	Details     json.RawMessage
}
