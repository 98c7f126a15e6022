package ledger

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ToolPayment struct {
	PaymentID    string          `gorm:"column:payment_id;primaryKey"`
	ToolID       string          `gorm:"column:tool_id;index;not null"`
	PaymentDate  time.Time       `gorm:"column:payment_date;type:date"`
	MonthFor     string          `gorm:"column:month_for"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency     string          `gorm:"column:currency"`
	PaidByUserID string          `gorm:"column:paid_by_user_id"`
	Method       string          `gorm:"column:method"`
	ReferenceID  string          `gorm:"column:reference_id"`
	InvoiceLink  string          `gorm:"column:invoice_link"`
	Notes        string          `gorm:"column:notes"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
}

func (ToolPayment) TableName() string {
	return "tool_payments"
}

type Expense struct {
	ExpenseID    string          `gorm:"column:expense_id;primaryKey"`
	Date         time.Time       `gorm:"column:date;type:date;index;not null"`
	Vendor       string          `gorm:"column:vendor"`
	Category     string          `gorm:"column:category"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency     string          `gorm:"column:currency"`
	Recurring    bool            `gorm:"column:recurring"`
	LinkedToolID *string         `gorm:"column:linked_tool_id"`
	Notes        string          `gorm:"column:notes"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
}

func (Expense) TableName() string {
	return "expenses"
}

type SalaryTransfer struct {
	TransferID      string          `gorm:"column:transfer_id;primaryKey"`
	Date            time.Time       `gorm:"column:date;type:date;not null"`
	PaidToUserID    string          `gorm:"column:paid_to_user_id;not null"`
	PaidToName      string          `gorm:"column:paid_to_name"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency        string          `gorm:"column:currency"`
	MonthFor        string          `gorm:"column:month_for"`
	Method          string          `gorm:"column:method"`
	ReferenceID     string          `gorm:"column:reference_id"`
	Notes           string          `gorm:"column:notes"`
	CreatedByUserID string          `gorm:"column:created_by_user_id"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
}

func (SalaryTransfer) TableName() string {
	return "salary_transfers"
}

type AuditLog struct {
	LogID       string         `gorm:"column:log_id;primaryKey"`
	Action      string         `gorm:"column:action;not null"`
	PerformedBy string         `gorm:"column:performed_by"`
	EntityType  string         `gorm:"column:entity_type"`
	EntityID    string         `gorm:"column:entity_id"`
	Timestamp   time.Time      `gorm:"column:timestamp;index"`
	Details     datatypes.JSON `gorm:"column:details"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
