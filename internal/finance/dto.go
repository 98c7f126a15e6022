package finance

import (
	"strings"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/common/validation"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/shopspring/decimal"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

type LogToolPaymentRequest struct {
	ToolID      string          `json:"tool_id"`
	PaymentDate string          `json:"payment_date"`
	MonthFor    string          `json:"month_for"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Method      string          `json:"method"`
	ReferenceID string          `json:"reference_id"`
	InvoiceLink string          `json:"invoice_link"`
	Notes       string          `json:"notes"`
}

func (dto LogToolPaymentRequest) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("tool_id", dto.ToolID).Required()
	v.Field("payment_date", dto.PaymentDate).Required().Custom(layoutValidator("payment_date", dateLayout, "YYYY-MM-DD"))
	v.Field("month_for", dto.MonthFor).Required().Custom(layoutValidator("month_for", monthLayout, "YYYY-MM"))
	v.Field("amount", dto.Amount).PositiveAmount()
	v.Field("currency", dto.Currency).Required().MaxLength(3)
	v.Field("notes", dto.Notes).MaxLength(2000)
	return v.Validate()
}

func (dto LogToolPaymentRequest) ToDomain(paidBy string, now time.Time) domain.ToolPayment {
	date, _ := time.Parse(dateLayout, dto.PaymentDate)
	return domain.ToolPayment{
		ToolID:       dto.ToolID,
		PaymentDate:  date,
		MonthFor:     dto.MonthFor,
		Amount:       dto.Amount,
		Currency:     strings.ToUpper(dto.Currency),
		PaidByUserID: paidBy,
		Method:       dto.Method,
		ReferenceID:  dto.ReferenceID,
		InvoiceLink:  dto.InvoiceLink,
		Notes:        dto.Notes,
		CreatedAt:    now,
	}
}

type LogSalaryTransferRequest struct {
	PaidToUserID string          `json:"paid_to_user_id"`
	Date         string          `json:"date"`
	MonthFor     string          `json:"month_for"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Method       string          `json:"method"`
	ReferenceID  string          `json:"reference_id"`
	Notes        string          `json:"notes"`
}

func (dto LogSalaryTransferRequest) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("paid_to_user_id", dto.PaidToUserID).Required()
	v.Field("date", dto.Date).Required().Custom(layoutValidator("date", dateLayout, "YYYY-MM-DD"))
	v.Field("month_for", dto.MonthFor).Required().Custom(layoutValidator("month_for", monthLayout, "YYYY-MM"))
	v.Field("amount", dto.Amount).PositiveAmount()
	v.Field("currency", dto.Currency).Required().MaxLength(3)
	v.Field("notes", dto.Notes).MaxLength(2000)
	return v.Validate()
}

func (dto LogSalaryTransferRequest) ToDomain(recipient domain.Person, createdBy string, now time.Time) domain.SalaryTransfer {
	date, _ := time.Parse(dateLayout, dto.Date)
	return domain.SalaryTransfer{
		Date:            date,
		PaidToUserID:    recipient.UserID,
		PaidToName:      recipient.Name,
		Amount:          dto.Amount,
		Currency:        strings.ToUpper(dto.Currency),
		MonthFor:        dto.MonthFor,
		Method:          dto.Method,
		ReferenceID:     dto.ReferenceID,
		Notes:           dto.Notes,
		CreatedByUserID: createdBy,
		CreatedAt:       now,
	}
}

type LogExpenseRequest struct {
	Date         string          `json:"date"`
	Vendor       string          `json:"vendor"`
	Category     string          `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Recurring    bool            `json:"recurring"`
	LinkedToolID *string         `json:"linked_tool_id"`
	Notes        string          `json:"notes"`
}

func (dto LogExpenseRequest) Validate() *internal.AppError {
	categories := make([]string, 0, len(domain.ExpenseCategories()))
	for _, c := range domain.ExpenseCategories() {
		categories = append(categories, string(c))
	}

	v := validation.NewValidator()
	v.Field("date", dto.Date).Required().Custom(layoutValidator("date", dateLayout, "YYYY-MM-DD"))
	v.Field("vendor", dto.Vendor).Required().MaxLength(200)
	v.Field("category", dto.Category).Required().OneOf(categories...)
	v.Field("amount", dto.Amount).PositiveAmount()
	v.Field("currency", dto.Currency).Required().MaxLength(3)
	v.Field("notes", dto.Notes).MaxLength(2000)
	return v.Validate()
}

// linkedTool is the trimmed linked tool id, or "" when none was given.
func (dto LogExpenseRequest) linkedTool() string {
	if dto.LinkedToolID == nil {
		return ""
	}
	return strings.TrimSpace(*dto.LinkedToolID)
}

func (dto LogExpenseRequest) ToDomain(now time.Time) domain.Expense {
	date, _ := time.Parse(dateLayout, dto.Date)
	e := domain.Expense{
		Date:      date,
		Vendor:    strings.TrimSpace(dto.Vendor),
		Category:  domain.ExpenseCategory(dto.Category),
		Amount:    dto.Amount,
		Currency:  strings.ToUpper(dto.Currency),
		Recurring: dto.Recurring,
		Notes:     dto.Notes,
		CreatedAt: now,
	}
	if id := dto.linkedTool(); id != "" {
		e.LinkedToolID = &id
	}
	return e
}

func layoutValidator(field, layout, human string) func(any) *internal.AppError {
	return func(value any) *internal.AppError {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if _, err := time.Parse(layout, s); err != nil {
			return internal.NewValidationFieldError(field, field+" must be in "+human+" form", internal.ErrCodeInvalidDate)
		}
		return nil
	}
}
