package tool

import (
	"strings"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/common/validation"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/shopspring/decimal"
)

type CreateToolRequest struct {
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	BillingCycle    string          `json:"billing_cycle"`
	Cost            decimal.Decimal `json:"cost"`
	Currency        string          `json:"currency"`
	RenewalDate     string          `json:"renewal_date,omitempty"`
	OwnerRole       string          `json:"owner_role"`
	VisibilityLevel string          `json:"visibility_level"`
	SeatsTotal      int             `json:"seats_total"`
	Status          string          `json:"status"`
	Vendor          string          `json:"vendor"`
	Notes           string          `json:"notes"`
}

func (dto CreateToolRequest) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(200)
	v.Field("category", dto.Category).Required().MaxLength(100)
	v.Field("billing_cycle", dto.BillingCycle).Required().OneOf(string(domain.BillingMonthly), string(domain.BillingYearly))
	v.Field("cost", dto.Cost).PositiveAmount()
	v.Field("currency", dto.Currency).Required().MaxLength(3)
	v.Field("visibility_level", dto.VisibilityLevel).Required().OneOf(
		string(domain.VisibilityCompanyShared), string(domain.VisibilityTeamShared),
		string(domain.VisibilityPrivateAdmin), string(domain.VisibilityRoleBased))
	v.Field("status", dto.Status).OneOf(string(domain.ToolStatusActive), string(domain.ToolStatusTrial), string(domain.ToolStatusCancelled))
	v.Field("seats_total", dto.SeatsTotal).MinInt(0, internal.ErrCodeValidationFailed)
	v.Field("owner_role", dto.OwnerRole).Custom(func(value any) *internal.AppError {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if _, err := domain.ParseRole(s); err != nil {
			return internal.NewValidationFieldError("owner_role", err.Error(), internal.ErrCodeInvalidEnum)
		}
		return nil
	})
	v.Field("renewal_date", dto.RenewalDate).Custom(func(value any) *internal.AppError {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return internal.NewValidationFieldError("renewal_date", "renewal_date must be a date in YYYY-MM-DD form", internal.ErrCodeInvalidDate)
		}
		return nil
	})
	return v.Validate()
}

// ToDomain builds the tool row; call after Validate.
func (dto CreateToolRequest) ToDomain() domain.Tool {
	t := domain.Tool{
		Name:            strings.TrimSpace(dto.Name),
		Category:        strings.TrimSpace(dto.Category),
		BillingCycle:    domain.BillingCycle(dto.BillingCycle),
		Cost:            dto.Cost,
		Currency:        strings.ToUpper(dto.Currency),
		OwnerRole:       domain.RoleAdmin,
		VisibilityLevel: domain.Visibility(dto.VisibilityLevel),
		SeatsTotal:      dto.SeatsTotal,
		Status:          domain.ToolStatusActive,
		Vendor:          dto.Vendor,
		Notes:           dto.Notes,
	}
	if role, err := domain.ParseRole(dto.OwnerRole); err == nil {
		t.OwnerRole = role
	}
	if dto.Status != "" {
		t.Status = domain.ToolStatus(dto.Status)
	}
	if d, err := time.Parse("2006-01-02", dto.RenewalDate); err == nil {
		t.RenewalDate = &d
	}
	return t
}

type ToolResponse struct {
	domain.Tool
	MonthlyCost decimal.Decimal `json:"monthly_cost"`
}

type ToolsResponse struct {
	Tools []ToolResponse `json:"tools"`
}

func toResponse(t domain.Tool) ToolResponse {
	return ToolResponse{Tool: t, MonthlyCost: t.MonthlyCost()}
}
