package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Visibility string

const (
	VisibilityCompanyShared Visibility = "company_shared"
	VisibilityTeamShared    Visibility = "team_shared"
	VisibilityPrivateAdmin  Visibility = "private_admin"
	VisibilityRoleBased     Visibility = "role_based"
)

func (v Visibility) IsValid() bool {
	switch v {
	case VisibilityCompanyShared, VisibilityTeamShared, VisibilityPrivateAdmin, VisibilityRoleBased:
		return true
	}
	return false
}

type ToolStatus string

const (
	ToolStatusActive    ToolStatus = "active"
	ToolStatusTrial     ToolStatus = "trial"
	ToolStatusCancelled ToolStatus = "cancelled"
)

func (s ToolStatus) IsValid() bool {
	switch s {
	case ToolStatusActive, ToolStatusTrial, ToolStatusCancelled:
		return true
	}
	return false
}

type BillingCycle string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingYearly  BillingCycle = "yearly"
)

type Tool struct {
	ToolID          string          `json:"tool_id"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	BillingCycle    BillingCycle    `json:"billing_cycle"`
	Cost            decimal.Decimal `json:"cost"`
	Currency        string          `json:"currency"`
	RenewalDate     *time.Time      `json:"renewal_date,omitempty"`
	OwnerRole       Role            `json:"owner_role"`
	VisibilityLevel Visibility      `json:"visibility_level"`
	SeatsTotal      int             `json:"seats_total"`
	Status          ToolStatus      `json:"status"`
	Vendor          string          `json:"vendor"`
	Notes           string          `json:"notes"`
}

// MonthlyCost normalizes the billing amount to a per-month figure.
func (t *Tool) MonthlyCost() decimal.Decimal {
	if t.BillingCycle == BillingYearly {
		return t.Cost.Div(decimal.NewFromInt(12)).Round(2)
	}
	return t.Cost
}
