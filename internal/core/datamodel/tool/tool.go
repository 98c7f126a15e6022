package tool

import (
	"time"

	"github.com/shopspring/decimal"
)

type Tool struct {
	ToolID          string          `gorm:"column:tool_id;primaryKey"`
	Name            string          `gorm:"column:name;not null"`
	Category        string          `gorm:"column:category"`
	BillingCycle    string          `gorm:"column:billing_cycle"`
	Cost            decimal.Decimal `gorm:"column:cost;type:numeric(14,2)"`
	Currency        string          `gorm:"column:currency"`
	RenewalDate     *time.Time      `gorm:"column:renewal_date;type:date"`
	OwnerRole       string          `gorm:"column:owner_role"`
	VisibilityLevel string          `gorm:"column:visibility_level;not null"`
	SeatsTotal      int             `gorm:"column:seats_total"`
	Status          string          `gorm:"column:status"`
	Vendor          string          `gorm:"column:vendor"`
	Notes           string          `gorm:"column:notes"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Tool) TableName() string {
	return "tools"
}
