package models

import "github.com/shopspring/decimal"

// WarningRatio is the share of a limit at which a budget is flagged.
var WarningRatio = decimal.NewFromFloat(0.8)

// CategoryLimit caps spending for one category inside a budget.
type CategoryLimit struct {
	Category           string          `json:"category"`
	LimitAmount        decimal.Decimal `json:"limit_amount"`
	CurrentExpenditure decimal.Decimal `json:"current_expenditure"`
	Warning            bool            `json:"warning"`
}

// Budget is the monthly spending plan of a user. Each user owns at most one.
type Budget struct {
	Base
	UserID             string          `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	MonthlyLimit       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"monthly_limit"`
	CurrentExpenditure decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"current_expenditure"`
	Currency           string          `gorm:"size:3;not null" json:"currency"`
	CategoryLimitsOn   bool            `gorm:"not null;default:false" json:"category_limits_on"`
	CategoryLimits     []CategoryLimit `gorm:"type:text;serializer:json" json:"category_limits"`
	Warning            bool            `gorm:"not null;default:false;index" json:"warning"`
}

// ShouldWarn reports whether spent has reached the warning share of limit.
// A zero or negative limit never warns.
func ShouldWarn(limit, spent decimal.Decimal) bool {
	if !limit.IsPositive() {
		return false
	}
	return spent.GreaterThanOrEqual(limit.Mul(WarningRatio))
}
