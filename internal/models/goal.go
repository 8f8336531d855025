package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal is a savings target, optionally funded by a monthly auto-collection.
type Goal struct {
	Base
	UserID               string          `gorm:"type:uuid;not null;index" json:"user_id"`
	GoalName             string          `gorm:"not null" json:"goal_name"`
	AmountRequired       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount_required"`
	MonthlyCommitment    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"monthly_commitment"`
	Currency             string          `gorm:"size:3" json:"currency"`
	EnableAutoCollect    bool            `gorm:"not null;default:false;index" json:"enable_auto_collect"`
	CollectionDayOfMonth int             `gorm:"not null" json:"collection_day_of_month"`
	Notify               bool            `gorm:"not null" json:"notify"`
}

// GoalContribution is an append-only ledger entry towards a goal.
type GoalContribution struct {
	Base
	GoalID           string          `gorm:"type:uuid;not null;uniqueIndex:idx_goal_period" json:"goal_id"`
	UserID           string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount           decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	ContributionDate time.Time       `gorm:"not null" json:"contribution_date"`

	// PeriodKey is YYYY-MM for auto-collections and NULL for manual ones.
	PeriodKey *string `gorm:"uniqueIndex:idx_goal_period" json:"period_key,omitempty"`
}
