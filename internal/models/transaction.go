package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "Income"
	TransactionTypeExpense TransactionType = "Expense"
	TransactionTypeSavings TransactionType = "Savings"
)

// Valid reports whether t is one of the supported transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeSavings:
		return true
	}
	return false
}

// RecurrencePattern is the period of a recurring transaction.
type RecurrencePattern string

const (
	RecurrenceDaily   RecurrencePattern = "Daily"
	RecurrenceWeekly  RecurrencePattern = "Weekly"
	RecurrenceMonthly RecurrencePattern = "Monthly"
)

// RecurrenceRule schedules a recurring transaction template. All dates are
// calendar dates in YYYY-MM-DD form.
type RecurrenceRule struct {
	Pattern           RecurrencePattern `json:"pattern"`
	StartDate         string            `json:"start_date"`
	EndDate           string            `json:"end_date"`
	ExecuteOnDay      int               `json:"execute_on_day"`
	NextExecutionDate string            `json:"next_execution_date"`
}

// Transaction is a single income, expense or savings record. A transaction
// with IsRecurring set is a template that the daily run materializes.
type Transaction struct {
	Base
	UserID            string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Type              TransactionType `gorm:"not null;index" json:"type"`
	Category          string          `gorm:"not null" json:"category"`
	Tags              []string        `gorm:"type:text;serializer:json" json:"tags"`
	Beneficiary       string          `json:"beneficiary"`
	SenderDescription string          `json:"sender_description"`
	Amount            decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Currency          string          `gorm:"size:3;not null" json:"currency"`
	IsRecurring       bool            `gorm:"not null;default:false;index" json:"is_recurring"`
	Recurrence        *RecurrenceRule `gorm:"type:text;serializer:json" json:"recurrence,omitempty"`
	Notify            bool            `gorm:"not null;default:false" json:"notify"`
	TransactionDate   time.Time       `gorm:"not null;index" json:"transaction_date"`
	LastUpdatedAt     time.Time       `gorm:"not null" json:"last_updated_at"`

	// SourceKey identifies the scheduled event that generated this row
	// (a recurrence firing or a goal collection). NULL for user-entered rows.
	SourceKey *string `gorm:"uniqueIndex" json:"source_key,omitempty"`
}
