package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/models"
)

var hundred = decimal.NewFromInt(100)

// resolveCurrency returns requested when set, else the user's preferred
// currency, else fallback.
func resolveCurrency(db *gorm.DB, userID, requested, fallback string) (string, error) {
	if requested != "" {
		return strings.ToUpper(requested), nil
	}

	var user models.User
	err := db.Select("id", "settings_currency").Where("id = ?", userID).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if user.Settings.Currency != "" {
		return user.Settings.Currency, nil
	}
	return strings.ToUpper(fallback), nil
}

// percentOf returns part/whole*100. A non-positive whole yields 100 when part
// is positive and 0 otherwise.
func percentOf(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		if part.IsPositive() {
			return 100
		}
		return 0
	}
	f, _ := part.Div(whole).Mul(hundred).Round(2).Float64()
	return f
}

// sumAmounts adds up the amounts of txs.
func sumAmounts(txs []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}

// storedTime normalizes an instant before it is written or compared in SQL.
func storedTime(t time.Time) time.Time {
	return t.UTC()
}

func strPtr(s string) *string { return &s }
