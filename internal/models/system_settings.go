package models

// SystemSettingsID is the primary key of the singleton settings row.
const SystemSettingsID = "00000000-0000-0000-0000-000000000001"

// SystemSettings are administrator-managed limits shared by all users.
type SystemSettings struct {
	Base
	TotalTransactionsLimit     int      `gorm:"not null" json:"total_transactions_limit"`
	RecurringTransactionsLimit int      `gorm:"not null" json:"recurring_transactions_limit"`
	Categories                 []string `gorm:"type:text;serializer:json" json:"categories"`
	JWTExpirationSeconds       int      `gorm:"not null" json:"jwt_expiration_seconds"`
}

// AllowsCategory reports whether category may be used on a transaction.
// An empty category list allows anything.
func (s *SystemSettings) AllowsCategory(category string) bool {
	if len(s.Categories) == 0 {
		return true
	}
	for _, c := range s.Categories {
		if c == category {
			return true
		}
	}
	return false
}
