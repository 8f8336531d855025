package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/models"
)

// Defaults for the system settings row created on first use.
const (
	DefaultTotalTransactionsLimit     = 1000
	DefaultRecurringTransactionsLimit = 100
	DefaultJWTExpirationSeconds       = 86400
)

// settingsService manages the singleton system settings row.
type settingsService struct {
	db *gorm.DB
}

// NewSettingsService creates a new SettingsServicer.
func NewSettingsService(db *gorm.DB) SettingsServicer {
	return &settingsService{db: db}
}

// GetSettings returns the settings row, creating it with defaults when missing.
func (s *settingsService) GetSettings() (*models.SystemSettings, error) {
	var settings models.SystemSettings
	err := s.db.Where("id = ?", models.SystemSettingsID).First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	settings = models.SystemSettings{
		TotalTransactionsLimit:     DefaultTotalTransactionsLimit,
		RecurringTransactionsLimit: DefaultRecurringTransactionsLimit,
		Categories:                 []string{},
		JWTExpirationSeconds:       DefaultJWTExpirationSeconds,
	}
	settings.ID = models.SystemSettingsID

	// Two first requests may race to create the row.
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&settings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Where("id = ?", models.SystemSettingsID).First(&settings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &settings, nil
}

// UpdateSettings applies the non-nil fields of in.
func (s *settingsService) UpdateSettings(in SettingsUpdate) (*models.SystemSettings, error) {
	settings, err := s.GetSettings()
	if err != nil {
		return nil, err
	}

	if in.TotalTransactionsLimit != nil {
		if *in.TotalTransactionsLimit < 1 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "total transactions limit must be positive")
		}
		settings.TotalTransactionsLimit = *in.TotalTransactionsLimit
	}
	if in.RecurringTransactionsLimit != nil {
		if *in.RecurringTransactionsLimit < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "recurring transactions limit must not be negative")
		}
		settings.RecurringTransactionsLimit = *in.RecurringTransactionsLimit
	}
	if in.JWTExpirationSeconds != nil {
		if *in.JWTExpirationSeconds < 60 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "JWT expiration must be at least 60 seconds")
		}
		settings.JWTExpirationSeconds = *in.JWTExpirationSeconds
	}
	if in.Categories != nil {
		categories := make([]string, 0, len(in.Categories))
		seen := make(map[string]bool, len(in.Categories))
		for _, c := range in.Categories {
			c = strings.TrimSpace(c)
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			categories = append(categories, c)
		}
		settings.Categories = categories
	}

	if err := s.db.Save(settings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return settings, nil
}
