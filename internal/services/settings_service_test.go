package services

import (
	"testing"

	"pftsystem/internal/testutil"
)

func TestGetSettings(t *testing.T) {
	t.Run("creates_defaults", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewSettingsService(db)

		settings, err := svc.GetSettings()
		testutil.AssertNoError(t, err)

		if settings.TotalTransactionsLimit != DefaultTotalTransactionsLimit {
			t.Errorf("expected total limit %d, got %d", DefaultTotalTransactionsLimit, settings.TotalTransactionsLimit)
		}
		if settings.RecurringTransactionsLimit != DefaultRecurringTransactionsLimit {
			t.Errorf("expected recurring limit %d, got %d", DefaultRecurringTransactionsLimit, settings.RecurringTransactionsLimit)
		}
		if !settings.AllowsCategory("Anything") {
			t.Error("an empty category list should allow any category")
		}
	})

	t.Run("single_row", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewSettingsService(db)

		for i := 0; i < 3; i++ {
			_, err := svc.GetSettings()
			testutil.AssertNoError(t, err)
		}

		var count int64
		db.Table("system_settings").Count(&count)
		if count != 1 {
			t.Errorf("expected a single settings row, got %d", count)
		}
	})
}

func TestUpdateSettings(t *testing.T) {
	t.Run("partial_update", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewSettingsService(db)

		limit := 5
		_, err := svc.UpdateSettings(SettingsUpdate{
			TotalTransactionsLimit: &limit,
			Categories:             []string{" Food ", "Rent", "Food", ""},
		})
		testutil.AssertNoError(t, err)

		settings, err := svc.GetSettings()
		testutil.AssertNoError(t, err)

		if settings.TotalTransactionsLimit != 5 {
			t.Errorf("expected total limit 5, got %d", settings.TotalTransactionsLimit)
		}
		if settings.RecurringTransactionsLimit != DefaultRecurringTransactionsLimit {
			t.Errorf("recurring limit should be untouched, got %d", settings.RecurringTransactionsLimit)
		}
		if len(settings.Categories) != 2 || settings.Categories[0] != "Food" || settings.Categories[1] != "Rent" {
			t.Errorf("expected [Food Rent], got %v", settings.Categories)
		}
		if settings.AllowsCategory("Travel") {
			t.Error("Travel should not be allowed")
		}
	})

	t.Run("invalid_limits", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewSettingsService(db)

		zero := 0
		_, err := svc.UpdateSettings(SettingsUpdate{TotalTransactionsLimit: &zero})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		negative := -1
		_, err = svc.UpdateSettings(SettingsUpdate{RecurringTransactionsLimit: &negative})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		short := 10
		_, err = svc.UpdateSettings(SettingsUpdate{JWTExpirationSeconds: &short})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}
