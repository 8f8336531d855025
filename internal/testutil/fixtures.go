package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"pftsystem/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Dec parses a decimal literal and panics on malformed input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestAdmin creates a user with the admin role.
func CreateTestAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := CreateTestUserWithEmail(t, db, fmt.Sprintf("admin%d@test.com", nextID()))
	if err := db.Model(user).Update("role", models.RoleAdmin).Error; err != nil {
		t.Fatalf("failed to promote test user: %v", err)
	}
	user.Role = models.RoleAdmin
	return user
}

// CreateTestUserWithEmail creates a user with the given email. The password
// is "password123" and the preferred currency is USD.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:     email,
		Password:  string(hash),
		FirstName: "Test",
		LastName:  fmt.Sprintf("User%d", nextID()),
		Role:      models.RoleUser,
		IsActive:  true,
		Settings: models.UserSettings{
			Currency:             "USD",
			NotificationsEnabled: true,
		},
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestTransaction creates a one-off transaction dated at the given time.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID string, txType models.TransactionType, amount string, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:          userID,
		Type:            txType,
		Category:        "Food",
		Tags:            []string{},
		Beneficiary:     fmt.Sprintf("Shop %d", nextID()),
		Amount:          Dec(amount),
		Currency:        "USD",
		TransactionDate: date.UTC(),
		LastUpdatedAt:   date.UTC(),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestRecurringTransaction creates a recurring template with the given
// rule.
func CreateTestRecurringTransaction(t *testing.T, db *gorm.DB, userID string, txType models.TransactionType, amount string, rule models.RecurrenceRule) *models.Transaction {
	t.Helper()

	start, err := time.Parse(time.DateOnly, rule.StartDate)
	if err != nil {
		t.Fatalf("invalid start date %q: %v", rule.StartDate, err)
	}

	tx := &models.Transaction{
		UserID:          userID,
		Type:            txType,
		Category:        "Bills",
		Tags:            []string{"recurring"},
		Beneficiary:     fmt.Sprintf("Provider %d", nextID()),
		Amount:          Dec(amount),
		Currency:        "USD",
		IsRecurring:     true,
		Recurrence:      &rule,
		Notify:          true,
		TransactionDate: start,
		LastUpdatedAt:   start,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test recurring transaction: %v", err)
	}
	return tx
}

// CreateTestBudget creates a USD budget with the given monthly limit.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID, limit string) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:             userID,
		MonthlyLimit:       Dec(limit),
		CurrentExpenditure: decimal.Zero,
		Currency:           "USD",
		CategoryLimits:     []models.CategoryLimit{},
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestGoal creates a goal. A non-zero collectionDay enables
// auto-collection on that day of month.
func CreateTestGoal(t *testing.T, db *gorm.DB, userID, required, commitment string, collectionDay int) *models.Goal {
	t.Helper()

	day := collectionDay
	if day == 0 {
		day = 1
	}
	goal := &models.Goal{
		UserID:               userID,
		GoalName:             fmt.Sprintf("Test Goal %d", nextID()),
		AmountRequired:       Dec(required),
		MonthlyCommitment:    Dec(commitment),
		Currency:             "USD",
		EnableAutoCollect:    collectionDay != 0,
		CollectionDayOfMonth: day,
		Notify:               true,
	}
	if err := db.Create(goal).Error; err != nil {
		t.Fatalf("failed to create test goal: %v", err)
	}
	return goal
}

// CreateTestContribution records a manual contribution to a goal.
func CreateTestContribution(t *testing.T, db *gorm.DB, goal *models.Goal, amount string, date time.Time) *models.GoalContribution {
	t.Helper()

	c := &models.GoalContribution{
		GoalID:           goal.ID,
		UserID:           goal.UserID,
		Amount:           Dec(amount),
		ContributionDate: date.UTC(),
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("failed to create test contribution: %v", err)
	}
	return c
}
