package services

import (
	"testing"
	"time"

	"pftsystem/internal/clock"
	"pftsystem/internal/models"
	"pftsystem/internal/testutil"
)

type fixedUsage int64

func (u fixedUsage) TotalRequests() int64 { return int64(u) }

func TestGetUserDashboard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	now := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)
	clk := clock.Fixed{At: now}
	svc := NewDashboardService(db, clk, NewUserService(db, clk, "USD"), nil)

	user := testutil.CreateTestUser(t, db)
	testutil.CreateTestTransaction(t, db, user.ID, models.TransactionTypeIncome, "1000", testutil.Date(2024, time.May, 1))
	testutil.CreateTestTransaction(t, db, user.ID, models.TransactionTypeExpense, "25", testutil.Date(2024, time.May, 10))
	testutil.CreateTestTransaction(t, db, user.ID, models.TransactionTypeSavings, "100", testutil.Date(2024, time.May, 11))
	testutil.CreateTestTransaction(t, db, user.ID, models.TransactionTypeExpense, "70", testutil.Date(2024, time.April, 30))

	t.Run("without_budget", func(t *testing.T) {
		dashboard, err := svc.GetUserDashboard(user.ID)
		testutil.AssertNoError(t, err)

		if dashboard.Username != user.FullName() {
			t.Errorf("expected username %q, got %q", user.FullName(), dashboard.Username)
		}
		s := dashboard.Transactions
		if s.TotalTransactionsToDate != 4 || s.TotalTransactionsThisMonth != 3 {
			t.Errorf("unexpected counts %+v", s)
		}
		if !s.TotalIncomeThisMonth.Equal(testutil.Dec("1000")) ||
			!s.TotalExpensesThisMonth.Equal(testutil.Dec("25")) ||
			!s.TotalSavingsThisMonth.Equal(testutil.Dec("100")) {
			t.Errorf("unexpected month totals %+v", s)
		}
		if dashboard.Budget != nil {
			t.Error("expected no budget")
		}
		if dashboard.OngoingGoals == nil || dashboard.OngoingGoalsCount != 0 {
			t.Errorf("expected an empty goal list, got %+v", dashboard.OngoingGoals)
		}
	})

	t.Run("with_budget_and_goals", func(t *testing.T) {
		testutil.CreateTestBudget(t, db, user.ID, "500")
		testutil.CreateTestGoal(t, db, user.ID, "1000", "100", 0)
		testutil.CreateTestGoal(t, db, user.ID, "2000", "100", 5)

		dashboard, err := svc.GetUserDashboard(user.ID)
		testutil.AssertNoError(t, err)

		if dashboard.Budget == nil || !dashboard.Budget.MonthlyLimit.Equal(testutil.Dec("500")) {
			t.Errorf("unexpected budget %+v", dashboard.Budget)
		}
		if dashboard.OngoingGoalsCount != 2 {
			t.Errorf("expected 2 goals, got %d", dashboard.OngoingGoalsCount)
		}
	})

	t.Run("unknown_user", func(t *testing.T) {
		_, err := svc.GetUserDashboard("missing")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestGetAdminDashboard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	now := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)
	clk := clock.Fixed{At: now}
	svc := NewDashboardService(db, clk, NewUserService(db, clk, "USD"), fixedUsage(42))

	admin := testutil.CreateTestAdmin(t, db)
	user := testutil.CreateTestUser(t, db)
	testutil.CreateTestTransaction(t, db, user.ID, models.TransactionTypeExpense, "1", now)
	testutil.CreateTestTransaction(t, db, user.ID, models.TransactionTypeExpense, "1", testutil.Date(2024, time.January, 3))

	t.Run("admin", func(t *testing.T) {
		dashboard, err := svc.GetAdminDashboard(admin.ID)
		testutil.AssertNoError(t, err)

		if dashboard.TotalUsers != 2 {
			t.Errorf("expected 2 users, got %d", dashboard.TotalUsers)
		}
		if dashboard.TotalTransactionsToDate != 2 || dashboard.TotalTransactionsThisMonth != 1 {
			t.Errorf("unexpected transaction counts %+v", dashboard)
		}
		if dashboard.SystemUsage != 42 {
			t.Errorf("expected system usage 42, got %d", dashboard.SystemUsage)
		}
	})

	t.Run("regular_user_forbidden", func(t *testing.T) {
		_, err := svc.GetAdminDashboard(user.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}
