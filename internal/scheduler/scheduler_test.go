package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"pftsystem/internal/clock"
	"pftsystem/internal/models"
	"pftsystem/internal/services"
	"pftsystem/internal/testutil"
)

var runTime = time.Date(2024, time.May, 15, 0, 5, 0, 0, time.UTC)

func recordingPhase(name string, calls *[]string, result services.BatchResult, err error) Phase {
	return Phase{Name: name, Run: func(_ context.Context, today time.Time) (services.BatchResult, error) {
		*calls = append(*calls, name+"@"+today.Format(clock.DateLayout))
		return result, err
	}}
}

func TestRunOnce(t *testing.T) {
	t.Run("phases_run_in_order", func(t *testing.T) {
		var calls []string
		s, err := New(clock.Fixed{At: runTime}, "00:00", []Phase{
			recordingPhase(PhaseRecurringTransactions, &calls, services.BatchResult{Processed: 2}, nil),
			recordingPhase(PhaseBudgetUpdate, &calls, services.BatchResult{Processed: 1}, nil),
			recordingPhase(PhaseGoalCollection, &calls, services.BatchResult{Skipped: 1}, nil),
		})
		testutil.AssertNoError(t, err)

		report, err := s.RunOnce(context.Background())
		testutil.AssertNoError(t, err)

		want := []string{
			"recurring_transactions@2024-05-15",
			"budget_update@2024-05-15",
			"goal_collection@2024-05-15",
		}
		if len(calls) != len(want) {
			t.Fatalf("expected %v, got %v", want, calls)
		}
		for i := range want {
			if calls[i] != want[i] {
				t.Errorf("call %d: expected %s, got %s", i, want[i], calls[i])
			}
		}
		if report.Date != "2024-05-15" || report.Failed() {
			t.Errorf("unexpected report %+v", report)
		}
		if report.Phases[0].Result.Processed != 2 {
			t.Errorf("expected phase result to be reported, got %+v", report.Phases[0])
		}
	})

	t.Run("failure_does_not_block_later_phases", func(t *testing.T) {
		var calls []string
		s, err := New(clock.Fixed{At: runTime}, "00:00", []Phase{
			recordingPhase(PhaseRecurringTransactions, &calls, services.BatchResult{}, errors.New("database is locked")),
			{Name: PhaseBudgetUpdate, Run: func(context.Context, time.Time) (services.BatchResult, error) {
				calls = append(calls, PhaseBudgetUpdate)
				panic("nil map")
			}},
			recordingPhase(PhaseGoalCollection, &calls, services.BatchResult{Processed: 1}, nil),
		})
		testutil.AssertNoError(t, err)

		report, err := s.RunOnce(context.Background())
		testutil.AssertNoError(t, err)

		if len(calls) != 3 {
			t.Fatalf("expected all three phases to run, got %v", calls)
		}
		if !report.Failed() {
			t.Error("expected the report to show failures")
		}
		if report.Phases[0].Error == "" || report.Phases[1].Error == "" || report.Phases[2].Error != "" {
			t.Errorf("unexpected phase errors %+v", report.Phases)
		}
	})

	t.Run("no_overlapping_runs", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		s, err := New(clock.Fixed{At: runTime}, "00:00", []Phase{
			{Name: "slow", Run: func(context.Context, time.Time) (services.BatchResult, error) {
				close(started)
				<-release
				return services.BatchResult{}, nil
			}},
		})
		testutil.AssertNoError(t, err)

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = s.RunOnce(context.Background())
		}()
		<-started

		_, err = s.RunOnce(context.Background())
		if !errors.Is(err, ErrRunInProgress) {
			t.Errorf("expected ErrRunInProgress, got %v", err)
		}
		close(release)
		<-done
	})

	t.Run("cancelled_context_stops_run", func(t *testing.T) {
		var calls []string
		s, err := New(clock.Fixed{At: runTime}, "00:00", []Phase{
			recordingPhase(PhaseRecurringTransactions, &calls, services.BatchResult{}, nil),
		})
		testutil.AssertNoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = s.RunOnce(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if len(calls) != 0 {
			t.Errorf("expected no phases to run, got %v", calls)
		}
	})
}

func TestNextRun(t *testing.T) {
	s, err := New(clock.Fixed{}, "02:30", nil)
	testutil.AssertNoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before_run_time", time.Date(2024, 5, 15, 1, 0, 0, 0, time.UTC), time.Date(2024, 5, 15, 2, 30, 0, 0, time.UTC)},
		{"exactly_run_time", time.Date(2024, 5, 15, 2, 30, 0, 0, time.UTC), time.Date(2024, 5, 16, 2, 30, 0, 0, time.UTC)},
		{"after_run_time", time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 2, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.NextRun(tt.now); !got.Equal(tt.want) {
				t.Errorf("NextRun(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}

	if _, err := New(clock.Fixed{}, "noon", nil); err == nil {
		t.Error("expected an invalid run time to be rejected")
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	s, err := New(clock.Fixed{At: runTime}, "00:00", nil)
	testutil.AssertNoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestDefaultPhasesAgainstDatabase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	clk := clock.Fixed{At: runTime}
	budgets := services.NewBudgetService(db, clk, nil, 1, "USD")
	transactions := services.NewTransactionService(db, clk, services.NewSettingsService(db), budgets, nil, "USD")
	goals := services.NewGoalService(db, clk, nil, "USD")

	user := testutil.CreateTestUser(t, db)
	testutil.CreateTestBudget(t, db, user.ID, "100")
	testutil.CreateTestRecurringTransaction(t, db, user.ID, models.TransactionTypeExpense, "90", models.RecurrenceRule{
		Pattern:           models.RecurrenceMonthly,
		StartDate:         "2024-01-15",
		EndDate:           "2024-12-31",
		ExecuteOnDay:      15,
		NextExecutionDate: "2024-05-15",
	})
	goal := testutil.CreateTestGoal(t, db, user.ID, "1000", "100", 15)

	s, err := New(clk, "00:00", DefaultPhases(transactions, budgets, goals))
	testutil.AssertNoError(t, err)

	report, err := s.RunOnce(context.Background())
	testutil.AssertNoError(t, err)
	if report.Failed() {
		t.Fatalf("unexpected failures %+v", report.Phases)
	}

	budget, err := budgets.GetUserBudget(user.ID)
	testutil.AssertNoError(t, err)
	if !budget.Warning || !budget.CurrentExpenditure.Equal(testutil.Dec("90")) {
		t.Errorf("expected the materialized expense in the budget, got %s/%v", budget.CurrentExpenditure, budget.Warning)
	}

	amount, err := goals.CurrentAmount(context.Background(), goal.ID)
	testutil.AssertNoError(t, err)
	if !amount.Equal(testutil.Dec("100")) {
		t.Errorf("expected one collection, got %s", amount)
	}

	// A second run on the same day changes nothing.
	report, err = s.RunOnce(context.Background())
	testutil.AssertNoError(t, err)
	if report.Phases[0].Result.Processed != 0 || report.Phases[2].Result.Skipped != 1 {
		t.Errorf("expected an idempotent rerun, got %+v", report.Phases)
	}
}
