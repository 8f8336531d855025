// Package scheduler runs the nightly reconciliation: recurring transactions
// are materialized first, budgets are recomputed next and goal
// auto-collections run last. A failing phase is logged and the run moves on.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"pftsystem/internal/clock"
	"pftsystem/internal/config"
	"pftsystem/internal/logger"
	"pftsystem/internal/recurrence"
	"pftsystem/internal/services"
)

// Phase names in run order.
const (
	PhaseRecurringTransactions = "recurring_transactions"
	PhaseBudgetUpdate          = "budget_update"
	PhaseGoalCollection        = "goal_collection"
)

// ErrRunInProgress is returned by RunOnce while another run is active.
var ErrRunInProgress = errors.New("reconciliation run already in progress")

// PhaseFunc executes one phase for the calendar date today.
type PhaseFunc func(ctx context.Context, today time.Time) (services.BatchResult, error)

// Phase is a named step of a run.
type Phase struct {
	Name string
	Run  PhaseFunc
}

// PhaseReport is the outcome of one phase.
type PhaseReport struct {
	Name     string               `json:"name"`
	Result   services.BatchResult `json:"result"`
	Error    string               `json:"error,omitempty"`
	Duration time.Duration        `json:"duration_ns"`
}

// Report is the outcome of a full run.
type Report struct {
	Date       string        `json:"date"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Phases     []PhaseReport `json:"phases"`
}

// Failed reports whether any phase returned an error.
func (r Report) Failed() bool {
	for _, p := range r.Phases {
		if p.Error != "" {
			return true
		}
	}
	return false
}

// DefaultPhases wires the three reconciliation phases in their fixed order.
func DefaultPhases(transactions services.TransactionServicer, budgets services.BudgetServicer, goals services.GoalServicer) []Phase {
	return []Phase{
		{Name: PhaseRecurringTransactions, Run: transactions.ProcessDueRecurring},
		{Name: PhaseBudgetUpdate, Run: func(ctx context.Context, _ time.Time) (services.BatchResult, error) {
			return budgets.RecomputeAll(ctx)
		}},
		{Name: PhaseGoalCollection, Run: goals.ProcessAutoCollections},
	}
}

// Scheduler triggers a run once a day at a fixed wall-clock time.
type Scheduler struct {
	clock  clock.Clock
	hour   int
	minute int
	phases []Phase
	log    *zap.SugaredLogger

	running sync.Mutex
}

// New creates a Scheduler that runs phases daily at runAt (HH:MM) in the
// clock's location.
func New(clk clock.Clock, runAt string, phases []Phase) (*Scheduler, error) {
	hour, minute, err := config.ParseRunAt(runAt)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		clock:  clk,
		hour:   hour,
		minute: minute,
		phases: phases,
		log:    logger.Named("scheduler"),
	}, nil
}

// NextRun returns the first run time strictly after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, s.hour, s.minute, 0, 0, now.Location())
	}
	return next
}

// Start blocks, running the phases every day until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for {
		now := s.clock.Now()
		next := s.NextRun(now)
		s.log.Infow("next reconciliation run scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("scheduler stopped")
			return
		case <-timer.C:
		}

		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Warnw("scheduled run skipped", "error", err)
		}
	}
}

// RunOnce executes every phase in order for the clock's current date. Runs do
// not overlap: a call made while another run is active returns
// ErrRunInProgress.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	if !s.running.TryLock() {
		return Report{}, ErrRunInProgress
	}
	defer s.running.Unlock()

	start := s.clock.Now()
	today := recurrence.CalendarDate(start)
	report := Report{
		Date:      recurrence.FormatDate(today),
		StartedAt: start,
		Phases:    make([]PhaseReport, 0, len(s.phases)),
	}
	s.log.Infow("reconciliation run started", "date", report.Date)

	for _, phase := range s.phases {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = s.clock.Now()
			return report, err
		}

		phaseStart := time.Now()
		result, err := s.runPhase(ctx, phase, today)
		pr := PhaseReport{Name: phase.Name, Result: result, Duration: time.Since(phaseStart)}
		if err != nil {
			pr.Error = err.Error()
			s.log.Errorw("reconciliation phase failed", "phase", phase.Name, "error", err)
		} else {
			s.log.Infow("reconciliation phase finished",
				"phase", phase.Name,
				"processed", result.Processed,
				"skipped", result.Skipped,
				"failed", result.Failed,
				"duration", pr.Duration,
			)
		}
		report.Phases = append(report.Phases, pr)
	}

	report.FinishedAt = s.clock.Now()
	s.log.Infow("reconciliation run finished", "date", report.Date, "failed", report.Failed())
	return report, nil
}

// runPhase turns a panicking phase into an error so later phases still run.
func (s *Scheduler) runPhase(ctx context.Context, phase Phase, today time.Time) (result services.BatchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("phase %s panicked: %v", phase.Name, r)
		}
	}()
	return phase.Run(ctx, today)
}
