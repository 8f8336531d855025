// Package recurrence computes the next firing date of a recurring
// transaction. It is pure: no clock, no store, no logging.
package recurrence

import (
	"fmt"
	"time"

	"pftsystem/internal/clock"
	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/models"
)

// State tells the caller what to do with the rule after a firing.
type State int

const (
	// Active means the rule stays scheduled at NextState.Next.
	Active State = iota
	// Terminal means the end date has been passed; the caller clears the
	// rule and marks the transaction as no longer recurring.
	Terminal
)

func (s State) String() string {
	if s == Terminal {
		return "terminal"
	}
	return "active"
}

// NextState is the outcome of Advance.
type NextState struct {
	State State
	Next  time.Time // zero when Terminal
}

// Stepper moves a calendar date forward by one period.
type Stepper interface {
	Step(current time.Time, executeOnDay int) time.Time
}

// StepperFunc adapts a function to Stepper.
type StepperFunc func(current time.Time, executeOnDay int) time.Time

// Step calls f.
func (f StepperFunc) Step(current time.Time, executeOnDay int) time.Time {
	return f(current, executeOnDay)
}

var steppers = map[models.RecurrencePattern]Stepper{
	models.RecurrenceDaily: StepperFunc(func(c time.Time, _ int) time.Time {
		return c.AddDate(0, 0, 1)
	}),
	models.RecurrenceWeekly: StepperFunc(func(c time.Time, _ int) time.Time {
		return c.AddDate(0, 0, 7)
	}),
	models.RecurrenceMonthly: StepperFunc(stepMonthly),
}

// stepMonthly moves to the same position in the following month, pinned to
// executeOnDay and clamped to the length of that month. Go's AddDate would
// normalize Jan 31 + 1 month into March, so the target month is computed first.
func stepMonthly(current time.Time, executeOnDay int) time.Time {
	year, month := current.Year(), current.Month()+1
	if month > time.December {
		year, month = year+1, time.January
	}
	day := executeOnDay
	if day < 1 {
		day = current.Day()
	}
	if last := clock.DaysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Supported reports whether pattern has a registered stepper.
func Supported(pattern models.RecurrencePattern) bool {
	_, ok := steppers[pattern]
	return ok
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(clock.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(clock.DateLayout)
}

// CalendarDate strips the time and location of t, keeping its local calendar day.
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Advance computes the firing after rule.NextExecutionDate. The schedule is
// anchored on the rule itself rather than on referenceDate (the run date), so
// a template that fell behind catches up one firing per run.
func Advance(rule models.RecurrenceRule, referenceDate time.Time) (NextState, error) {
	stepper, ok := steppers[rule.Pattern]
	if !ok {
		return NextState{}, apperrors.WithMessage(apperrors.ErrInvalidRecurrencePattern,
			fmt.Sprintf("Unknown recurrence pattern: %s", rule.Pattern))
	}

	current, err := ParseDate(rule.NextExecutionDate)
	if err != nil {
		return NextState{}, apperrors.Wrap(apperrors.ErrConstraintViolation, err)
	}
	end, err := ParseDate(rule.EndDate)
	if err != nil {
		return NextState{}, apperrors.Wrap(apperrors.ErrConstraintViolation, err)
	}

	next := stepper.Step(current, rule.ExecuteOnDay)
	if next.After(end) {
		return NextState{State: Terminal}, nil
	}
	return NextState{State: Active, Next: next}, nil
}

// Validate checks a rule before it is persisted.
func Validate(rule *models.RecurrenceRule) error {
	if rule == nil {
		return apperrors.WithMessage(apperrors.ErrConstraintViolation,
			"Recurrence details are required for recurring transactions")
	}
	if !Supported(rule.Pattern) {
		return apperrors.ErrInvalidRecurrencePattern
	}
	start, err := ParseDate(rule.StartDate)
	if err != nil {
		return apperrors.WithMessage(apperrors.ErrConstraintViolation, "Start date must be in the format YYYY-MM-DD")
	}
	end, err := ParseDate(rule.EndDate)
	if err != nil {
		return apperrors.WithMessage(apperrors.ErrConstraintViolation, "End date must be in the format YYYY-MM-DD")
	}
	next, err := ParseDate(rule.NextExecutionDate)
	if err != nil {
		return apperrors.WithMessage(apperrors.ErrConstraintViolation, "Next execution date must be in the format YYYY-MM-DD")
	}
	if end.Before(start) {
		return apperrors.WithMessage(apperrors.ErrConstraintViolation, "End date must not be before start date")
	}
	if next.After(end) {
		return apperrors.WithMessage(apperrors.ErrConstraintViolation, "Next execution date must not be after end date")
	}
	if rule.Pattern == models.RecurrenceMonthly && (rule.ExecuteOnDay < 1 || rule.ExecuteOnDay > 28) {
		return apperrors.WithMessage(apperrors.ErrConstraintViolation, "ExecuteOnDay must be between 1 and 28 for monthly recurrence")
	}
	return nil
}
