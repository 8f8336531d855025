package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"pftsystem/internal/clock"
	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/logger"
	"pftsystem/internal/models"
	"pftsystem/internal/recurrence"
)

const (
	// notifyWindowDays is how far ahead recurring charges and goal
	// collections are announced.
	notifyWindowDays = 3
	// nearTargetPercent is the progress at which a goal is announced as
	// nearly complete.
	nearTargetPercent = 90.0
)

// notificationService derives notifications from the current state of
// budgets, recurring transactions and goals. It never writes.
type notificationService struct {
	db    *gorm.DB
	clock clock.Clock
	goals GoalServicer
}

// NewNotificationService creates a new NotificationServicer.
func NewNotificationService(db *gorm.DB, clk clock.Clock, goals GoalServicer) NotificationServicer {
	return &notificationService{db: db, clock: clk, goals: goals}
}

// GetBudgetNotifications returns a notification for the user's budget when
// its warning flag is set.
func (s *notificationService) GetBudgetNotifications(userID string) ([]BudgetNotification, error) {
	var budgets []models.Budget
	if err := s.db.Where("user_id = ? AND warning = ?", userID, true).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	notifications := make([]BudgetNotification, 0, len(budgets))
	for _, b := range budgets {
		exceeded := b.CurrentExpenditure.GreaterThanOrEqual(b.MonthlyLimit)

		var message string
		if exceeded {
			message = fmt.Sprintf("You have exceeded your monthly budget limit by %s %s!",
				b.CurrentExpenditure.Sub(b.MonthlyLimit).StringFixed(2), b.Currency)
		} else {
			message = fmt.Sprintf("You have used %.1f%% of your monthly budget.",
				percentOf(b.CurrentExpenditure, b.MonthlyLimit))
		}

		notifications = append(notifications, BudgetNotification{
			BudgetID:           b.ID,
			MonthlyLimit:       b.MonthlyLimit,
			CurrentExpenditure: b.CurrentExpenditure,
			RemainingAmount:    b.MonthlyLimit.Sub(b.CurrentExpenditure),
			PercentageUsed:     percentOf(b.CurrentExpenditure, b.MonthlyLimit),
			Currency:           b.Currency,
			Exceeded:           exceeded,
			Message:            message,
		})
	}
	return notifications, nil
}

// GetRecurringNotifications announces recurring transactions with notify set
// whose next execution falls within the next three days, today included.
func (s *notificationService) GetRecurringNotifications(userID string) ([]RecurringNotification, error) {
	var templates []models.Transaction
	err := s.db.Where("user_id = ? AND is_recurring = ? AND notify = ?", userID, true, true).
		Find(&templates).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	today := recurrence.CalendarDate(s.clock.Now())
	notifications := make([]RecurringNotification, 0)

	for _, t := range templates {
		if t.Recurrence == nil {
			continue
		}
		next, err := recurrence.ParseDate(t.Recurrence.NextExecutionDate)
		if err != nil {
			logger.Get().Warnw("skipping recurring transaction with invalid next execution date",
				"transaction_id", t.ID, "error", err)
			continue
		}

		days := clock.DaysBetween(today, next)
		if days < 0 || days > notifyWindowDays {
			continue
		}

		notifications = append(notifications, RecurringNotification{
			TransactionID:     t.ID,
			Type:              t.Type,
			Amount:            t.Amount,
			Currency:          t.Currency,
			Beneficiary:       t.Beneficiary,
			NextExecutionDate: t.Recurrence.NextExecutionDate,
			DaysUntil:         days,
			Message: fmt.Sprintf("Recurring %s of %s %s to %s is scheduled %s.",
				strings.ToLower(string(t.Type)), t.Amount.StringFixed(2), t.Currency, t.Beneficiary, dayPhrase(days)),
		})
	}
	return notifications, nil
}

// GetGoalNotifications reminds about upcoming auto-collections and goals that
// are nearly funded. Only goals with both notify and auto-collect set are
// considered. An upcoming collection takes priority over the progress note
// and carries the progress when the goal is nearly funded.
func (s *notificationService) GetGoalNotifications(ctx context.Context, userID string) ([]GoalNotification, error) {
	var goals []models.Goal
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND notify = ? AND enable_auto_collect = ?", userID, true, true).
		Find(&goals).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	today := recurrence.CalendarDate(s.clock.Now())
	notifications := make([]GoalNotification, 0)

	for i := range goals {
		goal := &goals[i]
		current, err := s.goals.CurrentAmount(ctx, goal.ID)
		if err != nil {
			return nil, err
		}
		progress := progressOf(goal, current)

		// A collection day missing from a short month is clamped here but
		// never fires, so the notice points at the real next run instead.
		nominal := NextCollectionDate(today, goal.CollectionDayOfMonth)
		firing := NextFiringDate(today, goal.CollectionDayOfMonth)
		days := clock.DaysBetween(today, firing)

		n := GoalNotification{
			GoalID:                  goal.ID,
			GoalName:                goal.GoalName,
			AmountRequired:          goal.AmountRequired,
			CurrentAmount:           progress.CurrentAmount,
			RemainingAmount:         progress.Remaining,
			MonthlyCommitment:       goal.MonthlyCommitment,
			CollectionDayOfMonth:    goal.CollectionDayOfMonth,
			NextCollectionDate:      recurrence.FormatDate(firing),
			DaysUntilNextCollection: days,
			Percentage:              progress.Percentage,
		}

		switch {
		case !nominal.Equal(firing) && clock.DaysBetween(today, nominal) <= notifyWindowDays:
			n.Kind = GoalSkippedCollection
			n.Message = fmt.Sprintf("Auto-collection for your '%s' goal is skipped this month because %s has no day %d. The next collection is on %s.",
				goal.GoalName, nominal.Month(), goal.CollectionDayOfMonth, n.NextCollectionDate)
		case days <= notifyWindowDays:
			n.Kind = GoalUpcomingCollection
			n.Message = fmt.Sprintf("Auto-collection of %s for your '%s' goal is scheduled %s.",
				goal.MonthlyCommitment.StringFixed(2), goal.GoalName, dayPhrase(days))
			if progress.Percentage >= nearTargetPercent {
				n.Message += fmt.Sprintf(" You've reached %.1f%% of it!", progress.Percentage)
			}
		case progress.Percentage >= nearTargetPercent:
			n.Kind = GoalNearTarget
			n.Message = fmt.Sprintf("You've reached %.1f%% of your '%s' goal! Only %s more to go!",
				progress.Percentage, goal.GoalName, progress.Remaining.StringFixed(2))
		default:
			continue
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

// GetAll combines the three notification lists. Users who switched
// notifications off get empty lists.
func (s *notificationService) GetAll(ctx context.Context, userID string) (*Notifications, error) {
	result := &Notifications{
		Budget:    []BudgetNotification{},
		Recurring: []RecurringNotification{},
		Goals:     []GoalNotification{},
	}

	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "settings_notifications_enabled").
		Where("id = ?", userID).First(&user).Error; err == nil && !user.Settings.NotificationsEnabled {
		return result, nil
	}

	var err error
	if result.Budget, err = s.GetBudgetNotifications(userID); err != nil {
		return nil, err
	}
	if result.Recurring, err = s.GetRecurringNotifications(userID); err != nil {
		return nil, err
	}
	if result.Goals, err = s.GetGoalNotifications(ctx, userID); err != nil {
		return nil, err
	}
	return result, nil
}

// NextCollectionDate returns the next occurrence of dayOfMonth strictly after
// today. The day is clamped to the length of the month, and a collection day
// that is today or already passed rolls over to next month.
func NextCollectionDate(today time.Time, dayOfMonth int) time.Time {
	today = recurrence.CalendarDate(today)
	candidate := clampedDay(today.Year(), today.Month(), dayOfMonth)
	if !candidate.After(today) {
		year, month := today.Year(), today.Month()+1
		if month > time.December {
			year, month = year+1, time.January
		}
		candidate = clampedDay(year, month, dayOfMonth)
	}
	return candidate
}

// NextFiringDate returns the first day strictly after today on which the
// collector runs for dayOfMonth. Months without that day are skipped.
func NextFiringDate(today time.Time, dayOfMonth int) time.Time {
	if dayOfMonth < 1 {
		return NextCollectionDate(today, dayOfMonth)
	}
	today = recurrence.CalendarDate(today)
	year, month := today.Year(), today.Month()
	for i := 0; i < 13; i++ {
		if dayOfMonth <= clock.DaysIn(year, month) {
			candidate := time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
			if candidate.After(today) {
				return candidate
			}
		}
		month++
		if month > time.December {
			year, month = year+1, time.January
		}
	}
	return NextCollectionDate(today, dayOfMonth)
}

func clampedDay(year int, month time.Month, day int) time.Time {
	if last := clock.DaysIn(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func dayPhrase(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}
