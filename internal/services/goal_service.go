package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pftsystem/internal/clock"
	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/events"
	"pftsystem/internal/logger"
	"pftsystem/internal/models"
	"pftsystem/internal/pagination"
)

// Fields of the Savings transaction written for each auto-collection.
const (
	GoalContributionCategory = "Goal Contribution"
	GoalContributionPayee    = "Self"
)

// periodKeyLayout keys auto-collections by calendar month.
const periodKeyLayout = "2006-01"

// goalService handles savings goals, their contributions and the monthly
// auto-collection.
type goalService struct {
	db              *gorm.DB
	clock           clock.Clock
	publisher       events.Publisher
	defaultCurrency string
}

// NewGoalService creates a new GoalServicer. Goals without a currency are
// collected in defaultCurrency.
func NewGoalService(db *gorm.DB, clk clock.Clock, publisher events.Publisher, defaultCurrency string) GoalServicer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &goalService{db: db, clock: clk, publisher: publisher, defaultCurrency: defaultCurrency}
}

// CreateGoal creates a savings goal for the user.
func (s *goalService) CreateGoal(userID string, in GoalInput) (*models.Goal, error) {
	goal := &models.Goal{
		UserID:               userID,
		GoalName:             strings.TrimSpace(in.GoalName),
		AmountRequired:       in.AmountRequired,
		MonthlyCommitment:    in.MonthlyCommitment,
		Currency:             strings.ToUpper(in.Currency),
		EnableAutoCollect:    in.EnableAutoCollect,
		CollectionDayOfMonth: in.CollectionDayOfMonth,
		Notify:               in.Notify,
	}
	if err := validateGoal(goal); err != nil {
		return nil, err
	}

	if goal.Currency == "" {
		currency, err := resolveCurrency(s.db, userID, "", s.defaultCurrency)
		if err != nil {
			return nil, err
		}
		goal.Currency = currency
	}

	if err := s.db.Create(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goal, nil
}

// GetUserGoals returns a paginated list of the user's goals.
func (s *goalService) GetUserGoals(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error) {
	query := s.db.Model(&models.Goal{}).Where("user_id = ?", userID)

	result, err := pagination.Find[models.Goal](query, page, "created_at ASC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// ListAllGoals returns a page of every user's goals.
func (s *goalService) ListAllGoals(page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error) {
	result, err := pagination.Find[models.Goal](s.db.Model(&models.Goal{}), page, "created_at ASC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetGoalByID returns a goal by ID if it belongs to the user.
func (s *goalService) GetGoalByID(userID, goalID string) (*models.Goal, error) {
	var goal models.Goal
	if err := s.db.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &goal, nil
}

// UpdateGoal applies the non-nil fields of in.
func (s *goalService) UpdateGoal(userID, goalID string, in GoalUpdate) (*models.Goal, error) {
	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return nil, err
	}

	if in.GoalName != nil {
		goal.GoalName = strings.TrimSpace(*in.GoalName)
	}
	if in.AmountRequired != nil {
		goal.AmountRequired = *in.AmountRequired
	}
	if in.MonthlyCommitment != nil {
		goal.MonthlyCommitment = *in.MonthlyCommitment
	}
	if in.Currency != nil && *in.Currency != "" {
		goal.Currency = strings.ToUpper(*in.Currency)
	}
	if in.EnableAutoCollect != nil {
		goal.EnableAutoCollect = *in.EnableAutoCollect
	}
	if in.CollectionDayOfMonth != nil {
		goal.CollectionDayOfMonth = *in.CollectionDayOfMonth
	}
	if in.Notify != nil {
		goal.Notify = *in.Notify
	}
	if err := validateGoal(goal); err != nil {
		return nil, err
	}

	if err := s.db.Save(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goal, nil
}

// DeleteGoal soft-deletes a goal. Its contributions stay as history.
func (s *goalService) DeleteGoal(userID, goalID string) error {
	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(goal).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// AddContribution records a manual contribution towards a goal.
func (s *goalService) AddContribution(ctx context.Context, userID, goalID string, amount decimal.Decimal) (*models.GoalContribution, error) {
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return nil, err
	}

	contribution := &models.GoalContribution{
		GoalID:           goal.ID,
		UserID:           userID,
		Amount:           amount,
		ContributionDate: storedTime(s.clock.Now()),
	}
	if err := s.db.WithContext(ctx).Create(contribution).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return contribution, nil
}

// GetContributions lists the contributions of the user's goal, oldest first.
func (s *goalService) GetContributions(userID, goalID string) ([]models.GoalContribution, error) {
	if _, err := s.GetGoalByID(userID, goalID); err != nil {
		return nil, err
	}

	var contributions []models.GoalContribution
	if err := s.db.Where("goal_id = ?", goalID).Order("contribution_date ASC").Find(&contributions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return contributions, nil
}

// CurrentAmount sums every contribution of the goal.
func (s *goalService) CurrentAmount(ctx context.Context, goalID string) (decimal.Decimal, error) {
	var contributions []models.GoalContribution
	if err := s.db.WithContext(ctx).Select("amount").Where("goal_id = ?", goalID).Find(&contributions).Error; err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	total := decimal.Zero
	for _, c := range contributions {
		total = total.Add(c.Amount)
	}
	return total, nil
}

// GetGoalProgress reports how much of the goal has been funded.
func (s *goalService) GetGoalProgress(ctx context.Context, userID, goalID string) (*GoalProgress, error) {
	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return nil, err
	}

	current, err := s.CurrentAmount(ctx, goal.ID)
	if err != nil {
		return nil, err
	}
	return progressOf(goal, current), nil
}

func progressOf(goal *models.Goal, current decimal.Decimal) *GoalProgress {
	return &GoalProgress{
		GoalID:         goal.ID,
		AmountRequired: goal.AmountRequired,
		CurrentAmount:  current,
		Remaining:      goal.AmountRequired.Sub(current),
		Percentage:     percentOf(current, goal.AmountRequired),
	}
}

// ProcessAutoCollections collects the monthly commitment of every
// auto-collecting goal whose collection day is today. Each collection writes a
// contribution and a Savings transaction in one database transaction, keyed
// by goal and month so that a second run in the same month is a no-op.
func (s *goalService) ProcessAutoCollections(ctx context.Context, today time.Time) (BatchResult, error) {
	log := logger.Named("goals")

	var goals []models.Goal
	err := s.db.WithContext(ctx).
		Where("enable_auto_collect = ? AND collection_day_of_month = ?", true, today.Day()).
		Find(&goals).Error
	if err != nil {
		return BatchResult{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var result BatchResult
	period := today.Format(periodKeyLayout)

	for i := range goals {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		goal := &goals[i]
		collected, err := s.collect(ctx, goal, period)
		if err != nil {
			result.Failed++
			log.Errorw("failed to auto-collect goal",
				"goal_id", goal.ID,
				"user_id", goal.UserID,
				"error", err,
			)
			continue
		}
		if collected == nil {
			result.Skipped++
			continue
		}

		result.Processed++
		events.PublishBestEffort(ctx, s.publisher, events.Event{
			Type:       events.TypeGoalContribution,
			UserID:     goal.UserID,
			ResourceID: goal.ID,
			OccurredAt: s.clock.Now(),
			Data: map[string]any{
				"contribution_id": collected.ID,
				"amount":          collected.Amount.StringFixed(2),
				"period":          period,
			},
		})
	}

	log.Infow("goal auto-collections processed",
		"processed", result.Processed,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

// collect writes the contribution for period, or returns nil when it exists.
func (s *goalService) collect(ctx context.Context, goal *models.Goal, period string) (*models.GoalContribution, error) {
	if !goal.MonthlyCommitment.IsPositive() {
		return nil, fmt.Errorf("monthly commitment must be positive, got %s", goal.MonthlyCommitment)
	}

	currency := goal.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}
	now := storedTime(s.clock.Now())
	sourceKey := fmt.Sprintf("goal:%s:%s", goal.ID, period)

	var contribution *models.GoalContribution
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.GoalContribution{}).
			Where("goal_id = ? AND period_key = ?", goal.ID, period).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		c := &models.GoalContribution{
			GoalID:           goal.ID,
			UserID:           goal.UserID,
			Amount:           goal.MonthlyCommitment,
			ContributionDate: now,
			PeriodKey:        strPtr(period),
		}
		if err := tx.Create(c).Error; err != nil {
			return err
		}

		savings := &models.Transaction{
			UserID:            goal.UserID,
			Type:              models.TransactionTypeSavings,
			Category:          GoalContributionCategory,
			Tags:              []string{},
			Beneficiary:       GoalContributionPayee,
			SenderDescription: "Auto-collection for " + goal.GoalName,
			Amount:            goal.MonthlyCommitment,
			Currency:          currency,
			TransactionDate:   now,
			LastUpdatedAt:     now,
			SourceKey:         strPtr(sourceKey),
		}
		if err := tx.Create(savings).Error; err != nil {
			return err
		}

		contribution = c
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return contribution, nil
}

func validateGoal(goal *models.Goal) error {
	if goal.GoalName == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "goal name is required")
	}
	if !goal.AmountRequired.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount required must be greater than zero")
	}
	if goal.MonthlyCommitment.IsNegative() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "monthly commitment must not be negative")
	}
	if goal.CollectionDayOfMonth < 1 || goal.CollectionDayOfMonth > 31 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "collection day of month must be between 1 and 31")
	}
	if goal.EnableAutoCollect && !goal.MonthlyCommitment.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "monthly commitment is required for auto-collection")
	}
	return nil
}
