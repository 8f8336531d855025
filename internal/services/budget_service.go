package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"pftsystem/internal/clock"
	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/events"
	"pftsystem/internal/logger"
	"pftsystem/internal/models"
	"pftsystem/internal/pagination"
)

// budgetService handles budget-related business logic and the monthly
// expenditure reconciliation.
type budgetService struct {
	db              *gorm.DB
	clock           clock.Clock
	publisher       events.Publisher
	workers         int
	defaultCurrency string
}

// NewBudgetService creates a new BudgetServicer. RecomputeAll refreshes at
// most workers budgets concurrently.
func NewBudgetService(db *gorm.DB, clk clock.Clock, publisher events.Publisher, workers int, defaultCurrency string) BudgetServicer {
	if workers < 1 {
		workers = 1
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &budgetService{
		db:              db,
		clock:           clk,
		publisher:       publisher,
		workers:         workers,
		defaultCurrency: defaultCurrency,
	}
}

// CreateBudget creates the user's single budget.
func (s *budgetService) CreateBudget(ctx context.Context, userID string, in BudgetInput) (*models.Budget, error) {
	var count int64
	if err := s.db.Model(&models.Budget{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrBudgetExists
	}

	if !in.MonthlyLimit.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "monthly limit must be greater than zero")
	}
	limits, err := normalizeCategoryLimits(in.CategoryLimitsOn, in.CategoryLimits)
	if err != nil {
		return nil, err
	}
	currency, err := resolveCurrency(s.db, userID, in.Currency, s.defaultCurrency)
	if err != nil {
		return nil, err
	}

	budget := &models.Budget{
		UserID:             userID,
		MonthlyLimit:       in.MonthlyLimit,
		CurrentExpenditure: decimal.Zero,
		Currency:           currency,
		CategoryLimitsOn:   in.CategoryLimitsOn,
		CategoryLimits:     limits,
	}

	if err := s.db.Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.recompute(ctx, budget); err != nil {
		return nil, err
	}
	return budget, nil
}

// GetUserBudget returns the budget owned by the user.
func (s *budgetService) GetUserBudget(userID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Where("user_id = ?", userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user.
func (s *budgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// GetBudget returns any budget by ID regardless of owner.
func (s *budgetService) GetBudget(budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Where("id = ?", budgetID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// ListBudgets returns a page of every user's budget.
func (s *budgetService) ListBudgets(page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	result, err := pagination.Find[models.Budget](s.db.Model(&models.Budget{}), page, "created_at ASC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// UpdateBudget changes a budget. Owners may update their own budget and
// admins may update any budget. The owner never changes.
func (s *budgetService) UpdateBudget(ctx context.Context, actor Actor, budgetID string, in BudgetUpdate) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Where("id = ?", budgetID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if budget.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, "You do not have permission to update this budget")
	}

	if in.MonthlyLimit != nil {
		if !in.MonthlyLimit.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "monthly limit must be greater than zero")
		}
		budget.MonthlyLimit = *in.MonthlyLimit
	}
	if in.Currency != nil && *in.Currency != "" {
		budget.Currency = strings.ToUpper(*in.Currency)
	}
	if in.CategoryLimitsOn != nil {
		budget.CategoryLimitsOn = *in.CategoryLimitsOn
	}
	limits := budget.CategoryLimits
	if in.CategoryLimits != nil {
		limits = in.CategoryLimits
	}
	normalized, err := normalizeCategoryLimits(budget.CategoryLimitsOn, limits)
	if err != nil {
		return nil, err
	}
	budget.CategoryLimits = normalized

	err = s.db.Model(&budget).
		Select("MonthlyLimit", "Currency", "CategoryLimitsOn", "CategoryLimits").
		Updates(&budget).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.recompute(ctx, &budget); err != nil {
		return nil, err
	}
	return &budget, nil
}

// DeleteBudget removes the user's budget. The row is hard-deleted so the
// one-budget-per-user index frees up for a new budget.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return err
	}

	if err := s.db.Unscoped().Delete(budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetBudgetProgress reports the stored utilization of the user's budget.
func (s *budgetService) GetBudgetProgress(userID string) (*BudgetProgress, error) {
	budget, err := s.GetUserBudget(userID)
	if err != nil {
		return nil, err
	}

	return &BudgetProgress{
		BudgetID:   budget.ID,
		Budgeted:   budget.MonthlyLimit,
		Spent:      budget.CurrentExpenditure,
		Remaining:  budget.MonthlyLimit.Sub(budget.CurrentExpenditure),
		Percentage: percentOf(budget.CurrentExpenditure, budget.MonthlyLimit),
		Warning:    budget.Warning,
	}, nil
}

// RecomputeForUser refreshes the user's budget, if any.
func (s *budgetService) RecomputeForUser(ctx context.Context, userID string) error {
	var budget models.Budget
	if err := s.db.Where("user_id = ?", userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.recompute(ctx, &budget)
}

// RecomputeAll refreshes every budget with bounded concurrency. Each worker
// only touches its own budget row.
func (s *budgetService) RecomputeAll(ctx context.Context) (BatchResult, error) {
	log := logger.Named("budgets")

	var budgets []models.Budget
	if err := s.db.WithContext(ctx).Find(&budgets).Error; err != nil {
		return BatchResult{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var processed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := range budgets {
		budget := &budgets[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := s.recompute(gctx, budget); err != nil {
				failed.Add(1)
				log.Errorw("failed to recompute budget",
					"budget_id", budget.ID,
					"user_id", budget.UserID,
					"error", err,
				)
				return nil
			}
			processed.Add(1)
			return nil
		})
	}

	err := g.Wait()
	result := BatchResult{Processed: int(processed.Load()), Failed: int(failed.Load())}
	log.Infow("budgets recomputed", "processed", result.Processed, "failed", result.Failed)
	return result, err
}

// recompute sums this month's expenses in the budget currency and stores the
// expenditure and warning flags. It publishes budget.warning when the overall
// warning turns on.
func (s *budgetService) recompute(ctx context.Context, budget *models.Budget) error {
	start, end := clock.MonthBounds(s.clock.Now())

	var expenses []models.Transaction
	err := s.db.WithContext(ctx).
		Select("amount", "category").
		Where("user_id = ? AND type = ? AND currency = ? AND transaction_date BETWEEN ? AND ?",
			budget.UserID, models.TransactionTypeExpense, budget.Currency, storedTime(start), storedTime(end)).
		Find(&expenses).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	wasWarning := budget.Warning
	budget.CurrentExpenditure = sumAmounts(expenses)
	budget.Warning = models.ShouldWarn(budget.MonthlyLimit, budget.CurrentExpenditure)

	if budget.CategoryLimitsOn && len(budget.CategoryLimits) > 0 {
		byCategory := make(map[string]decimal.Decimal)
		for _, e := range expenses {
			byCategory[e.Category] = byCategory[e.Category].Add(e.Amount)
		}
		for i := range budget.CategoryLimits {
			cl := &budget.CategoryLimits[i]
			cl.CurrentExpenditure = byCategory[cl.Category]
			cl.Warning = models.ShouldWarn(cl.LimitAmount, cl.CurrentExpenditure)
		}
	}

	err = s.db.WithContext(ctx).Model(budget).
		Select("CurrentExpenditure", "Warning", "CategoryLimits").
		Updates(budget).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if budget.Warning && !wasWarning {
		events.PublishBestEffort(ctx, s.publisher, events.Event{
			Type:       events.TypeBudgetWarning,
			UserID:     budget.UserID,
			ResourceID: budget.ID,
			OccurredAt: s.clock.Now(),
			Data: map[string]any{
				"monthly_limit":       budget.MonthlyLimit.StringFixed(2),
				"current_expenditure": budget.CurrentExpenditure.StringFixed(2),
				"currency":            budget.Currency,
			},
		})
	}
	return nil
}

// normalizeCategoryLimits validates limits and resets their computed fields.
func normalizeCategoryLimits(on bool, limits []models.CategoryLimit) ([]models.CategoryLimit, error) {
	if on && len(limits) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
			"Category limits flag is on but no category limits are specified")
	}

	out := make([]models.CategoryLimit, 0, len(limits))
	seen := make(map[string]bool, len(limits))
	for _, l := range limits {
		category := strings.TrimSpace(l.Category)
		if category == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category limit requires a category")
		}
		if seen[category] {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "duplicate category limit for "+category)
		}
		if !l.LimitAmount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category limit amount must be greater than zero")
		}
		seen[category] = true
		out = append(out, models.CategoryLimit{Category: category, LimitAmount: l.LimitAmount, CurrentExpenditure: decimal.Zero})
	}
	return out, nil
}
