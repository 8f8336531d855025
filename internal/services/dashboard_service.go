package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pftsystem/internal/clock"
	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/models"
)

// UsageReporter reports how many API requests the process has served.
type UsageReporter interface {
	TotalRequests() int64
}

// dashboardService assembles the user and admin landing pages.
type dashboardService struct {
	db    *gorm.DB
	clock clock.Clock
	users UserServicer
	usage UsageReporter
}

// NewDashboardService creates a new DashboardServicer. usage may be nil.
func NewDashboardService(db *gorm.DB, clk clock.Clock, users UserServicer, usage UsageReporter) DashboardServicer {
	return &dashboardService{db: db, clock: clk, users: users, usage: usage}
}

// GetUserDashboard summarizes the user's month, budget and goals.
func (s *dashboardService) GetUserDashboard(userID string) (*UserDashboard, error) {
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	start, end := clock.MonthBounds(s.clock.Now())
	summary := MonthSummary{
		TotalIncomeThisMonth:   decimal.Zero,
		TotalExpensesThisMonth: decimal.Zero,
		TotalSavingsThisMonth:  decimal.Zero,
	}

	if err := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID).
		Count(&summary.TotalTransactionsToDate).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var month []models.Transaction
	err = s.db.Select("type", "amount").
		Where("user_id = ? AND transaction_date BETWEEN ? AND ?", userID, storedTime(start), storedTime(end)).
		Find(&month).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	summary.TotalTransactionsThisMonth = int64(len(month))
	for _, t := range month {
		switch t.Type {
		case models.TransactionTypeIncome:
			summary.TotalIncomeThisMonth = summary.TotalIncomeThisMonth.Add(t.Amount)
		case models.TransactionTypeExpense:
			summary.TotalExpensesThisMonth = summary.TotalExpensesThisMonth.Add(t.Amount)
		case models.TransactionTypeSavings:
			summary.TotalSavingsThisMonth = summary.TotalSavingsThisMonth.Add(t.Amount)
		}
	}

	dashboard := &UserDashboard{
		Username:     user.FullName(),
		Transactions: summary,
		OngoingGoals: []models.Goal{},
	}

	var budget models.Budget
	err = s.db.Where("user_id = ?", userID).First(&budget).Error
	switch {
	case err == nil:
		dashboard.Budget = &budget
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&dashboard.OngoingGoals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	dashboard.OngoingGoalsCount = int64(len(dashboard.OngoingGoals))

	return dashboard, nil
}

// GetAdminDashboard reports system-wide counts.
func (s *dashboardService) GetAdminDashboard(userID string) (*AdminDashboard, error) {
	admin, err := s.users.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	dashboard := &AdminDashboard{Username: admin.FullName()}

	if err := s.db.Model(&models.User{}).Count(&dashboard.TotalUsers).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Model(&models.Transaction{}).Count(&dashboard.TotalTransactionsToDate).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	start, end := clock.MonthBounds(s.clock.Now())
	if err := s.db.Model(&models.Transaction{}).
		Where("transaction_date BETWEEN ? AND ?", storedTime(start), storedTime(end)).
		Count(&dashboard.TotalTransactionsThisMonth).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if s.usage != nil {
		dashboard.SystemUsage = s.usage.TotalRequests()
	}
	return dashboard, nil
}
