package services

import (
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pftsystem/internal/clock"
	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/models"
)

// reportService builds filtered transaction reports.
type reportService struct {
	db *gorm.DB
}

// NewReportService creates a new ReportServicer.
func NewReportService(db *gorm.DB) ReportServicer {
	return &reportService{db: db}
}

// reportTypes maps a report type to the transaction types it covers.
var reportTypes = map[ReportType][]models.TransactionType{
	ReportExpenditure: {models.TransactionTypeExpense},
	ReportIncome:      {models.TransactionTypeIncome},
	ReportSavings:     {models.TransactionTypeSavings},
	ReportCashflow:    {models.TransactionTypeExpense, models.TransactionTypeIncome, models.TransactionTypeSavings},
}

// GenerateReport lists the user's transactions between the request's dates,
// inclusive of both days, and summarizes them.
func (s *reportService) GenerateReport(userID string, req ReportRequest) (*Report, error) {
	reportType := ReportType(strings.ToLower(string(req.ReportType)))
	types, ok := reportTypes[reportType]
	if !ok {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
			"report type must be one of expenditure, income, savings or cashflow")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "start and end dates are required")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end date must not be before start date")
	}

	start := clock.StartOfDay(req.StartDate)
	end := clock.StartOfDay(req.EndDate).AddDate(0, 0, 1).Add(-1)

	q := s.db.Model(&models.Transaction{}).
		Where("user_id = ? AND transaction_date BETWEEN ? AND ?", userID, storedTime(start), storedTime(end)).
		Where("type IN ?", types)
	if len(req.Categories) > 0 {
		q = q.Where("category IN ?", req.Categories)
	}

	var transactions []models.Transaction
	if err := q.Order("transaction_date ASC").Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Tags are stored as a JSON list, so the tag filter runs in memory.
	if len(req.Tags) > 0 {
		transactions = filterByTags(transactions, req.Tags)
	}

	// Stored dates are UTC; report them on the requester's calendar.
	loc := req.StartDate.Location()
	for i := range transactions {
		transactions[i].TransactionDate = transactions[i].TransactionDate.In(loc)
	}

	lines := make([]ReportLine, 0, len(transactions))
	for _, t := range transactions {
		lines = append(lines, ReportLine{
			Type:        t.Type,
			Date:        t.TransactionDate.Format(clock.DateLayout),
			Amount:      t.Amount,
			Currency:    t.Currency,
			Category:    t.Category,
			Beneficiary: t.Beneficiary,
			Tags:        t.Tags,
			Description: t.SenderDescription,
		})
	}

	return &Report{
		ReportType:   reportType,
		StartDate:    req.StartDate.Format(clock.DateLayout),
		EndDate:      req.EndDate.Format(clock.DateLayout),
		Categories:   req.Categories,
		Tags:         req.Tags,
		Transactions: lines,
		Summary:      Summarize(transactions),
	}, nil
}

// Summarize totals transactions by type. The average daily expense divides
// total expense by the number of distinct days with an expense.
func Summarize(transactions []models.Transaction) ReportSummary {
	summary := ReportSummary{
		TotalIncome:         decimal.Zero,
		TotalExpense:        decimal.Zero,
		TotalSavings:        decimal.Zero,
		AverageDailyExpense: decimal.Zero,
	}
	expenseDays := make(map[string]struct{})

	for _, t := range transactions {
		date := t.TransactionDate.Format(clock.DateLayout)
		switch t.Type {
		case models.TransactionTypeIncome:
			summary.TotalIncome = summary.TotalIncome.Add(t.Amount)
			if summary.HighestIncome == nil || t.Amount.GreaterThan(summary.HighestIncome.Amount) {
				summary.HighestIncome = &HighestIncome{Amount: t.Amount, Source: t.Beneficiary, Date: date}
			}
		case models.TransactionTypeExpense:
			summary.TotalExpense = summary.TotalExpense.Add(t.Amount)
			expenseDays[date] = struct{}{}
			if summary.HighestExpense == nil || t.Amount.GreaterThan(summary.HighestExpense.Amount) {
				summary.HighestExpense = &HighestExpense{Amount: t.Amount, Category: t.Category, Date: date}
			}
		case models.TransactionTypeSavings:
			summary.TotalSavings = summary.TotalSavings.Add(t.Amount)
		}
	}

	summary.NetBalance = summary.TotalIncome.Sub(summary.TotalExpense)
	summary.BalanceAfterSavings = summary.TotalIncome.Add(summary.TotalSavings).Sub(summary.TotalExpense)
	if n := len(expenseDays); n > 0 {
		summary.AverageDailyExpense = summary.TotalExpense.Div(decimal.NewFromInt(int64(n))).Round(2)
	}
	return summary
}

func filterByTags(transactions []models.Transaction, tags []string) []models.Transaction {
	wanted := make(map[string]bool, len(tags))
	for _, t := range tags {
		wanted[t] = true
	}

	out := transactions[:0]
	for _, t := range transactions {
		for _, tag := range t.Tags {
			if wanted[tag] {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
