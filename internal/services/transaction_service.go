package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"pftsystem/internal/clock"
	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/events"
	"pftsystem/internal/logger"
	"pftsystem/internal/models"
	"pftsystem/internal/pagination"
	"pftsystem/internal/recurrence"
)

// transactionService handles transaction-related business logic and the
// materialization of recurring templates.
type transactionService struct {
	db              *gorm.DB
	clock           clock.Clock
	settings        SettingsServicer
	budgets         BudgetServicer
	publisher       events.Publisher
	defaultCurrency string
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(
	db *gorm.DB,
	clk clock.Clock,
	settings SettingsServicer,
	budgets BudgetServicer,
	publisher events.Publisher,
	defaultCurrency string,
) TransactionServicer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &transactionService{
		db:              db,
		clock:           clk,
		settings:        settings,
		budgets:         budgets,
		publisher:       publisher,
		defaultCurrency: defaultCurrency,
	}
}

// CreateTransaction records a transaction for the user. Expense rows refresh
// the user's budget before returning. A failed refresh is logged and left to
// the nightly run; the saved row is still returned.
func (s *transactionService) CreateTransaction(ctx context.Context, userID string, in TransactionInput) (*models.Transaction, error) {
	settings, err := s.settings.GetSettings()
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count >= int64(settings.TotalTransactionsLimit) {
		return nil, apperrors.ErrTransactionLimitReached
	}

	if in.IsRecurring {
		if err := s.checkRecurringLimit(userID, settings); err != nil {
			return nil, err
		}
	}

	if err := s.validateInput(&in, settings); err != nil {
		return nil, err
	}

	currency, err := resolveCurrency(s.db, userID, in.Currency, s.defaultCurrency)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	date := in.TransactionDate
	if date.IsZero() {
		date = now
	}

	transaction := &models.Transaction{
		UserID:            userID,
		Type:              in.Type,
		Category:          in.Category,
		Tags:              normalizeTags(in.Tags),
		Beneficiary:       in.Beneficiary,
		SenderDescription: in.SenderDescription,
		Amount:            in.Amount,
		Currency:          currency,
		IsRecurring:       in.IsRecurring,
		Recurrence:        in.Recurrence,
		Notify:            in.Notify,
		TransactionDate:   storedTime(date),
		LastUpdatedAt:     storedTime(now),
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if transaction.Type == models.TransactionTypeExpense {
		s.refreshBudget(ctx, userID, transaction.ID)
	}

	return transaction, nil
}

// refreshBudget recomputes the user's budget after a committed write. The
// write already succeeded, so a failure here is only logged.
func (s *transactionService) refreshBudget(ctx context.Context, userID, transactionID string) {
	if err := s.budgets.RecomputeForUser(ctx, userID); err != nil {
		logger.Named("transactions").Warnw("failed to refresh budget after transaction write",
			"user_id", userID,
			"transaction_id", transactionID,
			"error", err,
		)
	}
}

// GetUserTransactions retrieves a paginated, filtered list of the user's transactions.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	query := applyTransactionFilters(s.db.Model(&models.Transaction{}).Where("user_id = ?", userID), filter)

	result, err := pagination.Find[models.Transaction](query, page, "transaction_date DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// ListAllTransactions retrieves a paginated, filtered list of every user's
// transactions, newest first.
func (s *transactionService) ListAllTransactions(page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	query := applyTransactionFilters(s.db.Model(&models.Transaction{}), filter)

	result, err := pagination.Find[models.Transaction](query, page, "transaction_date DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("transaction_date >= ?", storedTime(*f.FromDate))
	}
	if f.ToDate != nil {
		q = q.Where("transaction_date <= ?", storedTime(*f.ToDate))
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Category != nil {
		q = q.Where("category = ?", *f.Category)
	}
	if f.IsRecurring != nil {
		q = q.Where("is_recurring = ?", *f.IsRecurring)
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction overwrites the editable fields of a transaction. The
// transaction date never changes after creation.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, in TransactionInput) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.GetSettings()
	if err != nil {
		return nil, err
	}
	if in.IsRecurring && !transaction.IsRecurring {
		if err := s.checkRecurringLimit(userID, settings); err != nil {
			return nil, err
		}
	}
	if err := s.validateInput(&in, settings); err != nil {
		return nil, err
	}

	currency, err := resolveCurrency(s.db, userID, in.Currency, s.defaultCurrency)
	if err != nil {
		return nil, err
	}

	previousType := transaction.Type
	transaction.Type = in.Type
	transaction.Category = in.Category
	transaction.Tags = normalizeTags(in.Tags)
	transaction.Beneficiary = in.Beneficiary
	transaction.SenderDescription = in.SenderDescription
	transaction.Amount = in.Amount
	transaction.Currency = currency
	transaction.Notify = in.Notify
	transaction.IsRecurring = in.IsRecurring
	transaction.Recurrence = in.Recurrence
	transaction.LastUpdatedAt = storedTime(s.clock.Now())

	if err := s.db.Omit("TransactionDate", "SourceKey").Save(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if previousType == models.TransactionTypeExpense || transaction.Type == models.TransactionTypeExpense {
		s.refreshBudget(ctx, userID, transaction.ID)
	}

	return transaction, nil
}

// DeleteTransaction soft-deletes a transaction.
func (s *transactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if transaction.Type == models.TransactionTypeExpense {
		s.refreshBudget(ctx, userID, transaction.ID)
	}
	return nil
}

// ProcessDueRecurring materializes every template whose next execution date
// is on or before today. Each firing writes the clone and the advanced
// template in one database transaction; the clone's source key turns a
// repeated firing into a no-op.
func (s *transactionService) ProcessDueRecurring(ctx context.Context, today time.Time) (BatchResult, error) {
	log := logger.Named("recurring")
	today = recurrence.CalendarDate(today)

	var templates []models.Transaction
	if err := s.db.WithContext(ctx).Where("is_recurring = ?", true).Find(&templates).Error; err != nil {
		return BatchResult{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var result BatchResult
	expenseUsers := make(map[string]struct{})

	for i := range templates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		template := &templates[i]
		if template.Recurrence == nil {
			result.Failed++
			log.Errorw("recurring transaction has no recurrence rule", "transaction_id", template.ID)
			continue
		}

		due, err := recurrence.ParseDate(template.Recurrence.NextExecutionDate)
		if err != nil {
			result.Failed++
			log.Errorw("invalid next execution date", "transaction_id", template.ID, "error", err)
			continue
		}
		if due.After(today) {
			continue
		}

		created, err := s.materialize(ctx, template, today)
		if err != nil {
			result.Failed++
			log.Errorw("failed to materialize recurring transaction",
				"transaction_id", template.ID,
				"user_id", template.UserID,
				"error", err,
			)
			continue
		}

		if created == nil {
			result.Skipped++
			continue
		}
		result.Processed++
		if created.Type == models.TransactionTypeExpense {
			expenseUsers[created.UserID] = struct{}{}
		}
		events.PublishBestEffort(ctx, s.publisher, events.Event{
			Type:       events.TypeTransactionMaterialized,
			UserID:     created.UserID,
			ResourceID: created.ID,
			OccurredAt: s.clock.Now(),
			Data: map[string]any{
				"template_id": template.ID,
				"amount":      created.Amount.StringFixed(2),
				"currency":    created.Currency,
				"type":        string(created.Type),
			},
		})
	}

	for userID := range expenseUsers {
		if err := s.budgets.RecomputeForUser(ctx, userID); err != nil {
			log.Errorw("failed to refresh budget after materialization", "user_id", userID, "error", err)
		}
	}

	log.Infow("recurring transactions processed",
		"processed", result.Processed,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

// materialize fires one template. It returns the new clone, or nil when the
// clone for this firing already existed.
func (s *transactionService) materialize(ctx context.Context, template *models.Transaction, today time.Time) (*models.Transaction, error) {
	rule := *template.Recurrence
	next, err := recurrence.Advance(rule, today)
	if err != nil {
		return nil, err
	}

	sourceKey := fmt.Sprintf("%s:%s", template.ID, rule.NextExecutionDate)
	now := storedTime(s.clock.Now())

	var created *models.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Soft-deleted clones still hold their key in the unique index.
		var existing int64
		if err := tx.Unscoped().Model(&models.Transaction{}).Where("source_key = ?", sourceKey).Count(&existing).Error; err != nil {
			return err
		}

		if existing == 0 {
			clone := &models.Transaction{
				UserID:            template.UserID,
				Type:              template.Type,
				Category:          template.Category,
				Tags:              template.Tags,
				Beneficiary:       template.Beneficiary,
				SenderDescription: template.SenderDescription,
				Amount:            template.Amount,
				Currency:          template.Currency,
				IsRecurring:       false,
				TransactionDate:   now,
				LastUpdatedAt:     now,
				SourceKey:         strPtr(sourceKey),
			}
			if err := tx.Create(clone).Error; err != nil {
				return err
			}
			created = clone
		}

		advanced := *template
		advanced.LastUpdatedAt = now
		if next.State == recurrence.Terminal {
			advanced.IsRecurring = false
			advanced.Recurrence = nil
		} else {
			rule.NextExecutionDate = recurrence.FormatDate(next.Next)
			advanced.Recurrence = &rule
		}
		if err := tx.Model(&advanced).Select("IsRecurring", "Recurrence", "LastUpdatedAt").Updates(&advanced).Error; err != nil {
			return err
		}
		*template = advanced
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return created, nil
}

// validateInput checks a transaction payload against the system settings.
func (s *transactionService) validateInput(in *TransactionInput, settings *models.SystemSettings) error {
	if !in.Type.Valid() {
		return apperrors.ErrInvalidTransactionType
	}
	if !in.Amount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}
	if !settings.AllowsCategory(in.Category) {
		return apperrors.ErrInvalidCategory
	}

	if !in.IsRecurring {
		in.Recurrence = nil
		return nil
	}
	if in.Recurrence != nil && in.Recurrence.NextExecutionDate == "" {
		in.Recurrence.NextExecutionDate = in.Recurrence.StartDate
	}
	return recurrence.Validate(in.Recurrence)
}

func (s *transactionService) checkRecurringLimit(userID string, settings *models.SystemSettings) error {
	var count int64
	err := s.db.Model(&models.Transaction{}).
		Where("user_id = ? AND is_recurring = ?", userID, true).
		Count(&count).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count >= int64(settings.RecurringTransactionsLimit) {
		return apperrors.WithMessage(apperrors.ErrTransactionLimitReached,
			"Maximum recurring transactions limit for user reached")
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
