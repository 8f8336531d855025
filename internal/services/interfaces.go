package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"pftsystem/internal/models"
	"pftsystem/internal/pagination"
)

// BatchResult summarizes one pass of a reconciliation job over many entities.
type BatchResult struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Add accumulates other into r.
func (r *BatchResult) Add(other BatchResult) {
	r.Processed += other.Processed
	r.Skipped += other.Skipped
	r.Failed += other.Failed
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string, role models.Role) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	GetSettings(userID string) (*models.UserSettings, error)
	UpdateSettings(userID string, currency *string, notificationsEnabled *bool) (*models.UserSettings, error)
	ListUsers(page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	PromoteToAdmin(email string) (*models.User, error)
	RevokeToken(tokenHash string, expiresAt time.Time) error
	IsTokenRevoked(tokenHash string) (bool, error)
}

// TransactionInput carries the user-editable fields of a transaction.
type TransactionInput struct {
	Type              models.TransactionType
	Category          string
	Tags              []string
	Beneficiary       string
	SenderDescription string
	Amount            decimal.Decimal
	Currency          string
	IsRecurring       bool
	Recurrence        *models.RecurrenceRule
	Notify            bool
	TransactionDate   time.Time
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate    *time.Time
	ToDate      *time.Time
	Type        *models.TransactionType
	Category    *string
	IsRecurring *bool
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, userID string, in TransactionInput) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	ListAllTransactions(page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, in TransactionInput) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) error

	// ProcessDueRecurring materializes every recurring template due on or
	// before today and advances its schedule.
	ProcessDueRecurring(ctx context.Context, today time.Time) (BatchResult, error)
}

// BudgetInput carries the fields needed to create a budget.
type BudgetInput struct {
	MonthlyLimit     decimal.Decimal
	Currency         string
	CategoryLimitsOn bool
	CategoryLimits   []models.CategoryLimit
}

// BudgetUpdate carries optional budget changes. A nil CategoryLimits leaves
// the existing limits untouched.
type BudgetUpdate struct {
	MonthlyLimit     *decimal.Decimal
	Currency         *string
	CategoryLimitsOn *bool
	CategoryLimits   []models.CategoryLimit
}

// BudgetProgress contains spending vs budget data for the current month.
type BudgetProgress struct {
	BudgetID   string          `json:"budget_id"`
	Budgeted   decimal.Decimal `json:"budgeted"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage float64         `json:"percentage"`
	Warning    bool            `json:"warning"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(ctx context.Context, userID string, in BudgetInput) (*models.Budget, error)
	GetUserBudget(userID string) (*models.Budget, error)
	GetBudgetByID(userID, budgetID string) (*models.Budget, error)
	GetBudget(budgetID string) (*models.Budget, error)
	ListBudgets(page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error)
	UpdateBudget(ctx context.Context, actor Actor, budgetID string, in BudgetUpdate) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error
	GetBudgetProgress(userID string) (*BudgetProgress, error)

	// RecomputeForUser refreshes the user's budget from this month's expenses.
	// A user without a budget is not an error.
	RecomputeForUser(ctx context.Context, userID string) error
	// RecomputeAll refreshes every budget. Per-budget failures are counted,
	// they never abort the batch.
	RecomputeAll(ctx context.Context) (BatchResult, error)
}

// Actor identifies the authenticated caller of an operation that admins may
// perform on behalf of other users.
type Actor struct {
	UserID string
	Role   models.Role
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// GoalInput carries the fields needed to create a goal.
type GoalInput struct {
	GoalName             string
	AmountRequired       decimal.Decimal
	MonthlyCommitment    decimal.Decimal
	Currency             string
	EnableAutoCollect    bool
	CollectionDayOfMonth int
	Notify               bool
}

// GoalUpdate carries optional goal changes.
type GoalUpdate struct {
	GoalName             *string
	AmountRequired       *decimal.Decimal
	MonthlyCommitment    *decimal.Decimal
	Currency             *string
	EnableAutoCollect    *bool
	CollectionDayOfMonth *int
	Notify               *bool
}

// GoalProgress reports how far a goal has been funded.
type GoalProgress struct {
	GoalID         string          `json:"goal_id"`
	AmountRequired decimal.Decimal `json:"amount_required"`
	CurrentAmount  decimal.Decimal `json:"current_amount"`
	Remaining      decimal.Decimal `json:"remaining"`
	Percentage     float64         `json:"percentage"`
}

// GoalServicer defines the contract for goal-related business logic.
type GoalServicer interface {
	CreateGoal(userID string, in GoalInput) (*models.Goal, error)
	GetUserGoals(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error)
	ListAllGoals(page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error)
	GetGoalByID(userID, goalID string) (*models.Goal, error)
	UpdateGoal(userID, goalID string, in GoalUpdate) (*models.Goal, error)
	DeleteGoal(userID, goalID string) error

	AddContribution(ctx context.Context, userID, goalID string, amount decimal.Decimal) (*models.GoalContribution, error)
	GetContributions(userID, goalID string) ([]models.GoalContribution, error)
	CurrentAmount(ctx context.Context, goalID string) (decimal.Decimal, error)
	GetGoalProgress(ctx context.Context, userID, goalID string) (*GoalProgress, error)

	// ProcessAutoCollections records this month's contribution for every
	// auto-collecting goal whose collection day is today.
	ProcessAutoCollections(ctx context.Context, today time.Time) (BatchResult, error)
}

// BudgetNotification is raised for a budget in the warning band.
type BudgetNotification struct {
	BudgetID           string          `json:"budget_id"`
	MonthlyLimit       decimal.Decimal `json:"monthly_limit"`
	CurrentExpenditure decimal.Decimal `json:"current_expenditure"`
	RemainingAmount    decimal.Decimal `json:"remaining_amount"`
	PercentageUsed     float64         `json:"percentage_used"`
	Currency           string          `json:"currency"`
	Exceeded           bool            `json:"exceeded"`
	Message            string          `json:"message"`
}

// RecurringNotification announces an upcoming recurring transaction.
type RecurringNotification struct {
	TransactionID     string                 `json:"transaction_id"`
	Type              models.TransactionType `json:"type"`
	Amount            decimal.Decimal        `json:"amount"`
	Currency          string                 `json:"currency"`
	Beneficiary       string                 `json:"beneficiary"`
	NextExecutionDate string                 `json:"next_execution_date"`
	DaysUntil         int                    `json:"days_until"`
	Message           string                 `json:"message"`
}

// GoalNotificationKind distinguishes goal reminders.
type GoalNotificationKind string

const (
	GoalUpcomingCollection GoalNotificationKind = "upcoming_collection"
	GoalSkippedCollection  GoalNotificationKind = "skipped_collection"
	GoalNearTarget         GoalNotificationKind = "near_target"
)

// GoalNotification is a reminder about a goal. NextCollectionDate is the day
// the collector will actually run.
type GoalNotification struct {
	GoalID                  string               `json:"goal_id"`
	GoalName                string               `json:"goal_name"`
	Kind                    GoalNotificationKind `json:"kind"`
	AmountRequired          decimal.Decimal      `json:"amount_required"`
	CurrentAmount           decimal.Decimal      `json:"current_amount"`
	RemainingAmount         decimal.Decimal      `json:"remaining_amount"`
	MonthlyCommitment       decimal.Decimal      `json:"monthly_commitment"`
	CollectionDayOfMonth    int                  `json:"collection_day_of_month"`
	NextCollectionDate      string               `json:"next_collection_date,omitempty"`
	DaysUntilNextCollection int                  `json:"days_until_next_collection"`
	Percentage              float64              `json:"percentage"`
	Message                 string               `json:"message"`
}

// Notifications groups every notification for a user.
type Notifications struct {
	Budget    []BudgetNotification    `json:"budget"`
	Recurring []RecurringNotification `json:"recurring"`
	Goals     []GoalNotification      `json:"goals"`
}

// NotificationCount is the number of notifications of each kind.
type NotificationCount struct {
	Budget    int `json:"budget"`
	Recurring int `json:"recurring"`
	Goals     int `json:"goals"`
	Total     int `json:"total"`
}

// Count tallies the lists.
func (n *Notifications) Count() NotificationCount {
	c := NotificationCount{Budget: len(n.Budget), Recurring: len(n.Recurring), Goals: len(n.Goals)}
	c.Total = c.Budget + c.Recurring + c.Goals
	return c
}

// NotificationServicer projects read-only notifications from current state.
type NotificationServicer interface {
	GetBudgetNotifications(userID string) ([]BudgetNotification, error)
	GetRecurringNotifications(userID string) ([]RecurringNotification, error)
	GetGoalNotifications(ctx context.Context, userID string) ([]GoalNotification, error)
	GetAll(ctx context.Context, userID string) (*Notifications, error)
}

// ReportType selects which transaction types a report covers.
type ReportType string

const (
	ReportExpenditure ReportType = "expenditure"
	ReportIncome      ReportType = "income"
	ReportSavings     ReportType = "savings"
	ReportCashflow    ReportType = "cashflow"
)

// ReportRequest describes a report to generate. The date range is inclusive.
type ReportRequest struct {
	ReportType ReportType
	StartDate  time.Time
	EndDate    time.Time
	Categories []string
	Tags       []string
}

// ReportLine is a transaction as listed in a report.
type ReportLine struct {
	Type        models.TransactionType `json:"type"`
	Date        string                 `json:"date"`
	Amount      decimal.Decimal        `json:"amount"`
	Currency    string                 `json:"currency"`
	Category    string                 `json:"category"`
	Beneficiary string                 `json:"beneficiary"`
	Tags        []string               `json:"tags"`
	Description string                 `json:"description"`
}

// HighestExpense is the single largest expense in a report.
type HighestExpense struct {
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Date     string          `json:"date"`
}

// HighestIncome is the single largest income in a report.
type HighestIncome struct {
	Amount decimal.Decimal `json:"amount"`
	Source string          `json:"source"`
	Date   string          `json:"date"`
}

// ReportSummary aggregates the transactions of a report.
type ReportSummary struct {
	TotalIncome         decimal.Decimal `json:"total_income"`
	TotalExpense        decimal.Decimal `json:"total_expense"`
	TotalSavings        decimal.Decimal `json:"total_savings"`
	NetBalance          decimal.Decimal `json:"net_balance"`
	BalanceAfterSavings decimal.Decimal `json:"balance_after_savings"`
	AverageDailyExpense decimal.Decimal `json:"average_daily_expense"`
	HighestExpense      *HighestExpense `json:"highest_expense,omitempty"`
	HighestIncome       *HighestIncome  `json:"highest_income,omitempty"`
}

// Report is a generated financial report.
type Report struct {
	ReportType   ReportType    `json:"report_type"`
	StartDate    string        `json:"start_date"`
	EndDate      string        `json:"end_date"`
	Categories   []string      `json:"categories,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	Transactions []ReportLine  `json:"transactions"`
	Summary      ReportSummary `json:"summary"`
}

// ReportServicer generates financial reports.
type ReportServicer interface {
	GenerateReport(userID string, req ReportRequest) (*Report, error)
}

// MonthSummary holds transaction totals for the current month.
type MonthSummary struct {
	TotalTransactionsToDate    int64           `json:"total_transactions_to_date"`
	TotalTransactionsThisMonth int64           `json:"total_transactions_this_month"`
	TotalIncomeThisMonth       decimal.Decimal `json:"total_income_this_month"`
	TotalExpensesThisMonth     decimal.Decimal `json:"total_expenses_this_month"`
	TotalSavingsThisMonth      decimal.Decimal `json:"total_savings_this_month"`
}

// UserDashboard is the landing page data of a user.
type UserDashboard struct {
	Username          string         `json:"username"`
	Transactions      MonthSummary   `json:"transactions_summary"`
	Budget            *models.Budget `json:"budget,omitempty"`
	OngoingGoalsCount int64          `json:"ongoing_goals_count"`
	OngoingGoals      []models.Goal  `json:"ongoing_goals"`
}

// AdminDashboard is the landing page data of an administrator.
type AdminDashboard struct {
	Username                   string `json:"username"`
	TotalUsers                 int64  `json:"total_users"`
	TotalTransactionsToDate    int64  `json:"total_transactions_to_date"`
	TotalTransactionsThisMonth int64  `json:"total_transactions_this_month"`
	SystemUsage                int64  `json:"system_usage"`
}

// DashboardServicer assembles dashboards.
type DashboardServicer interface {
	GetUserDashboard(userID string) (*UserDashboard, error)
	GetAdminDashboard(userID string) (*AdminDashboard, error)
}

// SettingsUpdate carries optional system settings changes.
type SettingsUpdate struct {
	TotalTransactionsLimit     *int
	RecurringTransactionsLimit *int
	Categories                 []string
	JWTExpirationSeconds       *int
}

// SettingsServicer manages the system-wide settings row.
type SettingsServicer interface {
	GetSettings() (*models.SystemSettings, error)
	UpdateSettings(in SettingsUpdate) (*models.SystemSettings, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
