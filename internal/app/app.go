// Package app builds the services shared by the API server and the
// standalone reconcile worker.
package app

import (
	"errors"
	"fmt"
	"net/http"

	"pftsystem/internal/clock"
	"pftsystem/internal/config"
	"pftsystem/internal/currency"
	"pftsystem/internal/database"
	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/events"
	"pftsystem/internal/logger"
	"pftsystem/internal/middleware"
	"pftsystem/internal/scheduler"
	"pftsystem/internal/services"
)

// App holds the wired services.
type App struct {
	Config    *config.Config
	DB        *database.Manager
	Clock     clock.Clock
	Publisher events.Publisher
	Requests  *middleware.RequestCounter
	Converter *currency.Converter

	Users         services.UserServicer
	Settings      services.SettingsServicer
	Audit         services.AuditServicer
	Budgets       services.BudgetServicer
	Transactions  services.TransactionServicer
	Goals         services.GoalServicer
	Notifications services.NotificationServicer
	Reports       services.ReportServicer
	Dashboard     services.DashboardServicer

	Scheduler *scheduler.Scheduler
}

// New connects to the database, applies migrations and wires every service.
func New(cfg *config.Config) (*App, error) {
	dbManager, err := database.NewManager(database.NewConfig(cfg), cfg.Env == "development")
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := dbManager.RunMigrations(); err != nil {
		_ = dbManager.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	publisher, err := events.New(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		_ = dbManager.Close()
		return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
	}

	db := dbManager.DB()
	clk := clock.NewSystem(cfg.Location)
	requests := &middleware.RequestCounter{}

	a := &App{
		Config:    cfg,
		DB:        dbManager,
		Clock:     clk,
		Publisher: publisher,
		Requests:  requests,
		Converter: currency.NewConverter(&http.Client{Timeout: cfg.CurrencyTimeout}, cfg.CurrencyAPIURL, cfg.CurrencyAPIKey),
	}

	a.Users = services.NewUserService(db, clk, cfg.DefaultCurrency)
	a.Settings = services.NewSettingsService(db)
	a.Audit = services.NewAuditService(db)
	a.Budgets = services.NewBudgetService(db, clk, publisher, cfg.BudgetWorkers, cfg.DefaultCurrency)
	a.Transactions = services.NewTransactionService(db, clk, a.Settings, a.Budgets, publisher, cfg.DefaultCurrency)
	a.Goals = services.NewGoalService(db, clk, publisher, cfg.DefaultCurrency)
	a.Notifications = services.NewNotificationService(db, clk, a.Goals)
	a.Reports = services.NewReportService(db)
	a.Dashboard = services.NewDashboardService(db, clk, a.Users, requests)

	if err := BootstrapAdmin(a.Users, cfg.AdminEmail); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Scheduler, err = scheduler.New(clk, cfg.SchedulerRunAt, scheduler.DefaultPhases(a.Transactions, a.Budgets, a.Goals))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// BootstrapAdmin promotes the account registered under email to admin. An
// empty email disables it. An account that has not registered yet is only
// logged, so the next start picks it up.
func BootstrapAdmin(users services.UserServicer, email string) error {
	if email == "" {
		return nil
	}
	log := logger.Named("bootstrap")

	user, err := users.PromoteToAdmin(email)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		log.Warnw("admin account not registered yet", "email", email)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to promote admin %s: %w", email, err)
	}
	log.Infow("admin account ready", "user_id", user.ID, "email", user.Email)
	return nil
}

// Close releases the broker connection and the database pool.
func (a *App) Close() error {
	if err := a.Publisher.Close(); err != nil {
		_ = a.DB.Close()
		return err
	}
	return a.DB.Close()
}
