package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"pftsystem/internal/app"
	"pftsystem/internal/config"
	_ "pftsystem/internal/docs" // Import swagger docs
	"pftsystem/internal/handlers"
	"pftsystem/internal/logger"
	"pftsystem/internal/middleware"
	"pftsystem/internal/validator"
)

// @title           PFT System API
// @version         1.0
// @description     Personal finance tracker: transactions, recurring payments, budgets and savings goals with a nightly reconciliation run.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ReconcileKey
// @in header
// @name X-API-Key

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Register()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warnw("shutdown cleanup failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SchedulerEnabled {
		go a.Scheduler.Start(ctx)
	} else {
		log.Info("in-process scheduler disabled, use the reconcile worker or the trigger endpoint")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting PFT System server on port %s", cfg.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func newRouter(a *app.App) *gin.Engine {
	authHandler := handlers.NewAuthHandler(a.Users, a.Settings, a.Audit, a.Config.JWTExpirationDur)
	transactionHandler := handlers.NewTransactionHandler(a.Transactions, a.Audit)
	budgetHandler := handlers.NewBudgetHandler(a.Budgets, a.Audit)
	goalHandler := handlers.NewGoalHandler(a.Goals, a.Audit)
	notificationHandler := handlers.NewNotificationHandler(a.Notifications)
	reportHandler := handlers.NewReportHandler(a.Reports)
	dashboardHandler := handlers.NewDashboardHandler(a.Dashboard)
	adminHandler := handlers.NewAdminHandler(a.Settings, a.Users, a.Audit)
	currencyHandler := handlers.NewCurrencyHandler(a.Converter)
	reconcileHandler := handlers.NewReconcileHandler(a.Scheduler)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging(a.Requests))
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Machine trigger for an external cron
	v1.POST("/internal/reconcile", middleware.ReconcileAuthMiddleware(a.Config.ReconcileAPIKey), reconcileHandler.Run)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(a.Users))

	protected.POST("/auth/logout", authHandler.Logout)
	protected.GET("/profile", authHandler.GetProfile)
	protected.GET("/profile/settings", authHandler.GetUserSettings)
	protected.PUT("/profile/settings", authHandler.UpdateUserSettings)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetMyBudget)
	budgets.GET("/progress", budgetHandler.GetBudgetProgress)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)

	goals := protected.Group("/goals")
	goals.POST("", goalHandler.CreateGoal)
	goals.GET("", goalHandler.GetGoals)
	goals.GET("/:id", goalHandler.GetGoal)
	goals.PUT("/:id", goalHandler.UpdateGoal)
	goals.DELETE("/:id", goalHandler.DeleteGoal)
	goals.GET("/:id/progress", goalHandler.GetGoalProgress)
	goals.POST("/:id/contributions", goalHandler.AddContribution)
	goals.GET("/:id/contributions", goalHandler.GetContributions)

	notifications := protected.Group("/notifications")
	notifications.GET("", notificationHandler.GetNotifications)
	notifications.GET("/count", notificationHandler.GetNotificationCount)
	notifications.GET("/budget", notificationHandler.GetBudgetNotifications)
	notifications.GET("/recurring", notificationHandler.GetRecurringNotifications)
	notifications.GET("/goals", notificationHandler.GetGoalNotifications)

	protected.POST("/reports", reportHandler.GenerateReport)
	protected.GET("/dashboard", dashboardHandler.GetUserDashboard)
	protected.GET("/currency/convert", currencyHandler.Convert)

	admin := protected.Group("/admin")
	admin.Use(middleware.AdminOnly())
	admin.GET("/dashboard", dashboardHandler.GetAdminDashboard)
	admin.GET("/settings", adminHandler.GetSystemSettings)
	admin.PUT("/settings", adminHandler.UpdateSystemSettings)
	admin.GET("/users", adminHandler.ListUsers)
	admin.GET("/transactions", transactionHandler.ListAllTransactions)
	admin.GET("/transactions/user/:uid", transactionHandler.ListTransactionsForUser)
	admin.GET("/budgets", budgetHandler.ListBudgets)
	admin.GET("/budgets/:id", budgetHandler.GetAnyBudget)
	admin.GET("/goals", goalHandler.ListAllGoals)
	admin.GET("/goals/user/:uid", goalHandler.ListGoalsForUser)
	admin.POST("/reconcile", reconcileHandler.Run)

	return router
}
