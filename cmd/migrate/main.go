package main

import (
	"fmt"
	"os"
	"strconv"

	"pftsystem/internal/clock"
	"pftsystem/internal/config"
	"pftsystem/internal/database"
	"pftsystem/internal/logger"
	"pftsystem/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Migration error: %v", err)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: migrate <up|down|version|promote> [N|email]")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg), false)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			logger.Get().Warnf("database close error: %v", err)
		}
	}()

	command := os.Args[1]

	switch command {
	case "up":
		return dbManager.RunMigrations()

	case "down":
		steps := 1
		if len(os.Args) > 2 {
			steps, err = strconv.Atoi(os.Args[2])
			if err != nil || steps < 1 {
				return fmt.Errorf("invalid step count %q", os.Args[2])
			}
		}
		return dbManager.RollbackMigrations(steps)

	case "version":
		version, dirty, err := dbManager.Version()
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		logger.Get().Infof("Version: %d, Dirty: %v", version, dirty)
		return nil

	case "promote":
		email := cfg.AdminEmail
		if len(os.Args) > 2 {
			email = os.Args[2]
		}
		if email == "" {
			return fmt.Errorf("promote needs an email argument or ADMIN_EMAIL")
		}
		users := services.NewUserService(dbManager.DB(), clock.NewSystem(cfg.Location), cfg.DefaultCurrency)
		user, err := users.PromoteToAdmin(email)
		if err != nil {
			return fmt.Errorf("failed to promote %s: %w", email, err)
		}
		logger.Get().Infof("Promoted %s (%s) to admin", user.Email, user.ID)
		return nil

	default:
		return fmt.Errorf("unknown command: %s (use up, down, version, or promote)", command)
	}
}
