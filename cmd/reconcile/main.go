// Command reconcile runs the nightly reconciliation outside the API process.
// With -once it performs a single run and exits non-zero when any phase
// failed, which suits an external cron. Without it, it schedules itself daily
// at SCHEDULER_RUN_AT until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pftsystem/internal/app"
	"pftsystem/internal/config"
	"pftsystem/internal/logger"
)

func main() {
	once := flag.Bool("once", false, "run reconciliation once and exit")
	flag.Parse()

	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(*once); err != nil {
		logger.Get().Fatalf("Reconcile error: %v", err)
	}
}

func run(once bool) error {
	log := logger.Named("reconcile")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

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

	if once {
		report, err := a.Scheduler.RunOnce(ctx)
		if err != nil {
			return err
		}
		if report.Failed() {
			return fmt.Errorf("reconciliation for %s finished with failed phases", report.Date)
		}
		return nil
	}

	log.Infow("reconcile worker started", "run_at", cfg.SchedulerRunAt, "location", cfg.Location.String())
	a.Scheduler.Start(ctx)
	log.Info("reconcile worker stopped")
	return nil
}
