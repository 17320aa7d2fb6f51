package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pedidos_backend/internal/email"
	"pedidos_backend/internal/events"
	"pedidos_backend/internal/messaging"
	"pedidos_backend/internal/messaging/bsp"
	"pedidos_backend/internal/notification"
	ordersrepo "pedidos_backend/internal/orders/repository"
	"pedidos_backend/internal/providers"
	"pedidos_backend/internal/scheduler"
	"pedidos_backend/platform/config"
	"pedidos_backend/platform/db"
	"pedidos_backend/platform/logger"
	"pedidos_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	// Poll cycles run correlation, so the full messaging wiring is needed
	// here too, including the alert fan-out for the events it publishes.
	notification.NewModule(eventBus, email.NewSMTPSender(cfg), log)

	bspClient := bsp.NewClient(cfg, log)
	ordersRepo := ordersrepo.New(pool)
	providersModule := providers.NewModule(pool, validator.New(), log)
	messagingModule := messaging.NewModule(pool, bspClient, cfg, providersModule.Directory(), ordersRepo, eventBus, log)

	worker, err := scheduler.NewWorker(cfg, cfg, ordersRepo, messagingModule.Poller(), messagingModule.Ingestor(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	log.Info("scheduler worker running",
		"retention", cfg.GetPendingOrderRetention(),
		"pollInterval", cfg.GetPollInterval())
	worker.Run(ctx)
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
