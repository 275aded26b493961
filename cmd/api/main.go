package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront_backend/internal/catalog"
	apphttp "storefront_backend/internal/http"
	"storefront_backend/internal/http/router"
	"storefront_backend/internal/mailer"
	"storefront_backend/internal/notifier"
	"storefront_backend/internal/quotation"
	"storefront_backend/internal/stockread"
	"storefront_backend/internal/whatsapp"
	"storefront_backend/migrations"
	"storefront_backend/platform/config"
	"storefront_backend/platform/db"
	"storefront_backend/platform/logger"
	"storefront_backend/platform/phone"
	"storefront_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	val := validator.New()
	normalizer := phone.NewNormalizer(cfg.GetPhoneRegion(), cfg.GetPhoneCountryCode())

	// ========================================================================
	// Notification Channels
	// ========================================================================

	var mail notifier.Mailer
	if sender := mailer.NewSMTPSender(cfg); sender != nil {
		mail = sender
		log.Info("mail channel enabled", "host", cfg.GetSMTPHost())
	} else {
		log.Warn("SMTP_HOST not configured; email notifications disabled")
	}

	var chat notifier.ChatSender
	if client := whatsapp.NewClient(cfg, normalizer, log); client != nil {
		chat = client
		log.Info("whatsapp channel enabled")
	} else {
		log.Warn("WHATSAPP_GATEWAY_URL not configured; chat notifications disabled")
	}

	deliverer := notifier.NewDeliverer(mail, chat, notifier.NewLogRepository(pool, log), log)

	dispatcher, closeDispatcher := initDispatcher(cfg, deliverer, log)
	if closeDispatcher != nil {
		defer closeDispatcher()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	var stockCatalog stockread.Catalog
	if client := catalog.NewClient(cfg); client != nil {
		stockCatalog = client
		log.Info("catalog client enabled", "baseURL", cfg.GetCatalogBaseURL())
	} else {
		log.Warn("CATALOG_BASE_URL not configured; detail views fall back to quoted values")
	}

	quotationModule := quotation.NewModule(pool, stockCatalog, dispatcher, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			quotationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initDispatcher prefers the Redis-backed queue and falls back to detached
// goroutines when Redis is not configured.
func initDispatcher(cfg *config.Config, deliverer *notifier.Deliverer, log *logger.Logger) (notifier.Dispatcher, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; notifications dispatch in-process")
		return notifier.NewGoDispatcher(deliverer), nil
	}

	queue, err := notifier.NewQueueDispatcher(cfg, log)
	if err != nil {
		log.Error("failed to initialize notification queue, dispatching in-process", "error", err)
		return notifier.NewGoDispatcher(deliverer), nil
	}

	log.Info("notification queue enabled", "queue", cfg.GetQueueName())
	return queue, func() {
		_ = queue.Close()
	}
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
