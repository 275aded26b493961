// The worker binary drains the notification queue. It shares the Deliverer
// with the API server, so channel behavior is identical whichever process
// performs the delivery.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"storefront_backend/internal/mailer"
	"storefront_backend/internal/notifier"
	"storefront_backend/internal/whatsapp"
	"storefront_backend/platform/config"
	"storefront_backend/platform/db"
	"storefront_backend/platform/logger"
	"storefront_backend/platform/phone"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting notification worker", "env", cfg.Env, "queue", cfg.GetQueueName())

	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the notification worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	normalizer := phone.NewNormalizer(cfg.GetPhoneRegion(), cfg.GetPhoneCountryCode())

	var mail notifier.Mailer
	if sender := mailer.NewSMTPSender(cfg); sender != nil {
		mail = sender
	} else {
		log.Warn("SMTP_HOST not configured; email notifications disabled")
	}

	var chat notifier.ChatSender
	if client := whatsapp.NewClient(cfg, normalizer, log); client != nil {
		chat = client
	} else {
		log.Warn("WHATSAPP_GATEWAY_URL not configured; chat notifications disabled")
	}

	deliverer := notifier.NewDeliverer(mail, chat, notifier.NewLogRepository(pool, log), log)

	worker, err := notifier.NewWorker(cfg, deliverer, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	log.Info("worker listening", "queue", cfg.GetQueueName(), "concurrency", cfg.GetQueueConcurrency())
	worker.Run(ctx)
	log.Info("worker stopped")
}
