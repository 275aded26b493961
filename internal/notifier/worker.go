package notifier

import (
	"context"
	"fmt"

	"storefront_backend/platform/config"
	"storefront_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Worker drains the notification queue. Delivery failures are already logged
// and recorded by the Deliverer, so handlers always return nil: a notification
// is attempted once per channel, never retried.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	deliverer *Deliverer
	log       *logger.Logger
}

// NewWorker creates a queue worker around a Deliverer.
func NewWorker(cfg config.QueueConfig, deliverer *Deliverer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetQueueConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		deliverer: deliverer,
		log:       log,
	}

	mux.HandleFunc(TaskNotificationDeliver, w.handleDeliver)

	return w, nil
}

func (w *Worker) handleDeliver(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseDeliverPayload(task)
	if err != nil {
		w.log.Error("malformed notification payload", "error", err)
		return nil
	}

	w.deliverer.Deliver(ctx, payload.Event, payload.Snapshot)
	return nil
}

// Run blocks until ctx is cancelled, then shuts the server down.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("notification worker stopped", "error", err)
	}
}
