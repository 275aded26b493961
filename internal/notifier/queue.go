package notifier

import (
	"context"
	"fmt"
	"time"

	"storefront_backend/platform/config"
	"storefront_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// QueueDispatcher enqueues deliveries on a Redis-backed asynq queue. It is
// used when REDIS_URL is configured; the worker binary drains the queue.
type QueueDispatcher struct {
	client *asynq.Client
	queue  string
	log    *logger.Logger
}

// NewQueueDispatcher creates a queue-backed dispatcher.
func NewQueueDispatcher(cfg config.QueueConfig, log *logger.Logger) (*QueueDispatcher, error) {
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

	return &QueueDispatcher{
		client: asynq.NewClient(opt),
		queue:  queue,
		log:    log,
	}, nil
}

// Dispatch enqueues one delivery. An enqueue failure is logged on both
// channel names and swallowed: by contract, notification outcome never
// reaches the caller.
func (q *QueueDispatcher) Dispatch(event Event, snap Snapshot) {
	task, err := NewDeliverTask(DeliverPayload{Event: event, Snapshot: snap})
	if err != nil {
		q.logEnqueueFailure(event, snap, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = q.client.EnqueueContext(ctx, task, asynq.Queue(q.queue), asynq.MaxRetry(0))
	if err != nil {
		q.logEnqueueFailure(event, snap, err)
	}
}

func (q *QueueDispatcher) logEnqueueFailure(event Event, snap Snapshot, err error) {
	q.log.NotificationError("queue", snap.Number, string(event), err)
}

// Close releases the underlying Redis connection.
func (q *QueueDispatcher) Close() error {
	if q == nil || q.client == nil {
		return nil
	}
	return q.client.Close()
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
