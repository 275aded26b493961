package notifier

import (
	"context"
	"time"

	"storefront_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LogRepository persists delivery attempts to notification_log so operators
// can audit what was actually sent. A write failure here is itself swallowed:
// the log is an observability aid, not part of any delivery guarantee.
type LogRepository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewLogRepository creates a notification log writer.
func NewLogRepository(pool *pgxpool.Pool, log *logger.Logger) *LogRepository {
	return &LogRepository{pool: pool, log: log}
}

// Record inserts one delivery attempt.
func (r *LogRepository) Record(ctx context.Context, attempt Attempt) {
	var errMsg *string
	if attempt.ErrorMessage != "" {
		errMsg = &attempt.ErrorMessage
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_log (
			id, quotation_id, quotation_number, event, channel, recipient,
			success, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.New(), attempt.QuotationID, attempt.QuotationNumber, string(attempt.Event),
		attempt.Channel, attempt.Recipient, attempt.Success, errMsg, time.Now())
	if err != nil {
		r.log.DatabaseError("notification_log.insert", err)
	}
}
