package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/meridian-crm/meridian-crm/internal/jobs"
)

// NewAuditPruneHandler returns the handler for TaskAuditPrune. Entries older
// than the retention window are deleted in one statement; the payload may
// override the default retention per run.
func NewAuditPruneHandler(pool *pgxpool.Pool, defaultRetention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskAuditPrune)
		retention := defaultRetention
		if len(t.Payload()) > 0 {
			var payload AuditPrunePayload
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return tracker.End(asynq.SkipRetry)
			}
			if payload.Retention > 0 {
				retention = payload.Retention
			}
		}
		if retention <= 0 {
			return tracker.End(asynq.SkipRetry)
		}

		cutoff := time.Now().Add(-retention)
		tag, err := pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
		if err != nil {
			return tracker.End(err)
		}
		logger.Info("audit prune",
			slog.Time("cutoff", cutoff),
			slog.Int64("deleted", tag.RowsAffected()))
		return tracker.End(nil)
	}
}
