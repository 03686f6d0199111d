package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-crm/meridian-crm/internal/jobs"
	"github.com/meridian-crm/meridian-crm/internal/roles"
)

// NewRoleUsageRefreshHandler returns the handler for TaskRoleUsageRefresh.
// The denormalized member counts drift as assignments change; this job
// trues them up off the request path.
func NewRoleUsageRefreshHandler(repo roles.Repository, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskRoleUsageRefresh)
		updated, err := repo.RefreshUsageCounts(ctx)
		if err != nil {
			return tracker.End(err)
		}
		logger.Info("role usage refresh", slog.Int64("updated", updated))
		return tracker.End(nil)
	}
}
