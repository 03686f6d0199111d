package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditPrune removes audit log entries past the retention window.
	TaskAuditPrune = "audit:prune"
	// TaskRoleUsageRefresh recomputes per-role member counts.
	TaskRoleUsageRefresh = "roles:usage_refresh"
)

// AuditPrunePayload parameterizes one prune run.
type AuditPrunePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewAuditPruneTask constructs an audit prune task.
func NewAuditPruneTask(payload AuditPrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}

// NewRoleUsageRefreshTask constructs a role usage refresh task. The task
// carries no payload; the handler recomputes every role.
func NewRoleUsageRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskRoleUsageRefresh, nil)
}
