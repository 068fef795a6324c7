package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverdueScan promotes pending interactions past their due date.
	TaskOverdueScan = "interactions:overdue_scan"
	// TaskDashboardWarmup pre-populates the analytics caches.
	TaskDashboardWarmup = "analytics:dashboard_warmup"
)

// OverdueScanPayload scopes an overdue scan run. Empty means scan everything.
type OverdueScanPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewOverdueScanTask constructs the overdue scan task.
func NewOverdueScanTask(payload OverdueScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueScan, data), nil
}

// DashboardWarmupPayload configures a warmup run.
type DashboardWarmupPayload struct {
	IncludeDivisions bool `json:"include_divisions"`
}

// NewDashboardWarmupTask constructs the dashboard warmup task.
func NewDashboardWarmupTask(payload DashboardWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}
