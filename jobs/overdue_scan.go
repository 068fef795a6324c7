package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-crm/meridian/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Promoter flips pending interactions past their due date to overdue.
// The interactions service satisfies it.
type Promoter interface {
	PromoteOverdue(ctx context.Context) (int64, error)
}

// Invalidator drops stale analytics caches after the scan moved rows.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// OverdueScanJob runs the periodic overdue promotion.
type OverdueScanJob struct {
	Interactions Promoter
	Analytics    Invalidator
	Logger       *slog.Logger
	Metrics      *jobmetrics.Metrics
}

// NewOverdueScanJob wires dependencies for the scan handler.
func NewOverdueScanJob(interactions Promoter, analytics Invalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueScanJob {
	return &OverdueScanJob{Interactions: interactions, Analytics: analytics, Logger: logger, Metrics: metrics}
}

// Handle processes TaskOverdueScan tasks.
func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Interactions == nil {
		return errors.New("overdue scan: handler not configured")
	}
	var payload OverdueScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskOverdueScan)
	defer func() {
		err = tracker.End(err)
	}()

	promoted, err := j.Interactions.PromoteOverdue(ctx)
	if err != nil {
		j.logger().Error("promote overdue", slog.Any("error", err))
		return err
	}
	j.metrics().AddPromotions(promoted)

	if promoted > 0 && j.Analytics != nil {
		if err := j.Analytics.Invalidate(ctx); err != nil {
			j.logger().Warn("invalidate analytics cache", slog.Any("error", err))
		}
	}

	j.logger().Info("overdue scan finished", slog.Int64("promoted", promoted))
	return nil
}

func (j *OverdueScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskOverdueScan))
	}
	return slog.Default().With(slog.String("job", TaskOverdueScan))
}

func (j *OverdueScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
