package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-crm/meridian/internal/analytics"
	jobmetrics "github.com/meridian-crm/meridian/internal/jobs"
)

// Warmer pre-populates the analytics caches for one scope.
type Warmer interface {
	WarmScope(ctx context.Context, scope analytics.Scope) error
}

// DashboardWarmupJob keeps the dashboard caches hot so the first morning
// request does not pay the aggregate query cost.
type DashboardWarmupJob struct {
	Analytics Warmer
	Pool      *pgxpool.Pool
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(warmer Warmer, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{Analytics: warmer, Pool: pool, Logger: logger, Metrics: metrics}
}

// Handle processes TaskDashboardWarmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Analytics == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskDashboardWarmup)
	defer func() {
		err = tracker.End(err)
	}()

	scopes := []analytics.Scope{{}}
	if payload.IncludeDivisions {
		divisionScopes, err := j.divisionScopes(ctx)
		if err != nil {
			j.logger().Error("load division scopes", slog.Any("error", err))
			return err
		}
		scopes = append(scopes, divisionScopes...)
	}

	warmed := 0
	for _, scope := range scopes {
		scopeCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		if err := j.Analytics.WarmScope(scopeCtx, scope); err != nil {
			cancel()
			j.logger().Error("warm scope", slog.String("scope", scope.Token()), slog.Any("error", err))
			return err
		}
		cancel()
		warmed++
	}

	j.logger().Info("dashboard warmup finished", slog.Int("scopes", warmed))
	return nil
}

func (j *DashboardWarmupJob) divisionScopes(ctx context.Context) ([]analytics.Scope, error) {
	if j.Pool == nil {
		return nil, errors.New("dashboard warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `SELECT id FROM divisions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scopes []analytics.Scope
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		divisionID := id
		scopes = append(scopes, analytics.Scope{DivisionID: &divisionID})
	}
	return scopes, rows.Err()
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}

func (j *DashboardWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
