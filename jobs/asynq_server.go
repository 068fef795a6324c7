package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/meridian-crm/meridian/internal/platform/httpx"
	"github.com/meridian-crm/meridian/internal/profiles"
	"github.com/meridian-crm/meridian/internal/roles"
)

// TaskHandler binds a task type to its handler during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration schedules a prepared task on a cron expression.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects everything needed to bootstrap the worker. A
// scheduler only runs when Cron entries are present.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    []TaskHandler
	Cron        []CronRegistration
}

// Worker runs task handlers and the embedded cron scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// NewWorker constructs a Worker from cfg.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueDefault: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			if cfg.Logger != nil {
				cfg.Logger.Error("task failed", slog.String("type", task.Type()), slog.Any("error", err))
			}
		}),
	})

	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}

	w := &Worker{server: srv, mux: mux, logger: cfg.Logger}
	if len(cfg.Cron) > 0 {
		w.scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := w.scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, err
			}
		}
	}
	return w, nil
}

// Run processes tasks until ctx is cancelled or the server stops on its
// own, whichever comes first.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- w.server.Run(w.mux)
	}()

	var err error
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		err = ctx.Err()
	case err = <-done:
	}
	if w.scheduler != nil {
		w.scheduler.Shutdown()
	}
	return err
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueOverdueScan enqueues an out-of-schedule overdue scan.
func (c *Client) EnqueueOverdueScan(ctx context.Context, payload OverdueScanPayload) (*asynq.TaskInfo, error) {
	task, err := NewOverdueScanTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// EnqueueDashboardWarmup enqueues a cache warmup run.
func (c *Client) EnqueueDashboardWarmup(ctx context.Context, payload DashboardWarmupPayload) (*asynq.TaskInfo, error) {
	task, err := NewDashboardWarmupTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// Enqueuer submits out-of-schedule job runs. *Client satisfies it.
type Enqueuer interface {
	EnqueueOverdueScan(ctx context.Context, payload OverdueScanPayload) (*asynq.TaskInfo, error)
	EnqueueDashboardWarmup(ctx context.Context, payload DashboardWarmupPayload) (*asynq.TaskInfo, error)
}

// ActorResolver resolves the acting profile for a request. The profiles
// handler satisfies it.
type ActorResolver interface {
	ActingProfile(r *http.Request) (*profiles.Profile, bool, error)
}

// Handler exposes HTTP endpoints for job observability and manual triggers.
type Handler struct {
	inspector *asynq.Inspector
	enqueuer  Enqueuer
	actors    ActorResolver
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints.
func NewHandler(inspector *asynq.Inspector, enqueuer Enqueuer, actors ActorResolver, logger *slog.Logger) *Handler {
	return &Handler{inspector: inspector, enqueuer: enqueuer, actors: actors, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/queues", h.queues)
	r.Post("/overdue-scan", h.triggerOverdueScan)
	r.Post("/warmup", h.triggerWarmup)
}

// triggerOverdueScan enqueues a scan ahead of the cron schedule.
func (h *Handler) triggerOverdueScan(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	info, err := h.enqueuer.EnqueueOverdueScan(r.Context(), OverdueScanPayload{Reason: "manual"})
	if err != nil {
		h.logger.Error("enqueue overdue scan", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "queue unreachable")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"task_id": info.ID, "queue": info.Queue})
}

// triggerWarmup enqueues a dashboard cache warmup for all division scopes.
func (h *Handler) triggerWarmup(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	info, err := h.enqueuer.EnqueueDashboardWarmup(r.Context(), DashboardWarmupPayload{IncludeDivisions: true})
	if err != nil {
		h.logger.Error("enqueue dashboard warmup", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "queue unreachable")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"task_id": info.ID, "queue": info.Queue})
}

// authorize restricts manual triggers to superadmins and owners.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) bool {
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "queue client not configured")
		return false
	}
	if h.actors == nil {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient role")
		return false
	}
	acting, _, err := h.actors.ActingProfile(r)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not logged in")
		return false
	}
	if acting == nil || acting.Role == nil || (*acting.Role != roles.RoleSuperadmin && *acting.Role != roles.RoleOwner) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient role")
		return false
	}
	return true
}

type queueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

func (h *Handler) queues(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"queues": []queueStats{}})
		return
	}
	names, err := h.inspector.Queues()
	if err != nil {
		h.logger.Warn("list queues", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "queue inspector unreachable")
		return
	}
	stats := make([]queueStats, 0, len(names))
	for _, name := range names {
		info, err := h.inspector.GetQueueInfo(name)
		if err != nil {
			h.logger.Warn("queue info", slog.String("queue", name), slog.Any("error", err))
			continue
		}
		stats = append(stats, queueStats{
			Queue:     info.Queue,
			Pending:   info.Pending,
			Active:    info.Active,
			Scheduled: info.Scheduled,
			Retry:     info.Retry,
			Archived:  info.Archived,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"queues": stats})
}
