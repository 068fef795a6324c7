package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-crm/meridian/internal/profiles"
	"github.com/meridian-crm/meridian/internal/roles"
	"github.com/meridian-crm/meridian/internal/shared"
)

// Dashboard carries the headline metrics shown after login.
type Dashboard struct {
	TotalCustomers       int            `json:"total_customers"`
	PipelineValue        float64        `json:"pipeline_value"`
	PipelineValueDisplay string         `json:"pipeline_value_display"`
	StatusBreakdown      map[string]int `json:"status_breakdown"`
	ConversionRate       float64        `json:"conversion_rate"`
	TodayFollowups       int            `json:"today_followups"`
	OverdueFollowups     int            `json:"overdue_followups"`
}

// Overview carries the analytics view aggregates.
type Overview struct {
	NewCustomersThisMonth int           `json:"new_customers_this_month"`
	MonthlyAcquisition    []MonthBucket `json:"monthly_acquisition"`
	CustomersBySource     []LabelCount  `json:"customers_by_source"`
	InteractionsByType    []LabelCount  `json:"interactions_by_type"`
}

// Service coordinates aggregate query execution with the cache layer.
type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ScopeFor narrows aggregates the same way customer lists are scoped.
func ScopeFor(actor *profiles.Profile) Scope {
	var scope Scope
	if actor == nil || actor.Role == nil {
		return scope
	}
	switch *actor.Role {
	case roles.RoleMarketing:
		scope.AssignedTo = &actor.UserID
	case roles.RoleSupervisor, roles.RoleManager:
		scope.DivisionID = actor.DivisionID
	}
	return scope
}

// GetDashboard resolves the headline metrics, fanning the aggregate queries
// out concurrently and caching the combined result.
func (s *Service) GetDashboard(ctx context.Context, actor *profiles.Profile) (Dashboard, error) {
	if actor == nil || actor.Role == nil {
		return Dashboard{}, shared.ErrPermissionDenied
	}
	scope := ScopeFor(actor)
	key, err := s.cache.BuildKey(ctx, keyDashboard(scope.Token()))
	if err != nil {
		return Dashboard{}, err
	}
	var dashboard Dashboard
	if err := s.cache.FetchJSON(ctx, key, &dashboard, s.dashboardLoader(scope)); err != nil {
		return Dashboard{}, err
	}
	return dashboard, nil
}

func (s *Service) dashboardLoader(scope Scope) func(context.Context) (interface{}, error) {
	return func(ctx context.Context) (interface{}, error) {
		var (
			breakdown      map[string]int
			pipeline       float64
			today, overdue int
		)
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			breakdown, err = s.repo.StatusBreakdown(ctx, scope)
			return err
		})
		g.Go(func() error {
			var err error
			pipeline, err = s.repo.PipelineValue(ctx, scope)
			return err
		})
		g.Go(func() error {
			var err error
			today, overdue, err = s.repo.FollowupCounts(ctx, scope, s.now())
			return err
		})
		if err := g.Wait(); err != nil {
			return Dashboard{}, err
		}

		total := 0
		for _, n := range breakdown {
			total += n
		}
		rate := 0.0
		if total > 0 {
			rate = float64(breakdown["deal"]) / float64(total)
		}
		return Dashboard{
			TotalCustomers:       total,
			PipelineValue:        pipeline,
			PipelineValueDisplay: shared.FormatIDR(pipeline),
			StatusBreakdown:      breakdown,
			ConversionRate:       rate,
			TodayFollowups:       today,
			OverdueFollowups:     overdue,
		}, nil
	}
}

// GetOverview resolves the analytics view: month-over-month acquisition for
// the trailing six months plus source and interaction groupings.
func (s *Service) GetOverview(ctx context.Context, actor *profiles.Profile) (Overview, error) {
	if actor == nil || actor.Role == nil {
		return Overview{}, shared.ErrPermissionDenied
	}
	scope := ScopeFor(actor)
	key, err := s.cache.BuildKey(ctx, keyOverview(scope.Token()))
	if err != nil {
		return Overview{}, err
	}
	var overview Overview
	if err := s.cache.FetchJSON(ctx, key, &overview, s.overviewLoader(scope)); err != nil {
		return Overview{}, err
	}
	return overview, nil
}

func (s *Service) overviewLoader(scope Scope) func(context.Context) (interface{}, error) {
	return func(ctx context.Context) (interface{}, error) {
		now := s.now()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		windowStart := monthStart.AddDate(0, -5, 0)

		var (
			newThisMonth int
			buckets      []MonthBucket
			bySource     []LabelCount
			byType       []LabelCount
		)
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			newThisMonth, err = s.repo.NewCustomersSince(ctx, scope, monthStart)
			return err
		})
		g.Go(func() error {
			var err error
			buckets, err = s.repo.MonthlyAcquisition(ctx, scope, windowStart)
			return err
		})
		g.Go(func() error {
			var err error
			bySource, err = s.repo.CustomersBySource(ctx, scope)
			return err
		})
		g.Go(func() error {
			var err error
			byType, err = s.repo.InteractionsByType(ctx, scope)
			return err
		})
		if err := g.Wait(); err != nil {
			return Overview{}, err
		}

		if bySource == nil {
			bySource = []LabelCount{}
		}
		if byType == nil {
			byType = []LabelCount{}
		}
		return Overview{
			NewCustomersThisMonth: newThisMonth,
			MonthlyAcquisition:    fillMonths(buckets, windowStart, 6),
			CustomersBySource:     bySource,
			InteractionsByType:    byType,
		}, nil
	}
}

// WarmScope pre-populates the dashboard and overview caches for one scope.
// The warmup job calls this for every division plus the unscoped view.
func (s *Service) WarmScope(ctx context.Context, scope Scope) error {
	key, err := s.cache.BuildKey(ctx, keyDashboard(scope.Token()))
	if err != nil {
		return err
	}
	var dashboard Dashboard
	if err := s.cache.FetchJSON(ctx, key, &dashboard, s.dashboardLoader(scope)); err != nil {
		return err
	}
	key, err = s.cache.BuildKey(ctx, keyOverview(scope.Token()))
	if err != nil {
		return err
	}
	var overview Overview
	return s.cache.FetchJSON(ctx, key, &overview, s.overviewLoader(scope))
}

// Invalidate bumps the cache version after pipeline writes.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// fillMonths pads the query result so every month in the window appears,
// empty months included.
func fillMonths(buckets []MonthBucket, from time.Time, months int) []MonthBucket {
	byMonth := map[string]MonthBucket{}
	for _, b := range buckets {
		byMonth[b.Month] = b
	}
	out := make([]MonthBucket, 0, months)
	for i := 0; i < months; i++ {
		month := from.AddDate(0, i, 0).Format("2006-01")
		if b, ok := byMonth[month]; ok {
			out = append(out, b)
			continue
		}
		out = append(out, MonthBucket{Month: month})
	}
	return out
}
