package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-crm/meridian/internal/profiles"
	"github.com/meridian-crm/meridian/internal/roles"
	_ "github.com/meridian-crm/meridian/testing"
)

type mockRepo struct {
	breakdown  map[string]int
	pipeline   float64
	today      int
	overdue    int
	newSince   int
	buckets    []MonthBucket
	bySource   []LabelCount
	byType     []LabelCount
	lastScope  Scope
	loaderHits int
}

func (m *mockRepo) StatusBreakdown(_ context.Context, scope Scope) (map[string]int, error) {
	m.lastScope = scope
	m.loaderHits++
	return m.breakdown, nil
}

func (m *mockRepo) PipelineValue(_ context.Context, scope Scope) (float64, error) {
	return m.pipeline, nil
}

func (m *mockRepo) FollowupCounts(_ context.Context, scope Scope, _ time.Time) (int, int, error) {
	return m.today, m.overdue, nil
}

func (m *mockRepo) NewCustomersSince(_ context.Context, scope Scope, _ time.Time) (int, error) {
	m.lastScope = scope
	return m.newSince, nil
}

func (m *mockRepo) MonthlyAcquisition(_ context.Context, _ Scope, _ time.Time) ([]MonthBucket, error) {
	return m.buckets, nil
}

func (m *mockRepo) CustomersBySource(_ context.Context, _ Scope) ([]LabelCount, error) {
	return m.bySource, nil
}

func (m *mockRepo) InteractionsByType(_ context.Context, _ Scope) ([]LabelCount, error) {
	return m.byType, nil
}

func profileWith(userID string, role roles.Role, divisionID string) *profiles.Profile {
	p := &profiles.Profile{UserID: userID, DisplayName: userID, Role: &role}
	if divisionID != "" {
		p.DivisionID = &divisionID
	}
	return p
}

func cacheFor(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, ttl)
}

func TestDashboardComputesConversionRate(t *testing.T) {
	repo := &mockRepo{
		breakdown: map[string]int{"new": 4, "hot": 3, "deal": 3},
		pipeline:  125_000_000,
		today:     2,
		overdue:   1,
	}
	svc := NewService(repo, NewCache(nil, 0))

	dashboard, err := svc.GetDashboard(context.Background(), profileWith("owner-1", roles.RoleOwner, ""))
	require.NoError(t, err)
	assert.Equal(t, 10, dashboard.TotalCustomers)
	assert.InDelta(t, 0.3, dashboard.ConversionRate, 1e-9)
	assert.Equal(t, "Rp 125.000.000", dashboard.PipelineValueDisplay)
	assert.Equal(t, 2, dashboard.TodayFollowups)
	assert.Equal(t, 1, dashboard.OverdueFollowups)
}

func TestDashboardZeroCustomersHasZeroRate(t *testing.T) {
	repo := &mockRepo{breakdown: map[string]int{}}
	svc := NewService(repo, NewCache(nil, 0))

	dashboard, err := svc.GetDashboard(context.Background(), profileWith("owner-1", roles.RoleOwner, ""))
	require.NoError(t, err)
	assert.Zero(t, dashboard.TotalCustomers)
	assert.Zero(t, dashboard.ConversionRate)
}

func TestDashboardScopesMarketingToSelf(t *testing.T) {
	repo := &mockRepo{breakdown: map[string]int{}}
	svc := NewService(repo, NewCache(nil, 0))

	_, err := svc.GetDashboard(context.Background(), profileWith("marketing-1", roles.RoleMarketing, "div-a"))
	require.NoError(t, err)
	require.NotNil(t, repo.lastScope.AssignedTo)
	assert.Equal(t, "marketing-1", *repo.lastScope.AssignedTo)
	assert.Nil(t, repo.lastScope.DivisionID)
}

func TestDashboardDeniedWithoutRole(t *testing.T) {
	svc := NewService(&mockRepo{}, NewCache(nil, 0))

	_, err := svc.GetDashboard(context.Background(), &profiles.Profile{UserID: "norole-1"})
	assert.Error(t, err)
}

func TestOverviewFillsSixMonths(t *testing.T) {
	frozen := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		newSince: 5,
		buckets: []MonthBucket{
			{Month: "2026-02", Customers: 3, PipelineValue: 30_000_000},
			{Month: "2026-06", Customers: 5, PipelineValue: 80_000_000},
		},
	}
	svc := NewService(repo, NewCache(nil, 0)).WithClock(func() time.Time { return frozen })

	overview, err := svc.GetOverview(context.Background(), profileWith("owner-1", roles.RoleOwner, ""))
	require.NoError(t, err)
	require.Len(t, overview.MonthlyAcquisition, 6)
	assert.Equal(t, "2026-01", overview.MonthlyAcquisition[0].Month)
	assert.Zero(t, overview.MonthlyAcquisition[0].Customers)
	assert.Equal(t, "2026-02", overview.MonthlyAcquisition[1].Month)
	assert.Equal(t, 3, overview.MonthlyAcquisition[1].Customers)
	assert.Equal(t, "2026-06", overview.MonthlyAcquisition[5].Month)
	assert.Equal(t, 5, overview.MonthlyAcquisition[5].Customers)
	assert.Equal(t, 5, overview.NewCustomersThisMonth)
}

func TestDashboardCachesSecondCall(t *testing.T) {
	repo := &mockRepo{breakdown: map[string]int{"deal": 1}}
	svc := NewService(repo, cacheFor(t, 10*time.Minute))
	actor := profileWith("owner-1", roles.RoleOwner, "")

	_, err := svc.GetDashboard(context.Background(), actor)
	require.NoError(t, err)
	_, err = svc.GetDashboard(context.Background(), actor)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.loaderHits)
}

func TestBumpInvalidatesCachedDashboard(t *testing.T) {
	repo := &mockRepo{breakdown: map[string]int{"deal": 1}}
	svc := NewService(repo, cacheFor(t, 10*time.Minute))
	actor := profileWith("owner-1", roles.RoleOwner, "")

	_, err := svc.GetDashboard(context.Background(), actor)
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(context.Background()))
	_, err = svc.GetDashboard(context.Background(), actor)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.loaderHits)
}
