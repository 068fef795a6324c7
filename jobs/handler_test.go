package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-crm/meridian/internal/profiles"
	"github.com/meridian-crm/meridian/internal/roles"
	"github.com/meridian-crm/meridian/internal/shared"
	_ "github.com/meridian-crm/meridian/testing"
)

type stubEnqueuer struct {
	scans   int
	warmups int
	err     error
}

func (s *stubEnqueuer) EnqueueOverdueScan(context.Context, OverdueScanPayload) (*asynq.TaskInfo, error) {
	s.scans++
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "t-scan", Queue: QueueDefault}, nil
}

func (s *stubEnqueuer) EnqueueDashboardWarmup(context.Context, DashboardWarmupPayload) (*asynq.TaskInfo, error) {
	s.warmups++
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "t-warm", Queue: QueueDefault}, nil
}

type stubActors struct {
	profile *profiles.Profile
	err     error
}

func (s *stubActors) ActingProfile(*http.Request) (*profiles.Profile, bool, error) {
	return s.profile, false, s.err
}

func rolePtr(r roles.Role) *roles.Role {
	return &r
}

func jobsRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	return r
}

func TestTriggerOverdueScanEnqueuesForOwner(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	actors := &stubActors{profile: &profiles.Profile{UserID: "u1", Role: rolePtr(roles.RoleOwner)}}
	router := jobsRouter(NewHandler(nil, enqueuer, actors, testLogger()))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/overdue-scan", nil))

	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, 1, enqueuer.scans)
	assert.Contains(t, rr.Body.String(), "t-scan")
}

func TestTriggerWarmupEnqueuesForSuperadmin(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	actors := &stubActors{profile: &profiles.Profile{UserID: "u1", Role: rolePtr(roles.RoleSuperadmin)}}
	router := jobsRouter(NewHandler(nil, enqueuer, actors, testLogger()))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/warmup", nil))

	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, 1, enqueuer.warmups)
}

func TestTriggerRejectsMarketingRole(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	actors := &stubActors{profile: &profiles.Profile{UserID: "u2", Role: rolePtr(roles.RoleMarketing)}}
	router := jobsRouter(NewHandler(nil, enqueuer, actors, testLogger()))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/overdue-scan", nil))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Zero(t, enqueuer.scans)
}

func TestTriggerRequiresLogin(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	actors := &stubActors{err: shared.ErrInvalidCredentials}
	router := jobsRouter(NewHandler(nil, enqueuer, actors, testLogger()))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/warmup", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, enqueuer.warmups)
}

func TestTriggerWithoutClientUnavailable(t *testing.T) {
	actors := &stubActors{profile: &profiles.Profile{UserID: "u1", Role: rolePtr(roles.RoleOwner)}}
	router := jobsRouter(NewHandler(nil, nil, actors, testLogger()))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/overdue-scan", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
