package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/meridian-crm/meridian/internal/jobs"
	_ "github.com/meridian-crm/meridian/testing"
)

type stubPromoter struct {
	promoted int64
	err      error
	calls    int
}

func (s *stubPromoter) PromoteOverdue(context.Context) (int64, error) {
	s.calls++
	return s.promoted, s.err
}

type stubInvalidator struct {
	calls int
}

func (s *stubInvalidator) Invalidate(context.Context) error {
	s.calls++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOverdueScanInvalidatesCacheWhenRowsMoved(t *testing.T) {
	promoter := &stubPromoter{promoted: 3}
	invalidator := &stubInvalidator{}
	job := NewOverdueScanJob(promoter, invalidator, testLogger(), nil)

	task, err := NewOverdueScanTask(OverdueScanPayload{Reason: "test"})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, promoter.calls)
	assert.Equal(t, 1, invalidator.calls)
}

func TestOverdueScanSkipsInvalidationWhenNothingMoved(t *testing.T) {
	promoter := &stubPromoter{promoted: 0}
	invalidator := &stubInvalidator{}
	job := NewOverdueScanJob(promoter, invalidator, testLogger(), nil)

	task, err := NewOverdueScanTask(OverdueScanPayload{})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Zero(t, invalidator.calls)
}

func TestOverdueScanSkipsRetryOnMalformedPayload(t *testing.T) {
	job := NewOverdueScanJob(&stubPromoter{}, nil, testLogger(), nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskOverdueScan, []byte("not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestOverdueScanRecordsFailureRun(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	promoter := &stubPromoter{err: errors.New("lock timeout")}
	job := NewOverdueScanJob(promoter, nil, testLogger(), metrics)

	task, err := NewOverdueScanTask(OverdueScanPayload{Reason: "test"})
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))

	rr := httptest.NewRecorder()
	promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	assert.Contains(t, body, `meridian_jobs_total{job="interactions:overdue_scan",status="failure"} 1`)
	assert.Contains(t, body, `meridian_jobs_failures_total{job="interactions:overdue_scan"} 1`)
}
