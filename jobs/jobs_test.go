package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/quickbill/quickbill/internal/jobs"
)

type stubWarmer struct {
	calls atomic.Int32
	err   error
}

func (s *stubWarmer) Warm(ctx context.Context) error {
	s.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	return s.err
}

func newJob(t *testing.T, warmer Warmer) (*SamplesWarmJob, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSamplesWarmJob(warmer, logger, jobmetrics.NewMetrics(reg)), reg
}

func TestSamplesWarmJobHandle(t *testing.T) {
	warmer := &stubWarmer{}
	job, reg := newJob(t, warmer)

	task, err := NewSamplesWarmTask(SamplesWarmPayload{Reason: "deploy"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, int32(1), warmer.calls.Load())

	count, err := testutil.GatherAndCount(reg, "quickbill_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSamplesWarmJobFailure(t *testing.T) {
	warmer := &stubWarmer{err: errors.New("gotenberg down")}
	job, reg := newJob(t, warmer)

	err := job.Handle(context.Background(), asynq.NewTask(TaskSamplesWarm, nil))
	assert.ErrorContains(t, err, "gotenberg down")

	count, err := testutil.GatherAndCount(reg, "quickbill_jobs_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSamplesWarmJobSkipsMalformedPayload(t *testing.T) {
	warmer := &stubWarmer{}
	job, _ := newJob(t, warmer)

	err := job.Handle(context.Background(), asynq.NewTask(TaskSamplesWarm, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, warmer.calls.Load())

	var unset *SamplesWarmJob
	assert.Error(t, unset.Handle(context.Background(), asynq.NewTask(TaskSamplesWarm, nil)))
}

func TestSamplesWarmCron(t *testing.T) {
	entry, err := SamplesWarmCron()
	require.NoError(t, err)
	assert.Equal(t, "0 * * * *", entry.Spec)
	assert.Equal(t, TaskSamplesWarm, entry.Task.Type())
	assert.JSONEq(t, `{"reason":"schedule"}`, string(entry.Task.Payload()))
}

func TestNewWorkerRegistersCron(t *testing.T) {
	mr := miniredis.RunT(t)
	entry, err := SamplesWarmCron()
	require.NoError(t, err)

	job, _ := newJob(t, &stubWarmer{})
	w, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: mr.Addr()},
		Handlers:  []TaskHandler{{Type: TaskSamplesWarm, Handler: job.Handle}},
		Cron:      []CronRegistration{entry},
	})
	require.NoError(t, err)
	assert.NotNil(t, w.scheduler)

	_, err = NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: mr.Addr()},
		Cron:      []CronRegistration{{Spec: "not a cron", Task: entry.Task}},
	})
	assert.Error(t, err)
}

func TestWorkerRunRequiresConfiguration(t *testing.T) {
	var w *Worker
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, w.Run(ctx))
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"failed":0,"scheduled":0}`, rec.Body.String())
}
