package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/quickbill/quickbill/internal/jobs"
	"github.com/quickbill/quickbill/internal/layout"
)

// SamplesWarmUniqueFor keeps overlapping warm-ups from queueing twice.
const SamplesWarmUniqueFor = 30 * time.Minute

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Warmer renders and caches the sample PDFs.
type Warmer interface {
	Warm(ctx context.Context) error
}

// SamplesWarmJob refreshes the cached sample PDF of every template.
type SamplesWarmJob struct {
	Samples Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

// NewSamplesWarmJob wires dependencies for the warm-up handler.
func NewSamplesWarmJob(samples Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *SamplesWarmJob {
	return &SamplesWarmJob{Samples: samples, Logger: logger, Metrics: metrics, Timeout: 2 * time.Minute}
}

// Handle processes TaskSamplesWarm tasks.
func (j *SamplesWarmJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Samples == nil {
		return errors.New("samples warm: handler not configured")
	}
	var payload SamplesWarmPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track("samples_warm")
	logger := j.logger().With(slog.String("reason", payload.Reason))
	logger.Info("starting samples warm-up")
	start := time.Now()

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	if err := j.Samples.Warm(ctx); err != nil {
		logger.Error("samples warm-up", slog.Any("error", err))
		return tracker.End(err)
	}
	count := len(layout.Descriptors())
	j.metrics().AddItems("samples_warm", count)
	logger.Info("completed samples warm-up", slog.Int("samples", count), slog.Duration("duration", time.Since(start)))
	return tracker.End(nil)
}

func (j *SamplesWarmJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSamplesWarm))
	}
	return slog.Default().With(slog.String("job", TaskSamplesWarm))
}

func (j *SamplesWarmJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
