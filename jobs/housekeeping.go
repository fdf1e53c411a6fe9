package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/quotedesk/quotedesk/internal/jobs"
)

// KeyCleaner purges old idempotency keys; *shared.IdempotencyStore implements it.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob deletes stale form submission keys.
type IdempotencyCleanupJob struct {
	Keys    KeyCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Keys == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.RetentionHours <= 0 {
		payload.RetentionHours = 24
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	retention := time.Duration(payload.RetentionHours) * time.Hour
	deleted, err := j.Keys.Cleanup(ctx, retention)
	if err != nil {
		return err
	}
	j.Metrics.AddPurged(deleted)
	jobLogger(j.Logger, TaskIdempotencyCleanup).Info("idempotency keys purged",
		slog.Int64("deleted", deleted), slog.Duration("retention", retention))
	return nil
}

// ReportWarmer pre-builds cached reports; *reports.Service implements it.
type ReportWarmer interface {
	Warmup(ctx context.Context) error
}

// ReportsWarmupJob fills the report cache for the current month.
type ReportsWarmupJob struct {
	Reports ReportWarmer
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskReportsWarmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	tracker := j.Metrics.Track(TaskReportsWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	warmCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := j.Reports.Warmup(warmCtx); err != nil {
		return err
	}
	jobLogger(j.Logger, TaskReportsWarmup).Info("sales report warmed", slog.Duration("duration", time.Since(start)))
	return nil
}
