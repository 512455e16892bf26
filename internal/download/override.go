package download

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonp69/DL-Homework-Garden/internal/models"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
	"github.com/jonp69/DL-Homework-Garden/pkg/jobs"
)

// retryStore is the store capability the override lane consumes.
type retryStore interface {
	Get(url string) (models.Link, bool)
	ClaimForRetry(ctx context.Context, url string) (models.Link, error)
	CompleteDownload(ctx context.Context, url string, items int, sizeMB float64) (models.Link, error)
	FailDownload(ctx context.Context, url, message string, terminal bool) (models.Link, error)
}

const jobTypeOverride = "override-download"

// OverrideRunner retries limit-parked and failed links on operator request.
// It runs on its own worker queue, independent of the main run, and executes
// without a limit monitor: forcing a retry is the operator's answer to
// whatever parked the link.
type OverrideRunner struct {
	store    retryStore
	executor Executor
	queue    *jobs.Queue
	logger   *zap.Logger
}

// OverrideConfig wires the override lane.
type OverrideConfig struct {
	Store    retryStore
	Executor Executor
	// Workers is the number of concurrent overrides, default 1.
	Workers int
	Logger  *zap.Logger
}

// NewOverrideRunner builds the lane. Call Start before enqueueing.
func NewOverrideRunner(cfg OverrideConfig) *OverrideRunner {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	r := &OverrideRunner{
		store:    cfg.Store,
		executor: cfg.Executor,
		logger:   cfg.Logger,
	}
	r.queue = jobs.NewQueue(jobTypeOverride+"s", r.handle, jobs.QueueConfig{
		Workers: cfg.Workers,
		Logger:  cfg.Logger,
	})
	return r
}

// Start launches the queue workers.
func (r *OverrideRunner) Start(ctx context.Context) {
	r.queue.Start(ctx)
}

// Stop drains the workers.
func (r *OverrideRunner) Stop() {
	r.queue.Stop()
}

// Depth reports queued overrides not yet picked up.
func (r *OverrideRunner) Depth() int {
	return r.queue.Depth()
}

// Enqueue schedules a forced retry for url. Eligibility is checked up front
// so the caller gets immediate feedback, and again when the job claims the
// link, in case its status changed while queued.
func (r *OverrideRunner) Enqueue(url string) error {
	link, ok := r.store.Get(url)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "link not found")
	}
	if link.Status != models.StatusToSkipLimit && link.Status != models.StatusFailed {
		return appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("link is %s, retry applies to %s or %s links", link.Status, models.StatusToSkipLimit, models.StatusFailed))
	}
	if err := r.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobTypeOverride, Payload: url}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "enqueue override")
	}
	r.logger.Sugar().Infow("override retry queued", "url", url)
	return nil
}

func (r *OverrideRunner) handle(ctx context.Context, job jobs.Job) error {
	url, ok := job.Payload.(string)
	if !ok {
		r.logger.Sugar().Errorw("override job carries no url", "job_id", job.ID)
		return nil
	}

	if _, err := r.store.ClaimForRetry(ctx, url); err != nil {
		// The link moved while queued; the retry no longer applies.
		r.logger.Sugar().Warnw("override retry dropped", "url", url, "error", err)
		return nil
	}

	out, err := r.executor.Download(ctx, url, nil)
	bg := context.Background()
	if err != nil {
		if _, serr := r.store.FailDownload(bg, url, err.Error(), true); serr != nil {
			r.logger.Sugar().Errorw("recording override failure failed", "url", url, "error", serr)
			return nil
		}
		r.logger.Sugar().Warnw("override retry failed", "url", url, "error", err)
		return nil
	}

	if _, err := r.store.CompleteDownload(bg, url, out.Items, out.SizeMB); err != nil {
		r.logger.Sugar().Errorw("recording override completion failed", "url", url, "error", err)
		return nil
	}
	r.logger.Sugar().Infow("override retry completed", "url", url, "items", out.Items, "size_mb", out.SizeMB)
	return nil
}
