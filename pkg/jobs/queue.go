// Package jobs runs named in-memory worker queues for background work that
// must not hold up an API request: link-file ingestion, directory sweeps,
// and forced override downloads.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one unit of queued work. Payload carries the typed argument the
// handler needs; the handler owns the type assertion.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler runs one job. A non-nil error sends the job through the retry
// path.
type Handler func(context.Context, Job) error

// QueueConfig tunes one queue. Zero values mean a single worker, a small
// buffer, no retries, and one-second retry spacing.
type QueueConfig struct {
	Workers    int
	BufferSize int
	// MaxRetries is the number of re-runs granted after a failed attempt;
	// zero keeps jobs single-shot.
	MaxRetries int
	// RetryDelay spaces retries; the wait grows linearly with the attempt
	// number.
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue dispatches jobs to a fixed pool of goroutines. Enqueue never
// blocks: a full buffer is reported to the caller instead of stalling the
// producer, which here is usually an HTTP handler answering 202.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds a stopped queue; Start launches its workers.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start launches the worker pool. Calling Start twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.cfg.Logger.Sugar().Infow("job queue started", "queue", q.name, "workers", q.cfg.Workers)
}

// Stop cancels the workers and waits for in-flight handlers and pending
// retry timers to wind down.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.cfg.Logger.Sugar().Infow("job queue stopped", "queue", q.name)
}

// Depth reports how many jobs are waiting in the buffer.
func (q *Queue) Depth() int {
	return len(q.jobs)
}

// Enqueue hands a job to the pool. It fails immediately when the queue is
// stopped or the buffer is full.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue %s full, %d jobs waiting", q.name, len(q.jobs))
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.handler(q.ctx, job); err != nil {
				q.requeue(job, err)
			}
		}
	}
}

// requeue schedules another run of a failed job, spacing attempts further
// apart each time. A job that exhausts its allowance is dropped with a log
// line; durable outcome state lives with the handler, not the queue.
func (q *Queue) requeue(job Job, cause error) {
	job.Attempt++
	if job.Attempt > q.cfg.MaxRetries {
		q.cfg.Logger.Sugar().Errorw("job dropped after final attempt",
			"queue", q.name, "job_id", job.ID, "type", job.Type, "attempts", job.Attempt, "error", cause)
		return
	}
	q.cfg.Logger.Sugar().Warnw("job attempt failed",
		"queue", q.name, "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "error", cause)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		timer := time.NewTimer(time.Duration(job.Attempt) * q.cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			if err := q.Enqueue(job); err != nil {
				q.cfg.Logger.Sugar().Errorw("retry not queued", "queue", q.name, "job_id", job.ID, "error", err)
			}
		}
	}()
}
