package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jonp69/DL-Homework-Garden/internal/ingest"
	"github.com/jonp69/DL-Homework-Garden/internal/models"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
	"github.com/jonp69/DL-Homework-Garden/pkg/jobs"
)

type ingestRunner interface {
	ProcessFile(ctx context.Context, path string, force bool) (ingest.Report, error)
	ProcessClipboard(ctx context.Context, content string) (ingest.Report, error)
	ScanDirectory(ctx context.Context, dir string) ([]ingest.Report, error)
	ResumeHalted(ctx context.Context) ([]ingest.Report, error)
}

type batchCatalog interface {
	Batches() []models.Batch
	BatchByPath(path string) (models.Batch, bool)
}

type ingestDispatcher interface {
	Enqueue(job jobs.Job) error
	Depth() int
}

const (
	jobTypeIngestFile = "ingest-file"
	jobTypeIngestScan = "ingest-scan"
)

// FileJob is the queue payload for a single-file ingestion run.
type FileJob struct {
	Path  string
	Force bool
}

// ScanJob is the queue payload for a directory sweep.
type ScanJob struct {
	Dir string
}

// IngestFileRequest queues one link file for ingestion.
type IngestFileRequest struct {
	Path  string `json:"path" validate:"required"`
	Force bool   `json:"force"`
}

// ClipboardRequest carries a pasted capture.
type ClipboardRequest struct {
	Content string `json:"content" validate:"required"`
}

// QueuedIngest acknowledges an asynchronous ingestion job.
type QueuedIngest struct {
	JobID string `json:"job_id"`
	Path  string `json:"path,omitempty"`
}

// IngestService fronts link-file ingestion. File and scan runs go through
// the job queue so only one batch touches the classifier at a time;
// clipboard captures run inline because the caller is waiting on the report.
type IngestService struct {
	runner    ingestRunner
	batches   batchCatalog
	queue     ingestDispatcher
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	scanDir   string
}

// NewIngestService creates an ingest service instance.
func NewIngestService(runner ingestRunner, batches batchCatalog, queue ingestDispatcher, cache *CacheService, scanDir string, validate *validator.Validate, logger *zap.Logger) *IngestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{
		runner:    runner,
		batches:   batches,
		queue:     queue,
		cache:     cache,
		validator: validate,
		logger:    logger,
		scanDir:   scanDir,
	}
}

// IngestFile queues one link file. The batch record on the store is the
// status surface; the returned job id only acknowledges the enqueue.
func (s *IngestService) IngestFile(ctx context.Context, req IngestFileRequest) (*QueuedIngest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid ingestion request")
	}
	job := jobs.Job{ID: uuid.NewString(), Type: jobTypeIngestFile, Payload: FileJob{Path: req.Path, Force: req.Force}}
	if err := s.queue.Enqueue(job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue ingestion job")
	}
	s.logger.Sugar().Infow("link file queued", "job_id", job.ID, "file", req.Path, "force", req.Force)
	return &QueuedIngest{JobID: job.ID, Path: req.Path}, nil
}

// IngestClipboard ingests a pasted capture inline and reports the outcome,
// including a halt when a url matched no filter.
func (s *IngestService) IngestClipboard(ctx context.Context, req ClipboardRequest) (ingest.Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return ingest.Report{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid clipboard payload")
	}
	report, err := s.runner.ProcessClipboard(ctx, req.Content)
	if report.Classified > 0 {
		s.invalidate(ctx)
	}
	return report, err
}

// TriggerScan queues a sweep of the configured link-files directory.
func (s *IngestService) TriggerScan(ctx context.Context) (*QueuedIngest, error) {
	if s.scanDir == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no link files directory configured")
	}
	job := jobs.Job{ID: uuid.NewString(), Type: jobTypeIngestScan, Payload: ScanJob{Dir: s.scanDir}}
	if err := s.queue.Enqueue(job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue directory scan")
	}
	s.logger.Sugar().Infow("directory scan queued", "job_id", job.ID, "dir", s.scanDir)
	return &QueuedIngest{JobID: job.ID, Path: s.scanDir}, nil
}

// ResumeHalted re-runs every halted batch inline and returns their reports.
func (s *IngestService) ResumeHalted(ctx context.Context) ([]ingest.Report, error) {
	reports, err := s.runner.ResumeHalted(ctx)
	for _, r := range reports {
		if r.Classified > 0 {
			s.invalidate(ctx)
			break
		}
	}
	return reports, err
}

// Batches lists every tracked ingestion batch.
func (s *IngestService) Batches(ctx context.Context) []models.Batch {
	return s.batches.Batches()
}

// Batch returns the record for one source file.
func (s *IngestService) Batch(ctx context.Context, path string) (models.Batch, error) {
	batch, ok := s.batches.BatchByPath(path)
	if !ok {
		return models.Batch{}, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
	}
	return batch, nil
}

// PendingJobs reports how many ingestion jobs are waiting in the queue.
func (s *IngestService) PendingJobs() int {
	return s.queue.Depth()
}

func (s *IngestService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "links:*"); err != nil {
		s.logger.Warn("invalidate link cache", zap.Error(err))
	}
}

// IngestWorker executes queued ingestion jobs.
type IngestWorker struct {
	runner ingestRunner
	cache  *CacheService
	logger *zap.Logger
}

// NewIngestWorker constructs a worker.
func NewIngestWorker(runner ingestRunner, cache *CacheService, logger *zap.Logger) *IngestWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestWorker{runner: runner, cache: cache, logger: logger}
}

// Handle runs one queued job. A halted batch is not a job failure: the batch
// keeps its halted status and a later resume picks it up. Returned errors are
// real read failures, which the queue retries.
func (w *IngestWorker) Handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobTypeIngestFile:
		payload, ok := job.Payload.(FileJob)
		if !ok {
			w.logger.Sugar().Warnw("ingest job dropped, unexpected payload", "job_id", job.ID)
			return nil
		}
		report, err := w.runner.ProcessFile(ctx, payload.Path, payload.Force)
		w.record(ctx, report)
		return err
	case jobTypeIngestScan:
		payload, ok := job.Payload.(ScanJob)
		if !ok {
			w.logger.Sugar().Warnw("ingest job dropped, unexpected payload", "job_id", job.ID)
			return nil
		}
		reports, err := w.runner.ScanDirectory(ctx, payload.Dir)
		w.record(ctx, reports...)
		return err
	default:
		w.logger.Sugar().Warnw("ingest job dropped, unknown type", "job_id", job.ID, "type", job.Type)
		return nil
	}
}

func (w *IngestWorker) record(ctx context.Context, reports ...ingest.Report) {
	classified := 0
	for _, r := range reports {
		if r.Skipped {
			continue
		}
		classified += r.Classified
		w.logger.Sugar().Infow("ingestion finished",
			"file", r.Path, "status", r.Status, "links", r.LinksFound, "classified", r.Classified)
	}
	if classified > 0 && w.cache != nil {
		if err := w.cache.Invalidate(ctx, "links:*"); err != nil {
			w.logger.Warn("invalidate link cache", zap.Error(err))
		}
	}
}

// ScanScheduler fires the directory sweep on a five-field cron schedule.
type ScanScheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScanScheduler wires the schedule to the scan queue. The expression uses
// the classic minute-to-weekday form.
func NewScanScheduler(schedule string, ingestSvc *IngestService, logger *zap.Logger) (*ScanScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	_, err := c.AddFunc(schedule, func() {
		if _, err := ingestSvc.TriggerScan(context.Background()); err != nil {
			logger.Sugar().Warnw("scheduled scan not queued", "error", err)
		}
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scan schedule")
	}
	return &ScanScheduler{cron: c, logger: logger}, nil
}

// Start begins firing the schedule.
func (s *ScanScheduler) Start() {
	s.cron.Start()
	s.logger.Sugar().Infow("scan scheduler started")
}

// Stop halts the schedule and waits for an in-flight trigger to return.
func (s *ScanScheduler) Stop() {
	<-s.cron.Stop().Done()
}
