package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonp69/DL-Homework-Garden/internal/download"
	"github.com/jonp69/DL-Homework-Garden/internal/models"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

type queueController interface {
	Start() error
	Pause() error
	Resume() error
	Stop() error
	SkipCurrent(url string) error
	Status() download.Snapshot
}

type decisionExchange interface {
	Pending() []download.PendingDecision
	Resolve(id string, d download.Decision) error
}

type overrideLane interface {
	Enqueue(url string) error
	Depth() int
}

type tierCounter interface {
	Stats() models.LinkStats
}

// SkipRequest names the in-flight download to skip. An empty url targets the
// single active slot.
type SkipRequest struct {
	URL string `json:"url"`
}

// ResolveDecisionRequest answers one pending limit prompt.
type ResolveDecisionRequest struct {
	ID       string `json:"id" validate:"required"`
	Decision string `json:"decision" validate:"required"`
}

// OverrideRequest forces a fresh attempt for a limit-parked or failed link.
type OverrideRequest struct {
	URL string `json:"url" validate:"required"`
}

// QueueStatus merges the runner snapshot with tier counts from the store.
type QueueStatus struct {
	download.Snapshot
	ToDownload       int `json:"to_download"`
	ToSkip           int `json:"to_skip"`
	LimitParked      int `json:"limit_parked"`
	Failed           int `json:"failed"`
	Downloaded       int `json:"downloaded"`
	PendingDecisions int `json:"pending_decisions"`
	OverrideDepth    int `json:"override_depth"`
}

// DownloadService exposes queue control, limit decisions and operator
// overrides over the download runner.
type DownloadService struct {
	runner    queueController
	decisions decisionExchange
	overrides overrideLane
	store     tierCounter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDownloadService creates a download service instance.
func NewDownloadService(runner queueController, decisions decisionExchange, overrides overrideLane, store tierCounter, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *DownloadService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DownloadService{
		runner:    runner,
		decisions: decisions,
		overrides: overrides,
		store:     store,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// Start launches a download run over both tiers.
func (s *DownloadService) Start(ctx context.Context) error {
	if err := s.runner.Start(); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Sugar().Infow("download run started")
	return nil
}

// Pause holds further claims while in-flight downloads keep running.
func (s *DownloadService) Pause(ctx context.Context) error {
	if err := s.runner.Pause(); err != nil {
		return err
	}
	s.logger.Sugar().Infow("download run paused")
	return nil
}

// Resume lifts a pause.
func (s *DownloadService) Resume(ctx context.Context) error {
	if err := s.runner.Resume(); err != nil {
		return err
	}
	s.logger.Sugar().Infow("download run resumed")
	return nil
}

// Stop ends the run and returns interrupted links to their tier.
func (s *DownloadService) Stop(ctx context.Context) error {
	if err := s.runner.Stop(); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Sugar().Infow("download run stopped")
	return nil
}

// Skip abandons an in-flight download and parks the link in the skip tier.
func (s *DownloadService) Skip(ctx context.Context, req SkipRequest) error {
	if err := s.runner.SkipCurrent(req.URL); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Status reports the runner state together with tier depths and the number
// of prompts waiting on an operator.
func (s *DownloadService) Status(ctx context.Context) QueueStatus {
	stats := s.store.Stats()
	return QueueStatus{
		Snapshot:         s.runner.Status(),
		ToDownload:       stats.ByStatus[models.StatusToDownload],
		ToSkip:           stats.ByStatus[models.StatusToSkip],
		LimitParked:      stats.ByStatus[models.StatusToSkipLimit],
		Failed:           stats.ByStatus[models.StatusFailed],
		Downloaded:       stats.ByStatus[models.StatusDownloaded],
		PendingDecisions: len(s.decisions.Pending()),
		OverrideDepth:    s.overrides.Depth(),
	}
}

// PendingDecisions lists limit prompts waiting on an operator answer.
func (s *DownloadService) PendingDecisions(ctx context.Context) []download.PendingDecision {
	return s.decisions.Pending()
}

// ResolveDecision answers a pending prompt and releases its suspended slot.
func (s *DownloadService) ResolveDecision(ctx context.Context, req ResolveDecisionRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	if err := s.decisions.Resolve(req.ID, download.Decision(req.Decision)); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Sugar().Infow("limit decision resolved", "request_id", req.ID, "decision", req.Decision)
	return nil
}

// Override queues a forced retry for a parked or failed link. The retry runs
// on its own lane without limit monitoring.
func (s *DownloadService) Override(ctx context.Context, req OverrideRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload")
	}
	if err := s.overrides.Enqueue(req.URL); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Sugar().Infow("override queued", "url", req.URL)
	return nil
}

func (s *DownloadService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "links:*"); err != nil {
		s.logger.Warn("invalidate link cache", zap.Error(err))
	}
}
