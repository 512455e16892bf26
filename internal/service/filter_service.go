package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonp69/DL-Homework-Garden/internal/classify"
	"github.com/jonp69/DL-Homework-Garden/internal/models"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

type filterStore interface {
	Filters() []models.Filter
	FilterByID(id int64) (models.Filter, bool)
	AddFilter(ctx context.Context, f models.Filter) (models.Filter, error)
	UpdateFilter(ctx context.Context, id int64, f models.Filter) (models.Filter, error)
	DeleteFilter(ctx context.Context, id int64) (int, error)
	MoveFilter(ctx context.Context, id int64, delta int) ([]models.Filter, error)
	LinksByFilter(id int64) []models.Link
}

type reprocessor interface {
	Reprocess(ctx context.Context, interactive bool) (classify.ReprocessResult, error)
}

type authoringExchange interface {
	Pending() []classify.PendingRequest
	Resolve(id string, resp classify.AuthorResponse) error
}

// RulePayload is one positional predicate in a filter payload.
type RulePayload struct {
	Position   int    `json:"position"`
	Mode       string `json:"mode" validate:"required"`
	Expression string `json:"expression"`
}

// FilterPayload carries a filter definition for create and update.
type FilterPayload struct {
	Name   string        `json:"name"`
	Action string        `json:"action" validate:"required"`
	Rules  []RulePayload `json:"rules" validate:"required,min=1,dive"`
}

// MoveFilterRequest shifts a filter inside the ordered set.
type MoveFilterRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// ResolveAuthoringRequest answers a pending authoring prompt: either a new
// filter definition or a cancel.
type ResolveAuthoringRequest struct {
	Cancel bool           `json:"cancel"`
	Filter *FilterPayload `json:"filter"`
}

// DeleteFilterResult reports the cascade of a filter removal.
type DeleteFilterResult struct {
	AffectedLinks int                      `json:"affected_links"`
	Reprocess     classify.ReprocessResult `json:"reprocess"`
}

// FilterService manages the ordered filter set. Every mutation that can
// change classification outcomes triggers a silent pass over the
// to_reprocess bucket; links still unmatched simply stay there.
type FilterService struct {
	store       filterStore
	reprocessor reprocessor
	authoring   authoringExchange
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewFilterService creates a filter service instance.
func NewFilterService(store filterStore, rep reprocessor, authoring authoringExchange, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *FilterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilterService{
		store:       store,
		reprocessor: rep,
		authoring:   authoring,
		cache:       cache,
		validator:   validate,
		logger:      logger,
	}
}

// List returns the filter set in priority order.
func (s *FilterService) List(ctx context.Context) []models.Filter {
	return s.store.Filters()
}

// Get returns one filter by its stable id.
func (s *FilterService) Get(ctx context.Context, id int64) (models.Filter, error) {
	filter, ok := s.store.FilterByID(id)
	if !ok {
		return models.Filter{}, appErrors.Clone(appErrors.ErrNotFound, "filter not found")
	}
	return filter, nil
}

// Create appends a new filter at the lowest priority and re-runs the
// reprocess bucket against the grown set.
func (s *FilterService) Create(ctx context.Context, req FilterPayload) (models.Filter, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Filter{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter payload")
	}

	filter, err := s.store.AddFilter(ctx, req.toModel())
	if err != nil {
		return models.Filter{}, err
	}
	s.afterMutation(ctx, "filter created", filter.NumericID)
	return filter, nil
}

// Update replaces a filter's definition in place, keeping id and rank.
func (s *FilterService) Update(ctx context.Context, id int64, req FilterPayload) (models.Filter, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Filter{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter payload")
	}

	filter, err := s.store.UpdateFilter(ctx, id, req.toModel())
	if err != nil {
		return models.Filter{}, err
	}
	s.afterMutation(ctx, "filter updated", id)
	return filter, nil
}

// Delete removes a filter. Links that matched it move to to_reprocess and a
// silent pass re-classifies what the remaining set covers; the rest stay in
// the bucket for an interactive run.
func (s *FilterService) Delete(ctx context.Context, id int64) (DeleteFilterResult, error) {
	affected, err := s.store.DeleteFilter(ctx, id)
	if err != nil {
		return DeleteFilterResult{}, err
	}
	s.invalidate(ctx)

	report, err := s.reprocessor.Reprocess(ctx, false)
	if err != nil {
		s.logger.Sugar().Errorw("reprocess after filter delete failed", "filter_id", id, "error", err)
		return DeleteFilterResult{AffectedLinks: affected}, nil
	}
	s.logger.Sugar().Infow("filter deleted", "filter_id", id,
		"affected_links", affected, "reapplied", report.Applied, "remaining", report.Remaining)
	return DeleteFilterResult{AffectedLinks: affected, Reprocess: report}, nil
}

// Move shifts a filter by delta positions and returns the new ordering.
// Reordering changes which filter wins first, so the bucket is re-run here
// too.
func (s *FilterService) Move(ctx context.Context, id int64, req MoveFilterRequest) ([]models.Filter, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid move payload")
	}

	ordered, err := s.store.MoveFilter(ctx, id, req.Delta)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, "filter moved", id)
	return ordered, nil
}

// AffectedLinks lists links whose latest classification came from filter id.
func (s *FilterService) AffectedLinks(ctx context.Context, id int64) ([]models.Link, error) {
	if _, ok := s.store.FilterByID(id); !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "filter not found")
	}
	return s.store.LinksByFilter(id), nil
}

// ReprocessAll runs an explicit interactive pass over the to_reprocess
// bucket: unmatched links raise authoring prompts, and a cancel halts the
// remainder of the pass.
func (s *FilterService) ReprocessAll(ctx context.Context) (classify.ReprocessResult, error) {
	report, err := s.reprocessor.Reprocess(ctx, true)
	if err != nil {
		return report, err
	}
	s.invalidate(ctx)
	return report, nil
}

// PendingAuthoring lists open authoring prompts, oldest first.
func (s *FilterService) PendingAuthoring(ctx context.Context) []classify.PendingRequest {
	return s.authoring.Pending()
}

// ResolveAuthoring answers one authoring prompt. A filter payload is
// validated before it reaches the suspended worker so a bad definition
// fails the caller, not the ingestion run.
func (s *FilterService) ResolveAuthoring(ctx context.Context, id string, req ResolveAuthoringRequest) error {
	if req.Cancel {
		return s.authoring.Resolve(id, classify.AuthorResponse{Cancel: true})
	}
	if req.Filter == nil {
		return appErrors.Clone(appErrors.ErrValidation, "resolution needs a filter or cancel")
	}
	if err := s.validator.Struct(req.Filter); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter payload")
	}
	filter := req.Filter.toModel()
	if err := filter.Validate(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	if err := s.authoring.Resolve(id, classify.AuthorResponse{Filter: filter}); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *FilterService) afterMutation(ctx context.Context, event string, id int64) {
	s.invalidate(ctx)
	report, err := s.reprocessor.Reprocess(ctx, false)
	if err != nil {
		s.logger.Sugar().Errorw("reprocess after filter change failed", "filter_id", id, "error", err)
		return
	}
	s.logger.Sugar().Infow(event, "filter_id", id, "reapplied", report.Applied, "remaining", report.Remaining)
}

func (s *FilterService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "links:*"); err != nil {
		s.logger.Warn("invalidate link cache", zap.Error(err))
	}
}

func (p FilterPayload) toModel() models.Filter {
	rules := make([]models.Rule, 0, len(p.Rules))
	for _, r := range p.Rules {
		rules = append(rules, models.Rule{
			Position:   r.Position,
			Mode:       models.MatchMode(r.Mode),
			Expression: r.Expression,
		})
	}
	return models.Filter{
		Name:   p.Name,
		Action: models.FilterAction(p.Action),
		Rules:  rules,
	}
}
