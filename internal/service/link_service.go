package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonp69/DL-Homework-Garden/internal/models"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

type linkStore interface {
	List(q models.LinkQuery) ([]models.Link, int)
	Get(url string) (models.Link, bool)
	Stats() models.LinkStats
	SetStatus(ctx context.Context, url string, status models.LinkStatus) (models.Link, error)
	SetStatusBatch(ctx context.Context, urls []string, status models.LinkStatus) (int, error)
	LinksByStatus(status models.LinkStatus) []models.Link
	LinksByFilter(id int64) []models.Link
}

// ListLinksRequest filters the link collection.
type ListLinksRequest struct {
	Status   string `form:"status"`
	Deleted  *bool  `form:"deleted"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// SetLinkStatusRequest applies a manual status change to one link.
type SetLinkStatusRequest struct {
	URL    string `json:"url" validate:"required"`
	Status string `json:"status" validate:"required"`
}

// SetLinkStatusBulkRequest applies one status change to several links, the
// affected-links view's bulk action.
type SetLinkStatusBulkRequest struct {
	URLs   []string `json:"urls" validate:"required,min=1"`
	Status string   `json:"status" validate:"required"`
}

// LinkService answers queries over the link collection and applies manual
// status changes.
type LinkService struct {
	store     linkStore
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLinkService creates a link service instance.
func NewLinkService(store linkStore, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *LinkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkService{store: store, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns a page of links, newest first.
func (s *LinkService) List(ctx context.Context, req ListLinksRequest) ([]models.Link, *models.Pagination, error) {
	query := models.LinkQuery{
		Deleted:  req.Deleted,
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Status != "" {
		status := models.LinkStatus(req.Status)
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %s", req.Status))
		}
		query.Status = status
	}

	links, total := s.store.List(query)

	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return links, pagination, nil
}

// Get returns a single link by url.
func (s *LinkService) Get(ctx context.Context, url string) (models.Link, error) {
	link, ok := s.store.Get(url)
	if !ok {
		return models.Link{}, appErrors.Clone(appErrors.ErrNotFound, "link not found")
	}
	return link, nil
}

// Stats aggregates the collection by status. The boolean reports whether the
// result came from cache.
func (s *LinkService) Stats(ctx context.Context) (models.LinkStats, bool, error) {
	const cacheKey = "links:stats"
	var cached models.LinkStats
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return models.LinkStats{}, false, fmt.Errorf("get stats cache: %w", err)
		} else if hit {
			return cached, true, nil
		}
	}

	stats := s.store.Stats()
	if s.metrics != nil {
		s.metrics.SetLinkCounts(stats)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, 0); err != nil {
			s.logger.Warn("cache stats", zap.Error(err))
		}
	}
	return stats, false, nil
}

// SetStatus applies a manual change and drops cached aggregates.
func (s *LinkService) SetStatus(ctx context.Context, req SetLinkStatusRequest) (models.Link, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Link{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	link, err := s.store.SetStatus(ctx, req.URL, models.LinkStatus(req.Status))
	if err != nil {
		return models.Link{}, err
	}
	s.invalidate(ctx)
	s.logger.Sugar().Infow("link status changed", "url", req.URL, "status", req.Status)
	return link, nil
}

// SetStatusBulk applies one status to every listed link in a single persist.
// Unknown urls are skipped; the count covers the links actually changed.
func (s *LinkService) SetStatusBulk(ctx context.Context, req SetLinkStatusBulkRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	changed, err := s.store.SetStatusBatch(ctx, req.URLs, models.LinkStatus(req.Status))
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	s.logger.Sugar().Infow("link statuses changed", "count", changed, "status", req.Status)
	return changed, nil
}

// Review lists the deferred-review bucket: links parked by a limit decision,
// oldest first, each carrying the limit that fired.
func (s *LinkService) Review(ctx context.Context) []models.Link {
	return s.store.LinksByStatus(models.StatusToSkipLimit)
}

// ByFilter lists links whose latest classification matched the filter.
func (s *LinkService) ByFilter(ctx context.Context, filterID int64) []models.Link {
	return s.store.LinksByFilter(filterID)
}

func (s *LinkService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "links:*"); err != nil {
		s.logger.Warn("invalidate link cache", zap.Error(err))
	}
}
