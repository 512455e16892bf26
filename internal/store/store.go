// Package store owns the persistent link, filter and batch collections.
// All mutation runs behind one store-wide write lock and every mutation
// rewrites the affected collection document through the snapshot backend,
// so the durable state is always the full current truth.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonp69/DL-Homework-Garden/internal/models"
	"github.com/jonp69/DL-Homework-Garden/internal/repository"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

// Config wires the store's collaborators.
type Config struct {
	Snapshots repository.Snapshots
	Logger    *zap.Logger
}

// Store is the in-memory indexed state mirrored to durable snapshots.
type Store struct {
	mu sync.RWMutex

	snaps  repository.Snapshots
	logger *zap.Logger

	links      map[string]*models.Link
	linkOrder  []string
	filters    []*models.Filter
	nextID     int64
	batches    map[string]*models.Batch
	batchOrder []string
}

// New builds an empty store. Call Load before serving traffic.
func New(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		snaps:   cfg.Snapshots,
		logger:  logger,
		links:   make(map[string]*models.Link),
		batches: make(map[string]*models.Batch),
		nextID:  1,
	}
}

type linksDocument struct {
	Links []*models.Link `json:"links"`
}

type filtersDocument struct {
	NextNumericID int64            `json:"next_numeric_id"`
	Filters       []*models.Filter `json:"filters"`
}

type batchesDocument struct {
	Batches []*models.Batch `json:"batches"`
}

// Load reads all collections from the snapshot backend. Unreadable state is
// fatal: the store refuses to run on partial data. Links left in the
// in-flight state by a previous crash are reset to to_download.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var linksDoc linksDocument
	if err := s.loadCollection(ctx, repository.CollectionLinks, &linksDoc); err != nil {
		return err
	}
	var filtersDoc filtersDocument
	if err := s.loadCollection(ctx, repository.CollectionFilters, &filtersDoc); err != nil {
		return err
	}
	var batchesDoc batchesDocument
	if err := s.loadCollection(ctx, repository.CollectionBatches, &batchesDoc); err != nil {
		return err
	}

	s.links = make(map[string]*models.Link, len(linksDoc.Links))
	s.linkOrder = s.linkOrder[:0]
	recovered := 0
	for _, link := range linksDoc.Links {
		if link == nil || link.URL == "" {
			return appErrors.Wrap(fmt.Errorf("link entry missing url"), appErrors.ErrStoreCorrupt.Code, appErrors.ErrStoreCorrupt.Status, appErrors.ErrStoreCorrupt.Message)
		}
		if link.Status.InFlight() {
			link.Status = models.StatusToDownload
			link.UpdatedAt = time.Now().UTC()
			recovered++
		}
		s.links[link.URL] = link
		s.linkOrder = append(s.linkOrder, link.URL)
	}

	s.filters = filtersDoc.Filters
	maxID := int64(0)
	for i, f := range s.filters {
		if f == nil {
			return appErrors.Wrap(fmt.Errorf("filter entry is null"), appErrors.ErrStoreCorrupt.Code, appErrors.ErrStoreCorrupt.Status, appErrors.ErrStoreCorrupt.Message)
		}
		f.PriorityRank = i
		if f.NumericID > maxID {
			maxID = f.NumericID
		}
	}
	s.nextID = filtersDoc.NextNumericID
	if s.nextID <= maxID {
		s.nextID = maxID + 1
	}
	if s.nextID < 1 {
		s.nextID = 1
	}

	s.batches = make(map[string]*models.Batch, len(batchesDoc.Batches))
	s.batchOrder = s.batchOrder[:0]
	for _, b := range batchesDoc.Batches {
		if b == nil || b.Path == "" {
			return appErrors.Wrap(fmt.Errorf("batch entry missing path"), appErrors.ErrStoreCorrupt.Code, appErrors.ErrStoreCorrupt.Status, appErrors.ErrStoreCorrupt.Message)
		}
		s.batches[b.Path] = b
		s.batchOrder = append(s.batchOrder, b.Path)
	}

	if recovered > 0 {
		s.logger.Sugar().Infow("reset in-flight links after restart", "count", recovered)
		if err := s.saveLinks(ctx); err != nil {
			return err
		}
	}

	s.logger.Sugar().Infow("store loaded",
		"links", len(s.links), "filters", len(s.filters), "batches", len(s.batches))
	return nil
}

func (s *Store) loadCollection(ctx context.Context, collection string, dest interface{}) error {
	data, err := s.snaps.Load(ctx, collection)
	if err != nil {
		if errors.Is(err, appErrors.ErrSnapshotNotFound) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrStoreCorrupt.Code, appErrors.ErrStoreCorrupt.Status, fmt.Sprintf("load %s snapshot", collection))
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreCorrupt.Code, appErrors.ErrStoreCorrupt.Status, fmt.Sprintf("parse %s snapshot", collection))
	}
	return nil
}

// saveLinks persists the whole links collection. Callers hold the write lock.
func (s *Store) saveLinks(ctx context.Context) error {
	doc := linksDocument{Links: make([]*models.Link, 0, len(s.linkOrder))}
	for _, url := range s.linkOrder {
		doc.Links = append(doc.Links, s.links[url])
	}
	return s.saveCollection(ctx, repository.CollectionLinks, doc)
}

// saveFilters persists the whole filters collection. Callers hold the write lock.
func (s *Store) saveFilters(ctx context.Context) error {
	doc := filtersDocument{NextNumericID: s.nextID, Filters: s.filters}
	return s.saveCollection(ctx, repository.CollectionFilters, doc)
}

// saveBatches persists the whole batches collection. Callers hold the write lock.
func (s *Store) saveBatches(ctx context.Context) error {
	doc := batchesDocument{Batches: make([]*models.Batch, 0, len(s.batchOrder))}
	for _, path := range s.batchOrder {
		doc.Batches = append(doc.Batches, s.batches[path])
	}
	return s.saveCollection(ctx, repository.CollectionBatches, doc)
}

func (s *Store) saveCollection(ctx context.Context, collection string, doc interface{}) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", collection, err)
	}
	if err := s.snaps.Save(ctx, collection, data); err != nil {
		s.logger.Sugar().Errorw("snapshot save failed", "collection", collection, "error", err)
		return fmt.Errorf("save %s snapshot: %w", collection, err)
	}
	return nil
}
