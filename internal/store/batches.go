package store

import (
	"context"

	"github.com/jonp69/DL-Homework-Garden/internal/models"
)

// UpsertBatch records or refreshes the processing result for a link file,
// keyed by its path. A file is re-ingested only when its recorded status
// says the previous pass did not finish.
func (s *Store) UpsertBatch(ctx context.Context, b models.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.batches[b.Path]
	if !ok {
		stored := b
		s.batches[b.Path] = &stored
		s.batchOrder = append(s.batchOrder, b.Path)
	} else {
		*existing = b
	}
	return s.saveBatches(ctx)
}

// BatchByPath looks up the record for a previously seen link file.
func (s *Store) BatchByPath(path string) (models.Batch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[path]
	if !ok {
		return models.Batch{}, false
	}
	return *b, true
}

// Batches returns all batch records in first-seen order.
func (s *Store) Batches() []models.Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Batch, 0, len(s.batchOrder))
	for _, path := range s.batchOrder {
		out = append(out, *s.batches[path])
	}
	return out
}
