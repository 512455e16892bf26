package repository

import "context"

// Snapshot collection names. Each collection is persisted as one whole
// document; every store mutation rewrites the affected collection.
const (
	CollectionLinks   = "links"
	CollectionFilters = "filters"
	CollectionBatches = "batches"
)

// Snapshots persists whole-collection documents. Implementations must make
// Save atomic per collection: a reader never observes a partially written
// document. Load returns pkg/errors.ErrSnapshotNotFound for a collection
// that has never been saved.
type Snapshots interface {
	Load(ctx context.Context, collection string) ([]byte, error)
	Save(ctx context.Context, collection string, data []byte) error
}
