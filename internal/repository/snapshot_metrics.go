package repository

import (
	"context"
	"time"
)

type saveObserver interface {
	ObserveSnapshotSave(collection string, duration time.Duration)
}

// InstrumentedSnapshots wraps a snapshot backend and reports save timings.
type InstrumentedSnapshots struct {
	inner    Snapshots
	observer saveObserver
}

// NewInstrumentedSnapshots decorates a backend with save timing observation.
func NewInstrumentedSnapshots(inner Snapshots, observer saveObserver) *InstrumentedSnapshots {
	return &InstrumentedSnapshots{inner: inner, observer: observer}
}

// Load passes through to the wrapped backend.
func (s *InstrumentedSnapshots) Load(ctx context.Context, collection string) ([]byte, error) {
	return s.inner.Load(ctx, collection)
}

// Save persists through the wrapped backend and records the elapsed time.
func (s *InstrumentedSnapshots) Save(ctx context.Context, collection string, data []byte) error {
	start := time.Now()
	err := s.inner.Save(ctx, collection, data)
	if s.observer != nil {
		s.observer.ObserveSnapshotSave(collection, time.Since(start))
	}
	return err
}
