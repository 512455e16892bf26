package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonp69/DL-Homework-Garden/internal/models"
	"github.com/jonp69/DL-Homework-Garden/internal/repository"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

type memorySnapshots struct {
	mu    sync.Mutex
	docs  map[string][]byte
	saves int
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{docs: make(map[string][]byte)}
}

func (m *memorySnapshots) Load(_ context.Context, collection string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[collection]
	if !ok {
		return nil, appErrors.ErrSnapshotNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *memorySnapshots) Save(_ context.Context, collection string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.docs[collection] = cp
	m.saves++
	return nil
}

func (m *memorySnapshots) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func newTestStore(t *testing.T) (*Store, *memorySnapshots) {
	t.Helper()
	snaps := newMemorySnapshots()
	s := New(Config{Snapshots: snaps})
	require.NoError(t, s.Load(context.Background()))
	return s, snaps
}

func classify(t *testing.T, s *Store, url string, action models.FilterAction, filterID int64) models.Link {
	t.Helper()
	link, err := s.ApplyClassification(context.Background(), url, Classification{
		Action:   action,
		FilterID: &filterID,
		Source:   models.SourceFile,
	})
	require.NoError(t, err)
	return link
}

func TestStore_LoadEmpty(t *testing.T) {
	s, snaps := newTestStore(t)

	assert.Equal(t, 0, s.Stats().Total)
	assert.Empty(t, s.Filters())
	assert.Empty(t, s.Batches())
	assert.Equal(t, 0, snaps.saveCount())
}

func TestStore_LoadCorruptSnapshotFails(t *testing.T) {
	snaps := newMemorySnapshots()
	snaps.docs[repository.CollectionLinks] = []byte("{not json")

	s := New(Config{Snapshots: snaps})
	err := s.Load(context.Background())
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrStoreCorrupt.Code, appErr.Code)
}

func TestStore_LoadResetsInFlightLinks(t *testing.T) {
	source, snaps := newTestStore(t)
	classify(t, source, "https://example.com/a", models.ActionToDownload, 1)
	_, claimed, err := source.ClaimNext(context.Background(), models.StatusToDownload, models.StatusToSkip)
	require.NoError(t, err)
	require.True(t, claimed)

	restarted := New(Config{Snapshots: snaps})
	require.NoError(t, restarted.Load(context.Background()))

	link, ok := restarted.Get("https://example.com/a")
	require.True(t, ok)
	assert.Equal(t, models.StatusToDownload, link.Status)
}

func TestStore_PersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, snaps := newTestStore(t)

	created, err := s.AddFilter(ctx, models.Filter{
		Name:   "art",
		Action: models.ActionToDownload,
		Rules:  []models.Rule{{Position: 0, Mode: models.MatchContains, Expression: "example"}},
	})
	require.NoError(t, err)

	classify(t, s, "https://example.com/a", models.ActionToDownload, created.NumericID)
	classify(t, s, "https://example.com/b", models.ActionToSkip, created.NumericID)
	require.NoError(t, s.UpsertBatch(ctx, models.Batch{
		Path:        "links/batch1.txt",
		Source:      models.SourceFile,
		Status:      models.BatchProcessed,
		LinksFound:  2,
		ProcessedAt: time.Now().UTC(),
	}))

	reloaded := New(Config{Snapshots: snaps})
	require.NoError(t, reloaded.Load(ctx))

	assert.Equal(t, 2, reloaded.Stats().Total)
	filters := reloaded.Filters()
	require.Len(t, filters, 1)
	assert.Equal(t, created.NumericID, filters[0].NumericID)
	assert.Equal(t, "art", filters[0].Name)
	require.Len(t, filters[0].Rules, 1)
	assert.Equal(t, models.MatchContains, filters[0].Rules[0].Mode)

	batches := reloaded.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, "links/batch1.txt", batches[0].Path)
	assert.False(t, batches[0].Resumable())
}

func TestStore_NextNumericIDSurvivesReload(t *testing.T) {
	ctx := context.Background()
	s, snaps := newTestStore(t)

	first, err := s.AddFilter(ctx, models.Filter{
		Action: models.ActionToSkip,
		Rules:  []models.Rule{{Mode: models.MatchAny, Position: models.AnyPosition}},
	})
	require.NoError(t, err)
	second, err := s.AddFilter(ctx, models.Filter{
		Action: models.ActionToSkip,
		Rules:  []models.Rule{{Mode: models.MatchAny, Position: models.AnyPosition}},
	})
	require.NoError(t, err)
	assert.Equal(t, first.NumericID+1, second.NumericID)

	_, err = s.DeleteFilter(ctx, second.NumericID)
	require.NoError(t, err)

	reloaded := New(Config{Snapshots: snaps})
	require.NoError(t, reloaded.Load(ctx))

	third, err := reloaded.AddFilter(ctx, models.Filter{
		Action: models.ActionToSkip,
		Rules:  []models.Rule{{Mode: models.MatchAny, Position: models.AnyPosition}},
	})
	require.NoError(t, err)
	assert.Equal(t, second.NumericID+1, third.NumericID, "deleted ids must never be reused")
}

func TestStore_BatchUpsertReplacesByPath(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.UpsertBatch(ctx, models.Batch{
		Path:   "links/a.txt",
		Source: models.SourceFile,
		Status: models.BatchProcessedHalted,
	}))
	require.NoError(t, s.UpsertBatch(ctx, models.Batch{
		Path:       "links/a.txt",
		Source:     models.SourceFile,
		Status:     models.BatchProcessed,
		LinksFound: 4,
	}))

	b, ok := s.BatchByPath("links/a.txt")
	require.True(t, ok)
	assert.Equal(t, models.BatchProcessed, b.Status)
	assert.Equal(t, 4, b.LinksFound)
	assert.Len(t, s.Batches(), 1)
}

func TestStore_SnapshotSaveErrorSurfaces(t *testing.T) {
	snaps := &failingSnapshots{}
	s := New(Config{Snapshots: snaps})
	require.NoError(t, s.Load(context.Background()))

	_, err := s.ApplyClassification(context.Background(), "https://example.com", Classification{Action: models.ActionToSkip})
	require.Error(t, err)
}

type failingSnapshots struct{}

func (f *failingSnapshots) Load(context.Context, string) ([]byte, error) {
	return nil, appErrors.ErrSnapshotNotFound
}

func (f *failingSnapshots) Save(context.Context, string, []byte) error {
	return errors.New("disk full")
}
