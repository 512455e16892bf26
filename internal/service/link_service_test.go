package service

import (
	"context"
	"encoding/json"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonp69/DL-Homework-Garden/internal/models"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

type mockLinkStore struct {
	links        []models.Link
	total        int
	stats        models.LinkStats
	statsCalls   int
	lastQuery    models.LinkQuery
	setStatusErr error
	batchChanged int
	lastBatchURL []string
	lastStatus   models.LinkStatus
}

func (m *mockLinkStore) List(q models.LinkQuery) ([]models.Link, int) {
	m.lastQuery = q
	return m.links, m.total
}

func (m *mockLinkStore) Get(url string) (models.Link, bool) {
	for _, link := range m.links {
		if link.URL == url {
			return link, true
		}
	}
	return models.Link{}, false
}

func (m *mockLinkStore) Stats() models.LinkStats {
	m.statsCalls++
	return m.stats
}

func (m *mockLinkStore) SetStatus(ctx context.Context, url string, status models.LinkStatus) (models.Link, error) {
	if m.setStatusErr != nil {
		return models.Link{}, m.setStatusErr
	}
	m.lastStatus = status
	return models.Link{URL: url, Status: status}, nil
}

func (m *mockLinkStore) SetStatusBatch(ctx context.Context, urls []string, status models.LinkStatus) (int, error) {
	m.lastBatchURL = urls
	m.lastStatus = status
	return m.batchChanged, nil
}

func (m *mockLinkStore) LinksByStatus(status models.LinkStatus) []models.Link {
	out := make([]models.Link, 0)
	for _, link := range m.links {
		if link.Status == status {
			out = append(out, link)
		}
	}
	return out
}

func (m *mockLinkStore) LinksByFilter(id int64) []models.Link { return nil }

// memCacheRepo keeps marshaled payloads in a map so cache round-trips behave
// like the redis-backed repository.
type memCacheRepo struct {
	entries map[string][]byte
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{entries: make(map[string][]byte)}
}

func (m *memCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}

func TestLinkServiceListRejectsUnknownStatus(t *testing.T) {
	store := &mockLinkStore{}
	svc := NewLinkService(store, nil, nil, nil, zap.NewNop())

	_, _, err := svc.List(context.Background(), ListLinksRequest{Status: "bogus"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestLinkServiceListDefaultsPagination(t *testing.T) {
	store := &mockLinkStore{links: []models.Link{{URL: "https://gallery.example/a"}}, total: 42}
	svc := NewLinkService(store, nil, nil, nil, zap.NewNop())

	links, pagination, err := svc.List(context.Background(), ListLinksRequest{Status: "to_download"})
	require.NoError(t, err)
	assert.Len(t, links, 1)
	assert.Equal(t, models.StatusToDownload, store.lastQuery.Status)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 42, pagination.TotalCount)
}

func TestLinkServiceStatsCachesResult(t *testing.T) {
	store := &mockLinkStore{stats: models.LinkStats{Total: 7, ByStatus: map[models.LinkStatus]int{models.StatusToDownload: 7}}}
	cache := NewCacheService(newMemCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	svc := NewLinkService(store, cache, nil, nil, zap.NewNop())

	stats, fromCache, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 7, stats.Total)

	stats, fromCache, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, 7, stats.Total)
	assert.Equal(t, 1, store.statsCalls)
}

func TestLinkServiceSetStatusInvalidatesStats(t *testing.T) {
	store := &mockLinkStore{stats: models.LinkStats{Total: 1}}
	cache := NewCacheService(newMemCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	svc := NewLinkService(store, cache, nil, nil, zap.NewNop())

	_, _, err := svc.Stats(context.Background())
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), SetLinkStatusRequest{URL: "https://gallery.example/a", Status: "to_skip"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusToSkip, store.lastStatus)

	_, fromCache, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 2, store.statsCalls)
}

func TestLinkServiceSetStatusRejectsEmptyPayload(t *testing.T) {
	store := &mockLinkStore{}
	svc := NewLinkService(store, nil, nil, nil, zap.NewNop())

	_, err := svc.SetStatus(context.Background(), SetLinkStatusRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestLinkServiceSetStatusBulkForwardsAll(t *testing.T) {
	store := &mockLinkStore{batchChanged: 2}
	svc := NewLinkService(store, nil, nil, nil, zap.NewNop())

	changed, err := svc.SetStatusBulk(context.Background(), SetLinkStatusBulkRequest{
		URLs:   []string{"https://gallery.example/a", "https://gallery.example/b"},
		Status: "to_reprocess",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	assert.Equal(t, models.StatusToReprocess, store.lastStatus)
	assert.Len(t, store.lastBatchURL, 2)
}
