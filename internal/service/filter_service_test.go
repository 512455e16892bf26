package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonp69/DL-Homework-Garden/internal/classify"
	"github.com/jonp69/DL-Homework-Garden/internal/models"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

type mockFilterStore struct {
	filters        []models.Filter
	added          *models.Filter
	deleteAffected int
	deleteErr      error
	moveResult     []models.Filter
	moveErr        error
}

func (m *mockFilterStore) Filters() []models.Filter { return m.filters }

func (m *mockFilterStore) FilterByID(id int64) (models.Filter, bool) {
	for _, f := range m.filters {
		if f.NumericID == id {
			return f, true
		}
	}
	return models.Filter{}, false
}

func (m *mockFilterStore) AddFilter(ctx context.Context, f models.Filter) (models.Filter, error) {
	f.NumericID = int64(len(m.filters) + 1)
	m.added = &f
	m.filters = append(m.filters, f)
	return f, nil
}

func (m *mockFilterStore) UpdateFilter(ctx context.Context, id int64, f models.Filter) (models.Filter, error) {
	f.NumericID = id
	return f, nil
}

func (m *mockFilterStore) DeleteFilter(ctx context.Context, id int64) (int, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	return m.deleteAffected, nil
}

func (m *mockFilterStore) MoveFilter(ctx context.Context, id int64, delta int) ([]models.Filter, error) {
	if m.moveErr != nil {
		return nil, m.moveErr
	}
	return m.moveResult, nil
}

func (m *mockFilterStore) LinksByFilter(id int64) []models.Link { return nil }

type mockReprocessor struct {
	result          classify.ReprocessResult
	err             error
	calls           int
	lastInteractive bool
}

func (m *mockReprocessor) Reprocess(ctx context.Context, interactive bool) (classify.ReprocessResult, error) {
	m.calls++
	m.lastInteractive = interactive
	return m.result, m.err
}

type mockAuthoring struct {
	pending    []classify.PendingRequest
	resolved   map[string]classify.AuthorResponse
	resolveErr error
}

func (m *mockAuthoring) Pending() []classify.PendingRequest { return m.pending }

func (m *mockAuthoring) Resolve(id string, resp classify.AuthorResponse) error {
	if m.resolveErr != nil {
		return m.resolveErr
	}
	if m.resolved == nil {
		m.resolved = make(map[string]classify.AuthorResponse)
	}
	m.resolved[id] = resp
	return nil
}

func catchAllPayload() FilterPayload {
	return FilterPayload{
		Name:   "catch all",
		Action: string(models.ActionToDownload),
		Rules:  []RulePayload{{Position: models.AnyPosition, Mode: string(models.MatchAny)}},
	}
}

func TestFilterServiceCreateTriggersSilentReprocess(t *testing.T) {
	store := &mockFilterStore{}
	rep := &mockReprocessor{result: classify.ReprocessResult{Applied: 2, Remaining: 1}}
	svc := NewFilterService(store, rep, &mockAuthoring{}, nil, nil, zap.NewNop())

	filter, err := svc.Create(context.Background(), catchAllPayload())
	require.NoError(t, err)
	assert.Equal(t, int64(1), filter.NumericID)
	require.NotNil(t, store.added)
	assert.Equal(t, models.ActionToDownload, store.added.Action)
	assert.Equal(t, 1, rep.calls)
	assert.False(t, rep.lastInteractive)
}

func TestFilterServiceCreateRejectsEmptyRules(t *testing.T) {
	store := &mockFilterStore{}
	rep := &mockReprocessor{}
	svc := NewFilterService(store, rep, &mockAuthoring{}, nil, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), FilterPayload{Action: string(models.ActionToSkip)})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Nil(t, store.added)
	assert.Zero(t, rep.calls)
}

func TestFilterServiceDeleteReportsCascade(t *testing.T) {
	store := &mockFilterStore{deleteAffected: 3}
	rep := &mockReprocessor{result: classify.ReprocessResult{Applied: 2, Remaining: 1}}
	svc := NewFilterService(store, rep, &mockAuthoring{}, nil, nil, zap.NewNop())

	result, err := svc.Delete(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 3, result.AffectedLinks)
	assert.Equal(t, 2, result.Reprocess.Applied)
	assert.Equal(t, 1, result.Reprocess.Remaining)
	assert.False(t, rep.lastInteractive)
}

func TestFilterServiceReprocessAllIsInteractive(t *testing.T) {
	rep := &mockReprocessor{result: classify.ReprocessResult{Applied: 1, Halted: true}}
	svc := NewFilterService(&mockFilterStore{}, rep, &mockAuthoring{}, nil, nil, zap.NewNop())

	report, err := svc.ReprocessAll(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.lastInteractive)
	assert.True(t, report.Halted)
}

func TestFilterServiceResolveAuthoringNeedsFilterOrCancel(t *testing.T) {
	authoring := &mockAuthoring{}
	svc := NewFilterService(&mockFilterStore{}, &mockReprocessor{}, authoring, nil, nil, zap.NewNop())

	err := svc.ResolveAuthoring(context.Background(), "req-1", ResolveAuthoringRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, authoring.resolved)
}

func TestFilterServiceResolveAuthoringCancel(t *testing.T) {
	authoring := &mockAuthoring{}
	svc := NewFilterService(&mockFilterStore{}, &mockReprocessor{}, authoring, nil, nil, zap.NewNop())

	require.NoError(t, svc.ResolveAuthoring(context.Background(), "req-1", ResolveAuthoringRequest{Cancel: true}))
	require.Contains(t, authoring.resolved, "req-1")
	assert.True(t, authoring.resolved["req-1"].Cancel)
}

func TestFilterServiceResolveAuthoringRejectsBadFilter(t *testing.T) {
	authoring := &mockAuthoring{}
	svc := NewFilterService(&mockFilterStore{}, &mockReprocessor{}, authoring, nil, nil, zap.NewNop())

	payload := FilterPayload{
		Action: "bogus",
		Rules:  []RulePayload{{Position: models.AnyPosition, Mode: string(models.MatchAny)}},
	}
	err := svc.ResolveAuthoring(context.Background(), "req-1", ResolveAuthoringRequest{Filter: &payload})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, authoring.resolved)
}
