package classify

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonp69/DL-Homework-Garden/internal/models"
	"github.com/jonp69/DL-Homework-Garden/internal/repository"
	"github.com/jonp69/DL-Homework-Garden/internal/store"
)

type scriptedAuthor struct {
	mu        sync.Mutex
	responses []AuthorResponse
	calls     int
}

func (a *scriptedAuthor) RequestNewFilter(_ context.Context, _ AuthorRequest) (AuthorResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.calls >= len(a.responses) {
		a.calls++
		return AuthorResponse{Cancel: true}, nil
	}
	resp := a.responses[a.calls]
	a.calls++
	return resp, nil
}

func (a *scriptedAuthor) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func newClassifyStore(t *testing.T) *store.Store {
	t.Helper()
	snaps, err := repository.NewFileSnapshots(t.TempDir())
	require.NoError(t, err)
	s := store.New(store.Config{Snapshots: snaps})
	require.NoError(t, s.Load(context.Background()))
	return s
}

func containsFilter(name, expr string, action models.FilterAction) models.Filter {
	return models.Filter{
		Name:   name,
		Action: action,
		Rules:  []models.Rule{{Position: 0, Mode: models.MatchContains, Expression: expr}},
	}
}

func TestEvaluate_FirstMatchWinsWithProbe(t *testing.T) {
	filters := []models.Filter{
		{NumericID: 1, Action: models.ActionToDownload,
			Rules: []models.Rule{{Position: 0, Mode: models.MatchContains, Expression: "example"}}},
		{NumericID: 2, Action: models.ActionToSkip,
			Rules: []models.Rule{{Position: models.AnyPosition, Mode: models.MatchAny}}},
	}
	tokens := []string{"example", "com", "a"}

	matched, evaluated := Evaluate(filters, tokens)
	require.NotNil(t, matched)
	assert.Equal(t, int64(1), matched.NumericID)
	assert.Equal(t, 1, evaluated, "the later filter must never be consulted")

	// Determinism: unchanged set and tokens always yield the same outcome.
	for i := 0; i < 5; i++ {
		again, n := Evaluate(filters, tokens)
		require.NotNil(t, again)
		assert.Equal(t, matched.NumericID, again.NumericID)
		assert.Equal(t, evaluated, n)
	}
}

func TestEvaluate_NoMatchConsultsWholeSet(t *testing.T) {
	filters := []models.Filter{
		{NumericID: 1, Action: models.ActionToSkip,
			Rules: []models.Rule{{Position: 0, Mode: models.MatchExactly, Expression: "nope"}}},
		{NumericID: 2, Action: models.ActionToSkip,
			Rules: []models.Rule{{Position: 0, Mode: models.MatchExactly, Expression: "also-nope"}}},
	}

	matched, evaluated := Evaluate(filters, []string{"example", "com"})
	assert.Nil(t, matched)
	assert.Equal(t, 2, evaluated)
}

func TestClassifier_MatchRecordsLink(t *testing.T) {
	ctx := context.Background()
	s := newClassifyStore(t)
	created, err := s.AddFilter(ctx, containsFilter("dl", "example", models.ActionToDownload))
	require.NoError(t, err)

	c := New(Config{Store: s})
	res, err := c.ClassifyURL(ctx, "http://example.com/a", models.SourceFile, "links/a.txt")
	require.NoError(t, err)

	assert.Equal(t, OutcomeClassified, res.Outcome)
	assert.Equal(t, models.StatusToDownload, res.Link.Status)
	require.NotNil(t, res.Link.FilterMatchedID)
	assert.Equal(t, created.NumericID, *res.Link.FilterMatchedID)
	assert.Equal(t, 1, res.Evaluated)

	stored, ok := s.Get("http://example.com/a")
	require.True(t, ok)
	assert.Equal(t, models.SourceFile, stored.Source)
	assert.Equal(t, "links/a.txt", stored.SourceFile)
}

func TestClassifier_AuthorSuppliesFilterThenReruns(t *testing.T) {
	ctx := context.Background()
	s := newClassifyStore(t)
	author := &scriptedAuthor{responses: []AuthorResponse{
		{Filter: containsFilter("fresh", "example", models.ActionToSkip)},
	}}

	c := New(Config{Store: s, Author: author})
	res, err := c.ClassifyURL(ctx, "http://example.com/b", models.SourceClipboard, "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeClassified, res.Outcome)
	assert.Equal(t, models.StatusToSkip, res.Link.Status)
	assert.Equal(t, 1, author.callCount())
	assert.Len(t, s.Filters(), 1, "the supplied filter joined the set")
}

func TestClassifier_AuthorCancelHaltsWithoutStoring(t *testing.T) {
	ctx := context.Background()
	s := newClassifyStore(t)
	author := &scriptedAuthor{}

	c := New(Config{Store: s, Author: author})
	res, err := c.ClassifyURL(ctx, "http://example.com/c", models.SourceFile, "links/c.txt")
	require.NoError(t, err)

	assert.Equal(t, OutcomeHalted, res.Outcome)
	_, ok := s.Get("http://example.com/c")
	assert.False(t, ok, "a canceled link never enters the store")
}

func TestClassifier_NilAuthorHalts(t *testing.T) {
	s := newClassifyStore(t)
	c := New(Config{Store: s})

	res, err := c.ClassifyURL(context.Background(), "http://example.com/d", models.SourceFile, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeHalted, res.Outcome)
}

func TestClassifier_TrimsTrailingClosers(t *testing.T) {
	ctx := context.Background()
	s := newClassifyStore(t)
	_, err := s.AddFilter(ctx, containsFilter("dl", "example", models.ActionToDownload))
	require.NoError(t, err)

	c := New(Config{Store: s, TrimClosers: true})
	res, err := c.ClassifyURL(ctx, "http://example.com/a)", models.SourceFile, "")
	require.NoError(t, err)

	assert.Equal(t, "http://example.com/a", res.Link.URL)
}

func TestClassifier_FilterDeletionThenReprocessScenario(t *testing.T) {
	ctx := context.Background()
	s := newClassifyStore(t)
	created, err := s.AddFilter(ctx, containsFilter("dl", "example", models.ActionToDownload))
	require.NoError(t, err)

	c := New(Config{Store: s})
	res, err := c.ClassifyURL(ctx, "http://example.com/a", models.SourceFile, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeClassified, res.Outcome)

	affected, err := s.DeleteFilter(ctx, created.NumericID)
	require.NoError(t, err)
	require.Equal(t, 1, affected)

	link, _ := s.Get("http://example.com/a")
	require.Equal(t, models.StatusToReprocess, link.Status)

	// Against the now-empty set, a silent pass leaves the bucket untouched.
	result, err := c.Reprocess(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Applied)
	assert.Equal(t, 1, result.Remaining)

	link, _ = s.Get("http://example.com/a")
	assert.Equal(t, models.StatusToReprocess, link.Status)
}

func TestClassifier_ReprocessAppliesNewFilters(t *testing.T) {
	ctx := context.Background()
	s := newClassifyStore(t)
	doomed, err := s.AddFilter(ctx, containsFilter("doomed", "example", models.ActionToDownload))
	require.NoError(t, err)

	c := New(Config{Store: s})
	_, err = c.ClassifyURL(ctx, "http://example.com/a", models.SourceFile, "")
	require.NoError(t, err)
	_, err = c.ClassifyURL(ctx, "http://example.com/b", models.SourceFile, "")
	require.NoError(t, err)

	_, err = s.DeleteFilter(ctx, doomed.NumericID)
	require.NoError(t, err)

	replacement, err := s.AddFilter(ctx, containsFilter("skip-all", "example", models.ActionToSkip))
	require.NoError(t, err)

	result, err := c.Reprocess(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Applied)
	assert.Equal(t, 0, result.Remaining)

	link, _ := s.Get("http://example.com/a")
	assert.Equal(t, models.StatusToSkip, link.Status)
	assert.Equal(t, replacement.NumericID, *link.FilterMatchedID)
}

func TestClassifier_ReprocessInteractiveCancelHalts(t *testing.T) {
	ctx := context.Background()
	s := newClassifyStore(t)
	doomed, err := s.AddFilter(ctx, containsFilter("doomed", "example", models.ActionToDownload))
	require.NoError(t, err)

	c := New(Config{Store: s})
	_, err = c.ClassifyURL(ctx, "http://example.com/a", models.SourceFile, "")
	require.NoError(t, err)
	_, err = c.ClassifyURL(ctx, "http://example.com/b", models.SourceFile, "")
	require.NoError(t, err)

	_, err = s.DeleteFilter(ctx, doomed.NumericID)
	require.NoError(t, err)

	canceling := &scriptedAuthor{}
	interactive := New(Config{Store: s, Author: canceling})
	result, err := interactive.Reprocess(ctx, true)
	require.NoError(t, err)

	assert.True(t, result.Halted)
	assert.Equal(t, 0, result.Applied)
	assert.Equal(t, 2, result.Remaining)
	assert.Equal(t, 1, canceling.callCount(), "the cancel stops the pass at the first unmatched link")
}
