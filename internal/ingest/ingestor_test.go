package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonp69/DL-Homework-Garden/internal/classify"
	"github.com/jonp69/DL-Homework-Garden/internal/models"
	"github.com/jonp69/DL-Homework-Garden/internal/repository"
	"github.com/jonp69/DL-Homework-Garden/internal/store"
	"github.com/jonp69/DL-Homework-Garden/pkg/storage"
)

type harness struct {
	store    *store.Store
	ingestor *Ingestor
	captures *storage.LocalStorage
}

func newHarness(t *testing.T, author classify.Author) *harness {
	t.Helper()
	snaps, err := repository.NewFileSnapshots(t.TempDir())
	require.NoError(t, err)
	st := store.New(store.Config{Snapshots: snaps})
	require.NoError(t, st.Load(context.Background()))

	captures, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	classifier := classify.New(classify.Config{Store: st, Author: author, TrimClosers: true})
	ing := New(Config{Store: st, Classifier: classifier, Captures: captures})
	return &harness{store: st, ingestor: ing, captures: captures}
}

func addContainsFilter(t *testing.T, st *store.Store, expr string, action models.FilterAction) models.Filter {
	t.Helper()
	f, err := st.AddFilter(context.Background(), models.Filter{
		Name:   expr,
		Action: action,
		Rules:  []models.Rule{{Position: 0, Mode: models.MatchContains, Expression: expr}},
	})
	require.NoError(t, err)
	return f
}

type cancelingAuthor struct{ calls int }

func (a *cancelingAuthor) RequestNewFilter(context.Context, classify.AuthorRequest) (classify.AuthorResponse, error) {
	a.calls++
	return classify.AuthorResponse{Cancel: true}, nil
}

func TestIngestor_ProcessFileClassifiesAllLinks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	addContainsFilter(t, h.store, "example", models.ActionToDownload)

	path := writeTemp(t, "links.txt", []byte("https://example.com/1\nhttps://example.com/2\n"))
	report, err := h.ingestor.ProcessFile(ctx, path, false)
	require.NoError(t, err)

	assert.Equal(t, models.BatchProcessed, report.Status)
	assert.Equal(t, 2, report.LinksFound)
	assert.Equal(t, 2, report.Classified)
	assert.Equal(t, 2, h.store.Stats().Total)

	abs, _ := filepath.Abs(path)
	batch, ok := h.store.BatchByPath(abs)
	require.True(t, ok)
	assert.Equal(t, models.BatchProcessed, batch.Status)
	assert.Equal(t, 2, batch.LinksFound)
	assert.Positive(t, batch.SizeBytes)
}

func TestIngestor_ProcessedFileSkippedUntilForced(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	addContainsFilter(t, h.store, "example", models.ActionToSkip)

	path := writeTemp(t, "links.txt", []byte("https://example.com/1\n"))
	_, err := h.ingestor.ProcessFile(ctx, path, false)
	require.NoError(t, err)

	report, err := h.ingestor.ProcessFile(ctx, path, false)
	require.NoError(t, err)
	assert.True(t, report.Skipped)

	report, err = h.ingestor.ProcessFile(ctx, path, true)
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, models.BatchProcessed, report.Status)
}

func TestIngestor_NoMatchCancelHaltsBatch(t *testing.T) {
	ctx := context.Background()
	author := &cancelingAuthor{}
	h := newHarness(t, author)
	addContainsFilter(t, h.store, "example", models.ActionToDownload)

	path := writeTemp(t, "mixed.txt", []byte("https://example.com/known\nhttps://other.net/unknown\nhttps://example.com/never-reached\n"))
	report, err := h.ingestor.ProcessFile(ctx, path, false)
	require.NoError(t, err)

	assert.Equal(t, models.BatchProcessedHalted, report.Status)
	assert.Equal(t, 1, report.Classified, "links before the halt are kept")
	assert.Equal(t, 1, author.calls)

	_, ok := h.store.Get("https://example.com/known")
	assert.True(t, ok)
	_, ok = h.store.Get("https://other.net/unknown")
	assert.False(t, ok, "the canceled link never enters the store")
	_, ok = h.store.Get("https://example.com/never-reached")
	assert.False(t, ok, "entries after the halt are not processed")
}

func TestIngestor_HaltedBatchResumes(t *testing.T) {
	ctx := context.Background()
	author := &cancelingAuthor{}
	h := newHarness(t, author)
	addContainsFilter(t, h.store, "example", models.ActionToDownload)

	path := writeTemp(t, "resume.txt", []byte("https://example.com/a\nhttps://other.net/b\n"))
	report, err := h.ingestor.ProcessFile(ctx, path, false)
	require.NoError(t, err)
	require.Equal(t, models.BatchProcessedHalted, report.Status)

	// Once a covering filter exists the halted batch finishes on resume.
	addContainsFilter(t, h.store, "other", models.ActionToSkip)
	reports, err := h.ingestor.ResumeHalted(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, models.BatchProcessed, reports[0].Status)

	link, ok := h.store.Get("https://other.net/b")
	require.True(t, ok)
	assert.Equal(t, models.StatusToSkip, link.Status)
}

func TestIngestor_UnreadableFileRecordsError(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	missing := filepath.Join(t.TempDir(), "missing.txt")
	report, err := h.ingestor.ProcessFile(ctx, missing, false)
	require.Error(t, err)
	assert.Equal(t, models.BatchError, report.Status)

	abs, _ := filepath.Abs(missing)
	batch, ok := h.store.BatchByPath(abs)
	require.True(t, ok)
	assert.Equal(t, models.BatchError, batch.Status)
}

func TestIngestor_ClipboardSavedVerbatimBeforeProcessing(t *testing.T) {
	ctx := context.Background()
	author := &cancelingAuthor{}
	h := newHarness(t, author)
	addContainsFilter(t, h.store, "example", models.ActionToDownload)

	content := "first https://example.com/ok then https://other.net/prompted trailing text"
	report, err := h.ingestor.ProcessClipboard(ctx, content)
	require.NoError(t, err)

	// The capture exists verbatim even though the batch halted.
	assert.Equal(t, models.BatchProcessedHalted, report.Status)
	base := filepath.Base(report.Path)
	assert.True(t, strings.HasPrefix(base, "Clipboard_"), "capture file name: %s", base)
	assert.True(t, strings.HasSuffix(base, ".txt"))

	saved, err := os.ReadFile(report.Path)
	require.NoError(t, err)
	assert.Equal(t, content, string(saved))

	link, ok := h.store.Get("https://example.com/ok")
	require.True(t, ok)
	assert.Equal(t, models.SourceClipboard, link.Source)
	assert.Equal(t, report.Path, link.SourceFile)

	batch, ok := h.store.BatchByPath(report.Path)
	require.True(t, ok)
	assert.Equal(t, models.SourceClipboard, batch.Source)
}

func TestIngestor_ScanDirectoryProcessesTree(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	addContainsFilter(t, h.store, "example", models.ActionToDownload)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.txt"), []byte("https://example.com/1"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "two.txt"), []byte("https://example.com/2"), 0o644))

	reports, err := h.ingestor.ScanDirectory(ctx, dir)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
	assert.Equal(t, 2, h.store.Stats().Total)

	// A second scan finds nothing new.
	reports, err = h.ingestor.ScanDirectory(ctx, dir)
	require.NoError(t, err)
	assert.Empty(t, reports)
}
