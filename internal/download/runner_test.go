package download

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonp69/DL-Homework-Garden/internal/models"
	"github.com/jonp69/DL-Homework-Garden/internal/repository"
	"github.com/jonp69/DL-Homework-Garden/internal/store"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

// scriptedExecutor records claim order and delegates each call to run. The
// call argument counts invocations per url, starting at 1.
type scriptedExecutor struct {
	mu    sync.Mutex
	calls []string
	run   func(ctx context.Context, call int, url string, progress func(ProgressSample)) (Outcome, error)
}

func (e *scriptedExecutor) Download(ctx context.Context, url string, progress func(ProgressSample)) (Outcome, error) {
	e.mu.Lock()
	e.calls = append(e.calls, url)
	call := 0
	for _, c := range e.calls {
		if c == url {
			call++
		}
	}
	e.mu.Unlock()
	return e.run(ctx, call, url, progress)
}

func (e *scriptedExecutor) callList() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func newRunnerStore(t *testing.T) *store.Store {
	t.Helper()
	snaps, err := repository.NewFileSnapshots(t.TempDir())
	require.NoError(t, err)
	s := store.New(store.Config{Snapshots: snaps})
	require.NoError(t, s.Load(context.Background()))
	return s
}

func seedLink(t *testing.T, s *store.Store, url string, action models.FilterAction) {
	t.Helper()
	id := int64(1)
	_, err := s.ApplyClassification(context.Background(), url, store.Classification{
		Action: action, FilterID: &id, Source: models.SourceFile, SourceFile: "links.txt",
	})
	require.NoError(t, err)
}

func mustGet(t *testing.T, s *store.Store, url string) models.Link {
	t.Helper()
	link, ok := s.Get(url)
	require.True(t, ok, "link %s missing", url)
	return link
}

func waitStatus(t *testing.T, s *store.Store, url string, status models.LinkStatus) models.Link {
	t.Helper()
	require.Eventually(t, func() bool {
		link, ok := s.Get(url)
		return ok && link.Status == status
	}, 3*time.Second, 5*time.Millisecond, "link %s never reached %s", url, status)
	return mustGet(t, s, url)
}

func waitState(t *testing.T, r *Runner, state State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return r.Status().State == state
	}, 3*time.Second, 5*time.Millisecond, "runner never reached %s", state)
}

func waitCalls(t *testing.T, exec *scriptedExecutor, want ...string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return slices.Equal(exec.callList(), want)
	}, 3*time.Second, 5*time.Millisecond, "claim order never became %v, got %v", want, exec.callList())
}

func TestRunner_DownloadTierDrainsBeforeSkipTier(t *testing.T) {
	const (
		urlA = "https://example.com/a"
		urlB = "https://example.com/b"
		urlC = "https://example.com/c"
	)
	s := newRunnerStore(t)
	seedLink(t, s, urlA, models.ActionToSkip)
	seedLink(t, s, urlB, models.ActionToDownload)

	release := map[string]chan struct{}{
		urlA: make(chan struct{}),
		urlB: make(chan struct{}),
		urlC: make(chan struct{}),
	}
	exec := &scriptedExecutor{run: func(_ context.Context, _ int, url string, _ func(ProgressSample)) (Outcome, error) {
		<-release[url]
		return Outcome{Items: 1, SizeMB: 0.5}, nil
	}}
	r := NewRunner(Config{Store: s, Executor: exec, CheckInterval: 5 * time.Millisecond})
	require.NoError(t, r.Start())

	// B outranks the older A: the download tier comes first.
	waitCalls(t, exec, urlB)

	// C arrives while B is in flight and must still beat the waiting A.
	seedLink(t, s, urlC, models.ActionToDownload)
	close(release[urlB])
	waitCalls(t, exec, urlB, urlC)
	close(release[urlC])
	waitCalls(t, exec, urlB, urlC, urlA)
	close(release[urlA])

	waitState(t, r, StateIdle)
	for _, url := range []string{urlA, urlB, urlC} {
		assert.Equal(t, models.StatusDownloaded, mustGet(t, s, url).Status)
	}
	assert.Equal(t, 3, r.Status().Totals.Completed)
}

func TestRunner_RetriesBoundedThenFailed(t *testing.T) {
	const url = "https://example.com/b"
	s := newRunnerStore(t)
	seedLink(t, s, url, models.ActionToDownload)

	exec := &scriptedExecutor{run: func(_ context.Context, _ int, _ string, _ func(ProgressSample)) (Outcome, error) {
		return Outcome{}, errors.New("extractor crashed")
	}}
	r := NewRunner(Config{Store: s, Executor: exec, MaxAttempts: 2, CheckInterval: 5 * time.Millisecond})
	require.NoError(t, r.Start())

	link := waitStatus(t, s, url, models.StatusFailed)
	require.NotNil(t, link.ErrorMessage)
	assert.Contains(t, *link.ErrorMessage, "extractor crashed")

	waitState(t, r, StateIdle)
	assert.Len(t, exec.callList(), 2, "retry budget must bound the attempts")
	assert.Equal(t, 1, r.Status().Totals.Failed)
}

func TestRunner_LimitPromptSuspendsWithoutAdvancing(t *testing.T) {
	const (
		urlB = "https://example.com/b"
		urlC = "https://example.com/c"
	)
	s := newRunnerStore(t)
	seedLink(t, s, urlB, models.ActionToDownload)
	seedLink(t, s, urlC, models.ActionToDownload)

	broker := NewDecisionBroker(nil)
	exec := &scriptedExecutor{run: func(ctx context.Context, _ int, _ string, progress func(ProgressSample)) (Outcome, error) {
		progress(ProgressSample{Items: 5})
		<-ctx.Done()
		return Outcome{}, ctx.Err()
	}}
	r := NewRunner(Config{
		Store: s, Executor: exec, Decider: broker,
		Limits:        Limits{MaxItems: 3},
		CheckInterval: 5 * time.Millisecond,
	})
	require.NoError(t, r.Start())

	require.Eventually(t, func() bool { return len(broker.Pending()) == 1 }, 3*time.Second, 5*time.Millisecond)
	prompt := broker.Pending()[0]
	assert.Equal(t, urlB, prompt.URL)
	assert.Equal(t, LimitItemCount, prompt.Kind)
	assert.Equal(t, 5, prompt.Items)

	// The suspended slot must not move on while the prompt is open.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{urlB}, exec.callList())

	require.NoError(t, broker.Resolve(prompt.ID, DecisionSkip))
	link := waitStatus(t, s, urlB, models.StatusToSkipLimit)
	require.NotNil(t, link.LimitReason)
	assert.Equal(t, string(LimitItemCount), *link.LimitReason)
	assert.Equal(t, 5, link.ItemsCount)

	// The freed slot picks up C, which trips the same limit.
	require.Eventually(t, func() bool {
		pending := broker.Pending()
		return len(pending) == 1 && pending[0].URL == urlC
	}, 3*time.Second, 5*time.Millisecond)
	require.NoError(t, broker.Resolve(broker.Pending()[0].ID, DecisionSkip))
	waitStatus(t, s, urlC, models.StatusToSkipLimit)

	waitState(t, r, StateIdle)
	assert.Equal(t, 2, r.Status().Totals.LimitSkipped)
}

func TestRunner_ContinueSilencesMonitorForDownload(t *testing.T) {
	const url = "https://example.com/b"
	s := newRunnerStore(t)
	seedLink(t, s, url, models.ActionToDownload)

	broker := NewDecisionBroker(nil)
	gate := make(chan struct{})
	exec := &scriptedExecutor{run: func(ctx context.Context, _ int, _ string, progress func(ProgressSample)) (Outcome, error) {
		progress(ProgressSample{Items: 3})
		select {
		case <-gate:
			return Outcome{Items: 5, SizeMB: 1.2}, nil
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		}
	}}
	r := NewRunner(Config{
		Store: s, Executor: exec, Decider: broker,
		Limits:        Limits{MaxItems: 2},
		CheckInterval: 5 * time.Millisecond,
	})
	require.NoError(t, r.Start())

	require.Eventually(t, func() bool { return len(broker.Pending()) == 1 }, 3*time.Second, 5*time.Millisecond)
	require.NoError(t, broker.Resolve(broker.Pending()[0].ID, DecisionContinue))
	close(gate)

	// The outcome still exceeds the item limit, but continue covers the
	// whole download.
	link := waitStatus(t, s, url, models.StatusDownloaded)
	assert.Equal(t, 5, link.ItemsCount)
	assert.InDelta(t, 1.2, link.SizeMB, 0.001)

	waitState(t, r, StateIdle)
	assert.Equal(t, 1, r.Status().Totals.Completed)
	assert.Empty(t, broker.Pending())
}

func TestRunner_PauseHoldsClaimsUntilResume(t *testing.T) {
	const (
		urlB = "https://example.com/b"
		urlC = "https://example.com/c"
	)
	s := newRunnerStore(t)
	seedLink(t, s, urlB, models.ActionToDownload)
	seedLink(t, s, urlC, models.ActionToDownload)

	release := map[string]chan struct{}{
		urlB: make(chan struct{}),
		urlC: make(chan struct{}),
	}
	exec := &scriptedExecutor{run: func(_ context.Context, _ int, url string, _ func(ProgressSample)) (Outcome, error) {
		<-release[url]
		return Outcome{Items: 1, SizeMB: 0.1}, nil
	}}
	r := NewRunner(Config{Store: s, Executor: exec, CheckInterval: 5 * time.Millisecond})
	require.NoError(t, r.Start())
	waitCalls(t, exec, urlB)

	require.NoError(t, r.Pause())
	close(release[urlB])

	// The in-flight download finishes, but no new claim happens.
	waitStatus(t, s, urlB, models.StatusDownloaded)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{urlB}, exec.callList())
	assert.Equal(t, StatePaused, r.Status().State)

	require.NoError(t, r.Resume())
	waitCalls(t, exec, urlB, urlC)
	close(release[urlC])
	waitStatus(t, s, urlC, models.StatusDownloaded)
	waitState(t, r, StateIdle)

	err := r.Pause()
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRunner_StopReleasesInFlightLink(t *testing.T) {
	const url = "https://example.com/b"
	s := newRunnerStore(t)
	seedLink(t, s, url, models.ActionToDownload)

	exec := &scriptedExecutor{run: func(ctx context.Context, _ int, _ string, _ func(ProgressSample)) (Outcome, error) {
		<-ctx.Done()
		return Outcome{}, ctx.Err()
	}}
	r := NewRunner(Config{Store: s, Executor: exec, CheckInterval: 5 * time.Millisecond})
	require.NoError(t, r.Start())
	waitCalls(t, exec, url)
	waitStatus(t, s, url, models.StatusDownloading)

	require.NoError(t, r.Stop())
	link := mustGet(t, s, url)
	assert.Equal(t, models.StatusToDownload, link.Status, "an aborted download is not a failure")
	assert.Nil(t, link.ErrorMessage)
	assert.Equal(t, StateIdle, r.Status().State)
	assert.Equal(t, RunTotals{}, r.Status().Totals)

	// Stopping an idle runner is a no-op, and a new run picks the link back up.
	require.NoError(t, r.Stop())
	require.NoError(t, r.Start())
	waitCalls(t, exec, url, url)
	require.NoError(t, r.Stop())
}

func TestRunner_SkipCurrentParksThenLowTierRetries(t *testing.T) {
	const url = "https://example.com/b"
	s := newRunnerStore(t)
	seedLink(t, s, url, models.ActionToDownload)

	exec := &scriptedExecutor{run: func(ctx context.Context, call int, _ string, _ func(ProgressSample)) (Outcome, error) {
		if call == 1 {
			<-ctx.Done()
			return Outcome{}, ctx.Err()
		}
		return Outcome{Items: 1, SizeMB: 0.2}, nil
	}}
	r := NewRunner(Config{Store: s, Executor: exec, CheckInterval: 5 * time.Millisecond})
	require.NoError(t, r.Start())
	waitCalls(t, exec, url)

	require.NoError(t, r.SkipCurrent(""))

	// The skipped link lands in the low tier, and the same run claims it
	// back once the download tier is empty.
	link := waitStatus(t, s, url, models.StatusDownloaded)
	assert.Equal(t, 1, link.ItemsCount)
	waitState(t, r, StateIdle)
	assert.Equal(t, []string{url, url}, exec.callList())
	assert.Equal(t, 1, r.Status().Totals.Skipped)
	assert.Equal(t, 1, r.Status().Totals.Completed)

	err := r.SkipCurrent("")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRunner_SizeLimitPromptsAtOutcome(t *testing.T) {
	const url = "https://example.com/b"
	s := newRunnerStore(t)
	seedLink(t, s, url, models.ActionToDownload)

	broker := NewDecisionBroker(nil)
	exec := &scriptedExecutor{run: func(_ context.Context, _ int, _ string, _ func(ProgressSample)) (Outcome, error) {
		return Outcome{Items: 2, SizeMB: 25}, nil
	}}
	r := NewRunner(Config{
		Store: s, Executor: exec, Decider: broker,
		Limits:        Limits{MaxSizeMB: 10},
		CheckInterval: 5 * time.Millisecond,
	})
	require.NoError(t, r.Start())

	require.Eventually(t, func() bool { return len(broker.Pending()) == 1 }, 3*time.Second, 5*time.Millisecond)
	prompt := broker.Pending()[0]
	assert.Equal(t, LimitFileSize, prompt.Kind)
	assert.InDelta(t, 25, prompt.SizeMB, 0.001)
	require.NoError(t, broker.Resolve(prompt.ID, DecisionSkip))

	link := waitStatus(t, s, url, models.StatusToSkipLimit)
	require.NotNil(t, link.LimitReason)
	assert.Equal(t, string(LimitFileSize), *link.LimitReason)
	assert.Equal(t, 2, link.ItemsCount)
	assert.InDelta(t, 25, link.SizeMB, 0.001)

	waitState(t, r, StateIdle)
	assert.Equal(t, 1, r.Status().Totals.LimitSkipped)
}

func TestRunner_StartWhileActiveConflicts(t *testing.T) {
	const url = "https://example.com/b"
	s := newRunnerStore(t)
	seedLink(t, s, url, models.ActionToDownload)

	exec := &scriptedExecutor{run: func(ctx context.Context, _ int, _ string, _ func(ProgressSample)) (Outcome, error) {
		<-ctx.Done()
		return Outcome{}, ctx.Err()
	}}
	r := NewRunner(Config{Store: s, Executor: exec, CheckInterval: 5 * time.Millisecond})
	require.NoError(t, r.Start())
	waitCalls(t, exec, url)

	err := r.Start()
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	snap := r.Status()
	assert.Equal(t, StateRunning, snap.State)
	require.Len(t, snap.Active, 1)
	assert.Equal(t, url, snap.Active[0].URL)

	require.NoError(t, r.Stop())
}
