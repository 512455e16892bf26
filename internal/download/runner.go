package download

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonp69/DL-Homework-Garden/internal/models"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

// linkQueue is the store capability the runner consumes.
type linkQueue interface {
	ClaimNext(ctx context.Context, high, low models.LinkStatus) (models.Link, bool, error)
	CompleteDownload(ctx context.Context, url string, items int, sizeMB float64) (models.Link, error)
	FailDownload(ctx context.Context, url, message string, terminal bool) (models.Link, error)
	SkipCurrent(ctx context.Context, url string) (models.Link, error)
	SkipForLimit(ctx context.Context, url, reason string, items int, sizeMB float64) (models.Link, error)
	ReleaseInFlight(ctx context.Context, url string) (models.Link, error)
}

// State is the runner's lifecycle phase.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StatePaused   State = "paused"
	StateStopping State = "stopping"
)

// RunTotals accumulates terminal outcomes over the current run.
type RunTotals struct {
	Completed    int `json:"completed"`
	Failed       int `json:"failed"`
	Skipped      int `json:"skipped"`
	LimitSkipped int `json:"limit_skipped"`
}

// ActiveDownload describes one in-flight slot.
type ActiveDownload struct {
	URL            string  `json:"url"`
	Items          int     `json:"items"`
	SizeMB         float64 `json:"size_mb"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Snapshot is a point-in-time view of the runner.
type Snapshot struct {
	State  State            `json:"state"`
	Active []ActiveDownload `json:"active"`
	Totals RunTotals        `json:"totals"`
}

// Config wires the runner's collaborators.
type Config struct {
	Store    linkQueue
	Executor Executor
	Decider  Decider
	Limits   Limits
	// Slots is the number of concurrent downloads, default 1.
	Slots int
	// MaxAttempts bounds retries per link within one run, default 3. The
	// failure that exhausts the budget parks the link as failed.
	MaxAttempts int
	// CheckInterval is the limit-poll cadence for live downloads, default 1s.
	CheckInterval time.Duration
	Logger        *zap.Logger
}

// Runner drains the two download tiers with a bounded pool of slots. Each
// slot claims a link, executes it under a limit monitor and records the
// terminal state; the run winds down to idle when both tiers are empty.
type Runner struct {
	store         linkQueue
	executor      Executor
	decider       Decider
	limits        Limits
	slots         int
	maxAttempts   int
	checkInterval time.Duration
	logger        *zap.Logger

	mu         sync.Mutex
	state      State
	runCtx     context.Context
	runCancel  context.CancelFunc
	runWG      *sync.WaitGroup
	resumeGate chan struct{}
	active     map[string]*slotState
	attempts   map[string]int
	totals     RunTotals
}

// NewRunner builds an idle runner.
func NewRunner(cfg Config) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Slots < 1 {
		cfg.Slots = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Second
	}
	return &Runner{
		store:         cfg.Store,
		executor:      cfg.Executor,
		decider:       cfg.Decider,
		limits:        cfg.Limits,
		slots:         cfg.Slots,
		maxAttempts:   cfg.MaxAttempts,
		checkInterval: cfg.CheckInterval,
		logger:        cfg.Logger,
		state:         StateIdle,
		active:        make(map[string]*slotState),
	}
}

// Start launches a new run. Only one run may be active at a time.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateIdle {
		return appErrors.Clone(appErrors.ErrConflict, "a download run is already active")
	}

	// The run outlives the request that started it.
	runCtx, cancel := context.WithCancel(context.Background())
	gate := make(chan struct{})
	close(gate)

	r.runCtx, r.runCancel = runCtx, cancel
	r.resumeGate = gate
	r.state = StateRunning
	r.totals = RunTotals{}
	r.attempts = make(map[string]int)

	wg := &sync.WaitGroup{}
	r.runWG = wg
	for i := 0; i < r.slots; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.slotLoop(runCtx)
		}()
	}
	go func() {
		wg.Wait()
		r.settle(runCtx)
	}()

	r.logger.Sugar().Infow("download run started", "slots", r.slots)
	return nil
}

// settle moves the runner back to idle once every slot of the given run has
// exited. Guarded by identity so a newer run is never touched.
func (r *Runner) settle(runCtx context.Context) {
	r.mu.Lock()
	if r.runCtx != runCtx || r.state == StateIdle {
		r.mu.Unlock()
		return
	}
	r.state = StateIdle
	totals := r.totals
	r.mu.Unlock()
	r.logger.Sugar().Infow("download run finished",
		"completed", totals.Completed, "failed", totals.Failed,
		"skipped", totals.Skipped, "limit_skipped", totals.LimitSkipped)
}

// Pause stops new claims; in-flight downloads run to completion.
func (r *Runner) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRunning {
		return appErrors.Clone(appErrors.ErrConflict, "no running download to pause")
	}
	r.state = StatePaused
	r.resumeGate = make(chan struct{})
	r.logger.Sugar().Infow("download run paused")
	return nil
}

// Resume reopens the claim gate after a pause.
func (r *Runner) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePaused {
		return appErrors.Clone(appErrors.ErrConflict, "download run is not paused")
	}
	close(r.resumeGate)
	r.state = StateRunning
	r.logger.Sugar().Infow("download run resumed")
	return nil
}

// Stop tears the run down: live downloads are aborted and their links
// returned to the download tier, open decision prompts are released. Stop
// blocks until every slot has wound down.
func (r *Runner) Stop() error {
	r.mu.Lock()
	if r.state == StateIdle {
		r.mu.Unlock()
		return nil
	}
	r.state = StateStopping
	cancel := r.runCancel
	wg := r.runWG
	runCtx := r.runCtx
	r.mu.Unlock()

	cancel()
	wg.Wait()
	r.settle(runCtx)
	return nil
}

// SkipCurrent aborts one in-flight download and parks its link in the skip
// tier. An empty url targets the single active download; with several slots
// busy the caller must name one.
func (r *Runner) SkipCurrent(url string) error {
	r.mu.Lock()
	var slot *slotState
	switch {
	case url != "":
		slot = r.active[url]
	case len(r.active) == 1:
		for _, s := range r.active {
			slot = s
		}
	case len(r.active) > 1:
		r.mu.Unlock()
		return appErrors.Clone(appErrors.ErrValidation, "several downloads are active, name the url to skip")
	}
	r.mu.Unlock()

	if slot == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "no matching download in flight")
	}
	slot.requestSkip()
	r.logger.Sugar().Infow("skip requested", "url", slot.url)
	return nil
}

// Status reports the runner state, the in-flight slots and the run totals.
func (r *Runner) Status() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := Snapshot{State: r.state, Totals: r.totals, Active: make([]ActiveDownload, 0, len(r.active))}
	for _, slot := range r.active {
		items, sizeMB := slot.progressSeen()
		snap.Active = append(snap.Active, ActiveDownload{
			URL:            slot.url,
			Items:          items,
			SizeMB:         sizeMB,
			ElapsedSeconds: time.Since(slot.started).Seconds(),
		})
	}
	sort.Slice(snap.Active, func(i, j int) bool { return snap.Active[i].URL < snap.Active[j].URL })
	return snap
}

func (r *Runner) slotLoop(ctx context.Context) {
	for {
		r.mu.Lock()
		gate := r.resumeGate
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			return
		case <-gate:
		}

		link, ok, err := r.store.ClaimNext(ctx, models.StatusToDownload, models.StatusToSkip)
		if err != nil {
			if ctx.Err() == nil {
				r.logger.Sugar().Errorw("claiming next link failed", "error", err)
			}
			return
		}
		if !ok {
			return
		}
		r.runOne(ctx, link)
	}
}

type execResult struct {
	out Outcome
	err error
}

func (r *Runner) runOne(runCtx context.Context, link models.Link) {
	dlCtx, cancel := context.WithCancel(runCtx)
	defer cancel()

	slot := &slotState{url: link.URL, started: time.Now(), cancel: cancel}
	r.trackSlot(slot)
	defer r.untrackSlot(slot)

	monitor := NewMonitor(link.URL, r.limits, r.decider)

	resCh := make(chan execResult, 1)
	go func() {
		out, err := r.executor.Download(dlCtx, link.URL, slot.observe)
		resCh <- execResult{out: out, err: err}
	}()

	ticker := time.NewTicker(r.checkInterval)
	defer ticker.Stop()

	var res execResult
poll:
	for {
		select {
		case res = <-resCh:
			break poll
		case <-ticker.C:
			// The prompt rides the download context so both a stop and a
			// skip-current release a suspended slot.
			items, sizeMB := slot.progressSeen()
			kind, skip, err := monitor.CheckProgress(dlCtx, time.Since(slot.started), items, sizeMB)
			if err != nil {
				cancel()
				res = <-resCh
				break poll
			}
			if skip {
				slot.markLimit(kind)
				cancel()
				res = <-resCh
				break poll
			}
		}
	}

	r.finish(runCtx, dlCtx, link, slot, monitor, res)
}

// finish records the terminal state for one download. Writes use a fresh
// context: the run context may already be canceled when a stop is the reason
// the download ended.
func (r *Runner) finish(runCtx, dlCtx context.Context, link models.Link, slot *slotState, monitor *Monitor, res execResult) {
	bg := context.Background()
	elapsed := time.Since(slot.started)
	items, _ := slot.progressSeen()
	if res.out.Items > items {
		items = res.out.Items
	}

	if kind := slot.limitKind(); kind != "" {
		if _, err := r.store.SkipForLimit(bg, link.URL, string(kind), items, res.out.SizeMB); err != nil {
			r.logger.Sugar().Errorw("recording limit skip failed", "url", link.URL, "error", err)
			return
		}
		r.addTotals(func(t *RunTotals) { t.LimitSkipped++ })
		r.logger.Sugar().Infow("download skipped on limit", "url", link.URL, "limit", kind, "items", items)
		return
	}

	if slot.skipRequested() {
		if _, err := r.store.SkipCurrent(bg, link.URL); err != nil {
			r.logger.Sugar().Errorw("recording skip failed", "url", link.URL, "error", err)
			return
		}
		r.addTotals(func(t *RunTotals) { t.Skipped++ })
		r.logger.Sugar().Infow("download skipped", "url", link.URL)
		return
	}

	if res.err != nil {
		if runCtx.Err() != nil {
			r.release(bg, link.URL)
			return
		}
		r.mu.Lock()
		r.attempts[link.URL]++
		attempt := r.attempts[link.URL]
		r.mu.Unlock()
		terminal := attempt >= r.maxAttempts
		if _, err := r.store.FailDownload(bg, link.URL, res.err.Error(), terminal); err != nil {
			r.logger.Sugar().Errorw("recording failure failed", "url", link.URL, "error", err)
			return
		}
		if terminal {
			r.addTotals(func(t *RunTotals) { t.Failed++ })
			r.logger.Sugar().Warnw("download failed permanently", "url", link.URL, "attempts", attempt, "error", res.err)
		} else {
			r.logger.Sugar().Warnw("download attempt failed, requeued", "url", link.URL, "attempt", attempt, "error", res.err)
		}
		return
	}

	kind, skip, err := monitor.CheckOutcome(dlCtx, res.out, elapsed)
	if err != nil {
		// The outcome prompt was interrupted; no decision is ever assumed.
		if slot.skipRequested() {
			if _, serr := r.store.SkipCurrent(bg, link.URL); serr != nil {
				r.logger.Sugar().Errorw("recording skip failed", "url", link.URL, "error", serr)
				return
			}
			r.addTotals(func(t *RunTotals) { t.Skipped++ })
			return
		}
		r.release(bg, link.URL)
		return
	}
	if skip {
		if _, err := r.store.SkipForLimit(bg, link.URL, string(kind), res.out.Items, res.out.SizeMB); err != nil {
			r.logger.Sugar().Errorw("recording limit skip failed", "url", link.URL, "error", err)
			return
		}
		r.addTotals(func(t *RunTotals) { t.LimitSkipped++ })
		r.logger.Sugar().Infow("download skipped on limit", "url", link.URL, "limit", kind, "items", res.out.Items)
		return
	}

	if _, err := r.store.CompleteDownload(bg, link.URL, res.out.Items, res.out.SizeMB); err != nil {
		r.logger.Sugar().Errorw("recording completion failed", "url", link.URL, "error", err)
		return
	}
	r.mu.Lock()
	delete(r.attempts, link.URL)
	r.mu.Unlock()
	r.addTotals(func(t *RunTotals) { t.Completed++ })
	r.logger.Sugar().Infow("download completed", "url", link.URL, "items", res.out.Items, "size_mb", res.out.SizeMB)
}

func (r *Runner) release(ctx context.Context, url string) {
	if _, err := r.store.ReleaseInFlight(ctx, url); err != nil {
		r.logger.Sugar().Errorw("releasing interrupted link failed", "url", url, "error", err)
		return
	}
	r.logger.Sugar().Infow("download interrupted, link released", "url", url)
}

func (r *Runner) trackSlot(slot *slotState) {
	r.mu.Lock()
	r.active[slot.url] = slot
	r.mu.Unlock()
}

func (r *Runner) untrackSlot(slot *slotState) {
	r.mu.Lock()
	delete(r.active, slot.url)
	r.mu.Unlock()
}

func (r *Runner) addTotals(apply func(*RunTotals)) {
	r.mu.Lock()
	apply(&r.totals)
	r.mu.Unlock()
}

// slotState tracks one in-flight download. The counters are monotone:
// progress callbacks may arrive from any goroutine and out of order.
type slotState struct {
	url     string
	started time.Time
	cancel  context.CancelFunc

	mu     sync.Mutex
	items  int
	sizeMB float64
	skip   bool
	limit  LimitKind
}

func (s *slotState) observe(p ProgressSample) {
	s.mu.Lock()
	if p.Items > s.items {
		s.items = p.Items
	}
	if p.SizeMB > s.sizeMB {
		s.sizeMB = p.SizeMB
	}
	s.mu.Unlock()
}

func (s *slotState) progressSeen() (int, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items, s.sizeMB
}

func (s *slotState) requestSkip() {
	s.mu.Lock()
	s.skip = true
	s.mu.Unlock()
	s.cancel()
}

func (s *slotState) skipRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skip
}

func (s *slotState) markLimit(kind LimitKind) {
	s.mu.Lock()
	s.limit = kind
	s.mu.Unlock()
}

func (s *slotState) limitKind() LimitKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limit
}
