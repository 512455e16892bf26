package download

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

// Decision is the operator's answer to a limit prompt.
type Decision string

const (
	// DecisionContinue lets the download run on; the monitor stays quiet
	// for the rest of that download.
	DecisionContinue Decision = "continue"
	// DecisionSkip aborts the download and parks the link as to_skip_limit.
	DecisionSkip Decision = "skip"
)

// Valid reports whether d is a known decision value.
func (d Decision) Valid() bool {
	return d == DecisionContinue || d == DecisionSkip
}

// LimitKind names the threshold that fired. The value is persisted as the
// link's limit_reason.
type LimitKind string

const (
	LimitTimeout   LimitKind = "timeout"
	LimitItemCount LimitKind = "item_count"
	LimitFileSize  LimitKind = "file_size"
)

// DecisionPrompt carries the context an operator needs to decide. Threshold
// is the configured limit that fired, in the unit of Kind: items, seconds,
// or megabytes.
type DecisionPrompt struct {
	URL       string
	Kind      LimitKind
	Items     int
	Elapsed   time.Duration
	SizeMB    float64
	Threshold float64
}

// Decider is the decision-prompt capability consumed by the limit monitor.
// Ask blocks the calling worker until a decision arrives or ctx is done.
type Decider interface {
	Ask(ctx context.Context, prompt DecisionPrompt) (Decision, error)
}

// PendingDecision is the externally visible view of one open prompt.
type PendingDecision struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	Kind           LimitKind `json:"kind"`
	Items          int       `json:"items"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	SizeMB         float64   `json:"size_mb"`
	Threshold      float64   `json:"threshold"`
	CreatedAt      time.Time `json:"created_at"`
}

type decisionEntry struct {
	view  PendingDecision
	reply chan Decision
}

// DecisionBroker implements Decider as a request/response exchange: the
// suspended worker waits on a reply channel while operators list and answer
// prompts from the API. There is no default answer; an unanswered prompt
// blocks its slot until resolved or the run is torn down.
type DecisionBroker struct {
	mu      sync.Mutex
	pending map[string]*decisionEntry
	logger  *zap.Logger
}

// NewDecisionBroker builds an empty broker.
func NewDecisionBroker(logger *zap.Logger) *DecisionBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecisionBroker{pending: make(map[string]*decisionEntry), logger: logger}
}

// Ask registers the prompt and blocks until Resolve answers it.
func (b *DecisionBroker) Ask(ctx context.Context, prompt DecisionPrompt) (Decision, error) {
	entry := &decisionEntry{
		view: PendingDecision{
			ID:             uuid.NewString(),
			URL:            prompt.URL,
			Kind:           prompt.Kind,
			Items:          prompt.Items,
			ElapsedSeconds: prompt.Elapsed.Seconds(),
			SizeMB:         prompt.SizeMB,
			Threshold:      prompt.Threshold,
			CreatedAt:      time.Now().UTC(),
		},
		reply: make(chan Decision, 1),
	}

	b.mu.Lock()
	b.pending[entry.view.ID] = entry
	b.mu.Unlock()
	b.logger.Sugar().Infow("limit decision requested",
		"decision_id", entry.view.ID, "url", prompt.URL, "kind", prompt.Kind, "items", prompt.Items)

	defer func() {
		b.mu.Lock()
		delete(b.pending, entry.view.ID)
		b.mu.Unlock()
	}()

	select {
	case d := <-entry.reply:
		return d, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Pending lists open prompts, oldest first.
func (b *DecisionBroker) Pending() []PendingDecision {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]PendingDecision, 0, len(b.pending))
	for _, entry := range b.pending {
		out = append(out, entry.view)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// PendingCount reports how many prompts are waiting. Feeds the decision
// depth gauge.
func (b *DecisionBroker) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Resolve answers an open prompt.
func (b *DecisionBroker) Resolve(id string, d Decision) error {
	if !d.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "decision must be continue or skip")
	}

	b.mu.Lock()
	entry, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	b.mu.Unlock()

	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "decision request not found")
	}
	entry.reply <- d
	return nil
}
