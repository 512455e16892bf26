package download

import (
	"context"
	"time"
)

// Limits holds the monitored thresholds. A zero value disables that check.
type Limits struct {
	MaxItems  int
	MaxTime   time.Duration
	MaxSizeMB float64
}

// Monitor watches one download against the configured limits. Crossing a
// threshold suspends the worker on a decision prompt; answering continue
// silences the monitor for the remainder of that download, answering skip
// aborts it. A Monitor is owned by a single worker and is not safe for
// concurrent use.
type Monitor struct {
	url      string
	limits   Limits
	decider  Decider
	silenced bool
}

// NewMonitor builds a monitor for one download. A nil decider disables
// prompting entirely.
func NewMonitor(url string, limits Limits, decider Decider) *Monitor {
	return &Monitor{url: url, limits: limits, decider: decider}
}

// CheckProgress evaluates the live limits, elapsed time then item count
// then downloaded size, against an in-flight download. It returns the limit
// that should park the link when the operator answers skip. The error is
// non-nil only when ctx ends while the prompt is open.
func (m *Monitor) CheckProgress(ctx context.Context, elapsed time.Duration, items int, sizeMB float64) (LimitKind, bool, error) {
	if m.decider == nil || m.silenced {
		return "", false, nil
	}
	if m.limits.MaxTime > 0 && elapsed >= m.limits.MaxTime {
		return m.ask(ctx, DecisionPrompt{URL: m.url, Kind: LimitTimeout, Items: items, Elapsed: elapsed, SizeMB: sizeMB, Threshold: m.limits.MaxTime.Seconds()})
	}
	if m.limits.MaxItems > 0 && items >= m.limits.MaxItems {
		return m.ask(ctx, DecisionPrompt{URL: m.url, Kind: LimitItemCount, Items: items, Elapsed: elapsed, SizeMB: sizeMB, Threshold: float64(m.limits.MaxItems)})
	}
	if m.limits.MaxSizeMB > 0 && sizeMB >= m.limits.MaxSizeMB {
		return m.ask(ctx, DecisionPrompt{URL: m.url, Kind: LimitFileSize, Items: items, Elapsed: elapsed, SizeMB: sizeMB, Threshold: m.limits.MaxSizeMB})
	}
	return "", false, nil
}

// CheckOutcome re-evaluates the item and size limits against the
// downloader's final totals, which can exceed the last live sample when the
// tool flushes its report at exit.
func (m *Monitor) CheckOutcome(ctx context.Context, out Outcome, elapsed time.Duration) (LimitKind, bool, error) {
	if m.decider == nil || m.silenced {
		return "", false, nil
	}
	if m.limits.MaxItems > 0 && out.Items >= m.limits.MaxItems {
		return m.ask(ctx, DecisionPrompt{URL: m.url, Kind: LimitItemCount, Items: out.Items, Elapsed: elapsed, SizeMB: out.SizeMB, Threshold: float64(m.limits.MaxItems)})
	}
	if m.limits.MaxSizeMB > 0 && out.SizeMB >= m.limits.MaxSizeMB {
		return m.ask(ctx, DecisionPrompt{URL: m.url, Kind: LimitFileSize, Items: out.Items, Elapsed: elapsed, SizeMB: out.SizeMB, Threshold: m.limits.MaxSizeMB})
	}
	return "", false, nil
}

func (m *Monitor) ask(ctx context.Context, prompt DecisionPrompt) (LimitKind, bool, error) {
	d, err := m.decider.Ask(ctx, prompt)
	if err != nil {
		return "", false, err
	}
	if d == DecisionContinue {
		m.silenced = true
		return "", false, nil
	}
	return prompt.Kind, true, nil
}
