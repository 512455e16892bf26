// Package download drives the two-tier download pipeline: bounded worker
// slots claiming links from the store, limit monitoring with operator
// decisions, live controls, and an independent override lane for retrying
// parked links.
package download

import "context"

// ProgressSample is one observation of an in-flight download. Both counters
// are cumulative for the download so far.
type ProgressSample struct {
	Items  int
	SizeMB float64
}

// Outcome is the terminal report of one download execution.
type Outcome struct {
	Items  int
	SizeMB float64
}

// Executor runs the external download tool for one URL. Implementations
// must honour ctx cancellation by aborting the external work and returning
// promptly; progress may be called from any goroutine.
type Executor interface {
	Download(ctx context.Context, url string, progress func(ProgressSample)) (Outcome, error)
}
