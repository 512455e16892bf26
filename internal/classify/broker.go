package classify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

// PendingRequest is the externally visible view of one authoring request
// waiting for an operator.
type PendingRequest struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Tokens    []string  `json:"tokens"`
	CreatedAt time.Time `json:"created_at"`
}

type pendingEntry struct {
	view  PendingRequest
	reply chan AuthorResponse
}

// Broker implements Author as a request/response exchange. A classifying
// worker suspends on its reply channel while operators list and resolve
// pending requests from another goroutine, typically an HTTP handler.
type Broker struct {
	mu      sync.Mutex
	pending map[string]*pendingEntry
	logger  *zap.Logger
}

// NewBroker builds an empty broker.
func NewBroker(logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{pending: make(map[string]*pendingEntry), logger: logger}
}

// RequestNewFilter registers a pending request and blocks until Resolve
// answers it or ctx is done.
func (b *Broker) RequestNewFilter(ctx context.Context, req AuthorRequest) (AuthorResponse, error) {
	entry := &pendingEntry{
		view: PendingRequest{
			ID:        uuid.NewString(),
			URL:       req.URL,
			Tokens:    req.Tokens,
			CreatedAt: time.Now().UTC(),
		},
		reply: make(chan AuthorResponse, 1),
	}

	b.mu.Lock()
	b.pending[entry.view.ID] = entry
	b.mu.Unlock()
	b.logger.Sugar().Infow("filter authoring requested", "request_id", entry.view.ID, "url", req.URL)

	defer func() {
		b.mu.Lock()
		delete(b.pending, entry.view.ID)
		b.mu.Unlock()
	}()

	select {
	case resp := <-entry.reply:
		return resp, nil
	case <-ctx.Done():
		return AuthorResponse{}, ctx.Err()
	}
}

// Pending lists open requests, oldest first.
func (b *Broker) Pending() []PendingRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]PendingRequest, 0, len(b.pending))
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

// PendingCount reports how many requests are waiting, without building
// views. Feeds the authoring depth gauge.
func (b *Broker) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Resolve answers a pending request. The reply channel is buffered, so the
// answer is delivered even if the requester is about to give up on ctx.
func (b *Broker) Resolve(id string, resp AuthorResponse) error {
	b.mu.Lock()
	entry, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	b.mu.Unlock()

	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "authoring request not found")
	}
	entry.reply <- resp
	return nil
}

// CancelAll answers every open request with a cancel, halting their batches.
// Used on shutdown so no worker stays suspended forever.
func (b *Broker) CancelAll() int {
	b.mu.Lock()
	entries := make([]*pendingEntry, 0, len(b.pending))
	for id, entry := range b.pending {
		entries = append(entries, entry)
		delete(b.pending, id)
	}
	b.mu.Unlock()

	for _, entry := range entries {
		entry.reply <- AuthorResponse{Cancel: true}
	}
	return len(entries)
}
