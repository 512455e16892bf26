package store

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"
	"time"

	"github.com/jonp69/DL-Homework-Garden/internal/models"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

// Classification is the outcome of matching a link against the filter set.
type Classification struct {
	Action     models.FilterAction
	FilterID   *int64
	Source     models.LinkSource
	SourceFile string
	Tokens     []string
}

// ApplyClassification creates or updates the record for url. Records are
// never removed: a deleted classification only sets the deleted flag, and a
// non-deleted classification on a flagged record clears the flag again and
// moves the link to the action's status.
func (s *Store) ApplyClassification(ctx context.Context, url string, c Classification) (models.Link, error) {
	if !c.Action.Valid() {
		return models.Link{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown filter action %s", c.Action))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	link, ok := s.links[url]
	if !ok {
		link = &models.Link{
			URL:        url,
			Source:     c.Source,
			SourceFile: c.SourceFile,
			CreatedAt:  now,
		}
		s.links[url] = link
		s.linkOrder = append(s.linkOrder, url)
	} else if link.Deleted && c.Action != models.ActionDeleted && c.Source != "" {
		// Reactivation adopts the provenance of the encounter that revived it.
		link.Source = c.Source
		link.SourceFile = c.SourceFile
	}

	link.Status = c.Action.Status()
	link.FilterMatchedID = c.FilterID
	link.Deleted = c.Action == models.ActionDeleted
	link.LimitReason = nil
	link.ErrorMessage = nil
	if len(c.Tokens) > 0 {
		link.Tokens = c.Tokens
	}
	link.UpdatedAt = now

	if err := s.saveLinks(ctx); err != nil {
		return models.Link{}, err
	}
	return *link, nil
}

// Get returns a copy of the record for url.
func (s *Store) Get(url string) (models.Link, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[url]
	if !ok {
		return models.Link{}, false
	}
	return *link, true
}

// SetStatus applies a manual status change. The deleted flag follows the
// status: only the deleted status leaves the flag set. limit_reason survives
// only on to_skip_limit.
func (s *Store) SetStatus(ctx context.Context, url string, status models.LinkStatus) (models.Link, error) {
	if !status.Valid() || status.InFlight() {
		return models.Link{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("status %s cannot be set directly", status))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[url]
	if !ok {
		return models.Link{}, appErrors.Clone(appErrors.ErrNotFound, "link not found")
	}
	link.Status = status
	link.Deleted = status == models.StatusDeleted
	if status != models.StatusToSkipLimit {
		link.LimitReason = nil
	}
	if status != models.StatusFailed {
		link.ErrorMessage = nil
	}
	link.UpdatedAt = time.Now().UTC()

	if err := s.saveLinks(ctx); err != nil {
		return models.Link{}, err
	}
	return *link, nil
}

// SetStatusBatch applies one manual status change to every listed url under
// a single critical section and persist. Unknown urls are skipped; the count
// covers the links actually changed.
func (s *Store) SetStatusBatch(ctx context.Context, urls []string, status models.LinkStatus) (int, error) {
	if !status.Valid() || status.InFlight() {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("status %s cannot be set directly", status))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	changed := 0
	for _, url := range urls {
		link, ok := s.links[url]
		if !ok {
			continue
		}
		link.Status = status
		link.Deleted = status == models.StatusDeleted
		if status != models.StatusToSkipLimit {
			link.LimitReason = nil
		}
		if status != models.StatusFailed {
			link.ErrorMessage = nil
		}
		link.UpdatedAt = now
		changed++
	}
	if changed == 0 {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "no matching links")
	}

	if err := s.saveLinks(ctx); err != nil {
		return 0, err
	}
	return changed, nil
}

// ClaimNext atomically picks the oldest link in the high tier, falling back
// to the low tier only when the high tier is empty, and marks it in-flight.
// The two lookups and the claim happen under one critical section, so a link
// ingested between downloads is always seen before the low tier drains.
func (s *Store) ClaimNext(ctx context.Context, high, low models.LinkStatus) (models.Link, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	url, ok := s.oldestWithStatus(high)
	if !ok {
		url, ok = s.oldestWithStatus(low)
	}
	if !ok {
		return models.Link{}, false, nil
	}

	link := s.links[url]
	link.Status = models.StatusDownloading
	link.UpdatedAt = time.Now().UTC()
	if err := s.saveLinks(ctx); err != nil {
		return models.Link{}, false, err
	}
	return *link, true, nil
}

// oldestWithStatus scans insertion order. Callers hold at least a read lock.
func (s *Store) oldestWithStatus(status models.LinkStatus) (string, bool) {
	for _, url := range s.linkOrder {
		if s.links[url].Status == status {
			return url, true
		}
	}
	return "", false
}

// CompleteDownload records a successful download with its reported totals.
func (s *Store) CompleteDownload(ctx context.Context, url string, items int, sizeMB float64) (models.Link, error) {
	return s.finishInFlight(ctx, url, func(link *models.Link) {
		link.Status = models.StatusDownloaded
		link.ItemsCount = items
		link.SizeMB = sizeMB
		link.ErrorMessage = nil
	})
}

// FailDownload records a failed attempt. Non-terminal failures return the
// link to the download tier so the next claim retries it; terminal failures
// park it in the failed status with the last error preserved.
func (s *Store) FailDownload(ctx context.Context, url, message string, terminal bool) (models.Link, error) {
	return s.finishInFlight(ctx, url, func(link *models.Link) {
		if terminal {
			link.Status = models.StatusFailed
			link.ErrorMessage = &message
			return
		}
		link.Status = models.StatusToDownload
		link.ErrorMessage = &message
	})
}

// SkipCurrent moves an in-flight link to the skip tier on operator request.
func (s *Store) SkipCurrent(ctx context.Context, url string) (models.Link, error) {
	return s.finishInFlight(ctx, url, func(link *models.Link) {
		link.Status = models.StatusToSkip
		link.ErrorMessage = nil
	})
}

// SkipForLimit parks an in-flight link after a limit decision, recording
// which limit fired and the partial totals already fetched.
func (s *Store) SkipForLimit(ctx context.Context, url, reason string, items int, sizeMB float64) (models.Link, error) {
	return s.finishInFlight(ctx, url, func(link *models.Link) {
		link.Status = models.StatusToSkipLimit
		link.LimitReason = &reason
		link.ItemsCount = items
		link.SizeMB = sizeMB
	})
}

// ReleaseInFlight returns an interrupted in-flight link to the download tier
// without recording a failure. Runs call it for every active slot when they
// are stopped or torn down.
func (s *Store) ReleaseInFlight(ctx context.Context, url string) (models.Link, error) {
	return s.finishInFlight(ctx, url, func(link *models.Link) {
		link.Status = models.StatusToDownload
		link.ErrorMessage = nil
	})
}

// ClaimForRetry marks a parked link in-flight for an operator-forced retry.
// Only limit-parked and failed links are eligible.
func (s *Store) ClaimForRetry(ctx context.Context, url string) (models.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[url]
	if !ok {
		return models.Link{}, appErrors.Clone(appErrors.ErrNotFound, "link not found")
	}
	if link.Status != models.StatusToSkipLimit && link.Status != models.StatusFailed {
		return models.Link{}, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("link is %s, retry applies to %s or %s links", link.Status, models.StatusToSkipLimit, models.StatusFailed))
	}
	link.Status = models.StatusDownloading
	link.UpdatedAt = time.Now().UTC()
	if err := s.saveLinks(ctx); err != nil {
		return models.Link{}, err
	}
	return *link, nil
}

func (s *Store) finishInFlight(ctx context.Context, url string, apply func(*models.Link)) (models.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[url]
	if !ok {
		return models.Link{}, appErrors.Clone(appErrors.ErrNotFound, "link not found")
	}
	apply(link)
	if link.Status != models.StatusToSkipLimit {
		link.LimitReason = nil
	}
	link.UpdatedAt = time.Now().UTC()
	if err := s.saveLinks(ctx); err != nil {
		return models.Link{}, err
	}
	return *link, nil
}

// Query returns a lazy sequence over link copies matching pred, in insertion
// order. The sequence is restartable: every range takes a fresh snapshot of
// the store, so long-lived consumers always see current state.
func (s *Store) Query(pred func(models.Link) bool) iter.Seq[models.Link] {
	return func(yield func(models.Link) bool) {
		for _, link := range s.snapshotLinks() {
			if pred == nil || pred(link) {
				if !yield(link) {
					return
				}
			}
		}
	}
}

func (s *Store) snapshotLinks() []models.Link {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Link, 0, len(s.linkOrder))
	for _, url := range s.linkOrder {
		out = append(out, *s.links[url])
	}
	return out
}

// LinksByStatus collects links currently in status, oldest first.
func (s *Store) LinksByStatus(status models.LinkStatus) []models.Link {
	var out []models.Link
	for link := range s.Query(func(l models.Link) bool { return l.Status == status }) {
		out = append(out, link)
	}
	return out
}

// LinksByFilter collects links whose last classification matched filter id.
func (s *Store) LinksByFilter(id int64) []models.Link {
	var out []models.Link
	for link := range s.Query(func(l models.Link) bool {
		return l.FilterMatchedID != nil && *l.FilterMatchedID == id
	}) {
		out = append(out, link)
	}
	return out
}

// List applies query filtering, search and pagination over a point-in-time
// snapshot. Newest records come first.
func (s *Store) List(q models.LinkQuery) ([]models.Link, int) {
	matched := make([]models.Link, 0)
	search := strings.ToLower(strings.TrimSpace(q.Search))
	for link := range s.Query(nil) {
		if q.Status != "" && link.Status != q.Status {
			continue
		}
		if q.Deleted != nil && link.Deleted != *q.Deleted {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(link.URL), search) {
			continue
		}
		matched = append(matched, link)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size < 1 {
		size = 20
	}
	start := (page - 1) * size
	if start >= total {
		return []models.Link{}, total
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total
}

// Stats aggregates the collection by status.
func (s *Store) Stats() models.LinkStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.LinkStats{ByStatus: make(map[models.LinkStatus]int)}
	for _, link := range s.links {
		stats.Total++
		if link.Deleted {
			stats.Deleted++
		}
		stats.ByStatus[link.Status]++
	}
	return stats
}
