package store

import (
	"context"
	"time"

	"github.com/jonp69/DL-Homework-Garden/internal/models"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

// Filters returns the ordered filter set as deep copies.
func (s *Store) Filters() []models.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Filter, 0, len(s.filters))
	for _, f := range s.filters {
		out = append(out, f.Clone())
	}
	return out
}

// FilterByID looks up a filter by its numeric id.
func (s *Store) FilterByID(id int64) (models.Filter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.filters {
		if f.NumericID == id {
			return f.Clone(), true
		}
	}
	return models.Filter{}, false
}

// AddFilter validates and appends a filter at the lowest priority. The store
// assigns the numeric id; ids grow monotonically and are never reused, so a
// link can keep referencing a filter that was deleted later. An empty name
// gets the Unnamed_<id> placeholder.
func (s *Store) AddFilter(ctx context.Context, f models.Filter) (models.Filter, error) {
	if err := f.Validate(); err != nil {
		return models.Filter{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	f.NumericID = s.nextID
	s.nextID++
	if f.Name == "" {
		f.Name = models.PlaceholderName(f.NumericID)
	}
	f.PriorityRank = len(s.filters)
	f.CreatedAt = now
	f.UpdatedAt = now
	for i := range f.Rules {
		f.Rules[i] = f.Rules[i].Sanitized()
	}

	stored := f.Clone()
	s.filters = append(s.filters, &stored)
	if err := s.saveFilters(ctx); err != nil {
		return models.Filter{}, err
	}
	return f, nil
}

// UpdateFilter replaces the name, rules and action of an existing filter.
// Its id and priority rank stay fixed.
func (s *Store) UpdateFilter(ctx context.Context, id int64, f models.Filter) (models.Filter, error) {
	if err := f.Validate(); err != nil {
		return models.Filter{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.filterLocked(id)
	if !ok {
		return models.Filter{}, appErrors.Clone(appErrors.ErrNotFound, "filter not found")
	}
	if f.Name == "" {
		f.Name = models.PlaceholderName(id)
	}
	existing.Name = f.Name
	existing.Action = f.Action
	existing.Rules = make([]models.Rule, len(f.Rules))
	for i, r := range f.Rules {
		existing.Rules[i] = r.Sanitized()
	}
	existing.UpdatedAt = time.Now().UTC()

	if err := s.saveFilters(ctx); err != nil {
		return models.Filter{}, err
	}
	return existing.Clone(), nil
}

// DeleteFilter removes a filter from the set and flags every link whose last
// classification matched it as to_reprocess. The links keep the stale id so
// their history stays inspectable; no link record is removed.
func (s *Store) DeleteFilter(ctx context.Context, id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, f := range s.filters {
		if f.NumericID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "filter not found")
	}
	s.filters = append(s.filters[:idx], s.filters[idx+1:]...)
	s.renumberLocked()

	// Affected links only change status; the deleted flag survives until a
	// later classification resolves it through the reactivation rule.
	now := time.Now().UTC()
	affected := 0
	for _, url := range s.linkOrder {
		link := s.links[url]
		if link.FilterMatchedID == nil || *link.FilterMatchedID != id {
			continue
		}
		link.Status = models.StatusToReprocess
		link.LimitReason = nil
		link.UpdatedAt = now
		affected++
	}

	if err := s.saveFilters(ctx); err != nil {
		return 0, err
	}
	if affected > 0 {
		if err := s.saveLinks(ctx); err != nil {
			return 0, err
		}
	}
	return affected, nil
}

// MoveFilter shifts a filter by delta positions in the priority order.
// Negative delta raises priority. The new position is clamped to the set.
func (s *Store) MoveFilter(ctx context.Context, id int64, delta int) ([]models.Filter, error) {
	if delta == 0 {
		return s.Filters(), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, f := range s.filters {
		if f.NumericID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "filter not found")
	}

	target := idx + delta
	if target < 0 {
		target = 0
	}
	if target > len(s.filters)-1 {
		target = len(s.filters) - 1
	}
	if target != idx {
		moved := s.filters[idx]
		s.filters = append(s.filters[:idx], s.filters[idx+1:]...)
		s.filters = append(s.filters[:target], append([]*models.Filter{moved}, s.filters[target:]...)...)
		s.renumberLocked()
		moved.UpdatedAt = time.Now().UTC()
		if err := s.saveFilters(ctx); err != nil {
			return nil, err
		}
	}

	out := make([]models.Filter, 0, len(s.filters))
	for _, f := range s.filters {
		out = append(out, f.Clone())
	}
	return out, nil
}

func (s *Store) filterLocked(id int64) (*models.Filter, bool) {
	for _, f := range s.filters {
		if f.NumericID == id {
			return f, true
		}
	}
	return nil, false
}

// renumberLocked keeps priority ranks dense after structural changes.
func (s *Store) renumberLocked() {
	for i, f := range s.filters {
		f.PriorityRank = i
	}
}
