// File: internal/selection/selection.go
package selection

import (
	"jobpilot/internal/domain"
)

// MaxSelection mirrors the server-side bulk action cap. Batches above it
// are rejected before any network call.
const MaxSelection = 100

// Set is the client-held selection of job ids. It stays consistent across
// a long-running bulk action even while the user keeps selecting and
// deselecting: BeginRequest snapshots the set, ApplyResult reconciles the
// server outcome against edits made in flight.
type Set struct {
	ids   map[string]struct{}
	order []string
}

func NewSet() *Set {
	return &Set{ids: map[string]struct{}{}}
}

func (s *Set) Add(id string) {
	if _, ok := s.ids[id]; ok {
		return
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *Set) Remove(id string) {
	if _, ok := s.ids[id]; !ok {
		return
	}
	delete(s.ids, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Set) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Set) Len() int { return len(s.ids) }

// IDs returns the selected ids in insertion order.
func (s *Set) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Set) Clear() {
	s.ids = map[string]struct{}{}
	s.order = nil
}

// SelectAll replaces the selection with candidates, capped at MaxSelection.
// The truncated flag tells the caller to surface a limit notice instead of
// silently dropping the overflow.
func (s *Set) SelectAll(candidates []string) (selected int, truncated bool) {
	s.Clear()
	for _, id := range candidates {
		if len(s.ids) >= MaxSelection {
			return len(s.ids), true
		}
		s.Add(id)
	}
	return len(s.ids), false
}

// CanSubmit rejects oversized batches before the request is made.
func (s *Set) CanSubmit() error {
	if len(s.ids) > MaxSelection {
		return domain.ErrBatchTooLarge
	}
	return nil
}

// Request is the snapshot taken when a bulk action starts.
type Request struct {
	selectedAtStart map[string]struct{}
}

// BeginRequest snapshots the current selection for later reconciliation.
func (s *Set) BeginRequest() Request {
	snap := make(map[string]struct{}, len(s.ids))
	for id := range s.ids {
		snap[id] = struct{}{}
	}
	return Request{selectedAtStart: snap}
}

// ApplyResult reconciles the completed request against the live set:
//
//	new = (failed ∪ addedDuringRequest) − removedDuringRequest
//
// Failed items stay selected for retry; anything the user deselected while
// waiting stays deselected even if it failed; items the user selected while
// waiting are preserved.
func (s *Set) ApplyResult(req Request, failedIDs []string) {
	added := []string{}
	removed := map[string]struct{}{}
	for _, id := range s.order {
		if _, atStart := req.selectedAtStart[id]; !atStart {
			added = append(added, id)
		}
	}
	for id := range req.selectedAtStart {
		if _, live := s.ids[id]; !live {
			removed[id] = struct{}{}
		}
	}

	s.Clear()
	for _, id := range failedIDs {
		if _, gone := removed[id]; gone {
			continue
		}
		s.Add(id)
	}
	for _, id := range added {
		if _, gone := removed[id]; gone {
			continue
		}
		s.Add(id)
	}
}
