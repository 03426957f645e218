package table

import (
	"sort"

	"mailtrack/pkg/model"
)

// Eligible is the default eligibility predicate for claimable records:
// anything not already in the terminal claimed state may be selected.
func Eligible(r model.StatusRecord) bool {
	return !r.Status().IsTerminal()
}

// Selection tracks the set of currently chosen record identifiers,
// constrained by an eligibility predicate. Owned by one view; not
// goroutine-safe.
type Selection[R model.Record] struct {
	ids      map[string]struct{}
	eligible func(R) bool
}

// NewSelection creates an empty selection. A nil predicate admits every
// record.
func NewSelection[R model.Record](eligible func(R) bool) *Selection[R] {
	if eligible == nil {
		eligible = func(R) bool { return true }
	}
	return &Selection[R]{
		ids:      make(map[string]struct{}),
		eligible: eligible,
	}
}

// Toggle flips membership of the record. Ineligible records are never
// added; toggling one that is somehow selected removes it.
func (s *Selection[R]) Toggle(rec R) {
	id := rec.ID()
	if id == "" {
		return
	}
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	if !s.eligible(rec) {
		return
	}
	s.ids[id] = struct{}{}
}

// SelectAllVisible adds every eligible record on the current page.
// Identifiers already selected from other pages are untouched.
func (s *Selection[R]) SelectAllVisible(visible []Row[R]) {
	for _, row := range visible {
		if !s.eligible(row.Record) {
			continue
		}
		if id := row.Record.ID(); id != "" {
			s.ids[id] = struct{}{}
		}
	}
}

// Clear empties the selection.
func (s *Selection[R]) Clear() {
	s.ids = make(map[string]struct{})
}

// IsAllVisibleSelected reports whether every eligible record on the
// current page is selected. Vacuously true when the page holds no
// eligible records.
func (s *Selection[R]) IsAllVisibleSelected(visible []Row[R]) bool {
	for _, row := range visible {
		if !s.eligible(row.Record) {
			continue
		}
		if _, ok := s.ids[row.Record.ID()]; !ok {
			return false
		}
	}
	return true
}

// Has reports membership.
func (s *Selection[R]) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected identifiers.
func (s *Selection[R]) Len() int {
	return len(s.ids)
}

// IDs returns the selected identifiers in sorted order.
func (s *Selection[R]) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Prune intersects the selection with the records still present and
// eligible in the collection. Called after every reconciler mutation so
// a delete or a status change via the live feed cannot leave a stale
// identifier selected.
func (s *Selection[R]) Prune(c *Collection[R]) {
	for id := range s.ids {
		rec, ok := c.Get(id)
		if !ok || !s.eligible(rec) {
			delete(s.ids, id)
		}
	}
}
