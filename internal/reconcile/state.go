package reconcile

import (
	"slices"
	"strings"

	"github.com/rickgao/arbfeed/internal/model"
)

// State is an immutable snapshot of the authoritative map (id -> Record).
// A State is never modified after it is returned; every change produces a
// new State with a higher generation.
type State struct {
	records    map[string]model.Record
	generation uint64
	updatedAt  int64 // ms since epoch of the step that produced this State
}

// EmptyState returns the initial State.
func EmptyState() *State {
	return &State{records: make(map[string]model.Record)}
}

// Len returns the number of tracked records (active + sticky).
func (s *State) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// ActiveCount returns the number of active records.
func (s *State) ActiveCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, r := range s.records {
		if r.IsActive {
			n++
		}
	}
	return n
}

// Generation increases by one with every published change.
func (s *State) Generation() uint64 {
	if s == nil {
		return 0
	}
	return s.generation
}

// UpdatedAt returns the time (ms) of the step that produced this State.
func (s *State) UpdatedAt() int64 {
	if s == nil {
		return 0
	}
	return s.updatedAt
}

// Get returns the record with the given id.
func (s *State) Get(id string) (model.Record, bool) {
	if s == nil {
		return model.Record{}, false
	}
	r, ok := s.records[id]
	return r, ok
}

// Records returns all records ordered by id. The slice is a fresh copy.
func (s *State) Records() []model.Record {
	if s == nil {
		return nil
	}
	out := make([]model.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b model.Record) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// clone copies the map into a new State one generation ahead.
func (s *State) clone(now int64) *State {
	next := &State{
		records:    make(map[string]model.Record, s.Len()),
		generation: s.Generation() + 1,
		updatedAt:  now,
	}
	if s != nil {
		for id, r := range s.records {
			next.records[id] = r
		}
	}
	return next
}
