package usecase

import "github.com/user/slot-watcher/internal/entity"

// SourceStates holds the last known state per source id. It is owned by a
// single ChangeDetector and is not safe for concurrent use.
type SourceStates struct {
	states map[string]entity.SourceState
}

// NewSourceStates creates an empty state table.
func NewSourceStates() *SourceStates {
	return &SourceStates{states: make(map[string]entity.SourceState)}
}

// Get returns the state for id and whether one exists.
func (s *SourceStates) Get(id string) (entity.SourceState, bool) {
	st, ok := s.states[id]
	return st, ok
}

// Put replaces the state for id.
func (s *SourceStates) Put(id string, st entity.SourceState) {
	s.states[id] = st
}

// ErrorState counts consecutive probe failures across all sources.
type ErrorState struct {
	consecutiveFailures int
}

// RecordFailure increments the counter and returns the new value.
func (e *ErrorState) RecordFailure() int {
	e.consecutiveFailures++
	return e.consecutiveFailures
}

// RecordSuccess resets the counter.
func (e *ErrorState) RecordSuccess() {
	e.consecutiveFailures = 0
}

func (e *ErrorState) ConsecutiveFailures() int {
	return e.consecutiveFailures
}
