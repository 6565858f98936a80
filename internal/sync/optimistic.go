package sync

import (
	"errors"
	"sync"
)

// ErrInFlight rejects a second optimistic mutation on an entity whose first
// one has not settled. Mutations serialize per entity, not globally.
var ErrInFlight = errors.New("entity has a mutation in flight")

// EntityState is the per-entity reconciliation state.
type EntityState int

const (
	// StateIdle: local value equals the last known authoritative value.
	StateIdle EntityState = iota
	// StateInFlight: a speculative value is displayed while the real
	// mutation is outstanding.
	StateInFlight
	// StateReverting: the mutation was rejected and the entity is being
	// rolled back to its authoritative value.
	StateReverting
)

// Notice is a user-visible rollback notification.
type Notice struct {
	EntityID string
	Reason   string
}

// Tracker reconciles optimistic local mutations with authoritative state.
//
// The projection callback receives every value the UI should display; the
// notify callback receives rollback notices. Both are called with the
// tracker's lock released.
type Tracker[T any] struct {
	mu            sync.Mutex
	states        map[string]EntityState
	authoritative map[string]T
	guesses       map[string]T

	equal   func(a, b T) bool
	project func(id string, v T)
	notify  func(n Notice)
}

// NewTracker creates a tracker. equal decides whether an authoritative value
// already reflects the optimistic guess; project and notify may be nil.
func NewTracker[T any](equal func(a, b T) bool, project func(id string, v T), notify func(n Notice)) *Tracker[T] {
	if project == nil {
		project = func(string, T) {}
	}
	if notify == nil {
		notify = func(Notice) {}
	}
	return &Tracker[T]{
		states:        make(map[string]EntityState),
		authoritative: make(map[string]T),
		guesses:       make(map[string]T),
		equal:         equal,
		project:       project,
		notify:        notify,
	}
}

// State returns the entity's reconciliation state.
func (t *Tracker[T]) State(id string) EntityState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[id]
}

// Value returns what the UI currently shows for the entity: the guess while
// in flight, the authoritative value otherwise.
func (t *Tracker[T]) Value(id string) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.states[id] == StateInFlight {
		v, ok := t.guesses[id]
		return v, ok
	}
	v, ok := t.authoritative[id]
	return v, ok
}

// Begin applies a speculative mutation: current is the pre-mutation
// authoritative value to roll back to, guess the value shown immediately.
// A second Begin while the first is unsettled returns ErrInFlight and
// changes nothing.
func (t *Tracker[T]) Begin(id string, current, guess T) error {
	t.mu.Lock()
	if t.states[id] != StateIdle {
		t.mu.Unlock()
		return ErrInFlight
	}
	t.states[id] = StateInFlight
	t.authoritative[id] = current
	t.guesses[id] = guess
	t.mu.Unlock()

	t.project(id, guess)
	return nil
}

// Confirm settles an in-flight mutation whose confirmed result matched the
// guess. The displayed value does not change — no flicker.
func (t *Tracker[T]) Confirm(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.states[id] != StateInFlight {
		return
	}
	t.authoritative[id] = t.guesses[id]
	delete(t.guesses, id)
	t.states[id] = StateIdle
}

// Reject rolls an in-flight mutation back to the last authoritative value
// and surfaces a user-visible notice.
func (t *Tracker[T]) Reject(id, reason string) {
	t.mu.Lock()
	if t.states[id] != StateInFlight {
		t.mu.Unlock()
		return
	}
	t.states[id] = StateReverting
	revert := t.authoritative[id]
	delete(t.guesses, id)
	t.mu.Unlock()

	t.project(id, revert)
	t.notify(Notice{EntityID: id, Reason: reason})

	t.mu.Lock()
	t.states[id] = StateIdle
	t.mu.Unlock()
}

// Observe feeds an authoritative value arriving asynchronously (the change
// feed). Idle entities just track it. For an in-flight entity whose guess
// the store already reflects, the marker clears opportunistically — a later
// duplicate delivery can then no longer trigger a spurious rollback. An
// in-flight entity with a diverging value keeps its guess on screen; the
// stored authoritative value is refreshed so a rejection reverts to truth.
func (t *Tracker[T]) Observe(id string, v T) {
	t.mu.Lock()
	state := t.states[id]
	switch state {
	case StateInFlight:
		if guess, ok := t.guesses[id]; ok && t.equal(v, guess) {
			t.authoritative[id] = v
			delete(t.guesses, id)
			t.states[id] = StateIdle
			t.mu.Unlock()
			return
		}
		t.authoritative[id] = v
		t.mu.Unlock()
	default:
		t.authoritative[id] = v
		t.mu.Unlock()
		t.project(id, v)
	}
}

// Forget drops all tracking for an entity (after a delete event).
func (t *Tracker[T]) Forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, id)
	delete(t.authoritative, id)
	delete(t.guesses, id)
}
