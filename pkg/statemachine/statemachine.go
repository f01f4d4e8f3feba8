// Package statemachine implements the small generic state-function
// machine poker.PlayerRecord uses to model per-seat state as explicit,
// inspectable transitions rather than scattered boolean flags (Rob
// Pike's "Lexical Scanning in Go" pattern).
package statemachine

// StateEvent is the kind of transition a state function reports to an
// optional observer callback.
type StateEvent int

const (
	StateEntered StateEvent = iota
	StateExited
)

// StateFn is one state of a state machine over entity *T. It inspects
// the entity, optionally reports a transition via cb, and returns the
// next state function — or nil to terminate the machine.
type StateFn[T any] func(entity *T, cb func(stateName string, event StateEvent)) StateFn[T]

// StateMachine drives a single entity through a sequence of StateFns.
// Callers are expected to serialize their own access to the entity
// (per-table or per-seat single-consumer execution, as the rest of
// this repo does); StateMachine itself holds no lock.
type StateMachine[T any] struct {
	entity  *T
	stateFn StateFn[T]
}

// NewStateMachine starts entity in initial.
func NewStateMachine[T any](entity *T, initial StateFn[T]) *StateMachine[T] {
	return &StateMachine[T]{entity: entity, stateFn: initial}
}

// Dispatch runs the current state function once and adopts whatever
// it returns as the new current state.
func (sm *StateMachine[T]) Dispatch(cb func(stateName string, event StateEvent)) {
	if sm.stateFn == nil {
		return
	}
	sm.stateFn = sm.stateFn(sm.entity, cb)
}

// GetCurrentState returns the current state function, mainly so
// callers can compare it by pointer against a known state.
func (sm *StateMachine[T]) GetCurrentState() StateFn[T] {
	return sm.stateFn
}

// SetState force-transitions to stateFn and immediately dispatches it
// (without an observer), so the entity's fields stay consistent with
// the state it just entered.
func (sm *StateMachine[T]) SetState(stateFn StateFn[T]) {
	sm.stateFn = stateFn
	sm.Dispatch(nil)
}
