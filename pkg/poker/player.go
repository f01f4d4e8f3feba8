package poker

import (
	"github.com/riverrake/holdem/pkg/statemachine"
)

// Status is a seat's per-hand state (spec.md §3 PlayerRecord).
type Status int

const (
	Active Status = iota
	Folded
	AllIn
	SittingOut
)

func (s Status) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case Folded:
		return "FOLDED"
	case AllIn:
		return "ALL_IN"
	case SittingOut:
		return "SITTING_OUT"
	default:
		return "UNKNOWN"
	}
}

// PlayerStateFn is a per-seat state function, following the teacher's
// Rob-Pike state-function pattern (pkg/poker.PlayerStateFn) generalized
// over the statemachine package.
type PlayerStateFn = statemachine.StateFn[PlayerRecord]

// PlayerRecord is per-seat state within a hand. Invariants (spec.md
// §3): Stack >= 0; Status == AllIn implies Stack == 0; Status ==
// Folded implies HoleCards is empty.
type PlayerRecord struct {
	Seat              int
	Stack             int64
	HoleCards         []Card
	Status            Status
	CurrentBet        int64
	TotalBetThisHand  int64

	sm *statemachine.StateMachine[PlayerRecord]
}

// NewPlayerRecord creates a seat record with the given starting stack,
// sitting out until explicitly reset for a hand.
func NewPlayerRecord(seat int, stack int64) *PlayerRecord {
	p := &PlayerRecord{Seat: seat, Stack: stack, Status: SittingOut}
	p.sm = statemachine.NewStateMachine(p, recordStateSittingOut)
	return p
}

// recordStateActive/Folded/AllIn/SittingOut follow the teacher's
// pattern in pkg/poker/player.go: each state function inspects the
// entity and decides, on dispatch, whether to stay or hand off to the
// next state function. They keep the state machine's current state
// function in step with Status; recordStateFolded also clears HoleCards.
func recordStateActive(p *PlayerRecord, cb func(string, statemachine.StateEvent)) PlayerStateFn {
	if p.Status == Folded {
		notify(cb, "ACTIVE", statemachine.StateExited)
		return recordStateFolded
	}
	if p.Status == AllIn {
		notify(cb, "ACTIVE", statemachine.StateExited)
		return recordStateAllIn
	}
	notify(cb, "ACTIVE", statemachine.StateEntered)
	return recordStateActive
}

func recordStateFolded(p *PlayerRecord, cb func(string, statemachine.StateEvent)) PlayerStateFn {
	if p.Status != Folded {
		notify(cb, "FOLDED", statemachine.StateExited)
		return recordStateActive
	}
	p.HoleCards = nil
	notify(cb, "FOLDED", statemachine.StateEntered)
	return recordStateFolded
}

func recordStateAllIn(p *PlayerRecord, cb func(string, statemachine.StateEvent)) PlayerStateFn {
	if p.Status == Folded {
		notify(cb, "ALL_IN", statemachine.StateExited)
		return recordStateFolded
	}
	if p.Status != AllIn {
		notify(cb, "ALL_IN", statemachine.StateExited)
		return recordStateActive
	}
	notify(cb, "ALL_IN", statemachine.StateEntered)
	return recordStateAllIn
}

func recordStateSittingOut(p *PlayerRecord, cb func(string, statemachine.StateEvent)) PlayerStateFn {
	if p.Status != SittingOut {
		notify(cb, "SITTING_OUT", statemachine.StateExited)
		return recordStateActive
	}
	notify(cb, "SITTING_OUT", statemachine.StateEntered)
	return recordStateSittingOut
}

func notify(cb func(string, statemachine.StateEvent), name string, evt statemachine.StateEvent) {
	if cb != nil {
		cb(name, evt)
	}
}

// ResetForHand clears per-hand state and transitions the seat to
// Active, preserving table-level identity (Seat).
func (p *PlayerRecord) ResetForHand() {
	p.HoleCards = nil
	p.CurrentBet = 0
	p.TotalBetThisHand = 0
	p.Status = Active
	p.sm.SetState(recordStateActive)
}

// SitOut transitions the seat out of the hand entirely, clearing its
// hole cards.
func (p *PlayerRecord) SitOut() {
	p.Status = SittingOut
	p.HoleCards = nil
	p.sm.SetState(recordStateSittingOut)
}

// Fold marks the seat folded, dropping its hole cards.
func (p *PlayerRecord) Fold() {
	p.Status = Folded
	p.sm.SetState(recordStateFolded)
}

// syncState dispatches the state machine after a direct field mutation
// (e.g. Stack reaching 0) so Status/the state function agree.
func (p *PlayerRecord) syncState() {
	if p.Status == Folded {
		p.sm.SetState(recordStateFolded)
		return
	}
	if p.Stack == 0 && p.CurrentBet > 0 {
		p.Status = AllIn
		p.sm.SetState(recordStateAllIn)
		return
	}
	if p.Status != SittingOut {
		p.Status = Active
		p.sm.SetState(recordStateActive)
	}
}

// PutChips moves amount from the seat's stack into its current-round
// bet, transitioning to AllIn if the stack is exhausted. amount must
// already be clamped to at most Stack by the caller (the Hand Engine).
func (p *PlayerRecord) PutChips(amount int64) {
	p.Stack -= amount
	p.CurrentBet += amount
	p.TotalBetThisHand += amount
	p.syncState()
}
