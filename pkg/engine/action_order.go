package engine

import "github.com/riverrake/holdem/pkg/poker"

// nextActive returns the first seat strictly after fromSeat, walking
// e.handSeats cyclically, whose current status is Active. It returns
// -1 if no such seat exists (the caller should have already confirmed
// the round isn't over before calling this).
func (e *Engine) nextActive(fromSeat int) int {
	n := len(e.handSeats)
	if n == 0 {
		return -1
	}
	idx := e.handSeatIndex[fromSeat]
	for i := 1; i <= n; i++ {
		cand := e.handSeats[(idx+i)%n]
		if e.seats[cand].Status == poker.Active {
			return cand
		}
	}
	return -1
}

// nextOccupiedWithChips returns the next seat after fromSeat (inclusive
// search starting at fromSeat itself) in seatOrder that still has
// chips, used to advance the dealer button between hands.
func (e *Engine) nextOccupiedWithChips(fromSeat int, eligible []int) int {
	if len(eligible) == 0 {
		return fromSeat
	}
	for _, seat := range eligible {
		if seat >= fromSeat {
			return seat
		}
	}
	return eligible[0]
}
