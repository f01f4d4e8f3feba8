package engine

import "github.com/riverrake/holdem/pkg/poker"

// Snapshot renders the current table state. When viewerSeat is
// non-nil, that seat's own hole cards are revealed; all hole cards are
// revealed once the street reaches Showdown. Every other seat's hole
// cards are elided.
func (e *Engine) Snapshot(viewerSeat *int) View {
	players := make([]PlayerView, 0, len(e.seatOrder))
	for _, seat := range e.seatOrder {
		rec := e.seats[seat]
		var cards []poker.Card
		if e.street == Showdown || (viewerSeat != nil && *viewerSeat == seat) {
			cards = rec.HoleCards
		}
		players = append(players, PlayerView{
			Seat:       seat,
			Stack:      rec.Stack,
			Status:     rec.Status,
			CurrentBet: rec.CurrentBet,
			Cards:      cards,
		})
	}

	pots := make([]PotView, 0, len(e.pot.Pots))
	for _, p := range e.pot.Pots {
		var elig []int
		for seat := range p.Eligible {
			elig = append(elig, seat)
		}
		pots = append(pots, PotView{Amount: p.Amount, Eligible: elig})
	}

	return View{
		Street:           e.street,
		CommunityCards:   e.community,
		Pot:              e.pot.Total(),
		Pots:             pots,
		CurrentBet:       e.currentBet,
		MinRaise:         e.minRaise,
		ActorSeat:        e.actorSeat,
		TurnDeadlineUnix: e.turnDeadline,
		Players:          players,
		HandInProgress:   e.handInProgress,
	}
}

// ValidActions reports the legal moves for seat right now. It returns
// an error (without a meaningful ValidActionSet) if no hand is live or
// seat is not the current actor.
func (e *Engine) ValidActions(seat int) (ValidActionSet, error) {
	if !e.handInProgress {
		return ValidActionSet{}, &NoHandInProgressError{}
	}
	rec, ok := e.seats[seat]
	if !ok {
		return ValidActionSet{}, &UnknownSeatError{Seat: seat}
	}
	if seat != e.actorSeat {
		return ValidActionSet{}, &NotYourTurnError{Seat: seat}
	}

	maxTotal := rec.CurrentBet + rec.Stack
	set := ValidActionSet{MaxTotal: maxTotal}

	if rec.CurrentBet == e.currentBet {
		set.CanCheck = true
	} else {
		set.CanCall = true
		set.CallAmount = e.currentBet - rec.CurrentBet
		if set.CallAmount > rec.Stack {
			set.CallAmount = rec.Stack
		}
	}

	minTotal := e.currentBet + e.minRaise
	if e.currentBet == 0 {
		set.CanBet = maxTotal > 0
	} else {
		set.CanRaise = maxTotal >= minTotal && !e.noReraise[seat]
	}
	set.MinTotal = minTotal
	set.CanFold = true
	return set, nil
}
