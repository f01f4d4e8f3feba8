package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/riverrake/holdem/pkg/poker"
)

// fakeClock is a minimal, manually advanced Clock for deterministic
// turn-timeout tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestEngine(t *testing.T, maxSeats int) (*Engine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(0, 0)}
	e := New(Config{SmallBlind: 5, BigBlind: 10, TurnTimeoutSeconds: 30, MaxSeats: maxSeats}, clock, nil)
	return e, clock
}

func TestHeadsUpDealerPostsSmallBlindAndActsFirstPreflop(t *testing.T) {
	e, _ := newTestEngine(t, 2)
	if err := e.Attach(1, 1000); err != nil {
		t.Fatal(err)
	}
	if err := e.Attach(2, 1000); err != nil {
		t.Fatal(err)
	}

	if outcome := e.StartHand(); outcome != Started {
		t.Fatalf("expected Started, got %v", outcome)
	}

	// dealerSeat chosen as the first occupied seat on the first hand: seat 1.
	if e.dealerSeat != 1 {
		t.Fatalf("expected dealer seat 1, got %d", e.dealerSeat)
	}
	if e.seats[1].CurrentBet != 5 {
		t.Fatalf("expected dealer (heads-up) to post small blind 5, got %d", e.seats[1].CurrentBet)
	}
	if e.seats[2].CurrentBet != 10 {
		t.Fatalf("expected seat 2 to post big blind 10, got %d", e.seats[2].CurrentBet)
	}
	if e.actorSeat != 1 {
		t.Fatalf("expected dealer to act first preflop heads-up, got seat %d", e.actorSeat)
	}
}

func TestHeadsUpDealerActsLastPostflop(t *testing.T) {
	e, _ := newTestEngine(t, 2)
	_ = e.Attach(1, 1000)
	_ = e.Attach(2, 1000)
	e.StartHand()

	// Preflop: seat 1 (dealer/SB) calls, seat 2 (BB) checks to close round.
	if err := e.Submit(Action{Seat: 1, Kind: Call}); err != nil {
		t.Fatal(err)
	}
	if err := e.Submit(Action{Seat: 2, Kind: Check}); err != nil {
		t.Fatal(err)
	}

	if e.street != Flop {
		t.Fatalf("expected Flop, got %v", e.street)
	}
	if e.actorSeat != 2 {
		t.Fatalf("expected non-dealer to act first postflop heads-up, got seat %d", e.actorSeat)
	}
}

func TestShortAllInBelowMinRaiseDoesNotReopenAction(t *testing.T) {
	e, _ := newTestEngine(t, 3)
	_ = e.Attach(1, 1000)
	_ = e.Attach(2, 140) // all-in for exactly 140 once the SB is posted
	_ = e.Attach(3, 300)
	e.StartHand()

	// dealer = seat 1. blinds: seat2=SB(5), seat3=BB(10). actor after BB = seat1.
	if e.actorSeat != 1 {
		t.Fatalf("expected seat 1 to act first, got %d", e.actorSeat)
	}

	// A (seat1) bets to 100: a full raise from the blind's 10, reopening
	// action and setting minRaise to 90.
	if err := e.Submit(Action{Seat: 1, Kind: Raise, Amount: 100}); err != nil {
		t.Fatal(err)
	}
	if e.minRaise != 90 {
		t.Fatalf("expected minRaise 90 (100-10), got %d", e.minRaise)
	}

	// B (seat2) is all-in for 140: an increment of only 40 over the 100
	// current bet, short of the 90 min-raise. It raises currentBet to 140
	// but must not reopen action for A, who already acted this round.
	if err := e.Submit(Action{Seat: 2, Kind: AllIn}); err != nil {
		t.Fatal(err)
	}
	if e.seats[2].Stack != 0 {
		t.Fatalf("expected seat 2 fully committed, stack=%d", e.seats[2].Stack)
	}
	if e.currentBet != 140 {
		t.Fatalf("expected currentBet to rise to 140, got %d", e.currentBet)
	}
	if e.minRaise != 90 {
		t.Fatalf("expected minRaise to remain 90 after the short all-in, got %d", e.minRaise)
	}
	if !e.noReraise[1] {
		t.Fatal("expected seat 1's raise option to close after the short all-in")
	}

	// C (seat3) calls the 140. Action returns to A, who must only be
	// offered call-or-fold: the short all-in never reopened its raise.
	if err := e.Submit(Action{Seat: 3, Kind: Call}); err != nil {
		t.Fatal(err)
	}
	if e.actorSeat != 1 {
		t.Fatalf("expected action to return to seat 1, got seat %d", e.actorSeat)
	}

	set, err := e.ValidActions(1)
	if err != nil {
		t.Fatal(err)
	}
	if set.CanRaise {
		t.Fatal("expected seat 1's raise option withdrawn by the short all-in")
	}
	if !set.CanCall || set.CallAmount != 40 {
		t.Fatalf("expected seat 1 to owe a 40 call, got CanCall=%v CallAmount=%d", set.CanCall, set.CallAmount)
	}

	var outOfBounds *AmountOutOfBoundsError
	if err := e.Submit(Action{Seat: 1, Kind: Raise, Amount: 300}); err == nil {
		t.Fatal("expected seat 1's raise to be rejected")
	} else if errors.As(err, &outOfBounds) {
		t.Fatalf("expected a closed-action error, not a bounds error: %v", err)
	}
}

func TestTimeoutAutoFoldsCurrentActor(t *testing.T) {
	e, clock := newTestEngine(t, 3)
	_ = e.Attach(1, 1000)
	_ = e.Attach(2, 1000)
	_ = e.Attach(3, 1000)
	e.StartHand()

	actor := e.actorSeat
	clock.advance(31 * time.Second)
	e.OnTimeout()

	if e.seats[actor].Status != poker.Folded {
		t.Fatalf("expected timed-out seat %d to be folded, got %v", actor, e.seats[actor].Status)
	}
	if e.actorSeat == actor {
		t.Fatalf("expected actor to advance past the folded seat")
	}
}

func TestOnTimeoutBeforeDeadlineIsNoOp(t *testing.T) {
	e, _ := newTestEngine(t, 3)
	_ = e.Attach(1, 1000)
	_ = e.Attach(2, 1000)
	_ = e.Attach(3, 1000)
	e.StartHand()

	actor := e.actorSeat
	e.OnTimeout()
	if e.actorSeat != actor || e.seats[actor].Status != poker.Active {
		t.Fatalf("expected no-op before deadline, actor=%d status=%v", e.actorSeat, e.seats[actor].Status)
	}
}

func TestSubmitRejectsActionFromNonActor(t *testing.T) {
	e, _ := newTestEngine(t, 3)
	_ = e.Attach(1, 1000)
	_ = e.Attach(2, 1000)
	_ = e.Attach(3, 1000)
	e.StartHand()

	wrongSeat := e.actorSeat + 1
	if wrongSeat > 3 {
		wrongSeat = 1
	}
	if wrongSeat == e.actorSeat {
		wrongSeat++
	}
	err := e.Submit(Action{Seat: wrongSeat, Kind: Fold})
	var notYourTurn *NotYourTurnError
	if !errors.As(err, &notYourTurn) {
		t.Fatalf("expected NotYourTurnError, got %v", err)
	}
}

func TestUncontestedPotAwardedWithoutShowdown(t *testing.T) {
	e, _ := newTestEngine(t, 3)
	_ = e.Attach(1, 1000)
	_ = e.Attach(2, 1000)
	_ = e.Attach(3, 1000)

	var settled SettlementRecord
	e.SetSettlementFunc(func(r SettlementRecord) { settled = r })
	e.StartHand()

	actor := e.actorSeat
	if err := e.Submit(Action{Seat: actor, Kind: Fold}); err != nil {
		t.Fatal(err)
	}
	next := e.actorSeat
	if err := e.Submit(Action{Seat: next, Kind: Fold}); err != nil {
		t.Fatal(err)
	}

	if e.handInProgress {
		t.Fatal("expected hand to end uncontested")
	}
	if len(settled.Winners) != 1 {
		t.Fatalf("expected exactly one winner, got %+v", settled.Winners)
	}
}

func TestSplitPotWithOddChipGoesClosestClockwiseFromDealer(t *testing.T) {
	e, _ := newTestEngine(t, 3)
	_ = e.Attach(1, 1000)
	_ = e.Attach(2, 1000)
	_ = e.Attach(3, 1000)

	e.handSeats = []int{1, 2, 3}
	e.handSeatIndex = map[int]int{1: 0, 2: 1, 3: 2}
	e.dealerSeat = 3
	e.street = River
	e.config.RakePercent = 0 // spec.md §9 boundary scenario 6 is stated at 0 rake

	// Seat 3 is the dealer and folded preflop, leaving its 1-chip
	// contribution dead in the pot. Seats 1 and 2 both play the board:
	// four twos plus an ace kicker neither hole card pairing can beat,
	// so they tie exactly. Equal 50-chip bets from 1 and 2 plus the
	// 1 dead chip from 3 collect into a single 101-chip pot eligible to
	// {1,2} (spec.md §9 boundary scenario 6).
	e.seats[1].Status = poker.Active
	e.seats[2].Status = poker.Active
	e.seats[3].Status = poker.Folded
	e.seats[1].HoleCards = []poker.Card{{Rank: poker.Three, Suit: poker.Clubs}, {Rank: poker.Four, Suit: poker.Clubs}}
	e.seats[2].HoleCards = []poker.Card{{Rank: poker.Five, Suit: poker.Diamonds}, {Rank: poker.Six, Suit: poker.Diamonds}}
	e.community = []poker.Card{
		{Rank: poker.Two, Suit: poker.Clubs},
		{Rank: poker.Two, Suit: poker.Diamonds},
		{Rank: poker.Two, Suit: poker.Hearts},
		{Rank: poker.Two, Suit: poker.Spades},
		{Rank: poker.Ace, Suit: poker.Clubs},
	}

	e.pot = poker.NewPotManager()
	e.pot.AddBet(1, 50)
	e.pot.AddBet(2, 50)
	e.pot.AddBet(3, 1)
	e.pot.Collect(map[int]bool{1: true, 2: true})

	if got := e.pot.Total(); got != 101 {
		t.Fatalf("expected a 101-chip pot, got %d", got)
	}
	if len(e.pot.Pots) != 1 {
		t.Fatalf("expected the dead chip and the matched bets to merge into one pot, got %d pots", len(e.pot.Pots))
	}

	stack1Before, stack2Before := e.seats[1].Stack, e.seats[2].Stack

	var settled SettlementRecord
	e.SetSettlementFunc(func(r SettlementRecord) { settled = r })
	e.runShowdown()

	if len(settled.Winners) != 2 {
		t.Fatalf("expected a two-way split, got %+v", settled.Winners)
	}
	won := map[int]int64{}
	for _, w := range settled.Winners {
		won[w.Seat] = w.Amount
	}
	if won[1]+won[2] != 101 {
		t.Fatalf("expected the full 101-chip pot distributed, got %d", won[1]+won[2])
	}
	// Seat 1 sits immediately clockwise from dealer seat 3, so it takes
	// the odd chip: 51 to seat 1, 50 to seat 2.
	if won[1] != 51 || won[2] != 50 {
		t.Fatalf("expected 51/50 favoring seat 1, got seat1=%d seat2=%d", won[1], won[2])
	}
	if e.seats[1].Stack != stack1Before+51 {
		t.Fatalf("expected seat 1 stack credited 51, got %d", e.seats[1].Stack)
	}
	if e.seats[2].Stack != stack2Before+50 {
		t.Fatalf("expected seat 2 stack credited 50, got %d", e.seats[2].Stack)
	}

	if e.clockwiseDistance(3) != 0 {
		t.Fatalf("expected dealer distance 0, got %d", e.clockwiseDistance(3))
	}
	if e.clockwiseDistance(1) != 1 {
		t.Fatalf("expected seat 1 distance 1, got %d", e.clockwiseDistance(1))
	}
	if e.clockwiseDistance(2) != 2 {
		t.Fatalf("expected seat 2 distance 2, got %d", e.clockwiseDistance(2))
	}
}

func TestAttachRejectsDuplicateSeat(t *testing.T) {
	e, _ := newTestEngine(t, 3)
	if err := e.Attach(1, 1000); err != nil {
		t.Fatal(err)
	}
	err := e.Attach(1, 500)
	var taken *SeatTakenError
	if !errors.As(err, &taken) {
		t.Fatalf("expected SeatTakenError, got %v", err)
	}
}

func TestDetachMidHandIsDeferred(t *testing.T) {
	e, _ := newTestEngine(t, 3)
	_ = e.Attach(1, 1000)
	_ = e.Attach(2, 1000)
	_ = e.Attach(3, 1000)
	e.StartHand()

	_, err := e.Detach(1)
	if !errors.Is(err, ErrDetachDeferred) {
		t.Fatalf("expected ErrDetachDeferred, got %v", err)
	}
	if _, ok := e.seats[1]; !ok {
		t.Fatal("expected seat to remain attached until hand end")
	}
}

func TestValidActionsReflectsCallAmount(t *testing.T) {
	e, _ := newTestEngine(t, 3)
	_ = e.Attach(1, 1000)
	_ = e.Attach(2, 1000)
	_ = e.Attach(3, 1000)
	e.StartHand()

	va, err := e.ValidActions(e.actorSeat)
	if err != nil {
		t.Fatal(err)
	}
	if !va.CanCall || va.CallAmount != 10 {
		t.Fatalf("expected CanCall with amount 10, got %+v", va)
	}
	if !va.CanRaise {
		t.Fatalf("expected CanRaise true, got %+v", va)
	}
}
