package engine

import (
	"sort"

	"github.com/decred/slog"

	"github.com/riverrake/holdem/pkg/poker"
)

// Engine is a single table's Hand Engine. It owns the deck, the pot,
// every attached seat's PlayerRecord, and the current hand's betting
// state. Per SPEC_FULL.md §5 it is not internally thread-safe: a
// caller (the per-table worker in pkg/registry) must serialize every
// call to Attach/Detach/StartHand/Submit/OnTimeout.
type Engine struct {
	config Config
	clock  Clock
	log    slog.Logger

	seats     map[int]*poker.PlayerRecord
	seatOrder []int // all attached seats, ascending

	handSeats     []int       // seats dealt into the current hand, ascending, fixed for the hand
	handSeatIndex map[int]int // seat -> index into handSeats
	pendingDetach map[int]bool

	deck      *poker.Deck
	pot       *poker.PotManager
	community []poker.Card
	street    Street

	dealerSeat     int
	actorSeat      int
	currentBet     int64
	minRaise       int64
	actedSet       map[int]bool
	noReraise      map[int]bool // seats closed out of raising until the next full raise
	turnDeadline   int64        // unix millis
	handInProgress bool

	onBroadcast  func()
	onSettlement func(SettlementRecord)
}

// New returns an Engine ready to accept Attach calls.
func New(cfg Config, clock Clock, log slog.Logger) *Engine {
	if clock == nil {
		clock = RealClock()
	}
	if log == nil {
		log = slog.Disabled
	}
	return &Engine{
		config:        cfg.withDefaults(),
		clock:         clock,
		log:           log,
		seats:         make(map[int]*poker.PlayerRecord),
		pendingDetach: make(map[int]bool),
		pot:           poker.NewPotManager(),
		dealerSeat:    -1,
	}
}

// SetBroadcastFunc installs the callback invoked after every state
// change the engine makes (the single suspension point spec.md §5
// names). It may be nil.
func (e *Engine) SetBroadcastFunc(fn func()) { e.onBroadcast = fn }

// SetSettlementFunc installs the callback invoked once per completed
// (or aborted) hand with its SettlementRecord.
func (e *Engine) SetSettlementFunc(fn func(SettlementRecord)) { e.onSettlement = fn }

func (e *Engine) broadcast() {
	if e.onBroadcast != nil {
		e.onBroadcast()
	}
}

func (e *Engine) emitSettlement(rec SettlementRecord) {
	if e.onSettlement != nil {
		e.onSettlement(rec)
	}
}

// HandInProgress reports whether a hand is currently live.
func (e *Engine) HandInProgress() bool { return e.handInProgress }

// TurnDeadlineUnixMilli returns the current actor's deadline.
func (e *Engine) TurnDeadlineUnixMilli() int64 { return e.turnDeadline }

// Attach seats a new player with the given starting stack. The seat
// joins as SittingOut and is picked up at the next StartHand.
func (e *Engine) Attach(seat int, stack int64) error {
	if seat < 1 || seat > e.config.MaxSeats {
		return &SeatOutOfRangeError{Seat: seat}
	}
	if _, ok := e.seats[seat]; ok {
		return &SeatTakenError{Seat: seat}
	}
	e.seats[seat] = poker.NewPlayerRecord(seat, stack)
	e.seatOrder = append(e.seatOrder, seat)
	sort.Ints(e.seatOrder)
	return nil
}

// Detach removes a seat and returns its stack. During a hand the seat
// is part of, removal is deferred until the hand ends (ErrDetachDeferred);
// the caller must fold via Submit to stop acting, and re-poll Detach,
// or rely on the settlement callback to know when the stack is final.
func (e *Engine) Detach(seat int) (int64, error) {
	rec, ok := e.seats[seat]
	if !ok {
		return 0, &UnknownSeatError{Seat: seat}
	}
	if e.handInProgress {
		if _, inHand := e.handSeatIndex[seat]; inHand {
			e.pendingDetach[seat] = true
			return 0, ErrDetachDeferred
		}
	}
	e.removeSeat(seat)
	return rec.Stack, nil
}

func (e *Engine) removeSeat(seat int) {
	delete(e.seats, seat)
	delete(e.pendingDetach, seat)
	for i, s := range e.seatOrder {
		if s == seat {
			e.seatOrder = append(e.seatOrder[:i], e.seatOrder[i+1:]...)
			break
		}
	}
}

func (e *Engine) finalizePendingDetaches() {
	for seat := range e.pendingDetach {
		e.removeSeat(seat)
	}
}

// StartHand begins a new hand if enough seated players have chips.
func (e *Engine) StartHand() HandOutcome {
	if e.handInProgress {
		return HandInProgress
	}

	var eligible []int
	for _, seat := range e.seatOrder {
		if e.seats[seat].Stack > 0 {
			eligible = append(eligible, seat)
		}
	}
	if len(eligible) < 2 {
		return NotEnoughPlayers
	}

	if e.dealerSeat < 0 {
		e.dealerSeat = eligible[0]
	} else {
		e.dealerSeat = e.nextOccupiedWithChips(e.dealerSeat+1, eligible)
	}

	e.handSeats = eligible
	e.handSeatIndex = make(map[int]int, len(eligible))
	for i, seat := range eligible {
		e.handSeatIndex[seat] = i
		e.seats[seat].ResetForHand()
	}

	e.deck = poker.NewDeck()
	e.community = nil
	e.pot = poker.NewPotManager()
	e.street = Preflop

	for _, seat := range eligible {
		cards, _ := e.deck.Deal(2)
		e.seats[seat].HoleCards = cards
	}

	sbSeat, bbSeat := e.blindSeats(eligible)
	e.postBlind(sbSeat, e.config.SmallBlind)
	e.postBlind(bbSeat, e.config.BigBlind)

	e.currentBet = e.config.BigBlind
	e.minRaise = e.config.BigBlind
	e.actedSet = make(map[int]bool)
	e.noReraise = make(map[int]bool)
	e.actorSeat = e.nextActive(bbSeat)
	e.armTimer()
	e.handInProgress = true

	e.broadcast()
	return Started
}

// blindSeats returns (smallBlind, bigBlind) seats for the hand. In
// heads-up play the dealer posts the small blind and acts first
// preflop (spec.md §8 boundary scenario 4); with 3+ players the blinds
// are the two seats after the dealer.
func (e *Engine) blindSeats(eligible []int) (sb, bb int) {
	n := len(eligible)
	idx := e.handSeatIndex[e.dealerSeat]
	if n == 2 {
		return eligible[idx], eligible[(idx+1)%n]
	}
	return eligible[(idx+1)%n], eligible[(idx+2)%n]
}

func (e *Engine) postBlind(seat int, amount int64) {
	rec := e.seats[seat]
	actual := amount
	if rec.Stack < actual {
		actual = rec.Stack
	}
	rec.PutChips(actual)
	e.pot.AddBet(seat, actual)
}

func (e *Engine) armTimer() {
	e.turnDeadline = e.clock.Now().Add(e.config.turnTimeout()).UnixMilli()
}

// Submit applies a single action from seat, advancing the hand's
// betting round and, if the round closes, the street (or showdown).
func (e *Engine) Submit(a Action) (err error) {
	defer e.recoverToAbort(&err)

	if !e.handInProgress {
		return &NoHandInProgressError{}
	}
	rec, ok := e.seats[a.Seat]
	if !ok {
		return &UnknownSeatError{Seat: a.Seat}
	}
	if a.Seat != e.actorSeat {
		return &NotYourTurnError{Seat: a.Seat}
	}

	if err := e.apply(rec, a); err != nil {
		return err
	}
	e.actedSet[rec.Seat] = true
	e.advanceOrTransition()
	e.broadcast()
	return nil
}

// OnTimeout folds the current actor on behalf of the scheduling layer
// once its turn deadline has elapsed. Calling it before the deadline
// is a no-op.
func (e *Engine) OnTimeout() {
	if !e.handInProgress {
		return
	}
	if e.clock.Now().UnixMilli() < e.turnDeadline {
		return
	}
	seat := e.actorSeat
	_ = e.apply(e.seats[seat], Action{Seat: seat, Kind: Fold})
	e.actedSet[seat] = true
	e.advanceOrTransition()
	e.broadcast()
}

func (e *Engine) advanceOrTransition() {
	if e.roundOver() {
		e.transitionRound()
		return
	}
	e.actorSeat = e.nextActive(e.actorSeat)
	e.armTimer()
}

func (e *Engine) apply(rec *poker.PlayerRecord, a Action) error {
	switch a.Kind {
	case Fold:
		rec.Fold()
		return nil

	case Check:
		if rec.CurrentBet != e.currentBet {
			return &IllegalActionError{Reason: "cannot check: a bet is outstanding"}
		}
		return nil

	case Call:
		delta := e.currentBet - rec.CurrentBet
		if delta < 0 {
			delta = 0
		}
		if delta > rec.Stack {
			delta = rec.Stack
		}
		rec.PutChips(delta)
		e.pot.AddBet(rec.Seat, delta)
		return nil

	case Bet:
		if e.currentBet != 0 {
			return &IllegalActionError{Reason: "cannot bet: a bet is already outstanding, use raise"}
		}
		return e.raiseTo(rec, a.Amount)

	case Raise:
		if e.currentBet == 0 {
			return &IllegalActionError{Reason: "cannot raise: no bet outstanding, use bet"}
		}
		if e.noReraise[rec.Seat] {
			return &IllegalActionError{Reason: "cannot raise: action is closed until a full raise reopens it"}
		}
		return e.raiseTo(rec, a.Amount)

	case AllIn:
		maxTotal := rec.CurrentBet + rec.Stack
		if maxTotal > e.currentBet {
			if e.noReraise[rec.Seat] {
				return &IllegalActionError{Reason: "cannot raise all-in: action is closed until a full raise reopens it"}
			}
			return e.raiseTo(rec, maxTotal)
		}
		delta := e.currentBet - rec.CurrentBet
		if delta > rec.Stack {
			delta = rec.Stack
		}
		rec.PutChips(delta)
		e.pot.AddBet(rec.Seat, delta)
		return nil

	default:
		return &IllegalActionError{Reason: "unknown action kind"}
	}
}

// raiseTo moves rec's total contribution this round up to total,
// legal only if it reaches at least currentBet+minRaise or commits
// rec's entire stack. A full raise reopens the action by reseeding
// actedSet to {rec.Seat} and clearing noReraise for everyone; a short
// all-in raise does neither, and additionally closes the raise option
// for every seat that had already acted this round (spec.md §4.4,
// boundary scenario 2) until the next full raise reopens it.
func (e *Engine) raiseTo(rec *poker.PlayerRecord, total int64) error {
	maxTotal := rec.CurrentBet + rec.Stack
	isAllIn := total == maxTotal
	if total > maxTotal {
		return &AmountOutOfBoundsError{Requested: total, MinTotal: e.currentBet + e.minRaise, MaxTotal: maxTotal}
	}
	if total < e.currentBet+e.minRaise && !isAllIn {
		return &AmountOutOfBoundsError{Requested: total, MinTotal: e.currentBet + e.minRaise, MaxTotal: maxTotal}
	}
	delta := total - rec.CurrentBet
	if delta < 0 {
		return &IllegalActionError{Reason: "cannot decrease a bet"}
	}

	increment := total - e.currentBet
	rec.PutChips(delta)
	e.pot.AddBet(rec.Seat, delta)
	e.currentBet = total

	if increment >= e.minRaise {
		e.minRaise = increment
		e.actedSet = map[int]bool{rec.Seat: true}
		e.noReraise = make(map[int]bool)
	} else {
		for seat := range e.actedSet {
			if seat != rec.Seat {
				e.noReraise[seat] = true
			}
		}
	}
	return nil
}

// roundOver reports whether every seat still Active has matched
// currentBet and has acted since the last raise, or at most one
// contender remains.
func (e *Engine) roundOver() bool {
	contenders := 0
	for _, seat := range e.handSeats {
		if e.seats[seat].Status != poker.Folded {
			contenders++
		}
	}
	if contenders <= 1 {
		return true
	}
	for _, seat := range e.handSeats {
		rec := e.seats[seat]
		if rec.Status != poker.Active {
			continue
		}
		if !e.actedSet[seat] || rec.CurrentBet != e.currentBet {
			return false
		}
	}
	return true
}

func (e *Engine) notFoldedSeats() map[int]bool {
	out := make(map[int]bool, len(e.handSeats))
	for _, seat := range e.handSeats {
		if e.seats[seat].Status != poker.Folded {
			out[seat] = true
		}
	}
	return out
}

func (e *Engine) transitionRound() {
	notFolded := e.notFoldedSeats()
	e.pot.Collect(notFolded)
	for _, seat := range e.handSeats {
		e.seats[seat].CurrentBet = 0
	}
	e.currentBet = 0
	e.minRaise = e.config.BigBlind
	e.actedSet = make(map[int]bool)
	e.noReraise = make(map[int]bool)

	if len(notFolded) <= 1 {
		var winner int
		for seat := range notFolded {
			winner = seat
		}
		e.settleUncontested(winner)
		return
	}

	activeCount := 0
	for _, seat := range e.handSeats {
		if e.seats[seat].Status == poker.Active {
			activeCount++
		}
	}
	if activeCount <= 1 {
		e.runOutBoard()
		e.runShowdown()
		return
	}

	e.advanceStreet()
}

func (e *Engine) advanceStreet() {
	switch e.street {
	case Preflop:
		_ = e.deck.Burn()
		cards, _ := e.deck.Deal(3)
		e.community = append(e.community, cards...)
		e.street = Flop
	case Flop:
		_ = e.deck.Burn()
		card, _ := e.deck.DealOne()
		e.community = append(e.community, card)
		e.street = Turn
	case Turn:
		_ = e.deck.Burn()
		card, _ := e.deck.DealOne()
		e.community = append(e.community, card)
		e.street = River
	case River:
		e.street = Showdown
		e.runShowdown()
		return
	}

	e.actorSeat = e.nextActive(e.dealerSeat)
	e.armTimer()
	e.broadcast()
}

// runOutBoard deals any remaining community cards when betting has
// ended early because at most one seat can still act (spec.md §4.4:
// "deal remaining streets with no further betting").
func (e *Engine) runOutBoard() {
	for e.street != River {
		switch e.street {
		case Preflop:
			_ = e.deck.Burn()
			cards, _ := e.deck.Deal(3)
			e.community = append(e.community, cards...)
			e.street = Flop
		case Flop:
			_ = e.deck.Burn()
			card, _ := e.deck.DealOne()
			e.community = append(e.community, card)
			e.street = Turn
		case Turn:
			_ = e.deck.Burn()
			card, _ := e.deck.DealOne()
			e.community = append(e.community, card)
			e.street = River
		}
	}
	e.street = Showdown
}

func (e *Engine) settleUncontested(winner int) {
	total := e.pot.Total()
	rake := total * e.config.RakePercent / 100
	winnings := total - rake
	e.seats[winner].Stack += winnings

	rec := SettlementRecord{
		Winners:        []Winner{{Seat: winner, Amount: winnings}},
		Pots:           e.potResults(),
		Rake:           rake,
		CommunityCards: e.community,
	}
	e.finishHand(rec)
}

func (e *Engine) runShowdown() {
	e.street = Showdown
	notFoldedNow := e.notFoldedSeats()

	var winners []Winner
	var totalRake int64

	for _, pot := range e.pot.Pots {
		var eligible []int
		for seat := range pot.Eligible {
			if notFoldedNow[seat] {
				eligible = append(eligible, seat)
			}
		}
		sort.Ints(eligible)
		if len(eligible) == 0 {
			continue
		}

		best := poker.Evaluate(e.handCards(eligible[0]))
		bestSeats := []int{eligible[0]}
		for _, seat := range eligible[1:] {
			strength := poker.Evaluate(e.handCards(seat))
			switch cmp := strength.Compare(best); {
			case cmp > 0:
				best = strength
				bestSeats = []int{seat}
			case cmp == 0:
				bestSeats = append(bestSeats, seat)
			}
		}

		rake := pot.Amount * e.config.RakePercent / 100
		totalRake += rake
		distributable := pot.Amount - rake
		share := distributable / int64(len(bestSeats))
		remainder := distributable % int64(len(bestSeats))

		ordered := append([]int{}, bestSeats...)
		sort.Slice(ordered, func(i, j int) bool {
			return e.clockwiseDistance(ordered[i]) < e.clockwiseDistance(ordered[j])
		})
		for i, seat := range ordered {
			amt := share
			if int64(i) < remainder {
				amt++
			}
			e.seats[seat].Stack += amt
			winners = append(winners, Winner{Seat: seat, Amount: amt, Rank: best.Rank, HoleCards: e.seats[seat].HoleCards})
		}
	}

	rec := SettlementRecord{
		Winners:        winners,
		Pots:           e.potResults(),
		Rake:           totalRake,
		CommunityCards: e.community,
	}
	e.finishHand(rec)
}

func (e *Engine) handCards(seat int) []poker.Card {
	rec := e.seats[seat]
	cards := make([]poker.Card, 0, len(rec.HoleCards)+len(e.community))
	cards = append(cards, rec.HoleCards...)
	cards = append(cards, e.community...)
	return cards
}

// clockwiseDistance orders seats by how many positions after the
// dealer they sit, used to award odd remainder chips to the seat
// closest clockwise from the dealer (spec.md §4.4).
func (e *Engine) clockwiseDistance(seat int) int {
	n := len(e.handSeats)
	dealerIdx := e.handSeatIndex[e.dealerSeat]
	seatIdx := e.handSeatIndex[seat]
	return (seatIdx - dealerIdx + n) % n
}

func (e *Engine) potResults() []PotResult {
	out := make([]PotResult, 0, len(e.pot.Pots))
	for _, p := range e.pot.Pots {
		var elig []int
		for seat := range p.Eligible {
			elig = append(elig, seat)
		}
		sort.Ints(elig)
		out = append(out, PotResult{Amount: p.Amount, Eligible: elig})
	}
	return out
}

func (e *Engine) finishHand(rec SettlementRecord) {
	e.handInProgress = false
	e.finalizePendingDetaches()
	e.emitSettlement(rec)
	e.broadcast()
}

// abortHand refunds every contender its total contribution this hand,
// with no rake and no winners, then releases the hand (spec.md §7
// "Engine invariant violations").
func (e *Engine) abortHand() {
	for _, seat := range e.handSeats {
		rec := e.seats[seat]
		rec.Stack += rec.TotalBetThisHand
	}
	e.pot.Reset()
	e.handInProgress = false
	e.finalizePendingDetaches()
	e.emitSettlement(SettlementRecord{Aborted: true, CommunityCards: e.community})
	e.broadcast()
}

// Abort forcibly ends any hand in progress, refunding every
// contender's stack with no rake and no winners. This is the shutdown
// path a per-table worker calls when its owning process is tearing
// down (SPEC_FULL.md §5 Cancellation): no in-flight action completes
// after shutdown, so the hand simply releases rather than settling.
// It is a no-op if no hand is in progress.
func (e *Engine) Abort() {
	if !e.handInProgress {
		return
	}
	e.log.Warnf("engine: hand aborted by table shutdown")
	e.abortHand()
}

// recoverToAbort converts a panic (an internal invariant violation)
// into an aborted-hand settlement that refunds every contender its
// total contribution this hand, rather than crashing the table.
func (e *Engine) recoverToAbort(errOut *error) {
	r := recover()
	if r == nil {
		return
	}
	e.log.Errorf("engine: internal invariant violated, aborting hand: %v", r)
	e.abortHand()
	*errOut = &IllegalActionError{Reason: "internal error, hand aborted"}
}
