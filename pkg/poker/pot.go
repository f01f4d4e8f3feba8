package poker

import "sort"

// Pot is a single chip pot together with the seats eligible to win it.
// Eligibility reflects contribution level only; callers must
// additionally exclude folded seats when judging a showdown (spec.md
// §4.3's "contributions from folded players remain in the pots, only
// eligibility to win excludes them").
type Pot struct {
	Amount    int64
	Eligible  map[int]bool
}

func newPot(amount int64) *Pot {
	return &Pot{Amount: amount, Eligible: make(map[int]bool)}
}

// PotManager accumulates a betting round's contributions and splits
// them into main/side pots on Collect. It is the direct descendant of
// the teacher's pkg/poker.PotManager, with CreateSidePots replaced by
// the level-partition algorithm spec.md §4.3 specifies (see
// SPEC_FULL.md §4.3 for why the teacher's whole-hand TotalBets-based
// split was insufficient across multiple streets of all-ins).
type PotManager struct {
	Pots []*Pot
	bet  map[int]int64
}

// NewPotManager returns a manager with a single empty main pot.
func NewPotManager() *PotManager {
	return &PotManager{
		Pots: []*Pot{newPot(0)},
		bet:  make(map[int]int64),
	}
}

// AddBet accumulates chips into seat's contribution for the current
// betting round.
func (pm *PotManager) AddBet(seat int, amount int64) {
	pm.bet[seat] += amount
}

// CurrentBet returns seat's accumulated contribution this round.
func (pm *PotManager) CurrentBet(seat int) int64 {
	return pm.bet[seat]
}

// Total returns the sum of all pot amounts (not including the
// in-flight, uncollected round bets).
func (pm *PotManager) Total() int64 {
	var total int64
	for _, p := range pm.Pots {
		total += p.Amount
	}
	return total
}

// Reset clears all pots and the in-flight bet map.
func (pm *PotManager) Reset() {
	pm.Pots = []*Pot{newPot(0)}
	pm.bet = make(map[int]int64)
}

// Collect partitions this round's contributions into ascending
// side-pot levels and folds them into pm.Pots, merging each new pot
// into the last collected pot when both share the same eligible set. notFolded
// is the set of seats still in the hand (not folded) this round;
// seats not in notFolded never become eligible for new pots even if
// they contributed (their chips still count toward pot amounts).
//
// This is the "hardest routine" spec.md §4.3 names: for each distinct
// contribution level L_k (L_0 = 0), every seat that contributed
// contributes min(bet, L_k) - min(bet, L_k-1) to that level's pot, and
// the pot's eligible set is every not-folded seat whose bet reached
// L_k.
func (pm *PotManager) Collect(notFolded map[int]bool) {
	if len(pm.bet) == 0 {
		return
	}

	levelSet := make(map[int64]bool, len(pm.bet))
	for _, amt := range pm.bet {
		if amt > 0 {
			levelSet[amt] = true
		}
	}
	if len(levelSet) == 0 {
		pm.bet = make(map[int]int64)
		return
	}

	levels := make([]int64, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	var prev int64
	newPots := make([]*Pot, 0, len(levels))
	for _, level := range levels {
		pot := newPot(0)
		for seat, bet := range pm.bet {
			contribution := clampInt64(bet, prev, level) - clampInt64(bet, prev, prev)
			if contribution > 0 {
				pot.Amount += contribution
			}
			if notFolded[seat] && bet >= level {
				pot.Eligible[seat] = true
			}
		}
		if pot.Amount > 0 {
			newPots = append(newPots, pot)
		}
		prev = level
	}

	pm.mergeIn(newPots)
	pm.bet = make(map[int]int64)
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return 0
	}
	capped := v
	if capped > hi {
		capped = hi
	}
	return capped - lo
}

// mergeIn appends newly collected pots, merging consecutive pots that
// share an identical eligible set (spec.md §4.3: "pots with equal
// eligible sets from consecutive levels may be merged").
func (pm *PotManager) mergeIn(newPots []*Pot) {
	for _, p := range newPots {
		if last := pm.lastPot(); last != nil && sameEligibility(last.Eligible, p.Eligible) {
			last.Amount += p.Amount
			continue
		}
		pm.Pots = append(pm.Pots, p)
	}
	// Drop the initial placeholder empty main pot if real pots exist.
	filtered := pm.Pots[:0]
	for _, p := range pm.Pots {
		if p.Amount > 0 {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		filtered = []*Pot{newPot(0)}
	}
	pm.Pots = filtered
}

func (pm *PotManager) lastPot() *Pot {
	for i := len(pm.Pots) - 1; i >= 0; i-- {
		if pm.Pots[i].Amount > 0 {
			return pm.Pots[i]
		}
	}
	return nil
}

func sameEligibility(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for seat := range a {
		if !b[seat] {
			return false
		}
	}
	return true
}
