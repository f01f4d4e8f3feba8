package poker

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"time"
)

func fallbackSeed() int64 {
	return time.Now().UnixNano()
}

// NotEnoughCardsError is returned by Deal/Burn when fewer cards remain
// than requested.
type NotEnoughCardsError struct {
	Requested int
	Remaining int
}

func (e *NotEnoughCardsError) Error() string {
	return "poker: not enough cards remaining"
}

// Deck is an ordered, finite sequence of distinct cards. It is not
// safe for concurrent use; callers serialize access the same way the
// Hand Engine serializes everything else (see SPEC_FULL.md §5).
type Deck struct {
	cards []Card
	rng   *mrand.Rand
}

// NewDeck returns a deck seeded from OS entropy, reset to a fresh
// uniformly random 52-card permutation. The randomness source is
// seeded once from crypto/rand, per spec.md §4.1's requirement that
// shuffles not be predictable; math/rand.Rand is then used as the
// shuffling engine because Fisher-Yates over a concrete slice is
// simpler to drive from a single *rand.Rand than from io.Reader calls
// per swap.
func NewDeck() *Deck {
	d := &Deck{}
	d.seed()
	d.Reset()
	return d
}

func (d *Deck) seed() {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing indicates a broken host; fall back to a
		// time-derived seed rather than leaving the deck unseeded.
		d.rng = mrand.New(mrand.NewSource(fallbackSeed()))
		return
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]))
	d.rng = mrand.New(mrand.NewSource(seed))
}

// Reset re-populates all 52 distinct cards in a uniformly random
// order.
func (d *Deck) Reset() {
	d.cards = make([]Card, 0, 52)
	for suit := Clubs; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, Card{Rank: rank, Suit: suit})
		}
	}
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Deal removes and returns the first k cards.
func (d *Deck) Deal(k int) ([]Card, error) {
	if k > len(d.cards) {
		return nil, &NotEnoughCardsError{Requested: k, Remaining: len(d.cards)}
	}
	dealt := make([]Card, k)
	copy(dealt, d.cards[:k])
	d.cards = d.cards[k:]
	return dealt, nil
}

// DealOne deals a single card.
func (d *Deck) DealOne() (Card, error) {
	cards, err := d.Deal(1)
	if err != nil {
		return Card{}, err
	}
	return cards[0], nil
}

// Burn discards one card face-down without revealing it.
func (d *Deck) Burn() error {
	_, err := d.Deal(1)
	return err
}

// Remaining returns the count of cards left to deal.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
