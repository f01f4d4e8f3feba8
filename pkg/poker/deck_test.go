package poker

import (
	"errors"
	"testing"
)

func TestNewDeckHas52UniqueCards(t *testing.T) {
	d := NewDeck()
	if d.Remaining() != 52 {
		t.Fatalf("expected 52 cards, got %d", d.Remaining())
	}

	seen := make(map[Card]bool)
	for _, c := range d.cards {
		if seen[c] {
			t.Fatalf("duplicate card found: %v", c)
		}
		seen[c] = true
	}

	suitCount := make(map[Suit]int)
	rankCount := make(map[Rank]int)
	for _, c := range d.cards {
		suitCount[c.Suit]++
		rankCount[c.Rank]++
	}
	for s, n := range suitCount {
		if n != 13 {
			t.Errorf("suit %v: expected 13 cards, got %d", s, n)
		}
	}
	for r, n := range rankCount {
		if n != 4 {
			t.Errorf("rank %v: expected 4 cards, got %d", r, n)
		}
	}
}

func TestDealAdvancesAndRemoves(t *testing.T) {
	d := NewDeck()
	dealt, err := d.Deal(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dealt) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(dealt))
	}
	if d.Remaining() != 50 {
		t.Fatalf("expected 50 remaining, got %d", d.Remaining())
	}
}

func TestBurnRemovesOneUnrevealed(t *testing.T) {
	d := NewDeck()
	if err := d.Burn(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Remaining() != 51 {
		t.Fatalf("expected 51 remaining after burn, got %d", d.Remaining())
	}
}

func TestDealMoreThanRemainingFails(t *testing.T) {
	d := NewDeck()
	_, err := d.Deal(53)
	if err == nil {
		t.Fatal("expected NotEnoughCardsError")
	}
	var nec *NotEnoughCardsError
	if !errors.As(err, &nec) {
		t.Fatalf("expected NotEnoughCardsError, got %T", err)
	}
	if nec.Requested != 53 || nec.Remaining != 52 {
		t.Fatalf("unexpected error fields: %+v", nec)
	}
}

func TestResetReshufflesToFull(t *testing.T) {
	d := NewDeck()
	_, _ = d.Deal(20)
	d.Reset()
	if d.Remaining() != 52 {
		t.Fatalf("expected 52 after reset, got %d", d.Remaining())
	}
}

func TestRemainingAccountsForDealsAndBurns(t *testing.T) {
	d := NewDeck()
	_, _ = d.Deal(9) // 2 hole cards x 4 players + 1 spare, arbitrary
	_ = d.Burn()
	_, _ = d.Deal(3)
	if d.Remaining() != 52-9-1-3 {
		t.Fatalf("expected %d remaining, got %d", 52-9-1-3, d.Remaining())
	}
}
