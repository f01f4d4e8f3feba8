package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/riverrake/holdem/pkg/engine"
	"github.com/riverrake/holdem/pkg/poker"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndHistoryRoundTrip(t *testing.T) {
	l := openTestLedger(t)

	settled := engine.SettlementRecord{
		Winners: []engine.Winner{
			{Seat: 2, Amount: 140, Rank: poker.Flush},
		},
		Pots:           []engine.PotResult{{Amount: 140, Eligible: []int{1, 2, 3}}},
		Rake:           4,
		CommunityCards: []poker.Card{},
	}

	handID, err := l.Record("table-1", settled, time.Unix(1000, 0))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if handID.String() == "" {
		t.Fatal("expected non-empty hand id")
	}

	history, err := l.History("table-1", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 record, got %d", len(history))
	}
	got := history[0]
	if got.HandID != handID {
		t.Fatalf("expected hand id %v, got %v", handID, got.HandID)
	}
	if got.Settled.Rake != 4 {
		t.Fatalf("expected rake 4, got %d", got.Settled.Rake)
	}
	if len(got.Settled.Winners) != 1 || got.Settled.Winners[0].Seat != 2 {
		t.Fatalf("unexpected winners: %+v", got.Settled.Winners)
	}
}

func TestHistoryRespectsLimitAndOrder(t *testing.T) {
	l := openTestLedger(t)

	for i := 0; i < 3; i++ {
		_, err := l.Record("table-2", engine.SettlementRecord{Rake: int64(i)}, time.Unix(int64(1000+i), 0))
		if err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	history, err := l.History("table-2", 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 rows (limit), got %d", len(history))
	}
	if history[0].Settled.Rake != 2 {
		t.Fatalf("expected newest-first ordering, got rake %d first", history[0].Settled.Rake)
	}
}

func TestHistoryFiltersByTable(t *testing.T) {
	l := openTestLedger(t)
	_, _ = l.Record("table-a", engine.SettlementRecord{Rake: 1}, time.Unix(1, 0))
	_, _ = l.Record("table-b", engine.SettlementRecord{Rake: 2}, time.Unix(2, 0))

	history, err := l.History("table-a", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Settled.Rake != 1 {
		t.Fatalf("expected only table-a's record, got %+v", history)
	}
}
