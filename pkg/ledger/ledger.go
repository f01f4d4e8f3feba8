// Package ledger persists completed (or aborted) hand settlements to
// sqlite so a table's history survives process restarts. It is a
// direct descendant of pkg/server/internal/db, narrowed to the one
// table this system actually needs: one row per settled hand.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"
	"github.com/riverrake/holdem/pkg/engine"
)

// Record is one persisted hand settlement, keyed by its table and a
// fresh hand ID assigned at write time.
type Record struct {
	HandID    uuid.UUID
	TableID   string
	Settled   engine.SettlementRecord
	CreatedAt time.Time
}

// Ledger is a sqlite-backed settlement store.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and
// ensures its schema exists.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: create schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS settlements (
			hand_id TEXT PRIMARY KEY,
			table_id TEXT NOT NULL,
			winners TEXT NOT NULL,
			pots TEXT NOT NULL,
			rake INTEGER NOT NULL,
			community_cards TEXT NOT NULL,
			aborted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

// Record appends one settlement for tableID and returns the hand ID it
// was stored under.
func (l *Ledger) Record(tableID string, settled engine.SettlementRecord, now time.Time) (uuid.UUID, error) {
	handID := uuid.New()

	winners, err := json.Marshal(settled.Winners)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ledger: marshal winners: %w", err)
	}
	pots, err := json.Marshal(settled.Pots)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ledger: marshal pots: %w", err)
	}
	community, err := json.Marshal(settled.CommunityCards)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ledger: marshal community cards: %w", err)
	}

	_, err = l.db.Exec(
		`INSERT INTO settlements (hand_id, table_id, winners, pots, rake, community_cards, aborted, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		handID.String(), tableID, string(winners), string(pots), settled.Rake, string(community), settled.Aborted, now,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ledger: insert settlement: %w", err)
	}
	return handID, nil
}

// History returns the most recent settlements for a table, newest
// first, capped at limit rows.
func (l *Ledger) History(tableID string, limit int) ([]Record, error) {
	rows, err := l.db.Query(
		`SELECT hand_id, table_id, winners, pots, rake, community_cards, aborted, created_at
		 FROM settlements WHERE table_id = ? ORDER BY created_at DESC LIMIT ?`,
		tableID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: query history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			handIDStr, winnersJSON, potsJSON, communityJSON string
			rec                                             Record
		)
		if err := rows.Scan(&handIDStr, &rec.TableID, &winnersJSON, &potsJSON, &rec.Settled.Rake, &communityJSON, &rec.Settled.Aborted, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("ledger: scan settlement row: %w", err)
		}
		handID, err := uuid.Parse(handIDStr)
		if err != nil {
			return nil, fmt.Errorf("ledger: parse hand id: %w", err)
		}
		rec.HandID = handID
		if err := json.Unmarshal([]byte(winnersJSON), &rec.Settled.Winners); err != nil {
			return nil, fmt.Errorf("ledger: unmarshal winners: %w", err)
		}
		if err := json.Unmarshal([]byte(potsJSON), &rec.Settled.Pots); err != nil {
			return nil, fmt.Errorf("ledger: unmarshal pots: %w", err)
		}
		if err := json.Unmarshal([]byte(communityJSON), &rec.Settled.CommunityCards); err != nil {
			return nil, fmt.Errorf("ledger: unmarshal community cards: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}
