// Package registry implements the Table Registry & Broadcast Bridge
// (spec.md §4.5): a process-wide map from table_id to a running Table
// worker, plus the Sink capability a Table uses to deliver
// personalized state snapshots to connected seats.
package registry

import (
	"sync"

	"github.com/coder/quartz"
	"github.com/decred/slog"

	"github.com/riverrake/holdem/pkg/engine"
)

// TableRegistry owns every live Table for the process. It replaces
// the module-level mutable engine map SPEC_FULL.md §9 warns against
// with an explicit value a caller constructs and threads through its
// handlers.
type TableRegistry struct {
	mu     sync.RWMutex
	tables map[string]*Table

	sink  Sink
	clock quartz.Clock
	log   slog.Logger
}

// NewTableRegistry returns an empty registry. sink is the broadcast
// capability every created Table is bound to; clock is shared by
// every table's engine and turn timer (a real clock in production, a
// quartz.Mock in tests).
func NewTableRegistry(sink Sink, clock quartz.Clock, log slog.Logger) *TableRegistry {
	if sink == nil {
		sink = NopSink{}
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	if log == nil {
		log = slog.Disabled
	}
	return &TableRegistry{
		tables: make(map[string]*Table),
		sink:   sink,
		clock:  clock,
		log:    log,
	}
}

// Create registers a new table and starts its worker. It fails with
// TableExistsError if tableID is already registered.
func (r *TableRegistry) Create(tableID string, cfg engine.Config) (*Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[tableID]; ok {
		return nil, &TableExistsError{TableID: tableID}
	}
	t := newTable(tableID, cfg, r.clock, r.sink, r.log)
	r.tables[tableID] = t
	return t, nil
}

// Lookup returns the table registered under tableID, or
// TableUnknownError.
func (r *TableRegistry) Lookup(tableID string) (*Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[tableID]
	if !ok {
		return nil, &TableUnknownError{TableID: tableID}
	}
	return t, nil
}

// Remove shuts a table down (aborting any hand in progress, refunding
// every contender) and drops it from the registry.
func (r *TableRegistry) Remove(tableID string) error {
	r.mu.Lock()
	t, ok := r.tables[tableID]
	if ok {
		delete(r.tables, tableID)
	}
	r.mu.Unlock()
	if !ok {
		return &TableUnknownError{TableID: tableID}
	}
	t.Shutdown()
	return nil
}

// TableIDs returns every currently registered table ID, for admin/
// listing use; order is unspecified.
func (r *TableRegistry) TableIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.tables))
	for id := range r.tables {
		ids = append(ids, id)
	}
	return ids
}
