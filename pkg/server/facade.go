// Package server exposes the engine facade spec.md §6 names
// (attach_seat/detach_seat/start_hand/submit_action/snapshot/
// settlement_stream) as plain Go methods over a TableRegistry — the
// layer a websocket handler, an HTTP handler, or a test calls
// directly, the same shape the teacher's RPC service methods occupy
// minus the protobuf marshaling (SPEC_FULL.md §6.1).
package server

import (
	"github.com/riverrake/holdem/pkg/engine"
	"github.com/riverrake/holdem/pkg/registry"
)

// Facade is the external entry point for table management and
// in-hand actions. It holds no state of its own beyond the registry;
// every method either creates/removes a table or forwards to the
// table's single-consumer worker.
type Facade struct {
	registry *registry.TableRegistry
}

// NewFacade wraps an existing TableRegistry.
func NewFacade(reg *registry.TableRegistry) *Facade {
	return &Facade{registry: reg}
}

// CreateTable registers a new table with the given configuration.
func (f *Facade) CreateTable(tableID string, cfg engine.Config) error {
	_, err := f.registry.Create(tableID, cfg)
	return err
}

// RemoveTable shuts a table down, aborting any hand in progress.
func (f *Facade) RemoveTable(tableID string) error {
	return f.registry.Remove(tableID)
}

// AttachSeat seats a player at a table between hands.
func (f *Facade) AttachSeat(tableID string, seat int, stack int64) error {
	t, err := f.registry.Lookup(tableID)
	if err != nil {
		return err
	}
	return t.Attach(seat, stack)
}

// DetachSeat removes a seated player, returning the stack they leave
// with (or engine.ErrDetachDeferred if they're mid-hand).
func (f *Facade) DetachSeat(tableID string, seat int) (int64, error) {
	t, err := f.registry.Lookup(tableID)
	if err != nil {
		return 0, err
	}
	return t.Detach(seat)
}

// StartHand begins a new hand at tableID if enough seats are
// eligible.
func (f *Facade) StartHand(tableID string) (engine.HandOutcome, error) {
	t, err := f.registry.Lookup(tableID)
	if err != nil {
		return 0, err
	}
	return t.StartHand(), nil
}

// SubmitAction applies seat's action at tableID.
func (f *Facade) SubmitAction(tableID string, seat int, kind engine.ActionKind, amount int64) error {
	t, err := f.registry.Lookup(tableID)
	if err != nil {
		return err
	}
	return t.Submit(engine.Action{Seat: seat, Kind: kind, Amount: amount})
}

// ValidActions reports the legal action set for seat right now.
func (f *Facade) ValidActions(tableID string, seat int) (engine.ValidActionSet, error) {
	t, err := f.registry.Lookup(tableID)
	if err != nil {
		return engine.ValidActionSet{}, err
	}
	return t.ValidActions(seat)
}

// Snapshot renders tableID's current state, wire-ready, for viewerSeat
// (or fully hole-card-hidden if nil).
func (f *Facade) Snapshot(tableID string, viewerSeat *int) (registry.ViewWire, error) {
	t, err := f.registry.Lookup(tableID)
	if err != nil {
		return registry.ViewWire{}, err
	}
	return registry.NewViewWire(tableID, t.Snapshot(viewerSeat)), nil
}

// SettlementStream returns a channel receiving one SettlementRecord
// per completed (or aborted) hand at tableID, closed when the table
// is removed.
func (f *Facade) SettlementStream(tableID string) (<-chan engine.SettlementRecord, error) {
	t, err := f.registry.Lookup(tableID)
	if err != nil {
		return nil, err
	}
	return t.SettlementStream(8), nil
}
