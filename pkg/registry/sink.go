package registry

import "github.com/riverrake/holdem/pkg/engine"

// Sink is the broadcast capability a Table holds (spec.md §4.5, §9
// "Callbacks -> capability"): the engine/table layer stays ignorant of
// the transport, asking only for a personalized snapshot per
// recipient. Broadcast must never block the caller for long — a slow
// or dead recipient is the Sink implementation's problem to drop, not
// the table worker's to wait on (SPEC_FULL.md §5 "Backpressure").
type Sink interface {
	Broadcast(tableID string, eng *engine.Engine)
}

// NopSink discards every broadcast. Useful for tests and for tables
// that only care about the Facade's direct Snapshot/SettlementStream
// calls.
type NopSink struct{}

func (NopSink) Broadcast(string, *engine.Engine) {}
