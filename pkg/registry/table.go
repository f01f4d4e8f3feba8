package registry

import (
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/decred/slog"
	"golang.org/x/sync/errgroup"

	"github.com/riverrake/holdem/pkg/engine"
)

// Table is one table's single-consumer worker: it owns a HandEngine
// and serializes every call onto one goroutine (spec.md §5's
// "dedicated task, actor-style mailbox, or per-table mutex" — this is
// the mailbox option), arms a quartz-backed timer against the
// engine's turn_deadline, and fans the engine's settlement callback
// out to subscribers. The engine itself is never touched from any
// other goroutine. Worker shutdown fans in through an errgroup
// (SPEC_FULL.md §5.1), even though today it owns exactly one
// goroutine — it is the same primitive the per-table worker would
// extend to (broadcast fan-out, timer goroutine) without changing the
// shutdown contract.
type Table struct {
	id    string
	eng   *engine.Engine
	clock quartz.Clock
	sink  Sink
	log   slog.Logger

	mailbox chan func()
	closeCh chan struct{}
	eg      errgroup.Group

	timer *quartz.Timer

	subMu sync.Mutex
	subs  []chan engine.SettlementRecord
}

func newTable(id string, cfg engine.Config, clock quartz.Clock, sink Sink, log slog.Logger) *Table {
	if log == nil {
		log = slog.Disabled
	}
	t := &Table{
		id:      id,
		clock:   clock,
		sink:    sink,
		log:     log,
		mailbox: make(chan func(), 64),
		closeCh: make(chan struct{}),
	}
	t.eng = engine.New(cfg, clock, log)
	t.eng.SetBroadcastFunc(t.onBroadcast)
	t.eng.SetSettlementFunc(t.onSettlement)

	t.eg.Go(t.run)
	return t
}

// ID returns the table's registry key.
func (t *Table) ID() string { return t.id }

func (t *Table) run() error {
	for {
		select {
		case fn, ok := <-t.mailbox:
			if !ok {
				return nil
			}
			fn()
		case <-t.closeCh:
			return nil
		}
	}
}

// do runs fn on the worker goroutine and blocks until it completes,
// giving every exported method serialized access to the engine. It is
// a no-op (fn never runs) once the table has started shutting down.
func (t *Table) do(fn func()) {
	done := make(chan struct{})
	select {
	case t.mailbox <- func() { fn(); close(done) }:
	case <-t.closeCh:
		return
	}
	select {
	case <-done:
	case <-t.closeCh:
	}
}

// mutate is do, plus re-arming the turn timer afterward — every
// engine call that can change actor_seat or end the hand goes through
// this instead of do.
func (t *Table) mutate(fn func()) {
	t.do(func() {
		fn()
		t.rearmLocked()
	})
}

// rearmLocked re-arms the turn-deadline timer against the engine's
// current turn_deadline. Must only be called from the worker
// goroutine. SPEC_FULL.md §5.1: built on quartz so tests can drive it
// with a mock clock instead of a real sleep.
func (t *Table) rearmLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if !t.eng.HandInProgress() {
		return
	}
	deadline := time.UnixMilli(t.eng.TurnDeadlineUnixMilli())
	delay := deadline.Sub(t.clock.Now())
	if delay < 0 {
		delay = 0
	}
	t.timer = t.clock.AfterFunc(delay, t.fireTimeout)
}

// fireTimeout runs on the quartz timer's own goroutine; it must hop
// back onto the worker goroutine before touching the engine.
func (t *Table) fireTimeout() {
	t.mutate(func() { t.eng.OnTimeout() })
}

func (t *Table) onBroadcast() {
	if t.sink != nil {
		t.sink.Broadcast(t.id, t.eng)
	}
}

func (t *Table) onSettlement(rec engine.SettlementRecord) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	for _, ch := range t.subs {
		select {
		case ch <- rec:
		default:
			t.log.Warnf("registry: table %s: settlement subscriber full, dropping", t.id)
		}
	}
}

// Attach seats a new player between hands.
func (t *Table) Attach(seat int, stack int64) error {
	var err error
	t.do(func() { err = t.eng.Attach(seat, stack) })
	return err
}

// Detach removes a seat, returning its stack (or ErrDetachDeferred if
// the seat is part of a hand in progress).
func (t *Table) Detach(seat int) (int64, error) {
	var (
		stack int64
		err   error
	)
	t.do(func() { stack, err = t.eng.Detach(seat) })
	return stack, err
}

// StartHand begins a new hand if enough seats are eligible.
func (t *Table) StartHand() engine.HandOutcome {
	var outcome engine.HandOutcome
	t.mutate(func() { outcome = t.eng.StartHand() })
	return outcome
}

// Submit applies a player action.
func (t *Table) Submit(a engine.Action) error {
	var err error
	t.mutate(func() { err = t.eng.Submit(a) })
	return err
}

// ValidActions reports the legal action set for seat right now.
func (t *Table) ValidActions(seat int) (engine.ValidActionSet, error) {
	var (
		set engine.ValidActionSet
		err error
	)
	t.do(func() { set, err = t.eng.ValidActions(seat) })
	return set, err
}

// Snapshot builds a state view, hiding hole cards per spec.md §4.4
// unless viewerSeat is the asker or the street is Showdown.
func (t *Table) Snapshot(viewerSeat *int) engine.View {
	var v engine.View
	t.do(func() { v = t.eng.Snapshot(viewerSeat) })
	return v
}

// SettlementStream registers a new subscriber channel, buffered to
// bufSize, that receives one SettlementRecord per completed (or
// aborted) hand. The channel is closed when the table shuts down.
func (t *Table) SettlementStream(bufSize int) <-chan engine.SettlementRecord {
	if bufSize <= 0 {
		bufSize = 1
	}
	ch := make(chan engine.SettlementRecord, bufSize)
	t.subMu.Lock()
	t.subs = append(t.subs, ch)
	t.subMu.Unlock()
	return ch
}

// Shutdown aborts any hand in progress (refund path, spec.md §5
// Cancellation), stops the turn timer, and closes every settlement
// subscriber. No in-flight action completes after Shutdown returns.
func (t *Table) Shutdown() {
	t.do(func() {
		t.eng.Abort()
		if t.timer != nil {
			t.timer.Stop()
			t.timer = nil
		}
	})
	close(t.closeCh)
	_ = t.eg.Wait()

	t.subMu.Lock()
	for _, ch := range t.subs {
		close(ch)
	}
	t.subs = nil
	t.subMu.Unlock()
}
