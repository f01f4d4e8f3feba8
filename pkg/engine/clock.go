package engine

import (
	"time"

	"github.com/coder/quartz"
)

// Clock supplies the current time to the engine so turn deadlines can
// be computed without it owning a goroutine or timer itself — per
// SPEC_FULL.md §5, the per-table worker (pkg/registry) owns waiting
// for deadlines; the engine only needs to know "now" when it stamps a
// new one. quartz.Clock and *quartz.Mock both satisfy this interface
// without the engine importing quartz's timer machinery, so tests can
// drive deadlines with a quartz.Mock while pkg/registry arms the
// actual wait with the same clock.
type Clock interface {
	Now() time.Time
}

// RealClock returns the default wall-clock Clock, backed by
// coder/quartz so the same clock value can be shared with the
// per-table worker's quartz-based turn timer (SPEC_FULL.md §5.1).
func RealClock() Clock { return quartz.NewReal() }
