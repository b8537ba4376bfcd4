// Package clock provides an injectable notion of time so that background
// tasks driven by a fixed interval — the sector cache's write-back ticker,
// chiefly — can be exercised in tests without sleeping real wall time.
package clock

import "time"

// Clock is the capability the core needs from a wall clock: the current
// time, and a channel that fires after a duration. Code that runs a
// periodic background task should depend on this interface rather than on
// package time directly, so tests can substitute a SimulatedClock.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

var _ Clock = RealClock{}
var _ Clock = (*SimulatedClock)(nil)
