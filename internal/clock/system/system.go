// Package system supplies the wall clock used by the sync engine.
package system

import "time"

// Clock hands out UTC wall-clock time. It satisfies corpus.Clock so tests
// can swap in a fixed clock.
type Clock struct{}

// New returns a Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
