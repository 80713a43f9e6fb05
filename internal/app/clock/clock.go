// Package clock abstracts time so services can be tested against a fixed or
// advancing clock.
package clock

import (
	"sync"
	"time"
)

// SecondsPerYear is the fixed-length year used for payout scheduling.
const SecondsPerYear = 365 * 24 * 3600

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fake is a settable clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a fake clock pinned to t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Set pins the fake clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// YearsBetween returns the number of whole calendar years from a to b,
// by year component. Negative when b's year precedes a's.
func YearsBetween(a, b time.Time) int64 {
	return int64(b.Year() - a.Year())
}
