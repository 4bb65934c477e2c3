package clock

import "time"

// Fake is a test clock. Sleep advances the clock instead of blocking, so a
// blocking relay pulse completes instantly while still moving time forward.
// Not safe for concurrent use.
type Fake struct {
	now time.Time

	// Sleeps records every Sleep duration in call order.
	Sleeps []time.Duration
}

// NewFake creates a Fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	return f.now
}

// Sleep advances the clock by d and records the call.
func (f *Fake) Sleep(d time.Duration) {
	f.Sleeps = append(f.Sleeps, d)
	if d > 0 {
		f.now = f.now.Add(d)
	}
}

// Advance moves the clock forward by d without recording a sleep.
func (f *Fake) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// Set moves the clock to t.
func (f *Fake) Set(t time.Time) {
	f.now = t
}

// Slept returns the sum of all recorded sleeps.
func (f *Fake) Slept() time.Duration {
	var total time.Duration
	for _, d := range f.Sleeps {
		total += d
	}
	return total
}
