// Package clock abstracts wall-clock time so the intercom core can be driven
// by a scripted clock in tests. Sleep is blocking by contract: the core relies
// on it for relay pulses and indicator blinks.
package clock

import "time"

// Clock provides the current time and a blocking sleep.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Real is the system clock.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time { return time.Now() }

// Sleep blocks the calling goroutine for d.
func (Real) Sleep(d time.Duration) { time.Sleep(d) }
