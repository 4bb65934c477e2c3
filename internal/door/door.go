// Package door drives the door-strike relay.
package door

import (
	"log"
	"time"

	"github.com/sweeney/intercom/internal/clock"
)

// DefaultOpenTime is the relay pulse length used when none is configured.
const DefaultOpenTime = 3000 * time.Millisecond

// closeGrace is how long past the pulse the door is still reported open.
const closeGrace = 1000 * time.Millisecond

// Relay is the line the strike is wired to.
type Relay interface {
	Pulse(d time.Duration)
}

// Actuator pulses the relay and tracks whether the door should be
// considered open.
type Actuator struct {
	relay    Relay
	clock    clock.Clock
	openTime time.Duration

	open     bool
	openedAt time.Time
}

// New creates an Actuator that pulses relay for openTime.
func New(relay Relay, clk clock.Clock, openTime time.Duration) *Actuator {
	return &Actuator{relay: relay, clock: clk, openTime: openTime}
}

// Open pulses the relay and marks the door open. Blocks for the pulse.
// openedAt is taken when the pulse starts, so the door reads open for
// openTime plus the grace period from the moment the strike is released.
func (a *Actuator) Open() {
	start := a.clock.Now()
	a.relay.Pulse(a.openTime)
	a.open = true
	a.openedAt = start
	log.Printf("door: opened")
}

// OpenDelayed waits d and then opens. Blocks for the delay and the pulse.
func (a *Actuator) OpenDelayed(d time.Duration) {
	log.Printf("door: opening in %v", d)
	a.clock.Sleep(d)
	a.Open()
}

// Close marks the door closed. The relay is not touched.
func (a *Actuator) Close() {
	if a.open {
		log.Printf("door: closed")
	}
	a.open = false
}

// CheckState expires the open flag once the pulse and grace period have
// passed, then reports whether the door is open.
func (a *Actuator) CheckState() bool {
	if a.open && a.clock.Now().Sub(a.openedAt) > a.openTime+closeGrace {
		a.open = false
	}
	return a.open
}

// IsOpen reports the open flag without expiring it.
func (a *Actuator) IsOpen() bool {
	return a.open
}

// OpenedAt returns when the last open started.
func (a *Actuator) OpenedAt() time.Time {
	return a.openedAt
}

// SetOpenTime changes the pulse length.
func (a *Actuator) SetOpenTime(d time.Duration) {
	a.openTime = d
}

// OpenTime returns the pulse length.
func (a *Actuator) OpenTime() time.Duration {
	return a.openTime
}
