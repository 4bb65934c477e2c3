// Package ring detects doorbell calls on an analog sense line.
package ring

import (
	"time"

	"github.com/sweeney/intercom/internal/clock"
)

// DefaultThreshold is the analog level above which the line counts as ringing.
const DefaultThreshold = 512

// Sampler supplies raw analog readings.
type Sampler interface {
	ReadAnalog() int
}

// Detector turns a stream of analog samples into ring sessions. It has no
// hysteresis: noise straddling the threshold produces extra sessions.
type Detector struct {
	in        Sampler
	clock     clock.Clock
	threshold int

	ringing   bool
	startedAt time.Time
	endedAt   time.Time
	count     uint32
}

// NewDetector creates a Detector reading from in.
func NewDetector(in Sampler, clk clock.Clock, threshold int) *Detector {
	return &Detector{in: in, clock: clk, threshold: threshold}
}

// Check takes one sample. It returns true only on the sample where a new
// ring starts.
func (d *Detector) Check() bool {
	value := d.in.ReadAnalog()
	above := value > d.threshold
	now := d.clock.Now()

	switch {
	case above && !d.ringing:
		d.ringing = true
		d.startedAt = now
		d.count++
		return true
	case !above && d.ringing:
		d.ringing = false
		d.endedAt = now
	}
	return false
}

// IsRinging reports whether a ring session is in progress.
func (d *Detector) IsRinging() bool {
	return d.ringing
}

// Duration returns the elapsed time of the current ring, or the length of
// the last completed one. Zero if there has been no ring.
func (d *Detector) Duration() time.Duration {
	if d.ringing {
		return d.clock.Now().Sub(d.startedAt)
	}
	if d.endedAt.After(d.startedAt) {
		return d.endedAt.Sub(d.startedAt)
	}
	return 0
}

// Count returns the number of rings since construction or the last Reset.
func (d *Detector) Count() uint32 {
	return d.count
}

// Reset clears the count and the session timestamps. The threshold is kept.
func (d *Detector) Reset() {
	d.ringing = false
	d.count = 0
	d.startedAt = time.Time{}
	d.endedAt = time.Time{}
}

// SetThreshold changes the ring threshold.
func (d *Detector) SetThreshold(threshold int) {
	d.threshold = threshold
}

// Threshold returns the ring threshold.
func (d *Detector) Threshold() int {
	return d.threshold
}
