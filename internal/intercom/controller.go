package intercom

import (
	"fmt"
	"log"
	"time"

	"github.com/sweeney/intercom/internal/clock"
	"github.com/sweeney/intercom/internal/door"
	"github.com/sweeney/intercom/internal/gpio"
	"github.com/sweeney/intercom/internal/line"
	"github.com/sweeney/intercom/internal/ring"
)

// Controller sequences ring detection, the door relay and the indicator.
// Every method is a no-op until Begin succeeds.
type Controller struct {
	board gpio.Board
	clock clock.Clock

	cfg     Config
	state   State
	started bool

	bell    *line.Line
	relay   *line.Line
	handset *line.Line
	led     *line.Line

	detector *ring.Detector
	door     *door.Actuator

	handler  EventHandler
	lastTick time.Time
	counts   EventCounts
	lastRing time.Time
	lastOpen time.Time
}

// NewController creates a Controller that opens its pins on board.
func NewController(board gpio.Board, clk clock.Clock) *Controller {
	return &Controller{
		board: board,
		clock: clk,
		state: StateInit,
	}
}

// Begin opens the pins described by cfg, drives every output low and moves
// to Ready, then blinks the indicator StartupBlinks times.
//
// A second Begin returns ErrAlreadyStarted unless Reset was called in
// between, in which case the old pins are released and reopened from cfg.
func (c *Controller) Begin(cfg Config) error {
	if c.started && c.state != StateInit {
		return ErrAlreadyStarted
	}
	if c.started {
		c.closeLines()
		c.started = false
	}

	bellIn, err := c.openDoorbell(cfg.DoorbellPin)
	if err != nil {
		return fmt.Errorf("open doorbell pin %d: %w", cfg.DoorbellPin, err)
	}
	relayOut, err := c.openOutput(cfg.DoorPin, cfg.DoorInverted, c.board.OpenOutput)
	if err != nil {
		bellIn.Close()
		return fmt.Errorf("open door pin %d: %w", cfg.DoorPin, err)
	}
	handsetOut, err := c.openOutput(cfg.HandsetPin, cfg.HandsetInverted, c.board.OpenOutput)
	if err != nil {
		bellIn.Close()
		relayOut.Close()
		return fmt.Errorf("open handset pin %d: %w", cfg.HandsetPin, err)
	}
	ledOut, err := c.openOutput(cfg.LEDPin, cfg.LEDInverted, c.board.OpenIndicator)
	if err != nil {
		bellIn.Close()
		relayOut.Close()
		handsetOut.Close()
		return fmt.Errorf("open indicator pin %d: %w", cfg.LEDPin, err)
	}

	c.bell = line.New(line.Config{
		Pin: cfg.DoorbellPin, Name: "doorbell", Debounce: cfg.Debounce,
	}, nil, bellIn, c.clock)
	c.relay = line.New(line.Config{
		Pin: cfg.DoorPin, Name: "door", Mode: line.ModePulse,
		Inverted: cfg.DoorInverted, Debounce: cfg.Debounce,
	}, relayOut, nil, c.clock)
	c.handset = line.New(line.Config{
		Pin: cfg.HandsetPin, Name: "handset",
		Inverted: cfg.HandsetInverted, Debounce: cfg.Debounce,
	}, handsetOut, nil, c.clock)
	c.led = line.New(line.Config{
		Pin: cfg.LEDPin, Name: "indicator", Mode: line.ModePWM,
		Inverted: cfg.LEDInverted, Debounce: cfg.Debounce,
	}, ledOut, nil, c.clock)

	c.relay.Begin()
	c.handset.Begin()
	c.led.Begin()

	c.detector = ring.NewDetector(c.bell, c.clock, cfg.RingThreshold)
	c.door = door.New(c.relay, c.clock, cfg.PulseDuration)

	c.cfg = cfg
	c.state = StateReady
	c.started = true
	c.lastTick = c.clock.Now()

	log.Printf("intercom: %s %s started (doorbell=%d door=%d handset=%d indicator=%d)",
		Name, Version, cfg.DoorbellPin, cfg.DoorPin, cfg.HandsetPin, cfg.LEDPin)

	c.led.Blink(cfg.StartupBlinks, cfg.BlinkOn, cfg.BlinkOff)
	return nil
}

// Update runs one polling tick: ring check, door expiry, state advance.
func (c *Controller) Update() {
	if !c.started {
		return
	}

	if c.detector.Check() {
		c.processRing()
	}
	wasOpen := c.door.IsOpen()
	doorClosed := wasOpen && !c.door.CheckState()
	c.advance(doorClosed)

	c.lastTick = c.clock.Now()
}

func (c *Controller) processRing() {
	now := c.clock.Now()
	c.state = StateRinging
	c.counts.Ring++
	c.lastRing = now
	log.Printf("intercom: ring #%d", c.detector.Count())

	c.led.Blink(c.cfg.RingBlinks, c.cfg.BlinkOn, c.cfg.BlinkOff)
	c.emit(EventRing, false)

	if !c.cfg.AutoOpen && !c.cfg.AlwaysOpen {
		return
	}

	log.Printf("intercom: auto-open triggered")
	if c.cfg.OpenDelay > 0 {
		log.Printf("intercom: delaying open by %v", c.cfg.OpenDelay)
		c.clock.Sleep(c.cfg.OpenDelay)
	}
	c.openDoor(true)

	if !c.cfg.AlwaysOpen {
		c.cfg.AutoOpen = false
		log.Printf("intercom: auto-open disabled after use")
		c.emit(EventConfigChanged, false)
	}
}

// advance moves the state machine on. doorClosed is set on the tick the open
// flag expired; every expiry emits CLOSE, whatever state a ring has moved the
// device to in the meantime.
func (c *Controller) advance(doorClosed bool) {
	switch c.state {
	case StateRinging:
		if c.clock.Now().Sub(c.lastTick) > c.cfg.RingTimeout {
			c.state = StateIdle
			log.Printf("intercom: ring timeout, back to idle")
		}
	case StateOpening:
		c.state = StateOpen
		if doorClosed {
			c.state = StateIdle
		}
	case StateOpen:
		if doorClosed {
			c.state = StateIdle
		}
	}

	if doorClosed {
		c.led.Force(false)
		c.counts.Close++
		log.Printf("intercom: door closed")
		c.emit(EventClose, false)
	}
}

func (c *Controller) openDoor(auto bool) {
	start := c.clock.Now()
	c.state = StateOpening
	c.led.Force(true)
	c.door.Open()
	c.counts.Open++
	c.lastOpen = start
	c.emit(EventOpen, auto)
}

// OpenDoor releases the strike. Blocks for the relay pulse.
func (c *Controller) OpenDoor() {
	if !c.started {
		return
	}
	log.Printf("intercom: manual door open")
	c.openDoor(false)
}

// OpenDoorDelayed waits d, then behaves as OpenDoor. Blocks for both.
func (c *Controller) OpenDoorDelayed(d time.Duration) {
	if !c.started {
		return
	}
	log.Printf("intercom: manual door open in %v", d)
	c.clock.Sleep(d)
	c.openDoor(false)
}

// CloseDoor clears the open flag, turns the indicator off and emits CLOSE.
// An Opening or Open device returns to Idle.
func (c *Controller) CloseDoor() {
	if !c.started {
		return
	}
	c.door.Close()
	c.led.Force(false)
	if c.state == StateOpening || c.state == StateOpen {
		c.state = StateIdle
	}
	c.counts.Close++
	c.emit(EventClose, false)
}

// EnableAutoOpen arms a single automatic open on the next ring.
func (c *Controller) EnableAutoOpen() {
	c.setAutoOpen(true)
}

// DisableAutoOpen disarms the single automatic open.
func (c *Controller) DisableAutoOpen() {
	c.setAutoOpen(false)
}

// ToggleAutoOpen flips the single automatic open.
func (c *Controller) ToggleAutoOpen() {
	c.setAutoOpen(!c.cfg.AutoOpen)
}

func (c *Controller) setAutoOpen(on bool) {
	if !c.started {
		return
	}
	c.cfg.AutoOpen = on
	log.Printf("intercom: auto-open %s", enabledWord(on))
	c.emit(EventConfigChanged, false)
}

// EnableAlwaysOpen opens the door on every ring.
func (c *Controller) EnableAlwaysOpen() {
	c.setAlwaysOpen(true)
}

// DisableAlwaysOpen stops opening on every ring.
func (c *Controller) DisableAlwaysOpen() {
	c.setAlwaysOpen(false)
}

func (c *Controller) setAlwaysOpen(on bool) {
	if !c.started {
		return
	}
	c.cfg.AlwaysOpen = on
	log.Printf("intercom: always-open %s", enabledWord(on))
	c.emit(EventConfigChanged, false)
}

// PickupHandset drives the handset line high.
func (c *Controller) PickupHandset() {
	if !c.started {
		return
	}
	c.handset.SetHigh()
	log.Printf("intercom: handset picked up")
}

// HangupHandset drives the handset line low.
func (c *Controller) HangupHandset() {
	if !c.started {
		return
	}
	c.handset.SetLow()
	log.Printf("intercom: handset hung up")
}

// ToggleHandset inverts the handset line.
func (c *Controller) ToggleHandset() {
	if !c.started {
		return
	}
	c.handset.Toggle()
}

// IndicatorOn turns the indicator on, subject to debounce.
func (c *Controller) IndicatorOn() {
	if !c.started {
		return
	}
	c.led.SetHigh()
}

// IndicatorOff turns the indicator off, subject to debounce.
func (c *Controller) IndicatorOff() {
	if !c.started {
		return
	}
	c.led.SetLow()
}

// BlinkIndicator blinks the indicator n times. Blocking.
func (c *Controller) BlinkIndicator(n int) {
	if !c.started {
		return
	}
	c.led.Blink(n, c.cfg.BlinkOn, c.cfg.BlinkOff)
}

// SetIndicatorBrightness sets the indicator duty cycle, 0-255. Ignored on
// backends without PWM.
func (c *Controller) SetIndicatorBrightness(v int) {
	if !c.started {
		return
	}
	c.led.SetPWM(v)
}

// FadeIndicator ramps the indicator brightness. Blocking.
func (c *Controller) FadeIndicator(from, to int, d time.Duration) {
	if !c.started {
		return
	}
	c.led.Fade(from, to, d)
}

// SetEventHandler registers h, replacing any previous handler. nil
// disables notifications.
func (c *Controller) SetEventHandler(h EventHandler) {
	c.handler = h
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// StateName returns the human-readable label of the current state.
func (c *Controller) StateName() string {
	return c.state.Label()
}

// IsReady reports whether the device is started and waiting for a ring.
func (c *Controller) IsReady() bool {
	return c.started && (c.state == StateReady || c.state == StateIdle)
}

// Reset returns to Init: ring counters cleared, indicator and handset low,
// auto-open and always-open off. Pins and timing are kept. Calling it
// repeatedly has the same effect as calling it once.
func (c *Controller) Reset() {
	if !c.started {
		return
	}
	c.state = StateInit
	c.detector.Reset()
	c.led.Force(false)
	c.handset.Force(false)
	c.cfg.AutoOpen = false
	c.cfg.AlwaysOpen = false
	log.Printf("intercom: reset")
}

// Config returns the active configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// SetConfig replaces the configuration. Timing, threshold and policy apply
// immediately; pin assignments and inversion take effect on the next Begin
// after Reset.
func (c *Controller) SetConfig(cfg Config) {
	if !c.started {
		return
	}
	c.cfg = cfg
	c.door.SetOpenTime(cfg.PulseDuration)
	c.detector.SetThreshold(cfg.RingThreshold)
	for _, l := range []*line.Line{c.bell, c.relay, c.handset, c.led} {
		l.SetDebounce(cfg.Debounce)
	}
	log.Printf("intercom: configuration updated")
	c.emit(EventConfigChanged, false)
}

// SetOpenDelay sets the wait between a ring and an automatic open.
func (c *Controller) SetOpenDelay(d time.Duration) {
	if !c.started {
		return
	}
	c.cfg.OpenDelay = d
	log.Printf("intercom: open delay set to %v", d)
	c.emit(EventConfigChanged, false)
}

// SetOpenTime sets the relay pulse length.
func (c *Controller) SetOpenTime(d time.Duration) {
	if !c.started {
		return
	}
	c.cfg.PulseDuration = d
	c.door.SetOpenTime(d)
	log.Printf("intercom: open time set to %v", d)
	c.emit(EventConfigChanged, false)
}

// SetRingThreshold sets the analog level above which the doorbell rings.
func (c *Controller) SetRingThreshold(v int) {
	if !c.started {
		return
	}
	c.cfg.RingThreshold = v
	c.detector.SetThreshold(v)
	log.Printf("intercom: ring threshold set to %d", v)
	c.emit(EventConfigChanged, false)
}

// Counts returns the number of each event type since Begin.
func (c *Controller) Counts() EventCounts {
	return c.counts
}

// Status returns a snapshot of the device.
func (c *Controller) Status() Status {
	s := Status{
		Name:       Name,
		Version:    Version,
		State:      c.state,
		StateLabel: c.state.Label(),
		Ready:      c.IsReady(),
		OpenDelay:  c.cfg.OpenDelay,
		OpenTime:   c.cfg.PulseDuration,
		AutoOpen:   c.cfg.AutoOpen,
		AlwaysOpen: c.cfg.AlwaysOpen,
		Counts:     c.counts,
		LastRing:   c.lastRing,
		LastOpen:   c.lastOpen,
	}
	if !c.started {
		return s
	}
	s.RingCount = c.detector.Count()
	s.Ringing = c.detector.IsRinging()
	s.RingDuration = c.detector.Duration()
	s.DoorOpen = c.door.IsOpen()
	s.Indicator = c.led.Get()
	s.Handset = c.handset.Get()
	return s
}

// Close releases every pin. The controller must be started again with
// Begin before further use.
func (c *Controller) Close() error {
	if !c.started {
		return nil
	}
	err := c.closeLines()
	c.started = false
	c.state = StateInit
	return err
}

func (c *Controller) closeLines() error {
	var first error
	for _, l := range []*line.Line{c.bell, c.relay, c.handset, c.led} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (c *Controller) emit(t EventType, auto bool) {
	if c.handler == nil {
		return
	}
	var count uint32
	if c.detector != nil {
		count = c.detector.Count()
	}
	c.handler(Event{
		Timestamp: c.clock.Now(),
		Type:      t,
		State:     c.state,
		RingCount: count,
		Auto:      auto,
	})
}

func (c *Controller) openDoorbell(pin int) (gpio.AnalogInput, error) {
	if pin < 0 {
		return gpio.Noop{}, nil
	}
	return c.board.OpenDoorbell(pin)
}

// openOutput opens pin resting at its logical low: physically high when the
// line is inverted.
func (c *Controller) openOutput(pin int, inverted bool, open func(int, bool) (gpio.Output, error)) (gpio.Output, error) {
	if pin < 0 {
		return gpio.Noop{}, nil
	}
	return open(pin, inverted)
}

func enabledWord(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
