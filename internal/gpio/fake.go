package gpio

import "errors"

// FakeAnalog is a test double that returns scripted analog readings.
type FakeAnalog struct {
	// Samples contains scripted readings. Each call to ReadAnalog consumes
	// the next sample; once exhausted the last sample repeats.
	Samples []int

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by ReadAnalog.
	ReadError error

	// Reads counts ReadAnalog calls.
	Reads int
}

// NewFakeAnalog creates a FakeAnalog with the given samples.
func NewFakeAnalog(samples ...int) *FakeAnalog {
	return &FakeAnalog{Samples: samples}
}

// ReadAnalog returns the next scripted sample.
func (f *FakeAnalog) ReadAnalog() (int, error) {
	f.Reads++
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return v, nil
}

// Set replaces the script with a single repeating value.
func (f *FakeAnalog) Set(v int) {
	f.Samples = []int{v}
	f.index = 0
}

// Script replaces the script and rewinds.
func (f *FakeAnalog) Script(samples ...int) {
	f.Samples = samples
	f.index = 0
}

// Close marks the input as closed.
func (f *FakeAnalog) Close() error {
	f.Closed = true
	return nil
}

// FakeOutput records every physical write.
type FakeOutput struct {
	// Writes holds every level written, in order.
	Writes []bool

	// Duties holds every duty cycle set, in order.
	Duties []int

	// Closed tracks if Close was called
	Closed bool

	// Rest is the idle level the output was opened with.
	Rest bool

	// WriteError, if set, will be returned by Write (the write is still recorded).
	WriteError error
}

// Write records the level.
func (f *FakeOutput) Write(high bool) error {
	f.Writes = append(f.Writes, high)
	return f.WriteError
}

// SetDuty records the duty cycle.
func (f *FakeOutput) SetDuty(value int) error {
	f.Duties = append(f.Duties, value)
	return nil
}

// Level returns the last written level, or false if never written.
func (f *FakeOutput) Level() bool {
	if len(f.Writes) == 0 {
		return false
	}
	return f.Writes[len(f.Writes)-1]
}

// Highs counts writes of a high level.
func (f *FakeOutput) Highs() int {
	n := 0
	for _, w := range f.Writes {
		if w {
			n++
		}
	}
	return n
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.Closed = true
	return nil
}

// FakeBoard hands out fakes per pin and remembers them for assertions.
type FakeBoard struct {
	Analog  map[int]*FakeAnalog
	Outputs map[int]*FakeOutput

	// OpenError, if set, fails every Open call.
	OpenError error
}

// NewFakeBoard creates an empty FakeBoard.
func NewFakeBoard() *FakeBoard {
	return &FakeBoard{
		Analog:  make(map[int]*FakeAnalog),
		Outputs: make(map[int]*FakeOutput),
	}
}

// OpenDoorbell implements Board. A pre-seeded FakeAnalog is reused.
func (b *FakeBoard) OpenDoorbell(pin int) (AnalogInput, error) {
	if b.OpenError != nil {
		return nil, b.OpenError
	}
	a, ok := b.Analog[pin]
	if !ok {
		a = NewFakeAnalog(0)
		b.Analog[pin] = a
	}
	return a, nil
}

// OpenOutput implements Board.
func (b *FakeBoard) OpenOutput(pin int, rest bool) (Output, error) {
	if b.OpenError != nil {
		return nil, b.OpenError
	}
	out := b.output(pin)
	out.Rest = rest
	return out, nil
}

// OpenIndicator implements Board.
func (b *FakeBoard) OpenIndicator(pin int, rest bool) (Output, error) {
	return b.OpenOutput(pin, rest)
}

// Output returns the fake for pin, creating it if needed.
func (b *FakeBoard) Output(pin int) *FakeOutput {
	return b.output(pin)
}

// Doorbell returns the fake analog input for pin, creating it if needed.
func (b *FakeBoard) Doorbell(pin int) *FakeAnalog {
	a, ok := b.Analog[pin]
	if !ok {
		a = NewFakeAnalog(0)
		b.Analog[pin] = a
	}
	return a
}

func (b *FakeBoard) output(pin int) *FakeOutput {
	o, ok := b.Outputs[pin]
	if !ok {
		o = &FakeOutput{}
		b.Outputs[pin] = o
	}
	return o
}
