package gpio

import (
	"errors"
	"testing"
)

func TestFakeAnalogRead(t *testing.T) {
	f := NewFakeAnalog(100, 600, 900)

	for i, want := range []int{100, 600, 900, 900} {
		got, err := f.ReadAnalog()
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("read %d: got %d, want %d", i, got, want)
		}
	}
	if f.Reads != 4 {
		t.Errorf("Reads: got %d, want 4", f.Reads)
	}
}

func TestFakeAnalogNoSamples(t *testing.T) {
	f := NewFakeAnalog()

	if _, err := f.ReadAnalog(); err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeAnalogError(t *testing.T) {
	f := NewFakeAnalog(700)
	f.ReadError = errors.New("simulated error")

	_, err := f.ReadAnalog()
	if err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeAnalogSetAndScript(t *testing.T) {
	f := NewFakeAnalog(1, 2)
	f.ReadAnalog()

	f.Set(512)
	if v, _ := f.ReadAnalog(); v != 512 {
		t.Errorf("after Set: got %d, want 512", v)
	}

	f.Script(7, 8)
	if v, _ := f.ReadAnalog(); v != 7 {
		t.Errorf("after Script: got %d, want 7", v)
	}
}

func TestFakeOutputRecordsWrites(t *testing.T) {
	var o FakeOutput

	if o.Level() {
		t.Error("new output should read low")
	}

	o.Write(true)
	o.Write(false)
	o.Write(true)

	if !o.Level() {
		t.Error("expected last level high")
	}
	if o.Highs() != 2 {
		t.Errorf("Highs: got %d, want 2", o.Highs())
	}

	o.WriteError = errors.New("bus error")
	if err := o.Write(false); err == nil {
		t.Error("expected WriteError to be returned")
	}
	if len(o.Writes) != 4 {
		t.Errorf("failed write should still be recorded, got %d writes", len(o.Writes))
	}
}

func TestFakeBoardReusesPins(t *testing.T) {
	b := NewFakeBoard()
	seeded := b.Doorbell(5)
	seeded.Set(800)

	in, err := b.OpenDoorbell(5)
	if err != nil {
		t.Fatalf("OpenDoorbell: %v", err)
	}
	if v, _ := in.ReadAnalog(); v != 800 {
		t.Errorf("expected seeded reading 800, got %d", v)
	}

	out, _ := b.OpenOutput(4, false)
	out.Write(true)
	if !b.Output(4).Level() {
		t.Error("expected board to hand back the same fake output")
	}
}

func TestFakeBoardOpenError(t *testing.T) {
	b := NewFakeBoard()
	b.OpenError = errors.New("busy")

	if _, err := b.OpenOutput(1, false); err == nil {
		t.Error("expected OpenOutput error")
	}
	if _, err := b.OpenDoorbell(1); err == nil {
		t.Error("expected OpenDoorbell error")
	}
}

func TestMuxNegativePinIsNoop(t *testing.T) {
	b := NewFakeBoard()
	m := &Mux{Doorbell: nil, Outputs: boardOutputs{b}, Indicator: boardOutputs{b}}

	out, err := m.OpenOutput(-1, false)
	if err != nil {
		t.Fatalf("OpenOutput: %v", err)
	}
	if _, ok := out.(Noop); !ok {
		t.Errorf("expected Noop for unwired pin, got %T", out)
	}
	if len(b.Outputs) != 0 {
		t.Error("unwired pin should not reach the backend")
	}

	in, _ := m.OpenDoorbell(3)
	if _, ok := in.(Noop); !ok {
		t.Errorf("expected Noop for missing doorbell backend, got %T", in)
	}

	if _, err := m.OpenIndicator(2, false); err != nil {
		t.Fatalf("OpenIndicator: %v", err)
	}
	if _, ok := b.Outputs[2]; !ok {
		t.Error("indicator pin should reach the backend")
	}
}

func TestClampAnalog(t *testing.T) {
	tests := []struct{ in, want int }{
		{-5, 0},
		{0, 0},
		{512, 512},
		{AnalogMax, AnalogMax},
		{5000, AnalogMax},
	}
	for _, tt := range tests {
		if got := clampAnalog(tt.in); got != tt.want {
			t.Errorf("clampAnalog(%d): got %d, want %d", tt.in, got, tt.want)
		}
	}
}

// boardOutputs adapts a FakeBoard to OutputOpener.
type boardOutputs struct{ b *FakeBoard }

func (o boardOutputs) OpenOutput(pin int, rest bool) (Output, error) {
	return o.b.OpenOutput(pin, rest)
}
