package gpio

import (
	"errors"
	"io"
	"testing"
	"time"
)

func TestParseSample(t *testing.T) {
	tests := []struct {
		line    string
		channel int
		value   int
		wantErr bool
	}{
		{"512", -1, 512, false},
		{"  700 ", -1, 700, false},
		{"5 600", 5, 600, false},
		{"5 2000", 5, AnalogMax, false},
		{"-3", -1, 0, false},
		{"abc", 0, 0, true},
		{"x 5", 0, 0, true},
		{"5 y", 0, 0, true},
		{"-1 100", 0, 0, true},
		{"1 2 3", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			ch, v, err := parseSample(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.line)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ch != tt.channel || v != tt.value {
				t.Errorf("got (%d, %d), want (%d, %d)", ch, v, tt.channel, tt.value)
			}
		})
	}
}

// waitReading polls in until it returns want or the deadline passes.
func waitReading(t *testing.T, in AnalogInput, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, err := in.ReadAnalog(); err == nil && v == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	v, err := in.ReadAnalog()
	t.Fatalf("timed out waiting for %d, last (%d, %v)", want, v, err)
}

func TestSerialADCReadings(t *testing.T) {
	r, w := io.Pipe()
	adc := newSerialADC(r)
	defer adc.Close()

	ch5, _ := adc.OpenAnalog(5)
	ch6, _ := adc.OpenAnalog(6)

	if _, err := ch5.ReadAnalog(); !errors.Is(err, ErrNoReading) {
		t.Fatalf("expected ErrNoReading before first line, got %v", err)
	}

	io.WriteString(w, "# bridge v1\n300\n")
	waitReading(t, ch5, 300)
	waitReading(t, ch6, 300)

	io.WriteString(w, "5 800\n")
	waitReading(t, ch5, 800)
	if v, _ := ch6.ReadAnalog(); v != 300 {
		t.Errorf("channel 6 should keep the broadcast value, got %d", v)
	}

	// Split across writes: only complete lines are applied.
	io.WriteString(w, "5 9")
	io.WriteString(w, "0\n")
	waitReading(t, ch5, 90)
}

func TestSerialADCSkipsGarbage(t *testing.T) {
	r, w := io.Pipe()
	adc := newSerialADC(r)
	defer adc.Close()

	in, _ := adc.OpenAnalog(1)
	io.WriteString(w, "noise\n\n1 400\n")
	waitReading(t, in, 400)
}

func TestSerialADCReadError(t *testing.T) {
	r, w := io.Pipe()
	adc := newSerialADC(r)

	in, _ := adc.OpenAnalog(1)
	w.CloseWithError(errors.New("device unplugged"))

	deadline := time.Now().Add(2 * time.Second)
	var err error
	for time.Now().Before(deadline) {
		if _, err = in.ReadAnalog(); err != nil && !errors.Is(err, ErrNoReading) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err == nil || errors.Is(err, ErrNoReading) {
		t.Fatalf("expected read error to surface, got %v", err)
	}
	adc.Close()
}
