package gpio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// ErrNoReading is returned until the ADC bridge has reported a value.
var ErrNoReading = errors.New("serial adc: no reading yet")

// SerialADC reads a doorbell level from an external ADC bridge (a small
// microcontroller) that streams one reading per line:
//
//	<value>             - applies to every channel
//	<channel> <value>   - applies to one channel (pin number)
//
// Values are 0..AnalogMax; out-of-range values are clamped. The latest
// reading per channel is kept; ReadAnalog never blocks.
type SerialADC struct {
	port io.ReadCloser

	mu      sync.Mutex
	values  map[int]int
	any     int
	haveAny bool
	err     error
	closed  bool

	done chan struct{}
}

// NewSerialADC opens device at baud and starts reading.
func NewSerialADC(device string, baud int) (*SerialADC, error) {
	if baud == 0 {
		baud = 115200
	}
	c := &serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: time.Second,
	}
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	return newSerialADC(port), nil
}

func newSerialADC(port io.ReadCloser) *SerialADC {
	s := &SerialADC{
		port:   port,
		values: make(map[int]int),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// OpenAnalog implements AnalogOpener. pin selects the channel.
func (s *SerialADC) OpenAnalog(pin int) (AnalogInput, error) {
	return &serialChannel{adc: s, channel: pin}, nil
}

// Close stops the reader and closes the port.
func (s *SerialADC) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	err := s.port.Close()
	<-s.done
	return err
}

func (s *SerialADC) readLoop() {
	defer close(s.done)

	br := bufio.NewReader(s.port)
	var pending strings.Builder
	for {
		chunk, err := br.ReadString('\n')
		pending.WriteString(chunk)
		if strings.HasSuffix(chunk, "\n") {
			s.handleLine(pending.String())
			pending.Reset()
		}
		if err == nil {
			continue
		}
		if s.isClosed() {
			return
		}
		if err == io.EOF {
			// Read timeout with no data; the bridge is just quiet.
			if chunk == "" {
				time.Sleep(10 * time.Millisecond)
			}
			continue
		}
		log.Printf("serial adc: read error: %v", err)
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		return
	}
}

func (s *SerialADC) handleLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	channel, value, err := parseSample(line)
	if err != nil {
		log.Printf("serial adc: %v", err)
		return
	}

	s.mu.Lock()
	if channel < 0 {
		s.any = value
		s.haveAny = true
	} else {
		s.values[channel] = value
	}
	s.mu.Unlock()
}

func (s *SerialADC) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *SerialADC) read(channel int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return 0, fmt.Errorf("serial adc: %w", s.err)
	}
	if v, ok := s.values[channel]; ok {
		return v, nil
	}
	if s.haveAny {
		return s.any, nil
	}
	return 0, ErrNoReading
}

// parseSample parses "<value>" (channel -1) or "<channel> <value>".
func parseSample(line string) (int, int, error) {
	parts := strings.Fields(line)
	switch len(parts) {
	case 1:
		v, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid reading: %q", line)
		}
		return -1, clampAnalog(v), nil
	case 2:
		ch, err := strconv.Atoi(parts[0])
		if err != nil || ch < 0 {
			return 0, 0, fmt.Errorf("invalid channel: %q", line)
		}
		v, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid reading: %q", line)
		}
		return ch, clampAnalog(v), nil
	default:
		return 0, 0, fmt.Errorf("malformed line: %q", line)
	}
}

type serialChannel struct {
	adc     *SerialADC
	channel int
}

func (c *serialChannel) ReadAnalog() (int, error) {
	return c.adc.read(c.channel)
}

// Close is a no-op; the SerialADC owns the port.
func (c *serialChannel) Close() error {
	return nil
}
