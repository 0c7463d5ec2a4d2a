package actuator

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"

	"github.com/oshokin/siren-guard/internal/domain/siren"
)

// Serial drives a relay board that accepts "ON\n" / "OFF\n" lines.
type Serial struct {
	port io.WriteCloser
	mu   sync.Mutex
}

// OpenSerial opens the serial device with 8N1 framing.
func OpenSerial(portName string, baudRate int) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open relay port %s: %w", portName, err)
	}

	return NewSerial(port), nil
}

// NewSerial wraps an already opened port.
func NewSerial(port io.WriteCloser) *Serial {
	return &Serial{port: port}
}

// Set writes the command line for direction.
func (s *Serial) Set(ctx context.Context, direction siren.Direction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if direction != siren.DirectionOn && direction != siren.DirectionOff {
		return fmt.Errorf("%w: %q", errUnknownDirection, direction)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(s.port, string(direction)+"\n"); err != nil {
		return fmt.Errorf("write relay command: %w", err)
	}

	return nil
}

// Close closes the port.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.port.Close()
}
