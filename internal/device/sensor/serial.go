package sensor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/oshokin/siren-guard/internal/logger"
)

// Serial keeps the latest reading streamed by a line-oriented ranger.
type Serial struct {
	port       io.ReadCloser
	staleAfter time.Duration
	now        func() time.Time

	mu      sync.Mutex
	value   float64
	readAt  time.Time
	hasData bool
	lastErr error

	closeOnce sync.Once
	done      chan struct{}
}

// OpenSerial opens the port with 8N1 framing and starts monitoring it.
func OpenSerial(ctx context.Context, portName string, baudRate int, staleAfter time.Duration) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open sensor port %s: %w", portName, err)
	}

	s := NewSerial(port, staleAfter)

	go s.Monitor(logger.WithKV(ctx, "port", portName))

	return s, nil
}

// NewSerial wraps an already opened port. Call Monitor to start reading.
func NewSerial(port io.ReadCloser, staleAfter time.Duration) *Serial {
	return &Serial{
		port:       port,
		staleAfter: staleAfter,
		now:        time.Now,
		done:       make(chan struct{}),
	}
}

// Monitor reads lines until the port fails or is closed.
func (s *Serial) Monitor(ctx context.Context) {
	defer close(s.done)

	scan := bufio.NewScanner(s.port)
	for scan.Scan() {
		line := scan.Text()

		value, err := ParseReading(line)
		if err != nil {
			logger.DebugKV(ctx, "Skipping sensor line", "line", line, "error", err)
			continue
		}

		s.mu.Lock()
		s.value = value
		s.readAt = s.now()
		s.hasData = true
		s.mu.Unlock()
	}

	err := scan.Err()
	if err == nil {
		err = io.EOF
	}

	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	logger.WarnKV(ctx, "Sensor stream ended", "error", err)
}

// ReadDistance returns the latest reading if it is fresh.
func (s *Serial) ReadDistance(_ context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasData {
		if s.lastErr != nil {
			return 0, fmt.Errorf("%w: %w", ErrNoReading, s.lastErr)
		}

		return 0, ErrNoReading
	}

	if s.staleAfter > 0 {
		if age := s.now().Sub(s.readAt); age > s.staleAfter {
			return 0, fmt.Errorf("%w: %s old", ErrStale, age)
		}
	}

	return s.value, nil
}

// Close closes the port, which ends Monitor.
func (s *Serial) Close() error {
	var err error

	s.closeOnce.Do(func() {
		err = s.port.Close()
	})

	return err
}

// Done is closed when Monitor returns.
func (s *Serial) Done() <-chan struct{} {
	return s.done
}
