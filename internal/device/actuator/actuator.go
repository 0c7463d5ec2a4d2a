package actuator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oshokin/siren-guard/internal/config"
	"github.com/oshokin/siren-guard/internal/domain/siren"
)

// Driver writes relay states.
type Driver interface {
	Set(ctx context.Context, direction siren.Direction) error
	io.Closer
}

var (
	// ErrWriteTimeout is returned when a write does not finish in time.
	ErrWriteTimeout = errors.New("actuator write timed out")
	// errUnknownDirection is returned for an empty or unexpected direction.
	errUnknownDirection = errors.New("unknown direction")
	// errUnknownKind is returned by Open for an unsupported driver kind.
	errUnknownKind = errors.New("unknown actuator kind")
)

// Open builds the driver selected by cfg and wraps it with the write timeout.
//
//nolint:ireturn // The driver kind is chosen at runtime.
func Open(cfg config.Actuator, timeout time.Duration) (Driver, error) {
	var (
		driver Driver
		err    error
	)

	switch cfg.Kind {
	case config.ActuatorGPIO:
		driver = NewGPIO(cfg.Path, cfg.ActiveLow)
	case config.ActuatorSerial:
		driver, err = OpenSerial(cfg.Port, cfg.BaudRate)
	case config.ActuatorLog, "":
		driver = NewLog()
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownKind, cfg.Kind)
	}

	if err != nil {
		return nil, err
	}

	return WithTimeout(driver, timeout), nil
}

// timeoutDriver bounds each Set call of the wrapped driver.
type timeoutDriver struct {
	next    Driver
	timeout time.Duration
}

// WithTimeout wraps next so every Set returns within timeout.
// A write still running when the deadline passes keeps going in the background;
// its result is discarded.
//
//nolint:ireturn // Decorator over the Driver interface.
func WithTimeout(next Driver, timeout time.Duration) Driver {
	if timeout <= 0 {
		return next
	}

	return &timeoutDriver{
		next:    next,
		timeout: timeout,
	}
}

// Set forwards to the wrapped driver with a deadline.
func (t *timeoutDriver) Set(ctx context.Context, direction siren.Direction) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	result := make(chan error, 1)

	go func() {
		result <- t.next.Set(ctx, direction)
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrWriteTimeout, t.timeout)
		}

		return ctx.Err()
	}
}

// Close closes the wrapped driver.
func (t *timeoutDriver) Close() error {
	return t.next.Close()
}
