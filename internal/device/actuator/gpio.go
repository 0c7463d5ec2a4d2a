package actuator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/siren-guard/internal/domain/siren"
)

// GPIO drives a relay through a sysfs-style value file ("1"/"0").
type GPIO struct {
	path      string
	activeLow bool
}

// NewGPIO creates a driver writing to the value file at path.
func NewGPIO(path string, activeLow bool) *GPIO {
	return &GPIO{
		path:      filepath.Clean(path),
		activeLow: activeLow,
	}
}

// Set writes the pin level for direction.
func (g *GPIO) Set(ctx context.Context, direction siren.Direction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	high, err := g.level(direction)
	if err != nil {
		return err
	}

	value := "0\n"
	if high {
		value = "1\n"
	}

	// The value file already exists; O_TRUNC keeps regular files used in tests consistent.
	f, err := os.OpenFile(g.path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("open gpio value: %w", err)
	}

	if _, err = f.WriteString(value); err != nil {
		_ = f.Close()
		return fmt.Errorf("write gpio value: %w", err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("close gpio value: %w", err)
	}

	return nil
}

// Close is a no-op; the value file is opened per write.
func (g *GPIO) Close() error {
	return nil
}

func (g *GPIO) level(direction siren.Direction) (bool, error) {
	switch direction {
	case siren.DirectionOn:
		return !g.activeLow, nil
	case siren.DirectionOff:
		return g.activeLow, nil
	default:
		return false, fmt.Errorf("%w: %q", errUnknownDirection, direction)
	}
}
