package sensor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/oshokin/siren-guard/internal/config"
)

// Reader returns the current distance.
type Reader interface {
	ReadDistance(ctx context.Context) (float64, error)
	io.Closer
}

var (
	// ErrNoReading is returned before the first valid reading arrives.
	ErrNoReading = errors.New("no distance reading yet")
	// ErrStale is returned when the latest reading is too old.
	ErrStale = errors.New("distance reading is stale")
	// ErrUnparsable is returned for a line without a number.
	ErrUnparsable = errors.New("unparsable distance reading")
	// errUnknownKind is returned by Open for an unsupported sensor kind.
	errUnknownKind = errors.New("unknown sensor kind")
)

// Open builds the reader selected by cfg.
//
//nolint:ireturn // The sensor kind is chosen at runtime.
func Open(ctx context.Context, cfg config.Sensor) (Reader, error) {
	switch cfg.Kind {
	case config.SensorSerial:
		return OpenSerial(ctx, cfg.Port, cfg.BaudRate, cfg.StaleAfter)
	case config.SensorFile:
		return NewFile(cfg.Path), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownKind, cfg.Kind)
	}
}

// ParseReading extracts the first number from a sensor line.
// It accepts plain values ("123.4"), prefixed frames ("R0123") and
// labelled values ("distance=12.5 cm").
func ParseReading(line string) (float64, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.' && r != '-'
	})

	for _, field := range fields {
		value, err := strconv.ParseFloat(field, 64)
		if err == nil {
			return value, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnparsable, line)
}
