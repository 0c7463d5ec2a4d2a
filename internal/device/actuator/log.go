package actuator

import (
	"context"

	"github.com/oshokin/siren-guard/internal/domain/siren"
	"github.com/oshokin/siren-guard/internal/logger"
)

// Log only records writes. Used for dry runs and bench setups without a relay.
type Log struct{}

// NewLog creates the dry-run driver.
func NewLog() *Log {
	return &Log{}
}

// Set logs the requested direction.
func (*Log) Set(ctx context.Context, direction siren.Direction) error {
	logger.InfoKV(ctx, "Relay switched (dry run)", "direction", direction)

	return nil
}

// Close is a no-op.
func (*Log) Close() error {
	return nil
}
