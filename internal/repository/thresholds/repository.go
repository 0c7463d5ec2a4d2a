package thresholds

import (
	"context"
	"errors"

	"github.com/oshokin/siren-guard/internal/domain/siren"
)

// Repository defines persistence operations for the threshold set.
type Repository interface {
	Load(ctx context.Context) (siren.ThresholdSet, error)
	Save(ctx context.Context, set siren.ThresholdSet) error
}

var (
	// ErrNotFound is returned when nothing has been persisted yet.
	ErrNotFound = errors.New("thresholds not found")
	// ErrIncomplete is returned when persisted data lacks some bounds.
	ErrIncomplete = errors.New("thresholds incomplete")
)

// LoadOrDefault loads the persisted set and falls back to defaults when none exists.
// Other errors are returned together with the defaults so callers can keep serving.
func LoadOrDefault(ctx context.Context, repo Repository, defaults siren.ThresholdSet) (siren.ThresholdSet, error) {
	if repo == nil {
		return defaults, nil
	}

	set, err := repo.Load(ctx)

	switch {
	case err == nil:
		return set, nil
	case errors.Is(err, ErrNotFound):
		return defaults, nil
	default:
		return defaults, err
	}
}
