package siren

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ThresholdName is the key of a single bound inside a ThresholdSet.
type ThresholdName string

const (
	// ThresholdNormal is the outermost bound.
	ThresholdNormal ThresholdName = "normal"
	// ThresholdWarning is the warning bound.
	ThresholdWarning ThresholdName = "warning"
	// ThresholdAlert is the alert bound.
	ThresholdAlert ThresholdName = "alert"
	// ThresholdDanger is the innermost bound.
	ThresholdDanger ThresholdName = "danger"
)

// ThresholdNames lists bound keys from least to most severe.
//
//nolint:gochecknoglobals // Fixed key order.
var ThresholdNames = []ThresholdName{ThresholdNormal, ThresholdWarning, ThresholdAlert, ThresholdDanger}

var (
	// ErrUnknownThreshold is returned for a key outside ThresholdNames.
	ErrUnknownThreshold = errors.New("unknown threshold")
	// ErrOutOfRange is returned for a bound that is not a positive finite distance within range.
	ErrOutOfRange = errors.New("threshold out of range")
)

// ThresholdSet holds the four distance bounds.
// The expected order is Danger < Alert < Warning < Normal.
type ThresholdSet struct {
	Normal  float64 `yaml:"normal"`
	Warning float64 `yaml:"warning"`
	Alert   float64 `yaml:"alert"`
	Danger  float64 `yaml:"danger"`
}

// DefaultThresholds returns the bounds used before anything is persisted.
func DefaultThresholds() ThresholdSet {
	return ThresholdSet{
		Normal:  8,
		Warning: 5,
		Alert:   3,
		Danger:  2,
	}
}

// ParseThresholdName normalises and checks a bound key.
func ParseThresholdName(s string) (ThresholdName, error) {
	name := ThresholdName(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ThresholdNames {
		if known == name {
			return name, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownThreshold, s)
}

// Get returns the bound stored under name.
func (t ThresholdSet) Get(name ThresholdName) (float64, error) {
	switch name {
	case ThresholdNormal:
		return t.Normal, nil
	case ThresholdWarning:
		return t.Warning, nil
	case ThresholdAlert:
		return t.Alert, nil
	case ThresholdDanger:
		return t.Danger, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownThreshold, name)
	}
}

// With returns a copy of t with one bound replaced.
func (t ThresholdSet) With(name ThresholdName, value float64) (ThresholdSet, error) {
	switch name {
	case ThresholdNormal:
		t.Normal = value
	case ThresholdWarning:
		t.Warning = value
	case ThresholdAlert:
		t.Alert = value
	case ThresholdDanger:
		t.Danger = value
	default:
		return t, fmt.Errorf("%w: %q", ErrUnknownThreshold, name)
	}

	return t, nil
}

// Map returns the bounds keyed by name.
func (t ThresholdSet) Map() map[ThresholdName]float64 {
	return map[ThresholdName]float64{
		ThresholdNormal:  t.Normal,
		ThresholdWarning: t.Warning,
		ThresholdAlert:   t.Alert,
		ThresholdDanger:  t.Danger,
	}
}

// Ordered reports whether the bounds are strictly descending from normal to danger.
func (t ThresholdSet) Ordered() bool {
	return t.Danger < t.Alert && t.Alert < t.Warning && t.Warning < t.Normal
}

// CheckBound validates a single bound against the allowed distance range (0, maxDistance].
// A non-positive maxDistance disables the upper check.
func CheckBound(value, maxDistance float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return fmt.Errorf("%w: %v", ErrOutOfRange, value)
	}

	if maxDistance > 0 && value > maxDistance {
		return fmt.Errorf("%w: %v exceeds %v", ErrOutOfRange, value, maxDistance)
	}

	return nil
}

// Validate checks every bound with CheckBound. Ordering is not enforced.
func (t ThresholdSet) Validate(maxDistance float64) error {
	for _, name := range ThresholdNames {
		value, _ := t.Get(name) //nolint:errcheck // Names come from ThresholdNames.
		if err := CheckBound(value, maxDistance); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	return nil
}

// Classify maps a distance to a Level, checking the tightest bound first so that
// a distance equal to a bound belongs to the stricter level. Misordered bounds
// still yield a result following this evaluation order.
func Classify(distance float64, t ThresholdSet) Level {
	switch {
	case distance <= t.Danger:
		return LevelDanger
	case distance <= t.Alert:
		return LevelAlert
	case distance <= t.Warning:
		return LevelWarning
	case distance <= t.Normal:
		return LevelNormal
	default:
		return LevelSafe
	}
}
