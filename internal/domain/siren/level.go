package siren

import (
	"fmt"
	"strings"
)

// Level is a severity bucket. Lower values are more severe.
type Level int

const (
	// LevelUnknown means no sample has been classified yet.
	LevelUnknown Level = iota
	// LevelDanger is the most severe level.
	LevelDanger
	// LevelAlert sits between danger and warning.
	LevelAlert
	// LevelWarning sits between alert and normal.
	LevelWarning
	// LevelNormal is a distance within the normal bound.
	LevelNormal
	// LevelSafe is a distance beyond every bound.
	LevelSafe
)

//nolint:gochecknoglobals // Lookup table.
var levelNames = map[Level]string{
	LevelUnknown: "UNKNOWN",
	LevelDanger:  "DANGER",
	LevelAlert:   "ALERT",
	LevelWarning: "WARNING",
	LevelNormal:  "NORMAL",
	LevelSafe:    "SAFE",
}

// String returns the upper-case level name.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}

	return fmt.Sprintf("Level(%d)", int(l))
}

// Quiet reports whether the level keeps the siren silent.
func (l Level) Quiet() bool {
	return l == LevelNormal || l == LevelSafe || l == LevelUnknown
}

// ParseLevel converts a level name into a Level.
func ParseLevel(s string) (Level, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for level, name := range levelNames {
		if level != LevelUnknown && name == s {
			return level, nil
		}
	}

	return LevelUnknown, fmt.Errorf("%w: level %q", ErrInvalidValue, s)
}
