package siren

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects which authority drives the actuator when no override is present.
type Mode string

const (
	// ModeAuto drives the actuator from the classified level.
	ModeAuto Mode = "AUTO"
	// ModeManual drives the actuator from direct operator commands.
	ModeManual Mode = "MANUAL"
)

// Direction is a commanded actuator value.
type Direction string

const (
	// DirectionOn energises the relay.
	DirectionOn Direction = "ON"
	// DirectionOff releases the relay.
	DirectionOff Direction = "OFF"
)

// ErrInvalidValue is returned when a textual value cannot be parsed.
var ErrInvalidValue = errors.New("invalid value")

// ParseMode accepts AUTO or MANUAL in any letter case.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeAuto:
		return ModeAuto, nil
	case ModeManual:
		return ModeManual, nil
	default:
		return "", fmt.Errorf("%w: mode %q", ErrInvalidValue, s)
	}
}

// ParseDirection accepts ON/OFF, 1/0 and TRUE/FALSE in any letter case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ON", "1", "TRUE":
		return DirectionOn, nil
	case "OFF", "0", "FALSE":
		return DirectionOff, nil
	default:
		return "", fmt.Errorf("%w: direction %q", ErrInvalidValue, s)
	}
}
