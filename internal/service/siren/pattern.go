package siren

import (
	"context"
	"errors"
	"time"

	domain "github.com/oshokin/siren-guard/internal/domain/siren"
	"github.com/oshokin/siren-guard/internal/logger"
)

// Pattern is a timed actuation sequence.
type Pattern int

// Patterns driven by the controller.
const (
	PatternNone Pattern = iota
	PatternOff
	PatternWarning
	PatternAlert
	PatternDanger
)

// Pulse phase lengths in time units.
const (
	pulseOnUnits  = 10
	pulseGapUnits = 5
)

func (p Pattern) String() string {
	switch p {
	case PatternOff:
		return "OFF"
	case PatternWarning:
		return "PULSE_WARNING"
	case PatternAlert:
		return "PULSE_ALERT"
	case PatternDanger:
		return "STEADY_DANGER"
	default:
		return "NONE"
	}
}

// PatternFor maps a level to the pattern that represents it.
func PatternFor(level domain.Level) Pattern {
	switch level {
	case domain.LevelDanger:
		return PatternDanger
	case domain.LevelAlert:
		return PatternAlert
	case domain.LevelWarning:
		return PatternWarning
	case domain.LevelNormal, domain.LevelSafe:
		return PatternOff
	default:
		return PatternNone
	}
}

// Timings scales the patterns.
type Timings struct {
	// Unit is the length of one time unit.
	Unit time.Duration
	// WarningCooldown is the trailing OFF phase of the warning pulse, in units.
	WarningCooldown int
	// AlertCooldown is the trailing OFF phase of the alert pulse, in units.
	AlertCooldown int
	// RebootPulse is how long the reboot command holds the relay ON.
	RebootPulse time.Duration
}

// DefaultTimings returns the production pattern timings.
func DefaultTimings() Timings {
	return Timings{
		Unit:            time.Second,
		WarningCooldown: 60,
		AlertCooldown:   20,
		RebootPulse:     2 * time.Second,
	}
}

// phase is one step of a pattern. Units == 0 means hold the direction until cancelled.
type phase struct {
	direction domain.Direction
	units     int
}

func (t Timings) phases(p Pattern) []phase {
	pulse := func(cooldown int) []phase {
		return []phase{
			{direction: domain.DirectionOn, units: pulseOnUnits},
			{direction: domain.DirectionOff, units: pulseGapUnits},
			{direction: domain.DirectionOn, units: pulseOnUnits},
			{direction: domain.DirectionOff, units: cooldown},
		}
	}

	switch p {
	case PatternWarning:
		return pulse(t.WarningCooldown)
	case PatternAlert:
		return pulse(t.AlertCooldown)
	case PatternDanger:
		return []phase{{direction: domain.DirectionOn}}
	case PatternOff:
		return []phase{{direction: domain.DirectionOff}}
	default:
		return nil
	}
}

// patternTask is the single running pattern.
type patternTask struct {
	gen     uint64
	pattern Pattern
	level   domain.Level
	cancel  context.CancelFunc
	done    chan struct{}
}

// startPatternLocked supersedes the running task with the pattern for level.
// The caller holds c.mu.
func (c *Controller) startPatternLocked(level domain.Level) {
	c.cancelPatternLocked()

	pattern := PatternFor(level)
	if pattern == PatternNone {
		return
	}

	c.generation++

	ctx, cancel := context.WithCancel(logger.WithKV(c.lifetime, "pattern", pattern.String()))
	task := &patternTask{
		gen:     c.generation,
		pattern: pattern,
		level:   level,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	c.task = task

	go c.runPattern(ctx, task, c.timings.phases(pattern))
}

// cancelPatternLocked stops the running task without waiting for it.
// The caller holds c.mu; the generation check in the arbiter blocks any write
// the old task still has in flight.
func (c *Controller) cancelPatternLocked() {
	if c.task == nil {
		return
	}

	c.task.cancel()
	c.task = nil
}

func (c *Controller) runPattern(ctx context.Context, task *patternTask, phases []phase) {
	defer close(task.done)

	if len(phases) == 0 {
		return
	}

	logger.DebugKV(ctx, "Pattern started", "level", task.level)
	defer logger.DebugKV(ctx, "Pattern finished", "level", task.level)

	for i := 0; ; {
		if ctx.Err() != nil {
			return
		}

		current := phases[i]

		err := c.write(ctx, authorityAuto, task.gen, current.direction)
		if errors.Is(err, ErrSuppressed) {
			return
		}

		if current.units == 0 {
			if err == nil {
				return
			}

			// Steady patterns retry failed writes once per unit.
			if !sleepContext(ctx, c.timings.Unit) {
				return
			}

			continue
		}

		if !sleepContext(ctx, time.Duration(current.units)*c.timings.Unit) {
			return
		}

		i = (i + 1) % len(phases)
	}
}

// sleepContext waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
