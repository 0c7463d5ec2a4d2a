package siren

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domain "github.com/oshokin/siren-guard/internal/domain/siren"
	"github.com/oshokin/siren-guard/internal/logger"
)

// Observe records a freshly classified level and, when AUTO holds the actuator,
// starts the matching pattern if the level differs from the last acted one.
// It reports whether a transition happened.
//
// The first level seen seeds the acted level; a quiet first level (NORMAL,
// SAFE) is not a transition, a loud one starts its pattern at once. A quiet
// seed still switches the relay off when another authority left it on.
func (c *Controller) Observe(ctx context.Context, level domain.Level) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.level = level

	if c.closed || c.mode != domain.ModeAuto || c.override != nil || level == c.acted {
		return false
	}

	previous := c.acted
	c.acted = level

	if previous == domain.LevelUnknown && level.Quiet() {
		if c.output.Confirmed && c.output.Direction == domain.DirectionOff {
			logger.DebugKV(ctx, "Level seeded", "level", level)
			return false
		}

		logger.InfoKV(ctx, "Level seeded, switching relay off", "level", level, "relay", c.output.Direction)
		c.startPatternLocked(level)

		return false
	}

	logger.InfoKV(ctx, "Level transition", "from", previous, "to", level)

	c.transitions++
	c.startPatternLocked(level)

	return true
}

// Mode returns the current mode.
func (c *Controller) Mode() domain.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.mode
}

// SetMode switches between AUTO and MANUAL. Entering MANUAL cancels the running
// pattern and leaves the relay where it is; entering AUTO re-evaluates the live
// level from scratch. Repeating the current mode changes nothing.
func (c *Controller) SetMode(ctx context.Context, mode domain.Mode) error {
	if mode != domain.ModeAuto && mode != domain.ModeManual {
		return fmt.Errorf("%w: mode %q", domain.ErrInvalidValue, mode)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	previous := c.mode
	if mode == previous {
		c.mu.Unlock()
		logger.DebugKV(ctx, "Mode unchanged", "mode", mode)

		return nil
	}

	c.mode = mode
	c.cancelPatternLocked()
	c.acted = domain.LevelUnknown

	if mode == domain.ModeAuto && c.override == nil {
		c.reassertLocked()
	}
	c.mu.Unlock()

	logger.InfoKV(ctx, "Mode changed", "from", previous, "to", mode)

	c.publishStatus(ctx)

	return nil
}

// reassertLocked makes AUTO act on the live level. The caller holds c.mu.
func (c *Controller) reassertLocked() {
	c.acted = c.level
	if c.level == domain.LevelUnknown {
		return
	}

	c.transitions++
	c.startPatternLocked(c.level)
}

// Override returns the active override, or nil.
func (c *Controller) Override() *domain.Override {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.override.Clone()
}

// SetOverride forces the relay to direction until ClearOverride. The running
// pattern is cancelled and every other authority is suppressed.
func (c *Controller) SetOverride(
	ctx context.Context,
	direction domain.Direction,
	reason string,
) (*domain.Override, error) {
	if direction != domain.DirectionOn && direction != domain.DirectionOff {
		return nil, fmt.Errorf("%w: direction %q", domain.ErrInvalidValue, direction)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}

	override := &domain.Override{
		ID:        uuid.NewString(),
		Direction: direction,
		Reason:    reason,
		Timestamp: c.now(),
	}

	c.override = override
	c.cancelPatternLocked()
	c.interruptPulseLocked()
	c.acted = domain.LevelUnknown
	c.mu.Unlock()

	logger.WarnKV(ctx, "Override set",
		"override_id", override.ID,
		"direction", direction,
		"reason", reason)

	err := c.write(ctx, authorityOverride, 0, direction)
	if errors.Is(err, ErrSuppressed) {
		// A newer override replaced this one before the write.
		err = nil
	}

	c.publishStatus(ctx)

	return override.Clone(), err
}

// ClearOverride hands the relay back to the current mode. It reports whether
// an override was present.
func (c *Controller) ClearOverride(ctx context.Context) bool {
	c.mu.Lock()
	if c.override == nil {
		c.mu.Unlock()
		return false
	}

	cleared := c.override
	c.override = nil

	if c.mode == domain.ModeAuto && !c.closed {
		c.reassertLocked()
	}
	c.mu.Unlock()

	logger.InfoKV(ctx, "Override cleared", "override_id", cleared.ID)

	c.publishStatus(ctx)

	return true
}

// ManualRelay writes direction on behalf of an operator. It is refused while an
// override is present or outside MANUAL mode.
func (c *Controller) ManualRelay(ctx context.Context, direction domain.Direction) error {
	c.mu.Lock()
	override, mode := c.override != nil, c.mode
	c.mu.Unlock()

	switch {
	case override:
		return ErrOverrideActive
	case mode != domain.ModeManual:
		return ErrNotManual
	}

	err := c.write(ctx, authorityManual, 0, direction)
	if errors.Is(err, ErrSuppressed) {
		// Mode or override changed between the check and the write.
		return ErrNotManual
	}

	c.publishStatus(ctx)

	return err
}

// Reboot pulses the relay ON for the configured reboot pulse and restores the
// previous state. It holds the actuator for the pulse and is refused while an
// override is present. SetOverride and Close end the pulse early; the restore
// is then suppressed and the new authority writes at once.
func (c *Controller) Reboot(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.override != nil:
		c.mu.Unlock()
		return ErrOverrideActive
	}

	previous := c.output.Direction
	pulseCtx, cancel := context.WithCancel(ctx)
	c.pulse = cancel
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.pulse = nil
		c.mu.Unlock()

		cancel()
	}()

	if previous == "" {
		previous = domain.DirectionOff
	}

	logger.InfoKV(ctx, "Reboot pulse", "duration", c.timings.RebootPulse, "restore", previous)

	if err := c.writeLocked(ctx, authorityMaintenance, 0, domain.DirectionOn); err != nil {
		if errors.Is(err, ErrSuppressed) {
			return ErrOverrideActive
		}

		return err
	}

	if !sleepContext(pulseCtx, c.timings.RebootPulse) {
		logger.Info(ctx, "Reboot pulse interrupted")
	}

	err := c.writeLocked(context.WithoutCancel(ctx), authorityMaintenance, 0, previous)
	if errors.Is(err, ErrSuppressed) {
		return nil
	}

	return err
}

// interruptPulseLocked ends a running reboot pulse. The caller holds c.mu.
func (c *Controller) interruptPulseLocked() {
	if c.pulse != nil {
		c.pulse()
	}
}

// enforceOverride rewrites the override direction when the last write failed or
// drifted, so a failed override write is retried every tick.
func (c *Controller) enforceOverride(ctx context.Context) {
	c.mu.Lock()
	override := c.override.Clone()
	output := c.output
	c.mu.Unlock()

	if override == nil {
		return
	}

	if output.Confirmed && output.Direction == override.Direction {
		return
	}

	logger.WarnKV(ctx, "Re-applying override", "override_id", override.ID, "direction", override.Direction)

	if err := c.write(ctx, authorityOverride, 0, override.Direction); err != nil && !errors.Is(err, ErrSuppressed) {
		logger.DebugKV(ctx, "Override retry failed", "error", err)
	}
}
