package siren

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/oshokin/siren-guard/internal/domain/siren"
	"github.com/oshokin/siren-guard/internal/logger"
	"github.com/oshokin/siren-guard/internal/repository/thresholds"
)

// Actuator writes relay states.
type Actuator interface {
	Set(ctx context.Context, direction domain.Direction) error
}

// Sensor reads the current distance.
type Sensor interface {
	ReadDistance(ctx context.Context) (float64, error)
}

// Publisher delivers telemetry and status payloads. Failures are logged by the caller.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload map[string]any) error
}

// Options configures a Controller.
type Options struct {
	// DeviceID is reported in telemetry.
	DeviceID string
	// Unit is the distance unit reported in telemetry.
	Unit string
	// MaxDistance is the largest accepted threshold; zero disables the check.
	MaxDistance float64
	// Thresholds is the initial in-memory threshold set.
	Thresholds domain.ThresholdSet
	// Repository persists threshold updates. Optional.
	Repository thresholds.Repository
	// Actuator is the relay. Required.
	Actuator Actuator
	// Publisher receives telemetry and status. Optional.
	Publisher Publisher
	// Timings configures the patterns.
	Timings Timings
	// Mode is the initial mode; AUTO when empty.
	Mode domain.Mode
}

var (
	// ErrSuppressed is returned when the arbiter drops a write from an authority without priority.
	ErrSuppressed = errors.New("actuator write suppressed")
	// ErrOverrideActive is returned for commands refused while an override is present.
	ErrOverrideActive = errors.New("override is active")
	// ErrNotManual is returned for manual relay commands outside MANUAL mode.
	ErrNotManual = errors.New("not in manual mode")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("controller closed")
)

// authority names who asks for an actuator write.
type authority int

const (
	authorityAuto authority = iota + 1
	authorityManual
	authorityOverride
	authorityMaintenance
	authoritySystem
)

func (a authority) String() string {
	switch a {
	case authorityAuto:
		return "auto"
	case authorityManual:
		return "manual"
	case authorityOverride:
		return "override"
	case authorityMaintenance:
		return "maintenance"
	case authoritySystem:
		return "system"
	default:
		return fmt.Sprintf("authority(%d)", int(a))
	}
}

// Controller is the single owner of the siren state and the actuator.
type Controller struct {
	deviceID    string
	unit        string
	maxDistance float64
	repo        thresholds.Repository
	actuator    Actuator
	publisher   Publisher
	timings     Timings
	now         func() time.Time

	// lifetime parents every pattern task; Close cancels it.
	lifetime context.Context
	stop     context.CancelFunc

	// writeMu serialises actuator I/O so at most one write is in flight.
	writeMu sync.Mutex
	// persistMu keeps threshold saves in update order.
	persistMu sync.Mutex

	// mu guards every field below.
	mu            sync.Mutex
	thresholds    domain.ThresholdSet
	mode          domain.Mode
	override      *domain.Override
	level         domain.Level
	acted         domain.Level
	output        domain.ActuatorState
	distance      float64
	hasDistance   bool
	debugDistance *float64
	task          *patternTask
	pulse         context.CancelFunc
	generation    uint64
	transitions   uint64
	closed        bool
}

// NewController creates a controller. Pattern tasks inherit the logger of ctx
// but not its cancellation; call Close to stop them.
func NewController(ctx context.Context, opts *Options) *Controller {
	lifetime, stop := context.WithCancel(context.WithoutCancel(logger.WithName(ctx, "siren")))

	mode := opts.Mode
	if mode == "" {
		mode = domain.ModeAuto
	}

	timings := opts.Timings
	if timings.Unit <= 0 {
		timings = DefaultTimings()
	}

	return &Controller{
		deviceID:    opts.DeviceID,
		unit:        opts.Unit,
		maxDistance: opts.MaxDistance,
		repo:        opts.Repository,
		actuator:    opts.Actuator,
		publisher:   opts.Publisher,
		timings:     timings,
		now:         time.Now,
		lifetime:    lifetime,
		stop:        stop,
		thresholds:  opts.Thresholds,
		mode:        mode,
	}
}

// Start drives the actuator to a known OFF state and publishes the initial status.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	thresholds := c.thresholds
	c.mu.Unlock()

	if !thresholds.Ordered() {
		logger.WarnKV(ctx, "Thresholds are not strictly descending", "thresholds", thresholds)
	}

	err := c.write(ctx, authoritySystem, 0, domain.DirectionOff)

	c.publishStatus(ctx)

	return err
}

// Close clears the override, cancels the pattern and switches the relay off.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	c.closed = true
	c.override = nil
	c.cancelPatternLocked()
	c.interruptPulseLocked()
	c.mu.Unlock()

	c.stop()

	logger.Info(ctx, "Siren controller stopping, switching relay off")

	return c.write(context.WithoutCancel(ctx), authoritySystem, 0, domain.DirectionOff)
}

// Thresholds returns a consistent copy of the current set.
func (c *Controller) Thresholds() domain.ThresholdSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.thresholds
}

// SetThreshold validates and applies one bound, then persists the whole set.
// Persistence failures are logged; the in-memory value is kept.
func (c *Controller) SetThreshold(
	ctx context.Context,
	name domain.ThresholdName,
	value float64,
) (domain.ThresholdSet, error) {
	if err := domain.CheckBound(value, c.maxDistance); err != nil {
		return domain.ThresholdSet{}, err
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	next, err := c.thresholds.With(name, value)
	if err != nil {
		c.mu.Unlock()
		return domain.ThresholdSet{}, err
	}

	c.thresholds = next
	c.mu.Unlock()

	logger.InfoKV(ctx, "Threshold updated", "name", name, "value", value)

	if !next.Ordered() {
		logger.WarnKV(ctx, "Thresholds are not strictly descending", "thresholds", next)
	}

	if c.repo != nil {
		if err = c.repo.Save(ctx, next); err != nil {
			logger.ErrorKV(ctx, "Failed to persist thresholds, serving in-memory values", "error", err)
		}
	}

	c.publishStatus(ctx)

	return next, nil
}

// SetDebugDistance replaces the live sensor reading with value; nil restores the sensor.
func (c *Controller) SetDebugDistance(ctx context.Context, value *float64) {
	c.mu.Lock()
	if value == nil {
		c.debugDistance = nil
	} else {
		v := *value
		c.debugDistance = &v
	}
	c.mu.Unlock()

	if value == nil {
		logger.Info(ctx, "Debug distance cleared, using sensor")
	} else {
		logger.WarnKV(ctx, "Debug distance set, sensor bypassed", "distance", *value)
	}
}

// DebugDistance returns the injected distance, if any.
func (c *Controller) DebugDistance() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.debugDistance == nil {
		return 0, false
	}

	return *c.debugDistance, true
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status(_ context.Context) *domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.statusLocked()
}

func (c *Controller) statusLocked() *domain.Status {
	pattern := PatternNone
	if c.task != nil {
		pattern = c.task.pattern
	}

	status := &domain.Status{
		DeviceID:    c.deviceID,
		Unit:        c.unit,
		Mode:        c.mode,
		Level:       c.level,
		ActedLevel:  c.acted,
		Pattern:     pattern.String(),
		Actuator:    c.output,
		Override:    c.override.Clone(),
		Thresholds:  c.thresholds,
		Distance:    c.distance,
		HasDistance: c.hasDistance,
		Transitions: c.transitions,
		Timestamp:   c.now(),
	}

	if c.debugDistance != nil {
		v := *c.debugDistance
		status.DebugDistance = &v
	}

	return status
}

// write asks the arbiter to let auth write direction; gen identifies the pattern
// task for authorityAuto.
func (c *Controller) write(ctx context.Context, auth authority, gen uint64, direction domain.Direction) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.writeLocked(ctx, auth, gen, direction)
}

// writeLocked is write for callers already holding writeMu.
func (c *Controller) writeLocked(ctx context.Context, auth authority, gen uint64, direction domain.Direction) error {
	c.mu.Lock()
	allowed := c.allowedLocked(auth, gen, direction)
	c.mu.Unlock()

	if !allowed {
		logger.DebugKV(ctx, "Actuator write suppressed", "authority", auth, "direction", direction)
		return ErrSuppressed
	}

	err := c.actuator.Set(ctx, direction)

	c.mu.Lock()
	c.output = domain.ActuatorState{
		Direction: direction,
		Confirmed: err == nil,
		Timestamp: c.now(),
	}
	c.mu.Unlock()

	if err != nil {
		logger.ErrorKV(ctx, "Actuator write failed", "authority", auth, "direction", direction, "error", err)

		return fmt.Errorf("set actuator %s: %w", direction, err)
	}

	logger.DebugKV(ctx, "Actuator written", "authority", auth, "direction", direction)

	return nil
}

// allowedLocked decides whether auth currently holds priority over the actuator.
func (c *Controller) allowedLocked(auth authority, gen uint64, direction domain.Direction) bool {
	if auth == authoritySystem {
		return true
	}

	if c.closed {
		return false
	}

	switch auth {
	case authorityOverride:
		return c.override != nil && c.override.Direction == direction
	case authorityManual:
		return c.override == nil && c.mode == domain.ModeManual
	case authorityAuto:
		return c.override == nil && c.mode == domain.ModeAuto && c.task != nil && c.task.gen == gen
	case authorityMaintenance:
		return c.override == nil
	default:
		return false
	}
}
