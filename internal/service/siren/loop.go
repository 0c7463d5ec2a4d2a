package siren

import (
	"context"
	"time"

	domain "github.com/oshokin/siren-guard/internal/domain/siren"
	"github.com/oshokin/siren-guard/internal/logger"
)

// Loop samples the sensor on a fixed period and feeds the controller.
type Loop struct {
	controller *Controller
	sensor     Sensor
	interval   time.Duration
}

// NewLoop creates an acquisition loop.
func NewLoop(c *Controller, sensor Sensor, interval time.Duration) *Loop {
	return &Loop{
		controller: c,
		sensor:     sensor,
		interval:   interval,
	}
}

// Run ticks immediately and then every interval until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	ctx = logger.WithName(ctx, "acquisition")

	logger.InfoKV(ctx, "Acquisition loop started", "interval", l.interval)
	defer logger.Info(ctx, "Acquisition loop stopped")

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		l.Tick(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick takes one sample and evaluates it. A failed read skips actuation but
// still publishes telemetry.
func (l *Loop) Tick(ctx context.Context) {
	now := l.controller.now()

	if value, ok := l.controller.DebugDistance(); ok {
		l.controller.Evaluate(ctx, domain.Sample{Value: value, Timestamp: now, Debug: true})
		return
	}

	value, err := l.sensor.ReadDistance(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}

		logger.ErrorKV(ctx, "Sensor read failed", "error", err)
		l.controller.ReportFailure(ctx, now, err)

		return
	}

	level := l.controller.Evaluate(ctx, domain.Sample{Value: value, Timestamp: now})

	logger.DebugKV(ctx, "Sample classified", "distance", value, "level", level)
}
