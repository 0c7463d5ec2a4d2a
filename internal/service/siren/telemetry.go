package siren

import (
	"context"
	"time"

	"github.com/oshokin/siren-guard/internal/bus"
	domain "github.com/oshokin/siren-guard/internal/domain/siren"
	"github.com/oshokin/siren-guard/internal/logger"
)

// MissingDistance is reported as the distance when no reading was ever taken.
const MissingDistance = -1.0

// Evaluate classifies sample, lets the level drive the actuator when AUTO holds
// it and publishes telemetry. It returns the classified level.
func (c *Controller) Evaluate(ctx context.Context, sample domain.Sample) domain.Level {
	c.mu.Lock()
	c.distance = sample.Value
	c.hasDistance = true
	thresholds := c.thresholds
	c.mu.Unlock()

	level := domain.Classify(sample.Value, thresholds)

	c.Observe(ctx, level)
	c.enforceOverride(ctx)

	payload := c.telemetry(sample.Timestamp)
	payload["level"] = level.String()

	if sample.Debug {
		payload["debug"] = true
	}

	c.publish(ctx, TopicTelemetry, payload)

	return level
}

// ReportFailure publishes telemetry for a tick whose reading failed. The last
// known distance is reported, or MissingDistance.
func (c *Controller) ReportFailure(ctx context.Context, at time.Time, cause error) {
	c.enforceOverride(ctx)

	payload := c.telemetry(at)
	payload["error"] = cause.Error()

	c.publish(ctx, TopicTelemetry, payload)
}

// telemetry builds the common telemetry fields from one consistent snapshot.
func (c *Controller) telemetry(at time.Time) map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	distance := MissingDistance
	if c.hasDistance {
		distance = c.distance
	}

	if at.IsZero() {
		at = c.now()
	}

	actuator := string(c.output.Direction)
	if actuator == "" {
		actuator = "UNKNOWN"
	}

	return map[string]any{
		"device":             c.deviceID,
		"unit":               c.unit,
		"timestamp":          at.UTC().Format(domain.TimestampLayout),
		"distance":           distance,
		"mode":               string(c.mode),
		"level":              c.level.String(),
		"normal":             c.thresholds.Normal,
		"warning":            c.thresholds.Warning,
		"alert":              c.thresholds.Alert,
		"danger":             c.thresholds.Danger,
		"thresholds_ordered": c.thresholds.Ordered(),
		"override":           c.override != nil,
		"actuator":           actuator,
	}
}

// publishStatus publishes the full status snapshot.
func (c *Controller) publishStatus(ctx context.Context) {
	c.publish(ctx, TopicStatus, c.Status(ctx).Fields())
}

func (c *Controller) publish(ctx context.Context, topic string, payload map[string]any) {
	if c.publisher == nil {
		return
	}

	if err := c.publisher.Publish(ctx, topic, payload); err != nil {
		logger.WarnKV(ctx, "Failed to publish", "topic", topic, "error", err)
	}
}

// BusPublisher publishes controller output on an in-process bus. Status is
// retained so late subscribers see the current state.
type BusPublisher struct {
	Bus *bus.Bus
}

// Publish implements Publisher.
func (p BusPublisher) Publish(_ context.Context, topic string, payload map[string]any) error {
	p.Bus.Publish(&bus.Message{
		Topic:    topic,
		Payload:  payload,
		Retained: topic == TopicStatus,
	})

	return nil
}
