package siren

import "time"

// Sample is a single distance reading.
type Sample struct {
	// Value is the distance in the configured unit.
	Value float64
	// Timestamp is when the reading was taken.
	Timestamp time.Time
	// Debug marks a value injected through the debug distance hook.
	Debug bool
}

// Override forces the actuator to Direction until cleared.
type Override struct {
	// ID identifies this override in logs and status output.
	ID string
	// Direction is the value written while the override is present.
	Direction Direction
	// Reason is free text supplied by whoever set the override.
	Reason string
	// Timestamp is when the override was set.
	Timestamp time.Time
}

// Clone returns a copy of the override.
func (o *Override) Clone() *Override {
	if o == nil {
		return nil
	}

	cloned := *o

	return &cloned
}

// ActuatorState is the last value commanded to the actuator.
type ActuatorState struct {
	// Direction is empty until the first write.
	Direction Direction
	// Confirmed is false when the last write failed or timed out.
	Confirmed bool
	// Timestamp is when the last write was attempted.
	Timestamp time.Time
}

// Command is an inbound control message.
type Command struct {
	// ID correlates the command across log lines.
	ID string
	// Topic is the logical control topic, e.g. "mode/set".
	Topic string
	// Payload is the raw message body.
	Payload string
	// ReceivedAt is when the transport accepted the message.
	ReceivedAt time.Time
}

// Status is a point-in-time snapshot of the siren state.
type Status struct {
	DeviceID      string
	Unit          string
	Mode          Mode
	Level         Level
	ActedLevel    Level
	Pattern       string
	Actuator      ActuatorState
	Override      *Override
	Thresholds    ThresholdSet
	Distance      float64
	HasDistance   bool
	DebugDistance *float64
	Transitions   uint64
	Timestamp     time.Time
}

// Clone returns a deep copy of the snapshot.
func (s *Status) Clone() *Status {
	if s == nil {
		return nil
	}

	cloned := *s
	cloned.Override = s.Override.Clone()

	if s.DebugDistance != nil {
		value := *s.DebugDistance
		cloned.DebugDistance = &value
	}

	return &cloned
}

// TimestampLayout is ISO-8601 with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Fields flattens the snapshot into transport friendly values
// (strings, float64, bool and nested maps only).
func (s *Status) Fields() map[string]any {
	fields := map[string]any{
		"device":             s.DeviceID,
		"unit":               s.Unit,
		"mode":               string(s.Mode),
		"level":              s.Level.String(),
		"acted_level":        s.ActedLevel.String(),
		"pattern":            s.Pattern,
		"actuator":           string(s.Actuator.Direction),
		"actuator_confirmed": s.Actuator.Confirmed,
		"transitions":        float64(s.Transitions),
		"timestamp":          s.Timestamp.UTC().Format(TimestampLayout),
		"thresholds_ordered": s.Thresholds.Ordered(),
	}

	thresholds := make(map[string]any, len(ThresholdNames))
	for name, value := range s.Thresholds.Map() {
		thresholds[string(name)] = value
	}

	fields["thresholds"] = thresholds

	if s.HasDistance {
		fields["distance"] = s.Distance
	}

	if s.DebugDistance != nil {
		fields["debug_distance"] = *s.DebugDistance
	}

	if s.Override != nil {
		fields["override"] = map[string]any{
			"id":        s.Override.ID,
			"direction": string(s.Override.Direction),
			"reason":    s.Override.Reason,
			"timestamp": s.Override.Timestamp.UTC().Format(TimestampLayout),
		}
	}

	return fields
}
