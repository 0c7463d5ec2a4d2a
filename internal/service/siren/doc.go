// Package siren is the level-classification and actuation core.
//
// A Controller owns every piece of shared state (thresholds, mode, override,
// last acted level, actuator state) behind one mutex and is the only path to
// the actuator: each write names the authority asking for it and is dropped
// unless that authority holds priority (override > manual > auto). The
// Pattern Controller runs at most one cancellable timed sequence. The Router
// applies inbound control messages one at a time and the Loop samples the
// sensor on a fixed period.
package siren
