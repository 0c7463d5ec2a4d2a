package siren

import "strings"

// Outbound topics.
const (
	TopicTelemetry = "telemetry"
	TopicStatus    = "status"
)

// Inbound control topics.
const (
	TopicModeSet          = "mode/set"
	TopicRelaySet         = "relay/set"
	TopicThresholdPrefix  = "threshold/"
	TopicSetSuffix        = "/set"
	TopicDebugDistanceSet = "debug/distance/set"
	TopicReboot           = "reboot"
	TopicOverrideSet      = "override/set"
	TopicOverrideClear    = "override/clear"
)

// ThresholdTopic returns the control topic updating the named bound.
func ThresholdTopic(name string) string {
	return TopicThresholdPrefix + name + TopicSetSuffix
}

// NormalizeTopic lowercases topic and trims surrounding slashes and spaces.
func NormalizeTopic(topic string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(topic)), "/")
}
