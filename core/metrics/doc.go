package metrics

// Package metrics defines interfaces and record types for collecting
// dispatch decisions. Sinks like PromSink and InfluxSink record events such
// as reassignments, escalations or penalty assessments and can be combined
// with NewMultiSink. NopSink is used when no backend is configured.
