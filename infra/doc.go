// Package infra contains technical adapters such as MQTT notifiers,
// Redis stores and metrics exporters. These packages should depend only
// on the interfaces defined in the core packages.
package infra
