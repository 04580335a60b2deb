// Package services defines shared error classification helpers consumed by
// the collector, analyzer, and provider integrations.
//
// The exported sentinel errors tag failures by kind (configuration,
// unavailable provider, exhausted budget, and so on) and the Wrap helper
// builds messages that carry component and operation context while keeping
// the marker reachable through errors.Is. Use these helpers when wiring new
// components so retry and notification behaviour stays uniform across the
// pipeline.
package services
