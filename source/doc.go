// Package source provides built-in telemetry source implementations.
//
// A telemetry source answers one-shot historical lookups for the latest datum of
// an entity and delivers live datums in arrival order. The package includes:
//
//   - Memory: in-process history and fan-out, for tests and embedding
//   - NATS: core NATS subscriptions for live datums and a JetStream stream for
//     historical lookups
//
// Custom sources can be implemented by satisfying the types.TelemetrySource interface.
package source
