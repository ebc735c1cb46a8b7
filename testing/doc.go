// Package testing provides test utilities for lastvalue.
//
// It starts in-process NATS servers with JetStream so the NATS telemetry source
// and the KV-driven time context can be exercised without external services, in
// the spirit of net/http/httptest.
//
// Key utilities:
//   - StartEmbeddedNATS: Single NATS server with JetStream
//   - NewJetStream: JetStream context bound to a test connection
//   - CreateTimeContextKV: KV bucket for a shared time context
//   - NewTestLogger: Logger writing through t.Log
//
// Example usage:
//
//	import (
//	    "testing"
//	    lvtest "github.com/arloliu/lastvalue/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    _, nc := lvtest.StartEmbeddedNATS(t)
//	    src, err := source.NewNATS(t.Context(), nc, source.NATSConfig{Storage: source.StorageMemory}, format.Default())
//	    // ...
//	}
package testing
