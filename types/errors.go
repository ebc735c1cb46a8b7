package types

import "errors"

// Sentinel errors for the lastvalue library.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// All components should use these sentinel errors for known error conditions
// and wrap external errors with context using fmt.Errorf("%s: %w", msg, err).

// Reconciler errors - Public API errors returned by Reconciler.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrTelemetrySourceRequired is returned when the telemetry source is nil.
	ErrTelemetrySourceRequired = errors.New("telemetry source is required")

	// ErrTimeContextRequired is returned when the time context is nil.
	ErrTimeContextRequired = errors.New("time context is required")

	// ErrFormatResolverRequired is returned when the format resolver is nil.
	ErrFormatResolverRequired = errors.New("format resolver is required")

	// ErrEntityRequired is returned when Start is called with an empty entity.
	ErrEntityRequired = errors.New("entity is required")

	// ErrCallbackRequired is returned when Start is called with a nil callback.
	ErrCallbackRequired = errors.New("callback is required")

	// ErrAlreadyStarted is returned when Start is called on an already started reconciler.
	ErrAlreadyStarted = errors.New("reconciler already started")

	// ErrDisposed is returned when Start is called on a disposed reconciler.
	ErrDisposed = errors.New("reconciler disposed")

	// ErrSubscribeFailed is returned when the push subscription could not be opened.
	ErrSubscribeFailed = errors.New("failed to open subscription")
)

// Data model errors.
var (
	// ErrInvalidBounds is returned when a window has start after end.
	ErrInvalidBounds = errors.New("invalid bounds")

	// ErrUnknownTimeKey is returned when no parser is registered for a time-key.
	ErrUnknownTimeKey = errors.New("unknown time key")
)

// Source errors - Telemetry source adapter errors.
var (
	// ErrConnectivity indicates a NATS connectivity issue.
	ErrConnectivity = errors.New("connectivity issue")

	// ErrDecodeFailed is returned when a stored or pushed payload is not a valid datum.
	ErrDecodeFailed = errors.New("failed to decode datum")
)

// Time context errors.
var (
	// ErrWatcherFailed is returned when a NATS KV watcher fails.
	ErrWatcherFailed = errors.New("watcher operation failed")
)
