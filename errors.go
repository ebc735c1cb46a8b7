package lastvalue

import "github.com/arloliu/lastvalue/types"

// Sentinel errors returned by the Reconciler.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrTelemetrySourceRequired is returned when the telemetry source is nil.
	ErrTelemetrySourceRequired = types.ErrTelemetrySourceRequired

	// ErrTimeContextRequired is returned when the time context is nil.
	ErrTimeContextRequired = types.ErrTimeContextRequired

	// ErrFormatResolverRequired is returned when the format resolver is nil.
	ErrFormatResolverRequired = types.ErrFormatResolverRequired

	// ErrEntityRequired is returned when Start is called with an empty entity.
	ErrEntityRequired = types.ErrEntityRequired

	// ErrCallbackRequired is returned when Start is called with a nil callback.
	ErrCallbackRequired = types.ErrCallbackRequired

	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = types.ErrAlreadyStarted

	// ErrDisposed is returned when Start is called on a disposed reconciler.
	ErrDisposed = types.ErrDisposed

	// ErrSubscribeFailed wraps the telemetry source's subscription error.
	ErrSubscribeFailed = types.ErrSubscribeFailed

	// ErrInvalidBounds is returned when a window has start after end.
	ErrInvalidBounds = types.ErrInvalidBounds

	// ErrUnknownTimeKey is returned when no parser is registered for a time-key.
	ErrUnknownTimeKey = types.ErrUnknownTimeKey

	// ErrConnectivity indicates a NATS connectivity issue.
	ErrConnectivity = types.ErrConnectivity

	// ErrDecodeFailed is returned when a payload is not a valid datum.
	ErrDecodeFailed = types.ErrDecodeFailed
)
