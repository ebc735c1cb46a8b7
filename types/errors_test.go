package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	t.Run("wrapped errors keep identity", func(t *testing.T) {
		wrapped := fmt.Errorf("subscribe entity-1: %w", ErrSubscribeFailed)
		require.ErrorIs(t, wrapped, ErrSubscribeFailed)
		require.NotErrorIs(t, wrapped, ErrDisposed)

		joined := errors.Join(ErrDecodeFailed, errors.New("unexpected EOF"))
		require.ErrorIs(t, joined, ErrDecodeFailed)
	})

	t.Run("all errors are distinct", func(t *testing.T) {
		allErrors := []error{
			ErrInvalidConfig,
			ErrTelemetrySourceRequired,
			ErrTimeContextRequired,
			ErrFormatResolverRequired,
			ErrEntityRequired,
			ErrCallbackRequired,
			ErrAlreadyStarted,
			ErrDisposed,
			ErrSubscribeFailed,
			ErrInvalidBounds,
			ErrUnknownTimeKey,
			ErrConnectivity,
			ErrDecodeFailed,
			ErrWatcherFailed,
		}

		seen := make(map[string]bool, len(allErrors))
		for _, err := range allErrors {
			require.False(t, seen[err.Error()], "duplicate error message: %s", err)
			seen[err.Error()] = true
		}
	})
}
