package natsutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/lastvalue/types"
)

func TestSubjectToken(t *testing.T) {
	t.Run("valid tokens pass through", func(t *testing.T) {
		require.Equal(t, "sat-1", SubjectToken("sat-1"))
		require.Equal(t, "abc_DEF:42", SubjectToken("abc_DEF:42"))
	})

	t.Run("invalid tokens are hashed", func(t *testing.T) {
		for _, entity := range []string{"", "sat-1.battery", "a*b", "a>b", "with space"} {
			token := SubjectToken(entity)
			require.Len(t, token, len(hashedTokenPrefix)+16, entity)
			require.True(t, isValidToken(token), entity)
		}
	})

	t.Run("hashing is stable and distinct", func(t *testing.T) {
		require.Equal(t, SubjectToken("sat-1.battery"), SubjectToken("sat-1.battery"))
		require.NotEqual(t, SubjectToken("sat-1.battery"), SubjectToken("sat-2.battery"))
	})

	t.Run("hashed-looking entities are hashed again", func(t *testing.T) {
		hashed := SubjectToken("sat-1.battery")
		require.NotEqual(t, hashed, SubjectToken(hashed))
	})
}

func TestSubject(t *testing.T) {
	require.Equal(t, "telemetry.sat-1", Subject("telemetry", "sat-1"))
	require.Equal(t, "telemetry."+SubjectToken("a.b"), Subject("telemetry", "a.b"))
}

func TestIsConnectivityError(t *testing.T) {
	require.False(t, IsConnectivityError(nil))
	require.True(t, IsConnectivityError(nats.ErrTimeout))
	require.True(t, IsConnectivityError(fmt.Errorf("request: %w", nats.ErrNoServers)))
	require.True(t, IsConnectivityError(types.ErrConnectivity))
	require.True(t, IsConnectivityError(errors.New("dial tcp: connection refused")))
	require.False(t, IsConnectivityError(errors.New("invalid json")))
}

func TestIsNotFound(t *testing.T) {
	require.True(t, IsNotFound(jetstream.ErrMsgNotFound))
	require.True(t, IsNotFound(fmt.Errorf("get: %w", jetstream.ErrKeyNotFound)))
	require.False(t, IsNotFound(errors.New("other")))
}
