package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/arloliu/lastvalue/types"
	"github.com/stretchr/testify/require"
)

func TestNewNop(t *testing.T) {
	hooks := NewNop()

	require.NotNil(t, hooks.OnStateChanged)
	require.NotNil(t, hooks.OnError)

	ctx := context.Background()
	require.NoError(t, hooks.OnStateChanged(ctx, "sat-1", types.StateAwaitingLAD, types.StateLADResolved))
	require.NoError(t, hooks.OnError(ctx, "sat-1", errors.New("boom")))
}

func TestFill(t *testing.T) {
	t.Run("nil hooks", func(t *testing.T) {
		filled := Fill(nil)
		require.NotNil(t, filled.OnStateChanged)
		require.NotNil(t, filled.OnError)
	})

	t.Run("partial hooks keep user callbacks", func(t *testing.T) {
		called := false
		user := &types.Hooks{
			OnError: func(context.Context, string, error) error {
				called = true
				return nil
			},
		}

		filled := Fill(user)
		require.NotNil(t, filled.OnStateChanged)
		require.NoError(t, filled.OnError(context.Background(), "sat-1", errors.New("boom")))
		require.True(t, called)
		require.Nil(t, user.OnStateChanged, "input must not be mutated")
	})
}
