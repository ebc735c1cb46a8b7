// Package hooks provides default Hooks implementations.
package hooks

import (
	"context"

	"github.com/arloliu/lastvalue/types"
)

// NopHooks implements Hooks with no-op callbacks.
//
// This is the default implementation used when no custom hooks are provided,
// eliminating the need for nil checks throughout the codebase.
type NopHooks struct{}

// Compile-time assertions that NopHooks implements hook callbacks.
var (
	_ func(context.Context, string, types.State, types.State) error = (*NopHooks)(nil).OnStateChanged
	_ func(context.Context, string, error) error                    = (*NopHooks)(nil).OnError
)

// NewNop creates a new no-op hooks implementation.
func NewNop() *types.Hooks {
	h := &NopHooks{}

	return &types.Hooks{
		OnStateChanged: h.OnStateChanged,
		OnError:        h.OnError,
	}
}

// Fill returns a copy of hooks with every nil callback replaced by a no-op.
//
// Parameters:
//   - hooks: User hooks, may be nil
//
// Returns:
//   - *types.Hooks: Hooks safe to call without nil checks
func Fill(hooks *types.Hooks) *types.Hooks {
	filled := NewNop()
	if hooks == nil {
		return filled
	}
	if hooks.OnStateChanged != nil {
		filled.OnStateChanged = hooks.OnStateChanged
	}
	if hooks.OnError != nil {
		filled.OnError = hooks.OnError
	}

	return filled
}

// OnStateChanged is a no-op implementation.
func (h *NopHooks) OnStateChanged(_ context.Context, _ string, _, _ types.State) error {
	return nil
}

// OnError is a no-op implementation.
func (h *NopHooks) OnError(_ context.Context, _ string, _ error) error {
	return nil
}
