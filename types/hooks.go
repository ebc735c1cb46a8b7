package types

import "context"

// Hooks defines callbacks for Reconciler lifecycle events.
//
// All hooks are optional and called asynchronously in background goroutines so they
// never delay value delivery. The context passed to hooks is not cancelled by
// disposal, so the final transition is still observable. Hook errors are logged
// and otherwise ignored.
//
// Example:
//
//	hooks := &lastvalue.Hooks{
//	    OnStateChanged: func(ctx context.Context, entity string, from, to lastvalue.State) error {
//	        log.Printf("%s: %s -> %s", entity, from, to)
//	        return nil
//	    },
//	}
type Hooks struct {
	// OnStateChanged is called when the reconciler changes state.
	OnStateChanged func(ctx context.Context, entity string, from, to State) error

	// OnError is called when a recoverable error occurs, such as a failed
	// historical request.
	OnError func(ctx context.Context, entity string, err error) error
}
