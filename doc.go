// Package lastvalue delivers the latest value of a telemetry entity to a callback,
// reconciling a one-shot historical lookup with a live stream.
//
// A Reconciler requests the latest datum within the current time bounds and
// subscribes to live datums at the same time. Whichever arrives first, the
// callback only ever sees values in strictly increasing time order under the
// active time-key and, while no clock is attached, only values inside the bounds.
// Live arrivals that race the historical request are coalesced so at most one of
// them is delivered once the request settles.
//
// # Quick Start
//
//	import (
//	    "github.com/arloliu/lastvalue"
//	    "github.com/arloliu/lastvalue/format"
//	    "github.com/arloliu/lastvalue/source"
//	    "github.com/arloliu/lastvalue/timectx"
//	)
//
//	cfg := lastvalue.DefaultConfig()
//	src := source.NewMemory(format.Default())
//	tc := timectx.New(lastvalue.Bounds{Start: start, End: end}, lastvalue.TimeSystem{Key: format.UTC})
//
//	r, err := lastvalue.NewReconciler(&cfg, src, tc, format.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dispose, err := r.Start("sat-1", func(d lastvalue.Datum) {
//	    fmt.Println(d["value"])
//	})
//	defer dispose()
//
// # Modes
//
// Fixed mode (no clock attached) drops values outside the bounds. Live mode (a
// clock is attached) delivers any value newer than the last one, since the window
// trails the clock. Attaching or detaching a clock switches modes without a new
// historical request.
//
// # Reconfiguration
//
// A time-key change re-issues the historical request; values already delivered
// keep ordering later arrivals, reparsed with the new key. Bounds redefinitions
// follow Config.BoundsChangePolicy; clock ticks only move the window.
//
// # Architecture
//
// A Reconciler moves through:
//
//	AwaitingLAD → LADResolved → Disposed
//
// returning to AwaitingLAD on every re-issued request. The state machine itself
// lives in internal/reconcile and runs on a serial queue, so collaborators may call
// in from any goroutine. See the examples/ directory for a complete program.
package lastvalue
