// Package timectx implements the Time Context consumed by reconcilers.
//
// A Context holds the current bounds, the optional clock and the active time
// system, and notifies registered handlers when any of them changes. It can be
// driven three ways:
//
//   - directly, through SetBounds, SetClock and SetTimeSystem
//   - by Follow, which attaches a clock and advances the bounds with tick
//     notifications on a fixed interval
//   - by a KVWatcher, which mirrors the "bounds", "clock" and "timesystem" keys
//     of a NATS JetStream KV bucket into the Context
//
// Handlers run synchronously on the goroutine that made the change and must not
// block.
package timectx
