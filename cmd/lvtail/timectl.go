package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/arloliu/lastvalue"
	"github.com/arloliu/lastvalue/internal/kvutil"
	"github.com/arloliu/lastvalue/timectx"
)

// NewTimeCommand creates the time command, which edits the shared time context
// followed by "tail --shared".
func NewTimeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "time",
		Short: "Edit the shared time context",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "bounds <start> <end>",
		Short: "Redefine the shared window",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := parseBounds(args[0], args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid bounds", err)
			}

			return withTimeBucket(cmd.Context(), rootOpts, func(ctx context.Context, kv jetstream.KeyValue) error {
				return timectx.PublishBounds(ctx, kv, b)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clock [key]",
		Short: "Attach a clock, or detach it when no key is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			}

			return withTimeBucket(cmd.Context(), rootOpts, func(ctx context.Context, kv jetstream.KeyValue) error {
				return timectx.PublishClock(ctx, kv, key)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "system <time-key>",
		Short: "Switch the shared time system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts := lastvalue.TimeSystem{Key: args[0]}

			return withTimeBucket(cmd.Context(), rootOpts, func(ctx context.Context, kv jetstream.KeyValue) error {
				return timectx.PublishTimeSystem(ctx, kv, ts)
			})
		},
	})

	return cmd
}

func parseBounds(start, end string) (lastvalue.Bounds, error) {
	s, err := strconv.ParseFloat(start, 64)
	if err != nil {
		return lastvalue.Bounds{}, fmt.Errorf("start: %w", err)
	}
	e, err := strconv.ParseFloat(end, 64)
	if err != nil {
		return lastvalue.Bounds{}, fmt.Errorf("end: %w", err)
	}

	b := lastvalue.Bounds{Start: lastvalue.Instant(s), End: lastvalue.Instant(e)}
	if err := b.Validate(); err != nil {
		return lastvalue.Bounds{}, err
	}

	return b, nil
}

func withTimeBucket(ctx context.Context, opts *RootOptions, fn func(context.Context, jetstream.KeyValue) error) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	nc, err := connect(cfg)
	if err != nil {
		return err
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to init JetStream", err)
	}
	kv, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
		Bucket:  cfg.TimeContext.Bucket,
		History: 1,
	}, 3)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open time context bucket", err)
	}

	if err := fn(ctx, kv); err != nil {
		return WrapExitError(ExitFailure, "update failed", err)
	}

	return nil
}
