package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/arloliu/lastvalue"
	"github.com/arloliu/lastvalue/format"
	"github.com/arloliu/lastvalue/source"
	"github.com/arloliu/lastvalue/timectx"
)

// TailOptions holds flags for the tail command.
type TailOptions struct {
	*RootOptions
	Entity  string
	TimeKey string
	Start   float64
	End     float64
	Follow  time.Duration
	Shared  bool
}

// NewTailCommand creates the tail command.
func NewTailCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TailOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the latest value of an entity as it changes",
		Long: `Print the latest value of an entity, one JSON object per line.

The window is chosen by exactly one of:
  --start/--end  a fixed window in time-key units
  --follow       a live window ending at the local clock
  --shared       bounds, clock and time system from the shared KV bucket

Example:
  lvtail tail --entity sat-1.battery --follow 1h
  lvtail tail --entity sat-1.battery --start 0 --end 1700003600000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTail(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.Entity, "entity", "e", "", "entity identifier (required)")
	cmd.Flags().StringVar(&opts.TimeKey, "time-key", format.UTC, "time-key used for ordering and bounds")
	cmd.Flags().Float64Var(&opts.Start, "start", 0, "window start")
	cmd.Flags().Float64Var(&opts.End, "end", 0, "window end")
	cmd.Flags().DurationVar(&opts.Follow, "follow", 0, "follow the local clock with a window of this width")
	cmd.Flags().BoolVar(&opts.Shared, "shared", false, "use the shared time context bucket")
	_ = cmd.MarkFlagRequired("entity")
	cmd.MarkFlagsMutuallyExclusive("follow", "shared")
	cmd.MarkFlagsMutuallyExclusive("follow", "end")
	cmd.MarkFlagsMutuallyExclusive("shared", "end")

	return cmd
}

func runTail(parent context.Context, opts *TailOptions, out io.Writer) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	logger := opts.logger()

	bounds := lastvalue.Bounds{Start: lastvalue.Instant(opts.Start), End: lastvalue.Instant(opts.End)}
	if !opts.Shared && opts.Follow == 0 {
		if err := bounds.Validate(); err != nil {
			return WrapExitError(ExitCommandError, "invalid window", err)
		}
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	nc, err := connect(cfg)
	if err != nil {
		return err
	}
	defer nc.Close()

	formats := format.Default()
	src, err := source.NewNATS(ctx, nc, cfg.Source, formats, source.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open telemetry stream", err)
	}

	tc := timectx.New(bounds, lastvalue.TimeSystem{Key: opts.TimeKey}, timectx.WithLogger(logger))

	var followers sync.WaitGroup
	defer followers.Wait()

	switch {
	case opts.Shared:
		js, err := jetstream.New(nc)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to init JetStream", err)
		}
		watcher := timectx.NewKVWatcher(js, cfg.TimeContext, tc, logger)
		if err := watcher.Start(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to watch time context", err)
		}
		defer watcher.Stop()
	case opts.Follow > 0:
		followCtx, cancelFollow := context.WithCancel(ctx)
		defer cancelFollow()

		// Seed the live window so the reconciler starts in Live mode.
		span := lastvalue.Instant(opts.Follow.Milliseconds())
		clock := timectx.NewLocalClock("")
		now := clock.Now()
		if err := tc.Tick(lastvalue.Bounds{Start: now - span, End: now}); err != nil {
			return WrapExitError(ExitCommandError, "invalid follow window", err)
		}
		tc.SetClock(clock)
		followers.Go(func() {
			if err := timectx.Follow(followCtx, tc, clock, span, cfg.TimeContext.TickInterval); err != nil {
				logger.Error("clock follower stopped", "error", err)
			}
		})
	}

	enc := json.NewEncoder(out)
	r, err := lastvalue.NewReconciler(&cfg, src, tc, formats, lastvalue.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create reconciler", err)
	}
	if _, err := r.Start(opts.Entity, func(d lastvalue.Datum) {
		if err := enc.Encode(d); err != nil {
			logger.Error("failed to write value", "error", err)
		}
	}); err != nil {
		return WrapExitError(ExitFailure, "failed to start", err)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := r.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "shutdown incomplete", err)
	}

	return nil
}
