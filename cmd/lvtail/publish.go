package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arloliu/lastvalue"
	"github.com/arloliu/lastvalue/format"
	"github.com/arloliu/lastvalue/source"
)

// PublishOptions holds flags for the publish command.
type PublishOptions struct {
	*RootOptions
	Entity string
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PublishOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "publish <json>",
		Short: "Store a datum for an entity",
		Long: `Store one datum in the telemetry stream and deliver it to live subscribers.

Example:
  lvtail publish --entity sat-1.battery '{"utc": 1700000000000, "value": 12.5}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.Entity, "entity", "e", "", "entity identifier (required)")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

// parseDatum decodes a JSON object.
func parseDatum(raw string) (lastvalue.Datum, error) {
	var d lastvalue.Datum
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("datum must be a JSON object: %w", err)
	}
	if d == nil {
		return nil, errors.New("datum must be a JSON object, got null")
	}

	return d, nil
}

func runPublish(ctx context.Context, opts *PublishOptions, raw string, out io.Writer) error {
	d, err := parseDatum(raw)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid datum", err)
	}

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

	src, err := source.NewNATS(ctx, nc, cfg.Source, format.Default(), source.WithLogger(opts.logger()))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open telemetry stream", err)
	}
	if err := src.Publish(ctx, opts.Entity, d); err != nil {
		return WrapExitError(ExitFailure, "publish failed", err)
	}

	_, err = fmt.Fprintf(out, "published to %s\n", src.Subject(opts.Entity))

	return err
}
