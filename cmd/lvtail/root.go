package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/arloliu/lastvalue"
	"github.com/arloliu/lastvalue/internal/logging"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // Runtime failure (connection lost, shutdown timeout)
	ExitCommandError = 2 // Bad flags, unreadable config, unreachable server
)

// ExitError carries the process exit code for a command error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	URL        string
	Verbose    bool
}

// NewRootCommand creates the lvtail root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "lvtail",
		Short: "Follow the latest value of a telemetry entity",
		Long: `lvtail follows the latest value of one telemetry entity stored in NATS JetStream.

Values are reconciled against a time window: a one-shot historical lookup is
combined with the live stream so only newer values inside the window are printed.
The window can be fixed, follow the local clock, or be shared through a KV bucket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.URL, "url", "", "NATS server URL (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(NewTailCommand(opts))
	cmd.AddCommand(NewPublishCommand(opts))
	cmd.AddCommand(NewTimeCommand(opts))

	return cmd
}

// load reads the config file, if any, and applies flag overrides.
func (o *RootOptions) load() (lastvalue.Config, error) {
	cfg := lastvalue.DefaultConfig()
	if o.ConfigPath != "" {
		loaded, err := lastvalue.LoadConfig(o.ConfigPath)
		if err != nil {
			return cfg, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}
	if o.URL != "" {
		cfg.Source.URL = o.URL
	}

	lastvalue.SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, WrapExitError(ExitCommandError, "invalid config", err)
	}

	return cfg, nil
}

// logger writes to stderr so stdout only carries values.
func (o *RootOptions) logger() *logging.SlogLogger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	return logging.NewSlog(slog.New(handler))
}

func connect(cfg lastvalue.Config) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.Source.URL, nats.Name("lvtail"))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to connect to NATS", err)
	}

	return nc, nil
}
