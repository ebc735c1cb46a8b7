package source

import (
	"github.com/arloliu/lastvalue/internal/logging"
	"github.com/arloliu/lastvalue/internal/metrics"
	"github.com/arloliu/lastvalue/types"
)

// Option configures a source.
type Option func(*sourceOptions)

type sourceOptions struct {
	logger  types.Logger
	metrics types.SourceMetrics
}

// WithLogger sets the logger.
func WithLogger(logger types.Logger) Option {
	return func(o *sourceOptions) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m types.SourceMetrics) Option {
	return func(o *sourceOptions) {
		o.metrics = m
	}
}

func applyOptions(opts []Option) sourceOptions {
	o := sourceOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.metrics == nil {
		o.metrics = metrics.NewNop()
	}

	return o
}

// inWindow reports whether d should be returned for a request bounded by opts.
// Datums whose Instant cannot be determined are accepted.
func inWindow(resolver types.FormatResolver, opts types.RequestOptions, d types.Datum) bool {
	if resolver == nil {
		return true
	}
	parser, ok := resolver.Parser(opts.TimeKey)
	if !ok {
		return true
	}
	instant, ok := parser.Parse(d)
	if !ok {
		return true
	}

	return opts.Bounds.Contains(instant)
}
