package lastvalue

// Option configures a Reconciler with optional dependencies.
type Option func(*reconcilerOptions)

// reconcilerOptions holds optional Reconciler configuration.
type reconcilerOptions struct {
	hooks   *Hooks
	metrics MetricsCollector
	logger  Logger
}

// WithHooks sets lifecycle event hooks.
//
// Hooks run on their own goroutines and never delay value delivery.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewReconciler
//
// Example:
//
//	hooks := &lastvalue.Hooks{
//	    OnStateChanged: func(ctx context.Context, entity string, from, to lastvalue.State) error {
//	        log.Printf("%s: %s -> %s", entity, from, to)
//	        return nil
//	    },
//	}
//	r, err := lastvalue.NewReconciler(&cfg, src, tc, formats, lastvalue.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *reconcilerOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewReconciler
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *reconcilerOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewReconciler
//
// Example:
//
//	logger := zap.NewExample().Sugar()
//	r, err := lastvalue.NewReconciler(&cfg, src, tc, formats, lastvalue.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *reconcilerOptions) {
		o.logger = logger
	}
}
