package lastvalue

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/lastvalue/source"
	"github.com/arloliu/lastvalue/timectx"
)

// Config is the configuration for a Reconciler and the adapters programs build
// around it.
//
// All duration fields accept standard Go duration strings like "500ms", "10s".
type Config struct {
	// RequestTimeout bounds each historical request. A request that times out is
	// treated like one that returned no datum.
	// Recommended: 10 seconds.
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	// RequestStrategy is passed to the telemetry source with every historical
	// request. Only "latest" is supported.
	RequestStrategy string `yaml:"requestStrategy"`

	// BoundsChangePolicy selects how a window redefinition (a bounds change that is
	// not a clock tick) is handled:
	//   - "refetch": reset the last emitted value and the buffered arrival and
	//     issue a new historical request, as for a time-key change
	//   - "refilter": keep the last emitted value; only later filtering changes
	//
	// Default: "refetch"
	BoundsChangePolicy BoundsChangePolicy `yaml:"boundsChangePolicy"`

	// ShutdownTimeout bounds how long Shutdown waits for in-flight historical
	// requests after disposal.
	// Recommended: 5 seconds.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// Source configures the NATS telemetry source.
	Source source.NATSConfig `yaml:"source"`

	// TimeContext configures the KV-driven time context.
	TimeContext timectx.Config `yaml:"timeContext"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		RequestTimeout:     10 * time.Second,
		RequestStrategy:    StrategyLatest,
		BoundsChangePolicy: BoundsRefetch,
		ShutdownTimeout:    5 * time.Second,
		Source:             source.DefaultNATSConfig(),
		TimeContext:        timectx.DefaultConfig(),
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.RequestStrategy == "" {
		cfg.RequestStrategy = defaults.RequestStrategy
	}
	if cfg.BoundsChangePolicy == "" {
		cfg.BoundsChangePolicy = defaults.BoundsChangePolicy
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	cfg.Source.ApplyDefaults()
	cfg.TimeContext.ApplyDefaults()
}

// Validate checks configuration constraints and returns error for invalid values.
//
// Returns:
//   - error: Validation error with clear explanation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("RequestTimeout must be > 0, got %v", cfg.RequestTimeout)
	}
	if cfg.RequestStrategy != StrategyLatest {
		return fmt.Errorf("RequestStrategy must be %q, got %q", StrategyLatest, cfg.RequestStrategy)
	}
	if !cfg.BoundsChangePolicy.Valid() {
		return fmt.Errorf("BoundsChangePolicy must be %q or %q, got %q",
			BoundsRefetch, BoundsRefilter, cfg.BoundsChangePolicy)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("ShutdownTimeout must be > 0, got %v", cfg.ShutdownTimeout)
	}
	if err := cfg.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}

	return nil
}

// ValidateWithWarnings logs warnings for valid but unusual values.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.RequestTimeout < 100*time.Millisecond {
		logger.Warn("RequestTimeout is very short, historical values may be missed",
			"requestTimeout", cfg.RequestTimeout,
			"recommended", "1s or higher",
		)
	}
	if cfg.RequestTimeout > time.Minute {
		logger.Warn("RequestTimeout is very long, arrivals stay buffered until it settles",
			"requestTimeout", cfg.RequestTimeout,
		)
	}
}

// TestConfig returns a configuration with short timeouts and in-memory storage
// for fast tests.
//
// Returns:
//   - Config: Configuration for tests
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.RequestTimeout = 2 * time.Second
	cfg.ShutdownTimeout = time.Second
	cfg.Source.Storage = source.StorageMemory
	cfg.TimeContext.TickInterval = 50 * time.Millisecond
	cfg.TimeContext.RestartBackoffBase = 10 * time.Millisecond
	cfg.TimeContext.RestartBackoffCap = 200 * time.Millisecond

	return cfg
}

// LoadConfig reads a YAML configuration file, applies defaults and validates it.
//
// Parameters:
//   - path: Path to a YAML file
//
// Returns:
//   - Config: Loaded configuration
//   - error: Read, parse or validation failure (wraps ErrInvalidConfig for the latter two)
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML configuration, applies defaults and validates it.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return cfg, nil
}
