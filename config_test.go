package lastvalue

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/lastvalue/internal/logger"
	"github.com/arloliu/lastvalue/source"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, 10*time.Second, cfg.RequestTimeout)
	require.Equal(t, StrategyLatest, cfg.RequestStrategy)
	require.Equal(t, BoundsRefetch, cfg.BoundsChangePolicy)
	require.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, "telemetry", cfg.Source.SubjectPrefix)
	require.Equal(t, "lastvalue-time", cfg.TimeContext.Bucket)
	require.NoError(t, cfg.Validate())
}

func TestSetDefaults(t *testing.T) {
	t.Run("applies defaults to empty config", func(t *testing.T) {
		cfg := Config{}
		SetDefaults(&cfg)

		require.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("preserves custom values", func(t *testing.T) {
		cfg := Config{
			RequestTimeout:     3 * time.Second,
			BoundsChangePolicy: BoundsRefilter,
			ShutdownTimeout:    time.Second,
			Source:             source.NATSConfig{SubjectPrefix: "tlm", MaxScan: 8},
		}
		SetDefaults(&cfg)

		require.Equal(t, 3*time.Second, cfg.RequestTimeout)
		require.Equal(t, BoundsRefilter, cfg.BoundsChangePolicy)
		require.Equal(t, time.Second, cfg.ShutdownTimeout)
		require.Equal(t, "tlm", cfg.Source.SubjectPrefix)
		require.Equal(t, 8, cfg.Source.MaxScan)
		require.Equal(t, "TELEMETRY", cfg.Source.StreamName)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero request timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"unknown strategy", func(c *Config) { c.RequestStrategy = "minmax" }},
		{"unknown bounds policy", func(c *Config) { c.BoundsChangePolicy = "ignore" }},
		{"negative shutdown timeout", func(c *Config) { c.ShutdownTimeout = -time.Second }},
		{"invalid source storage", func(c *Config) { c.Source.Storage = "tape" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_ValidateWithWarnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequestTimeout = 10 * time.Millisecond

	// Must not fail the test; warnings go to the test log.
	cfg.ValidateWithWarnings(logger.NewTest(t))
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()

	require.NoError(t, cfg.Validate())
	require.Equal(t, source.StorageMemory, cfg.Source.Storage)
	require.Less(t, cfg.RequestTimeout, DefaultConfig().RequestTimeout)
}

func TestConfig_YAML(t *testing.T) {
	input := `
requestTimeout: 3s
boundsChangePolicy: refilter
source:
  url: nats://telemetry:4222
  subjectPrefix: tlm
  maxScan: 16
timeContext:
  bucket: mission-time
  tickInterval: 250ms
`
	cfg, err := ParseConfig([]byte(input))
	require.NoError(t, err)

	require.Equal(t, 3*time.Second, cfg.RequestTimeout)
	require.Equal(t, BoundsRefilter, cfg.BoundsChangePolicy)
	require.Equal(t, StrategyLatest, cfg.RequestStrategy)
	require.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, "nats://telemetry:4222", cfg.Source.URL)
	require.Equal(t, "tlm", cfg.Source.SubjectPrefix)
	require.Equal(t, 16, cfg.Source.MaxScan)
	require.Equal(t, "TELEMETRY", cfg.Source.StreamName)
	require.Equal(t, "mission-time", cfg.TimeContext.Bucket)
	require.Equal(t, 250*time.Millisecond, cfg.TimeContext.TickInterval)

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	require.Contains(t, string(out), "boundsChangePolicy: refilter")
}

func TestParseConfig_Errors(t *testing.T) {
	_, err := ParseConfig([]byte("requestTimeout: [1"))
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = ParseConfig([]byte("boundsChangePolicy: sometimes"))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lastvalue.yaml")
	require.NoError(t, os.WriteFile(path, []byte("requestTimeout: 1s\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, time.Second, cfg.RequestTimeout)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
