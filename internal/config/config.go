// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/yapb/internal/core"
	"firestige.xyz/yapb/pkg/yapb"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `yapb:` root key in YAML.
type GlobalConfig struct {
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Listener ListenerConfig `mapstructure:"listener"`
	Codec    CodecConfig    `mapstructure:"codec"`
}

// ─── Listener ───

// ListenerConfig configures the packet ingest listener.
type ListenerConfig struct {
	Network       string `mapstructure:"network"` // tcp | udp
	Addr          string `mapstructure:"addr"`
	MaxConns      int    `mapstructure:"max_conns"`    // TCP only, 0 = unlimited
	ReadTimeout   string `mapstructure:"read_timeout"` // e.g. "30s", "0" disables
	MaxPacketSize int    `mapstructure:"max_packet_size"`
}

// ReadTimeoutDuration returns the parsed read timeout. It is valid after
// ValidateAndApplyDefaults.
func (c ListenerConfig) ReadTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ReadTimeout)
	return d
}

// ─── Codec ───

// CodecConfig holds encoder and decoder limits.
type CodecConfig struct {
	BufferSize int `mapstructure:"buffer_size"` // write buffer for encode/send
	MaxDepth   int `mapstructure:"max_depth"`   // nesting limit for documents and dumps
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level"`  // debug / info / warn / error
	Format  string           `mapstructure:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `yapb: ...`.
type configRoot struct {
	Yapb GlobalConfig `mapstructure:"yapb"`
}

// Load loads configuration from file. An empty path yields the defaults,
// still subject to YAPB_* environment overrides.
// The `yapb.` key prefix maps to env vars via the key replacer
// (e.g., key "yapb.log.level" → env "YAPB_LOG_LEVEL").
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Yapb

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// Every key is registered so that AutomaticEnv can override it even when no
// config file is read.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("yapb.log.level", "info")
	v.SetDefault("yapb.log.format", "text")
	v.SetDefault("yapb.log.outputs.file.enabled", false)
	v.SetDefault("yapb.log.outputs.file.path", "/var/log/yapb/yapb.log")
	v.SetDefault("yapb.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("yapb.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("yapb.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("yapb.log.outputs.file.rotation.compress", true)

	// Metrics defaults
	v.SetDefault("yapb.metrics.enabled", false)
	v.SetDefault("yapb.metrics.listen", ":9091")
	v.SetDefault("yapb.metrics.path", "/metrics")

	// Listener defaults
	v.SetDefault("yapb.listener.network", "tcp")
	v.SetDefault("yapb.listener.addr", ":7400")
	v.SetDefault("yapb.listener.max_conns", 256)
	v.SetDefault("yapb.listener.read_timeout", "30s")
	v.SetDefault("yapb.listener.max_packet_size", 65536)

	// Codec defaults
	v.SetDefault("yapb.codec.buffer_size", 65536)
	v.SetDefault("yapb.codec.max_depth", 16)
}

// ValidateAndApplyDefaults validates configuration and normalizes values.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: invalid log format: %s (must be json/text)", core.ErrConfigInvalid, cfg.Log.Format)
	}

	// ── Listener validation ──
	l := &cfg.Listener
	l.Network = strings.ToLower(l.Network)
	if l.Network != "tcp" && l.Network != "udp" {
		return fmt.Errorf("%w: invalid listener.network: %s (must be tcp/udp)", core.ErrConfigInvalid, l.Network)
	}
	if l.MaxPacketSize < yapb.HeaderSize {
		return fmt.Errorf("%w: listener.max_packet_size must be at least %d", core.ErrConfigInvalid, yapb.HeaderSize)
	}
	if l.MaxConns < 0 {
		return fmt.Errorf("%w: listener.max_conns must not be negative", core.ErrConfigInvalid)
	}
	if l.ReadTimeout == "" {
		l.ReadTimeout = "0s"
	}
	if d, err := time.ParseDuration(l.ReadTimeout); err != nil || d < 0 {
		return fmt.Errorf("%w: invalid listener.read_timeout: %q", core.ErrConfigInvalid, l.ReadTimeout)
	}

	// ── Codec validation ──
	if cfg.Codec.BufferSize < yapb.HeaderSize {
		return fmt.Errorf("%w: codec.buffer_size must be at least %d", core.ErrConfigInvalid, yapb.HeaderSize)
	}
	if cfg.Codec.MaxDepth < 1 {
		return fmt.Errorf("%w: codec.max_depth must be positive", core.ErrConfigInvalid)
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics.enabled=true", core.ErrConfigInvalid)
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	return nil
}
