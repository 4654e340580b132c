// Package config loads service configuration from an optional YAML
// file and LANDERSIM_-prefixed environment variables, env taking
// precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/rickfu415/landing-control/internal/geometry"
)

// Config is the full service configuration.
type Config struct {
	HTTPAddr   string `mapstructure:"http_addr"`
	LogLevel   string `mapstructure:"log_level"`
	TrustProxy bool   `mapstructure:"trust_proxy"`

	AuthEnabled bool   `mapstructure:"auth_enabled"`
	AuthToken   string `mapstructure:"auth_token"`

	MaxSessions     int `mapstructure:"max_sessions"`
	MaxStreamsPerIP int `mapstructure:"max_streams_per_ip"`

	TickMillis    int     `mapstructure:"tick_millis"`
	TimeStep      float64 `mapstructure:"time_step"`
	StartAltitude float64 `mapstructure:"start_altitude"`

	DefaultPreset string `mapstructure:"default_preset"`
	WindLevel     int    `mapstructure:"wind_level"`
	WindSeed      int64  `mapstructure:"wind_seed"`
	SimpleAero    bool   `mapstructure:"simple_aero"`
}

// Load reads landersim.yaml from the working directory (if present)
// and the environment, then validates the result.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("trust_proxy", false)
	v.SetDefault("auth_enabled", false)
	v.SetDefault("max_sessions", 100)
	v.SetDefault("max_streams_per_ip", 10)
	v.SetDefault("tick_millis", 20)
	v.SetDefault("time_step", 0.02)
	v.SetDefault("start_altitude", 4000)
	v.SetDefault("default_preset", "falcon9_block5_landing")
	v.SetDefault("wind_level", 3)
	v.SetDefault("wind_seed", 0)
	v.SetDefault("simple_aero", false)

	v.SetConfigName("landersim")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/landersim")

	v.SetEnvPrefix("LANDERSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.AuthEnabled && c.AuthToken == "" {
		return fmt.Errorf("auth_token is required when auth is enabled")
	}
	if c.WindLevel < 0 || c.WindLevel > 9 {
		return fmt.Errorf("wind_level must be 0-9, got %d", c.WindLevel)
	}
	if c.TickMillis < 1 {
		return fmt.Errorf("tick_millis must be at least 1, got %d", c.TickMillis)
	}
	if c.TimeStep <= 0 || c.TimeStep > 1 {
		return fmt.Errorf("time_step must be in (0, 1], got %g", c.TimeStep)
	}
	if c.StartAltitude <= 0 {
		return fmt.Errorf("start_altitude must be positive, got %g", c.StartAltitude)
	}
	if _, err := geometry.Preset(c.DefaultPreset); err != nil {
		return fmt.Errorf("default_preset: %w", err)
	}
	return nil
}
