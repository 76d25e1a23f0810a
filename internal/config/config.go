// Package config loads timingd configuration from YAML and TIMING_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/adaptive-timing/internal/eval"
	"github.com/danielpatrickdp/adaptive-timing/internal/gate"
	"github.com/danielpatrickdp/adaptive-timing/internal/update"
)

// #region types
// Config is the full process configuration.
type Config struct {
	Store    StoreConfig  `koanf:"store"`
	Bandit   BanditConfig `koanf:"bandit"`
	Server   ServerConfig `koanf:"server"`
	Events   EventsConfig `koanf:"events"`
	Log      LogConfig    `koanf:"log"`
	Timezone string       `koanf:"timezone"` // IANA name; empty means local
}

// StoreConfig selects the policy repository.
type StoreConfig struct {
	Backend     string `koanf:"backend"` // memory | sqlite | redis
	SQLitePath  string `koanf:"sqlite_path"`
	RedisAddr   string `koanf:"redis_addr"`
	RedisPrefix string `koanf:"redis_prefix"`
}

// BanditConfig holds the learning and gating parameters.
type BanditConfig struct {
	Alpha           float64 `koanf:"alpha"`
	Scale           float64 `koanf:"scale"`
	MinObs          int     `koanf:"min_obs"`
	MinGain         float64 `koanf:"min_gain"`
	RewardWindow    int     `koanf:"reward_window"`
	GateExploration float64 `koanf:"gate_exploration"`
	PickExploration float64 `koanf:"pick_exploration"`
}

// ServerConfig holds listener addresses for timingd serve.
type ServerConfig struct {
	GRPCAddr    string `koanf:"grpc_addr"`
	MetricsAddr string `koanf:"metrics_addr"` // empty disables /metrics
}

// EventsConfig configures NATS publishing. An empty URL disables events.
type EventsConfig struct {
	NATSURL       string `koanf:"nats_url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// #endregion types

// #region defaults
// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills zero values. A zero bandit parameter is never a useful
// setting, so zero means unset.
func applyDefaults(cfg *Config) {
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "sqlite"
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = "adaptive_timing.db"
	}
	if cfg.Store.RedisAddr == "" {
		cfg.Store.RedisAddr = "localhost:6379"
	}
	if cfg.Store.RedisPrefix == "" {
		cfg.Store.RedisPrefix = "timing:"
	}

	g := gate.DefaultGateConfig()
	e := eval.DefaultEvalConfig()
	u := update.DefaultUpdateConfig()
	if cfg.Bandit.Alpha == 0 {
		cfg.Bandit.Alpha = u.Alpha
	}
	if cfg.Bandit.Scale == 0 {
		cfg.Bandit.Scale = u.Scale
	}
	if cfg.Bandit.MinObs == 0 {
		cfg.Bandit.MinObs = g.MinObs
	}
	if cfg.Bandit.MinGain == 0 {
		cfg.Bandit.MinGain = g.MinGain
	}
	if cfg.Bandit.RewardWindow == 0 {
		cfg.Bandit.RewardWindow = e.RewardWindow
	}

	if cfg.Server.GRPCAddr == "" {
		cfg.Server.GRPCAddr = "127.0.0.1:7070"
	}
	if cfg.Events.SubjectPrefix == "" {
		cfg.Events.SubjectPrefix = "timing"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// #endregion defaults

// #region validate
// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case "memory", "sqlite", "redis":
	default:
		errs = append(errs, fmt.Errorf("store.backend must be memory, sqlite or redis, got %q", c.Store.Backend))
	}
	if c.Bandit.Alpha <= 0 || c.Bandit.Alpha > 1 {
		errs = append(errs, fmt.Errorf("bandit.alpha must be in (0, 1], got %v", c.Bandit.Alpha))
	}
	if c.Bandit.Scale <= 0 {
		errs = append(errs, fmt.Errorf("bandit.scale must be positive, got %v", c.Bandit.Scale))
	}
	if c.Bandit.MinObs < 1 {
		errs = append(errs, fmt.Errorf("bandit.min_obs must be >= 1, got %d", c.Bandit.MinObs))
	}
	if c.Bandit.RewardWindow <= 0 {
		errs = append(errs, fmt.Errorf("bandit.reward_window must be positive, got %d", c.Bandit.RewardWindow))
	}
	for name, rate := range map[string]float64{
		"bandit.gate_exploration": c.Bandit.GateExploration,
		"bandit.pick_exploration": c.Bandit.PickExploration,
	} {
		if rate < 0 || rate > 1 {
			errs = append(errs, fmt.Errorf("%s must be in [0, 1], got %v", name, rate))
		}
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// #endregion validate

// #region accessors
// Location resolves Timezone; empty means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// GateConfig returns the gate thresholds.
func (c *Config) GateConfig() gate.GateConfig {
	return gate.GateConfig{
		MinObs:          c.Bandit.MinObs,
		MinGain:         c.Bandit.MinGain,
		GateExploration: c.Bandit.GateExploration,
		PickExploration: c.Bandit.PickExploration,
	}
}

// EvalConfig returns the reward window.
func (c *Config) EvalConfig() eval.EvalConfig {
	return eval.EvalConfig{RewardWindow: c.Bandit.RewardWindow}
}

// UpdateConfig returns the learning parameters.
func (c *Config) UpdateConfig() update.UpdateConfig {
	return update.UpdateConfig{Alpha: c.Bandit.Alpha, Scale: c.Bandit.Scale}
}

// #endregion accessors
