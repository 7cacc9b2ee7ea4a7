// Package config loads the trading system configuration from YAML or JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/venkat7568/tradego/execution"
	"github.com/venkat7568/tradego/risk"
	"github.com/venkat7568/tradego/scheduler"
)

// Config is the complete system configuration.
type Config struct {
	Account   AccountConfig   `json:"account" yaml:"account"`
	Universe  []string        `json:"universe" yaml:"universe"`
	Risk      risk.Limits     `json:"risk" yaml:"risk"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Execution ExecutionConfig `json:"execution" yaml:"execution"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Settings  SettingsConfig  `json:"settings" yaml:"settings"`
	Feed      FeedConfig      `json:"feed,omitempty" yaml:"feed,omitempty"`
	Notify    NotifyConfig    `json:"notify,omitempty" yaml:"notify,omitempty"`
	Metrics   MetricsConfig   `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// AccountConfig describes the trading account.
type AccountConfig struct {
	Mode            string  `json:"mode" yaml:"mode"` // "paper" or "live"
	StartingCapital float64 `json:"starting_capital" yaml:"starting_capital"`
}

// SchedulerConfig holds loop cadences as duration strings, e.g. "15m", "30s".
type SchedulerConfig struct {
	DecisionInterval string `json:"decision_interval" yaml:"decision_interval"`
	MonitorInterval  string `json:"monitor_interval" yaml:"monitor_interval"`
	Workers          int    `json:"workers" yaml:"workers"`
	MaxSnapshotAge   string `json:"max_snapshot_age" yaml:"max_snapshot_age"`
}

// ExecutionConfig bounds the entry fill wait.
type ExecutionConfig struct {
	FillWait     string `json:"fill_wait" yaml:"fill_wait"`
	FillPollRate string `json:"fill_poll_rate" yaml:"fill_poll_rate"`
}

// StoreConfig selects trade persistence.
type StoreConfig struct {
	Type   string `json:"type" yaml:"type"` // "sqlite" or "memory"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// SettingsConfig points at the polled settings file.
type SettingsConfig struct {
	Path string `json:"path" yaml:"path"`
}

// FeedConfig configures the websocket market feed.
type FeedConfig struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// NotifyConfig configures the Kafka notification sink. Empty brokers fall
// back to log-only notifications.
type NotifyConfig struct {
	Brokers []string `json:"brokers,omitempty" yaml:"brokers,omitempty"`
	Topic   string   `json:"topic,omitempty" yaml:"topic,omitempty"`
}

// MetricsConfig configures the Prometheus listener. Empty disables it.
type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// Default returns a paper-mode configuration with conservative limits.
func Default() *Config {
	return &Config{
		Account: AccountConfig{Mode: "paper", StartingCapital: 1_000_000},
		Risk:    risk.DefaultLimits(),
		Scheduler: SchedulerConfig{
			DecisionInterval: "15m",
			MonitorInterval:  "30s",
			Workers:          4,
			MaxSnapshotAge:   "5m",
		},
		Execution: ExecutionConfig{
			FillWait:     "30s",
			FillPollRate: "2s",
		},
		Store:    StoreConfig{Type: "sqlite", DBPath: "tradego.db"},
		Settings: SettingsConfig{Path: "settings.json"},
		Notify:   NotifyConfig{Topic: "tradego.events"},
	}
}

// LoadFromFile loads configuration from a file, trying YAML first and
// falling back to JSON. Missing sections keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration, including the parsed duration strings
// and the risk limits.
func (c *Config) Validate() error {
	if c.Account.Mode != "paper" && c.Account.Mode != "live" {
		return fmt.Errorf("account.mode must be paper or live, got %q", c.Account.Mode)
	}
	if c.Account.StartingCapital <= 0 {
		return fmt.Errorf("account.starting_capital must be positive, got %v", c.Account.StartingCapital)
	}
	if c.Store.Type != "sqlite" && c.Store.Type != "memory" {
		return fmt.Errorf("store.type must be sqlite or memory, got %q", c.Store.Type)
	}
	if c.Store.Type == "sqlite" && c.Store.DBPath == "" {
		return fmt.Errorf("store.db_path is required for sqlite")
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}

	sched, err := c.SchedulerConfig()
	if err != nil {
		return err
	}
	if err := sched.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	exec, err := c.ExecutionConfig()
	if err != nil {
		return err
	}
	if exec.FillWait <= 0 || exec.FillPollRate <= 0 {
		return fmt.Errorf("execution waits must be positive")
	}
	if exec.FillPollRate >= exec.FillWait {
		return fmt.Errorf("execution.fill_poll_rate %s must be shorter than fill_wait %s",
			exec.FillPollRate, exec.FillWait)
	}
	return nil
}

// SchedulerConfig parses the cadence strings into a scheduler config.
func (c *Config) SchedulerConfig() (scheduler.Config, error) {
	decision, err := parseDuration("scheduler.decision_interval", c.Scheduler.DecisionInterval)
	if err != nil {
		return scheduler.Config{}, err
	}
	monitor, err := parseDuration("scheduler.monitor_interval", c.Scheduler.MonitorInterval)
	if err != nil {
		return scheduler.Config{}, err
	}
	maxAge, err := parseDuration("scheduler.max_snapshot_age", c.Scheduler.MaxSnapshotAge)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		DecisionInterval: decision,
		MonitorInterval:  monitor,
		Workers:          c.Scheduler.Workers,
		MaxSnapshotAge:   maxAge,
	}, nil
}

// ExecutionConfig parses the fill wait strings into an execution config.
func (c *Config) ExecutionConfig() (execution.Config, error) {
	wait, err := parseDuration("execution.fill_wait", c.Execution.FillWait)
	if err != nil {
		return execution.Config{}, err
	}
	poll, err := parseDuration("execution.fill_poll_rate", c.Execution.FillPollRate)
	if err != nil {
		return execution.Config{}, err
	}
	return execution.Config{FillWait: wait, FillPollRate: poll}, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}
