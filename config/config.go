package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rustyeddy/backtester/broker/sim"
	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/strategies"
	"gopkg.in/yaml.v3"
)

// Config represents the complete backtest configuration
type Config struct {
	Portfolio PortfolioConfig   `json:"portfolio" yaml:"portfolio" toml:"portfolio"`
	Exchange  sim.Config        `json:"exchange" yaml:"exchange" toml:"exchange"`
	Strategy  strategies.Config `json:"strategy" yaml:"strategy" toml:"strategy"`
	Backtest  BacktestConfig    `json:"backtest" yaml:"backtest" toml:"backtest"`
	Data      DataConfig        `json:"data" yaml:"data" toml:"data"`
	Analytics AnalyticsConfig   `json:"analytics" yaml:"analytics" toml:"analytics"`
	Journal   JournalConfig     `json:"journal" yaml:"journal" toml:"journal"`
	Log       LogConfig         `json:"log" yaml:"log" toml:"log"`
}

// PortfolioConfig contains account initialization parameters
type PortfolioConfig struct {
	InitialBalance               float64 `json:"initial_balance" yaml:"initial_balance" toml:"initial_balance"`
	InitialMarginRequirement     float64 `json:"initial_margin_requirement" yaml:"initial_margin_requirement" toml:"initial_margin_requirement"`
	MaintenanceMarginRequirement float64 `json:"maintenance_margin_requirement" yaml:"maintenance_margin_requirement" toml:"maintenance_margin_requirement"`
}

// BacktestConfig sets the simulated horizon.
type BacktestConfig struct {
	Start    string `json:"start" yaml:"start" toml:"start"` // YYYY-MM-DD
	End      string `json:"end" yaml:"end" toml:"end"`
	Calendar string `json:"calendar" yaml:"calendar" toml:"calendar"` // "daily" or "business"
	CloseEnd bool   `json:"close_end" yaml:"close_end" toml:"close_end"`
}

// DataConfig points at the CSV inputs.
type DataConfig struct {
	// Bars maps a ticker to its bar CSV.
	Bars     map[string]string `json:"bars" yaml:"bars" toml:"bars"`
	RiskFree string            `json:"risk_free,omitempty" yaml:"risk_free,omitempty" toml:"risk_free,omitempty"` // monthly rates CSV
}

// AnalyticsConfig contains reporting parameters
type AnalyticsConfig struct {
	Benchmark string  `json:"benchmark" yaml:"benchmark" toml:"benchmark"`
	Alpha     float64 `json:"alpha" yaml:"alpha" toml:"alpha"`
	Mean0     float64 `json:"mean0" yaml:"mean0" toml:"mean0"`
	OrgReport string  `json:"org_report,omitempty" yaml:"org_report,omitempty" toml:"org_report,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type   string `json:"type" yaml:"type" toml:"type"` // "csv" or "sqlite"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty" toml:"db_path,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty" toml:"dir,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level" toml:"level"`
}

// Horizon builds the simulated date range.
func (b BacktestConfig) Horizon() (*date.Horizon, error) {
	start, err := date.Parse(b.Start)
	if err != nil {
		return nil, fmt.Errorf("backtest.start: %w", err)
	}
	end, err := date.Parse(b.End)
	if err != nil {
		return nil, fmt.Errorf("backtest.end: %w", err)
	}
	if b.Calendar == "business" {
		return date.BusinessDays(start, end)
	}
	return date.Daily(start, end)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadFromFile loads configuration from a file. TOML is chosen by extension;
// anything else is parsed as YAML with a JSON fallback.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	if isTOML(path) {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (TOML): %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		// Try YAML first, fall back to JSON
		cfg = &Config{}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Marshal encodes the configuration in the format path's extension names.
func (c *Config) Marshal(path string) ([]byte, error) {
	switch {
	case isYAML(path):
		return yaml.Marshal(c)
	case isTOML(path):
		return toml.Marshal(c)
	default:
		return json.MarshalIndent(c, "", "  ")
	}
}

// SaveToFile saves configuration to a file (JSON, YAML or TOML based on extension)
func (c *Config) SaveToFile(path string) error {
	data, err := c.Marshal(path)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Portfolio.InitialBalance <= 0 {
		return fmt.Errorf("portfolio.initial_balance must be positive")
	}
	if c.Portfolio.InitialMarginRequirement <= 0 || c.Portfolio.InitialMarginRequirement > 1 {
		return fmt.Errorf("portfolio.initial_margin_requirement must be between 0 and 1")
	}
	if c.Portfolio.MaintenanceMarginRequirement <= 0 || c.Portfolio.MaintenanceMarginRequirement > c.Portfolio.InitialMarginRequirement {
		return fmt.Errorf("portfolio.maintenance_margin_requirement must be positive and at most the initial requirement")
	}

	ex := c.Exchange
	for name, v := range map[string]float64{
		"commission_rate":      ex.CommissionRate,
		"slippage_rate":        ex.SlippageRate,
		"margin_interest_rate": ex.MarginInterestRate,
		"cash_interest_rate":   ex.CashInterestRate,
	} {
		if v < 0 {
			return fmt.Errorf("exchange.%s must not be negative", name)
		}
	}

	if _, err := strategies.ByName(c.Strategy); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	if c.Backtest.Calendar != "daily" && c.Backtest.Calendar != "business" {
		return fmt.Errorf("backtest.calendar must be 'daily' or 'business'")
	}
	if _, err := c.Backtest.Horizon(); err != nil {
		return err
	}

	for _, t := range c.Strategy.Tickers {
		if c.Data.Bars[t] == "" {
			return fmt.Errorf("data.bars has no file for %s", t)
		}
	}

	if c.Analytics.Alpha <= 0 || c.Analytics.Alpha >= 1 {
		return fmt.Errorf("analytics.alpha must be between 0 and 1")
	}
	if c.Analytics.Benchmark != "" && c.Data.Bars[c.Analytics.Benchmark] == "" {
		return fmt.Errorf("data.bars has no file for benchmark %s", c.Analytics.Benchmark)
	}

	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "csv":
		if c.Journal.Dir == "" {
			return fmt.Errorf("journal dir required for CSV type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug|info|warn|error")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Portfolio: PortfolioConfig{
			InitialBalance:               100000,
			InitialMarginRequirement:     0.5,
			MaintenanceMarginRequirement: 0.3,
		},
		Exchange: sim.Config{
			CommissionRate: 0.0005,
			SlippageRate:   0.0005,
		},
		Strategy: strategies.Config{
			Name:       "buy-and-hold",
			Tickers:    []string{"SPY"},
			Allocation: 1,
		},
		Backtest: BacktestConfig{
			Start:    "2020-01-02",
			End:      "2023-12-29",
			Calendar: "business",
			CloseEnd: true,
		},
		Data: DataConfig{
			Bars:     map[string]string{"SPY": "./data/SPY.csv"},
			RiskFree: "./data/rates.csv",
		},
		Analytics: AnalyticsConfig{
			Benchmark: "SPY",
			Alpha:     0.05,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./backtester.sqlite",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
