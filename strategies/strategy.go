// Package strategies holds the strategies a backtest can be configured to
// run.
package strategies

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/backtester/strategy"
)

// Config selects and parameterizes a strategy. Fields a strategy does not
// use are ignored.
type Config struct {
	Name    string   `json:"name" yaml:"name" toml:"name"`
	Tickers []string `json:"tickers" yaml:"tickers" toml:"tickers"`

	// buy-and-hold
	Allocation float64 `json:"allocation" yaml:"allocation" toml:"allocation"`

	// ema-cross
	MAType     string  `json:"ma_type" yaml:"ma_type" toml:"ma_type"`
	FastPeriod int     `json:"fast_period" yaml:"fast_period" toml:"fast_period"`
	SlowPeriod int     `json:"slow_period" yaml:"slow_period" toml:"slow_period"`
	ATRPeriod  int     `json:"atr_period" yaml:"atr_period" toml:"atr_period"`
	StopATR    float64 `json:"stop_atr" yaml:"stop_atr" toml:"stop_atr"`
	RiskPct    float64 `json:"risk_pct" yaml:"risk_pct" toml:"risk_pct"`
	RR         float64 `json:"risk_reward" yaml:"risk_reward" toml:"risk_reward"`
	HoldDays   int     `json:"hold_days" yaml:"hold_days" toml:"hold_days"`
	AllowShort bool    `json:"allow_short" yaml:"allow_short" toml:"allow_short"`
}

// Names lists the strategies ByName knows.
func Names() []string {
	return []string{"noop", "buy-and-hold", "ema-cross"}
}

// ByName builds the strategy cfg.Name refers to.
func ByName(cfg Config) (strategy.Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "noop", "none", "":
		return strategy.Noop{}, nil

	case "buy-and-hold", "buyhold":
		if len(cfg.Tickers) == 0 {
			return nil, fmt.Errorf("buy-and-hold: no tickers")
		}
		return NewBuyAndHold(cfg.Allocation, cfg.Tickers...), nil

	case "ema-cross", "emacross":
		if len(cfg.Tickers) != 1 {
			return nil, fmt.Errorf("ema-cross: need exactly one ticker, got %d", len(cfg.Tickers))
		}
		return NewEMACross(EMACrossConfig{
			Ticker:     cfg.Tickers[0],
			MAType:     cfg.MAType,
			FastPeriod: cfg.FastPeriod,
			SlowPeriod: cfg.SlowPeriod,
			ATRPeriod:  cfg.ATRPeriod,
			StopATR:    cfg.StopATR,
			RiskPct:    cfg.RiskPct,
			RR:         cfg.RR,
			HoldDays:   cfg.HoldDays,
			AllowShort: cfg.AllowShort,
		})

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", cfg.Name, strings.Join(Names(), ", "))
	}
}
