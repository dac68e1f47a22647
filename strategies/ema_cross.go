package strategies

import (
	"fmt"
	"math"
	"strings"

	"github.com/rustyeddy/backtester/broker"
	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/indicators"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/risk"
	"github.com/rustyeddy/backtester/strategy"
)

// EMACross trades a single ticker on fast/slow moving average crossovers,
// exponential by default or simple when MAType is "sma".
//   - Signals only on a cross
//   - Reverses on the opposite cross (close then open)
//   - Sizes with risk.Calculate against an ATR stop
//   - Attaches stop loss, take profit and an optional holding timeout
type EMACross struct {
	EMACrossConfig

	fast indicators.Indicator
	slow indicators.Indicator
	atr  *indicators.ATR
	vol  *indicators.EWMStd

	lastDiff     float64
	haveLastDiff bool
	lastBar      market.Bar
	nextID       int

	position float64 // >0 long, <0 short
}

type EMACrossConfig struct {
	Ticker     string
	MAType     string // "ema" or "sma"
	FastPeriod int
	SlowPeriod int
	ATRPeriod  int
	StopATR    float64 // stop distance in ATRs
	RiskPct    float64 // 0.01
	RR         float64 // take-profit multiple of risk
	HoldDays   int     // 0 holds until exit
	AllowShort bool
}

func EMACrossConfigDefaults() EMACrossConfig {
	return EMACrossConfig{
		MAType:     "ema",
		FastPeriod: 10,
		SlowPeriod: 30,
		ATRPeriod:  14,
		StopATR:    2,
		RiskPct:    0.01,
		RR:         2,
	}
}

var _ strategy.Strategy = (*EMACross)(nil)

// NewEMACross fills zero fields from EMACrossConfigDefaults.
func NewEMACross(cfg EMACrossConfig) (*EMACross, error) {
	def := EMACrossConfigDefaults()
	if cfg.MAType == "" {
		cfg.MAType = def.MAType
	}
	if cfg.FastPeriod <= 0 {
		cfg.FastPeriod = def.FastPeriod
	}
	if cfg.SlowPeriod <= 0 {
		cfg.SlowPeriod = def.SlowPeriod
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = def.ATRPeriod
	}
	if cfg.StopATR <= 0 {
		cfg.StopATR = def.StopATR
	}
	if cfg.RiskPct <= 0 {
		cfg.RiskPct = def.RiskPct
	}
	if cfg.RR <= 0 {
		cfg.RR = def.RR
	}
	if cfg.Ticker == "" {
		return nil, fmt.Errorf("ema-cross: ticker required")
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, fmt.Errorf("ema-cross: fast period %d must be below slow period %d", cfg.FastPeriod, cfg.SlowPeriod)
	}

	s := &EMACross{
		EMACrossConfig: cfg,
		atr:            indicators.NewATR(cfg.ATRPeriod),
		vol:            indicators.NewEWMStd(cfg.SlowPeriod),
	}
	switch strings.ToLower(cfg.MAType) {
	case "ema":
		s.fast, s.slow = indicators.NewEMA(cfg.FastPeriod), indicators.NewEMA(cfg.SlowPeriod)
	case "sma":
		s.fast, s.slow = indicators.NewMA(cfg.FastPeriod), indicators.NewMA(cfg.SlowPeriod)
	default:
		return nil, fmt.Errorf("ema-cross: unknown moving average %q (supported: ema, sma)", cfg.MAType)
	}
	return s, nil
}

// Position is the open amount as seen through settled trades.
func (s *EMACross) Position() float64 { return s.position }

func (s *EMACross) GenerateSignals(d date.Date, md market.Data) (*strategy.SignalBatch, error) {
	bar, err := md.PriceFor(s.Ticker, d)
	if err != nil {
		return nil, nil
	}
	s.lastBar = bar

	s.fast.Update(bar)
	s.slow.Update(bar)
	s.atr.Update(bar)
	s.vol.Update(bar)

	if !s.fast.Ready() || !s.slow.Ready() {
		return nil, nil
	}

	diff := s.fast.Value() - s.slow.Value()
	if !s.haveLastDiff {
		s.lastDiff = diff
		s.haveLastDiff = true
		return nil, nil
	}

	bullCross := diff > 0 && s.lastDiff <= 0
	bearCross := diff < 0 && s.lastDiff >= 0
	s.lastDiff = diff

	var dir strategy.Direction
	switch {
	case bullCross:
		dir = strategy.Long
	case bearCross:
		dir = strategy.Short
	default:
		return nil, nil
	}

	s.nextID++
	return &strategy.SignalBatch{On: d, Signals: []strategy.Signal{{
		SignalID:     s.nextID,
		Ticker:       s.Ticker,
		Direction:    dir,
		Certainty:    math.Min(1, math.Abs(diff)/s.slow.Value()),
		EWMStd:       s.vol.Value(),
		FeaturesDate: d,
	}}}, nil
}

// GenerateOrdersFromSignals closes a position pointing against the signal
// and, when the signal direction is tradable, opens a new one.
func (s *EMACross) GenerateOrdersFromSignals(acct strategy.Account, batch *strategy.SignalBatch) (*strategy.OrderBatch, error) {
	if batch == nil {
		return nil, nil
	}

	var orders []strategy.Order
	for _, sig := range batch.Signals {
		if sig.Ticker != s.Ticker {
			continue
		}
		long := sig.Direction == strategy.Long
		if (s.position > 0 && long) || (s.position < 0 && !long) {
			continue
		}

		if s.position != 0 {
			orders = append(orders, strategy.Order{
				OrderID:   len(orders) + 2*sig.SignalID,
				Date:      batch.On,
				Ticker:    s.Ticker,
				Amount:    -s.position,
				Direction: directionOf(-s.position),
				Type:      strategy.CloseOrder,
				SignalID:  sig.SignalID,
			})
		}
		if !long && !s.AllowShort {
			continue
		}
		if o, ok := s.entry(acct, batch.On, sig); ok {
			o.OrderID = len(orders) + 2*sig.SignalID
			orders = append(orders, o)
		}
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &strategy.OrderBatch{On: batch.On, Orders: orders}, nil
}

func (s *EMACross) entry(acct strategy.Account, d date.Date, sig strategy.Signal) (strategy.Order, bool) {
	if !s.atr.Ready() {
		return strategy.Order{}, false
	}
	entry := s.lastBar.Close
	dir := int(sig.Direction)
	stop, tp := risk.Targets(entry, s.StopATR*s.atr.Value(), s.RR, dir)

	equity := acct.Balance().Add(acct.MarginAccount()).InexactFloat64()
	size := risk.Calculate(risk.Inputs{
		Equity:     equity,
		RiskPct:    s.RiskPct,
		EntryPrice: entry,
		StopPrice:  stop,
	})

	budget := acct.Balance().InexactFloat64()
	if dir < 0 {
		budget /= acct.InitialMarginRequirement()
	}
	units := risk.Cap(size.Units, entry, budget)
	if units <= 0 {
		return strategy.Order{}, false
	}

	var timeout date.Date
	if s.HoldDays > 0 {
		timeout = d.AddDays(s.HoldDays)
	}
	return strategy.Order{
		Date:       d,
		Ticker:     s.Ticker,
		Amount:     units * float64(dir),
		Direction:  sig.Direction,
		StopLoss:   stop,
		TakeProfit: tp,
		Timeout:    timeout,
		Type:       strategy.MarketOrder,
		SignalID:   sig.SignalID,
	}, true
}

// HandleEvent tracks the position from settled trades. Exits triggered by
// the broker arrive as trades opposite to the position.
func (s *EMACross) HandleEvent(_ strategy.Account, e strategy.Event) error {
	ev, ok := e.(*broker.TradesSettled)
	if !ok {
		return nil
	}
	for _, t := range ev.Trades {
		if t.Ticker != s.Ticker {
			continue
		}
		if s.position != 0 && (t.Amount > 0) != (s.position > 0) {
			s.position = 0
			continue
		}
		s.position = t.Amount
	}
	return nil
}

func directionOf(amount float64) strategy.Direction {
	if amount < 0 {
		return strategy.Short
	}
	return strategy.Long
}
