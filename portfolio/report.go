package portfolio

import (
	"fmt"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/performance"
)

// PerformanceInput gathers the captured valuations, the closes of the
// benchmark ticker and the monthly risk-free rates.
func (p *Portfolio) PerformanceInput(benchmark string) (performance.Input, error) {
	in := performance.Input{
		Horizon:      p.Horizon(),
		Portfolio:    performance.Series{},
		Benchmark:    performance.Series{},
		AUM:          performance.Series{},
		LastCaptured: p.lastCaptured,
	}
	for _, v := range p.Valuations() {
		in.Portfolio[v.Date] = v.TotalValue.InexactFloat64()
		in.AUM[v.Date] = v.AssetsUnderManagement.InexactFloat64()
	}

	bars, err := p.market.SeriesFor(benchmark)
	if err != nil {
		return performance.Input{}, fmt.Errorf("performance input: benchmark: %w", err)
	}
	for _, b := range bars {
		in.Benchmark[b.Date] = b.Close
	}
	for _, r := range p.market.RiskFreeRates(market.Monthly) {
		in.RiskFree = append(in.RiskFree, r.Rate)
	}
	return in, nil
}

// Performance returns an analyzer over everything captured so far.
func (p *Portfolio) Performance(benchmark string) (*performance.Analyzer, error) {
	in, err := p.PerformanceInput(benchmark)
	if err != nil {
		return nil, err
	}
	return performance.New(in)
}
