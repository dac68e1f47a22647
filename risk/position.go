// Package risk sizes positions from the amount of equity a trade may lose.
package risk

import "math"

type Inputs struct {
	Equity     float64
	RiskPct    float64 // 0.01
	EntryPrice float64
	StopPrice  float64
}

type Result struct {
	Units        float64
	StopDistance float64
	RiskAmount   float64
}

// Calculate returns the whole number of units whose loss, if the stop is
// hit, is at most Equity*RiskPct. A zero stop distance sizes nothing.
func Calculate(in Inputs) Result {
	dist := math.Abs(in.EntryPrice - in.StopPrice)
	riskAmt := in.Equity * in.RiskPct

	res := Result{StopDistance: dist, RiskAmount: riskAmt}
	if dist == 0 || riskAmt <= 0 || math.IsNaN(dist) || math.IsInf(dist, 0) {
		return res
	}
	res.Units = math.Floor(riskAmt / dist)
	return res
}

// Cap limits units so that units*price stays within budget.
func Cap(units, price, budget float64) float64 {
	if price <= 0 || budget <= 0 {
		return 0
	}
	return math.Min(units, math.Floor(budget/price))
}

// Targets places the stop dist away from entry against the trade and the
// take profit rr times that distance in its favour. dir is +1 or -1.
func Targets(entry, dist, rr float64, dir int) (stop, takeProfit float64) {
	if dir > 0 {
		return entry - dist, entry + dist*rr
	}
	return entry + dist, entry - dist*rr
}
