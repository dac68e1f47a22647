package backtest

import (
	"fmt"
	"io"

	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/shopspring/decimal"
)

// Result is a lightweight summary of a backtest run.
type Result struct {
	RunID string

	Start date.Date
	End   date.Date

	Days     int
	Captured int
	Gaps     []date.Date

	Signals int
	Orders  int

	InitialBalance decimal.Decimal
	FinalValue     decimal.Decimal
	Final          portfolio.DailyValuation
}

// Return is the fractional change from the initial balance to the final
// value.
func (r Result) Return() float64 {
	if r.InitialBalance.IsZero() {
		return 0
	}
	return r.finalValue().Sub(r.InitialBalance).Div(r.InitialBalance).InexactFloat64()
}

func PrintResult(w io.Writer, r Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Start:         %s\n", r.Start)
	fmt.Fprintf(w, "End:           %s\n", r.End)
	fmt.Fprintf(w, "Days:          %d\n", r.Days)
	fmt.Fprintf(w, "Captured:      %d\n", r.Captured)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Activity")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Signals:       %d\n", r.Signals)
	fmt.Fprintf(w, "Orders:        %d\n", r.Orders)
	fmt.Fprintf(w, "Open Trades:   %d\n", r.Final.NumTrades)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Balance: %s\n", r.InitialBalance.StringFixed(2))
	fmt.Fprintf(w, "End Value:     %s\n", r.finalValue().StringFixed(2))
	fmt.Fprintf(w, "Return:        %.2f%%\n", r.Return()*100)

	if len(r.Gaps) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Unvalued Days")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, d := range r.Gaps {
			fmt.Fprintf(w, "- %s\n", d)
		}
	}

	fmt.Fprintln(w)
}
