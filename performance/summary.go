package performance

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/rustyeddy/backtester/date"
)

// Summary bundles every statistic of a run. Statistics that could not be
// computed are left zero and explained in Notes.
type Summary struct {
	RunID     string
	Strategy  string
	Benchmark string
	Created   time.Time

	Start      date.Date
	End        date.Date
	StartValue float64
	EndValue   float64
	Months     int

	TotalReturn               float64
	AnnualizedReturn          float64
	AnnualizedBenchmarkReturn float64
	SharpeRatio               float64
	AdjustedSharpeRatio       float64
	Correlation               float64
	PortfolioVolatility       float64
	BenchmarkVolatility       float64
	AverageAUM                float64

	Outperformance TTestResult
	Normality      NormalityResult

	Notes []string
}

// Summarize computes every statistic over the span from the first to the
// last captured date.
func (a *Analyzer) Summarize(alpha, mean0 float64) Summary {
	dates := a.in.Portfolio.Dates()
	s := Summary{
		Start:  dates[0],
		End:    a.in.LastCaptured,
		Months: len(a.MonthlyReturns()),
	}
	s.StartValue = a.in.Portfolio[s.Start]
	s.EndValue = a.in.Portfolio[s.End]

	note := func(err error) {
		if err != nil {
			s.Notes = append(s.Notes, err.Error())
		}
	}
	var err error

	s.TotalReturn, err = a.ReturnOverPeriod(s.Start, s.End)
	note(err)
	s.AnnualizedReturn, err = a.AnnualizedReturn(s.Start, s.End)
	note(err)
	s.AnnualizedBenchmarkReturn, err = a.AnnualizedBenchmarkReturn(s.Start, s.End)
	note(err)
	s.SharpeRatio, err = a.SharpeRatio()
	note(err)
	s.AdjustedSharpeRatio, err = a.AdjustedSharpeRatio()
	note(err)
	s.Correlation, err = a.Correlation()
	note(err)
	s.PortfolioVolatility, err = a.PortfolioVolatility()
	note(err)
	s.BenchmarkVolatility, err = a.BenchmarkVolatility()
	note(err)
	s.AverageAUM, err = a.AverageAUM()
	note(err)
	s.Outperformance, err = a.OutperformanceTest(mean0, alpha)
	note(err)
	s.Normality, err = a.NormalityTest(alpha)
	note(err)

	return s
}

// Print writes a plain text report to w.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Backtest %s .. %s", s.Start, s.End)
	if s.RunID != "" {
		fmt.Fprintf(w, "  run %s", s.RunID)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  start value:          %.2f\n", s.StartValue)
	fmt.Fprintf(w, "  end value:            %.2f\n", s.EndValue)
	fmt.Fprintf(w, "  total return:         %.2f%%\n", s.TotalReturn*100)
	fmt.Fprintf(w, "  annualized return:    %.2f%%\n", s.AnnualizedReturn*100)
	if s.Benchmark != "" {
		fmt.Fprintf(w, "  benchmark (%s):  %.2f%% annualized\n", s.Benchmark, s.AnnualizedBenchmarkReturn*100)
	} else {
		fmt.Fprintf(w, "  benchmark annualized: %.2f%%\n", s.AnnualizedBenchmarkReturn*100)
	}
	fmt.Fprintf(w, "  months:               %d\n", s.Months)
	fmt.Fprintf(w, "  sharpe ratio:         %.4f\n", s.SharpeRatio)
	fmt.Fprintf(w, "  adjusted sharpe:      %.4f\n", s.AdjustedSharpeRatio)
	fmt.Fprintf(w, "  correlation:          %.4f\n", s.Correlation)
	fmt.Fprintf(w, "  volatility:           %.4f (benchmark %.4f)\n", s.PortfolioVolatility, s.BenchmarkVolatility)
	fmt.Fprintf(w, "  average aum:          %.2f\n", s.AverageAUM)
	if s.Outperformance.N > 0 {
		fmt.Fprintf(w, "  outperformance:       %s\n", s.Outperformance)
	}
	if s.Normality.N > 0 {
		fmt.Fprintf(w, "  normality:            %s\n", s.Normality)
	}
	for _, n := range s.Notes {
		fmt.Fprintf(w, "  note: %s\n", n)
	}
}

var orgFuncs = template.FuncMap{
	"pct": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

// Org renders the summary as an Org-mode heading.
func (s Summary) Org() (string, error) {
	t, err := template.New("summary").Funcs(orgFuncs).Parse(OrgTemplate)
	if err != nil {
		return "", fmt.Errorf("summary org: %w", err)
	}
	buf := new(bytes.Buffer)
	if err := t.Execute(buf, s); err != nil {
		return "", fmt.Errorf("summary org: %w", err)
	}
	return buf.String(), nil
}

// WriteOrg writes the Org-mode report to path.
func (s Summary) WriteOrg(path string) error {
	out, err := s.Org()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(out), 0644)
}

const OrgTemplate = `
* BACKTEST: {{if .Strategy}}{{.Strategy}}{{else}}(strategy?){{end}} vs {{if .Benchmark}}{{.Benchmark}}{{else}}(benchmark?){{end}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:START_DATE:  {{.Start}}
:END_DATE:    {{.End}}
:START_VAL:   {{printf "%.2f" .StartValue}}
:END_VAL:     {{printf "%.2f" .EndValue}}
:RETURN_PCT:  {{printf "%.2f" (pct .TotalReturn)}}
:MONTHS:      {{.Months}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Total Return:       *{{printf "%.2f" (pct .TotalReturn)}}%*
- Annualized Return:  *{{printf "%.2f" (pct .AnnualizedReturn)}}%*
- Benchmark (ann.):   *{{printf "%.2f" (pct .AnnualizedBenchmarkReturn)}}%*
- Average AUM:        *{{printf "%.2f" .AverageAUM}}*

** Risk
| Statistic           | Value |
|---------------------+-------|
| Sharpe Ratio        | {{printf "%.4f" .SharpeRatio}} |
| Adjusted Sharpe     | {{printf "%.4f" .AdjustedSharpeRatio}} |
| Correlation         | {{printf "%.4f" .Correlation}} |
| Volatility          | {{printf "%.4f" .PortfolioVolatility}} |
| Benchmark Volatility| {{printf "%.4f" .BenchmarkVolatility}} |

** Hypothesis Tests
{{- if .Outperformance.N }}
- Outperformance: {{.Outperformance}}
{{- end }}
{{- if .Normality.N }}
- Normality: {{.Normality}}
{{- end }}

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
