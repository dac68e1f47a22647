package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rustyeddy/backtester/strategy"
)

var (
	runHeader       = []string{"run_id", "created", "strategy", "benchmark", "start_date", "end_date", "initial_balance", "final_value"}
	valuationHeader = []string{"run_id", "date", "balance", "margin_account", "market_value", "total_value", "aum", "num_trades", "num_short_trades"}
	ledgerHeader    = []string{"run_id", "date", "commission", "slippage", "charged", "margin_interest", "account_interest", "short_dividends", "short_losses", "dividends", "interest", "proceeds"}
	signalHeader    = []string{"signal_id", "ticker", "direction", "certainty", "ewmstd", "features_date"}
	orderHeader     = []string{"order_id", "date", "ticker", "amount", "direction", "stop_loss", "take_profit", "timeout", "type", "signal_id"}
)

type csvFile struct {
	f *os.File
	w *csv.Writer
}

func createCSV(path string, header []string) (*csvFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &csvFile{f: f, w: w}, nil
}

func (c *csvFile) write(row []string) error {
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *csvFile) close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		_ = c.f.Close()
		return err
	}
	return c.f.Close()
}

// CSVJournal writes one CSV file per record type into a directory.
type CSVJournal struct {
	runs, valuations, ledger, signals, orders *csvFile
}

var _ Journal = (*CSVJournal)(nil)

// NewCSV creates runs.csv, valuations.csv, ledger.csv, signals.csv and
// orders.csv in dir.
func NewCSV(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("csv journal: %w", err)
	}

	j := &CSVJournal{}
	files := []struct {
		dst    **csvFile
		name   string
		header []string
	}{
		{&j.runs, "runs.csv", runHeader},
		{&j.valuations, "valuations.csv", valuationHeader},
		{&j.ledger, "ledger.csv", ledgerHeader},
		{&j.signals, "signals.csv", signalHeader},
		{&j.orders, "orders.csv", orderHeader},
	}
	for _, fl := range files {
		c, err := createCSV(filepath.Join(dir, fl.name), fl.header)
		if err != nil {
			_ = j.Close()
			return nil, fmt.Errorf("csv journal %s: %w", fl.name, err)
		}
		*fl.dst = c
	}
	return j, nil
}

func (j *CSVJournal) RecordRun(r Run) error {
	return j.runs.write([]string{
		r.RunID,
		r.Created.UTC().Format(time.RFC3339),
		r.Strategy,
		r.Benchmark,
		r.Start.String(),
		r.End.String(),
		r.InitialBalance.String(),
		r.FinalValue.String(),
	})
}

func (j *CSVJournal) RecordValuation(v ValuationRecord) error {
	return j.valuations.write([]string{
		v.RunID,
		v.Date.String(),
		v.Balance.String(),
		v.MarginAccount.String(),
		v.MarketValue.String(),
		v.TotalValue.String(),
		v.AssetsUnderManagement.String(),
		strconv.Itoa(v.NumTrades),
		strconv.Itoa(v.NumShortTrades),
	})
}

func (j *CSVJournal) RecordLedger(l LedgerRecord) error {
	c, r := l.Costs, l.Receipts
	return j.ledger.write([]string{
		l.RunID,
		l.Date.String(),
		c.Commission.String(),
		c.Slippage.String(),
		c.Charged.String(),
		c.MarginInterest.String(),
		c.AccountInterest.String(),
		c.ShortDividends.String(),
		c.ShortLosses.String(),
		r.Dividends.String(),
		r.Interest.String(),
		r.Proceeds.String(),
	})
}

func (j *CSVJournal) RecordSignal(s SignalRecord) error {
	return j.signals.write(signalRow(s.Signal))
}

func (j *CSVJournal) RecordOrder(o OrderRecord) error {
	return j.orders.write(orderRow(o.Order))
}

func (j *CSVJournal) Close() error {
	var first error
	for _, c := range []*csvFile{j.runs, j.valuations, j.ledger, j.signals, j.orders} {
		if c == nil {
			continue
		}
		if err := c.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func signalRow(s strategy.Signal) []string {
	return []string{
		strconv.Itoa(s.SignalID),
		s.Ticker,
		strconv.Itoa(int(s.Direction)),
		f(s.Certainty),
		f(s.EWMStd),
		s.FeaturesDate.String(),
	}
}

func orderRow(o strategy.Order) []string {
	return []string{
		strconv.Itoa(o.OrderID),
		o.Date.String(),
		o.Ticker,
		f(o.Amount),
		strconv.Itoa(int(o.Direction)),
		f(o.StopLoss),
		f(o.TakeProfit),
		o.Timeout.String(),
		string(o.Type),
		strconv.Itoa(o.SignalID),
	}
}

// WriteSignalsCSV writes the signal table, header first. Rows are written
// in the order given.
func WriteSignalsCSV(w io.Writer, signals []strategy.Signal) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(signalHeader); err != nil {
		return err
	}
	for _, s := range signals {
		if err := cw.Write(signalRow(s)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteOrdersCSV writes the order table, header first. Rows are written
// in the order given.
func WriteOrdersCSV(w io.Writer, orders []strategy.Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(orderHeader); err != nil {
		return err
	}
	for _, o := range orders {
		if err := cw.Write(orderRow(o)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
