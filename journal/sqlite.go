package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

var _ Journal = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordRun(r Run) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO runs
		(run_id, created, strategy, benchmark, start_date, end_date, initial_balance, final_value, config)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.Strategy, r.Benchmark, r.Start, r.End,
		r.InitialBalance, r.FinalValue, r.Config,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.RunID, err)
	}
	return nil
}

func (j *SQLite) RecordValuation(v ValuationRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO valuations
		(run_id, date, balance, margin_account, market_value, total_value, aum, num_trades, num_short_trades)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.RunID, v.Date, v.Balance, v.MarginAccount, v.MarketValue,
		v.TotalValue, v.AssetsUnderManagement, v.NumTrades, v.NumShortTrades,
	)
	if err != nil {
		return fmt.Errorf("record valuation %s: %w", v.Date, err)
	}
	return nil
}

func (j *SQLite) RecordLedger(l LedgerRecord) error {
	c, r := l.Costs, l.Receipts
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO ledger
		(run_id, date, commission, slippage, charged, margin_interest, account_interest,
		 short_dividends, short_losses, dividends, interest, proceeds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.RunID, l.Date, c.Commission, c.Slippage, c.Charged, c.MarginInterest, c.AccountInterest,
		c.ShortDividends, c.ShortLosses, r.Dividends, r.Interest, r.Proceeds,
	)
	if err != nil {
		return fmt.Errorf("record ledger %s: %w", l.Date, err)
	}
	return nil
}

func (j *SQLite) RecordSignal(s SignalRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO signals
		(run_id, signal_id, ticker, direction, certainty, ewmstd, features_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.RunID, s.SignalID, s.Ticker, int(s.Direction), s.Certainty, s.EWMStd, s.FeaturesDate,
	)
	if err != nil {
		return fmt.Errorf("record signal %d: %w", s.SignalID, err)
	}
	return nil
}

func (j *SQLite) RecordOrder(o OrderRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO orders
		(run_id, order_id, date, ticker, amount, direction, stop_loss, take_profit, timeout, type, signal_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.OrderID, o.Date, o.Ticker, o.Amount, int(o.Direction),
		o.StopLoss, o.TakeProfit, o.Timeout, string(o.Type), o.SignalID,
	)
	if err != nil {
		return fmt.Errorf("record order %d: %w", o.OrderID, err)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
