package journal

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rustyeddy/backtester/strategy"
)

const runColumns = `run_id, created, strategy, benchmark, start_date, end_date, initial_balance, final_value, config`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var r Run
	err := row.Scan(
		&r.RunID,
		&r.Created,
		&r.Strategy,
		&r.Benchmark,
		&r.Start,
		&r.End,
		&r.InitialBalance,
		&r.FinalValue,
		&r.Config,
	)
	return r, err
}

// GetRun returns a single run by ID.
func (j *SQLite) GetRun(runID string) (Run, error) {
	row := j.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return Run{}, fmt.Errorf("get run %q: %w", runID, err)
	}
	return r, nil
}

// ListRuns returns every run, oldest first.
func (j *SQLite) ListRuns() ([]Run, error) {
	rows, err := j.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY created ASC, run_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// ListValuations returns the captured valuations of a run in date order.
func (j *SQLite) ListValuations(runID string) ([]ValuationRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, date, balance, margin_account, market_value, total_value, aum, num_trades, num_short_trades
		FROM valuations
		WHERE run_id = ?
		ORDER BY date ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list valuations: %w", err)
	}
	defer rows.Close()

	var out []ValuationRecord
	for rows.Next() {
		var v ValuationRecord
		if err := rows.Scan(
			&v.RunID,
			&v.Date,
			&v.Balance,
			&v.MarginAccount,
			&v.MarketValue,
			&v.TotalValue,
			&v.AssetsUnderManagement,
			&v.NumTrades,
			&v.NumShortTrades,
		); err != nil {
			return nil, fmt.Errorf("list valuations: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list valuations: %w", err)
	}
	return out, nil
}

// ListLedger returns the ledger rows of a run in date order.
func (j *SQLite) ListLedger(runID string) ([]LedgerRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, date, commission, slippage, charged, margin_interest, account_interest,
		       short_dividends, short_losses, dividends, interest, proceeds
		FROM ledger
		WHERE run_id = ?
		ORDER BY date ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	var out []LedgerRecord
	for rows.Next() {
		var l LedgerRecord
		c, r := &l.Costs, &l.Receipts
		if err := rows.Scan(
			&l.RunID, &l.Date,
			&c.Commission, &c.Slippage, &c.Charged, &c.MarginInterest, &c.AccountInterest,
			&c.ShortDividends, &c.ShortLosses,
			&r.Dividends, &r.Interest, &r.Proceeds,
		); err != nil {
			return nil, fmt.Errorf("list ledger: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	return out, nil
}

// ListSignals returns the archived signals of a run sorted by signal id.
func (j *SQLite) ListSignals(runID string) ([]strategy.Signal, error) {
	rows, err := j.db.Query(`
		SELECT signal_id, ticker, direction, certainty, ewmstd, features_date
		FROM signals
		WHERE run_id = ?
		ORDER BY signal_id ASC, rowid ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	var out []strategy.Signal
	for rows.Next() {
		var s strategy.Signal
		var dir int
		if err := rows.Scan(&s.SignalID, &s.Ticker, &dir, &s.Certainty, &s.EWMStd, &s.FeaturesDate); err != nil {
			return nil, fmt.Errorf("list signals: %w", err)
		}
		s.Direction = strategy.Direction(dir)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	return out, nil
}

// ListOrders returns the archived orders of a run sorted by order id.
// Orders sharing an id keep the order they were recorded in.
func (j *SQLite) ListOrders(runID string) ([]strategy.Order, error) {
	rows, err := j.db.Query(`
		SELECT order_id, date, ticker, amount, direction, stop_loss, take_profit, timeout, type, signal_id
		FROM orders
		WHERE run_id = ?
		ORDER BY order_id ASC, rowid ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []strategy.Order
	for rows.Next() {
		var o strategy.Order
		var dir int
		var typ string
		if err := rows.Scan(
			&o.OrderID,
			&o.Date,
			&o.Ticker,
			&o.Amount,
			&dir,
			&o.StopLoss,
			&o.TakeProfit,
			&o.Timeout,
			&typ,
			&o.SignalID,
		); err != nil {
			return nil, fmt.Errorf("list orders: %w", err)
		}
		o.Direction = strategy.Direction(dir)
		o.Type = strategy.OrderType(typ)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}
