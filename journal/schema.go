package journal

// Money columns are TEXT holding exact decimals. Dates are TEXT in
// YYYY-MM-DD form.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	strategy TEXT NOT NULL,
	benchmark TEXT NOT NULL,
	start_date TEXT,
	end_date TEXT,
	initial_balance TEXT NOT NULL,
	final_value TEXT NOT NULL,
	config BLOB
);

CREATE TABLE IF NOT EXISTS valuations (
	run_id TEXT NOT NULL,
	date TEXT NOT NULL,
	balance TEXT NOT NULL,
	margin_account TEXT NOT NULL,
	market_value TEXT NOT NULL,
	total_value TEXT NOT NULL,
	aum TEXT NOT NULL,
	num_trades INTEGER NOT NULL,
	num_short_trades INTEGER NOT NULL,
	PRIMARY KEY (run_id, date)
);

CREATE TABLE IF NOT EXISTS ledger (
	run_id TEXT NOT NULL,
	date TEXT NOT NULL,
	commission TEXT NOT NULL,
	slippage TEXT NOT NULL,
	charged TEXT NOT NULL,
	margin_interest TEXT NOT NULL,
	account_interest TEXT NOT NULL,
	short_dividends TEXT NOT NULL,
	short_losses TEXT NOT NULL,
	dividends TEXT NOT NULL,
	interest TEXT NOT NULL,
	proceeds TEXT NOT NULL,
	PRIMARY KEY (run_id, date)
);

CREATE TABLE IF NOT EXISTS signals (
	run_id TEXT NOT NULL,
	signal_id INTEGER NOT NULL,
	ticker TEXT NOT NULL,
	direction INTEGER NOT NULL,
	certainty REAL NOT NULL,
	ewmstd REAL NOT NULL,
	features_date TEXT
);

CREATE TABLE IF NOT EXISTS orders (
	run_id TEXT NOT NULL,
	order_id INTEGER NOT NULL,
	date TEXT NOT NULL,
	ticker TEXT NOT NULL,
	amount REAL NOT NULL,
	direction INTEGER NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	timeout TEXT,
	type TEXT NOT NULL,
	signal_id INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signals_run ON signals(run_id, signal_id);
CREATE INDEX IF NOT EXISTS idx_orders_run ON orders(run_id, order_id);
`
