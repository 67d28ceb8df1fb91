package journal

// Prices are stored as TEXT so decimal values round-trip exactly; dates are
// ISO-8601 day strings, timestamps full DATETIME values.
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS trade_legs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trade_id INTEGER NOT NULL REFERENCES trades(trade_id),
	ticker TEXT NOT NULL,
	entry_date TEXT NOT NULL,
	exit_date TEXT,
	entry_price TEXT NOT NULL,
	exit_price TEXT,
	quantity INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	snapshot_id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_legs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	snapshot_id INTEGER NOT NULL REFERENCES snapshots(snapshot_id),
	ticker TEXT NOT NULL,
	date TEXT NOT NULL,
	price TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trade_legs_trade_id ON trade_legs(trade_id);
CREATE INDEX IF NOT EXISTS idx_trade_legs_entry_date ON trade_legs(entry_date);
CREATE INDEX IF NOT EXISTS idx_snapshot_legs_snapshot_id ON snapshot_legs(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_snapshot_legs_date ON snapshot_legs(date);
`
