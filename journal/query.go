package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// GetTrade returns one trade with its legs, newest entry first.
func (j *SQLite) GetTrade(tradeID int64) (Trade, error) {
	var t Trade
	row := j.db.QueryRow(`
		SELECT trade_id, name, description, created_at, updated_at
		FROM trades
		WHERE trade_id = ?`, tradeID)

	err := row.Scan(&t.TradeID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return Trade{}, fmt.Errorf("trade %d: %w", tradeID, ErrNotFound)
	}
	if err != nil {
		return Trade{}, err
	}

	t.Legs, err = j.legsForTrade(tradeID)
	if err != nil {
		return Trade{}, err
	}
	return t, nil
}

// ListTrades returns one page of trades, newest trade id first, along with
// the total trade count for pagination.
func (j *SQLite) ListTrades(page, pageSize int) ([]Trade, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	var count int
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&count); err != nil {
		return nil, 0, err
	}

	rows, err := j.db.Query(`
		SELECT trade_id, name, description, created_at, updated_at
		FROM trades
		ORDER BY trade_id DESC
		LIMIT ? OFFSET ?`, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Trade
	for rows.Next() {
		var t Trade
		if err := rows.Scan(&t.TradeID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range out {
		out[i].Legs, err = j.legsForTrade(out[i].TradeID)
		if err != nil {
			return nil, 0, err
		}
	}
	return out, count, nil
}

// AllTrades returns every trade with legs, for the analytics summary.
func (j *SQLite) AllTrades() ([]Trade, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, name, description, created_at, updated_at
		FROM trades
		ORDER BY trade_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Trade
	for rows.Next() {
		var t Trade
		if err := rows.Scan(&t.TradeID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		out[i].Legs, err = j.legsForTrade(out[i].TradeID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// OpenLegs returns every leg that still lacks exit data, across all trades.
// The live-price view polls quotes for exactly these tickers.
func (j *SQLite) OpenLegs() ([]TradeLeg, error) {
	rows, err := j.db.Query(`
		SELECT id, trade_id, ticker, entry_date, exit_date, entry_price, exit_price, quantity, created_at, updated_at
		FROM trade_legs
		WHERE exit_price IS NULL OR exit_date IS NULL
		ORDER BY trade_id ASC, entry_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTradeLegs(rows)
}

func (j *SQLite) legsForTrade(tradeID int64) ([]TradeLeg, error) {
	rows, err := j.db.Query(`
		SELECT id, trade_id, ticker, entry_date, exit_date, entry_price, exit_price, quantity, created_at, updated_at
		FROM trade_legs
		WHERE trade_id = ?
		ORDER BY entry_date DESC, id ASC`, tradeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTradeLegs(rows)
}

// GetSnapshot returns one snapshot with its legs.
func (j *SQLite) GetSnapshot(snapshotID int64) (Snapshot, error) {
	var s Snapshot
	row := j.db.QueryRow(`
		SELECT snapshot_id, name, description, type, created_at, updated_at
		FROM snapshots
		WHERE snapshot_id = ?`, snapshotID)

	err := row.Scan(&s.SnapshotID, &s.Name, &s.Description, &s.Type, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return Snapshot{}, fmt.Errorf("snapshot %d: %w", snapshotID, ErrNotFound)
	}
	if err != nil {
		return Snapshot{}, err
	}

	s.Legs, err = j.legsForSnapshot(snapshotID)
	if err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// ListSnapshots returns one page of snapshots, newest snapshot id first.
func (j *SQLite) ListSnapshots(page, pageSize int) ([]Snapshot, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	var count int
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&count); err != nil {
		return nil, 0, err
	}

	rows, err := j.db.Query(`
		SELECT snapshot_id, name, description, type, created_at, updated_at
		FROM snapshots
		ORDER BY snapshot_id DESC
		LIMIT ? OFFSET ?`, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.SnapshotID, &s.Name, &s.Description, &s.Type, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range out {
		out[i].Legs, err = j.legsForSnapshot(out[i].SnapshotID)
		if err != nil {
			return nil, 0, err
		}
	}
	return out, count, nil
}

func (j *SQLite) legsForSnapshot(snapshotID int64) ([]SnapshotLeg, error) {
	rows, err := j.db.Query(`
		SELECT id, snapshot_id, ticker, date, price, quantity, created_at, updated_at
		FROM snapshot_legs
		WHERE snapshot_id = ?
		ORDER BY date DESC, id ASC`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotLeg
	for rows.Next() {
		var (
			leg   SnapshotLeg
			date  string
			price string
		)
		if err := rows.Scan(&leg.ID, &leg.SnapshotID, &leg.Ticker, &date, &price, &leg.Quantity, &leg.CreatedAt, &leg.UpdatedAt); err != nil {
			return nil, err
		}
		if leg.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("snapshot leg %d: bad date %q: %w", leg.ID, date, err)
		}
		if leg.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("snapshot leg %d: bad price %q: %w", leg.ID, price, err)
		}
		out = append(out, leg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanTradeLegs(rows *sql.Rows) ([]TradeLeg, error) {
	var out []TradeLeg
	for rows.Next() {
		var (
			leg       TradeLeg
			entryDate string
			exitDate  sql.NullString
			entry     string
			exit      sql.NullString
		)
		if err := rows.Scan(&leg.ID, &leg.TradeID, &leg.Ticker, &entryDate, &exitDate, &entry, &exit, &leg.Quantity, &leg.CreatedAt, &leg.UpdatedAt); err != nil {
			return nil, err
		}

		var err error
		if leg.EntryDate, err = time.Parse(dateLayout, entryDate); err != nil {
			return nil, fmt.Errorf("leg %d: bad entry_date %q: %w", leg.ID, entryDate, err)
		}
		if exitDate.Valid {
			d, err := time.Parse(dateLayout, exitDate.String)
			if err != nil {
				return nil, fmt.Errorf("leg %d: bad exit_date %q: %w", leg.ID, exitDate.String, err)
			}
			leg.ExitDate = &d
		}
		if leg.EntryPrice, err = decimal.NewFromString(entry); err != nil {
			return nil, fmt.Errorf("leg %d: bad entry_price %q: %w", leg.ID, entry, err)
		}
		if exit.Valid {
			p, err := decimal.NewFromString(exit.String)
			if err != nil {
				return nil, fmt.Errorf("leg %d: bad exit_price %q: %w", leg.ID, exit.String, err)
			}
			leg.ExitPrice = &p
		}
		out = append(out, leg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
