package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// SQLite implements Store on a local sqlite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the journal database at path and
// ensures the schema exists. WAL mode keeps readers unblocked while the
// single writer commits.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLite{db: db}, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// CreateTrade allocates the next trade id and inserts the trade with all of
// its legs in one transaction.
func (j *SQLite) CreateTrade(t Trade) (Trade, error) {
	if err := t.Validate(); err != nil {
		return Trade{}, err
	}

	tx, err := j.db.Begin()
	if err != nil {
		return Trade{}, err
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(trade_id), 0) + 1 FROM trades`).Scan(&next); err != nil {
		return Trade{}, fmt.Errorf("allocate trade id: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(`
		INSERT INTO trades (trade_id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		next, t.Name, t.Description, now, now,
	); err != nil {
		return Trade{}, fmt.Errorf("insert trade: %w", err)
	}

	for _, leg := range t.Legs {
		if err := insertTradeLeg(tx, next, leg, now); err != nil {
			return Trade{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Trade{}, err
	}
	return j.GetTrade(next)
}

// UpdateTrade reconciles the submitted legs against the stored set: legs
// carrying a known id are updated in place, id-less legs are inserted, and
// stored legs absent from the submission are deleted.
func (j *SQLite) UpdateTrade(t Trade) (Trade, error) {
	if err := t.Validate(); err != nil {
		return Trade{}, err
	}

	tx, err := j.db.Begin()
	if err != nil {
		return Trade{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.Exec(`
		UPDATE trades SET name = ?, description = ?, updated_at = ?
		WHERE trade_id = ?`,
		t.Name, t.Description, now, t.TradeID,
	)
	if err != nil {
		return Trade{}, fmt.Errorf("update trade: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return Trade{}, err
	} else if n == 0 {
		return Trade{}, fmt.Errorf("trade %d: %w", t.TradeID, ErrNotFound)
	}

	existing := map[int64]bool{}
	rows, err := tx.Query(`SELECT id FROM trade_legs WHERE trade_id = ?`, t.TradeID)
	if err != nil {
		return Trade{}, err
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return Trade{}, err
		}
		existing[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Trade{}, err
	}

	kept := map[int64]bool{}
	for _, leg := range t.Legs {
		if leg.ID != 0 && existing[leg.ID] {
			if _, err := tx.Exec(`
				UPDATE trade_legs
				SET ticker = ?, entry_date = ?, exit_date = ?, entry_price = ?, exit_price = ?, quantity = ?, updated_at = ?
				WHERE id = ?`,
				leg.Ticker, leg.EntryDate.Format(dateLayout), fmtDatePtr(leg.ExitDate),
				leg.EntryPrice.String(), fmtDecimalPtr(leg.ExitPrice), leg.Quantity, now, leg.ID,
			); err != nil {
				return Trade{}, fmt.Errorf("update leg %d: %w", leg.ID, err)
			}
			kept[leg.ID] = true
			continue
		}
		if err := insertTradeLeg(tx, t.TradeID, leg, now); err != nil {
			return Trade{}, err
		}
	}

	for id := range existing {
		if !kept[id] {
			if _, err := tx.Exec(`DELETE FROM trade_legs WHERE id = ?`, id); err != nil {
				return Trade{}, fmt.Errorf("delete leg %d: %w", id, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Trade{}, err
	}
	return j.GetTrade(t.TradeID)
}

// DeleteTrade removes the trade and all of its legs.
func (j *SQLite) DeleteTrade(tradeID int64) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM trade_legs WHERE trade_id = ?`, tradeID); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM trades WHERE trade_id = ?`, tradeID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("trade %d: %w", tradeID, ErrNotFound)
	}
	return tx.Commit()
}

// CreateSnapshot mirrors CreateTrade for reference snapshots.
func (j *SQLite) CreateSnapshot(s Snapshot) (Snapshot, error) {
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}

	tx, err := j.db.Begin()
	if err != nil {
		return Snapshot{}, err
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(snapshot_id), 0) + 1 FROM snapshots`).Scan(&next); err != nil {
		return Snapshot{}, fmt.Errorf("allocate snapshot id: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(`
		INSERT INTO snapshots (snapshot_id, name, description, type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		next, s.Name, s.Description, s.Type, now, now,
	); err != nil {
		return Snapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}

	for _, leg := range s.Legs {
		if err := insertSnapshotLeg(tx, next, leg, now); err != nil {
			return Snapshot{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, err
	}
	return j.GetSnapshot(next)
}

// UpdateSnapshot reconciles legs the same way UpdateTrade does.
func (j *SQLite) UpdateSnapshot(s Snapshot) (Snapshot, error) {
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}

	tx, err := j.db.Begin()
	if err != nil {
		return Snapshot{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.Exec(`
		UPDATE snapshots SET name = ?, description = ?, type = ?, updated_at = ?
		WHERE snapshot_id = ?`,
		s.Name, s.Description, s.Type, now, s.SnapshotID,
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("update snapshot: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return Snapshot{}, err
	} else if n == 0 {
		return Snapshot{}, fmt.Errorf("snapshot %d: %w", s.SnapshotID, ErrNotFound)
	}

	existing := map[int64]bool{}
	rows, err := tx.Query(`SELECT id FROM snapshot_legs WHERE snapshot_id = ?`, s.SnapshotID)
	if err != nil {
		return Snapshot{}, err
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return Snapshot{}, err
		}
		existing[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}

	kept := map[int64]bool{}
	for _, leg := range s.Legs {
		if leg.ID != 0 && existing[leg.ID] {
			if _, err := tx.Exec(`
				UPDATE snapshot_legs
				SET ticker = ?, date = ?, price = ?, quantity = ?, updated_at = ?
				WHERE id = ?`,
				leg.Ticker, leg.Date.Format(dateLayout), leg.Price.String(), leg.Quantity, now, leg.ID,
			); err != nil {
				return Snapshot{}, fmt.Errorf("update snapshot leg %d: %w", leg.ID, err)
			}
			kept[leg.ID] = true
			continue
		}
		if err := insertSnapshotLeg(tx, s.SnapshotID, leg, now); err != nil {
			return Snapshot{}, err
		}
	}

	for id := range existing {
		if !kept[id] {
			if _, err := tx.Exec(`DELETE FROM snapshot_legs WHERE id = ?`, id); err != nil {
				return Snapshot{}, fmt.Errorf("delete snapshot leg %d: %w", id, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, err
	}
	return j.GetSnapshot(s.SnapshotID)
}

// DeleteSnapshot removes the snapshot and all of its legs.
func (j *SQLite) DeleteSnapshot(snapshotID int64) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM snapshot_legs WHERE snapshot_id = ?`, snapshotID); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM snapshots WHERE snapshot_id = ?`, snapshotID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("snapshot %d: %w", snapshotID, ErrNotFound)
	}
	return tx.Commit()
}

func insertTradeLeg(tx *sql.Tx, tradeID int64, leg TradeLeg, now time.Time) error {
	_, err := tx.Exec(`
		INSERT INTO trade_legs (trade_id, ticker, entry_date, exit_date, entry_price, exit_price, quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tradeID, leg.Ticker, leg.EntryDate.Format(dateLayout), fmtDatePtr(leg.ExitDate),
		leg.EntryPrice.String(), fmtDecimalPtr(leg.ExitPrice), leg.Quantity, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert leg %s: %w", leg.Ticker, err)
	}
	return nil
}

func insertSnapshotLeg(tx *sql.Tx, snapshotID int64, leg SnapshotLeg, now time.Time) error {
	_, err := tx.Exec(`
		INSERT INTO snapshot_legs (snapshot_id, ticker, date, price, quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snapshotID, leg.Ticker, leg.Date.Format(dateLayout), leg.Price.String(), leg.Quantity, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot leg %s: %w", leg.Ticker, err)
	}
	return nil
}

func fmtDatePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func fmtDecimalPtr(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}
