// Package journal persists trades and snapshots in SQLite and exposes
// the store surface the API and CLI are built on.
package journal

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a trade or snapshot id does not exist.
var ErrNotFound = errors.New("journal: not found")

// TradeLeg is one ticker position inside a trade. A leg is open until both
// exit date and exit price are recorded.
type TradeLeg struct {
	ID         int64
	TradeID    int64
	Ticker     string
	EntryDate  time.Time
	ExitDate   *time.Time
	EntryPrice decimal.Decimal
	ExitPrice  *decimal.Decimal
	Quantity   int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsOpen reports whether the leg still lacks exit data.
func (l TradeLeg) IsOpen() bool {
	return l.ExitDate == nil || l.ExitPrice == nil
}

// Validate enforces the invariants a leg must satisfy before it is stored:
// exit date and exit price travel together, quantity carries the direction
// and must be nonzero, prices cannot be negative.
func (l TradeLeg) Validate() error {
	if l.Ticker == "" {
		return fmt.Errorf("leg: ticker is required")
	}
	if l.EntryDate.IsZero() {
		return fmt.Errorf("leg %s: entry_date is required", l.Ticker)
	}
	if l.EntryPrice.IsNegative() {
		return fmt.Errorf("leg %s: entry_price must not be negative", l.Ticker)
	}
	if l.Quantity == 0 {
		return fmt.Errorf("leg %s: quantity must be nonzero", l.Ticker)
	}
	if (l.ExitDate == nil) != (l.ExitPrice == nil) {
		return fmt.Errorf("leg %s: exit_date and exit_price must both be set for a closed position", l.Ticker)
	}
	if l.ExitPrice != nil && l.ExitPrice.IsNegative() {
		return fmt.Errorf("leg %s: exit_price must not be negative", l.Ticker)
	}
	return nil
}

// Trade groups one or more legs under a shared trade id. Open/closed status
// and PnL are derived, never stored.
type Trade struct {
	TradeID     int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Legs        []TradeLeg
}

func (t Trade) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("trade: name is required")
	}
	if len(t.Legs) == 0 {
		return fmt.Errorf("trade %q: at least one leg is required", t.Name)
	}
	for _, leg := range t.Legs {
		if err := leg.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SnapshotLeg is a fixed reference point: a ticker price observed on a date,
// later compared against a live quote. It has no open/closed state.
type SnapshotLeg struct {
	ID         int64
	SnapshotID int64
	Ticker     string
	Date       time.Time
	Price      decimal.Decimal
	Quantity   int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate rejects legs the comparator cannot handle. Price must be strictly
// positive so percentage movement is always defined downstream.
func (l SnapshotLeg) Validate() error {
	if l.Ticker == "" {
		return fmt.Errorf("snapshot leg: ticker is required")
	}
	if l.Date.IsZero() {
		return fmt.Errorf("snapshot leg %s: date is required", l.Ticker)
	}
	if !l.Price.IsPositive() {
		return fmt.Errorf("snapshot leg %s: price must be positive", l.Ticker)
	}
	if l.Quantity == 0 {
		return fmt.Errorf("snapshot leg %s: quantity must be nonzero", l.Ticker)
	}
	return nil
}

// Snapshot groups reference legs under a name and optional type tag.
type Snapshot struct {
	SnapshotID  int64
	Name        string
	Description string
	Type        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Legs        []SnapshotLeg
}

func (s Snapshot) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("snapshot: name is required")
	}
	if len(s.Legs) == 0 {
		return fmt.Errorf("snapshot %q: at least one leg is required", s.Name)
	}
	for _, leg := range s.Legs {
		if err := leg.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Store is the persistence surface the API and CLI consume.
type Store interface {
	CreateTrade(t Trade) (Trade, error)
	GetTrade(tradeID int64) (Trade, error)
	ListTrades(page, pageSize int) ([]Trade, int, error)
	UpdateTrade(t Trade) (Trade, error)
	DeleteTrade(tradeID int64) error
	OpenLegs() ([]TradeLeg, error)
	AllTrades() ([]Trade, error)

	CreateSnapshot(s Snapshot) (Snapshot, error)
	GetSnapshot(snapshotID int64) (Snapshot, error)
	ListSnapshots(page, pageSize int) ([]Snapshot, int, error)
	UpdateSnapshot(s Snapshot) (Snapshot, error)
	DeleteSnapshot(snapshotID int64) error

	Close() error
}
