package journal

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML fixture format consumed by the seed command.
type SeedFile struct {
	Trades    []SeedTrade    `yaml:"trades"`
	Snapshots []SeedSnapshot `yaml:"snapshots"`
}

type SeedTrade struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Legs        []SeedLeg `yaml:"legs"`
}

type SeedLeg struct {
	Ticker     string `yaml:"ticker"`
	EntryDate  string `yaml:"entry_date"`
	ExitDate   string `yaml:"exit_date"`
	EntryPrice string `yaml:"entry_price"`
	ExitPrice  string `yaml:"exit_price"`
	Quantity   int64  `yaml:"quantity"`
}

type SeedSnapshot struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Type        string            `yaml:"type"`
	Legs        []SeedSnapshotLeg `yaml:"legs"`
}

type SeedSnapshotLeg struct {
	Ticker   string `yaml:"ticker"`
	Date     string `yaml:"date"`
	Price    string `yaml:"price"`
	Quantity int64  `yaml:"quantity"`
}

// LoadSeedFile parses a YAML fixture file.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var sf SeedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &sf, nil
}

// Apply inserts every trade and snapshot in the fixture into the store.
// It returns how many of each were created.
func (sf *SeedFile) Apply(store Store) (tradeCount, snapshotCount int, err error) {
	for _, st := range sf.Trades {
		trade := Trade{Name: st.Name, Description: st.Description}
		for _, sl := range st.Legs {
			leg, err := sl.toLeg()
			if err != nil {
				return tradeCount, snapshotCount, fmt.Errorf("trade %q: %w", st.Name, err)
			}
			trade.Legs = append(trade.Legs, leg)
		}
		if _, err := store.CreateTrade(trade); err != nil {
			return tradeCount, snapshotCount, fmt.Errorf("seed trade %q: %w", st.Name, err)
		}
		tradeCount++
	}

	for _, ss := range sf.Snapshots {
		snap := Snapshot{Name: ss.Name, Description: ss.Description, Type: ss.Type}
		for _, sl := range ss.Legs {
			leg, err := sl.toLeg()
			if err != nil {
				return tradeCount, snapshotCount, fmt.Errorf("snapshot %q: %w", ss.Name, err)
			}
			snap.Legs = append(snap.Legs, leg)
		}
		if _, err := store.CreateSnapshot(snap); err != nil {
			return tradeCount, snapshotCount, fmt.Errorf("seed snapshot %q: %w", ss.Name, err)
		}
		snapshotCount++
	}
	return tradeCount, snapshotCount, nil
}

func (sl SeedLeg) toLeg() (TradeLeg, error) {
	leg := TradeLeg{Ticker: sl.Ticker, Quantity: sl.Quantity}

	var err error
	if leg.EntryDate, err = time.Parse(dateLayout, sl.EntryDate); err != nil {
		return TradeLeg{}, fmt.Errorf("leg %s: bad entry_date %q", sl.Ticker, sl.EntryDate)
	}
	if leg.EntryPrice, err = decimal.NewFromString(sl.EntryPrice); err != nil {
		return TradeLeg{}, fmt.Errorf("leg %s: bad entry_price %q", sl.Ticker, sl.EntryPrice)
	}
	if sl.ExitDate != "" {
		d, err := time.Parse(dateLayout, sl.ExitDate)
		if err != nil {
			return TradeLeg{}, fmt.Errorf("leg %s: bad exit_date %q", sl.Ticker, sl.ExitDate)
		}
		leg.ExitDate = &d
	}
	if sl.ExitPrice != "" {
		p, err := decimal.NewFromString(sl.ExitPrice)
		if err != nil {
			return TradeLeg{}, fmt.Errorf("leg %s: bad exit_price %q", sl.Ticker, sl.ExitPrice)
		}
		leg.ExitPrice = &p
	}
	return leg, nil
}

func (sl SeedSnapshotLeg) toLeg() (SnapshotLeg, error) {
	leg := SnapshotLeg{Ticker: sl.Ticker, Quantity: sl.Quantity}

	var err error
	if leg.Date, err = time.Parse(dateLayout, sl.Date); err != nil {
		return SnapshotLeg{}, fmt.Errorf("snapshot leg %s: bad date %q", sl.Ticker, sl.Date)
	}
	if leg.Price, err = decimal.NewFromString(sl.Price); err != nil {
		return SnapshotLeg{}, fmt.Errorf("snapshot leg %s: bad price %q", sl.Ticker, sl.Price)
	}
	return leg, nil
}
