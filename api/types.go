package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aurumiq/aurumiq/journal"
	"github.com/aurumiq/aurumiq/pnl"
)

const dateLayout = "2006-01-02"

// tradeLegPayload is the wire form of a leg on create/update. An id ties
// the submitted leg back to a stored one; id-less legs are inserted and
// stored legs missing from the submission are deleted.
type tradeLegPayload struct {
	ID         int64            `json:"id,omitempty"`
	Ticker     string           `json:"ticker"`
	EntryDate  string           `json:"entry_date"`
	ExitDate   *string          `json:"exit_date"`
	EntryPrice decimal.Decimal  `json:"entry_price"`
	ExitPrice  *decimal.Decimal `json:"exit_price"`
	Quantity   int64            `json:"quantity"`
}

type tradePayload struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Legs        []tradeLegPayload `json:"legs"`
}

func (p tradePayload) toTrade(tradeID int64) (journal.Trade, error) {
	t := journal.Trade{
		TradeID:     tradeID,
		Name:        p.Name,
		Description: p.Description,
	}
	for _, lp := range p.Legs {
		leg := journal.TradeLeg{
			ID:         lp.ID,
			Ticker:     lp.Ticker,
			EntryPrice: lp.EntryPrice,
			ExitPrice:  lp.ExitPrice,
			Quantity:   lp.Quantity,
		}
		var err error
		if leg.EntryDate, err = time.Parse(dateLayout, lp.EntryDate); err != nil {
			return journal.Trade{}, fmt.Errorf("leg %s: bad entry_date %q", lp.Ticker, lp.EntryDate)
		}
		if lp.ExitDate != nil {
			d, err := time.Parse(dateLayout, *lp.ExitDate)
			if err != nil {
				return journal.Trade{}, fmt.Errorf("leg %s: bad exit_date %q", lp.Ticker, *lp.ExitDate)
			}
			leg.ExitDate = &d
		}
		t.Legs = append(t.Legs, leg)
	}
	return t, nil
}

type tradeLegResponse struct {
	ID         int64            `json:"id"`
	TradeID    int64            `json:"trade_id"`
	Ticker     string           `json:"ticker"`
	EntryDate  string           `json:"entry_date"`
	ExitDate   *string          `json:"exit_date"`
	EntryPrice decimal.Decimal  `json:"entry_price"`
	ExitPrice  *decimal.Decimal `json:"exit_price"`
	Quantity   int64            `json:"quantity"`
	PnL        *decimal.Decimal `json:"pnl"`
	IsOpen     bool             `json:"is_open"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

type tradeResponse struct {
	TradeID     int64              `json:"trade_id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	IsOpen      bool               `json:"is_open"`
	PnL         decimal.Decimal    `json:"pnl"`
	PnLPartial  bool               `json:"pnl_partial"`
	LegCount    int                `json:"leg_count"`
	Tickers     []string           `json:"tickers"`
	EntryDate   *string            `json:"entry_date"`
	Legs        []tradeLegResponse `json:"legs"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// buildTradeResponse renders a trade without consulting quotes: closed legs
// carry realized PnL, open legs carry null. Unrealized PnL lives on the
// live-prices endpoint.
func buildTradeResponse(t journal.Trade) tradeResponse {
	view := pnl.BuildTradeView(t.Legs, nil)

	resp := tradeResponse{
		TradeID:     t.TradeID,
		Name:        t.Name,
		Description: t.Description,
		IsOpen:      view.IsOpen,
		PnL:         view.PnL,
		PnLPartial:  view.Partial,
		LegCount:    view.LegCount,
		Tickers:     view.Tickers,
		Legs:        []tradeLegResponse{},
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if resp.Tickers == nil {
		resp.Tickers = []string{}
	}

	var earliest *time.Time
	for _, leg := range t.Legs {
		if earliest == nil || leg.EntryDate.Before(*earliest) {
			d := leg.EntryDate
			earliest = &d
		}
		resp.Legs = append(resp.Legs, buildLegResponse(leg))
	}
	if earliest != nil {
		d := earliest.Format(dateLayout)
		resp.EntryDate = &d
	}
	return resp
}

func buildLegResponse(leg journal.TradeLeg) tradeLegResponse {
	out := tradeLegResponse{
		ID:         leg.ID,
		TradeID:    leg.TradeID,
		Ticker:     leg.Ticker,
		EntryDate:  leg.EntryDate.Format(dateLayout),
		EntryPrice: leg.EntryPrice,
		ExitPrice:  leg.ExitPrice,
		Quantity:   leg.Quantity,
		IsOpen:     leg.IsOpen(),
		CreatedAt:  leg.CreatedAt,
		UpdatedAt:  leg.UpdatedAt,
	}
	if leg.ExitDate != nil {
		d := leg.ExitDate.Format(dateLayout)
		out.ExitDate = &d
	}
	if v, ok := pnl.LegPnL(leg, nil); ok {
		out.PnL = &v
	}
	return out
}

type snapshotLegPayload struct {
	ID       int64           `json:"id,omitempty"`
	Ticker   string          `json:"ticker"`
	Date     string          `json:"date"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

type snapshotPayload struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Type        string               `json:"snapshot_type"`
	Legs        []snapshotLegPayload `json:"legs"`
}

func (p snapshotPayload) toSnapshot(snapshotID int64) (journal.Snapshot, error) {
	s := journal.Snapshot{
		SnapshotID:  snapshotID,
		Name:        p.Name,
		Description: p.Description,
		Type:        p.Type,
	}
	for _, lp := range p.Legs {
		leg := journal.SnapshotLeg{
			ID:       lp.ID,
			Ticker:   lp.Ticker,
			Price:    lp.Price,
			Quantity: lp.Quantity,
		}
		var err error
		if leg.Date, err = time.Parse(dateLayout, lp.Date); err != nil {
			return journal.Snapshot{}, fmt.Errorf("snapshot leg %s: bad date %q", lp.Ticker, lp.Date)
		}
		s.Legs = append(s.Legs, leg)
	}
	return s, nil
}

type snapshotLegResponse struct {
	ID                int64            `json:"id"`
	SnapshotID        int64            `json:"snapshot_id"`
	Ticker            string           `json:"ticker"`
	Date              string           `json:"date"`
	Price             decimal.Decimal  `json:"price"`
	Quantity          int64            `json:"quantity"`
	CurrentPrice      *decimal.Decimal `json:"current_price"`
	PointsMoved       *decimal.Decimal `json:"points_moved"`
	PercentageMoved   *decimal.Decimal `json:"percentage_moved"`
	DaysSinceSnapshot *int             `json:"days_since_snapshot"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

type snapshotResponse struct {
	SnapshotID  int64                 `json:"snapshot_id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Type        string                `json:"snapshot_type"`
	LegCount    int                   `json:"leg_count"`
	Tickers     []string              `json:"tickers"`
	Legs        []snapshotLegResponse `json:"legs"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

func buildSnapshotResponse(s journal.Snapshot) snapshotResponse {
	resp := snapshotResponse{
		SnapshotID:  s.SnapshotID,
		Name:        s.Name,
		Description: s.Description,
		Type:        s.Type,
		LegCount:    len(s.Legs),
		Tickers:     []string{},
		Legs:        []snapshotLegResponse{},
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}

	seen := map[string]bool{}
	for _, leg := range s.Legs {
		if !seen[leg.Ticker] {
			seen[leg.Ticker] = true
			resp.Tickers = append(resp.Tickers, leg.Ticker)
		}
		resp.Legs = append(resp.Legs, snapshotLegResponse{
			ID:         leg.ID,
			SnapshotID: leg.SnapshotID,
			Ticker:     leg.Ticker,
			Date:       leg.Date.Format(dateLayout),
			Price:      leg.Price,
			Quantity:   leg.Quantity,
			CreatedAt:  leg.CreatedAt,
			UpdatedAt:  leg.UpdatedAt,
		})
	}
	return resp
}

// pageParams falls back to the defaults on anything unparseable, matching
// how the frontend has always treated bad pagination input.
func pageParams(r *http.Request) (page, pageSize int) {
	page, pageSize = 1, 10
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && v > 0 {
		pageSize = v
	}
	return page, pageSize
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
