// Package pnl computes realized and unrealized profit-and-loss for journal
// trades and movement metrics for snapshots. Everything here is a pure
// function of its inputs: legs come from the journal store, quotes from a
// point-in-time snapshot of the quote source. A leg without a usable price
// contributes "no value" to aggregates, never zero.
package pnl

import (
	"github.com/shopspring/decimal"

	"github.com/aurumiq/aurumiq/journal"
)

// Quotes maps ticker symbols to last-traded prices. Missing entries mean
// the source could not resolve the ticker.
type Quotes map[string]decimal.Decimal

// LegPnL returns the PnL contributed by a single leg.
//
// Closed legs yield realized PnL from the recorded exit price and ignore
// quotes entirely. Open legs yield unrealized PnL against the live quote
// when one is available; without a quote the PnL is undefined and ok is
// false. Quantity is signed, so the same formula covers shorts.
func LegPnL(leg journal.TradeLeg, quotes Quotes) (decimal.Decimal, bool) {
	qty := decimal.NewFromInt(leg.Quantity)

	if !leg.IsOpen() {
		return leg.ExitPrice.Sub(leg.EntryPrice).Mul(qty), true
	}
	if quote, found := quotes[leg.Ticker]; found {
		return quote.Sub(leg.EntryPrice).Mul(qty), true
	}
	return decimal.Decimal{}, false
}

// TradeView is the derived, trade-level view over a set of legs sharing a
// trade id.
type TradeView struct {
	IsOpen   bool
	PnL      decimal.Decimal
	Partial  bool // true when at least one leg's PnL was omitted
	Tickers  []string
	LegCount int
}

// BuildTradeView aggregates legs into a trade view. The PnL is a partial
// sum over legs with a defined PnL; Partial flags any omission so callers
// can mark the total as incomplete. Tickers keep first-appearance order.
func BuildTradeView(legs []journal.TradeLeg, quotes Quotes) TradeView {
	view := TradeView{
		PnL:      decimal.Zero,
		LegCount: len(legs),
	}

	seen := map[string]bool{}
	for _, leg := range legs {
		if leg.IsOpen() {
			view.IsOpen = true
		}
		if pnl, ok := LegPnL(leg, quotes); ok {
			view.PnL = view.PnL.Add(pnl)
		} else {
			view.Partial = true
		}
		if !seen[leg.Ticker] {
			seen[leg.Ticker] = true
			view.Tickers = append(view.Tickers, leg.Ticker)
		}
	}
	return view
}
