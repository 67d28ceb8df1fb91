package pnl

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/aurumiq/aurumiq/journal"
)

const monthLayout = "2006-01"

// MonthlyPnL is one point of the realized PnL series: the exit month and
// the sum of realized PnL for legs closed in it.
type MonthlyPnL struct {
	Month string
	PnL   decimal.Decimal
}

// Summary is the portfolio-wide analytics view.
//
// OverallPnL is deliberately the realized, closed-book figure: it equals
// ClosedTradesPnL and never blends in unrealized PnL, so it is reproducible
// without any quote source.
type Summary struct {
	TotalOpenTrades   int
	TotalClosedTrades int
	OpenTradesPnL     decimal.Decimal
	ClosedTradesPnL   decimal.Decimal
	OverallPnL        decimal.Decimal
	PnLOverTime       []MonthlyPnL
}

// Summarize aggregates all trades. No quotes are consulted, so an open
// trade contributes only the realized PnL of its closed legs; open legs
// are omitted from every sum. A trade with no legs counts as closed with
// zero PnL.
func Summarize(trades []journal.Trade) Summary {
	s := Summary{
		OpenTradesPnL:   decimal.Zero,
		ClosedTradesPnL: decimal.Zero,
	}

	byMonth := map[string]decimal.Decimal{}

	for _, t := range trades {
		view := BuildTradeView(t.Legs, nil)
		if view.IsOpen {
			s.TotalOpenTrades++
			s.OpenTradesPnL = s.OpenTradesPnL.Add(view.PnL)
		} else {
			s.TotalClosedTrades++
			s.ClosedTradesPnL = s.ClosedTradesPnL.Add(view.PnL)
		}

		for _, leg := range t.Legs {
			if leg.IsOpen() {
				continue
			}
			pnl, _ := LegPnL(leg, nil)
			month := leg.ExitDate.Format(monthLayout)
			if cur, ok := byMonth[month]; ok {
				byMonth[month] = cur.Add(pnl)
			} else {
				byMonth[month] = pnl
			}
		}
	}

	s.OverallPnL = s.ClosedTradesPnL

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	for _, m := range months {
		s.PnLOverTime = append(s.PnLOverTime, MonthlyPnL{Month: m, PnL: byMonth[m]})
	}
	return s
}
