package pnl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurumiq/aurumiq/journal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func closedLeg(ticker string, entry, exit string, qty int64, exitDate time.Time) journal.TradeLeg {
	price := d(exit)
	return journal.TradeLeg{
		Ticker:     ticker,
		EntryDate:  exitDate.AddDate(0, 0, -7),
		ExitDate:   &exitDate,
		EntryPrice: d(entry),
		ExitPrice:  &price,
		Quantity:   qty,
	}
}

func openLeg(ticker string, entry string, qty int64) journal.TradeLeg {
	return journal.TradeLeg{
		Ticker:     ticker,
		EntryDate:  date(2024, 3, 1),
		EntryPrice: d(entry),
		Quantity:   qty,
	}
}

func TestLegPnLClosedIgnoresQuotes(t *testing.T) {
	t.Parallel()

	leg := closedLeg("AAPL", "100", "120", 10, date(2024, 3, 15))

	pnl, ok := LegPnL(leg, nil)
	require.True(t, ok)
	assert.True(t, pnl.Equal(d("200")), "got %s", pnl)

	// A wildly different quote must not change a realized result.
	pnl2, ok := LegPnL(leg, Quotes{"AAPL": d("999.99")})
	require.True(t, ok)
	assert.True(t, pnl2.Equal(pnl))
}

func TestLegPnLOpenWithQuote(t *testing.T) {
	t.Parallel()

	leg := openLeg("TSLA", "210.50", 5)
	pnl, ok := LegPnL(leg, Quotes{"TSLA": d("220.50")})
	require.True(t, ok)
	assert.True(t, pnl.Equal(d("50")), "got %s", pnl)
}

func TestLegPnLShortPosition(t *testing.T) {
	t.Parallel()

	// Short 10 units, price rises 5: loss of 50.
	leg := openLeg("SPY", "400", -10)
	pnl, ok := LegPnL(leg, Quotes{"SPY": d("405")})
	require.True(t, ok)
	assert.True(t, pnl.Equal(d("-50")), "got %s", pnl)
}

func TestLegPnLOpenWithoutQuoteIsUndefined(t *testing.T) {
	t.Parallel()

	leg := openLeg("TSLA", "210.50", 5)

	_, ok := LegPnL(leg, nil)
	assert.False(t, ok)

	_, ok = LegPnL(leg, Quotes{"AAPL": d("150")})
	assert.False(t, ok)
}

func TestLegPnLZeroIsAValue(t *testing.T) {
	t.Parallel()

	// A flat closed leg has PnL exactly zero and ok=true, distinct from
	// an open unquoted leg where ok=false.
	leg := closedLeg("AAPL", "150", "150", 10, date(2024, 3, 15))
	pnl, ok := LegPnL(leg, nil)
	require.True(t, ok)
	assert.True(t, pnl.IsZero())
}

func TestBuildTradeViewPartialSum(t *testing.T) {
	t.Parallel()

	legs := []journal.TradeLeg{
		closedLeg("AAPL", "100", "120", 10, date(2024, 3, 15)),
		openLeg("TSLA", "210.50", 5),
	}

	view := BuildTradeView(legs, nil)
	assert.True(t, view.IsOpen)
	assert.True(t, view.Partial)
	assert.True(t, view.PnL.Equal(d("200")), "got %s", view.PnL)
	assert.Equal(t, 2, view.LegCount)
	assert.Equal(t, []string{"AAPL", "TSLA"}, view.Tickers)
}

func TestBuildTradeViewAllClosed(t *testing.T) {
	t.Parallel()

	legs := []journal.TradeLeg{
		closedLeg("AAPL", "100", "120", 10, date(2024, 3, 15)),
		closedLeg("AAPL", "110", "105", 10, date(2024, 3, 20)),
	}

	view := BuildTradeView(legs, nil)
	assert.False(t, view.IsOpen)
	assert.False(t, view.Partial)
	assert.True(t, view.PnL.Equal(d("150")), "got %s", view.PnL)
	assert.Equal(t, []string{"AAPL"}, view.Tickers)
}

func TestBuildTradeViewQuotedOpenLegsAreNotPartial(t *testing.T) {
	t.Parallel()

	legs := []journal.TradeLeg{
		openLeg("TSLA", "200", 5),
		openLeg("SPY", "400", -2),
	}

	view := BuildTradeView(legs, Quotes{"TSLA": d("210"), "SPY": d("395")})
	assert.True(t, view.IsOpen)
	assert.False(t, view.Partial)
	assert.True(t, view.PnL.Equal(d("60")), "got %s", view.PnL) // 50 + 10
}

func TestBuildTradeViewDecimalPrecision(t *testing.T) {
	t.Parallel()

	// 0.1 + 0.2 style drift must not appear in decimal arithmetic.
	legs := []journal.TradeLeg{
		closedLeg("A", "0.10", "0.20", 1, date(2024, 1, 5)),
		closedLeg("B", "0.20", "0.40", 1, date(2024, 1, 6)),
	}
	view := BuildTradeView(legs, nil)
	assert.Equal(t, "0.3", view.PnL.String())
}
