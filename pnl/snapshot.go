package pnl

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aurumiq/aurumiq/journal"
)

// SnapshotComparison describes how far a ticker has moved since its
// reference snapshot. Movement fields are nil when no current quote is
// available. Movement is a per-unit price comparison: quantity is carried
// through for display but never affects points or percentage.
type SnapshotComparison struct {
	CurrentPrice      *decimal.Decimal
	PointsMoved       *decimal.Decimal
	PercentageMoved   *decimal.Decimal
	DaysSinceSnapshot int
	Quantity          int64
}

// CompareSnapshotLeg measures the leg's reference price against the current
// quote. The reference price is validated to be positive at the entry
// boundary, so the percentage is always defined when a quote exists.
// DaysSinceSnapshot uses calendar dates, not elapsed hours.
func CompareSnapshotLeg(leg journal.SnapshotLeg, quotes Quotes, today time.Time) SnapshotComparison {
	cmp := SnapshotComparison{
		DaysSinceSnapshot: daysBetween(leg.Date, today),
		Quantity:          leg.Quantity,
	}

	quote, found := quotes[leg.Ticker]
	if !found {
		return cmp
	}

	points := quote.Sub(leg.Price)
	percent := points.Div(leg.Price).Mul(decimal.NewFromInt(100))

	cmp.CurrentPrice = &quote
	cmp.PointsMoved = &points
	cmp.PercentageMoved = &percent
	return cmp
}

func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
