package journal

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
)

// WriteClosedLegsCSV writes every closed leg of the given trades as CSV,
// one row per leg. Open legs are skipped since they have no realized PnL.
func WriteClosedLegsCSV(w io.Writer, trades []Trade) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"trade_id", "trade_name", "ticker", "entry_date", "exit_date", "entry_price", "exit_price", "quantity", "realized_pnl"}); err != nil {
		return err
	}

	for _, t := range trades {
		for _, leg := range t.Legs {
			if leg.IsOpen() {
				continue
			}
			pnl := leg.ExitPrice.Sub(leg.EntryPrice).Mul(decimal.NewFromInt(leg.Quantity))
			if err := cw.Write([]string{
				strconv.FormatInt(t.TradeID, 10),
				t.Name,
				leg.Ticker,
				leg.EntryDate.Format(dateLayout),
				leg.ExitDate.Format(dateLayout),
				leg.EntryPrice.String(),
				leg.ExitPrice.String(),
				strconv.FormatInt(leg.Quantity, 10),
				pnl.String(),
			}); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
