package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/aurumiq/aurumiq/pnl"
)

type pnlPoint struct {
	Date string          `json:"date"`
	PnL  decimal.Decimal `json:"pnl"`
}

type analyticsResponse struct {
	TotalOpenTrades   int             `json:"total_open_trades"`
	TotalClosedTrades int             `json:"total_closed_trades"`
	OverallPnL        decimal.Decimal `json:"overall_pnl"`
	OpenTradesPnL     decimal.Decimal `json:"open_trades_pnl"`
	ClosedTradesPnL   decimal.Decimal `json:"closed_trades_pnl"`
	PnLOverTime       []pnlPoint      `json:"pnl_over_time"`
}

// handleAnalytics serves the dashboard summary. Everything here is
// realized-only; overall PnL is reproducible with no quote source at all.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.AllTrades()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	summary := pnl.Summarize(trades)

	resp := analyticsResponse{
		TotalOpenTrades:   summary.TotalOpenTrades,
		TotalClosedTrades: summary.TotalClosedTrades,
		OverallPnL:        summary.OverallPnL,
		OpenTradesPnL:     summary.OpenTradesPnL,
		ClosedTradesPnL:   summary.ClosedTradesPnL,
		PnLOverTime:       []pnlPoint{},
	}
	for _, point := range summary.PnLOverTime {
		resp.PnLOverTime = append(resp.PnLOverTime, pnlPoint{Date: point.Month, PnL: point.PnL})
	}
	s.writeJSON(w, http.StatusOK, resp)
}
