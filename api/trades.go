package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/aurumiq/aurumiq/journal"
	"github.com/aurumiq/aurumiq/pnl"
)

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	trades, count, err := s.store.ListTrades(page, pageSize)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	results := make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		results = append(results, buildTradeResponse(t))
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   count,
		"results": results,
	})
}

func (s *Server) handleCreateTrade(w http.ResponseWriter, r *http.Request) {
	var payload tradePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	trade, err := payload.toTrade(0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := s.store.CreateTrade(trade)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.RefreshWatchSet()
	s.writeJSON(w, http.StatusCreated, buildTradeResponse(created))
}

func (s *Server) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	tradeID := pathID(r, "trade_id")

	trade, err := s.store.GetTrade(tradeID)
	if errors.Is(err, journal.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, buildTradeResponse(trade))
}

func (s *Server) handleUpdateTrade(w http.ResponseWriter, r *http.Request) {
	tradeID := pathID(r, "trade_id")

	var payload tradePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	trade, err := payload.toTrade(tradeID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := s.store.UpdateTrade(trade)
	if errors.Is(err, journal.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.RefreshWatchSet()
	s.writeJSON(w, http.StatusOK, buildTradeResponse(updated))
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	tradeID := pathID(r, "trade_id")

	err := s.store.DeleteTrade(tradeID)
	if errors.Is(err, journal.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.RefreshWatchSet()
	w.WriteHeader(http.StatusNoContent)
}

type livePriceLeg struct {
	ID            int64            `json:"id"`
	Ticker        string           `json:"ticker"`
	EntryPrice    decimal.Decimal  `json:"entry_price"`
	CurrentPrice  *decimal.Decimal `json:"current_price"`
	Quantity      int64            `json:"quantity"`
	UnrealizedPnL *decimal.Decimal `json:"unrealized_pnl"`
	PnL           *decimal.Decimal `json:"pnl"`
	IsOpen        bool             `json:"is_open"`
}

type livePriceTrade struct {
	TradeID    int64           `json:"trade_id"`
	Name       string          `json:"name"`
	Legs       []livePriceLeg  `json:"legs"`
	TotalPnL   decimal.Decimal `json:"total_unrealized_pnl"`
	PnLPartial bool            `json:"pnl_partial"`
}

// handleLivePrices reconciles every trade holding an open leg against the
// poller's latest quote snapshot. Legs without a quote report null, not
// zero, and flag the containing totals as partial.
func (s *Server) handleLivePrices(w http.ResponseWriter, r *http.Request) {
	openLegs, err := s.store.OpenLegs()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	brokerConfigured := s.broker != nil && s.broker.IsConfigured()
	var brokerError *string
	if s.poller != nil {
		if pollErr := s.poller.LastError(); pollErr != nil {
			msg := pollErr.Error()
			brokerError = &msg
		}
	}

	if len(openLegs) == 0 {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"broker_configured":    brokerConfigured,
			"broker_error":         brokerError,
			"open_trades":          []livePriceTrade{},
			"total_unrealized_pnl": decimal.Zero,
			"pnl_partial":          false,
		})
		return
	}

	quoteMap := pnl.Quotes{}
	if s.poller != nil {
		quoteMap = s.poller.Latest()
	}

	tradeIDs := []int64{}
	seen := map[int64]bool{}
	for _, leg := range openLegs {
		if !seen[leg.TradeID] {
			seen[leg.TradeID] = true
			tradeIDs = append(tradeIDs, leg.TradeID)
		}
	}

	total := decimal.Zero
	totalPartial := false
	openTrades := make([]livePriceTrade, 0, len(tradeIDs))

	for _, tradeID := range tradeIDs {
		trade, err := s.store.GetTrade(tradeID)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}

		lt := livePriceTrade{
			TradeID:  trade.TradeID,
			Name:     trade.Name,
			Legs:     []livePriceLeg{},
			TotalPnL: decimal.Zero,
		}

		for _, leg := range trade.Legs {
			out := livePriceLeg{
				ID:         leg.ID,
				Ticker:     leg.Ticker,
				EntryPrice: leg.EntryPrice,
				Quantity:   leg.Quantity,
				IsOpen:     leg.IsOpen(),
			}

			if leg.IsOpen() {
				if quote, ok := quoteMap[leg.Ticker]; ok {
					q := quote
					out.CurrentPrice = &q
					unrealized, _ := pnl.LegPnL(leg, quoteMap)
					out.UnrealizedPnL = &unrealized
					lt.TotalPnL = lt.TotalPnL.Add(unrealized)
				} else {
					lt.PnLPartial = true
				}
			} else {
				realized, _ := pnl.LegPnL(leg, nil)
				out.PnL = &realized
			}
			lt.Legs = append(lt.Legs, out)
		}

		total = total.Add(lt.TotalPnL)
		totalPartial = totalPartial || lt.PnLPartial
		openTrades = append(openTrades, lt)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"broker_configured":    brokerConfigured,
		"broker_error":         brokerError,
		"open_trades":          openTrades,
		"total_unrealized_pnl": total,
		"pnl_partial":          totalPartial,
	})
}

func pathID(r *http.Request, name string) int64 {
	// The route pattern guarantees digits only.
	v, _ := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return v
}
