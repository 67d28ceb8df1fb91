// Package api exposes the trading journal over REST. Handlers translate
// between JSON payloads and the journal store, and reconcile open positions
// against the latest quote snapshot; all arithmetic stays in the pnl
// package, all rounding happens here at the presentation boundary.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aurumiq/aurumiq/journal"
	"github.com/aurumiq/aurumiq/quotes"
)

// Broker is the slice of the quote-source client the API needs.
type Broker interface {
	IsConfigured() bool
	IsAuthenticated() bool
	AuthURL() (string, error)
	ExchangeCode(ctx context.Context, codeOrURL string) error
	Profile(ctx context.Context) (map[string]interface{}, error)
	LastPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
}

type Server struct {
	store  journal.Store
	broker Broker
	poller *quotes.Poller
	log    *logrus.Logger
	port   int
}

func NewServer(store journal.Store, broker Broker, poller *quotes.Poller, log *logrus.Logger, port int) *Server {
	if log == nil {
		log = logrus.New()
	}
	return &Server{
		store:  store,
		broker: broker,
		poller: poller,
		log:    log,
		port:   port,
	}
}

// Router wires all endpoints. Exposed separately from Start so tests can
// drive the full handler chain through httptest.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/trades", s.handleListTrades).Methods(http.MethodGet)
	r.HandleFunc("/api/trades", s.handleCreateTrade).Methods(http.MethodPost)
	r.HandleFunc("/api/trades/live-prices", s.handleLivePrices).Methods(http.MethodGet)
	r.HandleFunc("/api/trades/{trade_id:[0-9]+}", s.handleGetTrade).Methods(http.MethodGet)
	r.HandleFunc("/api/trades/{trade_id:[0-9]+}", s.handleUpdateTrade).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/api/trades/{trade_id:[0-9]+}", s.handleDeleteTrade).Methods(http.MethodDelete)

	r.HandleFunc("/api/snapshots", s.handleListSnapshots).Methods(http.MethodGet)
	r.HandleFunc("/api/snapshots", s.handleCreateSnapshot).Methods(http.MethodPost)
	r.HandleFunc("/api/snapshots/{snapshot_id:[0-9]+}", s.handleGetSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/api/snapshots/{snapshot_id:[0-9]+}", s.handleUpdateSnapshot).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/api/snapshots/{snapshot_id:[0-9]+}", s.handleDeleteSnapshot).Methods(http.MethodDelete)

	r.HandleFunc("/api/dashboard/analytics", s.handleAnalytics).Methods(http.MethodGet)

	r.HandleFunc("/api/brokers/fyers/auth-url", s.handleAuthURL).Methods(http.MethodGet)
	r.HandleFunc("/api/brokers/fyers/auth-token", s.handleAuthToken).Methods(http.MethodPost)
	r.HandleFunc("/api/brokers/fyers/profile", s.handleProfile).Methods(http.MethodGet)

	return s.corsMiddleware(s.loggingMiddleware(r))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("port", s.port).Info("starting API server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// RefreshWatchSet points the poller at the tickers of all currently open
// legs. Called at startup and after every trade mutation, so polling stops
// as soon as the last open position closes.
func (s *Server) RefreshWatchSet() {
	if s.poller == nil {
		return
	}
	legs, err := s.store.OpenLegs()
	if err != nil {
		s.log.WithError(err).Error("refresh quote watch set")
		return
	}
	tickers := make([]string, 0, len(legs))
	for _, leg := range legs {
		tickers = append(tickers, leg.Ticker)
	}
	s.poller.SetTickers(tickers)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.WithError(err).Error("encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
