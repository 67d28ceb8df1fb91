package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurumiq/aurumiq/journal"
	"github.com/aurumiq/aurumiq/quotes"
)

// stubBroker satisfies both the Broker interface and quotes.Source.
type stubBroker struct {
	configured    bool
	authenticated bool
	prices        map[string]decimal.Decimal
	pricesErr     error
	exchangeErr   error
	exchangedCode string
}

func (b *stubBroker) IsConfigured() bool    { return b.configured }
func (b *stubBroker) IsAuthenticated() bool { return b.authenticated }

func (b *stubBroker) AuthURL() (string, error) {
	if !b.configured {
		return "", errors.New("not configured")
	}
	return "https://broker.example/authorize", nil
}

func (b *stubBroker) ExchangeCode(ctx context.Context, codeOrURL string) error {
	if b.exchangeErr != nil {
		return b.exchangeErr
	}
	b.exchangedCode = codeOrURL
	b.authenticated = true
	return nil
}

func (b *stubBroker) Profile(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"name": "test account"}, nil
}

func (b *stubBroker) LastPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	if b.pricesErr != nil {
		return nil, b.pricesErr
	}
	out := map[string]decimal.Decimal{}
	for _, t := range tickers {
		if p, ok := b.prices[t]; ok {
			out[t] = p
		}
	}
	return out, nil
}

type testEnv struct {
	store  journal.Store
	broker *stubBroker
	poller *quotes.Poller
	server *Server
	http   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := journal.NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	broker := &stubBroker{configured: true, authenticated: true}
	poller := quotes.NewPoller(broker, time.Hour, log)

	srv := NewServer(store, broker, poller, log, 0)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &testEnv{store: store, broker: broker, poller: poller, server: srv, http: ts}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.http.URL+path, buf)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func tradeBody(name string, legs ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"name": name, "description": "", "legs": legs}
}

func openLegBody(ticker, entryDate, entryPrice string, qty int64) map[string]interface{} {
	return map[string]interface{}{
		"ticker":      ticker,
		"entry_date":  entryDate,
		"entry_price": entryPrice,
		"quantity":    qty,
	}
}

func closedLegBody(ticker, entryDate, exitDate, entryPrice, exitPrice string, qty int64) map[string]interface{} {
	body := openLegBody(ticker, entryDate, entryPrice, qty)
	body["exit_date"] = exitDate
	body["exit_price"] = exitPrice
	return body
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	decodeBody(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestCreateAndGetTrade(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/trades", tradeBody("spread",
		closedLegBody("NSE:NIFTY", "2025-02-03", "2025-03-10", "100.50", "110.25", 75),
		openLegBody("NSE:BANKNIFTY", "2025-02-01", "250", -25),
	))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created tradeResponse
	decodeBody(t, resp, &created)
	assert.Equal(t, int64(1), created.TradeID)
	assert.True(t, created.IsOpen)
	assert.Equal(t, 2, created.LegCount)

	// Realized PnL only: the unquoted open leg is omitted and flagged.
	assert.True(t, created.PnL.Equal(decimal.RequireFromString("731.25")))
	assert.True(t, created.PnLPartial)

	require.NotNil(t, created.EntryDate)
	assert.Equal(t, "2025-02-01", *created.EntryDate, "earliest leg entry date")

	resp = env.do(t, http.MethodGet, "/api/trades/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got tradeResponse
	decodeBody(t, resp, &got)
	assert.Equal(t, created.TradeID, got.TradeID)
	require.Len(t, got.Legs, 2)
	for _, leg := range got.Legs {
		if leg.IsOpen {
			assert.Nil(t, leg.PnL, "open unquoted legs report null, never zero")
		} else {
			require.NotNil(t, leg.PnL)
			assert.True(t, leg.PnL.Equal(decimal.RequireFromString("731.25")))
		}
	}
}

func TestCreateTradeRejectsBadPayload(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/trades", tradeBody("bad date",
		openLegBody("NSE:SBIN", "03-02-2025", "700", 10),
	))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/trades", tradeBody("no legs"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/trades", tradeBody("zero qty",
		openLegBody("NSE:SBIN", "2025-02-03", "700", 0),
	))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestGetTradeNotFound(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/trades/99", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestListTradesPaginated(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		resp := env.do(t, http.MethodPost, "/api/trades", tradeBody(fmt.Sprintf("trade-%d", i),
			openLegBody("NSE:SBIN", "2025-02-03", "700", 10),
		))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	var page struct {
		Count   int             `json:"count"`
		Results []tradeResponse `json:"results"`
	}

	resp := env.do(t, http.MethodGet, "/api/trades?page=1&page_size=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &page)
	assert.Equal(t, 3, page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, int64(3), page.Results[0].TradeID, "newest first")

	// Unparseable pagination falls back to page 1, size 10.
	resp = env.do(t, http.MethodGet, "/api/trades?page=banana&page_size=-5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &page)
	assert.Equal(t, 3, page.Count)
	assert.Len(t, page.Results, 3)
}

func TestUpdateTradeClosesLeg(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/trades", tradeBody("runner",
		openLegBody("NSE:RELIANCE", "2025-02-03", "2800", 50),
	))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created tradeResponse
	decodeBody(t, resp, &created)
	require.Len(t, created.Legs, 1)

	leg := closedLegBody("NSE:RELIANCE", "2025-02-03", "2025-04-02", "2800", "2950", 50)
	leg["id"] = created.Legs[0].ID
	resp = env.do(t, http.MethodPut, "/api/trades/1", tradeBody("runner", leg))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated tradeResponse
	decodeBody(t, resp, &updated)
	assert.False(t, updated.IsOpen)
	assert.False(t, updated.PnLPartial)
	assert.True(t, updated.PnL.Equal(decimal.RequireFromString("7500")))
	assert.Equal(t, created.Legs[0].ID, updated.Legs[0].ID, "leg updated in place")
}

func TestDeleteTrade(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/trades", tradeBody("gone",
		openLegBody("NSE:SBIN", "2025-02-03", "700", 10),
	))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodDelete, "/api/trades/1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodDelete, "/api/trades/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAnalytics(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/trades", tradeBody("winner",
		closedLegBody("NSE:NIFTY", "2025-01-05", "2025-01-20", "100", "200", 5),
	))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/trades", tradeBody("still running",
		closedLegBody("NSE:SBIN", "2025-02-01", "2025-02-14", "700", "690", 10),
		openLegBody("NSE:TCS", "2025-02-01", "4100", 10),
	))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/dashboard/analytics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var analytics analyticsResponse
	decodeBody(t, resp, &analytics)

	assert.Equal(t, 1, analytics.TotalOpenTrades)
	assert.Equal(t, 1, analytics.TotalClosedTrades)
	assert.True(t, analytics.ClosedTradesPnL.Equal(decimal.RequireFromString("500")))
	assert.True(t, analytics.OpenTradesPnL.Equal(decimal.RequireFromString("-100")))

	// Overall is realized-only: the open trade's partial sum never leaks in.
	assert.True(t, analytics.OverallPnL.Equal(decimal.RequireFromString("500")))

	require.Len(t, analytics.PnLOverTime, 2)
	assert.Equal(t, "2025-01", analytics.PnLOverTime[0].Date)
	assert.True(t, analytics.PnLOverTime[0].PnL.Equal(decimal.RequireFromString("500")))
	assert.Equal(t, "2025-02", analytics.PnLOverTime[1].Date)
	assert.True(t, analytics.PnLOverTime[1].PnL.Equal(decimal.RequireFromString("-100")))
}

type livePricesResponse struct {
	BrokerConfigured bool             `json:"broker_configured"`
	BrokerError      *string          `json:"broker_error"`
	OpenTrades       []livePriceTrade `json:"open_trades"`
	TotalPnL         decimal.Decimal  `json:"total_unrealized_pnl"`
	PnLPartial       bool             `json:"pnl_partial"`
}

func waitForQuotes(t *testing.T, p *quotes.Poller, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(p.Latest()) >= n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("poller never produced %d quotes", n)
}

func TestLivePrices(t *testing.T) {
	env := newTestEnv(t)
	env.broker.prices = map[string]decimal.Decimal{
		"NSE:RELIANCE": decimal.RequireFromString("2850.50"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go env.poller.Run(ctx)

	// One quoted open leg, one unquoted open leg.
	resp := env.do(t, http.MethodPost, "/api/trades", tradeBody("live",
		openLegBody("NSE:RELIANCE", "2025-02-03", "2800", 50),
		openLegBody("NSE:UNLISTED", "2025-02-03", "100", 10),
	))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	waitForQuotes(t, env.poller, 1)

	resp = env.do(t, http.MethodGet, "/api/trades/live-prices", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var live livePricesResponse
	decodeBody(t, resp, &live)

	assert.True(t, live.BrokerConfigured)
	assert.Nil(t, live.BrokerError)
	require.Len(t, live.OpenTrades, 1)

	trade := live.OpenTrades[0]
	assert.True(t, trade.PnLPartial, "unquoted leg flags the trade as partial")
	assert.True(t, trade.TotalPnL.Equal(decimal.RequireFromString("2525")), "(2850.50-2800)*50")
	assert.True(t, live.TotalPnL.Equal(decimal.RequireFromString("2525")))
	assert.True(t, live.PnLPartial)

	require.Len(t, trade.Legs, 2)
	for _, leg := range trade.Legs {
		switch leg.Ticker {
		case "NSE:RELIANCE":
			require.NotNil(t, leg.CurrentPrice)
			assert.True(t, leg.CurrentPrice.Equal(decimal.RequireFromString("2850.50")))
			require.NotNil(t, leg.UnrealizedPnL)
			assert.True(t, leg.UnrealizedPnL.Equal(decimal.RequireFromString("2525")))
		case "NSE:UNLISTED":
			assert.Nil(t, leg.CurrentPrice)
			assert.Nil(t, leg.UnrealizedPnL, "no quote means null, not zero")
		}
	}
}

func TestLivePricesNoOpenLegs(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/trades/live-prices", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var live livePricesResponse
	decodeBody(t, resp, &live)
	assert.Empty(t, live.OpenTrades)
	assert.True(t, live.TotalPnL.IsZero())
	assert.False(t, live.PnLPartial)
}

func snapshotBody(name string, legs ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":          name,
		"snapshot_type": "event",
		"legs":          legs,
	}
}

func TestSnapshotLifecycleWithMovement(t *testing.T) {
	env := newTestEnv(t)

	snapDate := time.Now().UTC().AddDate(0, 0, -10).Format("2006-01-02")
	env.broker.prices = map[string]decimal.Decimal{
		"NSE:NIFTY": decimal.RequireFromString("110"),
	}

	resp := env.do(t, http.MethodPost, "/api/snapshots", snapshotBody("pre-event",
		map[string]interface{}{"ticker": "NSE:NIFTY", "date": snapDate, "price": "100", "quantity": 75},
	))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created snapshotResponse
	decodeBody(t, resp, &created)
	assert.Equal(t, int64(1), created.SnapshotID)
	assert.Equal(t, "event", created.Type)

	resp = env.do(t, http.MethodGet, "/api/snapshots/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got snapshotResponse
	decodeBody(t, resp, &got)
	require.Len(t, got.Legs, 1)

	leg := got.Legs[0]
	require.NotNil(t, leg.CurrentPrice)
	assert.True(t, leg.CurrentPrice.Equal(decimal.RequireFromString("110")))
	require.NotNil(t, leg.PointsMoved)
	assert.True(t, leg.PointsMoved.Equal(decimal.RequireFromString("10")))
	require.NotNil(t, leg.PercentageMoved)
	assert.True(t, leg.PercentageMoved.Equal(decimal.RequireFromString("10")))
	require.NotNil(t, leg.DaysSinceSnapshot)
	assert.Equal(t, 10, *leg.DaysSinceSnapshot)

	resp = env.do(t, http.MethodDelete, "/api/snapshots/1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/snapshots/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestSnapshotMovementDegradesOnQuoteFailure(t *testing.T) {
	env := newTestEnv(t)
	env.broker.pricesErr = errors.New("quote service down")

	snapDate := time.Now().UTC().AddDate(0, 0, -3).Format("2006-01-02")
	resp := env.do(t, http.MethodPost, "/api/snapshots", snapshotBody("degraded",
		map[string]interface{}{"ticker": "NSE:NIFTY", "date": snapDate, "price": "100", "quantity": 75},
	))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/snapshots/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "quote failure never fails the request")

	var got snapshotResponse
	decodeBody(t, resp, &got)
	require.Len(t, got.Legs, 1)
	assert.Nil(t, got.Legs[0].CurrentPrice)
	assert.Nil(t, got.Legs[0].PointsMoved)
	require.NotNil(t, got.Legs[0].DaysSinceSnapshot, "day count needs no quote")
	assert.Equal(t, 3, *got.Legs[0].DaysSinceSnapshot)
}

func TestSnapshotValidationRejected(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/snapshots", snapshotBody("zero price",
		map[string]interface{}{"ticker": "NSE:NIFTY", "date": "2025-07-01", "price": "0", "quantity": 75},
	))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestBrokerAuthFlow(t *testing.T) {
	env := newTestEnv(t)
	env.broker.authenticated = false

	resp := env.do(t, http.MethodGet, "/api/brokers/fyers/auth-url", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var authURL map[string]string
	decodeBody(t, resp, &authURL)
	assert.Contains(t, authURL["auth_url"], "https://broker.example")

	resp = env.do(t, http.MethodGet, "/api/brokers/fyers/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/brokers/fyers/auth-token", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "auth_code is required")
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/brokers/fyers/auth-token", map[string]string{"auth_code": "abc123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, "abc123", env.broker.exchangedCode)

	resp = env.do(t, http.MethodGet, "/api/brokers/fyers/profile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var profile map[string]interface{}
	decodeBody(t, resp, &profile)
	assert.NotNil(t, profile["profile"])
}

func TestCORSHeaders(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodOptions, env.http.URL+"/api/trades", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
