// Package fyers is a minimal client for the Fyers v3 REST API, covering
// the auth-code exchange and batched quote lookups the journal needs.
package fyers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/aurumiq/aurumiq/cache"
)

const (
	// DefaultAPIURL serves the auth and profile endpoints.
	DefaultAPIURL = "https://api-t1.fyers.in/api/v3"
	// DefaultDataURL serves quote data.
	DefaultDataURL = "https://api-t1.fyers.in/data"

	cacheKeyAccessToken = "fyers_access_token"
)

var (
	// ErrNotConfigured means client id or secret key is missing.
	ErrNotConfigured = errors.New("fyers: client id and secret key not configured")
	// ErrNotAuthenticated means no access token has been obtained yet.
	ErrNotAuthenticated = errors.New("fyers: not authenticated, complete the auth-code flow first")
	// ErrTokenExpired means the cached token was rejected and has been discarded.
	ErrTokenExpired = errors.New("fyers: access token expired, re-authenticate")
)

// Quote is one ticker's live quote. LTP is the last traded price.
type Quote struct {
	LTP           decimal.Decimal
	Open          decimal.Decimal
	High          decimal.Decimal
	Low           decimal.Decimal
	PrevClose     decimal.Decimal
	Volume        int64
	Change        decimal.Decimal
	ChangePercent decimal.Decimal
}

// Config carries the credentials registered with the Fyers app console.
type Config struct {
	ClientID    string
	SecretKey   string
	RedirectURI string
	APIURL      string // defaults to DefaultAPIURL
	DataURL     string // defaults to DefaultDataURL
	Cache       *cache.Cache
	Logger      *logrus.Logger
}

type Client struct {
	clientID    string
	secretKey   string
	redirectURI string
	apiURL      string
	dataURL     string
	cache       *cache.Cache
	log         *logrus.Logger
	httpClient  *http.Client
	limiter     *rate.Limiter
}

func NewClient(cfg Config) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.DataURL == "" {
		cfg.DataURL = DefaultDataURL
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Client{
		clientID:    cfg.ClientID,
		secretKey:   cfg.SecretKey,
		redirectURI: cfg.RedirectURI,
		apiURL:      cfg.APIURL,
		dataURL:     cfg.DataURL,
		cache:       cfg.Cache,
		log:         cfg.Logger,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		// Fyers allows 10 req/s per app; stay well under it.
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
}

// IsConfigured reports whether API credentials are present.
func (c *Client) IsConfigured() bool {
	return c.clientID != "" && c.secretKey != ""
}

// IsAuthenticated reports whether a cached access token exists.
func (c *Client) IsAuthenticated() bool {
	return c.accessToken() != ""
}

// AuthURL builds the login URL the user opens to grant access.
func (c *Client) AuthURL() (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("response_type", "code")
	q.Set("state", "aurumiq")
	return c.apiURL + "/generate-authcode?" + q.Encode(), nil
}

// ExchangeCode trades an auth code for an access token and caches it.
// The argument may be the bare code or the full redirect URL the broker
// sent the browser to; the auth_code parameter is extracted in that case.
func (c *Client) ExchangeCode(ctx context.Context, codeOrURL string) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	code := strings.TrimSpace(codeOrURL)
	if strings.Contains(code, "auth_code=") {
		u, err := url.Parse(code)
		if err != nil {
			return fmt.Errorf("fyers: invalid redirect URL: %w", err)
		}
		code = u.Query().Get("auth_code")
		if code == "" {
			return fmt.Errorf("fyers: auth_code not found in redirect URL")
		}
	}

	hash := sha256.Sum256([]byte(c.clientID + ":" + c.secretKey))
	body := map[string]string{
		"grant_type": "authorization_code",
		"appIdHash":  hex.EncodeToString(hash[:]),
		"code":       code,
	}

	var resp struct {
		S           string `json:"s"`
		Message     string `json:"message"`
		AccessToken string `json:"access_token"`
	}
	if err := c.postJSON(ctx, c.apiURL+"/validate-authcode", "", body, &resp); err != nil {
		return err
	}
	if resp.S != "ok" || resp.AccessToken == "" {
		return fmt.Errorf("fyers: token exchange failed: %s", resp.Message)
	}

	if c.cache != nil {
		if err := c.cache.Set(cacheKeyAccessToken, resp.AccessToken); err != nil {
			return fmt.Errorf("fyers: cache access token: %w", err)
		}
	}
	c.log.Info("fyers access token obtained and cached")
	return nil
}

// Profile fetches the authenticated account's profile, mostly as a
// connectivity check after the auth flow.
func (c *Client) Profile(ctx context.Context) (map[string]interface{}, error) {
	token := c.accessToken()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	var resp struct {
		S       string                 `json:"s"`
		Message string                 `json:"message"`
		Data    map[string]interface{} `json:"data"`
	}
	if err := c.getJSON(ctx, c.apiURL+"/profile", token, &resp); err != nil {
		return nil, err
	}
	if resp.S != "ok" {
		return nil, c.apiError(resp.Message)
	}
	return resp.Data, nil
}

// Quotes fetches live quotes for the given tickers. Partial results are
// normal: tickers the API cannot resolve are simply absent from the map.
func (c *Client) Quotes(ctx context.Context, tickers []string) (map[string]Quote, error) {
	if len(tickers) == 0 {
		return map[string]Quote{}, nil
	}
	token := c.accessToken()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	endpoint := c.dataURL + "/quotes?symbols=" + url.QueryEscape(strings.Join(tickers, ","))

	var resp struct {
		S       string `json:"s"`
		Message string `json:"message"`
		D       []struct {
			N string `json:"n"`
			S string `json:"s"`
			V struct {
				Symbol        string          `json:"symbol"`
				LP            decimal.Decimal `json:"lp"`
				OpenPrice     decimal.Decimal `json:"open_price"`
				HighPrice     decimal.Decimal `json:"high_price"`
				LowPrice      decimal.Decimal `json:"low_price"`
				PrevClose     decimal.Decimal `json:"prev_close_price"`
				Volume        int64           `json:"volume"`
				Change        decimal.Decimal `json:"ch"`
				ChangePercent decimal.Decimal `json:"chp"`
			} `json:"v"`
		} `json:"d"`
	}
	if err := c.getJSON(ctx, endpoint, token, &resp); err != nil {
		return nil, err
	}
	if resp.S != "ok" {
		return nil, c.apiError(resp.Message)
	}

	quotes := make(map[string]Quote, len(resp.D))
	for _, item := range resp.D {
		if item.S != "ok" {
			continue
		}
		symbol := item.V.Symbol
		if symbol == "" {
			symbol = item.N
		}
		quotes[symbol] = Quote{
			LTP:           item.V.LP,
			Open:          item.V.OpenPrice,
			High:          item.V.HighPrice,
			Low:           item.V.LowPrice,
			PrevClose:     item.V.PrevClose,
			Volume:        item.V.Volume,
			Change:        item.V.Change,
			ChangePercent: item.V.ChangePercent,
		}
	}
	return quotes, nil
}

// LastPrices returns just the last traded price per ticker, the shape the
// PnL engine consumes.
func (c *Client) LastPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	quotes, err := c.Quotes(ctx, tickers)
	if err != nil {
		return nil, err
	}
	prices := make(map[string]decimal.Decimal, len(quotes))
	for symbol, q := range quotes {
		prices[symbol] = q.LTP
	}
	return prices, nil
}

func (c *Client) accessToken() string {
	if c.cache == nil {
		return ""
	}
	token, _ := c.cache.Get(cacheKeyAccessToken)
	return token
}

// apiError maps a rejected token onto ErrTokenExpired (discarding the
// cached token so the next auth attempt starts clean).
func (c *Client) apiError(message string) error {
	lower := strings.ToLower(message)
	if strings.Contains(lower, "token") || strings.Contains(lower, "expired") {
		if c.cache != nil {
			_ = c.cache.Delete(cacheKeyAccessToken)
		}
		return fmt.Errorf("%w: %s", ErrTokenExpired, message)
	}
	return fmt.Errorf("fyers: api error: %s", message)
}

func (c *Client) getJSON(ctx context.Context, endpoint, token string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", c.clientID+":"+token)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint, token string, body interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(raw)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", c.clientID+":"+token)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fyers: request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("fyers: read response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("fyers: decode response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}
