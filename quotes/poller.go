// Package quotes runs the cancellable poll loop that keeps a latest-quotes
// snapshot warm while open positions need live prices.
package quotes

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultInterval is how often the watch set is refreshed.
const DefaultInterval = 15 * time.Second

// Source is any quote provider returning last-traded prices. Partial
// results are allowed; unknown tickers are absent from the map.
type Source interface {
	LastPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
}

// Poller periodically fetches quotes for a watch set and holds the latest
// snapshot. An empty watch set idles the loop: no requests are made until
// tickers are set again. A failed poll keeps the previous snapshot; stale
// prices beat blocked rendering.
type Poller struct {
	source   Source
	interval time.Duration
	log      *logrus.Logger

	mu      sync.RWMutex
	tickers []string
	latest  map[string]decimal.Decimal
	lastErr error

	kick chan struct{}
}

func NewPoller(source Source, interval time.Duration, log *logrus.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logrus.New()
	}
	return &Poller{
		source:   source,
		interval: interval,
		log:      log,
		latest:   map[string]decimal.Decimal{},
		kick:     make(chan struct{}, 1),
	}
}

// SetTickers replaces the watch set. Passing an empty set stops polling
// until a non-empty set arrives; a non-empty set triggers an immediate
// fetch instead of waiting for the next tick.
func (p *Poller) SetTickers(tickers []string) {
	deduped := make([]string, 0, len(tickers))
	seen := map[string]bool{}
	for _, t := range tickers {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		deduped = append(deduped, t)
	}

	p.mu.Lock()
	p.tickers = deduped
	p.mu.Unlock()

	if len(deduped) > 0 {
		select {
		case p.kick <- struct{}{}:
		default:
		}
	}
}

// Latest returns a copy of the most recent quote snapshot.
func (p *Poller) Latest() map[string]decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]decimal.Decimal, len(p.latest))
	for k, v := range p.latest {
		out[k] = v
	}
	return out
}

// LastError returns the error from the most recent poll attempt, nil after
// a successful one. It is a non-blocking notice for the UI layer, never a
// computation failure.
func (p *Poller) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.kick:
			p.poll(ctx)
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	p.mu.RLock()
	tickers := p.tickers
	p.mu.RUnlock()

	if len(tickers) == 0 {
		return
	}

	attemptCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	prices, err := p.source.LastPrices(attemptCtx, tickers)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.lastErr = err
		p.log.WithError(err).Warn("quote poll failed, keeping last known prices")
		return
	}
	p.lastErr = nil
	// Merge so tickers missing from one response keep their last price.
	for k, v := range prices {
		p.latest[k] = v
	}
}
