// Package quotes fetches market prices from the external data provider.
// Lookup failures of any kind surface as absence, never as an error: the
// caller renders a "not found" view and moves on.
package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"log/slog"

	"tickerbot/core/logger"

	"github.com/shopspring/decimal"
)

// Quote is one price snapshot. Transient, never persisted.
type Quote struct {
	Symbol   string
	Price    decimal.Decimal
	Currency string
}

// PriceString renders the price without exponent notation.
func (q Quote) PriceString() string {
	return q.Price.String()
}

// Options configures the provider client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// Client talks to the quote provider over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// New builds a provider client. A zero timeout defaults to 5s.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	httpClient := opts.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
		timeout: timeout,
	}
}

type quoteResponse struct {
	Symbol   string `json:"symbol"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// Fetch returns the quote for an upper-cased symbol, or ok=false when the
// symbol is unknown or the provider call fails. Errors are logged here and
// converted to absence.
func (c *Client) Fetch(ctx context.Context, symbol string) (Quote, bool) {
	start := time.Now()
	q, err := c.fetch(ctx, symbol)
	if err != nil {
		logger.Warn(ctx, "service.quotes", "quotes.failed",
			slog.String("symbol", symbol),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
		)
		return Quote{}, false
	}
	logger.Debug(ctx, "service.quotes", "quotes.fetched",
		slog.String("symbol", symbol),
		slog.String("currency", q.Currency),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	)
	return q, true
}

func (c *Client) fetch(ctx context.Context, symbol string) (Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/quote?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("quotes: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("quotes: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Quote{}, fmt.Errorf("quotes: symbol %s not found", symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("quotes: provider status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Quote{}, fmt.Errorf("quotes: read body: %w", err)
	}

	var payload quoteResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return Quote{}, fmt.Errorf("quotes: decode body: %w", err)
	}
	if payload.Price == "" {
		return Quote{}, fmt.Errorf("quotes: empty price for %s", symbol)
	}
	price, err := decimal.NewFromString(payload.Price)
	if err != nil {
		return Quote{}, fmt.Errorf("quotes: parse price %q: %w", payload.Price, err)
	}

	out := Quote{Symbol: symbol, Price: price, Currency: payload.Currency}
	if payload.Symbol != "" {
		out.Symbol = payload.Symbol
	}
	return out, nil
}

// BatchResult is one row of a concurrent batch lookup.
type BatchResult struct {
	Symbol string
	Quote  Quote
	OK     bool
}

// FetchBatch looks every symbol up concurrently and waits for all of them.
// Result order matches the input; per-symbol failure is recorded in OK and
// does not fail the batch.
func (c *Client) FetchBatch(ctx context.Context, symbols []string) []BatchResult {
	results := make([]BatchResult, len(symbols))

	var wg sync.WaitGroup
	wg.Add(len(symbols))
	for i, symbol := range symbols {
		go func(i int, symbol string) {
			defer wg.Done()
			q, ok := c.Fetch(ctx, symbol)
			results[i] = BatchResult{Symbol: symbol, Quote: q, OK: ok}
		}(i, symbol)
	}
	wg.Wait()

	return results
}
