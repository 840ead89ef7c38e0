package quotes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, prices map[string]string) (*Client, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		symbol := r.URL.Query().Get("symbol")
		price, ok := prices[symbol]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"symbol":%q,"price":%q,"currency":"USD"}`, symbol, price)
	}))
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, Timeout: 2 * time.Second}), &calls
}

func TestFetchKnownSymbol(t *testing.T) {
	client, _ := newTestProvider(t, map[string]string{"AAPL": "187.44"})

	q, ok := client.Fetch(context.Background(), "AAPL")
	if !ok {
		t.Fatal("known symbol reported absent")
	}
	if q.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", q.Symbol)
	}
	if q.PriceString() != "187.44" {
		t.Errorf("price = %q, want 187.44", q.PriceString())
	}
	if q.Currency != "USD" {
		t.Errorf("currency = %q, want USD", q.Currency)
	}
}

func TestFetchUnknownSymbolIsAbsent(t *testing.T) {
	client, _ := newTestProvider(t, map[string]string{"AAPL": "187.44"})

	if _, ok := client.Fetch(context.Background(), "NOPE"); ok {
		t.Error("unknown symbol reported present")
	}
}

func TestFetchProviderErrorIsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	client := New(Options{BaseURL: srv.URL, Timeout: time.Second})

	if _, ok := client.Fetch(context.Background(), "AAPL"); ok {
		t.Error("provider failure reported present")
	}
}

func TestFetchBadPriceIsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"symbol":"AAPL","price":"many dollars","currency":"USD"}`)
	}))
	defer srv.Close()
	client := New(Options{BaseURL: srv.URL, Timeout: time.Second})

	if _, ok := client.Fetch(context.Background(), "AAPL"); ok {
		t.Error("unparsable price reported present")
	}
}

func TestFetchTransportErrorIsAbsent(t *testing.T) {
	client := New(Options{BaseURL: "http://127.0.0.1:1", Timeout: 500 * time.Millisecond})

	if _, ok := client.Fetch(context.Background(), "AAPL"); ok {
		t.Error("dead provider reported present")
	}
}

func TestFetchBatchPartialFailure(t *testing.T) {
	client, calls := newTestProvider(t, map[string]string{
		"AAPL": "187.44",
		"MSFT": "410.15",
	})

	results := client.FetchBatch(context.Background(), []string{"AAPL", "GONE", "MSFT"})
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}

	if !results[0].OK || results[0].Symbol != "AAPL" {
		t.Errorf("row 0 = %+v, want AAPL present", results[0])
	}
	if results[1].OK {
		t.Errorf("row 1 = %+v, want absent", results[1])
	}
	if !results[2].OK || results[2].Quote.PriceString() != "410.15" {
		t.Errorf("row 2 = %+v, want MSFT 410.15", results[2])
	}
	if calls.Load() != 3 {
		t.Errorf("provider calls = %d, want 3", calls.Load())
	}
}
