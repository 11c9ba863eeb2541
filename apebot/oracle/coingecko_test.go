package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestClient_Price(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("ids") != "ethereum" || q.Get("vs_currencies") != "usd" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`{"ethereum":{"usd":2345.67}}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	price, err := c.ETHUSD(context.Background())
	if err != nil {
		t.Fatalf("ETHUSD() error = %v", err)
	}
	if !price.Equal(decimal.RequireFromString("2345.67")) {
		t.Errorf("price = %s, want 2345.67", price)
	}
}

func TestClient_PriceRetriesThenFails(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRetries(2, time.Millisecond))
	_, err := c.ETHUSD(context.Background())
	if err == nil {
		t.Fatal("expected error from failing oracle")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClient_PriceMissingPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRetries(0, time.Millisecond))
	if _, err := c.ETHUSD(context.Background()); err == nil {
		t.Fatal("expected error when the pair is missing")
	}
}
