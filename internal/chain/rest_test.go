package chain

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRecentFeeRates(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mempool/recent" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"txid":"aa","fee":1910,"vsize":191},
			{"txid":"bb","fee":565,"vsize":113},
			{"txid":"cc","fee":100,"vsize":0}
		]`))
	}))
	defer srv.Close()

	c := NewREST(srv.URL, time.Second)
	rates, err := c.RecentFeeRates()
	if err != nil {
		t.Fatalf("RecentFeeRates failed: %v", err)
	}
	// The zero-vsize entry is skipped.
	if len(rates) != 2 {
		t.Fatalf("got %d rates, want 2", len(rates))
	}
	if rates[0] != 10 || rates[1] != 5 {
		t.Errorf("rates = %v, want [10 5]", rates)
	}
}

func TestTipTimestamp(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/blocks" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"tip","height":700001,"timestamp":1613576700},
			{"id":"prev","height":700000,"timestamp":1613576100}
		]`))
	}))
	defer srv.Close()

	c := NewREST(srv.URL, time.Second)
	ts, err := c.TipTimestamp()
	if err != nil {
		t.Fatalf("TipTimestamp failed: %v", err)
	}
	if ts != 1613576700 {
		t.Errorf("ts = %d, want 1613576700", ts)
	}
}

func TestRESTErrorStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewREST(srv.URL, time.Second)
	if _, err := c.RecentFeeRates(); err == nil {
		t.Error("expected error on 502 response")
	}
	if _, err := c.TipTimestamp(); err == nil {
		t.Error("expected error on 502 response")
	}
}
