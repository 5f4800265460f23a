package lending

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPOracle(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		w.Write([]byte(`{"data":{"rate":"1987.25","updated":1765000000}}`))
	}))
	defer srv.Close()

	oracle := &HTTPOracle{
		URL:           srv.URL + "/price?base=%s&quote=%s",
		APIKey:        "test-key",
		PricePath:     "data.rate",
		TimestampPath: "data.updated",
	}
	quote, err := oracle.Quote(context.Background(), "ETH", "USD")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if gotKey != "test-key" {
		t.Fatalf("api key not sent, got %q", gotKey)
	}
	if want := big.NewRat(198725, 100); quote.Price.Cmp(want) != 0 {
		t.Fatalf("price: got %s, want %s", quote.Price, want)
	}
	if !quote.Time.Equal(time.Unix(1765000000, 0).UTC()) {
		t.Fatalf("timestamp: got %v", quote.Time)
	}
}

func TestHTTPOracleBadResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("base") {
		case "missing":
			w.Write([]byte(`{"data":{}}`))
		case "garbage":
			w.Write([]byte(`{"data":{"rate":"not-a-number"}}`))
		case "negative":
			w.Write([]byte(`{"data":{"rate":"-5"}}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	oracle := &HTTPOracle{URL: srv.URL + "/price?base=%s&quote=%s", PricePath: "data.rate"}
	for _, base := range []string{"missing", "garbage", "negative", "error"} {
		if _, err := oracle.Quote(context.Background(), base, "USD"); err == nil {
			t.Fatalf("expected error for %q response", base)
		}
	}
}
