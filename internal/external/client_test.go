package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
	"github.com/mtlprog/cardtrade/internal/price"
)

func testRequest() price.LookupRequest {
	return price.LookupRequest{
		ProductID: "sv1-25",
		Game:      domain.GamePokemon,
		Condition: domain.ConditionNearMint,
		Finish:    domain.Finish{FirstEdition: true, ReverseHolo: true},
	}
}

func TestLookupPriceSendsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/price" {
			t.Errorf("path = %q, want /price", r.URL.Path)
		}
		q := r.URL.Query()
		want := map[string]string{
			"productId":    "sv1-25",
			"condition":    "near_mint",
			"firstEdition": "true",
			"holo":         "false",
			"reverseHolo":  "true",
			"game":         "pokemon",
		}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("query %s = %q, want %q", k, q.Get(k), v)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"price": "12.345", "actualCondition": "near_mint", "usedFallback": false}`))
	}))
	defer server.Close()

	client := NewLookupClient(server.URL+"/", 0, 1)
	got, err := client.LookupPrice(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Price.Equal(decimal.RequireFromString("12.345")) {
		t.Errorf("price = %s, want 12.345", got.Price)
	}
	if got.UsedFallback || got.Unavailable {
		t.Errorf("unexpected flags: %+v", got)
	}
}

func TestLookupPriceResponses(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantPrice    string
		wantUnavail  bool
		wantCond     domain.Condition
		wantFallback bool
		wantErr      error
	}{
		{"numeric price", 200, `{"price": 7.5}`, "7.5", false, domain.ConditionNearMint, false, nil},
		{"fallback condition", 200, `{"price": "30", "actualCondition": "mint", "usedFallback": true}`, "30", false, domain.ConditionMint, true, nil},
		{"condition alias", 200, `{"price": "30", "actualCondition": "NM"}`, "30", false, domain.ConditionNearMint, false, nil},
		{"differing condition implies fallback", 200, `{"price": "9", "actualCondition": "lightly_played"}`, "9", false, domain.ConditionLightlyPlayed, true, nil},
		{"unavailable", 200, `{"price": "0", "unavailable": true}`, "0", true, "", false, nil},
		{"zero price", 200, `{"price": "0"}`, "0", true, "", false, nil},
		{"missing price", 200, `{}`, "0", true, "", false, nil},
		{"not found", 404, `{"error": "unknown product"}`, "0", true, "", false, nil},
		{"negative price", 200, `{"price": "-1"}`, "", false, "", false, ErrInvalidResponse},
		{"garbage price", 200, `{"price": "abc"}`, "", false, "", false, ErrInvalidResponse},
		{"unknown condition", 200, `{"price": "3", "actualCondition": "pristine"}`, "", false, "", false, ErrInvalidResponse},
		{"malformed json", 200, `{"price":`, "", false, "", false, ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewLookupClient(server.URL, 0, 0)
			got, err := client.LookupPrice(context.Background(), testRequest())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Price.Equal(decimal.RequireFromString(tt.wantPrice)) {
				t.Errorf("price = %s, want %s", got.Price, tt.wantPrice)
			}
			if got.Unavailable != tt.wantUnavail {
				t.Errorf("unavailable = %v, want %v", got.Unavailable, tt.wantUnavail)
			}
			if got.ActualCondition != tt.wantCond {
				t.Errorf("actualCondition = %q, want %q", got.ActualCondition, tt.wantCond)
			}
			if got.UsedFallback != tt.wantFallback {
				t.Errorf("usedFallback = %v, want %v", got.UsedFallback, tt.wantFallback)
			}
		})
	}
}

func TestLookupPriceRetryOn429(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"price": "5"}`))
	}))
	defer server.Close()

	client := NewLookupClient(server.URL, 10*time.Millisecond, 2)
	got, err := client.LookupPrice(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if !got.Price.Equal(decimal.NewFromInt(5)) {
		t.Errorf("price = %s, want 5", got.Price)
	}
	if attempts.Load() != 2 {
		t.Errorf("attempts = %d, want 2", attempts.Load())
	}
}

func TestLookupPriceRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewLookupClient(server.URL, time.Millisecond, 2)
	if _, err := client.LookupPrice(context.Background(), testRequest()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
}

func TestLookupPriceServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := NewLookupClient(server.URL, 0, 3)
	if _, err := client.LookupPrice(context.Background(), testRequest()); err == nil {
		t.Fatal("expected error on HTTP 500")
	}
}

func TestLookupPriceContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1 * time.Second)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	client := NewLookupClient(server.URL, 0, 1)
	if _, err := client.LookupPrice(ctx, testRequest()); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}
