package config

import (
	"os"
	"slices"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might affect defaults
	for _, key := range []string{
		"DATABASE_URL", "HTTP_PORT", "PRICE_LOOKUP_URL", "PRICE_SOURCE", "PRICE_LOOKUP_RETRY_MAX",
		"PRICE_CACHE_TTL", "VALUE_DEBOUNCE", "CORS_ALLOWED_ORIGINS",
		"SHEETS_SPREADSHEET_ID", "GOOGLE_CREDENTIALS_JSON",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
	if cfg.PriceLookupURL != "" {
		t.Errorf("PriceLookupURL = %q, want empty", cfg.PriceLookupURL)
	}
	if cfg.PriceLookupRetryMax != 3 {
		t.Errorf("PriceLookupRetryMax = %d, want 3", cfg.PriceLookupRetryMax)
	}
	if cfg.PriceCacheTTL != 4*time.Hour {
		t.Errorf("PriceCacheTTL = %v, want 4h", cfg.PriceCacheTTL)
	}
	if cfg.ValueDebounce != 100*time.Millisecond {
		t.Errorf("ValueDebounce = %v, want 100ms", cfg.ValueDebounce)
	}
	if !slices.Equal(cfg.CORSAllowedOrigins, []string{"*"}) {
		t.Errorf("CORSAllowedOrigins = %v, want [*]", cfg.CORSAllowedOrigins)
	}
	if cfg.SheetsEnabled() {
		t.Error("SheetsEnabled() = true, want false without credentials")
	}
	if cfg.LivePrices() {
		t.Error("LivePrices() = true, want false without a lookup URL")
	}
}

func TestLivePrices(t *testing.T) {
	tests := []struct {
		url, source string
		want        bool
	}{
		{"", PriceSourceLive, false},
		{"https://prices.example.com", PriceSourceLive, true},
		{"https://prices.example.com", PriceSourceTable, false},
		{"https://prices.example.com", "", true},
	}

	for _, tt := range tests {
		cfg := Config{PriceLookupURL: tt.url, PriceSource: tt.source}
		if got := cfg.LivePrices(); got != tt.want {
			t.Errorf("LivePrices(url=%q, source=%q) = %v, want %v", tt.url, tt.source, got, tt.want)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/testdb")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("PRICE_LOOKUP_URL", "https://prices.example.com")
	t.Setenv("PRICE_LOOKUP_RETRY_MAX", "5")
	t.Setenv("PRICE_LOOKUP_RETRY_DELAY", "250ms")
	t.Setenv("VALUE_DEBOUNCE", "0s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://pos.example.com, ,https://admin.example.com")
	t.Setenv("SHEETS_SPREADSHEET_ID", "sheet-id")
	t.Setenv("GOOGLE_CREDENTIALS_JSON", "{}")

	cfg := Load()

	if cfg.DatabaseURL != "postgres://localhost/testdb" {
		t.Errorf("DatabaseURL = %q, want override", cfg.DatabaseURL)
	}
	if cfg.HTTPPort != "9090" {
		t.Errorf("HTTPPort = %q, want 9090", cfg.HTTPPort)
	}
	if cfg.PriceLookupURL != "https://prices.example.com" {
		t.Errorf("PriceLookupURL = %q, want override", cfg.PriceLookupURL)
	}
	if cfg.PriceLookupRetryMax != 5 {
		t.Errorf("PriceLookupRetryMax = %d, want 5", cfg.PriceLookupRetryMax)
	}
	if cfg.PriceLookupRetryDelay != 250*time.Millisecond {
		t.Errorf("PriceLookupRetryDelay = %v, want 250ms", cfg.PriceLookupRetryDelay)
	}
	if cfg.ValueDebounce != 0 {
		t.Errorf("ValueDebounce = %v, want 0", cfg.ValueDebounce)
	}
	want := []string{"https://pos.example.com", "https://admin.example.com"}
	if !slices.Equal(cfg.CORSAllowedOrigins, want) {
		t.Errorf("CORSAllowedOrigins = %v, want %v", cfg.CORSAllowedOrigins, want)
	}
	if !cfg.SheetsEnabled() {
		t.Error("SheetsEnabled() = false, want true")
	}
}

func TestLoadInvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("PRICE_LOOKUP_RETRY_MAX", "not-a-number")
	t.Setenv("PRICE_CACHE_TTL", "invalid-duration")
	t.Setenv("VALUE_DEBOUNCE", "-5ms")

	cfg := Load()

	if cfg.PriceLookupRetryMax != 3 {
		t.Errorf("PriceLookupRetryMax = %d, want default 3 on invalid input", cfg.PriceLookupRetryMax)
	}
	if cfg.PriceCacheTTL != 4*time.Hour {
		t.Errorf("PriceCacheTTL = %v, want default 4h on invalid input", cfg.PriceCacheTTL)
	}
	if cfg.ValueDebounce != 100*time.Millisecond {
		t.Errorf("ValueDebounce = %v, want default 100ms on negative input", cfg.ValueDebounce)
	}
}

func TestPriceCacheTTLBounded(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"2h", 2 * time.Hour},
		{"12h", MaxPriceCacheTTL},
		{"72h", MaxPriceCacheTTL},
		{"0s", 4 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("PRICE_CACHE_TTL", tt.value)
			if got := Load().PriceCacheTTL; got != tt.want {
				t.Errorf("PriceCacheTTL = %v, want %v", got, tt.want)
			}
		})
	}
}
