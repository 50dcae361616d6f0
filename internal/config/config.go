package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Price sources: live asks the Price Lookup Service per request, table reads the local
// market_prices table that the quote worker mirrors.
const (
	PriceSourceLive  = "live"
	PriceSourceTable = "table"
)

// MaxPriceCacheTTL caps how long a looked-up price may be reused.
const MaxPriceCacheTTL = 12 * time.Hour

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL           string
	HTTPPort              string
	PriceLookupURL        string
	PriceSource           string
	PriceLookupRetryMax   int
	PriceLookupRetryDelay time.Duration
	PriceCacheTTL         time.Duration
	CacheSweepInterval    time.Duration
	ValueDebounce         time.Duration
	RulesFile             string
	ProductsFile          string
	QuoteWorkerInterval   time.Duration
	ReportWorkerInterval  time.Duration
	AdminAPIKey           string
	CORSAllowedOrigins    []string
	SheetsSpreadsheetID   string
	GoogleCredentialsJSON string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		DatabaseURL:           envOrDefaultWarn("DATABASE_URL", ""),
		HTTPPort:              envOrDefault("HTTP_PORT", "8080"),
		PriceLookupURL:        envOrDefault("PRICE_LOOKUP_URL", ""),
		PriceSource:           envOrDefault("PRICE_SOURCE", PriceSourceLive),
		PriceLookupRetryMax:   envOrDefaultInt("PRICE_LOOKUP_RETRY_MAX", 3),
		PriceLookupRetryDelay: envOrDefaultDuration("PRICE_LOOKUP_RETRY_DELAY", 1*time.Second),
		PriceCacheTTL:         priceCacheTTL(envOrDefaultDuration("PRICE_CACHE_TTL", 4*time.Hour)),
		CacheSweepInterval:    envOrDefaultDuration("CACHE_SWEEP_INTERVAL", 10*time.Minute),
		ValueDebounce:         envOrDefaultDuration("VALUE_DEBOUNCE", 100*time.Millisecond),
		RulesFile:             envOrDefault("RULES_FILE", ""),
		ProductsFile:          envOrDefault("PRODUCTS_FILE", ""),
		QuoteWorkerInterval:   envOrDefaultDuration("QUOTE_WORKER_INTERVAL", 6*time.Hour),
		ReportWorkerInterval:  envOrDefaultDuration("REPORT_WORKER_INTERVAL", 24*time.Hour),
		AdminAPIKey:           envOrDefault("ADMIN_API_KEY", ""),
		CORSAllowedOrigins:    envOrDefaultList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		SheetsSpreadsheetID:   envOrDefault("SHEETS_SPREADSHEET_ID", ""),
		GoogleCredentialsJSON: envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
	}
}

// LivePrices reports whether items are priced directly by the Price Lookup Service.
// Without a service URL the local table is the only source.
func (c Config) LivePrices() bool {
	return c.PriceLookupURL != "" && c.PriceSource != PriceSourceTable
}

// SheetsEnabled reports whether both Google Sheets settings are present.
func (c Config) SheetsEnabled() bool {
	return c.SheetsSpreadsheetID != "" && c.GoogleCredentialsJSON != ""
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

// priceCacheTTL clamps the cache TTL to (0, MaxPriceCacheTTL].
func priceCacheTTL(ttl time.Duration) time.Duration {
	switch {
	case ttl > MaxPriceCacheTTL:
		slog.Warn("PRICE_CACHE_TTL too long, clamping", "value", ttl, "max", MaxPriceCacheTTL)
		return MaxPriceCacheTTL
	case ttl == 0:
		slog.Warn("PRICE_CACHE_TTL must be positive, using default", "default", 4*time.Hour)
		return 4 * time.Hour
	}
	return ttl
}

// envOrDefaultList splits a comma separated value, dropping blank entries.
func envOrDefaultList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
