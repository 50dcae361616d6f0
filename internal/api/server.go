package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/cors"

	"github.com/mtlprog/cardtrade/internal/recalc"
	"github.com/mtlprog/cardtrade/internal/trade"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port           string
	AdminAPIKey    string
	AllowedOrigins []string
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(cfg ServerConfig, trades *trade.Service, valuer recalc.Valuer, pricer recalc.Pricer) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      NewRouter(cfg, trades, valuer, pricer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewRouter builds the route table wrapped in CORS handling.
func NewRouter(cfg ServerConfig, trades *trade.Service, valuer recalc.Valuer, pricer recalc.Pricer) http.Handler {
	handler := NewHandler(trades)
	valuations := NewValuationHandler(valuer, pricer)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/valuations", valuations.Calculate)
	mux.HandleFunc("/api/v1/valuations", valuations.MethodNotAllowed)
	mux.HandleFunc("POST /api/v1/prices/resolve", valuations.Resolve)

	mux.HandleFunc("POST /api/v1/trades", handler.CreateTrade)
	mux.HandleFunc("GET /api/v1/trades", handler.ListTrades)
	mux.HandleFunc("GET /api/v1/trades/{id}", handler.GetTrade)
	mux.HandleFunc("POST /api/v1/trades/{id}/items", handler.AddItem)
	mux.HandleFunc("DELETE /api/v1/trades/{id}/items", handler.ClearItems)
	mux.HandleFunc("PATCH /api/v1/trades/{id}/items/{itemID}", handler.UpdateItem)
	mux.HandleFunc("DELETE /api/v1/trades/{id}/items/{itemID}", handler.RemoveItem)
	mux.HandleFunc("POST /api/v1/trades/{id}/submit", handler.SubmitTrade)
	mux.HandleFunc("GET /api/v1/trades/{id}/export.xlsx", handler.ExportTrade)

	approve := http.Handler(http.HandlerFunc(handler.ApproveTrade))
	reject := http.Handler(http.HandlerFunc(handler.RejectTrade))
	if cfg.AdminAPIKey != "" {
		approve = requireAuth(cfg.AdminAPIKey, approve)
		reject = requireAuth(cfg.AdminAPIKey, reject)
	} else {
		slog.Warn("ADMIN_API_KEY not set, approve and reject endpoints are unprotected")
	}
	mux.Handle("POST /api/v1/trades/{id}/approve", approve)
	mux.Handle("POST /api/v1/trades/{id}/reject", reject)

	return newCORS(cfg.AllowedOrigins).Handler(mux)
}

func newCORS(allowedOrigins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
