package api

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// RouterConfig holds the cross-cutting pieces wrapped around the handlers.
// A nil Limiter disables rate limiting. TrustedProxies are the peers allowed to
// report the client address via X-Forwarded-For.
type RouterConfig struct {
	Limiter        RateLimiter
	AllowedOrigins []string
	TrustedProxies []string
	Log            zerolog.Logger
}

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler, cfg RouterConfig) (http.Handler, error) {
	clients, err := newClientResolver(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	r.Use(requestLogger(clients, cfg.Log))

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Portfolio analysis
	analyze := http.Handler(http.HandlerFunc(handler.AnalyzeETF))
	if cfg.Limiter != nil {
		analyze = rateLimit(cfg.Limiter, clients, cfg.Log)(analyze)
	}
	r.Handle("/etf/analyze", analyze).Methods("POST")

	// Read-only routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/prices/latest", handler.GetLatestPrices).Methods("GET")
	api.HandleFunc("/prices/{ticker}/latest", handler.GetLatestPrice).Methods("GET")
	api.HandleFunc("/analyses", handler.ListAnalyses).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(r), nil
}
