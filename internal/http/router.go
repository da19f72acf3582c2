package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-snapshot-client/internal/observability"
)

// RouterConfig controls the middleware chain around the handlers.
type RouterConfig struct {
	Logger         *zap.Logger
	RequestTimeout time.Duration    // per-request deadline on /api; 0 disables
	Limiter        *rate.Limiter    // token bucket on /api; nil disables
	InFlight       *InFlightTracker // shared with shutdown; a private one is used when nil
}

// NewRouter registers every route. /health and /metrics sit outside the /api
// rate limit and timeout so probes keep working under load.
func NewRouter(h *Handler, cfg RouterConfig) *mux.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.InFlight == nil {
		cfg.InFlight = &InFlightTracker{}
	}

	router := mux.NewRouter()
	router.Use(InFlightMiddleware(cfg.InFlight))
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)

	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	// /api routes live on the root router so a method mismatch is a 405
	// rather than the 404 a PathPrefix subrouter reports.
	apiChain := func(next http.Handler) http.Handler {
		return RateLimitMiddleware(cfg.Limiter, logger)(TimeoutMiddleware(cfg.RequestTimeout)(next))
	}
	api := func(path string, h http.HandlerFunc, method string) {
		router.Handle("/api"+path, apiChain(h)).Methods(method)
	}
	api("/weather/coords", h.GetWeatherByCoords, http.MethodGet)
	api("/weather/zip", h.GetWeatherByZip, http.MethodGet)
	api("/weather/cache", h.DeleteCache, http.MethodDelete)
	api("/landing", h.PostLanding, http.MethodPost)

	return router
}
