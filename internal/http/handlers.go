package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-snapshot-client/internal/landing"
	"github.com/kjstillabower/weather-snapshot-client/internal/models"
	"github.com/kjstillabower/weather-snapshot-client/internal/observability"
	"github.com/kjstillabower/weather-snapshot-client/internal/requestctx"
	"github.com/kjstillabower/weather-snapshot-client/internal/service"
	"github.com/kjstillabower/weather-snapshot-client/internal/validation"
)

const maxLandingBody = 4 << 10

// WeatherService is the subset of service.WeatherService the handlers use.
type WeatherService interface {
	GetWeatherByCoords(ctx context.Context, lat, lon float64) (models.Snapshot, error)
	GetWeatherByZip(ctx context.Context, zip string) (models.Snapshot, error)
	ClearCache(ctx context.Context)
	CacheSize() int
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weatherService WeatherService
	logger         *zap.Logger
	transition     time.Duration
	draining       atomic.Bool
}

// NewHandler returns a new Handler. transition is the landing delay between a
// successful submission and the response.
func NewHandler(weatherService WeatherService, logger *zap.Logger, transition time.Duration) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		weatherService: weatherService,
		logger:         logger,
		transition:     transition,
	}
}

// SetDraining flips /health to shutting-down. Called once shutdown begins.
func (h *Handler) SetDraining(v bool) {
	h.draining.Store(v)
}

// Draining reports whether shutdown has begun.
func (h *Handler) Draining() bool {
	return h.draining.Load()
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if h.Draining() {
		status, code = "shutting-down", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":       status,
		"service":      observability.ServiceName,
		"version":      "dev",
		"cacheEntries": h.weatherService.CacheSize(),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// GetWeatherByCoords handles GET /api/weather/coords?lat=..&lon=..
func (h *Handler) GetWeatherByCoords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lon, err := validation.ParseCoordinates(q.Get("lat"), q.Get("lon"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", err.Error())
		return
	}
	snap, err := h.weatherService.GetWeatherByCoords(r.Context(), lat, lon)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetWeatherByZip handles GET /api/weather/zip?zip=..
func (h *Handler) GetWeatherByZip(w http.ResponseWriter, r *http.Request) {
	zip, err := validation.ValidateZip(r.URL.Query().Get("zip"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_ZIP", landing.ErrInvalidZip.Error())
		return
	}
	snap, err := h.weatherService.GetWeatherByZip(r.Context(), zip)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// DeleteCache handles DELETE /api/weather/cache.
func (h *Handler) DeleteCache(w http.ResponseWriter, r *http.Request) {
	h.weatherService.ClearCache(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type landingRequest struct {
	Zip *string  `json:"zip"`
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type landingResponse struct {
	Entered bool            `json:"entered"`
	Weather models.Snapshot `json:"weather"`
}

// PostLanding handles POST /api/landing. The body carries either a ZIP code or
// the client's position; the matching lookup runs through a landing.Page.
func (h *Handler) PostLanding(w http.ResponseWriter, r *http.Request) {
	var body landingRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxLandingBody)).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "request body must be JSON")
		return
	}

	var (
		resp    landingResponse
		lookups = landing.Callbacks{
			OnZip: func(ctx context.Context, zip string) (err error) {
				resp.Weather, err = h.weatherService.GetWeatherByZip(ctx, zip)
				return err
			},
			OnCoords: func(ctx context.Context, c models.Coordinates) (err error) {
				resp.Weather, err = h.weatherService.GetWeatherByCoords(ctx, c.Lat, c.Lon)
				return err
			},
			OnEnter: func(ctx context.Context) { resp.Entered = true },
		}
		page = landing.New(lookups,
			landing.WithTransition(h.transition),
			landing.WithLogger(requestctx.Logger(r.Context(), h.logger)))
		err error
	)

	switch {
	case body.Zip != nil:
		err = page.SubmitZip(r.Context(), *body.Zip)
	case body.Lat != nil || body.Lon != nil:
		// A missing half of the pair means the client could not locate itself.
		var locator landing.Locator
		if body.Lat != nil && body.Lon != nil {
			coords := models.Coordinates{Lat: *body.Lat, Lon: *body.Lon}
			locator = landing.LocatorFunc(func(context.Context) (models.Coordinates, error) { return coords, nil })
		} else {
			locator = landing.LocatorFunc(func(context.Context) (models.Coordinates, error) {
				return models.Coordinates{}, errors.New("incomplete position")
			})
		}
		err = page.UseCurrentLocation(r.Context(), locator)
	default:
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "provide zip or lat and lon")
		return
	}

	if err != nil {
		h.writeLandingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error":{"code","message","requestId"}}.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": requestctx.CorrelationID(r.Context()),
		},
	})
}

var kindStatus = map[service.ErrorKind]struct {
	status int
	code   string
}{
	service.KindNotFound:     {http.StatusNotFound, "LOCATION_NOT_FOUND"},
	service.KindRateLimited:  {http.StatusTooManyRequests, "UPSTREAM_RATE_LIMITED"},
	service.KindUnavailable:  {http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
	service.KindNoConnection: {http.StatusBadGateway, "UPSTREAM_UNREACHABLE"},
	service.KindUnexpected:   {http.StatusBadGateway, "UPSTREAM_ERROR"},
	service.KindInternal:     {http.StatusInternalServerError, "INTERNAL_ERROR"},
}

// writeServiceError maps a *service.UserError to its status. The message is
// already user-safe; anything else is reported as an internal error.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var userErr *service.UserError
	if !errors.As(err, &userErr) {
		requestctx.Logger(r.Context(), h.logger).Error("unmapped service error", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", service.MsgInternal)
		return
	}
	m, ok := kindStatus[userErr.Kind]
	if !ok {
		m = kindStatus[service.KindInternal]
	}
	writeError(w, r, m.status, m.code, userErr.Message)
}

func (h *Handler) writeLandingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, landing.ErrInvalidZip):
		writeError(w, r, http.StatusBadRequest, "INVALID_ZIP", err.Error())
	case errors.Is(err, landing.ErrLocationUnavailable):
		writeError(w, r, http.StatusBadRequest, "LOCATION_UNAVAILABLE", err.Error())
	case errors.Is(err, landing.ErrGeolocationUnsupported):
		writeError(w, r, http.StatusBadRequest, "GEOLOCATION_UNSUPPORTED", err.Error())
	case errors.Is(err, landing.ErrBusy):
		writeError(w, r, http.StatusConflict, "BUSY", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, r, http.StatusGatewayTimeout, "REQUEST_TIMEOUT", "request timed out")
	default:
		h.writeServiceError(w, r, err)
	}
}
