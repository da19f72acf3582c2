package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/weather-snapshot-client/internal/cache"
	"github.com/kjstillabower/weather-snapshot-client/internal/client"
	"github.com/kjstillabower/weather-snapshot-client/internal/models"
	"github.com/kjstillabower/weather-snapshot-client/internal/service"
)

const seattlePayload = `{"location":{"name":"Seattle","lat":47.6062,"lon":-122.3321,"country":"US"},"current":{"temperature":12.5}}`

type mockBackend struct {
	body  []byte
	err   error
	block bool // when set, calls wait for ctx.Done()
	calls atomic.Int32
}

func (m *mockBackend) fetch(ctx context.Context) ([]byte, error) {
	m.calls.Add(1)
	if m.block {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %w", client.ErrNoResponse, ctx.Err())
	}
	return m.body, m.err
}

func (m *mockBackend) FetchByCoords(ctx context.Context, lat, lon float64) ([]byte, error) {
	return m.fetch(ctx)
}

func (m *mockBackend) FetchByZip(ctx context.Context, zip string) ([]byte, error) {
	return m.fetch(ctx)
}

type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func newTestRouter(t *testing.T, backend *mockBackend, cfg RouterConfig) (*Handler, http.Handler) {
	t.Helper()
	svc := service.NewWeatherService(backend, cache.NewInMemoryCache(), service.DefaultTTL)
	h := NewHandler(svc, cfg.Logger, 0)
	return h, NewRouter(h, cfg)
}

func serve(router http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var e errorBody
	if err := json.NewDecoder(w.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

func TestHandler_GetWeatherByCoords_Success(t *testing.T) {
	backend := &mockBackend{body: []byte(seattlePayload)}
	_, router := newTestRouter(t, backend, RouterConfig{})

	w := serve(router, http.MethodGet, "/api/weather/coords?lat=47.6062&lon=-122.3321", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var snap models.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Location.Name != "Seattle" || snap.Current.Temperature != 12.5 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Hourly == nil || snap.Daily == nil {
		t.Error("forecast sequences must encode as [] not null")
	}

	// Same rounded key is served from cache.
	serve(router, http.MethodGet, "/api/weather/coords?lat=47.61&lon=-122.33", nil)
	if got := backend.calls.Load(); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}
}

func TestHandler_GetWeatherByCoords_InvalidQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing both", ""},
		{"missing lon", "?lat=10"},
		{"not numeric", "?lat=abc&lon=10"},
		{"lat out of range", "?lat=91&lon=0"},
		{"lon out of range", "?lat=0&lon=-181"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			backend := &mockBackend{body: []byte(seattlePayload)}
			_, router := newTestRouter(t, backend, RouterConfig{})

			w := serve(router, http.MethodGet, "/api/weather/coords"+tc.query, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if e := decodeError(t, w); e.Error.Code != "INVALID_COORDINATES" {
				t.Errorf("code = %q, want INVALID_COORDINATES", e.Error.Code)
			}
			if backend.calls.Load() != 0 {
				t.Error("backend called for invalid input")
			}
		})
	}
}

func TestHandler_GetWeatherByZip(t *testing.T) {
	backend := &mockBackend{body: []byte(seattlePayload)}
	_, router := newTestRouter(t, backend, RouterConfig{})

	w := serve(router, http.MethodGet, "/api/weather/zip?zip=98101", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	w = serve(router, http.MethodGet, "/api/weather/zip?zip=98", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid zip status = %d, want 400", w.Code)
	}
	e := decodeError(t, w)
	if e.Error.Code != "INVALID_ZIP" || e.Error.Message != "Please enter a valid 5-digit ZIP code." {
		t.Errorf("error = %+v", e.Error)
	}

	// The zip result populated the coordinate cache.
	serve(router, http.MethodGet, "/api/weather/coords?lat=47.61&lon=-122.33", nil)
	if got := backend.calls.Load(); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}
}

func TestHandler_ServiceErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"not found", client.ErrLocationNotFound, http.StatusNotFound, "LOCATION_NOT_FOUND", service.MsgNotFound},
		{"rate limited", client.ErrRateLimited, http.StatusTooManyRequests, "UPSTREAM_RATE_LIMITED", service.MsgRateLimited},
		{"server error", client.ErrServerError, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", service.MsgUnavailable},
		{"unexpected", client.ErrUnexpectedStatus, http.StatusBadGateway, "UPSTREAM_ERROR", service.MsgUnexpected},
		{"no response", client.ErrNoResponse, http.StatusBadGateway, "UPSTREAM_UNREACHABLE", service.MsgNoConnection},
		{"request", client.ErrRequest, http.StatusInternalServerError, "INTERNAL_ERROR", service.MsgInternal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, router := newTestRouter(t, &mockBackend{err: tc.err}, RouterConfig{})

			req := httptest.NewRequest(http.MethodGet, "/api/weather/zip?zip=10001", nil)
			req.Header.Set("X-Correlation-ID", "corr-123")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			e := decodeError(t, w)
			if e.Error.Code != tc.wantCode || e.Error.Message != tc.wantMsg {
				t.Errorf("error = %+v, want code %s message %q", e.Error, tc.wantCode, tc.wantMsg)
			}
			if e.Error.RequestID != "corr-123" {
				t.Errorf("requestId = %q, want corr-123", e.Error.RequestID)
			}
		})
	}
}

func TestHandler_DeleteCache(t *testing.T) {
	backend := &mockBackend{body: []byte(seattlePayload)}
	_, router := newTestRouter(t, backend, RouterConfig{})

	serve(router, http.MethodGet, "/api/weather/coords?lat=1&lon=2", nil)
	w := serve(router, http.MethodDelete, "/api/weather/cache", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("204 response has body %q", w.Body.String())
	}
	serve(router, http.MethodGet, "/api/weather/coords?lat=1&lon=2", nil)
	if got := backend.calls.Load(); got != 2 {
		t.Errorf("backend calls = %d, want 2 after clear", got)
	}
}

func TestHandler_PostLanding(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		backendErr error
		wantStatus int
		wantCode   string
	}{
		{name: "zip", body: `{"zip":"98101"}`, wantStatus: http.StatusOK},
		{name: "coordinates", body: `{"lat":47.61,"lon":-122.33}`, wantStatus: http.StatusOK},
		{name: "invalid zip", body: `{"zip":"abc"}`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_ZIP"},
		{name: "out of range position", body: `{"lat":200,"lon":0}`, wantStatus: http.StatusBadRequest, wantCode: "LOCATION_UNAVAILABLE"},
		{name: "half a position", body: `{"lat":10}`, wantStatus: http.StatusBadRequest, wantCode: "LOCATION_UNAVAILABLE"},
		{name: "empty object", body: `{}`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
		{name: "not json", body: `zip=98101`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
		{name: "lookup fails", body: `{"zip":"00000"}`, backendErr: client.ErrLocationNotFound, wantStatus: http.StatusNotFound, wantCode: "LOCATION_NOT_FOUND"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			backend := &mockBackend{body: []byte(seattlePayload), err: tc.backendErr}
			_, router := newTestRouter(t, backend, RouterConfig{})

			w := serve(router, http.MethodPost, "/api/landing", []byte(tc.body))
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", w.Code, tc.wantStatus, w.Body.String())
			}
			if tc.wantStatus != http.StatusOK {
				if e := decodeError(t, w); e.Error.Code != tc.wantCode {
					t.Errorf("code = %q, want %q", e.Error.Code, tc.wantCode)
				}
				return
			}
			var resp struct {
				Entered bool            `json:"entered"`
				Weather models.Snapshot `json:"weather"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if !resp.Entered || resp.Weather.Location.Name != "Seattle" {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestHandler_GetHealth(t *testing.T) {
	h, router := newTestRouter(t, &mockBackend{body: []byte(seattlePayload)}, RouterConfig{})
	serve(router, http.MethodGet, "/api/weather/coords?lat=1&lon=2", nil)

	w := serve(router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
	if body["cacheEntries"] != float64(1) {
		t.Errorf("cacheEntries = %v, want 1", body["cacheEntries"])
	}
	for _, k := range []string{"service", "version", "timestamp"} {
		if _, ok := body[k]; !ok {
			t.Errorf("health response missing %q", k)
		}
	}

	h.SetDraining(true)
	w = serve(router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("draining status = %d, want 503", w.Code)
	}
	body = nil
	_ = json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "shutting-down" {
		t.Errorf("status = %v, want shutting-down", body["status"])
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	_, router := newTestRouter(t, &mockBackend{}, RouterConfig{})
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/health"},
		{http.MethodPost, "/metrics"},
		{http.MethodPost, "/api/weather/coords"},
		{http.MethodDelete, "/api/weather/zip"},
		{http.MethodPost, "/api/weather/cache"},
		{http.MethodGet, "/api/weather/cache"},
		{http.MethodGet, "/api/landing"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(router, tt.method, tt.path, nil)
			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("status = %d, want 405", w.Code)
			}
		})
	}

	if w := serve(router, http.MethodGet, "/api/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", w.Code)
	}
}

// plainErrService fails every lookup with an error that is not a *service.UserError.
type plainErrService struct{}

func (plainErrService) GetWeatherByCoords(context.Context, float64, float64) (models.Snapshot, error) {
	return models.Snapshot{}, errors.New("boom")
}
func (plainErrService) GetWeatherByZip(context.Context, string) (models.Snapshot, error) {
	return models.Snapshot{}, errors.New("boom")
}
func (plainErrService) ClearCache(context.Context) {}
func (plainErrService) CacheSize() int             { return 0 }

func TestHandler_UnmappedErrorLoggedWithoutScopedLogger(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := NewHandler(plainErrService{}, zap.New(core), 0)

	w := httptest.NewRecorder()
	h.GetWeatherByCoords(w, httptest.NewRequest(http.MethodGet, "/api/weather/coords?lat=1&lon=2", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if e := decodeError(t, w); e.Error.Message != service.MsgInternal {
		t.Errorf("message = %q, want %q", e.Error.Message, service.MsgInternal)
	}
	if n := logs.FilterMessage("unmapped service error").Len(); n != 1 {
		t.Errorf("got %d 'unmapped service error' logs, want 1", n)
	}
}

func TestHandler_ServiceErrorLoggedWithCorrelationID(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)
	backend := &mockBackend{err: fmt.Errorf("%w: HTTP 500", client.ErrServerError)}
	svc := service.NewWeatherService(backend, cache.NewInMemoryCache(), service.DefaultTTL, service.WithLogger(logger))
	router := NewRouter(NewHandler(svc, logger, 0), RouterConfig{Logger: logger})

	req := httptest.NewRequest(http.MethodGet, "/api/weather/coords?lat=1&lon=2", nil)
	req.Header.Set("X-Correlation-ID", "corr-log")
	router.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("weather lookup failed").All()
	if len(entries) != 1 {
		t.Fatalf("got %d 'weather lookup failed' logs, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["correlation_id"] != "corr-log" {
		t.Errorf("correlation_id = %v, want corr-log", fields["correlation_id"])
	}
	if fields["kind"] != string(service.KindUnavailable) {
		t.Errorf("kind = %v, want unavailable", fields["kind"])
	}
	if fields["error"] == nil {
		t.Error("original error not logged")
	}
}
