package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kjstillabower/weather-snapshot-client/internal/observability"
	"github.com/kjstillabower/weather-snapshot-client/internal/requestctx"
)

// BackendClient fetches raw weather payloads from the backend. The payload
// schema is opaque to the client; normalization happens in the service.
type BackendClient interface {
	FetchByCoords(ctx context.Context, lat, lon float64) ([]byte, error)
	FetchByZip(ctx context.Context, zip string) ([]byte, error)
}

var (
	ErrLocationNotFound = errors.New("location not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrServerError      = errors.New("backend server error")
	ErrUnexpectedStatus = errors.New("unexpected backend status")
	ErrNoResponse       = errors.New("no response from backend")
	ErrRequest          = errors.New("request could not be completed")
)

const (
	// DefaultTimeout bounds a single backend call.
	DefaultTimeout = 10 * time.Second

	endpointCoords = "coords"
	endpointZip    = "zip"

	tracerName = "github.com/kjstillabower/weather-snapshot-client/internal/client"
)

// HTTPClient calls {baseURL}/coords and {baseURL}/zip. Each call is a single
// attempt; failures are returned immediately.
type HTTPClient struct {
	baseURL *url.URL
	client  *http.Client
	tracer  trace.Tracer
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client (its Timeout is kept as given).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTracerProvider sets the provider used for backend call spans. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *HTTPClient) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewHTTPClient resolves baseURL once. A relative baseURL (e.g. "/api/weather")
// is resolved against origin, which must then be an absolute http(s) URL.
func NewHTTPClient(baseURL, origin string, timeout time.Duration, opts ...Option) (*HTTPClient, error) {
	resolved, err := resolveBaseURL(baseURL, origin)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &HTTPClient{
		baseURL: resolved,
		client:  &http.Client{Timeout: timeout},
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func resolveBaseURL(baseURL, origin string) (*url.URL, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base URL %q: %v", ErrRequest, baseURL, err)
	}
	if !base.IsAbs() {
		originURL, err := url.Parse(strings.TrimSpace(origin))
		if err != nil || !originURL.IsAbs() {
			return nil, fmt.Errorf("%w: relative base URL %q needs an absolute origin, got %q", ErrRequest, baseURL, origin)
		}
		base = originURL.ResolveReference(base)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported base URL scheme %q", ErrRequest, base.Scheme)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	return base, nil
}

// BaseURL returns the resolved base URL.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL.String()
}

// FetchByCoords issues GET {baseURL}/coords?lat=..&lon=..
func (c *HTTPClient) FetchByCoords(ctx context.Context, lat, lon float64) ([]byte, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	return c.get(ctx, endpointCoords, params,
		attribute.Float64("weather.lat", lat),
		attribute.Float64("weather.lon", lon))
}

// FetchByZip issues GET {baseURL}/zip?zip=..
func (c *HTTPClient) FetchByZip(ctx context.Context, zip string) ([]byte, error) {
	params := url.Values{}
	params.Set("zip", zip)
	return c.get(ctx, endpointZip, params, attribute.String("weather.zip", zip))
}

func (c *HTTPClient) get(ctx context.Context, endpoint string, params url.Values, attrs ...attribute.KeyValue) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "backend."+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(append(attrs, attribute.String("weather.endpoint", endpoint))...)

	start := time.Now()
	body, status, err := c.do(ctx, endpoint, params)
	label := statusLabel(status, err)
	observability.BackendCallsTotal.WithLabelValues(endpoint, label).Inc()
	observability.BackendDuration.WithLabelValues(endpoint, label).Observe(time.Since(start).Seconds())

	if status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if err != nil {
		span.SetAttributes(attribute.String("weather.error_category", string(CategorizeError(err))))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return body, nil
}

// do performs the request and returns the body, the HTTP status (0 when no
// response arrived) and a sentinel-wrapped error.
func (c *HTTPClient) do(ctx context.Context, endpoint string, params url.Values) ([]byte, int, error) {
	req, err := c.buildRequest(ctx, endpoint, params)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request: %w", ErrRequest, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// A response alongside an error means CheckRedirect failed.
		if resp != nil {
			return nil, resp.StatusCode, fmt.Errorf("%w: HTTP %d: %w", ErrUnexpectedStatus, resp.StatusCode, err)
		}
		return nil, 0, fmt.Errorf("%w: %w", ErrNoResponse, err)
	}
	defer resp.Body.Close()

	if err := handleErrorResponse(resp); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response body: %w", ErrRequest, err)
	}
	return body, resp.StatusCode, nil
}

func (c *HTTPClient) buildRequest(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	u := *c.baseURL
	u.Path = u.Path + "/" + endpoint
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if corrID := requestctx.CorrelationID(ctx); corrID != "" {
		req.Header.Set(requestctx.CorrelationIDHeader, corrID)
	}
	return req, nil
}

func handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w", ErrLocationNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	case http.StatusInternalServerError:
		return fmt.Errorf("%w: HTTP %d", ErrServerError, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return nil
}

func statusLabel(statusCode int, err error) string {
	if statusCode == 0 {
		if errors.Is(err, ErrNoResponse) {
			return "no_response"
		}
		return "error"
	}
	if statusCode >= 200 && statusCode < 300 {
		if err != nil {
			return "error"
		}
		return "success"
	}
	if statusCode == http.StatusTooManyRequests {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
