// Package landing is the entry step of the presentation surface: it collects a
// ZIP code or the caller's current position, hands it to a callback, waits out
// the transition and then signals that the app has been entered.
//
// A Page holds no weather logic. Callers wire OnZip and OnCoords to whatever
// performs the lookup (normally service.WeatherService).
package landing

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-snapshot-client/internal/models"
	"github.com/kjstillabower/weather-snapshot-client/internal/observability"
	"github.com/kjstillabower/weather-snapshot-client/internal/validation"
)

// DefaultTransition is the pause between a successful submission and OnEnter.
const DefaultTransition = 800 * time.Millisecond

// Errors returned by Page. Their text is safe to show to the user.
var (
	ErrInvalidZip             = errors.New("Please enter a valid 5-digit ZIP code.")
	ErrGeolocationUnsupported = errors.New("Geolocation is not supported by your browser.")
	ErrLocationUnavailable    = errors.New("Unable to retrieve your location. Please enter a ZIP code instead.")
	ErrBusy                   = errors.New("A submission is already in progress.")
)

// Callbacks are invoked in order: OnZip or OnCoords, then OnEnter after the
// transition. A non-nil error from OnZip or OnCoords stops the sequence.
type Callbacks struct {
	OnZip    func(ctx context.Context, zip string) error
	OnCoords func(ctx context.Context, coords models.Coordinates) error
	OnEnter  func(ctx context.Context)
}

// Locator supplies the caller's current position.
type Locator interface {
	Locate(ctx context.Context) (models.Coordinates, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (models.Coordinates, error)

func (f LocatorFunc) Locate(ctx context.Context) (models.Coordinates, error) { return f(ctx) }

// Page runs one submission at a time.
type Page struct {
	callbacks  Callbacks
	transition time.Duration
	logger     *zap.Logger
	busy       atomic.Bool
}

// Option configures a Page.
type Option func(*Page)

// WithTransition sets the transition delay. Zero disables the wait.
func WithTransition(d time.Duration) Option {
	return func(p *Page) {
		if d >= 0 {
			p.transition = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Page) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Page. Nil callbacks are treated as no-ops.
func New(cb Callbacks, opts ...Option) *Page {
	p := &Page{
		callbacks:  cb,
		transition: DefaultTransition,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Busy reports whether a submission is in progress.
func (p *Page) Busy() bool {
	return p.busy.Load()
}

// SubmitZip validates input and, if it is a ZIP code, runs OnZip, the
// transition and OnEnter. Invalid input returns ErrInvalidZip without
// invoking any callback.
func (p *Page) SubmitZip(ctx context.Context, input string) error {
	if !p.busy.CompareAndSwap(false, true) {
		record("zip", "busy")
		return ErrBusy
	}
	defer p.busy.Store(false)

	zip, err := validation.ValidateZip(input)
	if err != nil {
		record("zip", "invalid")
		return ErrInvalidZip
	}
	if p.callbacks.OnZip != nil {
		if err := p.callbacks.OnZip(ctx, zip); err != nil {
			record("zip", "failed")
			p.logger.Debug("zip submission failed", zap.String("zip", zip), zap.Error(err))
			return err
		}
	}
	return p.enter(ctx, "zip")
}

// UseCurrentLocation asks locator for the current position and, if it is a
// valid coordinate pair, runs OnCoords, the transition and OnEnter. A nil
// locator means the host has no geolocation capability.
func (p *Page) UseCurrentLocation(ctx context.Context, locator Locator) error {
	if !p.busy.CompareAndSwap(false, true) {
		record("geolocation", "busy")
		return ErrBusy
	}
	defer p.busy.Store(false)

	if locator == nil {
		record("geolocation", "unsupported")
		return ErrGeolocationUnsupported
	}
	coords, err := locator.Locate(ctx)
	if err != nil {
		record("geolocation", "unavailable")
		p.logger.Debug("locator failed", zap.Error(err))
		return ErrLocationUnavailable
	}
	if err := validation.ValidateCoordinates(coords.Lat, coords.Lon); err != nil {
		record("geolocation", "unavailable")
		p.logger.Debug("locator returned invalid coordinates", zap.Float64("lat", coords.Lat), zap.Float64("lon", coords.Lon))
		return ErrLocationUnavailable
	}
	if p.callbacks.OnCoords != nil {
		if err := p.callbacks.OnCoords(ctx, coords); err != nil {
			record("geolocation", "failed")
			return err
		}
	}
	return p.enter(ctx, "geolocation")
}

func (p *Page) enter(ctx context.Context, method string) error {
	if p.transition > 0 {
		timer := time.NewTimer(p.transition)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			record(method, "canceled")
			return ctx.Err()
		}
	}
	if p.callbacks.OnEnter != nil {
		p.callbacks.OnEnter(ctx)
	}
	record(method, "entered")
	return nil
}

func record(method, result string) {
	observability.LandingSubmissionsTotal.WithLabelValues(method, result).Inc()
}
