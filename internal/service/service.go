package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-snapshot-client/internal/cache"
	"github.com/kjstillabower/weather-snapshot-client/internal/client"
	"github.com/kjstillabower/weather-snapshot-client/internal/models"
	"github.com/kjstillabower/weather-snapshot-client/internal/normalize"
	"github.com/kjstillabower/weather-snapshot-client/internal/observability"
	"github.com/kjstillabower/weather-snapshot-client/internal/requestctx"
)

// DefaultTTL is how long a cached snapshot is served without a network call.
const DefaultTTL = 10 * time.Minute

// WeatherService fetches snapshots from the backend, normalizes them and keeps
// them in a coordinate-keyed cache. Lookups fail only with *UserError.
type WeatherService struct {
	client          client.BackendClient
	cache           cache.Cache
	ttl             time.Duration
	logger          *zap.Logger
	now             func() time.Time
	stampedeTracker *stampedeTracker
	coalescer       *requestCoalescer // nil unless WithCoalescing
}

// Option configures a WeatherService.
type Option func(*WeatherService)

// WithLogger sets the fallback logger used when the request context carries none.
func WithLogger(logger *zap.Logger) Option {
	return func(s *WeatherService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now for cache timestamps and freshness checks.
func WithClock(now func() time.Time) Option {
	return func(s *WeatherService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCoalescing makes concurrent coordinate lookups for the same key share one
// backend fetch. Waiters give up after timeout. Disabled when timeout <= 0.
func WithCoalescing(timeout time.Duration) Option {
	return func(s *WeatherService) {
		if timeout > 0 {
			s.coalescer = newRequestCoalescer(timeout)
		}
	}
}

// NewWeatherService creates a WeatherService. ttl <= 0 uses DefaultTTL.
func NewWeatherService(backend client.BackendClient, store cache.Cache, ttl time.Duration, opts ...Option) *WeatherService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &WeatherService{
		client:          backend,
		cache:           store,
		ttl:             ttl,
		logger:          zap.NewNop(),
		now:             time.Now,
		stampedeTracker: newStampedeTracker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the freshness window for cached snapshots.
func (s *WeatherService) TTL() time.Duration {
	return s.ttl
}

// CacheSize returns the number of cached snapshots.
func (s *WeatherService) CacheSize() int {
	return s.cache.Len()
}

// GetWeatherByCoords returns the cached snapshot for the rounded coordinates if
// it is younger than the TTL, otherwise fetches, normalizes and caches it.
func (s *WeatherService) GetWeatherByCoords(ctx context.Context, lat, lon float64) (models.Snapshot, error) {
	key := cache.Key(lat, lon)
	logger := requestctx.Logger(ctx, s.logger).With(zap.String("cache_key", key))
	start := s.now()

	if entry, ok := s.lookup(ctx, logger, key); ok {
		logger.Debug("weather served", zap.Bool("cached", true))
		return entry.Data, nil
	}

	if concurrent := s.stampedeTracker.RecordMiss(key); concurrent > 1 {
		observability.CacheStampedeDetectedTotal.Inc()
		logger.Debug("concurrent cache miss", zap.Int("concurrent_misses", concurrent))
	}
	defer s.stampedeTracker.RecordDone(key)

	fetch := func() (models.Snapshot, error) {
		raw, err := s.client.FetchByCoords(ctx, lat, lon)
		if err != nil {
			return models.Snapshot{}, err
		}
		return normalize.Payload(raw), nil
	}

	var (
		data models.Snapshot
		err  error
	)
	if s.coalescer != nil {
		var shared bool
		data, shared, err = s.coalescer.GetOrDo(ctx, key, fetch)
		if shared {
			observability.RequestsCoalescedTotal.Inc()
		}
	} else {
		data, err = fetch()
	}
	if err != nil {
		return models.Snapshot{}, s.fail(logger, "coords", err)
	}

	s.store(ctx, logger, key, data)
	logger.Debug("weather served", zap.Bool("cached", false), zap.Duration("duration", s.now().Sub(start)))
	return data, nil
}

// GetWeatherByZip always calls the backend. The result is cached under the
// coordinates the backend returned, not under the ZIP code.
func (s *WeatherService) GetWeatherByZip(ctx context.Context, zip string) (models.Snapshot, error) {
	logger := requestctx.Logger(ctx, s.logger).With(zap.String("zip", zip))

	raw, err := s.client.FetchByZip(ctx, zip)
	if err != nil {
		return models.Snapshot{}, s.fail(logger, "zip", err)
	}
	data := normalize.Payload(raw)

	coords := data.Coordinates()
	key := cache.Key(coords.Lat, coords.Lon)
	s.store(ctx, logger.With(zap.String("cache_key", key)), key, data)
	logger.Debug("weather served", zap.Bool("cached", false), zap.String("cache_key", key))
	return data, nil
}

// ClearCache empties the cache unconditionally.
func (s *WeatherService) ClearCache(ctx context.Context) {
	if err := s.cache.Clear(ctx); err != nil {
		s.logger.Warn("cache clear failed", zap.Error(err))
		return
	}
	observability.CacheClearsTotal.Inc()
	requestctx.Logger(ctx, s.logger).Info("cache cleared")
}

// lookup returns a fresh entry for key. Cache errors count as a miss.
func (s *WeatherService) lookup(ctx context.Context, logger *zap.Logger, key string) (cache.Entry, bool) {
	entry, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		observability.CacheLookupsTotal.WithLabelValues("error").Inc()
		logger.Warn("cache get failed", zap.Error(err))
		return cache.Entry{}, false
	case !ok:
		observability.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return cache.Entry{}, false
	case entry.Age(s.now()) >= s.ttl:
		observability.CacheLookupsTotal.WithLabelValues("stale").Inc()
		logger.Debug("cache entry stale", zap.Duration("age", entry.Age(s.now())))
		return cache.Entry{}, false
	default:
		observability.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return entry, true
	}
}

func (s *WeatherService) store(ctx context.Context, logger *zap.Logger, key string, data models.Snapshot) {
	if err := s.cache.Set(ctx, key, cache.Entry{Data: data, Timestamp: s.now()}); err != nil {
		logger.Warn("cache set failed", zap.Error(err))
	}
}

// fail logs the underlying error and returns the mapped user-facing error.
func (s *WeatherService) fail(logger *zap.Logger, op string, err error) error {
	userErr := MapError(err)
	observability.UserErrorsTotal.WithLabelValues(string(userErr.Kind)).Inc()
	logger.Warn("weather lookup failed",
		zap.String("op", op),
		zap.String("category", string(client.CategorizeError(err))),
		zap.String("kind", string(userErr.Kind)),
		zap.Error(err))
	return userErr
}
