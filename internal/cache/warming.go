package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-snapshot-client/internal/models"
	"github.com/kjstillabower/weather-snapshot-client/internal/observability"
)

// SnapshotFetcher is implemented by the service layer. A successful fetch stores
// the snapshot in the cache as a side effect.
type SnapshotFetcher interface {
	GetWeatherByCoords(ctx context.Context, lat, lon float64) (models.Snapshot, error)
}

// Warmer prefetches snapshots for a fixed list of coordinates.
type Warmer struct {
	fetcher SnapshotFetcher
	logger  *zap.Logger
}

// NewWarmer creates a Warmer. logger may be nil.
func NewWarmer(fetcher SnapshotFetcher, logger *zap.Logger) *Warmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Warmer{fetcher: fetcher, logger: logger}
}

// Warm fetches every location concurrently. The returned error joins every
// per-location failure.
func (w *Warmer) Warm(ctx context.Context, locations []models.Coordinates) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	w.logger.Info("warming cache", zap.Int("locations", len(locations)))

	var wg sync.WaitGroup
	errCh := make(chan error, len(locations))
	for _, loc := range locations {
		wg.Add(1)
		go func(loc models.Coordinates) {
			defer wg.Done()
			if _, err := w.fetcher.GetWeatherByCoords(ctx, loc.Lat, loc.Lon); err != nil {
				errCh <- fmt.Errorf("warm %s: %w", Key(loc.Lat, loc.Lon), err)
			}
		}(loc)
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	w.logger.Info("cache warming complete",
		zap.Int("locations", len(locations)),
		zap.Int("errors", len(errs)),
		zap.Float64("duration_seconds", duration))
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %w", errors.Join(errs...))
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then refreshes at interval until ctx is done.
func (w *Warmer) WarmPeriodic(ctx context.Context, locations []models.Coordinates, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("warm interval must be positive, got %s", interval)
	}
	if err := w.Warm(ctx, locations); err != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx, locations); err != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
