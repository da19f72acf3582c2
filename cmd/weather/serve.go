package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-snapshot-client/internal/cache"
	httphandler "github.com/kjstillabower/weather-snapshot-client/internal/http"
	"github.com/kjstillabower/weather-snapshot-client/internal/observability"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the weather and landing HTTP surface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ln, err := net.Listen("tcp", ":"+a.cfg.ServerPort)
			if err != nil {
				return err
			}
			return a.serve(cmd.Context(), ln)
		},
	}
}

// serve runs the HTTP server on ln until ctx is done, then drains.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	logger, cfg := a.logger, a.cfg

	weatherService, err := a.newWeatherService()
	if err != nil {
		return err
	}
	observability.RegisterCacheEntriesGauge(weatherService.CacheSize)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(weatherService, logger, cfg.LandingTransition)
	inFlight := &httphandler.InFlightTracker{}
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
		Limiter:        limiter,
		InFlight:       inFlight,
	})

	warmCtx, stopWarming := context.WithCancel(ctx)
	defer stopWarming()
	if len(cfg.WarmLocations) > 0 {
		warmer := cache.NewWarmer(weatherService, logger)
		go func() {
			if cfg.WarmInterval > 0 {
				if err := warmer.WarmPeriodic(warmCtx, cfg.WarmLocations, cfg.WarmInterval); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("periodic cache warming stopped", zap.Error(err))
				}
				return
			}
			if err := warmer.Warm(warmCtx, cfg.WarmLocations); err != nil {
				logger.Warn("cache warming failed", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + cfg.LandingTransition + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("graceful shutdown triggered")
	handler.SetDraining(true)
	stopWarming()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight.Count()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.InFlightTimeout)
	defer waitCancel()
	if err := inFlight.WaitForZero(waitCtx, cfg.InFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", inFlight.Count()))
	}

	logger.Info("shutdown complete")
	return nil
}
