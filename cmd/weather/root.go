package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-snapshot-client/internal/cache"
	"github.com/kjstillabower/weather-snapshot-client/internal/client"
	"github.com/kjstillabower/weather-snapshot-client/internal/config"
	"github.com/kjstillabower/weather-snapshot-client/internal/observability"
	"github.com/kjstillabower/weather-snapshot-client/internal/service"
)

// app is populated by the root command before any subcommand runs.
type app struct {
	logger *zap.Logger
	cfg    *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:          "weather",
		Short:        "Weather snapshot client",
		Long:         `Fetches normalized weather snapshots from the backend, caches them by rounded coordinates and serves them over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger == nil {
				return nil
			}
			return observability.FlushTelemetry(context.Background(), a.logger)
		},
	}

	cmd.AddCommand(newServeCmd(a), newCoordsCmd(a), newZipCmd(a))
	return cmd
}

func (a *app) init() error {
	logger, err := observability.NewLogger()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", zap.Error(err))
		return fmt.Errorf("config: %w", err)
	}
	a.logger = logger
	a.cfg = cfg
	return nil
}

// newWeatherService wires the backend client, the in-memory cache and the
// service from config.
func (a *app) newWeatherService() (*service.WeatherService, error) {
	backend, err := client.NewHTTPClient(a.cfg.WeatherAPIBaseURL, a.cfg.WeatherAPIOrigin, a.cfg.WeatherAPITimeout)
	if err != nil {
		return nil, fmt.Errorf("weather client: %w", err)
	}
	a.logger.Info("weather backend", zap.String("base_url", backend.BaseURL()))

	opts := []service.Option{service.WithLogger(a.logger)}
	if a.cfg.CoalesceEnabled {
		opts = append(opts, service.WithCoalescing(a.cfg.CoalesceTimeout))
		a.logger.Info("request coalescing enabled", zap.Duration("timeout", a.cfg.CoalesceTimeout))
	}
	return service.NewWeatherService(backend, cache.NewInMemoryCache(), a.cfg.CacheTTL, opts...), nil
}
