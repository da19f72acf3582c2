package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/weather-snapshot-client/internal/models"
)

const (
	// DefaultBaseURL is used when neither WEATHER_API_BASE_URL nor weather_api.base_url is set.
	DefaultBaseURL = "/api/weather"
	// DefaultOrigin resolves a relative base URL.
	DefaultOrigin = "http://localhost:3000"
)

// Config holds presentation-process configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	WeatherAPIBaseURL string
	WeatherAPIOrigin  string
	WeatherAPITimeout time.Duration

	RequestTimeout time.Duration

	CacheTTL        time.Duration
	CoalesceEnabled bool
	CoalesceTimeout time.Duration
	WarmLocations   []models.Coordinates
	WarmInterval    time.Duration // 0 warms once at startup

	RateLimitRPS   int
	RateLimitBurst int

	LandingTransition time.Duration

	ShutdownTimeout       time.Duration
	InFlightTimeout       time.Duration
	InFlightCheckInterval time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		BaseURL string `yaml:"base_url"`
		Origin  string `yaml:"origin"`
		Timeout string `yaml:"timeout"`
	} `yaml:"weather_api"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		TTL             string `yaml:"ttl"`
		CoalesceEnabled bool   `yaml:"coalesce_enabled"`
		CoalesceTimeout string `yaml:"coalesce_timeout"`
		WarmLocations   []struct {
			Lat float64 `yaml:"lat"`
			Lon float64 `yaml:"lon"`
		} `yaml:"warm_locations"`
		WarmInterval string `yaml:"warm_interval"`
	} `yaml:"cache"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Landing struct {
		TransitionDelay string `yaml:"transition_delay"`
	} `yaml:"landing"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`
}

// Load reads config/{ENV_NAME}.yaml (default dev) relative to the working
// directory. A missing file is not an error; every key has a default.
// WEATHER_API_BASE_URL and WEATHER_API_ORIGIN override the file.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")

	var fc fileConfig
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	}

	cfg := &Config{}

	cfg.ServerPort = strings.TrimSpace(fc.Server.Port)
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.WeatherAPIBaseURL = firstNonEmpty(os.Getenv("WEATHER_API_BASE_URL"), fc.WeatherAPI.BaseURL, DefaultBaseURL)
	cfg.WeatherAPIOrigin = firstNonEmpty(os.Getenv("WEATHER_API_ORIGIN"), fc.WeatherAPI.Origin, DefaultOrigin)
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 10*time.Second)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)

	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 10*time.Minute)
	cfg.CoalesceEnabled = fc.Cache.CoalesceEnabled
	cfg.CoalesceTimeout = parseDuration(fc.Cache.CoalesceTimeout, 10*time.Second)
	for _, loc := range fc.Cache.WarmLocations {
		cfg.WarmLocations = append(cfg.WarmLocations, models.Coordinates{Lat: loc.Lat, Lon: loc.Lon})
	}
	cfg.WarmInterval = parseDurationOrZero(fc.Cache.WarmInterval, 0)
	if cfg.WarmInterval < 0 {
		cfg.WarmInterval = 0
	}

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}

	cfg.LandingTransition = parseDurationOrZero(fc.Landing.TransitionDelay, 800*time.Millisecond)
	if cfg.LandingTransition < 0 {
		cfg.LandingTransition = 800 * time.Millisecond
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.InFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.InFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero returns defaultVal on empty input or parse error.
// Zero and negative durations are returned as-is.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load checks. RequestTimeout is raised above the
// backend timeout so the backend error, not the request deadline, surfaces.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		cfg.RequestTimeout = cfg.WeatherAPITimeout + time.Second
	}
	for i, loc := range cfg.WarmLocations {
		if loc.Lat < -90 || loc.Lat > 90 || loc.Lon < -180 || loc.Lon > 180 {
			return fmt.Errorf("cache.warm_locations[%d] out of range: %v,%v", i, loc.Lat, loc.Lon)
		}
	}
	return nil
}
