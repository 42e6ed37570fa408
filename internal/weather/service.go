package weather

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ecoroute/ecoroute/internal/telemetry"
)

const (
	operationConditions     = "conditions"
	operationCityConditions = "city_conditions"
)

// Provider defines the interface for weather data providers.
type Provider interface {
	// GetCurrentConditions fetches current conditions for a location.
	GetCurrentConditions(ctx context.Context, lat, lon float64) (*Conditions, error)

	// GetCityConditions fetches current conditions for a city by name.
	GetCityConditions(ctx context.Context, city string) (*Conditions, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics records provider calls and cache behaviour (optional).
	Metrics *telemetry.ProviderMetrics

	// CacheTTL is how long to cache weather data (default: 10 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.1).
	// Points within the same grid cell share cached data.
	CacheGridSize float64

	// CacheSize bounds the number of cached locations (default: 512).
	CacheSize int

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 1 hour).
	StaleIfErrorTTL time.Duration
}

// Service provides weather data with caching.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	metrics         *telemetry.ProviderMetrics
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration

	cache *lru.Cache[string, cachedConditions]
	group singleflight.Group
}

type cachedConditions struct {
	conditions *Conditions
	fetchedAt  time.Time
	expiresAt  time.Time
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.1 // ~11km at equator
	}

	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 512
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = time.Hour
	}

	cache, _ := lru.New[string, cachedConditions](cacheSize) //nolint:errcheck // size is always positive

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cache:           cache,
	}
}

// GetCurrentConditions returns current conditions for a location.
func (s *Service) GetCurrentConditions(ctx context.Context, lat, lon float64) (*Conditions, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	return s.cached(operationConditions, s.cacheKey(lat, lon), func() (*Conditions, error) {
		return s.provider.GetCurrentConditions(ctx, lat, lon)
	})
}

// ConditionsOrDefault returns current conditions, or DefaultConditions if they cannot be fetched.
func (s *Service) ConditionsOrDefault(ctx context.Context, lat, lon float64) Conditions {
	c, err := s.GetCurrentConditions(ctx, lat, lon)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("provider", s.provider.Name()).
			Msg("weather unavailable, using default conditions")
		return DefaultConditions()
	}
	return *c
}

// GetCityConditions returns current conditions for a city.
// The name is normalised before lookup so "new york" and "New York " share a cache entry.
func (s *Service) GetCityConditions(ctx context.Context, city string) (*Conditions, error) {
	city = NormalizeCity(city)
	if city == "" {
		return nil, ErrInvalidCity
	}

	return s.cached(operationCityConditions, "city:"+strings.ToLower(city), func() (*Conditions, error) {
		return s.provider.GetCityConditions(ctx, city)
	})
}

// cached serves fresh entries from the cache and otherwise fetches once per key,
// falling back to a stale entry when the provider fails.
func (s *Service) cached(operation, key string, fetch func() (*Conditions, error)) (*Conditions, error) {
	if c, ok := s.cache.Get(key); ok && time.Now().Before(c.expiresAt) {
		s.metrics.RecordCacheHit(s.provider.Name(), operation)
		return c.conditions, nil
	}
	s.metrics.RecordCacheMiss(s.provider.Name(), operation)

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		s.logger.Debug().
			Str("cache_key", key).
			Str("provider", s.provider.Name()).
			Msg("fetching weather from provider")

		start := time.Now()
		conditions, err := fetch()
		s.metrics.RecordRequest(s.provider.Name(), operation, time.Since(start), err)

		if err != nil {
			s.logger.Error().Err(err).
				Str("cache_key", key).
				Msg("failed to fetch weather")

			if c, ok := s.cache.Peek(key); ok && time.Now().Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
				s.metrics.RecordStaleServed(s.provider.Name(), operation)
				s.logger.Warn().
					Time("fetched_at", c.fetchedAt).
					Msg("serving stale weather data due to provider error")
				return c.conditions, nil
			}
			return nil, err
		}

		now := time.Now()
		s.cache.Add(key, cachedConditions{
			conditions: conditions,
			fetchedAt:  now,
			expiresAt:  now.Add(s.cacheTTL),
		})
		return conditions, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Conditions), nil
}

// cacheKey groups nearby points into grid cells to reduce API calls.
func (s *Service) cacheKey(lat, lon float64) string {
	gridLat := math.Floor(lat/s.cacheGridSize) * s.cacheGridSize
	gridLon := math.Floor(lon/s.cacheGridSize) * s.cacheGridSize
	return fmt.Sprintf("%.2f:%.2f", gridLat, gridLon)
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.cache.Purge()
}

// CacheLen returns the number of cached entries.
func (s *Service) CacheLen() int {
	return s.cache.Len()
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}
