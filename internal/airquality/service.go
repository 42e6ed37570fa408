package airquality

import (
	"context"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ecoroute/ecoroute/internal/telemetry"
)

const operationPollution = "pollution"

// Provider defines the interface for air quality data providers.
type Provider interface {
	// GetPollution fetches current air pollution for a location.
	GetPollution(ctx context.Context, lat, lon float64) (*Pollution, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	// Provider is the air quality data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics records provider calls and cache behaviour (optional).
	Metrics *telemetry.ProviderMetrics

	// CacheTTL is how long to cache pollution data (default: 15 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.05).
	CacheGridSize float64

	// CacheSize bounds the number of cached cells (default: 512).
	CacheSize int

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 1 hour).
	StaleIfErrorTTL time.Duration
}

// Service provides air quality data with caching.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	metrics         *telemetry.ProviderMetrics
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration

	cache *lru.Cache[string, cachedPollution]
	group singleflight.Group
}

type cachedPollution struct {
	pollution *Pollution
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new air quality service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 15 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.05
	}

	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 512
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = time.Hour
	}

	cache, _ := lru.New[string, cachedPollution](cacheSize) //nolint:errcheck // size is always positive

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

// GetPollution returns current air pollution for a location.
func (s *Service) GetPollution(ctx context.Context, lat, lon float64) (*Pollution, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	key := s.cacheKey(lat, lon)
	if c, ok := s.cache.Get(key); ok && time.Now().Before(c.expiresAt) {
		s.metrics.RecordCacheHit(s.provider.Name(), operationPollution)
		return c.pollution, nil
	}
	s.metrics.RecordCacheMiss(s.provider.Name(), operationPollution)

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		start := time.Now()
		p, err := s.provider.GetPollution(ctx, lat, lon)
		s.metrics.RecordRequest(s.provider.Name(), operationPollution, time.Since(start), err)

		if err != nil {
			s.logger.Error().Err(err).
				Str("cache_key", key).
				Msg("failed to fetch air pollution")

			if c, ok := s.cache.Peek(key); ok && time.Now().Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
				s.metrics.RecordStaleServed(s.provider.Name(), operationPollution)
				s.logger.Warn().
					Time("fetched_at", c.fetchedAt).
					Msg("serving stale air quality data due to provider error")
				return c.pollution, nil
			}
			return nil, err
		}

		now := time.Now()
		s.cache.Add(key, cachedPollution{
			pollution: p,
			fetchedAt: now,
			expiresAt: now.Add(s.cacheTTL),
		})
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Pollution), nil
}

// PollutionOrDefault returns current pollution, or Default if it cannot be fetched.
func (s *Service) PollutionOrDefault(ctx context.Context, lat, lon float64) Pollution {
	p, err := s.GetPollution(ctx, lat, lon)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("provider", s.provider.Name()).
			Msg("air quality unavailable, using default index")
		return Default()
	}
	return *p
}

func (s *Service) cacheKey(lat, lon float64) string {
	gridLat := math.Floor(lat/s.cacheGridSize) * s.cacheGridSize
	gridLon := math.Floor(lon/s.cacheGridSize) * s.cacheGridSize
	return fmt.Sprintf("%.3f:%.3f", gridLat, gridLon)
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
