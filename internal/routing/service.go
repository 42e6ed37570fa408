package routing

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

const operationRoute = "route"

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Provider is the routing data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics records provider calls and cache behaviour (optional).
	Metrics *telemetry.ProviderMetrics

	// CacheTTL is how long a route stays fresh (default: 5 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.001 ~ 110m).
	// Requests whose endpoints fall in the same cells share a cached route.
	CacheGridSize float64

	// CacheSize bounds the number of cached routes (default: 1024).
	CacheSize int

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 15 minutes).
	StaleIfErrorTTL time.Duration
}

// Service provides routing data with caching.
// Concurrent requests for the same cell pair and profile share one provider call.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	metrics         *telemetry.ProviderMetrics
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration

	cache *lru.Cache[string, cachedRoute]
	group singleflight.Group
}

type cachedRoute struct {
	route     *RouteData
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.001
	}

	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 1024
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 15 * time.Minute
	}

	cache, _ := lru.New[string, cachedRoute](cacheSize) //nolint:errcheck // size is always positive

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

// GetRoute returns the route between two points for a profile.
// Uses cached data if available and not expired.
func (s *Service) GetRoute(ctx context.Context, req RouteRequest) (*RouteData, error) {
	if err := req.Start.Validate(); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	if err := req.End.Validate(); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}

	key := s.cacheKey(req)

	if cached, ok := s.cache.Get(key); ok && time.Now().Before(cached.expiresAt) {
		s.metrics.RecordCacheHit(s.provider.Name(), operationRoute)
		s.logger.Debug().
			Str("cache_key", key).
			Msg("cache hit for route")
		return cached.route, nil
	}
	s.metrics.RecordCacheMiss(s.provider.Name(), operationRoute)

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.fetchRoute(ctx, req, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*RouteData), nil
}

// fetchRoute fetches a route from the provider and updates the cache.
func (s *Service) fetchRoute(ctx context.Context, req RouteRequest, key string) (*RouteData, error) {
	s.logger.Debug().
		Str("cache_key", key).
		Str("profile", string(req.Profile)).
		Str("provider", s.provider.Name()).
		Msg("fetching route from provider")

	start := time.Now()
	route, err := s.provider.GetRoute(ctx, req)
	s.metrics.RecordRequest(s.provider.Name(), operationRoute, time.Since(start), err)

	if err != nil {
		s.logger.Error().Err(err).
			Str("cache_key", key).
			Str("profile", string(req.Profile)).
			Msg("failed to fetch route")

		if cached, ok := s.cache.Peek(key); ok && time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.metrics.RecordStaleServed(s.provider.Name(), operationRoute)
			s.logger.Warn().
				Time("fetched_at", cached.fetchedAt).
				Str("cache_key", key).
				Msg("serving stale route due to provider error")
			return cached.route, nil
		}

		return nil, err
	}

	now := time.Now()
	s.cache.Add(key, cachedRoute{
		route:     route,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	})

	return route, nil
}

// cacheKey generates a cache key using grid quantization of both endpoints.
// Format: {profile}:{startLat},{startLon}:{endLat},{endLon}.
func (s *Service) cacheKey(req RouteRequest) string {
	q := func(v float64) float64 {
		return math.Floor(v/s.cacheGridSize) * s.cacheGridSize
	}
	return fmt.Sprintf("%s:%.4f,%.4f:%.4f,%.4f",
		req.Profile,
		q(req.Start.Lat), q(req.Start.Lon),
		q(req.End.Lat), q(req.End.Lon),
	)
}

// InvalidateCache clears all cached routes.
func (s *Service) InvalidateCache() {
	s.cache.Purge()
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	now := time.Now()
	stats := CacheStats{Provider: s.provider.Name()}

	for _, key := range s.cache.Keys() {
		c, ok := s.cache.Peek(key)
		if !ok {
			continue
		}
		stats.TotalEntries++
		if now.Before(c.expiresAt) {
			stats.FreshEntries++
		} else if now.Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			stats.StaleEntries++
		}
	}

	return stats
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}
