package routing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider is a mock routing provider for testing.
type mockProvider struct {
	name      string
	route     *RouteData
	err       error
	callCount atomic.Int32
	delay     time.Duration
}

func (m *mockProvider) GetRoute(_ context.Context, _ RouteRequest) (*RouteData, error) {
	m.callCount.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.route, nil
}

func (m *mockProvider) Name() string {
	return m.name
}

func testRoute() *RouteData {
	return &RouteData{
		DistanceKm:  4.2,
		DurationMin: 11.5,
		Geometry:    orb.LineString{{80.2707, 13.0827}, {80.2430, 13.0674}},
	}
}

func chennaiRequest(p Profile) RouteRequest {
	return RouteRequest{
		Start:   Coordinate{Lat: 13.0827, Lon: 80.2707},
		End:     Coordinate{Lat: 13.0674, Lon: 80.2430},
		Profile: p,
	}
}

func TestService_GetRoute_CacheMiss(t *testing.T) {
	provider := &mockProvider{name: "test-provider", route: testRoute()}
	service := NewService(ServiceConfig{Provider: provider})

	route, err := service.GetRoute(context.Background(), chennaiRequest(ProfileBike))

	require.NoError(t, err)
	assert.Equal(t, int32(1), provider.callCount.Load())
	assert.InDelta(t, 4.2, route.DistanceKm, 1e-9)
}

func TestService_GetRoute_CacheHit(t *testing.T) {
	provider := &mockProvider{name: "test-provider", route: testRoute()}
	service := NewService(ServiceConfig{Provider: provider})
	req := chennaiRequest(ProfileBike)

	_, err := service.GetRoute(context.Background(), req)
	require.NoError(t, err)
	_, err = service.GetRoute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int32(1), provider.callCount.Load())
}

func TestService_GetRoute_GridCaching(t *testing.T) {
	provider := &mockProvider{name: "test-provider", route: testRoute()}
	service := NewService(ServiceConfig{Provider: provider, CacheGridSize: 0.001})

	_, _ = service.GetRoute(context.Background(), RouteRequest{
		Start:   Coordinate{Lat: 52.3676, Lon: 4.9041},
		End:     Coordinate{Lat: 52.0907, Lon: 5.1214},
		Profile: ProfileBike,
	})
	_, _ = service.GetRoute(context.Background(), RouteRequest{
		Start:   Coordinate{Lat: 52.3678, Lon: 4.9045},
		End:     Coordinate{Lat: 52.0909, Lon: 5.1216},
		Profile: ProfileBike,
	})

	assert.Equal(t, int32(1), provider.callCount.Load(), "same grid cells should share the cached route")
}

func TestService_GetRoute_DifferentProfilesNotShared(t *testing.T) {
	provider := &mockProvider{name: "test-provider", route: testRoute()}
	service := NewService(ServiceConfig{Provider: provider})

	_, _ = service.GetRoute(context.Background(), chennaiRequest(ProfileBike))
	_, _ = service.GetRoute(context.Background(), chennaiRequest(ProfileWalk))

	assert.Equal(t, int32(2), provider.callCount.Load())
}

func TestService_GetRoute_StaleIfError(t *testing.T) {
	provider := &mockProvider{name: "test-provider", route: testRoute()}
	service := NewService(ServiceConfig{
		Provider:        provider,
		CacheTTL:        50 * time.Millisecond,
		StaleIfErrorTTL: 5 * time.Second,
	})
	req := chennaiRequest(ProfileCar)

	_, err := service.GetRoute(context.Background(), req)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	provider.err = errors.New("provider error")

	route, err := service.GetRoute(context.Background(), req)
	require.NoError(t, err, "stale data should be served")
	assert.InDelta(t, 4.2, route.DistanceKm, 1e-9)
	assert.Equal(t, int32(2), provider.callCount.Load())
}

func TestService_GetRoute_ErrorWithoutCache(t *testing.T) {
	providerErr := &Error{Provider: "test-provider", Code: "NO_ROUTE", Message: "no route", Err: ErrNoRouteFound}
	provider := &mockProvider{name: "test-provider", err: providerErr}
	service := NewService(ServiceConfig{Provider: provider})

	_, err := service.GetRoute(context.Background(), chennaiRequest(ProfileHGV))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoRouteFound)
}

func TestService_GetRoute_InvalidCoordinates(t *testing.T) {
	service := NewService(ServiceConfig{Provider: &mockProvider{name: "test-provider"}})

	tests := []struct {
		name string
		req  RouteRequest
		code string
	}{
		{
			name: "invalid origin latitude",
			req:  RouteRequest{Start: Coordinate{Lat: 91}, Profile: ProfileBike},
			code: "INVALID_ORIGIN",
		},
		{
			name: "invalid destination longitude",
			req:  RouteRequest{End: Coordinate{Lon: 181}, Profile: ProfileBike},
			code: "INVALID_DESTINATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.GetRoute(context.Background(), tt.req)

			var routingErr *Error
			require.ErrorAs(t, err, &routingErr)
			assert.Equal(t, tt.code, routingErr.Code)
			assert.ErrorIs(t, err, ErrInvalidCoordinates)
		})
	}
}

func TestService_GetRoute_ConcurrentRequestsShareFetch(t *testing.T) {
	provider := &mockProvider{name: "test-provider", route: testRoute(), delay: 50 * time.Millisecond}
	service := NewService(ServiceConfig{Provider: provider})
	req := chennaiRequest(ProfileBike)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.GetRoute(context.Background(), req)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, provider.callCount.Load(), int32(2))
}

func TestService_CacheStatsAndInvalidate(t *testing.T) {
	provider := &mockProvider{name: "test-provider", route: testRoute()}
	service := NewService(ServiceConfig{Provider: provider})

	stats := service.CacheStats()
	assert.Equal(t, 0, stats.TotalEntries)
	assert.Equal(t, "test-provider", stats.Provider)

	_, _ = service.GetRoute(context.Background(), chennaiRequest(ProfileBike))
	stats = service.CacheStats()
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Equal(t, 1, stats.FreshEntries)

	service.InvalidateCache()
	assert.Equal(t, 0, service.CacheStats().TotalEntries)

	_, _ = service.GetRoute(context.Background(), chennaiRequest(ProfileBike))
	assert.Equal(t, int32(2), provider.callCount.Load())
}

func TestService_CacheBounded(t *testing.T) {
	provider := &mockProvider{name: "test-provider", route: testRoute()}
	service := NewService(ServiceConfig{Provider: provider, CacheSize: 2})

	for _, p := range []Profile{ProfileBike, ProfileWalk, ProfileCar} {
		_, _ = service.GetRoute(context.Background(), chennaiRequest(p))
	}

	assert.Equal(t, 2, service.CacheStats().TotalEntries)
}

func TestService_CacheKeyFormat(t *testing.T) {
	service := &Service{cacheGridSize: 0.01}

	key := service.cacheKey(chennaiRequest(ProfileBike))

	assert.True(t, strings.HasPrefix(key, "cycling-regular:"), key)
	assert.Equal(t, 3, strings.Count(key, ":")+1)
}

func TestService_ProviderName(t *testing.T) {
	service := NewService(ServiceConfig{Provider: &mockProvider{name: "my-routing-provider"}})
	assert.Equal(t, "my-routing-provider", service.ProviderName())
}
