package weather_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoroute/ecoroute/internal/weather"
)

// mockProvider is a mock weather provider for testing.
type mockProvider struct {
	mu         sync.Mutex
	callCount  int
	conditions *weather.Conditions
	cities     []string
	err        error
}

func newMockProvider() *mockProvider {
	temp := weather.FormatTemperature(31.2)
	humidity := 70.0
	return &mockProvider{
		conditions: &weather.Conditions{
			City:        "Chennai",
			Condition:   "Clear sky",
			Temperature: &temp,
			Humidity:    &humidity,
		},
	}
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) GetCurrentConditions(_ context.Context, _, _ float64) (*weather.Conditions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	if m.err != nil {
		return nil, m.err
	}
	return m.conditions, nil
}

func (m *mockProvider) GetCityConditions(_ context.Context, city string) (*weather.Conditions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.cities = append(m.cities, city)
	if m.err != nil {
		return nil, m.err
	}
	return m.conditions, nil
}

func (m *mockProvider) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *mockProvider) getCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func newTestService(p weather.Provider, cfg weather.ServiceConfig) *weather.Service {
	cfg.Provider = p
	cfg.Logger = zerolog.Nop()
	return weather.NewService(cfg)
}

func TestService_GetCurrentConditions_Caches(t *testing.T) {
	provider := newMockProvider()
	service := newTestService(provider, weather.ServiceConfig{})
	ctx := context.Background()

	c1, err := service.GetCurrentConditions(ctx, 13.0674, 80.2430)
	require.NoError(t, err)
	c2, err := service.GetCurrentConditions(ctx, 13.0699, 80.2401) // same 0.1 degree cell
	require.NoError(t, err)

	assert.Equal(t, "Clear sky", c1.Condition)
	assert.Same(t, c1, c2)
	assert.Equal(t, 1, provider.getCallCount())
	assert.Equal(t, 1, service.CacheLen())
}

func TestService_GetCurrentConditions_DifferentCells(t *testing.T) {
	provider := newMockProvider()
	service := newTestService(provider, weather.ServiceConfig{})
	ctx := context.Background()

	_, _ = service.GetCurrentConditions(ctx, 13.0674, 80.2430)
	_, _ = service.GetCurrentConditions(ctx, 52.3676, 4.9041)

	assert.Equal(t, 2, provider.getCallCount())
}

func TestService_GetCurrentConditions_InvalidCoordinates(t *testing.T) {
	service := newTestService(newMockProvider(), weather.ServiceConfig{})

	_, err := service.GetCurrentConditions(context.Background(), 95, 0)
	assert.ErrorIs(t, err, weather.ErrInvalidCoordinates)
}

func TestService_StaleIfError(t *testing.T) {
	provider := newMockProvider()
	service := newTestService(provider, weather.ServiceConfig{
		CacheTTL:        20 * time.Millisecond,
		StaleIfErrorTTL: time.Minute,
	})
	ctx := context.Background()

	_, err := service.GetCurrentConditions(ctx, 13.0674, 80.2430)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	provider.setErr(weather.ErrProviderUnavailable)

	c, err := service.GetCurrentConditions(ctx, 13.0674, 80.2430)
	require.NoError(t, err)
	assert.Equal(t, "Clear sky", c.Condition)
	assert.Equal(t, 2, provider.getCallCount())
}

func TestService_ErrorWithoutCache(t *testing.T) {
	provider := newMockProvider()
	provider.setErr(weather.ErrProviderUnavailable)
	service := newTestService(provider, weather.ServiceConfig{})

	_, err := service.GetCurrentConditions(context.Background(), 13.0674, 80.2430)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestService_ConditionsOrDefault(t *testing.T) {
	provider := newMockProvider()
	provider.setErr(errors.New("upstream exploded"))
	service := newTestService(provider, weather.ServiceConfig{})

	c := service.ConditionsOrDefault(context.Background(), 13.0674, 80.2430)

	assert.Equal(t, weather.DefaultConditions(), c)
}

func TestService_ConditionsOrDefault_Success(t *testing.T) {
	service := newTestService(newMockProvider(), weather.ServiceConfig{})

	c := service.ConditionsOrDefault(context.Background(), 13.0674, 80.2430)

	assert.Equal(t, "Clear sky", c.Condition)
	require.NotNil(t, c.Temperature)
	assert.Equal(t, "31.2 °C", *c.Temperature)
}

func TestService_GetCityConditions(t *testing.T) {
	provider := newMockProvider()
	service := newTestService(provider, weather.ServiceConfig{})
	ctx := context.Background()

	_, err := service.GetCityConditions(ctx, "  chennai ")
	require.NoError(t, err)
	_, err = service.GetCityConditions(ctx, "CHENNAI")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.getCallCount())
	assert.Equal(t, []string{"Chennai"}, provider.cities)
}

func TestService_GetCityConditions_Empty(t *testing.T) {
	provider := newMockProvider()
	service := newTestService(provider, weather.ServiceConfig{})

	_, err := service.GetCityConditions(context.Background(), "   ")

	assert.ErrorIs(t, err, weather.ErrInvalidCity)
	assert.Equal(t, 0, provider.getCallCount())
}

func TestService_GetCityConditions_NotFoundPropagates(t *testing.T) {
	provider := newMockProvider()
	provider.setErr(weather.ErrCityNotFound)
	service := newTestService(provider, weather.ServiceConfig{})

	_, err := service.GetCityConditions(context.Background(), "Atlantis")

	assert.ErrorIs(t, err, weather.ErrCityNotFound)
}

func TestService_InvalidateCache(t *testing.T) {
	provider := newMockProvider()
	service := newTestService(provider, weather.ServiceConfig{})
	ctx := context.Background()

	_, _ = service.GetCurrentConditions(ctx, 13.0674, 80.2430)
	service.InvalidateCache()
	assert.Equal(t, 0, service.CacheLen())

	_, _ = service.GetCurrentConditions(ctx, 13.0674, 80.2430)
	assert.Equal(t, 2, provider.getCallCount())
}

func TestService_ConcurrentRequests(t *testing.T) {
	provider := newMockProvider()
	service := newTestService(provider, weather.ServiceConfig{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = service.ConditionsOrDefault(ctx, 13.0674, 80.2430)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, provider.getCallCount(), 20)
	assert.Equal(t, "mock", service.ProviderName())
}
