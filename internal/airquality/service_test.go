package airquality_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoroute/ecoroute/internal/airquality"
)

// mockProvider is a mock air quality provider for testing.
type mockProvider struct {
	mu        sync.Mutex
	callCount int
	pollution *airquality.Pollution
	err       error
}

func newMockProvider(aqi int) *mockProvider {
	return &mockProvider{
		pollution: &airquality.Pollution{
			AirQualityIndex: aqi,
			Components:      map[string]float64{"no2": 12.4, "pm2_5": 8.1},
		},
	}
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) GetPollution(_ context.Context, _, _ float64) (*airquality.Pollution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	if m.err != nil {
		return nil, m.err
	}
	return m.pollution, nil
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

func newTestService(p airquality.Provider, cfg airquality.ServiceConfig) *airquality.Service {
	cfg.Provider = p
	cfg.Logger = zerolog.Nop()
	return airquality.NewService(cfg)
}

func TestPollution_Index(t *testing.T) {
	assert.Equal(t, 3, airquality.Pollution{}.Index())
	assert.Equal(t, 1, airquality.Pollution{AirQualityIndex: 1}.Index())
	assert.Equal(t, 5, airquality.Pollution{AirQualityIndex: 5}.Index())
}

func TestDefault(t *testing.T) {
	p := airquality.Default()

	assert.Equal(t, 3, p.AirQualityIndex)
	assert.NotNil(t, p.Components)
	assert.Empty(t, p.Components)
}

func TestService_GetPollution_Caches(t *testing.T) {
	provider := newMockProvider(2)
	service := newTestService(provider, airquality.ServiceConfig{})
	ctx := context.Background()

	p1, err := service.GetPollution(ctx, 13.0674, 80.2430)
	require.NoError(t, err)
	p2, err := service.GetPollution(ctx, 13.0674, 80.2430)
	require.NoError(t, err)

	assert.Equal(t, 2, p1.AirQualityIndex)
	assert.Same(t, p1, p2)
	assert.Equal(t, 1, provider.getCallCount())
	assert.Equal(t, 1, service.CacheLen())
}

func TestService_GetPollution_InvalidCoordinates(t *testing.T) {
	provider := newMockProvider(2)
	service := newTestService(provider, airquality.ServiceConfig{})

	_, err := service.GetPollution(context.Background(), 0, 181)

	assert.ErrorIs(t, err, airquality.ErrInvalidCoordinates)
	assert.Equal(t, 0, provider.getCallCount())
}

func TestService_StaleIfError(t *testing.T) {
	provider := newMockProvider(4)
	service := newTestService(provider, airquality.ServiceConfig{
		CacheTTL:        20 * time.Millisecond,
		StaleIfErrorTTL: time.Minute,
	})
	ctx := context.Background()

	_, err := service.GetPollution(ctx, 52.37, 4.89)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	provider.setErr(airquality.ErrProviderUnavailable)

	p, err := service.GetPollution(ctx, 52.37, 4.89)
	require.NoError(t, err)
	assert.Equal(t, 4, p.AirQualityIndex)
}

func TestService_ErrorWithoutCache(t *testing.T) {
	provider := newMockProvider(2)
	provider.setErr(airquality.ErrProviderUnavailable)
	service := newTestService(provider, airquality.ServiceConfig{})

	_, err := service.GetPollution(context.Background(), 52.37, 4.89)
	assert.ErrorIs(t, err, airquality.ErrProviderUnavailable)
}

func TestService_PollutionOrDefault(t *testing.T) {
	provider := newMockProvider(2)
	provider.setErr(airquality.ErrProviderUnavailable)
	service := newTestService(provider, airquality.ServiceConfig{})

	p := service.PollutionOrDefault(context.Background(), 52.37, 4.89)

	assert.Equal(t, airquality.Default(), p)
}

func TestService_PollutionOrDefault_Success(t *testing.T) {
	service := newTestService(newMockProvider(1), airquality.ServiceConfig{})

	p := service.PollutionOrDefault(context.Background(), 52.37, 4.89)

	assert.Equal(t, 1, p.AirQualityIndex)
	assert.InDelta(t, 12.4, p.Components["no2"], 0.001)
}

func TestService_InvalidateCache(t *testing.T) {
	provider := newMockProvider(2)
	service := newTestService(provider, airquality.ServiceConfig{})
	ctx := context.Background()

	_, _ = service.GetPollution(ctx, 52.37, 4.89)
	service.InvalidateCache()
	_, _ = service.GetPollution(ctx, 52.37, 4.89)

	assert.Equal(t, 2, provider.getCallCount())
	assert.Equal(t, "mock", service.ProviderName())
}
