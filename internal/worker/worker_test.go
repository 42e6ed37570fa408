package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoroute/ecoroute/internal/airquality"
	"github.com/ecoroute/ecoroute/internal/events"
	"github.com/ecoroute/ecoroute/internal/history"
	"github.com/ecoroute/ecoroute/internal/weather"
)

type mockWeather struct {
	mu    sync.Mutex
	calls []Point
	fail  map[Point]bool
}

func (m *mockWeather) GetCurrentConditions(_ context.Context, lat, lon float64) (*weather.Conditions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := Point{Lat: lat, Lon: lon}
	m.calls = append(m.calls, p)
	if m.fail[p] {
		return nil, weather.ErrProviderUnavailable
	}
	c := weather.DefaultConditions()
	return &c, nil
}

func (m *mockWeather) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockAirQuality struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockAirQuality) GetPollution(_ context.Context, _, _ float64) (*airquality.Pollution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	p := airquality.Default()
	return &p, nil
}

type mockRepo struct {
	mu      sync.Mutex
	records []history.Record
	err     error
}

func (m *mockRepo) Save(_ context.Context, rec history.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *mockRepo) Get(_ context.Context, id string) (*history.Record, error) {
	return nil, history.ErrRecordNotFound
}

func (m *mockRepo) List(_ context.Context, _ int) ([]history.Record, error) {
	return nil, nil
}

func TestDefaultWarmConfig(t *testing.T) {
	cfg := DefaultWarmConfig()

	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.WarmAirQuality)
	assert.True(t, cfg.WarmWeather)
	assert.Len(t, cfg.Targets, 5)
	assert.Equal(t, 9, cfg.TotalPoints())
	assert.Len(t, cfg.AllPoints(), cfg.TotalPoints())
	assert.Equal(t, Point{Lat: 13.0827, Lon: 80.2707}, cfg.AllPoints()[0])
}

func TestNewWarmJob_Defaults(t *testing.T) {
	job := NewWarmJob(WarmJobConfig{Logger: zerolog.Nop()})

	assert.Equal(t, 3, job.config.Concurrency)
	assert.Equal(t, 30*time.Second, job.config.Timeout)
	assert.Equal(t, 9, job.config.TotalPoints())
}

func TestWarmJob_Run(t *testing.T) {
	w := &mockWeather{}
	aq := &mockAirQuality{}
	job := NewWarmJob(WarmJobConfig{
		Config:     DefaultWarmConfig(),
		Logger:     zerolog.Nop(),
		Weather:    w,
		AirQuality: aq,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 9, result.TotalPoints)
	assert.Equal(t, 9, result.Successful)
	assert.Zero(t, result.Failed)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 9, w.callCount())
	assert.Equal(t, 9, aq.calls)

	stats := job.Stats()
	assert.Equal(t, int64(1), stats.TotalRuns)
	assert.Equal(t, int64(9), stats.SuccessfulWarms)
	assert.Equal(t, int64(9), stats.WeatherWarms)
	assert.Equal(t, int64(9), stats.AirQualityWarms)
	assert.False(t, stats.LastRunAt.IsZero())
}

func TestWarmJob_PartialFailure(t *testing.T) {
	bad := Point{Lat: 52.3676, Lon: 4.9041}
	w := &mockWeather{fail: map[Point]bool{bad: true}}
	job := NewWarmJob(WarmJobConfig{
		Config:  WarmConfig{WarmWeather: true},
		Logger:  zerolog.Nop(),
		Weather: w,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 8, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "weather", result.Errors[0].Provider)
	assert.Equal(t, bad, result.Errors[0].Point)
	assert.Equal(t, int64(1), job.Stats().FailedWarms)
}

func TestWarmJob_DisabledProviderSkipped(t *testing.T) {
	aq := &mockAirQuality{}
	job := NewWarmJob(WarmJobConfig{
		Config:     WarmConfig{WarmWeather: true},
		Logger:     zerolog.Nop(),
		AirQuality: aq,
	})

	result := job.RunPoints(context.Background(), []Point{{Lat: 1, Lon: 1}})

	assert.Equal(t, 1, result.Successful)
	assert.Zero(t, aq.calls)
}

func TestWarmJob_CancelledContext(t *testing.T) {
	w := &mockWeather{}
	job := NewWarmJob(WarmJobConfig{
		Config:  WarmConfig{WarmWeather: true},
		Logger:  zerolog.Nop(),
		Weather: w,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := job.Run(ctx)

	assert.Equal(t, 9, result.Failed)
	assert.Zero(t, w.callCount())
}

func TestWarmJob_StatsSnapshot(t *testing.T) {
	job := NewWarmJob(WarmJobConfig{Logger: zerolog.Nop()})
	job.RunPoints(context.Background(), []Point{{Lat: 1, Lon: 1}})

	snap := job.StatsSnapshot()
	assert.Equal(t, int64(1), snap["total_runs"])
	assert.Equal(t, int64(1), snap["successful_warms"])
	assert.Contains(t, snap, "last_run_duration")
}

func newTestProcessor(repo history.Repository, w *mockWeather, aq *mockAirQuality) *Processor {
	var job *WarmJob
	if w != nil || aq != nil {
		cfg := WarmJobConfig{Config: DefaultWarmConfig(), Logger: zerolog.Nop()}
		if w != nil {
			cfg.Weather = w
		}
		if aq != nil {
			cfg.AirQuality = aq
		}
		job = NewWarmJob(cfg)
	}
	return NewProcessor(ProcessorConfig{History: repo, Warm: job, Logger: zerolog.Nop()})
}

func TestProcessor_PlanCompleted(t *testing.T) {
	repo := &mockRepo{}
	p := newTestProcessor(repo, nil, nil)

	err := p.Process(context.Background(), events.PlanCompleted(history.Record{ID: "plan-1", BestMode: "foot-walking"}))

	require.NoError(t, err)
	require.Len(t, repo.records, 1)
	assert.Equal(t, "plan-1", repo.records[0].ID)
}

func TestProcessor_PlanCompletedSaveFails(t *testing.T) {
	repo := &mockRepo{err: errors.New("connection reset")}
	p := newTestProcessor(repo, nil, nil)

	err := p.Process(context.Background(), events.PlanCompleted(history.Record{ID: "plan-1"}))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan-1")
}

func TestProcessor_PlanCompletedWithoutPlan(t *testing.T) {
	p := newTestProcessor(&mockRepo{}, nil, nil)

	err := p.Process(context.Background(), events.Message{JobType: events.JobPlanCompleted})

	assert.ErrorIs(t, err, events.ErrMissingPlan)
}

func TestProcessor_CacheWarm(t *testing.T) {
	t.Run("first target only", func(t *testing.T) {
		w := &mockWeather{}
		p := newTestProcessor(nil, w, &mockAirQuality{})

		require.NoError(t, p.Process(context.Background(), events.Message{JobType: events.JobCacheWarm}))
		assert.Equal(t, 3, w.callCount())
	})

	t.Run("refresh all", func(t *testing.T) {
		w := &mockWeather{}
		p := newTestProcessor(nil, w, &mockAirQuality{})

		require.NoError(t, p.Process(context.Background(), events.Message{JobType: events.JobCacheWarm, RefreshAll: true}))
		assert.Equal(t, 9, w.callCount())
	})

	t.Run("mostly failing", func(t *testing.T) {
		aq := &mockAirQuality{err: airquality.ErrProviderUnavailable}
		p := newTestProcessor(nil, &mockWeather{}, aq)

		err := p.Process(context.Background(), events.Message{JobType: events.JobCacheWarm})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "3/3")
	})

	t.Run("no warm job configured", func(t *testing.T) {
		p := newTestProcessor(nil, nil, nil)
		assert.NoError(t, p.Process(context.Background(), events.Message{JobType: events.JobCacheWarm}))
	})
}

func TestProcessor_HealthCheck(t *testing.T) {
	w := &mockWeather{}
	p := newTestProcessor(nil, w, &mockAirQuality{})
	require.NoError(t, p.Process(context.Background(), events.Message{JobType: events.JobHealthCheck}))
	assert.Equal(t, 1, w.callCount())

	failing := newTestProcessor(nil, &mockWeather{fail: map[Point]bool{healthCheckPoint: true}}, nil)
	assert.Error(t, failing.Process(context.Background(), events.Message{JobType: events.JobHealthCheck}))
}

func TestProcessor_UnknownJob(t *testing.T) {
	p := newTestProcessor(nil, nil, nil)

	err := p.Process(context.Background(), events.Message{JobType: "reindex"})

	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestPubSubHandler_Handle(t *testing.T) {
	repo := &mockRepo{}
	h := &PubSubHandler{
		processor: newTestProcessor(repo, nil, nil),
		logger:    zerolog.Nop(),
	}
	ctx := context.Background()
	log := zerolog.Nop()

	data, err := events.Encode(events.PlanCompleted(history.Record{ID: "plan-2"}))
	require.NoError(t, err)

	assert.Equal(t, outcomeAck, h.handle(ctx, log, data))
	assert.Len(t, repo.records, 1)

	assert.Equal(t, outcomeDiscard, h.handle(ctx, log, []byte("{not json")), "malformed payloads are dropped")
	assert.Equal(t, outcomeDiscard, h.handle(ctx, log, []byte(`{"job_type":"reindex"}`)), "unknown jobs are dropped")

	repo.err = errors.New("db down")
	assert.Equal(t, outcomeNack, h.handle(ctx, log, data), "failed jobs are redelivered")

	assert.Equal(t, PubSubStats{Acked: 1, Redelivered: 1, Dropped: 2}, h.Stats())
}
