package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecoroute/ecoroute/internal/airquality"
	"github.com/ecoroute/ecoroute/internal/weather"
)

// WeatherSource is the weather lookup warmed by the job.
type WeatherSource interface {
	GetCurrentConditions(ctx context.Context, lat, lon float64) (*weather.Conditions, error)
}

// AirQualitySource is the air quality lookup warmed by the job.
type AirQualitySource interface {
	GetPollution(ctx context.Context, lat, lon float64) (*airquality.Pollution, error)
}

// WarmJob pre-fetches destination conditions so plans hit warm caches.
type WarmJob struct {
	config WarmConfig
	logger zerolog.Logger

	// Services (optional, nil if not configured)
	weather    WeatherSource
	airQuality AirQualitySource

	statsMu sync.RWMutex
	stats   WarmStats
}

// WarmStats tracks warm-up job statistics.
type WarmStats struct {
	TotalRuns       int64
	SuccessfulWarms int64
	FailedWarms     int64
	WeatherWarms    int64
	AirQualityWarms int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
}

// WarmJobConfig holds configuration for creating a WarmJob.
type WarmJobConfig struct {
	Config     WarmConfig
	Logger     zerolog.Logger
	Weather    WeatherSource
	AirQuality AirQualitySource
}

// NewWarmJob creates a new cache warm-up job.
func NewWarmJob(cfg WarmJobConfig) *WarmJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config.Targets = DefaultWarmTargets()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &WarmJob{
		config:     config,
		logger:     cfg.Logger,
		weather:    cfg.Weather,
		airQuality: cfg.AirQuality,
	}
}

// WarmResult contains the result of a warm-up run.
type WarmResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalPoints int
	Successful  int
	Failed      int
	Errors      []WarmError
}

// WarmError represents an error while warming one point.
type WarmError struct {
	Provider string
	Point    Point
	Error    string
}

// Run warms every configured point using a fixed pool of workers.
func (j *WarmJob) Run(ctx context.Context) *WarmResult {
	return j.run(ctx, j.config.AllPoints())
}

// RunPoints warms only the given points.
func (j *WarmJob) RunPoints(ctx context.Context, points []Point) *WarmResult {
	return j.run(ctx, points)
}

func (j *WarmJob) run(ctx context.Context, points []Point) *WarmResult {
	startTime := time.Now()
	result := &WarmResult{
		StartTime:   startTime,
		TotalPoints: len(points),
	}

	j.logger.Info().
		Int("total_points", result.TotalPoints).
		Int("concurrency", j.config.Concurrency).
		Msg("starting cache warm-up")

	pointsChan := make(chan Point, len(points))
	resultsChan := make(chan pointResult, len(points))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.warmWorker(ctx, pointsChan, resultsChan)
		}()
	}

	for _, p := range points {
		pointsChan <- p
	}
	close(pointsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for pr := range resultsChan {
		if pr.success {
			result.Successful++
		} else {
			result.Failed++
		}
		result.Errors = append(result.Errors, pr.errors...)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateStats(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("cache warm-up completed")

	return result
}

type pointResult struct {
	success bool
	errors  []WarmError
}

func (j *WarmJob) warmWorker(ctx context.Context, points <-chan Point, results chan<- pointResult) {
	for point := range points {
		select {
		case <-ctx.Done():
			results <- pointResult{errors: []WarmError{{Provider: "worker", Point: point, Error: ctx.Err().Error()}}}
		default:
			results <- j.warmPoint(ctx, point)
		}
	}
}

func (j *WarmJob) warmPoint(ctx context.Context, point Point) pointResult {
	result := pointResult{success: true}

	pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if j.config.WarmAirQuality && j.airQuality != nil {
		if _, err := j.airQuality.GetPollution(pointCtx, point.Lat, point.Lon); err != nil {
			result.errors = append(result.errors, WarmError{Provider: "airquality", Point: point, Error: err.Error()})
			result.success = false
		} else {
			atomic.AddInt64(&j.stats.AirQualityWarms, 1)
		}
	}

	if j.config.WarmWeather && j.weather != nil {
		if _, err := j.weather.GetCurrentConditions(pointCtx, point.Lat, point.Lon); err != nil {
			result.errors = append(result.errors, WarmError{Provider: "weather", Point: point, Error: err.Error()})
			result.success = false
		} else {
			atomic.AddInt64(&j.stats.WeatherWarms, 1)
		}
	}

	return result
}

func (j *WarmJob) updateStats(result *WarmResult) {
	j.statsMu.Lock()
	defer j.statsMu.Unlock()

	j.stats.TotalRuns++
	j.stats.SuccessfulWarms += int64(result.Successful)
	j.stats.FailedWarms += int64(result.Failed)
	j.stats.LastRunAt = result.EndTime
	j.stats.LastRunDuration = result.Duration
}

// Stats returns a copy of the current statistics.
func (j *WarmJob) Stats() WarmStats {
	j.statsMu.RLock()
	defer j.statsMu.RUnlock()

	return WarmStats{
		TotalRuns:       j.stats.TotalRuns,
		SuccessfulWarms: j.stats.SuccessfulWarms,
		FailedWarms:     j.stats.FailedWarms,
		WeatherWarms:    atomic.LoadInt64(&j.stats.WeatherWarms),
		AirQualityWarms: atomic.LoadInt64(&j.stats.AirQualityWarms),
		LastRunAt:       j.stats.LastRunAt,
		LastRunDuration: j.stats.LastRunDuration,
	}
}

// StatsSnapshot returns the statistics as a map for JSON health output.
func (j *WarmJob) StatsSnapshot() map[string]interface{} {
	s := j.Stats()
	return map[string]interface{}{
		"total_runs":        s.TotalRuns,
		"successful_warms":  s.SuccessfulWarms,
		"failed_warms":      s.FailedWarms,
		"weather_warms":     s.WeatherWarms,
		"airquality_warms":  s.AirQualityWarms,
		"last_run_at":       s.LastRunAt,
		"last_run_duration": s.LastRunDuration.String(),
	}
}
