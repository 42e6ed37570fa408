package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ecoroute/ecoroute/internal/events"
	"github.com/ecoroute/ecoroute/internal/history"
)

// ErrUnknownJob is returned for messages with an unrecognised job type.
var ErrUnknownJob = errors.New("unknown job type")

// healthCheckPoint is warmed by health_check jobs to verify provider connectivity.
var healthCheckPoint = Point{Lat: 13.0827, Lon: 80.2707}

// ProcessorConfig holds configuration for the job processor.
type ProcessorConfig struct {
	History history.Repository
	Warm    *WarmJob
	Logger  zerolog.Logger
}

// Processor executes decoded job messages.
type Processor struct {
	history history.Repository
	warm    *WarmJob
	logger  zerolog.Logger
}

// NewProcessor creates a job processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	return &Processor{
		history: cfg.History,
		warm:    cfg.Warm,
		logger:  cfg.Logger,
	}
}

// Process runs one job. A returned error means the message should be redelivered,
// except for ErrUnknownJob.
func (p *Processor) Process(ctx context.Context, m events.Message) error {
	switch m.JobType {
	case events.JobPlanCompleted:
		return p.handlePlanCompleted(ctx, m)
	case events.JobCacheWarm:
		return p.handleCacheWarm(ctx, m)
	case events.JobHealthCheck:
		return p.handleHealthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, m.JobType)
	}
}

func (p *Processor) handlePlanCompleted(ctx context.Context, m events.Message) error {
	if m.Plan == nil {
		return events.ErrMissingPlan
	}
	if p.history == nil {
		p.logger.Warn().Str("plan_id", m.Plan.ID).Msg("no history repository configured, dropping plan record")
		return nil
	}
	if err := p.history.Save(ctx, *m.Plan); err != nil {
		return fmt.Errorf("saving plan %s: %w", m.Plan.ID, err)
	}
	p.logger.Debug().Str("plan_id", m.Plan.ID).Msg("plan record stored")
	return nil
}

func (p *Processor) handleCacheWarm(ctx context.Context, m events.Message) error {
	if p.warm == nil {
		return nil
	}

	var result *WarmResult
	if m.RefreshAll {
		result = p.warm.Run(ctx)
	} else {
		result = p.warm.RunPoints(ctx, p.warm.config.Targets[0].Points)
	}

	// Consider it successful if at least half succeeded.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many warm-up failures: %d/%d", result.Failed, result.TotalPoints)
	}
	return nil
}

func (p *Processor) handleHealthCheck(ctx context.Context) error {
	if p.warm == nil {
		return nil
	}

	result := p.warm.RunPoints(ctx, []Point{healthCheckPoint})
	if result.Failed > 0 {
		return fmt.Errorf("health check failed: %d errors", result.Failed)
	}

	p.logger.Debug().Msg("health check passed")
	return nil
}
