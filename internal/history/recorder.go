package history

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ecoroute/ecoroute/internal/planner"
)

// Publisher hands a record to an asynchronous consumer instead of storing it directly.
type Publisher interface {
	PublishPlanCompleted(ctx context.Context, rec Record) error
}

// RecorderConfig holds configuration for the recorder.
type RecorderConfig struct {
	Repository Repository
	// Publisher, when set, is preferred over writing to Repository.
	Publisher Publisher
	// SaveLocally also writes published records to Repository. Set it when
	// the consumer persists elsewhere and Repository is process-local.
	SaveLocally bool
	Logger      zerolog.Logger
}

// Recorder records completed plans. Recording never fails a plan: errors are logged.
type Recorder struct {
	repo        Repository
	publisher   Publisher
	saveLocally bool
	logger      zerolog.Logger
}

// NewRecorder creates a recorder.
func NewRecorder(cfg RecorderConfig) *Recorder {
	return &Recorder{
		repo:        cfg.Repository,
		publisher:   cfg.Publisher,
		saveLocally: cfg.SaveLocally,
		logger:      cfg.Logger,
	}
}

// Record stores or publishes a summary of the plan.
func (r *Recorder) Record(ctx context.Context, result *planner.Result) {
	if r == nil || result == nil {
		return
	}
	rec := FromResult(result)

	if r.publisher != nil {
		if err := r.publisher.PublishPlanCompleted(ctx, rec); err != nil {
			r.logger.Warn().Err(err).
				Str("plan_id", rec.ID).
				Msg("failed to publish plan history")
		}
		if !r.saveLocally {
			return
		}
	}
	if r.repo == nil {
		return
	}
	if err := r.repo.Save(ctx, rec); err != nil {
		r.logger.Warn().Err(err).
			Str("plan_id", rec.ID).
			Msg("failed to record plan history")
	}
}

// Recent lists the most recent records. It returns an empty list when no repository is configured.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Record, error) {
	if r == nil || r.repo == nil {
		return []Record{}, nil
	}
	return r.repo.List(ctx, limit)
}
