package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jmallord/costbook/internal/strategy"
)

// StrategyCycleJob runs one analyze/execute cycle of the configured
// strategy on each tick.
type StrategyCycleJob struct {
	runner *strategy.Runner
	log    zerolog.Logger
}

// NewStrategyCycleJob creates a new StrategyCycleJob
func NewStrategyCycleJob(runner *strategy.Runner, log zerolog.Logger) *StrategyCycleJob {
	return &StrategyCycleJob{
		runner: runner,
		log:    log.With().Str("job", "strategy_cycle").Logger(),
	}
}

// Name returns the job name
func (j *StrategyCycleJob) Name() string {
	return "strategy_cycle"
}

// Run executes one strategy cycle
func (j *StrategyCycleJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := j.runner.Run(ctx)
	if err != nil {
		return err
	}

	j.log.Info().
		Str("status", result.Status).
		Int("fills", len(result.Fills)).
		Msg("Strategy cycle completed")

	return nil
}
