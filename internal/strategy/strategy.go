// Package strategy defines the trading strategy interface and the runner
// that drives the analyze/execute cycle.
package strategy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jmallord/costbook/internal/clients/exchange"
)

// Signals is the output of a strategy's analysis pass.
type Signals struct {
	Action          string                   `json:"action"`
	MarketsAnalyzed int                      `json:"markets_analyzed"`
	Opportunities   []map[string]interface{} `json:"opportunities"`
}

// Strategy analyzes markets and places orders based on its signals.
type Strategy interface {
	Name() string
	Analyze(ctx context.Context) (*Signals, error)
	Execute(ctx context.Context, signals *Signals) ([]*exchange.Fill, error)
}

// Result summarizes one strategy cycle.
type Result struct {
	Status  string           `json:"status"`
	Signals *Signals         `json:"signals,omitempty"`
	Fills   []*exchange.Fill `json:"fills"`
}

// Runner drives the full analyze/execute cycle for a strategy.
type Runner struct {
	strategy Strategy
	log      zerolog.Logger
}

// NewRunner creates a runner for the given strategy.
func NewRunner(strategy Strategy, log zerolog.Logger) *Runner {
	return &Runner{
		strategy: strategy,
		log:      log.With().Str("component", "strategy_runner").Str("strategy", strategy.Name()).Logger(),
	}
}

// Run executes one full cycle. A strategy that produces no actionable
// signals yields a no_action result with no fills.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.log.Info().Msg("Strategy run started")

	signals, err := r.strategy.Analyze(ctx)
	if err != nil {
		return nil, fmt.Errorf("analysis failed for %s: %w", r.strategy.Name(), err)
	}

	if signals == nil || signals.Action == "" || signals.Action == "none" {
		r.log.Info().Msg("No signals generated")
		return &Result{Status: "no_action", Signals: signals, Fills: nil}, nil
	}

	fills, err := r.strategy.Execute(ctx, signals)
	if err != nil {
		return nil, fmt.Errorf("execution failed for %s: %w", r.strategy.Name(), err)
	}

	r.log.Info().
		Str("action", signals.Action).
		Int("fills", len(fills)).
		Msg("Strategy run complete")

	return &Result{Status: "success", Signals: signals, Fills: fills}, nil
}
