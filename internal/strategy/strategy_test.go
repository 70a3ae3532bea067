package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmallord/costbook/internal/clients/exchange"
)

type stubStrategy struct {
	name       string
	signals    *Signals
	analyzeErr error
	fills      []*exchange.Fill
	executeErr error
	executed   bool
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Analyze(ctx context.Context) (*Signals, error) {
	return s.signals, s.analyzeErr
}

func (s *stubStrategy) Execute(ctx context.Context, signals *Signals) ([]*exchange.Fill, error) {
	s.executed = true
	return s.fills, s.executeErr
}

func TestRunner_NoSignalsSkipsExecute(t *testing.T) {
	stub := &stubStrategy{name: "stub", signals: &Signals{Action: "none"}}
	runner := NewRunner(stub, zerolog.Nop())

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "no_action", result.Status)
	assert.Empty(t, result.Fills)
	assert.False(t, stub.executed)
}

func TestRunner_ActionableSignalsExecute(t *testing.T) {
	fill := &exchange.Fill{OrderID: "abc", Status: exchange.StatusFilled}
	stub := &stubStrategy{
		name:    "stub",
		signals: &Signals{Action: "buy"},
		fills:   []*exchange.Fill{fill},
	}
	runner := NewRunner(stub, zerolog.Nop())

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "success", result.Status)
	require.Len(t, result.Fills, 1)
	assert.Equal(t, "abc", result.Fills[0].OrderID)
	assert.True(t, stub.executed)
}

func TestRunner_AnalyzeFailure(t *testing.T) {
	stub := &stubStrategy{name: "stub", analyzeErr: errors.New("feed down")}
	runner := NewRunner(stub, zerolog.Nop())

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed down")
	assert.False(t, stub.executed)
}

func TestRunner_ExecuteFailure(t *testing.T) {
	stub := &stubStrategy{
		name:       "stub",
		signals:    &Signals{Action: "buy"},
		executeErr: errors.New("venue rejected"),
	}
	runner := NewRunner(stub, zerolog.Nop())

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "venue rejected")
}

func TestHoldStrategy_NeverSignals(t *testing.T) {
	client := exchange.NewPaperClient(decimal.Zero, true, zerolog.Nop())
	hold := NewHoldStrategy(client, zerolog.Nop())
	runner := NewRunner(hold, zerolog.Nop())

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "no_action", result.Status)
	assert.Empty(t, result.Fills)
}

func TestHoldStrategy_ExecutePlacesValidOpportunities(t *testing.T) {
	client := exchange.NewPaperClient(decimal.Zero, true, zerolog.Nop())
	hold := NewHoldStrategy(client, zerolog.Nop())

	fills, err := hold.Execute(context.Background(), &Signals{
		Action: "buy",
		Opportunities: []map[string]interface{}{
			{
				"asset_id": "token_yes",
				"side":     "long",
				"type":     "buy",
				"quantity": "10",
				"price":    "0.50",
			},
			{
				// malformed, skipped
				"asset_id": "token_no",
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, fills, 1)
	assert.Equal(t, exchange.StatusFilled, fills[0].Status)
	assert.Equal(t, "token_yes", fills[0].AssetID)
}
