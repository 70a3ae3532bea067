package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jmallord/costbook/internal/clients/pricefeed"
	"github.com/jmallord/costbook/internal/modules/portfolio"
)

// PriceRefreshJob pulls current prices from the feed and revalues the
// portfolio's open positions.
type PriceRefreshJob struct {
	service       *portfolio.Service
	feed          *pricefeed.Client
	portfolioName string
	log           zerolog.Logger
}

// NewPriceRefreshJob creates a new PriceRefreshJob
func NewPriceRefreshJob(service *portfolio.Service, feed *pricefeed.Client, portfolioName string, log zerolog.Logger) *PriceRefreshJob {
	return &PriceRefreshJob{
		service:       service,
		feed:          feed,
		portfolioName: portfolioName,
		log:           log.With().Str("job", "price_refresh").Logger(),
	}
}

// Name returns the job name
func (j *PriceRefreshJob) Name() string {
	return "price_refresh"
}

// Run fetches prices for every open position and applies them. A portfolio
// with no open positions is still revalued so cash-only totals stay fresh.
func (j *PriceRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	p, err := j.service.GetPortfolio(j.portfolioName)
	if err != nil {
		return err
	}
	if p == nil {
		j.log.Warn().Str("portfolio", j.portfolioName).Msg("Portfolio not found, skipping refresh")
		return nil
	}

	assetIDs, err := j.service.OpenAssetIDs(p)
	if err != nil {
		return err
	}

	quotes, err := j.feed.GetPrices(ctx, assetIDs)
	if err != nil {
		return err
	}

	updated, err := j.service.UpdatePositionPrices(p, quotes)
	if err != nil {
		return err
	}

	j.log.Info().
		Int("assets", len(assetIDs)).
		Int("quoted", len(quotes)).
		Str("total_value", updated.TotalValue.String()).
		Msg("Portfolio prices refreshed")

	return nil
}
