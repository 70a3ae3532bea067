// Package pricefeed fetches current asset prices from an HTTP endpoint.
package pricefeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Client is an HTTP price feed client. The endpoint is expected to return
// a JSON object mapping asset ids to prices.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new price feed client
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "pricefeed").Logger(),
	}
}

// GetPrices fetches current prices for the given asset ids. Assets the
// feed does not know are absent from the returned map.
func (c *Client) GetPrices(ctx context.Context, assetIDs []string) (map[string]decimal.Decimal, error) {
	if len(assetIDs) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	payload, err := json.Marshal(map[string][]string{"asset_ids": assetIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to encode price request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prices", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("price feed returned status %d: %s", resp.StatusCode, string(body))
	}

	var raw map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse price response: %w", err)
	}

	c.log.Debug().
		Int("requested", len(assetIDs)).
		Int("returned", len(raw)).
		Msg("Fetched prices")

	return raw, nil
}
