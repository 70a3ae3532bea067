package pricefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/prices", r.URL.Path)

		var req map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.ElementsMatch(t, []string{"token_yes", "token_no"}, req["asset_ids"])

		w.Header().Set("Content-Type", "application/json")
		// token_no has no quote
		_, _ = w.Write([]byte(`{"token_yes":"0.72"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())

	prices, err := client.GetPrices(context.Background(), []string{"token_yes", "token_no"})
	require.NoError(t, err)

	require.Len(t, prices, 1)
	assert.True(t, prices["token_yes"].Equal(decimal.RequireFromString("0.72")))
}

func TestGetPrices_EmptyRequest(t *testing.T) {
	client := NewClient("http://localhost:1", zerolog.Nop())

	prices, err := client.GetPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestGetPrices_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())

	_, err := client.GetPrices(context.Background(), []string{"token_yes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestGetPrices_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())

	_, err := client.GetPrices(context.Background(), []string{"token_yes"})
	assert.Error(t, err)
}
