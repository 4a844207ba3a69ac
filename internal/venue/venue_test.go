package venue

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botledger/internal/config"
	"botledger/internal/pkg/circuit"
)

func venueConfig(url string) config.VenueConfig {
	return config.VenueConfig{
		Enabled:                true,
		BaseURL:                url,
		TimeoutSeconds:         2,
		BreakerThreshold:       2,
		BreakerCooldownSeconds: 60,
	}
}

func TestJupiterQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v6/quote", r.URL.Path)
		assert.Equal(t, "mintIn", r.URL.Query().Get("inputMint"))
		assert.Equal(t, "mintOut", r.URL.Query().Get("outputMint"))
		assert.Equal(t, "1000", r.URL.Query().Get("amount"))
		assert.Equal(t, "50", r.URL.Query().Get("slippageBps"))
		assert.Equal(t, "20", r.URL.Query().Get("platformFeeBps"))
		_, _ = w.Write([]byte(`{"inputMint":"mintIn","inAmount":"1000","outputMint":"mintOut","outAmount":"1480","otherAmountThreshold":"1472","priceImpactPct":"0.001","routePlan":[]}`))
	}))
	defer srv.Close()

	cfg := venueConfig(srv.URL + "/v6")
	cfg.PlatformFeeBps = 20
	c, err := NewJupiterClient(cfg)
	require.NoError(t, err)

	q, err := c.Quote(context.Background(), QuoteRequest{InputMint: "mintIn", OutputMint: "mintOut", AmountIn: 1000, SlippageBps: 50})
	require.NoError(t, err)
	assert.Equal(t, Jupiter, q.Venue)
	assert.Equal(t, uint64(1480), q.AmountOut)
	assert.Equal(t, uint64(1472), q.Threshold)
	assert.Equal(t, "0.001", q.PriceImpactPct)
}

func TestJupiterNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Could not find any route","errorCode":"COULD_NOT_FIND_ANY_ROUTE"}`))
	}))
	defer srv.Close()

	c, err := NewJupiterClient(venueConfig(srv.URL))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = c.Quote(context.Background(), QuoteRequest{InputMint: "a", OutputMint: "b", AmountIn: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Could not find any route")
	}
	// client errors do not trip the breaker
	assert.Equal(t, circuit.StateClosed, c.Breaker().State())
}

func TestRaydiumQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/compute/swap-base-in", r.URL.Path)
		assert.Equal(t, "V0", r.URL.Query().Get("txVersion"))
		_, _ = w.Write([]byte(`{"id":"x","success":true,"version":"V1","data":{"swapType":"BaseIn","inputAmount":"500","outputAmount":"742","otherAmountThreshold":"738","priceImpactPct":0.02,"routePlan":[{"poolId":"58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2"}]}}`))
	}))
	defer srv.Close()

	c, err := NewRaydiumClient(venueConfig(srv.URL))
	require.NoError(t, err)
	q, err := c.Quote(context.Background(), QuoteRequest{InputMint: "a", OutputMint: "b", AmountIn: 500})
	require.NoError(t, err)
	assert.Equal(t, uint64(742), q.AmountOut)
	assert.Equal(t, uint64(738), q.Threshold)
	assert.Equal(t, "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2", q.PoolID)

	coin, pc := c.PoolAccounts(q)
	assert.Equal(t, q.PoolID, coin.String())
	assert.Equal(t, q.PoolID, pc.String())
}

func TestRaydiumFailureFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","success":false,"msg":"ROUTE_NOT_FOUND"}`))
	}))
	defer srv.Close()

	c, err := NewRaydiumClient(venueConfig(srv.URL))
	require.NoError(t, err)
	_, err = c.Quote(context.Background(), QuoteRequest{InputMint: "a", OutputMint: "b", AmountIn: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRoute))
	assert.Contains(t, err.Error(), "ROUTE_NOT_FOUND")
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewJupiterClient(venueConfig(srv.URL))
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	c.Breaker().SetClock(func() time.Time { return now })

	for i := 0; i < 2; i++ {
		_, err = c.Quote(context.Background(), QuoteRequest{AmountIn: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jupiter returned 502 Bad Gateway")
	}
	_, err = c.Quote(context.Background(), QuoteRequest{AmountIn: 1})
	assert.ErrorIs(t, err, circuit.ErrOpen)
	assert.Equal(t, 2, calls)
}

func TestAmountField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"outAmount":"12.5"}`))
	}))
	defer srv.Close()

	c, err := NewJupiterClient(venueConfig(srv.URL))
	require.NoError(t, err)
	_, err = c.Quote(context.Background(), QuoteRequest{AmountIn: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outAmount")
}

func TestSlippageFloor(t *testing.T) {
	assert.Equal(t, uint64(900), slippageFloor(Quote{AmountOut: 1000, Threshold: 900}, 50))
	assert.Equal(t, uint64(995), slippageFloor(Quote{AmountOut: 1000}, 50))
	assert.Equal(t, uint64(0), slippageFloor(Quote{AmountOut: 1000}, 20000))
	assert.Equal(t, uint64(1000), slippageFloor(Quote{AmountOut: 1000}, 0))
}
