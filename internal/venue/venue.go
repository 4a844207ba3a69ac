// Package venue talks to the external swap venues. Quotes come from each
// venue's public HTTP API; the quoted fill becomes the outcome reported to
// the ledger.
package venue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"botledger/internal/config"
	"botledger/internal/pkg/circuit"
)

const (
	Jupiter = "jupiter"
	Raydium = "raydium"
)

// ErrNoRoute means the venue answered but could not price the pair.
var ErrNoRoute = errors.New("venue returned no route")

type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	AmountIn    uint64
	SlippageBps uint16
}

// Quote is one venue's answer for a QuoteRequest.
type Quote struct {
	Venue      string `json:"venue"`
	InputMint  string `json:"input_mint"`
	OutputMint string `json:"output_mint"`
	AmountIn   uint64 `json:"amount_in"`
	AmountOut  uint64 `json:"amount_out"`
	// Threshold is the venue's own slippage-adjusted floor, zero if absent.
	Threshold      uint64 `json:"threshold"`
	PriceImpactPct string `json:"price_impact_pct,omitempty"`
	PoolID         string `json:"pool_id,omitempty"`
}

type Quoter interface {
	Name() string
	Quote(ctx context.Context, req QuoteRequest) (Quote, error)
}

// httpAPI is the transport shared by the venue clients.
type httpAPI struct {
	name       string
	baseURL    *url.URL
	httpClient *http.Client
	breaker    *circuit.CircuitBreaker
}

func newHTTPAPI(name string, cfg config.VenueConfig) (*httpAPI, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("venues.%s.base_url is required", name)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse venues.%s.base_url: %w", name, err)
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpAPI{
		name:       name,
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    circuit.NewCircuitBreaker(name, cfg.BreakerThreshold, cfg.BreakerCooldown()),
	}, nil
}

// get fetches path and returns the body once it parses as JSON. Transport
// errors, 5xx answers and garbage bodies count against the breaker.
func (a *httpAPI) get(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	endpoint := *a.baseURL
	endpoint.Path = strings.TrimSuffix(endpoint.Path, "/") + path
	endpoint.RawQuery = query.Encode()

	var (
		result    gjson.Result
		clientErr error
	)
	err := a.breaker.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := a.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("call %s: %w", a.name, err)
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("read %s response: %w", a.name, err)
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%s returned %s: %s", a.name, resp.Status, strings.TrimSpace(string(data)))
		}
		if !gjson.ValidBytes(data) {
			return fmt.Errorf("%s response is not valid JSON", a.name)
		}
		result = gjson.ParseBytes(data)
		if resp.StatusCode >= 300 {
			// the venue is healthy, the request is not
			clientErr = fmt.Errorf("%s returned %s: %s", a.name, resp.Status, errorMessage(result, resp.Status))
		}
		return nil
	})
	if err != nil {
		return gjson.Result{}, err
	}
	if clientErr != nil {
		return gjson.Result{}, clientErr
	}
	return result, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (a *httpAPI) SetHTTPClient(client *http.Client) {
	a.httpClient = client
}

// Breaker exposes the client's circuit breaker.
func (a *httpAPI) Breaker() *circuit.CircuitBreaker { return a.breaker }

func errorMessage(r gjson.Result, fallback string) string {
	for _, key := range []string{"error", "msg", "message"} {
		if v := r.Get(key); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return fallback
}

// amountField reads a u64 that venues encode as a decimal string.
func amountField(r gjson.Result, path string) (uint64, error) {
	v := r.Get(path)
	if !v.Exists() {
		return 0, fmt.Errorf("missing %s", path)
	}
	if v.Type == gjson.Number {
		return v.Uint(), nil
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return 0, fmt.Errorf("empty %s", path)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", path, s)
	}
	return n, nil
}

func quoteQuery(req QuoteRequest) url.Values {
	q := url.Values{}
	q.Set("inputMint", req.InputMint)
	q.Set("outputMint", req.OutputMint)
	q.Set("amount", strconv.FormatUint(req.AmountIn, 10))
	q.Set("slippageBps", strconv.FormatUint(uint64(req.SlippageBps), 10))
	return q
}
