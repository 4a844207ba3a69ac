package venue

import (
	"context"
	"fmt"

	"botledger/internal/config"
)

// JupiterClient quotes against the Jupiter swap API (`GET /quote`).
type JupiterClient struct {
	*httpAPI
	platformFeeBps uint16
}

func NewJupiterClient(cfg config.VenueConfig) (*JupiterClient, error) {
	api, err := newHTTPAPI(Jupiter, cfg)
	if err != nil {
		return nil, err
	}
	return &JupiterClient{httpAPI: api, platformFeeBps: cfg.PlatformFeeBps}, nil
}

func (c *JupiterClient) Name() string { return Jupiter }

// PlatformFeeBps is forwarded in jupiter_swap params.
func (c *JupiterClient) PlatformFeeBps() uint16 { return c.platformFeeBps }

func (c *JupiterClient) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	q := quoteQuery(req)
	if c.platformFeeBps > 0 {
		q.Set("platformFeeBps", fmt.Sprintf("%d", c.platformFeeBps))
	}
	res, err := c.get(ctx, "/quote", q)
	if err != nil {
		return Quote{}, err
	}
	if msg := res.Get("error"); msg.Exists() {
		return Quote{}, fmt.Errorf("%w: %s", ErrNoRoute, msg.String())
	}
	out, err := amountField(res, "outAmount")
	if err != nil {
		return Quote{}, fmt.Errorf("parse jupiter quote: %w", err)
	}
	quote := Quote{
		Venue:          Jupiter,
		InputMint:      req.InputMint,
		OutputMint:     req.OutputMint,
		AmountIn:       req.AmountIn,
		AmountOut:      out,
		PriceImpactPct: res.Get("priceImpactPct").String(),
	}
	if th, err := amountField(res, "otherAmountThreshold"); err == nil {
		quote.Threshold = th
	}
	return quote, nil
}
