package venue

import (
	"context"
	"fmt"

	"botledger/internal/config"
	"botledger/internal/ledger"
)

// RaydiumClient quotes against the Raydium trade API
// (`GET /compute/swap-base-in`).
type RaydiumClient struct {
	*httpAPI
	poolCoin ledger.PublicKey
	poolPc   ledger.PublicKey
}

func NewRaydiumClient(cfg config.VenueConfig) (*RaydiumClient, error) {
	api, err := newHTTPAPI(Raydium, cfg)
	if err != nil {
		return nil, err
	}
	c := &RaydiumClient{httpAPI: api}
	if cfg.PoolCoinTokenAccount != "" {
		if c.poolCoin, err = ledger.PublicKeyFromBase58(cfg.PoolCoinTokenAccount); err != nil {
			return nil, fmt.Errorf("venues.raydium.pool_coin_token_account: %w", err)
		}
	}
	if cfg.PoolPcTokenAccount != "" {
		if c.poolPc, err = ledger.PublicKeyFromBase58(cfg.PoolPcTokenAccount); err != nil {
			return nil, fmt.Errorf("venues.raydium.pool_pc_token_account: %w", err)
		}
	}
	return c, nil
}

func (c *RaydiumClient) Name() string { return Raydium }

func (c *RaydiumClient) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	q := quoteQuery(req)
	q.Set("txVersion", "V0")
	res, err := c.get(ctx, "/compute/swap-base-in", q)
	if err != nil {
		return Quote{}, err
	}
	if !res.Get("success").Bool() {
		return Quote{}, fmt.Errorf("%w: %s", ErrNoRoute, errorMessage(res, "success=false"))
	}
	data := res.Get("data")
	out, err := amountField(data, "outputAmount")
	if err != nil {
		return Quote{}, fmt.Errorf("parse raydium quote: %w", err)
	}
	quote := Quote{
		Venue:          Raydium,
		InputMint:      req.InputMint,
		OutputMint:     req.OutputMint,
		AmountIn:       req.AmountIn,
		AmountOut:      out,
		PriceImpactPct: data.Get("priceImpactPct").String(),
		PoolID:         data.Get("routePlan.0.poolId").String(),
	}
	if th, err := amountField(data, "otherAmountThreshold"); err == nil {
		quote.Threshold = th
	}
	return quote, nil
}

// PoolAccounts returns the vault accounts recorded in raydium_swap params.
// Unconfigured vaults fall back to the quoted pool id.
func (c *RaydiumClient) PoolAccounts(q Quote) (coin, pc ledger.PublicKey) {
	coin, pc = c.poolCoin, c.poolPc
	if (coin.IsZero() || pc.IsZero()) && q.PoolID != "" {
		if pool, err := ledger.PublicKeyFromBase58(q.PoolID); err == nil {
			if coin.IsZero() {
				coin = pool
			}
			if pc.IsZero() {
				pc = pool
			}
		}
	}
	return coin, pc
}
