package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"botledger/internal/config"
	"botledger/internal/ledger"
	"botledger/internal/logger"
	"botledger/internal/processor"
	"botledger/internal/venue"
)

// Ledger is what the keeper submits to.
type Ledger interface {
	Submit(ctx context.Context, tx *ledger.Transaction) (processor.Receipt, error)
	Bot(ctx context.Context, authority ledger.PublicKey) (ledger.PublicKey, *ledger.BotRecord, error)
}

type Swapper interface {
	Swap(ctx context.Context, signer ledger.Keypair, req venue.SwapRequest) (venue.SwapResult, error)
}

// TickResult summarises one keeper round.
type TickResult struct {
	Skipped  string
	Signal   ledger.Signal
	CanTrade bool
	Swap     *venue.SwapResult
}

// Keeper runs one bot: every interval it prices the pair, submits
// update_price and check_strategy, and with auto_trade on routes a swap
// when both agree.
type Keeper struct {
	cfg     config.KeeperConfig
	signer  ledger.Keypair
	prices  PriceSource
	ledger  Ledger
	swapper Swapper

	missingLogged bool
}

func NewKeeper(cfg config.KeeperConfig, signer ledger.Keypair, prices PriceSource, led Ledger, swapper Swapper) *Keeper {
	return &Keeper{cfg: cfg, signer: signer, prices: prices, ledger: led, swapper: swapper}
}

// Run ticks until ctx is cancelled. Tick errors are logged, never fatal.
func (k *Keeper) Run(ctx context.Context) error {
	interval := k.cfg.Interval()
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger.Infof("keeper started: authority=%s pair=%s/%s interval=%s auto_trade=%v",
		k.signer.PublicKey(), k.cfg.SymbolA, k.cfg.SymbolB, interval, k.cfg.AutoTrade)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := k.Tick(ctx); err != nil && ctx.Err() == nil {
			logger.Warnf("keeper tick failed: %v", err)
		}
		select {
		case <-ctx.Done():
			logger.Infof("keeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (k *Keeper) Tick(ctx context.Context) (TickResult, error) {
	authority := k.signer.PublicKey()
	addr, rec, err := k.ledger.Bot(ctx, authority)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		if !k.missingLogged {
			logger.Infof("keeper: no bot initialized for %s yet, waiting", authority)
			k.missingLogged = true
		}
		return TickResult{Skipped: "bot not initialized"}, nil
	}
	if err != nil {
		return TickResult{}, err
	}
	k.missingLogged = false
	if !rec.IsActive {
		return TickResult{Skipped: "bot paused"}, nil
	}

	obs, err := k.observe(ctx)
	if err != nil {
		return TickResult{}, err
	}
	var res TickResult
	if err := k.submit(ctx, ledger.InstrUpdatePrice, addr, obs, &res.Signal); err != nil {
		return res, err
	}
	var check processor.CheckResult
	if err := k.submit(ctx, ledger.InstrCheckStrategy, addr, nil, &check); err != nil {
		return res, err
	}
	res.CanTrade = check.CanTrade
	logger.Debugf("keeper: ratio=%s signal=%s can_trade=%v",
		ledger.FormatRatio(res.Signal.Ratio), res.Signal.Kind, res.CanTrade)

	if !k.cfg.AutoTrade || !res.CanTrade || k.swapper == nil {
		return res, nil
	}
	dir, ok := direction(res.Signal.Kind)
	if !ok {
		return res, nil
	}
	swap, err := k.swapper.Swap(ctx, k.signer, venue.SwapRequest{Venue: k.cfg.Venue, Direction: dir})
	if err != nil {
		return res, fmt.Errorf("auto swap: %w", err)
	}
	res.Swap = &swap
	return res, nil
}

// direction maps a signal to a swap. An arbitrage opportunity buys token_a.
func direction(kind ledger.SignalKind) (ledger.TradeType, bool) {
	switch kind {
	case ledger.SignalBuy, ledger.SignalOpportunity:
		return ledger.Buy, true
	case ledger.SignalSell:
		return ledger.Sell, true
	default:
		return 0, false
	}
}

func (k *Keeper) observe(ctx context.Context) (ledger.PriceObservation, error) {
	px, err := k.prices.Prices(ctx, k.cfg.SymbolA, k.cfg.SymbolB)
	if err != nil {
		return ledger.PriceObservation{}, err
	}
	a, err := ToUnits(px[k.cfg.SymbolA], k.cfg.PriceDecimals)
	if err != nil {
		return ledger.PriceObservation{}, fmt.Errorf("%s: %w", k.cfg.SymbolA, err)
	}
	b, err := ToUnits(px[k.cfg.SymbolB], k.cfg.PriceDecimals)
	if err != nil {
		return ledger.PriceObservation{}, fmt.Errorf("%s: %w", k.cfg.SymbolB, err)
	}
	return ledger.PriceObservation{
		TokenAPrice: a,
		TokenBPrice: b,
		Timestamp:   time.Now().Unix(),
		Confidence:  100,
	}, nil
}

func (k *Keeper) submit(ctx context.Context, instr ledger.InstructionType, addr ledger.PublicKey, params any, out any) error {
	tx, err := ledger.NewTransaction(instr, k.signer.PublicKey(), addr, params)
	if err != nil {
		return err
	}
	tx.Sign(k.signer)
	receipt, err := k.ledger.Submit(ctx, tx)
	if err != nil {
		return fmt.Errorf("%s: %w", instr, err)
	}
	if receipt.Error != nil {
		return fmt.Errorf("%s: %w", instr, receipt.Error)
	}
	if out != nil && len(receipt.ReturnData) > 0 {
		if err := json.Unmarshal(receipt.ReturnData, out); err != nil {
			return fmt.Errorf("%s return data: %w", instr, err)
		}
	}
	return nil
}

// ToUnits converts an exchange price into the fixed-point integer the
// ledger compares ratios on. Prices must be positive.
func ToUnits(px decimal.Decimal, decimals int32) (uint64, error) {
	if !px.IsPositive() {
		return 0, fmt.Errorf("non-positive price %s", px)
	}
	units, err := ledger.DecimalToUnits(px.Truncate(decimals), decimals)
	if err != nil {
		return 0, err
	}
	if units == 0 {
		return 0, fmt.Errorf("price %s underflows %d decimals", px, decimals)
	}
	return units, nil
}
