package venue

import (
	"context"
	"fmt"
	"math/bits"
	"strings"
	"sync"

	"botledger/internal/ledger"
	"botledger/internal/logger"
	"botledger/internal/processor"
)

// Submitter is the slice of the ledger runtime the router needs.
type Submitter interface {
	Submit(ctx context.Context, tx *ledger.Transaction) (processor.Receipt, error)
	Bot(ctx context.Context, authority ledger.PublicKey) (ledger.PublicKey, *ledger.BotRecord, error)
}

// SwapRequest asks the router to swap for the signer's bot. Zero AmountIn
// means the strategy's trade_amount; zero MinimumAmountOut means the floor
// implied by the strategy's max_slippage.
type SwapRequest struct {
	Venue            string
	Direction        ledger.TradeType
	AmountIn         uint64
	MinimumAmountOut uint64
}

type SwapResult struct {
	Quote            Quote              `json:"quote"`
	MinimumAmountOut uint64             `json:"minimum_amount_out"`
	Outcome          ledger.SwapOutcome `json:"outcome"`
	Receipt          processor.Receipt  `json:"receipt"`
}

// Router quotes a swap on a venue and records the outcome on the ledger as
// a signed jupiter_swap or raydium_swap transaction.
type Router struct {
	sub Submitter

	mu      sync.RWMutex
	quoters map[string]Quoter
}

func NewRouter(sub Submitter, quoters ...Quoter) *Router {
	r := &Router{sub: sub, quoters: make(map[string]Quoter)}
	for _, q := range quoters {
		r.Register(q)
	}
	return r
}

func (r *Router) Register(q Quoter) {
	if q == nil {
		return
	}
	r.mu.Lock()
	r.quoters[strings.ToLower(q.Name())] = q
	r.mu.Unlock()
}

func (r *Router) quoter(name string) (Quoter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.quoters[strings.ToLower(strings.TrimSpace(name))]
	return q, ok
}

// Venues lists the registered venue names.
func (r *Router) Venues() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.quoters))
	for name := range r.quoters {
		out = append(out, name)
	}
	return out
}

// Swap fails without calling the venue when the bot is paused or the amount
// is zero; a venue error means nothing was submitted.
func (r *Router) Swap(ctx context.Context, signer ledger.Keypair, req SwapRequest) (SwapResult, error) {
	q, ok := r.quoter(req.Venue)
	if !ok {
		return SwapResult{}, fmt.Errorf("unknown venue %q", req.Venue)
	}
	authority := signer.PublicKey()
	addr, rec, err := r.sub.Bot(ctx, authority)
	if err != nil {
		return SwapResult{}, err
	}
	if !rec.IsActive {
		return SwapResult{}, ledger.ErrBotNotActive
	}
	amountIn := req.AmountIn
	if amountIn == 0 {
		amountIn = rec.Strategy.TradeAmount
	}
	if amountIn == 0 {
		return SwapResult{}, ledger.ErrTradeAmountTooSmall
	}

	in, out := rec.Strategy.TokenB, rec.Strategy.TokenA
	if req.Direction == ledger.Sell {
		in, out = out, in
	}
	quote, err := q.Quote(ctx, QuoteRequest{
		InputMint:   in.String(),
		OutputMint:  out.String(),
		AmountIn:    amountIn,
		SlippageBps: rec.Strategy.MaxSlippage,
	})
	if err != nil {
		return SwapResult{}, fmt.Errorf("%s quote: %w", q.Name(), err)
	}

	minOut := req.MinimumAmountOut
	if minOut == 0 {
		minOut = slippageFloor(quote, rec.Strategy.MaxSlippage)
	}
	outcome := ledger.SwapOutcome{Success: quote.AmountOut >= minOut && quote.AmountOut > 0}
	if outcome.Success {
		outcome.AmountOut = quote.AmountOut
	}

	var params any
	instr := ledger.InstrJupiterSwap
	switch v := q.(type) {
	case *RaydiumClient:
		instr = ledger.InstrRaydiumSwap
		coin, pc := v.PoolAccounts(quote)
		params = ledger.RaydiumSwapParams{
			AmountIn:             amountIn,
			MinimumAmountOut:     minOut,
			PoolCoinTokenAccount: coin,
			PoolPcTokenAccount:   pc,
			Outcome:              outcome,
		}
	case interface{ PlatformFeeBps() uint16 }:
		params = ledger.JupiterSwapParams{AmountIn: amountIn, MinimumAmountOut: minOut, PlatformFeeBps: v.PlatformFeeBps(), Outcome: outcome}
	default:
		if q.Name() == Raydium {
			instr = ledger.InstrRaydiumSwap
			params = ledger.RaydiumSwapParams{AmountIn: amountIn, MinimumAmountOut: minOut, Outcome: outcome}
		} else {
			params = ledger.JupiterSwapParams{AmountIn: amountIn, MinimumAmountOut: minOut, Outcome: outcome}
		}
	}

	tx, err := ledger.NewTransaction(instr, authority, addr, params)
	if err != nil {
		return SwapResult{}, err
	}
	tx.Sign(signer)
	receipt, err := r.sub.Submit(ctx, tx)
	res := SwapResult{Quote: quote, MinimumAmountOut: minOut, Outcome: outcome, Receipt: receipt}
	if err == nil && receipt.Error != nil {
		err = receipt.Error
	}
	if err != nil {
		return res, err
	}
	logger.Infof("%s swap %s: in=%d out=%d min=%d success=%v slot=%d",
		q.Name(), req.Direction, amountIn, quote.AmountOut, minOut, outcome.Success, receipt.Slot)
	return res, nil
}

// slippageFloor prefers the venue's own threshold and otherwise applies
// slippageBps to the quoted output.
func slippageFloor(q Quote, slippageBps uint16) uint64 {
	if q.Threshold > 0 {
		return q.Threshold
	}
	bps := uint64(slippageBps)
	if bps > ledger.RatioScale {
		bps = ledger.RatioScale
	}
	hi, lo := bits.Mul64(q.AmountOut, ledger.RatioScale-bps)
	floor, _ := bits.Div64(hi, lo, ledger.RatioScale)
	return floor
}
