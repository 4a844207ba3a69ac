package ledger

// SwapOutcome is what a venue reports after attempting a swap.
type SwapOutcome struct {
	Success   bool   `json:"success"`
	AmountOut uint64 `json:"amount_out,omitempty"`
}

// ExecuteTrade records a venue-independent trade intent. It moves no funds
// and does not check min_amount_out.
func ExecuteTrade(rec *BotRecord, p TradeParams, env Env) error {
	if !rec.IsActive {
		return ErrBotNotActive
	}
	total, err := CheckedAdd(rec.TotalTrades, 1)
	if err != nil {
		return err
	}
	rec.TotalTrades = total
	rec.LastTradeTimestamp = env.Now
	env.logf("Trade executed: %s %d", p.TradeType, p.Amount)
	return nil
}

// RecordSwap applies a venue outcome to the trade counters.
func RecordSwap(rec *BotRecord, venue string, amountIn uint64, out SwapOutcome, env Env) error {
	if !rec.IsActive {
		return ErrBotNotActive
	}
	if amountIn == 0 {
		return ErrTradeAmountTooSmall
	}
	total, err := CheckedAdd(rec.TotalTrades, 1)
	if err != nil {
		return err
	}
	successful := rec.SuccessfulTrades
	if out.Success {
		if successful, err = CheckedAdd(successful, 1); err != nil {
			return err
		}
	}
	rec.TotalTrades = total
	rec.SuccessfulTrades = successful
	rec.LastTradeTimestamp = env.Now
	if out.Success {
		env.logf("%s swap executed: %d in, %d out", venue, amountIn, out.AmountOut)
	} else {
		env.logf("%s swap failed: %d in", venue, amountIn)
	}
	return nil
}
