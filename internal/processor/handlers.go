package processor

import (
	"fmt"

	"botledger/internal/ledger"
)

// InitializeBotHandler creates the record at the signer's derived address and
// funds it to the rent-exempt minimum from the signer's wallet.
type InitializeBotHandler struct{}

func (h *InitializeBotHandler) Type() ledger.InstructionType { return ledger.InstrInitializeBot }

type InitializeResult struct {
	Address ledger.PublicKey `json:"address"`
	Bump    uint8            `json:"bump"`
}

func (h *InitializeBotHandler) Handle(c *HandlerContext, tx *ledger.Transaction) (any, error) {
	var p ledger.InitializeParams
	if err := tx.DecodePayload(&p); err != nil {
		return nil, err
	}
	addr, bump, err := ledger.BotAddress(tx.Authority, c.programID)
	if err != nil {
		return nil, err
	}
	if tx.Account != addr {
		return nil, fmt.Errorf("%w: bot address for this authority is %s", ledger.ErrUnauthorized, addr)
	}
	existing, err := c.wallet(addr)
	if err != nil {
		return nil, err
	}
	if existing.Owner != ledger.SystemProgramID || len(existing.Data) > 0 {
		return nil, ledger.ErrAccountAlreadyInUse
	}

	rec, err := ledger.NewBotRecord(tx.Authority, bump, p.Strategy, p.InitialBalance, c.env)
	if err != nil {
		return nil, err
	}
	data, err := ledger.EncodeBotRecord(rec)
	if err != nil {
		return nil, err
	}

	// a pre-funded address only needs topping up
	if rent := ledger.RentExemptMinimum(ledger.BotRecordSize); existing.Lamports < rent {
		payer, err := c.wallet(tx.Authority)
		if err != nil {
			return nil, err
		}
		if err := c.transfer(payer, existing, rent-existing.Lamports); err != nil {
			return nil, err
		}
	}
	acct, err := c.wallet(addr)
	if err != nil {
		return nil, err
	}
	acct.Owner = c.programID
	acct.Data = data
	if err := c.uow.Put(c.ctx, acct); err != nil {
		return nil, err
	}
	return InitializeResult{Address: addr, Bump: bump}, nil
}

type UpdateStrategyHandler struct{}

func (h *UpdateStrategyHandler) Type() ledger.InstructionType { return ledger.InstrUpdateStrategy }

func (h *UpdateStrategyHandler) Handle(c *HandlerContext, tx *ledger.Transaction) (any, error) {
	var p ledger.UpdateStrategyParams
	if err := tx.DecodePayload(&p); err != nil {
		return nil, err
	}
	return nil, c.mutateBot(tx, func(rec *ledger.BotRecord) error {
		return ledger.UpdateStrategy(rec, p.Strategy, c.env)
	})
}

type ExecuteTradeHandler struct{}

func (h *ExecuteTradeHandler) Type() ledger.InstructionType { return ledger.InstrExecuteTrade }

func (h *ExecuteTradeHandler) Handle(c *HandlerContext, tx *ledger.Transaction) (any, error) {
	var p ledger.TradeParams
	if err := tx.DecodePayload(&p); err != nil {
		return nil, err
	}
	return nil, c.mutateBot(tx, func(rec *ledger.BotRecord) error {
		return ledger.ExecuteTrade(rec, p, c.env)
	})
}

type PauseBotHandler struct{}

func (h *PauseBotHandler) Type() ledger.InstructionType { return ledger.InstrPauseBot }

func (h *PauseBotHandler) Handle(c *HandlerContext, tx *ledger.Transaction) (any, error) {
	return nil, c.mutateBot(tx, func(rec *ledger.BotRecord) error {
		ledger.Pause(rec, c.env)
		return nil
	})
}

type ResumeBotHandler struct{}

func (h *ResumeBotHandler) Type() ledger.InstructionType { return ledger.InstrResumeBot }

func (h *ResumeBotHandler) Handle(c *HandlerContext, tx *ledger.Transaction) (any, error) {
	return nil, c.mutateBot(tx, func(rec *ledger.BotRecord) error {
		ledger.Resume(rec, c.env)
		return nil
	})
}

// WithdrawFundsHandler debits the logical balance and moves the same amount
// of lamports from the record account to the authority's wallet. The rent
// exempt minimum of the record account is never withdrawable.
type WithdrawFundsHandler struct{}

func (h *WithdrawFundsHandler) Type() ledger.InstructionType { return ledger.InstrWithdrawFunds }

func (h *WithdrawFundsHandler) Handle(c *HandlerContext, tx *ledger.Transaction) (any, error) {
	var p ledger.WithdrawParams
	if err := tx.DecodePayload(&p); err != nil {
		return nil, err
	}
	acct, rec, err := c.loadBot(tx)
	if err != nil {
		return nil, err
	}
	var custody uint64
	if rent := ledger.RentExemptMinimum(len(acct.Data)); acct.Lamports > rent {
		custody = acct.Lamports - rent
	}
	next := rec.Clone()
	if err := ledger.Withdraw(next, custody, p.Amount, c.env); err != nil {
		return nil, err
	}
	data, err := ledger.EncodeBotRecord(next)
	if err != nil {
		return nil, err
	}
	dest, err := c.wallet(tx.Authority)
	if err != nil {
		return nil, err
	}
	src := acct.Clone()
	src.Data = data
	return nil, c.transfer(src, dest, p.Amount)
}

type JupiterSwapHandler struct{}

func (h *JupiterSwapHandler) Type() ledger.InstructionType { return ledger.InstrJupiterSwap }

func (h *JupiterSwapHandler) Handle(c *HandlerContext, tx *ledger.Transaction) (any, error) {
	var p ledger.JupiterSwapParams
	if err := tx.DecodePayload(&p); err != nil {
		return nil, err
	}
	return nil, c.mutateBot(tx, func(rec *ledger.BotRecord) error {
		if err := ledger.RecordSwap(rec, "Jupiter", p.AmountIn, p.Outcome, c.env); err != nil {
			return err
		}
		c.Logf("Jupiter route: min out %d, platform fee %d bps", p.MinimumAmountOut, p.PlatformFeeBps)
		return nil
	})
}

type RaydiumSwapHandler struct{}

func (h *RaydiumSwapHandler) Type() ledger.InstructionType { return ledger.InstrRaydiumSwap }

func (h *RaydiumSwapHandler) Handle(c *HandlerContext, tx *ledger.Transaction) (any, error) {
	var p ledger.RaydiumSwapParams
	if err := tx.DecodePayload(&p); err != nil {
		return nil, err
	}
	return nil, c.mutateBot(tx, func(rec *ledger.BotRecord) error {
		if err := ledger.RecordSwap(rec, "Raydium", p.AmountIn, p.Outcome, c.env); err != nil {
			return err
		}
		c.Logf("Raydium pools: coin %s, pc %s", p.PoolCoinTokenAccount, p.PoolPcTokenAccount)
		return nil
	})
}

// UpdatePriceHandler evaluates the observation against the strategy. The
// record is not written.
type UpdatePriceHandler struct{}

func (h *UpdatePriceHandler) Type() ledger.InstructionType { return ledger.InstrUpdatePrice }

func (h *UpdatePriceHandler) Handle(c *HandlerContext, tx *ledger.Transaction) (any, error) {
	var p ledger.PriceObservation
	if err := tx.DecodePayload(&p); err != nil {
		return nil, err
	}
	_, rec, err := c.loadBot(tx)
	if err != nil {
		return nil, err
	}
	return ledger.Evaluate(rec, p, c.env)
}

type CheckStrategyHandler struct{}

func (h *CheckStrategyHandler) Type() ledger.InstructionType { return ledger.InstrCheckStrategy }

func (h *CheckStrategyHandler) Handle(c *HandlerContext, tx *ledger.Transaction) (any, error) {
	_, rec, err := c.loadBot(tx)
	if err != nil {
		return nil, err
	}
	ok, err := ledger.CheckStrategy(rec, c.env)
	if err != nil {
		return nil, err
	}
	return CheckResult{CanTrade: ok}, nil
}

// SystemTransferHandler moves lamports out of the signer's own wallet.
type SystemTransferHandler struct{}

func (h *SystemTransferHandler) Type() ledger.InstructionType { return ledger.InstrSystemTransfer }

func (h *SystemTransferHandler) Handle(c *HandlerContext, tx *ledger.Transaction) (any, error) {
	var p ledger.TransferParams
	if err := tx.DecodePayload(&p); err != nil {
		return nil, err
	}
	if tx.Account != tx.Authority {
		return nil, fmt.Errorf("%w: transfer source must be the signer", ledger.ErrUnauthorized)
	}
	from, err := c.wallet(tx.Authority)
	if err != nil {
		return nil, err
	}
	if from.Owner != ledger.SystemProgramID {
		return nil, fmt.Errorf("%w: source is not a system account", ledger.ErrUnauthorized)
	}
	to, err := c.wallet(p.To)
	if err != nil {
		return nil, err
	}
	if err := c.transfer(from, to, p.Lamports); err != nil {
		return nil, err
	}
	c.Logf("Transferred %d lamports to %s", p.Lamports, p.To)
	return nil, nil
}
