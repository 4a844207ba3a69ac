package ledger

// InstructionType names a transition. The string value is the wire form.
type InstructionType string

const (
	InstrInitializeBot  InstructionType = "initialize_bot"
	InstrUpdateStrategy InstructionType = "update_strategy"
	InstrExecuteTrade   InstructionType = "execute_trade"
	InstrPauseBot       InstructionType = "pause_bot"
	InstrResumeBot      InstructionType = "resume_bot"
	InstrWithdrawFunds  InstructionType = "withdraw_funds"
	InstrJupiterSwap    InstructionType = "jupiter_swap"
	InstrRaydiumSwap    InstructionType = "raydium_swap"
	InstrUpdatePrice    InstructionType = "update_price"
	InstrCheckStrategy  InstructionType = "check_strategy"
	InstrSystemTransfer InstructionType = "system_transfer"
)

var instructionTypes = []InstructionType{
	InstrInitializeBot, InstrUpdateStrategy, InstrExecuteTrade, InstrPauseBot, InstrResumeBot,
	InstrWithdrawFunds, InstrJupiterSwap, InstrRaydiumSwap, InstrUpdatePrice, InstrCheckStrategy,
	InstrSystemTransfer,
}

func InstructionTypes() []InstructionType {
	out := make([]InstructionType, len(instructionTypes))
	copy(out, instructionTypes)
	return out
}

func (t InstructionType) Valid() bool {
	for _, v := range instructionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// TargetsBot reports whether the instruction addresses a bot record. The
// only exception is a plain system transfer between wallets.
func (t InstructionType) TargetsBot() bool { return t != InstrSystemTransfer }

type InitializeParams struct {
	Strategy       Strategy `json:"strategy"`
	InitialBalance uint64   `json:"initial_balance"`
}

type UpdateStrategyParams struct {
	Strategy Strategy `json:"strategy"`
}

type TradeParams struct {
	Amount       uint64    `json:"amount"`
	MinAmountOut uint64    `json:"min_amount_out"`
	TradeType    TradeType `json:"trade_type"`
}

type WithdrawParams struct {
	Amount uint64 `json:"amount"`
}

type JupiterSwapParams struct {
	AmountIn         uint64      `json:"amount_in"`
	MinimumAmountOut uint64      `json:"minimum_amount_out"`
	PlatformFeeBps   uint16      `json:"platform_fee_bps"`
	Outcome          SwapOutcome `json:"outcome"`
}

type RaydiumSwapParams struct {
	AmountIn             uint64      `json:"amount_in"`
	MinimumAmountOut     uint64      `json:"minimum_amount_out"`
	PoolCoinTokenAccount PublicKey   `json:"pool_coin_token_account"`
	PoolPcTokenAccount   PublicKey   `json:"pool_pc_token_account"`
	Outcome              SwapOutcome `json:"outcome"`
}

type TransferParams struct {
	To       PublicKey `json:"to"`
	Lamports uint64    `json:"lamports"`
}
