package ledger

import (
	"fmt"
	"strings"
)

// StrategyType is stored as a single byte; the order is part of the layout.
type StrategyType uint8

const (
	GridTrading StrategyType = iota
	DCA
	Arbitrage
	MeanReversion
)

var strategyTypeNames = [...]string{
	GridTrading:   "grid_trading",
	DCA:           "dca",
	Arbitrage:     "arbitrage",
	MeanReversion: "mean_reversion",
}

func (t StrategyType) Valid() bool { return int(t) < len(strategyTypeNames) }

func (t StrategyType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("strategy(%d)", uint8(t))
	}
	return strategyTypeNames[t]
}

func ParseStrategyType(s string) (StrategyType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	switch norm {
	case "grid", "gridtrading":
		return GridTrading, nil
	case "meanreversion":
		return MeanReversion, nil
	}
	for i, name := range strategyTypeNames {
		if name == norm {
			return StrategyType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown strategy type %q", ErrInvalidStrategy, s)
}

func (t StrategyType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStrategy, uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *StrategyType) UnmarshalText(b []byte) error {
	v, err := ParseStrategyType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type TradeType uint8

const (
	Buy TradeType = iota
	Sell
)

func (t TradeType) String() string {
	switch t {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("trade(%d)", uint8(t))
	}
}

func (t TradeType) MarshalText() ([]byte, error) {
	if t > Sell {
		return nil, fmt.Errorf("%w: trade type %d", ErrInvalidInstruction, uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *TradeType) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "buy":
		*t = Buy
	case "sell":
		*t = Sell
	default:
		return fmt.Errorf("%w: trade type %q", ErrInvalidInstruction, string(b))
	}
	return nil
}

// Strategy is the configuration a bot trades under.
//
// Thresholds are price ratios scaled by RatioScale. For Arbitrage,
// BuyThreshold is the minimum absolute price spread (raw price units)
// and SellThreshold is unused.
type Strategy struct {
	Type          StrategyType `json:"strategy_type"`
	TokenA        PublicKey    `json:"token_a"`
	TokenB        PublicKey    `json:"token_b"`
	BuyThreshold  uint64       `json:"buy_threshold"`
	SellThreshold uint64       `json:"sell_threshold"`
	// MaxSlippage in basis points. Forwarded to venues, not enforced here.
	MaxSlippage uint16  `json:"max_slippage"`
	TradeAmount uint64  `json:"trade_amount"`
	StopLoss    *uint64 `json:"stop_loss,omitempty"`
	TakeProfit  *uint64 `json:"take_profit,omitempty"`
}

func (s Strategy) Clone() Strategy {
	out := s
	if s.StopLoss != nil {
		v := *s.StopLoss
		out.StopLoss = &v
	}
	if s.TakeProfit != nil {
		v := *s.TakeProfit
		out.TakeProfit = &v
	}
	return out
}

// BotRecord is the persistent state of one bot. There is exactly one per
// authority, stored at BotAddress(authority).
type BotRecord struct {
	Authority          PublicKey `json:"authority"`
	IsActive           bool      `json:"is_active"`
	Strategy           Strategy  `json:"strategy"`
	Balance            uint64    `json:"balance"`
	TotalTrades        uint64    `json:"total_trades"`
	SuccessfulTrades   uint64    `json:"successful_trades"`
	LastTradeTimestamp int64     `json:"last_trade_timestamp"`
	CreatedAt          int64     `json:"created_at"`
	Bump               uint8     `json:"bump"`
}

func (r *BotRecord) Clone() *BotRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Strategy = r.Strategy.Clone()
	return &out
}

func U64(v uint64) *uint64 { return &v }
