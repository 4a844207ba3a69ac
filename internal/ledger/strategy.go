package ledger

import (
	"fmt"
)

const (
	DefaultDCAInterval      int64 = 3600
	DefaultMinTradeInterval int64 = 60
)

// Params are the tunable timing rules of the evaluator.
type Params struct {
	DCAInterval      int64 `json:"dca_interval_seconds"`
	MinTradeInterval int64 `json:"min_trade_interval_seconds"`
}

func DefaultParams() Params {
	return Params{DCAInterval: DefaultDCAInterval, MinTradeInterval: DefaultMinTradeInterval}
}

func (p Params) withDefaults() Params {
	if p.DCAInterval <= 0 {
		p.DCAInterval = DefaultDCAInterval
	}
	if p.MinTradeInterval <= 0 {
		p.MinTradeInterval = DefaultMinTradeInterval
	}
	return p
}

// PriceObservation is one externally supplied quote for the token pair.
type PriceObservation struct {
	TokenAPrice uint64 `json:"token_a_price"`
	TokenBPrice uint64 `json:"token_b_price"`
	Timestamp   int64  `json:"timestamp"`
	Confidence  uint32 `json:"confidence"`
}

type SignalKind uint8

const (
	SignalNone SignalKind = iota
	SignalBuy
	SignalSell
	SignalOpportunity
)

func (k SignalKind) String() string {
	switch k {
	case SignalBuy:
		return "buy"
	case SignalSell:
		return "sell"
	case SignalOpportunity:
		return "opportunity"
	default:
		return "none"
	}
}

func (k SignalKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *SignalKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "buy":
		*k = SignalBuy
	case "sell":
		*k = SignalSell
	case "opportunity":
		*k = SignalOpportunity
	case "none", "":
		*k = SignalNone
	default:
		return fmt.Errorf("unknown signal %q", string(b))
	}
	return nil
}

// Signal is the result of evaluating one observation. It is observational:
// evaluation never mutates the record.
type Signal struct {
	Kind     SignalKind   `json:"kind"`
	Strategy StrategyType `json:"strategy"`
	Ratio    uint64       `json:"ratio"`
	Spread   uint64       `json:"spread,omitempty"`
}

// Rule is the strategy-specific reading of the shared threshold fields.
// Exactly one of the concrete rule types below is returned per strategy.
type Rule interface {
	strategyType() StrategyType
}

// GridRule buys at or below BuyAtOrBelow and otherwise sells at or above
// SellAtOrAbove. Both bounds are ratios.
type GridRule struct {
	BuyAtOrBelow  uint64
	SellAtOrAbove uint64
}

// MeanReversionRule has the same shape as GridRule.
type MeanReversionRule struct {
	BuyAtOrBelow  uint64
	SellAtOrAbove uint64
}

// DCARule buys once more than Interval seconds have passed since the last trade.
type DCARule struct {
	Interval int64
}

// ArbitrageRule reports an opportunity when the raw price spread exceeds
// MinSpread. MinSpread is stored in the buy_threshold field.
type ArbitrageRule struct {
	MinSpread uint64
}

func (GridRule) strategyType() StrategyType          { return GridTrading }
func (MeanReversionRule) strategyType() StrategyType { return MeanReversion }
func (DCARule) strategyType() StrategyType           { return DCA }
func (ArbitrageRule) strategyType() StrategyType     { return Arbitrage }

// Rule interprets the strategy fields for its type.
func (s Strategy) Rule(p Params) (Rule, error) {
	p = p.withDefaults()
	switch s.Type {
	case GridTrading:
		return GridRule{BuyAtOrBelow: s.BuyThreshold, SellAtOrAbove: s.SellThreshold}, nil
	case MeanReversion:
		return MeanReversionRule{BuyAtOrBelow: s.BuyThreshold, SellAtOrAbove: s.SellThreshold}, nil
	case DCA:
		return DCARule{Interval: p.DCAInterval}, nil
	case Arbitrage:
		return ArbitrageRule{MinSpread: s.BuyThreshold}, nil
	default:
		return nil, ErrInvalidStrategy
	}
}

func bandSignal(ratio, buyAtOrBelow, sellAtOrAbove uint64) SignalKind {
	if ratio <= buyAtOrBelow {
		return SignalBuy
	}
	if ratio >= sellAtOrAbove {
		return SignalSell
	}
	return SignalNone
}

// Evaluate turns an observation into a signal. It does not check is_active
// and never mutates rec.
func Evaluate(rec *BotRecord, obs PriceObservation, env Env) (Signal, error) {
	ratio, err := PriceRatio(obs.TokenAPrice, obs.TokenBPrice)
	if err != nil {
		return Signal{}, fmt.Errorf("price ratio: %w", err)
	}
	rule, err := rec.Strategy.Rule(env.Params)
	if err != nil {
		return Signal{}, err
	}
	sig := Signal{Strategy: rule.strategyType(), Ratio: ratio}
	env.logf("Price update: token_a=%d token_b=%d ratio=%d", obs.TokenAPrice, obs.TokenBPrice, ratio)

	switch r := rule.(type) {
	case GridRule:
		sig.Kind = bandSignal(ratio, r.BuyAtOrBelow, r.SellAtOrAbove)
		switch sig.Kind {
		case SignalBuy:
			env.logf("Grid trading: BUY signal at ratio %d", ratio)
		case SignalSell:
			env.logf("Grid trading: SELL signal at ratio %d", ratio)
		}
	case MeanReversionRule:
		sig.Kind = bandSignal(ratio, r.BuyAtOrBelow, r.SellAtOrAbove)
		switch sig.Kind {
		case SignalBuy:
			env.logf("Mean reversion: BUY signal, price below mean")
		case SignalSell:
			env.logf("Mean reversion: SELL signal, price above mean")
		}
	case DCARule:
		elapsed, err := checkedSubInt64(env.Now, rec.LastTradeTimestamp)
		if err != nil {
			return Signal{}, err
		}
		if elapsed > r.Interval {
			sig.Kind = SignalBuy
			env.logf("DCA: time-based BUY signal after %ds", elapsed)
		}
	case ArbitrageRule:
		sig.Spread = absDiff(obs.TokenAPrice, obs.TokenBPrice)
		if sig.Spread > r.MinSpread {
			sig.Kind = SignalOpportunity
			env.logf("Arbitrage: opportunity detected, spread %d", sig.Spread)
		}
	default:
		return Signal{}, ErrInvalidStrategy
	}
	return sig, nil
}

// CheckStrategy is the read-only gate deciding whether the bot may trade now.
func CheckStrategy(rec *BotRecord, env Env) (bool, error) {
	if !rec.IsActive {
		return false, ErrBotNotActive
	}
	p := env.Params.withDefaults()
	elapsed, err := checkedSubInt64(env.Now, rec.LastTradeTimestamp)
	if err != nil {
		return false, err
	}
	if elapsed < p.MinTradeInterval {
		env.logf("Too soon since last trade: %ds", elapsed)
		return false, nil
	}
	if sl := rec.Strategy.StopLoss; sl != nil && rec.Balance <= *sl {
		env.logf("Stop loss triggered: balance %d <= %d", rec.Balance, *sl)
		return false, nil
	}
	if tp := rec.Strategy.TakeProfit; tp != nil && rec.Balance >= *tp {
		env.logf("Take profit triggered: balance %d >= %d", rec.Balance, *tp)
		return false, nil
	}
	env.logf("Strategy check passed")
	return true, nil
}
