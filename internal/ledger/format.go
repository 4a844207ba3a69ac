package ledger

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	LamportsPerSOL uint64 = 1_000_000_000
	solDecimals           = 9

	// rent parameters of the default cluster
	accountStorageOverhead  = 128
	lamportsPerByteYear     = 3480
	exemptionThresholdYears = 2
)

// RentExemptMinimum is the lamport floor for an account of dataLen bytes.
func RentExemptMinimum(dataLen int) uint64 {
	return uint64(accountStorageOverhead+dataLen) * lamportsPerByteYear * exemptionThresholdYears
}

func u64Decimal(v uint64, exp int32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), exp)
}

// FormatSOL renders lamports as SOL with full precision.
func FormatSOL(lamports uint64) string {
	return u64Decimal(lamports, -solDecimals).StringFixed(solDecimals)
}

// FormatRatio renders a scaled ratio, e.g. 9500 -> "0.9500".
func FormatRatio(ratio uint64) string {
	return u64Decimal(ratio, -4).StringFixed(4)
}

// ParseSOL converts a SOL amount such as "1.5" to lamports.
func ParseSOL(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse SOL amount %q: %w", s, err)
	}
	return DecimalToUnits(d, solDecimals)
}

// DecimalToUnits scales d by 10^places. Fractions below one unit and values
// outside u64 are rejected.
func DecimalToUnits(d decimal.Decimal, places int32) (uint64, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("amount %s is negative", d)
	}
	scaled := d.Shift(places)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimals", d, places)
	}
	bi := scaled.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %s overflows u64", d)
	}
	return bi.Uint64(), nil
}

// SuccessRate is successful/total as a percentage string.
func (r *BotRecord) SuccessRate() string {
	if r.TotalTrades == 0 {
		return "0.00"
	}
	return u64Decimal(r.SuccessfulTrades, 0).
		Mul(decimal.NewFromInt(100)).
		Div(u64Decimal(r.TotalTrades, 0)).
		StringFixed(2)
}

// BotView is the decoded, display-friendly form of a record.
type BotView struct {
	Address    PublicKey `json:"address"`
	BalanceSOL string    `json:"balance_sol"`
	SuccessPct string    `json:"success_rate_pct"`
	BotRecord
}

func NewBotView(addr PublicKey, r *BotRecord) BotView {
	return BotView{
		Address:    addr,
		BalanceSOL: FormatSOL(r.Balance),
		SuccessPct: r.SuccessRate(),
		BotRecord:  *r.Clone(),
	}
}
