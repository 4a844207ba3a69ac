package ledger

import "math/bits"

// RatioScale is the fixed-point scale of price ratios and thresholds.
const RatioScale uint64 = 10_000

func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}

func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrArithmeticOverflow
	}
	return diff, nil
}

func checkedSubInt64(a, b int64) (int64, error) {
	d := a - b
	// overflow iff operands differ in sign and the result sign differs from a
	if (a^b) < 0 && (a^d) < 0 {
		return 0, ErrArithmeticOverflow
	}
	return d, nil
}

// PriceRatio returns a*10000/b with a 128-bit intermediate product. A zero
// denominator yields 0.
func PriceRatio(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, nil
	}
	hi, lo := bits.Mul64(a, RatioScale)
	if hi >= b {
		return 0, ErrArithmeticOverflow
	}
	q, _ := bits.Div64(hi, lo, b)
	return q, nil
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
