package eventmodels

import "math"

// Monetary values are fixed-point integers in the smallest unit of their
// asset. All arithmetic on prices, notionals and payoffs must go through
// the checked helpers below: an operation that would wrap fails with
// ErrArithmeticOverflow instead of producing a corrupted amount.

func CheckedAdd(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, ErrArithmeticOverflow
	}

	if b < 0 && a < math.MinInt64-b {
		return 0, ErrArithmeticOverflow
	}

	return a + b, nil
}

func CheckedSub(a, b int64) (int64, error) {
	if b < 0 && a > math.MaxInt64+b {
		return 0, ErrArithmeticOverflow
	}

	if b > 0 && a < math.MinInt64+b {
		return 0, ErrArithmeticOverflow
	}

	return a - b, nil
}

func CheckedMul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}

	if (a == math.MinInt64 && b == -1) || (b == math.MinInt64 && a == -1) {
		return 0, ErrArithmeticOverflow
	}

	result := a * b
	if result/b != a {
		return 0, ErrArithmeticOverflow
	}

	return result, nil
}

// AbsDiff returns |a - b| for non-negative inputs.
func AbsDiff(a, b int64) int64 {
	if a >= b {
		return a - b
	}

	return b - a
}

// ApplyBps computes floor(amount * bps / 10000). Rounding is always
// down: a fee can never over-collect. The quotient/remainder split keeps
// the intermediate product inside int64 for any non-negative amount, so
// fees on amounts near MaxInt64 do not spuriously overflow.
func ApplyBps(amount, bps int64) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidParameters
	}

	if bps < 0 || bps > 10000 {
		return 0, ErrInvalidParameters
	}

	quotient := amount / 10000
	remainder := amount % 10000

	return quotient*bps + remainder*bps/10000, nil
}
