package effect

import "math"

// ceilTolerance is the fractional remainder below which a value counts as integral.
const ceilTolerance = 0.0001

// CeilEpsilon rounds up to the next integer, except that a fractional
// remainder below 1e-4 rounds down. The remainder is taken with the sign of
// the divisor, so it is always in [0, 1) and negative inputs round toward
// +Inf like positive ones.
//
//	CeilEpsilon(3.0)     == 3
//	CeilEpsilon(3.00005) == 3
//	CeilEpsilon(3.1)     == 4
//	CeilEpsilon(2.99999) == 3
func CeilEpsilon(x float64) int {
	rem := mod1(x)
	if rem < ceilTolerance {
		return int(x - rem)
	}
	return int(x - rem + 1)
}

// mod1 returns x modulo 1 with a non-negative result.
func mod1(x float64) float64 {
	r := math.Mod(x, 1)
	if r < 0 {
		r += 1
	}
	return r
}

// floorDiv is integer division rounding toward -Inf.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
