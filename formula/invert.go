package formula

import "math/big"

// maxInvertIterations caps the binary-search descent. The interval is
// halved every step, so the cap pins the result to one base unit for any
// search space below 2^128 units, far inside a 1e-6 token tolerance.
const maxInvertIterations = 128

var one = big.NewInt(1)

// tokensForValue finds the largest token amount t (base units) with
// CostBetween(supply, supply+t) <= value. Cost is monotone in t, so the
// amount is pinned between an exclusive over-estimate and an inclusive
// under-estimate; the returned amount's forward cost never exceeds the
// budget.
func tokensForValue(c Curve, supply, value *big.Int) *big.Int {
	if value == nil || value.Sign() < 1 {
		return big.NewInt(0)
	}

	cost := func(t *big.Int) *big.Int {
		return c.CostBetween(supply, new(big.Int).Add(supply, t))
	}

	// the spot price is clamped above zero and only rises with supply, so
	// value/spot is defined and overshoots the true amount before rounding
	hi := new(big.Int).Mul(value, scale)
	hi.Quo(hi, c.Price(supply))
	hi.Add(hi, one)

	// floor rounding in the forward cost can still leave cost(hi) at or
	// under the budget; grow until strictly above
	for i := 0; cost(hi).Cmp(value) < 1; i++ {
		if i == maxInvertIterations {
			// give up on the bound, hi itself is affordable
			return hi
		}
		hi.Lsh(hi, 1)
	}

	lo := big.NewInt(0)
	gap := new(big.Int)
	for i := 0; gap.Sub(hi, lo).Cmp(one) > 0; i++ {
		if i == maxInvertIterations {
			break
		}

		mid := new(big.Int).Add(lo, hi)
		mid.Rsh(mid, 1)

		if cost(mid).Cmp(value) < 1 {
			lo = mid
		} else {
			hi = mid
		}
	}

	return lo
}
