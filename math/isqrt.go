package math

import "math/big"

var one = big.NewInt(1)

// Sqrt returns the integer square root of x, the largest y with y*y <= x.
// The Newton iteration is seeded from the bit length of x so the first
// guess is within a factor of two of the root. Panics on negative input.
func Sqrt(x *big.Int) *big.Int {
	if x.Sign() < 0 {
		panic("integer square root of negative number")
	}

	if x.BitLen() < 2 {
		// 0 or 1
		return new(big.Int).Set(x)
	}

	// 2^ceil(bits/2) >= sqrt(x)
	seed := new(big.Int).Lsh(one, uint(x.BitLen()+1)/2)

	return sqrtFrom(x, seed)
}

// sqrtFrom runs the Babylonian refinement y' = (y + x/y) / 2 from an
// arbitrary positive seed. One step lands at or near the root from any
// start, the loop then descends monotonically, and the final adjustment
// pins the exact floor. The result does not depend on the seed.
func sqrtFrom(x, seed *big.Int) *big.Int {
	if x.Sign() == 0 {
		return big.NewInt(0)
	}

	y := new(big.Int).Set(seed)
	if y.Sign() < 1 {
		y.SetInt64(1)
	}

	step := func(v *big.Int) *big.Int {
		n := new(big.Int).Quo(x, v)
		n.Add(n, v)
		n.Rsh(n, 1)
		return n
	}

	y = step(y)
	for {
		next := step(y)
		if next.Cmp(y) >= 0 {
			break
		}
		y = next
	}

	// integer division can leave y off by one in either direction
	sq := new(big.Int).Mul(y, y)
	for sq.Cmp(x) > 0 {
		y.Sub(y, one)
		sq.Mul(y, y)
	}
	up := new(big.Int).Add(y, one)
	for sq.Mul(up, up); sq.Cmp(x) <= 0; sq.Mul(up, up) {
		y.Set(up)
		up.Add(up, one)
	}

	return y
}
