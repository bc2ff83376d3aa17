package math

import "math/big"

// MulDiv returns floor(a * b / c). The product is taken in full width
// before the division so no precision is lost to an early quotient.
// Panics when c is zero.
func MulDiv(a, b, c *big.Int) *big.Int {
	if c.Sign() == 0 {
		panic("MulDiv division by zero")
	}

	r := new(big.Int).Mul(a, b)

	return r.Quo(r, c)
}

// PowThreeHalves returns floor(x^1.5) computed as x * sqrt(x), keeping
// the multiplication before the root's floor is applied twice.
func PowThreeHalves(x *big.Int) *big.Int {
	return new(big.Int).Mul(x, Sqrt(x))
}
