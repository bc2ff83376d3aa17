package formula

import (
	"math/big"

	cmath "github.com/EmberTeam/ember-go-engine/math"
)

// sqrtCurve prices supply along price(s) = p0 * sqrt((s+Rv)/(S0+Rv)).
// The virtual reserve Rv keeps the price finite and non-zero at s = 0;
// the virtual supply S0 anchors p0 as the spot price at s = S0.
type sqrtCurve struct {
	initialPrice *big.Int
	vReserve     *big.Int
	vBase        *big.Int // S0 + Rv
	sqrtVBase    *big.Int
	threshold    *big.Int
}

func (c *sqrtCurve) Model() Model {
	return ModelSqrt
}

func (c *sqrtCurve) Price(supply *big.Int) *big.Int {
	a := new(big.Int).Add(supply, c.vReserve)

	// sqrt(a/vBase) scaled: take the root after widening by scale^2
	ratio := cmath.Sqrt(cmath.MulDiv(a, scaleSq, c.vBase))
	p := cmath.MulDiv(c.initialPrice, ratio, scale)

	return clampPrice(p)
}

// CostBetween evaluates the closed-form integral of the spot price:
// (2/3) * p0 * [(s1+Rv)^1.5 - (s0+Rv)^1.5] / sqrt(S0+Rv), rescaled from
// base units to spark.
func (c *sqrtCurve) CostBetween(s0, s1 *big.Int) *big.Int {
	if s1.Cmp(s0) < 1 {
		return big.NewInt(0)
	}

	a0 := new(big.Int).Add(s0, c.vReserve)
	a1 := new(big.Int).Add(s1, c.vReserve)

	d := cmath.PowThreeHalves(a1)
	d.Sub(d, cmath.PowThreeHalves(a0))
	d.Mul(d, c.initialPrice)
	d.Lsh(d, 1) // *2

	denom := new(big.Int).Mul(c.sqrtVBase, scale)
	denom.Mul(denom, big.NewInt(3))

	return d.Quo(d, denom)
}

func (c *sqrtCurve) TokensForValue(supply, value *big.Int) *big.Int {
	return tokensForValue(c, supply, value)
}

func (c *sqrtCurve) MarketCap(supply *big.Int) *big.Int {
	return cmath.MulDiv(c.Price(supply), supply, scale)
}

// GraduationReached for the sqrt model triggers on cumulative collected
// value, decoupled from price so it cannot be gamed by a price push right
// before the threshold.
func (c *sqrtCurve) GraduationReached(supply, totalCollected *big.Int) bool {
	return totalCollected.Cmp(c.threshold) >= 0
}
