package formula

import (
	"math/big"

	cmath "github.com/EmberTeam/ember-go-engine/math"
)

// linearCurve prices supply along price(s) = base + slope*s. Segment cost
// is the trapezoid area between the two spot prices, which is exact for
// an affine price.
type linearCurve struct {
	base      *big.Int
	slope     *big.Int
	threshold *big.Int
}

func (c *linearCurve) Model() Model {
	return ModelLinear
}

func (c *linearCurve) Price(supply *big.Int) *big.Int {
	p := cmath.MulDiv(c.slope, supply, scale)
	p.Add(p, c.base)

	return clampPrice(p)
}

func (c *linearCurve) CostBetween(s0, s1 *big.Int) *big.Int {
	if s1.Cmp(s0) < 1 {
		return big.NewInt(0)
	}

	sum := new(big.Int).Add(c.Price(s0), c.Price(s1))
	delta := new(big.Int).Sub(s1, s0)

	// (price(s0)+price(s1))/2 * delta, divided last
	cost := sum.Mul(sum, delta)

	return cost.Quo(cost, new(big.Int).Lsh(scale, 1))
}

func (c *linearCurve) TokensForValue(supply, value *big.Int) *big.Int {
	return tokensForValue(c, supply, value)
}

func (c *linearCurve) MarketCap(supply *big.Int) *big.Int {
	return cmath.MulDiv(c.Price(supply), supply, scale)
}

// GraduationReached for the linear model triggers on derived market cap.
func (c *linearCurve) GraduationReached(supply, totalCollected *big.Int) bool {
	return c.MarketCap(supply).Cmp(c.threshold) >= 0
}
