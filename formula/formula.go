package formula

import (
	"fmt"
	"math/big"

	cmath "github.com/EmberTeam/ember-go-engine/math"
)

// Model selects the pricing rule a deployment runs on. A market is bound
// to one model at configuration time and never switches.
type Model byte

const (
	ModelLinear Model = iota + 1
	ModelSqrt
)

func (m Model) String() string {
	switch m {
	case ModelLinear:
		return "linear"
	case ModelSqrt:
		return "sqrt"
	}

	panic(fmt.Sprintf("unknown curve model: %d", m))
}

// scale is the single global fixed-point scale: 18 decimals. Supplies are
// token base units (1 token = scale units), prices are spark per whole
// token, values are spark.
var scale = big.NewInt(1000000000000000000)

var scaleSq = new(big.Int).Mul(scale, scale)

// MinSpotPrice is the clamp applied when a curve would quote a zero or
// underflowed spot price. Later divisions by the spot price can therefore
// never hit zero.
var MinSpotPrice = big.NewInt(1000)

// Scale returns the global fixed-point scale as a fresh big.Int.
func Scale() *big.Int {
	return new(big.Int).Set(scale)
}

// Curve prices one market. Implementations are pure: no calls mutate the
// curve and results depend only on the arguments.
type Curve interface {
	// Price returns the spot price in spark per whole token at the given
	// supply (token base units), clamped to MinSpotPrice.
	Price(supply *big.Int) *big.Int

	// CostBetween returns the spark value of moving the supply from s0 up
	// to s1 (s0 <= s1). The same value is the gross payout of selling the
	// supply back down from s1 to s0.
	CostBetween(s0, s1 *big.Int) *big.Int

	// TokensForValue returns the largest token amount (base units) whose
	// cost starting at supply does not exceed value.
	TokensForValue(supply, value *big.Int) *big.Int

	// MarketCap returns supply times spot price, in spark.
	MarketCap(supply *big.Int) *big.Int

	// GraduationReached reports whether the model's trigger holds: market
	// cap for linear, cumulative collected value for sqrt. The two stay
	// distinct on purpose; unifying them would change economic behavior.
	GraduationReached(supply, totalCollected *big.Int) bool

	// Model returns the model tag.
	Model() Model
}

// Params carries the fixed-point constants of a configured curve. Only
// the fields of the selected model are read.
type Params struct {
	Model Model

	// linear: price(s) = Base + Slope*s
	Base  *big.Int // spark per token at zero supply
	Slope *big.Int // spark per token added per whole token of supply

	// sqrt: price(s) = InitialPrice * sqrt((s+Rv)/(S0+Rv))
	InitialPrice   *big.Int // spark per token at the virtual initial supply
	VirtualReserve *big.Int // Rv, token base units
	VirtualSupply  *big.Int // S0, token base units

	// GraduationThreshold is spark of market cap (linear) or of total
	// collected value (sqrt).
	GraduationThreshold *big.Int
}

// NewCurve validates params and builds the model's Curve. The returned
// curve is immutable and safe for concurrent use.
func NewCurve(p Params) (Curve, error) {
	if p.GraduationThreshold == nil || p.GraduationThreshold.Sign() < 1 {
		return nil, fmt.Errorf("graduation threshold must be positive")
	}

	switch p.Model {
	case ModelLinear:
		if p.Base == nil || p.Base.Sign() < 0 {
			return nil, fmt.Errorf("linear base price must be non-negative")
		}
		if p.Slope == nil || p.Slope.Sign() < 0 {
			return nil, fmt.Errorf("linear slope must be non-negative")
		}
		if p.Base.Sign() == 0 && p.Slope.Sign() == 0 {
			return nil, fmt.Errorf("linear curve is degenerate: zero base and zero slope")
		}
		return &linearCurve{
			base:      new(big.Int).Set(p.Base),
			slope:     new(big.Int).Set(p.Slope),
			threshold: new(big.Int).Set(p.GraduationThreshold),
		}, nil
	case ModelSqrt:
		if p.InitialPrice == nil || p.InitialPrice.Sign() < 1 {
			return nil, fmt.Errorf("sqrt initial price must be positive")
		}
		if p.VirtualReserve == nil || p.VirtualReserve.Sign() < 1 {
			return nil, fmt.Errorf("sqrt virtual reserve must be positive")
		}
		if p.VirtualSupply == nil || p.VirtualSupply.Sign() < 1 {
			return nil, fmt.Errorf("sqrt virtual supply must be positive")
		}
		b := new(big.Int).Add(p.VirtualSupply, p.VirtualReserve)
		return &sqrtCurve{
			initialPrice: new(big.Int).Set(p.InitialPrice),
			vReserve:     new(big.Int).Set(p.VirtualReserve),
			vBase:        b,
			sqrtVBase:    cmath.Sqrt(b),
			threshold:    new(big.Int).Set(p.GraduationThreshold),
		}, nil
	}

	return nil, fmt.Errorf("unknown curve model: %d", p.Model)
}

func clampPrice(p *big.Int) *big.Int {
	if p.Cmp(MinSpotPrice) < 0 {
		return new(big.Int).Set(MinSpotPrice)
	}

	return p
}
