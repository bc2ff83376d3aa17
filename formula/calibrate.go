package formula

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Calibration is the human-readable form of curve constants carried by a
// deployment genesis: decimal strings in whole EMB and whole tokens,
// converted exactly onto the engine's 18-decimal fixed point.
type Calibration struct {
	Model string `json:"model"`

	// linear targets: market value of the reference supply priced at the
	// zero-supply price, and the market cap that triggers graduation
	InitialValue    string `json:"initial_value,omitempty"`
	GraduationValue string `json:"graduation_value,omitempty"`
	ReferenceSupply string `json:"reference_supply,omitempty"`

	// sqrt constants
	InitialPrice   string `json:"initial_price,omitempty"`
	VirtualReserve string `json:"virtual_reserve,omitempty"`
	VirtualSupply  string `json:"virtual_supply,omitempty"`

	// EMB of market cap (linear, defaults to GraduationValue) or of
	// collected value (sqrt)
	GraduationThreshold string `json:"graduation_threshold,omitempty"`
}

// ParseModel maps the genesis model selector onto a Model tag.
func ParseModel(s string) (Model, error) {
	switch s {
	case "linear":
		return ModelLinear, nil
	case "sqrt":
		return ModelSqrt, nil
	}

	return 0, fmt.Errorf("unknown curve model %q", s)
}

// fixedPoint scales a decimal field by 1e18 and requires the result to be
// a whole number of atomic units.
func fixedPoint(field, s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%s is required", field)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", field, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%s must not be negative", field)
	}

	scaled := d.Shift(18)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%s carries more than 18 decimal places", field)
	}

	return scaled.BigInt(), nil
}

// ParseCalibration derives the fixed-point Params of the selected model
// from its calibration targets. For the linear model the two value
// targets pin the price line: base = initial/reference, and the slope is
// whatever lifts the market cap to the graduation value at the reference
// supply.
func ParseCalibration(c Calibration) (Params, error) {
	model, err := ParseModel(c.Model)
	if err != nil {
		return Params{}, err
	}

	switch model {
	case ModelLinear:
		vi, err := decimal.NewFromString(c.InitialValue)
		if err != nil {
			return Params{}, fmt.Errorf("initial_value: %v", err)
		}
		vg, err := decimal.NewFromString(c.GraduationValue)
		if err != nil {
			return Params{}, fmt.Errorf("graduation_value: %v", err)
		}
		sg, err := decimal.NewFromString(c.ReferenceSupply)
		if err != nil {
			return Params{}, fmt.Errorf("reference_supply: %v", err)
		}
		if sg.Sign() < 1 {
			return Params{}, fmt.Errorf("reference_supply must be positive")
		}
		if vg.Cmp(vi) < 0 {
			return Params{}, fmt.Errorf("graduation_value must not be below initial_value")
		}

		base := vi.DivRound(sg, 24).Shift(18).Truncate(0).BigInt()
		slope := vg.Sub(vi).DivRound(sg.Mul(sg), 24).Shift(18).Truncate(0).BigInt()

		thresholdSrc := c.GraduationThreshold
		if thresholdSrc == "" {
			thresholdSrc = c.GraduationValue
		}
		threshold, err := fixedPoint("graduation_threshold", thresholdSrc)
		if err != nil {
			return Params{}, err
		}

		return Params{
			Model:               ModelLinear,
			Base:                base,
			Slope:               slope,
			GraduationThreshold: threshold,
		}, nil
	case ModelSqrt:
		initialPrice, err := fixedPoint("initial_price", c.InitialPrice)
		if err != nil {
			return Params{}, err
		}
		vReserve, err := fixedPoint("virtual_reserve", c.VirtualReserve)
		if err != nil {
			return Params{}, err
		}
		vSupply, err := fixedPoint("virtual_supply", c.VirtualSupply)
		if err != nil {
			return Params{}, err
		}
		threshold, err := fixedPoint("graduation_threshold", c.GraduationThreshold)
		if err != nil {
			return Params{}, err
		}

		return Params{
			Model:               ModelSqrt,
			InitialPrice:        initialPrice,
			VirtualReserve:      vReserve,
			VirtualSupply:       vSupply,
			GraduationThreshold: threshold,
		}, nil
	}

	return Params{}, fmt.Errorf("unknown curve model: %d", model)
}
