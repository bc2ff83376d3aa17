package transaction

import (
	"math/big"
	"testing"

	"github.com/EmberTeam/ember-go-engine/core/code"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/formula"
	"github.com/EmberTeam/ember-go-engine/helpers"
)

func TestCreateMarketTrade(t *testing.T) {
	t.Parallel()
	cState := getState()

	addr := types.Address([20]byte{1})

	rawTrade := makeTrade(t, addr, TypeCreateMarket, 0, CreateMarketData{})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != 0 {
		t.Fatalf("Response code is not 0. Error: %s", response.Log)
	}

	if count := cState.Markets.MarketsCount(); count != 1 {
		t.Fatalf("Markets count is not correct. Expected 1, got %d", count)
	}

	market := cState.Markets.GetMarket(types.TokenID(1))
	if market == nil {
		t.Fatal("Market is not found")
	}
	if market.Authority != addr {
		t.Fatalf("Market authority is not correct. Expected %s, got %s", addr.String(), market.Authority.String())
	}

	// the engine default calibration applies when none is sent
	if market.Params.Model != formula.ModelSqrt {
		t.Fatalf("Market model is not correct. Got %s", market.Params.Model.String())
	}
	if market.Params.GraduationThreshold.Cmp(helpers.EmbToSpark(big.NewInt(500))) != 0 {
		t.Fatalf("Market threshold is not correct. Got %s", market.Params.GraduationThreshold)
	}

	// markets open unauthorized
	if market.IsAuthorized() {
		t.Fatal("New market must not be authorized")
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestCreateMarketTradeCustomCalibration(t *testing.T) {
	t.Parallel()
	cState := getState()

	addr := types.Address([20]byte{1})

	rawTrade := makeTrade(t, addr, TypeCreateMarket, 0, CreateMarketData{
		Calibration: &formula.Calibration{
			Model:           "linear",
			InitialValue:    "1000",
			GraduationValue: "5000",
			ReferenceSupply: "1000",
		},
	})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != 0 {
		t.Fatalf("Response code is not 0. Error: %s", response.Log)
	}

	market := cState.Markets.GetMarket(types.TokenID(1))
	if market == nil {
		t.Fatal("Market is not found")
	}
	if market.Params.Model != formula.ModelLinear {
		t.Fatalf("Market model is not correct. Got %s", market.Params.Model.String())
	}

	// base 1 EMB per token, slope 0.004, cap target carried over
	if market.Params.Base.Cmp(helpers.EmbToSpark(big.NewInt(1))) != 0 {
		t.Fatalf("Market base is not correct. Got %s", market.Params.Base)
	}

	slope := big.NewInt(0).Div(helpers.EmbToSpark(big.NewInt(4)), big.NewInt(1000))
	if market.Params.Slope.Cmp(slope) != 0 {
		t.Fatalf("Market slope is not correct. Expected %s, got %s", slope, market.Params.Slope)
	}
	if market.Params.GraduationThreshold.Cmp(helpers.EmbToSpark(big.NewInt(5000))) != 0 {
		t.Fatalf("Market threshold is not correct. Got %s", market.Params.GraduationThreshold)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestCreateMarketTradeWrongCalibration(t *testing.T) {
	t.Parallel()
	cState := getState()

	addr := types.Address([20]byte{1})

	rawTrade := makeTrade(t, addr, TypeCreateMarket, 0, CreateMarketData{
		Calibration: &formula.Calibration{Model: "cubic"},
	})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != code.WrongCalibration {
		t.Fatalf("Response code is not %d. Got %d", code.WrongCalibration, response.Code)
	}

	rawTrade = makeTrade(t, addr, TypeCreateMarket, 0, CreateMarketData{
		Calibration: &formula.Calibration{
			Model:           "linear",
			InitialValue:    "5000",
			GraduationValue: "1000",
			ReferenceSupply: "1000",
		},
	})

	response = runTrade(cState, rawTrade, 1, 100)
	if response.Code != code.WrongCalibration {
		t.Fatalf("Response code is not %d. Got %d", code.WrongCalibration, response.Code)
	}

	if count := cState.Markets.MarketsCount(); count != 0 {
		t.Fatalf("Failed trade must not open a market, got %d", count)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}
