package transaction

import (
	"math/big"
	"testing"

	"github.com/EmberTeam/ember-go-engine/core/code"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/helpers"
)

func TestSellTrade(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := createTestMarket(cState)

	addr := types.Address([20]byte{1})
	fund(cState, addr, helpers.EmbToSpark(big.NewInt(100)))

	rawTrade := makeTrade(t, addr, TypeBuy, 0, BuyData{
		Market:       market,
		ValueIn:      helpers.EmbToSpark(big.NewInt(10)),
		MinTokensOut: big.NewInt(0),
	})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != 0 {
		t.Fatalf("Response code is not 0. Error: %s", response.Log)
	}

	tokens := big.NewInt(0).Div(helpers.EmbToSpark(big.NewInt(99)), big.NewInt(10))
	rawTrade = makeTrade(t, addr, TypeSell, 0, SellData{
		Market:      market,
		TokensIn:    tokens,
		MinValueOut: big.NewInt(0),
	})

	response = runTrade(cState, rawTrade, 1, 103)
	if response.Code != 0 {
		t.Fatalf("Response code is not 0. Error: %s", response.Log)
	}

	// 9.9 tokens gross 9.9 EMB, 0.099 EMB fee, 9.801 EMB paid out
	balance := big.NewInt(0).Add(
		helpers.EmbToSpark(big.NewInt(90)),
		big.NewInt(0).Div(helpers.EmbToSpark(big.NewInt(9801)), big.NewInt(1000)),
	)
	if value := cState.Tokens.GetBalance(addr, types.ValueTokenID); value.Cmp(balance) != 0 {
		t.Fatalf("Target %s balance is not correct. Expected %s, got %s", addr.String(), balance, value)
	}
	if value := cState.Tokens.GetBalance(addr, market); value.Sign() != 0 {
		t.Fatalf("Target %s token balance is not correct. Expected 0, got %s", addr.String(), value)
	}

	sinkTotal := big.NewInt(0).Div(helpers.EmbToSpark(big.NewInt(199)), big.NewInt(1000))
	if value := cState.Tokens.GetBalance(testFeeSink, types.ValueTokenID); value.Cmp(sinkTotal) != 0 {
		t.Fatalf("Fee sink balance is not correct. Expected %s, got %s", sinkTotal, value)
	}

	traded := cState.Markets.GetMarket(market)
	if supply := traded.GetSupply(); supply.Sign() != 0 {
		t.Fatalf("Market supply is not correct. Expected 0, got %s", supply)
	}
	if reserve := traded.GetReserve(); reserve.Sign() != 0 {
		t.Fatalf("Market reserve is not correct. Expected 0, got %s", reserve)
	}

	// total collected only ever counts inflow
	net := big.NewInt(0).Div(helpers.EmbToSpark(big.NewInt(99)), big.NewInt(10))
	if collected := traded.GetTotalCollected(); collected.Cmp(net) != 0 {
		t.Fatalf("Market total collected is not correct. Expected %s, got %s", net, collected)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestSellTradeWrongValue(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := createTestMarket(cState)

	addr := types.Address([20]byte{1})

	rawTrade := makeTrade(t, addr, TypeSell, 0, SellData{
		Market:      market,
		TokensIn:    big.NewInt(0),
		MinValueOut: big.NewInt(0),
	})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != code.WrongTradeValue {
		t.Fatalf("Response code is not %d. Got %d", code.WrongTradeValue, response.Code)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestSellTradeInsufficientFunds(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := createTestMarket(cState)

	addr := types.Address([20]byte{1})

	rawTrade := makeTrade(t, addr, TypeSell, 0, SellData{
		Market:      market,
		TokensIn:    helpers.TokensToUnits(big.NewInt(1)),
		MinValueOut: big.NewInt(0),
	})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != code.InsufficientFunds {
		t.Fatalf("Response code is not %d. Got %d", code.InsufficientFunds, response.Code)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestSellTradeSlippage(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := createTestMarket(cState)

	addr := types.Address([20]byte{1})
	fund(cState, addr, helpers.EmbToSpark(big.NewInt(10)))

	rawTrade := makeTrade(t, addr, TypeBuy, 0, BuyData{
		Market:       market,
		ValueIn:      helpers.EmbToSpark(big.NewInt(10)),
		MinTokensOut: big.NewInt(0),
	})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != 0 {
		t.Fatalf("Response code is not 0. Error: %s", response.Log)
	}

	tokens := big.NewInt(0).Div(helpers.EmbToSpark(big.NewInt(99)), big.NewInt(10))
	payout := big.NewInt(0).Div(helpers.EmbToSpark(big.NewInt(9801)), big.NewInt(1000))

	rawTrade = makeTrade(t, addr, TypeSell, 0, SellData{
		Market:      market,
		TokensIn:    tokens,
		MinValueOut: big.NewInt(0).Add(payout, big.NewInt(1)),
	})

	response = runTrade(cState, rawTrade, 1, 103)
	if response.Code != code.SlippageExceeded {
		t.Fatalf("Response code is not %d. Got %d", code.SlippageExceeded, response.Code)
	}

	rawTrade = makeTrade(t, addr, TypeSell, 0, SellData{
		Market:      market,
		TokensIn:    tokens,
		MinValueOut: payout,
	})

	response = runTrade(cState, rawTrade, 1, 103)
	if response.Code != 0 {
		t.Fatalf("Response code is not 0. Error: %s", response.Log)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestSellTradeInsufficientReserves(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := createTestMarket(cState)

	// a market whose holders are owed more than its reserve at the
	// current price, the shape an import bug or mispriced calibration
	// would produce
	addr := types.Address([20]byte{1})
	fund(cState, addr, helpers.EmbToSpark(big.NewInt(1)))
	cState.Tokens.SubBalance(addr, types.ValueTokenID, helpers.EmbToSpark(big.NewInt(1)))
	cState.Markets.RecordBuy(market, helpers.EmbToSpark(big.NewInt(1)), big.NewInt(0), helpers.TokensToUnits(big.NewInt(1000)))
	cState.Tokens.AddBalance(addr, market, helpers.TokensToUnits(big.NewInt(1000)))

	rawTrade := makeTrade(t, addr, TypeSell, 0, SellData{
		Market:      market,
		TokensIn:    helpers.TokensToUnits(big.NewInt(1000)),
		MinValueOut: big.NewInt(0),
	})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != code.InsufficientReserves {
		t.Fatalf("Response code is not %d. Got %d", code.InsufficientReserves, response.Code)
	}

	if balance := cState.Tokens.GetBalance(addr, market); balance.Cmp(helpers.TokensToUnits(big.NewInt(1000))) != 0 {
		t.Fatalf("Failed trade must not touch the balance, got %s", balance)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestSellTradeTokenCap(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := createTestMarket(cState)

	params := defaultEngineParams()
	params.MaxTradeTokens = helpers.TokensToUnits(big.NewInt(1)).String()
	if err := cState.App.SetParams(params); err != nil {
		t.Fatal(err)
	}

	addr := types.Address([20]byte{1})

	rawTrade := makeTrade(t, addr, TypeSell, 0, SellData{
		Market:      market,
		TokensIn:    helpers.TokensToUnits(big.NewInt(2)),
		MinValueOut: big.NewInt(0),
	})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != code.MaxTradeTokensExceeded {
		t.Fatalf("Response code is not %d. Got %d", code.MaxTradeTokensExceeded, response.Code)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestSellTradeValueCap(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := createTestMarket(cState)

	addr := types.Address([20]byte{1})
	fund(cState, addr, helpers.EmbToSpark(big.NewInt(10)))

	rawTrade := makeTrade(t, addr, TypeBuy, 0, BuyData{
		Market:       market,
		ValueIn:      helpers.EmbToSpark(big.NewInt(10)),
		MinTokensOut: big.NewInt(0),
	})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != 0 {
		t.Fatalf("Response code is not 0. Error: %s", response.Log)
	}

	params := defaultEngineParams()
	params.MaxTradeValue = helpers.EmbToSpark(big.NewInt(5)).String()
	if err := cState.App.SetParams(params); err != nil {
		t.Fatal(err)
	}

	// the cap binds the gross proceeds, 9.9 EMB here
	tokens := big.NewInt(0).Div(helpers.EmbToSpark(big.NewInt(99)), big.NewInt(10))
	rawTrade = makeTrade(t, addr, TypeSell, 0, SellData{
		Market:      market,
		TokensIn:    tokens,
		MinValueOut: big.NewInt(0),
	})

	response = runTrade(cState, rawTrade, 1, 103)
	if response.Code != code.MaxTradeValueExceeded {
		t.Fatalf("Response code is not %d. Got %d", code.MaxTradeValueExceeded, response.Code)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestSellTradeRoundTripConservation(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := createTestMarket(cState)

	params := defaultEngineParams()
	params.FeeBps = 0
	if err := cState.App.SetParams(params); err != nil {
		t.Fatal(err)
	}

	addr := types.Address([20]byte{1})
	fund(cState, addr, helpers.EmbToSpark(big.NewInt(10)))

	rawTrade := makeTrade(t, addr, TypeBuy, 0, BuyData{
		Market:       market,
		ValueIn:      helpers.EmbToSpark(big.NewInt(10)),
		MinTokensOut: big.NewInt(0),
	})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != 0 {
		t.Fatalf("Response code is not 0. Error: %s", response.Log)
	}

	rawTrade = makeTrade(t, addr, TypeSell, 0, SellData{
		Market:      market,
		TokensIn:    helpers.TokensToUnits(big.NewInt(10)),
		MinValueOut: big.NewInt(0),
	})

	response = runTrade(cState, rawTrade, 1, 103)
	if response.Code != 0 {
		t.Fatalf("Response code is not 0. Error: %s", response.Log)
	}

	// with no fee the flat curve refunds the round trip exactly
	if balance := cState.Tokens.GetBalance(addr, types.ValueTokenID); balance.Cmp(helpers.EmbToSpark(big.NewInt(10))) != 0 {
		t.Fatalf("Round trip must refund the full value, got %s", balance)
	}

	traded := cState.Markets.GetMarket(market)
	if supply := traded.GetSupply(); supply.Sign() != 0 {
		t.Fatalf("Market supply is not correct. Expected 0, got %s", supply)
	}
	if reserve := traded.GetReserve(); reserve.Sign() != 0 {
		t.Fatalf("Market reserve is not correct. Expected 0, got %s", reserve)
	}
	if collected := traded.GetTotalCollected(); collected.Cmp(helpers.EmbToSpark(big.NewInt(10))) != 0 {
		t.Fatalf("Market total collected is not correct. Expected %s, got %s", helpers.EmbToSpark(big.NewInt(10)), collected)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestSellTradeOnGraduatedMarket(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := createSqrtMarket(cState)

	addr := types.Address([20]byte{1})
	fund(cState, addr, helpers.EmbToSpark(big.NewInt(700)))

	rawTrade := makeTrade(t, addr, TypeBuy, 0, BuyData{
		Market:       market,
		ValueIn:      helpers.EmbToSpark(big.NewInt(600)),
		MinTokensOut: big.NewInt(0),
	})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != 0 {
		t.Fatalf("Response code is not 0. Error: %s", response.Log)
	}

	if !cState.Markets.GetMarket(market).IsGraduated() {
		t.Fatal("Market is not graduated")
	}

	rawTrade = makeTrade(t, addr, TypeSell, 0, SellData{
		Market:      market,
		TokensIn:    big.NewInt(1),
		MinValueOut: big.NewInt(0),
	})

	response = runTrade(cState, rawTrade, 2, 200)
	if response.Code != code.AlreadyGraduated {
		t.Fatalf("Response code is not %d. Got %d", code.AlreadyGraduated, response.Code)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}
