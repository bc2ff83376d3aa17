package transaction

import (
	"encoding/json"
	"math/big"
	"math/rand"
	"testing"

	"github.com/EmberTeam/ember-go-engine/core/code"
	eventsdb "github.com/EmberTeam/ember-go-engine/core/events"
	"github.com/EmberTeam/ember-go-engine/core/graduation"
	"github.com/EmberTeam/ember-go-engine/core/state"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/formula"
	"github.com/EmberTeam/ember-go-engine/helpers"
	db "github.com/tendermint/tm-db"
)

var (
	marketAuthority = types.HexToAddress("Ex7633980c000139dd3bd24a3f54e06474fa941e16")
	testFeeSink     = types.HexToAddress("Exfee0000000000000000000000000000000000000")
)

func defaultEngineParams() types.EngineParams {
	return types.EngineParams{
		FeeBps:               100,
		CooldownSeconds:      3,
		MaxTradesPerBlock:    3,
		MaxTradeValue:        "0",
		MaxTradeTokens:       "0",
		LiquidityFractionBps: 8000,
		MinLiquidityValue:    "1000000000000000000",
		MinLiquidityTokens:   "1000000000000000000",
		FeeSink:              testFeeSink,
		Curve: formula.Calibration{
			Model:               "sqrt",
			InitialPrice:        "0.000001",
			VirtualReserve:      "30",
			VirtualSupply:       "1000000",
			GraduationThreshold: "500",
		},
	}
}

func getState() *state.State {
	s, err := state.NewState(0, db.NewMemDB(), &eventsdb.MockEvents{}, 1, 1, 0)
	if err != nil {
		panic(err)
	}

	if err := s.App.SetParams(defaultEngineParams()); err != nil {
		panic(err)
	}

	return s
}

func checkState(cState *state.State) error {
	if err := cState.Check(); err != nil {
		return err
	}

	if _, err := cState.Commit(); err != nil {
		return err
	}

	exportedState := cState.Export()
	if err := exportedState.Verify(); err != nil {
		return err
	}

	return nil
}

func formulaParamsFlat() formula.Params {
	return formula.Params{
		Model:               formula.ModelLinear,
		Base:                helpers.EmbToSpark(big.NewInt(1)),
		Slope:               big.NewInt(0),
		GraduationThreshold: helpers.EmbToSpark(big.NewInt(40000)),
	}
}

// createTestMarket opens an authorized flat linear market priced at one
// EMB per token, far away from its graduation cap.
func createTestMarket(cState *state.State) types.TokenID {
	market := cState.Markets.CreateMarket(marketAuthority, formulaParamsFlat())
	cState.Markets.Authorize(market.ID(), true)

	return market.ID()
}

// createSqrtMarket opens an authorized sqrt market graduating at 500
// EMB of collected value.
func createSqrtMarket(cState *state.State) types.TokenID {
	market := cState.Markets.CreateMarket(marketAuthority, formula.Params{
		Model:               formula.ModelSqrt,
		InitialPrice:        big.NewInt(1000000000000),
		VirtualReserve:      helpers.TokensToUnits(big.NewInt(30)),
		VirtualSupply:       helpers.TokensToUnits(big.NewInt(1000000)),
		GraduationThreshold: helpers.EmbToSpark(big.NewInt(500)),
	})
	cState.Markets.Authorize(market.ID(), true)

	return market.ID()
}

// fund credits spark the way a genesis allocation would, without
// tripping the conservation checker.
func fund(cState *state.State, address types.Address, value *big.Int) {
	cState.Tokens.AddBalance(address, types.ValueTokenID, value)
	cState.Checker.RemoveValueToken()
}

func makeTrade(t *testing.T, actor types.Address, tradeType TradeType, deadline uint64, data interface{}) []byte {
	t.Helper()

	encodedData, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}

	encodedTrade, err := json.Marshal(Trade{
		Actor:    actor,
		Type:     tradeType,
		Deadline: deadline,
		Data:     encodedData,
	})
	if err != nil {
		t.Fatal(err)
	}

	return encodedTrade
}

func runTrade(cState *state.State, rawTrade []byte, height uint64, now uint64) Response {
	controller := graduation.NewController(graduation.NewBucketVenue(cState.Venue))
	return NewExecutor(GetData, controller).RunTrade(cState, rawTrade, height, now, false)
}

func TestTooLongTrade(t *testing.T) {
	t.Parallel()
	fakeTrade := make([]byte, maxTradeLength+1)

	cState := getState()
	response := runTrade(cState, fakeTrade, 0, 0)
	if response.Code != code.DecodeError {
		t.Fatalf("Response code is not correct")
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestIncorrectTrade(t *testing.T) {
	t.Parallel()
	fakeTrade := make([]byte, 32)
	rand.Read(fakeTrade)

	cState := getState()
	response := runTrade(cState, fakeTrade, 0, 0)
	if response.Code != code.DecodeError {
		t.Fatalf("Response code is not correct")
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestUnregisteredTradeType(t *testing.T) {
	t.Parallel()
	cState := getState()

	rawTrade := makeTrade(t, marketAuthority, TradeType(0x7f), 0, BuyData{
		Market:       types.TokenID(1),
		ValueIn:      big.NewInt(1),
		MinTokensOut: big.NewInt(0),
	})

	response := runTrade(cState, rawTrade, 0, 0)
	if response.Code != code.DecodeError {
		t.Fatalf("Response code is not %d. Got %d", code.DecodeError, response.Code)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestEmptyActor(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := createTestMarket(cState)

	rawTrade := makeTrade(t, types.Address{}, TypeBuy, 0, BuyData{
		Market:       market,
		ValueIn:      helpers.EmbToSpark(big.NewInt(1)),
		MinTokensOut: big.NewInt(0),
	})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != code.DecodeError {
		t.Fatalf("Response code is not %d. Got %d", code.DecodeError, response.Code)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestExpiredDeadline(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := createTestMarket(cState)

	addr := types.Address([20]byte{1})
	fund(cState, addr, helpers.EmbToSpark(big.NewInt(10)))

	rawTrade := makeTrade(t, addr, TypeBuy, 99, BuyData{
		Market:       market,
		ValueIn:      helpers.EmbToSpark(big.NewInt(1)),
		MinTokensOut: big.NewInt(0),
	})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != code.DeadlineExpired {
		t.Fatalf("Response code is not %d. Got %d", code.DeadlineExpired, response.Code)
	}

	// the boundary is inclusive
	rawTrade = makeTrade(t, addr, TypeBuy, 100, BuyData{
		Market:       market,
		ValueIn:      helpers.EmbToSpark(big.NewInt(1)),
		MinTokensOut: big.NewInt(0),
	})

	response = runTrade(cState, rawTrade, 1, 100)
	if response.Code != 0 {
		t.Fatalf("Response code is not 0. Error: %s", response.Log)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestCheckStateLeavesNoTrace(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := createTestMarket(cState)

	addr := types.Address([20]byte{1})
	fund(cState, addr, helpers.EmbToSpark(big.NewInt(10)))

	rawTrade := makeTrade(t, addr, TypeBuy, 0, BuyData{
		Market:       market,
		ValueIn:      helpers.EmbToSpark(big.NewInt(1)),
		MinTokensOut: big.NewInt(0),
	})

	controller := graduation.NewController(graduation.NewBucketVenue(cState.Venue))
	response := NewExecutor(GetData, controller).RunTrade(state.NewCheckState(cState), rawTrade, 1, 100, false)
	if response.Code != 0 {
		t.Fatalf("Response code is not 0. Error: %s", response.Log)
	}
	if response.Tags != nil {
		t.Fatal("check response must not carry tags")
	}

	if supply := cState.Markets.GetMarket(market).GetSupply(); supply.Sign() != 0 {
		t.Fatalf("check must not mutate supply, got %s", supply)
	}
	if balance := cState.Tokens.GetBalance(addr, types.ValueTokenID); balance.Cmp(helpers.EmbToSpark(big.NewInt(10))) != 0 {
		t.Fatalf("check must not touch balances, got %s", balance)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}
