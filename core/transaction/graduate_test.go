package transaction

import (
	"math/big"
	"testing"

	"github.com/EmberTeam/ember-go-engine/core/code"
	"github.com/EmberTeam/ember-go-engine/core/graduation"
	"github.com/EmberTeam/ember-go-engine/core/state"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/helpers"
	"github.com/pkg/errors"
)

type failingVenue struct{}

func (failingVenue) ProvisionLiquidity(types.TokenID, *big.Int, *big.Int, types.Address) (string, error) {
	return "", errors.New("venue rejected the pair")
}

func runTradeWithVenue(cState *state.State, book graduation.Venue, rawTrade []byte, height uint64, now uint64) Response {
	return NewExecutor(GetData, graduation.NewController(book)).RunTrade(cState, rawTrade, height, now, false)
}

// setupReadyMarket builds a sqrt market past its graduation threshold
// without tripping the crossing trigger, the shape an imported state
// arrives in.
func setupReadyMarket(t *testing.T, cState *state.State) types.TokenID {
	t.Helper()

	market := createSqrtMarket(cState)

	holder := types.Address([20]byte{2})
	fund(cState, holder, helpers.EmbToSpark(big.NewInt(600)))
	cState.Tokens.SubBalance(holder, types.ValueTokenID, helpers.EmbToSpark(big.NewInt(600)))
	cState.Markets.RecordBuy(market, helpers.EmbToSpark(big.NewInt(600)), big.NewInt(0), helpers.TokensToUnits(big.NewInt(200000)))
	cState.Tokens.AddBalance(holder, market, helpers.TokensToUnits(big.NewInt(200000)))

	return market
}

func TestGraduateTrade(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := setupReadyMarket(t, cState)

	rawTrade := makeTrade(t, marketAuthority, TypeGraduate, 0, GraduateData{Market: market})

	response := runTrade(cState, rawTrade, 5, 500)
	if response.Code != 0 {
		t.Fatalf("Response code is not 0. Error: %s", response.Log)
	}

	traded := cState.Markets.GetMarket(market)
	if !traded.IsGraduated() {
		t.Fatal("Market is not graduated")
	}
	if reserve := traded.GetReserve(); reserve.Sign() != 0 {
		t.Fatalf("Reserve must drain into the handoff, got %s", reserve)
	}

	record := cState.Markets.GetGraduation(market)
	if record == nil {
		t.Fatal("Graduation record is not found")
	}
	if record.IsPending() {
		t.Fatal("Handoff must complete in the same block")
	}
	if record.Height != 5 || record.Time != 500 {
		t.Fatalf("Record block stamp is not correct. Got %d at %d", record.Height, record.Time)
	}

	// 600 EMB collected: 480 to liquidity, 120 to the sink
	liquidityValue := helpers.EmbToSpark(big.NewInt(480))
	feeValue := helpers.EmbToSpark(big.NewInt(120))
	if record.LiquidityValue.Cmp(liquidityValue) != 0 {
		t.Fatalf("Liquidity value is not correct. Expected %s, got %s", liquidityValue, record.LiquidityValue)
	}
	if record.FeeValue.Cmp(feeValue) != 0 {
		t.Fatalf("Fee value is not correct. Expected %s, got %s", feeValue, record.FeeValue)
	}

	if balance := cState.Tokens.GetBalance(testFeeSink, types.ValueTokenID); balance.Cmp(feeValue) != 0 {
		t.Fatalf("Fee sink balance is not correct. Expected %s, got %s", feeValue, balance)
	}

	pool := cState.Venue.GetPool(market)
	if pool == nil {
		t.Fatal("Liquidity pool is not found")
	}
	if provider := pool.GetProvider(); provider != testFeeSink {
		t.Fatalf("Pool provider is not correct. Got %s", provider.String())
	}
	if valueReserve, _ := pool.Reserves(); valueReserve.Cmp(liquidityValue) != 0 {
		t.Fatalf("Pool value reserve is not correct. Expected %s, got %s", liquidityValue, valueReserve)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestGraduateTradeNotReady(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := createSqrtMarket(cState)

	rawTrade := makeTrade(t, marketAuthority, TypeGraduate, 0, GraduateData{Market: market})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != code.GraduationNotReady {
		t.Fatalf("Response code is not %d. Got %d", code.GraduationNotReady, response.Code)
	}

	if cState.Markets.GetMarket(market).IsGraduated() {
		t.Fatal("Market must not be graduated")
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestGraduateTradeNotAuthority(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := setupReadyMarket(t, cState)

	addr := types.Address([20]byte{1})

	rawTrade := makeTrade(t, addr, TypeGraduate, 0, GraduateData{Market: market})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != code.IsNotAuthorityOfMarket {
		t.Fatalf("Response code is not %d. Got %d", code.IsNotAuthorityOfMarket, response.Code)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestGraduateTradeMarketNotFound(t *testing.T) {
	t.Parallel()
	cState := getState()

	rawTrade := makeTrade(t, marketAuthority, TypeGraduate, 0, GraduateData{Market: types.TokenID(5)})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != code.MarketNotFound {
		t.Fatalf("Response code is not %d. Got %d", code.MarketNotFound, response.Code)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestGraduateTradeAlreadyGraduated(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := setupReadyMarket(t, cState)

	rawTrade := makeTrade(t, marketAuthority, TypeGraduate, 0, GraduateData{Market: market})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != 0 {
		t.Fatalf("Response code is not 0. Error: %s", response.Log)
	}

	response = runTrade(cState, rawTrade, 2, 200)
	if response.Code != code.AlreadyGraduated {
		t.Fatalf("Response code is not %d. Got %d", code.AlreadyGraduated, response.Code)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestGraduateTradeHandoffFailure(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := setupReadyMarket(t, cState)

	rawTrade := makeTrade(t, marketAuthority, TypeGraduate, 0, GraduateData{Market: market})

	response := runTradeWithVenue(cState, failingVenue{}, rawTrade, 5, 500)
	if response.Code != code.GraduationHandoffFailed {
		t.Fatalf("Response code is not %d. Got %d", code.GraduationHandoffFailed, response.Code)
	}

	// the market graduates anyway, with its liquidity parked
	traded := cState.Markets.GetMarket(market)
	if !traded.IsGraduated() {
		t.Fatal("Market is not graduated")
	}
	if reserve := traded.GetReserve(); reserve.Cmp(helpers.EmbToSpark(big.NewInt(600))) != 0 {
		t.Fatalf("Reserve must stay parked, got %s", reserve)
	}

	record := cState.Markets.GetGraduation(market)
	if record == nil || !record.IsPending() {
		t.Fatal("Graduation record must stay pending")
	}
	if cState.Venue.PoolExists(market) {
		t.Fatal("Failed handoff must leave no pool")
	}
	if balance := cState.Tokens.GetBalance(testFeeSink, types.ValueTokenID); balance.Sign() != 0 {
		t.Fatalf("Failed handoff must pay no fee, got %s", balance)
	}

	// only the authority may replay it
	addr := types.Address([20]byte{1})
	rawTrade = makeTrade(t, addr, TypeRetryHandoff, 0, RetryHandoffData{Market: market})

	response = runTrade(cState, rawTrade, 6, 600)
	if response.Code != code.IsNotAuthorityOfMarket {
		t.Fatalf("Response code is not %d. Got %d", code.IsNotAuthorityOfMarket, response.Code)
	}

	rawTrade = makeTrade(t, marketAuthority, TypeRetryHandoff, 0, RetryHandoffData{Market: market})

	response = runTrade(cState, rawTrade, 6, 600)
	if response.Code != 0 {
		t.Fatalf("Response code is not 0. Error: %s", response.Log)
	}

	if record := cState.Markets.GetGraduation(market); record.IsPending() {
		t.Fatal("Replayed handoff must complete")
	}
	if reserve := cState.Markets.GetMarket(market).GetReserve(); reserve.Sign() != 0 {
		t.Fatalf("Reserve must drain into the handoff, got %s", reserve)
	}
	if !cState.Venue.PoolExists(market) {
		t.Fatal("Liquidity pool is not found")
	}
	if balance := cState.Tokens.GetBalance(testFeeSink, types.ValueTokenID); balance.Cmp(helpers.EmbToSpark(big.NewInt(120))) != 0 {
		t.Fatalf("Fee sink balance is not correct. Got %s", balance)
	}

	response = runTrade(cState, rawTrade, 7, 700)
	if response.Code != code.LiquidityNotPending {
		t.Fatalf("Response code is not %d. Got %d", code.LiquidityNotPending, response.Code)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}

func TestRetryHandoffTradeNotPending(t *testing.T) {
	t.Parallel()
	cState := getState()
	market := createTestMarket(cState)

	rawTrade := makeTrade(t, marketAuthority, TypeRetryHandoff, 0, RetryHandoffData{Market: market})

	response := runTrade(cState, rawTrade, 1, 100)
	if response.Code != code.LiquidityNotPending {
		t.Fatalf("Response code is not %d. Got %d", code.LiquidityNotPending, response.Code)
	}

	if err := checkState(cState); err != nil {
		t.Error(err)
	}
}
