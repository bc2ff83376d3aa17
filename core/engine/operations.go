package engine

import (
	"encoding/json"
	"math/big"

	"github.com/EmberTeam/ember-go-engine/core/state"
	"github.com/EmberTeam/ember-go-engine/core/state/markets"
	"github.com/EmberTeam/ember-go-engine/core/transaction"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/formula"
	"github.com/EmberTeam/ember-go-engine/math"
)

// Quote is a dry-run preview of a trade. IsValid is false whenever the
// same trade would be rejected; the numbers are meaningful only when it
// is true. PriceImpact is in basis points against the spot price.
type Quote struct {
	AmountOut   *big.Int `json:"amount_out"`
	Fee         *big.Int `json:"fee"`
	PriceImpact *big.Int `json:"price_impact"`
	IsValid     bool     `json:"is_valid"`
}

func invalidQuote() *Quote {
	return &Quote{
		AmountOut:   big.NewInt(0),
		Fee:         big.NewInt(0),
		PriceImpact: big.NewInt(0),
		IsValid:     false,
	}
}

// BuyQuote previews a buy of valueIn spark on the market, against the
// given state. It never mutates anything.
func BuyQuote(cState *state.CheckState, market types.TokenID, valueIn *big.Int) *Quote {
	m := cState.Markets().GetMarket(market)
	if m == nil || !m.IsTradable() {
		return invalidQuote()
	}

	if valueIn == nil || valueIn.Sign() != 1 {
		return invalidQuote()
	}
	if maxValue := cState.App().GetMaxTradeValue(); maxValue.Sign() == 1 && valueIn.Cmp(maxValue) == 1 {
		return invalidQuote()
	}

	fee := math.MulDiv(valueIn, big.NewInt(int64(cState.App().GetFeeBps())), big.NewInt(10000))
	netValue := big.NewInt(0).Sub(valueIn, fee)
	if netValue.Sign() != 1 {
		return invalidQuote()
	}

	supply := m.GetSupply()
	tokensOut := m.Curve().TokensForValue(supply, netValue)
	if tokensOut.Sign() != 1 {
		return invalidQuote()
	}
	if maxTokens := cState.App().GetMaxTradeTokens(); maxTokens.Sign() == 1 && tokensOut.Cmp(maxTokens) == 1 {
		return invalidQuote()
	}

	spot := m.Curve().Price(supply)
	effective := math.MulDiv(netValue, formula.Scale(), tokensOut)
	impact := math.MulDiv(big.NewInt(0).Sub(effective, spot), big.NewInt(10000), spot)

	return &Quote{
		AmountOut:   tokensOut,
		Fee:         fee,
		PriceImpact: impact,
		IsValid:     true,
	}
}

// SellQuote previews a sell of tokensIn base units on the market,
// against the given state. It never mutates anything.
func SellQuote(cState *state.CheckState, market types.TokenID, tokensIn *big.Int) *Quote {
	m := cState.Markets().GetMarket(market)
	if m == nil || !m.IsTradable() {
		return invalidQuote()
	}

	if tokensIn == nil || tokensIn.Sign() != 1 {
		return invalidQuote()
	}
	if maxTokens := cState.App().GetMaxTradeTokens(); maxTokens.Sign() == 1 && tokensIn.Cmp(maxTokens) == 1 {
		return invalidQuote()
	}

	supply := m.GetSupply()
	if tokensIn.Cmp(supply) == 1 {
		return invalidQuote()
	}

	newSupply := big.NewInt(0).Sub(supply, tokensIn)
	gross := m.Curve().CostBetween(newSupply, supply)
	if gross.Cmp(m.GetReserve()) == 1 {
		return invalidQuote()
	}
	if maxValue := cState.App().GetMaxTradeValue(); maxValue.Sign() == 1 && gross.Cmp(maxValue) == 1 {
		return invalidQuote()
	}

	fee := math.MulDiv(gross, big.NewInt(int64(cState.App().GetFeeBps())), big.NewInt(10000))
	payout := big.NewInt(0).Sub(gross, fee)
	if payout.Sign() != 1 {
		return invalidQuote()
	}

	spot := m.Curve().Price(supply)
	effective := math.MulDiv(gross, formula.Scale(), tokensIn)
	impact := math.MulDiv(big.NewInt(0).Sub(spot, effective), big.NewInt(10000), spot)

	return &Quote{
		AmountOut:   payout,
		Fee:         fee,
		PriceImpact: impact,
		IsValid:     true,
	}
}

// GetBuyQuote previews a buy against the current state
func (engine *Engine) GetBuyQuote(market types.TokenID, valueIn *big.Int) *Quote {
	return BuyQuote(engine.CurrentState(), market, valueIn)
}

// GetSellQuote previews a sell against the current state
func (engine *Engine) GetSellQuote(market types.TokenID, tokensIn *big.Int) *Quote {
	return SellQuote(engine.CurrentState(), market, tokensIn)
}

// MarketInfo is a point-in-time snapshot of one market
type MarketInfo struct {
	ID             types.TokenID `json:"id"`
	Authority      types.Address `json:"authority"`
	Model          string        `json:"model"`
	Supply         *big.Int      `json:"supply"`
	Reserve        *big.Int      `json:"reserve"`
	TotalCollected *big.Int      `json:"total_collected"`
	SpotPrice      *big.Int      `json:"spot_price"`
	MarketCap      *big.Int      `json:"market_cap"`
	Authorized     bool          `json:"authorized"`
	Paused         bool          `json:"paused"`
	Graduated      bool          `json:"graduated"`
}

// GetMarketInfo returns the market snapshot, or nil when the market does
// not exist.
func (engine *Engine) GetMarketInfo(market types.TokenID) *MarketInfo {
	return MarketInfoFromState(engine.CurrentState(), market)
}

func MarketInfoFromState(cState *state.CheckState, market types.TokenID) *MarketInfo {
	m := cState.Markets().GetMarket(market)
	if m == nil {
		return nil
	}

	supply := m.GetSupply()
	return &MarketInfo{
		ID:             m.ID(),
		Authority:      m.Authority,
		Model:          m.Params.Model.String(),
		Supply:         supply,
		Reserve:        m.GetReserve(),
		TotalCollected: m.GetTotalCollected(),
		SpotPrice:      m.Curve().Price(supply),
		MarketCap:      m.Curve().MarketCap(supply),
		Authorized:     m.IsAuthorized(),
		Paused:         m.IsPaused(),
		Graduated:      m.IsGraduated(),
	}
}

// GraduationStatus reports how far a market is from freezing. Progress
// is the trigger measure of the market's model: market cap for linear,
// collected value for sqrt. Record is set once graduated.
type GraduationStatus struct {
	Graduated bool                      `json:"graduated"`
	Pending   bool                      `json:"pending"`
	Threshold *big.Int                  `json:"threshold"`
	Progress  *big.Int                  `json:"progress"`
	Record    *markets.GraduationRecord `json:"record,omitempty"`
}

// GetGraduationStatus returns the market's graduation progress, or nil
// when the market does not exist.
func (engine *Engine) GetGraduationStatus(market types.TokenID) *GraduationStatus {
	return GraduationStatusFromState(engine.CurrentState(), market)
}

func GraduationStatusFromState(cState *state.CheckState, market types.TokenID) *GraduationStatus {
	m := cState.Markets().GetMarket(market)
	if m == nil {
		return nil
	}

	progress := m.GetTotalCollected()
	if m.Params.Model == formula.ModelLinear {
		progress = m.Curve().MarketCap(m.GetSupply())
	}

	status := &GraduationStatus{
		Graduated: m.IsGraduated(),
		Threshold: big.NewInt(0).Set(m.Params.GraduationThreshold),
		Progress:  progress,
	}

	if record := cState.Markets().GetGraduation(market); record != nil {
		status.Pending = record.IsPending()
		status.Record = record
	}

	return status
}

// Buy submits a buy trade built from the arguments. Zero deadline never
// expires.
func (engine *Engine) Buy(actor types.Address, market types.TokenID, valueIn, minTokensOut *big.Int, deadline uint64) transaction.Response {
	return engine.submit(actor, &transaction.BuyData{
		Market:       market,
		ValueIn:      valueIn,
		MinTokensOut: minTokensOut,
	}, deadline)
}

// Sell submits a sell trade built from the arguments
func (engine *Engine) Sell(actor types.Address, market types.TokenID, tokensIn, minValueOut *big.Int, deadline uint64) transaction.Response {
	return engine.submit(actor, &transaction.SellData{
		Market:      market,
		TokensIn:    tokensIn,
		MinValueOut: minValueOut,
	}, deadline)
}

// CreateMarket submits a market creation for the given authority. A nil
// calibration takes the deployment curve.
func (engine *Engine) CreateMarket(authority types.Address, calibration *formula.Calibration) transaction.Response {
	return engine.submit(authority, &transaction.CreateMarketData{
		Calibration: calibration,
	}, 0)
}

// AuthorizeMarket flips trading on or off for the market
func (engine *Engine) AuthorizeMarket(authority types.Address, market types.TokenID, authorized bool) transaction.Response {
	return engine.submit(authority, &transaction.AuthorizeData{
		Market:     market,
		Authorized: authorized,
	}, 0)
}

// SetMarketPaused pauses or resumes trading on the market
func (engine *Engine) SetMarketPaused(authority types.Address, market types.TokenID, paused bool) transaction.Response {
	return engine.submit(authority, &transaction.SetPausedData{
		Market: market,
		Paused: paused,
	}, 0)
}

// ManualGraduate freezes the market ahead of its threshold
func (engine *Engine) ManualGraduate(authority types.Address, market types.TokenID) transaction.Response {
	return engine.submit(authority, &transaction.GraduateData{
		Market: market,
	}, 0)
}

// RetryHandoff retries the venue handoff of a graduation that is stuck
// pending
func (engine *Engine) RetryHandoff(authority types.Address, market types.TokenID) transaction.Response {
	return engine.submit(authority, &transaction.RetryHandoffData{
		Market: market,
	}, 0)
}

func (engine *Engine) submit(actor types.Address, data transaction.Data, deadline uint64) transaction.Response {
	payload, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}

	rawTrade, err := json.Marshal(&transaction.Trade{
		Actor:    actor,
		Type:     data.TradeType(),
		Deadline: deadline,
		Data:     payload,
	})
	if err != nil {
		panic(err)
	}

	return engine.SubmitTrade(rawTrade)
}
