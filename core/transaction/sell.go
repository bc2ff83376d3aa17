package transaction

import (
	"fmt"
	"math/big"

	abcTypes "github.com/tendermint/tendermint/abci/types"

	"github.com/EmberTeam/ember-go-engine/core/code"
	eventsdb "github.com/EmberTeam/ember-go-engine/core/events"
	"github.com/EmberTeam/ember-go-engine/core/graduation"
	"github.com/EmberTeam/ember-go-engine/core/state"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/math"
)

// SellData burns TokensIn back into the market's curve for spark. The
// fee is taken off the gross payout, and the reserve must cover the
// gross.
type SellData struct {
	Market      types.TokenID `json:"market"`
	TokensIn    *big.Int      `json:"tokens_in"`
	MinValueOut *big.Int      `json:"min_value_out"`
}

func (data SellData) TradeType() TradeType {
	return TypeSell
}

func (data SellData) String() string {
	return fmt.Sprintf("SELL market:%d tokens:%s", data.Market.Uint32(), data.TokensIn.String())
}

func (data SellData) basicCheck(t *Trade, context *state.CheckState) *Response {
	if data.TokensIn == nil || data.MinValueOut == nil {
		return &Response{
			Code: code.DecodeError,
			Log:  "Incorrect trade data",
			Info: EncodeError(code.NewDecodeError()),
		}
	}

	if data.TokensIn.Sign() != 1 {
		return &Response{
			Code: code.WrongTradeValue,
			Log:  "Trade token amount must be positive",
			Info: EncodeError(code.NewWrongTradeValue(data.TokensIn.String())),
		}
	}

	market := context.Markets().GetMarket(data.Market)
	if market == nil {
		return &Response{
			Code: code.MarketNotFound,
			Log:  fmt.Sprintf("Market %d not found", data.Market.Uint32()),
			Info: EncodeError(code.NewMarketNotFound(data.Market.String())),
		}
	}

	if response := checkMarketTradable(context, market); response != nil {
		return response
	}

	if maxTokens := context.App().GetMaxTradeTokens(); maxTokens.Sign() == 1 && data.TokensIn.Cmp(maxTokens) == 1 {
		return &Response{
			Code: code.MaxTradeTokensExceeded,
			Log:  fmt.Sprintf("Trade tokens %s are over the cap %s", data.TokensIn.String(), maxTokens.String()),
			Info: EncodeError(code.NewMaxTradeTokensExceeded(maxTokens.String(), data.TokensIn.String())),
		}
	}

	return nil
}

func (data SellData) Run(t *Trade, context state.Interface, controller *graduation.Controller, height uint64, now uint64) Response {
	var checkState *state.CheckState
	var isCheck bool
	if checkState, isCheck = context.(*state.CheckState); !isCheck {
		checkState = state.NewCheckState(context.(*state.State))
	}

	if response := data.basicCheck(t, checkState); response != nil {
		return *response
	}

	if response := checkRateLimit(checkState, t.Actor, data.Market, height, now); response != nil {
		return *response
	}

	// the balance bound keeps TokensIn within the circulating supply
	if balance := checkState.Tokens().GetBalance(t.Actor, data.Market); balance.Cmp(data.TokensIn) == -1 {
		return Response{
			Code: code.InsufficientFunds,
			Log:  fmt.Sprintf("Insufficient funds for sender account: %s. Wanted %s tokens, has %s", t.Actor.String(), data.TokensIn.String(), balance.String()),
			Info: EncodeError(code.NewInsufficientFunds(t.Actor.String(), data.TokensIn.String(), data.Market.String())),
		}
	}

	market := checkState.Markets().GetMarket(data.Market)
	supply := market.GetSupply()
	newSupply := big.NewInt(0).Sub(supply, data.TokensIn)
	gross := market.Curve().CostBetween(newSupply, supply)

	if reserve := market.GetReserve(); gross.Cmp(reserve) == 1 {
		return Response{
			Code: code.InsufficientReserves,
			Log:  fmt.Sprintf("Market %d reserve %s does not cover the payout %s", data.Market.Uint32(), reserve.String(), gross.String()),
			Info: EncodeError(code.NewInsufficientReserves(data.Market.String(), reserve.String(), gross.String())),
		}
	}

	if maxValue := checkState.App().GetMaxTradeValue(); maxValue.Sign() == 1 && gross.Cmp(maxValue) == 1 {
		return Response{
			Code: code.MaxTradeValueExceeded,
			Log:  fmt.Sprintf("Trade value %s is over the cap %s", gross.String(), maxValue.String()),
			Info: EncodeError(code.NewMaxTradeValueExceeded(maxValue.String(), gross.String())),
		}
	}

	fee := math.MulDiv(gross, big.NewInt(int64(checkState.App().GetFeeBps())), big.NewInt(10000))
	payout := big.NewInt(0).Sub(gross, fee)

	minValueOut := big.NewInt(1)
	if data.MinValueOut.Cmp(minValueOut) == 1 {
		minValueOut = data.MinValueOut
	}
	if payout.Cmp(minValueOut) == -1 {
		return Response{
			Code: code.SlippageExceeded,
			Log:  fmt.Sprintf("You wanted to get minimum %s, but currently you will get %s spark", minValueOut.String(), payout.String()),
			Info: EncodeError(code.NewSlippageExceeded(minValueOut.String(), payout.String())),
		}
	}

	var tags []abcTypes.EventAttribute
	if deliverState, ok := context.(*state.State); ok {
		deliverState.Tokens.SubBalance(t.Actor, data.Market, data.TokensIn)
		deliverState.Markets.RecordSell(data.Market, data.TokensIn, payout, fee)
		deliverState.Tokens.AddBalance(t.Actor, types.ValueTokenID, payout)
		if fee.Sign() == 1 {
			deliverState.Tokens.AddBalance(checkState.App().GetFeeSink(), types.ValueTokenID, fee)
		}
		deliverState.RateLimit.Record(t.Actor, data.Market, now, height)

		deliverState.Bus().Events().AddEvent(&eventsdb.TradeEvent{
			Buy:     false,
			Address: t.Actor,
			Market:  uint64(data.Market.Uint32()),
			Value:   payout.String(),
			Tokens:  data.TokensIn.String(),
			Fee:     fee.String(),
			Hash:    t.Hash(height, now).String(),
		})

		tags = []abcTypes.EventAttribute{
			{Key: []byte("trade.market"), Value: []byte(data.Market.String()), Index: true},
			{Key: []byte("trade.tokens_in"), Value: []byte(data.TokensIn.String())},
			{Key: []byte("trade.fee"), Value: []byte(fee.String())},
			{Key: []byte("trade.value_out"), Value: []byte(payout.String())},
		}
	}

	return Response{
		Code: code.OK,
		Tags: tags,
	}
}
