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

// BuyData spends ValueIn spark on the market's curve. The fee is taken
// off ValueIn first, so tokens are minted against the net value.
type BuyData struct {
	Market       types.TokenID `json:"market"`
	ValueIn      *big.Int      `json:"value_in"`
	MinTokensOut *big.Int      `json:"min_tokens_out"`
}

func (data BuyData) TradeType() TradeType {
	return TypeBuy
}

func (data BuyData) String() string {
	return fmt.Sprintf("BUY market:%d value:%s", data.Market.Uint32(), data.ValueIn.String())
}

func (data BuyData) basicCheck(t *Trade, context *state.CheckState) *Response {
	if data.ValueIn == nil || data.MinTokensOut == nil {
		return &Response{
			Code: code.DecodeError,
			Log:  "Incorrect trade data",
			Info: EncodeError(code.NewDecodeError()),
		}
	}

	if data.ValueIn.Sign() != 1 {
		return &Response{
			Code: code.WrongTradeValue,
			Log:  "Trade value must be positive",
			Info: EncodeError(code.NewWrongTradeValue(data.ValueIn.String())),
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

	if maxValue := context.App().GetMaxTradeValue(); maxValue.Sign() == 1 && data.ValueIn.Cmp(maxValue) == 1 {
		return &Response{
			Code: code.MaxTradeValueExceeded,
			Log:  fmt.Sprintf("Trade value %s is over the cap %s", data.ValueIn.String(), maxValue.String()),
			Info: EncodeError(code.NewMaxTradeValueExceeded(maxValue.String(), data.ValueIn.String())),
		}
	}

	return nil
}

func (data BuyData) Run(t *Trade, context state.Interface, controller *graduation.Controller, height uint64, now uint64) Response {
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

	market := checkState.Markets().GetMarket(data.Market)

	fee := math.MulDiv(data.ValueIn, big.NewInt(int64(checkState.App().GetFeeBps())), big.NewInt(10000))
	netValue := big.NewInt(0).Sub(data.ValueIn, fee)
	if netValue.Sign() != 1 {
		return Response{
			Code: code.WrongTradeValue,
			Log:  "Trade value is fully consumed by the fee",
			Info: EncodeError(code.NewWrongTradeValue(data.ValueIn.String())),
		}
	}

	tokensOut := market.Curve().TokensForValue(market.GetSupply(), netValue)

	minTokensOut := big.NewInt(1)
	if data.MinTokensOut.Cmp(minTokensOut) == 1 {
		minTokensOut = data.MinTokensOut
	}
	if tokensOut.Cmp(minTokensOut) == -1 {
		return Response{
			Code: code.SlippageExceeded,
			Log:  fmt.Sprintf("You wanted to get minimum %s, but currently you will get %s tokens", minTokensOut.String(), tokensOut.String()),
			Info: EncodeError(code.NewSlippageExceeded(minTokensOut.String(), tokensOut.String())),
		}
	}

	if maxTokens := checkState.App().GetMaxTradeTokens(); maxTokens.Sign() == 1 && tokensOut.Cmp(maxTokens) == 1 {
		return Response{
			Code: code.MaxTradeTokensExceeded,
			Log:  fmt.Sprintf("Trade returns %s tokens, over the cap %s", tokensOut.String(), maxTokens.String()),
			Info: EncodeError(code.NewMaxTradeTokensExceeded(maxTokens.String(), tokensOut.String())),
		}
	}

	if balance := checkState.Tokens().GetBalance(t.Actor, types.ValueTokenID); balance.Cmp(data.ValueIn) == -1 {
		return Response{
			Code: code.InsufficientFunds,
			Log:  fmt.Sprintf("Insufficient funds for sender account: %s. Wanted %s spark, has %s", t.Actor.String(), data.ValueIn.String(), balance.String()),
			Info: EncodeError(code.NewInsufficientFunds(t.Actor.String(), data.ValueIn.String(), types.ValueTokenID.String())),
		}
	}

	var tags []abcTypes.EventAttribute
	if deliverState, ok := context.(*state.State); ok {
		deliverState.Tokens.SubBalance(t.Actor, types.ValueTokenID, data.ValueIn)
		if fee.Sign() == 1 {
			deliverState.Tokens.AddBalance(checkState.App().GetFeeSink(), types.ValueTokenID, fee)
		}
		deliverState.Markets.RecordBuy(data.Market, data.ValueIn, fee, tokensOut)
		deliverState.Tokens.AddBalance(t.Actor, data.Market, tokensOut)
		deliverState.RateLimit.Record(t.Actor, data.Market, now, height)

		deliverState.Bus().Events().AddEvent(&eventsdb.TradeEvent{
			Buy:     true,
			Address: t.Actor,
			Market:  uint64(data.Market.Uint32()),
			Value:   data.ValueIn.String(),
			Tokens:  tokensOut.String(),
			Fee:     fee.String(),
			Hash:    t.Hash(height, now).String(),
		})

		tags = []abcTypes.EventAttribute{
			{Key: []byte("trade.market"), Value: []byte(data.Market.String()), Index: true},
			{Key: []byte("trade.value_in"), Value: []byte(data.ValueIn.String())},
			{Key: []byte("trade.fee"), Value: []byte(fee.String())},
			{Key: []byte("trade.tokens_out"), Value: []byte(tokensOut.String())},
		}

		// the crossing trade itself still stands when the venue rejects
		// the handoff, so a failure here only surfaces through the
		// pending flag
		traded := deliverState.Markets.GetMarket(data.Market)
		if graduation.Ready(traded) {
			record, _ := controller.Trigger(deliverState, data.Market, height, now)
			if record != nil {
				tags = append(tags, abcTypes.EventAttribute{Key: []byte("trade.graduated"), Value: []byte("true"), Index: true})
				if record.IsPending() {
					tags = append(tags, abcTypes.EventAttribute{Key: []byte("trade.liquidity_pending"), Value: []byte("true")})
				}
			}
		}
	}

	return Response{
		Code: code.OK,
		Tags: tags,
	}
}
