package transaction

import (
	"errors"
	"fmt"

	abcTypes "github.com/tendermint/tendermint/abci/types"

	"github.com/EmberTeam/ember-go-engine/core/code"
	"github.com/EmberTeam/ember-go-engine/core/graduation"
	"github.com/EmberTeam/ember-go-engine/core/state"
	"github.com/EmberTeam/ember-go-engine/core/types"
)

// RetryHandoffData re-attempts the venue handoff of a graduated market
// whose liquidity is still pending. The split is replayed from the
// graduation record, never recomputed.
type RetryHandoffData struct {
	Market types.TokenID `json:"market"`
}

func (data RetryHandoffData) TradeType() TradeType {
	return TypeRetryHandoff
}

func (data RetryHandoffData) String() string {
	return fmt.Sprintf("RETRY HANDOFF market:%d", data.Market.Uint32())
}

func (data RetryHandoffData) basicCheck(t *Trade, context *state.CheckState) *Response {
	market := context.Markets().GetMarket(data.Market)
	if market == nil {
		return &Response{
			Code: code.MarketNotFound,
			Log:  fmt.Sprintf("Market %d not found", data.Market.Uint32()),
			Info: EncodeError(code.NewMarketNotFound(data.Market.String())),
		}
	}

	if response := checkAuthority(t.Actor, market); response != nil {
		return response
	}

	record := context.Markets().GetGraduation(data.Market)
	if !market.IsGraduated() || record == nil || !record.IsPending() {
		return &Response{
			Code: code.LiquidityNotPending,
			Log:  fmt.Sprintf("Market %d has no pending liquidity handoff", data.Market.Uint32()),
			Info: EncodeError(code.NewLiquidityNotPending(data.Market.String())),
		}
	}

	return nil
}

func (data RetryHandoffData) Run(t *Trade, context state.Interface, controller *graduation.Controller, height uint64, now uint64) Response {
	var checkState *state.CheckState
	var isCheck bool
	if checkState, isCheck = context.(*state.CheckState); !isCheck {
		checkState = state.NewCheckState(context.(*state.State))
	}

	if response := data.basicCheck(t, checkState); response != nil {
		return *response
	}

	var tags []abcTypes.EventAttribute
	if deliverState, ok := context.(*state.State); ok {
		record, err := controller.RetryHandoff(deliverState, data.Market)
		if err != nil {
			if errors.Is(err, graduation.ErrNotPending) {
				return Response{
					Code: code.LiquidityNotPending,
					Log:  fmt.Sprintf("Market %d has no pending liquidity handoff", data.Market.Uint32()),
					Info: EncodeError(code.NewLiquidityNotPending(data.Market.String())),
				}
			}

			return Response{
				Code: code.GraduationHandoffFailed,
				Log:  err.Error(),
				Info: EncodeError(code.NewGraduationHandoffFailed(data.Market.String(), err.Error())),
			}
		}

		tags = []abcTypes.EventAttribute{
			{Key: []byte("trade.market"), Value: []byte(data.Market.String()), Index: true},
			{Key: []byte("trade.liquidity_value"), Value: []byte(record.LiquidityValue.String())},
			{Key: []byte("trade.liquidity_tokens"), Value: []byte(record.LiquidityTokens.String())},
		}
	}

	return Response{
		Code: code.OK,
		Tags: tags,
	}
}
