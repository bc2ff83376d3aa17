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

// GraduateData manually graduates a market whose trigger condition
// holds. Crossing buys call the same controller on their own, so this
// mostly serves markets imported past their threshold.
type GraduateData struct {
	Market types.TokenID `json:"market"`
}

func (data GraduateData) TradeType() TradeType {
	return TypeGraduate
}

func (data GraduateData) String() string {
	return fmt.Sprintf("GRADUATE market:%d", data.Market.Uint32())
}

func (data GraduateData) basicCheck(t *Trade, context *state.CheckState) *Response {
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

	if response := checkNotGraduated(context, market); response != nil {
		return response
	}

	if !graduation.Ready(market) {
		progress, threshold := graduation.Progress(market)
		return &Response{
			Code: code.GraduationNotReady,
			Log:  fmt.Sprintf("Market %d is at %s of the %s graduation threshold", data.Market.Uint32(), progress.String(), threshold.String()),
			Info: EncodeError(code.NewGraduationNotReady(data.Market.String(), progress.String(), threshold.String())),
		}
	}

	return nil
}

func (data GraduateData) Run(t *Trade, context state.Interface, controller *graduation.Controller, height uint64, now uint64) Response {
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
		record, err := controller.Trigger(deliverState, data.Market, height, now)
		if err != nil {
			if errors.Is(err, graduation.ErrAlreadyGraduated) {
				return *checkNotGraduated(checkState, deliverState.Markets.GetMarket(data.Market))
			}

			var notReady *graduation.NotReadyError
			if errors.As(err, &notReady) {
				return Response{
					Code: code.GraduationNotReady,
					Log:  err.Error(),
					Info: EncodeError(code.NewGraduationNotReady(data.Market.String(), notReady.Progress.String(), notReady.Threshold.String())),
				}
			}

			// the market is graduated now either way; a venue failure
			// leaves its liquidity pending for a later retry
			return Response{
				Code: code.GraduationHandoffFailed,
				Log:  err.Error(),
				Info: EncodeError(code.NewGraduationHandoffFailed(data.Market.String(), err.Error())),
			}
		}

		tags = []abcTypes.EventAttribute{
			{Key: []byte("trade.market"), Value: []byte(data.Market.String()), Index: true},
			{Key: []byte("trade.graduated"), Value: []byte("true"), Index: true},
			{Key: []byte("trade.liquidity_value"), Value: []byte(record.LiquidityValue.String())},
			{Key: []byte("trade.liquidity_tokens"), Value: []byte(record.LiquidityTokens.String())},
		}
	}

	return Response{
		Code: code.OK,
		Tags: tags,
	}
}
