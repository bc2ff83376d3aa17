package transaction

import (
	"fmt"
	"strconv"

	abcTypes "github.com/tendermint/tendermint/abci/types"

	"github.com/EmberTeam/ember-go-engine/core/code"
	"github.com/EmberTeam/ember-go-engine/core/graduation"
	"github.com/EmberTeam/ember-go-engine/core/state"
	"github.com/EmberTeam/ember-go-engine/core/types"
)

// SetPausedData halts or resumes trading on a market without dropping
// its authorization.
type SetPausedData struct {
	Market types.TokenID `json:"market"`
	Paused bool          `json:"paused"`
}

func (data SetPausedData) TradeType() TradeType {
	return TypeSetPaused
}

func (data SetPausedData) String() string {
	return fmt.Sprintf("SET PAUSED market:%d paused:%t", data.Market.Uint32(), data.Paused)
}

func (data SetPausedData) basicCheck(t *Trade, context *state.CheckState) *Response {
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

	return checkNotGraduated(context, market)
}

func (data SetPausedData) Run(t *Trade, context state.Interface, controller *graduation.Controller, height uint64, now uint64) Response {
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
		deliverState.Markets.SetPaused(data.Market, data.Paused)

		tags = []abcTypes.EventAttribute{
			{Key: []byte("trade.market"), Value: []byte(data.Market.String()), Index: true},
			{Key: []byte("trade.paused"), Value: []byte(strconv.FormatBool(data.Paused))},
		}
	}

	return Response{
		Code: code.OK,
		Tags: tags,
	}
}
