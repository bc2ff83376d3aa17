package transaction

import (
	"fmt"
	"strconv"

	abcTypes "github.com/tendermint/tendermint/abci/types"

	"github.com/EmberTeam/ember-go-engine/core/code"
	eventsdb "github.com/EmberTeam/ember-go-engine/core/events"
	"github.com/EmberTeam/ember-go-engine/core/graduation"
	"github.com/EmberTeam/ember-go-engine/core/state"
	"github.com/EmberTeam/ember-go-engine/core/types"
)

// AuthorizeData flips trading availability of a market. Only the
// authority may do it, and only before graduation.
type AuthorizeData struct {
	Market     types.TokenID `json:"market"`
	Authorized bool          `json:"authorized"`
}

func (data AuthorizeData) TradeType() TradeType {
	return TypeAuthorize
}

func (data AuthorizeData) String() string {
	return fmt.Sprintf("AUTHORIZE market:%d authorized:%t", data.Market.Uint32(), data.Authorized)
}

func (data AuthorizeData) basicCheck(t *Trade, context *state.CheckState) *Response {
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

func (data AuthorizeData) Run(t *Trade, context state.Interface, controller *graduation.Controller, height uint64, now uint64) Response {
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
		deliverState.Markets.Authorize(data.Market, data.Authorized)

		deliverState.Bus().Events().AddEvent(&eventsdb.AuthorizeEvent{
			Address:    t.Actor,
			Market:     uint64(data.Market.Uint32()),
			Authorized: data.Authorized,
		})

		tags = []abcTypes.EventAttribute{
			{Key: []byte("trade.market"), Value: []byte(data.Market.String()), Index: true},
			{Key: []byte("trade.authorized"), Value: []byte(strconv.FormatBool(data.Authorized))},
		}
	}

	return Response{
		Code: code.OK,
		Tags: tags,
	}
}
