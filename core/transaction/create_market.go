package transaction

import (
	abcTypes "github.com/tendermint/tendermint/abci/types"

	"github.com/EmberTeam/ember-go-engine/core/code"
	"github.com/EmberTeam/ember-go-engine/core/graduation"
	"github.com/EmberTeam/ember-go-engine/core/state"
	"github.com/EmberTeam/ember-go-engine/formula"
)

// CreateMarketData opens a new curve market with the actor as its
// authority. Without a calibration the deployment default curve is
// applied. Markets start unauthorized.
type CreateMarketData struct {
	Calibration *formula.Calibration `json:"calibration,omitempty"`
}

func (data CreateMarketData) TradeType() TradeType {
	return TypeCreateMarket
}

func (data CreateMarketData) String() string {
	if data.Calibration != nil {
		return "CREATE MARKET model:" + data.Calibration.Model
	}

	return "CREATE MARKET model:default"
}

func (data CreateMarketData) params(context *state.CheckState) (formula.Params, *Response) {
	var params formula.Params
	var err error
	if data.Calibration != nil {
		params, err = formula.ParseCalibration(*data.Calibration)
	} else {
		params, err = context.App().GetCurve()
	}
	if err == nil {
		_, err = formula.NewCurve(params)
	}
	if err != nil {
		return formula.Params{}, &Response{
			Code: code.WrongCalibration,
			Log:  err.Error(),
			Info: EncodeError(code.NewWrongCalibration(err.Error())),
		}
	}

	return params, nil
}

func (data CreateMarketData) Run(t *Trade, context state.Interface, controller *graduation.Controller, height uint64, now uint64) Response {
	var checkState *state.CheckState
	var isCheck bool
	if checkState, isCheck = context.(*state.CheckState); !isCheck {
		checkState = state.NewCheckState(context.(*state.State))
	}

	params, response := data.params(checkState)
	if response != nil {
		return *response
	}

	var tags []abcTypes.EventAttribute
	if deliverState, ok := context.(*state.State); ok {
		market := deliverState.Markets.CreateMarket(t.Actor, params)

		tags = []abcTypes.EventAttribute{
			{Key: []byte("trade.market"), Value: []byte(market.ID().String()), Index: true},
			{Key: []byte("trade.curve"), Value: []byte(params.Model.String())},
		}
	}

	return Response{
		Code: code.OK,
		Tags: tags,
	}
}
