package transaction

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	abcTypes "github.com/tendermint/tendermint/abci/types"

	"github.com/EmberTeam/ember-go-engine/core/code"
	"github.com/EmberTeam/ember-go-engine/core/graduation"
	"github.com/EmberTeam/ember-go-engine/core/state"
	"github.com/EmberTeam/ember-go-engine/core/types"
)

const maxTradeLength = 4096

// Response represents standard response from trade check/delivery
type Response struct {
	Code uint32                    `json:"code,omitempty"`
	Data []byte                    `json:"data,omitempty"`
	Log  string                    `json:"log,omitempty"`
	Info string                    `json:"-"`
	Tags []abcTypes.EventAttribute `json:"tags,omitempty"`
}

type Executor struct {
	decodeTradeFunc func(t TradeType) (Data, bool)
	graduation      *graduation.Controller
}

func NewExecutor(decodeTradeFunc func(t TradeType) (Data, bool), controller *graduation.Controller) *Executor {
	return &Executor{decodeTradeFunc: decodeTradeFunc, graduation: controller}
}

// RunTrade executes a trade envelope in the given context
func (e *Executor) RunTrade(context state.Interface, rawTrade []byte, height uint64, now uint64, notSaveTags bool) Response {
	lenRawTrade := len(rawTrade)
	if lenRawTrade > maxTradeLength {
		return Response{
			Code: code.DecodeError,
			Log:  fmt.Sprintf("Trade length is over %d bytes", maxTradeLength),
			Info: EncodeError(code.NewDecodeError()),
		}
	}

	trade, err := e.DecodeFromBytes(rawTrade)
	if err != nil {
		return Response{
			Code: code.DecodeError,
			Log:  err.Error(),
			Info: EncodeError(code.NewDecodeError()),
		}
	}

	_, isCheck := context.(*state.CheckState)

	if trade.Actor == (types.Address{}) {
		return Response{
			Code: code.DecodeError,
			Log:  "Actor is empty",
			Info: EncodeError(code.NewDecodeError()),
		}
	}

	if trade.Deadline != 0 && trade.Deadline < now {
		return Response{
			Code: code.DeadlineExpired,
			Log:  fmt.Sprintf("Deadline %d is in the past, current time %d", trade.Deadline, now),
			Info: EncodeError(code.NewDeadlineExpired(strconv.FormatUint(trade.Deadline, 10), strconv.FormatUint(now, 10))),
		}
	}

	response := trade.decodedData.Run(trade, context, e.graduation, height, now)

	if notSaveTags || isCheck {
		response.Tags = nil
	} else {
		response.Tags = append(response.Tags,
			abcTypes.EventAttribute{Key: []byte("trade.actor"), Value: []byte(trade.Actor.String()), Index: true},
			abcTypes.EventAttribute{Key: []byte("trade.type"), Value: []byte(hex.EncodeToString([]byte{byte(trade.decodedData.TradeType())})), Index: true},
		)
	}

	return response
}

// EncodeError encodes error to json
func EncodeError(data interface{}) string {
	marshaled, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	return string(marshaled)
}
