package transaction

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/crypto/sha3"

	"github.com/EmberTeam/ember-go-engine/core/code"
	"github.com/EmberTeam/ember-go-engine/core/graduation"
	"github.com/EmberTeam/ember-go-engine/core/state"
	"github.com/EmberTeam/ember-go-engine/core/state/markets"
	"github.com/EmberTeam/ember-go-engine/core/state/ratelimit"
	"github.com/EmberTeam/ember-go-engine/core/types"
)

// TradeType is the operation discriminator of a trade envelope.
type TradeType byte

func (t TradeType) String() string {
	return "0x" + hex.EncodeToString([]byte{byte(t)})
}

func (t TradeType) UInt64() uint64 {
	return uint64(t)
}

// Name is the stable label of the operation, used in event tags and
// metrics.
func (t TradeType) Name() string {
	switch t {
	case TypeBuy:
		return "buy"
	case TypeSell:
		return "sell"
	case TypeCreateMarket:
		return "create_market"
	case TypeAuthorize:
		return "authorize"
	case TypeSetPaused:
		return "set_paused"
	case TypeGraduate:
		return "graduate"
	case TypeRetryHandoff:
		return "retry_handoff"
	}
	return t.String()
}

const (
	TypeBuy          TradeType = 0x01
	TypeSell         TradeType = 0x02
	TypeCreateMarket TradeType = 0x03
	TypeAuthorize    TradeType = 0x04
	TypeSetPaused    TradeType = 0x05
	TypeGraduate     TradeType = 0x06
	TypeRetryHandoff TradeType = 0x07
)

// Trade is the envelope of one engine operation. Data carries the
// payload of the operation selected by Type. A zero Deadline means the
// trade never expires.
type Trade struct {
	Actor    types.Address   `json:"actor"`
	Type     TradeType       `json:"type"`
	Deadline uint64          `json:"deadline,omitempty"`
	Data     json.RawMessage `json:"data"`

	decodedData Data
}

// Data is an operation payload. Run validates against a check state and
// mutates only when context is the deliver state.
type Data interface {
	String() string
	TradeType() TradeType
	Run(t *Trade, context state.Interface, controller *graduation.Controller, height uint64, now uint64) Response
}

func (t *Trade) GetDecodedData() Data {
	return t.decodedData
}

func (t *Trade) SetDecodedData(data Data) {
	t.decodedData = data
}

// MarketOf reports the market a payload operates on. Market creation
// has no target market yet and returns false.
func MarketOf(data Data) (types.TokenID, bool) {
	switch d := data.(type) {
	case *BuyData:
		return d.Market, true
	case *SellData:
		return d.Market, true
	case *AuthorizeData:
		return d.Market, true
	case *SetPausedData:
		return d.Market, true
	case *GraduateData:
		return d.Market, true
	case *RetryHandoffData:
		return d.Market, true
	}

	return 0, false
}

func (t *Trade) String() string {
	return fmt.Sprintf("TRADE actor:%s deadline:%d data:%s",
		t.Actor.String(), t.Deadline, t.decodedData.String())
}

// Hash identifies an accepted trade in the audit log. Envelopes carry
// no nonce, so the execution point is folded in.
func (t *Trade) Hash(height uint64, now uint64) types.Hash {
	hw := sha3.NewLegacyKeccak256()
	hw.Write(t.Actor.Bytes())
	hw.Write([]byte{byte(t.Type)})

	var point [16]byte
	binary.BigEndian.PutUint64(point[:8], height)
	binary.BigEndian.PutUint64(point[8:], now)
	hw.Write(point[:])
	hw.Write(t.Data)

	var h types.Hash
	hw.Sum(h[:0])
	return h
}

// checkNotGraduated rejects operations on markets whose trading phase
// is over.
func checkNotGraduated(checkState *state.CheckState, market *markets.Model) *Response {
	if !market.IsGraduated() {
		return nil
	}

	height := ""
	if record := checkState.Markets().GetGraduation(market.ID()); record != nil {
		height = strconv.FormatUint(record.Height, 10)
	}

	return &Response{
		Code: code.AlreadyGraduated,
		Log:  fmt.Sprintf("Market %d is already graduated", market.ID().Uint32()),
		Info: EncodeError(code.NewAlreadyGraduated(market.ID().String(), height)),
	}
}

func checkMarketTradable(checkState *state.CheckState, market *markets.Model) *Response {
	if response := checkNotGraduated(checkState, market); response != nil {
		return response
	}

	if !market.IsAuthorized() {
		return &Response{
			Code: code.MarketNotAuthorized,
			Log:  fmt.Sprintf("Market %d is not authorized for trading", market.ID().Uint32()),
			Info: EncodeError(code.NewMarketNotAuthorized(market.ID().String())),
		}
	}

	if market.IsPaused() {
		return &Response{
			Code: code.MarketPaused,
			Log:  fmt.Sprintf("Market %d is paused", market.ID().Uint32()),
			Info: EncodeError(code.NewMarketPaused(market.ID().String())),
		}
	}

	return nil
}

// checkRateLimit applies the actor's pacing rules on the market.
func checkRateLimit(checkState *state.CheckState, actor types.Address, market types.TokenID, height uint64, now uint64) *Response {
	err := checkState.RateLimit().Check(actor, market, now, height,
		uint64(checkState.App().GetCooldownSeconds()), checkState.App().GetMaxTradesPerBlock())
	if err == nil {
		return nil
	}

	switch e := err.(type) {
	case *ratelimit.CooldownError:
		return &Response{
			Code: code.CooldownActive,
			Log:  e.Error(),
			Info: EncodeError(code.NewCooldownActive(market.String(),
				strconv.FormatUint(e.LastTradeTime, 10),
				strconv.FormatUint(e.NextTradeTime, 10),
				strconv.FormatUint(e.CurrentTime, 10))),
		}
	case *ratelimit.BlockLimitError:
		return &Response{
			Code: code.TooManyTradesThisBlock,
			Log:  e.Error(),
			Info: EncodeError(code.NewTooManyTradesThisBlock(market.String(),
				strconv.Itoa(int(e.MaxTrades)),
				strconv.FormatUint(e.Block, 10))),
		}
	}

	return &Response{
		Code: code.DecodeError,
		Log:  err.Error(),
		Info: EncodeError(code.NewDecodeError()),
	}
}

// checkAuthority gates administrative operations to the market
// authority.
func checkAuthority(actor types.Address, market *markets.Model) *Response {
	if market.Authority != actor {
		return &Response{
			Code: code.IsNotAuthorityOfMarket,
			Log:  fmt.Sprintf("Sender %s is not the authority of market %d", actor.String(), market.ID().Uint32()),
			Info: EncodeError(code.NewIsNotAuthorityOfMarket(market.ID().String(), actor.String(), market.Authority.String())),
		}
	}

	return nil
}
