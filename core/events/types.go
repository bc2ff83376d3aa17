package events

import (
	"math/big"

	"github.com/EmberTeam/ember-go-engine/core/types"
)

// Event type names
const (
	TypeTradeEvent      = "ember/TradeEvent"
	TypeGraduationEvent = "ember/GraduationEvent"
	TypeAuthorizeEvent  = "ember/AuthorizeEvent"
)

type Event interface {
	Type() string
}

// addressed events carry an actor whose address is swapped for a table
// id on disk.
type addressed interface {
	AddressString() string
	address() types.Address
	convert(addressID uint32) compact
}

// packed is a stored form that references the address table.
type packed interface {
	compile(address [20]byte) Event
	addressID() uint32
}

type compact interface {
	// compact
}

type Events []Event

type trade struct {
	Buy       bool
	AddressID uint32
	Market    uint32
	Value     []byte
	Tokens    []byte
	Fee       []byte
	Hash      string
}

func (t *trade) compile(address [20]byte) Event {
	event := new(TradeEvent)
	event.Buy = t.Buy
	event.Address = address
	event.Market = uint64(t.Market)
	event.Value = big.NewInt(0).SetBytes(t.Value).String()
	event.Tokens = big.NewInt(0).SetBytes(t.Tokens).String()
	event.Fee = big.NewInt(0).SetBytes(t.Fee).String()
	event.Hash = t.Hash
	return event
}

func (t *trade) addressID() uint32 {
	return t.AddressID
}

// TradeEvent is the audit record of one accepted curve trade. Value is
// spark paid in on a buy or paid out on a sell, Fee is always spark.
type TradeEvent struct {
	Buy     bool          `json:"buy"`
	Address types.Address `json:"address"`
	Market  uint64        `json:"market"`
	Value   string        `json:"value"`
	Tokens  string        `json:"tokens"`
	Fee     string        `json:"fee"`
	Hash    string        `json:"hash"`
}

func (te *TradeEvent) Type() string {
	return TypeTradeEvent
}

func (te *TradeEvent) AddressString() string {
	return te.Address.String()
}

func (te *TradeEvent) address() types.Address {
	return te.Address
}

func (te *TradeEvent) convert(addressID uint32) compact {
	result := new(trade)
	result.Buy = te.Buy
	result.AddressID = addressID
	result.Market = uint32(te.Market)
	bi, _ := big.NewInt(0).SetString(te.Value, 10)
	result.Value = bi.Bytes()
	bi, _ = big.NewInt(0).SetString(te.Tokens, 10)
	result.Tokens = bi.Bytes()
	bi, _ = big.NewInt(0).SetString(te.Fee, 10)
	result.Fee = bi.Bytes()
	result.Hash = te.Hash
	return result
}

type authorize struct {
	AddressID  uint32
	Market     uint32
	Authorized bool
}

func (a *authorize) compile(address [20]byte) Event {
	event := new(AuthorizeEvent)
	event.Address = address
	event.Market = uint64(a.Market)
	event.Authorized = a.Authorized
	return event
}

func (a *authorize) addressID() uint32 {
	return a.AddressID
}

// AuthorizeEvent records an authority flipping trading on or off.
type AuthorizeEvent struct {
	Address    types.Address `json:"address"`
	Market     uint64        `json:"market"`
	Authorized bool          `json:"authorized"`
}

func (ae *AuthorizeEvent) Type() string {
	return TypeAuthorizeEvent
}

func (ae *AuthorizeEvent) AddressString() string {
	return ae.Address.String()
}

func (ae *AuthorizeEvent) address() types.Address {
	return ae.Address
}

func (ae *AuthorizeEvent) convert(addressID uint32) compact {
	result := new(authorize)
	result.AddressID = addressID
	result.Market = uint32(ae.Market)
	result.Authorized = ae.Authorized
	return result
}

// GraduationEvent is written when a market crosses its threshold, and
// again with Pending false once the venue handoff lands. It carries no
// actor, so it is stored as is.
type GraduationEvent struct {
	Market          uint64 `json:"market"`
	FinalSupply     string `json:"final_supply"`
	TotalCollected  string `json:"total_collected"`
	LiquidityValue  string `json:"liquidity_value"`
	LiquidityTokens string `json:"liquidity_tokens"`
	PoolHandle      string `json:"pool_handle,omitempty"`
	Pending         bool   `json:"pending,omitempty"`
}

func (ge *GraduationEvent) Type() string {
	return TypeGraduationEvent
}
