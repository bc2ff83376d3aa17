package code

import (
	"strconv"
)

// Codes for trade checks and deliver responses
const (
	// general
	OK                     uint32 = 0
	DecodeError            uint32 = 101
	InsufficientFunds      uint32 = 102
	MarketNotFound         uint32 = 103
	MarketNotAuthorized    uint32 = 104
	MarketPaused           uint32 = 105
	WrongTradeValue        uint32 = 106
	DeadlineExpired        uint32 = 107
	MaxTradeValueExceeded  uint32 = 108
	MaxTradeTokensExceeded uint32 = 109

	// rate limiting
	CooldownActive         uint32 = 201
	TooManyTradesThisBlock uint32 = 202

	// curve economics
	SlippageExceeded     uint32 = 301
	InsufficientReserves uint32 = 302

	// market administration
	MarketAlreadyExists    uint32 = 401
	IsNotAuthorityOfMarket uint32 = 402
	WrongCalibration       uint32 = 403

	// graduation
	AlreadyGraduated        uint32 = 501
	GraduationNotReady      uint32 = 502
	GraduationHandoffFailed uint32 = 503
	LiquidityNotPending     uint32 = 504

	// venue
	PoolAlreadyExists           uint32 = 701
	PoolNotExists               uint32 = 702
	InsufficientInputAmount     uint32 = 703
	InsufficientLiquidityMinted uint32 = 704
)

type decodeError struct {
	Code string `json:"code,omitempty"`
}

func NewDecodeError() *decodeError {
	return &decodeError{Code: strconv.Itoa(int(DecodeError))}
}

type insufficientFunds struct {
	Code        string `json:"code,omitempty"`
	Sender      string `json:"sender,omitempty"`
	NeededValue string `json:"needed_value,omitempty"`
	Token       string `json:"token,omitempty"`
}

func NewInsufficientFunds(sender string, neededValue string, token string) *insufficientFunds {
	return &insufficientFunds{Code: strconv.Itoa(int(InsufficientFunds)), Sender: sender, NeededValue: neededValue, Token: token}
}

type marketNotFound struct {
	Code     string `json:"code,omitempty"`
	MarketId string `json:"market_id,omitempty"`
}

func NewMarketNotFound(marketId string) *marketNotFound {
	return &marketNotFound{Code: strconv.Itoa(int(MarketNotFound)), MarketId: marketId}
}

type marketNotAuthorized struct {
	Code     string `json:"code,omitempty"`
	MarketId string `json:"market_id,omitempty"`
}

func NewMarketNotAuthorized(marketId string) *marketNotAuthorized {
	return &marketNotAuthorized{Code: strconv.Itoa(int(MarketNotAuthorized)), MarketId: marketId}
}

type marketPaused struct {
	Code     string `json:"code,omitempty"`
	MarketId string `json:"market_id,omitempty"`
}

func NewMarketPaused(marketId string) *marketPaused {
	return &marketPaused{Code: strconv.Itoa(int(MarketPaused)), MarketId: marketId}
}

type wrongTradeValue struct {
	Code  string `json:"code,omitempty"`
	Value string `json:"value,omitempty"`
}

func NewWrongTradeValue(value string) *wrongTradeValue {
	return &wrongTradeValue{Code: strconv.Itoa(int(WrongTradeValue)), Value: value}
}

type deadlineExpired struct {
	Code        string `json:"code,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
	CurrentTime string `json:"current_time,omitempty"`
}

func NewDeadlineExpired(deadline string, currentTime string) *deadlineExpired {
	return &deadlineExpired{Code: strconv.Itoa(int(DeadlineExpired)), Deadline: deadline, CurrentTime: currentTime}
}

type maxTradeValueExceeded struct {
	Code          string `json:"code,omitempty"`
	MaxTradeValue string `json:"max_trade_value,omitempty"`
	GotValue      string `json:"got_value,omitempty"`
}

func NewMaxTradeValueExceeded(maxTradeValue string, gotValue string) *maxTradeValueExceeded {
	return &maxTradeValueExceeded{Code: strconv.Itoa(int(MaxTradeValueExceeded)), MaxTradeValue: maxTradeValue, GotValue: gotValue}
}

type maxTradeTokensExceeded struct {
	Code           string `json:"code,omitempty"`
	MaxTradeTokens string `json:"max_trade_tokens,omitempty"`
	GotTokens      string `json:"got_tokens,omitempty"`
}

func NewMaxTradeTokensExceeded(maxTradeTokens string, gotTokens string) *maxTradeTokensExceeded {
	return &maxTradeTokensExceeded{Code: strconv.Itoa(int(MaxTradeTokensExceeded)), MaxTradeTokens: maxTradeTokens, GotTokens: gotTokens}
}

type cooldownActive struct {
	Code          string `json:"code,omitempty"`
	MarketId      string `json:"market_id,omitempty"`
	LastTradeTime string `json:"last_trade_time,omitempty"`
	NextTradeTime string `json:"next_trade_time,omitempty"`
	CurrentTime   string `json:"current_time,omitempty"`
}

func NewCooldownActive(marketId string, lastTradeTime string, nextTradeTime string, currentTime string) *cooldownActive {
	return &cooldownActive{Code: strconv.Itoa(int(CooldownActive)), MarketId: marketId, LastTradeTime: lastTradeTime, NextTradeTime: nextTradeTime, CurrentTime: currentTime}
}

type tooManyTradesThisBlock struct {
	Code      string `json:"code,omitempty"`
	MarketId  string `json:"market_id,omitempty"`
	MaxTrades string `json:"max_trades,omitempty"`
	Block     string `json:"block,omitempty"`
}

func NewTooManyTradesThisBlock(marketId string, maxTrades string, block string) *tooManyTradesThisBlock {
	return &tooManyTradesThisBlock{Code: strconv.Itoa(int(TooManyTradesThisBlock)), MarketId: marketId, MaxTrades: maxTrades, Block: block}
}

type slippageExceeded struct {
	Code          string `json:"code,omitempty"`
	MinimumAmount string `json:"minimum_amount,omitempty"`
	WillGetAmount string `json:"will_get_amount,omitempty"`
}

func NewSlippageExceeded(minimumAmount string, willGetAmount string) *slippageExceeded {
	return &slippageExceeded{Code: strconv.Itoa(int(SlippageExceeded)), MinimumAmount: minimumAmount, WillGetAmount: willGetAmount}
}

type insufficientReserves struct {
	Code        string `json:"code,omitempty"`
	MarketId    string `json:"market_id,omitempty"`
	Reserve     string `json:"reserve,omitempty"`
	NeededValue string `json:"needed_value,omitempty"`
}

func NewInsufficientReserves(marketId string, reserve string, neededValue string) *insufficientReserves {
	return &insufficientReserves{Code: strconv.Itoa(int(InsufficientReserves)), MarketId: marketId, Reserve: reserve, NeededValue: neededValue}
}

type marketAlreadyExists struct {
	Code     string `json:"code,omitempty"`
	MarketId string `json:"market_id,omitempty"`
}

func NewMarketAlreadyExists(marketId string) *marketAlreadyExists {
	return &marketAlreadyExists{Code: strconv.Itoa(int(MarketAlreadyExists)), MarketId: marketId}
}

type isNotAuthorityOfMarket struct {
	Code      string `json:"code,omitempty"`
	MarketId  string `json:"market_id,omitempty"`
	Sender    string `json:"sender,omitempty"`
	Authority string `json:"authority,omitempty"`
}

func NewIsNotAuthorityOfMarket(marketId string, sender string, authority string) *isNotAuthorityOfMarket {
	return &isNotAuthorityOfMarket{Code: strconv.Itoa(int(IsNotAuthorityOfMarket)), MarketId: marketId, Sender: sender, Authority: authority}
}

type wrongCalibration struct {
	Code string `json:"code,omitempty"`
	Text string `json:"text"`
}

func NewWrongCalibration(text string) *wrongCalibration {
	return &wrongCalibration{Code: strconv.Itoa(int(WrongCalibration)), Text: text}
}

type alreadyGraduated struct {
	Code     string `json:"code,omitempty"`
	MarketId string `json:"market_id,omitempty"`
	Height   string `json:"height,omitempty"`
}

func NewAlreadyGraduated(marketId string, height string) *alreadyGraduated {
	return &alreadyGraduated{Code: strconv.Itoa(int(AlreadyGraduated)), MarketId: marketId, Height: height}
}

type graduationNotReady struct {
	Code      string `json:"code,omitempty"`
	MarketId  string `json:"market_id,omitempty"`
	Progress  string `json:"progress,omitempty"`
	Threshold string `json:"threshold,omitempty"`
}

func NewGraduationNotReady(marketId string, progress string, threshold string) *graduationNotReady {
	return &graduationNotReady{Code: strconv.Itoa(int(GraduationNotReady)), MarketId: marketId, Progress: progress, Threshold: threshold}
}

type graduationHandoffFailed struct {
	Code     string `json:"code,omitempty"`
	MarketId string `json:"market_id,omitempty"`
	Text     string `json:"text"`
}

func NewGraduationHandoffFailed(marketId string, text string) *graduationHandoffFailed {
	return &graduationHandoffFailed{Code: strconv.Itoa(int(GraduationHandoffFailed)), MarketId: marketId, Text: text}
}

type liquidityNotPending struct {
	Code     string `json:"code,omitempty"`
	MarketId string `json:"market_id,omitempty"`
}

func NewLiquidityNotPending(marketId string) *liquidityNotPending {
	return &liquidityNotPending{Code: strconv.Itoa(int(LiquidityNotPending)), MarketId: marketId}
}

type poolAlreadyExists struct {
	Code     string `json:"code,omitempty"`
	MarketId string `json:"market_id,omitempty"`
}

func NewPoolAlreadyExists(marketId string) *poolAlreadyExists {
	return &poolAlreadyExists{Code: strconv.Itoa(int(PoolAlreadyExists)), MarketId: marketId}
}

type poolNotExists struct {
	Code     string `json:"code,omitempty"`
	MarketId string `json:"market_id,omitempty"`
}

func NewPoolNotExists(marketId string) *poolNotExists {
	return &poolNotExists{Code: strconv.Itoa(int(PoolNotExists)), MarketId: marketId}
}

type insufficientInputAmount struct {
	Code   string `json:"code,omitempty"`
	Amount string `json:"amount,omitempty"`
}

func NewInsufficientInputAmount(amount string) *insufficientInputAmount {
	return &insufficientInputAmount{Code: strconv.Itoa(int(InsufficientInputAmount)), Amount: amount}
}

type insufficientLiquidityMinted struct {
	Code          string `json:"code,omitempty"`
	NeededAmount0 string `json:"needed_amount0,omitempty"`
	NeededAmount1 string `json:"needed_amount1,omitempty"`
}

func NewInsufficientLiquidityMinted(value0 string, value1 string) *insufficientLiquidityMinted {
	return &insufficientLiquidityMinted{Code: strconv.Itoa(int(InsufficientLiquidityMinted)), NeededAmount0: value0, NeededAmount1: value1}
}
