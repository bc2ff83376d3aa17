package types

import (
	"fmt"

	"github.com/EmberTeam/ember-go-engine/formula"
	"github.com/EmberTeam/ember-go-engine/helpers"
)

// AppState is the complete exportable state of the engine. It is what
// genesis files carry and what Export produces.
type AppState struct {
	Note        string        `json:"note"`
	StartHeight uint64        `json:"start_height,string"`
	Params      EngineParams  `json:"params"`
	Markets     []MarketState `json:"markets,omitempty"`
	Accounts    []Account     `json:"accounts,omitempty"`
	Rates       []RateEntry   `json:"rates,omitempty"`
	Pools       []Pool        `json:"pools,omitempty"`
}

// EngineParams are the deployment-wide trading parameters. Curve is the
// calibration applied to markets created after genesis.
type EngineParams struct {
	FeeBps               uint32              `json:"fee_bps"`
	CooldownSeconds      uint32              `json:"cooldown_seconds"`
	MaxTradesPerBlock    uint32              `json:"max_trades_per_block"`
	MaxTradeValue        string              `json:"max_trade_value"`
	MaxTradeTokens       string              `json:"max_trade_tokens"`
	LiquidityFractionBps uint32              `json:"liquidity_fraction_bps"`
	MinLiquidityValue    string              `json:"min_liquidity_value"`
	MinLiquidityTokens   string              `json:"min_liquidity_tokens"`
	FeeSink              Address             `json:"fee_sink"`
	Curve                formula.Calibration `json:"curve"`
}

type MarketState struct {
	ID                  uint32           `json:"id"`
	Authority           Address          `json:"authority"`
	Model               string           `json:"model"`
	Base                string           `json:"base,omitempty"`
	Slope               string           `json:"slope,omitempty"`
	InitialPrice        string           `json:"initial_price,omitempty"`
	VirtualReserve      string           `json:"virtual_reserve,omitempty"`
	VirtualSupply       string           `json:"virtual_supply,omitempty"`
	GraduationThreshold string           `json:"graduation_threshold"`
	Supply              string           `json:"supply"`
	Reserve             string           `json:"reserve"`
	TotalCollected      string           `json:"total_collected"`
	Authorized          bool             `json:"authorized,omitempty"`
	Paused              bool             `json:"paused,omitempty"`
	Graduated           bool             `json:"graduated,omitempty"`
	Graduation          *GraduationState `json:"graduation,omitempty"`
}

// GraduationState is the recorded reserve split of a graduated market.
// Pending is true while the venue handoff has not succeeded yet.
type GraduationState struct {
	Height          uint64 `json:"height,string"`
	Time            uint64 `json:"time,string"`
	FinalSupply     string `json:"final_supply"`
	TotalCollected  string `json:"total_collected"`
	LiquidityValue  string `json:"liquidity_value"`
	LiquidityTokens string `json:"liquidity_tokens"`
	FeeValue        string `json:"fee_value"`
	Venue           string `json:"venue"`
	Pending         bool   `json:"pending,omitempty"`
}

type Account struct {
	Address Address   `json:"address"`
	Balance []Balance `json:"balance"`
}

type Balance struct {
	Token uint32 `json:"token"`
	Value string `json:"value"`
}

// RateEntry is the persisted trade pacing state for one trader on one
// market.
type RateEntry struct {
	Market        uint32  `json:"market"`
	Address       Address `json:"address"`
	LastTime      uint64  `json:"last_time,string"`
	LastBlock     uint64  `json:"last_block,string"`
	TradesInBlock uint32  `json:"trades_in_block"`
}

// Pool is a constant product venue pair funded by a graduation handoff.
type Pool struct {
	ID           uint32  `json:"id"`
	Market       uint32  `json:"market"`
	Provider     Address `json:"provider"`
	ValueReserve string  `json:"value_reserve"`
	TokenReserve string  `json:"token_reserve"`
	Liquidity    string  `json:"liquidity"`
}

// Verify performs basic validation of the state. It checks referential
// integrity between sections and rejects malformed numbers.
func (s *AppState) Verify() error {
	if s.Params.FeeBps > 10000 {
		return fmt.Errorf("params: fee_bps above 10000")
	}
	if s.Params.LiquidityFractionBps > 10000 {
		return fmt.Errorf("params: liquidity_fraction_bps above 10000")
	}
	for _, v := range []string{s.Params.MaxTradeValue, s.Params.MaxTradeTokens, s.Params.MinLiquidityValue, s.Params.MinLiquidityTokens} {
		if !helpers.IsValidBigInt(v) {
			return fmt.Errorf("params: invalid value %q", v)
		}
	}
	if _, err := formula.ParseCalibration(s.Params.Curve); err != nil {
		return fmt.Errorf("params: %s", err)
	}

	markets := map[uint32]*MarketState{}
	for i := range s.Markets {
		m := &s.Markets[i]
		if m.ID == 0 {
			return fmt.Errorf("market id 0 is reserved")
		}
		if _, ok := markets[m.ID]; ok {
			return fmt.Errorf("market %d is duplicated", m.ID)
		}
		if _, err := formula.ParseModel(m.Model); err != nil {
			return fmt.Errorf("market %d: %s", m.ID, err)
		}
		for _, v := range []string{m.GraduationThreshold, m.Supply, m.Reserve, m.TotalCollected} {
			if !helpers.IsValidBigInt(v) {
				return fmt.Errorf("market %d: invalid value %q", m.ID, v)
			}
		}
		if m.Graduation != nil {
			for _, v := range []string{m.Graduation.FinalSupply, m.Graduation.TotalCollected, m.Graduation.LiquidityValue, m.Graduation.LiquidityTokens, m.Graduation.FeeValue} {
				if !helpers.IsValidBigInt(v) {
					return fmt.Errorf("market %d: invalid graduation value %q", m.ID, v)
				}
			}
			if !m.Graduated {
				return fmt.Errorf("market %d has a graduation record but is not graduated", m.ID)
			}
		}
		markets[m.ID] = m
	}

	accounts := map[Address]struct{}{}
	for _, a := range s.Accounts {
		if _, ok := accounts[a.Address]; ok {
			return fmt.Errorf("account %s is duplicated", a.Address.String())
		}
		accounts[a.Address] = struct{}{}

		tokens := map[uint32]struct{}{}
		for _, b := range a.Balance {
			if !helpers.IsValidBigInt(b.Value) {
				return fmt.Errorf("account %s: invalid balance %q", a.Address.String(), b.Value)
			}
			if _, ok := tokens[b.Token]; ok {
				return fmt.Errorf("account %s: token %d is duplicated", a.Address.String(), b.Token)
			}
			tokens[b.Token] = struct{}{}
			if b.Token == uint32(ValueTokenID) {
				continue
			}
			if _, ok := markets[b.Token]; !ok {
				return fmt.Errorf("account %s holds unknown token %d", a.Address.String(), b.Token)
			}
		}
	}

	for _, r := range s.Rates {
		if _, ok := markets[r.Market]; !ok {
			return fmt.Errorf("rate entry for unknown market %d", r.Market)
		}
	}

	pools := map[uint32]struct{}{}
	for _, p := range s.Pools {
		m, ok := markets[p.Market]
		if !ok {
			return fmt.Errorf("pool for unknown market %d", p.Market)
		}
		if !m.Graduated {
			return fmt.Errorf("pool for market %d which is not graduated", p.Market)
		}
		if _, ok := pools[p.Market]; ok {
			return fmt.Errorf("pool for market %d is duplicated", p.Market)
		}
		pools[p.Market] = struct{}{}
		for _, v := range []string{p.ValueReserve, p.TokenReserve, p.Liquidity} {
			if !helpers.IsValidBigInt(v) {
				return fmt.Errorf("pool %d: invalid value %q", p.Market, v)
			}
		}
	}

	return nil
}
