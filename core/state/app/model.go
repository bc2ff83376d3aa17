package app

import (
	"math/big"
	"sync"

	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/formula"
)

type Model struct {
	StartHeight          uint64
	FeeBps               uint32
	CooldownSeconds      uint32
	MaxTradesPerBlock    uint32
	MaxTradeValue        *big.Int
	MaxTradeTokens       *big.Int
	LiquidityFractionBps uint32
	MinLiquidityValue    *big.Int
	MinLiquidityTokens   *big.Int
	FeeSink              types.Address
	Calibration          formula.Calibration

	curve     *formula.Params
	markDirty func()
	lock      sync.RWMutex
}

func (m *Model) setParams(feeBps, cooldown, maxTrades uint32, maxValue, maxTokens *big.Int, liquidityBps uint32, minValue, minTokens *big.Int, feeSink types.Address, calibration formula.Calibration) {
	m.lock.Lock()
	m.FeeBps = feeBps
	m.CooldownSeconds = cooldown
	m.MaxTradesPerBlock = maxTrades
	m.MaxTradeValue = maxValue
	m.MaxTradeTokens = maxTokens
	m.LiquidityFractionBps = liquidityBps
	m.MinLiquidityValue = minValue
	m.MinLiquidityTokens = minTokens
	m.FeeSink = feeSink
	m.Calibration = calibration
	m.curve = nil
	m.lock.Unlock()

	m.markDirty()
}

func (m *Model) setStartHeight(height uint64) {
	m.lock.Lock()
	m.StartHeight = height
	m.lock.Unlock()

	m.markDirty()
}

func (m *Model) getStartHeight() uint64 {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.StartHeight
}

func (m *Model) getFeeBps() uint32 {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.FeeBps
}

func (m *Model) getCooldownSeconds() uint32 {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.CooldownSeconds
}

func (m *Model) getMaxTradesPerBlock() uint32 {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.MaxTradesPerBlock
}

func (m *Model) getMaxTradeValue() *big.Int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return big.NewInt(0).Set(m.MaxTradeValue)
}

func (m *Model) getMaxTradeTokens() *big.Int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return big.NewInt(0).Set(m.MaxTradeTokens)
}

func (m *Model) getLiquidityFractionBps() uint32 {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.LiquidityFractionBps
}

func (m *Model) getMinLiquidityValue() *big.Int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return big.NewInt(0).Set(m.MinLiquidityValue)
}

func (m *Model) getMinLiquidityTokens() *big.Int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return big.NewInt(0).Set(m.MinLiquidityTokens)
}

func (m *Model) getFeeSink() types.Address {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.FeeSink
}

func (m *Model) getCalibration() formula.Calibration {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.Calibration
}

func (m *Model) getCurve() (formula.Params, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.curve != nil {
		return *m.curve, nil
	}

	params, err := formula.ParseCalibration(m.Calibration)
	if err != nil {
		return formula.Params{}, err
	}

	m.curve = &params
	return params, nil
}

type appData struct {
	StartHeight          uint64
	FeeBps               uint32
	CooldownSeconds      uint32
	MaxTradesPerBlock    uint32
	MaxTradeValue        []byte
	MaxTradeTokens       []byte
	LiquidityFractionBps uint32
	MinLiquidityValue    []byte
	MinLiquidityTokens   []byte
	FeeSink              types.Address
	Calibration          formula.Calibration
}

func (m *Model) wire() *appData {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return &appData{
		StartHeight:          m.StartHeight,
		FeeBps:               m.FeeBps,
		CooldownSeconds:      m.CooldownSeconds,
		MaxTradesPerBlock:    m.MaxTradesPerBlock,
		MaxTradeValue:        m.MaxTradeValue.Bytes(),
		MaxTradeTokens:       m.MaxTradeTokens.Bytes(),
		LiquidityFractionBps: m.LiquidityFractionBps,
		MinLiquidityValue:    m.MinLiquidityValue.Bytes(),
		MinLiquidityTokens:   m.MinLiquidityTokens.Bytes(),
		FeeSink:              m.FeeSink,
		Calibration:          m.Calibration,
	}
}

func (d *appData) model() *Model {
	return &Model{
		StartHeight:          d.StartHeight,
		FeeBps:               d.FeeBps,
		CooldownSeconds:      d.CooldownSeconds,
		MaxTradesPerBlock:    d.MaxTradesPerBlock,
		MaxTradeValue:        big.NewInt(0).SetBytes(d.MaxTradeValue),
		MaxTradeTokens:       big.NewInt(0).SetBytes(d.MaxTradeTokens),
		LiquidityFractionBps: d.LiquidityFractionBps,
		MinLiquidityValue:    big.NewInt(0).SetBytes(d.MinLiquidityValue),
		MinLiquidityTokens:   big.NewInt(0).SetBytes(d.MinLiquidityTokens),
		FeeSink:              d.FeeSink,
		Calibration:          d.Calibration,
	}
}
