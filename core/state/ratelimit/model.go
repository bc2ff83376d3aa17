package ratelimit

import (
	"sync"

	"github.com/EmberTeam/ember-go-engine/core/types"
)

// Model is the pacing state of one actor on one market.
type Model struct {
	LastTime      uint64
	LastBlock     uint64
	TradesInBlock uint32

	address   types.Address
	market    types.TokenID
	markDirty func(key entryKey)
	lock      sync.RWMutex
}

func (m *Model) GetLastTime() uint64 {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.LastTime
}

func (m *Model) GetLastBlock() uint64 {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.LastBlock
}

func (m *Model) GetTradesInBlock() uint32 {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.TradesInBlock
}

func (m *Model) record(now uint64, block uint64) {
	m.lock.Lock()
	if block > m.LastBlock {
		m.TradesInBlock = 1
	} else {
		m.TradesInBlock++
	}
	m.LastTime = now
	m.LastBlock = block
	m.lock.Unlock()

	m.markDirty(entryKey{market: m.market, address: m.address})
}

func (m *Model) wire() *entryData {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return &entryData{
		LastTime:      m.LastTime,
		LastBlock:     m.LastBlock,
		TradesInBlock: m.TradesInBlock,
	}
}

type entryData struct {
	LastTime      uint64
	LastBlock     uint64
	TradesInBlock uint32
}

func (d *entryData) model() *Model {
	return &Model{
		LastTime:      d.LastTime,
		LastBlock:     d.LastBlock,
		TradesInBlock: d.TradesInBlock,
	}
}
