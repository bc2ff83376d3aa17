package markets

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/EmberTeam/ember-go-engine/core/state/bus"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/formula"
	"github.com/cosmos/iavl"
	"github.com/tendermint/go-amino"
)

const mainPrefix = byte('m')

const marketDataPrefix = 'd'
const graduationPrefix = 'g'
const totalMarketIDPrefix = 'i'

var cdc = amino.NewCodec()

type RMarkets interface {
	Export(state *types.AppState)
	GetMarket(id types.TokenID) *Model
	GetGraduation(id types.TokenID) *GraduationRecord
	Exists(id types.TokenID) bool
	MarketsCount() uint32
}

// Markets is the per-market curve ledger: pricing parameters, circulating
// supply, the spark reserve backing it and the graduation lifecycle.
type Markets struct {
	list   map[types.TokenID]*Model
	dirty  map[types.TokenID]struct{}
	grads  map[types.TokenID]*GraduationRecord
	dirtyG map[types.TokenID]struct{}

	muNextID    sync.Mutex
	nextID      uint32
	dirtyNextID bool

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

func NewMarkets(stateBus *bus.Bus, db *iavl.ImmutableTree) *Markets {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &Markets{
		db:     immutableTree,
		bus:    stateBus,
		list:   map[types.TokenID]*Model{},
		dirty:  map[types.TokenID]struct{}{},
		grads:  map[types.TokenID]*GraduationRecord{},
		dirtyG: map[types.TokenID]struct{}{},
	}
}

func (m *Markets) immutableTree() *iavl.ImmutableTree {
	db := m.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (m *Markets) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	m.db.Store(immutableTree)
}

func (m *Markets) Commit(db *iavl.MutableTree, version int64) error {
	m.muNextID.Lock()
	if m.dirtyNextID {
		m.dirtyNextID = false
		data, err := cdc.MarshalBinaryBare(&marketCounter{Count: m.nextID})
		if err != nil {
			m.muNextID.Unlock()
			return err
		}
		db.Set([]byte{mainPrefix, totalMarketIDPrefix}, data)
	}
	m.muNextID.Unlock()

	for _, id := range m.getOrderedDirty() {
		market := m.getFromMap(id)
		m.lock.Lock()
		delete(m.dirty, id)
		m.lock.Unlock()

		data, err := cdc.MarshalBinaryBare(market.wire())
		if err != nil {
			return fmt.Errorf("can't encode market %d: %v", id.Uint32(), err)
		}

		db.Set(pathMarket(id), data)
	}

	for _, id := range m.getOrderedDirtyGraduations() {
		m.lock.Lock()
		record := m.grads[id]
		delete(m.dirtyG, id)
		m.lock.Unlock()

		data, err := cdc.MarshalBinaryBare(record.wire())
		if err != nil {
			return fmt.Errorf("can't encode graduation record %d: %v", id.Uint32(), err)
		}

		db.Set(pathGraduation(id), data)
	}

	return nil
}

func (m *Markets) getOrderedDirty() []types.TokenID {
	m.lock.RLock()
	keys := make([]types.TokenID, 0, len(m.dirty))
	for k := range m.dirty {
		keys = append(keys, k)
	}
	m.lock.RUnlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})

	return keys
}

func (m *Markets) getOrderedDirtyGraduations() []types.TokenID {
	m.lock.RLock()
	keys := make([]types.TokenID, 0, len(m.dirtyG))
	for k := range m.dirtyG {
		keys = append(keys, k)
	}
	m.lock.RUnlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})

	return keys
}

// CreateMarket assigns the next token id and opens the market in the
// unauthorized state.
func (m *Markets) CreateMarket(authority types.Address, params formula.Params) *Model {
	id := types.TokenID(m.incID())
	market := m.newModel(id, authority, params)
	market.markDirty(id)
	m.setToMap(id, market)

	return market
}

// ImportMarket recreates a market with an explicit id from an exported
// state.
func (m *Markets) ImportMarket(id types.TokenID, authority types.Address, params formula.Params, supply, reserve, collected *big.Int, authorized, paused, graduated bool) *Model {
	market := m.newModel(id, authority, params)
	market.Supply = supply
	market.Reserve = reserve
	market.TotalCollected = collected
	market.Authorized = authorized
	market.Paused = paused
	market.Graduated = graduated
	market.markDirty(id)
	m.setToMap(id, market)

	m.bus.Checker().AddSupply(id, supply)
	m.bus.Checker().AddToken(types.ValueTokenID, reserve)

	m.muNextID.Lock()
	if id.Uint32() >= m.loadNextID() {
		m.nextID = id.Uint32() + 1
		m.dirtyNextID = true
	}
	m.muNextID.Unlock()

	return market
}

func (m *Markets) newModel(id types.TokenID, authority types.Address, params formula.Params) *Model {
	return &Model{
		id:             id,
		Authority:      authority,
		Params:         params,
		Supply:         big.NewInt(0),
		Reserve:        big.NewInt(0),
		TotalCollected: big.NewInt(0),
		markDirty:      m.markDirty,
	}
}

func (m *Markets) GetMarket(id types.TokenID) *Model {
	return m.get(id)
}

func (m *Markets) Exists(id types.TokenID) bool {
	return m.get(id) != nil
}

// MarketsCount is the number of ids already assigned.
func (m *Markets) MarketsCount() uint32 {
	m.muNextID.Lock()
	defer m.muNextID.Unlock()

	return m.loadNextID() - 1
}

// Authorize flips trading on or off for a market that has not graduated.
func (m *Markets) Authorize(id types.TokenID, authorized bool) {
	market := m.get(id)
	market.setAuthorized(authorized)
}

func (m *Markets) SetPaused(id types.TokenID, paused bool) {
	market := m.get(id)
	market.setPaused(paused)
}

// RecordBuy credits the net spark (value minus fee) into the reserve,
// accumulates it as collected value and mints tokensOut onto the
// curve's supply. The caller transfers the fee itself.
func (m *Markets) RecordBuy(id types.TokenID, valueIn, fee, tokensOut *big.Int) {
	market := m.get(id)
	if !market.IsTradable() {
		panic(fmt.Sprintf("record buy on non-tradable market %d", id.Uint32()))
	}

	net := big.NewInt(0).Sub(valueIn, fee)
	market.addReserve(net)
	market.addCollected(net)
	market.addSupply(tokensOut)

	m.bus.Checker().AddToken(types.ValueTokenID, net)
	m.bus.Checker().AddSupply(id, tokensOut)
}

// RecordSell burns tokensIn from the supply and releases the gross
// payout (valueOut plus fee) from the reserve. The caller must have
// checked solvency; a reserve underflow here panics.
func (m *Markets) RecordSell(id types.TokenID, tokensIn, valueOut, fee *big.Int) {
	market := m.get(id)
	if !market.IsTradable() {
		panic(fmt.Sprintf("record sell on non-tradable market %d", id.Uint32()))
	}

	gross := big.NewInt(0).Add(valueOut, fee)
	market.subReserve(gross)
	market.subSupply(tokensIn)

	m.bus.Checker().AddToken(types.ValueTokenID, big.NewInt(0).Neg(gross))
	m.bus.Checker().AddSupply(id, big.NewInt(0).Neg(tokensIn))
}

// MarkGraduated freezes the market and stores its graduation record.
// The record starts pending until the venue handoff succeeds. The flag
// is one-way; callers reject repeated graduation before coming here.
func (m *Markets) MarkGraduated(id types.TokenID, record *GraduationRecord) {
	market := m.get(id)
	if market.IsGraduated() {
		panic(fmt.Sprintf("market %d is already graduated", id.Uint32()))
	}
	market.setGraduated()

	record.markDirty = m.markDirtyGraduation
	record.id = id

	m.lock.Lock()
	m.grads[id] = record
	m.dirtyG[id] = struct{}{}
	m.lock.Unlock()
}

// SubReserveForHandoff releases the recorded split from the reserve once
// the venue accepted it.
func (m *Markets) SubReserveForHandoff(id types.TokenID, value *big.Int) {
	market := m.get(id)
	market.subReserve(value)

	m.bus.Checker().AddToken(types.ValueTokenID, big.NewInt(0).Neg(value))
}

// MintForHandoff mints the token side of the liquidity split on top of
// the final curve supply.
func (m *Markets) MintForHandoff(id types.TokenID, tokens *big.Int) {
	market := m.get(id)
	market.addSupply(tokens)

	m.bus.Checker().AddSupply(id, tokens)
}

func (m *Markets) GetGraduation(id types.TokenID) *GraduationRecord {
	m.lock.RLock()
	record, ok := m.grads[id]
	m.lock.RUnlock()
	if ok {
		return record
	}

	_, enc := m.immutableTree().Get(pathGraduation(id))
	if len(enc) == 0 {
		return nil
	}

	var data graduationData
	if err := cdc.UnmarshalBinaryBare(enc, &data); err != nil {
		panic(fmt.Sprintf("failed to decode graduation record of market %d: %s", id.Uint32(), err))
	}

	record = data.record()
	record.id = id
	record.markDirty = m.markDirtyGraduation

	m.lock.Lock()
	m.grads[id] = record
	m.lock.Unlock()

	return record
}

func (m *Markets) get(id types.TokenID) *Model {
	if market := m.getFromMap(id); market != nil {
		return market
	}

	_, enc := m.immutableTree().Get(pathMarket(id))
	if len(enc) == 0 {
		return nil
	}

	var data marketData
	if err := cdc.UnmarshalBinaryBare(enc, &data); err != nil {
		panic(fmt.Sprintf("failed to decode market %d: %s", id.Uint32(), err))
	}

	market := data.model()
	market.id = id
	market.markDirty = m.markDirty

	m.setToMap(id, market)
	return market
}

func (m *Markets) incID() uint32 {
	m.muNextID.Lock()
	defer m.muNextID.Unlock()

	id := m.loadNextID()
	m.nextID = id + 1
	m.dirtyNextID = true
	return id
}

func (m *Markets) loadNextID() uint32 {
	if m.nextID != 0 {
		return m.nextID
	}

	_, value := m.immutableTree().Get([]byte{mainPrefix, totalMarketIDPrefix})
	if len(value) == 0 {
		return 1
	}

	var counter marketCounter
	if err := cdc.UnmarshalBinaryBare(value, &counter); err != nil {
		panic(err)
	}
	return counter.Count
}

func (m *Markets) markDirty(id types.TokenID) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.dirty[id] = struct{}{}
}

func (m *Markets) markDirtyGraduation(id types.TokenID) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.dirtyG[id] = struct{}{}
}

func (m *Markets) Export(state *types.AppState) {
	m.immutableTree().IterateRange([]byte{mainPrefix, marketDataPrefix}, []byte{mainPrefix, marketDataPrefix + 1}, true, func(key []byte, value []byte) bool {
		if len(key) != 6 {
			return false
		}

		id := types.TokenID(uint32(key[2])<<24 | uint32(key[3])<<16 | uint32(key[4])<<8 | uint32(key[5]))
		market := m.get(id)

		ms := types.MarketState{
			ID:                  id.Uint32(),
			Authority:           market.Authority,
			Model:               market.Params.Model.String(),
			GraduationThreshold: market.Params.GraduationThreshold.String(),
			Supply:              market.GetSupply().String(),
			Reserve:             market.GetReserve().String(),
			TotalCollected:      market.GetTotalCollected().String(),
			Authorized:          market.IsAuthorized(),
			Paused:              market.IsPaused(),
			Graduated:           market.IsGraduated(),
		}

		switch market.Params.Model {
		case formula.ModelLinear:
			ms.Base = market.Params.Base.String()
			ms.Slope = market.Params.Slope.String()
		case formula.ModelSqrt:
			ms.InitialPrice = market.Params.InitialPrice.String()
			ms.VirtualReserve = market.Params.VirtualReserve.String()
			ms.VirtualSupply = market.Params.VirtualSupply.String()
		}

		if record := m.GetGraduation(id); record != nil {
			ms.Graduation = &types.GraduationState{
				Height:          record.Height,
				Time:            record.Time,
				FinalSupply:     record.FinalSupply.String(),
				TotalCollected:  record.TotalCollected.String(),
				LiquidityValue:  record.LiquidityValue.String(),
				LiquidityTokens: record.LiquidityTokens.String(),
				FeeValue:        record.FeeValue.String(),
				Venue:           record.Venue.String(),
				Pending:         record.IsPending(),
			}
		}

		state.Markets = append(state.Markets, ms)

		return false
	})

	sort.SliceStable(state.Markets, func(i, j int) bool {
		return state.Markets[i].ID < state.Markets[j].ID
	})
}

func (m *Markets) getFromMap(id types.TokenID) *Model {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.list[id]
}

func (m *Markets) setToMap(id types.TokenID, model *Model) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.list[id] = model
}

func pathMarket(id types.TokenID) []byte {
	return append([]byte{mainPrefix, marketDataPrefix}, id.Bytes()...)
}

func pathGraduation(id types.TokenID) []byte {
	return append([]byte{mainPrefix, graduationPrefix}, id.Bytes()...)
}

type marketCounter struct {
	Count uint32
}
