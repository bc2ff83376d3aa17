package ratelimit

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/EmberTeam/ember-go-engine/core/state/bus"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/cosmos/iavl"
	"github.com/tendermint/go-amino"
)

const mainPrefix = byte('r')

var cdc = amino.NewCodec()

type RRateLimit interface {
	Export(state *types.AppState)
	GetEntry(address types.Address, market types.TokenID) *Model
	Check(address types.Address, market types.TokenID, now uint64, block uint64, cooldown uint64, maxPerBlock uint32) error
}

// RateLimit tracks per actor per market trade pacing: the time and block
// of the last accepted trade and the count of trades inside the current
// block. Checks never mutate, so a rejected trade leaves no trace.
type RateLimit struct {
	list  map[entryKey]*Model
	dirty map[entryKey]struct{}

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

type entryKey struct {
	market  types.TokenID
	address types.Address
}

func (k entryKey) bytes() []byte {
	key := append([]byte{mainPrefix}, k.market.Bytes()...)
	return append(key, k.address.Bytes()...)
}

func NewRateLimit(stateBus *bus.Bus, db *iavl.ImmutableTree) *RateLimit {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &RateLimit{
		db:    immutableTree,
		bus:   stateBus,
		list:  map[entryKey]*Model{},
		dirty: map[entryKey]struct{}{},
	}
}

func (r *RateLimit) immutableTree() *iavl.ImmutableTree {
	db := r.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (r *RateLimit) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	r.db.Store(immutableTree)
}

func (r *RateLimit) Commit(db *iavl.MutableTree, version int64) error {
	for _, key := range r.getOrderedDirty() {
		entry := r.getFromMap(key)
		r.lock.Lock()
		delete(r.dirty, key)
		r.lock.Unlock()

		data, err := cdc.MarshalBinaryBare(entry.wire())
		if err != nil {
			return fmt.Errorf("can't encode rate entry for %s on market %d: %v", key.address.String(), key.market.Uint32(), err)
		}

		db.Set(key.bytes(), data)
	}

	return nil
}

func (r *RateLimit) getOrderedDirty() []entryKey {
	r.lock.RLock()
	keys := make([]entryKey, 0, len(r.dirty))
	for k := range r.dirty {
		keys = append(keys, k)
	}
	r.lock.RUnlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].bytes(), keys[j].bytes()) == -1
	})

	return keys
}

// Check applies the pacing rules without recording anything. A cooldown
// of zero disables the time gate, a cap of zero disables the per-block
// gate.
func (r *RateLimit) Check(address types.Address, market types.TokenID, now uint64, block uint64, cooldown uint64, maxPerBlock uint32) error {
	entry := r.get(entryKey{market: market, address: address})
	if entry == nil {
		return nil
	}

	lastTime := entry.GetLastTime()
	if cooldown > 0 && now < lastTime+cooldown {
		return &CooldownError{
			LastTradeTime: lastTime,
			NextTradeTime: lastTime + cooldown,
			CurrentTime:   now,
		}
	}

	if maxPerBlock > 0 && entry.GetLastBlock() == block && entry.GetTradesInBlock() >= maxPerBlock {
		return &BlockLimitError{
			MaxTrades: maxPerBlock,
			Block:     block,
		}
	}

	return nil
}

// Record notes an accepted trade. The in-block counter restarts at one
// whenever the observed block advances.
func (r *RateLimit) Record(address types.Address, market types.TokenID, now uint64, block uint64) {
	key := entryKey{market: market, address: address}
	entry := r.get(key)
	if entry == nil {
		entry = &Model{
			address:   address,
			market:    market,
			markDirty: r.markDirty,
		}
		r.setToMap(key, entry)
	}

	entry.record(now, block)
}

func (r *RateLimit) GetEntry(address types.Address, market types.TokenID) *Model {
	return r.get(entryKey{market: market, address: address})
}

// ImportEntry recreates a pacing entry from an exported state.
func (r *RateLimit) ImportEntry(address types.Address, market types.TokenID, lastTime uint64, lastBlock uint64, tradesInBlock uint32) {
	key := entryKey{market: market, address: address}
	entry := &Model{
		LastTime:      lastTime,
		LastBlock:     lastBlock,
		TradesInBlock: tradesInBlock,
		address:       address,
		market:        market,
		markDirty:     r.markDirty,
	}
	r.setToMap(key, entry)
	entry.markDirty(key)
}

func (r *RateLimit) get(key entryKey) *Model {
	if entry := r.getFromMap(key); entry != nil {
		return entry
	}

	_, enc := r.immutableTree().Get(key.bytes())
	if len(enc) == 0 {
		return nil
	}

	var data entryData
	if err := cdc.UnmarshalBinaryBare(enc, &data); err != nil {
		panic(fmt.Sprintf("failed to decode rate entry for %s on market %d: %s", key.address.String(), key.market.Uint32(), err))
	}

	entry := data.model()
	entry.address = key.address
	entry.market = key.market
	entry.markDirty = r.markDirty

	r.setToMap(key, entry)
	return entry
}

func (r *RateLimit) markDirty(key entryKey) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.dirty[key] = struct{}{}
}

func (r *RateLimit) Export(state *types.AppState) {
	r.immutableTree().IterateRange([]byte{mainPrefix}, []byte{mainPrefix + 1}, true, func(key []byte, value []byte) bool {
		if len(key) != 1+4+types.AddressLength {
			return false
		}

		market := types.TokenID(big.NewInt(0).SetBytes(key[1:5]).Uint64())
		address := types.BytesToAddress(key[5:])

		entry := r.get(entryKey{market: market, address: address})

		state.Rates = append(state.Rates, types.RateEntry{
			Market:        market.Uint32(),
			Address:       address,
			LastTime:      entry.GetLastTime(),
			LastBlock:     entry.GetLastBlock(),
			TradesInBlock: entry.GetTradesInBlock(),
		})

		return false
	})
}

func (r *RateLimit) getFromMap(key entryKey) *Model {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.list[key]
}

func (r *RateLimit) setToMap(key entryKey, model *Model) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.list[key] = model
}

// CooldownError is returned while the actor's cooldown window on the
// market is still open.
type CooldownError struct {
	LastTradeTime uint64
	NextTradeTime uint64
	CurrentTime   uint64
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active until %d, current time %d", e.NextTradeTime, e.CurrentTime)
}

// BlockLimitError is returned when the actor already spent the per-block
// trade allowance on the market.
type BlockLimitError struct {
	MaxTrades uint32
	Block     uint64
}

func (e *BlockLimitError) Error() string {
	return fmt.Sprintf("too many trades in block %d, maximum %d", e.Block, e.MaxTrades)
}
