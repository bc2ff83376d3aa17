package venue

import (
	"errors"
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

// Bound is the liquidity locked forever in every pool at creation.
var Bound = big.NewInt(minimumLiquidity)

const minimumLiquidity = 1000
const commission = 2

var (
	ErrorIdenticalTokens             = errors.New("IDENTICAL_TOKENS")
	ErrorPoolAlreadyExists           = errors.New("POOL_ALREADY_EXISTS")
	ErrorNotExist                    = errors.New("POOL_NOT_EXISTS")
	ErrorInsufficientInputAmount     = errors.New("INSUFFICIENT_INPUT_AMOUNT")
	ErrorInsufficientLiquidityMinted = errors.New("INSUFFICIENT_LIQUIDITY_MINTED")
)

const mainPrefix = byte('v')

const poolPrefix = 'p'
const totalPoolIDPrefix = 'i'

var cdc = amino.NewCodec()

type RVenue interface {
	Export(state *types.AppState)
	GetPool(token types.TokenID) *Pool
	PoolExists(token types.TokenID) bool
	PoolsCount() uint32
}

// Venue is the in-process constant product pair book. A pool pairs the
// value currency with one graduated market token; it is funded exactly
// once, by the graduation handoff.
type Venue struct {
	muPools sync.RWMutex
	pools   map[types.TokenID]*Pool
	dirties map[types.TokenID]struct{}

	muNextID    sync.Mutex
	nextID      uint32
	dirtyNextID bool

	bus *bus.Bus
	db  atomic.Value
}

func NewVenue(stateBus *bus.Bus, db *iavl.ImmutableTree) *Venue {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &Venue{
		db:      immutableTree,
		bus:     stateBus,
		pools:   map[types.TokenID]*Pool{},
		dirties: map[types.TokenID]struct{}{},
	}
}

func (v *Venue) immutableTree() *iavl.ImmutableTree {
	db := v.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (v *Venue) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	v.db.Store(immutableTree)
}

func (v *Venue) Commit(db *iavl.MutableTree, version int64) error {
	v.muNextID.Lock()
	if v.dirtyNextID {
		v.dirtyNextID = false
		data, err := cdc.MarshalBinaryBare(&poolCounter{Count: v.nextID})
		if err != nil {
			v.muNextID.Unlock()
			return err
		}
		db.Set([]byte{mainPrefix, totalPoolIDPrefix}, data)
	}
	v.muNextID.Unlock()

	for _, token := range v.getOrderedDirty() {
		pool := v.getFromMap(token)
		v.muPools.Lock()
		delete(v.dirties, token)
		v.muPools.Unlock()

		data, err := cdc.MarshalBinaryBare(pool.wire())
		if err != nil {
			return fmt.Errorf("can't encode pool of token %d: %v", token.Uint32(), err)
		}

		db.Set(pathPool(token), data)
	}

	return nil
}

func (v *Venue) getOrderedDirty() []types.TokenID {
	v.muPools.RLock()
	keys := make([]types.TokenID, 0, len(v.dirties))
	for k := range v.dirties {
		keys = append(keys, k)
	}
	v.muPools.RUnlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})

	return keys
}

// CheckCreate validates a pool funding without touching state.
func (v *Venue) CheckCreate(token types.TokenID, value, tokens *big.Int) error {
	if token == types.ValueTokenID {
		return ErrorIdenticalTokens
	}
	if v.PoolExists(token) {
		return ErrorPoolAlreadyExists
	}
	if value.Sign() != 1 || tokens.Sign() != 1 {
		return ErrorInsufficientInputAmount
	}
	if startingSupply(value, tokens).Cmp(Bound) != 1 {
		return ErrorInsufficientLiquidityMinted
	}

	return nil
}

// PairCreate funds a new pool. The caller must have validated with
// CheckCreate; the minted liquidity above Bound belongs to provider.
func (v *Venue) PairCreate(token types.TokenID, value, tokens *big.Int, provider types.Address) *Pool {
	pool := &Pool{
		ValueReserve: big.NewInt(0).Set(value),
		TokenReserve: big.NewInt(0).Set(tokens),
		Liquidity:    startingSupply(value, tokens),
		Provider:     provider,
		id:           v.incID(),
		token:        token,
		markDirty:    v.markDirty,
	}

	v.setToMap(token, pool)
	pool.markDirty(token)

	v.bus.Checker().AddToken(types.ValueTokenID, value)
	v.bus.Checker().AddToken(token, tokens)

	return pool
}

// ImportPool recreates a pool from an exported state.
func (v *Venue) ImportPool(id uint32, token types.TokenID, value, tokens, liquidity *big.Int, provider types.Address) *Pool {
	pool := &Pool{
		ValueReserve: big.NewInt(0).Set(value),
		TokenReserve: big.NewInt(0).Set(tokens),
		Liquidity:    big.NewInt(0).Set(liquidity),
		Provider:     provider,
		id:           id,
		token:        token,
		markDirty:    v.markDirty,
	}

	v.setToMap(token, pool)
	pool.markDirty(token)

	v.bus.Checker().AddToken(types.ValueTokenID, value)
	v.bus.Checker().AddToken(token, tokens)

	v.muNextID.Lock()
	if id >= v.loadNextID() {
		v.nextID = id + 1
		v.dirtyNextID = true
	}
	v.muNextID.Unlock()

	return pool
}

func (v *Venue) GetPool(token types.TokenID) *Pool {
	return v.get(token)
}

func (v *Venue) PoolExists(token types.TokenID) bool {
	return v.get(token) != nil
}

func (v *Venue) PoolsCount() uint32 {
	v.muNextID.Lock()
	defer v.muNextID.Unlock()

	return v.loadNextID() - 1
}

func (v *Venue) get(token types.TokenID) *Pool {
	if pool := v.getFromMap(token); pool != nil {
		return pool
	}

	_, enc := v.immutableTree().Get(pathPool(token))
	if len(enc) == 0 {
		return nil
	}

	var data poolData
	if err := cdc.UnmarshalBinaryBare(enc, &data); err != nil {
		panic(fmt.Sprintf("failed to decode pool of token %d: %s", token.Uint32(), err))
	}

	pool := data.pool()
	pool.token = token
	pool.markDirty = v.markDirty

	v.setToMap(token, pool)
	return pool
}

func (v *Venue) incID() uint32 {
	v.muNextID.Lock()
	defer v.muNextID.Unlock()

	id := v.loadNextID()
	v.nextID = id + 1
	v.dirtyNextID = true
	return id
}

func (v *Venue) loadNextID() uint32 {
	if v.nextID != 0 {
		return v.nextID
	}

	_, value := v.immutableTree().Get([]byte{mainPrefix, totalPoolIDPrefix})
	if len(value) == 0 {
		return 1
	}

	var counter poolCounter
	if err := cdc.UnmarshalBinaryBare(value, &counter); err != nil {
		panic(err)
	}
	return counter.Count
}

func (v *Venue) markDirty(token types.TokenID) {
	v.muPools.Lock()
	defer v.muPools.Unlock()

	v.dirties[token] = struct{}{}
}

func (v *Venue) Export(state *types.AppState) {
	v.immutableTree().IterateRange([]byte{mainPrefix, poolPrefix}, []byte{mainPrefix, poolPrefix + 1}, true, func(key []byte, value []byte) bool {
		if len(key) != 6 {
			return false
		}

		token := types.TokenID(uint32(key[2])<<24 | uint32(key[3])<<16 | uint32(key[4])<<8 | uint32(key[5]))
		pool := v.get(token)

		valueReserve, tokenReserve := pool.Reserves()
		state.Pools = append(state.Pools, types.Pool{
			ID:           pool.GetID(),
			Market:       token.Uint32(),
			Provider:     pool.GetProvider(),
			ValueReserve: valueReserve.String(),
			TokenReserve: tokenReserve.String(),
			Liquidity:    pool.GetLiquidity().String(),
		})

		return false
	})

	sort.SliceStable(state.Pools, func(i, j int) bool {
		return state.Pools[i].ID < state.Pools[j].ID
	})
}

func (v *Venue) getFromMap(token types.TokenID) *Pool {
	v.muPools.RLock()
	defer v.muPools.RUnlock()

	return v.pools[token]
}

func (v *Venue) setToMap(token types.TokenID, pool *Pool) {
	v.muPools.Lock()
	defer v.muPools.Unlock()

	v.pools[token] = pool
}

func pathPool(token types.TokenID) []byte {
	return append([]byte{mainPrefix, poolPrefix}, token.Bytes()...)
}

func startingSupply(amount0 *big.Int, amount1 *big.Int) *big.Int {
	mul := new(big.Int).Mul(amount0, amount1)
	return new(big.Int).Sqrt(mul)
}

type poolCounter struct {
	Count uint32
}
