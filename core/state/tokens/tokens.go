package tokens

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
)

const mainPrefix = byte('a')
const listPrefix = byte('t')
const balancePrefix = byte('b')

type RTokens interface {
	Export(state *types.AppState)
	GetBalance(address types.Address, token types.TokenID) *big.Int
	GetBalances(address types.Address) []Balance
}

// Tokens is the balance ledger: EMB and every market token, per address.
type Tokens struct {
	list  map[types.Address]*Model
	dirty map[types.Address]struct{}

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

type Balance struct {
	Token types.TokenID
	Value *big.Int
}

func NewTokens(stateBus *bus.Bus, db *iavl.ImmutableTree) *Tokens {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}
	tokens := &Tokens{db: immutableTree, bus: stateBus, list: map[types.Address]*Model{}, dirty: map[types.Address]struct{}{}}
	tokens.bus.SetTokens(NewBus(tokens))

	return tokens
}

func (t *Tokens) immutableTree() *iavl.ImmutableTree {
	db := t.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (t *Tokens) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	t.db.Store(immutableTree)
}

func (t *Tokens) Commit(db *iavl.MutableTree, version int64) error {
	holders := t.getOrderedDirtyHolders()
	for _, address := range holders {
		holder := t.getFromMap(address)
		t.lock.Lock()
		delete(t.dirty, address)
		t.lock.Unlock()

		// save the held token list
		if t.hasDirtyList(holder) {
			holder.lock.Lock()
			holder.hasDirtyList = false
			data := encodeTokenList(holder.tokens)
			holder.lock.Unlock()

			path := []byte{mainPrefix}
			path = append(path, address[:]...)
			path = append(path, listPrefix)
			if len(data) == 0 {
				db.Remove(path)
			} else {
				db.Set(path, data)
			}
		}

		// save balances
		if holder.hasDirtyBalances() {
			for _, token := range holder.getOrderedTokens() {
				if !holder.isBalanceDirty(token) {
					continue
				}

				path := []byte{mainPrefix}
				path = append(path, address[:]...)
				path = append(path, balancePrefix)
				path = append(path, token.Bytes()...)

				balance := holder.getBalance(token)
				switch balance.Sign() {
				case 0:
					db.Remove(path)
				case 1:
					db.Set(path, balance.Bytes())
				case -1:
					panic(fmt.Sprintf("address %s has negative balance of token %d: %s", address.String(), token.Uint32(), balance))
				}
			}

			holder.lock.Lock()
			holder.dirtyBalances = map[types.TokenID]struct{}{}
			holder.lock.Unlock()
		}
	}

	return nil
}

func (t *Tokens) hasDirtyList(holder *Model) bool {
	holder.lock.RLock()
	defer holder.lock.RUnlock()

	return holder.hasDirtyList
}

func (t *Tokens) getOrderedDirtyHolders() []types.Address {
	t.lock.RLock()
	keys := make([]types.Address, 0, len(t.dirty))
	for k := range t.dirty {
		keys = append(keys, k)
	}
	t.lock.RUnlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].Bytes(), keys[j].Bytes()) == 1
	})

	return keys
}

func (t *Tokens) AddBalance(address types.Address, token types.TokenID, amount *big.Int) {
	balance := t.GetBalance(address, token)
	t.SetBalance(address, token, big.NewInt(0).Add(balance, amount))
}

func (t *Tokens) SubBalance(address types.Address, token types.TokenID, amount *big.Int) {
	balance := big.NewInt(0).Sub(t.GetBalance(address, token), amount)
	t.SetBalance(address, token, balance)
}

func (t *Tokens) SetBalance(address types.Address, token types.TokenID, amount *big.Int) {
	holder := t.getOrNew(address)
	oldBalance := t.GetBalance(address, token)
	t.bus.Checker().AddToken(token, big.NewInt(0).Sub(amount, oldBalance))

	holder.setBalance(token, amount)
}

func (t *Tokens) GetBalance(address types.Address, token types.TokenID) *big.Int {
	holder := t.getOrNew(address)
	if !holder.hasToken(token) {
		return big.NewInt(0)
	}

	holder.lock.RLock()
	balance, ok := holder.balances[token]
	holder.lock.RUnlock()
	if !ok {
		balance = big.NewInt(0)

		path := []byte{mainPrefix}
		path = append(path, address[:]...)
		path = append(path, balancePrefix)
		path = append(path, token.Bytes()...)

		_, enc := t.immutableTree().Get(path)
		if len(enc) != 0 {
			balance = big.NewInt(0).SetBytes(enc)
		}

		holder.lock.Lock()
		holder.balances[token] = balance
		holder.lock.Unlock()
	}

	return big.NewInt(0).Set(balance)
}

func (t *Tokens) GetBalances(address types.Address) []Balance {
	holder := t.getOrNew(address)

	holder.lock.RLock()
	held := holder.tokens
	holder.lock.RUnlock()

	balances := make([]Balance, len(held))
	for i, id := range held {
		balances[i] = Balance{
			Token: id,
			Value: t.GetBalance(address, id),
		}
	}

	return balances
}

func (t *Tokens) get(address types.Address) *Model {
	if holder := t.getFromMap(address); holder != nil {
		return holder
	}

	path := []byte{mainPrefix}
	path = append(path, address[:]...)
	path = append(path, listPrefix)
	_, enc := t.immutableTree().Get(path)
	if len(enc) == 0 {
		return nil
	}

	held, err := decodeTokenList(enc)
	if err != nil {
		panic(fmt.Sprintf("failed to decode token list at address %s: %s", address.String(), err))
	}

	holder := &Model{
		address:       address,
		tokens:        held,
		balances:      map[types.TokenID]*big.Int{},
		markDirty:     t.markDirty,
		dirtyBalances: map[types.TokenID]struct{}{},
	}

	t.setToMap(address, holder)
	return holder
}

func (t *Tokens) getOrNew(address types.Address) *Model {
	holder := t.get(address)
	if holder == nil {
		holder = &Model{
			address:       address,
			tokens:        []types.TokenID{},
			balances:      map[types.TokenID]*big.Int{},
			markDirty:     t.markDirty,
			dirtyBalances: map[types.TokenID]struct{}{},
		}
		t.setToMap(address, holder)
	}

	return holder
}

func (t *Tokens) markDirty(address types.Address) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.dirty[address] = struct{}{}
}

func (t *Tokens) Export(state *types.AppState) {
	t.immutableTree().IterateRange([]byte{mainPrefix}, []byte{mainPrefix + 1}, true, func(key []byte, value []byte) bool {
		if len(key) != 1+types.AddressLength+1 || key[len(key)-1] != listPrefix {
			return false
		}

		address := types.BytesToAddress(key[1 : 1+types.AddressLength])

		var balance []types.Balance
		for _, b := range t.GetBalances(address) {
			if b.Value.Sign() != 1 {
				continue
			}
			balance = append(balance, types.Balance{
				Token: b.Token.Uint32(),
				Value: b.Value.String(),
			})
		}

		if len(balance) == 0 {
			return false
		}

		sort.SliceStable(balance, func(i, j int) bool {
			return balance[i].Token < balance[j].Token
		})

		state.Accounts = append(state.Accounts, types.Account{
			Address: address,
			Balance: balance,
		})

		return false
	})
}

func (t *Tokens) getFromMap(address types.Address) *Model {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.list[address]
}

func (t *Tokens) setToMap(address types.Address, model *Model) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.list[address] = model
}
