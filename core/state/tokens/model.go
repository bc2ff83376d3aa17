package tokens

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/EmberTeam/ember-go-engine/core/types"
)

// Model caches one holder's token list and balances between commits.
type Model struct {
	address  types.Address
	tokens   []types.TokenID
	balances map[types.TokenID]*big.Int

	hasDirtyList  bool
	dirtyBalances map[types.TokenID]struct{}

	markDirty func(types.Address)
	lock      sync.RWMutex
}

func (model *Model) getBalance(token types.TokenID) *big.Int {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.balances[token]
}

func (model *Model) hasDirtyBalances() bool {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return len(model.dirtyBalances) > 0
}

func (model *Model) isBalanceDirty(token types.TokenID) bool {
	model.lock.RLock()
	defer model.lock.RUnlock()

	_, exists := model.dirtyBalances[token]
	return exists
}

func (model *Model) getOrderedTokens() []types.TokenID {
	model.lock.RLock()
	keys := make([]types.TokenID, 0, len(model.balances))
	for k := range model.balances {
		keys = append(keys, k)
	}
	model.lock.RUnlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i] > keys[j]
	})

	return keys
}

func (model *Model) setBalance(token types.TokenID, amount *big.Int) {
	if amount.Sign() == 0 {
		if !model.hasToken(token) {
			return
		}

		var held []types.TokenID

		model.lock.RLock()
		for _, t := range model.tokens {
			if token == t {
				continue
			}
			held = append(held, t)
		}
		model.lock.RUnlock()

		model.lock.Lock()
		model.hasDirtyList = true
		model.tokens = held
		model.balances[token] = amount
		model.dirtyBalances[token] = struct{}{}
		model.lock.Unlock()

		model.markDirty(model.address)

		return
	}

	if !model.hasToken(token) {
		model.lock.Lock()
		model.hasDirtyList = true
		model.tokens = append(model.tokens, token)
		model.lock.Unlock()
	}

	model.lock.Lock()
	model.dirtyBalances[token] = struct{}{}
	model.balances[token] = amount
	model.lock.Unlock()

	model.markDirty(model.address)
}

func (model *Model) hasToken(token types.TokenID) bool {
	model.lock.RLock()
	defer model.lock.RUnlock()

	for _, t := range model.tokens {
		if t == token {
			return true
		}
	}

	return false
}

// encodeTokenList packs held token ids as big-endian 4 byte chunks.
func encodeTokenList(held []types.TokenID) []byte {
	data := make([]byte, 0, len(held)*4)
	for _, id := range held {
		data = append(data, id.Bytes()...)
	}
	return data
}

func decodeTokenList(data []byte) ([]types.TokenID, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("token list has %d bytes", len(data))
	}

	held := make([]types.TokenID, 0, len(data)/4)
	for i := 0; i < len(data); i += 4 {
		held = append(held, types.TokenID(binary.BigEndian.Uint32(data[i:i+4])))
	}
	return held, nil
}
