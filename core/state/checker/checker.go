package checker

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/EmberTeam/ember-go-engine/core/state/bus"
	"github.com/EmberTeam/ember-go-engine/core/types"
)

// Checker accumulates per-token deltas over a block: every balance,
// reserve or pool movement lands in delta, every mint and burn in
// supplyDelta. For a block to be sound the two must agree for every
// token; EMB is never minted, so its delta must come out at zero.
type Checker struct {
	delta       map[types.TokenID]*big.Int
	supplyDelta map[types.TokenID]*big.Int

	lock sync.RWMutex
}

func NewChecker(bus *bus.Bus) *Checker {
	checker := &Checker{
		delta:       map[types.TokenID]*big.Int{},
		supplyDelta: map[types.TokenID]*big.Int{},
	}
	bus.SetChecker(checker)

	return checker
}

func (c *Checker) AddToken(token types.TokenID, value *big.Int) {
	c.lock.Lock()
	defer c.lock.Unlock()

	cValue, exists := c.delta[token]
	if !exists {
		cValue = big.NewInt(0)
		c.delta[token] = cValue
	}

	cValue.Add(cValue, value)
}

func (c *Checker) AddSupply(token types.TokenID, value *big.Int) {
	c.lock.Lock()
	defer c.lock.Unlock()

	cValue, exists := c.supplyDelta[token]
	if !exists {
		cValue = big.NewInt(0)
		c.supplyDelta[token] = cValue
	}

	cValue.Add(cValue, value)
}

// Reset drops the accumulated deltas after a successful commit.
func (c *Checker) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.delta = map[types.TokenID]*big.Int{}
	c.supplyDelta = map[types.TokenID]*big.Int{}
}

// RemoveValueToken clears the EMB delta after a genesis import, where
// balances appear out of nowhere by construction.
func (c *Checker) RemoveValueToken() {
	c.lock.Lock()
	defer c.lock.Unlock()

	delete(c.delta, types.ValueTokenID)
}

func (c *Checker) Check() error {
	c.lock.RLock()
	defer c.lock.RUnlock()

	for token, delta := range c.delta {
		supply := c.supplyDelta[token]
		if supply == nil {
			supply = big.NewInt(0)
		}

		if delta.Cmp(supply) != 0 {
			return fmt.Errorf("invariants error on token %s: %s", token.String(), big.NewInt(0).Sub(supply, delta).String())
		}
	}

	return nil
}
