package tokens

import (
	"math/big"

	"github.com/EmberTeam/ember-go-engine/core/types"
)

type Bus struct {
	tokens *Tokens
}

func NewBus(tokens *Tokens) *Bus {
	return &Bus{tokens: tokens}
}

func (b *Bus) AddBalance(address types.Address, token types.TokenID, value *big.Int) {
	b.tokens.AddBalance(address, token, value)
}

func (b *Bus) GetBalance(address types.Address, token types.TokenID) *big.Int {
	return b.tokens.GetBalance(address, token)
}
