package bus

import (
	"math/big"

	"github.com/EmberTeam/ember-go-engine/core/types"
)

type Tokens interface {
	AddBalance(types.Address, types.TokenID, *big.Int)
	GetBalance(types.Address, types.TokenID) *big.Int
}
