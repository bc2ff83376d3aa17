package bus

import (
	"math/big"

	"github.com/EmberTeam/ember-go-engine/core/types"
)

type Checker interface {
	AddToken(types.TokenID, *big.Int)
	AddSupply(types.TokenID, *big.Int)
}
