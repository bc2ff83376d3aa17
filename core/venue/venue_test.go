package venue

import (
	"math/big"
	"testing"

	"github.com/EmberTeam/ember-go-engine/core/state/bus"
	"github.com/EmberTeam/ember-go-engine/core/state/checker"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/helpers"
	"github.com/EmberTeam/ember-go-engine/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	db "github.com/tendermint/tm-db"
)

func newTestVenue(t *testing.T) (*Venue, tree.MTree) {
	memDB := db.NewMemDB()
	mTree, err := tree.NewMutableTree(0, memDB, 1024, 0)
	require.NoError(t, err)

	b := bus.NewBus()
	checker.NewChecker(b)

	return NewVenue(b, mTree.GetLastImmutable()), mTree
}

func TestCheckCreate(t *testing.T) {
	venue, _ := newTestVenue(t)

	value := helpers.EmbToSpark(big.NewInt(5))
	tokens := helpers.TokensToUnits(big.NewInt(20))

	assert.Equal(t, ErrorIdenticalTokens, venue.CheckCreate(types.ValueTokenID, value, tokens))
	assert.Equal(t, ErrorInsufficientInputAmount, venue.CheckCreate(types.TokenID(1), big.NewInt(0), tokens))
	assert.Equal(t, ErrorInsufficientLiquidityMinted, venue.CheckCreate(types.TokenID(1), big.NewInt(10), big.NewInt(10)))
	assert.NoError(t, venue.CheckCreate(types.TokenID(1), value, tokens))
}

func TestPairCreate(t *testing.T) {
	venue, _ := newTestVenue(t)

	provider := types.HexToAddress("Ex7633980c000139dd3bd24a3f54e06474fa941e16")
	value := helpers.EmbToSpark(big.NewInt(5))
	tokens := helpers.TokensToUnits(big.NewInt(20))

	require.NoError(t, venue.CheckCreate(types.TokenID(1), value, tokens))
	pool := venue.PairCreate(types.TokenID(1), value, tokens, provider)

	require.True(t, venue.PoolExists(types.TokenID(1)))
	assert.Equal(t, ErrorPoolAlreadyExists, venue.CheckCreate(types.TokenID(1), value, tokens))

	// sqrt(5e18 * 20e18) = 10e18
	wantLiquidity := helpers.EmbToSpark(big.NewInt(10))
	assert.Equal(t, wantLiquidity, pool.GetLiquidity())
	assert.Equal(t, big.NewInt(0).Sub(wantLiquidity, Bound), pool.ProviderLiquidity())

	assert.Equal(t, uint32(1), pool.GetID())
	assert.Equal(t, "LP-1", pool.Handle())
	assert.Equal(t, provider, pool.GetProvider())

	valueReserve, tokenReserve := pool.Reserves()
	assert.Equal(t, value, valueReserve)
	assert.Equal(t, tokens, tokenReserve)
}

func TestSwapMathHoldsK(t *testing.T) {
	venue, _ := newTestVenue(t)

	provider := types.HexToAddress("Ex7633980c000139dd3bd24a3f54e06474fa941e16")
	value := helpers.EmbToSpark(big.NewInt(1000))
	tokens := helpers.TokensToUnits(big.NewInt(500))

	pool := venue.PairCreate(types.TokenID(3), value, tokens, provider)

	valueIn := helpers.EmbToSpark(big.NewInt(10))
	tokensOut := pool.CalculateBuyForSell(valueIn)
	require.NotNil(t, tokensOut)
	require.Equal(t, 1, tokensOut.Sign())

	// (r0+in)*(r1-out) must not fall below r0*r1
	k := big.NewInt(0).Mul(value, tokens)
	kAfter := big.NewInt(0).Mul(
		big.NewInt(0).Add(value, valueIn),
		big.NewInt(0).Sub(tokens, tokensOut),
	)
	assert.True(t, kAfter.Cmp(k) >= 0, "k decreased: %s < %s", kAfter, k)

	// buying the same amount back out never needs more than we paid in
	neededIn := pool.CalculateSellForBuy(tokensOut)
	require.NotNil(t, neededIn)
	assert.True(t, neededIn.Cmp(valueIn) <= 0, "want at most %s, got %s", valueIn, neededIn)

	valueOut := pool.CalculateBuyForSellTokens(helpers.TokensToUnits(big.NewInt(5)))
	require.NotNil(t, valueOut)
	assert.Equal(t, 1, valueOut.Sign())
}

func TestSellForBuyOverReserve(t *testing.T) {
	venue, _ := newTestVenue(t)

	provider := types.HexToAddress("Ex7633980c000139dd3bd24a3f54e06474fa941e16")
	pool := venue.PairCreate(types.TokenID(4),
		helpers.EmbToSpark(big.NewInt(10)), helpers.TokensToUnits(big.NewInt(10)), provider)

	assert.Nil(t, pool.CalculateSellForBuy(helpers.TokensToUnits(big.NewInt(10))))
	assert.Nil(t, pool.CalculateSellForBuy(helpers.TokensToUnits(big.NewInt(11))))
}

func TestCommitAndReload(t *testing.T) {
	venue, mTree := newTestVenue(t)

	provider := types.HexToAddress("Ex7633980c000139dd3bd24a3f54e06474fa941e16")
	value := helpers.EmbToSpark(big.NewInt(5))
	tokens := helpers.TokensToUnits(big.NewInt(20))

	venue.PairCreate(types.TokenID(7), value, tokens, provider)

	_, _, err := mTree.Commit(venue)
	require.NoError(t, err)

	reloaded := NewVenue(bus.NewBus(), mTree.GetLastImmutable())
	pool := reloaded.GetPool(types.TokenID(7))
	require.NotNil(t, pool)

	valueReserve, tokenReserve := pool.Reserves()
	assert.Equal(t, value, valueReserve)
	assert.Equal(t, tokens, tokenReserve)
	assert.Equal(t, uint32(1), pool.GetID())
	assert.Equal(t, "LP-1", pool.Handle())
	assert.Equal(t, provider, pool.GetProvider())
	assert.Equal(t, uint32(1), reloaded.PoolsCount())

	var state types.AppState
	reloaded.Export(&state)
	require.Len(t, state.Pools, 1)
	assert.Equal(t, uint32(7), state.Pools[0].Market)
	assert.Equal(t, value.String(), state.Pools[0].ValueReserve)
	assert.Equal(t, tokens.String(), state.Pools[0].TokenReserve)
}
