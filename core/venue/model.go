package venue

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/EmberTeam/ember-go-engine/core/types"
)

// Pool pairs the value currency (reserve0) with one market token
// (reserve1) under x*y=k with a 0.2% commission.
type Pool struct {
	ValueReserve *big.Int
	TokenReserve *big.Int
	Liquidity    *big.Int
	Provider     types.Address

	id        uint32
	token     types.TokenID
	markDirty func(token types.TokenID)
	lock      sync.RWMutex
}

func (p *Pool) GetID() uint32 {
	return p.id
}

func (p *Pool) Token() types.TokenID {
	return p.token
}

// Handle is the liquidity symbol callers hold after the handoff.
func (p *Pool) Handle() string {
	return fmt.Sprintf("LP-%d", p.id)
}

func (p *Pool) GetProvider() types.Address {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return p.Provider
}

func (p *Pool) GetLiquidity() *big.Int {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return big.NewInt(0).Set(p.Liquidity)
}

// ProviderLiquidity is the minted liquidity minus the locked Bound.
func (p *Pool) ProviderLiquidity() *big.Int {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return big.NewInt(0).Sub(p.Liquidity, Bound)
}

func (p *Pool) Reserves() (valueReserve *big.Int, tokenReserve *big.Int) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return big.NewInt(0).Set(p.ValueReserve), big.NewInt(0).Set(p.TokenReserve)
}

// CalculateBuyForSell returns the tokens bought for selling valueIn of
// the value currency into the pool, nil when the trade cannot execute.
func (p *Pool) CalculateBuyForSell(valueIn *big.Int) (tokensOut *big.Int) {
	reserve0, reserve1 := p.Reserves()
	return calculateBuyForSell(reserve0, reserve1, valueIn)
}

// CalculateBuyForSellTokens returns the value bought for selling
// tokensIn into the pool.
func (p *Pool) CalculateBuyForSellTokens(tokensIn *big.Int) (valueOut *big.Int) {
	reserve0, reserve1 := p.Reserves()
	return calculateBuyForSell(reserve1, reserve0, tokensIn)
}

// CalculateSellForBuy returns the value that must be sold to buy exactly
// tokensOut from the pool, nil when the pool cannot cover it.
func (p *Pool) CalculateSellForBuy(tokensOut *big.Int) (valueIn *big.Int) {
	reserve0, reserve1 := p.Reserves()
	return calculateSellForBuy(reserve0, reserve1, tokensOut)
}

// SpotPrice returns the marginal pool price scaled by scale, value per
// token.
func (p *Pool) SpotPrice(scale *big.Int) *big.Int {
	reserve0, reserve1 := p.Reserves()
	if reserve1.Sign() != 1 {
		return big.NewInt(0)
	}

	return big.NewInt(0).Quo(big.NewInt(0).Mul(reserve0, scale), reserve1)
}

func calculateBuyForSell(reserveIn, reserveOut, amountIn *big.Int) *big.Int {
	kAdjusted := new(big.Int).Mul(new(big.Int).Mul(reserveIn, reserveOut), big.NewInt(1000000))
	balanceInAdjusted := new(big.Int).Sub(new(big.Int).Mul(new(big.Int).Add(amountIn, reserveIn), big.NewInt(1000)), new(big.Int).Mul(amountIn, big.NewInt(commission)))
	amountOut := new(big.Int).Sub(reserveOut, new(big.Int).Quo(kAdjusted, new(big.Int).Mul(balanceInAdjusted, big.NewInt(1000))))
	amountOut = new(big.Int).Sub(amountOut, big.NewInt(1))
	if amountOut.Sign() != 1 {
		return nil
	}

	return amountOut
}

// (reserveIn*reserveOut/(reserveOut-amountOut)-reserveIn)/0.998
func calculateSellForBuy(reserveIn, reserveOut, amountOut *big.Int) *big.Int {
	if amountOut.Cmp(reserveOut) != -1 {
		return nil
	}
	kAdjusted := new(big.Int).Mul(new(big.Int).Mul(reserveIn, reserveOut), big.NewInt(1000000))
	balanceOutAdjusted := new(big.Int).Mul(new(big.Int).Add(new(big.Int).Neg(amountOut), reserveOut), big.NewInt(1000))
	amountIn := new(big.Int).Quo(new(big.Int).Sub(new(big.Int).Quo(kAdjusted, balanceOutAdjusted), new(big.Int).Mul(reserveIn, big.NewInt(1000))), big.NewInt(1000-commission))
	return new(big.Int).Add(amountIn, big.NewInt(1))
}

// poolData is the persisted form of a pool.
type poolData struct {
	ID           uint32
	Provider     types.Address
	ValueReserve []byte
	TokenReserve []byte
	Liquidity    []byte
}

func (p *Pool) wire() *poolData {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return &poolData{
		ID:           p.id,
		Provider:     p.Provider,
		ValueReserve: p.ValueReserve.Bytes(),
		TokenReserve: p.TokenReserve.Bytes(),
		Liquidity:    p.Liquidity.Bytes(),
	}
}

func (d *poolData) pool() *Pool {
	return &Pool{
		ValueReserve: big.NewInt(0).SetBytes(d.ValueReserve),
		TokenReserve: big.NewInt(0).SetBytes(d.TokenReserve),
		Liquidity:    big.NewInt(0).SetBytes(d.Liquidity),
		Provider:     d.Provider,
		id:           d.ID,
	}
}
