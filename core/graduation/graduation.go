package graduation

import (
	"math/big"

	eventsdb "github.com/EmberTeam/ember-go-engine/core/events"
	"github.com/EmberTeam/ember-go-engine/core/state"
	"github.com/EmberTeam/ember-go-engine/core/state/markets"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/core/venue"
	"github.com/EmberTeam/ember-go-engine/formula"
	"github.com/EmberTeam/ember-go-engine/math"
	"github.com/pkg/errors"
)

var (
	ErrAlreadyGraduated = errors.New("market is already graduated")
	ErrNotPending       = errors.New("liquidity of the market is not pending")
)

// NotReadyError reports how far a market is from its graduation
// threshold: market cap for the linear model, collected value for sqrt.
type NotReadyError struct {
	Progress  *big.Int
	Threshold *big.Int
}

func (e *NotReadyError) Error() string {
	return "graduation threshold is not reached: " + e.Progress.String() + " of " + e.Threshold.String()
}

// Venue receives the liquidity position of a graduated market and
// returns the handle of the created pool. An implementation must leave
// no trace on failure.
type Venue interface {
	ProvisionLiquidity(market types.TokenID, value, tokens *big.Int, provider types.Address) (string, error)
}

// BucketVenue provisions into the in-process constant product book.
type BucketVenue struct {
	book *venue.Venue
}

func NewBucketVenue(book *venue.Venue) *BucketVenue {
	return &BucketVenue{book: book}
}

func (b *BucketVenue) ProvisionLiquidity(market types.TokenID, value, tokens *big.Int, provider types.Address) (string, error) {
	if err := b.book.CheckCreate(market, value, tokens); err != nil {
		return "", err
	}

	return b.book.PairCreate(market, value, tokens, provider).Handle(), nil
}

// Controller performs the one-way handover of a market from curve
// trading to open-market liquidity.
type Controller struct {
	venue Venue
}

func NewController(venue Venue) *Controller {
	return &Controller{venue: venue}
}

// Progress returns the value a market's graduation trigger is measured
// on and the threshold it must reach.
func Progress(market *markets.Model) (*big.Int, *big.Int) {
	curve := market.Curve()
	if curve.Model() == formula.ModelLinear {
		return curve.MarketCap(market.GetSupply()), market.Params.GraduationThreshold
	}

	return market.GetTotalCollected(), market.Params.GraduationThreshold
}

// Ready reports whether the market's trigger condition holds.
func Ready(market *markets.Model) bool {
	return market.Curve().GraduationReached(market.GetSupply(), market.GetTotalCollected())
}

// Trigger graduates a market: computes the liquidity split, freezes the
// ledger and attempts the venue handoff. The market is marked graduated
// before the handoff, so a venue failure leaves it in the liquidity
// pending sub-state with the whole reserve still locked; the returned
// record reports that state. Trading on the market is over either way.
func (c *Controller) Trigger(applyState *state.State, id types.TokenID, height, now uint64) (*markets.GraduationRecord, error) {
	market := applyState.Markets.GetMarket(id)
	if market == nil {
		return nil, errors.Errorf("market %d does not exist", id.Uint32())
	}
	if market.IsGraduated() {
		return nil, ErrAlreadyGraduated
	}
	if !Ready(market) {
		progress, threshold := Progress(market)
		return nil, &NotReadyError{Progress: progress, Threshold: threshold}
	}

	record := split(applyState, market, height, now)
	applyState.Markets.MarkGraduated(id, record)

	handle, err := c.handoff(applyState, id, record)
	if err != nil {
		c.emit(applyState, id, record, "")
		return record, err
	}

	c.emit(applyState, id, record, handle)
	return record, nil
}

// RetryHandoff re-attempts the venue handoff of a market stuck in the
// liquidity pending sub-state, from the recorded split.
func (c *Controller) RetryHandoff(applyState *state.State, id types.TokenID) (*markets.GraduationRecord, error) {
	market := applyState.Markets.GetMarket(id)
	if market == nil {
		return nil, errors.Errorf("market %d does not exist", id.Uint32())
	}

	record := applyState.Markets.GetGraduation(id)
	if !market.IsGraduated() || record == nil || !record.IsPending() {
		return record, ErrNotPending
	}

	handle, err := c.handoff(applyState, id, record)
	if err != nil {
		return record, err
	}

	c.emit(applyState, id, record, handle)
	return record, nil
}

// handoff drains the reserve into the recorded split: the value side
// and the minted token side go to the venue, the remainder goes to the
// fee sink. Nothing moves unless the venue accepted the position.
func (c *Controller) handoff(applyState *state.State, id types.TokenID, record *markets.GraduationRecord) (string, error) {
	provider := applyState.App.GetFeeSink()

	handle, err := c.venue.ProvisionLiquidity(id, record.LiquidityValue, record.LiquidityTokens, provider)
	if err != nil {
		return "", errors.Wrap(err, "provision liquidity")
	}

	applyState.Markets.SubReserveForHandoff(id, big.NewInt(0).Add(record.LiquidityValue, record.FeeValue))
	applyState.Markets.MintForHandoff(id, record.LiquidityTokens)
	if record.FeeValue.Sign() == 1 {
		applyState.Tokens.AddBalance(provider, types.ValueTokenID, record.FeeValue)
	}
	record.SetCompleted()

	return handle, nil
}

func (c *Controller) emit(applyState *state.State, id types.TokenID, record *markets.GraduationRecord, poolHandle string) {
	applyState.Bus().Events().AddEvent(&eventsdb.GraduationEvent{
		Market:          uint64(id.Uint32()),
		FinalSupply:     record.FinalSupply.String(),
		TotalCollected:  record.TotalCollected.String(),
		LiquidityValue:  record.LiquidityValue.String(),
		LiquidityTokens: record.LiquidityTokens.String(),
		PoolHandle:      poolHandle,
		Pending:         record.IsPending(),
	})
}

// split computes the liquidity position of a graduating market. The
// value side is the configured fraction of everything ever collected,
// raised to its floor and capped at what the reserve actually holds;
// the token side balances that value at the spot price of the final
// supply, raised to its own floor. The remainder of the reserve is the
// protocol's graduation fee.
func split(applyState *state.State, market *markets.Model, height, now uint64) *markets.GraduationRecord {
	supply := market.GetSupply()
	reserve := market.GetReserve()
	collected := market.GetTotalCollected()

	liquidityValue := math.MulDiv(collected, big.NewInt(int64(applyState.App.GetLiquidityFractionBps())), big.NewInt(10000))
	if minValue := applyState.App.GetMinLiquidityValue(); liquidityValue.Cmp(minValue) == -1 {
		liquidityValue = minValue
	}
	if liquidityValue.Cmp(reserve) == 1 {
		liquidityValue = big.NewInt(0).Set(reserve)
	}

	spot := market.Curve().Price(supply)
	liquidityTokens := math.MulDiv(liquidityValue, formula.Scale(), spot)
	if minTokens := applyState.App.GetMinLiquidityTokens(); liquidityTokens.Cmp(minTokens) == -1 {
		liquidityTokens = minTokens
	}

	return &markets.GraduationRecord{
		Height:          height,
		Time:            now,
		FinalSupply:     supply,
		TotalCollected:  collected,
		LiquidityValue:  liquidityValue,
		LiquidityTokens: liquidityTokens,
		FeeValue:        big.NewInt(0).Sub(reserve, liquidityValue),
		Venue:           types.VenueConstantProduct,
		Pending:         true,
	}
}
