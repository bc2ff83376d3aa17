package app

import (
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/EmberTeam/ember-go-engine/core/state/bus"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/formula"
	"github.com/EmberTeam/ember-go-engine/helpers"
	"github.com/cosmos/iavl"
	"github.com/tendermint/go-amino"
)

const mainPrefix = 'd'

var cdc = amino.NewCodec()

type RApp interface {
	Export(state *types.AppState)
	GetStartHeight() uint64
	GetFeeBps() uint32
	GetCooldownSeconds() uint32
	GetMaxTradesPerBlock() uint32
	GetMaxTradeValue() *big.Int
	GetMaxTradeTokens() *big.Int
	GetLiquidityFractionBps() uint32
	GetMinLiquidityValue() *big.Int
	GetMinLiquidityTokens() *big.Int
	GetFeeSink() types.Address
	GetCurve() (formula.Params, error)
}

// App is the deployment-wide engine configuration: fees, pacing caps,
// trade caps, the graduation split and the curve calibration applied to
// markets created after genesis.
type App struct {
	model   *Model
	isDirty bool

	db atomic.Value

	bus *bus.Bus
	mx  sync.Mutex
}

func NewApp(stateBus *bus.Bus, db *iavl.ImmutableTree) *App {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &App{bus: stateBus, db: immutableTree}
}

func (a *App) immutableTree() *iavl.ImmutableTree {
	db := a.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (a *App) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	a.db.Store(immutableTree)
}

func (a *App) Commit(db *iavl.MutableTree, version int64) error {
	a.mx.Lock()
	defer a.mx.Unlock()

	if !a.isDirty {
		return nil
	}

	a.isDirty = false

	data, err := cdc.MarshalBinaryBare(a.model.wire())
	if err != nil {
		return fmt.Errorf("can't encode app model: %s", err)
	}

	path := []byte{mainPrefix}
	db.Set(path, data)

	return nil
}

// SetParams replaces the whole configuration. Amount strings must be
// valid and the calibration must parse.
func (a *App) SetParams(params types.EngineParams) error {
	if _, err := formula.ParseCalibration(params.Curve); err != nil {
		return err
	}
	if params.FeeBps > 10000 {
		return fmt.Errorf("fee_bps above 10000")
	}
	if params.LiquidityFractionBps > 10000 {
		return fmt.Errorf("liquidity_fraction_bps above 10000")
	}

	model := a.getOrNew()
	model.setParams(
		params.FeeBps,
		params.CooldownSeconds,
		params.MaxTradesPerBlock,
		helpers.StringToBigInt(params.MaxTradeValue),
		helpers.StringToBigInt(params.MaxTradeTokens),
		params.LiquidityFractionBps,
		helpers.StringToBigInt(params.MinLiquidityValue),
		helpers.StringToBigInt(params.MinLiquidityTokens),
		params.FeeSink,
		params.Curve,
	)

	return nil
}

func (a *App) SetStartHeight(height uint64) {
	a.getOrNew().setStartHeight(height)
}

func (a *App) GetStartHeight() uint64 {
	return a.getOrNew().getStartHeight()
}

func (a *App) GetFeeBps() uint32 {
	return a.getOrNew().getFeeBps()
}

func (a *App) GetCooldownSeconds() uint32 {
	return a.getOrNew().getCooldownSeconds()
}

func (a *App) GetMaxTradesPerBlock() uint32 {
	return a.getOrNew().getMaxTradesPerBlock()
}

func (a *App) GetMaxTradeValue() *big.Int {
	return a.getOrNew().getMaxTradeValue()
}

func (a *App) GetMaxTradeTokens() *big.Int {
	return a.getOrNew().getMaxTradeTokens()
}

func (a *App) GetLiquidityFractionBps() uint32 {
	return a.getOrNew().getLiquidityFractionBps()
}

func (a *App) GetMinLiquidityValue() *big.Int {
	return a.getOrNew().getMinLiquidityValue()
}

func (a *App) GetMinLiquidityTokens() *big.Int {
	return a.getOrNew().getMinLiquidityTokens()
}

func (a *App) GetFeeSink() types.Address {
	return a.getOrNew().getFeeSink()
}

// GetCurve returns the deployment curve parameters, or an error while no
// calibration has been configured.
func (a *App) GetCurve() (formula.Params, error) {
	return a.getOrNew().getCurve()
}

func (a *App) get() *Model {
	a.mx.Lock()
	defer a.mx.Unlock()

	if a.model != nil {
		return a.model
	}

	path := []byte{mainPrefix}
	_, enc := a.immutableTree().Get(path)
	if len(enc) == 0 {
		return nil
	}

	var data appData
	if err := cdc.UnmarshalBinaryBare(enc, &data); err != nil {
		panic(fmt.Sprintf("failed to decode app model: %s", err))
	}

	a.model = data.model()
	a.model.markDirty = a.markDirty
	return a.model
}

func (a *App) getOrNew() *Model {
	model := a.get()
	if model == nil {
		model = &Model{
			MaxTradeValue:      big.NewInt(0),
			MaxTradeTokens:     big.NewInt(0),
			MinLiquidityValue:  big.NewInt(0),
			MinLiquidityTokens: big.NewInt(0),
			markDirty:          a.markDirty,
		}
		a.mx.Lock()
		a.model = model
		a.mx.Unlock()
	}

	return model
}

func (a *App) markDirty() {
	a.mx.Lock()
	defer a.mx.Unlock()

	a.isDirty = true
}

func (a *App) Export(state *types.AppState) {
	model := a.getOrNew()

	state.StartHeight = model.getStartHeight()
	state.Params = types.EngineParams{
		FeeBps:               model.getFeeBps(),
		CooldownSeconds:      model.getCooldownSeconds(),
		MaxTradesPerBlock:    model.getMaxTradesPerBlock(),
		MaxTradeValue:        model.getMaxTradeValue().String(),
		MaxTradeTokens:       model.getMaxTradeTokens().String(),
		LiquidityFractionBps: model.getLiquidityFractionBps(),
		MinLiquidityValue:    model.getMinLiquidityValue().String(),
		MinLiquidityTokens:   model.getMinLiquidityTokens().String(),
		FeeSink:              model.getFeeSink(),
		Curve:                model.getCalibration(),
	}
}
