package state

import (
	"log"
	"sync"

	eventsdb "github.com/EmberTeam/ember-go-engine/core/events"
	"github.com/EmberTeam/ember-go-engine/core/state/app"
	"github.com/EmberTeam/ember-go-engine/core/state/bus"
	"github.com/EmberTeam/ember-go-engine/core/state/checker"
	"github.com/EmberTeam/ember-go-engine/core/state/markets"
	"github.com/EmberTeam/ember-go-engine/core/state/ratelimit"
	"github.com/EmberTeam/ember-go-engine/core/state/tokens"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/core/venue"
	"github.com/EmberTeam/ember-go-engine/formula"
	"github.com/EmberTeam/ember-go-engine/helpers"
	"github.com/EmberTeam/ember-go-engine/tree"
	"github.com/cosmos/iavl"
	db "github.com/tendermint/tm-db"
)

type Interface interface {
	isValue_State()
}

type CheckState struct {
	state *State
}

func NewCheckState(state *State) *CheckState {
	return &CheckState{state: state}
}

func (cs *CheckState) isValue_State() {}

func (cs *CheckState) Export() types.AppState {
	appState := new(types.AppState)
	cs.App().Export(appState)
	cs.Markets().Export(appState)
	cs.Tokens().Export(appState)
	cs.RateLimit().Export(appState)
	cs.Venue().Export(appState)

	return *appState
}

func (cs *CheckState) App() app.RApp {
	return cs.state.App
}
func (cs *CheckState) Markets() markets.RMarkets {
	return cs.state.Markets
}
func (cs *CheckState) Tokens() tokens.RTokens {
	return cs.state.Tokens
}
func (cs *CheckState) RateLimit() ratelimit.RRateLimit {
	return cs.state.RateLimit
}
func (cs *CheckState) Venue() venue.RVenue {
	return cs.state.Venue
}

type State struct {
	App       *app.App
	Markets   *markets.Markets
	Tokens    *tokens.Tokens
	RateLimit *ratelimit.RateLimit
	Venue     *venue.Venue
	Checker   *checker.Checker

	db             db.DB
	events         eventsdb.IEventsDB
	tree           tree.MTree
	keepLastStates int64

	bus            *bus.Bus
	lock           sync.RWMutex
	height         int64
	initialVersion int64
}

func (s *State) isValue_State() {}

func NewState(height uint64, db db.DB, events eventsdb.IEventsDB, cacheSize int, keepLastStates int64, initialVersion uint64) (*State, error) {
	iavlTree, err := tree.NewMutableTree(height, db, cacheSize, initialVersion)
	if err != nil {
		return nil, err
	}

	state, err := newStateForTree(iavlTree.GetLastImmutable(), events, db, keepLastStates)
	if err != nil {
		return nil, err
	}

	state.tree = iavlTree
	state.height = int64(height)
	state.initialVersion = int64(initialVersion)

	return state, nil
}

func NewCheckStateAtHeight(height uint64, db db.DB) (*CheckState, error) {
	iavlTree, err := tree.NewImmutableTree(height, db)
	if err != nil {
		return nil, err
	}
	return newCheckStateForTree(iavlTree, nil, db, 0)
}

func (s *State) Tree() tree.MTree {
	return s.tree
}

func (s *State) Bus() *bus.Bus {
	return s.bus
}

func (s *State) Lock() {
	s.lock.Lock()
}

func (s *State) Unlock() {
	s.lock.Unlock()
}

func (s *State) RLock() {
	s.lock.RLock()
}

func (s *State) RUnlock() {
	s.lock.RUnlock()
}

func (s *State) Check() error {
	return s.Checker.Check()
}

func (s *State) Commit() ([]byte, error) {
	s.Checker.Reset()

	hash, version, err := s.tree.Commit(
		s.App,
		s.Markets,
		s.Tokens,
		s.RateLimit,
		s.Venue,
	)
	if err != nil {
		return hash, err
	}

	s.height = version

	versionToDelete := version - s.keepLastStates - 1
	if versionToDelete < s.initialVersion {
		return hash, nil
	}

	if err := s.tree.DeleteVersionIfExists(versionToDelete); err != nil {
		log.Printf("DeleteVersion %d error: %s\n", versionToDelete, err)
	}

	return hash, nil
}

func (s *State) Height() uint64 {
	return uint64(s.height)
}

func (s *State) Import(state types.AppState) error {
	if err := s.App.SetParams(state.Params); err != nil {
		return err
	}
	s.App.SetStartHeight(state.StartHeight)

	for _, m := range state.Markets {
		params, err := marketParams(m)
		if err != nil {
			return err
		}

		id := types.TokenID(m.ID)
		s.Markets.ImportMarket(id, m.Authority, params,
			helpers.StringToBigInt(m.Supply),
			helpers.StringToBigInt(m.Reserve),
			helpers.StringToBigInt(m.TotalCollected),
			m.Authorized, m.Paused, m.Graduated)

		if m.Graduation != nil {
			venueType, err := types.ParseVenueType(m.Graduation.Venue)
			if err != nil {
				return err
			}
			s.Markets.MarkGraduated(id, &markets.GraduationRecord{
				Height:          m.Graduation.Height,
				Time:            m.Graduation.Time,
				FinalSupply:     helpers.StringToBigInt(m.Graduation.FinalSupply),
				TotalCollected:  helpers.StringToBigInt(m.Graduation.TotalCollected),
				LiquidityValue:  helpers.StringToBigInt(m.Graduation.LiquidityValue),
				LiquidityTokens: helpers.StringToBigInt(m.Graduation.LiquidityTokens),
				FeeValue:        helpers.StringToBigInt(m.Graduation.FeeValue),
				Venue:           venueType,
				Pending:         m.Graduation.Pending,
			})
		}
	}

	for _, a := range state.Accounts {
		for _, b := range a.Balance {
			s.Tokens.SetBalance(a.Address, types.TokenID(b.Token), helpers.StringToBigInt(b.Value))
		}
	}

	for _, r := range state.Rates {
		s.RateLimit.ImportEntry(r.Address, types.TokenID(r.Market), r.LastTime, r.LastBlock, r.TradesInBlock)
	}

	for _, p := range state.Pools {
		s.Venue.ImportPool(p.ID, types.TokenID(p.Market),
			helpers.StringToBigInt(p.ValueReserve),
			helpers.StringToBigInt(p.TokenReserve),
			helpers.StringToBigInt(p.Liquidity),
			p.Provider)
	}

	s.Checker.RemoveValueToken()

	return nil
}

func (s *State) Export() types.AppState {
	state, err := NewCheckStateAtHeight(uint64(s.tree.Version()), s.db)
	if err != nil {
		log.Panicf("Create new state at height %d failed: %s", s.tree.Version(), err)
	}

	return state.Export()
}

func marketParams(m types.MarketState) (formula.Params, error) {
	model, err := formula.ParseModel(m.Model)
	if err != nil {
		return formula.Params{}, err
	}

	params := formula.Params{
		Model:               model,
		GraduationThreshold: helpers.StringToBigInt(m.GraduationThreshold),
	}

	switch model {
	case formula.ModelLinear:
		params.Base = helpers.StringToBigInt(m.Base)
		params.Slope = helpers.StringToBigInt(m.Slope)
	case formula.ModelSqrt:
		params.InitialPrice = helpers.StringToBigInt(m.InitialPrice)
		params.VirtualReserve = helpers.StringToBigInt(m.VirtualReserve)
		params.VirtualSupply = helpers.StringToBigInt(m.VirtualSupply)
	}

	if _, err := formula.NewCurve(params); err != nil {
		return formula.Params{}, err
	}

	return params, nil
}

func newCheckStateForTree(immutableTree *iavl.ImmutableTree, events eventsdb.IEventsDB, db db.DB, keepLastStates int64) (*CheckState, error) {
	stateForTree, err := newStateForTree(immutableTree, events, db, keepLastStates)
	if err != nil {
		return nil, err
	}

	return NewCheckState(stateForTree), nil
}

func newStateForTree(immutableTree *iavl.ImmutableTree, events eventsdb.IEventsDB, db db.DB, keepLastStates int64) (*State, error) {
	stateBus := bus.NewBus()
	stateBus.SetEvents(events)

	stateChecker := checker.NewChecker(stateBus)

	appState := app.NewApp(stateBus, immutableTree)

	marketsState := markets.NewMarkets(stateBus, immutableTree)

	tokensState := tokens.NewTokens(stateBus, immutableTree)

	rateLimitState := ratelimit.NewRateLimit(stateBus, immutableTree)

	venueState := venue.NewVenue(stateBus, immutableTree)

	state := &State{
		App:       appState,
		Markets:   marketsState,
		Tokens:    tokensState,
		RateLimit: rateLimitState,
		Venue:     venueState,
		Checker:   stateChecker,

		db:             db,
		events:         events,
		keepLastStates: keepLastStates,
		bus:            stateBus,
	}

	return state, nil
}
