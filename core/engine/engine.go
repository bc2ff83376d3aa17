package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	tmjson "github.com/tendermint/tendermint/libs/json"
	tmlog "github.com/tendermint/tendermint/libs/log"

	"github.com/EmberTeam/ember-go-engine/cmd/utils"
	"github.com/EmberTeam/ember-go-engine/config"
	"github.com/EmberTeam/ember-go-engine/core/appdb"
	eventsdb "github.com/EmberTeam/ember-go-engine/core/events"
	"github.com/EmberTeam/ember-go-engine/core/graduation"
	"github.com/EmberTeam/ember-go-engine/core/state"
	"github.com/EmberTeam/ember-go-engine/core/statistics"
	"github.com/EmberTeam/ember-go-engine/core/transaction"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/genesis"
	l "github.com/EmberTeam/ember-go-engine/log"
)

// Engine is a main structure of Ember
type Engine struct {
	logger tmlog.Logger

	executor      *transaction.Executor
	statisticData *statistics.Data

	appDB        *appdb.AppDB
	eventsDB     eventsdb.IEventsDB
	stateDeliver *state.State
	stateCheck   *state.CheckState
	height       uint64 // current Engine height

	lock sync.RWMutex

	// marketLocks serializes trades per market, actorLocks per actor.
	// Lock order is market first, then actor.
	marketLocks sync.Map
	actorLocks  sync.Map
	createLock  sync.Mutex

	haltHeight uint64
	cfg        *config.Config
	storages   *utils.Storage
	stopChan   context.Context
	stopped    bool
}

// NewEngine creates Ember Engine instance, should be only called once
func NewEngine(storages *utils.Storage, cfg *config.Config, ctx context.Context, logger tmlog.Logger) *Engine {
	// Initiate Application DB. Used for persisting data like current block, last block hash, etc.
	applicationDB := appdb.NewAppDB(storages.GetEmberHome(), cfg)
	if ctx == nil {
		ctx = context.Background()
	}
	eventsDB := eventsdb.NewEventsStore(storages.EventDB())
	if logger == nil {
		logger = l.NewLogger(cfg)
	}
	app := &Engine{
		logger: logger,

		appDB:      applicationDB,
		storages:   storages,
		eventsDB:   eventsDB,
		cfg:        cfg,
		stopChan:   ctx,
		haltHeight: uint64(cfg.HaltHeight),
	}
	if applicationDB.GetStartHeight() != 0 {
		app.initState()
	}
	return app
}

func (engine *Engine) initState() {
	initialHeight := engine.appDB.GetStartHeight()
	currentHeight := engine.appDB.GetLastHeight()

	stateDeliver, err := state.NewState(currentHeight,
		engine.storages.StateDB(),
		engine.eventsDB,
		engine.cfg.StateCacheSize,
		engine.cfg.KeepLastStates,
		initialHeight)

	if err != nil {
		panic(err)
	}

	height := currentHeight
	if height == 0 {
		height = initialHeight
	}
	atomic.StoreUint64(&engine.height, height)
	engine.stateDeliver = stateDeliver
	engine.stateCheck = state.NewCheckState(stateDeliver)

	// the graduation controller hands off to the venue book of this very
	// state, so the executor is rebuilt whenever the state is
	engine.executor = transaction.NewExecutor(transaction.GetData,
		graduation.NewController(graduation.NewBucketVenue(stateDeliver.Venue)))
}

// InitDeployment initializes the engine from a deployment document. Only called once.
func (engine *Engine) InitDeployment(doc *genesis.Deployment) {
	var deployState types.AppState
	if err := tmjson.Unmarshal(doc.AppState, &deployState); err != nil {
		panic(err)
	}

	engine.appDB.SetStartHeight(doc.InitialHeight)
	engine.initState()

	if err := engine.stateDeliver.Import(deployState); err != nil {
		panic(err)
	}
	if err := engine.stateDeliver.Check(); err != nil {
		panic(err)
	}
	hash, err := engine.stateDeliver.Commit()
	if err != nil {
		panic(err)
	}

	engine.appDB.SetLastBlockHash(hash)
	engine.appDB.SetLastHeight(engine.stateDeliver.Height())
	engine.appDB.SaveStartHeight()
}

// SealBlock commits everything delivered since the previous seal as one
// block and returns the application hash. headerTime is the logical
// timestamp the block is recorded with.
func (engine *Engine) SealBlock(headerTime time.Time) []byte {
	engine.lock.Lock()
	defer engine.lock.Unlock()

	height := engine.Height() + 1

	engine.StatisticData().SetStartBlock(height, time.Now(), headerTime)
	engine.appDB.AddBlocksTime(headerTime)

	if err := engine.stateDeliver.Check(); err != nil {
		panic(errors.Wrap(err, fmt.Sprintf("height %d", height)))
	}

	// Flush events db
	if err := engine.eventsDB.CommitEvents(height); err != nil {
		panic(err)
	}

	// Committing Ember Engine state
	hash, err := engine.stateDeliver.Commit()
	if err != nil {
		panic(err)
	}

	{ // Persist application hash and height
		engine.appDB.SetLastBlockHash(hash)
		engine.appDB.SetLastHeight(height)
		engine.appDB.SaveBlocksTime()
	}

	atomic.StoreUint64(&engine.height, height)

	engine.StatisticData().SetEndBlockDuration(time.Now(), height)

	return hash
}

// RunBlocks seals a block every BlockTime until the engine's context is
// closed or the configured halt height is reached.
func (engine *Engine) RunBlocks() error {
	ticker := time.NewTicker(engine.cfg.BlockTime)
	defer ticker.Stop()

	for {
		select {
		case <-engine.stopChan.Done():
			engine.stop()
			return nil
		case headerTime := <-ticker.C:
			if engine.checkStop() {
				return nil
			}

			if engine.isApplicationHalted(engine.Height() + 1) {
				log.Printf("Application halted at height %d\n", engine.Height()+1)
				engine.stop()
				return nil
			}

			engine.SealBlock(headerTime)
		}
	}
}

func (engine *Engine) isApplicationHalted(height uint64) bool {
	return engine.haltHeight > 0 && height >= engine.haltHeight
}

// Close closes db connections
func (engine *Engine) Close() error {
	if err := engine.appDB.Close(); err != nil {
		return err
	}
	if err := engine.storages.StateDB().Close(); err != nil {
		return err
	}
	if err := engine.storages.EventDB().Close(); err != nil {
		return err
	}
	return nil
}
