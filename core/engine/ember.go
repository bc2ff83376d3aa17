package engine

import (
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"

	eventsdb "github.com/EmberTeam/ember-go-engine/core/events"
	"github.com/EmberTeam/ember-go-engine/core/state"
	"github.com/EmberTeam/ember-go-engine/core/statistics"
	"github.com/EmberTeam/ember-go-engine/core/transaction"
	"github.com/EmberTeam/ember-go-engine/core/types"
)

func (engine *Engine) Executor() *transaction.Executor {
	return engine.executor
}

func (engine *Engine) InitialHeight() uint64 {
	return engine.appDB.GetStartHeight()
}

// LastBlockHash returns the application hash of the last sealed block
func (engine *Engine) LastBlockHash() []byte {
	return engine.appDB.GetLastBlockHash()
}

func (engine *Engine) checkStop() bool {
	if !engine.stopped {
		select {
		case <-engine.stopChan.Done():
			engine.stop()
		default:
		}
	}
	return engine.stopped
}

func (engine *Engine) stop() {
	engine.stopped = true
}

// CurrentState returns immutable state of Ember Engine
func (engine *Engine) CurrentState() *state.CheckState {
	engine.lock.RLock()
	defer engine.lock.RUnlock()

	return engine.stateCheck
}

// GetStateForHeight returns immutable state of Ember Engine for given height
func (engine *Engine) GetStateForHeight(height uint64) (*state.CheckState, error) {
	if height > 0 {
		s, err := state.NewCheckStateAtHeight(height, engine.storages.StateDB())
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return engine.CurrentState(), nil
}

// Height returns current height of Ember Engine
func (engine *Engine) Height() uint64 {
	return atomic.LoadUint64(&engine.height)
}

// GetEventsDB returns current EventsDB
func (engine *Engine) GetEventsDB() eventsdb.IEventsDB {
	return engine.eventsDB
}

// SetStatisticData used for collection statistics about engine operations
func (engine *Engine) SetStatisticData(statisticData *statistics.Data) *statistics.Data {
	engine.statisticData = statisticData
	return engine.statisticData
}

// StatisticData used for collection statistics about engine operations
func (engine *Engine) StatisticData() *statistics.Data {
	return engine.statisticData
}

// MarketMetrics reports every market's reserve, collected value and
// supply in whole EMB and tokens, for the prometheus gauges.
func (engine *Engine) MarketMetrics() []statistics.MarketMetric {
	cState := engine.CurrentState()

	count := cState.Markets().MarketsCount()
	metrics := make([]statistics.MarketMetric, 0, count)
	for id := types.TokenID(1); uint32(id) <= count; id++ {
		market := cState.Markets().GetMarket(id)
		if market == nil {
			continue
		}

		metrics = append(metrics, statistics.MarketMetric{
			Market:         id.String(),
			Reserve:        toUnit(market.GetReserve()),
			TotalCollected: toUnit(market.GetTotalCollected()),
			Supply:         toUnit(market.GetSupply()),
		})
	}

	return metrics
}

var unit = big.NewFloat(1e18)

func toUnit(value *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(value), unit).Float64()
	return f
}

// AvailableVersions returns all available versions in ascending order
func (engine *Engine) AvailableVersions() []int {
	engine.lock.RLock()
	defer engine.lock.RUnlock()

	return engine.stateDeliver.Tree().AvailableVersions()
}

// DeleteStateVersions deletes states in [from, to)
func (engine *Engine) DeleteStateVersions(from, to int64) error {
	engine.lock.RLock()
	defer engine.lock.RUnlock()

	for version := from; version < to; version++ {
		if err := engine.stateDeliver.Tree().DeleteVersionIfExists(version); err != nil {
			return err
		}
	}

	return nil
}

func (engine *Engine) marketLock(market types.TokenID) *sync.Mutex {
	lock, _ := engine.marketLocks.LoadOrStore(market, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (engine *Engine) actorLock(actor types.Address) *sync.Mutex {
	lock, _ := engine.actorLocks.LoadOrStore(actor, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// GetDbOpts returns leveldb options tuned to the given memory limit, in MB
func GetDbOpts(memLimit int) *opt.Options {
	if memLimit < 1024 {
		panic(fmt.Sprintf("Not enough memory given to StateDB. Expected >1024M, given %d", memLimit))
	}
	return &opt.Options{
		OpenFilesCacheCapacity: memLimit,
		BlockCacheCapacity:     memLimit / 2 * opt.MiB,
		WriteBuffer:            memLimit / 4 * opt.MiB, // Two of these are used internally
		Filter:                 filter.NewBloomFilter(10),
	}
}
