package engine

import (
	"time"

	"github.com/EmberTeam/ember-go-engine/core/code"
	"github.com/EmberTeam/ember-go-engine/core/transaction"
)

// SubmitTrade delivers a trade envelope for full processing. Trades
// against the same market or from the same actor are serialized, the
// rest run in parallel.
func (engine *Engine) SubmitTrade(rawTrade []byte) transaction.Response {
	engine.lock.RLock()
	defer engine.lock.RUnlock()

	trade, err := engine.executor.DecodeFromBytes(rawTrade)
	if err != nil {
		return transaction.Response{
			Code: code.DecodeError,
			Log:  err.Error(),
			Info: transaction.EncodeError(code.NewDecodeError()),
		}
	}

	// market lock first, actor lock second, never the other way around
	if market, ok := transaction.MarketOf(trade.GetDecodedData()); ok {
		lock := engine.marketLock(market)
		lock.Lock()
		defer lock.Unlock()
	} else {
		// market creation assigns the next id, one create at a time
		engine.createLock.Lock()
		defer engine.createLock.Unlock()
	}

	actorLock := engine.actorLock(trade.Actor)
	actorLock.Lock()
	defer actorLock.Unlock()

	response := engine.executor.RunTrade(engine.stateDeliver, rawTrade, engine.Height()+1, uint64(time.Now().Unix()), false)

	if response.Code == code.OK {
		engine.StatisticData().CountTrade(trade.GetDecodedData().TradeType().Name())
		for _, tag := range response.Tags {
			if string(tag.Key) == "trade.graduated" {
				engine.StatisticData().CountGraduation()
			}
		}
	}

	return response
}

// CheckTrade validates a trade envelope against the current state
// without mutating anything
func (engine *Engine) CheckTrade(rawTrade []byte) transaction.Response {
	return engine.executor.RunTrade(engine.CurrentState(), rawTrade, engine.Height()+1, uint64(time.Now().Unix()), true)
}
