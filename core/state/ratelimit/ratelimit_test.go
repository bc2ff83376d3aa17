package ratelimit

import (
	"testing"

	"github.com/EmberTeam/ember-go-engine/core/state/bus"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/tree"
	db "github.com/tendermint/tm-db"
)

func newTestRateLimit(t *testing.T) (*RateLimit, tree.MTree) {
	memDB := db.NewMemDB()
	mTree, err := tree.NewMutableTree(0, memDB, 1024, 0)
	if err != nil {
		t.Fatal(err)
	}

	return NewRateLimit(bus.NewBus(), mTree.GetLastImmutable()), mTree
}

func TestCooldown(t *testing.T) {
	rl, _ := newTestRateLimit(t)

	address := types.HexToAddress("Ex7633980c000139dd3bd24a3f54e06474fa941e16")
	market := types.TokenID(1)

	if err := rl.Check(address, market, 100, 5, 30, 3); err != nil {
		t.Fatalf("fresh actor should pass: %s", err)
	}

	rl.Record(address, market, 100, 5)

	err := rl.Check(address, market, 129, 6, 30, 3)
	cooldownErr, ok := err.(*CooldownError)
	if !ok {
		t.Fatalf("want cooldown error, got %v", err)
	}
	if cooldownErr.NextTradeTime != 130 {
		t.Fatalf("want next trade time 130, got %d", cooldownErr.NextTradeTime)
	}

	if err := rl.Check(address, market, 130, 6, 30, 3); err != nil {
		t.Fatalf("cooldown boundary should pass: %s", err)
	}
}

func TestZeroCooldownDisablesTimeGate(t *testing.T) {
	rl, _ := newTestRateLimit(t)

	address := types.HexToAddress("Ex7633980c000139dd3bd24a3f54e06474fa941e16")
	market := types.TokenID(1)

	rl.Record(address, market, 100, 5)

	if err := rl.Check(address, market, 100, 6, 0, 3); err != nil {
		t.Fatalf("zero cooldown should pass: %s", err)
	}
}

func TestBlockLimit(t *testing.T) {
	rl, _ := newTestRateLimit(t)

	address := types.HexToAddress("Ex7633980c000139dd3bd24a3f54e06474fa941e16")
	market := types.TokenID(1)

	for i := uint64(0); i < 3; i++ {
		if err := rl.Check(address, market, 100+i, 7, 0, 3); err != nil {
			t.Fatalf("trade %d should pass: %s", i+1, err)
		}
		rl.Record(address, market, 100+i, 7)
	}

	entry := rl.GetEntry(address, market)
	if entry.GetTradesInBlock() != 3 {
		t.Fatalf("want 3 trades in block, got %d", entry.GetTradesInBlock())
	}

	err := rl.Check(address, market, 103, 7, 0, 3)
	limitErr, ok := err.(*BlockLimitError)
	if !ok {
		t.Fatalf("want block limit error, got %v", err)
	}
	if limitErr.MaxTrades != 3 || limitErr.Block != 7 {
		t.Fatalf("unexpected limit error: %+v", limitErr)
	}

	if err := rl.Check(address, market, 103, 8, 0, 3); err != nil {
		t.Fatalf("next block should pass: %s", err)
	}

	rl.Record(address, market, 103, 8)
	if got := rl.GetEntry(address, market).GetTradesInBlock(); got != 1 {
		t.Fatalf("counter should restart at 1 on a new block, got %d", got)
	}
}

func TestCheckLeavesNoTrace(t *testing.T) {
	rl, _ := newTestRateLimit(t)

	address := types.HexToAddress("Ex7633980c000139dd3bd24a3f54e06474fa941e16")
	market := types.TokenID(1)

	rl.Record(address, market, 100, 5)

	if err := rl.Check(address, market, 101, 5, 30, 1); err == nil {
		t.Fatal("want rejection")
	}

	entry := rl.GetEntry(address, market)
	if entry.GetTradesInBlock() != 1 || entry.GetLastTime() != 100 {
		t.Fatalf("rejected check must not mutate the entry: %+v", entry)
	}
}

func TestEntriesAreScopedPerMarket(t *testing.T) {
	rl, _ := newTestRateLimit(t)

	address := types.HexToAddress("Ex7633980c000139dd3bd24a3f54e06474fa941e16")

	rl.Record(address, types.TokenID(1), 100, 5)

	if err := rl.Check(address, types.TokenID(2), 101, 5, 30, 3); err != nil {
		t.Fatalf("other market should not share the cooldown: %s", err)
	}
}

func TestCommitAndReload(t *testing.T) {
	rl, mTree := newTestRateLimit(t)

	address := types.HexToAddress("Ex7633980c000139dd3bd24a3f54e06474fa941e16")
	market := types.TokenID(3)

	rl.Record(address, market, 512, 42)
	rl.Record(address, market, 513, 42)

	if _, _, err := mTree.Commit(rl); err != nil {
		t.Fatal(err)
	}

	reloaded := NewRateLimit(bus.NewBus(), mTree.GetLastImmutable())
	entry := reloaded.GetEntry(address, market)
	if entry == nil {
		t.Fatal("entry not persisted")
	}
	if entry.GetLastTime() != 513 || entry.GetLastBlock() != 42 || entry.GetTradesInBlock() != 2 {
		t.Fatalf("unexpected persisted entry: time %d block %d trades %d",
			entry.GetLastTime(), entry.GetLastBlock(), entry.GetTradesInBlock())
	}

	var exported types.AppState
	reloaded.Export(&exported)
	if len(exported.Rates) != 1 {
		t.Fatalf("want 1 exported rate entry, got %d", len(exported.Rates))
	}
	if exported.Rates[0].Market != 3 || exported.Rates[0].TradesInBlock != 2 {
		t.Fatalf("unexpected exported entry: %+v", exported.Rates[0])
	}
}
