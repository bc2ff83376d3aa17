package state

import (
	eventsdb "github.com/EmberTeam/ember-go-engine/core/events"
	"github.com/EmberTeam/ember-go-engine/core/state/markets"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/formula"
	"github.com/EmberTeam/ember-go-engine/helpers"
	db "github.com/tendermint/tm-db"
	"log"
	"math/big"
	"testing"
)

func TestStateExport(t *testing.T) {
	t.Parallel()
	height := uint64(0)

	state, err := NewState(height, db.NewMemDB(), &eventsdb.MockEvents{}, 1, 2, 0)
	if err != nil {
		log.Panic("Cannot create state")
	}

	address1 := types.BytesToAddress([]byte{1})
	address2 := types.BytesToAddress([]byte{2})
	authority1 := types.BytesToAddress([]byte{0xaa})
	authority2 := types.BytesToAddress([]byte{0xab})
	feeSink := types.BytesToAddress([]byte{0xfe})

	params := types.EngineParams{
		FeeBps:               100,
		CooldownSeconds:      30,
		MaxTradesPerBlock:    3,
		MaxTradeValue:        "1000000000000000000000",
		MaxTradeTokens:       "0",
		LiquidityFractionBps: 8000,
		MinLiquidityValue:    "10000000000000000000",
		MinLiquidityTokens:   "1000000000000000000",
		FeeSink:              feeSink,
		Curve: formula.Calibration{
			Model:               "sqrt",
			InitialPrice:        "0.000001",
			VirtualReserve:      "30",
			VirtualSupply:       "1000000",
			GraduationThreshold: "500",
		},
	}
	if err := state.App.SetParams(params); err != nil {
		log.Panicf("Cannot set params: %s", err)
	}
	state.App.SetStartHeight(height + 1)

	market1 := state.Markets.CreateMarket(authority1, formula.Params{
		Model:               formula.ModelLinear,
		Base:                helpers.StringToBigInt("1000000000000000"),
		Slope:               big.NewInt(2000000),
		GraduationThreshold: helpers.EmbToSpark(big.NewInt(40000)),
	})

	market2 := state.Markets.CreateMarket(authority2, formula.Params{
		Model:               formula.ModelSqrt,
		InitialPrice:        helpers.StringToBigInt("1000000000000"),
		VirtualReserve:      helpers.EmbToSpark(big.NewInt(30)),
		VirtualSupply:       helpers.TokensToUnits(big.NewInt(1000000)),
		GraduationThreshold: helpers.EmbToSpark(big.NewInt(500)),
	})

	state.Markets.Authorize(market1.ID(), true)
	state.Markets.Authorize(market2.ID(), true)

	state.Markets.RecordBuy(market1.ID(), helpers.EmbToSpark(big.NewInt(5)), big.NewInt(0), helpers.TokensToUnits(big.NewInt(4000)))
	state.Markets.RecordSell(market1.ID(), helpers.TokensToUnits(big.NewInt(1000)), helpers.EmbToSpark(big.NewInt(1)), big.NewInt(0))

	state.Tokens.AddBalance(address1, types.ValueTokenID, helpers.EmbToSpark(big.NewInt(100)))
	state.Tokens.AddBalance(address1, market1.ID(), helpers.TokensToUnits(big.NewInt(3000)))
	state.Tokens.AddBalance(address2, market2.ID(), helpers.TokensToUnits(big.NewInt(200000)))

	state.RateLimit.Record(address1, market1.ID(), 1700000100, 42)

	state.Markets.RecordBuy(market2.ID(), helpers.EmbToSpark(big.NewInt(600)), big.NewInt(0), helpers.TokensToUnits(big.NewInt(200000)))

	liquidityValue := helpers.EmbToSpark(big.NewInt(480))
	liquidityTokens := helpers.TokensToUnits(big.NewInt(100000))
	feeValue := helpers.EmbToSpark(big.NewInt(120))

	record := &markets.GraduationRecord{
		Height:          height + 43,
		Time:            1700000500,
		FinalSupply:     helpers.TokensToUnits(big.NewInt(200000)),
		TotalCollected:  helpers.EmbToSpark(big.NewInt(600)),
		LiquidityValue:  liquidityValue,
		LiquidityTokens: liquidityTokens,
		FeeValue:        feeValue,
		Venue:           types.VenueConstantProduct,
		Pending:         true,
	}
	state.Markets.MarkGraduated(market2.ID(), record)
	state.Markets.SubReserveForHandoff(market2.ID(), helpers.EmbToSpark(big.NewInt(600)))
	state.Markets.MintForHandoff(market2.ID(), liquidityTokens)
	state.Venue.PairCreate(market2.ID(), liquidityValue, liquidityTokens, authority2)
	state.Tokens.AddBalance(feeSink, types.ValueTokenID, feeValue)
	record.SetCompleted()

	_, err = state.Commit()
	if err != nil {
		log.Panicf("Cannot commit state: %s", err)
	}

	newState := state.Export()
	if err := newState.Verify(); err != nil {
		t.Error(err)
	}

	if newState.StartHeight != state.App.GetStartHeight() {
		t.Fatalf("Wrong new state start height. Expected %d, got %d", state.App.GetStartHeight(), newState.StartHeight)
	}

	if newState.Params.FeeBps != 100 ||
		newState.Params.CooldownSeconds != 30 ||
		newState.Params.MaxTradesPerBlock != 3 ||
		newState.Params.MaxTradeValue != "1000000000000000000000" ||
		newState.Params.LiquidityFractionBps != 8000 ||
		newState.Params.FeeSink != feeSink {
		t.Fatal("Wrong new state params")
	}

	if newState.Params.Curve.Model != "sqrt" || newState.Params.Curve.GraduationThreshold != "500" {
		t.Fatal("Wrong new state curve calibration")
	}

	if len(newState.Markets) != 2 {
		t.Fatalf("Wrong new state markets size. Expected %d, got %d", 2, len(newState.Markets))
	}

	newStateMarket1 := newState.Markets[0]
	newStateMarket2 := newState.Markets[1]

	if newStateMarket1.ID != market1.ID().Uint32() ||
		newStateMarket1.Authority != authority1 ||
		newStateMarket1.Model != "linear" ||
		newStateMarket1.Base != "1000000000000000" ||
		newStateMarket1.Slope != "2000000" ||
		newStateMarket1.GraduationThreshold != helpers.EmbToSpark(big.NewInt(40000)).String() ||
		newStateMarket1.Supply != helpers.TokensToUnits(big.NewInt(3000)).String() ||
		newStateMarket1.Reserve != helpers.EmbToSpark(big.NewInt(4)).String() ||
		newStateMarket1.TotalCollected != helpers.EmbToSpark(big.NewInt(5)).String() ||
		!newStateMarket1.Authorized ||
		newStateMarket1.Paused ||
		newStateMarket1.Graduated {
		t.Fatalf("Wrong new state market data")
	}

	if newStateMarket1.Graduation != nil {
		t.Fatal("Market 1 is not graduated but carries a graduation record")
	}

	if newStateMarket2.ID != market2.ID().Uint32() ||
		newStateMarket2.Authority != authority2 ||
		newStateMarket2.Model != "sqrt" ||
		newStateMarket2.InitialPrice != "1000000000000" ||
		newStateMarket2.VirtualReserve != helpers.EmbToSpark(big.NewInt(30)).String() ||
		newStateMarket2.VirtualSupply != helpers.TokensToUnits(big.NewInt(1000000)).String() ||
		newStateMarket2.Supply != helpers.TokensToUnits(big.NewInt(300000)).String() ||
		newStateMarket2.Reserve != "0" ||
		newStateMarket2.TotalCollected != helpers.EmbToSpark(big.NewInt(600)).String() ||
		!newStateMarket2.Graduated {
		t.Fatalf("Wrong new state market data")
	}

	graduation := newStateMarket2.Graduation
	if graduation == nil {
		t.Fatal("Market 2 is graduated but carries no graduation record")
	}

	if graduation.Height != height+43 ||
		graduation.Time != 1700000500 ||
		graduation.FinalSupply != helpers.TokensToUnits(big.NewInt(200000)).String() ||
		graduation.TotalCollected != helpers.EmbToSpark(big.NewInt(600)).String() ||
		graduation.LiquidityValue != liquidityValue.String() ||
		graduation.LiquidityTokens != liquidityTokens.String() ||
		graduation.FeeValue != feeValue.String() ||
		graduation.Venue != "constant_product" ||
		graduation.Pending {
		t.Fatalf("Wrong new state graduation data")
	}

	if len(newState.Accounts) != 3 {
		t.Fatalf("Wrong new state accounts size. Expected %d, got %d", 3, len(newState.Accounts))
	}

	account1 := newState.Accounts[0]
	account2 := newState.Accounts[1]
	account3 := newState.Accounts[2]

	if account1.Address != address1 || len(account1.Balance) != 2 {
		t.Fatal("Wrong new state account data")
	}

	if account1.Balance[0].Token != uint32(types.ValueTokenID) || account1.Balance[0].Value != helpers.EmbToSpark(big.NewInt(100)).String() {
		t.Fatal("Wrong new state account balance data")
	}

	if account1.Balance[1].Token != market1.ID().Uint32() || account1.Balance[1].Value != helpers.TokensToUnits(big.NewInt(3000)).String() {
		t.Fatal("Wrong new state account balance data")
	}

	if account2.Address != address2 || len(account2.Balance) != 1 {
		t.Fatal("Wrong new state account data")
	}

	if account2.Balance[0].Token != market2.ID().Uint32() || account2.Balance[0].Value != helpers.TokensToUnits(big.NewInt(200000)).String() {
		t.Fatal("Wrong new state account balance data")
	}

	if account3.Address != feeSink || len(account3.Balance) != 1 {
		t.Fatal("Wrong new state account data")
	}

	if account3.Balance[0].Token != uint32(types.ValueTokenID) || account3.Balance[0].Value != feeValue.String() {
		t.Fatal("Wrong new state account balance data")
	}

	if len(newState.Rates) != 1 {
		t.Fatalf("Wrong new state rates size. Expected %d, got %d", 1, len(newState.Rates))
	}

	rate := newState.Rates[0]
	if rate.Market != market1.ID().Uint32() ||
		rate.Address != address1 ||
		rate.LastTime != 1700000100 ||
		rate.LastBlock != 42 ||
		rate.TradesInBlock != 1 {
		t.Fatal("Wrong new state rate data")
	}

	if len(newState.Pools) != 1 {
		t.Fatalf("Wrong new state pools size. Expected %d, got %d", 1, len(newState.Pools))
	}

	pool := newState.Pools[0]
	if pool.ID != 1 ||
		pool.Market != market2.ID().Uint32() ||
		pool.Provider != authority2 ||
		pool.ValueReserve != liquidityValue.String() ||
		pool.TokenReserve != liquidityTokens.String() ||
		pool.Liquidity != state.Venue.GetPool(market2.ID()).GetLiquidity().String() {
		t.Fatal("Wrong new state pool data")
	}
}

func TestStateImport(t *testing.T) {
	t.Parallel()

	appState := types.AppState{
		StartHeight: 1,
		Params: types.EngineParams{
			FeeBps:               250,
			CooldownSeconds:      60,
			MaxTradesPerBlock:    5,
			MaxTradeValue:        "0",
			MaxTradeTokens:       "0",
			LiquidityFractionBps: 8000,
			MinLiquidityValue:    "10000000000000000000",
			MinLiquidityTokens:   "1000000000000000000",
			FeeSink:              types.BytesToAddress([]byte{0xfe}),
			Curve: formula.Calibration{
				Model:           "linear",
				InitialValue:    "3000",
				GraduationValue: "45000",
				ReferenceSupply: "1000000",
			},
		},
		Markets: []types.MarketState{
			{
				ID:                  1,
				Authority:           types.BytesToAddress([]byte{0xaa}),
				Model:               "linear",
				Base:                "3000000000000000",
				Slope:               "42000000",
				GraduationThreshold: "45000000000000000000000",
				Supply:              "3000000000000000000000",
				Reserve:             "4000000000000000000",
				TotalCollected:      "5000000000000000000",
				Authorized:          true,
			},
			{
				ID:                  2,
				Authority:           types.BytesToAddress([]byte{0xab}),
				Model:               "sqrt",
				InitialPrice:        "1000000000000",
				VirtualReserve:      "30000000000000000000",
				VirtualSupply:       "1000000000000000000000000",
				GraduationThreshold: "500000000000000000000",
				Supply:              "300000000000000000000000",
				Reserve:             "0",
				TotalCollected:      "600000000000000000000",
				Graduated:           true,
				Graduation: &types.GraduationState{
					Height:          43,
					Time:            1700000500,
					FinalSupply:     "200000000000000000000000",
					TotalCollected:  "600000000000000000000",
					LiquidityValue:  "480000000000000000000",
					LiquidityTokens: "100000000000000000000000",
					FeeValue:        "120000000000000000000",
					Venue:           "constant_product",
				},
			},
		},
		Accounts: []types.Account{
			{
				Address: types.BytesToAddress([]byte{1}),
				Balance: []types.Balance{
					{Token: 0, Value: "100000000000000000000"},
					{Token: 1, Value: "3000000000000000000000"},
				},
			},
			{
				Address: types.BytesToAddress([]byte{2}),
				Balance: []types.Balance{
					{Token: 2, Value: "200000000000000000000000"},
				},
			},
			{
				Address: types.BytesToAddress([]byte{0xfe}),
				Balance: []types.Balance{
					{Token: 0, Value: "120000000000000000000"},
				},
			},
		},
		Rates: []types.RateEntry{
			{
				Market:        1,
				Address:       types.BytesToAddress([]byte{1}),
				LastTime:      1700000100,
				LastBlock:     42,
				TradesInBlock: 2,
			},
		},
		Pools: []types.Pool{
			{
				ID:           1,
				Market:       2,
				Provider:     types.BytesToAddress([]byte{0xab}),
				ValueReserve: "480000000000000000000",
				TokenReserve: "100000000000000000000000",
				Liquidity:    "6928203230275509174109",
			},
		},
	}

	if err := appState.Verify(); err != nil {
		t.Fatalf("Cannot verify appState: %s", err)
	}

	state, err := NewState(0, db.NewMemDB(), &eventsdb.MockEvents{}, 1, 2, 0)
	if err != nil {
		log.Panic("Cannot create state")
	}

	if err := state.Import(appState); err != nil {
		t.Fatalf("Cannot import appState: %s", err)
	}

	// supply of every token must be backed by account balances plus pool
	// reserves
	if err := state.Check(); err != nil {
		t.Fatalf("Imported state is not balanced: %s", err)
	}

	if state.Markets.MarketsCount() != 2 {
		t.Fatalf("Wrong imported markets count. Expected %d, got %d", 2, state.Markets.MarketsCount())
	}

	market3 := state.Markets.CreateMarket(types.BytesToAddress([]byte{0xac}), formula.Params{
		Model:               formula.ModelLinear,
		Base:                big.NewInt(1),
		Slope:               big.NewInt(1),
		GraduationThreshold: big.NewInt(1),
	})
	if market3.ID() != types.TokenID(3) {
		t.Fatalf("Wrong id of a market created after import. Expected %d, got %d", 3, market3.ID())
	}

	_, err = state.Commit()
	if err != nil {
		log.Panicf("Cannot commit state: %s", err)
	}

	if state.App.GetFeeBps() != 250 || state.App.GetCooldownSeconds() != 60 || state.App.GetMaxTradesPerBlock() != 5 {
		t.Fatal("Wrong imported params")
	}

	if state.App.GetMaxTradeValue().Sign() != 0 {
		t.Fatal("Wrong imported max trade value")
	}

	curve, err := state.App.GetCurve()
	if err != nil {
		t.Fatalf("Cannot parse imported curve: %s", err)
	}
	if curve.Model != formula.ModelLinear || curve.Base.String() != "3000000000000000" {
		t.Fatal("Wrong imported curve params")
	}

	market1 := state.Markets.GetMarket(types.TokenID(1))
	if market1 == nil {
		t.Fatal("Market 1 is not imported")
	}
	if !market1.IsAuthorized() || market1.IsGraduated() || market1.GetReserve().String() != "4000000000000000000" {
		t.Fatal("Wrong imported market data")
	}

	market2 := state.Markets.GetMarket(types.TokenID(2))
	if market2 == nil {
		t.Fatal("Market 2 is not imported")
	}
	if !market2.IsGraduated() || market2.GetSupply().String() != "300000000000000000000000" {
		t.Fatal("Wrong imported market data")
	}

	record := state.Markets.GetGraduation(types.TokenID(2))
	if record == nil {
		t.Fatal("Graduation record is not imported")
	}
	if record.IsPending() || record.LiquidityValue.String() != "480000000000000000000" {
		t.Fatal("Wrong imported graduation data")
	}

	balance := state.Tokens.GetBalance(types.BytesToAddress([]byte{1}), types.ValueTokenID)
	if balance.String() != "100000000000000000000" {
		t.Fatal("Wrong imported account balance")
	}

	entry := state.RateLimit.GetEntry(types.BytesToAddress([]byte{1}), types.TokenID(1))
	if entry == nil {
		t.Fatal("Rate entry is not imported")
	}
	if entry.GetLastBlock() != 42 || entry.GetTradesInBlock() != 2 {
		t.Fatal("Wrong imported rate data")
	}

	pool := state.Venue.GetPool(types.TokenID(2))
	if pool == nil {
		t.Fatal("Pool is not imported")
	}
	valueReserve, tokenReserve := pool.Reserves()
	if valueReserve.String() != "480000000000000000000" || tokenReserve.String() != "100000000000000000000000" {
		t.Fatal("Wrong imported pool reserves")
	}
	if pool.GetLiquidity().String() != "6928203230275509174109" {
		t.Fatal("Wrong imported pool liquidity")
	}

	newState := state.Export()
	if err := newState.Verify(); err != nil {
		t.Error(err)
	}

	if len(newState.Markets) != 3 || len(newState.Accounts) != 3 || len(newState.Rates) != 1 || len(newState.Pools) != 1 {
		t.Fatal("Wrong exported state after import")
	}

	if newState.Markets[1].Graduation == nil || newState.Markets[1].Graduation.LiquidityTokens != "100000000000000000000000" {
		t.Fatal("Wrong exported graduation after import")
	}
}
