package api

import (
	"encoding/json"
	"net/http"

	"github.com/EmberTeam/ember-go-engine/core/engine"
	"github.com/EmberTeam/ember-go-engine/core/types"
)

// Markets returns the snapshot of every market, at the current height
// or at ?height=N.
func Markets(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	cState, err := GetStateForRequest(r)
	if err != nil {
		_ = json.NewEncoder(w).Encode(Response{Code: 404, Log: err.Error()})
		return
	}

	count := cState.Markets().MarketsCount()
	result := make([]*engine.MarketInfo, 0, count)
	for id := types.TokenID(1); uint32(id) <= count; id++ {
		if info := engine.MarketInfoFromState(cState, id); info != nil {
			result = append(result, info)
		}
	}

	_ = json.NewEncoder(w).Encode(Response{Code: 0, Result: result})
}

// Market returns the snapshot of one market
func Market(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	id, err := marketFromVars(r)
	if err != nil {
		_ = json.NewEncoder(w).Encode(Response{Code: 400, Log: err.Error()})
		return
	}

	cState, err := GetStateForRequest(r)
	if err != nil {
		_ = json.NewEncoder(w).Encode(Response{Code: 404, Log: err.Error()})
		return
	}

	info := engine.MarketInfoFromState(cState, id)
	if info == nil {
		_ = json.NewEncoder(w).Encode(Response{Code: 404, Log: "Market not found"})
		return
	}

	_ = json.NewEncoder(w).Encode(Response{Code: 0, Result: info})
}
