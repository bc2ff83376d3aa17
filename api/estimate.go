package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/EmberTeam/ember-go-engine/core/engine"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/helpers"
)

// EstimateBuy previews a buy: ?market=N&value=spark. The reply mirrors
// the engine quote; an invalid quote is code 0 with is_valid=false, the
// same way a quote call inside the engine never fails.
func EstimateBuy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	market, valueStr, ok := estimateArgs(w, r, "value")
	if !ok {
		return
	}

	cState, err := GetStateForRequest(r)
	if err != nil {
		_ = json.NewEncoder(w).Encode(Response{Code: 404, Log: err.Error()})
		return
	}

	quote := engine.BuyQuote(cState, market, helpers.StringToBigInt(valueStr))
	_ = json.NewEncoder(w).Encode(Response{Code: 0, Result: quote})
}

// EstimateSell previews a sell: ?market=N&tokens=baseUnits.
func EstimateSell(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	market, tokensStr, ok := estimateArgs(w, r, "tokens")
	if !ok {
		return
	}

	cState, err := GetStateForRequest(r)
	if err != nil {
		_ = json.NewEncoder(w).Encode(Response{Code: 404, Log: err.Error()})
		return
	}

	quote := engine.SellQuote(cState, market, helpers.StringToBigInt(tokensStr))
	_ = json.NewEncoder(w).Encode(Response{Code: 0, Result: quote})
}

func estimateArgs(w http.ResponseWriter, r *http.Request, amountKey string) (types.TokenID, string, bool) {
	id, err := strconv.ParseUint(r.URL.Query().Get("market"), 10, 32)
	if err != nil {
		_ = json.NewEncoder(w).Encode(Response{Code: 400, Log: "Invalid market id"})
		return 0, "", false
	}

	amount := r.URL.Query().Get(amountKey)
	if !helpers.IsValidBigInt(amount) {
		_ = json.NewEncoder(w).Encode(Response{Code: 400, Log: "Invalid " + amountKey})
		return 0, "", false
	}

	return types.TokenID(id), amount, true
}
