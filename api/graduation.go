package api

import (
	"encoding/json"
	"net/http"

	"github.com/EmberTeam/ember-go-engine/core/engine"
)

// Graduation returns how far the market is from freezing, and the
// graduation record once it has.
func Graduation(w http.ResponseWriter, r *http.Request) {
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

	status := engine.GraduationStatusFromState(cState, id)
	if status == nil {
		_ = json.NewEncoder(w).Encode(Response{Code: 404, Log: "Market not found"})
		return
	}

	_ = json.NewEncoder(w).Encode(Response{Code: 0, Result: status})
}
