package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	eventsdb "github.com/EmberTeam/ember-go-engine/core/events"
)

type EventsResponse struct {
	Height uint64          `json:"height"`
	Events eventsdb.Events `json:"events"`
}

// Events returns the audit events flushed at the given height
func Events(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	height, err := strconv.ParseUint(mux.Vars(r)["height"], 10, 64)
	if err != nil {
		_ = json.NewEncoder(w).Encode(Response{Code: 400, Log: err.Error()})
		return
	}

	events := ember.GetEventsDB().LoadEvents(height)

	_ = json.NewEncoder(w).Encode(Response{
		Code: 0,
		Result: EventsResponse{
			Height: height,
			Events: events,
		},
	})
}
