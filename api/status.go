package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/EmberTeam/ember-go-engine/version"
)

type StatusResponse struct {
	Version           string `json:"version"`
	LatestBlockHash   string `json:"latest_block_hash"`
	LatestBlockHeight uint64 `json:"latest_block_height"`
	InitialHeight     uint64 `json:"initial_height"`
	MarketsCount      uint32 `json:"markets_count"`
	KeepLastStates    int64  `json:"keep_last_states"`
}

func Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	cState := ember.CurrentState()

	_ = json.NewEncoder(w).Encode(Response{
		Code: 0,
		Result: StatusResponse{
			Version:           version.Version,
			LatestBlockHash:   hex.EncodeToString(ember.LastBlockHash()),
			LatestBlockHeight: ember.Height(),
			InitialHeight:     ember.InitialHeight(),
			MarketsCount:      cState.Markets().MarketsCount(),
			KeepLastStates:    cfg.KeepLastStates,
		},
	})
}
