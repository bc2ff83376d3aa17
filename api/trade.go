package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/EmberTeam/ember-go-engine/core/transaction"
)

type TradeResponse struct {
	Tags map[string]string `json:"tags,omitempty"`
	Info json.RawMessage   `json:"info,omitempty"`
}

// SendTrade delivers a raw trade envelope to the engine
func SendTrade(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	rawTrade, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		_ = json.NewEncoder(w).Encode(Response{Code: 400, Log: err.Error()})
		return
	}

	writeTradeResponse(w, ember.SubmitTrade(rawTrade))
}

// CheckTrade dry-runs a raw trade envelope against the current state
func CheckTrade(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	rawTrade, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		_ = json.NewEncoder(w).Encode(Response{Code: 400, Log: err.Error()})
		return
	}

	writeTradeResponse(w, ember.CheckTrade(rawTrade))
}

func writeTradeResponse(w http.ResponseWriter, response transaction.Response) {
	result := TradeResponse{}
	if response.Info != "" {
		result.Info = json.RawMessage(response.Info)
	}
	if len(response.Tags) > 0 {
		result.Tags = make(map[string]string, len(response.Tags))
		for _, tag := range response.Tags {
			result.Tags[string(tag.Key)] = string(tag.Value)
		}
	}

	_ = json.NewEncoder(w).Encode(Response{Code: response.Code, Result: result, Log: response.Log})
}
