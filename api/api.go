package api

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	tmlog "github.com/tendermint/tendermint/libs/log"

	"github.com/EmberTeam/ember-go-engine/config"
	"github.com/EmberTeam/ember-go-engine/core/engine"
	"github.com/EmberTeam/ember-go-engine/core/state"
	"github.com/EmberTeam/ember-go-engine/core/types"
)

var (
	ember  *engine.Engine
	cfg    *config.Config
	logger tmlog.Logger
)

// RunApi serves the JSON surface of the engine until the listener
// fails. Should be run in its own goroutine.
func RunApi(e *engine.Engine, c *config.Config, l tmlog.Logger) error {
	ember = e
	cfg = c
	logger = l

	router := mux.NewRouter().StrictSlash(true)

	router.HandleFunc("/api/status", Status).Methods("GET")
	router.HandleFunc("/api/markets", Markets).Methods("GET")
	router.HandleFunc("/api/market/{id}", Market).Methods("GET")
	router.HandleFunc("/api/graduation/{id}", Graduation).Methods("GET")
	router.HandleFunc("/api/estimateBuy", EstimateBuy).Methods("GET")
	router.HandleFunc("/api/estimateSell", EstimateSell).Methods("GET")
	router.HandleFunc("/api/sendTrade", SendTrade).Methods("POST")
	router.HandleFunc("/api/checkTrade", CheckTrade).Methods("POST")
	router.HandleFunc("/api/events/{height}", Events).Methods("GET")
	router.HandleFunc("/api/feedWS", Feed)
	router.PathPrefix("/api/custom/").Handler(http.StripPrefix("/api/custom", CustomHandlers()))

	go broadcastEvents()

	c2 := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"POST", "GET"},
		AllowCredentials: true,
	})

	handler := c2.Handler(handlers.CompressHandler(measure(router)))

	listenAddr, err := url.Parse(cfg.APIListenAddress)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         listenAddr.Host,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server.ListenAndServe()
}

// measure feeds per-path response times into the statistics gauges
func measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		if data := ember.StatisticData(); data != nil {
			data.SetApiTime(time.Since(start), r.URL.Path)
		}
	})
}

// Response is the envelope of every JSON reply
type Response struct {
	Code   uint32      `json:"code"`
	Result interface{} `json:"result,omitempty"`
	Log    string      `json:"log,omitempty"`
}

// GetStateForRequest resolves the read state the request asks for: the
// current one, or a historic version selected with ?height=N.
func GetStateForRequest(r *http.Request) (*state.CheckState, error) {
	height, _ := strconv.Atoi(r.URL.Query().Get("height"))

	if height > 0 {
		return ember.GetStateForHeight(uint64(height))
	}

	return ember.CurrentState(), nil
}

func marketFromVars(r *http.Request) (types.TokenID, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		return 0, err
	}
	return types.TokenID(id), nil
}
